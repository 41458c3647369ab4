package payments

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dbpkg "github.com/angelmondragon/comercio-backend/pkg/db"
	"github.com/angelmondragon/comercio-backend/pkg/db/models"
)

// Repository exposes persistence helpers for payments.
type Repository interface {
	WithTx(tx *gorm.DB) Repository
	Create(ctx context.Context, payment *models.Payment) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Payment, error)
	FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*models.Payment, error)
	List(ctx context.Context, tenantID uuid.UUID, params ListParams) ([]models.Payment, int64, error)
	ListAll(ctx context.Context, tenantID uuid.UUID) ([]models.Payment, error)
	PaymentNumbers(ctx context.Context) ([]string, error)
	UpdateColumns(ctx context.Context, payment *models.Payment, columns ...string) error
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
}

type repositoryImpl struct {
	db *gorm.DB
}

// NewRepository returns a payments repository bound to the provided database.
func NewRepository(db *gorm.DB) Repository {
	return &repositoryImpl{db: db}
}

func (r *repositoryImpl) WithTx(tx *gorm.DB) Repository {
	if tx == nil {
		return r
	}
	return &repositoryImpl{db: tx}
}

func (r *repositoryImpl) Create(ctx context.Context, payment *models.Payment) error {
	if payment.ID == uuid.Nil {
		payment.ID = uuid.New()
	}
	return r.db.WithContext(ctx).Create(payment).Error
}

func (r *repositoryImpl) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*models.Payment, error) {
	var payment models.Payment
	err := r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&payment).Error
	if err != nil {
		return nil, err
	}
	return &payment, nil
}

// FindByIDForUpdate loads the row with FOR UPDATE where the dialect supports it.
func (r *repositoryImpl) FindByIDForUpdate(ctx context.Context, tenantID, id uuid.UUID) (*models.Payment, error) {
	query := r.db.WithContext(ctx).Where("id = ? AND tenant_id = ?", id, tenantID)
	if dbpkg.SupportsRowLocks(r.db) {
		query = query.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var payment models.Payment
	if err := query.First(&payment).Error; err != nil {
		return nil, err
	}
	return &payment, nil
}

func (r *repositoryImpl) List(ctx context.Context, tenantID uuid.UUID, params ListParams) ([]models.Payment, int64, error) {
	base := func() *gorm.DB {
		query := r.db.WithContext(ctx).Model(&models.Payment{}).Where("tenant_id = ?", tenantID)
		return applyFilters(query, params.Filters)
	}

	var total int64
	if err := base().Count(&total).Error; err != nil {
		return nil, 0, err
	}

	page := params.Page.Normalize()
	var rows []models.Payment
	err := base().
		Order("payment_date DESC").
		Order("created_at DESC").
		Offset(page.Offset()).
		Limit(page.Limit).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return rows, total, nil
}

func applyFilters(query *gorm.DB, filters ListFilters) *gorm.DB {
	if filters.Status != nil {
		query = query.Where("status = ?", *filters.Status)
	}
	if filters.Method != nil {
		query = query.Where("method = ?", *filters.Method)
	}
	if filters.CustomerID != nil {
		query = query.Where("customer_id = ?", *filters.CustomerID)
	}
	if filters.InvoiceID != nil {
		query = query.Where("invoice_id = ?", *filters.InvoiceID)
	}
	if filters.From != nil {
		query = query.Where("payment_date >= ?", *filters.From)
	}
	if filters.To != nil {
		query = query.Where("payment_date <= ?", *filters.To)
	}
	if search := strings.ToLower(strings.TrimSpace(filters.Search)); search != "" {
		like := "%" + search + "%"
		query = query.Where(
			"(LOWER(payment_number) LIKE ? OR LOWER(COALESCE(customer_name, '')) LIKE ? OR LOWER(COALESCE(reference_number, '')) LIKE ? OR LOWER(COALESCE(invoice_number, '')) LIKE ?)",
			like, like, like, like,
		)
	}
	return query
}

func (r *repositoryImpl) ListAll(ctx context.Context, tenantID uuid.UUID) ([]models.Payment, error) {
	var rows []models.Payment
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		Find(&rows).Error
	return rows, err
}

// PaymentNumbers returns every payment number across tenants; numbering is global.
func (r *repositoryImpl) PaymentNumbers(ctx context.Context) ([]string, error) {
	var numbers []string
	err := r.db.WithContext(ctx).
		Model(&models.Payment{}).
		Where("payment_number LIKE ?", paymentNumberPrefix+"-%").
		Pluck("payment_number", &numbers).Error
	return numbers, err
}

func (r *repositoryImpl) UpdateColumns(ctx context.Context, payment *models.Payment, columns ...string) error {
	if len(columns) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).
		Model(payment).
		Where("tenant_id = ?", payment.TenantID).
		Select(columns).
		Updates(payment).Error
}

func (r *repositoryImpl) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	return r.db.WithContext(ctx).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		Delete(&models.Payment{}).Error
}
