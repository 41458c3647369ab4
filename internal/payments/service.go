package payments

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	dbpkg "github.com/angelmondragon/comercio-backend/pkg/db"
	"github.com/angelmondragon/comercio-backend/pkg/db/models"
	"github.com/angelmondragon/comercio-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/comercio-backend/pkg/errors"
	"github.com/angelmondragon/comercio-backend/pkg/logger"
	"github.com/angelmondragon/comercio-backend/pkg/metrics"
	"github.com/angelmondragon/comercio-backend/pkg/outbox"
	"github.com/angelmondragon/comercio-backend/pkg/pagination"
)

// maxNumberAttempts bounds retries when concurrent creators race for the
// same payment number.
const maxNumberAttempts = 3

const paymentNumberConstraint = "payment_number"

type txRunner interface {
	WithTx(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type outboxPublisher interface {
	Emit(ctx context.Context, tx *gorm.DB, event outbox.DomainEvent) error
}

// Service defines the payment lifecycle operations. Every call is scoped
// to the tenant passed explicitly by the caller.
type Service interface {
	List(ctx context.Context, tenantID uuid.UUID, params ListParams) (*ListResult, error)
	Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Payment, error)
	Create(ctx context.Context, tenantID uuid.UUID, input CreatePaymentInput) (*models.Payment, error)
	Update(ctx context.Context, tenantID, id uuid.UUID, input UpdatePaymentInput) (*models.Payment, error)
	UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status enums.PaymentStatus) (*models.Payment, error)
	Refund(ctx context.Context, tenantID, id uuid.UUID, amount *decimal.Decimal) (*models.Payment, error)
	Delete(ctx context.Context, tenantID, id uuid.UUID) error
	Stats(ctx context.Context, tenantID uuid.UUID) (*Stats, error)
}

// ServiceParams wires the payments service. StatsCache, Metrics and Clock
// are optional.
type ServiceParams struct {
	Repository Repository
	TxRunner   txRunner
	Outbox     outboxPublisher
	StatsCache StatsCache
	Metrics    *metrics.PaymentMetrics
	Logger     *logger.Logger
	Clock      func() time.Time
}

type service struct {
	repo    Repository
	tx      txRunner
	outbox  outboxPublisher
	cache   StatsCache
	metrics *metrics.PaymentMetrics
	logg    *logger.Logger
	now     func() time.Time
}

// NewService builds a payments service with the required dependencies.
func NewService(params ServiceParams) (Service, error) {
	if params.Repository == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "payments repository required")
	}
	if params.TxRunner == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "transaction runner required")
	}
	if params.Outbox == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "outbox publisher required")
	}
	if params.Logger == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "logger required")
	}
	clock := params.Clock
	if clock == nil {
		clock = time.Now
	}
	return &service{
		repo:    params.Repository,
		tx:      params.TxRunner,
		outbox:  params.Outbox,
		cache:   params.StatsCache,
		metrics: params.Metrics,
		logg:    params.Logger,
		now:     func() time.Time { return clock().UTC() },
	}, nil
}

func (s *service) List(ctx context.Context, tenantID uuid.UUID, params ListParams) (*ListResult, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	rows, total, err := s.repo.List(ctx, tenantID, params)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "list payments")
	}
	if rows == nil {
		rows = []models.Payment{}
	}
	return &ListResult{
		Data: rows,
		Meta: pagination.NewMeta(params.Page, total),
	}, nil
}

func (s *service) Get(ctx context.Context, tenantID, id uuid.UUID) (*models.Payment, error) {
	payment, err := s.repo.FindByID(ctx, tenantID, id)
	if err != nil {
		return nil, mapLookupError(err, "load payment")
	}
	return payment, nil
}

func (s *service) Create(ctx context.Context, tenantID uuid.UUID, input CreatePaymentInput) (*models.Payment, error) {
	payment, err := s.create(ctx, tenantID, input)
	s.metrics.ObserveOperation("create", err)
	if err != nil {
		return nil, err
	}
	s.invalidateStats(ctx, tenantID)
	return payment, nil
}

func (s *service) create(ctx context.Context, tenantID uuid.UUID, input CreatePaymentInput) (*models.Payment, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if input.InvoiceID == uuid.Nil || input.CustomerID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "invoice and customer are required")
	}
	if !input.Amount.IsPositive() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgAmountNotPositive)
	}
	if !input.Method.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgInvalidMethod)
	}
	status := enums.PaymentStatusPending
	if input.Status != nil {
		if !input.Status.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, msgInvalidStatus)
		}
		status = *input.Status
	}

	now := s.now()
	paymentDate := now
	if input.PaymentDate != nil {
		paymentDate = input.PaymentDate.UTC()
	}

	var created *models.Payment
	err := s.withNumberRetry(ctx, func() error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			number, err := s.nextNumber(ctx, repo, now)
			if err != nil {
				return err
			}
			payment := &models.Payment{
				ID:              uuid.New(),
				TenantID:        tenantID,
				PaymentNumber:   number,
				InvoiceID:       input.InvoiceID,
				CustomerID:      input.CustomerID,
				CustomerName:    input.CustomerName,
				InvoiceNumber:   input.InvoiceNumber,
				Amount:          input.Amount,
				Method:          input.Method,
				Status:          status,
				PaymentDate:     paymentDate,
				ReferenceNumber: input.ReferenceNumber,
				Notes:           input.Notes,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := repo.Create(ctx, payment); err != nil {
				return err
			}
			if err := s.outbox.Emit(ctx, tx, createdEvent(payment, now)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment created")
			}
			created = payment
			return nil
		})
	})
	if err != nil {
		return nil, wrapDependency(err, "create payment")
	}

	logCtx := s.logg.WithFields(s.logg.WithTenantID(ctx, tenantID.String()), map[string]any{
		"payment_id":     created.ID.String(),
		"payment_number": created.PaymentNumber,
		"status":         created.Status,
	})
	s.logg.Info(logCtx, "payment created")
	return created, nil
}

func (s *service) Update(ctx context.Context, tenantID, id uuid.UUID, input UpdatePaymentInput) (*models.Payment, error) {
	var updated *models.Payment
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByIDForUpdate(ctx, tenantID, id)
		if err != nil {
			return mapLookupError(err, "load payment")
		}

		columns, err := applyUpdate(payment, input)
		if err != nil {
			return err
		}
		if len(columns) == 0 {
			updated = payment
			return nil
		}

		now := s.now()
		payment.UpdatedAt = now
		if err := repo.UpdateColumns(ctx, payment, append(columns, "updated_at")...); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment")
		}
		if err := s.outbox.Emit(ctx, tx, updatedEvent(payment, columns, now)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment updated")
		}
		updated = payment
		return nil
	})
	s.metrics.ObserveOperation("update", err)
	if err != nil {
		return nil, wrapDependency(err, "update payment")
	}
	s.invalidateStats(ctx, tenantID)
	return updated, nil
}

// applyUpdate copies the accepted fields onto payment and returns the
// changed columns. Once a payment is COMPLETED, REFUNDED or CANCELLED only
// notes are accepted; other fields are dropped without error.
func applyUpdate(payment *models.Payment, input UpdatePaymentInput) ([]string, error) {
	var columns []string
	if input.Notes != nil {
		notes := *input.Notes
		payment.Notes = &notes
		columns = append(columns, "notes")
	}
	if onlyNotesEditable(payment.Status) {
		return columns, nil
	}

	if input.Amount != nil {
		payment.Amount = *input.Amount
		columns = append(columns, "amount")
	}
	if input.Method != nil {
		if !input.Method.IsValid() {
			return nil, pkgerrors.New(pkgerrors.CodeValidation, msgInvalidMethod)
		}
		payment.Method = *input.Method
		columns = append(columns, "method")
	}
	if input.ReferenceNumber != nil {
		ref := *input.ReferenceNumber
		payment.ReferenceNumber = &ref
		columns = append(columns, "reference_number")
	}
	if input.PaymentDate != nil {
		payment.PaymentDate = input.PaymentDate.UTC()
		columns = append(columns, "payment_date")
	}
	return columns, nil
}

func (s *service) UpdateStatus(ctx context.Context, tenantID, id uuid.UUID, status enums.PaymentStatus) (*models.Payment, error) {
	if !status.IsValid() {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, msgInvalidStatus).
			WithDetails(map[string]any{"status": status})
	}

	var (
		updated  *models.Payment
		previous enums.PaymentStatus
	)
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByIDForUpdate(ctx, tenantID, id)
		if err != nil {
			return mapLookupError(err, "load payment")
		}
		if err := ValidateTransition(payment.Status, status); err != nil {
			return err
		}

		now := s.now()
		previous = payment.Status
		payment.Status = status
		payment.UpdatedAt = now
		if err := repo.UpdateColumns(ctx, payment, "status", "updated_at"); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "update payment status")
		}
		if err := s.outbox.Emit(ctx, tx, statusChangedEvent(payment, previous, now)); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment status changed")
		}
		updated = payment
		return nil
	})
	s.metrics.ObserveOperation("update_status", err)
	if err != nil {
		return nil, wrapDependency(err, "update payment status")
	}

	logCtx := s.logg.WithFields(s.logg.WithTenantID(ctx, tenantID.String()), map[string]any{
		"payment_id":      updated.ID.String(),
		"previous_status": previous,
		"status":          updated.Status,
	})
	s.logg.Info(logCtx, "payment status changed")
	s.invalidateStats(ctx, tenantID)
	return updated, nil
}

func (s *service) Refund(ctx context.Context, tenantID, id uuid.UUID, amount *decimal.Decimal) (*models.Payment, error) {
	var (
		result *models.Payment
		plan   refundPlan
	)
	err := s.withNumberRetry(ctx, func() error {
		return s.tx.WithTx(ctx, func(tx *gorm.DB) error {
			repo := s.repo.WithTx(tx)
			original, err := repo.FindByIDForUpdate(ctx, tenantID, id)
			if err != nil {
				return mapLookupError(err, "load payment")
			}
			plan, err = planRefund(*original, amount)
			if err != nil {
				return err
			}

			now := s.now()
			if plan.full {
				applyFullRefund(original, plan.amount, now)
				if err := repo.UpdateColumns(ctx, original, "status", "refund_amount", "refunded_at", "notes", "updated_at"); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "apply full refund")
				}
				if err := s.outbox.Emit(ctx, tx, refundedEvent(original, plan.amount, nil, now)); err != nil {
					return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment refunded")
				}
				result = original
				return nil
			}

			original.Notes = appendNote(original.Notes, partialRefundNote(plan.amount))
			original.UpdatedAt = now
			if err := repo.UpdateColumns(ctx, original, "notes", "updated_at"); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "annotate refunded payment")
			}

			number, err := s.nextNumber(ctx, repo, now)
			if err != nil {
				return err
			}
			offset := buildOffsetRecord(*original, plan.amount, number, now)
			if err := repo.Create(ctx, &offset); err != nil {
				return err
			}
			if err := s.outbox.Emit(ctx, tx, refundedEvent(original, plan.amount, &offset, now)); err != nil {
				return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment refunded")
			}
			result = &offset
			return nil
		})
	})
	s.metrics.ObserveOperation("refund", err)
	if err != nil {
		return nil, wrapDependency(err, "refund payment")
	}
	s.metrics.AddRefund(plan.full, plan.amount)

	logCtx := s.logg.WithFields(s.logg.WithTenantID(ctx, tenantID.String()), map[string]any{
		"payment_id":    id.String(),
		"refund_amount": plan.amount.String(),
		"full_refund":   plan.full,
		"result_id":     result.ID.String(),
	})
	s.logg.Info(logCtx, "payment refunded")
	s.invalidateStats(ctx, tenantID)
	return result, nil
}

func (s *service) Delete(ctx context.Context, tenantID, id uuid.UUID) error {
	err := s.tx.WithTx(ctx, func(tx *gorm.DB) error {
		repo := s.repo.WithTx(tx)
		payment, err := repo.FindByIDForUpdate(ctx, tenantID, id)
		if err != nil {
			return mapLookupError(err, "load payment")
		}
		if payment.Status != enums.PaymentStatusPending {
			return pkgerrors.New(pkgerrors.CodeInvalidState, msgDeleteRequiresPending)
		}
		if err := repo.Delete(ctx, tenantID, id); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "delete payment")
		}
		if err := s.outbox.Emit(ctx, tx, deletedEvent(payment, s.now())); err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "emit payment deleted")
		}
		return nil
	})
	s.metrics.ObserveOperation("delete", err)
	if err != nil {
		return wrapDependency(err, "delete payment")
	}
	s.invalidateStats(ctx, tenantID)
	return nil
}

func (s *service) Stats(ctx context.Context, tenantID uuid.UUID) (*Stats, error) {
	if tenantID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "tenant id required")
	}
	if s.cache != nil {
		cached, ok, err := s.cache.Get(ctx, tenantID)
		if err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payment stats cache read failed")
		} else if ok {
			s.metrics.StatsCacheHit()
			return cached, nil
		}
	}
	s.metrics.StatsCacheMiss()

	rows, err := s.repo.ListAll(ctx, tenantID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payments for stats")
	}
	stats := Aggregate(rows, s.now())

	if s.cache != nil {
		if err := s.cache.Set(ctx, tenantID, &stats); err != nil {
			s.logg.Warn(s.logg.WithField(ctx, "error", err.Error()), "payment stats cache write failed")
		}
	}
	return &stats, nil
}

func (s *service) nextNumber(ctx context.Context, repo Repository, now time.Time) (string, error) {
	existing, err := repo.PaymentNumbers(ctx)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load payment numbers")
	}
	return NextPaymentNumber(existing, now), nil
}

// withNumberRetry reruns fn when the insert lost a race on the payment
// number unique index. Each attempt runs a fresh transaction.
func (s *service) withNumberRetry(ctx context.Context, fn func() error) error {
	var err error
	for attempt := 1; attempt <= maxNumberAttempts; attempt++ {
		err = fn()
		if err == nil || !dbpkg.IsUniqueViolation(err, paymentNumberConstraint) {
			return err
		}
		s.logg.Warn(s.logg.WithField(ctx, "attempt", attempt), "payment number collision, retrying")
	}
	return pkgerrors.Wrap(pkgerrors.CodeConflict, err, "could not allocate a payment number")
}

func (s *service) invalidateStats(ctx context.Context, tenantID uuid.UUID) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, tenantID); err != nil {
		logCtx := s.logg.WithFields(ctx, map[string]any{
			"tenant_id": tenantID.String(),
			"error":     err.Error(),
		})
		s.logg.Warn(logCtx, "payment stats cache invalidation failed")
	}
}

func mapLookupError(err error, action string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return errNotFound()
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}

// wrapDependency passes typed errors through and wraps anything else.
func wrapDependency(err error, action string) error {
	if pkgerrors.As(err) != nil {
		return err
	}
	return pkgerrors.Wrap(pkgerrors.CodeDependency, err, action)
}
