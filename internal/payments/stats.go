package payments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/angelmondragon/comercio-backend/pkg/db/models"
	"github.com/angelmondragon/comercio-backend/pkg/enums"
)

const weekWindow = 7 * 24 * time.Hour

// Stats summarises a tenant's payments.
type Stats struct {
	TotalPayments       int64                         `json:"totalPayments"`
	TotalReceived       decimal.Decimal               `json:"totalReceived"`
	TotalPending        decimal.Decimal               `json:"totalPending"`
	TotalRefunded       decimal.Decimal               `json:"totalRefunded"`
	TotalProcessing     decimal.Decimal               `json:"totalProcessing"`
	AveragePaymentValue decimal.Decimal               `json:"averagePaymentValue"`
	PaymentsByStatus    map[enums.PaymentStatus]int64 `json:"paymentsByStatus"`
	PaymentsByMethod    map[enums.PaymentMethod]int64 `json:"paymentsByMethod"`
	TodayPayments       int64                         `json:"todayPayments"`
	TodayTotal          decimal.Decimal               `json:"todayTotal"`
	WeekPayments        int64                         `json:"weekPayments"`
	WeekTotal           decimal.Decimal               `json:"weekTotal"`
}

// Aggregate computes Stats over payments as of now. Today starts at UTC
// midnight; the week is the seven days ending at now. Window counts include
// every status while window totals only sum COMPLETED amounts.
func Aggregate(payments []models.Payment, now time.Time) Stats {
	now = now.UTC()
	todayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	weekStart := now.Add(-weekWindow)

	stats := Stats{
		TotalPayments:       int64(len(payments)),
		TotalReceived:       decimal.Zero,
		TotalPending:        decimal.Zero,
		TotalRefunded:       decimal.Zero,
		TotalProcessing:     decimal.Zero,
		AveragePaymentValue: decimal.Zero,
		PaymentsByStatus:    make(map[enums.PaymentStatus]int64),
		PaymentsByMethod:    make(map[enums.PaymentMethod]int64),
		TodayTotal:          decimal.Zero,
		WeekTotal:           decimal.Zero,
	}
	for _, status := range enums.PaymentStatuses() {
		stats.PaymentsByStatus[status] = 0
	}
	for _, method := range enums.PaymentMethods() {
		stats.PaymentsByMethod[method] = 0
	}

	positiveSum := decimal.Zero
	var positiveCount int64

	for _, p := range payments {
		stats.PaymentsByStatus[p.Status]++
		stats.PaymentsByMethod[p.Method]++

		switch p.Status {
		case enums.PaymentStatusCompleted:
			stats.TotalReceived = stats.TotalReceived.Add(p.Amount)
		case enums.PaymentStatusPending:
			stats.TotalPending = stats.TotalPending.Add(p.Amount)
		case enums.PaymentStatusProcessing:
			stats.TotalProcessing = stats.TotalProcessing.Add(p.Amount)
		}

		if p.Amount.IsPositive() {
			positiveSum = positiveSum.Add(p.Amount)
			positiveCount++
		}
		if p.RefundAmount != nil && !p.RefundAmount.IsZero() {
			stats.TotalRefunded = stats.TotalRefunded.Add(*p.RefundAmount)
		}

		date := p.PaymentDate.UTC()
		completed := p.Status == enums.PaymentStatusCompleted
		if !date.Before(todayStart) && !date.After(now) {
			stats.TodayPayments++
			if completed {
				stats.TodayTotal = stats.TodayTotal.Add(p.Amount)
			}
		}
		if !date.Before(weekStart) && !date.After(now) {
			stats.WeekPayments++
			if completed {
				stats.WeekTotal = stats.WeekTotal.Add(p.Amount)
			}
		}
	}

	if positiveCount > 0 {
		stats.AveragePaymentValue = positiveSum.Div(decimal.NewFromInt(positiveCount)).Round(2)
	}
	return stats
}
