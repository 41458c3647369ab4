package payments

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/comercio-backend/pkg/db/models"
	"github.com/angelmondragon/comercio-backend/pkg/enums"
)

func statsPayment(amount string, status enums.PaymentStatus, method enums.PaymentMethod, date time.Time) models.Payment {
	return models.Payment{
		Amount:      decimal.RequireFromString(amount),
		Status:      status,
		Method:      method,
		PaymentDate: date,
	}
}

func TestAggregateEmpty(t *testing.T) {
	stats := Aggregate(nil, time.Now())

	assert.Equal(t, int64(0), stats.TotalPayments)
	assert.True(t, stats.AveragePaymentValue.IsZero())
	assert.True(t, stats.TotalRefunded.IsZero())
	require.Len(t, stats.PaymentsByStatus, len(enums.PaymentStatuses()))
	require.Len(t, stats.PaymentsByMethod, len(enums.PaymentMethods()))
	for _, count := range stats.PaymentsByStatus {
		assert.Equal(t, int64(0), count)
	}
}

func TestAggregate(t *testing.T) {
	now := time.Date(2026, 6, 10, 15, 0, 0, 0, time.UTC)
	earlyToday := time.Date(2026, 6, 10, 1, 0, 0, 0, time.UTC)
	threeDaysAgo := now.AddDate(0, 0, -3)
	lastMonth := now.AddDate(0, -1, 0)

	refunded := decimal.NewFromInt(200)
	zero := decimal.Zero

	offset := statsPayment("-200", enums.PaymentStatusRefunded, enums.PaymentMethodCash, earlyToday)
	offset.RefundAmount = &refunded

	fully := statsPayment("300", enums.PaymentStatusRefunded, enums.PaymentMethodCash, lastMonth)
	fullyRefund := decimal.NewFromInt(300)
	fully.RefundAmount = &fullyRefund

	withZeroRefund := statsPayment("50", enums.PaymentStatusPending, enums.PaymentMethodPSE, threeDaysAgo)
	withZeroRefund.RefundAmount = &zero

	payments := []models.Payment{
		statsPayment("1000", enums.PaymentStatusCompleted, enums.PaymentMethodCash, earlyToday),
		statsPayment("500", enums.PaymentStatusCompleted, enums.PaymentMethodCreditCard, threeDaysAgo),
		statsPayment("700", enums.PaymentStatusCompleted, enums.PaymentMethodCreditCard, lastMonth),
		statsPayment("80", enums.PaymentStatusProcessing, enums.PaymentMethodCheck, earlyToday),
		withZeroRefund,
		offset,
		fully,
	}

	stats := Aggregate(payments, now)

	assert.Equal(t, int64(7), stats.TotalPayments)
	assert.True(t, stats.TotalReceived.Equal(decimal.NewFromInt(2200)), stats.TotalReceived.String())
	assert.True(t, stats.TotalPending.Equal(decimal.NewFromInt(50)))
	assert.True(t, stats.TotalProcessing.Equal(decimal.NewFromInt(80)))
	assert.True(t, stats.TotalRefunded.Equal(decimal.NewFromInt(500)), stats.TotalRefunded.String())

	// positive amounts: 1000+500+700+80+50+300 = 2630 over 6
	assert.Equal(t, "438.33", stats.AveragePaymentValue.StringFixed(2))

	assert.Equal(t, int64(3), stats.PaymentsByStatus[enums.PaymentStatusCompleted])
	assert.Equal(t, int64(2), stats.PaymentsByStatus[enums.PaymentStatusRefunded])
	assert.Equal(t, int64(0), stats.PaymentsByStatus[enums.PaymentStatusFailed])
	assert.Equal(t, int64(3), stats.PaymentsByMethod[enums.PaymentMethodCash])
	assert.Equal(t, int64(0), stats.PaymentsByMethod[enums.PaymentMethodOther])

	assert.Equal(t, int64(3), stats.TodayPayments)
	assert.True(t, stats.TodayTotal.Equal(decimal.NewFromInt(1000)), stats.TodayTotal.String())
	assert.Equal(t, int64(5), stats.WeekPayments)
	assert.True(t, stats.WeekTotal.Equal(decimal.NewFromInt(1500)), stats.WeekTotal.String())
}

func TestAggregateAverageIgnoresNonPositive(t *testing.T) {
	now := time.Now().UTC()
	stats := Aggregate([]models.Payment{
		statsPayment("-100", enums.PaymentStatusRefunded, enums.PaymentMethodCash, now),
		statsPayment("0", enums.PaymentStatusPending, enums.PaymentMethodCash, now),
	}, now)
	assert.True(t, stats.AveragePaymentValue.IsZero())
}

func TestAggregateExcludesFutureDatesFromWindows(t *testing.T) {
	now := time.Date(2026, 6, 10, 15, 0, 0, 0, time.UTC)
	stats := Aggregate([]models.Payment{
		statsPayment("10", enums.PaymentStatusCompleted, enums.PaymentMethodCash, now.Add(time.Hour)),
	}, now)
	assert.Equal(t, int64(0), stats.TodayPayments)
	assert.Equal(t, int64(0), stats.WeekPayments)
}
