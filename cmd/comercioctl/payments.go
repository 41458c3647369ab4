package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/angelmondragon/comercio-backend/pkg/apiclient"
	"github.com/angelmondragon/comercio-backend/pkg/db/models"
	"github.com/angelmondragon/comercio-backend/pkg/enums"
	"github.com/angelmondragon/comercio-backend/pkg/money"
)

func newPaymentsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "payments",
		Aliases: []string{"pagos"},
		Short:   "List, inspect and operate on payments",
	}
	cmd.AddCommand(
		paymentsListCmd(a),
		paymentsGetCmd(a),
		paymentsStatusCmd(a),
		paymentsRefundCmd(a),
		paymentsDeleteCmd(a),
		paymentsStatsCmd(a),
	)
	return cmd
}

func paymentsListCmd(a *app) *cobra.Command {
	var (
		status, method, customer, invoice, from, to string
		filters                                     apiclient.PaymentFilters
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List payments with optional filters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if status != "" {
				parsed, err := enums.ParsePaymentStatus(status)
				if err != nil {
					return err
				}
				filters.Status = &parsed
			}
			if method != "" {
				parsed, err := enums.ParsePaymentMethod(method)
				if err != nil {
					return err
				}
				filters.Method = &parsed
			}
			var err error
			if filters.CustomerID, err = optionalUUID("customer", customer); err != nil {
				return err
			}
			if filters.InvoiceID, err = optionalUUID("invoice", invoice); err != nil {
				return err
			}
			if filters.From, err = optionalDate("from", from); err != nil {
				return err
			}
			if filters.To, err = optionalDate("to", to); err != nil {
				return err
			}

			page, err := a.payments.List(cmd.Context(), filters)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.opts.asJSON {
				return printJSON(out, page)
			}
			rows := make([][]string, 0, len(page.Data))
			for _, p := range page.Data {
				rows = append(rows, paymentRow(p))
			}
			if err := printTable(out, paymentHeader, rows); err != nil {
				return err
			}
			printMeta(out, page.Meta)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&status, "status", "", "PENDING|PROCESSING|COMPLETED|FAILED|REFUNDED|CANCELLED")
	f.StringVar(&method, "method", "", "payment method filter")
	f.StringVar(&customer, "customer", "", "customer id")
	f.StringVar(&invoice, "invoice", "", "invoice id")
	f.StringVar(&from, "from", "", "earliest payment date (YYYY-MM-DD or RFC3339)")
	f.StringVar(&to, "to", "", "latest payment date (YYYY-MM-DD or RFC3339)")
	f.StringVar(&filters.Search, "search", "", "match payment, invoice or reference number and customer name")
	f.IntVar(&filters.Page, "page", 0, "page number")
	f.IntVar(&filters.Limit, "limit", 0, "page size")
	return cmd
}

func paymentsGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one payment",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			payment, err := a.payments.Get(cmd.Context(), id)
			if err != nil {
				return err
			}
			return a.printPayment(cmd, payment)
		},
	}
}

func paymentsStatusCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status <id> <status>",
		Short: "Move a payment to a new status",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			status, err := enums.ParsePaymentStatus(args[1])
			if err != nil {
				return err
			}
			payment, err := a.payments.UpdateStatus(cmd.Context(), id, status)
			if err != nil {
				return err
			}
			return a.printPayment(cmd, *payment)
		},
	}
}

func paymentsRefundCmd(a *app) *cobra.Command {
	var (
		amount         string
		idempotencyKey string
	)
	cmd := &cobra.Command{
		Use:   "refund <id>",
		Short: "Refund a completed payment, fully or partially",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			var refundAmount *decimal.Decimal
			if amount != "" {
				parsed, err := decimal.NewFromString(amount)
				if err != nil {
					return fmt.Errorf("invalid --amount %q: %w", amount, err)
				}
				refundAmount = &parsed
			}
			if idempotencyKey == "" {
				idempotencyKey = uuid.NewString()
			}
			payment, err := a.payments.Refund(cmd.Context(), id, refundAmount, apiclient.WithIdempotencyKey(idempotencyKey))
			if err != nil {
				return err
			}
			return a.printPayment(cmd, *payment)
		},
	}
	cmd.Flags().StringVar(&amount, "amount", "", "partial refund amount; omit for a full refund")
	cmd.Flags().StringVar(&idempotencyKey, "idempotency-key", "", "reuse a key to retry safely (generated when empty)")
	return cmd
}

func paymentsDeleteCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a payment that was never completed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parseID(args[0])
			if err != nil {
				return err
			}
			if err := a.payments.Delete(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "deleted payment %s\n", id)
			return nil
		},
	}
}

func paymentsStatsCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show tenant payment aggregates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			stats, err := a.payments.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if a.opts.asJSON {
				return printJSON(out, stats)
			}
			rows := [][]string{
				{"total payments", strconv.FormatInt(stats.TotalPayments, 10)},
				{"received", money.Format(stats.TotalReceived)},
				{"pending", money.Format(stats.TotalPending)},
				{"processing", money.Format(stats.TotalProcessing)},
				{"refunded", money.Format(stats.TotalRefunded)},
				{"average", money.Format(stats.AveragePaymentValue)},
				{"today", fmt.Sprintf("%d (%s)", stats.TodayPayments, money.Format(stats.TodayTotal))},
				{"last 7 days", fmt.Sprintf("%d (%s)", stats.WeekPayments, money.Format(stats.WeekTotal))},
			}
			for _, status := range enums.PaymentStatuses() {
				rows = append(rows, []string{"status " + string(status), strconv.FormatInt(stats.PaymentsByStatus[status], 10)})
			}
			return printTable(out, []string{"METRIC", "VALUE"}, rows)
		},
	}
}

var paymentHeader = []string{"ID", "NUMBER", "CUSTOMER", "AMOUNT", "METHOD", "STATUS", "DATE", "REFUNDED"}

func paymentRow(p models.Payment) []string {
	return []string{
		p.ID.String(),
		p.PaymentNumber,
		deref(p.CustomerName),
		money.Format(p.Amount),
		string(p.Method),
		string(p.Status),
		formatDate(&p.PaymentDate),
		formatAmount(p.RefundAmount),
	}
}

func (a *app) printPayment(cmd *cobra.Command, p models.Payment) error {
	out := cmd.OutOrStdout()
	if a.opts.asJSON {
		return printJSON(out, p)
	}
	return printTable(out, paymentHeader, [][]string{paymentRow(p)})
}

func parseID(raw string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid id %q", raw)
	}
	return id, nil
}

func optionalUUID(flag, raw string) (*uuid.UUID, error) {
	if raw == "" {
		return nil, nil
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s %q", flag, raw)
	}
	return &id, nil
}

func optionalDate(flag, raw string) (*time.Time, error) {
	if raw == "" {
		return nil, nil
	}
	for _, layout := range []string{time.RFC3339, time.DateOnly} {
		if t, err := time.Parse(layout, raw); err == nil {
			t = t.UTC()
			return &t, nil
		}
	}
	return nil, fmt.Errorf("invalid --%s %q", flag, raw)
}
