package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "ux_payments_payment_number", Message: "duplicate key value violates unique constraint"}

	tests := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{name: "nil", err: nil, want: false},
		{name: "pgx any", err: fmt.Errorf("insert: %w", pgErr), want: true},
		{name: "pgx matching constraint", err: pgErr, constraint: "ux_payments_payment_number", want: true},
		{name: "pgx column inside constraint", err: pgErr, constraint: "payment_number", want: true},
		{name: "pgx other constraint", err: pgErr, constraint: "ux_other", want: false},
		{name: "sqlite column", err: errors.New("UNIQUE constraint failed: payments.payment_number"), constraint: "payment_number", want: true},
		{name: "unrelated", err: errors.New("connection refused"), want: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsUniqueViolation(tt.err, tt.constraint); got != tt.want {
				t.Fatalf("IsUniqueViolation() = %v, want %v", got, tt.want)
			}
		})
	}
}
