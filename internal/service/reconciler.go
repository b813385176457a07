package service

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"payledger/internal/metrics"
	"payledger/internal/model"
	"payledger/internal/repository"
)

// sumAmounts returns the exact-decimal sum of the payment amounts.
func sumAmounts(payments []model.Payment) decimal.Decimal {
	total := decimal.Zero
	for _, p := range payments {
		total = total.Add(p.Amount)
	}
	return total
}

// reconcileTotalPaid recomputes a client's totalPaid from its current payment
// set and persists it. It is the only writer of User.TotalPaid, it is
// idempotent, and it must run inside the same transaction as the ledger
// mutation that triggered it: callers pass the tx-bound repositories so a
// reconciliation failure rolls the whole mutation back.
func reconcileTotalPaid(ctx context.Context, users repository.UserRepository, payments repository.PaymentRepository, clientID uuid.UUID) (decimal.Decimal, error) {
	rows, err := payments.FindByClientID(ctx, clientID)
	if err != nil {
		return decimal.Zero, fmt.Errorf("load payments for reconciliation: %w", err)
	}

	total := sumAmounts(rows)
	if err := users.UpdateTotalPaid(ctx, clientID, total); err != nil {
		return decimal.Zero, fmt.Errorf("write total paid: %w", err)
	}

	metrics.ReconciliationsTotal.Inc()
	return total, nil
}
