package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/credium/settlement-engine/pkg/dateutil"
	customError "github.com/credium/settlement-engine/pkg/errors"
)

// BuildSchedule produces the installment records for a contract: numbers 1..N,
// each due date equal to the first due date advanced by (number-1) calendar
// months. Every due date is computed from the first due date, not from the
// previous installment, so a clamped February date does not shorten the rest
// of the schedule (Jan 31, Feb 28, Mar 31, ...).
//
// Persisting the batch is the lifecycle's job; this function is pure.
func BuildSchedule(contract *Contract) ([]*Installment, error) {
	if contract.InstallmentsCount < 1 {
		return nil, customError.WrapInvalidContractTerms("installments count must be at least 1")
	}
	if contract.FirstDueDate.IsZero() {
		return nil, customError.WrapInvalidContractTerms("first due date is required")
	}
	if contract.InstallmentAmount.LessThanOrEqual(decimal.Zero) {
		return nil, customError.WrapInvalidContractTerms("installment amount must be greater than zero")
	}

	firstDue := dateutil.DateOnly(contract.FirstDueDate)
	now := time.Now()

	schedule := make([]*Installment, 0, contract.InstallmentsCount)
	for number := 1; number <= contract.InstallmentsCount; number++ {
		schedule = append(schedule, &Installment{
			ID:         uuid.New(),
			ContractID: contract.ID,
			Number:     number,
			DueDate:    dateutil.AddMonthsClamped(firstDue, number-1),
			Amount:     contract.InstallmentAmount,
			AmountPaid: decimal.Zero,
			Status:     InstallmentStatusOpen,
			CreatedAt:  now,
			UpdatedAt:  now,
		})
	}

	return schedule, nil
}
