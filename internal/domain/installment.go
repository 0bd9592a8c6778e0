package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/credium/settlement-engine/pkg/dateutil"
)

const (
	InstallmentStatusOpen         = "open"
	InstallmentStatusPartial      = "partial"
	InstallmentStatusPaid         = "paid"
	InstallmentStatusOverdue      = "overdue"
	InstallmentStatusCanceled     = "canceled"
	InstallmentStatusRenegotiated = "renegotiated"
)

// Installment is one scheduled payment obligation of a contract. Rows are
// created in a batch at contract activation and afterwards mutated only by the
// settlement cascade; they are never deleted, only soft-marked canceled.
type Installment struct {
	ID         uuid.UUID       `json:"id" db:"id"`
	ContractID uuid.UUID       `json:"contract_id" db:"contract_id"`
	Number     int             `json:"number" db:"number"`
	DueDate    time.Time       `json:"due_date" db:"due_date"`
	Amount     decimal.Decimal `json:"amount" db:"amount"`
	AmountPaid decimal.Decimal `json:"amount_paid" db:"amount_paid"`
	Status     string          `json:"status" db:"status"`
	PaidAt     *time.Time      `json:"paid_at,omitempty" db:"paid_at"`
	CreatedAt  time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time       `json:"updated_at" db:"updated_at"`
}

// IsSettleable reports whether the installment still accepts payments.
func (i *Installment) IsSettleable() bool {
	switch i.Status {
	case InstallmentStatusCanceled, InstallmentStatusRenegotiated:
		return false
	}
	return true
}

// Outstanding returns the unpaid remainder of the installment.
func (i *Installment) Outstanding() decimal.Decimal {
	return i.Amount.Sub(i.AmountPaid)
}

// DeriveInstallmentStatus derives an installment status from its payment sum
// and due date. An unpaid installment whose due date lies before asOf is
// overdue; partial payment always reports partial regardless of due date.
func DeriveInstallmentStatus(amount, amountPaid decimal.Decimal, dueDate, asOf time.Time) string {
	switch {
	case amountPaid.GreaterThanOrEqual(amount):
		return InstallmentStatusPaid
	case amountPaid.GreaterThan(decimal.Zero):
		return InstallmentStatusPartial
	case dateutil.DaysBetween(dueDate, asOf) > 0:
		return InstallmentStatusOverdue
	default:
		return InstallmentStatusOpen
	}
}

// CompanyInstallment is an installment joined with its contract's owning
// customer, as read for the collections triage view.
type CompanyInstallment struct {
	Installment
	CustomerID uuid.UUID `json:"customer_id" db:"customer_id"`
}

// IsUnsettled reports whether a status counts toward the customer's
// outstanding balance.
func IsUnsettled(status string) bool {
	switch status {
	case InstallmentStatusOpen, InstallmentStatusPartial, InstallmentStatusOverdue:
		return true
	}
	return false
}
