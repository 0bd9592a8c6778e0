package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Payment is an append-only record of money received against one installment.
// Reversal deletes the row and re-runs the settlement cascade; the installment
// state is always re-derived from the remaining payment history.
type Payment struct {
	ID            uuid.UUID       `json:"id" db:"id"`
	InstallmentID uuid.UUID       `json:"installment_id" db:"installment_id"`
	Amount        decimal.Decimal `json:"amount" db:"amount"`
	PaymentDate   time.Time       `json:"payment_date" db:"payment_date"`
	Method        string          `json:"method" db:"method"`
	Reference     string          `json:"reference" db:"reference"`
	Notes         string          `json:"notes" db:"notes"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

type RecordPaymentRequest struct {
	Amount      decimal.Decimal `json:"amount" validate:"decimal_gt_zero"`
	PaymentDate string          `json:"payment_date" validate:"omitempty,datetime=2006-01-02"`
	Method      string          `json:"method" validate:"required"`
	Reference   string          `json:"reference"`
	Notes       string          `json:"notes"`
}
