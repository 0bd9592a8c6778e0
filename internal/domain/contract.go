package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	ContractStatusDraft    = "draft"
	ContractStatusActive   = "active"
	ContractStatusClosed   = "closed"
	ContractStatusCanceled = "canceled"
)

// Contract represents a debt obligation with a repayment schedule.
type Contract struct {
	ID                uuid.UUID       `json:"id" db:"id"`
	CompanyID         uuid.UUID       `json:"company_id" db:"company_id"`
	CustomerID        uuid.UUID       `json:"customer_id" db:"customer_id"`
	GuarantorID       *uuid.UUID      `json:"guarantor_id,omitempty" db:"guarantor_id"`
	ContractAmount    decimal.Decimal `json:"contract_amount" db:"contract_amount"`
	InstallmentsCount int             `json:"installments_count" db:"installments_count"`
	AdminFee          decimal.Decimal `json:"admin_fee" db:"admin_fee"`
	InterestRate      decimal.Decimal `json:"interest_rate" db:"interest_rate"` // percent per period
	FirstDueDate      time.Time       `json:"first_due_date" db:"first_due_date"`
	TotalAmount       decimal.Decimal `json:"total_amount" db:"total_amount"`
	InstallmentAmount decimal.Decimal `json:"installment_amount" db:"installment_amount"`
	Category          string          `json:"category" db:"category"`
	Notes             string          `json:"notes" db:"notes"`
	Status            string          `json:"status" db:"status"`
	CreatedAt         time.Time       `json:"created_at" db:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at" db:"updated_at"`
	DeletedAt         *time.Time      `json:"deleted_at,omitempty" db:"deleted_at"`
}

// CanTransitionTo reports whether the contract may move to the target status.
// Closed and Canceled are terminal; Closed is reachable only from Active.
func (c *Contract) CanTransitionTo(target string) bool {
	switch c.Status {
	case ContractStatusDraft:
		return target == ContractStatusActive || target == ContractStatusCanceled
	case ContractStatusActive:
		return target == ContractStatusClosed || target == ContractStatusCanceled
	default:
		return false
	}
}

// DTOs for requests and responses

type CreateContractRequest struct {
	CompanyID         uuid.UUID       `json:"company_id" validate:"required"`
	CustomerID        uuid.UUID       `json:"customer_id" validate:"required"`
	GuarantorID       *uuid.UUID      `json:"guarantor_id,omitempty"`
	ContractAmount    decimal.Decimal `json:"contract_amount" validate:"decimal_gt_zero"`
	InstallmentsCount int             `json:"installments_count" validate:"required,gte=1"`
	AdminFee          decimal.Decimal `json:"admin_fee" validate:"decimal_gte_zero"`
	InterestRate      decimal.Decimal `json:"interest_rate" validate:"decimal_gte_zero"`
	FirstDueDate      string          `json:"first_due_date" validate:"required,datetime=2006-01-02"`
	Category          string          `json:"category"`
	Notes             string          `json:"notes"`
}

type ActivateContractResponse struct {
	Contract *Contract      `json:"contract"`
	Schedule []*Installment `json:"schedule"`
}

type ScheduleResponse struct {
	ContractID uuid.UUID      `json:"contract_id"`
	Schedule   []*Installment `json:"schedule"`
}
