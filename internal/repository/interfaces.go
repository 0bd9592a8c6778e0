package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/credium/settlement-engine/internal/domain"
)

// ContractRepository defines the interface for contract data operations
type ContractRepository interface {
	// Create creates a new contract in draft status
	Create(ctx context.Context, contract *domain.Contract) error

	// GetByID retrieves a non-deleted contract by id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error)

	// UpdateStatus updates a contract's status
	UpdateStatus(ctx context.Context, id uuid.UUID, status string) error
}

// InstallmentRepository defines the interface for installment data operations
type InstallmentRepository interface {
	// BulkInsert creates a contract's schedule in a single transaction
	BulkInsert(ctx context.Context, installments []*domain.Installment) error

	// GetByID retrieves an installment by id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Installment, error)

	// GetByContract retrieves a contract's installments ordered by number
	GetByContract(ctx context.Context, contractID uuid.UUID) ([]*domain.Installment, error)

	// Update persists a recomputed installment (amount_paid, status, paid_at)
	Update(ctx context.Context, installment *domain.Installment) error

	// CountByStatus counts a contract's installments grouped by status
	CountByStatus(ctx context.Context, contractID uuid.UUID) (map[string]int, error)

	// SumOutstandingByCustomer sums (amount - amount_paid) over all unsettled
	// installments of the customer's non-deleted, non-canceled contracts
	SumOutstandingByCustomer(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error)

	// GetUnsettledByCompany retrieves unsettled installments across a
	// company's non-deleted, non-canceled contracts for collections triage
	GetUnsettledByCompany(ctx context.Context, companyID uuid.UUID) ([]*domain.CompanyInstallment, error)

	// MarkOverdue promotes open installments past due as of the given date,
	// skipping canceled and deleted contracts, and returns the rows touched
	MarkOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

// PaymentRepository defines the interface for payment data operations
type PaymentRepository interface {
	// Create appends a new payment record
	Create(ctx context.Context, payment *domain.Payment) error

	// GetByID retrieves a payment by id
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error)

	// GetByInstallment retrieves all payments recorded against an installment
	GetByInstallment(ctx context.Context, installmentID uuid.UUID) ([]*domain.Payment, error)

	// Delete removes a payment record (reversal)
	Delete(ctx context.Context, id uuid.UUID) error
}

// CustomerRepository defines the interface for customer balance operations
type CustomerRepository interface {
	// UpdateBalance overwrites the customer's stored outstanding balance
	UpdateBalance(ctx context.Context, customerID uuid.UUID, balance decimal.Decimal) error
}
