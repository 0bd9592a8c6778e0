package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/credium/settlement-engine/internal/domain"
)

type contractRepository struct {
	db *sqlx.DB
}

func NewContractRepository(db *sqlx.DB) ContractRepository {
	return &contractRepository{db: db}
}

func (r *contractRepository) Create(ctx context.Context, contract *domain.Contract) error {
	query := `
		INSERT INTO contracts (
			id, company_id, customer_id, guarantor_id, contract_amount,
			installments_count, admin_fee, interest_rate, first_due_date,
			total_amount, installment_amount, category, notes, status,
			created_at, updated_at
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.ExecContext(ctx, query,
		contract.ID,
		contract.CompanyID,
		contract.CustomerID,
		contract.GuarantorID,
		contract.ContractAmount,
		contract.InstallmentsCount,
		contract.AdminFee,
		contract.InterestRate,
		contract.FirstDueDate,
		contract.TotalAmount,
		contract.InstallmentAmount,
		contract.Category,
		contract.Notes,
		contract.Status,
		contract.CreatedAt,
		contract.UpdatedAt,
	)

	return err
}

func (r *contractRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contract, error) {
	query := `
		SELECT id, company_id, customer_id, guarantor_id, contract_amount,
		       installments_count, admin_fee, interest_rate, first_due_date,
		       total_amount, installment_amount, category, notes, status,
		       created_at, updated_at, deleted_at
		FROM contracts
		WHERE id = $1 AND deleted_at IS NULL
	`

	var contract domain.Contract
	err := r.db.GetContext(ctx, &contract, query, id)
	if err != nil {
		return nil, err
	}

	return &contract, nil
}

func (r *contractRepository) UpdateStatus(ctx context.Context, id uuid.UUID, status string) error {
	query := `
		UPDATE contracts
		SET status = $2, updated_at = $3
		WHERE id = $1 AND deleted_at IS NULL
	`

	_, err := r.db.ExecContext(ctx, query, id, status, time.Now())
	return err
}
