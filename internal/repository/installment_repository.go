package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/credium/settlement-engine/internal/domain"
)

type installmentRepository struct {
	db *sqlx.DB
}

func NewInstallmentRepository(db *sqlx.DB) InstallmentRepository {
	return &installmentRepository{db: db}
}

func (r *installmentRepository) BulkInsert(ctx context.Context, installments []*domain.Installment) error {
	query := `
		INSERT INTO installments (id, contract_id, number, due_date, amount, amount_paid, status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	for _, installment := range installments {
		_, err = tx.ExecContext(ctx, query,
			installment.ID,
			installment.ContractID,
			installment.Number,
			installment.DueDate,
			installment.Amount,
			installment.AmountPaid,
			installment.Status,
			installment.CreatedAt,
			installment.UpdatedAt,
		)
		if err != nil {
			return err
		}
	}

	return tx.Commit()
}

func (r *installmentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Installment, error) {
	query := `
		SELECT id, contract_id, number, due_date, amount, amount_paid, status, paid_at, created_at, updated_at
		FROM installments
		WHERE id = $1
	`

	var installment domain.Installment
	err := r.db.GetContext(ctx, &installment, query, id)
	if err != nil {
		return nil, err
	}

	return &installment, nil
}

func (r *installmentRepository) GetByContract(ctx context.Context, contractID uuid.UUID) ([]*domain.Installment, error) {
	query := `
		SELECT id, contract_id, number, due_date, amount, amount_paid, status, paid_at, created_at, updated_at
		FROM installments
		WHERE contract_id = $1
		ORDER BY number
	`

	var installments []*domain.Installment
	err := r.db.SelectContext(ctx, &installments, query, contractID)
	if err != nil {
		return nil, err
	}

	return installments, nil
}

func (r *installmentRepository) Update(ctx context.Context, installment *domain.Installment) error {
	query := `
		UPDATE installments
		SET amount_paid = $2, status = $3, paid_at = $4, updated_at = $5
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query,
		installment.ID,
		installment.AmountPaid,
		installment.Status,
		installment.PaidAt,
		time.Now(),
	)

	return err
}

func (r *installmentRepository) CountByStatus(ctx context.Context, contractID uuid.UUID) (map[string]int, error) {
	query := `
		SELECT status, COUNT(*) AS total
		FROM installments
		WHERE contract_id = $1
		GROUP BY status
	`

	rows := []struct {
		Status string `db:"status"`
		Total  int    `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, contractID); err != nil {
		return nil, err
	}

	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}

	return counts, nil
}

func (r *installmentRepository) SumOutstandingByCustomer(ctx context.Context, customerID uuid.UUID) (decimal.Decimal, error) {
	query := `
		SELECT COALESCE(SUM(i.amount - i.amount_paid), 0)
		FROM installments i
		JOIN contracts c ON c.id = i.contract_id
		WHERE c.customer_id = $1
		  AND c.deleted_at IS NULL
		  AND c.status != $2
		  AND i.status IN ($3, $4, $5)
	`

	var outstanding decimal.Decimal
	err := r.db.GetContext(ctx, &outstanding, query,
		customerID,
		domain.ContractStatusCanceled,
		domain.InstallmentStatusOpen,
		domain.InstallmentStatusPartial,
		domain.InstallmentStatusOverdue,
	)
	if err != nil {
		return decimal.Zero, err
	}

	return outstanding, nil
}

func (r *installmentRepository) GetUnsettledByCompany(ctx context.Context, companyID uuid.UUID) ([]*domain.CompanyInstallment, error) {
	query := `
		SELECT i.id, i.contract_id, i.number, i.due_date, i.amount, i.amount_paid,
		       i.status, i.paid_at, i.created_at, i.updated_at, c.customer_id
		FROM installments i
		JOIN contracts c ON c.id = i.contract_id
		WHERE c.company_id = $1
		  AND c.deleted_at IS NULL
		  AND c.status != $2
		  AND i.status IN ($3, $4, $5)
		ORDER BY i.due_date
	`

	var installments []*domain.CompanyInstallment
	err := r.db.SelectContext(ctx, &installments, query,
		companyID,
		domain.ContractStatusCanceled,
		domain.InstallmentStatusOpen,
		domain.InstallmentStatusPartial,
		domain.InstallmentStatusOverdue,
	)
	if err != nil {
		return nil, err
	}

	return installments, nil
}

func (r *installmentRepository) MarkOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	query := `
		UPDATE installments i
		SET status = $1, updated_at = $2
		FROM contracts c
		WHERE c.id = i.contract_id
		  AND c.deleted_at IS NULL
		  AND c.status != $3
		  AND i.status = $4
		  AND i.due_date < $5
	`

	result, err := r.db.ExecContext(ctx, query,
		domain.InstallmentStatusOverdue,
		time.Now(),
		domain.ContractStatusCanceled,
		domain.InstallmentStatusOpen,
		asOf,
	)
	if err != nil {
		return 0, err
	}

	return result.RowsAffected()
}
