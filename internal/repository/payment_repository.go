package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/credium/settlement-engine/internal/domain"
)

type paymentRepository struct {
	db *sqlx.DB
}

func NewPaymentRepository(db *sqlx.DB) PaymentRepository {
	return &paymentRepository{db: db}
}

func (r *paymentRepository) Create(ctx context.Context, payment *domain.Payment) error {
	query := `
		INSERT INTO payments (id, installment_id, amount, payment_date, method, reference, notes, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.ExecContext(ctx, query,
		payment.ID,
		payment.InstallmentID,
		payment.Amount,
		payment.PaymentDate,
		payment.Method,
		payment.Reference,
		payment.Notes,
		payment.CreatedAt,
	)

	return err
}

func (r *paymentRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Payment, error) {
	query := `
		SELECT id, installment_id, amount, payment_date, method, reference, notes, created_at
		FROM payments
		WHERE id = $1
	`

	var payment domain.Payment
	err := r.db.GetContext(ctx, &payment, query, id)
	if err != nil {
		return nil, err
	}

	return &payment, nil
}

func (r *paymentRepository) GetByInstallment(ctx context.Context, installmentID uuid.UUID) ([]*domain.Payment, error) {
	query := `
		SELECT id, installment_id, amount, payment_date, method, reference, notes, created_at
		FROM payments
		WHERE installment_id = $1
		ORDER BY payment_date, created_at
	`

	var payments []*domain.Payment
	err := r.db.SelectContext(ctx, &payments, query, installmentID)
	if err != nil {
		return nil, err
	}

	return payments, nil
}

func (r *paymentRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM payments WHERE id = $1`

	_, err := r.db.ExecContext(ctx, query, id)
	return err
}
