package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
)

type customerRepository struct {
	db *sqlx.DB
}

func NewCustomerRepository(db *sqlx.DB) CustomerRepository {
	return &customerRepository{db: db}
}

func (r *customerRepository) UpdateBalance(ctx context.Context, customerID uuid.UUID, balance decimal.Decimal) error {
	query := `
		UPDATE customers
		SET outstanding_balance = $2, updated_at = $3
		WHERE id = $1
	`

	_, err := r.db.ExecContext(ctx, query, customerID, balance, time.Now())
	return err
}
