package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/credium/settlement-engine/internal/config"
	"github.com/credium/settlement-engine/internal/domain"
	"github.com/credium/settlement-engine/internal/repository"
	"github.com/credium/settlement-engine/pkg/dateutil"
	customError "github.com/credium/settlement-engine/pkg/errors"
)

// SettlementEngine is the surface the transport layer consumes.
type SettlementEngine interface {
	QuoteAmortization(ctx context.Context, request *domain.AmortizationRequest) (*domain.Quote, error)
	CreateContract(ctx context.Context, request *domain.CreateContractRequest) (*domain.Contract, error)
	ActivateContract(ctx context.Context, contractID uuid.UUID) (*domain.ActivateContractResponse, error)
	CancelContract(ctx context.Context, contractID uuid.UUID) (*domain.Contract, error)
	GetSchedule(ctx context.Context, contractID uuid.UUID) ([]*domain.Installment, error)
	RecordPayment(ctx context.Context, installmentID uuid.UUID, request *domain.RecordPaymentRequest) (*domain.Payment, error)
	ReversePayment(ctx context.Context, paymentID uuid.UUID) error
	Resettle(ctx context.Context, installmentID uuid.UUID) error
	GetOverdueSummary(ctx context.Context, companyID uuid.UUID, asOf time.Time) (*domain.OverdueSummary, error)
	SweepOverdue(ctx context.Context, asOf time.Time) (int64, error)
}

type SettlementService struct {
	ContractRepo    repository.ContractRepository
	InstallmentRepo repository.InstallmentRepository
	PaymentRepo     repository.PaymentRepository
	CustomerRepo    repository.CustomerRepository
	locker          CascadeLocker
	redis           *redis.Client
	config          *config.Config
	logger          *logrus.Logger
}

func NewSettlementService(
	contractRepo repository.ContractRepository,
	installmentRepo repository.InstallmentRepository,
	paymentRepo repository.PaymentRepository,
	customerRepo repository.CustomerRepository,
	locker CascadeLocker,
	redisClient *redis.Client,
	cfg *config.Config,
	logger *logrus.Logger,
) *SettlementService {
	return &SettlementService{
		ContractRepo:    contractRepo,
		InstallmentRepo: installmentRepo,
		PaymentRepo:     paymentRepo,
		CustomerRepo:    customerRepo,
		locker:          locker,
		redis:           redisClient,
		config:          cfg,
		logger:          logger,
	}
}

// QuoteAmortization computes installment and total amounts for the given
// terms. A missing rate falls back to the configured default periodic rate.
func (s *SettlementService) QuoteAmortization(ctx context.Context, request *domain.AmortizationRequest) (*domain.Quote, error) {
	rate := s.config.GetDefaultPeriodicRate()
	if request.PeriodicRatePercent != nil {
		rate = *request.PeriodicRatePercent
	}

	return domain.CalculateAmortization(request.Principal, request.TermMonths, rate)
}

// CreateContract persists a new contract in draft status. The periodic admin
// fee is added on top of each amortized installment.
func (s *SettlementService) CreateContract(ctx context.Context, request *domain.CreateContractRequest) (*domain.Contract, error) {
	firstDueDate, err := dateutil.ParseDate(request.FirstDueDate)
	if err != nil {
		return nil, customError.WrapInvalidContractTerms("first due date must be a calendar date (YYYY-MM-DD)")
	}

	quote, err := domain.CalculateAmortization(request.ContractAmount, request.InstallmentsCount, request.InterestRate)
	if err != nil {
		return nil, err
	}

	count := decimal.NewFromInt(int64(request.InstallmentsCount))
	now := time.Now()

	contract := &domain.Contract{
		ID:                uuid.New(),
		CompanyID:         request.CompanyID,
		CustomerID:        request.CustomerID,
		GuarantorID:       request.GuarantorID,
		ContractAmount:    request.ContractAmount,
		InstallmentsCount: request.InstallmentsCount,
		AdminFee:          request.AdminFee,
		InterestRate:      request.InterestRate,
		FirstDueDate:      firstDueDate,
		InstallmentAmount: quote.InstallmentAmount.Add(request.AdminFee).Round(2),
		TotalAmount:       quote.TotalAmount.Add(request.AdminFee.Mul(count)).Round(2),
		Category:          request.Category,
		Notes:             request.Notes,
		Status:            domain.ContractStatusDraft,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := s.ContractRepo.Create(ctx, contract); err != nil {
		return nil, customError.WrapStoreError(err)
	}

	return contract, nil
}

// ActivateContract moves a draft contract to active, generating and
// persisting its installment schedule. The schedule is committed before the
// status flips, so a failure at any point leaves the contract in draft and
// never active without a schedule. A retry after a crash between the two
// writes finds the existing schedule and reuses it instead of inserting a
// second batch.
func (s *SettlementService) ActivateContract(ctx context.Context, contractID uuid.UUID) (*domain.ActivateContractResponse, error) {
	contract, err := s.getContract(ctx, contractID)
	if err != nil {
		return nil, err
	}

	if contract.Status != domain.ContractStatusDraft {
		return nil, customError.WrapInvalidStateTransition(contractID.String(), contract.Status, domain.ContractStatusActive)
	}

	if contract.ContractAmount.LessThanOrEqual(decimal.Zero) {
		return nil, customError.WrapInvalidContractTerms("contract amount must be greater than zero")
	}
	if contract.InstallmentsCount < 1 {
		return nil, customError.WrapInvalidContractTerms("installments count must be at least 1")
	}
	if contract.FirstDueDate.IsZero() {
		return nil, customError.WrapInvalidContractTerms("first due date is required")
	}

	schedule, err := s.InstallmentRepo.GetByContract(ctx, contract.ID)
	if err != nil {
		return nil, customError.WrapStoreError(err)
	}

	if len(schedule) == 0 {
		schedule, err = domain.BuildSchedule(contract)
		if err != nil {
			return nil, err
		}
		if err := s.InstallmentRepo.BulkInsert(ctx, schedule); err != nil {
			return nil, customError.WrapStoreError(err)
		}
	} else {
		s.logger.WithFields(logrus.Fields{
			"contract_id":  contract.ID,
			"installments": len(schedule),
		}).Warn("activation retry found an existing schedule, reusing it")
	}

	if err := s.ContractRepo.UpdateStatus(ctx, contract.ID, domain.ContractStatusActive); err != nil {
		return nil, customError.WrapStoreError(err)
	}
	contract.Status = domain.ContractStatusActive

	return &domain.ActivateContractResponse{Contract: contract, Schedule: schedule}, nil
}

// CancelContract terminally cancels a draft or active contract. Its
// installments stop counting toward the customer balance, so the balance is
// recomputed immediately.
func (s *SettlementService) CancelContract(ctx context.Context, contractID uuid.UUID) (*domain.Contract, error) {
	contract, err := s.getContract(ctx, contractID)
	if err != nil {
		return nil, err
	}

	if !contract.CanTransitionTo(domain.ContractStatusCanceled) {
		return nil, customError.WrapInvalidStateTransition(contractID.String(), contract.Status, domain.ContractStatusCanceled)
	}

	if err := s.ContractRepo.UpdateStatus(ctx, contract.ID, domain.ContractStatusCanceled); err != nil {
		return nil, customError.WrapStoreError(err)
	}
	contract.Status = domain.ContractStatusCanceled

	if err := s.recomputeCustomerBalance(ctx, contract.CustomerID); err != nil {
		return nil, err
	}
	s.invalidateOverdueCache(ctx, contract.CompanyID)

	return contract, nil
}

// GetSchedule returns a contract's installments ordered by number.
func (s *SettlementService) GetSchedule(ctx context.Context, contractID uuid.UUID) ([]*domain.Installment, error) {
	if _, err := s.getContract(ctx, contractID); err != nil {
		return nil, err
	}

	schedule, err := s.InstallmentRepo.GetByContract(ctx, contractID)
	if err != nil {
		return nil, customError.WrapStoreError(err)
	}

	return schedule, nil
}

// RecordPayment appends a payment against an installment and runs the
// settlement cascade. Overpayment is rejected: a payment may not push the
// installment's paid amount above its owed amount. If a cascade step fails
// the payment row is removed again, so a stored payment always implies a
// completed cascade.
func (s *SettlementService) RecordPayment(ctx context.Context, installmentID uuid.UUID, request *domain.RecordPaymentRequest) (*domain.Payment, error) {
	if request.Amount.LessThanOrEqual(decimal.Zero) {
		return nil, customError.WrapInvalidPaymentAmount(request.Amount.String())
	}

	paymentDate := dateutil.DateOnly(time.Now())
	if request.PaymentDate != "" {
		parsed, err := dateutil.ParseDate(request.PaymentDate)
		if err != nil {
			return nil, customError.WrapInvalidPaymentDate(request.PaymentDate)
		}
		paymentDate = parsed
	}

	release, err := s.locker.Acquire(ctx, installmentID)
	if err != nil {
		return nil, err
	}
	defer release()

	installment, err := s.getInstallment(ctx, installmentID)
	if err != nil {
		return nil, err
	}
	if !installment.IsSettleable() {
		return nil, customError.WrapInstallmentNotPayable(installmentID.String(), installment.Status)
	}

	contract, err := s.getContract(ctx, installment.ContractID)
	if err != nil {
		return nil, err
	}
	if contract.Status == domain.ContractStatusCanceled {
		return nil, customError.WrapContractCanceled(contract.ID.String())
	}

	if request.Amount.GreaterThan(installment.Outstanding()) {
		return nil, customError.WrapPaymentExceedsOutstanding(
			request.Amount.StringFixed(2), installment.Outstanding().StringFixed(2))
	}

	payment := &domain.Payment{
		ID:            uuid.New(),
		InstallmentID: installment.ID,
		Amount:        request.Amount,
		PaymentDate:   paymentDate,
		Method:        request.Method,
		Reference:     request.Reference,
		Notes:         request.Notes,
		CreatedAt:     time.Now(),
	}

	if err := s.PaymentRepo.Create(ctx, payment); err != nil {
		return nil, customError.WrapStoreError(err)
	}

	if err := s.cascade(ctx, contract, installment, paymentDate); err != nil {
		// A stored payment without a completed cascade must not survive, and
		// any cascade step already persisted has to be walked back too: the
		// rollback cascade re-derives installment and contract state from the
		// restored payment history.
		if delErr := s.PaymentRepo.Delete(ctx, payment.ID); delErr != nil {
			s.logger.WithError(delErr).WithField("payment_id", payment.ID).
				Error("failed to compensate payment after cascade failure, resettle the installment")
			return nil, err
		}
		if rbErr := s.cascade(ctx, contract, installment, paymentDate); rbErr != nil {
			s.logger.WithError(rbErr).WithField("installment_id", installment.ID).
				Error("failed to roll back settlement state after cascade failure, resettle the installment")
		}
		return nil, err
	}

	return payment, nil
}

// ReversePayment deletes a payment and re-runs the cascade, so the
// installment reflects the remaining payment history rather than a naive
// subtraction.
func (s *SettlementService) ReversePayment(ctx context.Context, paymentID uuid.UUID) error {
	payment, err := s.PaymentRepo.GetByID(ctx, paymentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return customError.WrapPaymentNotFound(paymentID.String())
		}
		return customError.WrapStoreError(err)
	}

	release, err := s.locker.Acquire(ctx, payment.InstallmentID)
	if err != nil {
		return err
	}
	defer release()

	installment, err := s.InstallmentRepo.GetByID(ctx, payment.InstallmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return customError.WrapInstallmentNotPayable(payment.InstallmentID.String(), "missing")
		}
		return customError.WrapStoreError(err)
	}

	contract, err := s.getContract(ctx, installment.ContractID)
	if err != nil {
		return err
	}

	if err := s.PaymentRepo.Delete(ctx, payment.ID); err != nil {
		return customError.WrapStoreError(err)
	}

	asOf := dateutil.DateOnly(time.Now())
	if err := s.cascade(ctx, contract, installment, asOf); err != nil {
		// Put the payment back and re-derive installment and contract state
		// from it, so a half-applied reversal does not stick.
		if insErr := s.PaymentRepo.Create(ctx, payment); insErr != nil {
			s.logger.WithError(insErr).WithField("payment_id", payment.ID).
				Error("failed to restore payment after cascade failure, resettle the installment")
			return err
		}
		if rbErr := s.cascade(ctx, contract, installment, asOf); rbErr != nil {
			s.logger.WithError(rbErr).WithField("installment_id", installment.ID).
				Error("failed to roll back settlement state after cascade failure, resettle the installment")
		}
		return err
	}

	return nil
}

// Resettle re-runs the settlement cascade for an installment without changing
// its payment history. Running it twice in a row is a no-op; it doubles as
// the repair path after a compensation failure.
func (s *SettlementService) Resettle(ctx context.Context, installmentID uuid.UUID) error {
	release, err := s.locker.Acquire(ctx, installmentID)
	if err != nil {
		return err
	}
	defer release()

	installment, err := s.getInstallment(ctx, installmentID)
	if err != nil {
		return err
	}

	contract, err := s.getContract(ctx, installment.ContractID)
	if err != nil {
		return err
	}

	return s.cascade(ctx, contract, installment, dateutil.DateOnly(time.Now()))
}

// GetOverdueSummary builds the collections triage view for a company as of
// the given date. Summaries for the current date are served from Redis when
// available; the cascade invalidates the cache on every settlement.
func (s *SettlementService) GetOverdueSummary(ctx context.Context, companyID uuid.UUID, asOf time.Time) (*domain.OverdueSummary, error) {
	asOf = dateutil.DateOnly(asOf)
	cacheable := s.redis != nil && asOf.Equal(dateutil.DateOnly(time.Now()))

	cacheKey := "overdue:company:" + companyID.String()
	if cacheable {
		if raw, err := s.redis.Get(ctx, cacheKey).Result(); err == nil {
			var cached domain.OverdueSummary
			if err := json.Unmarshal([]byte(raw), &cached); err == nil && cached.AsOf.Equal(asOf) {
				return &cached, nil
			}
		}
	}

	rows, err := s.InstallmentRepo.GetUnsettledByCompany(ctx, companyID)
	if err != nil {
		return nil, customError.WrapStoreError(err)
	}

	installments := make([]*domain.Installment, 0, len(rows))
	owners := make(map[uuid.UUID]uuid.UUID, len(rows))
	for _, row := range rows {
		inst := row.Installment
		installments = append(installments, &inst)
		owners[row.ContractID] = row.CustomerID
	}

	summary := domain.ClassifyOverdue(asOf, installments, owners)

	if cacheable {
		if raw, err := json.Marshal(summary); err == nil {
			if err := s.redis.Set(ctx, cacheKey, raw, s.config.GetOverdueCacheTTL()).Err(); err != nil {
				s.logger.WithError(err).Warn("failed to cache overdue summary")
			}
		}
	}

	return summary, nil
}

// SweepOverdue promotes unpaid installments past due as of the given date to
// overdue. Run daily by the scheduler.
func (s *SettlementService) SweepOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	marked, err := s.InstallmentRepo.MarkOverdue(ctx, dateutil.DateOnly(asOf))
	if err != nil {
		return 0, customError.WrapStoreError(err)
	}

	if marked > 0 {
		s.logger.WithField("installments", marked).Info("marked installments overdue")
	}

	return marked, nil
}

// cascade runs the three settlement steps for one installment:
//  1. recompute the installment's paid amount and status from its full
//     payment history
//  2. evaluate the contract closure condition
//  3. recompute the owning customer's outstanding balance from scratch
//
// Every step derives state from the store rather than patching counters, so
// re-running the cascade with the same payment history cannot change the
// outcome.
func (s *SettlementService) cascade(ctx context.Context, contract *domain.Contract, installment *domain.Installment, asOf time.Time) error {
	// Step 1: recompute installment from payment history. Canceled and
	// renegotiated installments keep their soft-marked status.
	if installment.IsSettleable() {
		payments, err := s.PaymentRepo.GetByInstallment(ctx, installment.ID)
		if err != nil {
			return customError.WrapStoreError(err)
		}

		totalPaid := decimal.Zero
		for _, payment := range payments {
			totalPaid = totalPaid.Add(payment.Amount)
		}

		installment.AmountPaid = totalPaid
		installment.Status = domain.DeriveInstallmentStatus(installment.Amount, totalPaid, installment.DueDate, asOf)
		if installment.Status == domain.InstallmentStatusPaid {
			if installment.PaidAt == nil {
				settledAt := asOf
				installment.PaidAt = &settledAt
			}
		} else {
			installment.PaidAt = nil
		}

		if err := s.InstallmentRepo.Update(ctx, installment); err != nil {
			return customError.WrapStoreError(err)
		}
	}

	// Step 2: evaluate contract closure.
	counts, err := s.InstallmentRepo.CountByStatus(ctx, contract.ID)
	if err != nil {
		return customError.WrapStoreError(err)
	}

	total := 0
	for _, n := range counts {
		total += n
	}
	nonCanceled := total - counts[domain.InstallmentStatusCanceled]
	allPaid := nonCanceled > 0 && counts[domain.InstallmentStatusPaid] == nonCanceled

	switch {
	case allPaid && contract.Status == domain.ContractStatusActive:
		if err := s.ContractRepo.UpdateStatus(ctx, contract.ID, domain.ContractStatusClosed); err != nil {
			return customError.WrapStoreError(err)
		}
		contract.Status = domain.ContractStatusClosed
		s.logger.WithField("contract_id", contract.ID).Info("contract fully settled, closed")
	case !allPaid && contract.Status == domain.ContractStatusClosed:
		// A reversal reopened an installment on a closed contract.
		if err := s.ContractRepo.UpdateStatus(ctx, contract.ID, domain.ContractStatusActive); err != nil {
			return customError.WrapStoreError(err)
		}
		contract.Status = domain.ContractStatusActive
		s.logger.WithField("contract_id", contract.ID).Info("payment reversed on closed contract, reopened")
	}

	// Step 3: recompute customer balance from scratch.
	if err := s.recomputeCustomerBalance(ctx, contract.CustomerID); err != nil {
		return err
	}

	s.invalidateOverdueCache(ctx, contract.CompanyID)

	return nil
}

func (s *SettlementService) recomputeCustomerBalance(ctx context.Context, customerID uuid.UUID) error {
	balance, err := s.InstallmentRepo.SumOutstandingByCustomer(ctx, customerID)
	if err != nil {
		return customError.WrapStoreError(err)
	}

	if err := s.CustomerRepo.UpdateBalance(ctx, customerID, balance); err != nil {
		return customError.WrapStoreError(err)
	}

	return nil
}

func (s *SettlementService) invalidateOverdueCache(ctx context.Context, companyID uuid.UUID) {
	if s.redis == nil {
		return
	}
	if err := s.redis.Del(ctx, "overdue:company:"+companyID.String()).Err(); err != nil {
		s.logger.WithError(err).Warn("failed to invalidate overdue summary cache")
	}
}

func (s *SettlementService) getContract(ctx context.Context, contractID uuid.UUID) (*domain.Contract, error) {
	contract, err := s.ContractRepo.GetByID(ctx, contractID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapContractNotFound(contractID.String())
		}
		return nil, customError.WrapStoreError(err)
	}
	return contract, nil
}

func (s *SettlementService) getInstallment(ctx context.Context, installmentID uuid.UUID) (*domain.Installment, error) {
	installment, err := s.InstallmentRepo.GetByID(ctx, installmentID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, customError.WrapInstallmentNotFound(installmentID.String())
		}
		return nil, customError.WrapStoreError(err)
	}
	return installment, nil
}
