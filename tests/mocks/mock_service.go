package mocks

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/credium/settlement-engine/internal/domain"
)

type MockSettlementEngine struct {
	mock.Mock
}

func (m *MockSettlementEngine) QuoteAmortization(ctx context.Context, request *domain.AmortizationRequest) (*domain.Quote, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Quote), args.Error(1)
}

func (m *MockSettlementEngine) CreateContract(ctx context.Context, request *domain.CreateContractRequest) (*domain.Contract, error) {
	args := m.Called(ctx, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contract), args.Error(1)
}

func (m *MockSettlementEngine) ActivateContract(ctx context.Context, contractID uuid.UUID) (*domain.ActivateContractResponse, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.ActivateContractResponse), args.Error(1)
}

func (m *MockSettlementEngine) CancelContract(ctx context.Context, contractID uuid.UUID) (*domain.Contract, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Contract), args.Error(1)
}

func (m *MockSettlementEngine) GetSchedule(ctx context.Context, contractID uuid.UUID) ([]*domain.Installment, error) {
	args := m.Called(ctx, contractID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*domain.Installment), args.Error(1)
}

func (m *MockSettlementEngine) RecordPayment(ctx context.Context, installmentID uuid.UUID, request *domain.RecordPaymentRequest) (*domain.Payment, error) {
	args := m.Called(ctx, installmentID, request)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Payment), args.Error(1)
}

func (m *MockSettlementEngine) ReversePayment(ctx context.Context, paymentID uuid.UUID) error {
	args := m.Called(ctx, paymentID)
	return args.Error(0)
}

func (m *MockSettlementEngine) Resettle(ctx context.Context, installmentID uuid.UUID) error {
	args := m.Called(ctx, installmentID)
	return args.Error(0)
}

func (m *MockSettlementEngine) GetOverdueSummary(ctx context.Context, companyID uuid.UUID, asOf time.Time) (*domain.OverdueSummary, error) {
	args := m.Called(ctx, companyID, asOf)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OverdueSummary), args.Error(1)
}

func (m *MockSettlementEngine) SweepOverdue(ctx context.Context, asOf time.Time) (int64, error) {
	args := m.Called(ctx, asOf)
	return args.Get(0).(int64), args.Error(1)
}
