package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"

	"github.com/credium/settlement-engine/internal/domain"
	"github.com/credium/settlement-engine/internal/handler"
	customError "github.com/credium/settlement-engine/pkg/errors"
	"github.com/credium/settlement-engine/tests/mocks"
)

// newRouter wires the handler under the same routes the server registers, so
// path variable extraction goes through mux exactly as it does in production.
func newRouter(engine *mocks.MockSettlementEngine) *mux.Router {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	h := handler.NewSettlementHandler(engine, logger)

	router := mux.NewRouter()
	api := router.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/amortization/quote", h.QuoteAmortization).Methods("POST")
	api.HandleFunc("/contracts", h.CreateContract).Methods("POST")
	api.HandleFunc("/contracts/{contractId}/activate", h.ActivateContract).Methods("POST")
	api.HandleFunc("/contracts/{contractId}/cancel", h.CancelContract).Methods("POST")
	api.HandleFunc("/contracts/{contractId}/schedule", h.GetSchedule).Methods("GET")
	api.HandleFunc("/installments/{installmentId}/payments", h.RecordPayment).Methods("POST")
	api.HandleFunc("/installments/{installmentId}/resettle", h.ResettleInstallment).Methods("POST")
	api.HandleFunc("/payments/{paymentId}", h.ReversePayment).Methods("DELETE")
	api.HandleFunc("/companies/{companyId}/overdue", h.GetOverdueSummary).Methods("GET")
	return router
}

func doJSON(t *testing.T, router *mux.Router, method, path string, payload interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var body bytes.Buffer
	if payload != nil {
		if raw, ok := payload.(string); ok {
			body.WriteString(raw)
		} else {
			assert.NoError(t, json.NewEncoder(&body).Encode(payload))
		}
	}

	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestSettlementHandler_QuoteAmortization(t *testing.T) {
	rate := decimal.NewFromInt(1)

	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*mocks.MockSettlementEngine)
		expectedStatus int
		expectedBody   string
	}{
		{
			name: "successful quote",
			requestBody: domain.AmortizationRequest{
				Principal:           decimal.NewFromInt(1200),
				TermMonths:          12,
				PeriodicRatePercent: &rate,
			},
			setupMock: func(engine *mocks.MockSettlementEngine) {
				engine.On("QuoteAmortization", mock.Anything, mock.MatchedBy(func(req *domain.AmortizationRequest) bool {
					return req.Principal.Equal(decimal.NewFromInt(1200)) && req.TermMonths == 12
				})).Return(&domain.Quote{
					InstallmentAmount: decimal.RequireFromString("106.62"),
					TotalAmount:       decimal.RequireFromString("1279.44"),
				}, nil).Once()
			},
			expectedStatus: http.StatusOK,
			expectedBody:   "106.62",
		},
		{
			name:           "invalid JSON payload",
			requestBody:    "not json",
			setupMock:      func(engine *mocks.MockSettlementEngine) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "invalid request body",
		},
		{
			name: "validation rejects non-positive principal",
			requestBody: domain.AmortizationRequest{
				Principal:  decimal.Zero,
				TermMonths: 12,
			},
			setupMock:      func(engine *mocks.MockSettlementEngine) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "request validation failed",
		},
		{
			name: "validation rejects zero term",
			requestBody: domain.AmortizationRequest{
				Principal:  decimal.NewFromInt(1200),
				TermMonths: 0,
			},
			setupMock:      func(engine *mocks.MockSettlementEngine) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "request validation failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := new(mocks.MockSettlementEngine)
			tt.setupMock(engine)

			w := doJSON(t, newRouter(engine), http.MethodPost, "/api/v1/amortization/quote", tt.requestBody)

			assert.Equal(t, tt.expectedStatus, w.Code)
			if tt.expectedBody != "" {
				assert.Contains(t, w.Body.String(), tt.expectedBody)
			}
			engine.AssertExpectations(t)
		})
	}
}

func TestSettlementHandler_CreateContract(t *testing.T) {
	companyID := uuid.New()
	customerID := uuid.New()

	validRequest := domain.CreateContractRequest{
		CompanyID:         companyID,
		CustomerID:        customerID,
		ContractAmount:    decimal.NewFromInt(1200),
		InstallmentsCount: 12,
		AdminFee:          decimal.NewFromInt(5),
		InterestRate:      decimal.Zero,
		FirstDueDate:      "2026-10-01",
		Category:          "personal",
	}

	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*mocks.MockSettlementEngine)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "successful creation returns draft contract",
			requestBody: validRequest,
			setupMock: func(engine *mocks.MockSettlementEngine) {
				engine.On("CreateContract", mock.Anything, mock.MatchedBy(func(req *domain.CreateContractRequest) bool {
					return req.CompanyID == companyID && req.InstallmentsCount == 12
				})).Return(&domain.Contract{
					ID:                uuid.New(),
					CompanyID:         companyID,
					CustomerID:        customerID,
					ContractAmount:    decimal.NewFromInt(1200),
					InstallmentsCount: 12,
					InstallmentAmount: decimal.NewFromInt(105),
					TotalAmount:       decimal.NewFromInt(1260),
					Status:            domain.ContractStatusDraft,
				}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   domain.ContractStatusDraft,
		},
		{
			name: "validation rejects malformed first due date",
			requestBody: func() domain.CreateContractRequest {
				r := validRequest
				r.FirstDueDate = "01/10/2026"
				return r
			}(),
			setupMock:      func(engine *mocks.MockSettlementEngine) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "request validation failed",
		},
		{
			name: "validation rejects negative admin fee",
			requestBody: func() domain.CreateContractRequest {
				r := validRequest
				r.AdminFee = decimal.NewFromInt(-1)
				return r
			}(),
			setupMock:      func(engine *mocks.MockSettlementEngine) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "request validation failed",
		},
		{
			name:        "store failure maps to 500",
			requestBody: validRequest,
			setupMock: func(engine *mocks.MockSettlementEngine) {
				engine.On("CreateContract", mock.Anything, mock.Anything).
					Return(nil, customError.WrapStoreError(assert.AnError)).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "internal error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := new(mocks.MockSettlementEngine)
			tt.setupMock(engine)

			w := doJSON(t, newRouter(engine), http.MethodPost, "/api/v1/contracts", tt.requestBody)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			engine.AssertExpectations(t)
		})
	}
}

func TestSettlementHandler_ActivateContract(t *testing.T) {
	contractID := uuid.New()

	t.Run("activation returns contract and schedule", func(t *testing.T) {
		engine := new(mocks.MockSettlementEngine)
		engine.On("ActivateContract", mock.Anything, contractID).Return(&domain.ActivateContractResponse{
			Contract: &domain.Contract{ID: contractID, Status: domain.ContractStatusActive},
			Schedule: []*domain.Installment{
				{ID: uuid.New(), ContractID: contractID, Number: 1, Status: domain.InstallmentStatusOpen},
				{ID: uuid.New(), ContractID: contractID, Number: 2, Status: domain.InstallmentStatusOpen},
			},
		}, nil).Once()

		w := doJSON(t, newRouter(engine), http.MethodPost, "/api/v1/contracts/"+contractID.String()+"/activate", nil)

		assert.Equal(t, http.StatusOK, w.Code)

		var wrapper struct {
			Success bool                             `json:"success"`
			Data    domain.ActivateContractResponse `json:"data"`
		}
		assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &wrapper))
		assert.True(t, wrapper.Success)
		assert.Equal(t, domain.ContractStatusActive, wrapper.Data.Contract.Status)
		assert.Len(t, wrapper.Data.Schedule, 2)
		engine.AssertExpectations(t)
	})

	t.Run("double activation maps to 409", func(t *testing.T) {
		engine := new(mocks.MockSettlementEngine)
		engine.On("ActivateContract", mock.Anything, contractID).
			Return(nil, customError.WrapInvalidStateTransition(contractID.String(), domain.ContractStatusActive, domain.ContractStatusActive)).Once()

		w := doJSON(t, newRouter(engine), http.MethodPost, "/api/v1/contracts/"+contractID.String()+"/activate", nil)

		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("unknown contract maps to 404", func(t *testing.T) {
		engine := new(mocks.MockSettlementEngine)
		engine.On("ActivateContract", mock.Anything, contractID).
			Return(nil, customError.WrapContractNotFound(contractID.String())).Once()

		w := doJSON(t, newRouter(engine), http.MethodPost, "/api/v1/contracts/"+contractID.String()+"/activate", nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("malformed contract id maps to 400", func(t *testing.T) {
		engine := new(mocks.MockSettlementEngine)

		w := doJSON(t, newRouter(engine), http.MethodPost, "/api/v1/contracts/not-a-uuid/activate", nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		engine.AssertNotCalled(t, "ActivateContract", mock.Anything, mock.Anything)
	})
}

func TestSettlementHandler_RecordPayment(t *testing.T) {
	installmentID := uuid.New()

	validRequest := domain.RecordPaymentRequest{
		Amount: decimal.NewFromInt(100),
		Method: "pix",
	}

	tests := []struct {
		name           string
		requestBody    interface{}
		setupMock      func(*mocks.MockSettlementEngine)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:        "successful payment returns 201",
			requestBody: validRequest,
			setupMock: func(engine *mocks.MockSettlementEngine) {
				engine.On("RecordPayment", mock.Anything, installmentID, mock.MatchedBy(func(req *domain.RecordPaymentRequest) bool {
					return req.Amount.Equal(decimal.NewFromInt(100)) && req.Method == "pix"
				})).Return(&domain.Payment{
					ID:            uuid.New(),
					InstallmentID: installmentID,
					Amount:        decimal.NewFromInt(100),
					Method:        "pix",
				}, nil).Once()
			},
			expectedStatus: http.StatusCreated,
			expectedBody:   installmentID.String(),
		},
		{
			name: "validation rejects zero amount before the service runs",
			requestBody: domain.RecordPaymentRequest{
				Amount: decimal.Zero,
				Method: "pix",
			},
			setupMock:      func(engine *mocks.MockSettlementEngine) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "request validation failed",
		},
		{
			name: "validation rejects missing method",
			requestBody: domain.RecordPaymentRequest{
				Amount: decimal.NewFromInt(100),
			},
			setupMock:      func(engine *mocks.MockSettlementEngine) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "request validation failed",
		},
		{
			name:        "overpayment maps to 400 with its error code",
			requestBody: validRequest,
			setupMock: func(engine *mocks.MockSettlementEngine) {
				engine.On("RecordPayment", mock.Anything, installmentID, mock.Anything).
					Return(nil, customError.WrapPaymentExceedsOutstanding("100.00", "40.00")).Once()
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   customError.ErrCodePaymentExceedsOutstanding,
		},
		{
			name:        "canceled contract maps to 409",
			requestBody: validRequest,
			setupMock: func(engine *mocks.MockSettlementEngine) {
				engine.On("RecordPayment", mock.Anything, installmentID, mock.Anything).
					Return(nil, customError.WrapContractCanceled(uuid.NewString())).Once()
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   customError.ErrCodeContractCanceled,
		},
		{
			name:        "concurrent settlement maps to 409",
			requestBody: validRequest,
			setupMock: func(engine *mocks.MockSettlementEngine) {
				engine.On("RecordPayment", mock.Anything, installmentID, mock.Anything).
					Return(nil, customError.WrapConsistencyConflict(installmentID.String())).Once()
			},
			expectedStatus: http.StatusConflict,
			expectedBody:   customError.ErrCodeConsistencyConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := new(mocks.MockSettlementEngine)
			tt.setupMock(engine)

			path := "/api/v1/installments/" + installmentID.String() + "/payments"
			w := doJSON(t, newRouter(engine), http.MethodPost, path, tt.requestBody)

			assert.Equal(t, tt.expectedStatus, w.Code)
			assert.Contains(t, w.Body.String(), tt.expectedBody)
			engine.AssertExpectations(t)
		})
	}
}

func TestSettlementHandler_ReversePayment(t *testing.T) {
	paymentID := uuid.New()

	t.Run("reversal returns the reversed payment id", func(t *testing.T) {
		engine := new(mocks.MockSettlementEngine)
		engine.On("ReversePayment", mock.Anything, paymentID).Return(nil).Once()

		w := doJSON(t, newRouter(engine), http.MethodDelete, "/api/v1/payments/"+paymentID.String(), nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), paymentID.String())
		engine.AssertExpectations(t)
	})

	t.Run("unknown payment maps to 404", func(t *testing.T) {
		engine := new(mocks.MockSettlementEngine)
		engine.On("ReversePayment", mock.Anything, paymentID).
			Return(customError.WrapPaymentNotFound(paymentID.String())).Once()

		w := doJSON(t, newRouter(engine), http.MethodDelete, "/api/v1/payments/"+paymentID.String(), nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSettlementHandler_ResettleInstallment(t *testing.T) {
	installmentID := uuid.New()

	t.Run("resettle returns the repaired installment id", func(t *testing.T) {
		engine := new(mocks.MockSettlementEngine)
		engine.On("Resettle", mock.Anything, installmentID).Return(nil).Once()

		path := "/api/v1/installments/" + installmentID.String() + "/resettle"
		w := doJSON(t, newRouter(engine), http.MethodPost, path, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), installmentID.String())
		engine.AssertExpectations(t)
	})

	t.Run("unknown installment maps to 404", func(t *testing.T) {
		engine := new(mocks.MockSettlementEngine)
		engine.On("Resettle", mock.Anything, installmentID).
			Return(customError.WrapInstallmentNotFound(installmentID.String())).Once()

		path := "/api/v1/installments/" + installmentID.String() + "/resettle"
		w := doJSON(t, newRouter(engine), http.MethodPost, path, nil)

		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}

func TestSettlementHandler_GetSchedule(t *testing.T) {
	contractID := uuid.New()

	engine := new(mocks.MockSettlementEngine)
	engine.On("GetSchedule", mock.Anything, contractID).Return([]*domain.Installment{
		{ID: uuid.New(), ContractID: contractID, Number: 1, Amount: decimal.NewFromInt(100), Status: domain.InstallmentStatusPaid},
		{ID: uuid.New(), ContractID: contractID, Number: 2, Amount: decimal.NewFromInt(100), Status: domain.InstallmentStatusOpen},
	}, nil).Once()

	w := doJSON(t, newRouter(engine), http.MethodGet, "/api/v1/contracts/"+contractID.String()+"/schedule", nil)

	assert.Equal(t, http.StatusOK, w.Code)

	var wrapper struct {
		Data domain.ScheduleResponse `json:"data"`
	}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &wrapper))
	assert.Equal(t, contractID, wrapper.Data.ContractID)
	assert.Len(t, wrapper.Data.Schedule, 2)
	engine.AssertExpectations(t)
}

func TestSettlementHandler_GetOverdueSummary(t *testing.T) {
	companyID := uuid.New()

	t.Run("summary for an explicit as_of date", func(t *testing.T) {
		asOf := time.Date(2026, 8, 15, 0, 0, 0, 0, time.UTC)

		engine := new(mocks.MockSettlementEngine)
		engine.On("GetOverdueSummary", mock.Anything, companyID, asOf).Return(&domain.OverdueSummary{
			AsOf: asOf,
			Contracts: []*domain.ContractDelinquency{
				{
					ContractID:        uuid.New(),
					CustomerID:        uuid.New(),
					OutstandingAmount: decimal.NewFromInt(260),
					MaxDaysOverdue:    45,
					Bucket:            domain.BucketDays31To60,
				},
			},
			Buckets: map[string]*domain.BucketTotal{
				domain.BucketDays31To60: {Contracts: 1, Outstanding: decimal.NewFromInt(260)},
			},
		}, nil).Once()

		path := "/api/v1/companies/" + companyID.String() + "/overdue?as_of=2026-08-15"
		w := doJSON(t, newRouter(engine), http.MethodGet, path, nil)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), domain.BucketDays31To60)
		engine.AssertExpectations(t)
	})

	t.Run("malformed as_of maps to 400", func(t *testing.T) {
		engine := new(mocks.MockSettlementEngine)

		path := "/api/v1/companies/" + companyID.String() + "/overdue?as_of=15-08-2026"
		w := doJSON(t, newRouter(engine), http.MethodGet, path, nil)

		assert.Equal(t, http.StatusBadRequest, w.Code)
		engine.AssertNotCalled(t, "GetOverdueSummary", mock.Anything, mock.Anything, mock.Anything)
	})
}
