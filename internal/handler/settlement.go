package handler

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/credium/settlement-engine/internal/domain"
	"github.com/credium/settlement-engine/internal/service"
	customError "github.com/credium/settlement-engine/pkg/errors"
	"github.com/credium/settlement-engine/pkg/response"
)

type SettlementHandler struct {
	service   service.SettlementEngine
	validator *validator.Validate
	logger    *logrus.Logger
}

func NewSettlementHandler(engine service.SettlementEngine, logger *logrus.Logger) *SettlementHandler {
	v := validator.New()
	registerDecimalValidations(v)

	return &SettlementHandler{
		service:   engine,
		validator: v,
		logger:    logger,
	}
}

// registerDecimalValidations wires the decimal_* tags used on money fields.
func registerDecimalValidations(v *validator.Validate) {
	decimalOf := func(fl validator.FieldLevel) (decimal.Decimal, bool) {
		switch d := fl.Field().Interface().(type) {
		case decimal.Decimal:
			return d, true
		case *decimal.Decimal:
			if d == nil {
				return decimal.Decimal{}, false
			}
			return *d, true
		}
		return decimal.Decimal{}, false
	}

	_ = v.RegisterValidation("decimal_gt_zero", func(fl validator.FieldLevel) bool {
		d, ok := decimalOf(fl)
		return ok && d.GreaterThan(decimal.Zero)
	})
	_ = v.RegisterValidation("decimal_gte_zero", func(fl validator.FieldLevel) bool {
		d, ok := decimalOf(fl)
		return ok && d.GreaterThanOrEqual(decimal.Zero)
	})
}

// QuoteAmortization handles POST /amortization/quote
func (h *SettlementHandler) QuoteAmortization(w http.ResponseWriter, r *http.Request) {
	var request domain.AmortizationRequest
	if !h.decodeAndValidate(w, r, &request) {
		return
	}

	quote, err := h.service.QuoteAmortization(r.Context(), &request)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, quote)
}

// CreateContract handles POST /contracts
func (h *SettlementHandler) CreateContract(w http.ResponseWriter, r *http.Request) {
	var request domain.CreateContractRequest
	if !h.decodeAndValidate(w, r, &request) {
		return
	}

	contract, err := h.service.CreateContract(r.Context(), &request)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, contract)
}

// ActivateContract handles POST /contracts/{contractId}/activate
func (h *SettlementHandler) ActivateContract(w http.ResponseWriter, r *http.Request) {
	contractID, ok := h.pathID(w, r, "contractId")
	if !ok {
		return
	}

	result, err := h.service.ActivateContract(r.Context(), contractID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, result)
}

// CancelContract handles POST /contracts/{contractId}/cancel
func (h *SettlementHandler) CancelContract(w http.ResponseWriter, r *http.Request) {
	contractID, ok := h.pathID(w, r, "contractId")
	if !ok {
		return
	}

	contract, err := h.service.CancelContract(r.Context(), contractID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, contract)
}

// GetSchedule handles GET /contracts/{contractId}/schedule
func (h *SettlementHandler) GetSchedule(w http.ResponseWriter, r *http.Request) {
	contractID, ok := h.pathID(w, r, "contractId")
	if !ok {
		return
	}

	schedule, err := h.service.GetSchedule(r.Context(), contractID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, &domain.ScheduleResponse{ContractID: contractID, Schedule: schedule})
}

// RecordPayment handles POST /installments/{installmentId}/payments
func (h *SettlementHandler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	installmentID, ok := h.pathID(w, r, "installmentId")
	if !ok {
		return
	}

	var request domain.RecordPaymentRequest
	if !h.decodeAndValidate(w, r, &request) {
		return
	}

	payment, err := h.service.RecordPayment(r.Context(), installmentID, &request)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Created(w, payment)
}

// ReversePayment handles DELETE /payments/{paymentId}
func (h *SettlementHandler) ReversePayment(w http.ResponseWriter, r *http.Request) {
	paymentID, ok := h.pathID(w, r, "paymentId")
	if !ok {
		return
	}

	if err := h.service.ReversePayment(r.Context(), paymentID); err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, map[string]string{"reversed": paymentID.String()})
}

// ResettleInstallment handles POST /installments/{installmentId}/resettle.
// It re-runs the settlement cascade from the stored payment history, repairing
// an installment left inconsistent by a failed compensation.
func (h *SettlementHandler) ResettleInstallment(w http.ResponseWriter, r *http.Request) {
	installmentID, ok := h.pathID(w, r, "installmentId")
	if !ok {
		return
	}

	if err := h.service.Resettle(r.Context(), installmentID); err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, map[string]string{"resettled": installmentID.String()})
}

// GetOverdueSummary handles GET /companies/{companyId}/overdue
func (h *SettlementHandler) GetOverdueSummary(w http.ResponseWriter, r *http.Request) {
	companyID, ok := h.pathID(w, r, "companyId")
	if !ok {
		return
	}

	asOf := time.Now()
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		parsed, err := time.Parse("2006-01-02", raw)
		if err != nil {
			response.BadRequest(w, "as_of must be a calendar date (YYYY-MM-DD)", err)
			return
		}
		asOf = parsed
	}

	summary, err := h.service.GetOverdueSummary(r.Context(), companyID, asOf)
	if err != nil {
		h.writeError(w, err)
		return
	}

	response.Success(w, summary)
}

func (h *SettlementHandler) decodeAndValidate(w http.ResponseWriter, r *http.Request, request interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(request); err != nil {
		response.BadRequest(w, "invalid request body", err)
		return false
	}

	if err := h.validator.Struct(request); err != nil {
		response.BadRequest(w, "request validation failed", err)
		return false
	}

	return true
}

func (h *SettlementHandler) pathID(w http.ResponseWriter, r *http.Request, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		response.BadRequest(w, name+" must be a valid UUID", err)
		return uuid.Nil, false
	}
	return id, true
}

func (h *SettlementHandler) writeError(w http.ResponseWriter, err error) {
	switch customError.KindOf(err) {
	case customError.KindValidation:
		response.BadRequest(w, "validation failed", err)
	case customError.KindNotFound:
		response.NotFound(w, err.Error())
	case customError.KindInvalidState:
		response.Conflict(w, err.Error())
	case customError.KindConflict:
		response.Conflict(w, err.Error())
	default:
		h.logger.WithError(err).Error("settlement request failed")
		response.InternalServerError(w, "internal error", err)
	}
}
