package domain

import (
	"math"

	"github.com/shopspring/decimal"

	customError "github.com/credium/settlement-engine/pkg/errors"
)

// Quote is the result of an amortization calculation.
type Quote struct {
	InstallmentAmount decimal.Decimal `json:"installment_amount"`
	TotalAmount       decimal.Decimal `json:"total_amount"`
}

// AmortizationRequest quotes terms before a contract exists. A nil rate uses
// the configured default periodic rate.
type AmortizationRequest struct {
	Principal           decimal.Decimal  `json:"principal" validate:"decimal_gt_zero"`
	TermMonths          int              `json:"term_months" validate:"required,gte=1"`
	PeriodicRatePercent *decimal.Decimal `json:"periodic_rate_percent,omitempty" validate:"omitempty,decimal_gte_zero"`
}

// CalculateAmortization computes the fixed periodic payment for a principal
// repaid over termMonths periods at periodicRatePercent interest per period.
//
// Zero-rate contracts split the principal evenly. Otherwise the standard
// amortized-payment formula applies with i = rate/100:
//
//	installment = P * i * (1+i)^n / ((1+i)^n - 1)
//
// The power term is evaluated in float64 and the result converted back to
// decimal; monetary outputs are rounded to two decimal places.
func CalculateAmortization(principal decimal.Decimal, termMonths int, periodicRatePercent decimal.Decimal) (*Quote, error) {
	if principal.LessThanOrEqual(decimal.Zero) {
		return nil, customError.WrapInvalidAmortizationInput("principal must be greater than zero")
	}
	if termMonths < 1 {
		return nil, customError.WrapInvalidAmortizationInput("term must be at least one installment")
	}
	if periodicRatePercent.LessThan(decimal.Zero) {
		return nil, customError.WrapInvalidAmortizationInput("periodic rate must not be negative")
	}

	term := decimal.NewFromInt(int64(termMonths))

	if periodicRatePercent.IsZero() {
		// Total derives from the rounded installment, like the interest
		// branch, so installment * term never drifts from the total when the
		// principal does not divide evenly.
		installment := principal.Div(term).Round(2)
		return &Quote{
			InstallmentAmount: installment,
			TotalAmount:       installment.Mul(term).Round(2),
		}, nil
	}

	rate := periodicRatePercent.InexactFloat64() / 100
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return nil, customError.WrapInvalidAmortizationInput("periodic rate is not a finite number")
	}

	// (1+i)^n overflows decimal exponentiation for long terms; float64 is
	// accurate enough here since the result is rounded to cents.
	factor := math.Pow(1+rate, float64(termMonths))
	payment := principal.InexactFloat64() * rate * factor / (factor - 1)
	if math.IsNaN(payment) || math.IsInf(payment, 0) {
		return nil, customError.WrapInvalidAmortizationInput("amortization inputs produce a non-finite payment")
	}

	installment := decimal.NewFromFloat(payment).Round(2)

	return &Quote{
		InstallmentAmount: installment,
		TotalAmount:       installment.Mul(term).Round(2),
	}, nil
}
