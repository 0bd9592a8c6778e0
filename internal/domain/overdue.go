package domain

import (
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/credium/settlement-engine/pkg/dateutil"
)

// Collection buckets group delinquent contracts by age in days. Upper bounds
// are inclusive: exactly 30 days past due falls in 1-30, exactly 31 in 31-60.
const (
	BucketCurrent    = "current"
	BucketDays1To30  = "1-30"
	BucketDays31To60 = "31-60"
	BucketDays61To90 = "61-90"
	BucketDays90Plus = "90+"
)

// DaysOverdue returns how many whole days past due an installment is as of
// the given date, never negative.
func DaysOverdue(today, dueDate time.Time) int {
	days := dateutil.DaysBetween(dueDate, today)
	if days < 0 {
		return 0
	}
	return days
}

// BucketFor maps a days-overdue age onto its collection bucket.
func BucketFor(daysOverdue int) string {
	switch {
	case daysOverdue <= 0:
		return BucketCurrent
	case daysOverdue <= 30:
		return BucketDays1To30
	case daysOverdue <= 60:
		return BucketDays31To60
	case daysOverdue <= 90:
		return BucketDays61To90
	default:
		return BucketDays90Plus
	}
}

// ContractDelinquency is one collections card: a contract's total unpaid
// amount across open installments and its delinquency age, which is the
// maximum days-overdue among them.
type ContractDelinquency struct {
	ContractID         uuid.UUID       `json:"contract_id"`
	CustomerID         uuid.UUID       `json:"customer_id"`
	OutstandingAmount  decimal.Decimal `json:"outstanding_amount"`
	OverdueInstallment int             `json:"overdue_installments"`
	MaxDaysOverdue     int             `json:"max_days_overdue"`
	Bucket             string          `json:"bucket"`
}

// BucketTotal aggregates the cards that share a bucket.
type BucketTotal struct {
	Contracts   int             `json:"contracts"`
	Outstanding decimal.Decimal `json:"outstanding"`
}

// OverdueSummary is the collections triage view for one company.
type OverdueSummary struct {
	AsOf      time.Time               `json:"as_of"`
	Contracts []*ContractDelinquency  `json:"contracts"`
	Buckets   map[string]*BucketTotal `json:"buckets"`
}

// ClassifyOverdue groups unsettled installments into a per-contract
// delinquency view as of the injected date. Input installments must already
// be filtered to unsettled statuses on non-deleted, non-canceled contracts.
// Contracts with no installment past due are dropped; contracts with at least
// one sum their outstanding amount across all unsettled installments,
// including those not yet due.
func ClassifyOverdue(today time.Time, installments []*Installment, customerByContract map[uuid.UUID]uuid.UUID) *OverdueSummary {
	byContract := make(map[uuid.UUID]*ContractDelinquency)

	for _, inst := range installments {
		if !IsUnsettled(inst.Status) {
			continue
		}

		card, ok := byContract[inst.ContractID]
		if !ok {
			card = &ContractDelinquency{
				ContractID:        inst.ContractID,
				CustomerID:        customerByContract[inst.ContractID],
				OutstandingAmount: decimal.Zero,
			}
			byContract[inst.ContractID] = card
		}

		card.OutstandingAmount = card.OutstandingAmount.Add(inst.Outstanding())

		if days := DaysOverdue(today, inst.DueDate); days > 0 {
			card.OverdueInstallment++
			if days > card.MaxDaysOverdue {
				card.MaxDaysOverdue = days
			}
		}
	}

	summary := &OverdueSummary{
		AsOf:      dateutil.DateOnly(today),
		Contracts: make([]*ContractDelinquency, 0, len(byContract)),
		Buckets:   make(map[string]*BucketTotal),
	}

	for _, card := range byContract {
		if card.MaxDaysOverdue == 0 {
			continue
		}
		card.Bucket = BucketFor(card.MaxDaysOverdue)
		summary.Contracts = append(summary.Contracts, card)

		total, ok := summary.Buckets[card.Bucket]
		if !ok {
			total = &BucketTotal{Outstanding: decimal.Zero}
			summary.Buckets[card.Bucket] = total
		}
		total.Contracts++
		total.Outstanding = total.Outstanding.Add(card.OutstandingAmount)
	}

	// Oldest debt first for the triage view.
	sort.Slice(summary.Contracts, func(i, j int) bool {
		return summary.Contracts[i].MaxDaysOverdue > summary.Contracts[j].MaxDaysOverdue
	})

	return summary
}
