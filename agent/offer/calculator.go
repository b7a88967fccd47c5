// Package offer computes the loan offer from collected underwriting fields.
// Calculate is pure and total over its validated input domain; the stage
// registry guarantees prerequisites are collected before OFFER is reachable.
package offer

import (
	"fmt"
	"math"
	"time"

	"github.com/google/uuid"

	contractx "github.com/lucy-fin/lucy-agent/agent/contract"
)

// Policy constants. Principal is a bounded multiple of verified sales:
// 20% of monthly net income, where net assumes 40% cost of goods sold.
const (
	netMarginPct     = 0.60
	principalPctNet  = 0.20
	minPrincipal     = 10_000
	maxPrincipal     = 50_000
	principalRoundTo = 500

	lateFeeCondition        = "Late payment fee: 6% of outstanding balance"
	marginalCapCondition    = "First disbursement capped at 50% of principal"
	irregularSalesCondition = "Weekly sales check-in required during the loan term"
)

// Term policy table keyed by principal band.
var termBands = []struct {
	upTo     int64
	termDays int
}{
	{upTo: 20_000, termDays: 30},
	{upTo: 35_000, termDays: 45},
	{upTo: math.MaxInt64, termDays: 60},
}

// Rate policy table keyed by risk tier.
var ratesByTier = map[contractx.RiskTier]float64{
	contractx.TierStandard: 0.006, // 0.6% per day
	contractx.TierElevated: 0.008, // 0.8% per day
}

// Inputs are the validated underwriting fields collected at B4/L3/L5.
type Inputs struct {
	MonthlySales int64
	LoanUses     []string
	Consistency  string
	Readiness    string
	Now          time.Time
}

func (in Inputs) validate() error {
	if in.MonthlySales <= 0 {
		return fmt.Errorf("%w: monthly sales must be positive", contractx.ErrValidation)
	}
	if len(in.LoanUses) == 0 {
		return fmt.Errorf("%w: at least one loan use is required", contractx.ErrValidation)
	}
	if in.Readiness == "" {
		return fmt.Errorf("%w: readiness signal is required", contractx.ErrValidation)
	}
	return nil
}

// Calculate derives the offer deterministically from the inputs. The caller
// supplies Now and the offer ID is derived from the inputs' content via a
// name-based UUID, so recomputing with identical inputs yields an identical
// offer.
func Calculate(in Inputs) (*contractx.LoanOffer, error) {
	if err := in.validate(); err != nil {
		return nil, err
	}

	monthlyNet := int64(float64(in.MonthlySales) * netMarginPct)
	principal := int64(float64(monthlyNet) * principalPctNet)
	principal = roundTo(principal, principalRoundTo)
	if principal < minPrincipal {
		principal = minPrincipal
	}
	if principal > maxPrincipal {
		principal = maxPrincipal
	}

	tier := contractx.TierStandard
	if in.Consistency != contractx.ConsistencyConsistent {
		tier = contractx.TierElevated
	}
	rate := ratesByTier[tier]

	termDays := 0
	for _, band := range termBands {
		if principal <= band.upTo {
			termDays = band.termDays
			break
		}
	}

	interest := int64(math.Round(float64(principal) * rate * float64(termDays)))
	now := in.Now.UTC()

	conditions := []string{lateFeeCondition}
	if in.Readiness == contractx.ReadinessMarginal {
		conditions = append(conditions, marginalCapCondition)
	}
	if tier == contractx.TierElevated {
		conditions = append(conditions, irregularSalesCondition)
	}

	return &contractx.LoanOffer{
		ID:           offerID(in, principal, termDays),
		Principal:    principal,
		TermDays:     termDays,
		DailyRate:    rate,
		TotalDue:     principal + interest,
		DueDate:      now.AddDate(0, 0, termDays),
		RiskTier:     tier,
		Conditions:   conditions,
		MonthlySales: in.MonthlySales,
		MonthlyNet:   monthlyNet,
		CreatedAt:    now,
	}, nil
}

func roundTo(n, to int64) int64 {
	half := to / 2
	return (n + half) / to * to
}

var offerNamespace = uuid.MustParse("9f2d4c9e-1b7a-4f7e-8f3a-6d2c1e5b8a40")

func offerID(in Inputs, principal int64, termDays int) string {
	name := fmt.Sprintf("%d|%d|%d|%s|%s", in.MonthlySales, principal, termDays, in.Consistency, in.Readiness)
	return uuid.NewSHA1(offerNamespace, []byte(name)).String()
}
