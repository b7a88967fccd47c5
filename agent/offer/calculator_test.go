package offer

import (
	"errors"
	"testing"
	"time"

	contractx "github.com/lucy-fin/lucy-agent/agent/contract"
)

var testNow = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func baseInputs() Inputs {
	return Inputs{
		MonthlySales: 130_000,
		LoanUses:     []string{"stock"},
		Consistency:  contractx.ConsistencyConsistent,
		Readiness:    contractx.ReadinessConfirmed,
		Now:          testNow,
	}
}

func TestCalculatePrincipalFromMonthlySales(t *testing.T) {
	t.Parallel()

	offer, err := Calculate(baseInputs())
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	// 130,000 * 0.6 = 78,000 net; 20% = 15,600; rounds to 15,500.
	if offer.MonthlyNet != 78_000 {
		t.Fatalf("MonthlyNet = %d, want 78000", offer.MonthlyNet)
	}
	if offer.Principal != 15_500 {
		t.Fatalf("Principal = %d, want 15500", offer.Principal)
	}
	if offer.TermDays != 30 {
		t.Fatalf("TermDays = %d, want 30", offer.TermDays)
	}
	if offer.RiskTier != contractx.TierStandard {
		t.Fatalf("RiskTier = %q, want standard", offer.RiskTier)
	}
	if offer.DailyRate != 0.006 {
		t.Fatalf("DailyRate = %v, want 0.006", offer.DailyRate)
	}

	// 15,500 * 0.006 * 30 = 2,790 interest.
	if offer.TotalDue != 15_500+2_790 {
		t.Fatalf("TotalDue = %d, want %d", offer.TotalDue, 15_500+2_790)
	}
	if !offer.DueDate.Equal(testNow.AddDate(0, 0, 30)) {
		t.Fatalf("DueDate = %v", offer.DueDate)
	}
}

func TestCalculateCapsPrincipalForLargeSales(t *testing.T) {
	t.Parallel()

	in := baseInputs()
	in.MonthlySales = 500_000
	offer, err := Calculate(in)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	if offer.Principal != 50_000 {
		t.Fatalf("Principal = %d, want the 50000 cap", offer.Principal)
	}
	if offer.TermDays != 60 {
		t.Fatalf("TermDays = %d, want 60", offer.TermDays)
	}
}

func TestCalculateFloorsPrincipalForSmallSales(t *testing.T) {
	t.Parallel()

	in := baseInputs()
	in.MonthlySales = 20_000
	offer, err := Calculate(in)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	if offer.Principal != 10_000 {
		t.Fatalf("Principal = %d, want the 10000 floor", offer.Principal)
	}
	if offer.TermDays != 30 {
		t.Fatalf("TermDays = %d, want 30", offer.TermDays)
	}
}

func TestCalculateElevatedTierForIrregularSales(t *testing.T) {
	t.Parallel()

	in := baseInputs()
	in.Consistency = contractx.ConsistencyIrregular
	offer, err := Calculate(in)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	if offer.RiskTier != contractx.TierElevated {
		t.Fatalf("RiskTier = %q, want elevated", offer.RiskTier)
	}
	if offer.DailyRate != 0.008 {
		t.Fatalf("DailyRate = %v, want 0.008", offer.DailyRate)
	}
	if !hasCondition(offer, irregularSalesCondition) {
		t.Fatalf("Conditions = %v, want the weekly check-in condition", offer.Conditions)
	}
}

func TestCalculateMarginalReadinessCapsFirstDisbursement(t *testing.T) {
	t.Parallel()

	in := baseInputs()
	in.Readiness = contractx.ReadinessMarginal
	offer, err := Calculate(in)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}

	if !hasCondition(offer, marginalCapCondition) {
		t.Fatalf("Conditions = %v, want the first-disbursement cap", offer.Conditions)
	}
}

func TestCalculateAlwaysIncludesLateFee(t *testing.T) {
	t.Parallel()

	offer, err := Calculate(baseInputs())
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if !hasCondition(offer, lateFeeCondition) {
		t.Fatalf("Conditions = %v, want the late fee condition", offer.Conditions)
	}
}

func TestCalculateDeterministicID(t *testing.T) {
	t.Parallel()

	first, err := Calculate(baseInputs())
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	second, err := Calculate(baseInputs())
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if first.ID != second.ID {
		t.Fatalf("offer IDs differ for identical inputs: %q vs %q", first.ID, second.ID)
	}

	changed := baseInputs()
	changed.MonthlySales = 200_000
	third, err := Calculate(changed)
	if err != nil {
		t.Fatalf("Calculate() error = %v", err)
	}
	if third.ID == first.ID {
		t.Fatalf("offer ID must change with the inputs")
	}
}

func TestCalculateValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name   string
		mutate func(*Inputs)
	}{
		{"zero sales", func(in *Inputs) { in.MonthlySales = 0 }},
		{"no loan uses", func(in *Inputs) { in.LoanUses = nil }},
		{"no readiness", func(in *Inputs) { in.Readiness = "" }},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			in := baseInputs()
			tc.mutate(&in)
			if _, err := Calculate(in); !errors.Is(err, contractx.ErrValidation) {
				t.Fatalf("Calculate() error = %v, want ErrValidation", err)
			}
		})
	}
}

func hasCondition(offer *contractx.LoanOffer, want string) bool {
	for _, c := range offer.Conditions {
		if c == want {
			return true
		}
	}
	return false
}
