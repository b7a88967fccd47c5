package roles

import (
	"context"
	"fmt"
	"strings"

	contractx "github.com/lucy-fin/lucy-agent/agent/contract"
	offerx "github.com/lucy-fin/lucy-agent/agent/offer"
)

// Underwriter owns the financial stages B4, L3 and L5 plus OFFER, where it
// computes the loan offer. An offer already cached on the session is always
// returned as-is; within a session a quote never changes.
type Underwriter struct{}

var _ contractx.Handler = (*Underwriter)(nil)

func (u *Underwriter) Handle(ctx context.Context, req contractx.HandlerRequest) (contractx.HandlerResponse, error) {
	switch req.Stage {
	case contractx.StageB4:
		return u.handleSales(req), nil
	case contractx.StageL3:
		return u.handleLoanUses(req), nil
	case contractx.StageL5:
		return u.handleReadiness(req), nil
	case contractx.StageOffer:
		return u.handleOffer(req)
	case contractx.StageAcceptance:
		return contractx.HandlerResponse{
			Reply: "Your application is complete. I'm always here if you need me! 😊",
		}, nil
	default:
		return contractx.HandlerResponse{}, fmt.Errorf("%w: underwriter does not own stage=%q", contractx.ErrValidation, req.Stage)
	}
}

func (u *Underwriter) handleSales(req contractx.HandlerRequest) contractx.HandlerResponse {
	monthly, ok := contractx.FieldInt64(req.Fields, contractx.FieldMonthlySales)
	if !ok {
		return contractx.HandlerResponse{
			Reply: "I need your sales numbers to structure the right loan. How many customers do you serve per day, and what are your typical daily sales in KES? 📊",
		}
	}

	var b strings.Builder
	b.WriteString("Let me do some quick math for you 🧮\n")
	if daily, hasDaily := contractx.FieldInt64(req.Fields, contractx.FieldDailySales); hasDaily {
		if customers, hasCustomers := contractx.FieldInt64(req.Fields, contractx.FieldDailyCustomers); hasCustomers && customers > 0 {
			fmt.Fprintf(&b, "- Average per customer: ~%d KES\n", daily/customers)
		}
		fmt.Fprintf(&b, "- Daily sales: %s KES\n", formatKES(daily))
	}
	fmt.Fprintf(&b, "- Estimated monthly sales: %s KES — that's solid business!", formatKES(monthly))
	return contractx.HandlerResponse{Reply: b.String()}
}

func (u *Underwriter) handleLoanUses(req contractx.HandlerRequest) contractx.HandlerResponse {
	uses, ok := contractx.FieldStringSlice(req.Fields, contractx.FieldLoanUses)
	if !ok {
		return contractx.HandlerResponse{
			Reply: "What would you use the loan for? Stock, equipment, expansion, working capital? 🎯",
		}
	}
	return contractx.HandlerResponse{
		Reply: fmt.Sprintf("Got it — %s. That tells me how to structure the amount and terms for you. 🚀", strings.Join(uses, ", ")),
	}
}

func (u *Underwriter) handleReadiness(req contractx.HandlerRequest) contractx.HandlerResponse {
	readiness, ok := contractx.FieldString(req.Fields, contractx.FieldReadiness)
	if !ok {
		return contractx.HandlerResponse{
			Reply: "I have everything I need to prepare your offer. Are you ready to see it? Just say \"yes, I'm ready!\" 🎉",
		}
	}
	if readiness == contractx.ReadinessMarginal {
		return contractx.HandlerResponse{
			Reply: "No pressure at all — we'll take it one step at a time.",
		}
	}
	return contractx.HandlerResponse{
		Reply: "Excellent! Let me put your offer together.",
	}
}

// handleOffer returns the cached offer when one exists, computes it
// otherwise, and acknowledges an accept/reject decision once given.
func (u *Underwriter) handleOffer(req contractx.HandlerRequest) (contractx.HandlerResponse, error) {
	offer := req.CachedOffer

	if offer != nil {
		if decision, ok := contractx.FieldString(req.Fields, contractx.FieldDecision); ok {
			return contractx.HandlerResponse{
				Reply: decisionReply(decision),
				Offer: offer,
			}, nil
		}
		return contractx.HandlerResponse{
			Reply: FormatOffer(offer),
			Offer: offer,
		}, nil
	}

	computed, err := offerx.Calculate(offerInputs(req))
	if err != nil {
		return contractx.HandlerResponse{}, err
	}
	return contractx.HandlerResponse{
		Reply: FormatOffer(computed),
		Offer: computed,
	}, nil
}

func offerInputs(req contractx.HandlerRequest) offerx.Inputs {
	monthly, _ := contractx.FieldInt64(req.Fields, contractx.FieldMonthlySales)
	uses, _ := contractx.FieldStringSlice(req.Fields, contractx.FieldLoanUses)
	consistency, _ := contractx.FieldString(req.Fields, contractx.FieldSalesConsistency)
	readiness, _ := contractx.FieldString(req.Fields, contractx.FieldReadiness)
	return offerx.Inputs{
		MonthlySales: monthly,
		LoanUses:     uses,
		Consistency:  consistency,
		Readiness:    readiness,
		Now:          req.Now,
	}
}

func decisionReply(decision string) string {
	if decision == contractx.DecisionAccept {
		return strings.Join([]string{
			"🎉 Congratulations on taking this big step for your business!",
			"Your loan is approved and the disbursement is being requested now.",
			"You'll get a confirmation message once the funds are on the way. 🚀",
		}, "\n")
	}
	return strings.Join([]string{
		"I understand — a loan is a big decision and it's completely okay to think it through.",
		"I'm your business partner whether you take a loan or not. Come back anytime! 😊",
	}, "\n")
}

// FormatOffer renders the human-readable offer summary.
func FormatOffer(offer *contractx.LoanOffer) string {
	var b strings.Builder
	b.WriteString("🎉 Here is your personalized loan offer:\n\n")
	fmt.Fprintf(&b, "Loan amount: %s KES\n", formatKES(offer.Principal))
	fmt.Fprintf(&b, "Term: %d days\n", offer.TermDays)
	fmt.Fprintf(&b, "Interest: %.1f%% per day\n", offer.DailyRate*100)
	fmt.Fprintf(&b, "Total due: %s KES\n", formatKES(offer.TotalDue))
	fmt.Fprintf(&b, "Due date: %s\n", offer.DueDate.Format("2006-01-02"))
	for _, cond := range offer.Conditions {
		fmt.Fprintf(&b, "- %s\n", cond)
	}
	b.WriteString("\nReply \"yes\" to accept these terms, or \"no\" to decline.")
	return b.String()
}

func formatKES(n int64) string {
	s := fmt.Sprintf("%d", n)
	if len(s) <= 3 {
		return s
	}
	var parts []string
	for len(s) > 3 {
		parts = append([]string{s[len(s)-3:]}, parts...)
		s = s[:len(s)-3]
	}
	return s + "," + strings.Join(parts, ",")
}
