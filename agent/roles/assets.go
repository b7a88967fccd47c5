package roles

import "strings"

// BuildAsset turns a named challenge into a small tangible asset the coach
// hands over before asking for anything else: a promo message when the
// problem is customer traffic, an expense tracker otherwise.
func BuildAsset(challenge, businessType string) (name, body string) {
	if businessType == "" {
		businessType = "business"
	}

	lower := strings.ToLower(challenge)
	if strings.Contains(lower, "customer") || strings.Contains(lower, "traffic") ||
		strings.Contains(lower, "slow") || strings.Contains(lower, "competition") {
		return "WhatsApp promo you can send today", strings.Join([]string{
			"🌟 Visit my " + businessType + " this week! 🌟",
			"✅ Fresh quality products daily",
			"✅ Fair prices, friendly service",
			"💰 Show this message for a 5% discount!",
		}, "\n")
	}

	return "weekly expense tracker", strings.Join([]string{
		"📊 Weekly Expense Tracker",
		"Mon: Stock___ Rent___ Transport___ Other___",
		"Tue: Stock___ Rent___ Transport___ Other___",
		"Wed: Stock___ Rent___ Transport___ Other___",
		"Thu: Stock___ Rent___ Transport___ Other___",
		"Fri: Stock___ Rent___ Transport___ Other___",
		"Total week: _____ KES",
	}, "\n")
}
