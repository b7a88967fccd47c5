package extract

import (
	"regexp"
	"strconv"
	"strings"

	contractx "github.com/lucy-fin/lucy-agent/agent/contract"
)

// ~26 trading days in a month; used to derive monthly sales from daily.
const tradingDaysPerMonth = 26

var (
	// "in Nairobi", "at Kawangware Market", "near Gikomba Lane 3"
	prepositionLocation = regexp.MustCompile(`\b(?:in|at|near)\s+([A-Z][A-Za-z']*(?:\s+[A-Z][A-Za-z0-9']*)*)`)

	numberPattern = regexp.MustCompile(`\d{1,3}(?:,\d{3})+|\d+`)

	affirmativePattern = regexp.MustCompile(`\b(?:yes|yeah|yep|ready|confirm|proceed|sure|okay|ok)\b`)
	hesitationPattern  = regexp.MustCompile(`\b(?:maybe|perhaps|possibly)\b|not sure|i think|i guess`)
	acceptPattern      = regexp.MustCompile(`\b(?:yes|accept|agree|take|deal)\b`)
	rejectPattern      = regexp.MustCompile(`\b(?:no|reject|decline|refuse|pass)\b|not now`)
)

var locationIndicators = []string{
	"market", "lane", "street", "road", "avenue", "area", "estate", "mall", "town", "stall",
}

func parseLocation(message string) string {
	if m := prepositionLocation.FindStringSubmatch(message); m != nil {
		return m[1]
	}
	lower := strings.ToLower(message)
	for _, indicator := range locationIndicators {
		if strings.Contains(lower, indicator) {
			return strings.TrimSpace(message)
		}
	}
	return ""
}

var businessTypes = []string{
	"shop", "kiosk", "restaurant", "salon", "grocery", "boutique",
	"hardware", "butchery", "bakery", "tailor", "pharmacy", "cafe",
}

func parseBusinessType(lower string) string {
	for _, bt := range businessTypes {
		if strings.Contains(lower, bt) {
			return bt
		}
	}
	return ""
}

// mergeSales parses sales figures. A sales cue is required before any number
// is trusted: "Lane 3" must not become a daily sales figure.
func mergeSales(patch contractx.FieldPatch, lower string) {
	hasCue := strings.Contains(lower, "kes") ||
		strings.Contains(lower, "shilling") ||
		strings.Contains(lower, "sales") ||
		strings.Contains(lower, "sell") ||
		strings.Contains(lower, "customer") ||
		strings.Contains(lower, "make") ||
		strings.Contains(lower, "earn")
	if !hasCue {
		return
	}

	numbers := parseNumbers(lower)
	if len(numbers) == 0 {
		return
	}

	switch {
	case strings.Contains(lower, "month"):
		patch[contractx.FieldMonthlySales] = maxOf(numbers)
	case strings.Contains(lower, "customer") && len(numbers) >= 2:
		customers, daily := numbers[0], numbers[1]
		// Customers come first in "I serve about 20 customers and make
		// around 2,500 KES daily"; swap if the order is reversed.
		if customers > daily {
			customers, daily = daily, customers
		}
		daily = scaleShorthand(daily)
		patch[contractx.FieldDailyCustomers] = customers
		patch[contractx.FieldDailySales] = daily
		patch[contractx.FieldMonthlySales] = daily * tradingDaysPerMonth
	case strings.Contains(lower, "customer"):
		patch[contractx.FieldDailyCustomers] = numbers[0]
	default:
		daily := scaleShorthand(maxOf(numbers))
		patch[contractx.FieldDailySales] = daily
		patch[contractx.FieldMonthlySales] = daily * tradingDaysPerMonth
	}

	if consistency := parseConsistency(lower); consistency != "" {
		patch[contractx.FieldSalesConsistency] = consistency
	}
}

func parseConsistency(lower string) string {
	switch {
	case strings.Contains(lower, "inconsistent"),
		strings.Contains(lower, "irregular"),
		strings.Contains(lower, "up and down"),
		strings.Contains(lower, "varies"):
		return contractx.ConsistencyIrregular
	case strings.Contains(lower, "consistent"),
		strings.Contains(lower, "steady"),
		strings.Contains(lower, "stable"),
		strings.Contains(lower, "regular"):
		return contractx.ConsistencyConsistent
	default:
		return ""
	}
}

func parseNumbers(s string) []int64 {
	matches := numberPattern.FindAllString(s, -1)
	out := make([]int64, 0, len(matches))
	for _, m := range matches {
		n, err := strconv.ParseInt(strings.ReplaceAll(m, ",", ""), 10, 64)
		if err != nil {
			continue
		}
		out = append(out, n)
	}
	return out
}

// scaleShorthand expands the common KES shorthand: "I make 8 daily" means
// 8,000, not 8 shillings.
func scaleShorthand(n int64) int64 {
	if n > 0 && n < 100 {
		return n * 1000
	}
	return n
}

func maxOf(numbers []int64) int64 {
	best := numbers[0]
	for _, n := range numbers[1:] {
		if n > best {
			best = n
		}
	}
	return best
}

var loanUseKeywords = []struct {
	keyword string
	use     string
}{
	{"stock", "stock"},
	{"inventory", "stock"},
	{"equipment", "equipment"},
	{"machine", "equipment"},
	{"expand", "expansion"},
	{"expansion", "expansion"},
	{"grow", "expansion"},
	{"rent", "rent"},
	{"supplies", "supplies"},
	{"capital", "working_capital"},
	{"product", "product_range"},
}

// KnownLoanUse reports whether use is one of the canonical loan-use names the
// parsers emit. Other extractors clamp their output to this vocabulary.
func KnownLoanUse(use string) bool {
	if use == "business_growth" {
		return true
	}
	for _, entry := range loanUseKeywords {
		if entry.use == use {
			return true
		}
	}
	return false
}

func parseLoanUses(lower string, stage contractx.Stage) []string {
	var uses []string
	seen := map[string]bool{}
	for _, entry := range loanUseKeywords {
		if strings.Contains(lower, entry.keyword) && !seen[entry.use] {
			seen[entry.use] = true
			uses = append(uses, entry.use)
		}
	}
	if len(uses) == 0 && stage == contractx.StageL3 && strings.TrimSpace(lower) != "" {
		// At L3 any substantive answer counts; the customer is answering
		// the loan-use question even without a known keyword.
		return []string{"business_growth"}
	}
	return uses
}

var loveCues = []string{"love", "enjoy", "like", "passion", "proud"}

func parseWhatTheyLove(message, lower string) string {
	for _, cue := range loveCues {
		if strings.Contains(lower, cue) {
			return strings.TrimSpace(message)
		}
	}
	return ""
}

var challengeCues = []string{
	"challenge", "problem", "difficult", "struggle", "hard",
	"need", "lack", "blocker", "competition", "slow",
}

func parseChallenge(message, lower string) string {
	for _, cue := range challengeCues {
		if strings.Contains(lower, cue) {
			return strings.TrimSpace(message)
		}
	}
	if len(strings.Fields(message)) >= 3 {
		return strings.TrimSpace(message)
	}
	return ""
}

func parseReadiness(lower string) string {
	if hesitationPattern.MatchString(lower) {
		return contractx.ReadinessMarginal
	}
	if affirmativePattern.MatchString(lower) {
		return contractx.ReadinessConfirmed
	}
	return ""
}

func parseDecision(lower string) string {
	if rejectPattern.MatchString(lower) {
		return contractx.DecisionReject
	}
	if acceptPattern.MatchString(lower) {
		return contractx.DecisionAccept
	}
	return ""
}
