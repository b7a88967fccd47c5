package contract

import "time"

// Stage is one step of the fixed loan-application sequence. The chain is
// strictly linear: B1 -> E4A -> E4B -> B4 -> E6 -> L3 -> L5 -> OFFER -> ACCEPTANCE.
type Stage string

const (
	StageB1         Stage = "B1"         // photos & location
	StageE4A        Stage = "E4A"        // business type
	StageE4B        Stage = "E4B"        // what they love
	StageB4         Stage = "B4"         // sales data
	StageE6         Stage = "E6"         // challenge
	StageL3         Stage = "L3"         // loan usage
	StageL5         Stage = "L5"         // readiness
	StageOffer      Stage = "OFFER"      // offer generation
	StageAcceptance Stage = "ACCEPTANCE" // terminal
)

// StageOrder is the canonical chain order. The registry validates against it
// at startup; sessions never hold a stage outside this list.
var StageOrder = []Stage{
	StageB1, StageE4A, StageE4B, StageB4, StageE6, StageL3, StageL5, StageOffer, StageAcceptance,
}

// KnownStage reports whether s is a member of the fixed stage chain.
func KnownStage(s Stage) bool {
	for _, known := range StageOrder {
		if s == known {
			return true
		}
	}
	return false
}

// RoleType identifies one of the three specialist handlers. Ownership of
// stages is static; a role may own several non-contiguous stages.
type RoleType string

const (
	RolePhotoVerifier RoleType = "photo_verifier"
	RoleBusinessCoach RoleType = "business_coach"
	RoleUnderwriter   RoleType = "underwriter"
)

// Session field names. Fields are global to the session, not stage-scoped:
// a sales figure mentioned at B1 is recorded so B4 does not have to re-ask.
const (
	FieldPhotoRef         = "photo_ref"
	FieldLocation         = "location"
	FieldBusinessType     = "business_type"
	FieldWhatTheyLove     = "what_they_love"
	FieldMonthlySales     = "monthly_sales"
	FieldDailySales       = "daily_sales"
	FieldDailyCustomers   = "daily_customers"
	FieldSalesConsistency = "sales_consistency"
	FieldChallenge        = "challenge"
	FieldLoanUses         = "loan_uses"
	FieldReadiness        = "readiness"
	FieldDecision         = "decision"
)

// Values for FieldSalesConsistency, FieldReadiness and FieldDecision.
const (
	ConsistencyConsistent = "consistent"
	ConsistencyIrregular  = "irregular"

	ReadinessConfirmed = "confirmed"
	ReadinessMarginal  = "marginal"

	DecisionAccept = "accept"
	DecisionReject = "reject"
)

// FieldPatch is a best-effort partial extraction result. Keys are the Field*
// constants above; values are typed (string, int64, []string).
type FieldPatch map[string]any

// Attachment is an opaque reference to customer-submitted media.
type Attachment struct {
	ID   string `json:"id"`
	Kind string `json:"kind,omitempty"`
}

// TurnInput is the single inbound operation the core accepts.
type TurnInput struct {
	CustomerID  string       `json:"customer_id"`
	Message     string       `json:"message"`
	Attachments []Attachment `json:"attachments,omitempty"`
}

// TurnResult is what one processed turn returns to the transport layer.
type TurnResult struct {
	Reply    string     `json:"reply"`
	Stage    Stage      `json:"stage"`
	Terminal bool       `json:"terminal"`
	Offer    *LoanOffer `json:"offer,omitempty"`
}

// RiskTier keys the rate policy table; derived from sales consistency.
type RiskTier string

const (
	TierStandard RiskTier = "standard"
	TierElevated RiskTier = "elevated"
)

// LoanOffer is the derived artifact computed at OFFER. Once attached to a
// session it is immutable; subsequent turns at OFFER return the cached copy.
type LoanOffer struct {
	ID           string    `json:"id"`
	Principal    int64     `json:"principal"`
	TermDays     int       `json:"term_days"`
	DailyRate    float64   `json:"daily_rate"`
	TotalDue     int64     `json:"total_due"`
	DueDate      time.Time `json:"due_date"`
	RiskTier     RiskTier  `json:"risk_tier"`
	Conditions   []string  `json:"conditions,omitempty"`
	MonthlySales int64     `json:"monthly_sales"`
	MonthlyNet   int64     `json:"monthly_net"`
	CreatedAt    time.Time `json:"created_at"`
}

// HandlerRequest is the stage-scoped view a handler works with. Fields is the
// post-merge field mapping for the session; handlers must not mutate it.
type HandlerRequest struct {
	Stage       Stage
	Fields      map[string]any
	Message     string
	Attachments []Attachment
	CachedOffer *LoanOffer
	Now         time.Time
}

// HandlerResponse carries the handler reply and, at OFFER only, the computed
// or cached loan offer artifact.
type HandlerResponse struct {
	Reply string
	Offer *LoanOffer
}

// TurnEvent is the structured per-turn record emitted to the observability
// sink. Emission is fire-and-forget and never blocks the turn.
type TurnEvent struct {
	TurnID      string        `json:"turn_id"`
	CustomerID  string        `json:"customer_id"`
	StageBefore Stage         `json:"stage_before"`
	StageAfter  Stage         `json:"stage_after"`
	Role        RoleType      `json:"role"`
	Extracted   []string      `json:"extracted,omitempty"`
	Advanced    bool          `json:"advanced"`
	Terminal    bool          `json:"terminal"`
	Duration    time.Duration `json:"duration"`
	At          time.Time     `json:"at"`
}

// DisbursementRequest is published exactly once when a customer accepts an
// offer. Execution of the disbursement is an external concern.
type DisbursementRequest struct {
	CustomerID string    `json:"customer_id"`
	OfferID    string    `json:"offer_id"`
	Principal  int64     `json:"principal"`
	TermDays   int       `json:"term_days"`
	DailyRate  float64   `json:"daily_rate"`
	AcceptedAt time.Time `json:"accepted_at"`
}
