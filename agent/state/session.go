package state

import (
	"errors"
	"fmt"
	"time"

	contractx "github.com/lucy-fin/lucy-agent/agent/contract"
)

var (
	ErrNilSession        = errors.New("session is nil")
	ErrInvalidCustomerID = errors.New("customer id is empty")
	ErrSessionTerminal   = errors.New("session is terminal")
	ErrFieldAlreadySet   = errors.New("field already set")
	ErrOfferAlreadySet   = errors.New("loan offer already attached")
)

// Turn is one processed request/reply cycle, kept for audit and debugging.
type Turn struct {
	Stage   contractx.Stage `json:"stage"`
	Message string          `json:"message"`
	Reply   string          `json:"reply"`
	At      time.Time       `json:"at"`
}

// Session is the persisted per-customer conversation state.
// Invariants:
//   - Stage is always a member of the fixed chain.
//   - Fields never regress: a field once captured keeps its value even if a
//     later message mentions a conflicting one.
//   - Offer, once attached, is never replaced.
//   - Terminal sessions accept no further mutation.
type Session struct {
	CustomerID string               `json:"customer_id"`
	Stage      contractx.Stage      `json:"stage"`
	Fields     map[string]any       `json:"fields,omitempty"`
	History    []Turn               `json:"history,omitempty"`
	Offer      *contractx.LoanOffer `json:"offer,omitempty"`
	Terminal   bool                 `json:"terminal"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewSession creates a fresh session at B1 with empty fields.
func NewSession(customerID string, now time.Time) *Session {
	return &Session{
		CustomerID: customerID,
		Stage:      contractx.StageB1,
		Fields:     make(map[string]any, 12),
		CreatedAt:  now.UTC(),
		UpdatedAt:  now.UTC(),
	}
}

func (s *Session) Touch(now time.Time) {
	s.UpdatedAt = now.UTC()
}

// EnsureFieldsMap makes sure s.Fields is initialized after decoding.
func (s *Session) EnsureFieldsMap() {
	if s.Fields == nil {
		s.Fields = make(map[string]any, 12)
	}
}

// HasField reports whether the field was captured with a non-empty value.
func (s *Session) HasField(name string) bool {
	if s == nil || s.Fields == nil {
		return false
	}
	v, ok := s.Fields[name]
	if !ok || v == nil {
		return false
	}
	if str, isStr := v.(string); isStr && str == "" {
		return false
	}
	return true
}

// SetField records a field value. Previously captured fields are immutable;
// setting one again is a no-op returning ErrFieldAlreadySet so callers can
// distinguish a merge skip from a fresh capture.
func (s *Session) SetField(name string, value any) error {
	if s == nil {
		return ErrNilSession
	}
	if s.Terminal {
		return ErrSessionTerminal
	}
	if s.HasField(name) {
		return ErrFieldAlreadySet
	}
	s.EnsureFieldsMap()
	s.Fields[name] = value
	return nil
}

// MergeFields applies a patch with set-once semantics and returns the names
// that were newly captured, in patch-independent deterministic order.
func (s *Session) MergeFields(patch contractx.FieldPatch) []string {
	if s == nil || len(patch) == 0 {
		return nil
	}
	var captured []string
	for _, name := range fieldMergeOrder {
		v, ok := patch[name]
		if !ok {
			continue
		}
		if err := s.SetField(name, v); err == nil {
			captured = append(captured, name)
		}
	}
	return captured
}

// fieldMergeOrder keeps MergeFields deterministic regardless of map
// iteration order.
var fieldMergeOrder = []string{
	contractx.FieldPhotoRef,
	contractx.FieldLocation,
	contractx.FieldBusinessType,
	contractx.FieldWhatTheyLove,
	contractx.FieldMonthlySales,
	contractx.FieldDailySales,
	contractx.FieldDailyCustomers,
	contractx.FieldSalesConsistency,
	contractx.FieldChallenge,
	contractx.FieldLoanUses,
	contractx.FieldReadiness,
	contractx.FieldDecision,
}

// AttachOffer caches the computed loan offer. A second attach is rejected so
// quotes stay stable within a session; attaching a different offer is a
// conflict, not a merge skip.
func (s *Session) AttachOffer(offer *contractx.LoanOffer) error {
	if s == nil {
		return ErrNilSession
	}
	if offer == nil {
		return fmt.Errorf("%w: offer is nil", contractx.ErrValidation)
	}
	if s.Offer != nil {
		if offer.ID != s.Offer.ID {
			return fmt.Errorf("%w: cached=%s new=%s", contractx.ErrArtifactConflict, s.Offer.ID, offer.ID)
		}
		return ErrOfferAlreadySet
	}
	s.Offer = offer
	return nil
}

// AppendTurn records the processed turn in the audit history.
func (s *Session) AppendTurn(stage contractx.Stage, message, reply string, at time.Time) {
	s.History = append(s.History, Turn{
		Stage:   stage,
		Message: message,
		Reply:   reply,
		At:      at.UTC(),
	})
}

func (s *Session) Validate() error {
	if s == nil {
		return ErrNilSession
	}
	if s.CustomerID == "" {
		return ErrInvalidCustomerID
	}
	if !contractx.KnownStage(s.Stage) {
		return fmt.Errorf("%w: unknown stage=%q", contractx.ErrInvalidTransition, s.Stage)
	}
	if s.Terminal && s.Stage != contractx.StageAcceptance {
		return fmt.Errorf("%w: terminal session at stage=%q", contractx.ErrValidation, s.Stage)
	}
	if s.Stage == contractx.StageAcceptance && s.Offer == nil && s.decision() == contractx.DecisionAccept {
		return fmt.Errorf("%w: accepted session without offer", contractx.ErrValidation)
	}
	return nil
}

func (s *Session) decision() string {
	if s == nil || s.Fields == nil {
		return ""
	}
	d, _ := s.Fields[contractx.FieldDecision].(string)
	return d
}

// Clone deep-copies the session so stores can hand out independent records.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	out := *s
	out.Fields = make(map[string]any, len(s.Fields))
	for k, v := range s.Fields {
		out.Fields[k] = cloneFieldValue(v)
	}
	out.History = append([]Turn(nil), s.History...)
	if s.Offer != nil {
		offer := *s.Offer
		offer.Conditions = append([]string(nil), s.Offer.Conditions...)
		out.Offer = &offer
	}
	return &out
}

func cloneFieldValue(v any) any {
	if list, ok := v.([]string); ok {
		return append([]string(nil), list...)
	}
	return v
}
