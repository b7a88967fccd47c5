package stage

import (
	"fmt"
	"time"

	contractx "github.com/lucy-fin/lucy-agent/agent/contract"
	statex "github.com/lucy-fin/lucy-agent/agent/state"
)

// Outcome reports what one Advance call did to the session.
type Outcome struct {
	From     contractx.Stage
	To       contractx.Stage
	Advanced bool
	Captured []string
	// Accepted is set on the turn the customer accepts the offer; it is the
	// trigger for the disbursement-requested event, fired at most once.
	Accepted bool
}

// Advance merges newly extracted fields into the session and moves it to the
// successor stage when the merged set covers the stage's required fields.
// The merge is set-once: previously captured fields are immutable, which both
// enforces the no-regression invariant and makes replays idempotent.
//
// OFFER is special: it advances only when a LoanOffer has been computed and
// the customer gave an explicit accept/reject decision. Either decision moves
// the session to ACCEPTANCE and marks it terminal.
func (r *Registry) Advance(session *statex.Session, extracted contractx.FieldPatch, now time.Time) (Outcome, error) {
	if session == nil {
		return Outcome{}, statex.ErrNilSession
	}
	def, ok := r.Definition(session.Stage)
	if !ok {
		return Outcome{}, fmt.Errorf("%w: session stage=%q not in registry", contractx.ErrInvalidTransition, session.Stage)
	}

	out := Outcome{From: session.Stage, To: session.Stage}
	if session.Terminal {
		return out, nil
	}

	out.Captured = session.MergeFields(extracted)
	session.Touch(now)

	if def.Next == "" {
		return out, nil
	}
	for _, name := range def.Required {
		if !session.HasField(name) {
			return out, nil
		}
	}

	if session.Stage == contractx.StageOffer {
		if session.Offer == nil {
			return out, nil
		}
		decision, _ := contractx.FieldString(session.Fields, contractx.FieldDecision)
		switch decision {
		case contractx.DecisionAccept:
			out.Accepted = true
		case contractx.DecisionReject:
		default:
			return out, nil
		}
		session.Terminal = true
	}

	session.Stage = def.Next
	out.To = def.Next
	out.Advanced = true
	return out, nil
}
