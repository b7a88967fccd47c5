package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	contractx "github.com/lucy-fin/lucy-agent/agent/contract"
	rolesx "github.com/lucy-fin/lucy-agent/agent/roles"
	stagex "github.com/lucy-fin/lucy-agent/agent/stage"
	statex "github.com/lucy-fin/lucy-agent/agent/state"
)

var (
	ErrInvalidCustomer = fmt.Errorf("%w: customer id is empty", contractx.ErrValidation)
	ErrEmptyTurn       = fmt.Errorf("%w: turn has no message and no attachments", contractx.ErrValidation)
)

// graphState threads one turn through the pipeline nodes.
type graphState struct {
	Input  contractx.TurnInput
	Now    time.Time
	TurnID string

	Session *statex.Session
	Created bool

	Patch    contractx.FieldPatch
	Captured []string

	StageBefore contractx.Stage
	Role        contractx.RoleType

	HandlerReply string
	ExtraSegment string

	Outcome stagex.Outcome
}

// graphOutput is what one graph run hands back to ProcessTurn.
type graphOutput struct {
	Result contractx.TurnResult

	TurnID      string
	CustomerID  string
	StageBefore contractx.Stage
	Role        contractx.RoleType
	Captured    []string
	Advanced    bool
	Accepted    bool
	Offer       *contractx.LoanOffer
}

func validateRequest(in contractx.TurnInput, nowFn func() time.Time) (*graphState, error) {
	customerID := strings.TrimSpace(in.CustomerID)
	if customerID == "" {
		return nil, ErrInvalidCustomer
	}
	message := strings.TrimSpace(in.Message)
	if message == "" && len(in.Attachments) == 0 {
		return nil, ErrEmptyTurn
	}
	in.CustomerID = customerID
	in.Message = message

	return &graphState{
		Input:  in,
		Now:    nowFn().UTC(),
		TurnID: uuid.NewString(),
	}, nil
}

// loadOrCreateSession implements get-or-create: an unseen customer gets a
// fresh session at B1 with empty fields, so the operation never fails for a
// well-formed identifier.
func loadOrCreateSession(ctx context.Context, gs *graphState, store statex.Store) (*graphState, error) {
	if gs == nil {
		return nil, fmt.Errorf("%w: graph state is nil", contractx.ErrValidation)
	}

	session, err := store.Load(ctx, gs.Input.CustomerID)
	switch {
	case err == nil:
	case errors.Is(err, statex.ErrSessionNotFound):
		session = statex.NewSession(gs.Input.CustomerID, gs.Now)
		gs.Created = true
	default:
		return nil, err
	}

	gs.Session = session
	gs.StageBefore = session.Stage
	return gs, nil
}

// terminalAck answers a turn against a finished session without touching it.
func terminalAck(gs *graphState) (graphOutput, error) {
	if gs == nil || gs.Session == nil {
		return graphOutput{}, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	return graphOutput{
		Result: contractx.TurnResult{
			Reply:    rolesx.Persona("Your application is already complete. I'm always here if you need me! 😊"),
			Stage:    gs.Session.Stage,
			Terminal: true,
		},
		TurnID:      gs.TurnID,
		CustomerID:  gs.Session.CustomerID,
		StageBefore: gs.StageBefore,
	}, nil
}

func extractFields(ctx context.Context, gs *graphState, extractor contractx.Extractor) (*graphState, error) {
	if gs == nil || gs.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	patch, err := extractor.Extract(ctx, gs.Session.Stage, gs.Input.Message, gs.Input.Attachments)
	if err != nil {
		return nil, fmt.Errorf("%w: extract fields: %v", contractx.ErrExternalService, err)
	}
	if patch == nil {
		patch = contractx.FieldPatch{}
	}
	gs.Patch = patch
	return gs, nil
}

func mergeFields(gs *graphState) (*graphState, error) {
	if gs == nil || gs.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	gs.Captured = gs.Session.MergeFields(gs.Patch)
	return gs, nil
}

// dispatchHandler routes the turn to the role owning the current stage. The
// handler sees the post-merge field view; it never mutates the session.
func dispatchHandler(
	ctx context.Context,
	gs *graphState,
	registry *stagex.Registry,
	handlers contractx.Registry,
) (*graphState, error) {
	if gs == nil || gs.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	role := registry.Owner(gs.Session.Stage)
	handler, ok := rolesx.ForRole(handlers, role)
	if !ok {
		return nil, fmt.Errorf("%w: no handler for role=%q", contractx.ErrInvalidTransition, role)
	}
	gs.Role = role

	resp, err := handler.Handle(ctx, contractx.HandlerRequest{
		Stage:       gs.Session.Stage,
		Fields:      gs.Session.Fields,
		Message:     gs.Input.Message,
		Attachments: gs.Input.Attachments,
		CachedOffer: gs.Session.Offer,
		Now:         gs.Now,
	})
	if err != nil {
		return nil, err
	}

	if resp.Offer != nil && gs.Session.Offer == nil {
		if err := gs.Session.AttachOffer(resp.Offer); err != nil {
			return nil, err
		}
	}
	gs.HandlerReply = resp.Reply
	return gs, nil
}

func applyTransition(gs *graphState, registry *stagex.Registry) (*graphState, error) {
	if gs == nil || gs.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	outcome, err := registry.Advance(gs.Session, gs.Patch, gs.Now)
	if err != nil {
		return nil, err
	}
	gs.Outcome = outcome
	return gs, nil
}

// enterNextStage runs after the transition. Advancing into OFFER computes and
// presents the loan offer in the same turn; advancing anywhere else appends
// the new stage's opening question so the customer always knows what comes
// next.
func enterNextStage(
	ctx context.Context,
	gs *graphState,
	registry *stagex.Registry,
	handlers contractx.Registry,
) (*graphState, error) {
	if gs == nil || gs.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}
	if !gs.Outcome.Advanced || gs.Session.Terminal {
		return gs, nil
	}

	if gs.Session.Stage == contractx.StageOffer && gs.Session.Offer == nil {
		resp, err := handlers.Underwriter().Handle(ctx, contractx.HandlerRequest{
			Stage:   contractx.StageOffer,
			Fields:  gs.Session.Fields,
			Message: gs.Input.Message,
			Now:     gs.Now,
		})
		if err != nil {
			return nil, err
		}
		if resp.Offer == nil {
			return nil, fmt.Errorf("%w: underwriter produced no offer at OFFER", contractx.ErrValidation)
		}
		if err := gs.Session.AttachOffer(resp.Offer); err != nil {
			return nil, err
		}
		gs.ExtraSegment = resp.Reply
		return gs, nil
	}

	gs.ExtraSegment = registry.Prompt(gs.Session.Stage)
	return gs, nil
}

// persistSession is the single session write of the turn. Everything before
// it operates on an in-memory copy, so a failed turn leaves no partial state.
func persistSession(ctx context.Context, gs *graphState, store statex.Store) (*graphState, error) {
	if gs == nil || gs.Session == nil {
		return nil, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	reply := gs.composeReply()
	gs.Session.AppendTurn(gs.StageBefore, gs.Input.Message, reply, gs.Now)
	gs.Session.Touch(gs.Now)

	if err := gs.Session.Validate(); err != nil {
		return nil, fmt.Errorf("session validation failed: %w", err)
	}
	if err := store.Save(ctx, gs.Session); err != nil {
		return nil, err
	}
	return gs, nil
}

func finalizeReply(gs *graphState) (graphOutput, error) {
	if gs == nil || gs.Session == nil {
		return graphOutput{}, fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
	}

	reply := gs.composeReply()
	if reply == "" {
		return graphOutput{}, fmt.Errorf("%w: empty reply", contractx.ErrValidation)
	}

	out := graphOutput{
		Result: contractx.TurnResult{
			Reply:    reply,
			Stage:    gs.Session.Stage,
			Terminal: gs.Session.Terminal,
		},
		TurnID:      gs.TurnID,
		CustomerID:  gs.Session.CustomerID,
		StageBefore: gs.StageBefore,
		Role:        gs.Role,
		Captured:    gs.Captured,
		Advanced:    gs.Outcome.Advanced,
		Accepted:    gs.Outcome.Accepted,
	}

	// The artifact travels with the result on any turn that touches OFFER.
	if gs.Session.Offer != nil &&
		(gs.Session.Stage == contractx.StageOffer || gs.StageBefore == contractx.StageOffer) {
		out.Result.Offer = gs.Session.Offer
		out.Offer = gs.Session.Offer
	}
	return out, nil
}

func (gs *graphState) composeReply() string {
	segments := make([]string, 0, 3)
	if gs.Created {
		segments = append(segments, rolesx.Greeting)
	}
	segments = append(segments, gs.HandlerReply, gs.ExtraSegment)
	return rolesx.Persona(segments...)
}
