// Package engine orchestrates one conversation turn: load the session,
// extract fields, dispatch the owning role, apply the stage transition,
// persist, and stitch the reply into Lucy's single voice. It is the only
// component that writes session state, exactly once per turn.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/rs/zerolog/log"

	contractx "github.com/lucy-fin/lucy-agent/agent/contract"
	stagex "github.com/lucy-fin/lucy-agent/agent/stage"
	statex "github.com/lucy-fin/lucy-agent/agent/state"
)

const defaultTurnTimeout = 30 * time.Second

type Config struct {
	// TurnTimeout bounds extraction plus handling. A timed-out turn fails
	// without mutating the session; retries are safe because extraction is
	// deterministic and the field merge is idempotent.
	TurnTimeout time.Duration `envconfig:"TURN_TIMEOUT" split_words:"true" default:"30s"`
}

type Engine struct {
	store     statex.Store
	stages    *stagex.Registry
	handlers  contractx.Registry
	extractor contractx.Extractor
	sink      contractx.EventSink
	publisher contractx.DisbursementPublisher

	graphRunner compose.Runnable[contractx.TurnInput, graphOutput]

	locks       *customerLocks
	turnTimeout time.Duration
	now         func() time.Time
}

func New(
	store statex.Store,
	stages *stagex.Registry,
	handlers contractx.Registry,
	extractor contractx.Extractor,
	sink contractx.EventSink,
	publisher contractx.DisbursementPublisher,
	cfg Config,
) (*Engine, error) {
	if store == nil {
		return nil, errors.New("session store is required")
	}
	if stages == nil {
		return nil, errors.New("stage registry is required")
	}
	if handlers == nil {
		return nil, errors.New("handler registry is required")
	}
	if extractor == nil {
		return nil, errors.New("extractor is required")
	}
	if sink == nil {
		sink = noopSink{}
	}
	if publisher == nil {
		publisher = noopPublisher{}
	}
	if err := stages.Validate(); err != nil {
		return nil, err
	}

	timeout := cfg.TurnTimeout
	if timeout <= 0 {
		timeout = defaultTurnTimeout
	}

	e := &Engine{
		store:       store,
		stages:      stages,
		handlers:    handlers,
		extractor:   extractor,
		sink:        sink,
		publisher:   publisher,
		locks:       newCustomerLocks(),
		turnTimeout: timeout,
		now:         time.Now,
	}

	graphRunner, err := e.compileTurnGraph(context.Background())
	if err != nil {
		return nil, err
	}
	e.graphRunner = graphRunner

	return e, nil
}

// ProcessTurn is the single operation the core exposes. Turns for the same
// customer are serialized; turns for different customers run independently.
func (e *Engine) ProcessTurn(ctx context.Context, in contractx.TurnInput) (contractx.TurnResult, error) {
	lock := e.locks.forCustomer(in.CustomerID)
	lock.Lock()
	defer lock.Unlock()

	started := e.now()
	turnCtx, cancel := context.WithTimeout(ctx, e.turnTimeout)
	defer cancel()

	out, err := e.graphRunner.Invoke(turnCtx, in)
	if err != nil {
		return contractx.TurnResult{}, err
	}

	e.emitTurnEvent(out, e.now().Sub(started))

	if out.Accepted {
		e.requestDisbursement(ctx, out)
	}

	return out.Result, nil
}

// emitTurnEvent is fire-and-forget; the sink must not block the turn.
func (e *Engine) emitTurnEvent(out graphOutput, duration time.Duration) {
	e.sink.Emit(contractx.TurnEvent{
		TurnID:      out.TurnID,
		CustomerID:  out.CustomerID,
		StageBefore: out.StageBefore,
		StageAfter:  out.Result.Stage,
		Role:        out.Role,
		Extracted:   out.Captured,
		Advanced:    out.Advanced,
		Terminal:    out.Result.Terminal,
		Duration:    duration,
		At:          e.now().UTC(),
	})
}

// requestDisbursement fires once, on the turn the customer accepts. The
// session is already persisted as terminal, so a replay cannot publish a
// second event. A publish failure is logged for operational follow-up rather
// than failing the customer-facing turn.
func (e *Engine) requestDisbursement(ctx context.Context, out graphOutput) {
	if out.Offer == nil {
		return
	}
	req := contractx.DisbursementRequest{
		CustomerID: out.CustomerID,
		OfferID:    out.Offer.ID,
		Principal:  out.Offer.Principal,
		TermDays:   out.Offer.TermDays,
		DailyRate:  out.Offer.DailyRate,
		AcceptedAt: e.now().UTC(),
	}
	if err := e.publisher.PublishDisbursementRequest(ctx, req); err != nil {
		log.Error().
			Err(err).
			Str("customer_id", req.CustomerID).
			Str("offer_id", req.OfferID).
			Msg("disbursement request publish failed")
	}
}

func (e *Engine) compileTurnGraph(ctx context.Context) (compose.Runnable[contractx.TurnInput, graphOutput], error) {
	graph := compose.NewGraph[contractx.TurnInput, graphOutput]()

	if err := graph.AddLambdaNode("validate_request",
		compose.InvokableLambda(func(ctx context.Context, in contractx.TurnInput) (*graphState, error) {
			return validateRequest(in, e.now)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node validate_request: %w", err)
	}

	if err := graph.AddLambdaNode("load_or_create_session",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			return loadOrCreateSession(ctx, in, e.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node load_or_create_session: %w", err)
	}

	if err := graph.AddLambdaNode("terminal_ack",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (graphOutput, error) {
			return terminalAck(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node terminal_ack: %w", err)
	}

	if err := graph.AddLambdaNode("extract_fields",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			return extractFields(ctx, in, e.extractor)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node extract_fields: %w", err)
	}

	if err := graph.AddLambdaNode("merge_fields",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			return mergeFields(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node merge_fields: %w", err)
	}

	if err := graph.AddLambdaNode("dispatch_handler",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			return dispatchHandler(ctx, in, e.stages, e.handlers)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node dispatch_handler: %w", err)
	}

	if err := graph.AddLambdaNode("apply_transition",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			return applyTransition(in, e.stages)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node apply_transition: %w", err)
	}

	if err := graph.AddLambdaNode("enter_next_stage",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			return enterNextStage(ctx, in, e.stages, e.handlers)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node enter_next_stage: %w", err)
	}

	if err := graph.AddLambdaNode("persist_session",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (*graphState, error) {
			return persistSession(ctx, in, e.store)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node persist_session: %w", err)
	}

	if err := graph.AddLambdaNode("finalize_reply",
		compose.InvokableLambda(func(ctx context.Context, in *graphState) (graphOutput, error) {
			return finalizeReply(in)
		}),
	); err != nil {
		return nil, fmt.Errorf("add node finalize_reply: %w", err)
	}

	branch := compose.NewGraphBranch(
		func(ctx context.Context, in *graphState) (string, error) {
			if in == nil || in.Session == nil {
				return "", fmt.Errorf("%w: graph session is nil", contractx.ErrValidation)
			}
			if in.Session.Terminal {
				return "terminal_ack", nil
			}
			return "extract_fields", nil
		},
		map[string]bool{
			"terminal_ack":   true,
			"extract_fields": true,
		},
	)
	if err := graph.AddBranch("load_or_create_session", branch); err != nil {
		return nil, fmt.Errorf("add terminal branch: %w", err)
	}

	edges := [][2]string{
		{compose.START, "validate_request"},
		{"validate_request", "load_or_create_session"},
		{"extract_fields", "merge_fields"},
		{"merge_fields", "dispatch_handler"},
		{"dispatch_handler", "apply_transition"},
		{"apply_transition", "enter_next_stage"},
		{"enter_next_stage", "persist_session"},
		{"persist_session", "finalize_reply"},
		{"finalize_reply", compose.END},
		{"terminal_ack", compose.END},
	}
	for _, edge := range edges {
		if err := graph.AddEdge(edge[0], edge[1]); err != nil {
			return nil, fmt.Errorf("add edge %s->%s: %w", edge[0], edge[1], err)
		}
	}

	runner, err := graph.Compile(ctx, compose.WithGraphName("engine.process_turn"))
	if err != nil {
		return nil, fmt.Errorf("compile turn graph: %w", err)
	}
	return runner, nil
}

type noopSink struct{}

func (noopSink) Emit(contractx.TurnEvent) {}

type noopPublisher struct{}

func (noopPublisher) PublishDisbursementRequest(context.Context, contractx.DisbursementRequest) error {
	return nil
}
