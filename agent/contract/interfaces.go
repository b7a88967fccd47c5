package contract

import "context"

// Extractor pulls typed fields out of a raw message for a given stage.
// Extraction is best-effort and partial: it returns whatever it can
// confidently parse and omits the rest. Given the same stage, message and
// attachments it must return the same patch.
type Extractor interface {
	Extract(ctx context.Context, stage Stage, message string, attachments []Attachment) (FieldPatch, error)
}

// Handler produces the reply for the stage it owns and, at OFFER, the loan
// offer artifact.
type Handler interface {
	Handle(ctx context.Context, req HandlerRequest) (HandlerResponse, error)
}

// Registry resolves the handler owning a role.
type Registry interface {
	PhotoVerifier() Handler
	BusinessCoach() Handler
	Underwriter() Handler
}

// EventSink receives per-turn telemetry. Implementations must not block.
type EventSink interface {
	Emit(event TurnEvent)
}

// DisbursementPublisher delivers the disbursement-requested event to the
// external disbursement pipeline.
type DisbursementPublisher interface {
	PublishDisbursementRequest(ctx context.Context, req DisbursementRequest) error
}
