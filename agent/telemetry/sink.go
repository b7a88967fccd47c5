// Package telemetry emits structured per-turn events to the observability
// sink. Emission never blocks or fails a turn.
package telemetry

import (
	"github.com/rs/zerolog"

	contractx "github.com/lucy-fin/lucy-agent/agent/contract"
)

// ZerologSink writes turn events as structured log lines.
type ZerologSink struct {
	logger zerolog.Logger
}

var _ contractx.EventSink = (*ZerologSink)(nil)

func NewZerologSink(logger zerolog.Logger) *ZerologSink {
	return &ZerologSink{logger: logger}
}

func (s *ZerologSink) Emit(event contractx.TurnEvent) {
	s.logger.Info().
		Str("turn_id", event.TurnID).
		Str("customer_id", event.CustomerID).
		Str("stage_before", string(event.StageBefore)).
		Str("stage_after", string(event.StageAfter)).
		Str("role", string(event.Role)).
		Strs("extracted", event.Extracted).
		Bool("advanced", event.Advanced).
		Bool("terminal", event.Terminal).
		Dur("duration", event.Duration).
		Time("at", event.At).
		Msg("turn processed")
}
