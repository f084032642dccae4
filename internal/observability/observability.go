// Package observability is the abstract event-sink collaborator of
// spec.md §6.6: structured event emission for every state transition and
// every message sent/received. Omitting a sink must not affect behavior:
// the app wiring hands every agent the logging sink below, and each agent
// constructor substitutes NopSink for a nil sink, much as the teacher
// injects a nil-safe *logging.Logger into every service constructor.
package observability

import (
	"context"

	"go.uber.org/zap"

	"github.com/league-agents/core/internal/platform/logging"
)

// Event is one structured occurrence worth recording: a state
// transition or a message send/receive.
type Event struct {
	Kind      string // "state_transition" | "message_sent" | "message_received"
	LeagueID  string
	MatchID   string
	RoundID   string
	FromState string
	ToState   string
	Peer      string
	Fields    map[string]string
}

// Sink receives Events. Implementations must not block the caller for
// long; the logging sink below is synchronous but cheap.
type Sink interface {
	Record(ctx context.Context, event Event)
}

// LoggingSink is the default Sink: one structured zap log line per
// Event. It satisfies the observability-sink contract even when no
// external sink is wired, per spec.md §9 ("a default no-op sink
// suffices" — here the default is a real, if minimal, sink).
type LoggingSink struct {
	logger *logging.Logger
}

// NewLoggingSink builds a LoggingSink; a nil logger falls back to
// logging.Default(), mirroring the teacher's nil-safe logger pattern.
func NewLoggingSink(logger *logging.Logger) *LoggingSink {
	if logger == nil {
		logger = logging.Default()
	}
	return &LoggingSink{logger: logger}
}

func (s *LoggingSink) Record(ctx context.Context, event Event) {
	fields := []zap.Field{
		zap.String("event_kind", event.Kind),
		zap.String("league_id", event.LeagueID),
	}
	if event.MatchID != "" {
		fields = append(fields, zap.String("match_id", event.MatchID))
	}
	if event.RoundID != "" {
		fields = append(fields, zap.String("round_id", event.RoundID))
	}
	if event.FromState != "" {
		fields = append(fields, zap.String("from_state", event.FromState))
	}
	if event.ToState != "" {
		fields = append(fields, zap.String("to_state", event.ToState))
	}
	if event.Peer != "" {
		fields = append(fields, zap.String("peer", event.Peer))
	}
	for k, v := range event.Fields {
		fields = append(fields, zap.String(k, v))
	}
	s.logger.InfoContext(ctx, "league event", fields...)
}

// NopSink discards every Event; useful in tests that assert on
// repository/agent state directly and don't care about the event log.
type NopSink struct{}

func (NopSink) Record(context.Context, Event) {}
