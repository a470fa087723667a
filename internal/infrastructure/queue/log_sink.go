package queue

import (
	"context"

	"github.com/rs/zerolog"

	"github.com/99minutos/auth-service/internal/core/domain"
)

// LogSink writes events to the log. Used when no broker is configured.
type LogSink struct {
	log zerolog.Logger
}

func NewLogSink(log zerolog.Logger) *LogSink {
	return &LogSink{log: log}
}

func (s *LogSink) Send(_ context.Context, event domain.AuthEvent) error {
	s.log.Info().
		Str("event_id", event.ID).
		Str("event_type", string(event.Type)).
		Int64("user_id", event.UserID).
		Str("role", event.Role).
		Time("occurred_at", event.OccurredAt).
		Msg("auth event")
	return nil
}
