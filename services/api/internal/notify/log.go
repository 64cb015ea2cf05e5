package notify

import (
	"context"

	"github.com/rs/zerolog"
)

// Log writes notifications to the logger. It stands in for Telegram when no
// bot token is configured.
type Log struct {
	logger zerolog.Logger
}

func NewLog(logger zerolog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) NotifyBuyer(_ context.Context, buyerID, message string) error {
	l.logger.Info().Str("buyer_id", buyerID).Str("text", message).Msg("buyer notification")
	return nil
}

func (l *Log) NotifyOperators(_ context.Context, message string) error {
	l.logger.Info().Str("text", message).Msg("operator notification")
	return nil
}
