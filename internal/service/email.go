package service

import (
	"context"

	"go.uber.org/zap"
)

// LogEmailSender is the default EmailSender: it records that a mail would
// have been sent. Real delivery is an external collaborator.
type LogEmailSender struct {
	logger *zap.Logger
}

func NewLogEmailSender(logger *zap.Logger) *LogEmailSender {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &LogEmailSender{logger: logger}
}

func (s *LogEmailSender) Send(ctx context.Context, to, subject, body string) error {
	s.logger.Info("email queued",
		zap.String("to", to),
		zap.String("subject", subject),
	)
	return nil
}
