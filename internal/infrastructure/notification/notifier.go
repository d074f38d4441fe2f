// Package notification delivers generated documents to their recipients.
package notification

import (
	"context"

	appdocument "github.com/buildops/backoffice/internal/application/document"
	"github.com/buildops/backoffice/internal/infrastructure/config"
	"go.uber.org/zap"
)

// New returns an SMTP notifier, or a LogNotifier when no mail host is
// configured.
func New(cfg config.MailConfig, logger *zap.Logger) (appdocument.Notifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Host == "" {
		logger.Warn("Mail host not configured, documents will be logged instead of sent")
		return NewLogNotifier(logger), nil
	}
	return NewSMTPNotifier(cfg, logger)
}

// LogNotifier writes dispatches to the log. Used in development.
type LogNotifier struct {
	logger *zap.Logger
}

func NewLogNotifier(logger *zap.Logger) *LogNotifier {
	return &LogNotifier{logger: logger}
}

func (n *LogNotifier) SendDocument(ctx context.Context, msg appdocument.DocumentMessage) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	n.logger.Info("Document dispatch (log only)",
		zap.String("to", msg.To),
		zap.String("document_type", msg.DocumentType.String()),
		zap.String("document_number", msg.DocumentNumber),
		zap.String("project_ref", msg.ProjectRef),
		zap.String("file_url", msg.FileURL))
	return nil
}

var _ appdocument.Notifier = (*LogNotifier)(nil)
