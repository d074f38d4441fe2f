package notification

import (
	"context"
	"fmt"
	"strings"
	"text/template"

	appdocument "github.com/buildops/backoffice/internal/application/document"
	"github.com/buildops/backoffice/internal/domain/document"
	"github.com/buildops/backoffice/internal/infrastructure/config"
	"github.com/wneessen/go-mail"
	"go.uber.org/zap"
)

var bodyTemplate = template.Must(template.New("document").Parse(`Hello,

Please find your {{.Kind}} {{.DocumentNumber}} for project {{.ProjectRef}} at:

{{.FileURL}}

Reply to this email if you have any questions.
`))

var documentKinds = map[document.DocumentType]string{
	document.DocumentTypeInvoice:     "invoice",
	document.DocumentTypeQuote:       "quote",
	document.DocumentTypeCertificate: "completion certificate",
}

// SMTPNotifier mails a link to the generated document
type SMTPNotifier struct {
	client *mail.Client
	from   string
	logger *zap.Logger
}

// NewSMTPNotifier creates a notifier for cfg. No connection is opened until
// the first send.
func NewSMTPNotifier(cfg config.MailConfig, logger *zap.Logger) (*SMTPNotifier, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("mail from address is required")
	}
	policy, err := parseTLSPolicy(cfg.TLSPolicy)
	if err != nil {
		return nil, err
	}

	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(policy),
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}
	return &SMTPNotifier{client: client, from: cfg.From, logger: logger}, nil
}

// SendDocument mails msg. Any failure is returned to the caller, which
// records it on the generation.
func (n *SMTPNotifier) SendDocument(ctx context.Context, msg appdocument.DocumentMessage) error {
	m, err := n.buildMessage(msg)
	if err != nil {
		return err
	}
	if err := n.client.DialAndSendWithContext(ctx, m); err != nil {
		n.logger.Warn("Failed to send document email",
			zap.String("to", msg.To),
			zap.String("document_number", msg.DocumentNumber),
			zap.Error(err))
		return fmt.Errorf("smtp send: %w", err)
	}
	n.logger.Info("Document email sent",
		zap.String("to", msg.To),
		zap.String("document_number", msg.DocumentNumber))
	return nil
}

func (n *SMTPNotifier) buildMessage(msg appdocument.DocumentMessage) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(n.from); err != nil {
		return nil, fmt.Errorf("invalid from address %q: %w", n.from, err)
	}
	if err := m.To(msg.To); err != nil {
		return nil, fmt.Errorf("invalid recipient %q: %w", msg.To, err)
	}

	kind := documentKinds[msg.DocumentType]
	if kind == "" {
		kind = "document"
	}
	m.Subject(fmt.Sprintf("Your %s %s (%s)", kind, msg.DocumentNumber, msg.ProjectRef))

	data := struct {
		appdocument.DocumentMessage
		Kind string
	}{msg, kind}
	if err := m.SetBodyTextTemplate(bodyTemplate, data); err != nil {
		return nil, fmt.Errorf("failed to render email body: %w", err)
	}
	return m, nil
}

func parseTLSPolicy(s string) (mail.TLSPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "mandatory":
		return mail.TLSMandatory, nil
	case "opportunistic":
		return mail.TLSOpportunistic, nil
	case "none":
		return mail.NoTLS, nil
	default:
		return mail.NoTLS, fmt.Errorf("unknown mail TLS policy %q", s)
	}
}

var _ appdocument.Notifier = (*SMTPNotifier)(nil)
