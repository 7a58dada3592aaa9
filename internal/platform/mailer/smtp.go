package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/smtp"
	"strings"
	"time"

	"github.com/colehouse/taskline/internal/config"
	"github.com/colehouse/taskline/internal/platform/logger"
	"github.com/colehouse/taskline/internal/service"
)

// dialTimeout bounds the SMTP connection attempt so a dead relay cannot
// stall the completion request for long. Delivery failure is non-fatal for
// the caller either way.
const dialTimeout = 10 * time.Second

// SMTPNotifier implements the service.Notifier interface by delivering
// task-completion emails over SMTP.
type SMTPNotifier struct {
	cfg    config.SMTPConfig
	logger *slog.Logger
}

// NewSMTPNotifier creates a new SMTP-backed notifier from the given
// configuration. If logger is nil, a default logger will be used.
func NewSMTPNotifier(cfg config.SMTPConfig, logger *slog.Logger) *SMTPNotifier {
	if logger == nil {
		logger = slog.Default()
	}

	return &SMTPNotifier{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "smtp_notifier")),
	}
}

// Ensure SMTPNotifier implements service.Notifier interface
var _ service.Notifier = (*SMTPNotifier)(nil)

// Send implements service.Notifier.Send
// It delivers a "task completed" email to the given recipient. The caller
// treats any returned error as best-effort and only logs it.
func (n *SMTPNotifier) Send(ctx context.Context, recipient, title, description string) error {
	log := logger.FromContextOrDefault(ctx, n.logger)

	addr := net.JoinHostPort(n.cfg.Host, fmt.Sprintf("%d", n.cfg.Port))

	conn, err := net.DialTimeout("tcp", addr, dialTimeout)
	if err != nil {
		return fmt.Errorf("failed to connect to SMTP server: %w", err)
	}

	client, err := smtp.NewClient(conn, n.cfg.Host)
	if err != nil {
		_ = conn.Close()
		return fmt.Errorf("failed to create SMTP client: %w", err)
	}
	defer func() {
		if err := client.Close(); err != nil {
			log.Debug("failed to close SMTP client", slog.String("error", err.Error()))
		}
	}()

	if n.cfg.Username != "" {
		auth := smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
		if ok, _ := client.Extension("AUTH"); ok {
			if err := client.Auth(auth); err != nil {
				return fmt.Errorf("SMTP authentication failed: %w", err)
			}
		}
	}

	if err := client.Mail(n.cfg.From); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	if err := client.Rcpt(recipient); err != nil {
		return fmt.Errorf("failed to set recipient: %w", err)
	}

	wc, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to open message body: %w", err)
	}
	if _, err := wc.Write([]byte(buildMessage(n.cfg.From, recipient, title, description))); err != nil {
		_ = wc.Close()
		return fmt.Errorf("failed to write message body: %w", err)
	}
	if err := wc.Close(); err != nil {
		return fmt.Errorf("failed to finish message body: %w", err)
	}

	if err := client.Quit(); err != nil {
		return fmt.Errorf("failed to close SMTP session: %w", err)
	}

	log.Info("completion email sent",
		slog.String("task_title", title))
	return nil
}

// buildMessage renders the completion email as an RFC 5322 message.
func buildMessage(from, to, title, description string) string {
	var b strings.Builder
	b.WriteString("From: " + from + "\r\n")
	b.WriteString("To: " + to + "\r\n")
	b.WriteString("Subject: Task Completed: " + title + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/plain; charset=UTF-8\r\n")
	b.WriteString("\r\n")
	b.WriteString("Your task has been marked as completed.\r\n\r\n")
	b.WriteString("Title: " + title + "\r\n")
	if description != "" {
		b.WriteString("Description: " + description + "\r\n")
	}
	return b.String()
}
