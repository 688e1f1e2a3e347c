package notification

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"time"

	"github.com/rollforge/tavernkeep/pkg/mailqueue"
	"github.com/wneessen/go-mail"
)

// SMTPConfig holds the connection settings for the outbound mail server.
type SMTPConfig struct {
	Host     string
	Port     int
	TLS      bool
	Username string
	Password string
	Subject  string
}

// EmailNotifier delivers queued messages over SMTP. It satisfies the
// mailqueue.Sender interface; retry policy lives in the dispatch worker, a
// single Send is one delivery attempt.
type EmailNotifier struct {
	SMTPConfig SMTPConfig
	client     *mail.Client
}

func NewEmailNotifier(config SMTPConfig) (*EmailNotifier, error) {
	opts := []mail.Option{
		mail.WithPort(config.Port),
		mail.WithTimeout(30 * time.Second),
	}

	// Only add authentication if username and password are provided
	if config.Username != "" && config.Password != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthLogin),
			mail.WithUsername(config.Username),
			mail.WithPassword(config.Password),
		)
	}

	if !config.TLS {
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{
				InsecureSkipVerify: true,
			}),
			mail.WithTLSPolicy(mail.NoTLS),
		)
	} else {
		opts = append(opts,
			mail.WithTLSConfig(&tls.Config{
				InsecureSkipVerify: true,
			}),
			mail.WithTLSPolicy(mail.TLSMandatory),
		)
	}

	slog.Info("Creating mail client", "Host", config.Host, "Port", config.Port)
	client, err := mail.NewClient(config.Host, opts...)
	if err != nil {
		slog.Error("Failed to create mail client", "err", err)
		return nil, err
	}

	return &EmailNotifier{SMTPConfig: config, client: client}, nil
}

// Send performs one delivery attempt for the given queued message.
func (e *EmailNotifier) Send(ctx context.Context, msg mailqueue.Message) error {
	if msg.RecipientEmail == "" {
		return fmt.Errorf("queued message %s has no recipient", msg.ID)
	}

	m := mail.NewMsg()
	if err := m.From(msg.SenderEmail); err != nil {
		slog.Error("Failed to set from address", "err", err)
		return err
	}
	if err := m.To(msg.RecipientEmail); err != nil {
		slog.Error("Failed to set to address", "err", err)
		return err
	}
	m.Subject(e.SMTPConfig.Subject)
	m.SetBodyString(mail.TypeTextHTML, msg.Body)

	if err := e.client.DialAndSendWithContext(ctx, m); err != nil {
		slog.Error("Failed to send email", "err", err)
		return err
	}

	slog.Info("Email sent successfully", "to", msg.RecipientEmail, "host", e.SMTPConfig.Host, "port", e.SMTPConfig.Port)
	return nil
}
