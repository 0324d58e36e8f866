package notifier

import (
	"context"
	"fmt"
	"time"

	"ZakatSentinel/internal/config"
	"ZakatSentinel/internal/mask"

	"github.com/rs/zerolog/log"
	"gopkg.in/gomail.v2"
)

// Mailer delivers the monthly report over SMTP with STARTTLS. A mailer
// with no SMTP server configured skips delivery with a warning; report
// delivery never fails an analysis run.
type Mailer struct {
	cfg config.ReportDelivery
}

// NewMailer creates a Mailer from the profile's delivery settings.
func NewMailer(cfg config.ReportDelivery) *Mailer {
	return &Mailer{cfg: cfg}
}

// Configured reports whether delivery settings are present.
func (m *Mailer) Configured() bool {
	return m.cfg.SMTPServer != "" && m.cfg.To != ""
}

// Send delivers one HTML report.
func (m *Mailer) Send(subject, htmlBody string) error {
	if !m.Configured() {
		log.Warn().Msg("smtp not configured, skipping report delivery")
		return nil
	}

	msg := gomail.NewMessage()
	from := m.cfg.From
	if from == "" {
		from = m.cfg.Username
	}
	msg.SetHeader("From", from)
	msg.SetHeader("To", m.cfg.To)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	port := m.cfg.SMTPPort
	if port == 0 {
		port = 587
	}
	dialer := gomail.NewDialer(m.cfg.SMTPServer, port, m.cfg.Username, m.cfg.Password)

	if err := dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send report to %s: %w", mask.Email(m.cfg.To), err)
	}
	log.Info().Str("to", mask.Email(m.cfg.To)).Str("subject", subject).Msg("report delivered")
	return nil
}

// SendWithRetry sends a report with exponential backoff retry.
func (m *Mailer) SendWithRetry(ctx context.Context, subject, htmlBody string, maxRetries int) error {
	var lastErr error
	for i := 0; i <= maxRetries; i++ {
		if err := m.Send(subject, htmlBody); err != nil {
			lastErr = err
			backoff := time.Duration(1<<uint(i)) * time.Second
			log.Warn().
				Int("attempt", i+1).
				Int("max", maxRetries+1).
				Dur("backoff", backoff).
				Err(err).
				Msg("report delivery failed, retrying")
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
				continue
			}
		}
		return nil
	}
	return fmt.Errorf("all %d retries exhausted: %w", maxRetries+1, lastErr)
}
