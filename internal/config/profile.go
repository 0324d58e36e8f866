package config

import (
	"encoding/json"
	"fmt"

	"ZakatSentinel/internal/model"
	"ZakatSentinel/internal/securefile"

	"github.com/shopspring/decimal"
)

// AccountPair is one BAM/EUR account pair within an email source.
type AccountPair struct {
	BAMAccount string `json:"bam_account,omitempty"`
	EURAccount string `json:"eur_account,omitempty"`
}

// EmailSource holds the credentials for one statement mailbox. Sources
// are explicit structs handed to the collector; nothing is read from
// process environment.
type EmailSource struct {
	ID           string        `json:"id"`
	Label        string        `json:"label,omitempty"`
	IMAPServer   string        `json:"imap_server"`
	IMAPPort     int           `json:"imap_port"`
	Email        string        `json:"email"`
	Password     string        `json:"password"`
	AccountPairs []AccountPair `json:"account_pairs"`
}

// ReportDelivery is the outbound SMTP configuration for the monthly
// report email. All fields empty means delivery is skipped.
type ReportDelivery struct {
	SMTPServer string `json:"smtp_server,omitempty"`
	SMTPPort   int    `json:"smtp_port,omitempty"`
	Username   string `json:"username,omitempty"`
	Password   string `json:"password,omitempty"`
	From       string `json:"from,omitempty"`
	To         string `json:"to,omitempty"`
}

// Profile is the encrypted-at-rest user profile: mailbox credentials,
// monitored accounts, report delivery, extra assets, and the one-time
// year progress override.
type Profile struct {
	EmailSources     []EmailSource               `json:"email_sources"`
	ReportDelivery   ReportDelivery              `json:"report_delivery"`
	AdditionalAssets decimal.Decimal             `json:"additional_assets"`
	YearProgress     *model.YearProgressOverride `json:"year_progress_override,omitempty"`
}

// Validate checks profile consistency before it is sealed.
func (p *Profile) Validate() error {
	if len(p.EmailSources) == 0 {
		return fmt.Errorf("at least one email source is required")
	}
	for i, src := range p.EmailSources {
		if src.IMAPServer == "" || src.Email == "" || src.Password == "" {
			return fmt.Errorf("email source %d: imap_server, email and password are required", i)
		}
		if len(src.AccountPairs) == 0 {
			return fmt.Errorf("email source %d: at least one account pair is required", i)
		}
	}
	if p.YearProgress != nil {
		if m := p.YearProgress.MonthsAboveNisab; m < 0 || m > 11 {
			return fmt.Errorf("year_progress_override.months_above_nisab must be in [0,11], got %d", m)
		}
	}
	return nil
}

// LoadProfile opens and decrypts the profile. A wrong master password
// surfaces as securefile.ErrDecryptFailed.
func LoadProfile(path string, password []byte) (*Profile, error) {
	plaintext, err := securefile.Open(path, password)
	if err != nil {
		return nil, fmt.Errorf("open profile: %w", err)
	}
	var p Profile
	if err := json.Unmarshal(plaintext, &p); err != nil {
		return nil, fmt.Errorf("parse profile: %w", err)
	}
	return &p, nil
}

// SaveProfile validates, encrypts, and atomically writes the profile.
func SaveProfile(path string, password []byte, p *Profile) error {
	if err := p.Validate(); err != nil {
		return err
	}
	plaintext, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize profile: %w", err)
	}
	if err := securefile.Seal(path, password, plaintext); err != nil {
		return fmt.Errorf("seal profile: %w", err)
	}
	return nil
}
