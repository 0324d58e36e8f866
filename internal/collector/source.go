// Package collector acquires bank statement readings and normalizes
// them into one total-assets figure in the reference currency. Sources
// (IMAP mailboxes holding ProCredit statement emails) degrade
// per-account: a missing statement contributes zero without failing
// the run; only a run with no readings at all is an error.
package collector

import (
	"context"

	"github.com/shopspring/decimal"
)

// AccountPair is one BAM/EUR account pair monitored within a source.
// Either account may be empty.
type AccountPair struct {
	BAMAccount string
	EURAccount string
}

// SourceConfig holds the explicit credentials for one statement
// mailbox. It is passed directly to the source; nothing reads process
// environment.
type SourceConfig struct {
	Label        string
	IMAPServer   string
	IMAPPort     int
	Email        string
	Password     string
	AccountPairs []AccountPair
}

// Source produces raw account readings for one mailbox.
type Source interface {
	Name() string
	Fetch(ctx context.Context) ([]RawReading, error)
}

// RawReading is one account's statement extraction before currency
// conversion. Found=false means no usable statement was obtained.
type RawReading struct {
	Source      string
	Account     string
	Currency    string
	Balance     decimal.Decimal
	PeriodStart string
	PeriodEnd   string
	Found       bool
}
