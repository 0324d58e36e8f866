// Package recorder keeps an optional local audit trail of analysis
// runs, payments, and nisab fetches. Recording failures are logged by
// callers and never fail the run that produced them.
package recorder

import (
	"time"

	"ZakatSentinel/internal/model"
)

// RunRecord is one completed analysis run.
type RunRecord struct {
	Verdict    model.Verdict
	StartedAt  time.Time
	FinishedAt time.Time
}

// PaymentRecord is one recorded zakat payment marker.
type PaymentRecord struct {
	Date       string
	RecordedAt time.Time
}

// Recorder persists audit events.
type Recorder interface {
	RecordRun(rec *RunRecord) error
	RecordPayment(rec *PaymentRecord) error
	RecordNisabFetch(res model.NisabResolution) error
	Close() error
}
