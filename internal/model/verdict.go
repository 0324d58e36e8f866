package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// Nisab resolution sources.
const (
	NisabSourceAuthoritative = "authoritative"
	NisabSourceFallback      = "fallback"
)

// NisabResolution is the outcome of resolving the current nisab
// threshold. Resolution never fails: on any fetch or parse problem the
// configured fallback value is used and Source says so.
type NisabResolution struct {
	Value     decimal.Decimal `json:"value"`
	Source    string          `json:"source"`
	URL       string          `json:"url,omitempty"`
	FetchedAt time.Time       `json:"fetched_at"`
}

// Verdict is the result of one eligibility run. It is derived and never
// mutated; every run produces a fresh one.
type Verdict struct {
	RunID                       string          `json:"run_id"`
	BankBalance                 decimal.Decimal `json:"bank_balance"`
	AdditionalAssets            decimal.Decimal `json:"additional_assets"`
	TotalAssets                 decimal.Decimal `json:"total_assets"`
	NisabThreshold              decimal.Decimal `json:"nisab_threshold"`
	NisabSource                 string          `json:"nisab_source"`
	AboveNisab                  bool            `json:"above_nisab"`
	ConsecutiveMonthsAboveNisab int             `json:"consecutive_months_above_nisab"`
	HijriYearComplete           bool            `json:"hijri_year_complete"`
	ZakatDue                    bool            `json:"zakat_due"`
	ZakatAmount                 decimal.Decimal `json:"zakat_amount"`
	ObservationDate             string          `json:"observation_date"`
	HijriYear                   int             `json:"hijri_year"`
	HijriMonth                  int             `json:"hijri_month"`
	Readings                    []AccountReading `json:"readings,omitempty"`
	GeneratedAt                 time.Time       `json:"generated_at"`
}
