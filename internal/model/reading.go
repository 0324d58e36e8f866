package model

import "github.com/shopspring/decimal"

// AccountReading is one bank account's extracted statement balance.
// Found is false when no usable statement was obtained for the account;
// the reading then contributes zero to the total instead of failing the
// whole run.
type AccountReading struct {
	Source      string          `json:"source"`
	Account     string          `json:"account"`
	Currency    string          `json:"currency"`
	Balance     decimal.Decimal `json:"balance"`
	ConvertedTo string          `json:"converted_to,omitempty"`
	Converted   decimal.Decimal `json:"converted"`
	PeriodStart string          `json:"period_start,omitempty"`
	PeriodEnd   string          `json:"period_end,omitempty"`
	Found       bool            `json:"found"`
}

// CombinedBalance is the normalizer's output: all per-account readings
// folded into one total in the reference currency, dated by the latest
// statement period end across contributing readings.
type CombinedBalance struct {
	BankBalance     decimal.Decimal  `json:"bank_balance"`
	ObservationDate string           `json:"observation_date"`
	Readings        []AccountReading `json:"readings"`
}
