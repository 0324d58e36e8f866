package model

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// RecordTypePayment marks a ledger entry as a zakat payment marker.
// Observation entries carry no type field at all.
const RecordTypePayment = "zakat_paid"

// HistoryRecord is one entry in the encrypted balance ledger. It is a
// two-variant union: a monthly balance observation, or a payment marker
// that resets streak computation. Markers carry no balance data.
type HistoryRecord struct {
	Type           string          `json:"type,omitempty"`
	TotalAssets    decimal.Decimal `json:"total_assets"`
	NisabThreshold decimal.Decimal `json:"nisab_threshold"`
	AboveNisab     bool            `json:"above_nisab"`
	HijriYear      int             `json:"hijri_year"`
	HijriMonth     int             `json:"hijri_month"`
	GregorianDate  string          `json:"gregorian_date"`
	Timestamp      time.Time       `json:"timestamp"`
}

// IsPaymentMarker reports whether the record is a payment marker rather
// than a balance observation.
func (r HistoryRecord) IsPaymentMarker() bool {
	return r.Type == RecordTypePayment
}

// paymentMarkerJSON is the wire shape of a marker entry: type, timestamp
// and date only.
type paymentMarkerJSON struct {
	Type          string    `json:"type"`
	Timestamp     time.Time `json:"timestamp"`
	GregorianDate string    `json:"gregorian_date"`
}

type observationJSON struct {
	TotalAssets    decimal.Decimal `json:"total_assets"`
	NisabThreshold decimal.Decimal `json:"nisab_threshold"`
	AboveNisab     bool            `json:"above_nisab"`
	HijriYear      int             `json:"hijri_year"`
	HijriMonth     int             `json:"hijri_month"`
	GregorianDate  string          `json:"gregorian_date"`
	Timestamp      time.Time       `json:"timestamp"`
}

// MarshalJSON keeps markers free of balance fields on the wire.
func (r HistoryRecord) MarshalJSON() ([]byte, error) {
	if r.IsPaymentMarker() {
		return json.Marshal(paymentMarkerJSON{
			Type:          r.Type,
			Timestamp:     r.Timestamp,
			GregorianDate: r.GregorianDate,
		})
	}
	return json.Marshal(observationJSON{
		TotalAssets:    r.TotalAssets,
		NisabThreshold: r.NisabThreshold,
		AboveNisab:     r.AboveNisab,
		HijriYear:      r.HijriYear,
		HijriMonth:     r.HijriMonth,
		GregorianDate:  r.GregorianDate,
		Timestamp:      r.Timestamp,
	})
}

// UnmarshalJSON discriminates on the "type" field.
func (r *HistoryRecord) UnmarshalJSON(data []byte) error {
	var probe struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return err
	}
	if probe.Type == RecordTypePayment {
		var m paymentMarkerJSON
		if err := json.Unmarshal(data, &m); err != nil {
			return err
		}
		*r = HistoryRecord{Type: m.Type, Timestamp: m.Timestamp, GregorianDate: m.GregorianDate}
		return nil
	}
	if probe.Type != "" {
		return fmt.Errorf("unknown history record type %q", probe.Type)
	}
	var o observationJSON
	if err := json.Unmarshal(data, &o); err != nil {
		return err
	}
	*r = HistoryRecord{
		TotalAssets:    o.TotalAssets,
		NisabThreshold: o.NisabThreshold,
		AboveNisab:     o.AboveNisab,
		HijriYear:      o.HijriYear,
		HijriMonth:     o.HijriMonth,
		GregorianDate:  o.GregorianDate,
		Timestamp:      o.Timestamp,
	}
	return nil
}

// YearProgressOverride is a manually configured credit of prior months
// above nisab, for users migrating from informal tracking. It only
// applies while the current streak is nonzero; a broken streak always
// resets to zero. It is never auto-cleared.
type YearProgressOverride struct {
	Enabled          bool   `json:"enabled"`
	MonthsAboveNisab int    `json:"months_above_nisab"`
	AsOfHijriDate    string `json:"as_of_hijri_date"`
}
