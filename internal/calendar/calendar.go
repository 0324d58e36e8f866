// Package calendar handles the DD.MM.YYYY Gregorian dates used across
// bank statements and the ledger, and their Hijri (Umm al-Qura)
// conversion for the lunar-year bookkeeping.
package calendar

import (
	"errors"
	"fmt"
	"regexp"
	"time"

	"github.com/hablullah/go-hijri"
)

// ErrInvalidDate means a date string is not a real, zero-padded
// DD.MM.YYYY calendar date. Malformed dates are rejected before any
// state is touched.
var ErrInvalidDate = errors.New("calendar: invalid date, expected DD.MM.YYYY")

// GregorianLayout is the date layout used everywhere in the ledger.
const GregorianLayout = "02.01.2006"

var gregorianRe = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}$`)

// HijriDate is a date in the Islamic lunar calendar.
type HijriDate struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// ParseGregorian strictly parses a zero-padded DD.MM.YYYY date.
func ParseGregorian(s string) (time.Time, error) {
	if !gregorianRe.MatchString(s) {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	t, err := time.Parse(GregorianLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	// time.Parse normalizes out-of-range components (e.g. 32.01 -> 01.02);
	// round-tripping catches those.
	if t.Format(GregorianLayout) != s {
		return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, s)
	}
	return t, nil
}

// FormatGregorian renders a time as DD.MM.YYYY.
func FormatGregorian(t time.Time) string {
	return t.Format(GregorianLayout)
}

// ToHijri converts a Gregorian date to the Umm al-Qura Hijri calendar.
func ToHijri(t time.Time) (HijriDate, error) {
	h, err := hijri.CreateUmmAlQuraDate(t)
	if err != nil {
		return HijriDate{}, fmt.Errorf("convert %s to hijri: %w", FormatGregorian(t), err)
	}
	return HijriDate{Year: int(h.Year), Month: int(h.Month), Day: int(h.Day)}, nil
}

// SameHijriMonth reports whether two instants fall in the same Hijri
// month of the same Hijri year. Used for missed-run detection.
func SameHijriMonth(a, b time.Time) bool {
	ha, errA := ToHijri(a)
	hb, errB := ToHijri(b)
	if errA != nil || errB != nil {
		return false
	}
	return ha.Year == hb.Year && ha.Month == hb.Month
}

// Latest returns the latest of the given DD.MM.YYYY dates by calendar
// comparison, never by string comparison.
func Latest(dates []string) (string, error) {
	var (
		best    time.Time
		bestStr string
	)
	for _, s := range dates {
		t, err := ParseGregorian(s)
		if err != nil {
			return "", err
		}
		if bestStr == "" || t.After(best) {
			best = t
			bestStr = s
		}
	}
	if bestStr == "" {
		return "", fmt.Errorf("%w: no dates given", ErrInvalidDate)
	}
	return bestStr, nil
}
