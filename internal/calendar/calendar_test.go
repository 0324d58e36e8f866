package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGregorianStrict(t *testing.T) {
	valid := []string{"01.01.2025", "29.02.2024", "31.12.1999", "15.06.2025"}
	for _, s := range valid {
		got, err := ParseGregorian(s)
		require.NoError(t, err, s)
		assert.Equal(t, s, FormatGregorian(got))
	}

	invalid := []string{
		"",
		"1.1.2025",    // not zero-padded
		"2025-01-01",  // wrong separator
		"32.01.2025",  // no such day
		"29.02.2025",  // not a leap year
		"00.01.2025",  // day zero
		"15.13.2025",  // no such month
		"15.06.25",    // two-digit year
		"ab.cd.efgh",
		"15.06.2025x",
	}
	for _, s := range invalid {
		_, err := ParseGregorian(s)
		assert.ErrorIs(t, err, ErrInvalidDate, "%q should be rejected", s)
	}
}

func TestToHijri(t *testing.T) {
	// 01.01.2025 falls in Rajab 1446 in the Umm al-Qura calendar.
	g, err := ParseGregorian("01.01.2025")
	require.NoError(t, err)
	h, err := ToHijri(g)
	require.NoError(t, err)
	assert.Equal(t, 1446, h.Year)
	assert.Equal(t, 7, h.Month)
}

func TestSameHijriMonth(t *testing.T) {
	day := func(s string) time.Time {
		d, err := ParseGregorian(s)
		require.NoError(t, err)
		return d
	}

	// Two consecutive Gregorian days within one Hijri month.
	assert.True(t, SameHijriMonth(day("02.01.2025"), day("03.01.2025")))

	// A full Gregorian month apart is always a different Hijri month.
	assert.False(t, SameHijriMonth(day("02.01.2025"), day("02.02.2025")))
}

func TestLatest(t *testing.T) {
	// String comparison would pick 30.01.2025; calendar comparison must
	// pick 02.03.2025.
	got, err := Latest([]string{"30.01.2025", "02.03.2025", "15.02.2025"})
	require.NoError(t, err)
	assert.Equal(t, "02.03.2025", got)

	_, err = Latest(nil)
	assert.ErrorIs(t, err, ErrInvalidDate)

	_, err = Latest([]string{"01.01.2025", "bogus"})
	assert.ErrorIs(t, err, ErrInvalidDate)
}
