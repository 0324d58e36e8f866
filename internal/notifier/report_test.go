package notifier

import (
	"strings"
	"testing"
	"time"

	"ZakatSentinel/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleVerdict(due bool) model.Verdict {
	v := model.Verdict{
		RunID:                       "run-1",
		BankBalance:                 decimal.RequireFromString("26000"),
		AdditionalAssets:            decimal.RequireFromString("500"),
		TotalAssets:                 decimal.RequireFromString("26500"),
		NisabThreshold:              decimal.RequireFromString("24624"),
		NisabSource:                 model.NisabSourceAuthoritative,
		AboveNisab:                  true,
		ConsecutiveMonthsAboveNisab: 5,
		ObservationDate:             "31.01.2025",
		HijriYear:                   1446,
		HijriMonth:                  7,
		GeneratedAt:                 time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC),
		Readings: []model.AccountReading{
			{
				Source: "personal", Account: "1234567890", Currency: "BAM",
				Balance: decimal.RequireFromString("20000"), Converted: decimal.RequireFromString("20000"),
				ConvertedTo: "BAM", Found: true,
			},
			{Source: "personal", Account: "0987654321", Currency: "EUR", Found: false},
		},
	}
	if due {
		v.ConsecutiveMonthsAboveNisab = 12
		v.HijriYearComplete = true
		v.ZakatDue = true
		v.ZakatAmount = decimal.RequireFromString("662.50")
	}
	return v
}

func TestSubject(t *testing.T) {
	assert.Equal(t, "Zekat Report - 01/2025", Subject(sampleVerdict(false)))
	assert.Equal(t, "Zekat Due Now - Zekat Report - 01/2025", Subject(sampleVerdict(true)))
}

func TestRenderReportMasksAccounts(t *testing.T) {
	html, err := RenderReport(sampleVerdict(false), "BAM")
	require.NoError(t, err)

	assert.NotContains(t, html, "1234567890", "full account numbers must never appear")
	assert.Contains(t, html, "****7890")
	assert.Contains(t, html, "no statement found")
	assert.Contains(t, html, "5 of 12 consecutive months")
	assert.Contains(t, html, "24,624.00 BAM")
}

func TestRenderReportDueBlock(t *testing.T) {
	html, err := RenderReport(sampleVerdict(true), "BAM")
	require.NoError(t, err)
	assert.Contains(t, html, "Zakat Is Due")
	assert.Contains(t, html, "662.50 BAM")
	assert.Contains(t, html, `width: 100%`)
}

func TestRenderReportNotDue(t *testing.T) {
	html, err := RenderReport(sampleVerdict(false), "BAM")
	require.NoError(t, err)
	assert.NotContains(t, html, "Zakat Is Due")
	assert.True(t, strings.Contains(html, "not yet due"))
}
