package recorder

import (
	"path/filepath"
	"testing"
	"time"

	"ZakatSentinel/internal/model"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSQLiteRecorder(t *testing.T) {
	r, err := NewSQLiteRecorder(filepath.Join(t.TempDir(), "audit.db"))
	require.NoError(t, err)
	defer r.Close()

	now := time.Now()
	require.NoError(t, r.RecordRun(&RunRecord{
		Verdict: model.Verdict{
			RunID:                       "run-1",
			BankBalance:                 decimal.RequireFromString("20000"),
			TotalAssets:                 decimal.RequireFromString("20500"),
			NisabThreshold:              decimal.RequireFromString("24624"),
			NisabSource:                 model.NisabSourceFallback,
			ConsecutiveMonthsAboveNisab: 3,
			ObservationDate:             "31.01.2025",
			HijriYear:                   1446,
			HijriMonth:                  7,
			ZakatAmount:                 decimal.Zero,
		},
		StartedAt:  now,
		FinishedAt: now.Add(30 * time.Second),
	}))

	require.NoError(t, r.RecordPayment(&PaymentRecord{Date: "15.01.2025", RecordedAt: now}))
	require.NoError(t, r.RecordNisabFetch(model.NisabResolution{
		Value:     decimal.RequireFromString("24624"),
		Source:    model.NisabSourceAuthoritative,
		URL:       "https://zekat.ba",
		FetchedAt: now,
	}))

	var total decimal.Decimal
	var totalStr string
	var months int
	row := r.db.QueryRow(`SELECT total_assets, consecutive_months FROM analysis_runs WHERE run_id = ?`, "run-1")
	require.NoError(t, row.Scan(&totalStr, &months))
	total = decimal.RequireFromString(totalStr)
	assert.True(t, total.Equal(decimal.RequireFromString("20500")))
	assert.Equal(t, 3, months)

	var count int
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM payment_events`).Scan(&count))
	assert.Equal(t, 1, count)
	require.NoError(t, r.db.QueryRow(`SELECT COUNT(*) FROM nisab_fetches`).Scan(&count))
	assert.Equal(t, 1, count)
}
