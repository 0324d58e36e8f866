package ledger

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"ZakatSentinel/internal/model"
	"ZakatSentinel/internal/securefile"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func observation(date string, ts time.Time, above bool) model.HistoryRecord {
	return model.HistoryRecord{
		TotalAssets:    decimal.RequireFromString("20000"),
		NisabThreshold: decimal.RequireFromString("16000"),
		AboveNisab:     above,
		HijriYear:      1446,
		HijriMonth:     7,
		GregorianDate:  date,
		Timestamp:      ts,
	}
}

func marker(date string, ts time.Time) model.HistoryRecord {
	return model.HistoryRecord{
		Type:          model.RecordTypePayment,
		GregorianDate: date,
		Timestamp:     ts,
	}
}

func TestLoadEmptyOnFirstRun(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "history.enc"), []byte("pw"))
	records, err := store.Load()
	require.NoError(t, err)
	assert.Empty(t, records)
}

func TestRoundTrip(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "history.enc"), []byte("pw"))
	now := time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC)

	sequences := [][]model.HistoryRecord{
		{},
		{observation("01.01.2025", now, true)},
		{
			observation("01.01.2025", now, true),
			marker("15.01.2025", now.Add(14*24*time.Hour)),
			observation("01.02.2025", now.Add(31*24*time.Hour), false),
		},
	}
	for _, records := range sequences {
		require.NoError(t, store.Save(records))
		got, err := store.Load()
		require.NoError(t, err)
		require.Len(t, got, len(records))
		for i := range records {
			assert.Equal(t, records[i].Type, got[i].Type)
			assert.Equal(t, records[i].GregorianDate, got[i].GregorianDate)
			assert.True(t, records[i].Timestamp.Equal(got[i].Timestamp))
			if !records[i].IsPaymentMarker() {
				assert.True(t, records[i].TotalAssets.Equal(got[i].TotalAssets))
				assert.Equal(t, records[i].AboveNisab, got[i].AboveNisab)
				assert.Equal(t, records[i].HijriYear, got[i].HijriYear)
			}
		}
	}
}

func TestSaveIdempotent(t *testing.T) {
	store := NewFileStore(filepath.Join(t.TempDir(), "history.enc"), []byte("pw"))
	records := []model.HistoryRecord{
		observation("01.01.2025", time.Date(2025, 1, 1, 10, 0, 0, 0, time.UTC), true),
	}
	require.NoError(t, store.Save(records))
	first, err := store.Load()
	require.NoError(t, err)
	require.NoError(t, store.Save(first))
	second, err := store.Load()
	require.NoError(t, err)
	assert.Equal(t, len(first), len(second))
	assert.Equal(t, first[0].GregorianDate, second[0].GregorianDate)
}

func TestWrongPasswordDistinctFromMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.enc")
	store := NewFileStore(path, []byte("right"))
	require.NoError(t, store.Save([]model.HistoryRecord{
		observation("01.01.2025", time.Now().UTC(), true),
	}))

	wrong := NewFileStore(path, []byte("wrong"))
	_, err := wrong.Load()
	require.ErrorIs(t, err, securefile.ErrDecryptFailed)
}

func TestCorruptedPlaintext(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.enc")
	password := []byte("pw")
	// Valid encryption of something that is not a history array.
	require.NoError(t, securefile.Seal(path, password, []byte(`{"not":"a list"}`)))

	_, err := NewFileStore(path, password).Load()
	require.ErrorIs(t, err, ErrCorrupted)
}

func TestTamperedFileFailsLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.enc")
	store := NewFileStore(path, []byte("pw"))
	require.NoError(t, store.Save([]model.HistoryRecord{
		observation("01.01.2025", time.Now().UTC(), true),
	}))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	data[len(data)/2] ^= 0xFF
	require.NoError(t, os.WriteFile(path, data, 0o600))

	_, err = store.Load()
	require.ErrorIs(t, err, securefile.ErrDecryptFailed)
}

func TestDedupObservationsKeepsMarkers(t *testing.T) {
	now := time.Now().UTC()
	records := []model.HistoryRecord{
		observation("01.01.2025", now, true),
		marker("01.01.2025", now.Add(time.Hour)),
		observation("02.01.2025", now.Add(2*time.Hour), true),
	}

	got := DedupObservations(records, "01.01.2025")
	require.Len(t, got, 2)
	assert.True(t, got[0].IsPaymentMarker(), "marker on the same date must survive dedup")
	assert.Equal(t, "02.01.2025", got[1].GregorianDate)
}

func TestCap(t *testing.T) {
	now := time.Now().UTC()
	var records []model.HistoryRecord
	for i := 0; i < 30; i++ {
		records = append(records, observation(
			time.Date(2023, 1, 1+i, 0, 0, 0, 0, time.UTC).Format("02.01.2006"),
			now.Add(time.Duration(i)*time.Hour), true))
	}

	capped := Cap(records, MaxEntries)
	require.Len(t, capped, MaxEntries)
	// Oldest dropped, newest kept.
	assert.Equal(t, records[6].GregorianDate, capped[0].GregorianDate)
	assert.Equal(t, records[29].GregorianDate, capped[23].GregorianDate)

	short := records[:5]
	assert.Len(t, Cap(short, MaxEntries), 5)
}

func TestSortByTimestampStable(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	records := []model.HistoryRecord{
		observation("03.01.2025", base.Add(2*time.Hour), true),
		observation("01.01.2025", base, true),
		marker("02.01.2025", base.Add(time.Hour)),
	}
	sorted := SortByTimestamp(records)
	assert.Equal(t, "01.01.2025", sorted[0].GregorianDate)
	assert.Equal(t, "02.01.2025", sorted[1].GregorianDate)
	assert.Equal(t, "03.01.2025", sorted[2].GregorianDate)
	// Input order untouched.
	assert.Equal(t, "03.01.2025", records[0].GregorianDate)
}
