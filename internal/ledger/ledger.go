// Package ledger is the encrypted, durable store for the balance
// history: an ordered sequence of observations and payment markers.
// It holds no eligibility logic; that lives in the engine.
package ledger

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"sort"

	"ZakatSentinel/internal/model"
	"ZakatSentinel/internal/securefile"

	"github.com/rs/zerolog/log"
)

// ErrCorrupted means the store decrypted fine but its plaintext is not
// a valid history array. No auto-repair is attempted.
var ErrCorrupted = errors.New("ledger: store corrupted (decrypted data is not a valid history)")

// MaxEntries caps the ledger at the most recent entries, observations
// and markers combined. Applied after every append.
const MaxEntries = 24

// Store reads and writes the full history sequence. Implementations
// own the at-rest representation exclusively.
type Store interface {
	Load() ([]model.HistoryRecord, error)
	Save(records []model.HistoryRecord) error
}

// FileStore keeps the history in one encrypted file per profile.
type FileStore struct {
	path     string
	password []byte
}

// NewFileStore creates a store over the encrypted file at path.
func NewFileStore(path string, password []byte) *FileStore {
	return &FileStore{path: path, password: password}
}

// Load returns the stored history, or an empty sequence on first run
// (no file yet). A wrong password or tampered file surfaces as
// securefile.ErrDecryptFailed and must never be treated as an empty
// store; undecodable plaintext surfaces as ErrCorrupted.
func (s *FileStore) Load() ([]model.HistoryRecord, error) {
	plaintext, err := securefile.Open(s.path, s.password)
	if errors.Is(err, fs.ErrNotExist) {
		log.Debug().Str("path", s.path).Msg("no ledger file yet, starting fresh")
		return []model.HistoryRecord{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open ledger: %w", err)
	}

	var records []model.HistoryRecord
	if err := json.Unmarshal(plaintext, &records); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupted, err)
	}
	return records, nil
}

// Save serializes the full sequence, encrypts it, and atomically
// replaces the store file.
func (s *FileStore) Save(records []model.HistoryRecord) error {
	if records == nil {
		records = []model.HistoryRecord{}
	}
	plaintext, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("serialize ledger: %w", err)
	}
	if err := securefile.Seal(s.path, s.password, plaintext); err != nil {
		return fmt.Errorf("seal ledger: %w", err)
	}
	log.Debug().Int("entries", len(records)).Msg("ledger saved")
	return nil
}

// DedupObservations removes observations whose gregorian date equals
// date. Payment markers are never removed by deduplication.
func DedupObservations(records []model.HistoryRecord, date string) []model.HistoryRecord {
	out := records[:0:0]
	for _, r := range records {
		if !r.IsPaymentMarker() && r.GregorianDate == date {
			continue
		}
		out = append(out, r)
	}
	return out
}

// Cap keeps the most recent n entries by position, dropping the oldest.
func Cap(records []model.HistoryRecord, n int) []model.HistoryRecord {
	if len(records) <= n {
		return records
	}
	return records[len(records)-n:]
}

// SortByTimestamp returns the records in ascending timestamp order.
// The sort is stable so equal timestamps keep their insertion order.
func SortByTimestamp(records []model.HistoryRecord) []model.HistoryRecord {
	sorted := make([]model.HistoryRecord, len(records))
	copy(sorted, records)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Timestamp.Before(sorted[j].Timestamp)
	})
	return sorted
}
