// Package engine implements the consecutive-month eligibility engine:
// it admits one new balance observation per run, replays the ledger to
// compute the trailing above-nisab streak, and decides whether the
// 12-Hijri-month obligation has been triggered.
package engine

import (
	"fmt"
	"sync"
	"time"

	"ZakatSentinel/internal/calendar"
	"ZakatSentinel/internal/ledger"
	"ZakatSentinel/internal/model"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// HijriYearMonths is how many consecutive above-nisab entries complete
// a Hijri year of holding.
const HijriYearMonths = 12

// ZakatRate is the zakat obligation: 2.5% of total assets.
var ZakatRate = decimal.RequireFromString("0.025")

// Engine runs eligibility analysis over one ledger store. A mutex
// serializes Run and RecordPayment so two invocations against the same
// store cannot interleave their read-modify-write cycles.
type Engine struct {
	mu               sync.Mutex
	store            ledger.Store
	additionalAssets decimal.Decimal
	override         *model.YearProgressOverride
	now              func() time.Time
}

// New creates an Engine. override may be nil; additionalAssets are
// added on top of the bank balance before the nisab comparison.
func New(store ledger.Store, additionalAssets decimal.Decimal, override *model.YearProgressOverride) *Engine {
	return &Engine{
		store:            store,
		additionalAssets: additionalAssets,
		override:         override,
		now:              time.Now,
	}
}

// Run admits one normalized observation, updates the ledger (dedup by
// gregorian date, append, cap), and returns the eligibility verdict.
// The ledger mutation is all-or-nothing: a load or save failure leaves
// the store exactly as it was.
func (e *Engine) Run(obs model.CombinedBalance, nisab model.NisabResolution) (model.Verdict, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	total := obs.BankBalance.Add(e.additionalAssets)
	above := total.Cmp(nisab.Value) >= 0

	obsDate, err := calendar.ParseGregorian(obs.ObservationDate)
	if err != nil {
		return model.Verdict{}, fmt.Errorf("observation date: %w", err)
	}
	hijriDate, err := calendar.ToHijri(obsDate)
	if err != nil {
		return model.Verdict{}, err
	}

	records, err := e.store.Load()
	if err != nil {
		// Wrong password or corruption must abort; treating it as an
		// empty history would silently discard the streak.
		return model.Verdict{}, err
	}

	entry := model.HistoryRecord{
		TotalAssets:    total,
		NisabThreshold: nisab.Value,
		AboveNisab:     above,
		HijriYear:      hijriDate.Year,
		HijriMonth:     hijriDate.Month,
		GregorianDate:  obs.ObservationDate,
		Timestamp:      e.now().UTC(),
	}

	records = ledger.DedupObservations(records, obs.ObservationDate)
	records = append(records, entry)
	records = ledger.Cap(records, ledger.MaxEntries)

	streak := e.applyOverride(Streak(records))

	complete := streak >= HijriYearMonths
	zakat := decimal.Zero
	if complete {
		zakat = total.Mul(ZakatRate)
	}

	if err := e.store.Save(records); err != nil {
		return model.Verdict{}, err
	}

	verdict := model.Verdict{
		RunID:                       uuid.NewString(),
		BankBalance:                 obs.BankBalance,
		AdditionalAssets:            e.additionalAssets,
		TotalAssets:                 total,
		NisabThreshold:              nisab.Value,
		NisabSource:                 nisab.Source,
		AboveNisab:                  above,
		ConsecutiveMonthsAboveNisab: streak,
		HijriYearComplete:           complete,
		ZakatDue:                    complete,
		ZakatAmount:                 zakat,
		ObservationDate:             obs.ObservationDate,
		HijriYear:                   hijriDate.Year,
		HijriMonth:                  hijriDate.Month,
		Readings:                    obs.Readings,
		GeneratedAt:                 e.now().UTC(),
	}

	log.Info().
		Str("run_id", verdict.RunID).
		Bool("above_nisab", above).
		Int("consecutive_months", streak).
		Bool("zakat_due", verdict.ZakatDue).
		Str("nisab_source", nisab.Source).
		Msg("eligibility analysis complete")

	return verdict, nil
}

// RecordPayment appends a payment marker for the given DD.MM.YYYY date
// (today when empty). It is its own read-modify-write cycle: the ledger
// is loaded fresh, so it can run standalone at any time. Validation
// happens before any I/O.
func (e *Engine) RecordPayment(date string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.now().UTC()
	if date == "" {
		date = calendar.FormatGregorian(now)
	} else if _, err := calendar.ParseGregorian(date); err != nil {
		return err
	}

	records, err := e.store.Load()
	if err != nil {
		return err
	}
	records = append(records, model.HistoryRecord{
		Type:          model.RecordTypePayment,
		Timestamp:     now,
		GregorianDate: date,
	})

	if err := e.store.Save(records); err != nil {
		return err
	}
	log.Info().Str("date", date).Msg("zakat payment recorded")
	return nil
}

// CurrentStreak replays the ledger without appending anything, for
// dashboards that want the count without triggering a write.
func (e *Engine) CurrentStreak() (int, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	records, err := e.store.Load()
	if err != nil {
		return 0, err
	}
	return e.applyOverride(Streak(records)), nil
}

// History returns a read-only copy of the ledger.
func (e *Engine) History() ([]model.HistoryRecord, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.store.Load()
}

// Streak counts the trailing run of above-nisab entries in timestamp
// order. The walk goes backward from the newest entry and stops at the
// first payment marker or below-nisab observation; everything older is
// irrelevant. The count is in ledger entries, not verified elapsed
// Hijri months: the system trusts that it is invoked roughly monthly.
func Streak(records []model.HistoryRecord) int {
	sorted := ledger.SortByTimestamp(records)
	streak := 0
	for i := len(sorted) - 1; i >= 0; i-- {
		if sorted[i].IsPaymentMarker() {
			break
		}
		if !sorted[i].AboveNisab {
			break
		}
		streak++
	}
	return streak
}

// applyOverride adds manually asserted prior months on top of a live
// streak. The newest real entry is concurrent with when the override
// was set, so it is not double-counted. A zero streak is never revived:
// once the chain breaks, prior informal tracking no longer counts.
func (e *Engine) applyOverride(streak int) int {
	if e.override == nil || !e.override.Enabled || streak == 0 {
		return streak
	}
	effective := e.override.MonthsAboveNisab + streak - 1
	if effective > streak {
		log.Info().
			Int("streak", streak).
			Int("effective", effective).
			Int("override_months", e.override.MonthsAboveNisab).
			Msg("applying year progress override")
		return effective
	}
	return streak
}
