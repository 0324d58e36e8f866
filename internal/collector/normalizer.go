package collector

import (
	"context"
	"errors"
	"fmt"

	"ZakatSentinel/internal/calendar"
	"ZakatSentinel/internal/mask"
	"ZakatSentinel/internal/model"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// ErrNoData means no balance reading could be obtained from any source.
// The caller must not proceed to record an observation: a zero-balance
// entry would corrupt the streak with a false below-nisab month.
var ErrNoData = errors.New("collector: no balance data obtainable from any source")

// Progress reports collection stages to an interested consumer (SSE,
// CLI spinner). May be nil.
type Progress func(source, stage string, percent int)

// Collector is the balance reading normalizer: it folds per-source,
// per-account readings into one total in the reference currency.
type Collector struct {
	sources     []Source
	refCurrency string
	rates       map[string]decimal.Decimal // currency -> rate into refCurrency
}

// NewCollector creates a normalizer over the given sources. rates maps
// each non-reference currency to its fixed configured conversion rate;
// no live FX lookups happen here.
func NewCollector(sources []Source, refCurrency string, rates map[string]decimal.Decimal) *Collector {
	return &Collector{sources: sources, refCurrency: refCurrency, rates: rates}
}

// Collect fetches all sources and normalizes their readings. A source
// or account failure degrades the total; only a run where every
// account is missing returns ErrNoData.
func (c *Collector) Collect(ctx context.Context, progress Progress) (model.CombinedBalance, error) {
	report := func(source, stage string, percent int) {
		if progress != nil {
			progress(source, stage, percent)
		}
	}

	var readings []model.AccountReading
	var periodEnds []string
	total := decimal.Zero
	anyFound := false

	for i, src := range c.sources {
		report(src.Name(), "fetching statements", 10+80*i/max(1, len(c.sources)))

		raw, err := src.Fetch(ctx)
		if err != nil {
			log.Error().Str("source", src.Name()).Err(err).Msg("source fetch failed, continuing with remaining sources")
			continue
		}

		for _, r := range raw {
			reading := model.AccountReading{
				Source:      r.Source,
				Account:     r.Account,
				Currency:    r.Currency,
				Balance:     r.Balance,
				PeriodStart: r.PeriodStart,
				PeriodEnd:   r.PeriodEnd,
				Found:       r.Found,
			}
			if r.Found {
				converted, err := c.convert(r.Balance, r.Currency)
				if err != nil {
					log.Error().
						Str("account", mask.Account(r.Account)).
						Str("currency", r.Currency).
						Err(err).
						Msg("conversion failed, account contributes zero")
					reading.Found = false
				} else {
					reading.ConvertedTo = c.refCurrency
					reading.Converted = converted
					total = total.Add(converted)
					anyFound = true
					if r.PeriodEnd != "" {
						periodEnds = append(periodEnds, r.PeriodEnd)
					}
				}
			}
			readings = append(readings, reading)
		}
	}

	if !anyFound {
		return model.CombinedBalance{}, ErrNoData
	}

	// Sources can disagree on period end; the observation is dated by
	// the latest one, by calendar comparison.
	observationDate, err := calendar.Latest(periodEnds)
	if err != nil {
		return model.CombinedBalance{}, fmt.Errorf("observation date: %w", err)
	}

	report("", "normalizing", 95)
	log.Info().
		Int("readings", len(readings)).
		Str("observation_date", observationDate).
		Str("currency", c.refCurrency).
		Msg("balance readings normalized")

	return model.CombinedBalance{
		BankBalance:     total,
		ObservationDate: observationDate,
		Readings:        readings,
	}, nil
}

func (c *Collector) convert(balance decimal.Decimal, currency string) (decimal.Decimal, error) {
	if currency == c.refCurrency {
		return balance, nil
	}
	rate, ok := c.rates[currency]
	if !ok {
		return decimal.Zero, fmt.Errorf("no conversion rate configured for %s", currency)
	}
	return balance.Mul(rate), nil
}

// MockSource returns fixed readings; used in tests and dry runs.
type MockSource struct {
	SourceName string
	Readings   []RawReading
	Err        error
}

func (m *MockSource) Name() string { return m.SourceName }

func (m *MockSource) Fetch(context.Context) ([]RawReading, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Readings, nil
}
