// Package app wires the components into runnable units: a Factory
// builds a Runner from the config and an unlocked profile, and the
// Runner executes one full analysis cycle.
package app

import (
	"context"
	"fmt"
	"time"

	"ZakatSentinel/internal/collector"
	"ZakatSentinel/internal/config"
	"ZakatSentinel/internal/engine"
	"ZakatSentinel/internal/ledger"
	"ZakatSentinel/internal/model"
	"ZakatSentinel/internal/nisab"
	"ZakatSentinel/internal/notifier"
	"ZakatSentinel/internal/recorder"

	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// Factory builds password-scoped Runners. The resolver and recorder
// are shared: they hold no secrets.
type Factory struct {
	Cfg      *config.Config
	Resolver *nisab.Resolver
	Recorder recorder.Recorder
}

// NewFactory prepares the shared components.
func NewFactory(cfg *config.Config) (*Factory, error) {
	fallback, err := decimal.NewFromString(cfg.Nisab.FallbackBAM)
	if err != nil {
		return nil, fmt.Errorf("nisab.fallback_bam: %w", err)
	}

	var rec recorder.Recorder
	if cfg.Database.SQLitePath != "" {
		sr, err := recorder.NewSQLiteRecorder(cfg.Database.SQLitePath)
		if err != nil {
			log.Warn().Err(err).Msg("sqlite recorder unavailable, auditing disabled")
			rec = recorder.NewNoopRecorder()
		} else {
			rec = sr
		}
	} else {
		rec = recorder.NewNoopRecorder()
	}

	return &Factory{
		Cfg:      cfg,
		Resolver: nisab.NewResolver(cfg.Nisab.URLs, fallback),
		Recorder: rec,
	}, nil
}

// Close releases shared resources.
func (f *Factory) Close() error {
	return f.Recorder.Close()
}

// Runner executes analysis cycles for one unlocked profile.
type Runner struct {
	factory   *Factory
	profile   *config.Profile
	collector *collector.Collector
	engine    *engine.Engine
	mailer    *notifier.Mailer
}

// Runner unlocks the profile with the master password and builds a
// Runner around it. A wrong password fails here, before anything runs.
func (f *Factory) Runner(password []byte) (*Runner, error) {
	profile, err := config.LoadProfile(f.Cfg.ProfilePath(), password)
	if err != nil {
		return nil, err
	}

	sources := make([]collector.Source, 0, len(profile.EmailSources))
	for _, src := range profile.EmailSources {
		pairs := make([]collector.AccountPair, 0, len(src.AccountPairs))
		for _, p := range src.AccountPairs {
			pairs = append(pairs, collector.AccountPair{BAMAccount: p.BAMAccount, EURAccount: p.EURAccount})
		}
		label := src.Label
		if label == "" {
			label = src.ID
		}
		sources = append(sources, collector.NewIMAPSource(collector.SourceConfig{
			Label:        label,
			IMAPServer:   src.IMAPServer,
			IMAPPort:     src.IMAPPort,
			Email:        src.Email,
			Password:     src.Password,
			AccountPairs: pairs,
		}))
	}

	rates := make(map[string]decimal.Decimal, len(f.Cfg.Currency.Rates))
	for currency, rate := range f.Cfg.Currency.Rates {
		d, err := decimal.NewFromString(rate)
		if err != nil {
			return nil, fmt.Errorf("currency.rates[%s]: %w", currency, err)
		}
		rates[currency] = d
	}

	store := ledger.NewFileStore(f.Cfg.LedgerPath(), password)

	return &Runner{
		factory:   f,
		profile:   profile,
		collector: collector.NewCollector(sources, f.Cfg.Currency.Reference, rates),
		engine:    engine.New(store, profile.AdditionalAssets, profile.YearProgress),
		mailer:    notifier.NewMailer(profile.ReportDelivery),
	}, nil
}

// RunAnalysis executes one full cycle: collect readings, resolve
// nisab, run the eligibility engine, deliver the report, and audit the
// run. Collection failure (no data from any source) aborts before any
// ledger write; report delivery and auditing never fail the run.
func (r *Runner) RunAnalysis(ctx context.Context, progress collector.Progress) (model.Verdict, error) {
	started := time.Now().UTC()

	combined, err := r.collector.Collect(ctx, progress)
	if err != nil {
		return model.Verdict{}, err
	}

	resolution := r.factory.Resolver.Resolve(ctx)
	if err := r.factory.Recorder.RecordNisabFetch(resolution); err != nil {
		log.Error().Err(err).Msg("audit nisab fetch failed")
	}

	verdict, err := r.engine.Run(combined, resolution)
	if err != nil {
		return model.Verdict{}, err
	}

	if err := r.factory.Recorder.RecordRun(&recorder.RunRecord{
		Verdict:    verdict,
		StartedAt:  started,
		FinishedAt: time.Now().UTC(),
	}); err != nil {
		log.Error().Err(err).Msg("audit analysis run failed")
	}

	r.deliverReport(ctx, verdict)
	return verdict, nil
}

func (r *Runner) deliverReport(ctx context.Context, verdict model.Verdict) {
	if !r.mailer.Configured() {
		return
	}
	html, err := notifier.RenderReport(verdict, r.factory.Cfg.Currency.Reference)
	if err != nil {
		log.Error().Err(err).Msg("report rendering failed")
		return
	}
	if err := r.mailer.SendWithRetry(ctx, notifier.Subject(verdict), html, 3); err != nil {
		log.Error().Err(err).Msg("report delivery failed")
	}
}

// RecordPayment appends a payment marker and audits it.
func (r *Runner) RecordPayment(date string) error {
	if err := r.engine.RecordPayment(date); err != nil {
		return err
	}
	paid := date
	if paid == "" {
		paid = time.Now().UTC().Format("02.01.2006")
	}
	if err := r.factory.Recorder.RecordPayment(&recorder.PaymentRecord{
		Date:       paid,
		RecordedAt: time.Now().UTC(),
	}); err != nil {
		log.Error().Err(err).Msg("audit payment failed")
	}
	return nil
}

// History returns the decrypted ledger, read-only.
func (r *Runner) History() ([]model.HistoryRecord, error) {
	return r.engine.History()
}

// CurrentStreak replays the ledger without writing.
func (r *Runner) CurrentStreak() (int, error) {
	return r.engine.CurrentStreak()
}

// Profile exposes the unlocked profile for settings endpoints.
func (r *Runner) Profile() *config.Profile {
	return r.profile
}
