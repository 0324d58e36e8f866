package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"ZakatSentinel/internal/api"
	"ZakatSentinel/internal/app"
	"ZakatSentinel/internal/scheduler"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var runOnStart bool

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the daemon: monthly scheduler plus the local REST API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		password, err := promptPassword("Master password: ")
		if err != nil {
			return err
		}

		factory, err := app.NewFactory(cfg)
		if err != nil {
			return err
		}
		defer factory.Close()

		// Unlock once up front so a wrong password fails at startup
		// instead of at 10:00 on the 1st.
		if _, err := factory.Runner(password); err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		sched := scheduler.New(ctx, cfg.SchedulerStatePath(), func(ctx context.Context) error {
			runner, err := factory.Runner(password)
			if err != nil {
				return err
			}
			_, err = runner.RunAnalysis(ctx, nil)
			return err
		})
		if err := sched.Register(cfg.Schedule.MonthlyCron); err != nil {
			return err
		}
		sched.Start()
		defer sched.Stop()

		if runOnStart && !sched.MissedRun() {
			log.Info().Msg("--run-now set, executing analysis")
			go sched.RunNow()
		}

		srv := &http.Server{
			Addr:              cfg.API.ListenAddr,
			Handler:           api.NewServer(factory, sched).Router(cfg.API.AllowedOrigins),
			ReadHeaderTimeout: 5 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			log.Info().Str("addr", cfg.API.ListenAddr).Msg("api listening")
			if err := srv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
				errCh <- err
			}
		}()

		select {
		case <-ctx.Done():
			log.Info().Msg("shutdown signal received, stopping")
		case err := <-errCh:
			return fmt.Errorf("api server: %w", err)
		}

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("api shutdown")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&runOnStart, "run-now", false, "run an analysis immediately on startup")
}
