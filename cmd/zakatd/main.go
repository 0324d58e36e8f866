// zakatd is the nisab tracking daemon and its command line interface.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"ZakatSentinel/internal/config"
	"ZakatSentinel/internal/securefile"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var (
	cfgPath string
	cfg     *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "zakatd",
	Short: "Monthly nisab tracking over bank statement email",
	Long: "zakatd collects bank balances from statement PDFs delivered by " +
		"email, tracks how many consecutive Hijri months the total stayed " +
		"above the nisab threshold, and reports when zakat falls due.",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return err
		}
		if err := cfg.Validate(); err != nil {
			return fmt.Errorf("config validation: %w", err)
		}
		setupLogging(cfg.LogLevel)
		return os.MkdirAll(cfg.DataDir, 0o700)
	},
}

func setupLogging(level string) {
	lvl, err := zerolog.ParseLevel(level)
	if err != nil {
		lvl = zerolog.InfoLevel
	}
	log.Logger = zerolog.New(zerolog.ConsoleWriter{
		Out:        os.Stderr,
		TimeFormat: time.RFC3339,
	}).Level(lvl).With().Timestamp().Logger()
}

func main() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", defaultConfigPath(), "path to config.yaml")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(analyzeCmd)
	rootCmd.AddCommand(markPaidCmd)
	rootCmd.AddCommand(historyCmd)
	rootCmd.AddCommand(streakCmd)
	rootCmd.AddCommand(nisabCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(overrideCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		if errors.Is(err, securefile.ErrDecryptFailed) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}

func defaultConfigPath() string {
	if v := os.Getenv("ZAKAT_CONFIG"); v != "" {
		return v
	}
	return "configs/config.yaml"
}
