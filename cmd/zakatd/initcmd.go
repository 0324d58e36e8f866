package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"

	"ZakatSentinel/internal/config"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"
)

var initForce bool

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Create the encrypted profile interactively",
	RunE: func(_ *cobra.Command, _ []string) error {
		if _, err := os.Stat(cfg.ProfilePath()); err == nil && !initForce {
			return fmt.Errorf("profile already exists at %s (use --force to overwrite)", cfg.ProfilePath())
		}

		password, err := promptNewPassword()
		if err != nil {
			return err
		}

		reader := bufio.NewReader(os.Stdin)
		profile := &config.Profile{}

		for i := 1; ; i++ {
			fmt.Fprintf(os.Stderr, "\nEmail source %d\n", i)
			src, err := promptEmailSource(reader, i)
			if err != nil {
				return err
			}
			profile.EmailSources = append(profile.EmailSources, src)

			more, err := promptLine(reader, "Add another email source? [y/N]: ")
			if err != nil {
				return err
			}
			if more != "y" && more != "Y" {
				break
			}
		}

		assets, err := promptLine(reader, "\nAdditional assets outside the bank (e.g. 1500.00, empty for none): ")
		if err != nil {
			return err
		}
		if assets != "" {
			profile.AdditionalAssets, err = decimal.NewFromString(assets)
			if err != nil {
				return fmt.Errorf("additional assets: %w", err)
			}
		}

		wantReports, err := promptLine(reader, "Configure monthly report email delivery? [y/N]: ")
		if err != nil {
			return err
		}
		if wantReports == "y" || wantReports == "Y" {
			if err := promptReportDelivery(reader, profile); err != nil {
				return err
			}
		}

		if err := config.SaveProfile(cfg.ProfilePath(), password, profile); err != nil {
			return err
		}
		fmt.Printf("Profile written to %s\n", cfg.ProfilePath())
		return nil
	},
}

func promptEmailSource(reader *bufio.Reader, n int) (config.EmailSource, error) {
	src := config.EmailSource{ID: fmt.Sprintf("source-%d", n)}

	var err error
	if src.IMAPServer, err = promptLine(reader, "IMAP server: "); err != nil {
		return src, err
	}
	portStr, err := promptLine(reader, "IMAP port [993]: ")
	if err != nil {
		return src, err
	}
	src.IMAPPort = 993
	if portStr != "" {
		if src.IMAPPort, err = strconv.Atoi(portStr); err != nil {
			return src, fmt.Errorf("imap port: %w", err)
		}
	}
	if src.Email, err = promptLine(reader, "Email address: "); err != nil {
		return src, err
	}
	imapPassword, err := promptPassword("Email password: ")
	if err != nil {
		return src, err
	}
	src.Password = string(imapPassword)

	bam, err := promptLine(reader, "BAM account number (empty to skip): ")
	if err != nil {
		return src, err
	}
	eur, err := promptLine(reader, "EUR account number (empty to skip): ")
	if err != nil {
		return src, err
	}
	if bam == "" && eur == "" {
		return src, fmt.Errorf("at least one account number is required")
	}
	src.AccountPairs = []config.AccountPair{{BAMAccount: bam, EURAccount: eur}}
	return src, nil
}

func promptReportDelivery(reader *bufio.Reader, profile *config.Profile) error {
	var err error
	d := &profile.ReportDelivery

	if d.SMTPServer, err = promptLine(reader, "SMTP server: "); err != nil {
		return err
	}
	portStr, err := promptLine(reader, "SMTP port [587]: ")
	if err != nil {
		return err
	}
	d.SMTPPort = 587
	if portStr != "" {
		if d.SMTPPort, err = strconv.Atoi(portStr); err != nil {
			return fmt.Errorf("smtp port: %w", err)
		}
	}
	if d.Username, err = promptLine(reader, "SMTP username: "); err != nil {
		return err
	}
	smtpPassword, err := promptPassword("SMTP password: ")
	if err != nil {
		return err
	}
	d.Password = string(smtpPassword)
	if d.From, err = promptLine(reader, "From address: "); err != nil {
		return err
	}
	if d.To, err = promptLine(reader, "To address: "); err != nil {
		return err
	}
	return nil
}

func init() {
	initCmd.Flags().BoolVar(&initForce, "force", false, "overwrite an existing profile")
}
