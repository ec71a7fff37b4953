package commands

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nulljosh/claimcheck/internal/logger"
	"github.com/nulljosh/claimcheck/internal/output"
)

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Log in and pull all portal sections",
	Long: `Check logs into the portal, extracts every section (notifications,
messages, payment info, service requests), and prints the aggregate result.

Sections that fail are reported in place; the command only exits non-zero
when the whole run fails (for example, when login is rejected).`,
	RunE: runCheck,
}

func init() {
	rootCmd.AddCommand(checkCmd)

	flags := checkCmd.Flags()
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "json", "output format: json, yaml")
}

func runCheck(cmd *cobra.Command, args []string) error {
	initLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := engineConfig()
	if err != nil {
		return err
	}
	creds, err := credentials()
	if err != nil {
		return err
	}
	orch, err := orchestrator(cfg)
	if err != nil {
		return err
	}

	logger.Info("starting portal check", "portal", cfg.PortalURL)
	res := orch.Check(ctx, creds)

	if err := writeResult(cmd, res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("check failed: %s", res.Error)
	}
	for name, sec := range res.Sections {
		if !sec.Success {
			logger.Warn("section failed", "section", name, "error", sec.Error)
		}
	}
	return nil
}

// writeResult prints a result document to the chosen output.
func writeResult(cmd *cobra.Command, data any) error {
	format, _ := cmd.Flags().GetString("format")
	outPath, _ := cmd.Flags().GetString("output")

	w := os.Stdout
	if outPath != "" {
		f, err := os.Create(outPath)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		w = f
	}
	if err := output.Write(w, output.Format(format), data); err != nil {
		return fmt.Errorf("writing result: %w", err)
	}
	return nil
}
