package commands

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/nulljosh/claimcheck/internal/logger"
	"github.com/nulljosh/claimcheck/internal/portal"
)

var reportCmd = &cobra.Command{
	Use:   "report",
	Short: "Walk the monthly report form",
	Long: `Report logs into the portal and walks the six-page monthly report form:
eligibility, income declaration, other declarations, supporting documents,
personal info, and confirmation.

By default this is a dry run: every field is filled and the final form state
is printed, but nothing is submitted. Pass --submit to actually file the
report. Filing requires your confirmation PIN.`,
	RunE: runReport,
}

func init() {
	rootCmd.AddCommand(reportCmd)

	flags := reportCmd.Flags()
	flags.Bool("submit", false, "actually submit instead of stopping before the submit click")
	flags.String("sin", "", "overwrite the SIN field (default: leave the portal's value)")
	flags.String("phone", "", "overwrite the phone field (default: leave the portal's value)")
	flags.String("pin", "", "confirmation PIN (required with --submit)")
	flags.StringP("output", "o", "", "output file (default: stdout)")
	flags.String("format", "json", "output format: json, yaml")
}

func runReport(cmd *cobra.Command, args []string) error {
	initLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	submit, _ := cmd.Flags().GetBool("submit")
	pin, _ := cmd.Flags().GetString("pin")
	sin, _ := cmd.Flags().GetString("sin")
	phone, _ := cmd.Flags().GetString("phone")

	if submit && pin == "" {
		return fmt.Errorf("--submit requires --pin")
	}

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

	opts := portal.ReportOptions{
		DryRun: !submit,
		SIN:    sin,
		Phone:  phone,
		PIN:    pin,
	}
	logger.Info("starting monthly report walk", "dry_run", opts.DryRun)
	res := orch.SubmitReport(ctx, creds, opts)

	if err := writeResult(cmd, res); err != nil {
		return err
	}
	if !res.Success {
		return fmt.Errorf("report walk failed: %s", firstNonEmpty(res.Error, res.Message))
	}
	return nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return "unknown"
}
