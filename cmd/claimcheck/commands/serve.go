package commands

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nulljosh/claimcheck/internal/logger"
	"github.com/nulljosh/claimcheck/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard HTTP API",
	Long: `Serve runs the HTTP API the dashboard talks to: session login, portal
checks, the latest cached results, the monthly report, and the DTC
screener. At most one portal run is active at a time; concurrent check
requests get a busy response.`,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	flags := serveCmd.Flags()
	flags.String("addr", ":3000", "listen address")
	flags.Duration("session-ttl", 30*time.Minute, "idle timeout for dashboard sessions")
	flags.Bool("json-logs", false, "request logs as JSON")

	_ = viper.BindPFlag("serve.addr", flags.Lookup("addr"))
	_ = viper.BindPFlag("serve.session_ttl", flags.Lookup("session-ttl"))
	_ = viper.BindPFlag("serve.json_logs", flags.Lookup("json-logs"))
}

func runServe(cmd *cobra.Command, args []string) error {
	initLogger()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := engineConfig()
	if err != nil {
		return err
	}
	orch, err := orchestrator(cfg)
	if err != nil {
		return err
	}
	results, err := server.NewResultStore(filepath.Join(dataDir(), "results"))
	if err != nil {
		return err
	}

	srvCfg := server.Config{
		Addr:       viper.GetString("serve.addr"),
		SessionTTL: viper.GetDuration("serve.session_ttl"),
		JSONLogs:   viper.GetBool("serve.json_logs"),
	}
	srv := server.New(srvCfg, orch, results)

	logger.Info("serving dashboard API", "addr", srvCfg.Addr, "portal", cfg.PortalURL)
	if err := srv.ListenAndServe(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
