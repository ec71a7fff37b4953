// Package commands implements the CLI commands for claimcheck.
package commands

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/nulljosh/claimcheck/internal/browser"
	"github.com/nulljosh/claimcheck/internal/cookiestore"
	"github.com/nulljosh/claimcheck/internal/logger"
	"github.com/nulljosh/claimcheck/internal/portal"
	"github.com/nulljosh/claimcheck/internal/secrets"
)

var rootCmd = &cobra.Command{
	Use:   "claimcheck",
	Short: "Automated benefits checker for the BC self-service portal",
	Long: `Claimcheck logs into the BC government self-service portal with a headless
browser, pulls your notifications, messages, payment info, and service
requests, and can walk the monthly report form for you.

Examples:
  # One-off check, results as JSON on stdout
  claimcheck check

  # Store credentials encrypted so you don't need env vars
  CLAIMCHECK_PASSPHRASE=... claimcheck login

  # Fill the monthly report but stop before submitting (the default)
  claimcheck report

  # Run the dashboard API
  claimcheck serve --addr :3000`,
}

func init() {
	cobra.OnInitialize(initConfig)

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config file (default $HOME/.claimcheck.yaml)")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")
	rootCmd.PersistentFlags().BoolP("quiet", "q", false, "suppress progress output")
	rootCmd.PersistentFlags().String("data-dir", "data", "directory for cookies, screenshots, and results")
	rootCmd.PersistentFlags().String("portal-url", "", "portal base URL override")
	rootCmd.PersistentFlags().String("chrome-path", "", "Chrome binary path (default: auto-detect)")
	rootCmd.PersistentFlags().Bool("visible", false, "run the browser with a visible window")
	rootCmd.PersistentFlags().Bool("constrained", false, "use reduced-footprint browser flags for constrained hosts")

	_ = viper.BindPFlag("config", rootCmd.PersistentFlags().Lookup("config"))
	_ = viper.BindPFlag("debug", rootCmd.PersistentFlags().Lookup("debug"))
	_ = viper.BindPFlag("quiet", rootCmd.PersistentFlags().Lookup("quiet"))
	_ = viper.BindPFlag("data_dir", rootCmd.PersistentFlags().Lookup("data-dir"))
	_ = viper.BindPFlag("portal_url", rootCmd.PersistentFlags().Lookup("portal-url"))
	_ = viper.BindPFlag("chrome_path", rootCmd.PersistentFlags().Lookup("chrome-path"))
	_ = viper.BindPFlag("visible", rootCmd.PersistentFlags().Lookup("visible"))
	_ = viper.BindPFlag("constrained", rootCmd.PersistentFlags().Lookup("constrained"))
}

func initConfig() {
	if cfgFile := viper.GetString("config"); cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(home)
		}
		viper.AddConfigPath(".")
		viper.SetConfigName(".claimcheck")
		viper.SetConfigType("yaml")
	}

	// Environment variables
	viper.SetEnvPrefix("CLAIMCHECK")
	viper.AutomaticEnv()

	// Portal credentials come from the BCeID env vars most people already
	// have set for the portal, or CLAIMCHECK_* equivalents.
	_ = viper.BindEnv("username", "BCEID_USERNAME", "CLAIMCHECK_USERNAME")
	_ = viper.BindEnv("password", "BCEID_PASSWORD", "CLAIMCHECK_PASSWORD")
	_ = viper.BindEnv("passphrase", "CLAIMCHECK_PASSPHRASE")

	// Read config file (ignore error if not found)
	_ = viper.ReadInConfig()
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

// initLogger sets up logging from the global flags.
func initLogger() {
	logger.Init(logger.Options{
		Debug: viper.GetBool("debug"),
		Quiet: viper.GetBool("quiet"),
	})
}

// engineConfig builds the portal configuration from defaults plus any
// overrides from flags, config file, or environment.
func engineConfig() (*portal.Config, error) {
	cfg := portal.Default()
	if u := viper.GetString("portal_url"); u != "" {
		cfg.PortalURL = u
	}
	if err := viper.UnmarshalKey("portal", cfg); err != nil {
		return nil, fmt.Errorf("reading portal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func browserConfig() browser.Config {
	bcfg := browser.DefaultConfig()
	bcfg.Headless = !viper.GetBool("visible")
	bcfg.Constrained = viper.GetBool("constrained")
	bcfg.ExecPath = viper.GetString("chrome_path")
	return bcfg
}

func dataDir() string {
	return viper.GetString("data_dir")
}

func credentialsFile() *secrets.File {
	return &secrets.File{
		Path:       filepath.Join(dataDir(), "credentials.enc"),
		Passphrase: viper.GetString("passphrase"),
	}
}

// credentials resolves the portal login, preferring environment variables
// over the encrypted credentials file.
func credentials() (portal.Credentials, error) {
	creds := portal.Credentials{
		Username: viper.GetString("username"),
		Password: viper.GetString("password"),
	}
	if creds.Username != "" && creds.Password != "" {
		return creds, nil
	}

	f := credentialsFile()
	if f.Exists() {
		if f.Passphrase == "" {
			return creds, errors.New("stored credentials found but CLAIMCHECK_PASSPHRASE is not set")
		}
		var stored struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := f.Load(&stored); err != nil {
			return creds, err
		}
		return portal.Credentials{Username: stored.Username, Password: stored.Password}, nil
	}

	return creds, errors.New("no credentials: set BCEID_USERNAME/BCEID_PASSWORD or run 'claimcheck login'")
}

// orchestrator wires the engine with the cookie jar and screenshot sink
// under the data directory.
func orchestrator(cfg *portal.Config) (*portal.Orchestrator, error) {
	jar, err := cookiestore.New(filepath.Join(dataDir(), "cookies.json"), cfg.PortalURL)
	if err != nil {
		return nil, err
	}
	return portal.New(cfg,
		portal.BrowserLaunch(browserConfig()),
		portal.WithCookieStore(jar),
		portal.WithScreenshots(portal.NewFileScreenshotSink(filepath.Join(dataDir(), "screenshots"))),
	), nil
}
