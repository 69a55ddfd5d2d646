// Package cli provides the command-line interface for magnus-diag.
package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/magnus-flipper/magnus/internal/config"
	"github.com/magnus-flipper/magnus/internal/diagnostics"
	"github.com/magnus-flipper/magnus/internal/logger"
	"github.com/magnus-flipper/magnus/internal/version"
)

const (
	envAPIKey  = "RENDER_API_KEY"
	envBaseURL = "RENDER_BASE_URL"
)

type options struct {
	apiKey   string
	baseURL  string
	timeout  time.Duration
	retryMax int
	logLimit int
	env      string
	verbose  bool

	log *zap.Logger
	// newAPI is replaced in tests.
	newAPI func(o *options) (diagnostics.API, error)
}

func defaultAPI(o *options) (diagnostics.API, error) {
	return diagnostics.NewClient(diagnostics.Config{
		APIKey:   o.apiKey,
		BaseURL:  o.baseURL,
		Timeout:  o.timeout,
		RetryMax: o.retryMax,
		Logger:   o.log,
	})
}

// NewRootCmd creates the magnus-diag command tree.
func NewRootCmd() *cobra.Command {
	return newRootCmd(&options{newAPI: defaultAPI})
}

func newRootCmd(o *options) *cobra.Command {
	root := &cobra.Command{
		Use:   "magnus-diag",
		Short: "Inspect Render services, datastores and logs",
		Long: `magnus-diag checks the deployment platform that hosts the magnus services.

It lists services grouped by health, scans the logs of failed services for
known failure patterns, lists managed Postgres and Redis instances and
verifies required environment variables.`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			level := "warn"
			if o.verbose {
				level = "debug"
			}
			l, err := logger.NewLogger("local", "magnus-diag", level)
			if err != nil {
				return err
			}
			o.log = l
			if o.env != "" {
				return o.applyConfig(cmd)
			}
			return nil
		},
		PersistentPostRun: func(*cobra.Command, []string) {
			if o.log != nil {
				_ = o.log.Sync()
			}
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&o.apiKey, "api-key", os.Getenv(envAPIKey), "Render API key (env "+envAPIKey+")")
	pf.StringVar(&o.baseURL, "base-url", envOr(envBaseURL, diagnostics.DefaultBaseURL), "Render API base URL (env "+envBaseURL+")")
	pf.DurationVar(&o.timeout, "timeout", 30*time.Second, "Per-request timeout")
	pf.IntVar(&o.retryMax, "retries", 2, "Retries for connection errors and 5xx responses")
	pf.IntVar(&o.logLimit, "log-limit", diagnostics.DefaultLogLimit, "Log lines fetched per service")
	pf.StringVar(&o.env, "env", "", "Read Render settings from config/<env>.yaml (flags win)")
	pf.BoolVarP(&o.verbose, "verbose", "v", false, "Verbose output (shows debug messages)")

	root.AddCommand(
		newRunCmd(o),
		newServicesCmd(o),
		newLogsCmd(o),
		newEnvCmd(o),
		newAnalyzeCmd(o),
	)
	return root
}

// Execute runs the command tree and returns the process exit code.
func Execute(ctx context.Context) int {
	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		return 1
	}
	return 0
}

// applyConfig fills settings left unset by both flags and environment
// variables from the render section of the environment's config file.
func (o *options) applyConfig(cmd *cobra.Command) error {
	cfg, err := config.LoadRender(o.env)
	if err != nil {
		return err
	}
	if unset(cmd, "api-key", envAPIKey) && cfg.APIKey != "" {
		o.apiKey = cfg.APIKey
	}
	if unset(cmd, "base-url", envBaseURL) && cfg.BaseURL != "" {
		o.baseURL = cfg.BaseURL
	}
	if !cmd.Flags().Changed("log-limit") {
		o.logLimit = cfg.LogLimit
	}
	o.log.Debug("loaded render settings", zap.String("env", o.env), zap.String("base_url", o.baseURL))
	return nil
}

func unset(cmd *cobra.Command, name, envKey string) bool {
	return !cmd.Flags().Changed(name) && os.Getenv(envKey) == ""
}

func (o *options) api() (diagnostics.API, error) {
	if o.apiKey == "" {
		return nil, fmt.Errorf("no API key: pass --api-key or set %s", envAPIKey)
	}
	return o.newAPI(o)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
