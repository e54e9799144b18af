package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/waabox/opsdeck/internal/config"
	"github.com/waabox/opsdeck/internal/telemetry"
)

// app carries what every subcommand needs once the root pre-run has loaded
// the configuration.
type app struct {
	configPath  string
	output      string
	logLevel    string
	metricsDump bool

	cfg     config.Config
	log     zerolog.Logger
	metrics *telemetry.Metrics
}

// recorder returns the telemetry hook for one external system.
func (a *app) recorder(system string) telemetry.Recorder {
	return telemetry.NewRecorder(system, a.log, a.metrics)
}

// Execute runs the root command.
func Execute(ctx context.Context, version, commit, buildDate string) error {
	return newRootCommand(version, commit, buildDate).ExecuteContext(ctx)
}

func newRootCommand(version, commit, buildDate string) *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "opsdeck",
		Short: "opsdeck - one deck for CI, git, clusters and containers",
		Long: `opsdeck drives the systems a delivery pipeline touches from one place:

  - GitHub Actions workflows, runs, logs and artifacts
  - the local git repository
  - Jenkins jobs, builds, views and nodes
  - Kubernetes resources and manifests
  - the Docker engine and swarm objects`,
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.load()
		},
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			if !a.metricsDump {
				return nil
			}
			return a.metrics.WriteText(os.Stderr)
		},
	}

	rootCmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", config.DefaultConfigPath(), "config file path")
	rootCmd.PersistentFlags().StringVarP(&a.output, "output", "o", "text", "output format: text, json or yaml")
	rootCmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "", "log level (overrides config)")
	rootCmd.PersistentFlags().BoolVar(&a.metricsDump, "metrics-dump", false, "write operation metrics to stderr on exit")

	rootCmd.AddCommand(newActionsCommand(a))
	rootCmd.AddCommand(newGitCommand(a))
	rootCmd.AddCommand(newJenkinsCommand(a))
	rootCmd.AddCommand(newKubeCommand(a))
	rootCmd.AddCommand(newDockerCommand(a))
	rootCmd.AddCommand(newAuthCommand(a))
	rootCmd.AddCommand(newBrowseCommand(a))
	rootCmd.AddCommand(newVersionCommand(a, version, commit, buildDate))

	return rootCmd
}

func (a *app) load() error {
	switch a.output {
	case "text", "json", "yaml":
	default:
		return fmt.Errorf("unknown output format %q", a.output)
	}
	cfg, err := config.LoadFrom(a.configPath)
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	a.cfg = cfg

	level := cfg.Log.Level
	if a.logLevel != "" {
		level = a.logLevel
	}
	a.log = telemetry.NewLogger(telemetry.LoggingConfig{Level: level, Format: cfg.Log.Format})
	a.metrics = telemetry.NewMetrics(telemetry.MetricsConfig{
		Enabled:   cfg.Metrics.Enabled || a.metricsDump,
		Namespace: cfg.Metrics.Namespace,
	})
	return nil
}

func newVersionCommand(a *app, version, commit, buildDate string) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if a.output == "text" {
				fmt.Fprintf(cmd.OutOrStdout(), "opsdeck %s (commit: %s, built: %s)\n", version, commit, buildDate)
				return nil
			}
			return a.printValue(cmd.OutOrStdout(), map[string]string{
				"version": version,
				"commit":  commit,
				"built":   buildDate,
			})
		},
	}
}
