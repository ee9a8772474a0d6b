// Package cli provides the command-line interface for lineagectl.
package cli

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/correlator-io/lineage/internal/config"
	"github.com/correlator-io/lineage/internal/emitter"
)

// Version information (set at build time).
var Version = "1.0.0-dev"

var (
	cfgFile   string
	baseURL   string
	namespace string
)

// NewRootCmd creates and returns the root command.
func NewRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "lineagectl",
		Short: "Emit and verify OpenLineage run events",
		Long: `lineagectl drives the lineage emission toolkit from the command line.

It emits OpenLineage run events for pipeline stages to a Marquez-compatible
backend and verifies that the resulting lineage graph contains every dataset
and job an expected topology declares.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", ".lineage.yaml", "path to YAML config file")
	rootCmd.PersistentFlags().StringVar(&baseURL, "url", "", "backend base URL (overrides config)")
	rootCmd.PersistentFlags().StringVar(&namespace, "namespace", "", "lineage namespace (overrides config)")

	rootCmd.AddCommand(newEmitCmd())
	rootCmd.AddCommand(newVerifyCmd())
	rootCmd.AddCommand(newVersionCmd())

	return rootCmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the lineagectl version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "lineagectl %s\n", Version)
		},
	}
}

// loadConfig resolves effective configuration: env defaults, then the optional
// config file, then explicit flags.
func loadConfig() (*emitter.Config, error) {
	cfg, err := emitter.LoadConfigFile(cfgFile)
	if err != nil {
		return nil, err
	}

	if baseURL != "" {
		cfg.BaseURL = baseURL
	}

	if namespace != "" {
		cfg.Namespace = namespace
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration: %w", err)
	}

	return cfg, nil
}

// newLogger builds the process logger: JSON to stderr so command output on
// stdout stays scriptable, level from the environment.
func newLogger() *slog.Logger {
	return slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{
		Level: config.GetEnvLogLevel("LINEAGE_LOG_LEVEL", slog.LevelInfo),
	}))
}
