// evalproc runs evaluation jobs: batches of conversation traces scored
// against LLM judge prompts. It can run as a Temporal worker consuming the
// evaluation task queue, or execute a single job directly for local use.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/navchetna/whispey-sub001/internal/config"
)

var (
	cfgPath string
	verbose bool

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "evalproc",
	Short: "LLM evaluation job processor",
	Long: `evalproc scores batches of conversation traces against LLM judge
prompts, producing per-trace results and per-prompt summaries.

Examples:
  # Run the Temporal worker
  evalproc worker

  # Execute one job directly, without Temporal
  evalproc run --job 7c1f5f3a-6f6e-4c56-a6a1-93a2ffb7f2d1
`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		level := slog.LevelInfo
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
		slog.SetDefault(logger)

		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgPath, "config", "c", "", "Path to the YAML config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(workerCmd)
	rootCmd.AddCommand(runCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
