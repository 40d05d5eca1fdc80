package cli

import (
	"context"
	"os"

	charmlog "github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/jstackviz/jstackviz/pkg/buildinfo"
	"github.com/jstackviz/jstackviz/pkg/config"
)

// Execute runs the jstackviz CLI and returns an error if any command fails.
//
// The root command wires up all subcommands, loads the optional TOML config
// file, and attaches a leveled logger to the command context (info by
// default, debug with --verbose).
func Execute(ctx context.Context) error {
	var (
		verbose    bool
		configPath string
	)

	root := &cobra.Command{
		Use:          "jstackviz",
		Short:        "jstackviz finds deadlocks in JVM thread dumps",
		Long:         `jstackviz parses the textual output of jstack-style thread dump tools, derives the blocked-on graph between threads, detects deadlock cycles, and renders the result as DOT text or images.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			level := charmlog.InfoLevel
			if verbose {
				level = charmlog.DebugLevel
			}

			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}

			ctx := withLogger(cmd.Context(), newLogger(os.Stderr, level))
			ctx = withConfig(ctx, cfg)
			cmd.SetContext(ctx)
			return nil
		},
	}

	root.SetVersionTemplate(buildinfo.Template())
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose logging")
	root.PersistentFlags().StringVar(&configPath, "config", "", "config file (default: $XDG_CONFIG_HOME/jstackviz/config.toml)")

	root.AddCommand(newAnalyzeCmd())
	root.AddCommand(newRenderCmd())
	root.AddCommand(newThreadsCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newCompletionCmd())

	return root.ExecuteContext(ctx)
}
