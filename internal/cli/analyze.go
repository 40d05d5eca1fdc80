package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jstackviz/jstackviz/pkg/analyze"
	"github.com/jstackviz/jstackviz/pkg/deadlock"
)

// newAnalyzeCmd creates the analyze command.
func newAnalyzeCmd() *cobra.Command {
	var (
		includeIsolated bool
		output          string
		quiet           bool
	)

	cmd := &cobra.Command{
		Use:   "analyze [dump-file]",
		Short: "Parse a thread dump and emit the blocked-on graph as DOT",
		Long: `Analyze parses a jstack-style thread dump, builds the blocked-on graph
between threads, detects deadlock cycles, and writes the graph as DOT text.

Threads caught in a deadlock cycle are highlighted. Reads from stdin when
no file is given or the file is "-".`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			logger := loggerFromContext(ctx)
			cfg := configFromContext(ctx)

			if !cmd.Flags().Changed("include-isolated") {
				includeIsolated = cfg.IncludeIsolated
			}

			path := ""
			if len(args) == 1 {
				path = args[0]
			}

			text, err := readInput(path)
			if err != nil {
				return err
			}

			prog := newProgress(logger)
			a, err := analyze.Analyze(text)
			if err != nil {
				return err
			}
			prog.done(fmt.Sprintf("Parsed %d threads", len(a.Report.Threads)))

			attrs := analyze.Highlight(a.Elements, cfg.Highlight.Fill, cfg.Highlight.Font)
			g := analyze.BuildGraph(a, includeIsolated, attrs)

			out, err := openOutput(output)
			if err != nil {
				return err
			}
			defer out.Close()

			if _, err := fmt.Fprint(out, g.DOT()); err != nil {
				return fmt.Errorf("write dot: %w", err)
			}

			if quiet {
				return nil
			}
			trapped := deadlock.Deadlocked(a.Elements)
			if len(trapped) > 0 {
				printWarning("%d threads deadlocked across %d wait edges", len(trapped), len(a.Elements))
			} else {
				printSuccess("No deadlocks found (%d nodes, %d edges)", g.NodeCount(), g.EdgeCount())
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&includeIsolated, "include-isolated", false, "include lock-holding threads that have no graph edges")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write DOT to file instead of stdout")
	cmd.Flags().BoolVarP(&quiet, "quiet", "q", false, "suppress the summary line")

	return cmd
}
