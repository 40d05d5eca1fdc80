package cli

import (
	"fmt"
	"os"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/jstackviz/jstackviz/pkg/analyze"
	"github.com/jstackviz/jstackviz/pkg/deadlock"
)

// newThreadsCmd creates the threads command.
func newThreadsCmd() *cobra.Command {
	var interactive bool

	cmd := &cobra.Command{
		Use:   "threads [dump-file]",
		Short: "List the threads parsed from a dump",
		Long: `Threads parses a dump and lists every thread with its state, the locks
it holds, and the locks it is waiting for. Threads caught in a deadlock
cycle are marked.

With --interactive the list opens in a scrollable browser.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			text, err := readInput(path)
			if err != nil {
				return err
			}

			a, err := analyze.Analyze(text)
			if err != nil {
				return err
			}
			trapped := deadlock.Deadlocked(a.Elements)

			if interactive {
				model := NewThreadListModel(a.Report.Threads, trapped)
				p := tea.NewProgram(model, tea.WithContext(ctx), tea.WithOutput(os.Stderr))
				if _, err := p.Run(); err != nil {
					return fmt.Errorf("run thread browser: %w", err)
				}
				return nil
			}

			for _, t := range a.Report.Threads {
				name := StyleValue.Render(t.Name)
				if trapped[t] {
					name = StyleDeadlocked.Render(t.Name + " ⚠")
				}
				fmt.Printf("%s  %s\n", name, renderState(t.State))
				if len(t.Held) > 0 {
					fmt.Printf("  %s %s\n", StyleDim.Render("holds:"), lockSummary(t.Held))
				}
				if len(t.Waits) > 0 {
					fmt.Printf("  %s %s\n", StyleDim.Render("waits:"), waitSummary(t.Waits))
				}
			}

			fmt.Println()
			if len(trapped) > 0 {
				printWarning("%d of %d threads deadlocked", len(trapped), len(a.Report.Threads))
			} else {
				printInfo("%d threads, no deadlocks", len(a.Report.Threads))
			}
			return nil
		},
	}

	cmd.Flags().BoolVarP(&interactive, "interactive", "i", false, "browse threads in an interactive list")

	return cmd
}
