package main

import (
	"fmt"
	"io"
	"os"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/scenecore/internal/metrics"
)

func runCmd() *cobra.Command {
	var (
		dryRun      bool
		showHistory bool
		showMetrics bool
		showErrors  bool
	)

	cmd := &cobra.Command{
		Use:   "run [project] [script]",
		Short: "Run a batch edit script against a project",
		Long:  "Runs the commands in script (\"-\" reads stdin) as undoable edits and saves the project unless --dry-run is set.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()
			name, script := args[0], args[1]

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("run: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			s, err := openSession(ctx, st, name, logger)
			if err != nil {
				return fmt.Errorf("run: %w", err)
			}

			var r io.Reader = os.Stdin
			if script != "-" {
				f, openErr := os.Open(script)
				if openErr != nil {
					return fmt.Errorf("run: opening script: %w", openErr)
				}
				defer func() { _ = f.Close() }()
				r = f
			}

			report, batchErr := s.cmds.Batch(r)
			fmt.Printf("Executed %d command(s) from %d line(s)\n", report.Executed, report.Lines)
			if batchErr != nil {
				return fmt.Errorf("run: %w", batchErr)
			}

			if showHistory {
				fmt.Println("\nUndo history:")
				for i := 0; i < s.stack.Size(); i++ {
					desc, _ := s.stack.Description(i)
					marker := " "
					if i == s.stack.Index() {
						marker = "*"
					}
					fmt.Printf(" %s %3d  %s\n", marker, i, desc)
				}
			}
			if showErrors {
				items := s.ctx.Errors().Items()
				fmt.Printf("\nErrors: %d\n", len(items))
				for _, it := range items {
					fmt.Printf("  %-7s %-11s %s: %s\n", it.Level, it.Category, it.Handle, it.Message)
				}
			}
			if showMetrics {
				snap := metrics.Snapshot()
				keys := make([]string, 0, len(snap))
				for k := range snap {
					keys = append(keys, k)
				}
				sort.Strings(keys)
				fmt.Println("\nMetrics:")
				for _, k := range keys {
					fmt.Printf("  %-40s %d\n", k, snap[k])
				}
			}

			if dryRun {
				fmt.Println("Dry run: project not saved")
				return nil
			}
			if err := st.Save(ctx, name, s.ctx.Project(), s.featureLevel); err != nil {
				return fmt.Errorf("run: %w", err)
			}
			fmt.Printf("Saved %q (%d objects, %d links)\n", name, s.ctx.Project().Len(), len(s.ctx.Project().Links()))
			return nil
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "execute without saving")
	cmd.Flags().BoolVar(&showHistory, "history", false, "print the undo history after running")
	cmd.Flags().BoolVar(&showMetrics, "metrics", false, "print edit counters after running")
	cmd.Flags().BoolVar(&showErrors, "errors", false, "print the error items of the project after running")
	return cmd
}
