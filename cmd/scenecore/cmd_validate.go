package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/scenecore/internal/store"
	"github.com/ajitpratap0/scenecore/internal/usertypes"
)

func validateCmd() *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate [project...]",
		Short: "Load projects and report problems",
		Long:  "Loads the named projects, or every stored project when none are named, and prints the warnings produced while loading.",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("validate: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			names := args
			if len(names) == 0 {
				names, err = st.List(ctx)
				if err != nil {
					return fmt.Errorf("validate: %w", err)
				}
			}
			if len(names) == 0 {
				fmt.Println("No projects found.")
				return nil
			}

			results, err := store.LoadAll(ctx, st, names, usertypes.NewFactory(), cfg.Project.LoadConcurrency)
			if err != nil {
				return fmt.Errorf("validate: %w", err)
			}

			total := 0
			for i, res := range results {
				n := res.Warnings.Len()
				total += n
				fmt.Printf("%-24s v%s  level %d  %4d objects  %3d links  %d warning(s)\n",
					names[i], res.Version, res.FeatureLevel, res.Project.Len(), len(res.Project.Links()), n)
				for _, w := range res.Warnings.Flatten() {
					fmt.Printf("    %s\n", w)
				}
			}
			if strict && total > 0 {
				return fmt.Errorf("validate: %d warning(s)", total)
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "fail when any project loads with warnings")
	return cmd
}
