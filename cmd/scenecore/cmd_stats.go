package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/scenecore/internal/usertypes"
)

func statsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "stats [project]",
		Short: "Show project statistics",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("stats: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			res, err := st.Load(ctx, args[0], usertypes.NewFactory())
			if err != nil {
				return fmt.Errorf("stats: %w", err)
			}
			p := res.Project

			byType := make(map[string]int)
			for _, o := range p.Instances() {
				byType[o.TypeName()]++
			}
			types := make([]string, 0, len(byType))
			for t := range byType {
				types = append(types, t)
			}
			sort.Strings(types)

			invalid, weak := 0, 0
			for _, l := range p.Links() {
				if !l.Valid {
					invalid++
				}
				if l.Weak {
					weak++
				}
			}

			fmt.Printf("File version:  %s\n", res.Version)
			fmt.Printf("Feature level: %d\n", res.FeatureLevel)
			fmt.Printf("Total objects: %d (%d top-level)\n\n", p.Len(), len(p.RootObjects()))

			fmt.Println("By type:")
			for _, t := range types {
				fmt.Printf("  %-16s %d\n", t, byType[t])
			}

			fmt.Printf("\nLinks: %d (%d weak, %d invalid)\n", len(p.Links()), weak, invalid)
			if n := res.Warnings.Len(); n > 0 {
				fmt.Printf("Load warnings: %d\n", n)
			}
			return nil
		},
	}
}
