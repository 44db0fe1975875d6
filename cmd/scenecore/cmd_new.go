package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/scenecore/internal/core"
	"github.com/ajitpratap0/scenecore/internal/store"
	"github.com/ajitpratap0/scenecore/internal/usertypes"
)

func newCmd() *cobra.Command {
	var (
		featureLevel int
		force        bool
	)

	cmd := &cobra.Command{
		Use:   "new [name]",
		Short: "Create an empty project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()
			name := args[0]

			if featureLevel == 0 {
				featureLevel = cfg.Project.FeatureLevel
			}
			if featureLevel < usertypes.FeatureLevelMin || featureLevel > usertypes.FeatureLevelMax {
				return fmt.Errorf("new: feature level must be between %d and %d", usertypes.FeatureLevelMin, usertypes.FeatureLevelMax)
			}

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("new: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			if !force {
				_, loadErr := st.Load(ctx, name, usertypes.NewFactory())
				if loadErr == nil {
					return fmt.Errorf("new: project %q already exists (use --force to replace it)", name)
				}
				if !errors.Is(loadErr, store.ErrNotFound) {
					return fmt.Errorf("new: checking %q: %w", name, loadErr)
				}
			}

			pctx := core.NewContext(nil, usertypes.NewFactory(), logger)
			if _, err := pctx.CreateObject(usertypes.TypeProjectSettings, name, ""); err != nil {
				return fmt.Errorf("new: creating settings: %w", err)
			}
			if err := st.Save(ctx, name, pctx.Project(), featureLevel); err != nil {
				return fmt.Errorf("new: %w", err)
			}

			fmt.Printf("Created project %q at %s (feature level %d)\n", name, st.Path(name), featureLevel)
			return nil
		},
	}

	cmd.Flags().IntVar(&featureLevel, "feature-level", 0, "project feature level (default from config)")
	cmd.Flags().BoolVar(&force, "force", false, "replace an existing project")
	return cmd
}
