package main

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/scenecore/internal/core"
	"github.com/ajitpratap0/scenecore/internal/watch"
)

func watchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch [project]",
		Short: "Report objects affected by changes to their external files",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cfg.Watch.Enabled {
				return errors.New("watch: file monitoring is disabled (watch.enabled)")
			}
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("watch: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			mon, err := watch.New(cfg.Watch.BaseDir, logger)
			if err != nil {
				return fmt.Errorf("watch: %w", err)
			}
			defer func() { _ = mon.Close() }()

			s, err := openSession(ctx, st, args[0], logger, core.WithFileMonitor(mon))
			if err != nil {
				return fmt.Errorf("watch: %w", err)
			}
			ui := s.ctx.UIChanges()
			ui.Reset()

			fmt.Printf("Watching %d file(s) for %q; press Ctrl-C to stop\n", mon.Watched(), args[0])
			for {
				select {
				case <-ctx.Done():
					return nil
				case <-mon.Ready():
					if mon.Poll() == 0 {
						continue
					}
					for _, o := range ui.PreviewDirtyObjects() {
						fmt.Printf("changed: %s (%s)\n", o.Name(), o.TypeName())
					}
					ui.Reset()
				}
			}
		},
	}
}
