package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/scenecore/internal/serialization"
	"github.com/ajitpratap0/scenecore/internal/usertypes"
)

func exportCmd() *cobra.Command {
	var (
		format string
		output string
	)

	cmd := &cobra.Command{
		Use:   "export [project]",
		Short: "Export a project as JSON or YAML",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger()
			ctx := cmd.Context()

			st, err := newStore(logger)
			if err != nil {
				return fmt.Errorf("export: opening store: %w", err)
			}
			defer func() { _ = st.Close() }()

			res, err := st.Load(ctx, args[0], usertypes.NewFactory())
			if err != nil {
				return fmt.Errorf("export: %w", err)
			}
			level := res.FeatureLevel
			if level == 0 {
				level = cfg.Project.FeatureLevel
			}

			var out []byte
			switch format {
			case "json":
				out, err = serialization.Serialize(res.Project, level)
			case "yaml":
				out, err = serialization.ExportYAML(res.Project, level)
			default:
				return fmt.Errorf("export: unknown format %q (use json or yaml)", format)
			}
			if err != nil {
				return fmt.Errorf("export: encoding: %w", err)
			}

			w := os.Stdout
			if output != "" && output != "-" {
				w, err = os.Create(output)
				if err != nil {
					return fmt.Errorf("export: creating output file: %w", err)
				}
				defer func() { _ = w.Close() }()
			}
			if _, err := w.Write(out); err != nil {
				return fmt.Errorf("export: writing: %w", err)
			}
			if output != "" && output != "-" {
				fmt.Fprintf(os.Stderr, "Exported %d objects to %s\n", res.Project.Len(), output)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "output format: json or yaml")
	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default: stdout)")
	return cmd
}
