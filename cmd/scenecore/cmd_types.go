package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ajitpratap0/scenecore/internal/usertypes"
)

func typesCmd() *cobra.Command {
	var featureLevel int

	cmd := &cobra.Command{
		Use:   "types",
		Short: "List registered object types",
		RunE: func(cmd *cobra.Command, args []string) error {
			factory := usertypes.NewFactory()
			if featureLevel == 0 {
				featureLevel = cfg.Project.FeatureLevel
			}

			fmt.Printf("%-16s %-6s %-9s %-6s %s\n", "TYPE", "LEVEL", "CREATABLE", "CHILD", "BASES")
			for _, name := range factory.Types() {
				desc, _ := factory.Descriptor(name)
				creatable := factory.IsUserCreatable(name, featureLevel)
				fmt.Printf("%-16s %-6d %-9t %-6t %s\n",
					name, desc.FeatureLevel, creatable, desc.CanBeChild, strings.Join(desc.Bases, ","))
			}

			fmt.Println("\nStructs:")
			for _, name := range factory.Structs() {
				fmt.Printf("  %s\n", name)
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&featureLevel, "feature-level", 0, "feature level used for the CREATABLE column")
	return cmd
}
