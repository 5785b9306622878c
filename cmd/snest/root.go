package main

import (
	"github.com/spf13/cobra"
)

var configPath string

// NewRootCmd builds the snest command tree.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "snest",
		Short: "Genetic-algorithm polygon nester",
		Long:  "snest packs irregular sticker shapes into fixed-size bins using a bottom-left-fill placement engine driven by a genetic search over orderings and rotations.",
	}

	root.PersistentFlags().StringVar(&configPath, "config", "", "path to a YAML config file (optional)")

	root.AddCommand(newNestCmd())
	root.AddCommand(newServeCmd())
	root.AddCommand(newVersionCmd())

	return root
}
