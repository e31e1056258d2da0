package main

import (
	"github.com/spf13/cobra"
)

// NewRootCommand creates the root command for the molcanon CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{
		Config: DefaultConfig(),
	}

	cmd := &cobra.Command{
		Use:           "molcanon",
		Short:         "molcanon - canonical atom numbering for molecular graphs",
		Long:          "Computes canonical ranks, canonical expressions and dedupe catalogs for molecular graphs.",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	// Global flags
	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "YAML config file")
	flags.StringSliceVar(&opts.AtomFlags, "atom-flags", opts.AtomFlags, "atom properties that distinguish atoms (type,isotope,charge,aromaticity,config,h-count,default,all)")
	flags.StringSliceVar(&opts.BondFlags, "bond-flags", opts.BondFlags, "bond properties that distinguish bonds (order,aromaticity,config,default,all)")
	flags.IntVar(&opts.MaxSearchNodes, "max-search-nodes", 0, "search budget per molecule (0 for the default)")
	flags.StringVar(&opts.CatalogPath, "catalog", "", "catalog directory used by dedupe (in memory if empty)")

	// Add subcommands
	cmd.AddCommand(NewRankCommand(opts))
	cmd.AddCommand(NewCanonCommand(opts))
	cmd.AddCommand(NewDedupeCommand(opts))

	return cmd
}
