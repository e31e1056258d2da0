package main

import (
	"fmt"
	"io"
	"os"

	"github.com/2x3systems/molcanon/libcanon/catalog"
	"github.com/2x3systems/molcanon/libcanon/molstream"
	"github.com/plan-systems/klog"
	"github.com/spf13/cobra"
)

// DedupeOptions holds flags for the dedupe command.
type DedupeOptions struct {
	Transient bool
	NewOnly   bool
}

// NewDedupeCommand creates the dedupe command, which adds each molecule in a file to a catalog.
func NewDedupeCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &DedupeOptions{}

	cmd := &cobra.Command{
		Use:   "dedupe <file | ->",
		Short: "Catalog the molecules in a file, reporting duplicates",
		Long: `Reads one molecule expression per line ("-" reads stdin; blank lines and lines
starting with '#' are skipped) and adds each to the catalog.  Prints the catalog ID
of each molecule, whether it was new or a duplicate, and the expression as given.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.resolve(cmd.Flags())
			if err != nil {
				return err
			}

			var in io.Reader
			if args[0] == "-" {
				in = cmd.InOrStdin()
			} else {
				file, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer file.Close()
				in = file
			}
			return dedupe(cmd.OutOrStdout(), in, &cfg, opts)
		},
	}

	cmd.Flags().BoolVar(&opts.Transient, "transient", false, "dedupe in memory without a catalog database")
	cmd.Flags().BoolVar(&opts.NewOnly, "new-only", false, "print only molecules not seen before")
	return cmd
}

func dedupe(out io.Writer, in io.Reader, cfg *Config, opts *DedupeOptions) error {
	var set catalog.CanonicSet
	var err error
	if opts.Transient {
		set, err = cfg.NewDropDupes()
	} else {
		set, err = cfg.OpenCatalog()
	}
	if err != nil {
		return err
	}
	defer set.Close()

	stream := molstream.ReadExprs(in).AddTo(set)
	if opts.NewOnly {
		stream = stream.DropDupes()
	}
	count, err := stream.Print(out).PullAll()
	if err != nil {
		return err
	}

	klog.V(1).Infof("dedupe: %d molecules, %d unique", count, set.Count())
	fmt.Fprintf(out, "unique: %d\n", set.Count())
	return nil
}
