package main

import (
	"strconv"

	"github.com/2x3systems/molcanon/libcanon/molgraph"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// NewRankCommand creates the rank command, which prints the canonical rank of each atom.
func NewRankCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rank <expr>...",
		Short: "Print the canonical rank of each atom",
		Long: `Prints one line per molecule expression: the zero-based canonical rank of each atom, in atom order.

Example:
  molcanon rank "C1-C2-O3"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			engine, err := cfg.NewEngine()
			if err != nil {
				return err
			}

			var ranks []int32
			var line []byte
			for _, expr := range args {
				m, err := molgraph.Parse(expr)
				if err != nil {
					return err
				}
				ranks, err = engine.Calculate(m, ranks)
				m.Reclaim()
				if err != nil {
					return errors.Wrapf(err, "%q", expr)
				}
				line = line[:0]
				for i, r := range ranks {
					if i > 0 {
						line = append(line, ' ')
					}
					line = strconv.AppendInt(line, int64(r), 10)
				}
				line = append(line, '\n')
				cmd.OutOrStdout().Write(line)
			}
			return nil
		},
	}
	return cmd
}
