package main

import (
	"fmt"

	"github.com/2x3systems/molcanon/libcanon"
	"github.com/2x3systems/molcanon/libcanon/molgraph"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// canonizer pairs an engine with the scratch needed to emit canonical expressions.
type canonizer struct {
	engine *libcanon.Engine
	res    libcanon.Result
	expr   []byte
}

// canonize parses expr and returns the hash of its canonical table and its canonical expression.
// The returned expression is valid until the next call.
func (c *canonizer) canonize(expr string) (uint64, []byte, error) {
	m, err := molgraph.Parse(expr)
	if err != nil {
		return 0, nil, err
	}
	defer m.Reclaim()

	if err = c.engine.Canonize(m, &c.res); err != nil {
		return 0, nil, errors.Wrapf(err, "%q", expr)
	}
	c.expr, err = molgraph.AppendCanonicalExpr(c.expr[:0], m, c.res.Ranks)
	if err != nil {
		return 0, nil, err
	}
	return libcanon.CanonicalHash(c.res.Table), c.expr, nil
}

// NewCanonCommand creates the canon command, which prints the canonical form of each molecule.
func NewCanonCommand(rootOpts *RootOptions) *cobra.Command {
	var showStats bool

	cmd := &cobra.Command{
		Use:   "canon <expr>...",
		Short: "Print the canonical hash and expression of each molecule",
		Long: `Prints one line per molecule expression: the 64-bit hash of its canonical table
followed by its canonical expression.  Equivalent molecules print identical lines.

Example:
  molcanon canon "O1-C2-C3" "C1-C2-O3"`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := rootOpts.resolve(cmd.Flags())
			if err != nil {
				return err
			}
			c := canonizer{}
			if c.engine, err = cfg.NewEngine(); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			for _, expr := range args {
				hash, canonic, err := c.canonize(expr)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%016x %s\n", hash, canonic)
				if showStats {
					st := &c.res.Stats
					fmt.Fprintf(out, "  classes=%d components=%d rounds=%d nodes=%d leaves=%d abandoned=%d pruned=%d automorphisms=%d\n",
						c.res.NumSymClasses, st.Components, st.RefineRounds, st.SearchNodes, st.Leaves, st.Abandoned, st.Pruned, st.Automorphisms)
				}
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&showStats, "stats", false, "also print symmetry and search statistics")
	return cmd
}
