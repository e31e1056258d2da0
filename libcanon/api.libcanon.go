package libcanon

import (
	"github.com/2x3systems/molcanon/molcanon"
)

const (

	// DefaultMaxSearchNodes is the default cap on the number of individualizations a single Calculate may perform.
	DefaultMaxSearchNodes = 1 << 20

	// MaxGenerators is the max number of automorphism generators retained for pruning during one component search.
	MaxGenerators = 64

	// TableSentinel terminates an atom record in a ConnectionTable.
	TableSentinel = ^uint64(0)
)

// ConnectionTable is a canonical-order serialization of a (fully ranked) molecular graph.
//
//	[0]             atom count
//	per atom:       seed, (rank, bond seed)* for lower ranked neighbors, TableSentinel
//	per stereo atom: rank, config
//	per stereo bond: low rank, high rank, config
//
// Tables are compared lexicographically and the smaller table is preferred.
type ConnectionTable []uint64

// Compare returns -1, 0, or +1 if T sorts before, equal to, or after T2.
func (T ConnectionTable) Compare(T2 ConnectionTable) int {
	N := len(T)
	if len(T2) < N {
		N = len(T2)
	}
	for i := 0; i < N; i++ {
		if T[i] != T2[i] {
			if T[i] < T2[i] {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(T) < len(T2):
		return -1
	case len(T) > len(T2):
		return 1
	}
	return 0
}

// IsEqual returns true if T and T2 are identical.
func (T ConnectionTable) IsEqual(T2 ConnectionTable) bool {
	return T.Compare(T2) == 0
}

// Result is the complete output of Engine.Canonize.
type Result struct {
	Ranks         []int32         // canonical rank for each atom index (a permutation of 0..NumAtoms-1)
	SymClasses    []int32         // symmetry class for each atom index: the lowest rank within the atom's orbit
	NumSymClasses int             // number of distinct symmetry classes
	Table         ConnectionTable // table of the graph under Ranks
	Stats         SearchStats
}

// SearchStats tallies the work done by one canonicalization.
type SearchStats struct {
	Components    int // connected components
	RefineRounds  int // refinement rounds over all components
	SearchNodes   int // individualizations
	Leaves        int // discrete partitions reached
	Abandoned     int // leaves whose table was dropped at a prefix worse than the best
	Pruned        int // candidates skipped due to known automorphisms
	Automorphisms int // leaves that reproduced the best table
}

// config is the state of an Engine that persists across Calculate calls.
type config struct {
	atomFlags      molcanon.AtomPropertyFlag
	bondFlags      molcanon.BondPropertyFlag
	hCount         molcanon.HCountFunc
	maxSearchNodes int
}

// Engine computes canonical atom numberings.
//
// An Engine is not safe for concurrent use; use one Engine per goroutine or serialize calls.
type Engine struct {
	cfg config
}

// NewEngine returns an Engine configured with the default atom and bond property flags.
func NewEngine() *Engine {
	return &Engine{
		cfg: config{
			atomFlags:      molcanon.DefaultAtomPropertyFlags,
			bondFlags:      molcanon.DefaultBondPropertyFlags,
			maxSearchNodes: DefaultMaxSearchNodes,
		},
	}
}

// SetAtomPropertyFlags sets which atom attributes contribute to atom invariants (effective on the next call).
func (e *Engine) SetAtomPropertyFlags(flags molcanon.AtomPropertyFlag) error {
	if err := flags.Validate(); err != nil {
		return err
	}
	e.cfg.atomFlags = flags
	return nil
}

func (e *Engine) AtomPropertyFlags() molcanon.AtomPropertyFlag {
	return e.cfg.atomFlags
}

// SetBondPropertyFlags sets which bond attributes contribute to bond invariants (effective on the next call).
func (e *Engine) SetBondPropertyFlags(flags molcanon.BondPropertyFlag) error {
	if err := flags.Validate(); err != nil {
		return err
	}
	e.cfg.bondFlags = flags
	return nil
}

func (e *Engine) BondPropertyFlags() molcanon.BondPropertyFlag {
	return e.cfg.bondFlags
}

// SetHCountFunc installs a hydrogen count override; nil restores the default count.
func (e *Engine) SetHCountFunc(fn molcanon.HCountFunc) {
	e.cfg.hCount = fn
}

func (e *Engine) HCountFunc() molcanon.HCountFunc {
	return e.cfg.hCount
}

// SetMaxSearchNodes caps the number of individualizations per call; values <= 0 restore the default.
func (e *Engine) SetMaxSearchNodes(maxNodes int) {
	if maxNodes <= 0 {
		maxNodes = DefaultMaxSearchNodes
	}
	e.cfg.maxSearchNodes = maxNodes
}

func (e *Engine) MaxSearchNodes() int {
	return e.cfg.maxSearchNodes
}
