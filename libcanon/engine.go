package libcanon

import (
	"github.com/2x3systems/molcanon/molcanon"
	"github.com/pkg/errors"
	"github.com/plan-systems/klog"
)

// Calculate returns the canonical rank (zero-based) of each atom in g.
//
// The ranks are written into the given slice when its capacity allows, otherwise a new slice is returned.
// On error, the given slice is returned unmodified.
func (e *Engine) Calculate(g molcanon.MolecularGraph, ranks []int32) ([]int32, error) {
	X := newGraphState()
	defer X.Reclaim()

	var stats SearchStats
	if err := e.canonize(g, X, &stats); err != nil {
		return ranks, err
	}

	Na := len(X.atoms)
	if cap(ranks) < Na {
		ranks = make([]int32, Na)
	}
	ranks = ranks[:Na]
	copy(ranks, X.ranks)
	return ranks, nil
}

// Canonize computes ranks, symmetry classes and the canonical connection table of g.
// On error, res is left unmodified.
func (e *Engine) Canonize(g molcanon.MolecularGraph, res *Result) error {
	X := newGraphState()
	defer X.Reclaim()

	var stats SearchStats
	if err := e.canonize(g, X, &stats); err != nil {
		return err
	}

	res.Ranks = append(res.Ranks[:0], X.ranks...)
	res.SymClasses = append(res.SymClasses[:0], X.symClasses...)
	res.NumSymClasses = 0
	for ai, sc := range X.symClasses {
		if sc == X.ranks[ai] {
			res.NumSymClasses++
		}
	}
	res.Table = X.graphTable(res.Table[:0], X.ranks)
	res.Stats = stats
	return nil
}

func (e *Engine) canonize(g molcanon.MolecularGraph, X *graphState, stats *SearchStats) error {
	if err := e.cfg.atomFlags.Validate(); err != nil {
		return err
	}
	if err := e.cfg.bondFlags.Validate(); err != nil {
		return err
	}
	if g == nil {
		return molcanon.ErrNilGraph
	}

	if err := X.assignGraph(g, &e.cfg); err != nil {
		return err
	}

	err := X.canonizeComponents(&e.cfg, stats)
	if err != nil {
		if errors.Is(err, molcanon.ErrSearchExhausted) {
			klog.Warningf("canonical search abandoned (%d atoms, %d components): %v", len(X.atoms), stats.Components, err)
		}
		return err
	}

	X.compOrder = X.orderComponents(X.compOrder)

	Na := len(X.atoms)
	X.ranks = resizeInt32(X.ranks, Na)
	X.symClasses = resizeInt32(X.symClasses, Na)
	X.assignRanks(X.compOrder, X.ranks, X.symClasses)

	klog.V(2).Infof("canonized %d atoms: %d components, %d refine rounds, %d search nodes, %d leaves (%d abandoned), %d pruned, %d automorphisms",
		Na, stats.Components, stats.RefineRounds, stats.SearchNodes, stats.Leaves, stats.Abandoned, stats.Pruned, stats.Automorphisms)
	return nil
}
