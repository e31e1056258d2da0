package libcanon

import (
	"sort"

	"github.com/2x3systems/molcanon/molcanon"
	"github.com/pkg/errors"
)

// rankedBond is a (neighbor rank, bond seed) element of an atom record or a stereo bond entry.
type rankedBond struct {
	lo, hi int32
	value  uint64
}

type tableScratch struct {
	nbrs       []rankedBond
	bonds      []rankedBond
	nodeAtRank []int32
	rankOf     []int32
}

// appendTable appends the connection table of nodes[lo:hi] (and stereoBonds[sbLo:sbHi]) under the given ranking.
//
// nodeAtRank[r] is the node (relative to lo) holding rank r, and rankOf is its inverse.
// If stop is non-nil, it is called with the table so far after each atom record; when it returns true
// the table is left incomplete and ok is false.
func (X *graphState) appendTable(
	dst ConnectionTable,
	lo, hi, sbLo, sbHi int32,
	nodeAtRank, rankOf []int32,
	stop func(ConnectionTable) bool,
) (_ ConnectionTable, ok bool) {
	N := hi - lo
	dst = append(dst, uint64(N))

	// Pass 1: connectivity
	for r := int32(0); r < N; r++ {
		v := &X.nodes[lo+nodeAtRank[r]]
		dst = append(dst, v.initLabel)

		nbrs := X.ctab.nbrs[:0]
		for _, e := range X.edges[v.edge0 : v.edge0+v.edgeN] {
			if nr := rankOf[e.nbr-lo]; nr < r {
				nbrs = append(nbrs, rankedBond{lo: nr, value: e.label})
			}
		}
		sort.Slice(nbrs, func(i, j int) bool {
			if nbrs[i].lo != nbrs[j].lo {
				return nbrs[i].lo < nbrs[j].lo
			}
			return nbrs[i].value < nbrs[j].value
		})
		for _, nb := range nbrs {
			dst = append(dst, uint64(nb.lo), nb.value)
		}
		dst = append(dst, TableSentinel)
		X.ctab.nbrs = nbrs
		if stop != nil && stop(dst) {
			return dst, false
		}
	}

	// Pass 2: tetrahedral centers in rank order
	for r := int32(0); r < N; r++ {
		v := &X.nodes[lo+nodeAtRank[r]]
		if !v.stereo.IsSpecified() {
			continue
		}
		inversions := 0
		for i := int32(0); i < v.numRefs; i++ {
			ri := rankOf[v.stereoRefs[i]-lo]
			for j := i + 1; j < v.numRefs; j++ {
				if rankOf[v.stereoRefs[j]-lo] < ri {
					inversions++
				}
			}
		}
		config := v.stereo
		if inversions&1 != 0 {
			config = config.Inverted()
		}
		dst = append(dst, uint64(r), uint64(config))
	}

	// Pass 2: double bonds ordered by (low rank, high rank)
	bonds := X.ctab.bonds[:0]
	for _, sb := range X.stereoBonds[sbLo:sbHi] {
		rb, rc := rankOf[sb.b-lo], rankOf[sb.c-lo]
		config := sb.config
		if X.lowestSubstituent(sb.b, sb.c, lo, rankOf) != sb.a {
			config = config.Inverted()
		}
		if X.lowestSubstituent(sb.c, sb.b, lo, rankOf) != sb.d {
			config = config.Inverted()
		}
		if rb > rc {
			rb, rc = rc, rb
		}
		bonds = append(bonds, rankedBond{lo: rb, hi: rc, value: uint64(config)})
	}
	sort.Slice(bonds, func(i, j int) bool {
		if bonds[i].lo != bonds[j].lo {
			return bonds[i].lo < bonds[j].lo
		}
		return bonds[i].hi < bonds[j].hi
	})
	for _, sb := range bonds {
		dst = append(dst, uint64(sb.lo), uint64(sb.hi), sb.value)
	}
	X.ctab.bonds = bonds

	return dst, true
}

// lowestSubstituent returns the lowest ranked neighbor of node b other than c (global node indices).
func (X *graphState) lowestSubstituent(b, c, lo int32, rankOf []int32) int32 {
	v := &X.nodes[b]
	best := int32(-1)
	for _, e := range X.edges[v.edge0 : v.edge0+v.edgeN] {
		if e.nbr == c {
			continue
		}
		if best < 0 || rankOf[e.nbr-lo] < rankOf[best-lo] {
			best = e.nbr
		}
	}
	return best
}

// graphTable appends the table of the entire assigned graph where ranks[atomIdx] is the rank of each atom.
// pre: ranks is a permutation of the atom indices
func (X *graphState) graphTable(dst ConnectionTable, ranks []int32) ConnectionTable {
	N := len(X.nodes)
	X.ctab.nodeAtRank = resizeInt32(X.ctab.nodeAtRank, N)
	X.ctab.rankOf = resizeInt32(X.ctab.rankOf, N)
	for ai, r := range ranks {
		ni := X.atomToNode[ai]
		X.ctab.nodeAtRank[r] = ni
		X.ctab.rankOf[ni] = r
	}
	dst, _ = X.appendTable(dst, 0, int32(N), 0, int32(len(X.stereoBonds)), X.ctab.nodeAtRank, X.ctab.rankOf, nil)
	return dst
}

// validateRanks returns ErrBadRanks if ranks is not a permutation of 0..Na-1.
func validateRanks(ranks []int32, Na int, seen []bool) error {
	if len(ranks) != Na {
		return errors.Wrapf(molcanon.ErrBadRanks, "have %d ranks for %d atoms", len(ranks), Na)
	}
	for ai, r := range ranks {
		if r < 0 || int(r) >= Na || seen[r] {
			return errors.Wrapf(molcanon.ErrBadRanks, "atom %d has rank %d", ai, r)
		}
		seen[r] = true
	}
	return nil
}

// BuildConnectionTable returns the connection table of g when its atoms are numbered by ranks (zero-based).
//
// The default hydrogen count is used.  Two graphs are isomorphic under the given flags exactly when
// their tables under their canonical ranks are equal.
func BuildConnectionTable(
	g molcanon.MolecularGraph,
	ranks []int32,
	atomFlags molcanon.AtomPropertyFlag,
	bondFlags molcanon.BondPropertyFlag,
) (ConnectionTable, error) {
	if err := atomFlags.Validate(); err != nil {
		return nil, err
	}
	if err := bondFlags.Validate(); err != nil {
		return nil, err
	}
	if g == nil {
		return nil, molcanon.ErrNilGraph
	}

	Na := g.NumAtoms()
	if Na < 0 {
		return nil, errors.Wrap(molcanon.ErrInvalidInput, "negative atom count")
	}
	if err := validateRanks(ranks, Na, make([]bool, Na)); err != nil {
		return nil, err
	}

	X := newGraphState()
	defer X.Reclaim()

	cfg := config{
		atomFlags: atomFlags,
		bondFlags: bondFlags,
	}
	if err := X.assignGraph(g, &cfg); err != nil {
		return nil, err
	}

	return X.graphTable(nil, ranks), nil
}
