package molgraph

import (
	"sort"
	"strconv"

	"github.com/2x3systems/molcanon/molcanon"
	"github.com/pkg/errors"
)

type rankedLink struct {
	loRank  int32
	bondIdx int32
	kind    byte
}

// exprWriter holds the state of one AppendCanonicalExpr call.
type exprWriter struct {
	m          *Molecule
	ranks      []int32
	atomAtRank []int32
	nbrs       [][]int32 // atom index => neighboring atom indices
	links      [][]rankedLink
}

// AppendCanonicalExpr appends a molecule expression for m to dst, numbering atom ids by the given (zero-based) ranks.
//
// When ranks are canonical, isomorphic molecules produce identical expressions.  Stereo descriptors are
// re-expressed relative to the lowest ranked reference atoms so they do not depend on input order.
func AppendCanonicalExpr(dst []byte, m *Molecule, ranks []int32) ([]byte, error) {
	Na := m.NumAtoms()
	if err := checkPerm(ranks, Na); err != nil {
		return dst, errors.Wrap(molcanon.ErrBadRanks, err.Error())
	}

	w := exprWriter{
		m:          m,
		ranks:      ranks,
		atomAtRank: make([]int32, Na),
		nbrs:       make([][]int32, Na),
		links:      make([][]rankedLink, Na),
	}
	for ai, r := range ranks {
		w.atomAtRank[r] = int32(ai)
	}

	for bi, bond := range m.bonds {
		if bond.Begin < 0 || int(bond.Begin) >= Na || bond.End < 0 || int(bond.End) >= Na {
			return dst, errors.Wrapf(molcanon.ErrBadBondRef, "bond %d", bi)
		}
		kind, err := bondKind(&bond)
		if err != nil {
			return dst, errors.Wrapf(err, "bond %d", bi)
		}
		w.nbrs[bond.Begin] = append(w.nbrs[bond.Begin], bond.End)
		w.nbrs[bond.End] = append(w.nbrs[bond.End], bond.Begin)

		lo, hi := bond.Begin, bond.End
		if ranks[lo] > ranks[hi] {
			lo, hi = hi, lo
		}
		w.links[hi] = append(w.links[hi], rankedLink{
			loRank:  ranks[lo],
			bondIdx: int32(bi),
			kind:    kind,
		})
	}

	for r := int32(0); r < int32(Na); r++ {
		if r > 0 {
			dst = append(dst, ", "...)
		}
		ai := w.atomAtRank[r]
		links := w.links[ai]
		if len(links) == 0 {
			dst = w.appendAtom(dst, ai, true)
			continue
		}

		sort.Slice(links, func(i, j int) bool {
			if links[i].loRank != links[j].loRank {
				return links[i].loRank < links[j].loRank
			}
			return links[i].kind < links[j].kind
		})
		for li, link := range links {
			if li > 0 {
				dst = append(dst, ", "...)
			}
			dst = w.appendAtom(dst, w.atomAtRank[link.loRank], false)
			dst = append(dst, link.kind)
			dst = w.appendBondStereo(dst, link.bondIdx)
			dst = w.appendAtom(dst, ai, li == 0)
		}
	}
	return dst, nil
}

func bondKind(bond *molcanon.BondProps) (byte, error) {
	if bond.Aromatic {
		return ':', nil
	}
	switch bond.Order {
	case 1:
		return '-', nil
	case 2:
		return '=', nil
	case 3:
		return '#', nil
	}
	return 0, errors.Wrapf(ErrBadExpr, "bond order %d has no expression", bond.Order)
}

func (w *exprWriter) appendID(dst []byte, ai int32) []byte {
	return strconv.AppendInt(dst, int64(w.ranks[ai])+1, 10)
}

func (w *exprWriter) appendAtom(dst []byte, ai int32, withProps bool) []byte {
	atom := &w.m.atoms[ai]
	dst = append(dst, ElementSymbol(atom.Type)...)
	dst = w.appendID(dst, ai)
	if !withProps {
		return dst
	}

	mark := len(dst)
	dst = append(dst, '[')
	sep := func() {
		if len(dst) > mark+1 {
			dst = append(dst, ' ')
		}
	}
	if atom.Isotope != 0 {
		dst = append(dst, "iso="...)
		dst = strconv.AppendUint(dst, uint64(atom.Isotope), 10)
	}
	if atom.Charge != 0 {
		sep()
		dst = append(dst, "chg="...)
		if atom.Charge > 0 {
			dst = append(dst, '+')
		}
		dst = strconv.AppendInt(dst, int64(atom.Charge), 10)
	}
	if atom.ImplicitHCount != 0 {
		sep()
		dst = append(dst, "h="...)
		dst = strconv.AppendUint(dst, uint64(atom.ImplicitHCount), 10)
	}
	if atom.Aromatic {
		sep()
		dst = append(dst, "arom"...)
	}
	switch st := &atom.Stereo; {
	case st.Config == molcanon.ConfigEither:
		sep()
		dst = append(dst, "either"...)
	case st.Config.IsSpecified() && w.validRefs(st):
		sep()
		dst = w.appendAtomStereo(dst, st)
	}

	if len(dst) == mark+1 {
		return dst[:mark]
	}
	return append(dst, ']')
}

func (w *exprWriter) validRefs(st *molcanon.AtomStereo) bool {
	if int(st.NumRefs) > len(st.Refs) {
		return false
	}
	for _, ref := range st.Refs[:st.NumRefs] {
		if ref < 0 || int(ref) >= len(w.ranks) {
			return false
		}
	}
	return true
}

// appendAtomStereo writes the descriptor with refs sorted by rank; an odd reordering inverts the sense.
func (w *exprWriter) appendAtomStereo(dst []byte, st *molcanon.AtomStereo) []byte {
	N := int(st.NumRefs)
	refs := st.Refs
	config := st.Config
	for i := 1; i < N; i++ {
		for j := i; j > 0 && w.ranks[refs[j]] < w.ranks[refs[j-1]]; j-- {
			refs[j], refs[j-1] = refs[j-1], refs[j]
			config = config.Inverted()
		}
	}

	if config == molcanon.ConfigClockwise {
		dst = append(dst, "cw("...)
	} else {
		dst = append(dst, "ccw("...)
	}
	for i := 0; i < N; i++ {
		if i > 0 {
			dst = append(dst, ',')
		}
		dst = w.appendID(dst, refs[i])
	}
	return append(dst, ')')
}

// lowestSubstituent returns the lowest ranked neighbor of b other than c.
func (w *exprWriter) lowestSubstituent(b, c int32) int32 {
	best := int32(-1)
	for _, nb := range w.nbrs[b] {
		if nb != c && (best < 0 || w.ranks[nb] < w.ranks[best]) {
			best = nb
		}
	}
	return best
}

// appendBondStereo writes [cis(a,d)] / [trans(a,d)] where a and d are the lowest ranked substituents of the
// lower and higher ranked bond ends.
func (w *exprWriter) appendBondStereo(dst []byte, bondIdx int32) []byte {
	bond := &w.m.bonds[bondIdx]
	st := &bond.Stereo
	switch {
	case st.Config == molcanon.ConfigEither:
		return append(dst, "[either]"...)
	case !st.Config.IsSpecified():
		return dst
	}

	lo, hi := bond.Begin, bond.End
	if w.ranks[lo] > w.ranks[hi] {
		lo, hi = hi, lo
	}
	refLo, refHi := st.Refs[0], st.Refs[3]
	if st.Refs[1] != lo {
		refLo, refHi = refHi, refLo
	}

	config := st.Config
	a := w.lowestSubstituent(lo, hi)
	d := w.lowestSubstituent(hi, lo)
	if a < 0 || d < 0 {
		return dst
	}
	if a != refLo {
		config = config.Inverted()
	}
	if d != refHi {
		config = config.Inverted()
	}

	if config == molcanon.ConfigCis {
		dst = append(dst, "[cis("...)
	} else {
		dst = append(dst, "[trans("...)
	}
	dst = w.appendID(dst, a)
	dst = append(dst, ',')
	dst = w.appendID(dst, d)
	return append(dst, ")]"...)
}
