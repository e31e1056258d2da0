package libcanon

import (
	"github.com/2x3systems/molcanon/molcanon"
	"github.com/pkg/errors"
)

// choicePoint is one level of the backtracking search: the target cell and the next member to try.
type choicePoint struct {
	cellLo, cellHi int32 // members in searcher.cellBuf[cellLo:cellHi]
	next           int32 // index (relative to cellLo) of the next member to try
	trailMark      int32 // trail length before any member was individualized
	numClasses     int32 // class count before any member was individualized
}

// leafCmp is the running comparison of a table under construction against the first and best leaves.
type leafCmp struct {
	checked int  // elements compared so far
	vsBest  int  // -1, 0, +1 over the compared prefix
	firstEq bool // compared prefix equals the first table
}

// searcher canonicalizes one component at a time.  All node indices it holds are local to the component.
type searcher struct {
	X          *graphState
	lo, n      int32
	sbLo, sbHi int32
	numClasses int32
	stats      *SearchStats
	budget     int

	order     []int32
	pairs     []sigPair
	pairStart []int32
	trail     []trailEntry
	classSize []int32

	stack   []choicePoint
	cellBuf []int32

	haveLeaf        bool
	nodeAtRank      []int32
	rankOf          []int32
	firstNodeAtRank []int32
	bestNodeAtRank  []int32
	table           ConnectionTable
	firstTable      ConnectionTable
	bestTable       ConnectionTable
	cmp             leafCmp
	stopLeaf        func(ConnectionTable) bool

	gamma   []int32
	gens    [][]int32
	numGens int
	orbits  []int32 // union-find over all automorphisms found
	scratch []int32 // union-find over the generators that fix a given prefix
}

func (s *searcher) reset(X *graphState, comp *component, stats *SearchStats, budget int) {
	s.X = X
	s.lo = comp.lo
	s.n = comp.numNodes()
	s.sbLo, s.sbHi = comp.sbLo, comp.sbHi
	s.numClasses = 0
	s.stats = stats
	s.budget = budget

	N := int(s.n)
	s.order = resizeInt32(s.order, N)
	s.pairStart = resizeInt32(s.pairStart, N+1)
	s.pairs = s.pairs[:0]
	s.trail = s.trail[:0]
	s.stack = s.stack[:0]
	s.cellBuf = s.cellBuf[:0]

	s.haveLeaf = false
	if s.stopLeaf == nil {
		s.stopLeaf = s.worsePrefix
	}
	s.nodeAtRank = resizeInt32(s.nodeAtRank, N)
	s.rankOf = resizeInt32(s.rankOf, N)
	s.firstNodeAtRank = resizeInt32(s.firstNodeAtRank, N)
	s.bestNodeAtRank = resizeInt32(s.bestNodeAtRank, N)

	s.gamma = resizeInt32(s.gamma, N)
	s.numGens = 0
	s.orbits = resizeInt32(s.orbits, N)
	s.scratch = resizeInt32(s.scratch, N)
	for i := range s.orbits {
		s.orbits[i] = int32(i)
	}
}

func ufFind(uf []int32, i int32) int32 {
	for uf[i] != i {
		uf[i] = uf[uf[i]]
		i = uf[i]
	}
	return i
}

func ufUnion(uf []int32, i, j int32) {
	ri, rj := ufFind(uf, i), ufFind(uf, j)
	switch {
	case ri < rj:
		uf[rj] = ri
	case rj < ri:
		uf[ri] = rj
	}
}

// canonize finds the smallest connection table of the component and stores it, its ranks and symmetry classes in comp.
func (s *searcher) canonize(X *graphState, comp *component, stats *SearchStats, budget int) error {
	s.reset(X, comp, stats, budget)

	s.initLabels()
	s.refine()

	if s.numClasses == s.n {
		s.visitLeaf()
	} else if err := s.search(); err != nil {
		return err
	}

	N := s.n
	comp.table = append(comp.table[:0], s.bestTable...)
	comp.ranks = resizeInt32(comp.ranks, int(N))
	for r := int32(0); r < N; r++ {
		comp.ranks[s.bestNodeAtRank[r]] = r
	}

	// symmetry class := lowest rank within the orbit; ranks are visited in ascending order
	minRank := s.scratch
	for i := range minRank {
		minRank[i] = -1
	}
	comp.symClasses = resizeInt32(comp.symClasses, int(N))
	for r := int32(0); r < N; r++ {
		vi := s.bestNodeAtRank[r]
		root := ufFind(s.orbits, vi)
		if minRank[root] < 0 {
			minRank[root] = r
		}
		comp.symClasses[vi] = minRank[root]
	}
	return nil
}

// search explores individualizations of the current (equitable, non-discrete) partition.
func (s *searcher) search() error {
	s.pushChoicePoint()

	for len(s.stack) > 0 {
		k := len(s.stack) - 1
		cp := &s.stack[k]
		if cp.next >= cp.cellHi-cp.cellLo {
			s.cellBuf = s.cellBuf[:cp.cellLo]
			s.stack = s.stack[:k]
			continue
		}
		w := s.cellBuf[cp.cellLo+cp.next]
		cp.next++

		if s.isPruned(k, w) {
			s.stats.Pruned++
			continue
		}
		if s.stats.SearchNodes >= s.budget {
			return errors.Wrapf(molcanon.ErrSearchExhausted, "after %d individualizations", s.stats.SearchNodes)
		}
		s.stats.SearchNodes++

		s.undoTrail(int(cp.trailMark))
		s.numClasses = cp.numClasses
		s.individualize(w)
		s.refine()

		if s.numClasses == s.n {
			s.visitLeaf()
		} else {
			s.pushChoicePoint()
		}
	}
	return nil
}

// pushChoicePoint selects the target cell of the current partition: the smallest non-singleton class
// (lowest label on ties), with members listed by ascending node index.
func (s *searcher) pushChoicePoint() {
	s.classSize = resizeInt32(s.classSize, int(s.n))
	for i := range s.classSize {
		s.classSize[i] = 0
	}
	for vi := int32(0); vi < s.n; vi++ {
		s.classSize[s.node(vi).label]++
	}

	target := int32(-1)
	for label, size := range s.classSize {
		if size > 1 && (target < 0 || size < s.classSize[target]) {
			target = int32(label)
		}
	}

	cp := choicePoint{
		cellLo:     int32(len(s.cellBuf)),
		trailMark:  int32(len(s.trail)),
		numClasses: s.numClasses,
	}
	for vi := int32(0); vi < s.n; vi++ {
		if s.node(vi).label == uint64(target) {
			s.cellBuf = append(s.cellBuf, vi)
		}
	}
	cp.cellHi = int32(len(s.cellBuf))
	s.stack = append(s.stack, cp)
}

// isPruned returns true if w is equivalent to a member of the same cell already tried at choice point k,
// under the automorphisms found so far that fix every node individualized above k.
func (s *searcher) isPruned(k int, w int32) bool {
	cp := &s.stack[k]
	tried := s.cellBuf[cp.cellLo : cp.cellLo+cp.next-1]
	if len(tried) == 0 {
		return false
	}

	uf := s.orbits
	if k > 0 {
		if s.numGens == 0 {
			return false
		}
		uf = s.scratch
		for i := range uf {
			uf[i] = int32(i)
		}
		for _, gen := range s.gens[:s.numGens] {
			if !s.fixesPrefix(gen, k) {
				continue
			}
			for i, gi := range gen {
				ufUnion(uf, int32(i), gi)
			}
		}
	}

	root := ufFind(uf, w)
	for _, u := range tried {
		if ufFind(uf, u) == root {
			return true
		}
	}
	return false
}

// fixesPrefix returns true if gen maps every node currently individualized at levels 0..k-1 to itself.
func (s *searcher) fixesPrefix(gen []int32, k int) bool {
	for _, cp := range s.stack[:k] {
		v := s.cellBuf[cp.cellLo+cp.next-1]
		if gen[v] != v {
			return false
		}
	}
	return true
}

// visitLeaf builds the table of the current discrete partition and compares it with the first and best leaves.
// Construction stops once the table can neither beat the best leaf nor reproduce the first.
func (s *searcher) visitLeaf() {
	s.stats.Leaves++

	for vi := int32(0); vi < s.n; vi++ {
		r := int32(s.node(vi).label)
		s.rankOf[vi] = r
		s.nodeAtRank[r] = vi
	}

	if !s.haveLeaf {
		s.haveLeaf = true
		s.table, _ = s.X.appendTable(s.table[:0], s.lo, s.lo+s.n, s.sbLo, s.sbHi, s.nodeAtRank, s.rankOf, nil)
		s.firstTable = append(s.firstTable[:0], s.table...)
		s.bestTable = append(s.bestTable[:0], s.table...)
		copy(s.firstNodeAtRank, s.nodeAtRank)
		copy(s.bestNodeAtRank, s.nodeAtRank)
		return
	}

	s.cmp = leafCmp{firstEq: true}
	var complete bool
	s.table, complete = s.X.appendTable(s.table[:0], s.lo, s.lo+s.n, s.sbLo, s.sbHi, s.nodeAtRank, s.rankOf, s.stopLeaf)
	if !complete {
		s.stats.Abandoned++
		return
	}
	s.worsePrefix(s.table)

	firstMatch := s.cmp.firstEq && len(s.table) == len(s.firstTable)
	if firstMatch {
		s.addAutomorphism(s.firstNodeAtRank)
	}

	vsBest := s.cmp.vsBest
	if vsBest == 0 && len(s.table) != len(s.bestTable) {
		vsBest = -1
		if len(s.table) > len(s.bestTable) {
			vsBest = 1
		}
	}
	switch vsBest {
	case -1:
		s.bestTable = append(s.bestTable[:0], s.table...)
		copy(s.bestNodeAtRank, s.nodeAtRank)
	case 0:
		if !firstMatch {
			s.addAutomorphism(s.bestNodeAtRank)
		}
	}
}

// worsePrefix extends s.cmp over the elements of table not yet compared and returns true if the table is
// already greater than the best table and differs from the first.
func (s *searcher) worsePrefix(table ConnectionTable) bool {
	c := &s.cmp
	for ; c.checked < len(table); c.checked++ {
		x := table[c.checked]
		if c.firstEq && (c.checked >= len(s.firstTable) || x != s.firstTable[c.checked]) {
			c.firstEq = false
		}
		if c.vsBest == 0 {
			switch {
			case c.checked >= len(s.bestTable):
				c.vsBest = 1
			case x < s.bestTable[c.checked]:
				c.vsBest = -1
			case x > s.bestTable[c.checked]:
				c.vsBest = 1
			}
		}
	}
	return c.vsBest > 0 && !c.firstEq
}

// addAutomorphism records the map taking the leaf ref to the current leaf (which has an identical table).
func (s *searcher) addAutomorphism(ref []int32) {
	gamma := s.gamma
	identity := true
	for r := int32(0); r < s.n; r++ {
		gamma[ref[r]] = s.nodeAtRank[r]
		if ref[r] != s.nodeAtRank[r] {
			identity = false
		}
	}
	if identity {
		return
	}

	s.stats.Automorphisms++
	for i, gi := range gamma {
		ufUnion(s.orbits, int32(i), gi)
	}

	if s.numGens < MaxGenerators {
		if s.numGens == len(s.gens) {
			s.gens = append(s.gens, nil)
		}
		s.gens[s.numGens] = append(s.gens[s.numGens][:0], gamma...)
		s.numGens++
	}
}
