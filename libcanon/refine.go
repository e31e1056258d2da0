package libcanon

import (
	"sort"
)

// sigPair is one (edge label, neighbor label) element of a node signature.
type sigPair struct {
	edge uint64
	nbr  uint64
}

// trailEntry records a node label prior to a committed change.
type trailEntry struct {
	node  int32 // local node index
	label uint64
}

func (s *searcher) node(local int32) *atomNode {
	return &s.X.nodes[s.lo+local]
}

// initLabels labels each node by the position of its seed class within the component.
//
// A label is always the number of nodes in lower classes, so a discrete partition labels nodes 0..n-1.
func (s *searcher) initLabels() {
	order := s.order[:s.n]
	for i := range order {
		order[i] = int32(i)
	}
	sort.Slice(order, func(i, j int) bool {
		return s.node(order[i]).initLabel < s.node(order[j]).initLabel
	})

	s.numClasses = 0
	label := uint64(0)
	for i, vi := range order {
		v := s.node(vi)
		if i == 0 || v.initLabel != s.node(order[i-1]).initLabel {
			label = uint64(i)
			s.numClasses++
		}
		v.label = label
	}
}

// loadSignatures builds the sorted (edge label, neighbor label) sequence of every node.
func (s *searcher) loadSignatures() {
	pairs := s.pairs[:0]
	for vi := int32(0); vi < s.n; vi++ {
		s.pairStart[vi] = int32(len(pairs))
		v := s.node(vi)
		for _, e := range s.X.edges[v.edge0 : v.edge0+v.edgeN] {
			pairs = append(pairs, sigPair{
				edge: e.label,
				nbr:  s.X.nodes[e.nbr].label,
			})
		}
		sig := pairs[s.pairStart[vi]:]
		sort.Slice(sig, func(i, j int) bool {
			if sig[i].edge != sig[j].edge {
				return sig[i].edge < sig[j].edge
			}
			return sig[i].nbr < sig[j].nbr
		})
	}
	s.pairStart[s.n] = int32(len(pairs))
	s.pairs = pairs
}

// compareSignatures orders two local nodes by (label, pairs...), shorter sequences first.
func (s *searcher) compareSignatures(vi, vj int32) int {
	li, lj := s.node(vi).label, s.node(vj).label
	if li != lj {
		if li < lj {
			return -1
		}
		return 1
	}

	si := s.pairs[s.pairStart[vi]:s.pairStart[vi+1]]
	sj := s.pairs[s.pairStart[vj]:s.pairStart[vj+1]]
	N := len(si)
	if len(sj) < N {
		N = len(sj)
	}
	for k := 0; k < N; k++ {
		a, b := si[k], sj[k]
		if a.edge != b.edge {
			if a.edge < b.edge {
				return -1
			}
			return 1
		}
		if a.nbr != b.nbr {
			if a.nbr < b.nbr {
				return -1
			}
			return 1
		}
	}
	switch {
	case len(si) < len(sj):
		return -1
	case len(si) > len(sj):
		return 1
	}
	return 0
}

// computeNewLabels assigns newLabel to every node and returns the resulting class count.
// No label is changed.
func (s *searcher) computeNewLabels() int32 {
	s.loadSignatures()

	order := s.order[:s.n]
	for i := range order {
		order[i] = int32(i)
	}
	sort.Slice(order, func(i, j int) bool {
		return s.compareSignatures(order[i], order[j]) < 0
	})

	numClasses := int32(0)
	label := uint64(0)
	for i, vi := range order {
		if i == 0 || s.compareSignatures(order[i-1], vi) != 0 {
			label = uint64(i)
			numClasses++
		}
		s.node(vi).newLabel = label
	}
	return numClasses
}

// commitLabels moves newLabel into label for every node, recording each change on the trail.
func (s *searcher) commitLabels() {
	for vi := int32(0); vi < s.n; vi++ {
		v := s.node(vi)
		if v.newLabel != v.label {
			s.trail = append(s.trail, trailEntry{vi, v.label})
			v.label = v.newLabel
		}
	}
}

// undoTrail restores labels to the state they were in when the trail was at the given mark.
func (s *searcher) undoTrail(mark int) {
	for i := len(s.trail) - 1; i >= mark; i-- {
		t := s.trail[i]
		s.node(t.node).label = t.label
	}
	s.trail = s.trail[:mark]
}

// refine iterates rounds until the partition is equitable (a round adds no classes).
//
// Signatures lead with the current label, so a class at positions [c, c+size) only splits within that range.
func (s *searcher) refine() {
	for s.numClasses < s.n {
		s.stats.RefineRounds++
		numClasses := s.computeNewLabels()
		if numClasses <= s.numClasses {
			break
		}
		s.commitLabels()
		s.numClasses = numClasses
	}
}

// individualize splits the local node w from its class: w keeps the lowest position of the class and
// the other members move up one.
// pre: w's class has at least two members
func (s *searcher) individualize(w int32) {
	c := s.node(w).label
	for vi := int32(0); vi < s.n; vi++ {
		v := s.node(vi)
		if vi != w && v.label == c {
			s.trail = append(s.trail, trailEntry{vi, v.label})
			v.label = c + 1
		}
	}
	s.numClasses++
}
