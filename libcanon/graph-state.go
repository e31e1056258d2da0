package libcanon

import (
	"sort"
	"sync"

	"github.com/2x3systems/molcanon/molcanon"
	"github.com/pkg/errors"
)

// atomNode is the working state of one atom during a canonicalization run.
//
// Nodes of one connected component are contiguous in graphState.nodes and ordered by ascending atom index.
type atomNode struct {
	atomIdx   int32  // index of the source atom
	initLabel uint64 // atom seed; fixed for the run
	label     uint64 // current refinement value
	newLabel  uint64 // value to commit at the end of a refinement round
	edge0     int32  // first edge in graphState.edges
	edgeN     int32  // number of edges

	stereo     molcanon.StereoConfig // specified tetrahedral config, else ConfigNone
	numRefs    int32
	stereoRefs [4]int32 // global node indices
}

// nodeEdge is one end of a bond, owned by the node it leaves from.
type nodeEdge struct {
	bondIdx int32
	label   uint64 // bond seed
	nbr     int32  // global node index of the atom this edge leads to
}

// stereoBond is a double bond with a specified cis/trans config, expressed as global node indices.
type stereoBond struct {
	b, c   int32 // bond end points
	a, d   int32 // reference substituents on b and c
	config molcanon.StereoConfig
	comp   int32
}

// component is a maximal connected set of nodes: nodes[lo:hi], edges[edgeLo:edgeHi], stereoBonds[sbLo:sbHi].
type component struct {
	lo, hi         int32
	edgeLo, edgeHi int32
	sbLo, sbHi     int32

	table      ConnectionTable // best table found for this component
	ranks      []int32         // local rank for each local node
	symClasses []int32         // lowest local rank within each local node's orbit
}

func (comp *component) numNodes() int32 {
	return comp.hi - comp.lo
}

// graphState owns all working memory of one canonicalization run.
type graphState struct {
	atoms     []molcanon.AtomProps
	bonds     []molcanon.BondProps
	atomSeeds []uint64
	bondSeeds []uint64

	adjStart []int32 // atom index => start offset into adj (Na+1 entries)
	adj      []int32 // bond indices grouped by atom

	atomComp   []int32 // atom index => component index
	atomToNode []int32 // atom index => global node index
	queue      []int32

	nodes       []atomNode
	edges       []nodeEdge
	stereoBonds []stereoBond
	comps       []component
	compOrder   []int32

	ranks      []int32 // atom index => global rank
	symClasses []int32 // atom index => lowest global rank in its orbit

	search searcher
	ctab   tableScratch
}

var graphPool = sync.Pool{
	New: func() interface{} {
		return &graphState{}
	},
}

func newGraphState() *graphState {
	return graphPool.Get().(*graphState)
}

// Reclaim returns X to the pool; caller asserts no references to X persist.
func (X *graphState) Reclaim() {
	X.reset(0, 0)
	graphPool.Put(X)
}

func resizeInt32(buf []int32, N int) []int32 {
	if cap(buf) < N {
		return make([]int32, N, N+N/2+8)
	}
	return buf[:N]
}

func resizeUint64(buf []uint64, N int) []uint64 {
	if cap(buf) < N {
		return make([]uint64, N, N+N/2+8)
	}
	return buf[:N]
}

// reset sizes all per-atom and per-bond buffers, retaining allocations from previous runs.
func (X *graphState) reset(Na, Nb int) {
	if cap(X.atoms) < Na {
		X.atoms = make([]molcanon.AtomProps, Na, Na+Na/2+8)
	}
	X.atoms = X.atoms[:Na]
	if cap(X.bonds) < Nb {
		X.bonds = make([]molcanon.BondProps, Nb, Nb+Nb/2+8)
	}
	X.bonds = X.bonds[:Nb]

	X.atomSeeds = resizeUint64(X.atomSeeds, Na)
	X.bondSeeds = resizeUint64(X.bondSeeds, Nb)
	X.adjStart = resizeInt32(X.adjStart, Na+1)
	X.adj = resizeInt32(X.adj, 2*Nb)
	X.atomComp = resizeInt32(X.atomComp, Na)
	X.atomToNode = resizeInt32(X.atomToNode, Na)

	X.queue = X.queue[:0]
	X.nodes = X.nodes[:0]
	X.edges = X.edges[:0]
	X.stereoBonds = X.stereoBonds[:0]
	for i := range X.comps {
		X.comps[i].table = X.comps[i].table[:0]
	}
	X.comps = X.comps[:0]
}

// atomBonds returns the indices of bonds incident to the given atom.
func (X *graphState) atomBonds(atomIdx int32) []int32 {
	return X.adj[X.adjStart[atomIdx]:X.adjStart[atomIdx+1]]
}

func (X *graphState) otherEnd(bondIdx, atomIdx int32) int32 {
	b := &X.bonds[bondIdx]
	if b.Begin == atomIdx {
		return b.End
	}
	return b.Begin
}

func (X *graphState) isNeighbor(atomIdx, other int32) bool {
	for _, bi := range X.atomBonds(atomIdx) {
		if X.otherEnd(bi, atomIdx) == other {
			return true
		}
	}
	return false
}

// assignGraph builds the working node / edge graph for g.
//
// On error, X is left in an unspecified (but reusable) state.
func (X *graphState) assignGraph(g molcanon.MolecularGraph, cfg *config) error {
	Na := g.NumAtoms()
	Nb := g.NumBonds()
	if Na < 0 || Nb < 0 {
		return errors.Wrap(molcanon.ErrInvalidInput, "negative atom or bond count")
	}
	X.reset(Na, Nb)

	for ai := range X.atoms {
		X.atoms[ai] = g.Atom(ai)
		X.adjStart[ai] = 0
	}
	X.adjStart[Na] = 0

	// Validate bonds and tally degrees (shifted by one so the prefix sum yields start offsets)
	for bi := range X.bonds {
		b := g.Bond(bi)
		if b.Begin < 0 || int(b.Begin) >= Na || b.End < 0 || int(b.End) >= Na {
			return errors.Wrapf(molcanon.ErrBadBondRef, "bond %d (%d-%d)", bi, b.Begin, b.End)
		}
		if b.Begin == b.End {
			return errors.Wrapf(molcanon.ErrBadBondRef, "bond %d is a self loop on atom %d", bi, b.Begin)
		}
		X.bonds[bi] = b
		X.adjStart[b.Begin+1]++
		X.adjStart[b.End+1]++
	}
	for ai := 0; ai < Na; ai++ {
		X.adjStart[ai+1] += X.adjStart[ai]
	}

	// Fill adjacency in ascending bond order, using atomToNode as a temporary cursor
	cursor := X.atomToNode
	copy(cursor, X.adjStart[:Na])
	for bi := range X.bonds {
		b := &X.bonds[bi]
		X.adj[cursor[b.Begin]] = int32(bi)
		cursor[b.Begin]++
		X.adj[cursor[b.End]] = int32(bi)
		cursor[b.End]++
	}

	if err := X.computeSeeds(g, cfg); err != nil {
		return err
	}

	X.buildComponents()

	if err := X.assignStereo(cfg); err != nil {
		return err
	}

	return nil
}

// buildComponents discovers connected components (in order of their lowest atom index) and lays out nodes and edges.
func (X *graphState) buildComponents() {
	Na := int32(len(X.atoms))

	for ai := range X.atomComp {
		X.atomComp[ai] = -1
		X.atomToNode[ai] = -1
	}

	for seed := int32(0); seed < Na; seed++ {
		if X.atomComp[seed] >= 0 {
			continue
		}
		compID := int32(len(X.comps))

		// Breadth-first walk from the seed atom
		queue := append(X.queue[:0], seed)
		X.atomComp[seed] = compID
		for qi := 0; qi < len(queue); qi++ {
			ai := queue[qi]
			for _, bi := range X.atomBonds(ai) {
				aj := X.otherEnd(bi, ai)
				if X.atomComp[aj] < 0 {
					X.atomComp[aj] = compID
					queue = append(queue, aj)
				}
			}
		}
		X.queue = queue

		sort.Slice(queue, func(i, j int) bool {
			return queue[i] < queue[j]
		})

		comp := component{
			lo:     int32(len(X.nodes)),
			edgeLo: int32(len(X.edges)),
		}
		for _, ai := range queue {
			X.atomToNode[ai] = int32(len(X.nodes))
			X.nodes = append(X.nodes, atomNode{
				atomIdx:   ai,
				initLabel: X.atomSeeds[ai],
			})
		}
		comp.hi = int32(len(X.nodes))

		// With every node of this component placed, lay out its edges
		for ni := comp.lo; ni < comp.hi; ni++ {
			v := &X.nodes[ni]
			v.edge0 = int32(len(X.edges))
			for _, bi := range X.atomBonds(v.atomIdx) {
				X.edges = append(X.edges, nodeEdge{
					bondIdx: bi,
					label:   X.bondSeeds[bi],
					nbr:     X.atomToNode[X.otherEnd(bi, v.atomIdx)],
				})
			}
			v.edgeN = int32(len(X.edges)) - v.edge0
		}
		comp.edgeHi = int32(len(X.edges))

		if cap(X.comps) > len(X.comps) {
			X.comps = X.comps[:compID+1]
			prev := X.comps[compID]
			comp.table = prev.table[:0]
			comp.ranks = prev.ranks[:0]
			comp.symClasses = prev.symClasses[:0]
			X.comps[compID] = comp
		} else {
			X.comps = append(X.comps, comp)
		}
	}
}

// assignStereo validates specified stereo descriptors and binds them to nodes.
// Descriptors are ignored entirely when the corresponding configuration flag is off.
func (X *graphState) assignStereo(cfg *config) error {
	Na := int32(len(X.atoms))
	atomStereo := cfg.atomFlags&molcanon.AtomConfiguration != 0
	bondStereo := cfg.bondFlags&molcanon.BondConfiguration != 0

	for ni := range X.nodes {
		v := &X.nodes[ni]
		st := &X.atoms[v.atomIdx].Stereo
		v.stereo = molcanon.ConfigNone
		if !atomStereo || !st.Config.IsSpecified() {
			continue
		}
		if st.NumRefs != 3 && st.NumRefs != 4 {
			return errors.Wrapf(molcanon.ErrBadStereoRef, "atom %d has %d reference atoms", v.atomIdx, st.NumRefs)
		}
		for i := 0; i < int(st.NumRefs); i++ {
			ref := st.Refs[i]
			if ref < 0 || ref >= Na || !X.isNeighbor(v.atomIdx, ref) {
				return errors.Wrapf(molcanon.ErrBadStereoRef, "atom %d reference %d is not a neighbor", v.atomIdx, ref)
			}
			for j := 0; j < i; j++ {
				if st.Refs[j] == ref {
					return errors.Wrapf(molcanon.ErrBadStereoRef, "atom %d lists reference %d twice", v.atomIdx, ref)
				}
			}
			v.stereoRefs[i] = X.atomToNode[ref]
		}
		v.numRefs = int32(st.NumRefs)
		v.stereo = st.Config
	}

	for bi := range X.bonds {
		bond := &X.bonds[bi]
		st := &bond.Stereo
		if !bondStereo || !st.Config.IsSpecified() {
			continue
		}
		a, b, c, d := st.Refs[0], st.Refs[1], st.Refs[2], st.Refs[3]
		ends := (b == bond.Begin && c == bond.End) || (b == bond.End && c == bond.Begin)
		if !ends {
			return errors.Wrapf(molcanon.ErrBadStereoRef, "bond %d stereo does not name its own end points", bi)
		}
		if a < 0 || a >= Na || a == c || !X.isNeighbor(b, a) {
			return errors.Wrapf(molcanon.ErrBadStereoRef, "bond %d reference %d", bi, a)
		}
		if d < 0 || d >= Na || d == b || !X.isNeighbor(c, d) {
			return errors.Wrapf(molcanon.ErrBadStereoRef, "bond %d reference %d", bi, d)
		}
		X.stereoBonds = append(X.stereoBonds, stereoBond{
			a:      X.atomToNode[a],
			b:      X.atomToNode[b],
			c:      X.atomToNode[c],
			d:      X.atomToNode[d],
			config: st.Config,
			comp:   X.atomComp[b],
		})
	}

	// Group stereo bonds by component (bond order is kept within a component)
	sbs := X.stereoBonds
	sort.SliceStable(sbs, func(i, j int) bool {
		return sbs[i].comp < sbs[j].comp
	})
	si := int32(0)
	for ci := range X.comps {
		comp := &X.comps[ci]
		comp.sbLo = si
		for int(si) < len(sbs) && sbs[si].comp == int32(ci) {
			si++
		}
		comp.sbHi = si
	}

	return nil
}
