package libcanon

import (
	"github.com/emirpasic/gods/trees/redblacktree"
)

// canonizeComponents canonicalizes each connected component independently.
func (X *graphState) canonizeComponents(cfg *config, stats *SearchStats) error {
	stats.Components = len(X.comps)
	for ci := range X.comps {
		if err := X.search.canonize(X, &X.comps[ci], stats, cfg.maxSearchNodes); err != nil {
			return err
		}
	}
	return nil
}

// orderComponents returns component indices ordered by their canonical tables.
// Components with identical tables keep their input order.
func (X *graphState) orderComponents(order []int32) []int32 {
	byTable := redblacktree.Tree{
		Comparator: func(A, B interface{}) int {
			return A.(ConnectionTable).Compare(B.(ConnectionTable))
		},
	}

	for ci := range X.comps {
		table := X.comps[ci].table
		var same []int32
		if val, found := byTable.Get(table); found {
			same = val.([]int32)
		}
		byTable.Put(table, append(same, int32(ci)))
	}

	order = order[:0]
	itr := byTable.Iterator()
	for itr.Next() {
		order = append(order, itr.Value().([]int32)...)
	}
	return order
}

// assignRanks writes the global rank and symmetry class of every atom.
// Components are laid out in the given order, each offset by the number of atoms ranked before it.
// Components with identical tables are images of each other, so they share the symmetry classes of the first.
func (X *graphState) assignRanks(order []int32, ranks, symClasses []int32) {
	offset := int32(0)
	symOffset := int32(0)
	var prev *component
	for _, ci := range order {
		comp := &X.comps[ci]
		if prev == nil || !comp.table.IsEqual(prev.table) {
			symOffset = offset
		}
		for local := int32(0); local < comp.numNodes(); local++ {
			ai := X.nodes[comp.lo+local].atomIdx
			ranks[ai] = offset + comp.ranks[local]
			symClasses[ai] = symOffset + comp.symClasses[local]
		}
		offset += comp.numNodes()
		prev = comp
	}
}
