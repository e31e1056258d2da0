package catalog

import "github.com/2x3systems/molcanon/molcanon"

// CanonicSet allows adding molecular graphs and reporting if an equivalent graph has already been added.
type CanonicSet interface {

	// TryAdd adds the given graph if no equivalent graph is present.
	//
	// Returns the ID of the (new or existing) structure and true if g was added.
	// Equivalence is decided by the canonical connection table under the set's property flags.
	TryAdd(g molcanon.MolecularGraph) (ID, bool, error)

	// Count returns the number of unique structures added.
	Count() uint64

	// Close releases all resources; subsequent calls to TryAdd return ErrClosed.
	Close() error
}

var (
	_ CanonicSet = (*Catalog)(nil)
	_ CanonicSet = (*dropDupes)(nil)
)
