package molgraph

import (
	"sync"

	"github.com/2x3systems/molcanon/molcanon"
	"github.com/pkg/errors"
)

// Molecule is an in-memory molecular graph that implements molcanon.MolecularGraph.
type Molecule struct {
	atoms []molcanon.AtomProps
	bonds []molcanon.BondProps
}

var moleculePool = sync.Pool{
	New: func() interface{} {
		return &Molecule{}
	},
}

// NewMolecule returns an empty Molecule from the pool.
func NewMolecule() *Molecule {
	return moleculePool.Get().(*Molecule)
}

// Reclaim resets m and returns it to the pool; caller asserts no references to m persist.
func (m *Molecule) Reclaim() {
	m.Reset()
	moleculePool.Put(m)
}

// Reset removes all atoms and bonds, retaining allocations.
func (m *Molecule) Reset() {
	m.atoms = m.atoms[:0]
	m.bonds = m.bonds[:0]
}

func (m *Molecule) NumAtoms() int {
	return len(m.atoms)
}

func (m *Molecule) NumBonds() int {
	return len(m.bonds)
}

func (m *Molecule) Atom(atomIdx int) molcanon.AtomProps {
	return m.atoms[atomIdx]
}

func (m *Molecule) Bond(bondIdx int) molcanon.BondProps {
	return m.bonds[bondIdx]
}

// AddAtom appends an atom and returns its index.
func (m *Molecule) AddAtom(atom molcanon.AtomProps) int32 {
	m.atoms = append(m.atoms, atom)
	return int32(len(m.atoms) - 1)
}

// AddBond appends a bond and returns its index.  Bond end points are not checked here.
func (m *Molecule) AddBond(bond molcanon.BondProps) int32 {
	m.bonds = append(m.bonds, bond)
	return int32(len(m.bonds) - 1)
}

// SetAtom replaces the properties of an existing atom.
func (m *Molecule) SetAtom(atomIdx int32, atom molcanon.AtomProps) {
	m.atoms[atomIdx] = atom
}

// Clone returns a deep copy of m.
func (m *Molecule) Clone() *Molecule {
	dup := NewMolecule()
	dup.atoms = append(dup.atoms, m.atoms...)
	dup.bonds = append(dup.bonds, m.bonds...)
	return dup
}

// Permute returns a copy of m where atom i is stored at atomPerm[i] and bond j at bondPerm[j].
// A nil bondPerm keeps the bond order.  If swapEnds is set, every bond lists its end points in reverse.
//
// The result is isomorphic to m: only storage order changes.
func (m *Molecule) Permute(atomPerm, bondPerm []int32, swapEnds bool) (*Molecule, error) {
	Na, Nb := len(m.atoms), len(m.bonds)
	if err := checkPerm(atomPerm, Na); err != nil {
		return nil, errors.Wrap(err, "atom permutation")
	}
	if bondPerm != nil {
		if err := checkPerm(bondPerm, Nb); err != nil {
			return nil, errors.Wrap(err, "bond permutation")
		}
	}

	remap := func(ai int32) int32 {
		if ai < 0 || int(ai) >= Na {
			return ai
		}
		return atomPerm[ai]
	}

	dup := NewMolecule()
	if cap(dup.atoms) < Na {
		dup.atoms = make([]molcanon.AtomProps, Na)
	}
	dup.atoms = dup.atoms[:Na]
	if cap(dup.bonds) < Nb {
		dup.bonds = make([]molcanon.BondProps, Nb)
	}
	dup.bonds = dup.bonds[:Nb]

	for ai, atom := range m.atoms {
		for i := 0; i < int(atom.Stereo.NumRefs) && i < len(atom.Stereo.Refs); i++ {
			atom.Stereo.Refs[i] = remap(atom.Stereo.Refs[i])
		}
		dup.atoms[atomPerm[ai]] = atom
	}

	for bi, bond := range m.bonds {
		bond.Begin = remap(bond.Begin)
		bond.End = remap(bond.End)
		if bond.Stereo.Config != molcanon.ConfigNone {
			for i := range bond.Stereo.Refs {
				bond.Stereo.Refs[i] = remap(bond.Stereo.Refs[i])
			}
		}
		if swapEnds {
			bond.Begin, bond.End = bond.End, bond.Begin
			r := &bond.Stereo.Refs
			r[0], r[1], r[2], r[3] = r[3], r[2], r[1], r[0]
		}
		dst := bi
		if bondPerm != nil {
			dst = int(bondPerm[bi])
		}
		dup.bonds[dst] = bond
	}

	return dup, nil
}

func checkPerm(perm []int32, N int) error {
	if len(perm) != N {
		return errors.Errorf("have %d entries, want %d", len(perm), N)
	}
	seen := make([]bool, N)
	for i, p := range perm {
		if p < 0 || int(p) >= N || seen[p] {
			return errors.Errorf("entry %d (%d) is out of range or repeated", i, p)
		}
		seen[p] = true
	}
	return nil
}
