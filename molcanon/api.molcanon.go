package molcanon

// MolecularGraph is the read-only view of a molecule consumed by the canonicalization engine.
//
// Atom and bond indices are zero-based and stable for the lifetime of a single Calculate call.
type MolecularGraph interface {
	NumAtoms() int
	NumBonds() int

	// Atom returns the chemistry properties of the atom at the given index.
	Atom(atomIdx int) AtomProps

	// Bond returns the chemistry properties and end points of the bond at the given index.
	Bond(bondIdx int) BondProps
}

// HCountFunc returns the hydrogen count of the given atom and overrides the default count
// (explicit hydrogen neighbors plus the implicit count).
type HCountFunc func(g MolecularGraph, atomIdx int) (int, error)

// AtomProps holds the invariant-bearing attributes of one atom.
type AtomProps struct {
	Type           uint32 // atomic number; 0 denotes an unknown / pseudo atom
	Isotope        uint32 // mass number; 0 denotes natural abundance
	Charge         int32  // formal charge
	Aromatic       bool
	ImplicitHCount uint32
	Stereo         AtomStereo
}

// BondProps holds the invariant-bearing attributes of one bond.
type BondProps struct {
	Begin    int32 // atom index
	End      int32 // atom index
	Order    uint8 // 1, 2, 3; 0 denotes an unspecified order
	Aromatic bool
	Stereo   BondStereo
}

// AtomStereo is a tetrahedral descriptor.
//
// Config describes the sense of Refs[1..NumRefs-1] when viewed from Refs[0].
// With NumRefs == 3, an implicit hydrogen is taken to sit in front of Refs[0].
type AtomStereo struct {
	Config  StereoConfig
	NumRefs uint8
	Refs    [4]int32
}

// BondStereo is a double bond descriptor: Refs is (a, b, c, d) where b=c is the bond, a is a neighbor of b and d a neighbor of c.
// Config tells whether a and d are on the same side (cis) or on opposite sides (trans).
type BondStereo struct {
	Config StereoConfig
	Refs   [4]int32
}

// StereoConfig is a stereo configuration value.
type StereoConfig uint8

const (
	ConfigNone   StereoConfig = 0 // not a stereo center
	ConfigEither StereoConfig = 1 // stereogenic, configuration unspecified

	ConfigClockwise        StereoConfig = 2
	ConfigCounterClockwise StereoConfig = 3

	ConfigCis   StereoConfig = 2
	ConfigTrans StereoConfig = 3
)

// IsSpecified returns true if c is a definite configuration (i.e. not none or either).
func (c StereoConfig) IsSpecified() bool {
	return c == ConfigClockwise || c == ConfigCounterClockwise
}

// Inverted returns the opposite definite configuration; other values are returned as is.
func (c StereoConfig) Inverted() StereoConfig {
	switch c {
	case ConfigClockwise:
		return ConfigCounterClockwise
	case ConfigCounterClockwise:
		return ConfigClockwise
	}
	return c
}

// ConfigClass collapses a configuration into the value used by invariants: 0 none, 1 either, 2 specified.
//
// The definite sense is not an invariant since it is relative to the reference atom order.
func (c StereoConfig) ConfigClass() uint64 {
	switch {
	case c == ConfigEither:
		return 1
	case c.IsSpecified():
		return 2
	}
	return 0
}

// AtomPropertyFlag selects which atom attributes contribute to the atom invariant.
type AtomPropertyFlag uint32

const (
	AtomType AtomPropertyFlag = 1 << iota
	AtomIsotope
	AtomFormalCharge
	AtomAromaticity
	AtomConfiguration
	AtomHCount

	AllAtomPropertyFlags = AtomType | AtomIsotope | AtomFormalCharge | AtomAromaticity | AtomConfiguration | AtomHCount

	DefaultAtomPropertyFlags = AllAtomPropertyFlags
)

// BondPropertyFlag selects which bond attributes contribute to the bond invariant.
type BondPropertyFlag uint32

const (
	BondOrder BondPropertyFlag = 1 << iota
	BondAromaticity
	BondConfiguration

	AllBondPropertyFlags = BondOrder | BondAromaticity | BondConfiguration

	DefaultBondPropertyFlags = AllBondPropertyFlags
)

// Validate returns ErrBadConfig if flags contains a bit that names no atom property.
func (flags AtomPropertyFlag) Validate() error {
	if flags&^AllAtomPropertyFlags != 0 {
		return ErrBadConfig
	}
	return nil
}

// Validate returns ErrBadConfig if flags contains a bit that names no bond property.
func (flags BondPropertyFlag) Validate() error {
	if flags&^AllBondPropertyFlags != 0 {
		return ErrBadConfig
	}
	return nil
}
