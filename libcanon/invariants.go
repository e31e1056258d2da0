package libcanon

import (
	"github.com/2x3systems/molcanon/molcanon"
	"github.com/pkg/errors"
)

// Atom seed bit fields (bit 63 is never set so a seed can never equal TableSentinel)
const (
	atomTypeShift    = 50
	atomTypeBits     = 9
	atomIsotopeShift = 40
	atomIsotopeBits  = 10
	atomChargeShift  = 34
	atomChargeBits   = 6
	atomAromShift    = 33
	atomConfigShift  = 31
	atomHCountShift  = 26
	atomHCountBits   = 5

	chargeBias = 1 << (atomChargeBits - 1)
)

// Bond seed bit fields
const (
	bondOrderShift  = 8
	bondOrderBits   = 4
	bondAromShift   = 7
	bondConfigShift = 5
)

func fieldFits(val uint64, bits uint) bool {
	return val < (1 << bits)
}

// atomSeed packs the enabled attributes of an atom into its 64-bit seed.
func atomSeed(atom *molcanon.AtomProps, hCount int, flags molcanon.AtomPropertyFlag) (uint64, error) {
	seed := uint64(0)

	if flags&molcanon.AtomType != 0 {
		if !fieldFits(uint64(atom.Type), atomTypeBits) {
			return 0, errors.Wrapf(molcanon.ErrFieldOverflow, "atom type %d", atom.Type)
		}
		seed |= uint64(atom.Type) << atomTypeShift
	}
	if flags&molcanon.AtomIsotope != 0 {
		if !fieldFits(uint64(atom.Isotope), atomIsotopeBits) {
			return 0, errors.Wrapf(molcanon.ErrFieldOverflow, "isotope %d", atom.Isotope)
		}
		seed |= uint64(atom.Isotope) << atomIsotopeShift
	}
	if flags&molcanon.AtomFormalCharge != 0 {
		biased := int64(atom.Charge) + chargeBias
		if biased < 0 || !fieldFits(uint64(biased), atomChargeBits) {
			return 0, errors.Wrapf(molcanon.ErrFieldOverflow, "formal charge %d", atom.Charge)
		}
		seed |= uint64(biased) << atomChargeShift
	}
	if flags&molcanon.AtomAromaticity != 0 && atom.Aromatic {
		seed |= 1 << atomAromShift
	}
	if flags&molcanon.AtomConfiguration != 0 {
		seed |= atom.Stereo.Config.ConfigClass() << atomConfigShift
	}
	if flags&molcanon.AtomHCount != 0 {
		if hCount < 0 || !fieldFits(uint64(hCount), atomHCountBits) {
			return 0, errors.Wrapf(molcanon.ErrFieldOverflow, "hydrogen count %d", hCount)
		}
		seed |= uint64(hCount) << atomHCountShift
	}

	return seed, nil
}

// bondSeed packs the enabled attributes of a bond into its 64-bit seed.
func bondSeed(bond *molcanon.BondProps, flags molcanon.BondPropertyFlag) (uint64, error) {
	seed := uint64(0)

	if flags&molcanon.BondOrder != 0 {
		if !fieldFits(uint64(bond.Order), bondOrderBits) {
			return 0, errors.Wrapf(molcanon.ErrFieldOverflow, "bond order %d", bond.Order)
		}
		seed |= uint64(bond.Order) << bondOrderShift
	}
	if flags&molcanon.BondAromaticity != 0 && bond.Aromatic {
		seed |= 1 << bondAromShift
	}
	if flags&molcanon.BondConfiguration != 0 {
		seed |= bond.Stereo.Config.ConfigClass() << bondConfigShift
	}

	return seed, nil
}

// defaultHCount is the number of hydrogen neighbors plus the implicit hydrogen count.
// pre: X.adj has been built
func (X *graphState) defaultHCount(atomIdx int32) int {
	count := int(X.atoms[atomIdx].ImplicitHCount)
	for _, bi := range X.atomBonds(atomIdx) {
		if X.atoms[X.otherEnd(bi, atomIdx)].Type == 1 {
			count++
		}
	}
	return count
}

// computeSeeds fills X.atomSeeds and X.bondSeeds from the assigned graph.
func (X *graphState) computeSeeds(g molcanon.MolecularGraph, cfg *config) error {
	Na := int32(len(X.atoms))

	for ai := int32(0); ai < Na; ai++ {
		var hCount int
		if cfg.atomFlags&molcanon.AtomHCount != 0 {
			if cfg.hCount != nil {
				var err error
				hCount, err = cfg.hCount(g, int(ai))
				if err != nil {
					return errors.Wrapf(molcanon.ErrInvalidInput, "hydrogen count of atom %d: %v", ai, err)
				}
			} else {
				hCount = X.defaultHCount(ai)
			}
		}

		seed, err := atomSeed(&X.atoms[ai], hCount, cfg.atomFlags)
		if err != nil {
			return errors.Wrapf(err, "atom %d", ai)
		}
		X.atomSeeds[ai] = seed
	}

	for bi := range X.bonds {
		seed, err := bondSeed(&X.bonds[bi], cfg.bondFlags)
		if err != nil {
			return errors.Wrapf(err, "bond %d", bi)
		}
		X.bondSeeds[bi] = seed
	}

	return nil
}
