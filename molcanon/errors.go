package molcanon

import (
	"github.com/pkg/errors"
)

// Errors
//
// Each error below is one of three kinds: ErrInvalidInput, ErrBadConfig, or ErrSearchExhausted (test with errors.Is).
var (
	ErrInvalidInput    = errors.New("invalid molecular graph")
	ErrBadConfig       = errors.New("unsupported property flag combination")
	ErrSearchExhausted = errors.New("canonical search budget exhausted")

	ErrNilGraph      = errors.Wrap(ErrInvalidInput, "nil graph")
	ErrBadBondRef    = errors.Wrap(ErrInvalidInput, "bond references a bad atom index")
	ErrBadStereoRef  = errors.Wrap(ErrInvalidInput, "bad stereo reference atom")
	ErrFieldOverflow = errors.Wrap(ErrInvalidInput, "property exceeds its invariant field")
	ErrBadRanks      = errors.Wrap(ErrInvalidInput, "ranks are not a permutation of the atom indices")
	ErrUnknownFlag   = errors.Wrap(ErrBadConfig, "unknown property flag name")
)
