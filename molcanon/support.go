package molcanon

import (
	"strings"

	"github.com/pkg/errors"
)

var atomFlagNames = [...]string{
	"type",
	"isotope",
	"charge",
	"aromaticity",
	"config",
	"h-count",
}

var bondFlagNames = [...]string{
	"order",
	"aromaticity",
	"config",
}

// ParseAtomPropertyFlags forms an AtomPropertyFlag from a list of flag names (e.g. "type", "h-count").
//
// The names "all" and "default" are also accepted.
func ParseAtomPropertyFlags(names []string) (AtomPropertyFlag, error) {
	var flags AtomPropertyFlag
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case "":
			continue
		case "all":
			flags |= AllAtomPropertyFlags
			continue
		case "default":
			flags |= DefaultAtomPropertyFlags
			continue
		}
		found := false
		for i, fi := range atomFlagNames {
			if fi == name {
				flags |= AtomPropertyFlag(1) << i
				found = true
				break
			}
		}
		if !found {
			return 0, errors.Wrapf(ErrUnknownFlag, "atom flag %q", name)
		}
	}
	return flags, nil
}

// ParseBondPropertyFlags forms a BondPropertyFlag from a list of flag names (e.g. "order").
func ParseBondPropertyFlags(names []string) (BondPropertyFlag, error) {
	var flags BondPropertyFlag
	for _, name := range names {
		name = strings.ToLower(strings.TrimSpace(name))
		switch name {
		case "":
			continue
		case "all":
			flags |= AllBondPropertyFlags
			continue
		case "default":
			flags |= DefaultBondPropertyFlags
			continue
		}
		found := false
		for i, fi := range bondFlagNames {
			if fi == name {
				flags |= BondPropertyFlag(1) << i
				found = true
				break
			}
		}
		if !found {
			return 0, errors.Wrapf(ErrUnknownFlag, "bond flag %q", name)
		}
	}
	return flags, nil
}

func (flags AtomPropertyFlag) String() string {
	var b strings.Builder
	for i, name := range atomFlagNames {
		if flags&(AtomPropertyFlag(1)<<i) != 0 {
			if b.Len() > 0 {
				b.WriteByte('|')
			}
			b.WriteString(name)
		}
	}
	return b.String()
}

func (flags BondPropertyFlag) String() string {
	var b strings.Builder
	for i, name := range bondFlagNames {
		if flags&(BondPropertyFlag(1)<<i) != 0 {
			if b.Len() > 0 {
				b.WriteByte('|')
			}
			b.WriteString(name)
		}
	}
	return b.String()
}
