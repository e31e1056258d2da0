package molgraph

import (
	"github.com/2x3systems/molcanon/molcanon"
	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"
	"github.com/pkg/errors"
)

// MolExpr is a molecule expression such as:
//
//	C1-C2=O3, C2-N4[chg=+1 h=3]; Na1[chg=+1]
//
// Each ";" starts a new part whose atom ids are local to it (and start at 1).
// Within a part, "," separates runs of bonded atoms.
type MolExpr struct {
	Parts []*Part `parser:"(@@ (\";\" @@)*)?"`
}

type Part struct {
	Runs []*Run `parser:"(@@ (\",\" @@)*)?"`
}

type Run struct {
	Start *AtomRef `parser:"@@"`
	Links []*Link  `parser:"@@*"`
}

type Link struct {
	Kind   string      `parser:"@( \"-\" | \"=\" | \"#\" | \":\" )"`
	Stereo *BondStereo `parser:"( \"[\" @@ \"]\" )?"`
	End    *AtomRef    `parser:"@@"`
}

type AtomRef struct {
	Element string      `parser:"@Ident"`
	ID      int         `parser:"@Int"`
	Props   []*AtomProp `parser:"( \"[\" @@* \"]\" )?"`
}

type AtomProp struct {
	Isotope  *int        `parser:"  \"iso\" \"=\" @Int"`
	Charge   *Charge     `parser:"| \"chg\" \"=\" @@"`
	HCount   *int        `parser:"| \"h\" \"=\" @Int"`
	Aromatic bool        `parser:"| @\"arom\""`
	Stereo   *AtomStereo `parser:"| @@"`
}

type Charge struct {
	Sign  string `parser:"@( \"+\" | \"-\" )?"`
	Value int    `parser:"@Int"`
}

type AtomStereo struct {
	Config string `parser:"@( \"cw\" | \"ccw\" | \"either\" )"`
	Refs   []int  `parser:"( \"(\" @Int ( \",\" @Int )* \")\" )?"`
}

type BondStereo struct {
	Config string `parser:"@( \"cis\" | \"trans\" | \"either\" )"`
	Refs   []int  `parser:"( \"(\" @Int \",\" @Int \")\" )?"`
}

var sMolLexer = lexer.MustSimple([]lexer.SimpleRule{
	{Name: "Ident", Pattern: `[A-Za-z]+`},
	{Name: "Int", Pattern: `\d+`},
	{Name: "Punct", Pattern: `[-=#:;,()\[\]+]`},
	{Name: "whitespace", Pattern: `[ \t\r\n]+`},
})

var sParseMolExpr = participle.MustBuild[MolExpr](
	participle.Lexer(sMolLexer),
)

// ErrBadExpr is returned (wrapped) for a molecule expression that parses but does not describe a valid molecule.
var ErrBadExpr = errors.New("bad molecule expression")

// partBuilder accumulates atoms for one part, mapping local ids to atom indices.
type partBuilder struct {
	m       *Molecule
	atom0   int32  // atom index of local id 1
	defined []bool // local id - 1 => has been seen
}

// Parse returns a new Molecule described by the given molecule expression.
func Parse(expr string) (*Molecule, error) {
	m := NewMolecule()
	if err := m.InitFromString(expr); err != nil {
		m.Reclaim()
		return nil, err
	}
	return m, nil
}

// InitFromString resets m to the molecule described by the given expression.
func (m *Molecule) InitFromString(expr string) error {
	m.Reset()

	Xexpr, err := sParseMolExpr.ParseString("", expr)
	if err != nil {
		return err
	}

	for pi, part := range Xexpr.Parts {
		b := partBuilder{
			m:     m,
			atom0: int32(len(m.atoms)),
		}
		if err = b.applyPart(part); err != nil {
			return errors.Wrapf(err, "part #%d", pi+1)
		}
	}
	return nil
}

func (b *partBuilder) applyPart(part *Part) error {

	// First pass: declare every atom so that ids (and hence atom indices) are known before any bond is made
	for _, run := range part.Runs {
		if err := b.declare(run.Start); err != nil {
			return err
		}
		for _, link := range run.Links {
			if err := b.declare(link.End); err != nil {
				return err
			}
		}
	}
	for id, ok := range b.defined {
		if !ok {
			return errors.Wrapf(ErrBadExpr, "atom id %d is skipped", id+1)
		}
	}

	// Second pass: atom props (stereo refs need all ids) and bonds
	for _, run := range part.Runs {
		if err := b.applyProps(run.Start); err != nil {
			return err
		}
		prev := run.Start
		for _, link := range run.Links {
			if err := b.applyProps(link.End); err != nil {
				return err
			}
			if err := b.addBond(prev, link); err != nil {
				return err
			}
			prev = link.End
		}
	}
	return nil
}

func (b *partBuilder) atomIdx(localID int) (int32, error) {
	if localID < 1 || localID > len(b.defined) || !b.defined[localID-1] {
		return -1, errors.Wrapf(ErrBadExpr, "unknown atom id %d", localID)
	}
	return b.atom0 + int32(localID-1), nil
}

func (b *partBuilder) declare(ref *AtomRef) error {
	atomicNum, ok := AtomicNumber(ref.Element)
	if !ok {
		return errors.Wrapf(ErrBadExpr, "unknown element %q", ref.Element)
	}
	if ref.ID < 1 || ref.ID > 1<<20 {
		return errors.Wrapf(ErrBadExpr, "atom id %d is out of range", ref.ID)
	}

	for len(b.defined) < ref.ID {
		b.defined = append(b.defined, false)
		b.m.atoms = append(b.m.atoms, molcanon.AtomProps{})
	}
	ai := b.atom0 + int32(ref.ID-1)
	if b.defined[ref.ID-1] {
		if have := b.m.atoms[ai].Type; have != atomicNum {
			return errors.Wrapf(ErrBadExpr, "atom id %d is both %s and %s", ref.ID, ElementSymbol(have), ref.Element)
		}
		return nil
	}
	b.defined[ref.ID-1] = true
	b.m.atoms[ai].Type = atomicNum
	return nil
}

func (b *partBuilder) applyProps(ref *AtomRef) error {
	ai, err := b.atomIdx(ref.ID)
	if err != nil {
		return err
	}
	atom := &b.m.atoms[ai]

	for _, prop := range ref.Props {
		switch {
		case prop.Isotope != nil:
			atom.Isotope = uint32(*prop.Isotope)
		case prop.Charge != nil:
			atom.Charge = int32(prop.Charge.Value)
			if prop.Charge.Sign == "-" {
				atom.Charge = -atom.Charge
			}
		case prop.HCount != nil:
			atom.ImplicitHCount = uint32(*prop.HCount)
		case prop.Aromatic:
			atom.Aromatic = true
		case prop.Stereo != nil:
			st := molcanon.AtomStereo{}
			switch prop.Stereo.Config {
			case "cw":
				st.Config = molcanon.ConfigClockwise
			case "ccw":
				st.Config = molcanon.ConfigCounterClockwise
			default:
				st.Config = molcanon.ConfigEither
			}
			if len(prop.Stereo.Refs) > len(st.Refs) {
				return errors.Wrapf(ErrBadExpr, "atom id %d lists %d stereo refs", ref.ID, len(prop.Stereo.Refs))
			}
			for i, id := range prop.Stereo.Refs {
				if st.Refs[i], err = b.atomIdx(id); err != nil {
					return err
				}
			}
			st.NumRefs = uint8(len(prop.Stereo.Refs))
			atom.Stereo = st
		}
	}
	return nil
}

func (b *partBuilder) addBond(from *AtomRef, link *Link) error {
	begin, err := b.atomIdx(from.ID)
	if err != nil {
		return err
	}
	end, err := b.atomIdx(link.End.ID)
	if err != nil {
		return err
	}

	bond := molcanon.BondProps{
		Begin: begin,
		End:   end,
	}
	switch link.Kind {
	case "-":
		bond.Order = 1
	case "=":
		bond.Order = 2
	case "#":
		bond.Order = 3
	case ":":
		bond.Aromatic = true
	}

	if st := link.Stereo; st != nil {
		switch st.Config {
		case "cis":
			bond.Stereo.Config = molcanon.ConfigCis
		case "trans":
			bond.Stereo.Config = molcanon.ConfigTrans
		default:
			bond.Stereo.Config = molcanon.ConfigEither
		}
		if len(st.Refs) == 2 {
			a, err := b.atomIdx(st.Refs[0])
			if err != nil {
				return err
			}
			d, err := b.atomIdx(st.Refs[1])
			if err != nil {
				return err
			}
			bond.Stereo.Refs = [4]int32{a, begin, end, d}
		} else if bond.Stereo.Config != molcanon.ConfigEither {
			return errors.Wrapf(ErrBadExpr, "bond %d-%d: %s needs two reference atoms", from.ID, link.End.ID, st.Config)
		}
	}

	b.m.bonds = append(b.m.bonds, bond)
	return nil
}
