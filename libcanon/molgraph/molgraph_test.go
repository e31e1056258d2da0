package molgraph

import (
	"testing"

	"github.com/2x3systems/molcanon/molcanon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseParts(t *testing.T) {
	m, err := Parse("C1-C2=O3, C2-N4[chg=+1 h=3]; Na1[chg=+1]")
	require.NoError(t, err)
	defer m.Reclaim()

	require.Equal(t, 5, m.NumAtoms())
	require.Equal(t, 3, m.NumBonds())

	types := []uint32{6, 6, 8, 7, 11}
	for ai, want := range types {
		assert.Equal(t, want, m.Atom(ai).Type, "atom %d", ai)
	}

	n := m.Atom(3)
	assert.Equal(t, int32(1), n.Charge)
	assert.Equal(t, uint32(3), n.ImplicitHCount)
	assert.Equal(t, int32(1), m.Atom(4).Charge)

	assert.Equal(t, molcanon.BondProps{Begin: 0, End: 1, Order: 1}, m.Bond(0))
	assert.Equal(t, molcanon.BondProps{Begin: 1, End: 2, Order: 2}, m.Bond(1))
	assert.Equal(t, molcanon.BondProps{Begin: 1, End: 3, Order: 1}, m.Bond(2))
}

func TestParseProps(t *testing.T) {
	m, err := Parse("C1[iso=13 chg=-2 arom]:C2[arom], C2#N3")
	require.NoError(t, err)
	defer m.Reclaim()

	c1 := m.Atom(0)
	assert.Equal(t, uint32(13), c1.Isotope)
	assert.Equal(t, int32(-2), c1.Charge)
	assert.True(t, c1.Aromatic)

	b := m.Bond(0)
	assert.True(t, b.Aromatic)
	assert.Equal(t, uint8(0), b.Order)
	assert.Equal(t, uint8(3), m.Bond(1).Order)
}

func TestParseStereo(t *testing.T) {
	m, err := Parse("C1[cw(2,3,4,5)]-F2, C1-Cl3, C1-Br4, C1-I5")
	require.NoError(t, err)
	defer m.Reclaim()

	st := m.Atom(0).Stereo
	assert.Equal(t, molcanon.ConfigClockwise, st.Config)
	assert.Equal(t, uint8(4), st.NumRefs)
	assert.Equal(t, [4]int32{1, 2, 3, 4}, st.Refs)

	m2, err := Parse("F1-C2, C2=[trans(1,4)]C3, C3-Cl4")
	require.NoError(t, err)
	defer m2.Reclaim()

	bst := m2.Bond(1).Stereo
	assert.Equal(t, molcanon.ConfigTrans, bst.Config)
	assert.Equal(t, [4]int32{0, 1, 2, 3}, bst.Refs)
}

func TestParseErrors(t *testing.T) {
	tests := []string{
		"C1-Zz2",            // unknown element
		"C1-C3",             // id 2 skipped
		"C1-C2, O2",         // id 2 redeclared as another element
		"C1=[cis]C2",        // cis without refs
		"C1[cw(2,3,4,5,6)]", // too many refs
		"C1-",               // syntax
	}
	for _, expr := range tests {
		_, err := Parse(expr)
		assert.Error(t, err, expr)
	}

	_, err := Parse("C1-C3")
	assert.ErrorIs(t, err, ErrBadExpr)
}

func TestPermute(t *testing.T) {
	m, err := Parse("C1[cw(2,3,4)]-F2, C1-Cl3, C1-Br4, Br4-C5")
	require.NoError(t, err)
	defer m.Reclaim()

	perm := []int32{4, 3, 2, 1, 0}
	p, err := m.Permute(perm, []int32{3, 2, 1, 0}, true)
	require.NoError(t, err)
	defer p.Reclaim()

	for ai := 0; ai < m.NumAtoms(); ai++ {
		assert.Equal(t, m.Atom(ai).Type, p.Atom(int(perm[ai])).Type)
	}
	assert.Equal(t, [4]int32{3, 2, 1, 0}, p.Atom(4).Stereo.Refs)

	// bond 0 (C1-F2) lands at index 3 with its ends swapped
	b := p.Bond(3)
	assert.Equal(t, int32(3), b.Begin)
	assert.Equal(t, int32(4), b.End)

	_, err = m.Permute([]int32{0, 0, 1, 2, 3}, nil, false)
	assert.Error(t, err)
}

func TestCanonicalExprIdentity(t *testing.T) {
	tests := []string{
		"C1, C1-C2, C2=O3",
		"Na1[chg=+1], Cl2[chg=-1]",
		"C1, C1-C2[iso=13 h=2]",
	}
	for _, expr := range tests {
		m, err := Parse(expr)
		require.NoError(t, err)

		ranks := make([]int32, m.NumAtoms())
		for i := range ranks {
			ranks[i] = int32(i)
		}
		out, err := AppendCanonicalExpr(nil, m, ranks)
		require.NoError(t, err)
		assert.Equal(t, expr, string(out))
		m.Reclaim()
	}
}

func TestCanonicalExprStereoNormalized(t *testing.T) {
	m, err := Parse("C1[cw(3,2,4,5)]-F2, C1-Cl3, C1-Br4, C1-I5")
	require.NoError(t, err)
	defer m.Reclaim()

	ranks := []int32{0, 1, 2, 3, 4}
	out, err := AppendCanonicalExpr(nil, m, ranks)
	require.NoError(t, err)
	assert.Equal(t, "C1[ccw(2,3,4,5)], C1-F2, C1-Cl3, C1-Br4, C1-I5", string(out))

	_, err = AppendCanonicalExpr(nil, m, []int32{0, 1, 2})
	assert.ErrorIs(t, err, molcanon.ErrBadRanks)
}
