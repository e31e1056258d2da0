package libcanon_test

import (
	"math/rand"
	"testing"

	"github.com/2x3systems/molcanon/libcanon"
	"github.com/2x3systems/molcanon/libcanon/molgraph"
	"github.com/2x3systems/molcanon/molcanon"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testMolecules = []string{
	"C1-C2",
	"C1-C2-C3",
	"C1-C2; C1",
	"C1-C2=O3, C2-N4[chg=+1 h=3]; Na1[chg=+1]",
	"C1-C2-C3-C4-C5-C6, C6-C1, C1-O7",
	"C1[arom h=1]:C2[arom h=1]:C3[arom h=1]:C4[arom h=1]:C5[arom h=1]:C6[arom h=1], C6:C1",

	// cube
	"C1-C2-C3-C4-C1, C5-C6-C7-C8-C5, C1-C5, C2-C6, C3-C7, C4-C8",

	// Petersen graph
	"C1-C2-C3-C4-C5-C1, C1-C6, C2-C7, C3-C8, C4-C9, C5-C10, C6-C8-C10-C7-C9-C6",

	// two copies of the same fragment and a lone atom
	"C1-C2=O3; N1; C1-C2=O3",

	"C1[cw(2,3,4,5)]-F2, C1-Cl3, C1-Br4, C1-I5",
	"F1-C2, C2=[cis(1,4)]C3, C3-F4",
	"C1[ccw(2,3,4)]-C2, C1-N3, C1-O4, C2-C5[cw(2,6,7)], C5-N6, C5-O7",
}

func mustParse(t *testing.T, expr string) *molgraph.Molecule {
	t.Helper()
	m, err := molgraph.Parse(expr)
	require.NoError(t, err, expr)
	return m
}

func identity(N int) []int32 {
	perm := make([]int32, N)
	for i := range perm {
		perm[i] = int32(i)
	}
	return perm
}

func randPerm(rng *rand.Rand, N int) []int32 {
	perm := identity(N)
	rng.Shuffle(N, func(i, j int) {
		perm[i], perm[j] = perm[j], perm[i]
	})
	return perm
}

func assertPermutation(t *testing.T, ranks []int32) {
	t.Helper()
	seen := make([]bool, len(ranks))
	for _, r := range ranks {
		require.True(t, r >= 0 && int(r) < len(ranks), "rank %d out of range", r)
		require.False(t, seen[r], "rank %d repeated", r)
		seen[r] = true
	}
}

func canonize(t *testing.T, e *libcanon.Engine, g molcanon.MolecularGraph) *libcanon.Result {
	t.Helper()
	res := &libcanon.Result{}
	require.NoError(t, e.Canonize(g, res))
	assertPermutation(t, res.Ranks)
	return res
}

func TestScenarioPair(t *testing.T) {
	e := libcanon.NewEngine()
	m := mustParse(t, "C1-C2")
	defer m.Reclaim()

	ranks, err := e.Calculate(m, nil)
	require.NoError(t, err)
	assertPermutation(t, ranks)

	again, err := e.Calculate(m, nil)
	require.NoError(t, err)
	assert.Equal(t, ranks, again)

	swapped, err := m.Permute([]int32{1, 0}, nil, true)
	require.NoError(t, err)
	defer swapped.Reclaim()

	res := canonize(t, e, m)
	resSwapped := canonize(t, e, swapped)
	assert.Equal(t, res.Table, resSwapped.Table)
	assert.Equal(t, []int32{0, 0}, res.SymClasses)
	assert.Equal(t, 1, res.NumSymClasses)
}

func TestScenarioPath(t *testing.T) {
	e := libcanon.NewEngine()
	m := mustParse(t, "C1-C2-C3")
	defer m.Reclaim()

	// the end atoms share a class (ranked first) and the center follows them
	res := canonize(t, e, m)
	assert.Equal(t, []int32{0, 2, 1}, res.Ranks)
	assert.Equal(t, res.SymClasses[0], res.SymClasses[2])
	assert.Equal(t, int32(0), res.SymClasses[0])
	assert.Equal(t, int32(2), res.SymClasses[1])
	assert.Equal(t, 2, res.NumSymClasses)
}

func TestScenarioComponents(t *testing.T) {
	e := libcanon.NewEngine()
	m := mustParse(t, "C1-C2; C1")
	defer m.Reclaim()

	res := canonize(t, e, m)
	assert.Equal(t, int32(0), res.Ranks[2])
	assert.ElementsMatch(t, []int32{1, 2}, res.Ranks[:2])
	assert.Equal(t, 2, res.Stats.Components)
}

func TestDuplicateComponents(t *testing.T) {
	e := libcanon.NewEngine()
	m := mustParse(t, "C1-C2=O3; N1; C1-C2=O3")
	defer m.Reclaim()

	res := canonize(t, e, m)
	assert.Equal(t, 3, res.Stats.Components)
	assert.Equal(t, 4, res.NumSymClasses)
	for ai := 0; ai < 3; ai++ {
		assert.Equal(t, res.SymClasses[ai], res.SymClasses[4+ai], "atom %d", ai)
		assert.NotEqual(t, res.Ranks[ai], res.Ranks[4+ai], "atom %d", ai)
	}
}

func TestEmptyGraph(t *testing.T) {
	e := libcanon.NewEngine()
	m := molgraph.NewMolecule()
	defer m.Reclaim()

	ranks, err := e.Calculate(m, nil)
	require.NoError(t, err)
	assert.Len(t, ranks, 0)

	res := canonize(t, e, m)
	assert.Equal(t, libcanon.ConnectionTable{0}, res.Table)
}

func TestBenzeneSymmetry(t *testing.T) {
	e := libcanon.NewEngine()

	m := mustParse(t, testMolecules[5])
	defer m.Reclaim()
	res := canonize(t, e, m)
	assert.Equal(t, 1, res.NumSymClasses)
	for _, sc := range res.SymClasses {
		assert.Equal(t, int32(0), sc)
	}
	assert.Greater(t, res.Stats.Automorphisms, 0)

	withH := mustParse(t, "C1[arom]:C2[arom]:C3[arom]:C4[arom]:C5[arom]:C6[arom], C6:C1, "+
		"C1-H7, C2-H8, C3-H9, C4-H10, C5-H11, C6-H12")
	defer withH.Reclaim()
	res = canonize(t, e, withH)
	assert.Equal(t, 2, res.NumSymClasses)
	for ai := 1; ai < 6; ai++ {
		assert.Equal(t, res.SymClasses[0], res.SymClasses[ai])
		assert.Equal(t, res.SymClasses[6], res.SymClasses[6+ai])
	}
	assert.NotEqual(t, res.SymClasses[0], res.SymClasses[6])
}

func TestHighSymmetryOrbits(t *testing.T) {
	e := libcanon.NewEngine()

	for _, expr := range []string{testMolecules[6], testMolecules[7]} {
		m := mustParse(t, expr)
		res := canonize(t, e, m)
		assert.Equal(t, 1, res.NumSymClasses, expr)
		assert.Greater(t, res.Stats.Automorphisms, 0, expr)
		m.Reclaim()
	}
}

func TestPermutationInvariance(t *testing.T) {
	e := libcanon.NewEngine()
	rng := rand.New(rand.NewSource(2213))

	for _, expr := range testMolecules {
		m := mustParse(t, expr)
		res := canonize(t, e, m)

		table, err := libcanon.BuildConnectionTable(m, res.Ranks, e.AtomPropertyFlags(), e.BondPropertyFlags())
		require.NoError(t, err)
		require.Equal(t, res.Table, table, expr)

		for trial := 0; trial < 8; trial++ {
			atomPerm := randPerm(rng, m.NumAtoms())
			bondPerm := randPerm(rng, m.NumBonds())
			p, err := m.Permute(atomPerm, bondPerm, trial&1 != 0)
			require.NoError(t, err)

			resP := canonize(t, e, p)
			assert.Equal(t, res.Table, resP.Table, "%s (trial %d)", expr, trial)
			assert.Equal(t, res.NumSymClasses, resP.NumSymClasses, expr)
			assert.Equal(t, libcanon.CanonicalHash(res.Table), libcanon.CanonicalHash(resP.Table))

			// symmetry classes follow the atoms
			for ai := range atomPerm {
				for aj := range atomPerm {
					same := res.SymClasses[ai] == res.SymClasses[aj]
					sameP := resP.SymClasses[atomPerm[ai]] == resP.SymClasses[atomPerm[aj]]
					require.Equal(t, same, sameP, expr)
				}
			}
			p.Reclaim()
		}
		m.Reclaim()
	}
}

func TestCanonicalExprRoundTrip(t *testing.T) {
	e := libcanon.NewEngine()
	rng := rand.New(rand.NewSource(77))

	for _, expr := range testMolecules {
		m := mustParse(t, expr)
		res := canonize(t, e, m)
		canon, err := molgraph.AppendCanonicalExpr(nil, m, res.Ranks)
		require.NoError(t, err)

		p, err := m.Permute(randPerm(rng, m.NumAtoms()), nil, true)
		require.NoError(t, err)
		resP := canonize(t, e, p)
		canonP, err := molgraph.AppendCanonicalExpr(nil, p, resP.Ranks)
		require.NoError(t, err)
		assert.Equal(t, string(canon), string(canonP))

		// parsing the canonical expression yields an equivalent molecule already in canonical order
		reparsed := mustParse(t, string(canon))
		resR := canonize(t, e, reparsed)
		assert.Equal(t, res.Table, resR.Table, string(canon))

		m.Reclaim()
		p.Reclaim()
		reparsed.Reclaim()
	}
}

// relabel returns a copy of m with atom i moved to ranks[i].
func relabel(t *testing.T, m *molgraph.Molecule, ranks []int32) *molgraph.Molecule {
	t.Helper()
	dup, err := m.Permute(ranks, nil, false)
	require.NoError(t, err)
	return dup
}

func TestAsymmetricIdempotence(t *testing.T) {
	e := libcanon.NewEngine()
	m := mustParse(t, "C1-C2-O3, C2-N4, N4-C5=O6")
	defer m.Reclaim()

	res := canonize(t, e, m)
	assert.Equal(t, m.NumAtoms(), res.NumSymClasses)

	relabeled := relabel(t, m, res.Ranks)
	defer relabeled.Reclaim()

	ranks, err := e.Calculate(relabeled, nil)
	require.NoError(t, err)
	assert.Equal(t, identity(m.NumAtoms()), ranks)
}

func TestRelabeledIsIdentity(t *testing.T) {
	e := libcanon.NewEngine()

	tests := []struct {
		expr  string
		ranks []int32
	}{
		{"C1-C2", []int32{0, 1}},
		{"C1-C2-C3", []int32{0, 1, 2}},
		{"C1[arom h=1]:C2[arom h=1]:C3[arom h=1]:C4[arom h=1]:C5[arom h=1]:C6[arom h=1], C6:C1", identity(6)},
		{"C1-C2; C1", []int32{0, 1, 2}},
	}
	for _, tc := range tests {
		m := mustParse(t, tc.expr)
		canonic := relabel(t, m, canonize(t, e, m).Ranks)

		res := canonize(t, e, canonic)
		assert.Equal(t, tc.ranks, res.Ranks, tc.expr)

		m.Reclaim()
		canonic.Reclaim()
	}

	rng := rand.New(rand.NewSource(11))
	for _, expr := range testMolecules {
		m := mustParse(t, expr)
		before := m.Clone()
		res := canonize(t, e, m)

		// canonizing leaves the input as it was
		for ai := 0; ai < m.NumAtoms(); ai++ {
			assert.Equal(t, before.Atom(ai), m.Atom(ai), expr)
		}
		for bi := 0; bi < m.NumBonds(); bi++ {
			assert.Equal(t, before.Bond(bi), m.Bond(bi), expr)
		}

		canonic := relabel(t, m, res.Ranks)
		ranks, err := e.Calculate(canonic, nil)
		require.NoError(t, err)
		assert.Equal(t, identity(m.NumAtoms()), ranks, expr)

		for i := 0; i < 4; i++ {
			p, err := m.Permute(randPerm(rng, m.NumAtoms()), nil, i&1 != 0)
			require.NoError(t, err)
			canonicP := relabel(t, p, canonize(t, e, p).Ranks)

			resP := canonize(t, e, canonicP)
			assert.Equal(t, identity(m.NumAtoms()), resP.Ranks, expr)
			assert.Equal(t, res.Table, resP.Table, expr)

			p.Reclaim()
			canonicP.Reclaim()
		}

		m.Reclaim()
		before.Reclaim()
		canonic.Reclaim()
	}
}

func TestDeterminism(t *testing.T) {
	for _, expr := range testMolecules {
		m := mustParse(t, expr)

		r1, err := libcanon.NewEngine().Calculate(m, nil)
		require.NoError(t, err)

		// interleave other work so pooled state is dirty
		e := libcanon.NewEngine()
		other := mustParse(t, testMolecules[7])
		_, err = e.Calculate(other, nil)
		require.NoError(t, err)
		other.Reclaim()

		buf := make([]int32, 0, 64)
		r2, err := e.Calculate(m, buf)
		require.NoError(t, err)
		assert.Equal(t, r1, r2, expr)

		m.Reclaim()
	}
}

func TestStereoDistinguishes(t *testing.T) {
	e := libcanon.NewEngine()
	tableOf := func(expr string) libcanon.ConnectionTable {
		m := mustParse(t, expr)
		defer m.Reclaim()
		return canonize(t, e, m).Table
	}

	cw := tableOf("C1[cw(2,3,4,5)]-F2, C1-Cl3, C1-Br4, C1-I5")
	ccw := tableOf("C1[ccw(2,3,4,5)]-F2, C1-Cl3, C1-Br4, C1-I5")
	swapped := tableOf("C1[cw(3,2,4,5)]-F2, C1-Cl3, C1-Br4, C1-I5")
	assert.False(t, cw.IsEqual(ccw))
	assert.True(t, ccw.IsEqual(swapped))

	cis := tableOf("F1-C2, C2=[cis(1,4)]C3, C3-F4")
	trans := tableOf("F1-C2, C2=[trans(1,4)]C3, C3-F4")
	assert.False(t, cis.IsEqual(trans))

	// with configuration ignored, enantiomers are the same graph
	require.NoError(t, e.SetAtomPropertyFlags(molcanon.DefaultAtomPropertyFlags&^molcanon.AtomConfiguration))
	require.NoError(t, e.SetBondPropertyFlags(molcanon.DefaultBondPropertyFlags&^molcanon.BondConfiguration))
	assert.Equal(t,
		tableOf("C1[cw(2,3,4,5)]-F2, C1-Cl3, C1-Br4, C1-I5"),
		tableOf("C1[ccw(2,3,4,5)]-F2, C1-Cl3, C1-Br4, C1-I5"))
	assert.Equal(t, tableOf("F1-C2, C2=[cis(1,4)]C3, C3-F4"), tableOf("F1-C2, C2=[trans(1,4)]C3, C3-F4"))
}

func TestHCountFunc(t *testing.T) {
	e := libcanon.NewEngine()
	m := mustParse(t, "C1-C2")
	defer m.Reclaim()

	e.SetHCountFunc(func(g molcanon.MolecularGraph, atomIdx int) (int, error) {
		return 3 - atomIdx, nil
	})
	assert.NotNil(t, e.HCountFunc())

	res := canonize(t, e, m)
	assert.Equal(t, []int32{1, 0}, res.Ranks)
	assert.Equal(t, 2, res.NumSymClasses)

	e.SetHCountFunc(nil)
	res = canonize(t, e, m)
	assert.Equal(t, 1, res.NumSymClasses)
}

func TestInvalidInput(t *testing.T) {
	e := libcanon.NewEngine()

	badBond := molgraph.NewMolecule()
	badBond.AddAtom(molcanon.AtomProps{Type: 6})
	badBond.AddAtom(molcanon.AtomProps{Type: 6})
	badBond.AddBond(molcanon.BondProps{Begin: 0, End: 9, Order: 1})

	selfLoop := molgraph.NewMolecule()
	selfLoop.AddAtom(molcanon.AtomProps{Type: 6})
	selfLoop.AddAtom(molcanon.AtomProps{Type: 6})
	selfLoop.AddBond(molcanon.BondProps{Begin: 1, End: 1, Order: 1})

	badStereo := mustParse(t, "C1-F2, C1-Cl3, C1-Br4, Br4-I5")
	badStereo.SetAtom(0, molcanon.AtomProps{
		Type: 6,
		Stereo: molcanon.AtomStereo{
			Config:  molcanon.ConfigClockwise,
			NumRefs: 3,
			Refs:    [4]int32{1, 2, 4},
		},
	})

	overflow := mustParse(t, "C1-C2")
	overflow.SetAtom(1, molcanon.AtomProps{Type: 6, Charge: 99})

	tests := []struct {
		g      *molgraph.Molecule
		target error
	}{
		{badBond, molcanon.ErrBadBondRef},
		{selfLoop, molcanon.ErrBadBondRef},
		{badStereo, molcanon.ErrBadStereoRef},
		{overflow, molcanon.ErrFieldOverflow},
	}
	for _, tc := range tests {
		ranks := []int32{7, 7, 7, 7, 7}
		out, err := e.Calculate(tc.g, ranks)
		assert.ErrorIs(t, err, tc.target)
		assert.ErrorIs(t, err, molcanon.ErrInvalidInput)
		assert.Equal(t, []int32{7, 7, 7, 7, 7}, ranks)
		assert.Equal(t, ranks, out)

		res := libcanon.Result{Ranks: []int32{5}}
		assert.Error(t, e.Canonize(tc.g, &res))
		assert.Equal(t, []int32{5}, res.Ranks)

		tc.g.Reclaim()
	}

	_, err := e.Calculate(nil, nil)
	assert.ErrorIs(t, err, molcanon.ErrNilGraph)

	// a failed call leaves nothing behind
	m := mustParse(t, "C1-C2-C3")
	defer m.Reclaim()
	ranks, err := e.Calculate(m, nil)
	require.NoError(t, err)
	assert.Equal(t, []int32{0, 2, 1}, ranks)
}

func TestHCountFuncError(t *testing.T) {
	e := libcanon.NewEngine()
	m := mustParse(t, "C1-O2")
	defer m.Reclaim()

	e.SetHCountFunc(func(g molcanon.MolecularGraph, atomIdx int) (int, error) {
		if atomIdx == 1 {
			return 0, assert.AnError
		}
		return 0, nil
	})
	_, err := e.Calculate(m, nil)
	assert.ErrorIs(t, err, molcanon.ErrInvalidInput)
}

func TestBadConfig(t *testing.T) {
	e := libcanon.NewEngine()
	assert.ErrorIs(t, e.SetAtomPropertyFlags(1<<20), molcanon.ErrBadConfig)
	assert.ErrorIs(t, e.SetBondPropertyFlags(1<<9), molcanon.ErrBadConfig)
	assert.Equal(t, molcanon.DefaultAtomPropertyFlags, e.AtomPropertyFlags())
	assert.Equal(t, molcanon.DefaultBondPropertyFlags, e.BondPropertyFlags())

	m := mustParse(t, "C1-C2")
	defer m.Reclaim()
	_, err := libcanon.BuildConnectionTable(m, []int32{0, 1}, 1<<20, molcanon.DefaultBondPropertyFlags)
	assert.ErrorIs(t, err, molcanon.ErrBadConfig)
	_, err = libcanon.BuildConnectionTable(m, []int32{0, 0}, molcanon.DefaultAtomPropertyFlags, molcanon.DefaultBondPropertyFlags)
	assert.ErrorIs(t, err, molcanon.ErrBadRanks)
}

func TestSearchBudget(t *testing.T) {
	e := libcanon.NewEngine()
	m := mustParse(t, testMolecules[7])
	defer m.Reclaim()

	e.SetMaxSearchNodes(1)
	assert.Equal(t, 1, e.MaxSearchNodes())
	_, err := e.Calculate(m, nil)
	assert.ErrorIs(t, err, molcanon.ErrSearchExhausted)

	e.SetMaxSearchNodes(0)
	assert.Equal(t, libcanon.DefaultMaxSearchNodes, e.MaxSearchNodes())
	ranks, err := e.Calculate(m, nil)
	require.NoError(t, err)
	assertPermutation(t, ranks)
}

func TestTableCompare(t *testing.T) {
	a := libcanon.ConnectionTable{2, 5, 7}
	assert.Equal(t, 0, a.Compare(libcanon.ConnectionTable{2, 5, 7}))
	assert.Equal(t, -1, a.Compare(libcanon.ConnectionTable{2, 6}))
	assert.Equal(t, 1, a.Compare(libcanon.ConnectionTable{2, 5}))
	assert.Equal(t, -1, a.Compare(libcanon.ConnectionTable{2, 5, 7, 0}))
	assert.NotEqual(t, libcanon.CanonicalHash(a), libcanon.CanonicalHash(libcanon.ConnectionTable{2, 5, 8}))
}
