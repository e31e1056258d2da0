package main

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/2x3systems/molcanon/libcanon/catalog"
	"github.com/sebdah/goldie/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	cwExpr  = "C1[cw(2,3,4,5)]-F2, C1-Cl3, C1-Br4, C1-I5"
	ccwExpr = "C1[ccw(2,3,4,5)]-F2, C1-Cl3, C1-Br4, C1-I5"
)

func execute(t *testing.T, stdin string, args ...string) (string, error) {
	t.Helper()
	root := NewRootCommand()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetIn(strings.NewReader(stdin))
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestRootCommand(t *testing.T) {
	root := NewRootCommand()
	for _, name := range []string{"rank", "canon", "dedupe"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}
	for _, name := range []string{"config", "atom-flags", "bond-flags", "max-search-nodes", "catalog"} {
		assert.NotNil(t, root.PersistentFlags().Lookup(name), name)
	}
}

func TestDedupeGolden(t *testing.T) {
	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)

	out, err := execute(t, "", "dedupe", "testdata/molecules.txt")
	require.NoError(t, err)
	g.Assert(t, "dedupe", []byte(out))

	// the in-memory set numbers structures identically
	out, err = execute(t, "", "dedupe", "--transient", "testdata/molecules.txt")
	require.NoError(t, err)
	g.Assert(t, "dedupe", []byte(out))

	out, err = execute(t, "", "dedupe", "--transient", "--new-only", "testdata/molecules.txt")
	require.NoError(t, err)
	g.Assert(t, "dedupe-new", []byte(out))
}

func TestDedupeCatalogPersists(t *testing.T) {
	dir := t.TempDir()
	out, err := execute(t, "C1-C2-O3\n", "dedupe", "--catalog", dir, "-")
	require.NoError(t, err)
	assert.Equal(t, "1 new C1-C2-O3\nunique: 1\n", out)

	out, err = execute(t, "O1-C2-C3\nC1-O2-C3\n", "dedupe", "--catalog", dir, "-")
	require.NoError(t, err)
	assert.Equal(t, "1 dup O1-C2-C3\n2 new C1-O2-C3\nunique: 2\n", out)

	_, err = execute(t, "C1-C2\n", "dedupe", "--catalog", dir, "--atom-flags", "type", "-")
	assert.ErrorIs(t, err, catalog.ErrFlagsMismatch)
}

func TestDedupeStdin(t *testing.T) {
	out, err := execute(t, "C1-O2\n\n# comment\nO1-C2\n", "dedupe", "-")
	require.NoError(t, err)
	assert.Equal(t, "1 new C1-O2\n1 dup O1-C2\nunique: 1\n", out)

	_, err = execute(t, "C1-Zz2\n", "dedupe", "-")
	assert.Error(t, err)
}

func TestRankMatchesRenumbering(t *testing.T) {
	out, err := execute(t, "", "rank", "C1-N2-O3", "O1-N2-C3")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 2)
	a := strings.Fields(lines[0])
	b := strings.Fields(lines[1])
	require.Len(t, a, 3)
	require.Len(t, b, 3)
	assert.Equal(t, []string{a[2], a[1], a[0]}, b)
}

func TestCanonEquivalentLines(t *testing.T) {
	out, err := execute(t, "", "canon", "C1-C2-O3", "O1-C2-C3", "C1-O2-C3")
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, lines[0], lines[1])
	assert.NotEqual(t, lines[0], lines[2])

	_, err = execute(t, "", "canon", "--atom-flags", "bogus", "C1")
	assert.Error(t, err)
}

func canonHashes(t *testing.T, args ...string) []string {
	t.Helper()
	out, err := execute(t, "", append([]string{"canon"}, args...)...)
	require.NoError(t, err)
	var hashes []string
	for _, line := range strings.Split(strings.TrimSpace(out), "\n") {
		hashes = append(hashes, strings.Fields(line)[0])
	}
	return hashes
}

func TestConfigFile(t *testing.T) {
	pathname := filepath.Join(t.TempDir(), "molcanon.yaml")
	require.NoError(t, os.WriteFile(pathname, []byte("atom_flags: [type]\nmax_search_nodes: 1000\n"), 0644))

	cfg, err := LoadConfig(pathname)
	require.NoError(t, err)
	assert.Equal(t, []string{"type"}, cfg.AtomFlags)
	assert.Equal(t, []string{"default"}, cfg.BondFlags)
	assert.Equal(t, 1000, cfg.MaxSearchNodes)

	// enantiomers differ only in configuration
	hashes := canonHashes(t, cwExpr, ccwExpr)
	assert.NotEqual(t, hashes[0], hashes[1])

	hashes = canonHashes(t, "--config", pathname, cwExpr, ccwExpr)
	assert.Equal(t, hashes[0], hashes[1])

	// flags override the config file
	hashes = canonHashes(t, "--config", pathname, "--atom-flags", "all", cwExpr, ccwExpr)
	assert.NotEqual(t, hashes[0], hashes[1])

	_, err = LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
