package molstream

import (
	"bytes"
	"strings"
	"testing"

	"github.com/2x3systems/molcanon/libcanon/catalog"
	"github.com/2x3systems/molcanon/libcanon/molgraph"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const input = `
# propanol and friends
C1-C2-C3-O4
O1-C2-C3-C4
C1-Zz2
C1-C3-C2, C3-O4
`

func TestPipeline(t *testing.T) {
	set, err := catalog.NewDropDupes(catalog.DefaultOpts())
	require.NoError(t, err)
	defer set.Close()

	var out bytes.Buffer
	count, err := ReadExprs(strings.NewReader(input)).AddTo(set).Print(&out).PullAll()
	assert.Equal(t, 3, count)
	require.Error(t, err)
	assert.ErrorIs(t, err, molgraph.ErrBadExpr)
	assert.Contains(t, err.Error(), "line 5")

	assert.Equal(t, "1 new C1-C2-C3-O4\n1 dup O1-C2-C3-C4\n2 new C1-C3-C2, C3-O4\n", out.String())
}

func TestDropDupesStage(t *testing.T) {
	set, err := catalog.NewDropDupes(catalog.DefaultOpts())
	require.NoError(t, err)
	defer set.Close()

	src := "C1-O2\nO1-C2\nC1=O2\nO1=C2\nC1-O2\n"
	var out bytes.Buffer
	count, err := ReadExprs(strings.NewReader(src)).AddTo(set).DropDupes().Print(&out).PullAll()
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, "1 new C1-O2\n2 new C1=O2\n", out.String())
}
