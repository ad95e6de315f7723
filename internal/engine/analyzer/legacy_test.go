package analyzer

import (
	"testing"

	"pyanalyzer/internal/core/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLegacy_ValidSource(t *testing.T) {
	names, err := ImportedNames("from mod import a")
	require.NoError(t, err)
	assert.Equal(t, []QualifiedName{{Module: "mod", Name: "a"}}, names)

	fns, err := DefinedFunctions("def f(x): pass")
	require.NoError(t, err)
	require.Len(t, fns, 1)
	assert.Equal(t, "f", fns[0].Name)

	calls, err := CalledNames("f(g())")
	require.NoError(t, err)
	assert.Equal(t, []string{"f", "g"}, calls)

	found, err := FindEllipsis("x = ...")
	require.NoError(t, err)
	assert.True(t, found)
}

func TestLegacy_FailsFastOnSyntaxError(t *testing.T) {
	src := "from mod import a, b,\n\n1+"

	_, err := ImportedNames(src)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeSyntax))
	assert.Equal(t, "Trailing comma not allowed", errors.MessageOf(err))
	assert.Contains(t, err.Error(), "20..21")

	_, err = DefinedFunctions(src)
	assert.True(t, errors.IsCode(err, errors.CodeSyntax))
	_, err = CalledNames(src)
	assert.True(t, errors.IsCode(err, errors.CodeSyntax))
	found, err := FindEllipsis(src)
	assert.True(t, errors.IsCode(err, errors.CodeSyntax))
	assert.False(t, found)
}

func TestLegacy_EmptyResultsAreNotNil(t *testing.T) {
	names, err := ImportedNames("")
	require.NoError(t, err)
	assert.NotNil(t, names)
	assert.Empty(t, names)
}
