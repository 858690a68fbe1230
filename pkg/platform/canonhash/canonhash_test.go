package canonhash

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSumObjectDeterministicAcrossKeyOrder(t *testing.T) {
	a := map[string]any{
		"subject": "did:email:abc",
		"claims":  map[string]any{"name": "Ada", "age": 36},
	}
	b := map[string]any{
		"claims":  map[string]any{"age": 36, "name": "Ada"},
		"subject": "did:email:abc",
	}

	ha, encA, err := SumObject(a)
	require.NoError(t, err)
	hb, encB, err := SumObject(b)
	require.NoError(t, err)

	assert.Equal(t, ha, hb)
	assert.Equal(t, encA, encB)
	assert.True(t, strings.HasPrefix(ha, "sha256:"))
}

func TestSumObjectChangesWithContent(t *testing.T) {
	ha, _, _ := SumObject(map[string]any{"a": 1})
	hb, _, _ := SumObject(map[string]any{"a": 2})
	assert.NotEqual(t, ha, hb)
}

func TestSumObjectRejectsUnencodable(t *testing.T) {
	_, _, err := SumObject(map[string]any{"fn": func() {}})
	assert.Error(t, err)
}
