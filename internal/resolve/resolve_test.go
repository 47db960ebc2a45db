package resolve

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rojo-rbx/rojo-core/internal/variant"
)

func TestResolveScalarKinds(t *testing.T) {
	v, err := Resolve("hello", TargetNone, "StringValue", "Value", nil)
	require.NoError(t, err)
	assert.Equal(t, variant.String("hello"), v)

	v, err = Resolve(true, TargetNone, "BoolValue", "Value", nil)
	require.NoError(t, err)
	assert.Equal(t, variant.Bool(true), v)

	v, err = Resolve(float64(5), TargetNone, "NumberValue", "Value", nil)
	require.NoError(t, err)
	assert.Equal(t, variant.Float32(5), v)
}

func TestResolveVectorAndColor(t *testing.T) {
	v, err := Resolve([]any{float64(1), float64(2), float64(3)}, TargetNone, "Part", "Size", nil)
	require.NoError(t, err)
	assert.Equal(t, variant.Vector3{X: 1, Y: 2, Z: 3}, v)

	v, err = Resolve([]any{float64(1), float64(0), float64(0)}, TargetColor3, "Part", "Color", nil)
	require.NoError(t, err)
	assert.Equal(t, variant.Color3{R: 1, G: 0, B: 0}, v)
}

func TestResolveTags(t *testing.T) {
	v, err := Resolve([]any{"a", "b"}, TargetTags, "Part", "Tags", nil)
	require.NoError(t, err)
	assert.Equal(t, variant.Tags{"a", "b"}, v)
}

func TestResolveUnsupportedArrayLength(t *testing.T) {
	_, err := Resolve([]any{float64(1), float64(2), float64(3), float64(4)}, TargetNone, "Part", "X", nil)
	assert.Error(t, err)
}

func TestLookup(t *testing.T) {
	data := map[string]any{"a": map[string]any{"b": float64(42)}}
	v, err := Lookup(data, "$.a.b")
	require.NoError(t, err)
	assert.Equal(t, float64(42), v)
}
