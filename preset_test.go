package ember

import (
	"os"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPresetRoundTripCompilesIdentically(t *testing.T) {
	original := buildForceFieldAsset(t)
	data, err := MarshalEffect(original)
	require.NoError(t, err)

	restored, err := UnmarshalEffect(data)
	require.NoError(t, err)

	assert.Equal(t, original.Name(), restored.Name())
	assert.Equal(t, original.Capacity(), restored.Capacity())
	assert.Equal(t, original.Spawner(), restored.Spawner())

	a, err := original.Compile()
	require.NoError(t, err)
	b, err := restored.Compile()
	require.NoError(t, err)

	assert.Equal(t, a.InitSource, b.InitSource)
	assert.Equal(t, a.UpdateSource, b.UpdateSource)
	assert.Equal(t, a.RenderSource, b.RenderSource)
	assert.Equal(t, a.Properties, b.Properties)
}

func TestPresetRoundTripHitsShaderCache(t *testing.T) {
	backend := &countingBackend{}
	cache := NewShaderCache(backend, nil)
	world := NewWorld(cache, nil)

	original := buildForceFieldAsset(t)
	_, err := world.Spawn(original)
	require.NoError(t, err)

	data, err := MarshalEffect(original)
	require.NoError(t, err)
	restored, err := UnmarshalEffect(data)
	require.NoError(t, err)

	// The restored asset compiles to the same bytes, so spawning it
	// reuses every cached variant.
	_, err = world.Spawn(restored)
	require.NoError(t, err)
	assert.Equal(t, 3, backend.calls)
	assert.Equal(t, 3, cache.Len())
}

func TestPresetSaveLoadFile(t *testing.T) {
	filename := "test_effect_preset.json"
	defer os.Remove(filename)

	original := buildForceFieldAsset(t)
	require.NoError(t, SaveEffectPreset(original, filename))

	loaded, err := LoadEffectPreset(filename)
	require.NoError(t, err)
	assert.Equal(t, "force_field", loaded.Name())

	a, err := original.Compile()
	require.NoError(t, err)
	b, err := loaded.Compile()
	require.NoError(t, err)
	assert.Equal(t, a.UpdateSource, b.UpdateSource)
}

func TestPresetPreservesOptionalConformFields(t *testing.T) {
	m := NewExprModule()
	asset := NewEffectAsset(64, RateSpawner(10), m).
		Update(&ConformToSphereModifier{
			Origin:             m.LitVec3(mgl32.Vec3{}),
			Radius:             m.LitFloat(1),
			InfluenceDist:      m.LitFloat(5),
			AttractionAccel:    m.LitFloat(10),
			MaxAttractionSpeed: m.LitFloat(2),
			StickyFactor:       m.LitFloat(2),
			ShellHalfThickness: m.LitFloat(0.1),
		})

	data, err := MarshalEffect(asset)
	require.NoError(t, err)
	restored, err := UnmarshalEffect(data)
	require.NoError(t, err)

	a, err := asset.Compile()
	require.NoError(t, err)
	b, err := restored.Compile()
	require.NoError(t, err)
	assert.Equal(t, a.UpdateSource, b.UpdateSource)
	assert.Contains(t, b.UpdateSource, "0.1", "sticky shell parameters survive the round trip")
}

func TestPresetRejectsUnknownModifierKind(t *testing.T) {
	_, err := UnmarshalEffect([]byte(`{
		"name": "broken",
		"capacity": 64,
		"spawner": {"mode": "rate", "count": 10, "emit_on_start": true},
		"update": [{"kind": "warp_drive"}]
	}`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "warp_drive")
}

func TestPresetRejectsUndeclaredPropertyReference(t *testing.T) {
	_, err := UnmarshalEffect([]byte(`{
		"name": "broken",
		"capacity": 64,
		"spawner": {"mode": "once", "count": 30, "emit_on_start": true},
		"update": [{
			"kind": "kill_sphere",
			"center": {"kind": "property", "name": "nowhere"},
			"radius": {"kind": "literal", "type": "float", "value": [1]}
		}]
	}`))
	assert.ErrorIs(t, err, ErrUndeclaredProperty)
}
