package ember

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPropertyLayoutAlignment(t *testing.T) {
	decls := []PropertyDecl{
		{Name: "accel", Default: FloatValue(-15)},
		{Name: "origin", Default: Vec3Value(mgl32.Vec3{0, 0, 0})},
		{Name: "sticky", Default: FloatValue(2)},
	}
	layout := buildPropertyLayout(decls)

	// f32 at 0, vec3 aligned up to 16, f32 packs into the vec3 tail pad.
	require.Len(t, layout.fields, 3)
	assert.Equal(t, 0, layout.fields[0].offset)
	assert.Equal(t, 16, layout.fields[1].offset)
	assert.Equal(t, 28, layout.fields[2].offset)
	assert.Equal(t, 32, layout.Size(), "struct size rounds up to 16")
}

func TestPropertyLayoutEmpty(t *testing.T) {
	layout := buildPropertyLayout(nil)
	assert.Equal(t, 0, layout.Size())
	assert.Empty(t, layout.wgslStruct())
}

func TestPropertyLayoutWgslStruct(t *testing.T) {
	layout := buildPropertyLayout([]PropertyDecl{
		{Name: "accel", Default: FloatValue(20)},
		{Name: "origin", Default: Vec3Value(mgl32.Vec3{})},
	})
	wgsl := layout.wgslStruct()
	assert.Contains(t, wgsl, "struct Properties {")
	assert.Contains(t, wgsl, "accel: f32,")
	assert.Contains(t, wgsl, "origin: vec3<f32>,")
}

func TestPropertiesPack(t *testing.T) {
	decls := []PropertyDecl{
		{Name: "accel", Default: FloatValue(-15)},
		{Name: "origin", Default: Vec3Value(mgl32.Vec3{1, 2, 3})},
	}
	props := NewProperties(decls, buildPropertyLayout(decls))

	buf := props.Pack()
	require.Len(t, buf, 32)

	readF32 := func(offset int) float32 {
		return math.Float32frombits(binary.LittleEndian.Uint32(buf[offset:]))
	}
	assert.Equal(t, float32(-15), readF32(0))
	assert.Equal(t, float32(1), readF32(16))
	assert.Equal(t, float32(2), readF32(20))
	assert.Equal(t, float32(3), readF32(24))

	// Updated bindings land in the same slots on the next pack.
	require.NoError(t, props.Set("origin", Vec3Value(mgl32.Vec3{7, 8, 9})))
	buf = props.Pack()
	assert.Equal(t, float32(7), readF32(16))
}

func TestPropertiesSetValidation(t *testing.T) {
	decls := []PropertyDecl{{Name: "accel", Default: FloatValue(1)}}
	props := NewProperties(decls, buildPropertyLayout(decls))

	err := props.Set("missing", FloatValue(1))
	assert.ErrorIs(t, err, ErrUndeclaredProperty)

	err = props.Set("accel", Vec3Value(mgl32.Vec3{1, 2, 3}))
	assert.ErrorIs(t, err, ErrTypeMismatch)

	v, ok := props.Get("accel")
	require.True(t, ok)
	assert.Equal(t, float32(1), v.Float(), "failed sets leave the binding untouched")
}

func TestPropertiesSeededFromDefaults(t *testing.T) {
	decls := []PropertyDecl{
		{Name: "accel", Default: FloatValue(20)},
		{Name: "origin", Default: Vec3Value(mgl32.Vec3{0, 1, 0})},
	}
	props := NewProperties(decls, buildPropertyLayout(decls))

	v, ok := props.Get("origin")
	require.True(t, ok)
	assert.Equal(t, mgl32.Vec3{0, 1, 0}, v.Vec3())
}
