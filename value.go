package ember

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/go-gl/mathgl/mgl32"
)

// ValueType is the static scalar type of an expression or property.
type ValueType int

const (
	TypeFloat ValueType = iota
	TypeVec2
	TypeVec3
	TypeVec4
)

func (t ValueType) String() string {
	switch t {
	case TypeFloat:
		return "float"
	case TypeVec2:
		return "vec2"
	case TypeVec3:
		return "vec3"
	case TypeVec4:
		return "vec4"
	}
	return fmt.Sprintf("ValueType(%d)", int(t))
}

// Wgsl returns the WGSL spelling of the type.
func (t ValueType) Wgsl() string {
	switch t {
	case TypeFloat:
		return "f32"
	case TypeVec2:
		return "vec2<f32>"
	case TypeVec3:
		return "vec3<f32>"
	case TypeVec4:
		return "vec4<f32>"
	}
	panic(fmt.Sprintf("unknown value type %d", int(t)))
}

func (t ValueType) components() int {
	switch t {
	case TypeFloat:
		return 1
	case TypeVec2:
		return 2
	case TypeVec3:
		return 3
	case TypeVec4:
		return 4
	}
	panic(fmt.Sprintf("unknown value type %d", int(t)))
}

// Value is a concrete scalar or vector, used for literals, property defaults
// and runtime property bindings.
type Value struct {
	Type ValueType
	Data [4]float32
}

func FloatValue(f float32) Value {
	return Value{Type: TypeFloat, Data: [4]float32{f}}
}

func Vec2Value(v mgl32.Vec2) Value {
	return Value{Type: TypeVec2, Data: [4]float32{v.X(), v.Y()}}
}

func Vec3Value(v mgl32.Vec3) Value {
	return Value{Type: TypeVec3, Data: [4]float32{v.X(), v.Y(), v.Z()}}
}

func Vec4Value(v mgl32.Vec4) Value {
	return Value{Type: TypeVec4, Data: [4]float32{v.X(), v.Y(), v.Z(), v.W()}}
}

func (v Value) Float() float32 {
	return v.Data[0]
}

func (v Value) Vec2() mgl32.Vec2 {
	return mgl32.Vec2{v.Data[0], v.Data[1]}
}

func (v Value) Vec3() mgl32.Vec3 {
	return mgl32.Vec3{v.Data[0], v.Data[1], v.Data[2]}
}

func (v Value) Vec4() mgl32.Vec4 {
	return mgl32.Vec4{v.Data[0], v.Data[1], v.Data[2], v.Data[3]}
}

// Wgsl renders the value as a WGSL literal. The formatting is canonical:
// the same value always produces the same bytes, which the variant cache
// relies on for deduplication.
func (v Value) Wgsl() string {
	if v.Type == TypeFloat {
		return formatFloat(v.Data[0])
	}
	n := v.Type.components()
	parts := make([]string, n)
	for i := 0; i < n; i++ {
		parts[i] = formatFloat(v.Data[i])
	}
	return fmt.Sprintf("%s(%s)", v.Type.Wgsl(), strings.Join(parts, ", "))
}

// formatFloat is the single float formatter used for all generated WGSL.
// Shortest round-trip form, with a forced decimal point so the literal is
// typed f32 and so that 1 and 1.0 cannot produce distinct cache entries.
func formatFloat(f float32) string {
	s := strconv.FormatFloat(float64(f), 'g', -1, 32)
	if !strings.ContainsAny(s, ".e") {
		s += ".0"
	}
	return s
}
