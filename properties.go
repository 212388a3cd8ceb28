package ember

import (
	"encoding/binary"
	"fmt"
	"math"
	"strings"
)

// propertyField is one uniform struct member with its resolved byte
// offset.
type propertyField struct {
	name   string
	typ    ValueType
	offset int
}

// PropertyLayout is the uniform memory layout of an effect's referenced
// properties, following WGSL uniform alignment rules (f32 4/4, vec2 8/8,
// vec3 16/12, vec4 16/16, struct size rounded up to 16).
type PropertyLayout struct {
	fields []propertyField
	size   int
}

func buildPropertyLayout(decls []PropertyDecl) PropertyLayout {
	var l PropertyLayout
	offset := 0
	for _, d := range decls {
		align, size := typeAlignSize(d.Default.Type)
		offset = alignUp(offset, align)
		l.fields = append(l.fields, propertyField{name: d.Name, typ: d.Default.Type, offset: offset})
		offset += size
	}
	l.size = alignUp(offset, 16)
	return l
}

func typeAlignSize(t ValueType) (align, size int) {
	switch t {
	case TypeFloat:
		return 4, 4
	case TypeVec2:
		return 8, 8
	case TypeVec3:
		return 16, 12
	case TypeVec4:
		return 16, 16
	}
	panic(fmt.Sprintf("unknown value type %d", int(t)))
}

func alignUp(v, align int) int {
	return (v + align - 1) / align * align
}

// Size is the byte size of the packed uniform block.
func (l PropertyLayout) Size() int {
	return l.size
}

// wgslStruct renders the Properties uniform struct declaration, or an
// empty string when the effect references no properties.
func (l PropertyLayout) wgslStruct() string {
	if len(l.fields) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString("struct Properties {\n")
	for _, f := range l.fields {
		fmt.Fprintf(&sb, "    %s: %s,\n", f.name, f.typ.Wgsl())
	}
	sb.WriteString("}\n")
	return sb.String()
}

// Properties is the per-instance binding of property names to current
// values. Mutating a binding never touches compiled shader text; the
// packed block is re-uploaded as uniform data instead.
type Properties struct {
	layout PropertyLayout
	types  map[string]ValueType
	values map[string]Value
}

// NewProperties seeds bindings with every declared property's default.
func NewProperties(decls []PropertyDecl, layout PropertyLayout) *Properties {
	p := &Properties{
		layout: layout,
		types:  make(map[string]ValueType, len(decls)),
		values: make(map[string]Value, len(decls)),
	}
	for _, d := range decls {
		p.types[d.Name] = d.Default.Type
		p.values[d.Name] = d.Default
	}
	return p
}

// Set updates one binding. The name must be declared and the value must
// match the declared type.
func (p *Properties) Set(name string, v Value) error {
	typ, ok := p.types[name]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUndeclaredProperty, name)
	}
	if v.Type != typ {
		return fmt.Errorf("%w: property %q is %s, got %s", ErrTypeMismatch, name, typ, v.Type)
	}
	p.values[name] = v
	return nil
}

func (p *Properties) Get(name string) (Value, bool) {
	v, ok := p.values[name]
	return v, ok
}

// Pack serializes the bindings into the uniform block layout, little
// endian, ready for a queue write.
func (p *Properties) Pack() []byte {
	buf := make([]byte, p.layout.size)
	for _, f := range p.layout.fields {
		v := p.values[f.name]
		for i := 0; i < f.typ.components(); i++ {
			bits := math.Float32bits(v.Data[i])
			binary.LittleEndian.PutUint32(buf[f.offset+i*4:], bits)
		}
	}
	return buf
}
