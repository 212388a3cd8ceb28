package ember

import (
	"fmt"
	"math"
)

// Attribute names a per-particle field addressable by SetAttributeModifier.
type Attribute int

const (
	AttrPosition Attribute = iota
	AttrVelocity
	AttrAge
	AttrLifetime
	AttrSize
	AttrColor
)

func (a Attribute) field() string {
	switch a {
	case AttrPosition:
		return "position"
	case AttrVelocity:
		return "velocity"
	case AttrAge:
		return "age"
	case AttrLifetime:
		return "lifetime"
	case AttrSize:
		return "size"
	case AttrColor:
		return "color"
	}
	panic(fmt.Sprintf("unknown attribute %d", int(a)))
}

func (a Attribute) valueType() ValueType {
	switch a {
	case AttrPosition, AttrVelocity:
		return TypeVec3
	case AttrAge, AttrLifetime, AttrSize:
		return TypeFloat
	case AttrColor:
		return TypeVec4
	}
	panic(fmt.Sprintf("unknown attribute %d", int(a)))
}

// SetAttributeModifier assigns an expression to one particle attribute at
// spawn time.
type SetAttributeModifier struct {
	Attr  Attribute
	Value Expr
}

func NewSetAttributeModifier(attr Attribute, value Expr) *SetAttributeModifier {
	return &SetAttributeModifier{Attr: attr, Value: value}
}

func (m *SetAttributeModifier) Stage() Stage {
	return StageInit
}

func (m *SetAttributeModifier) Compile(ctx *CompileContext) (ShaderFragment, error) {
	if m.Value.Type() != m.Attr.valueType() {
		return ShaderFragment{}, fmt.Errorf("%w: attribute %s is %s, expression is %s",
			ErrTypeMismatch, m.Attr.field(), m.Attr.valueType(), m.Value.Type())
	}
	var w fragmentWriter
	w.linef("particle.%s = %s;", m.Attr.field(), ctx.Expr(m.Value))
	return ShaderFragment{Code: w.String(), Properties: ctx.props.order}, nil
}

func (m *SetAttributeModifier) ApplyInit(p *Particle, ev *evalEnv) {
	v := evalExpr(m.Value, ev)
	switch m.Attr {
	case AttrPosition:
		p.Position = v.Vec3()
	case AttrVelocity:
		p.Velocity = v.Vec3()
	case AttrAge:
		p.Age = v.Float()
	case AttrLifetime:
		p.Lifetime = v.Float()
	case AttrSize:
		p.Size = v.Float()
	case AttrColor:
		p.Color = v.Vec4()
	}
}

// ShapeDimension selects whether a shape sampler covers the surface only
// or the full volume.
type ShapeDimension int

const (
	ShapeSurface ShapeDimension = iota
	ShapeVolume
)

// SetPositionSphereModifier samples the spawn position uniformly on a
// sphere's surface or within its volume.
type SetPositionSphereModifier struct {
	Center    Expr // vec3
	Radius    Expr // float
	Dimension ShapeDimension
}

func (m *SetPositionSphereModifier) Stage() Stage {
	return StageInit
}

func (m *SetPositionSphereModifier) Compile(ctx *CompileContext) (ShaderFragment, error) {
	if err := expectTypes(m.Center, TypeVec3, m.Radius, TypeFloat); err != nil {
		return ShaderFragment{}, fmt.Errorf("position sphere: %w", err)
	}
	dir := ctx.Local("dir")
	r := ctx.Local("r")
	var w fragmentWriter
	w.linef("let %s = rand_unit_vec3();", dir)
	if m.Dimension == ShapeVolume {
		// Cube-root keeps points uniform over the ball, not clustered at
		// the center.
		w.linef("let %s = %s * pow(rand_f(), 0.333333333);", r, ctx.Expr(m.Radius))
	} else {
		w.linef("let %s = %s;", r, ctx.Expr(m.Radius))
	}
	w.linef("particle.position = %s + %s * %s;", ctx.Expr(m.Center), dir, r)
	return ShaderFragment{Code: w.String(), Properties: ctx.props.order}, nil
}

func (m *SetPositionSphereModifier) ApplyInit(p *Particle, ev *evalEnv) {
	dir := randUnitVec3(ev.rng)
	r := evalExpr(m.Radius, ev).Float()
	if m.Dimension == ShapeVolume {
		r *= float32(math.Cbrt(float64(ev.rng.Float32())))
	}
	p.Position = evalExpr(m.Center, ev).Vec3().Add(dir.Mul(r))
}

// SetVelocitySphereModifier gives particles a radial starting velocity
// pointing away from a center, with speed taken from an expression.
type SetVelocitySphereModifier struct {
	Center Expr // vec3
	Speed  Expr // float
}

func (m *SetVelocitySphereModifier) Stage() Stage {
	return StageInit
}

func (m *SetVelocitySphereModifier) Compile(ctx *CompileContext) (ShaderFragment, error) {
	if err := expectTypes(m.Center, TypeVec3, m.Speed, TypeFloat); err != nil {
		return ShaderFragment{}, fmt.Errorf("velocity sphere: %w", err)
	}
	delta := ctx.Local("delta")
	dir := ctx.Local("dir")
	var w fragmentWriter
	w.linef("let %s = particle.position - %s;", delta, ctx.Expr(m.Center))
	// Degenerate spawn exactly at the center falls back to a random
	// direction so no particle gets a zero velocity axis.
	w.linef("let %s = select(rand_unit_vec3(), normalize(%s), length(%s) > 1e-5);", dir, delta, delta)
	w.linef("particle.velocity = %s * (%s);", dir, ctx.Expr(m.Speed))
	return ShaderFragment{Code: w.String(), Properties: ctx.props.order}, nil
}

func (m *SetVelocitySphereModifier) ApplyInit(p *Particle, ev *evalEnv) {
	delta := p.Position.Sub(evalExpr(m.Center, ev).Vec3())
	dir := randUnitVec3(ev.rng)
	if delta.Len() > 1e-5 {
		dir = delta.Normalize()
	}
	p.Velocity = dir.Mul(evalExpr(m.Speed, ev).Float())
}

// expectTypes checks alternating (expr, wanted-type) pairs.
func expectTypes(pairs ...any) error {
	for i := 0; i+1 < len(pairs); i += 2 {
		e := pairs[i].(Expr)
		want := pairs[i+1].(ValueType)
		if e.Type() != want {
			return fmt.Errorf("%w: want %s, got %s", ErrTypeMismatch, want, e.Type())
		}
	}
	return nil
}
