package ember

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// ConformToSphereModifier accelerates particles toward the surface of a
// sphere. A positive AttractionAccel attracts, a negative one repulses;
// the same modifier serves both attractors and repulsors. Speed along the
// radial axis is clamped by MaxAttractionSpeed. With StickyFactor and
// ShellHalfThickness set, particles inside the shell around the surface
// get their velocity damped so they stick to it.
type ConformToSphereModifier struct {
	Origin             Expr // vec3
	Radius             Expr // float
	InfluenceDist      Expr // float
	AttractionAccel    Expr // float
	MaxAttractionSpeed Expr // float

	// Optional; both must be set for stickiness to apply.
	StickyFactor       Expr // float
	ShellHalfThickness Expr // float
}

func (m *ConformToSphereModifier) Stage() Stage {
	return StageUpdate
}

func (m *ConformToSphereModifier) sticky() bool {
	return m.StickyFactor != nil && m.ShellHalfThickness != nil
}

func (m *ConformToSphereModifier) Compile(ctx *CompileContext) (ShaderFragment, error) {
	if err := expectTypes(
		m.Origin, TypeVec3,
		m.Radius, TypeFloat,
		m.InfluenceDist, TypeFloat,
		m.AttractionAccel, TypeFloat,
		m.MaxAttractionSpeed, TypeFloat,
	); err != nil {
		return ShaderFragment{}, fmt.Errorf("conform to sphere: %w", err)
	}
	if m.sticky() {
		if err := expectTypes(m.StickyFactor, TypeFloat, m.ShellHalfThickness, TypeFloat); err != nil {
			return ShaderFragment{}, fmt.Errorf("conform to sphere: %w", err)
		}
	}

	delta := ctx.Local("delta")
	dist := ctx.Local("dist")
	dir := ctx.Local("dir")
	toSurface := ctx.Local("to_surface")
	radial := ctx.Local("radial")
	clamped := ctx.Local("clamped")

	var w fragmentWriter
	w.linef("let %s = %s - particle.position;", delta, ctx.Expr(m.Origin))
	w.linef("let %s = length(%s);", dist, delta)
	w.linef("if (%s > 1e-5 && %s < %s) {", dist, dist, ctx.Expr(m.InfluenceDist))
	w.linef("    let %s = %s / %s;", dir, delta, dist)
	w.linef("    let %s = %s - %s;", toSurface, dist, ctx.Expr(m.Radius))
	w.linef("    particle.velocity += %s * sign(%s) * (%s) * sim_params.dt;", dir, toSurface, ctx.Expr(m.AttractionAccel))
	w.linef("    let %s = dot(particle.velocity, %s);", radial, dir)
	w.linef("    let %s = clamp(%s, -(%s), %s);", clamped, radial, ctx.Expr(m.MaxAttractionSpeed), ctx.Expr(m.MaxAttractionSpeed))
	w.linef("    particle.velocity += %s * (%s - %s);", dir, clamped, radial)
	if m.sticky() {
		w.linef("    if (abs(%s) < %s) {", toSurface, ctx.Expr(m.ShellHalfThickness))
		w.linef("        particle.velocity *= max(0.0, 1.0 - (%s) * sim_params.dt);", ctx.Expr(m.StickyFactor))
		w.linef("    }")
	}
	w.linef("}")
	return ShaderFragment{Code: w.String(), Properties: ctx.props.order}, nil
}

func (m *ConformToSphereModifier) ApplyUpdate(p *Particle, dt float32, ev *evalEnv) {
	delta := evalExpr(m.Origin, ev).Vec3().Sub(p.Position)
	dist := delta.Len()
	if dist <= 1e-5 || dist >= evalExpr(m.InfluenceDist, ev).Float() {
		return
	}
	dir := delta.Mul(1 / dist)
	toSurface := dist - evalExpr(m.Radius, ev).Float()

	accel := evalExpr(m.AttractionAccel, ev).Float()
	p.Velocity = p.Velocity.Add(dir.Mul(sign(toSurface) * accel * dt))

	maxSpeed := evalExpr(m.MaxAttractionSpeed, ev).Float()
	radial := p.Velocity.Dot(dir)
	clamped := mgl32.Clamp(radial, -maxSpeed, maxSpeed)
	p.Velocity = p.Velocity.Add(dir.Mul(clamped - radial))

	if m.sticky() {
		shell := evalExpr(m.ShellHalfThickness, ev).Float()
		if abs(toSurface) < shell {
			factor := evalExpr(m.StickyFactor, ev).Float()
			damp := 1 - factor*dt
			if damp < 0 {
				damp = 0
			}
			p.Velocity = p.Velocity.Mul(damp)
		}
	}
}

// KillAabbModifier kills particles relative to an axis-aligned box. With
// KillInside false the box is an allow zone: particles leaving it die.
// With KillInside true the box is a forbidden region.
type KillAabbModifier struct {
	Center     Expr // vec3
	HalfSize   Expr // vec3
	KillInside bool
}

func NewKillAabbModifier(center, halfSize Expr) *KillAabbModifier {
	return &KillAabbModifier{Center: center, HalfSize: halfSize}
}

func (m *KillAabbModifier) WithKillInside(kill bool) *KillAabbModifier {
	m.KillInside = kill
	return m
}

func (m *KillAabbModifier) Stage() Stage {
	return StageUpdate
}

func (m *KillAabbModifier) Compile(ctx *CompileContext) (ShaderFragment, error) {
	if err := expectTypes(m.Center, TypeVec3, m.HalfSize, TypeVec3); err != nil {
		return ShaderFragment{}, fmt.Errorf("kill aabb: %w", err)
	}
	d := ctx.Local("d")
	inside := ctx.Local("inside")
	var w fragmentWriter
	w.linef("let %s = abs(particle.position - %s);", d, ctx.Expr(m.Center))
	w.linef("let %s = all(%s <= %s);", inside, d, ctx.Expr(m.HalfSize))
	w.linef("if (%s == %s) { particle.age = particle.lifetime; }", inside, wgslBool(m.KillInside))
	return ShaderFragment{Code: w.String(), Properties: ctx.props.order}, nil
}

func (m *KillAabbModifier) ApplyUpdate(p *Particle, dt float32, ev *evalEnv) {
	d := p.Position.Sub(evalExpr(m.Center, ev).Vec3())
	half := evalExpr(m.HalfSize, ev).Vec3()
	inside := abs(d.X()) <= half.X() && abs(d.Y()) <= half.Y() && abs(d.Z()) <= half.Z()
	if inside == m.KillInside {
		p.Age = p.Lifetime
	}
}

// KillSphereModifier kills particles relative to a sphere. KillInside
// true kills particles strictly inside the radius (a forbidden region);
// false kills particles at or beyond it (an allowed region).
type KillSphereModifier struct {
	Center     Expr // vec3
	Radius     Expr // float
	KillInside bool
}

func NewKillSphereModifier(center, radius Expr) *KillSphereModifier {
	return &KillSphereModifier{Center: center, Radius: radius}
}

func (m *KillSphereModifier) WithKillInside(kill bool) *KillSphereModifier {
	m.KillInside = kill
	return m
}

func (m *KillSphereModifier) Stage() Stage {
	return StageUpdate
}

func (m *KillSphereModifier) Compile(ctx *CompileContext) (ShaderFragment, error) {
	if err := expectTypes(m.Center, TypeVec3, m.Radius, TypeFloat); err != nil {
		return ShaderFragment{}, fmt.Errorf("kill sphere: %w", err)
	}
	delta := ctx.Local("delta")
	inside := ctx.Local("inside")
	r := ctx.Expr(m.Radius)
	var w fragmentWriter
	w.linef("let %s = particle.position - %s;", delta, ctx.Expr(m.Center))
	w.linef("let %s = dot(%s, %s) < (%s) * (%s);", inside, delta, delta, r, r)
	w.linef("if (%s == %s) { particle.age = particle.lifetime; }", inside, wgslBool(m.KillInside))
	return ShaderFragment{Code: w.String(), Properties: ctx.props.order}, nil
}

func (m *KillSphereModifier) ApplyUpdate(p *Particle, dt float32, ev *evalEnv) {
	delta := p.Position.Sub(evalExpr(m.Center, ev).Vec3())
	r := evalExpr(m.Radius, ev).Float()
	inside := delta.Dot(delta) < r*r
	if inside == m.KillInside {
		p.Age = p.Lifetime
	}
}

func wgslBool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func sign(f float32) float32 {
	switch {
	case f > 0:
		return 1
	case f < 0:
		return -1
	}
	return 0
}

func abs(f float32) float32 {
	if f < 0 {
		return -f
	}
	return f
}
