package ember

import "fmt"

// SizeOverLifetimeModifier drives particle size from a float gradient
// sampled with the particle's normalized age. ScreenSpaceSize switches
// the interpretation from world units to fractions of the viewport
// height; the generated code is the same, the host vertex stage reads
// the flag from the render boilerplate.
type SizeOverLifetimeModifier struct {
	Gradient        *Gradient // float keys
	ScreenSpaceSize bool
}

func (m *SizeOverLifetimeModifier) Stage() Stage {
	return StageRender
}

func (m *SizeOverLifetimeModifier) Compile(ctx *CompileContext) (ShaderFragment, error) {
	if m.Gradient.Type() != TypeFloat {
		return ShaderFragment{}, fmt.Errorf("size over lifetime: %w: want float gradient, got %s",
			ErrTypeMismatch, m.Gradient.Type())
	}
	v := ctx.Local("size")
	var w fragmentWriter
	m.Gradient.compileWgsl(&w, v, "life_t")
	w.linef("size = %s;", v)
	return ShaderFragment{Code: w.String(), Properties: ctx.props.order}, nil
}

func (m *SizeOverLifetimeModifier) ApplyRender(p *Particle, t float32) {
	p.Size = m.Gradient.Sample(t).Float()
}

// ColorOverLifetimeModifier drives particle color (RGBA) from a vec4
// gradient sampled with the particle's normalized age.
type ColorOverLifetimeModifier struct {
	Gradient *Gradient // vec4 keys
}

func NewColorOverLifetimeModifier(g *Gradient) *ColorOverLifetimeModifier {
	return &ColorOverLifetimeModifier{Gradient: g}
}

func (m *ColorOverLifetimeModifier) Stage() Stage {
	return StageRender
}

func (m *ColorOverLifetimeModifier) Compile(ctx *CompileContext) (ShaderFragment, error) {
	if m.Gradient.Type() != TypeVec4 {
		return ShaderFragment{}, fmt.Errorf("color over lifetime: %w: want vec4 gradient, got %s",
			ErrTypeMismatch, m.Gradient.Type())
	}
	v := ctx.Local("color")
	var w fragmentWriter
	m.Gradient.compileWgsl(&w, v, "life_t")
	w.linef("color = %s;", v)
	return ShaderFragment{Code: w.String(), Properties: ctx.props.order}, nil
}

func (m *ColorOverLifetimeModifier) ApplyRender(p *Particle, t float32) {
	p.Color = m.Gradient.Sample(t).Vec4()
}

// RenderModifier is implemented by render-stage modifiers that can also
// run on the CPU reference simulator.
type RenderModifier interface {
	Modifier
	ApplyRender(p *Particle, t float32)
}
