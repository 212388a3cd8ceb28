package ember

import (
	"fmt"
	"sort"
)

// GradientKey is one control point of a keyframe gradient.
type GradientKey struct {
	T     float32
	Value Value
}

// Gradient maps a normalized particle age in [0, 1] to a value by linear
// interpolation between ordered keys. Sampling before the first key or
// after the last clamps to that key's value.
type Gradient struct {
	typ  ValueType
	keys []GradientKey
}

func NewGradient(t ValueType) *Gradient {
	return &Gradient{typ: t}
}

// ConstantGradient is a single-key gradient that always yields v.
func ConstantGradient(v Value) *Gradient {
	g := NewGradient(v.Type)
	// Single key of the right type, AddKey cannot fail here.
	_ = g.AddKey(0, v)
	return g
}

func (g *Gradient) Type() ValueType {
	return g.typ
}

func (g *Gradient) Keys() []GradientKey {
	return g.keys
}

// AddKey inserts a control point, keeping keys sorted by T. A key added
// at an already-used T goes after the existing one.
func (g *Gradient) AddKey(t float32, v Value) error {
	if v.Type != g.typ {
		return fmt.Errorf("%w: gradient key %s in %s gradient", ErrTypeMismatch, v.Type, g.typ)
	}
	at := sort.Search(len(g.keys), func(i int) bool { return g.keys[i].T > t })
	g.keys = append(g.keys, GradientKey{})
	copy(g.keys[at+1:], g.keys[at:])
	g.keys[at] = GradientKey{T: t, Value: v}
	return nil
}

// Sample evaluates the gradient at t with clamping at both ends.
func (g *Gradient) Sample(t float32) Value {
	if len(g.keys) == 0 {
		return Value{Type: g.typ}
	}
	if t <= g.keys[0].T {
		return g.keys[0].Value
	}
	last := g.keys[len(g.keys)-1]
	if t >= last.T {
		return last.Value
	}
	for i := 1; i < len(g.keys); i++ {
		if t <= g.keys[i].T {
			return lerpValue(g.keys[i-1], g.keys[i], t)
		}
	}
	return last.Value
}

func lerpValue(a, b GradientKey, t float32) Value {
	span := b.T - a.T
	if span <= 0 {
		return b.Value
	}
	f := (t - a.T) / span
	out := Value{Type: a.Value.Type}
	for i := 0; i < a.Value.Type.components(); i++ {
		out.Data[i] = a.Value.Data[i] + (b.Value.Data[i]-a.Value.Data[i])*f
	}
	return out
}

// compileWgsl emits statements declaring varName and walking the key list
// with clamped mixes. ageVar must hold the normalized age.
func (g *Gradient) compileWgsl(w *fragmentWriter, varName, ageVar string) {
	if len(g.keys) == 0 {
		w.linef("var %s: %s = %s;", varName, g.typ.Wgsl(), Value{Type: g.typ}.Wgsl())
		return
	}
	w.linef("var %s: %s = %s;", varName, g.typ.Wgsl(), g.keys[0].Value.Wgsl())
	for i := 1; i < len(g.keys); i++ {
		a, b := g.keys[i-1], g.keys[i]
		if b.T <= a.T {
			w.linef("if (%s >= %s) { %s = %s; }", ageVar, formatFloat(b.T), varName, b.Value.Wgsl())
			continue
		}
		w.linef("if (%s >= %s) { %s = mix(%s, %s, clamp((%s - %s) / %s, 0.0, 1.0)); }",
			ageVar, formatFloat(a.T),
			varName,
			a.Value.Wgsl(), b.Value.Wgsl(),
			ageVar, formatFloat(a.T), formatFloat(b.T-a.T))
	}
}
