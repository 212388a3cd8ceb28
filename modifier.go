package ember

import (
	"fmt"
	"math/rand"
	"strings"
)

// Stage tags a modifier with the simulation pass it contributes to.
type Stage int

const (
	StageInit Stage = iota
	StageUpdate
	StageRender
)

func (s Stage) String() string {
	switch s {
	case StageInit:
		return "init"
	case StageUpdate:
		return "update"
	case StageRender:
		return "render"
	}
	return fmt.Sprintf("Stage(%d)", int(s))
}

// ShaderFragment is one modifier's contribution to a stage: a block of
// WGSL statements plus the properties those statements reference.
type ShaderFragment struct {
	Code       string
	Properties []string
}

// Modifier is a composable unit of particle behavior. Compile is pure:
// the same modifier state always yields the same fragment.
type Modifier interface {
	Stage() Stage
	Compile(ctx *CompileContext) (ShaderFragment, error)
}

// InitModifier additionally runs on the CPU reference simulator when a
// particle spawns.
type InitModifier interface {
	Modifier
	ApplyInit(p *Particle, ev *evalEnv)
}

// UpdateModifier additionally runs on the CPU reference simulator once
// per simulated tick.
type UpdateModifier interface {
	Modifier
	ApplyUpdate(p *Particle, dt float32, ev *evalEnv)
}

// CompileContext scopes one modifier's compilation. Locals minted through
// it carry the modifier's slot index so two modifiers in the same stage
// can never collide on a variable name.
type CompileContext struct {
	stage Stage
	slot  int
	props *propertyCollector
}

// Local returns a fragment-local variable name unique to this modifier.
func (ctx *CompileContext) Local(name string) string {
	return fmt.Sprintf("%s_%d", name, ctx.slot)
}

// Expr renders an expression and records the properties it references.
func (ctx *CompileContext) Expr(e Expr) string {
	e.collectProperties(ctx.props)
	return e.Wgsl()
}

// fragmentWriter accumulates indented WGSL statements.
type fragmentWriter struct {
	sb strings.Builder
}

func (w *fragmentWriter) linef(format string, args ...any) {
	w.sb.WriteString("    ")
	fmt.Fprintf(&w.sb, format, args...)
	w.sb.WriteByte('\n')
}

func (w *fragmentWriter) String() string {
	return w.sb.String()
}

// evalEnv carries what CPU-side expression evaluation needs: the current
// property bindings and the simulator's random source.
type evalEnv struct {
	props *Properties
	rng   *rand.Rand
}

// evalExpr evaluates an expression on the CPU with the same semantics the
// generated WGSL has. Used by the reference simulator and its tests.
func evalExpr(e Expr, ev *evalEnv) Value {
	switch n := e.(type) {
	case literalExpr:
		return n.value
	case propertyExpr:
		if v, ok := ev.props.Get(n.name); ok {
			return v
		}
		// Properties are validated at authoring time; a miss here means
		// the bindings were built for a different module.
		panic(fmt.Sprintf("property %q missing from bindings", n.name))
	case randExpr:
		out := Value{Type: n.typ}
		for i := 0; i < n.typ.components(); i++ {
			out.Data[i] = ev.rng.Float32()
		}
		return out
	case binaryExpr:
		return applyBinary(n.op, n.typ, evalExpr(n.lhs, ev), evalExpr(n.rhs, ev))
	}
	panic(fmt.Sprintf("unknown expression node %T", e))
}

func applyBinary(op BinOp, typ ValueType, a, b Value) Value {
	out := Value{Type: typ}
	for i := 0; i < typ.components(); i++ {
		x := broadcast(a, i)
		y := broadcast(b, i)
		switch op {
		case OpAdd:
			out.Data[i] = x + y
		case OpSub:
			out.Data[i] = x - y
		case OpMul:
			out.Data[i] = x * y
		case OpDiv:
			out.Data[i] = x / y
		}
	}
	return out
}

func broadcast(v Value, i int) float32 {
	if v.Type == TypeFloat {
		return v.Data[0]
	}
	return v.Data[i]
}
