package ember

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl32"
)

// Expr is an immutable node of a typed expression tree. Expressions are
// pure: they render to WGSL source at compile time and never touch GPU
// resources themselves. Runtime-varying inputs go through properties.
type Expr interface {
	// Type is the static type of the rendered value.
	Type() ValueType
	// Wgsl renders the node to canonical WGSL source text. Identical
	// trees render to byte-identical text.
	Wgsl() string

	// collectProperties appends referenced property names in
	// first-reference order.
	collectProperties(c *propertyCollector)
}

// BinOp is a binary operator over two expressions.
type BinOp int

const (
	OpAdd BinOp = iota
	OpSub
	OpMul
	OpDiv
)

func (op BinOp) token() string {
	switch op {
	case OpAdd:
		return "+"
	case OpSub:
		return "-"
	case OpMul:
		return "*"
	case OpDiv:
		return "/"
	}
	panic(fmt.Sprintf("unknown binary operator %d", int(op)))
}

// PropertyDecl declares a named runtime-mutable value. The default seeds
// fresh instance bindings and fixes the property's type.
type PropertyDecl struct {
	Name    string
	Default Value
}

// PropertyHandle refers to a property registered on an ExprModule.
type PropertyHandle struct {
	index int
}

// ExprModule is the backing store owning all properties an effect's
// expressions may reference. One module per effect asset.
type ExprModule struct {
	props     []PropertyDecl
	propIndex map[string]int
}

func NewExprModule() *ExprModule {
	return &ExprModule{
		propIndex: make(map[string]int),
	}
}

// AddProperty registers a new property. Names are unique within a module.
func (m *ExprModule) AddProperty(name string, def Value) (PropertyHandle, error) {
	if _, exists := m.propIndex[name]; exists {
		return PropertyHandle{}, fmt.Errorf("%w: %q", ErrDuplicateProperty, name)
	}
	m.propIndex[name] = len(m.props)
	m.props = append(m.props, PropertyDecl{Name: name, Default: def})
	return PropertyHandle{index: len(m.props) - 1}, nil
}

// Properties returns the declarations in registration order.
func (m *ExprModule) Properties() []PropertyDecl {
	return m.props
}

func (m *ExprModule) lookupProperty(name string) (PropertyDecl, bool) {
	i, ok := m.propIndex[name]
	if !ok {
		return PropertyDecl{}, false
	}
	return m.props[i], true
}

// Lit wraps a concrete value as a literal expression.
func (m *ExprModule) Lit(v Value) Expr {
	return literalExpr{value: v}
}

func (m *ExprModule) LitFloat(f float32) Expr {
	return m.Lit(FloatValue(f))
}

func (m *ExprModule) LitVec3(v mgl32.Vec3) Expr {
	return m.Lit(Vec3Value(v))
}

func (m *ExprModule) LitVec4(v mgl32.Vec4) Expr {
	return m.Lit(Vec4Value(v))
}

// Prop references a declared property by name.
func (m *ExprModule) Prop(name string) (Expr, error) {
	decl, ok := m.lookupProperty(name)
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUndeclaredProperty, name)
	}
	return propertyExpr{name: decl.Name, typ: decl.Default.Type}, nil
}

// PropOf references a property through the handle AddProperty returned.
func (m *ExprModule) PropOf(h PropertyHandle) Expr {
	decl := m.props[h.index]
	return propertyExpr{name: decl.Name, typ: decl.Default.Type}
}

// Rand produces a uniform random value in [0, 1) per component, sampled
// once per evaluation site.
func (m *ExprModule) Rand(t ValueType) Expr {
	return randExpr{typ: t}
}

// Binary combines two expressions with an arithmetic operator. Operands
// must have the same type, or one of them must be a float, which WGSL
// broadcasts over the vector operand.
func (m *ExprModule) Binary(op BinOp, lhs, rhs Expr) (Expr, error) {
	typ, ok := binaryResultType(lhs.Type(), rhs.Type())
	if !ok {
		return nil, fmt.Errorf("%w: %s %s %s", ErrTypeMismatch, lhs.Type(), op.token(), rhs.Type())
	}
	return binaryExpr{op: op, typ: typ, lhs: lhs, rhs: rhs}, nil
}

func binaryResultType(a, b ValueType) (ValueType, bool) {
	switch {
	case a == b:
		return a, true
	case a == TypeFloat:
		return b, true
	case b == TypeFloat:
		return a, true
	}
	return 0, false
}

type propertyCollector struct {
	seen  map[string]struct{}
	order []string
}

func newPropertyCollector() *propertyCollector {
	return &propertyCollector{seen: make(map[string]struct{})}
}

func (c *propertyCollector) add(name string) {
	if _, ok := c.seen[name]; ok {
		return
	}
	c.seen[name] = struct{}{}
	c.order = append(c.order, name)
}

type literalExpr struct {
	value Value
}

func (e literalExpr) Type() ValueType                        { return e.value.Type }
func (e literalExpr) Wgsl() string                           { return e.value.Wgsl() }
func (e literalExpr) collectProperties(c *propertyCollector) {}

type propertyExpr struct {
	name string
	typ  ValueType
}

func (e propertyExpr) Type() ValueType { return e.typ }

func (e propertyExpr) Wgsl() string {
	return "properties." + e.name
}

func (e propertyExpr) collectProperties(c *propertyCollector) {
	c.add(e.name)
}

type binaryExpr struct {
	op       BinOp
	typ      ValueType
	lhs, rhs Expr
}

func (e binaryExpr) Type() ValueType { return e.typ }

func (e binaryExpr) Wgsl() string {
	return fmt.Sprintf("(%s %s %s)", e.lhs.Wgsl(), e.op.token(), e.rhs.Wgsl())
}

func (e binaryExpr) collectProperties(c *propertyCollector) {
	e.lhs.collectProperties(c)
	e.rhs.collectProperties(c)
}

type randExpr struct {
	typ ValueType
}

func (e randExpr) Type() ValueType { return e.typ }

func (e randExpr) Wgsl() string {
	switch e.typ {
	case TypeFloat:
		return "rand_f()"
	case TypeVec2:
		return "rand_vec2()"
	case TypeVec3:
		return "rand_vec3()"
	case TypeVec4:
		return "rand_vec4()"
	}
	panic(fmt.Sprintf("unknown value type %d", int(e.typ)))
}

func (e randExpr) collectProperties(c *propertyCollector) {}
