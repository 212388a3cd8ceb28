package ember

import (
	"encoding/json"
	"fmt"
	"os"
)

// Effect presets are the asset-layer form of an effect definition. A
// loaded preset reconstructs an equivalent expression/modifier graph:
// round-tripping an asset compiles to byte-identical source.

type exprData struct {
	Kind  string    `json:"kind"` // literal | property | binary | rand
	Type  string    `json:"type,omitempty"`
	Value []float32 `json:"value,omitempty"`
	Name  string    `json:"name,omitempty"`
	Op    string    `json:"op,omitempty"`
	Lhs   *exprData `json:"lhs,omitempty"`
	Rhs   *exprData `json:"rhs,omitempty"`
}

type gradientKeyData struct {
	T     float32   `json:"t"`
	Value []float32 `json:"value"`
}

type gradientData struct {
	Type string            `json:"type"`
	Keys []gradientKeyData `json:"keys"`
}

type modifierData struct {
	Kind string `json:"kind"`

	Attr      string    `json:"attr,omitempty"`
	Value     *exprData `json:"value,omitempty"`
	Center    *exprData `json:"center,omitempty"`
	Radius    *exprData `json:"radius,omitempty"`
	HalfSize  *exprData `json:"half_size,omitempty"`
	Speed     *exprData `json:"speed,omitempty"`
	Dimension string    `json:"dimension,omitempty"`

	Origin             *exprData `json:"origin,omitempty"`
	InfluenceDist      *exprData `json:"influence_dist,omitempty"`
	AttractionAccel    *exprData `json:"attraction_accel,omitempty"`
	MaxAttractionSpeed *exprData `json:"max_attraction_speed,omitempty"`
	StickyFactor       *exprData `json:"sticky_factor,omitempty"`
	ShellHalfThickness *exprData `json:"shell_half_thickness,omitempty"`

	KillInside      bool `json:"kill_inside,omitempty"`
	ScreenSpaceSize bool `json:"screen_space_size,omitempty"`

	Gradient *gradientData `json:"gradient,omitempty"`
}

type propertyData struct {
	Name    string    `json:"name"`
	Type    string    `json:"type"`
	Default []float32 `json:"default"`
}

type spawnerData struct {
	Mode        string  `json:"mode"` // once | rate
	Count       float32 `json:"count"`
	EmitOnStart bool    `json:"emit_on_start"`
}

// EffectPreset is the serialized form of one effect asset.
type EffectPreset struct {
	Name       string         `json:"name"`
	Capacity   int            `json:"capacity"`
	Spawner    spawnerData    `json:"spawner"`
	Properties []propertyData `json:"properties"`
	Init       []modifierData `json:"init"`
	Update     []modifierData `json:"update"`
	Render     []modifierData `json:"render"`
}

// MarshalEffect serializes an effect asset to preset JSON.
func MarshalEffect(asset *EffectAsset) ([]byte, error) {
	preset := EffectPreset{
		Name:     asset.name,
		Capacity: asset.capacity,
		Spawner: spawnerData{
			Mode:        spawnModeName(asset.spawner.Mode),
			Count:       asset.spawner.Count,
			EmitOnStart: asset.spawner.EmitOnStart,
		},
	}
	for _, d := range asset.module.Properties() {
		preset.Properties = append(preset.Properties, propertyData{
			Name:    d.Name,
			Type:    d.Default.Type.String(),
			Default: valueData(d.Default),
		})
	}
	var err error
	if preset.Init, err = marshalModifiers(asset.init); err != nil {
		return nil, err
	}
	if preset.Update, err = marshalModifiers(asset.update); err != nil {
		return nil, err
	}
	if preset.Render, err = marshalModifiers(asset.render); err != nil {
		return nil, err
	}
	return json.MarshalIndent(preset, "", "  ")
}

// UnmarshalEffect reconstructs an effect asset from preset JSON.
func UnmarshalEffect(data []byte) (*EffectAsset, error) {
	var preset EffectPreset
	if err := json.Unmarshal(data, &preset); err != nil {
		return nil, fmt.Errorf("parse effect preset: %w", err)
	}

	module := NewExprModule()
	for _, pd := range preset.Properties {
		typ, err := parseValueType(pd.Type)
		if err != nil {
			return nil, err
		}
		if _, err := module.AddProperty(pd.Name, valueFromData(typ, pd.Default)); err != nil {
			return nil, err
		}
	}

	mode, err := parseSpawnMode(preset.Spawner.Mode)
	if err != nil {
		return nil, err
	}
	settings := SpawnerSettings{Mode: mode, Count: preset.Spawner.Count, EmitOnStart: preset.Spawner.EmitOnStart}

	asset := NewEffectAsset(preset.Capacity, settings, module).WithName(preset.Name)
	for _, md := range preset.Init {
		m, err := unmarshalModifier(md, module)
		if err != nil {
			return nil, err
		}
		asset.Init(m)
	}
	for _, md := range preset.Update {
		m, err := unmarshalModifier(md, module)
		if err != nil {
			return nil, err
		}
		asset.Update(m)
	}
	for _, md := range preset.Render {
		m, err := unmarshalModifier(md, module)
		if err != nil {
			return nil, err
		}
		asset.Render(m)
	}
	if asset.err != nil {
		return nil, asset.err
	}
	return asset, nil
}

// SaveEffectPreset writes an asset's preset JSON to a file.
func SaveEffectPreset(asset *EffectAsset, filename string) error {
	data, err := MarshalEffect(asset)
	if err != nil {
		return err
	}
	return os.WriteFile(filename, data, 0644)
}

// LoadEffectPreset reads a preset file back into an effect asset.
func LoadEffectPreset(filename string) (*EffectAsset, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("read effect preset: %w", err)
	}
	return UnmarshalEffect(data)
}

func marshalModifiers(mods []Modifier) ([]modifierData, error) {
	var out []modifierData
	for _, m := range mods {
		md, err := marshalModifier(m)
		if err != nil {
			return nil, err
		}
		out = append(out, md)
	}
	return out, nil
}

func marshalModifier(m Modifier) (modifierData, error) {
	switch mod := m.(type) {
	case *SetAttributeModifier:
		return modifierData{
			Kind:  "set_attribute",
			Attr:  mod.Attr.field(),
			Value: marshalExpr(mod.Value),
		}, nil
	case *SetPositionSphereModifier:
		dim := "surface"
		if mod.Dimension == ShapeVolume {
			dim = "volume"
		}
		return modifierData{
			Kind:      "set_position_sphere",
			Center:    marshalExpr(mod.Center),
			Radius:    marshalExpr(mod.Radius),
			Dimension: dim,
		}, nil
	case *SetVelocitySphereModifier:
		return modifierData{
			Kind:   "set_velocity_sphere",
			Center: marshalExpr(mod.Center),
			Speed:  marshalExpr(mod.Speed),
		}, nil
	case *ConformToSphereModifier:
		return modifierData{
			Kind:               "conform_to_sphere",
			Origin:             marshalExpr(mod.Origin),
			Radius:             marshalExpr(mod.Radius),
			InfluenceDist:      marshalExpr(mod.InfluenceDist),
			AttractionAccel:    marshalExpr(mod.AttractionAccel),
			MaxAttractionSpeed: marshalExpr(mod.MaxAttractionSpeed),
			StickyFactor:       marshalExpr(mod.StickyFactor),
			ShellHalfThickness: marshalExpr(mod.ShellHalfThickness),
		}, nil
	case *KillAabbModifier:
		return modifierData{
			Kind:       "kill_aabb",
			Center:     marshalExpr(mod.Center),
			HalfSize:   marshalExpr(mod.HalfSize),
			KillInside: mod.KillInside,
		}, nil
	case *KillSphereModifier:
		return modifierData{
			Kind:       "kill_sphere",
			Center:     marshalExpr(mod.Center),
			Radius:     marshalExpr(mod.Radius),
			KillInside: mod.KillInside,
		}, nil
	case *SizeOverLifetimeModifier:
		return modifierData{
			Kind:            "size_over_lifetime",
			Gradient:        marshalGradient(mod.Gradient),
			ScreenSpaceSize: mod.ScreenSpaceSize,
		}, nil
	case *ColorOverLifetimeModifier:
		return modifierData{
			Kind:     "color_over_lifetime",
			Gradient: marshalGradient(mod.Gradient),
		}, nil
	}
	return modifierData{}, fmt.Errorf("unknown modifier type %T", m)
}

func unmarshalModifier(md modifierData, module *ExprModule) (Modifier, error) {
	switch md.Kind {
	case "set_attribute":
		attr, err := parseAttribute(md.Attr)
		if err != nil {
			return nil, err
		}
		value, err := unmarshalExpr(md.Value, module)
		if err != nil {
			return nil, err
		}
		return &SetAttributeModifier{Attr: attr, Value: value}, nil
	case "set_position_sphere":
		center, err := unmarshalExpr(md.Center, module)
		if err != nil {
			return nil, err
		}
		radius, err := unmarshalExpr(md.Radius, module)
		if err != nil {
			return nil, err
		}
		dim := ShapeSurface
		if md.Dimension == "volume" {
			dim = ShapeVolume
		}
		return &SetPositionSphereModifier{Center: center, Radius: radius, Dimension: dim}, nil
	case "set_velocity_sphere":
		center, err := unmarshalExpr(md.Center, module)
		if err != nil {
			return nil, err
		}
		speed, err := unmarshalExpr(md.Speed, module)
		if err != nil {
			return nil, err
		}
		return &SetVelocitySphereModifier{Center: center, Speed: speed}, nil
	case "conform_to_sphere":
		mod := &ConformToSphereModifier{}
		var err error
		if mod.Origin, err = unmarshalExpr(md.Origin, module); err != nil {
			return nil, err
		}
		if mod.Radius, err = unmarshalExpr(md.Radius, module); err != nil {
			return nil, err
		}
		if mod.InfluenceDist, err = unmarshalExpr(md.InfluenceDist, module); err != nil {
			return nil, err
		}
		if mod.AttractionAccel, err = unmarshalExpr(md.AttractionAccel, module); err != nil {
			return nil, err
		}
		if mod.MaxAttractionSpeed, err = unmarshalExpr(md.MaxAttractionSpeed, module); err != nil {
			return nil, err
		}
		if md.StickyFactor != nil {
			if mod.StickyFactor, err = unmarshalExpr(md.StickyFactor, module); err != nil {
				return nil, err
			}
		}
		if md.ShellHalfThickness != nil {
			if mod.ShellHalfThickness, err = unmarshalExpr(md.ShellHalfThickness, module); err != nil {
				return nil, err
			}
		}
		return mod, nil
	case "kill_aabb":
		center, err := unmarshalExpr(md.Center, module)
		if err != nil {
			return nil, err
		}
		halfSize, err := unmarshalExpr(md.HalfSize, module)
		if err != nil {
			return nil, err
		}
		return &KillAabbModifier{Center: center, HalfSize: halfSize, KillInside: md.KillInside}, nil
	case "kill_sphere":
		center, err := unmarshalExpr(md.Center, module)
		if err != nil {
			return nil, err
		}
		radius, err := unmarshalExpr(md.Radius, module)
		if err != nil {
			return nil, err
		}
		return &KillSphereModifier{Center: center, Radius: radius, KillInside: md.KillInside}, nil
	case "size_over_lifetime":
		g, err := unmarshalGradient(md.Gradient)
		if err != nil {
			return nil, err
		}
		return &SizeOverLifetimeModifier{Gradient: g, ScreenSpaceSize: md.ScreenSpaceSize}, nil
	case "color_over_lifetime":
		g, err := unmarshalGradient(md.Gradient)
		if err != nil {
			return nil, err
		}
		return &ColorOverLifetimeModifier{Gradient: g}, nil
	}
	return nil, fmt.Errorf("unknown modifier kind %q", md.Kind)
}

func marshalExpr(e Expr) *exprData {
	if e == nil {
		return nil
	}
	switch n := e.(type) {
	case literalExpr:
		return &exprData{Kind: "literal", Type: n.value.Type.String(), Value: valueData(n.value)}
	case propertyExpr:
		return &exprData{Kind: "property", Name: n.name}
	case randExpr:
		return &exprData{Kind: "rand", Type: n.typ.String()}
	case binaryExpr:
		return &exprData{Kind: "binary", Op: n.op.token(), Lhs: marshalExpr(n.lhs), Rhs: marshalExpr(n.rhs)}
	}
	panic(fmt.Sprintf("unknown expression node %T", e))
}

func unmarshalExpr(d *exprData, module *ExprModule) (Expr, error) {
	if d == nil {
		return nil, fmt.Errorf("missing expression in effect preset")
	}
	switch d.Kind {
	case "literal":
		typ, err := parseValueType(d.Type)
		if err != nil {
			return nil, err
		}
		return module.Lit(valueFromData(typ, d.Value)), nil
	case "property":
		return module.Prop(d.Name)
	case "rand":
		typ, err := parseValueType(d.Type)
		if err != nil {
			return nil, err
		}
		return module.Rand(typ), nil
	case "binary":
		op, err := parseBinOp(d.Op)
		if err != nil {
			return nil, err
		}
		lhs, err := unmarshalExpr(d.Lhs, module)
		if err != nil {
			return nil, err
		}
		rhs, err := unmarshalExpr(d.Rhs, module)
		if err != nil {
			return nil, err
		}
		return module.Binary(op, lhs, rhs)
	}
	return nil, fmt.Errorf("unknown expression kind %q", d.Kind)
}

func marshalGradient(g *Gradient) *gradientData {
	out := &gradientData{Type: g.Type().String()}
	for _, k := range g.Keys() {
		out.Keys = append(out.Keys, gradientKeyData{T: k.T, Value: valueData(k.Value)})
	}
	return out
}

func unmarshalGradient(d *gradientData) (*Gradient, error) {
	if d == nil {
		return nil, fmt.Errorf("missing gradient in effect preset")
	}
	typ, err := parseValueType(d.Type)
	if err != nil {
		return nil, err
	}
	g := NewGradient(typ)
	for _, k := range d.Keys {
		if err := g.AddKey(k.T, valueFromData(typ, k.Value)); err != nil {
			return nil, err
		}
	}
	return g, nil
}

func valueData(v Value) []float32 {
	return append([]float32(nil), v.Data[:v.Type.components()]...)
}

func valueFromData(typ ValueType, data []float32) Value {
	v := Value{Type: typ}
	copy(v.Data[:], data)
	return v
}

func parseValueType(s string) (ValueType, error) {
	switch s {
	case "float":
		return TypeFloat, nil
	case "vec2":
		return TypeVec2, nil
	case "vec3":
		return TypeVec3, nil
	case "vec4":
		return TypeVec4, nil
	}
	return 0, fmt.Errorf("unknown value type %q", s)
}

func parseBinOp(s string) (BinOp, error) {
	switch s {
	case "+":
		return OpAdd, nil
	case "-":
		return OpSub, nil
	case "*":
		return OpMul, nil
	case "/":
		return OpDiv, nil
	}
	return 0, fmt.Errorf("unknown binary operator %q", s)
}

func parseAttribute(s string) (Attribute, error) {
	switch s {
	case "position":
		return AttrPosition, nil
	case "velocity":
		return AttrVelocity, nil
	case "age":
		return AttrAge, nil
	case "lifetime":
		return AttrLifetime, nil
	case "size":
		return AttrSize, nil
	case "color":
		return AttrColor, nil
	}
	return 0, fmt.Errorf("unknown attribute %q", s)
}

func parseSpawnMode(s string) (SpawnMode, error) {
	switch s {
	case "once":
		return SpawnOnce, nil
	case "rate":
		return SpawnRate, nil
	}
	return 0, fmt.Errorf("unknown spawn mode %q", s)
}

func spawnModeName(m SpawnMode) string {
	if m == SpawnOnce {
		return "once"
	}
	return "rate"
}
