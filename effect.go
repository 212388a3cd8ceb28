package ember

import (
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/gekko3d/ember/shaders"
)

// EffectId identifies an authored effect asset.
type EffectId string

func makeEffectId() EffectId {
	return EffectId(uuid.NewString())
}

// EffectAsset is the top-level effect declaration: capacity, spawner
// configuration, the expression module owning all properties, and the
// ordered modifier lists per stage. Assets compile lazily on first use
// and are immutable afterwards.
type EffectAsset struct {
	id       EffectId
	name     string
	capacity int
	spawner  SpawnerSettings
	module   *ExprModule

	init   []Modifier
	update []Modifier
	render []Modifier

	compiled *CompiledEffect
	err      error
}

func NewEffectAsset(capacity int, spawner SpawnerSettings, module *ExprModule) *EffectAsset {
	return &EffectAsset{
		id:       makeEffectId(),
		name:     "effect",
		capacity: capacity,
		spawner:  spawner,
		module:   module,
	}
}

func (a *EffectAsset) Id() EffectId             { return a.id }
func (a *EffectAsset) Name() string             { return a.name }
func (a *EffectAsset) Capacity() int            { return a.capacity }
func (a *EffectAsset) Spawner() SpawnerSettings { return a.spawner }
func (a *EffectAsset) Module() *ExprModule      { return a.module }

func (a *EffectAsset) WithName(name string) *EffectAsset {
	a.name = name
	return a
}

// Init appends an init-stage modifier. Order is simulation order.
func (a *EffectAsset) Init(m Modifier) *EffectAsset {
	return a.addModifier(StageInit, &a.init, m)
}

// Update appends an update-stage modifier. A later modifier can override
// the effect of an earlier one.
func (a *EffectAsset) Update(m Modifier) *EffectAsset {
	return a.addModifier(StageUpdate, &a.update, m)
}

// Render appends a render-stage modifier.
func (a *EffectAsset) Render(m Modifier) *EffectAsset {
	return a.addModifier(StageRender, &a.render, m)
}

func (a *EffectAsset) addModifier(stage Stage, list *[]Modifier, m Modifier) *EffectAsset {
	if a.compiled != nil {
		a.fail(fmt.Errorf("effect %q: cannot add modifiers after compilation", a.name))
		return a
	}
	if m.Stage() != stage {
		a.fail(fmt.Errorf("effect %q: %s modifier added to %s stage", a.name, m.Stage(), stage))
		return a
	}
	*list = append(*list, m)
	return a
}

// fail records the first authoring error; Compile reports it.
func (a *EffectAsset) fail(err error) {
	if a.err == nil {
		a.err = err
	}
}

// CompiledEffect is the baked output of one effect asset: one complete
// WGSL source per stage plus the property declarations the sources
// reference and their uniform layout.
type CompiledEffect struct {
	Effect   EffectId
	Name     string
	Capacity int

	InitSource   string
	UpdateSource string
	RenderSource string

	// Properties holds the referenced declarations in module
	// registration order; Layout is their uniform block layout.
	Properties []PropertyDecl
	Layout     PropertyLayout
}

// Compile bakes the asset into per-stage WGSL source. The output is
// deterministic: the same asset state always produces byte-identical
// text, which is what makes variant-cache hits possible. The first
// modifier error aborts the whole compilation; no partial source is
// returned.
func (a *EffectAsset) Compile() (*CompiledEffect, error) {
	if a.err != nil {
		return nil, a.err
	}
	if a.compiled != nil {
		return a.compiled, nil
	}

	refs := newPropertyCollector()
	initCode, err := a.compileStage(StageInit, a.init, refs)
	if err != nil {
		return nil, err
	}
	updateCode, err := a.compileStage(StageUpdate, a.update, refs)
	if err != nil {
		return nil, err
	}
	renderCode, err := a.compileStage(StageRender, a.render, refs)
	if err != nil {
		return nil, err
	}

	// Keep declarations in registration order so reference order inside
	// expressions cannot change the generated struct.
	var decls []PropertyDecl
	for _, d := range a.module.Properties() {
		if _, ok := refs.seen[d.Name]; ok {
			decls = append(decls, d)
		}
	}
	layout := buildPropertyLayout(decls)

	binding := ""
	if len(decls) > 0 {
		binding = layout.wgslStruct() + "@group(0) @binding(2) var<uniform> properties: Properties;"
	}

	c := &CompiledEffect{
		Effect:       a.id,
		Name:         a.name,
		Capacity:     a.capacity,
		InitSource:   bakeTemplate(shaders.ParticlesInitWGSL, binding, "{{INIT_CODE}}", initCode),
		UpdateSource: bakeTemplate(shaders.ParticlesUpdateWGSL, binding, "{{UPDATE_CODE}}", updateCode),
		RenderSource: bakeTemplate(shaders.ParticlesRenderWGSL, binding, "{{RENDER_CODE}}", renderCode),
		Properties:   decls,
		Layout:       layout,
	}
	a.compiled = c
	return c, nil
}

// compileStage concatenates modifier fragments in list order. Each
// modifier compiles with its own context so locals cannot collide, and
// every referenced property is recorded once in refs.
func (a *EffectAsset) compileStage(stage Stage, mods []Modifier, refs *propertyCollector) (string, error) {
	var sb strings.Builder
	for slot, m := range mods {
		ctx := &CompileContext{stage: stage, slot: slot, props: newPropertyCollector()}
		frag, err := m.Compile(ctx)
		if err != nil {
			return "", fmt.Errorf("effect %q: %s modifier %d: %w", a.name, stage, slot, err)
		}
		for _, name := range frag.Properties {
			if _, ok := a.module.lookupProperty(name); !ok {
				return "", fmt.Errorf("effect %q: %s modifier %d: %w: %q",
					a.name, stage, slot, ErrUndeclaredProperty, name)
			}
			refs.add(name)
		}
		sb.WriteString(frag.Code)
	}
	return sb.String(), nil
}

func bakeTemplate(template, propertyBinding, codeSlot, code string) string {
	out := strings.ReplaceAll(template, "{{PROPERTY_BINDING}}", propertyBinding)
	out = strings.ReplaceAll(out, codeSlot, code)
	return out
}
