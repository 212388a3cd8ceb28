package ember

import "fmt"

// InstanceHandle addresses one spawned effect instance in a World.
// Generational so a recycled slot invalidates stale handles.
type InstanceHandle struct {
	index      uint32
	generation uint32
}

// EffectInstance is one live occurrence of an effect asset. Instances of
// the same asset share the compiled shader variants but own independent
// spawner state and property bindings.
type EffectInstance struct {
	Asset    *EffectAsset
	Compiled *CompiledEffect

	InitShader   *Shader
	UpdateShader *Shader
	RenderShader *Shader

	Spawner    *Spawner
	Properties *Properties
}

// DispatchFn is the host hook a World calls once per instance per tick:
// how many particles to emit this frame, plus the packed property block
// to upload before dispatching the compiled stages.
type DispatchFn func(inst *EffectInstance, emit int, propertyData []byte)

type worldSlot struct {
	generation uint32
	live       bool
	inst       *EffectInstance
}

// World owns effect instances and drives the per-frame update loop:
// spawner tick, property pack, dispatch. It holds a reference to the
// process-wide shader cache but not to any GPU state of its own.
type World struct {
	cache    *ShaderCache
	log      Logger
	slots    []worldSlot
	free     []uint32
	dispatch DispatchFn
}

func NewWorld(cache *ShaderCache, log Logger) *World {
	if log == nil {
		log = NewNopLogger()
	}
	return &World{cache: cache, log: log}
}

// SetDispatch installs the host's per-instance dispatch hook.
func (w *World) SetDispatch(fn DispatchFn) {
	w.dispatch = fn
}

// Spawn compiles the asset (cached on the asset after the first call),
// resolves its shader variants through the cache and creates a live
// instance. A compile failure is fatal to this spawn only.
func (w *World) Spawn(asset *EffectAsset) (InstanceHandle, error) {
	compiled, err := asset.Compile()
	if err != nil {
		w.log.Errorf("effect %q failed to compile: %v", asset.Name(), err)
		return InstanceHandle{}, err
	}

	initShader, err := w.cache.GetOrInsert(compiled.Name+"_init", compiled.InitSource)
	if err != nil {
		return InstanceHandle{}, err
	}
	updateShader, err := w.cache.GetOrInsert(compiled.Name+"_update", compiled.UpdateSource)
	if err != nil {
		return InstanceHandle{}, err
	}
	renderShader, err := w.cache.GetOrInsert(compiled.Name+"_render", compiled.RenderSource)
	if err != nil {
		return InstanceHandle{}, err
	}

	inst := &EffectInstance{
		Asset:        asset,
		Compiled:     compiled,
		InitShader:   initShader,
		UpdateShader: updateShader,
		RenderShader: renderShader,
		Spawner:      NewSpawner(asset.Spawner()),
		Properties:   NewProperties(compiled.Properties, compiled.Layout),
	}

	var index uint32
	if n := len(w.free); n > 0 {
		index = w.free[n-1]
		w.free = w.free[:n-1]
	} else {
		w.slots = append(w.slots, worldSlot{})
		index = uint32(len(w.slots) - 1)
	}
	slot := &w.slots[index]
	slot.live = true
	slot.inst = inst
	return InstanceHandle{index: index, generation: slot.generation}, nil
}

// Get resolves a handle, reporting false for stale or despawned ones.
func (w *World) Get(h InstanceHandle) (*EffectInstance, bool) {
	if int(h.index) >= len(w.slots) {
		return nil, false
	}
	slot := &w.slots[h.index]
	if !slot.live || slot.generation != h.generation {
		return nil, false
	}
	return slot.inst, true
}

// Despawn removes an instance. Its slot is recycled with a bumped
// generation; the cached shaders stay for future instances.
func (w *World) Despawn(h InstanceHandle) bool {
	if _, ok := w.Get(h); !ok {
		return false
	}
	slot := &w.slots[h.index]
	slot.live = false
	slot.inst = nil
	slot.generation++
	w.free = append(w.free, h.index)
	return true
}

// SetProperty updates one property binding on a live instance.
func (w *World) SetProperty(h InstanceHandle, name string, v Value) error {
	inst, ok := w.Get(h)
	if !ok {
		return fmt.Errorf("stale effect instance handle")
	}
	return inst.Properties.Set(name, v)
}

// ResetSpawner triggers the instance's spawner, e.g. to fire a one-shot
// burst on user input.
func (w *World) ResetSpawner(h InstanceHandle) error {
	inst, ok := w.Get(h)
	if !ok {
		return fmt.Errorf("stale effect instance handle")
	}
	inst.Spawner.Reset()
	return nil
}

// Step advances every live instance by dt seconds: spawner tick first,
// then property pack, then the host dispatch hook.
func (w *World) Step(dt float32) {
	for i := range w.slots {
		slot := &w.slots[i]
		if !slot.live {
			continue
		}
		inst := slot.inst
		emit := inst.Spawner.Tick(dt)
		if emit > inst.Compiled.Capacity {
			emit = inst.Compiled.Capacity
		}
		if w.dispatch != nil {
			w.dispatch(inst, emit, inst.Properties.Pack())
		}
	}
}
