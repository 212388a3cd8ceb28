package ember

import "math"

// SpawnMode selects how a spawner times emission.
type SpawnMode int

const (
	// SpawnOnce emits a whole burst when triggered, then goes idle.
	SpawnOnce SpawnMode = iota
	// SpawnRate emits continuously at a fixed particles-per-second rate.
	SpawnRate
)

// SpawnerSettings is the authored spawner configuration stored on an
// effect asset.
type SpawnerSettings struct {
	Mode SpawnMode
	// Count is particles per burst in Once mode and particles per second
	// in Rate mode.
	Count float32
	// EmitOnStart makes a fresh spawner emit immediately. Turn it off
	// for externally-triggered bursts so nothing fires at creation time.
	EmitOnStart bool
}

// OnceSpawner emits count particles per Reset trigger.
func OnceSpawner(count float32) SpawnerSettings {
	return SpawnerSettings{Mode: SpawnOnce, Count: count, EmitOnStart: true}
}

// RateSpawner emits rate particles per second.
func RateSpawner(rate float32) SpawnerSettings {
	return SpawnerSettings{Mode: SpawnRate, Count: rate, EmitOnStart: true}
}

func (s SpawnerSettings) WithEmitOnStart(emit bool) SpawnerSettings {
	s.EmitOnStart = emit
	return s
}

// Spawner is the per-instance emission state machine. Tick it once per
// simulated frame; Reset triggers a burst (Once) or restarts emission
// (Rate).
type Spawner struct {
	settings    SpawnerSettings
	active      bool
	pending     bool
	accumulator float32
}

func NewSpawner(settings SpawnerSettings) *Spawner {
	return &Spawner{
		settings: settings,
		active:   settings.EmitOnStart,
		pending:  settings.Mode == SpawnOnce && settings.EmitOnStart,
	}
}

func (sp *Spawner) Settings() SpawnerSettings {
	return sp.settings
}

// Active reports whether the spawner is currently emitting (Rate) or has
// a burst armed (Once).
func (sp *Spawner) Active() bool {
	if sp.settings.Mode == SpawnOnce {
		return sp.pending
	}
	return sp.active
}

// SetActive pauses or resumes rate emission without touching the
// accumulator.
func (sp *Spawner) SetActive(active bool) {
	sp.active = active
}

// Reset arms a Once spawner for one burst on the next tick, or restarts
// a Rate spawner from an empty accumulator.
func (sp *Spawner) Reset() {
	switch sp.settings.Mode {
	case SpawnOnce:
		sp.pending = true
	case SpawnRate:
		sp.active = true
		sp.accumulator = 0
	}
}

// Tick advances the spawner by dt seconds and returns how many particles
// to emit this frame. Rate mode accumulates rate*dt and emits the whole
// units, so the long-run emission count tracks floor(rate*elapsed)
// within one particle regardless of tick duration.
func (sp *Spawner) Tick(dt float32) int {
	switch sp.settings.Mode {
	case SpawnOnce:
		if !sp.pending {
			return 0
		}
		sp.pending = false
		return int(math.Round(float64(sp.settings.Count)))
	case SpawnRate:
		if !sp.active {
			return 0
		}
		sp.accumulator += sp.settings.Count * dt
		n := int(sp.accumulator)
		sp.accumulator -= float32(n)
		return n
	}
	return 0
}
