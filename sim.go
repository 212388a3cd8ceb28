package ember

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/go-gl/mathgl/mgl32"
)

// Particle is one live particle of the CPU reference simulator.
type Particle struct {
	Position mgl32.Vec3
	Velocity mgl32.Vec3
	Age      float32
	Lifetime float32
	Size     float32
	Color    mgl32.Vec4
}

// Sim executes an effect's modifier pipeline on the CPU with the same
// semantics as the generated WGSL. It backs headless tests and serves as
// a fallback when no GPU device is around. Not meant to scale: the GPU
// path owns large particle counts.
type Sim struct {
	asset   *EffectAsset
	spawner *Spawner
	env     *evalEnv

	particles []Particle
	alive     int
}

// NewSim builds a simulator for the asset. Compilation runs first so a
// bad asset fails here exactly like it would on the GPU path. The seed
// fixes the random sequence for reproducible tests.
func NewSim(asset *EffectAsset, seed int64) (*Sim, error) {
	compiled, err := asset.Compile()
	if err != nil {
		return nil, err
	}
	return &Sim{
		asset:   asset,
		spawner: NewSpawner(asset.Spawner()),
		env: &evalEnv{
			props: NewProperties(compiled.Properties, compiled.Layout),
			rng:   rand.New(rand.NewSource(seed)),
		},
		particles: make([]Particle, asset.Capacity()),
	}, nil
}

func (s *Sim) Spawner() *Spawner {
	return s.spawner
}

// Properties are the simulator's runtime bindings, mutable between
// steps like a GPU instance's.
func (s *Sim) Properties() *Properties {
	return s.env.props
}

func (s *Sim) Alive() int {
	return s.alive
}

func (s *Sim) Particle(i int) Particle {
	if i < 0 || i >= s.alive {
		panic(fmt.Sprintf("particle index %d out of range (%d alive)", i, s.alive))
	}
	return s.particles[i]
}

// SpawnAt places one particle directly, bypassing the spawner and init
// modifiers. Test hook for probing update modifiers in isolation.
func (s *Sim) SpawnAt(pos, vel mgl32.Vec3, lifetime float32) int {
	if s.alive >= len(s.particles) {
		panic("simulator capacity exhausted")
	}
	idx := s.alive
	s.particles[idx] = Particle{Position: pos, Velocity: vel, Lifetime: lifetime, Size: 1, Color: mgl32.Vec4{1, 1, 1, 1}}
	s.alive++
	return idx
}

// Step advances the simulation one tick: spawn, run update modifiers,
// integrate, expire, then sample render modifiers into size/color.
func (s *Sim) Step(dt float32) {
	spawn := s.spawner.Tick(dt)
	if room := len(s.particles) - s.alive; spawn > room {
		spawn = room
	}
	for n := 0; n < spawn; n++ {
		idx := s.alive
		s.alive++
		p := Particle{Lifetime: 1, Size: 1, Color: mgl32.Vec4{1, 1, 1, 1}}
		for _, m := range s.asset.init {
			if im, ok := m.(InitModifier); ok {
				im.ApplyInit(&p, s.env)
			}
		}
		s.particles[idx] = p
	}

	i := 0
	for i < s.alive {
		p := &s.particles[i]
		for _, m := range s.asset.update {
			if um, ok := m.(UpdateModifier); ok {
				um.ApplyUpdate(p, dt, s.env)
			}
		}
		p.Position = p.Position.Add(p.Velocity.Mul(dt))
		p.Age += dt

		if p.Age >= p.Lifetime {
			s.killAt(i)
			continue
		}

		t := mgl32.Clamp(p.Age/p.Lifetime, 0, 1)
		for _, m := range s.asset.render {
			if rm, ok := m.(RenderModifier); ok {
				rm.ApplyRender(p, t)
			}
		}
		i++
	}
}

// killAt swap-removes one particle, keeping the live prefix dense.
func (s *Sim) killAt(i int) {
	last := s.alive - 1
	s.particles[i] = s.particles[last]
	s.alive--
}

func randUnitVec3(rng *rand.Rand) mgl32.Vec3 {
	z := rng.Float32()*2 - 1
	phi := rng.Float32() * 2 * float32(math.Pi)
	r := float32(math.Sqrt(math.Max(0, float64(1-z*z))))
	return mgl32.Vec3{
		r * float32(math.Cos(float64(phi))),
		r * float32(math.Sin(float64(phi))),
		z,
	}
}
