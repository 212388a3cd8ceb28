package ember

import (
	"testing"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// conformAsset builds a single-modifier effect around one conform-to-
// sphere force so its behavior can be probed in isolation.
func conformAsset(t *testing.T, accel, maxSpeed float32, sticky bool) *EffectAsset {
	t.Helper()
	m := NewExprModule()
	mod := &ConformToSphereModifier{
		Origin:             m.LitVec3(mgl32.Vec3{}),
		Radius:             m.LitFloat(1),
		InfluenceDist:      m.LitFloat(100),
		AttractionAccel:    m.LitFloat(accel),
		MaxAttractionSpeed: m.LitFloat(maxSpeed),
	}
	if sticky {
		mod.StickyFactor = m.LitFloat(5)
		mod.ShellHalfThickness = m.LitFloat(0.2)
	}
	return NewEffectAsset(16, OnceSpawner(0).WithEmitOnStart(false), m).Update(mod)
}

func TestConformToSphereAttracts(t *testing.T) {
	sim, err := NewSim(conformAsset(t, 10, 100, false), 1)
	require.NoError(t, err)

	start := mgl32.Vec3{3, 0, 0}
	sim.SpawnAt(start, mgl32.Vec3{}, 10)
	sim.Step(0.1)

	got := sim.Particle(0).Position
	assert.Less(t, got.Len(), start.Len(), "positive acceleration pulls the particle toward the origin")
}

func TestConformToSphereRepulses(t *testing.T) {
	sim, err := NewSim(conformAsset(t, -10, 100, false), 1)
	require.NoError(t, err)

	start := mgl32.Vec3{3, 0, 0}
	sim.SpawnAt(start, mgl32.Vec3{}, 10)
	sim.Step(0.1)

	got := sim.Particle(0).Position
	assert.Greater(t, got.Len(), start.Len(), "negative acceleration pushes the particle away")
}

func TestConformToSphereClampsAttractionSpeed(t *testing.T) {
	const maxSpeed = 0.5
	sim, err := NewSim(conformAsset(t, 1000, maxSpeed, false), 1)
	require.NoError(t, err)

	sim.SpawnAt(mgl32.Vec3{3, 0, 0}, mgl32.Vec3{}, 10)
	sim.Step(0.1)

	p := sim.Particle(0)
	assert.InDelta(t, maxSpeed, p.Velocity.Len(), 1e-4, "radial speed is clamped")
	assert.InDelta(t, 3-maxSpeed*0.1, p.Position.Len(), 1e-4)
}

func TestConformToSphereStickiness(t *testing.T) {
	sim, err := NewSim(conformAsset(t, 0, 100, true), 1)
	require.NoError(t, err)

	// Inside the shell around the surface (radius 1, half thickness
	// 0.2) with tangential velocity; the damping factor 5 over dt 0.1
	// halves it.
	sim.SpawnAt(mgl32.Vec3{1.1, 0, 0}, mgl32.Vec3{0, 1, 0}, 10)
	sim.Step(0.1)

	assert.InDelta(t, 0.5, sim.Particle(0).Velocity.Y(), 1e-4)
}

func TestConformToSphereOutsideInfluence(t *testing.T) {
	m := NewExprModule()
	asset := NewEffectAsset(16, OnceSpawner(0).WithEmitOnStart(false), m).
		Update(&ConformToSphereModifier{
			Origin:             m.LitVec3(mgl32.Vec3{}),
			Radius:             m.LitFloat(1),
			InfluenceDist:      m.LitFloat(2),
			AttractionAccel:    m.LitFloat(100),
			MaxAttractionSpeed: m.LitFloat(100),
		})
	sim, err := NewSim(asset, 1)
	require.NoError(t, err)

	sim.SpawnAt(mgl32.Vec3{5, 0, 0}, mgl32.Vec3{}, 10)
	sim.Step(0.1)

	assert.Equal(t, mgl32.Vec3{}, sim.Particle(0).Velocity, "no force beyond the influence distance")
}

func killSphereAsset(t *testing.T, killInside bool) *EffectAsset {
	t.Helper()
	m := NewExprModule()
	return NewEffectAsset(16, OnceSpawner(0).WithEmitOnStart(false), m).
		Update(NewKillSphereModifier(m.LitVec3(mgl32.Vec3{1, 0, 0}), m.LitFloat(2)).WithKillInside(killInside))
}

func TestKillSphereKillInside(t *testing.T) {
	sim, err := NewSim(killSphereAsset(t, true), 1)
	require.NoError(t, err)

	sim.SpawnAt(mgl32.Vec3{1.5, 0, 0}, mgl32.Vec3{}, 10) // strictly inside
	sim.SpawnAt(mgl32.Vec3{5, 0, 0}, mgl32.Vec3{}, 10)   // outside
	sim.Step(0.01)

	require.Equal(t, 1, sim.Alive())
	assert.InDelta(t, 5, sim.Particle(0).Position.X(), 1e-3, "only the outside particle survives")
}

func TestKillSphereKillOutside(t *testing.T) {
	sim, err := NewSim(killSphereAsset(t, false), 1)
	require.NoError(t, err)

	sim.SpawnAt(mgl32.Vec3{1.5, 0, 0}, mgl32.Vec3{}, 10)
	sim.SpawnAt(mgl32.Vec3{5, 0, 0}, mgl32.Vec3{}, 10)
	sim.Step(0.01)

	require.Equal(t, 1, sim.Alive())
	assert.InDelta(t, 1.5, sim.Particle(0).Position.X(), 1e-3, "only the inside particle survives")
}

func TestKillAabbConfines(t *testing.T) {
	m := NewExprModule()
	asset := NewEffectAsset(16, OnceSpawner(0).WithEmitOnStart(false), m).
		Update(NewKillAabbModifier(m.LitVec3(mgl32.Vec3{}), m.LitVec3(mgl32.Vec3{3, 2, 3})))
	sim, err := NewSim(asset, 1)
	require.NoError(t, err)

	sim.SpawnAt(mgl32.Vec3{0, 1, 0}, mgl32.Vec3{}, 10)  // inside the allow box
	sim.SpawnAt(mgl32.Vec3{0, 5, 0}, mgl32.Vec3{}, 10)  // escaped above
	sim.SpawnAt(mgl32.Vec3{-4, 0, 0}, mgl32.Vec3{}, 10) // escaped left
	sim.Step(0.01)

	require.Equal(t, 1, sim.Alive())
	assert.InDelta(t, 1, sim.Particle(0).Position.Y(), 1e-3)
}

func TestInitModifiersSampleSphere(t *testing.T) {
	m := NewExprModule()
	center := mgl32.Vec3{1, 0, 0}
	asset := NewEffectAsset(64, OnceSpawner(32), m).
		Init(&SetPositionSphereModifier{
			Center:    m.LitVec3(center),
			Radius:    m.LitFloat(2),
			Dimension: ShapeSurface,
		}).
		Init(&SetVelocitySphereModifier{Center: m.LitVec3(center), Speed: m.LitFloat(3)}).
		Init(NewSetAttributeModifier(AttrLifetime, m.LitFloat(10)))
	sim, err := NewSim(asset, 42)
	require.NoError(t, err)

	sim.Step(0.016)
	require.Equal(t, 32, sim.Alive())

	for i := 0; i < sim.Alive(); i++ {
		p := sim.Particle(i)
		radial := p.Position.Sub(center)
		// Position integration moved the particle off the surface by
		// one tick of radial velocity.
		assert.InDelta(t, 2+3*0.016, radial.Len(), 1e-3, "spawned on the sphere surface")
		assert.InDelta(t, 3, p.Velocity.Len(), 1e-3, "radial speed from the expression")
		assert.InDelta(t, 1, radial.Normalize().Dot(p.Velocity.Normalize()), 1e-3, "velocity points away from the center")
	}
}

func TestRenderModifiersDriveSizeAndColor(t *testing.T) {
	m := NewExprModule()
	gradient := NewGradient(TypeVec4)
	require.NoError(t, gradient.AddKey(0, Vec4Value(mgl32.Vec4{1, 1, 1, 1})))
	require.NoError(t, gradient.AddKey(1, Vec4Value(mgl32.Vec4{1, 1, 1, 0})))

	asset := NewEffectAsset(16, OnceSpawner(0).WithEmitOnStart(false), m).
		Render(&SizeOverLifetimeModifier{Gradient: ConstantGradient(FloatValue(0.05))}).
		Render(NewColorOverLifetimeModifier(gradient))
	sim, err := NewSim(asset, 1)
	require.NoError(t, err)

	sim.SpawnAt(mgl32.Vec3{}, mgl32.Vec3{}, 1)
	sim.Step(0.5)

	p := sim.Particle(0)
	assert.InDelta(t, 0.05, p.Size, 1e-6)
	assert.InDelta(t, 0.5, p.Color.W(), 1e-6, "alpha fades with normalized age")
}

func TestSimPropertyDrivenForce(t *testing.T) {
	m := NewExprModule()
	accel, err := m.AddProperty("accel", FloatValue(10))
	require.NoError(t, err)
	asset := NewEffectAsset(16, OnceSpawner(0).WithEmitOnStart(false), m).
		Update(&ConformToSphereModifier{
			Origin:             m.LitVec3(mgl32.Vec3{}),
			Radius:             m.LitFloat(1),
			InfluenceDist:      m.LitFloat(100),
			AttractionAccel:    m.PropOf(accel),
			MaxAttractionSpeed: m.LitFloat(100),
		})
	sim, err := NewSim(asset, 1)
	require.NoError(t, err)

	// Flip the property to repulsion at runtime; no recompilation.
	require.NoError(t, sim.Properties().Set("accel", FloatValue(-10)))

	start := mgl32.Vec3{3, 0, 0}
	sim.SpawnAt(start, mgl32.Vec3{}, 10)
	sim.Step(0.1)

	assert.Greater(t, sim.Particle(0).Position.Len(), start.Len())
}

func TestSimExpiresParticles(t *testing.T) {
	m := NewExprModule()
	asset := NewEffectAsset(16, OnceSpawner(0).WithEmitOnStart(false), m)
	sim, err := NewSim(asset, 1)
	require.NoError(t, err)

	sim.SpawnAt(mgl32.Vec3{}, mgl32.Vec3{}, 0.05)
	sim.Step(0.016)
	assert.Equal(t, 1, sim.Alive())
	sim.Step(0.016)
	sim.Step(0.016)
	sim.Step(0.016)
	assert.Equal(t, 0, sim.Alive(), "particles die when age reaches lifetime")
}
