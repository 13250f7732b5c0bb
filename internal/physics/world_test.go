package physics

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

const frame = 1.0 / 60.0

func signedHeight(t Terrain, p *Particle) float64 {
	h, n := terrainSample(t, p.Position[0], p.Position[2])
	return p.Position.Sub(mgl64.Vec3{p.Position[0], h, p.Position[2]}).Dot(n)
}

// buildChain returns a world holding a vertical chain of n particles spaced 0.3 apart, with
// the top particle at top.
func buildChain(cfg Config, n int, top mgl64.Vec3) (*World, []*Particle) {
	w := NewWorld(cfg)
	ps := make([]*Particle, n)
	for i := range ps {
		ps[i] = w.AddParticle(NewParticle(top.Sub(mgl64.Vec3{0, 0.3 * float64(i), 0}), 1+float64(i%3), 0.05))
		if i > 0 {
			w.AddDistanceConstraint(ps[i-1], ps[i], 1)
		}
		if i > 1 {
			w.AddAngularConstraint(ps[i-2], ps[i-1], ps[i], AngularSpec{Kind: JointBall, SwingMin: -1.2, SwingMax: 1.2, Stiffness: 0.5})
		}
	}
	return w, ps
}

func TestConfigNormalize(t *testing.T) {
	d := DefaultConfig()
	got := Config{
		Gravity:          mgl64.Vec3{0, math.NaN(), 0},
		Friction:         1.5,
		GroundFriction:   -1,
		SolverIterations: 0,
		FixedDeltaTime:   -1,
		MaxSubsteps:      0,
		MaxDisplacement:  math.Inf(1),
	}.Normalize()
	got.SelfCollision = d.SelfCollision
	if got != d {
		t.Fatalf("Normalize = %+v, want %+v", got, d)
	}

	custom := Config{Gravity: mgl64.Vec3{0, 0, -9.81}, Friction: 1, GroundFriction: 0, SolverIterations: 4, FixedDeltaTime: 0.01, MaxSubsteps: 3}
	if n := custom.Normalize(); n != custom {
		t.Fatalf("valid config changed: %+v", n)
	}
}

func TestWorldUpdateRespectsSubstepCap(t *testing.T) {
	w, _ := buildChain(DefaultConfig(), 3, mgl64.Vec3{0, 3, 0})

	if n := w.Update(0.5); n != w.Config().MaxSubsteps {
		t.Fatalf("Update(0.5) ran %d steps, want cap %d", n, w.Config().MaxSubsteps)
	}
	if n := w.Update(frame); n > 2 {
		t.Fatalf("backlog survived the cap: next frame ran %d steps", n)
	}
	if w.Stats().LastSubsteps > 2 {
		t.Fatalf("Stats.LastSubsteps = %d", w.Stats().LastSubsteps)
	}
}

func TestWorldUpdateIgnoresInvalidDelta(t *testing.T) {
	w, ps := buildChain(DefaultConfig(), 2, mgl64.Vec3{0, 3, 0})
	start := ps[1].Position
	for _, dt := range []float64{0, -1, math.NaN(), math.Inf(1)} {
		if n := w.Update(dt); n != 0 {
			t.Errorf("Update(%v) ran %d steps", dt, n)
		}
	}
	if ps[1].Position != start {
		t.Fatalf("particle moved to %v", ps[1].Position)
	}
}

func TestWorldAccumulatesSmallFrames(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FixedDeltaTime = 0.25
	w := NewWorld(cfg)
	total := 0
	for i := 0; i < 4; i++ {
		total += w.Update(0.0625)
	}
	if total != 1 {
		t.Fatalf("four quarter steps ran %d steps, want 1", total)
	}
	if got := w.Stats().SimulatedTime; got != 0.25 {
		t.Fatalf("SimulatedTime = %v, want 0.25", got)
	}
}

func TestWorldNoTunneling(t *testing.T) {
	w := NewWorld(DefaultConfig())
	p := w.AddParticle(NewParticle(mgl64.Vec3{0, 5, 0}, 1, 0.1))
	p.PreviousPosition = mgl64.Vec3{0, 50, 0}

	for i := 0; i < 120; i++ {
		w.Update(frame)
		if p.Position[1] < p.Radius-1e-9 {
			t.Fatalf("frame %d: particle at %v below ground", i, p.Position[1])
		}
	}
}

func TestWorldGroundContactKillsInwardVelocity(t *testing.T) {
	w := NewWorld(DefaultConfig())
	p := w.AddParticle(NewParticle(mgl64.Vec3{0, 2, 0}, 1, 0.1))

	for i := 0; i < 60; i++ {
		w.Update(frame)
	}
	if math.Abs(p.Position[1]-p.Radius) > 1e-6 {
		t.Fatalf("height = %v, want resting at %v", p.Position[1], p.Radius)
	}
	if v := p.Velocity()[1]; math.Abs(v) > 1e-9 {
		t.Fatalf("vertical velocity = %v after resting, want 0", v)
	}
}

func TestWorldGroundFrictionSlowsSliding(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Friction = 1
	w := NewWorld(cfg)
	p := w.AddParticle(NewParticle(mgl64.Vec3{0, 0.1, 0}, 1, 0.1))
	p.PreviousPosition = mgl64.Vec3{-0.05, 0.1, 0}

	w.Step(frame)
	if got, want := p.Velocity()[0], 0.05*cfg.GroundFriction; math.Abs(got-want) > 1e-9 {
		t.Fatalf("tangential velocity = %v, want %v", got, want)
	}
}

func TestWorldSlopedPlane(t *testing.T) {
	w := NewWorld(DefaultConfig())
	plane := SlopedPlane(0.3)
	w.SetTerrain(plane)
	p := w.AddParticle(NewParticle(mgl64.Vec3{0.5, 3, 0.2}, 1, 0.1))

	for i := 0; i < 180; i++ {
		w.Update(frame)
		if d := signedHeight(plane, p); d < p.Radius-1e-6 {
			t.Fatalf("frame %d: signed distance %v below radius", i, d)
		}
	}
}

func TestWorldChainStaysConnected(t *testing.T) {
	w, _ := buildChain(DefaultConfig(), 6, mgl64.Vec3{0, 3, 0})
	w.Particles()[0].Pinned = true
	// Kick the free end sideways so the chain swings.
	w.Particles()[5].PreviousPosition = w.Particles()[5].Position.Sub(mgl64.Vec3{0.2, 0, 0})

	for i := 0; i < 60; i++ {
		w.Update(frame)
	}
	for i, c := range w.DistanceConstraints() {
		if s := c.Stretch(); s > 0.05 {
			t.Errorf("constraint %d stretched by %.1f%% (rest %v)", i, 100*s, c.RestDistance)
		}
	}
}

func TestWorldStaysFiniteUnderRandomForces(t *testing.T) {
	w, ps := buildChain(DefaultConfig(), 8, mgl64.Vec3{0, 2.5, 0})
	rng := rand.New(rand.NewSource(7))

	for i := 0; i < 5*60; i++ {
		for _, p := range ps {
			p.AddForce(mgl64.Vec3{
				rng.Float64()*2000 - 1000,
				rng.Float64()*2000 - 1000,
				rng.Float64()*2000 - 1000,
			})
		}
		w.Update(frame)
	}
	for i, p := range ps {
		if !vecFinite(p.Position) || !vecFinite(p.PreviousPosition) {
			t.Fatalf("particle %d is not finite: %v", i, p.Position)
		}
	}
}

func TestWorldIsDeterministic(t *testing.T) {
	run := func() []mgl64.Vec3 {
		w, ps := buildChain(DefaultConfig(), 5, mgl64.Vec3{0, 2, 0})
		w.SetTerrain(SlopedPlane(0.2))
		ps[4].AddForce(mgl64.Vec3{300, 0, 50})
		for i := 0; i < 90; i++ {
			w.Update(frame)
		}
		out := make([]mgl64.Vec3, len(ps))
		for i, p := range ps {
			out[i] = p.Position
		}
		return out
	}
	a, b := run(), run()
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("particle %d differs between runs: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestWorldSelfCollisionSeparatesUnlinkedParticles(t *testing.T) {
	w := NewWorld(DefaultConfig())
	w.SetGravity(mgl64.Vec3{})
	a := w.AddParticle(NewParticle(mgl64.Vec3{0, 5, 0}, 1, 0.1))
	b := w.AddParticle(NewParticle(mgl64.Vec3{0.05, 5, 0}, 3, 0.1))

	w.Step(frame)
	if d := a.Position.Sub(b.Position).Len(); d < 0.2-1e-9 {
		t.Fatalf("distance = %v, want at least 0.2", d)
	}
	// The lighter particle takes the larger share of the correction.
	if math.Abs(a.Position[0]) <= math.Abs(b.Position[0]-0.05) {
		t.Fatalf("light particle moved %v, heavy moved %v", a.Position[0], b.Position[0]-0.05)
	}
}

func TestWorldSelfCollisionSkipsNeighbors(t *testing.T) {
	w := NewWorld(DefaultConfig())
	w.SetGravity(mgl64.Vec3{})
	a := w.AddParticle(NewParticle(mgl64.Vec3{0, 5, 0}, 1, 0.1))
	b := w.AddParticle(NewParticle(mgl64.Vec3{0.05, 5, 0}, 1, 0.1))
	w.AddDistanceConstraint(a, b, 1)

	if !w.Neighbors(a, b) || !w.Neighbors(b, a) {
		t.Fatalf("distance constraint did not register neighbors")
	}
	w.Step(frame)
	if d := a.Position.Sub(b.Position).Len(); math.Abs(d-0.05) > 1e-9 {
		t.Fatalf("linked particles pushed apart to %v", d)
	}
}

func TestWorldAngularConstraintLinksParentAndChild(t *testing.T) {
	w := NewWorld(DefaultConfig())
	parent := w.AddParticle(NewParticle(mgl64.Vec3{0, 2, 0}, 1, 0.1))
	pivot := w.AddParticle(NewParticle(mgl64.Vec3{0, 1.5, 0}, 1, 0.1))
	child := w.AddParticle(NewParticle(mgl64.Vec3{0, 1, 0}, 1, 0.1))
	w.AddAngularConstraint(parent, pivot, child, AngularSpec{Kind: JointHinge, SwingMax: math.Pi / 2})

	if !w.Neighbors(parent, child) {
		t.Fatalf("angular constraint should link parent and child")
	}
	if w.Neighbors(parent, pivot) {
		t.Fatalf("angular constraint should not link parent and pivot")
	}
}

func TestWorldClear(t *testing.T) {
	w, ps := buildChain(DefaultConfig(), 4, mgl64.Vec3{0, 2, 0})
	w.Update(0.1)
	w.Clear()

	if len(w.Particles()) != 0 || len(w.DistanceConstraints()) != 0 || len(w.AngularConstraints()) != 0 {
		t.Fatalf("Clear left state behind")
	}
	if w.Neighbors(ps[0], ps[1]) {
		t.Fatalf("Clear left neighbor links behind")
	}
	if w.Stats() != (Stats{}) {
		t.Fatalf("Clear left stats behind: %+v", w.Stats())
	}
}

func TestNilTerrainActsAsFlatGround(t *testing.T) {
	h, n := terrainSample(nil, 10, -4)
	if h != 0 || n != up {
		t.Fatalf("nil terrain sample = %v %v", h, n)
	}
}

func TestPlaneHeightAt(t *testing.T) {
	flat := NewPlane(mgl64.Vec3{0, 2, 0}, mgl64.Vec3{0, 0, 0})
	if got := flat.HeightAt(5, 5); got != 2 {
		t.Fatalf("zero-normal plane height = %v, want 2", got)
	}

	slope := SlopedPlane(math.Pi / 4)
	// Tilted about Z: the surface rises by x*tan(angle) toward +X.
	if got := slope.HeightAt(1, 3); math.Abs(got-1) > 1e-9 {
		t.Fatalf("45° slope height at x=1 = %v, want 1", got)
	}
	if n := slope.NormalAt(0, 0); math.Abs(n.Len()-1) > 1e-12 {
		t.Fatalf("normal not unit: %v", n)
	}
}

func TestWorldStaysFiniteUnderHugeForces(t *testing.T) {
	tests := []struct {
		name            string
		maxDisplacement float64
		scale           float64
	}{
		{"bounded steps", 2, 1e160},
		{"bounded steps, 1e200", 2, 1e200},
		{"unbounded steps", 0, 1e160},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.MaxDisplacement = tt.maxDisplacement
			w, ps := buildChain(cfg, 8, mgl64.Vec3{0, 2.5, 0})
			rng := rand.New(rand.NewSource(3))

			for i := 0; i < 60; i++ {
				for _, p := range ps {
					p.AddForce(mgl64.Vec3{
						(rng.Float64()*2 - 1) * tt.scale,
						(rng.Float64()*2 - 1) * tt.scale,
						(rng.Float64()*2 - 1) * tt.scale,
					})
				}
				w.Update(frame)
			}
			for i, p := range ps {
				if !vecFinite(p.Position) || !vecFinite(p.PreviousPosition) {
					t.Fatalf("particle %d is not finite: %v", i, p.Position)
				}
			}
		})
	}
}

func TestWorldNoTunnelingInOneLongUpdate(t *testing.T) {
	tests := []struct {
		name            string
		maxDisplacement float64
	}{
		{"bounded steps", 2},
		{"unbounded steps", 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			cfg.MaxDisplacement = tt.maxDisplacement
			w := NewWorld(cfg)
			p := w.AddParticle(NewParticle(mgl64.Vec3{0, 5, 0}, 1, 0.1))
			p.PreviousPosition = mgl64.Vec3{0, 50, 0}

			w.Update(0.5)
			if p.Position[1] < p.Radius-1e-9 {
				t.Fatalf("particle at %v below ground", p.Position[1])
			}
			if v := p.Velocity()[1]; v < -1e-9 {
				t.Fatalf("particle still moving into the ground: %v", v)
			}
		})
	}
}
