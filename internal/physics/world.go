package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Config holds the solver settings. The YAML tags match the physics section of the engine
// config file.
type Config struct {
	Gravity          mgl64.Vec3 `yaml:"gravity"`
	Friction         float64    `yaml:"friction"`
	GroundFriction   float64    `yaml:"ground_friction"`
	SolverIterations int        `yaml:"solver_iterations"`
	FixedDeltaTime   float64    `yaml:"fixed_delta_time"`
	MaxSubsteps      int        `yaml:"max_substeps"`
	MaxDisplacement  float64    `yaml:"max_displacement"`
	SelfCollision    bool       `yaml:"self_collision"`
}

// DefaultConfig returns Y-up gravity, 60 Hz fixed steps, 20 solver iterations and at most
// 8 substeps per Update.
func DefaultConfig() Config {
	return Config{
		Gravity:          mgl64.Vec3{0, -9.81, 0},
		Friction:         0.99,
		GroundFriction:   0.8,
		SolverIterations: 20,
		FixedDeltaTime:   1.0 / 60.0,
		MaxSubsteps:      8,
		MaxDisplacement:  2.0,
		SelfCollision:    true,
	}
}

// Normalize replaces out-of-range values with the defaults.
func (c Config) Normalize() Config {
	d := DefaultConfig()
	if !vecFinite(c.Gravity) {
		c.Gravity = d.Gravity
	}
	if !isFinite(c.Friction) || c.Friction <= 0 || c.Friction > 1 {
		c.Friction = d.Friction
	}
	if !isFinite(c.GroundFriction) || c.GroundFriction < 0 || c.GroundFriction > 1 {
		c.GroundFriction = d.GroundFriction
	}
	if c.SolverIterations <= 0 {
		c.SolverIterations = d.SolverIterations
	}
	if !isFinite(c.FixedDeltaTime) || c.FixedDeltaTime <= 0 {
		c.FixedDeltaTime = d.FixedDeltaTime
	}
	if c.MaxSubsteps <= 0 {
		c.MaxSubsteps = d.MaxSubsteps
	}
	if !isFinite(c.MaxDisplacement) || c.MaxDisplacement < 0 {
		c.MaxDisplacement = d.MaxDisplacement
	}
	return c
}

// Stats reports what the last Update did.
type Stats struct {
	LastSubsteps  int
	TotalSteps    int
	SimulatedTime float64
}

// World owns a set of particles and constraints and advances them with a fixed-timestep,
// sub-stepped iterative solver. A World is not safe for concurrent use.
type World struct {
	cfg Config

	particles []*Particle
	distances []*DistanceConstraint
	angulars  []*AngularConstraint
	terrain   Terrain

	// neighbors holds, per particle, the particles it is directly constrained to.
	// Self collision skips those pairs.
	neighbors map[*Particle]map[*Particle]struct{}

	// contacts marks particles that touched the terrain during the current step.
	contacts []bool

	accumulator float64
	stats       Stats
}

// NewWorld returns an empty world. cfg is normalised first.
func NewWorld(cfg Config) *World {
	return &World{
		cfg:       cfg.Normalize(),
		neighbors: make(map[*Particle]map[*Particle]struct{}),
	}
}

// Config returns the active solver settings.
func (w *World) Config() Config {
	return w.cfg
}

// SetGravity sets the gravity vector (e.g. {0, -9.81, 0} for Y-up scenes).
func (w *World) SetGravity(g mgl64.Vec3) {
	if vecFinite(g) {
		w.cfg.Gravity = g
	}
}

// SetTerrain attaches the ground. A nil terrain behaves like flat ground at height 0.
func (w *World) SetTerrain(t Terrain) {
	w.terrain = t
}

// Terrain returns the attached terrain, possibly nil.
func (w *World) Terrain() Terrain {
	return w.terrain
}

// AddParticle appends p. Order is preserved and determines solver order.
func (w *World) AddParticle(p *Particle) *Particle {
	w.particles = append(w.particles, p)
	return p
}

// AddDistanceConstraint links a and b at their current distance.
func (w *World) AddDistanceConstraint(a, b *Particle, stiffness float64) *DistanceConstraint {
	c := NewDistanceConstraint(a, b, stiffness)
	w.distances = append(w.distances, c)
	w.link(a, b)
	return c
}

// AddAngularConstraint limits the joint at pivot. Parent and child count as directly
// constrained to each other for self collision.
func (w *World) AddAngularConstraint(parent, pivot, child *Particle, spec AngularSpec) *AngularConstraint {
	c := NewAngularConstraint(parent, pivot, child, spec)
	w.angulars = append(w.angulars, c)
	w.link(parent, child)
	return c
}

func (w *World) link(a, b *Particle) {
	if a == b {
		return
	}
	if w.neighbors[a] == nil {
		w.neighbors[a] = make(map[*Particle]struct{})
	}
	if w.neighbors[b] == nil {
		w.neighbors[b] = make(map[*Particle]struct{})
	}
	w.neighbors[a][b] = struct{}{}
	w.neighbors[b][a] = struct{}{}
}

// Neighbors reports whether a and b are directly constrained.
func (w *World) Neighbors(a, b *Particle) bool {
	_, ok := w.neighbors[a][b]
	return ok
}

// Particles returns the particles in the order they were added.
func (w *World) Particles() []*Particle { return w.particles }

// DistanceConstraints returns the distance constraints in solve order.
func (w *World) DistanceConstraints() []*DistanceConstraint { return w.distances }

// AngularConstraints returns the angular constraints in solve order.
func (w *World) AngularConstraints() []*AngularConstraint { return w.angulars }

// Stats returns counters from the most recent Update.
func (w *World) Stats() Stats {
	return w.stats
}

// Clear drops every particle and constraint and resets the time accumulator.
func (w *World) Clear() {
	w.particles = nil
	w.distances = nil
	w.angulars = nil
	w.neighbors = make(map[*Particle]map[*Particle]struct{})
	w.accumulator = 0
	w.stats = Stats{}
}

// Update accumulates dt and runs fixed steps until the accumulator drains or MaxSubsteps is
// reached. When the cap is hit the remaining time is dropped down to less than one step, so a
// long stall never turns into unbounded catch-up work. It returns the number of steps run.
func (w *World) Update(dt float64) int {
	w.stats.LastSubsteps = 0
	if !isFinite(dt) || dt <= 0 {
		return 0
	}
	h := w.cfg.FixedDeltaTime
	w.accumulator += dt

	n := 0
	for w.accumulator >= h && n < w.cfg.MaxSubsteps {
		w.Step(h)
		w.accumulator -= h
		n++
	}
	if w.accumulator >= h {
		w.accumulator = math.Mod(w.accumulator, h)
	}
	w.stats.LastSubsteps = n
	return n
}

// Step runs exactly one solver step of length h: integrate, then SolverIterations passes over
// distance constraints, angular constraints, terrain and self collision, then a final terrain
// pass that also applies the contact velocity response.
func (w *World) Step(h float64) {
	cfg := w.cfg
	for _, p := range w.particles {
		p.Update(h, cfg.Friction, cfg.Gravity, cfg.MaxDisplacement)
	}
	if cap(w.contacts) < len(w.particles) {
		w.contacts = make([]bool, len(w.particles))
	}
	w.contacts = w.contacts[:len(w.particles)]
	for i := range w.contacts {
		w.contacts[i] = false
	}

	for i := 0; i < cfg.SolverIterations; i++ {
		for _, c := range w.distances {
			c.Resolve()
		}
		for _, c := range w.angulars {
			c.Resolve()
		}
		w.resolveTerrain()
		if cfg.SelfCollision {
			w.resolveSelfCollision()
		}
	}
	w.resolveTerrain()
	for i, p := range w.particles {
		if w.contacts[i] {
			w.contactResponse(p)
		}
	}

	w.stats.TotalSteps++
	w.stats.SimulatedTime += h
}

func (w *World) resolveTerrain() {
	for i, p := range w.particles {
		if p.Pinned {
			continue
		}
		if w.collideTerrain(p) {
			w.contacts[i] = true
		}
	}
}

// collideTerrain pushes p out of the terrain along the surface normal. It reports whether p
// was penetrating.
func (w *World) collideTerrain(p *Particle) bool {
	height, n := terrainSample(w.terrain, p.Position[0], p.Position[2])
	surface := mgl64.Vec3{p.Position[0], height, p.Position[2]}
	signed := p.Position.Sub(surface).Dot(n)
	if signed >= p.Radius {
		return false
	}
	p.Position = p.Position.Add(n.Mul(p.Radius - signed))
	return true
}

// contactResponse rebuilds the implicit velocity of a particle that touched the ground this
// step: the inward normal part is dropped and GroundFriction of the tangential part is kept.
// PreviousPosition is derived from Position so the normal component comes out exactly zero.
func (w *World) contactResponse(p *Particle) {
	_, n := terrainSample(w.terrain, p.Position[0], p.Position[2])
	v := p.Position.Sub(p.PreviousPosition)
	vn := v.Dot(n)
	tangential := v.Sub(n.Mul(vn))
	next := tangential.Mul(w.cfg.GroundFriction)
	if vn > 0 {
		next = next.Add(n.Mul(vn))
	}
	p.PreviousPosition = p.Position.Sub(next)
}

func (w *World) resolveSelfCollision() {
	for i := 0; i < len(w.particles); i++ {
		a := w.particles[i]
		for j := i + 1; j < len(w.particles); j++ {
			b := w.particles[j]
			if w.Neighbors(a, b) {
				continue
			}
			minDist := a.Radius + b.Radius
			if minDist <= 0 {
				continue
			}
			delta := a.Position.Sub(b.Position)
			distSqr := delta.LenSqr()
			if distSqr >= minDist*minDist || !isFinite(distSqr) {
				continue
			}
			invA, invB := a.InverseMass(), b.InverseMass()
			total := invA + invB
			if total == 0 {
				continue
			}
			dist := delta.Len()
			normal := up
			if dist > 0 {
				normal = delta.Mul(1 / dist)
			}
			overlap := minDist - dist
			a.Position = a.Position.Add(normal.Mul(overlap * invA / total))
			b.Position = b.Position.Sub(normal.Mul(overlap * invB / total))
		}
	}
}
