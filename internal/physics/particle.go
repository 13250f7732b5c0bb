package physics

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// Particle is a point mass integrated with position-based (Verlet) dynamics.
// Velocity is never stored; it is inferred from Position - PreviousPosition, so any
// constraint that moves Position also changes the velocity seen by the next step.
type Particle struct {
	Position         mgl64.Vec3
	PreviousPosition mgl64.Vec3
	Mass             float64
	Radius           float64
	Pinned           bool

	force mgl64.Vec3
}

// NewParticle returns a particle at rest at pos. Non-positive mass becomes 1 and a negative
// radius becomes 0, so every particle has a usable inverse mass.
func NewParticle(pos mgl64.Vec3, mass, radius float64) *Particle {
	if mass <= 0 || !isFinite(mass) {
		mass = 1
	}
	if radius < 0 || !isFinite(radius) {
		radius = 0
	}
	return &Particle{
		Position:         pos,
		PreviousPosition: pos,
		Mass:             mass,
		Radius:           radius,
	}
}

// Update advances the particle by dt. friction scales the carried-over velocity (1 = no damping).
// maxDisplacement, when positive, bounds the whole step, carried velocity and acceleration
// together.
func (p *Particle) Update(dt, friction float64, gravity mgl64.Vec3, maxDisplacement float64) {
	if p.Pinned {
		p.force = mgl64.Vec3{}
		return
	}
	velocity := p.Position.Sub(p.PreviousPosition).Mul(friction)
	acceleration := gravity.Add(p.force.Mul(1 / p.Mass))
	p.force = mgl64.Vec3{}

	step := velocity.Add(acceleration.Mul(dt * dt))
	if maxDisplacement > 0 {
		step = clampLength(step, maxDisplacement)
	}
	last := p.Position
	next := p.Position.Add(step)
	if !vecFinite(next) {
		// Roll back instead of propagating Inf/NaN into the constraints.
		p.Position = last
		p.PreviousPosition = last
		return
	}
	p.PreviousPosition = last
	p.Position = next
}

// clampLength scales v down to length max. The length is taken after dividing by the largest
// component, so huge finite vectors do not overflow.
func clampLength(v mgl64.Vec3, max float64) mgl64.Vec3 {
	m := math.Max(math.Abs(v[0]), math.Max(math.Abs(v[1]), math.Abs(v[2])))
	if m == 0 || !isFinite(m) {
		return v
	}
	unit := v.Mul(1 / m)
	if unit.Len()*m <= max {
		return v
	}
	return unit.Normalize().Mul(max)
}

// AddForce accumulates a force for the next Update. Pinned particles and non-finite
// forces are ignored.
func (p *Particle) AddForce(f mgl64.Vec3) {
	if p.Pinned || !vecFinite(f) {
		return
	}
	p.force = p.force.Add(f)
}

// Force returns the force accumulated since the last Update.
func (p *Particle) Force() mgl64.Vec3 {
	return p.force
}

// SetPosition hard-resets the particle to pos with zero velocity.
func (p *Particle) SetPosition(pos mgl64.Vec3) {
	p.Position = pos
	p.PreviousPosition = pos
}

// Velocity returns the implicit per-step velocity.
func (p *Particle) Velocity() mgl64.Vec3 {
	return p.Position.Sub(p.PreviousPosition)
}

// InverseMass is 0 for pinned particles.
func (p *Particle) InverseMass() float64 {
	if p.Pinned {
		return 0
	}
	return 1 / p.Mass
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

func vecFinite(v mgl64.Vec3) bool {
	return isFinite(v[0]) && isFinite(v[1]) && isFinite(v[2])
}
