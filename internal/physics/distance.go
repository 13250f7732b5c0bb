package physics

// DistanceConstraint keeps two particles at the distance they had when the constraint was
// created. It models a rigid bone between two joints.
type DistanceConstraint struct {
	A, B         *Particle
	RestDistance float64
	Stiffness    float64
}

// NewDistanceConstraint captures the current distance between a and b as the rest distance.
// Stiffness outside (0,1] falls back to 1.
func NewDistanceConstraint(a, b *Particle, stiffness float64) *DistanceConstraint {
	return &DistanceConstraint{
		A:            a,
		B:            b,
		RestDistance: a.Position.Sub(b.Position).Len(),
		Stiffness:    clampStiffness(stiffness),
	}
}

// Resolve moves both particles toward the rest distance. The correction is split in proportion
// to inverse mass, so the lighter particle moves further.
func (c *DistanceConstraint) Resolve() {
	delta := c.A.Position.Sub(c.B.Position)
	dist := delta.Len()
	if dist == 0 || !isFinite(dist) {
		return
	}
	invA := c.A.InverseMass()
	invB := c.B.InverseMass()
	total := invA + invB
	if total == 0 {
		return
	}
	diff := (dist - c.RestDistance) / dist
	scalar := diff * c.Stiffness

	c.A.Position = c.A.Position.Sub(delta.Mul(scalar * invA / total))
	c.B.Position = c.B.Position.Add(delta.Mul(scalar * invB / total))
}

// CurrentDistance returns the distance between the two particles.
func (c *DistanceConstraint) CurrentDistance() float64 {
	return c.A.Position.Sub(c.B.Position).Len()
}

// Stretch returns |dist-rest|/rest, or 0 for a zero rest distance.
func (c *DistanceConstraint) Stretch() float64 {
	if c.RestDistance == 0 {
		return 0
	}
	d := c.CurrentDistance() - c.RestDistance
	if d < 0 {
		d = -d
	}
	return d / c.RestDistance
}

func clampStiffness(s float64) float64 {
	if !isFinite(s) || s <= 0 || s > 1 {
		return 1
	}
	return s
}
