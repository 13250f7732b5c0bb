package physics

import (
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
)

func TestDistanceConstraintCapturesRestDistance(t *testing.T) {
	a := NewParticle(mgl64.Vec3{0, 0, 0}, 1, 0)
	b := NewParticle(mgl64.Vec3{3, 4, 0}, 1, 0)
	c := NewDistanceConstraint(a, b, 1)
	if c.RestDistance != 5 {
		t.Fatalf("RestDistance = %v, want 5", c.RestDistance)
	}

	b.Position = mgl64.Vec3{6, 8, 0}
	c.Resolve()
	if c.RestDistance != 5 {
		t.Fatalf("RestDistance changed to %v", c.RestDistance)
	}
}

func TestDistanceConstraintResolveEqualMass(t *testing.T) {
	a := NewParticle(mgl64.Vec3{0, 0, 0}, 1, 0)
	b := NewParticle(mgl64.Vec3{1, 0, 0}, 1, 0)
	c := NewDistanceConstraint(a, b, 1)

	b.Position = mgl64.Vec3{3, 0, 0}
	c.Resolve()

	if !vec3AlmostEqual(a.Position, mgl64.Vec3{1, 0, 0}, 1e-12) {
		t.Errorf("a = %v, want {1 0 0}", a.Position)
	}
	if !vec3AlmostEqual(b.Position, mgl64.Vec3{2, 0, 0}, 1e-12) {
		t.Errorf("b = %v, want {2 0 0}", b.Position)
	}
	if s := c.Stretch(); s > 1e-12 {
		t.Errorf("Stretch = %v after a stiff resolve", s)
	}
}

func TestDistanceConstraintMassWeighting(t *testing.T) {
	tests := []struct {
		name     string
		ratio    float64
		minRatio float64
	}{
		{"equal", 1, 0.99},
		{"ratio 5", 5, 4.5},
		{"ratio 30", 30, 20},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			heavy := NewParticle(mgl64.Vec3{0, 0, 0}, tt.ratio, 0)
			light := NewParticle(mgl64.Vec3{1, 0, 0}, 1, 0)
			c := NewDistanceConstraint(heavy, light, 1)

			light.Position = mgl64.Vec3{2, 0, 0}
			heavyStart, lightStart := heavy.Position, light.Position
			c.Resolve()

			heavyMove := heavy.Position.Sub(heavyStart).Len()
			lightMove := light.Position.Sub(lightStart).Len()
			if heavyMove == 0 {
				t.Fatalf("heavy particle did not move at all")
			}
			got := lightMove / heavyMove
			if got < tt.minRatio {
				t.Fatalf("displacement ratio = %v, want > %v", got, tt.minRatio)
			}
			if math.Abs(got-tt.ratio) > 1e-6*tt.ratio {
				t.Fatalf("displacement ratio = %v, want %v", got, tt.ratio)
			}
		})
	}
}

func TestDistanceConstraintStiffness(t *testing.T) {
	a := NewParticle(mgl64.Vec3{0, 0, 0}, 1, 0)
	b := NewParticle(mgl64.Vec3{1, 0, 0}, 1, 0)
	a.Pinned = true
	c := NewDistanceConstraint(a, b, 0.5)

	b.Position = mgl64.Vec3{2, 0, 0}
	c.Resolve()
	if !vec3AlmostEqual(b.Position, mgl64.Vec3{1.5, 0, 0}, 1e-12) {
		t.Fatalf("b = %v, want half the correction {1.5 0 0}", b.Position)
	}
	if a.Position != (mgl64.Vec3{}) {
		t.Fatalf("pinned particle moved to %v", a.Position)
	}
}

func TestDistanceConstraintDegenerateCases(t *testing.T) {
	t.Run("coincident", func(t *testing.T) {
		a := NewParticle(mgl64.Vec3{0, 0, 0}, 1, 0)
		b := NewParticle(mgl64.Vec3{1, 0, 0}, 1, 0)
		c := NewDistanceConstraint(a, b, 1)
		b.Position = a.Position
		c.Resolve()
		if !vecFinite(a.Position) || !vecFinite(b.Position) {
			t.Fatalf("coincident particles produced NaN: %v %v", a.Position, b.Position)
		}
	})
	t.Run("both pinned", func(t *testing.T) {
		a := NewParticle(mgl64.Vec3{0, 0, 0}, 1, 0)
		b := NewParticle(mgl64.Vec3{1, 0, 0}, 1, 0)
		c := NewDistanceConstraint(a, b, 1)
		a.Pinned, b.Pinned = true, true
		b.Position = mgl64.Vec3{5, 0, 0}
		c.Resolve()
		if b.Position != (mgl64.Vec3{5, 0, 0}) || a.Position != (mgl64.Vec3{}) {
			t.Fatalf("pinned pair moved: %v %v", a.Position, b.Position)
		}
	})
	t.Run("invalid stiffness", func(t *testing.T) {
		a := NewParticle(mgl64.Vec3{0, 0, 0}, 1, 0)
		b := NewParticle(mgl64.Vec3{1, 0, 0}, 1, 0)
		for _, s := range []float64{0, -1, 2, math.NaN()} {
			if c := NewDistanceConstraint(a, b, s); c.Stiffness != 1 {
				t.Errorf("stiffness %v -> %v, want 1", s, c.Stiffness)
			}
		}
	})
}
