package sim

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"ragdoll-engine/internal/physics"
	"ragdoll-engine/internal/ragdoll"
)

// HeadlessFrame is the frame time used when running without a window.
const HeadlessFrame = 1.0 / 60.0

// Summary describes the ragdoll after a headless run.
type Summary struct {
	Seconds float64
	Steps   int
	State   ragdoll.State
	Hips    mgl64.Vec3
	// MaxStretch is the largest relative length error over all distance constraints.
	MaxStretch float64
	// MinClearance is the smallest gap between a particle surface and the terrain. Negative
	// values mean a particle sank into the ground.
	MinClearance float64
	Finite       bool
}

func (s Summary) String() string {
	return fmt.Sprintf("%.2fs %d steps mode=%s balance=%.2f hips=(%.3f %.3f %.3f) stretch=%.2f%% clearance=%.4f finite=%v",
		s.Seconds, s.Steps, s.State.Mode, s.State.Balance, s.Hips[0], s.Hips[1], s.Hips[2],
		100*s.MaxStretch, s.MinClearance, s.Finite)
}

// RunHeadless applies impact to the hips (skipped when zero) and simulates for the given number of
// seconds in fixed frames.
func (s *Sim) RunHeadless(seconds float64, impact mgl64.Vec3) Summary {
	if impact != (mgl64.Vec3{}) {
		s.Controller.ApplyImpact(impact, nil)
	} else {
		s.Controller.SetRagdollMode(true)
	}
	frames := int(math.Ceil(seconds / HeadlessFrame))
	for i := 0; i < frames; i++ {
		s.Update(HeadlessFrame)
	}
	sum := s.Summarize()
	sum.Seconds = float64(frames) * HeadlessFrame
	s.Log.Infof("headless: %s", sum)
	return sum
}

// Summarize measures the current state of the ragdoll.
func (s *Sim) Summarize() Summary {
	w := s.Controller.World()
	sum := Summary{
		Steps:        w.Stats().TotalSteps,
		State:        s.Controller.State(),
		Hips:         s.Focus(),
		MinClearance: math.Inf(1),
		Finite:       true,
	}
	for _, c := range w.DistanceConstraints() {
		sum.MaxStretch = max(sum.MaxStretch, c.Stretch())
	}
	for _, p := range w.Particles() {
		for _, v := range p.Position {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				sum.Finite = false
			}
		}
		sum.MinClearance = min(sum.MinClearance, clearance(s.Terrain, p))
	}
	if math.IsInf(sum.MinClearance, 1) {
		sum.MinClearance = 0
	}
	return sum
}

// clearance is the signed distance from the particle surface to the terrain along its normal.
func clearance(t physics.Terrain, p *physics.Particle) float64 {
	x, z := p.Position[0], p.Position[2]
	n := mgl64.Vec3{0, 1, 0}
	if nt, ok := t.(physics.NormalTerrain); ok {
		n = nt.NormalAt(x, z).Normalize()
	}
	surface := mgl64.Vec3{x, t.HeightAt(x, z), z}
	return p.Position.Sub(surface).Dot(n) - p.Radius
}
