package debug

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl64"

	"ragdoll-engine/internal/physics"
	"ragdoll-engine/internal/primitives"
	"ragdoll-engine/internal/ragdoll"
)

var (
	particleColor  = rl.NewColor(90, 200, 250, 255)
	pinnedColor    = rl.NewColor(250, 120, 90, 255)
	distanceColor  = rl.NewColor(230, 230, 230, 255)
	stretchedColor = rl.NewColor(250, 70, 70, 255)
	hingeColor     = rl.NewColor(250, 200, 60, 255)
	ballColor      = rl.NewColor(120, 250, 120, 255)
	impactColor    = rl.NewColor(255, 60, 200, 255)
	bodyColor      = rl.NewColor(200, 185, 165, 255)
)

// stretchWarn is the relative stretch above which a distance constraint is drawn red.
const stretchWarn = 0.05

// impactArrowScale converts an impact force into an arrow length in metres.
const impactArrowScale = 1.0 / 2000

// DebugDraw draws the ragdoll's particles as wire spheres, distance constraints as lines, joint
// pivots as small markers coloured by joint kind, and the last impact point with its force
// direction. Must be called between BeginMode3D and EndMode3D.
func DebugDraw(ctrl *ragdoll.Controller) {
	if ctrl == nil {
		return
	}
	w := ctrl.World()
	for _, p := range w.Particles() {
		col := particleColor
		if p.Pinned {
			col = pinnedColor
		}
		rl.DrawSphereWires(vec(p.Position), float32(p.Radius), 6, 8, col)
	}
	for _, c := range w.DistanceConstraints() {
		col := distanceColor
		if c.Stretch() > stretchWarn {
			col = stretchedColor
		}
		rl.DrawLine3D(vec(c.A.Position), vec(c.B.Position), col)
	}
	for _, c := range w.AngularConstraints() {
		col := ballColor
		if c.Kind == physics.JointHinge {
			col = hingeColor
		}
		rl.DrawCubeWires(vec(c.Pivot.Position), 0.04, 0.04, 0.04, col)
	}
	if impact, ok := ctrl.LastImpact(); ok && impact.HasPoint {
		rl.DrawSphere(vec(impact.Point), 0.03, impactColor)
		tip := impact.Point.Add(impact.Force.Mul(impactArrowScale))
		rl.DrawLine3D(vec(impact.Point), vec(tip), impactColor)
	}
}

// DrawBody draws the ragdoll as lit limbs along its distance constraints with a sphere at each
// particle. Must be called between BeginMode3D and EndMode3D.
func DrawBody(ctrl *ragdoll.Controller, prims *primitives.Registry) {
	if ctrl == nil || prims == nil {
		return
	}
	w := ctrl.World()
	for _, c := range w.DistanceConstraints() {
		r := 0.6 * min(c.A.Radius, c.B.Radius)
		prims.DrawLimb(c.A.Position, c.B.Position, r, bodyColor)
	}
	for _, p := range w.Particles() {
		prims.DrawSphere(p.Position, p.Radius, bodyColor)
	}
}

func vec(v mgl64.Vec3) rl.Vector3 {
	return rl.NewVector3(float32(v[0]), float32(v[1]), float32(v[2]))
}
