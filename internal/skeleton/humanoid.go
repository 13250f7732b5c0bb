package skeleton

import "github.com/go-gl/mathgl/mgl64"

// RestAxis is the local axis every demo bone points along toward its aim child.
var RestAxis = mgl64.Vec3{0, 1, 0}

// humanoidBone is one row of the demo rig. offset is measured from the parent in the T-pose world
// frame, in meters. aim names the child the bone's RestAxis points at; leaves leave it empty and
// inherit the parent orientation. hinge, when set, is the world axis the limb bends around; the
// bone's local X is put on it, so a natural bend keeps local X where a pole-driven limb solve
// puts it.
type humanoidBone struct {
	name, parent, aim string
	offset            mgl64.Vec3
	hinge             mgl64.Vec3
}

var (
	// Elbows bend the forearm forward (+Z), knees bend the shin back (-Z).
	leftElbowHinge  = mgl64.Vec3{0, -1, 0}
	rightElbowHinge = mgl64.Vec3{0, 1, 0}
	kneeHinge       = mgl64.Vec3{1, 0, 0}
)

// humanoidRig is a T-posed, Y-up rig with the left side on +X. Rows are ordered parents first.
var humanoidRig = []humanoidBone{
	{"hips", "", "spine", mgl64.Vec3{0, 1.0, 0}, mgl64.Vec3{}},
	{"spine", "hips", "spine1", mgl64.Vec3{0, 0.1, 0}, mgl64.Vec3{}},
	{"spine1", "spine", "spine2", mgl64.Vec3{0, 0.12, 0}, mgl64.Vec3{}},
	{"spine2", "spine1", "head", mgl64.Vec3{0, 0.14, 0}, mgl64.Vec3{}},
	{"head", "spine2", "", mgl64.Vec3{0, 0.24, 0}, mgl64.Vec3{}},

	{"leftArm", "spine2", "leftForeArm", mgl64.Vec3{0.18, 0.06, 0}, leftElbowHinge},
	{"leftForeArm", "leftArm", "leftHand", mgl64.Vec3{0.27, 0, 0}, leftElbowHinge},
	{"leftHand", "leftForeArm", "", mgl64.Vec3{0.25, 0, 0}, mgl64.Vec3{}},
	{"rightArm", "spine2", "rightForeArm", mgl64.Vec3{-0.18, 0.06, 0}, rightElbowHinge},
	{"rightForeArm", "rightArm", "rightHand", mgl64.Vec3{-0.27, 0, 0}, rightElbowHinge},
	{"rightHand", "rightForeArm", "", mgl64.Vec3{-0.25, 0, 0}, mgl64.Vec3{}},

	{"leftUpLeg", "hips", "leftLeg", mgl64.Vec3{0.1, -0.08, 0}, kneeHinge},
	{"leftLeg", "leftUpLeg", "leftFoot", mgl64.Vec3{0, -0.4, 0}, kneeHinge},
	{"leftFoot", "leftLeg", "", mgl64.Vec3{0, -0.44, 0}, mgl64.Vec3{}},
	{"rightUpLeg", "hips", "rightLeg", mgl64.Vec3{-0.1, -0.08, 0}, kneeHinge},
	{"rightLeg", "rightUpLeg", "rightFoot", mgl64.Vec3{0, -0.4, 0}, kneeHinge},
	{"rightFoot", "rightLeg", "", mgl64.Vec3{0, -0.44, 0}, mgl64.Vec3{}},
}

// Humanoid builds the 17-bone demo rig with its hips one meter above origin. Every non-leaf
// bone is oriented so RestAxis points at its aim child, the convention of skinned humanoid rigs.
func Humanoid(origin mgl64.Vec3) *Skeleton {
	return HumanoidWithout(origin)
}

// HumanoidWithout builds the demo rig minus the named bones. Children of a skipped bone are
// skipped too.
func HumanoidWithout(origin mgl64.Vec3, skip ...string) *Skeleton {
	skipped := make(map[string]bool, len(skip))
	for _, name := range skip {
		skipped[name] = true
	}

	world := make(map[string]mgl64.Vec3, len(humanoidRig))
	for _, b := range humanoidRig {
		if b.parent == "" {
			world[b.name] = origin.Add(b.offset)
			continue
		}
		world[b.name] = world[b.parent].Add(b.offset)
	}

	rot := make(map[string]mgl64.Quat, len(humanoidRig))
	s := New()
	for _, b := range humanoidRig {
		parentRot := mgl64.QuatIdent()
		if b.parent != "" {
			parentRot = rot[b.parent]
		}
		worldRot := parentRot
		if b.aim != "" {
			worldRot = aimRest(world[b.aim].Sub(world[b.name]), b.hinge)
		}
		rot[b.name] = worldRot

		if skipped[b.name] || skipped[b.parent] {
			skipped[b.name] = true
			continue
		}
		inv := parentRot.Inverse()
		offset := inv.Rotate(b.offset)
		if b.parent == "" {
			offset = world[b.name]
		}
		// The rig table is well formed, so AddRotated cannot fail here.
		_, _ = s.AddRotated(b.name, b.parent, offset, inv.Mul(worldRot))
	}
	return s
}

// aimRest returns the rest world rotation that points RestAxis along dir. With a hinge the basis
// is (hinge, dir, hinge × dir) after making hinge perpendicular to dir; without one it is the
// shortest arc from RestAxis.
func aimRest(dir, hinge mgl64.Vec3) mgl64.Quat {
	y := dir.Normalize()
	if hinge == (mgl64.Vec3{}) {
		return mgl64.QuatBetweenVectors(RestAxis, y)
	}
	z := hinge.Cross(y).Normalize()
	x := y.Cross(z)
	m := mgl64.Mat4FromCols(x.Vec4(0), y.Vec4(0), z.Vec4(0), mgl64.Vec4{0, 0, 0, 1})
	return mgl64.Mat4ToQuat(m).Normalize()
}
