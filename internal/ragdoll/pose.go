package ragdoll

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
)

// degenerateEpsilon is the squared length below which a direction is considered undefined.
const degenerateEpsilon = 1e-12

// basisRotation converts three orthonormal axes into the rotation that maps the unit X, Y
// and Z axes onto them.
func basisRotation(x, y, z mgl64.Vec3) mgl64.Quat {
	m := mgl64.Mat4FromCols(x.Vec4(0), y.Vec4(0), z.Vec4(0), mgl64.Vec4{0, 0, 0, 1})
	return mgl64.Mat4ToQuat(m).Normalize()
}

func direction(from, to mgl64.Vec3) (mgl64.Vec3, bool) {
	d := to.Sub(from)
	l := d.LenSqr()
	if l < degenerateEpsilon {
		return mgl64.Vec3{}, false
	}
	return d.Mul(1 / math.Sqrt(l)), true
}

// HipsBasis builds the pelvis world rotation from four points. Up runs from the hips to the
// spine, right runs from the right thigh to the left thigh, forward is right × up and right is
// rebuilt as up × forward so the basis is orthonormal. The result maps local X to right, Y to
// up and Z to forward. ok is false when the points do not span a basis.
func HipsBasis(hips, spine, leftThigh, rightThigh mgl64.Vec3) (q mgl64.Quat, ok bool) {
	up, ok := direction(hips, spine)
	if !ok {
		return mgl64.QuatIdent(), false
	}
	right, ok := direction(rightThigh, leftThigh)
	if !ok {
		return mgl64.QuatIdent(), false
	}
	forward := right.Cross(up)
	if forward.LenSqr() < degenerateEpsilon {
		return mgl64.QuatIdent(), false
	}
	forward = forward.Normalize()
	right = up.Cross(forward)
	return basisRotation(right, up, forward), true
}

// AimRotation returns the world rotation that points restAxis from bone toward target.
//
// With a pole, the limb's bend plane is pinned: the hinge axis is primary × (pole − target),
// and the basis (hinge, primary, hinge × primary) is returned. This assumes restAxis is +Y,
// which is the skinned-rig convention. Without a pole, or when the pole is collinear with the
// limb, the shortest arc from restAxis to the primary axis is used. ok is false when target
// coincides with bone.
func AimRotation(bone, target mgl64.Vec3, pole *mgl64.Vec3, restAxis mgl64.Vec3) (q mgl64.Quat, ok bool) {
	primary, ok := direction(bone, target)
	if !ok {
		return mgl64.QuatIdent(), false
	}
	if q, ok := poleBasis(primary, target, pole, degenerateEpsilon); ok {
		return q, true
	}
	if restAxis.LenSqr() < degenerateEpsilon {
		return mgl64.QuatIdent(), false
	}
	return mgl64.QuatBetweenVectors(restAxis, primary).Normalize(), true
}

// minBendSin is the sine of the smallest bend at which a pole still fixes a limb's bend plane.
// Closer to straight the hinge direction is mostly noise.
const minBendSin = 0.05

// LimbRotation aims restAxis from bone toward target like AimRotation, but a limb without a
// usable pole (no pole, or bent less than minBendSin) swings reference by the shortest arc onto
// the target instead of swinging restAxis. reference is normally the bone's pose at takeover
// carried by its parent, so a straightening limb keeps its twist and never flips.
func LimbRotation(bone, target mgl64.Vec3, pole *mgl64.Vec3, reference mgl64.Quat, restAxis mgl64.Vec3) (q mgl64.Quat, ok bool) {
	primary, ok := direction(bone, target)
	if !ok {
		return mgl64.QuatIdent(), false
	}
	if q, ok := poleBasis(primary, target, pole, minBendSin*minBendSin); ok {
		return q, true
	}
	if restAxis.LenSqr() < degenerateEpsilon {
		return mgl64.QuatIdent(), false
	}
	current := reference.Rotate(restAxis.Normalize())
	return mgl64.QuatBetweenVectors(current, primary).Mul(reference).Normalize(), true
}

// poleBasis returns (hinge, primary, hinge × primary) with hinge = primary × (pole − target). ok
// is false without a pole or when the squared hinge length is below minSqr.
func poleBasis(primary, target mgl64.Vec3, pole *mgl64.Vec3, minSqr float64) (mgl64.Quat, bool) {
	if pole == nil {
		return mgl64.QuatIdent(), false
	}
	toPole, ok := direction(target, *pole)
	if !ok {
		return mgl64.QuatIdent(), false
	}
	hinge := primary.Cross(toPole)
	if hinge.LenSqr() < minSqr {
		return mgl64.QuatIdent(), false
	}
	hinge = hinge.Normalize()
	return basisRotation(hinge, primary, hinge.Cross(primary)), true
}

// ToLocal expresses a world rotation in the space of a parent with the given world rotation.
func ToLocal(parentWorld, world mgl64.Quat) mgl64.Quat {
	return parentWorld.Inverse().Mul(world).Normalize()
}

// PositionToLocal expresses a world position in the space of a parent placed at parentPos with
// rotation parentRot.
func PositionToLocal(parentPos mgl64.Vec3, parentRot mgl64.Quat, world mgl64.Vec3) mgl64.Vec3 {
	return parentRot.Inverse().Rotate(world.Sub(parentPos))
}
