package physics

import (
	"fmt"
	"math"
	"strings"

	"github.com/go-gl/mathgl/mgl64"
)

// JointKind selects how an AngularConstraint interprets its swing limits.
type JointKind int

const (
	// JointBall limits the deviation from a straight limb to a cone.
	JointBall JointKind = iota
	// JointHinge confines the joint angle to a single range.
	JointHinge
)

// degenerateAxisEpsilon is the squared cross-product length below which the limb is treated
// as collinear and a fallback rotation axis is used.
const degenerateAxisEpsilon = 1e-12

func (k JointKind) String() string {
	switch k {
	case JointBall:
		return "ball"
	case JointHinge:
		return "hinge"
	default:
		return fmt.Sprintf("JointKind(%d)", int(k))
	}
}

// ParseJointKind accepts "ball" or "hinge" (case-insensitive).
func ParseJointKind(s string) (JointKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "ball":
		return JointBall, nil
	case "hinge":
		return JointHinge, nil
	}
	return 0, fmt.Errorf("physics: %w: %q", ErrUnknownJointKind, s)
}

// AngularConstraint limits the swing of the child particle around the pivot, relative to the
// parent. The joint angle is measured at the pivot between pivot->parent and pivot->child, so a
// straight limb reads π.
//
// TwistMin and TwistMax are carried for configuration round-trips only; Resolve never reads them.
type AngularConstraint struct {
	Parent, Pivot, Child *Particle
	Kind                 JointKind
	SwingMin, SwingMax   float64
	TwistMin, TwistMax   float64
	Stiffness            float64
}

// AngularSpec describes an angular constraint before it is bound to particles.
type AngularSpec struct {
	Kind               JointKind
	SwingMin, SwingMax float64
	TwistMin, TwistMax float64
	Stiffness          float64
}

// NewAngularConstraint binds spec to a parent/pivot/child triple.
func NewAngularConstraint(parent, pivot, child *Particle, spec AngularSpec) *AngularConstraint {
	return &AngularConstraint{
		Parent:    parent,
		Pivot:     pivot,
		Child:     child,
		Kind:      spec.Kind,
		SwingMin:  spec.SwingMin,
		SwingMax:  spec.SwingMax,
		TwistMin:  spec.TwistMin,
		TwistMax:  spec.TwistMax,
		Stiffness: clampStiffness(spec.Stiffness),
	}
}

// CurrentAngle returns the joint angle in [0, π]. A degenerate joint (a zero-length arm)
// reads π.
func (c *AngularConstraint) CurrentAngle() float64 {
	toParent := c.Parent.Position.Sub(c.Pivot.Position)
	toChild := c.Child.Position.Sub(c.Pivot.Position)
	lp, lc := toParent.Len(), toChild.Len()
	if lp == 0 || lc == 0 || !isFinite(lp*lc) {
		return math.Pi
	}
	return jointAngle(toParent.Mul(1/lp), toChild.Mul(1/lc))
}

// Limits returns the legal joint angle window [lo, hi].
func (c *AngularConstraint) Limits() (lo, hi float64) {
	switch c.Kind {
	case JointHinge:
		lo, hi = math.Pi-c.SwingMax, math.Pi-c.SwingMin
	default:
		lo, hi = math.Pi-c.cone(), math.Pi
	}
	if lo > hi {
		lo, hi = hi, lo
	}
	return clampAngle(lo), clampAngle(hi)
}

// cone is the ball half-angle. A negative SwingMin is treated as the symmetric lower bound of
// the same cone.
func (c *AngularConstraint) cone() float64 {
	return math.Max(c.SwingMax, -c.SwingMin)
}

// Resolve rotates the child about the pivot toward the legal range. The child keeps its
// distance to the pivot exactly; the correction is a rotation, never a stretch.
func (c *AngularConstraint) Resolve() {
	if c.Child.Pinned {
		return
	}
	toParent := c.Parent.Position.Sub(c.Pivot.Position)
	toChild := c.Child.Position.Sub(c.Pivot.Position)
	parentLength := toParent.Len()
	childLength := toChild.Len()
	if parentLength == 0 || childLength == 0 || !isFinite(parentLength*childLength) {
		return
	}
	parentDir := toParent.Mul(1 / parentLength)
	childDir := toChild.Mul(1 / childLength)

	current := jointAngle(parentDir, childDir)
	lo, hi := c.Limits()
	target := current
	switch {
	case current < lo:
		target = lo
	case current > hi:
		target = hi
	default:
		return
	}

	axis := parentDir.Cross(childDir)
	if axis.LenSqr() < degenerateAxisEpsilon {
		axis = fallbackAxis(parentDir)
	}
	axis = axis.Normalize()

	q := mgl64.QuatRotate((target-current)*c.Stiffness, axis)
	rotated := q.Rotate(childDir).Mul(childLength)
	if !vecFinite(rotated) {
		return
	}
	c.Child.Position = c.Pivot.Position.Add(rotated)
}

// fallbackAxis returns an axis perpendicular to dir built from a fixed reference vector.
func fallbackAxis(dir mgl64.Vec3) mgl64.Vec3 {
	ref := mgl64.Vec3{0, 1, 0}
	if math.Abs(dir.Dot(ref)) > 0.9 {
		ref = mgl64.Vec3{1, 0, 0}
	}
	return ref.Cross(dir)
}

func jointAngle(a, b mgl64.Vec3) float64 {
	return math.Acos(mgl64.Clamp(a.Dot(b), -1, 1))
}

func clampAngle(a float64) float64 {
	return mgl64.Clamp(a, 0, math.Pi)
}
