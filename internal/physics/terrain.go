package physics

import (
	"errors"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrUnknownJointKind is returned by ParseJointKind for names other than ball and hinge.
var ErrUnknownJointKind = errors.New("unknown joint kind")

// Terrain answers height queries on the XZ plane. Implementations are called once per particle
// per solver iteration, so they must be pure and cheap.
type Terrain interface {
	HeightAt(x, z float64) float64
}

// NormalTerrain is a Terrain that also reports its surface normal. Terrains that do not
// implement it are treated as locally flat (+Y normal).
type NormalTerrain interface {
	Terrain
	NormalAt(x, z float64) mgl64.Vec3
}

var up = mgl64.Vec3{0, 1, 0}

// FlatGround is an infinite horizontal plane at Height.
type FlatGround struct {
	Height float64
}

// HeightAt returns Height everywhere.
func (g FlatGround) HeightAt(x, z float64) float64 { return g.Height }

// NormalAt returns +Y everywhere.
func (g FlatGround) NormalAt(x, z float64) mgl64.Vec3 { return up }

// Plane is an infinite sloped plane through Point with the given Normal.
type Plane struct {
	Point  mgl64.Vec3
	Normal mgl64.Vec3
}

// NewPlane normalises normal. A zero or downward-facing normal is replaced by +Y, since the
// plane must be expressible as a height function.
func NewPlane(point, normal mgl64.Vec3) Plane {
	if normal.Len() == 0 || !vecFinite(normal) || normal[1] <= 1e-6 {
		normal = up
	}
	return Plane{Point: point, Normal: normal.Normalize()}
}

// SlopedPlane returns a plane through the origin tilted by angle radians around the Z axis.
func SlopedPlane(angle float64) Plane {
	q := mgl64.QuatRotate(angle, mgl64.Vec3{0, 0, 1})
	return NewPlane(mgl64.Vec3{}, q.Rotate(up))
}

// HeightAt solves the plane equation for y at (x, z). A vertical plane reads Point's height.
func (p Plane) HeightAt(x, z float64) float64 {
	n := p.Normal
	if n[1] == 0 {
		return p.Point[1]
	}
	return p.Point[1] - (n[0]*(x-p.Point[0])+n[2]*(z-p.Point[2]))/n[1]
}

// NormalAt returns the plane's unit normal everywhere.
func (p Plane) NormalAt(x, z float64) mgl64.Vec3 { return p.Normal }

// terrainSample returns the surface height and unit normal under (x, z).
func terrainSample(t Terrain, x, z float64) (float64, mgl64.Vec3) {
	if t == nil {
		return 0, up
	}
	h := t.HeightAt(x, z)
	if !isFinite(h) {
		h = 0
	}
	n := up
	if nt, ok := t.(NormalTerrain); ok {
		n = nt.NormalAt(x, z)
		if l := n.Len(); l > 0 && isFinite(l) {
			n = n.Mul(1 / l)
		} else {
			n = up
		}
	}
	return h, n
}
