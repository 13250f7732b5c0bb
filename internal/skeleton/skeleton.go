// Package skeleton defines the bone contract the ragdoll controller writes to, plus a small
// in-memory hierarchy used by the viewer and tests.
package skeleton

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

var (
	// ErrDuplicateBone is returned when a bone name is added twice.
	ErrDuplicateBone = errors.New("duplicate bone")
	// ErrUnknownParent is returned when a bone names a parent that was never added.
	ErrUnknownParent = errors.New("unknown parent bone")
)

// Bone is a node of an externally owned transform hierarchy. Callers mutate the local
// transform; world values are derived from the parent chain.
type Bone interface {
	Name() string
	WorldPosition() mgl64.Vec3
	WorldRotation() mgl64.Quat
	LocalPosition() mgl64.Vec3
	LocalRotation() mgl64.Quat
	SetLocalPosition(p mgl64.Vec3)
	SetLocalRotation(q mgl64.Quat)
	// Parent returns nil for a root bone.
	Parent() Bone
}

// Registry looks bones up by name.
type Registry interface {
	Bone(name string) (Bone, bool)
}

// Node is a Bone with a rest pose. World transforms are recomputed from the parent chain on
// every query, so the tree is always consistent after a local edit.
type Node struct {
	name     string
	parent   *Node
	children []*Node

	localPos mgl64.Vec3
	localRot mgl64.Quat

	restPos mgl64.Vec3
	restRot mgl64.Quat
}

func (n *Node) Name() string { return n.name }

func (n *Node) LocalPosition() mgl64.Vec3 { return n.localPos }

func (n *Node) LocalRotation() mgl64.Quat { return n.localRot }

func (n *Node) SetLocalPosition(p mgl64.Vec3) { n.localPos = p }

// SetLocalRotation stores q normalised. A zero quaternion becomes the identity.
func (n *Node) SetLocalRotation(q mgl64.Quat) { n.localRot = q.Normalize() }

// Parent returns the parent bone, or nil (an untyped nil interface) for the root.
func (n *Node) Parent() Bone {
	if n.parent == nil {
		return nil
	}
	return n.parent
}

// Children returns the direct children in insertion order.
func (n *Node) Children() []*Node { return n.children }

// WorldRotation composes the local rotations from the root down.
func (n *Node) WorldRotation() mgl64.Quat {
	if n.parent == nil {
		return n.localRot
	}
	return n.parent.WorldRotation().Mul(n.localRot).Normalize()
}

// WorldPosition transforms the local position by every ancestor.
func (n *Node) WorldPosition() mgl64.Vec3 {
	if n.parent == nil {
		return n.localPos
	}
	return n.parent.WorldPosition().Add(n.parent.WorldRotation().Rotate(n.localPos))
}

// Skeleton owns a tree of Nodes and satisfies Registry.
type Skeleton struct {
	nodes map[string]*Node
	order []*Node
}

// New returns an empty skeleton.
func New() *Skeleton {
	return &Skeleton{nodes: make(map[string]*Node)}
}

// Add creates a bone under parent (empty for a root) with the given local offset and an identity
// local rotation.
func (s *Skeleton) Add(name, parent string, offset mgl64.Vec3) (*Node, error) {
	return s.AddRotated(name, parent, offset, mgl64.QuatIdent())
}

// AddRotated is Add with an explicit local rotation. Offset and rotation become the bone's rest
// pose.
func (s *Skeleton) AddRotated(name, parent string, offset mgl64.Vec3, rot mgl64.Quat) (*Node, error) {
	if _, ok := s.nodes[name]; ok {
		return nil, fmt.Errorf("skeleton: add %q: %w", name, ErrDuplicateBone)
	}
	var p *Node
	if parent != "" {
		var ok bool
		if p, ok = s.nodes[parent]; !ok {
			return nil, fmt.Errorf("skeleton: add %q under %q: %w", name, parent, ErrUnknownParent)
		}
	}
	n := &Node{
		name:     name,
		parent:   p,
		localPos: offset,
		localRot: rot.Normalize(),
		restPos:  offset,
		restRot:  rot.Normalize(),
	}
	if p != nil {
		p.children = append(p.children, n)
	}
	s.nodes[name] = n
	s.order = append(s.order, n)
	return n, nil
}

// Bone implements Registry.
func (s *Skeleton) Bone(name string) (Bone, bool) {
	n, ok := s.nodes[name]
	if !ok {
		return nil, false
	}
	return n, true
}

// Node returns the concrete node for name.
func (s *Skeleton) Node(name string) (*Node, bool) {
	n, ok := s.nodes[name]
	return n, ok
}

// Nodes returns every node, parents before children.
func (s *Skeleton) Nodes() []*Node { return s.order }

// Len is the number of bones.
func (s *Skeleton) Len() int { return len(s.order) }

// Reset restores every bone to its rest pose.
func (s *Skeleton) Reset() {
	for _, n := range s.order {
		n.localPos = n.restPos
		n.localRot = n.restRot
	}
}

// MoveRoot translates every root bone by delta.
func (s *Skeleton) MoveRoot(delta mgl64.Vec3) {
	for _, n := range s.order {
		if n.parent == nil {
			n.localPos = n.localPos.Add(delta)
		}
	}
}
