package ragdoll

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jinzhu/copier"
	"gopkg.in/yaml.v3"

	"ragdoll-engine/internal/physics"
)

var (
	// ErrUnknownBone is returned for a profile entry naming a bone the humanoid layout does not
	// track.
	ErrUnknownBone = errors.New("unknown bone")
	// ErrUnknownJointType is returned for a joint entry whose type is neither ball nor hinge, or
	// whose name is not one of the humanoid joint groups.
	ErrUnknownJointType = errors.New("unknown joint type")
)

// Tracked bone names, ordered parents first.
const (
	Hips         = "hips"
	Spine        = "spine"
	Spine1       = "spine1"
	Spine2       = "spine2"
	Head         = "head"
	LeftArm      = "leftArm"
	LeftForeArm  = "leftForeArm"
	LeftHand     = "leftHand"
	RightArm     = "rightArm"
	RightForeArm = "rightForeArm"
	RightHand    = "rightHand"
	LeftUpLeg    = "leftUpLeg"
	LeftLeg      = "leftLeg"
	LeftFoot     = "leftFoot"
	RightUpLeg   = "rightUpLeg"
	RightLeg     = "rightLeg"
	RightFoot    = "rightFoot"
)

// BoneNames lists every tracked bone, parents before children.
var BoneNames = []string{
	Hips, Spine, Spine1, Spine2, Head,
	LeftArm, LeftForeArm, LeftHand,
	RightArm, RightForeArm, RightHand,
	LeftUpLeg, LeftLeg, LeftFoot,
	RightUpLeg, RightLeg, RightFoot,
}

// Joint groups. Each angular constraint takes its limits from one of them.
const (
	JointSpine    = "spine"
	JointNeck     = "neck"
	JointShoulder = "shoulder"
	JointElbow    = "elbow"
	JointHip      = "hip"
	JointKnee     = "knee"
)

// BoneSpec is the particle created for a bone.
type BoneSpec struct {
	Mass   float64 `yaml:"mass"`
	Radius float64 `yaml:"radius"`
}

// JointSpec holds the limits of one joint group. Angles are in degrees.
type JointSpec struct {
	Type      string  `yaml:"type"`
	SwingMin  float64 `yaml:"swing_min"`
	SwingMax  float64 `yaml:"swing_max"`
	TwistMin  float64 `yaml:"twist_min"`
	TwistMax  float64 `yaml:"twist_max"`
	Stiffness float64 `yaml:"stiffness"`
}

// Angular converts the spec into solver units.
func (j JointSpec) Angular() (physics.AngularSpec, error) {
	kind, err := physics.ParseJointKind(j.Type)
	if err != nil {
		return physics.AngularSpec{}, fmt.Errorf("ragdoll: joint type %q: %w", j.Type, ErrUnknownJointType)
	}
	return physics.AngularSpec{
		Kind:      kind,
		SwingMin:  mgl64.DegToRad(j.SwingMin),
		SwingMax:  mgl64.DegToRad(j.SwingMax),
		TwistMin:  mgl64.DegToRad(j.TwistMin),
		TwistMax:  mgl64.DegToRad(j.TwistMax),
		Stiffness: j.Stiffness,
	}, nil
}

// Profile describes how a humanoid skeleton becomes a ragdoll.
type Profile struct {
	// Bones maps tracked bone names to particle settings.
	Bones map[string]BoneSpec `yaml:"bones"`
	// Joints maps joint groups (spine, neck, shoulder, elbow, hip, knee) to limits.
	Joints map[string]JointSpec `yaml:"joints"`
	// Aliases maps tracked bone names to the names used by the skeleton, e.g.
	// hips: mixamorigHips. Unlisted bones are looked up by their tracked name.
	Aliases map[string]string `yaml:"aliases,omitempty"`

	DistanceStiffness float64 `yaml:"distance_stiffness"`
	// BlendIn is how long, in seconds, written rotations take to go from the animated pose to
	// the simulated one after a takeover. Zero writes the simulated pose immediately.
	BlendIn float64 `yaml:"blend_in"`
	// SupportRadius is the horizontal distance between the centre of mass and the feet at which
	// balance reaches zero.
	SupportRadius float64 `yaml:"support_radius"`
	// RestAxis is the bone-local axis that points at the bone's child in the rest pose.
	RestAxis mgl64.Vec3 `yaml:"rest_axis"`
}

// DefaultProfile returns masses and limits for an adult humanoid around 1.7 m tall.
func DefaultProfile() Profile {
	return Profile{
		Bones: map[string]BoneSpec{
			Hips:         {Mass: 10, Radius: 0.1},
			Spine:        {Mass: 8, Radius: 0.09},
			Spine1:       {Mass: 8, Radius: 0.1},
			Spine2:       {Mass: 8, Radius: 0.1},
			Head:         {Mass: 5, Radius: 0.1},
			LeftArm:      {Mass: 3, Radius: 0.06},
			LeftForeArm:  {Mass: 2, Radius: 0.05},
			LeftHand:     {Mass: 1, Radius: 0.04},
			RightArm:     {Mass: 3, Radius: 0.06},
			RightForeArm: {Mass: 2, Radius: 0.05},
			RightHand:    {Mass: 1, Radius: 0.04},
			LeftUpLeg:    {Mass: 7, Radius: 0.08},
			LeftLeg:      {Mass: 4, Radius: 0.06},
			LeftFoot:     {Mass: 1.5, Radius: 0.05},
			RightUpLeg:   {Mass: 7, Radius: 0.08},
			RightLeg:     {Mass: 4, Radius: 0.06},
			RightFoot:    {Mass: 1.5, Radius: 0.05},
		},
		Joints: map[string]JointSpec{
			JointSpine:    {Type: "ball", SwingMin: -30, SwingMax: 30, TwistMin: -20, TwistMax: 20, Stiffness: 0.5},
			JointNeck:     {Type: "ball", SwingMin: -45, SwingMax: 45, TwistMin: -40, TwistMax: 40, Stiffness: 0.5},
			JointShoulder: {Type: "ball", SwingMin: -100, SwingMax: 100, TwistMin: -45, TwistMax: 45, Stiffness: 0.4},
			JointElbow:    {Type: "hinge", SwingMin: 0, SwingMax: 150, Stiffness: 0.6},
			JointHip:      {Type: "ball", SwingMin: -100, SwingMax: 100, TwistMin: -30, TwistMax: 30, Stiffness: 0.4},
			JointKnee:     {Type: "hinge", SwingMin: 0, SwingMax: 140, Stiffness: 0.6},
		},
		DistanceStiffness: 1,
		BlendIn:           0.2,
		SupportRadius:     0.35,
		RestAxis:          mgl64.Vec3{0, 1, 0},
	}
}

// UnmarshalYAML decodes a profile over the current value of p. Bone and joint entries are merged
// field by field: an entry that sets only some fields keeps the rest from the entry already in p,
// or from DefaultProfile when p has none.
func (p *Profile) UnmarshalYAML(value *yaml.Node) error {
	var entries struct {
		Bones  map[string]yaml.Node `yaml:"bones"`
		Joints map[string]yaml.Node `yaml:"joints"`
	}
	if err := value.Decode(&entries); err != nil {
		return err
	}
	base := p.copyMaps()

	type plain Profile
	if err := value.Decode((*plain)(p)); err != nil {
		return err
	}

	d := DefaultProfile()
	if len(entries.Bones) > 0 {
		p.Bones = base.Bones
		for name, node := range entries.Bones {
			b, ok := base.Bones[name]
			if !ok {
				b = d.Bones[name]
			}
			if err := node.Decode(&b); err != nil {
				return fmt.Errorf("ragdoll: bone %q: %w", name, err)
			}
			p.Bones[name] = b
		}
	}
	if len(entries.Joints) > 0 {
		p.Joints = base.Joints
		for name, node := range entries.Joints {
			j, ok := base.Joints[name]
			if !ok {
				j = d.Joints[name]
			}
			if err := node.Decode(&j); err != nil {
				return fmt.Errorf("ragdoll: joint %q: %w", name, err)
			}
			p.Joints[name] = j
		}
	}
	return nil
}

// Clone returns a deep copy of p.
func (p Profile) Clone() Profile {
	var out Profile
	if err := copier.CopyWithOption(&out, &p, copier.Option{DeepCopy: true}); err != nil {
		return p.copyMaps()
	}
	return out
}

func (p Profile) copyMaps() Profile {
	out := p
	out.Bones = make(map[string]BoneSpec, len(p.Bones))
	for k, v := range p.Bones {
		out.Bones[k] = v
	}
	out.Joints = make(map[string]JointSpec, len(p.Joints))
	for k, v := range p.Joints {
		out.Joints[k] = v
	}
	out.Aliases = make(map[string]string, len(p.Aliases))
	for k, v := range p.Aliases {
		out.Aliases[k] = v
	}
	return out
}

// Validate reports entries that name bones or joint groups the layout does not know, and joint
// types other than ball and hinge.
func (p Profile) Validate() error {
	tracked := make(map[string]bool, len(BoneNames))
	for _, name := range BoneNames {
		tracked[name] = true
	}
	for _, name := range sortedKeys(p.Bones) {
		if !tracked[name] {
			return fmt.Errorf("ragdoll: bone %q: %w", name, ErrUnknownBone)
		}
	}
	for _, name := range sortedKeys(p.Aliases) {
		if !tracked[name] {
			return fmt.Errorf("ragdoll: alias for %q: %w", name, ErrUnknownBone)
		}
	}
	defaults := DefaultProfile().Joints
	for _, name := range sortedKeys(p.Joints) {
		if _, ok := defaults[name]; !ok {
			return fmt.Errorf("ragdoll: joint group %q: %w", name, ErrUnknownJointType)
		}
		if _, err := p.Joints[name].Angular(); err != nil {
			return err
		}
	}
	return nil
}

// Normalize returns a copy of p with missing or out-of-range entries taken from DefaultProfile.
func (p Profile) Normalize() Profile {
	d := DefaultProfile()
	out := p.Clone()
	if out.Bones == nil {
		out.Bones = make(map[string]BoneSpec, len(d.Bones))
	}
	for name, def := range d.Bones {
		b, ok := out.Bones[name]
		if !ok {
			out.Bones[name] = def
			continue
		}
		if !(b.Mass > 0) || math.IsInf(b.Mass, 0) {
			b.Mass = def.Mass
		}
		if !(b.Radius >= 0) || math.IsInf(b.Radius, 0) {
			b.Radius = def.Radius
		}
		out.Bones[name] = b
	}
	if out.Joints == nil {
		out.Joints = make(map[string]JointSpec, len(d.Joints))
	}
	for name, def := range d.Joints {
		j, ok := out.Joints[name]
		if !ok || j.Type == "" {
			out.Joints[name] = def
			continue
		}
		if !(j.Stiffness > 0 && j.Stiffness <= 1) {
			j.Stiffness = def.Stiffness
		}
		out.Joints[name] = j
	}
	if !(out.DistanceStiffness > 0 && out.DistanceStiffness <= 1) {
		out.DistanceStiffness = d.DistanceStiffness
	}
	if !(out.BlendIn >= 0) || math.IsInf(out.BlendIn, 0) {
		out.BlendIn = d.BlendIn
	}
	if !(out.SupportRadius > 0) || math.IsInf(out.SupportRadius, 0) {
		out.SupportRadius = d.SupportRadius
	}
	if l := out.RestAxis.LenSqr(); !(l >= degenerateEpsilon) || math.IsInf(l, 0) {
		out.RestAxis = d.RestAxis
	}
	out.RestAxis = out.RestAxis.Normalize()
	return out
}

// SkeletonName returns the name to look a tracked bone up by.
func (p Profile) SkeletonName(bone string) string {
	if alias, ok := p.Aliases[bone]; ok && alias != "" {
		return alias
	}
	return bone
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
