// Package ragdoll binds a humanoid skeleton to a particle simulation. In animated mode the
// particles follow the bones; in ragdoll mode the simulation drives the bones.
package ragdoll

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"ragdoll-engine/internal/physics"
	"ragdoll-engine/internal/skeleton"
)

// Logger receives diagnostics. *logger.Logger satisfies it.
type Logger interface {
	Infof(format string, args ...any)
	Warnf(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Infof(string, ...any) {}
func (nopLogger) Warnf(string, ...any) {}

// Mode is the controller's ownership state.
type Mode string

const (
	ModeAnimated Mode = "animated"
	ModeRagdoll  Mode = "ragdoll"
)

// State is a read-only snapshot for UI and gameplay code.
type State struct {
	Mode Mode
	// PhysicsBlend ramps from 0 to 1 over Profile.BlendIn after a takeover.
	PhysicsBlend float64
	// Balance is 1 with the centre of mass over the feet and 0 at Profile.SupportRadius or
	// beyond.
	Balance float64
}

// Impact records the last ApplyImpact call.
type Impact struct {
	Force mgl64.Vec3
	Point mgl64.Vec3
	// HasPoint is false when the caller gave no contact point.
	HasPoint bool
}

// Binding pairs a tracked bone with its particle.
type Binding struct {
	Name     string
	Bone     skeleton.Bone
	Particle *physics.Particle

	// animated is the bone's local rotation at the moment of takeover; written rotations blend
	// away from it.
	animated mgl64.Quat
}

// aimTarget says which particle a bone points at and, for two-bone limbs, which particle
// fixes the bend plane.
type aimTarget struct {
	target, pole string
}

// aimTargets covers every non-root bone with a tracked child. Leaves keep their animated
// local rotation.
var aimTargets = map[string]aimTarget{
	Spine:        {target: Spine1},
	Spine1:       {target: Spine2},
	Spine2:       {target: Head},
	LeftArm:      {target: LeftForeArm, pole: LeftHand},
	LeftForeArm:  {target: LeftHand},
	RightArm:     {target: RightForeArm, pole: RightHand},
	RightForeArm: {target: RightHand},
	LeftUpLeg:    {target: LeftLeg, pole: LeftFoot},
	LeftLeg:      {target: LeftFoot},
	RightUpLeg:   {target: RightLeg, pole: RightFoot},
	RightLeg:     {target: RightFoot},
}

// distancePairs follow the skeletal tree.
var distancePairs = [][2]string{
	{Hips, Spine}, {Spine, Spine1}, {Spine1, Spine2}, {Spine2, Head},
	{Spine2, LeftArm}, {LeftArm, LeftForeArm}, {LeftForeArm, LeftHand},
	{Spine2, RightArm}, {RightArm, RightForeArm}, {RightForeArm, RightHand},
	{Hips, LeftUpLeg}, {LeftUpLeg, LeftLeg}, {LeftLeg, LeftFoot},
	{Hips, RightUpLeg}, {RightUpLeg, RightLeg}, {RightLeg, RightFoot},
}

// angularJoints are parent, pivot, child and joint group.
var angularJoints = [][4]string{
	{Hips, Spine, Spine1, JointSpine},
	{Spine, Spine1, Spine2, JointSpine},
	{Spine1, Spine2, Head, JointNeck},
	{Spine2, LeftArm, LeftForeArm, JointShoulder},
	{Spine2, RightArm, RightForeArm, JointShoulder},
	{LeftArm, LeftForeArm, LeftHand, JointElbow},
	{RightArm, RightForeArm, RightHand, JointElbow},
	{Hips, LeftUpLeg, LeftLeg, JointHip},
	{Hips, RightUpLeg, RightLeg, JointHip},
	{LeftUpLeg, LeftLeg, LeftFoot, JointKnee},
	{RightUpLeg, RightLeg, RightFoot, JointKnee},
}

// Option configures a Controller.
type Option func(*Controller)

// WithLogger routes warnings about missing bones and mode changes to l.
func WithLogger(l Logger) Option {
	return func(c *Controller) {
		if l != nil {
			c.log = l
		}
	}
}

// WithTerrain sets the ground the ragdoll collides with. The default is flat ground at 0.
func WithTerrain(t physics.Terrain) Option {
	return func(c *Controller) {
		c.world.SetTerrain(t)
	}
}

// Controller owns the particle world for one skeleton. It never owns the bones; it only reads
// their world transforms and writes their local ones. A Controller is not safe for concurrent
// use.
type Controller struct {
	registry skeleton.Registry
	profile  Profile
	world    *physics.World
	log      Logger

	bindings map[string]*Binding
	order    []*Binding

	ragdoll  bool
	blend    float64
	impact   Impact
	impacted bool
	disposed bool
}

// New binds every tracked bone the registry knows to a particle and wires the constraints
// between them. Bones the registry lacks are logged and skipped along with every constraint
// that touches them. The profile is validated, then normalised.
func New(registry skeleton.Registry, cfg physics.Config, profile Profile, opts ...Option) (*Controller, error) {
	if err := profile.Validate(); err != nil {
		return nil, err
	}
	c := &Controller{
		registry: registry,
		profile:  profile.Normalize(),
		world:    physics.NewWorld(cfg),
		log:      nopLogger{},
		bindings: make(map[string]*Binding, len(BoneNames)),
	}
	for _, opt := range opts {
		opt(c)
	}
	if err := c.build(); err != nil {
		return nil, err
	}
	return c, nil
}

func (c *Controller) build() error {
	for _, name := range BoneNames {
		boneName := c.profile.SkeletonName(name)
		bone, ok := c.registry.Bone(boneName)
		if !ok || bone == nil {
			c.log.Warnf("ragdoll: bone %q (%s) not found, skipping", name, boneName)
			continue
		}
		spec := c.profile.Bones[name]
		p := c.world.AddParticle(physics.NewParticle(bone.WorldPosition(), spec.Mass, spec.Radius))
		b := &Binding{Name: name, Bone: bone, Particle: p, animated: bone.LocalRotation()}
		c.bindings[name] = b
		c.order = append(c.order, b)
	}

	for _, pair := range distancePairs {
		a, okA := c.bindings[pair[0]]
		b, okB := c.bindings[pair[1]]
		if !okA || !okB {
			continue
		}
		c.world.AddDistanceConstraint(a.Particle, b.Particle, c.profile.DistanceStiffness)
	}

	for _, j := range angularJoints {
		parent, ok1 := c.bindings[j[0]]
		pivot, ok2 := c.bindings[j[1]]
		child, ok3 := c.bindings[j[2]]
		if !ok1 || !ok2 || !ok3 {
			continue
		}
		spec, err := c.profile.Joints[j[3]].Angular()
		if err != nil {
			return err
		}
		c.world.AddAngularConstraint(parent.Particle, pivot.Particle, child.Particle, spec)
	}
	c.log.Infof("ragdoll: bound %d bones, %d distance and %d angular constraints",
		len(c.order), len(c.world.DistanceConstraints()), len(c.world.AngularConstraints()))
	return nil
}

// SetRagdollMode hands the skeleton to the simulation (true) or back to animation (false).
// Taking over snaps every particle onto its bone with zero velocity, so the switch does not
// pop. Calling it with the current mode does nothing.
func (c *Controller) SetRagdollMode(on bool) {
	if c.disposed || on == c.ragdoll {
		return
	}
	c.ragdoll = on
	if on {
		for _, b := range c.order {
			b.Particle.SetPosition(b.Bone.WorldPosition())
			b.animated = b.Bone.LocalRotation()
		}
		c.blend = 0
		if c.profile.BlendIn == 0 {
			c.blend = 1
		}
		c.log.Infof("ragdoll: simulation took control")
		return
	}
	c.blend = 0
	c.log.Infof("ragdoll: animation took control")
}

// HasControl reports whether the simulation drives the bones.
func (c *Controller) HasControl() bool {
	return c.ragdoll
}

// ApplyImpact switches to ragdoll mode and pushes the hips particle (or, without hips, the first
// bound particle) with force. The force acts during the next solver step. point is optional and
// only recorded for debug drawing.
func (c *Controller) ApplyImpact(force mgl64.Vec3, point *mgl64.Vec3) {
	if c.disposed || len(c.order) == 0 {
		return
	}
	c.SetRagdollMode(true)
	target := c.order[0]
	if b, ok := c.bindings[Hips]; ok {
		target = b
	}
	target.Particle.AddForce(force)

	c.impact = Impact{Force: force}
	if point != nil {
		c.impact.Point = *point
		c.impact.HasPoint = true
	}
	c.impacted = true
}

// LastImpact returns the most recent impact, if any.
func (c *Controller) LastImpact() (Impact, bool) {
	return c.impact, c.impacted
}

// Update advances the controller by dt seconds. In animated mode particles track the bones;
// in ragdoll mode the world is stepped and the pose is written back onto the bones.
func (c *Controller) Update(dt float64) {
	if c.disposed {
		return
	}
	if !c.ragdoll {
		for _, b := range c.order {
			b.Particle.SetPosition(b.Bone.WorldPosition())
		}
		return
	}
	c.world.Update(dt)
	if dt > 0 && !math.IsInf(dt, 0) && c.profile.BlendIn > 0 {
		c.blend = math.Min(1, c.blend+dt/c.profile.BlendIn)
	}
	c.writePose()
}

// writePose rebuilds bone transforms from particle positions, parents before children.
func (c *Controller) writePose() {
	for _, b := range c.order {
		var (
			world mgl64.Quat
			ok    bool
		)
		if b.Name == Hips {
			world, ok = c.hipsRotation()
			c.writeRootPosition(b)
		} else {
			world, ok = c.aimRotation(b)
		}
		if !ok {
			continue
		}
		local := world
		if parent := b.Bone.Parent(); parent != nil {
			local = ToLocal(parent.WorldRotation(), world)
		}
		if c.blend < 1 {
			local = mgl64.QuatSlerp(b.animated, local, c.blend)
		}
		b.Bone.SetLocalRotation(local)
	}
}

func (c *Controller) writeRootPosition(b *Binding) {
	pos := b.Particle.Position
	if parent := b.Bone.Parent(); parent != nil {
		pos = PositionToLocal(parent.WorldPosition(), parent.WorldRotation(), pos)
	}
	b.Bone.SetLocalPosition(pos)
}

func (c *Controller) hipsRotation() (mgl64.Quat, bool) {
	hips, ok1 := c.bindings[Hips]
	spine, ok2 := c.bindings[Spine]
	left, ok3 := c.bindings[LeftUpLeg]
	right, ok4 := c.bindings[RightUpLeg]
	if !ok1 || !ok2 || !ok3 || !ok4 {
		return mgl64.QuatIdent(), false
	}
	return HipsBasis(hips.Particle.Position, spine.Particle.Position, left.Particle.Position, right.Particle.Position)
}

func (c *Controller) aimRotation(b *Binding) (mgl64.Quat, bool) {
	aim, ok := aimTargets[b.Name]
	if !ok {
		return mgl64.QuatIdent(), false
	}
	target, ok := c.bindings[aim.target]
	if !ok {
		return mgl64.QuatIdent(), false
	}
	var pole *mgl64.Vec3
	if p, ok := c.bindings[aim.pole]; ok {
		pos := p.Particle.Position
		pole = &pos
	}
	reference := b.animated
	if parent := b.Bone.Parent(); parent != nil {
		reference = parent.WorldRotation().Mul(b.animated)
	}
	return LimbRotation(b.Bone.WorldPosition(), target.Particle.Position, pole, reference, c.profile.RestAxis)
}

// State returns the current mode, blend factor and balance.
func (c *Controller) State() State {
	s := State{Mode: ModeAnimated, PhysicsBlend: c.blend, Balance: c.balance()}
	if c.ragdoll {
		s.Mode = ModeRagdoll
	}
	return s
}

// balance compares the horizontal centre of mass with the midpoint of the feet.
func (c *Controller) balance() float64 {
	var (
		com  mgl64.Vec3
		mass float64
	)
	for _, b := range c.order {
		com = com.Add(b.Particle.Position.Mul(b.Particle.Mass))
		mass += b.Particle.Mass
	}
	var (
		feet  mgl64.Vec3
		count float64
	)
	for _, name := range []string{LeftFoot, RightFoot} {
		if b, ok := c.bindings[name]; ok {
			feet = feet.Add(b.Particle.Position)
			count++
		}
	}
	if mass == 0 || count == 0 {
		return 0
	}
	com = com.Mul(1 / mass)
	feet = feet.Mul(1 / count)
	dx, dz := com[0]-feet[0], com[2]-feet[2]
	d := math.Sqrt(dx*dx + dz*dz)
	return mgl64.Clamp(1-d/c.profile.SupportRadius, 0, 1)
}

// World exposes the simulation for debug drawing and tests.
func (c *Controller) World() *physics.World {
	return c.world
}

// Profile returns the normalised profile in use.
func (c *Controller) Profile() Profile {
	return c.profile.Clone()
}

// Particle returns the particle bound to a tracked bone.
func (c *Controller) Particle(name string) (*physics.Particle, bool) {
	b, ok := c.bindings[name]
	if !ok {
		return nil, false
	}
	return b.Particle, true
}

// Bindings returns the bound bones, parents before children.
func (c *Controller) Bindings() []*Binding {
	return c.order
}

// Dispose drops the simulation and every binding. The controller ignores all calls afterwards.
func (c *Controller) Dispose() {
	if c.disposed {
		return
	}
	c.world.Clear()
	c.bindings = map[string]*Binding{}
	c.order = nil
	c.ragdoll = false
	c.blend = 0
	c.disposed = true
}
