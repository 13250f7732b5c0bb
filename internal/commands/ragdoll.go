package commands

import (
	"errors"
	"fmt"

	"github.com/go-gl/mathgl/mgl64"

	"ragdoll-engine/internal/ragdoll"
)

// Logger receives command output.
type Logger interface {
	Infof(format string, args ...any)
}

// RegisterRagdoll adds commands that drive ctrl from the terminal:
//
//	cmd ragdoll --on | --off
//	cmd impact -x 0 -y 0 -z 800 [-at 0,1.2,0]
//	cmd gravity -y -9.81
//	cmd state
//	cmd reset
//
// reset is called by "cmd reset" to put the skeleton back in its rest pose; it may be nil.
func RegisterRagdoll(reg *Registry, ctrl *ragdoll.Controller, log Logger, reset func()) {
	{
		fs := NewFlagSet("ragdoll")
		on := fs.Bool("on", false, "hand the skeleton to the simulation")
		off := fs.Bool("off", false, "give the skeleton back to animation")
		reg.Register("ragdoll", "--on | --off", fs, func() error {
			switch {
			case *on == *off:
				return errors.New("ragdoll: pass exactly one of --on or --off")
			case *on:
				ctrl.SetRagdollMode(true)
			default:
				ctrl.SetRagdollMode(false)
			}
			log.Infof("ragdoll mode: %s", ctrl.State().Mode)
			return nil
		})
	}
	{
		fs := NewFlagSet("impact")
		x := fs.Float64("x", 0, "force X")
		y := fs.Float64("y", 0, "force Y")
		z := fs.Float64("z", 0, "force Z")
		at := fs.String("at", "", "impact point as x,y,z")
		reg.Register("impact", "-x -y -z force [-at x,y,z]", fs, func() error {
			force := mgl64.Vec3{*x, *y, *z}
			var point *mgl64.Vec3
			if *at != "" {
				p, err := ParseVec3(*at)
				if err != nil {
					return fmt.Errorf("impact: -at: %w", err)
				}
				point = &p
			}
			ctrl.ApplyImpact(force, point)
			log.Infof("impact %.1f %.1f %.1f", force[0], force[1], force[2])
			return nil
		})
	}
	{
		fs := NewFlagSet("gravity")
		g := ctrl.World().Config().Gravity
		x := fs.Float64("x", g[0], "gravity X")
		y := fs.Float64("y", g[1], "gravity Y")
		z := fs.Float64("z", g[2], "gravity Z")
		reg.Register("gravity", "-x -y -z", fs, func() error {
			ctrl.World().SetGravity(mgl64.Vec3{*x, *y, *z})
			g := ctrl.World().Config().Gravity
			log.Infof("gravity %.2f %.2f %.2f", g[0], g[1], g[2])
			return nil
		})
	}
	reg.Register("state", "print mode, blend and balance", nil, func() error {
		s := ctrl.State()
		stats := ctrl.World().Stats()
		log.Infof("mode=%s blend=%.2f balance=%.2f steps=%d", s.Mode, s.PhysicsBlend, s.Balance, stats.TotalSteps)
		return nil
	})
	reg.Register("reset", "stand the skeleton back up", nil, func() error {
		ctrl.SetRagdollMode(false)
		if reset != nil {
			reset()
		}
		log.Infof("reset")
		return nil
	})
}

// ParseVec3 parses "x,y,z".
func ParseVec3(s string) (mgl64.Vec3, error) {
	var v mgl64.Vec3
	if _, err := fmt.Sscanf(s, "%g,%g,%g", &v[0], &v[1], &v[2]); err != nil {
		return mgl64.Vec3{}, fmt.Errorf("vector %q: %w", s, err)
	}
	return v, nil
}
