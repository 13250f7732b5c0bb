// Package sim wires the engine config, terrain, demo skeleton, ragdoll controller and command
// registry into one runnable simulation shared by the viewer and the headless runner.
package sim

import (
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl64"

	"ragdoll-engine/internal/commands"
	"ragdoll-engine/internal/engineconfig"
	"ragdoll-engine/internal/logger"
	"ragdoll-engine/internal/physics"
	"ragdoll-engine/internal/ragdoll"
	"ragdoll-engine/internal/skeleton"
)

const (
	// spawnClearance is the gap left between the lowest terrain point under the rig and its feet.
	spawnClearance = 0.05
	// spawnFootprint is the half-size of the square sampled under the rig when placing it.
	spawnFootprint = 0.8
	spawnSamples   = 8
)

// Sim is one ragdoll standing on one terrain.
type Sim struct {
	Config     engineconfig.Config
	Terrain    physics.Terrain
	Skeleton   *skeleton.Skeleton
	Controller *ragdoll.Controller
	Commands   *commands.Registry
	Log        *logger.Logger
}

// New builds the terrain from cfg, stands the demo humanoid on it and binds a controller. Command
// handlers for the controller are registered on Commands.
func New(cfg engineconfig.Config, log *logger.Logger) (*Sim, error) {
	if log == nil {
		log = logger.Discard()
	}
	s := &Sim{Commands: commands.NewRegistry(), Log: log}
	if err := s.Reload(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload rebuilds the terrain, skeleton and controller from cfg. On error the running
// simulation is left untouched.
func (s *Sim) Reload(cfg engineconfig.Config) error {
	terrain, err := cfg.Viewer.Terrain.Build()
	if err != nil {
		return err
	}
	origin := mgl64.Vec3{0, SpawnHeight(terrain), 0}
	skel := skeleton.Humanoid(origin)

	ctrl, err := ragdoll.New(skel, cfg.Physics, cfg.Ragdoll,
		ragdoll.WithLogger(s.Log),
		ragdoll.WithTerrain(terrain),
	)
	if err != nil {
		return fmt.Errorf("sim: %w", err)
	}

	if s.Controller != nil {
		s.Controller.Dispose()
	}
	s.Config = cfg
	s.Terrain = terrain
	s.Skeleton = skel
	s.Controller = ctrl
	commands.RegisterRagdoll(s.Commands, ctrl, s.Log, s.Reset)
	s.Log.Infof("sim: %s terrain, rig origin %.2f %.2f %.2f", cfg.Viewer.Terrain.Kind, origin[0], origin[1], origin[2])
	return nil
}

// SpawnHeight returns the rig origin height that puts the feet just above the highest terrain
// point under the rig's footprint.
func SpawnHeight(t physics.Terrain) float64 {
	top := math.Inf(-1)
	for i := 0; i <= spawnSamples; i++ {
		x := -spawnFootprint + 2*spawnFootprint*float64(i)/spawnSamples
		for j := 0; j <= spawnSamples; j++ {
			z := -spawnFootprint + 2*spawnFootprint*float64(j)/spawnSamples
			if h := t.HeightAt(x, z); h > top {
				top = h
			}
		}
	}
	if math.IsInf(top, 0) || math.IsNaN(top) {
		top = 0
	}
	return top + spawnClearance
}

// Reset puts the skeleton back in its rest pose and hands it to animation.
func (s *Sim) Reset() {
	s.Controller.SetRagdollMode(false)
	s.Skeleton.Reset()
	s.Controller.Update(0)
}

// Update advances the simulation by dt seconds.
func (s *Sim) Update(dt float64) {
	s.Controller.Update(dt)
}

// Focus returns the point the camera should look at: the hips particle, or the centre of all
// particles when the rig has no hips.
func (s *Sim) Focus() mgl64.Vec3 {
	if p, ok := s.Controller.Particle(ragdoll.Hips); ok {
		return p.Position
	}
	ps := s.Controller.World().Particles()
	if len(ps) == 0 {
		return mgl64.Vec3{}
	}
	var sum mgl64.Vec3
	for _, p := range ps {
		sum = sum.Add(p.Position)
	}
	return sum.Mul(1 / float64(len(ps)))
}

// Dispose releases the controller.
func (s *Sim) Dispose() {
	s.Controller.Dispose()
}
