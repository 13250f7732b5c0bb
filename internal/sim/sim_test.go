package sim

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"ragdoll-engine/internal/engineconfig"
	"ragdoll-engine/internal/logger"
	"ragdoll-engine/internal/physics"
	"ragdoll-engine/internal/ragdoll"
)

func configWith(kind string) engineconfig.Config {
	cfg := engineconfig.Default()
	cfg.Viewer.Terrain.Kind = kind
	cfg.Viewer.Terrain.SlopeDegrees = 12
	cfg.Viewer.Terrain.Noise.Seed = 7
	cfg.Viewer.Terrain.Noise.HeightScale = 0.6
	return cfg
}

func newSim(t *testing.T, kind string) *Sim {
	t.Helper()
	s, err := New(configWith(kind), logger.Discard())
	if err != nil {
		t.Fatalf("New(%s): %v", kind, err)
	}
	t.Cleanup(s.Dispose)
	return s
}

func TestNewStandsRigOnTerrain(t *testing.T) {
	for _, kind := range []string{engineconfig.TerrainFlat, engineconfig.TerrainSlope, engineconfig.TerrainNoise} {
		t.Run(kind, func(t *testing.T) {
			s := newSim(t, kind)
			if got := s.Controller.State().Mode; got != ragdoll.ModeAnimated {
				t.Fatalf("mode = %s, want animated", got)
			}
			for _, b := range s.Controller.Bindings() {
				p := b.Particle
				if d := clearance(s.Terrain, p); d < -1e-6 {
					t.Errorf("%s starts %.4f inside the terrain", b.Name, -d)
				}
			}
			if names := s.Commands.Names(); len(names) == 0 {
				t.Fatalf("no commands registered")
			}
		})
	}
}

func TestNewErrors(t *testing.T) {
	cfg := configWith("lava")
	if _, err := New(cfg, nil); !errors.Is(err, engineconfig.ErrUnknownTerrain) {
		t.Fatalf("New(lava) err = %v, want ErrUnknownTerrain", err)
	}
	cfg = configWith(engineconfig.TerrainImage)
	cfg.Viewer.Terrain.ImagePath = "testdata/missing.png"
	if _, err := New(cfg, nil); err == nil {
		t.Fatalf("New with a missing height image should fail")
	}
}

func TestSpawnHeight(t *testing.T) {
	tests := []struct {
		name    string
		terrain physics.Terrain
		want    float64
	}{
		{"flat", physics.FlatGround{Height: 2}, 2 + spawnClearance},
		// The plane rises toward +X, so the highest sample is at x = spawnFootprint.
		{"slope", physics.SlopedPlane(math.Pi / 4), spawnFootprint + spawnClearance},
	}
	for _, tt := range tests {
		if got := SpawnHeight(tt.terrain); math.Abs(got-tt.want) > 1e-9 {
			t.Errorf("%s: SpawnHeight = %v, want %v", tt.name, got, tt.want)
		}
	}
}

func TestResetStandsBackUp(t *testing.T) {
	s := newSim(t, engineconfig.TerrainFlat)
	start := s.Focus()

	s.Controller.ApplyImpact(mgl64.Vec3{0, 0, 1500}, nil)
	for i := 0; i < 90; i++ {
		s.Update(HeadlessFrame)
	}
	if near(s.Focus(), start, 1e-3) {
		t.Fatalf("hips did not move after the impact")
	}

	s.Reset()
	if got := s.Controller.State().Mode; got != ragdoll.ModeAnimated {
		t.Fatalf("mode after reset = %s", got)
	}
	if got := s.Focus(); !near(got, start, 1e-9) {
		t.Fatalf("hips after reset = %v, want %v", got, start)
	}
}

func TestResetCommand(t *testing.T) {
	s := newSim(t, engineconfig.TerrainFlat)
	start := s.Focus()
	for _, line := range []string{"cmd impact -x 900", "cmd reset"} {
		if _, err := s.Commands.ExecuteLine(line); err != nil {
			t.Fatalf("%s: %v", line, err)
		}
		s.Update(HeadlessFrame)
	}
	if got := s.Focus(); !near(got, start, 1e-9) {
		t.Fatalf("hips after cmd reset = %v, want %v", got, start)
	}
}

func TestRunHeadless(t *testing.T) {
	tests := []struct {
		kind      string
		tolerance float64
	}{
		{engineconfig.TerrainFlat, 1e-6},
		{engineconfig.TerrainSlope, 1e-6},
		// Height fields are pushed out along a sampled normal, so a particle between grid
		// points can sit a hair below the bilinear surface.
		{engineconfig.TerrainNoise, 0.02},
	}
	for _, tt := range tests {
		t.Run(tt.kind, func(t *testing.T) {
			s := newSim(t, tt.kind)
			start := s.Focus()
			sum := s.RunHeadless(3, mgl64.Vec3{0, 0, 1200})

			if !sum.Finite {
				t.Fatalf("simulation blew up: %s", sum)
			}
			if sum.State.Mode != ragdoll.ModeRagdoll {
				t.Fatalf("mode = %s, want ragdoll", sum.State.Mode)
			}
			if sum.Steps == 0 || sum.Seconds < 3 {
				t.Fatalf("summary = %s", sum)
			}
			if sum.MinClearance < -tt.tolerance {
				t.Errorf("a particle sank %.4f into the terrain", -sum.MinClearance)
			}
			if sum.MaxStretch > 0.05 {
				t.Errorf("constraints stretched by %.1f%%", 100*sum.MaxStretch)
			}
			if sum.Hips[1] >= start[1] {
				t.Errorf("hips at %v did not fall from %v", sum.Hips, start)
			}
		})
	}
}

func TestRunHeadlessWithoutImpact(t *testing.T) {
	s := newSim(t, engineconfig.TerrainFlat)
	sum := s.RunHeadless(0.5, mgl64.Vec3{})
	if sum.State.Mode != ragdoll.ModeRagdoll {
		t.Fatalf("mode = %s, want ragdoll", sum.State.Mode)
	}
	if _, ok := s.Controller.LastImpact(); ok {
		t.Fatalf("no impact should be recorded")
	}
	if !strings.Contains(sum.String(), "mode=ragdoll") {
		t.Fatalf("String() = %q", sum.String())
	}
}

func TestReload(t *testing.T) {
	s := newSim(t, engineconfig.TerrainFlat)
	old := s.Controller

	if err := s.Reload(configWith(engineconfig.TerrainSlope)); err != nil {
		t.Fatalf("Reload(slope): %v", err)
	}
	if _, ok := s.Terrain.(physics.Plane); !ok {
		t.Fatalf("terrain after reload = %T, want physics.Plane", s.Terrain)
	}
	if s.Controller == old {
		t.Fatalf("controller was not rebuilt")
	}
	if _, err := s.Commands.ExecuteLine("cmd ragdoll --on"); err != nil {
		t.Fatalf("cmd ragdoll: %v", err)
	}
	if !s.Controller.HasControl() {
		t.Fatalf("commands still drive the old controller")
	}

	current := s.Controller
	if err := s.Reload(configWith("lava")); err == nil {
		t.Fatalf("Reload(lava) should fail")
	}
	if s.Controller != current || s.Config.Viewer.Terrain.Kind != engineconfig.TerrainSlope {
		t.Fatalf("failed reload replaced the running simulation")
	}
}

// near compares vectors by absolute distance.
func near(got, want mgl64.Vec3, eps float64) bool {
	return got.Sub(want).Len() < eps
}
