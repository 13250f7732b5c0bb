package engineconfig

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/jinzhu/copier"
	"gopkg.in/yaml.v3"

	"ragdoll-engine/internal/mapgen"
	"ragdoll-engine/internal/physics"
	"ragdoll-engine/internal/ragdoll"
)

// DefaultPath is the path to the engine config file, relative to the process working directory.
const DefaultPath = "config/engine.yaml"

// Terrain kinds accepted in viewer.terrain.kind.
const (
	TerrainFlat  = "flat"
	TerrainSlope = "slope"
	TerrainNoise = "noise"
	TerrainImage = "image"
)

// ErrUnknownTerrain is returned for a terrain kind other than flat, slope, noise or image.
var ErrUnknownTerrain = errors.New("unknown terrain kind")

// TerrainPrefs selects and shapes the ground the ragdoll falls on.
type TerrainPrefs struct {
	Kind string `yaml:"kind"`
	// Height is the level of flat ground.
	Height float64 `yaml:"height"`
	// SlopeDegrees tilts the slope terrain around the Z axis.
	SlopeDegrees float64                 `yaml:"slope_degrees"`
	Noise        mapgen.HeightMapOptions `yaml:"noise"`
	ImagePath    string                  `yaml:"image_path,omitempty"`
	Image        mapgen.ImageOptions     `yaml:"image"`
}

// Build returns the physics terrain described by the prefs.
func (t TerrainPrefs) Build() (physics.Terrain, error) {
	switch t.Kind {
	case TerrainFlat, "":
		return physics.FlatGround{Height: t.Height}, nil
	case TerrainSlope:
		return physics.SlopedPlane(mgl64.DegToRad(t.SlopeDegrees)), nil
	case TerrainNoise:
		return mapgen.NewHeightField(t.Noise), nil
	case TerrainImage:
		f, err := mapgen.LoadHeightFieldImage(t.ImagePath, t.Image)
		if err != nil {
			return nil, fmt.Errorf("engineconfig: terrain: %w", err)
		}
		return f, nil
	}
	return nil, fmt.Errorf("engineconfig: terrain %q: %w", t.Kind, ErrUnknownTerrain)
}

// ViewerPrefs holds viewer-only preferences (debug overlays, grid, terrain). Persisted across runs.
type ViewerPrefs struct {
	ShowFPS         bool         `yaml:"show_fps"`
	ShowMemAlloc    bool         `yaml:"show_memalloc"`
	GridVisible     bool         `yaml:"grid_visible"`
	ShowConstraints bool         `yaml:"show_constraints"`
	Terrain         TerrainPrefs `yaml:"terrain"`
}

// Config is the whole engine config file.
type Config struct {
	Physics physics.Config  `yaml:"physics"`
	Ragdoll ragdoll.Profile `yaml:"ragdoll"`
	Viewer  ViewerPrefs     `yaml:"viewer"`
}

// Default returns the default solver settings, the default humanoid profile, and a viewer with
// constraints drawn over flat ground.
func Default() Config {
	return Config{
		Physics: physics.DefaultConfig(),
		Ragdoll: ragdoll.DefaultProfile(),
		Viewer: ViewerPrefs{
			ShowFPS:         false,
			ShowMemAlloc:    false,
			GridVisible:     true,
			ShowConstraints: true,
			Terrain: TerrainPrefs{
				Kind:         TerrainFlat,
				SlopeDegrees: 15,
				Noise:        mapgen.DefaultHeightMapOptions(),
				Image:        mapgen.DefaultImageOptions(),
			},
		},
	}
}

// Load reads the config at path. Values in the file override the defaults; anything it leaves
// out or sets out of range keeps its default. A missing file returns Default() and does not
// create one. Invalid YAML or unknown bones, joints or terrain kinds are errors.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err != nil {
		return cfg, fmt.Errorf("engineconfig: read %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Default(), fmt.Errorf("engineconfig: parse %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return Default(), fmt.Errorf("engineconfig: %s: %w", path, err)
	}
	return cfg.Normalize(), nil
}

// Save writes cfg to path as YAML, creating the directory if needed.
func Save(path string, cfg Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("engineconfig: create dir: %w", err)
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("engineconfig: encode: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("engineconfig: write %s: %w", path, err)
	}
	return nil
}

// Validate reports entries that cannot be repaired with defaults.
func (c Config) Validate() error {
	if err := c.Ragdoll.Validate(); err != nil {
		return err
	}
	switch c.Viewer.Terrain.Kind {
	case TerrainFlat, TerrainSlope, TerrainNoise, TerrainImage, "":
		return nil
	}
	return fmt.Errorf("terrain %q: %w", c.Viewer.Terrain.Kind, ErrUnknownTerrain)
}

// Normalize returns a copy with out-of-range solver, profile and noise values replaced by defaults.
func (c Config) Normalize() Config {
	out := c.Clone()
	out.Physics = c.Physics.Normalize()
	out.Ragdoll = c.Ragdoll.Normalize()
	if out.Viewer.Terrain.Kind == "" {
		out.Viewer.Terrain.Kind = TerrainFlat
	}
	out.Viewer.Terrain.Noise = c.Viewer.Terrain.Noise.Normalize()
	return out
}

// Clone returns a deep copy; the profile maps are not shared.
func (c Config) Clone() Config {
	var out Config
	if err := copier.CopyWithOption(&out, &c, copier.Option{DeepCopy: true}); err != nil {
		out = c
	}
	out.Ragdoll = c.Ragdoll.Clone()
	return out
}
