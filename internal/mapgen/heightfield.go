package mapgen

import (
	"errors"
	"math"
	"time"

	"github.com/go-gl/mathgl/mgl64"
)

// ErrEmptyField is returned when a height field would have fewer than 2x2 samples.
var ErrEmptyField = errors.New("mapgen: height field needs at least 2x2 samples")

// HeightMapOptions controls procedural height map generation.
// Width/Depth are sample counts on X/Z; TileSize is the world spacing between samples.
// HeightScale is the maximum height of the terrain in world units.
// Seed controls randomness; Seed == 0 uses a time-based seed.
// Octaves, Frequency, Lacunarity, and Gain control the fractal noise shape.
type HeightMapOptions struct {
	Width       int     `yaml:"width"`
	Depth       int     `yaml:"depth"`
	TileSize    float32 `yaml:"tile_size"`
	HeightScale float32 `yaml:"height_scale"`

	Seed       int64   `yaml:"seed"`
	Octaves    int     `yaml:"octaves"`
	Frequency  float32 `yaml:"frequency"`
	Lacunarity float32 `yaml:"lacunarity"`
	Gain       float32 `yaml:"gain"`
}

// DefaultHeightMapOptions returns a sane default configuration.
func DefaultHeightMapOptions() HeightMapOptions {
	return HeightMapOptions{
		Width:       32,
		Depth:       32,
		TileSize:    1.0,
		HeightScale: 3.0,
		Seed:        0,
		Octaves:     4,
		Frequency:   0.08,
		Lacunarity:  2.0,
		Gain:        0.5,
	}
}

// Normalize replaces out-of-range values with the defaults. A zero seed stays zero.
func (o HeightMapOptions) Normalize() HeightMapOptions {
	d := DefaultHeightMapOptions()
	if o.Width <= 1 {
		o.Width = d.Width
	}
	if o.Depth <= 1 {
		o.Depth = d.Depth
	}
	if !isFinite(o.TileSize) || o.TileSize <= 0 {
		o.TileSize = d.TileSize
	}
	if !isFinite(o.HeightScale) || o.HeightScale < 0 {
		o.HeightScale = d.HeightScale
	}
	if o.Octaves <= 0 {
		o.Octaves = d.Octaves
	}
	if !isFinite(o.Frequency) || o.Frequency <= 0 {
		o.Frequency = d.Frequency
	}
	if !isFinite(o.Lacunarity) || o.Lacunarity <= 0 {
		o.Lacunarity = d.Lacunarity
	}
	if !isFinite(o.Gain) || o.Gain <= 0 {
		o.Gain = d.Gain
	}
	return o
}

// HeightField is a regular grid of heights centered on the world origin in XZ. Queries between
// samples are bilinear; queries outside the grid clamp to the border. It satisfies
// physics.NormalTerrain and is read-only after construction, so a field may be shared between
// worlds.
type HeightField struct {
	width, depth int
	tileSize     float64
	minX, minZ   float64
	heights      []float32
	maxHeight    float32
}

// NewHeightField samples seeded fractal value noise into a Width x Depth grid. Heights lie in
// [0, HeightScale]. The same non-zero seed always yields the same field.
func NewHeightField(opts HeightMapOptions) *HeightField {
	opts = opts.Normalize()
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	f := newField(opts.Width, opts.Depth, opts.TileSize)
	for z := 0; z < opts.Depth; z++ {
		for x := 0; x < opts.Width; x++ {
			h := fractalValueNoise2D(float32(x)*opts.Frequency, float32(z)*opts.Frequency, seed, opts.Octaves, opts.Lacunarity, opts.Gain)
			f.set(x, z, clamp01(h)*opts.HeightScale)
		}
	}
	return f
}

// NewHeightFieldFromSamples builds a field from row-major samples (index x + z*width).
func NewHeightFieldFromSamples(width, depth int, tileSize float32, samples []float32) (*HeightField, error) {
	if width < 2 || depth < 2 || len(samples) != width*depth {
		return nil, ErrEmptyField
	}
	if !isFinite(tileSize) || tileSize <= 0 {
		tileSize = 1
	}
	f := newField(width, depth, tileSize)
	for i, h := range samples {
		if !isFinite(h) {
			h = 0
		}
		f.set(i%width, i/width, h)
	}
	return f, nil
}

func newField(width, depth int, tileSize float32) *HeightField {
	ts := float64(tileSize)
	return &HeightField{
		width:    width,
		depth:    depth,
		tileSize: ts,
		minX:     -float64(width-1) * ts * 0.5,
		minZ:     -float64(depth-1) * ts * 0.5,
		heights:  make([]float32, width*depth),
	}
}

func (f *HeightField) set(x, z int, h float32) {
	f.heights[x+z*f.width] = h
	if h > f.maxHeight {
		f.maxHeight = h
	}
}

func (f *HeightField) at(x, z int) float64 {
	return float64(f.heights[x+z*f.width])
}

// Size returns the sample counts on X and Z.
func (f *HeightField) Size() (width, depth int) { return f.width, f.depth }

func (f *HeightField) TileSize() float64 { return f.tileSize }

// Extent returns the world-space size of the grid on X and Z.
func (f *HeightField) Extent() (x, z float64) {
	return float64(f.width-1) * f.tileSize, float64(f.depth-1) * f.tileSize
}

// Origin returns the world position of sample (0, 0) at height zero.
func (f *HeightField) Origin() mgl64.Vec3 { return mgl64.Vec3{f.minX, 0, f.minZ} }

// MaxHeight returns the highest sample.
func (f *HeightField) MaxHeight() float64 { return float64(f.maxHeight) }

// Sample returns the stored height at grid index (x, z), clamped to the grid.
func (f *HeightField) Sample(x, z int) float64 {
	return f.at(clampIndex(x, f.width), clampIndex(z, f.depth))
}

// HeightAt returns the bilinearly interpolated height under (x, z).
func (f *HeightField) HeightAt(x, z float64) float64 {
	gx := clampGrid((x-f.minX)/f.tileSize, f.width)
	gz := clampGrid((z-f.minZ)/f.tileSize, f.depth)

	x0, z0 := int(gx), int(gz)
	x1, z1 := min(x0+1, f.width-1), min(z0+1, f.depth-1)
	tx, tz := gx-float64(x0), gz-float64(z0)

	h0 := f.at(x0, z0) + (f.at(x1, z0)-f.at(x0, z0))*tx
	h1 := f.at(x0, z1) + (f.at(x1, z1)-f.at(x0, z1))*tx
	return h0 + (h1-h0)*tz
}

// NormalAt estimates the surface normal with central differences one tile apart.
func (f *HeightField) NormalAt(x, z float64) mgl64.Vec3 {
	e := f.tileSize
	dx := f.HeightAt(x-e, z) - f.HeightAt(x+e, z)
	dz := f.HeightAt(x, z-e) - f.HeightAt(x, z+e)
	n := mgl64.Vec3{dx, 2 * e, dz}
	return n.Normalize()
}

func clampGrid(g float64, n int) float64 {
	if math.IsNaN(g) || g < 0 {
		return 0
	}
	if hi := float64(n - 1); g > hi {
		return hi
	}
	return g
}

func clampIndex(i, n int) int {
	return max(0, min(i, n-1))
}
