package mapgen

import (
	"errors"
	"math"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"ragdoll-engine/internal/physics"
)

var _ physics.NormalTerrain = (*HeightField)(nil)

func TestHeightMapOptionsNormalize(t *testing.T) {
	d := DefaultHeightMapOptions()
	got := HeightMapOptions{Width: 1, TileSize: float32(math.NaN()), HeightScale: -1, Seed: 7}.Normalize()
	if got.Width != d.Width || got.Depth != d.Depth || got.TileSize != d.TileSize || got.HeightScale != d.HeightScale {
		t.Fatalf("Normalize = %+v", got)
	}
	if got.Octaves != d.Octaves || got.Frequency != d.Frequency || got.Lacunarity != d.Lacunarity || got.Gain != d.Gain {
		t.Fatalf("noise shape not defaulted: %+v", got)
	}
	if got.Seed != 7 {
		t.Fatalf("Seed = %d, want 7", got.Seed)
	}
}

func TestNewHeightFieldDeterministic(t *testing.T) {
	opts := DefaultHeightMapOptions()
	opts.Seed = 42
	a := NewHeightField(opts)
	b := NewHeightField(opts)
	opts.Seed = 43
	c := NewHeightField(opts)

	w, d := a.Size()
	if w != opts.Width || d != opts.Depth {
		t.Fatalf("Size = %d x %d", w, d)
	}
	differs := false
	for z := 0; z < d; z++ {
		for x := 0; x < w; x++ {
			h := a.Sample(x, z)
			if h != b.Sample(x, z) {
				t.Fatalf("same seed differs at (%d,%d)", x, z)
			}
			if h < 0 || h > float64(opts.HeightScale) {
				t.Fatalf("height %v outside [0, %v]", h, opts.HeightScale)
			}
			if h != c.Sample(x, z) {
				differs = true
			}
		}
	}
	if !differs {
		t.Fatalf("different seeds produced identical fields")
	}
	if a.MaxHeight() <= 0 {
		t.Fatalf("MaxHeight = %v", a.MaxHeight())
	}
}

func TestHeightFieldGeometry(t *testing.T) {
	// 3x3 samples, 2 units apart, centered on the origin.
	f, err := NewHeightFieldFromSamples(3, 3, 2, []float32{
		0, 1, 2,
		1, 2, 3,
		2, 3, 8,
	})
	if err != nil {
		t.Fatalf("NewHeightFieldFromSamples: %v", err)
	}
	if o := f.Origin(); o != (mgl64.Vec3{-2, 0, -2}) {
		t.Fatalf("Origin = %v", o)
	}
	if ex, ez := f.Extent(); ex != 4 || ez != 4 {
		t.Fatalf("Extent = %v, %v", ex, ez)
	}

	tests := []struct {
		name string
		x, z float64
		want float64
	}{
		{"corner sample", -2, -2, 0},
		{"center sample", 0, 0, 2},
		{"far corner", 2, 2, 8},
		{"edge midpoint", -1, -2, 0.5},
		{"cell center", 1, 1, (2 + 3 + 3 + 8) / 4.0},
		{"clamped low", -50, -50, 0},
		{"clamped high", 50, 50, 8},
		{"clamped x only", 50, -2, 2},
		{"nan x clamps to the first column", math.NaN(), 0, 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := f.HeightAt(tt.x, tt.z); math.Abs(got-tt.want) > 1e-9 {
				t.Fatalf("HeightAt(%v, %v) = %v, want %v", tt.x, tt.z, got, tt.want)
			}
		})
	}
}

func TestHeightFieldNormals(t *testing.T) {
	flat, err := NewHeightFieldFromSamples(4, 4, 1, make([]float32, 16))
	if err != nil {
		t.Fatal(err)
	}
	if n := flat.NormalAt(0.3, -0.2); !near(n, mgl64.Vec3{0, 1, 0}, 1e-12) {
		t.Fatalf("flat normal = %v", n)
	}

	// Ramp rising 0.5 per unit along +X.
	samples := make([]float32, 0, 25)
	for z := 0; z < 5; z++ {
		for x := 0; x < 5; x++ {
			samples = append(samples, float32(x)*0.5)
		}
	}
	ramp, err := NewHeightFieldFromSamples(5, 5, 1, samples)
	if err != nil {
		t.Fatal(err)
	}
	want := mgl64.Vec3{-0.5, 1, 0}.Normalize()
	if n := ramp.NormalAt(0, 0); !near(n, want, 1e-9) {
		t.Fatalf("ramp normal = %v, want %v", n, want)
	}
	if l := ramp.NormalAt(10, 10).Len(); math.Abs(l-1) > 1e-12 {
		t.Fatalf("normal outside the grid has length %v", l)
	}
}

func TestNewHeightFieldFromSamplesRejectsBadInput(t *testing.T) {
	tests := []struct {
		name    string
		w, d    int
		samples []float32
	}{
		{"too narrow", 1, 3, []float32{0, 0, 0}},
		{"length mismatch", 2, 2, []float32{0, 0, 0}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := NewHeightFieldFromSamples(tt.w, tt.d, 1, tt.samples); !errors.Is(err, ErrEmptyField) {
				t.Fatalf("err = %v, want ErrEmptyField", err)
			}
		})
	}
}

func TestParticleRestsOnHeightField(t *testing.T) {
	opts := DefaultHeightMapOptions()
	opts.Seed = 3
	field := NewHeightField(opts)

	w := physics.NewWorld(physics.DefaultConfig())
	w.SetTerrain(field)
	p := w.AddParticle(physics.NewParticle(mgl64.Vec3{1.3, field.MaxHeight() + 2, -2.7}, 1, 0.1))

	for i := 0; i < 120; i++ {
		w.Update(1.0 / 60.0)
		if h := field.HeightAt(p.Position[0], p.Position[2]); p.Position[1] < h {
			t.Fatalf("step %d: particle at %v is below the surface %v", i, p.Position, h)
		}
	}
}

// near compares vectors by absolute distance.
func near(got, want mgl64.Vec3, eps float64) bool {
	return got.Sub(want).Len() < eps
}
