package mapgen

import (
	"fmt"
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/effect"
	"github.com/anthonynsimon/bild/imgio"
)

// ImageOptions controls how a picture becomes a height field. White maps to HeightScale and
// black to zero. BlurRadius > 0 smooths the picture first so stair-stepping from 8-bit
// pixels does not show up as bumps in the collision surface.
type ImageOptions struct {
	TileSize    float32 `yaml:"tile_size"`
	HeightScale float32 `yaml:"height_scale"`
	BlurRadius  float64 `yaml:"blur_radius"`
}

// DefaultImageOptions returns one world unit per pixel, 3 units of relief and a light blur.
func DefaultImageOptions() ImageOptions {
	return ImageOptions{TileSize: 1, HeightScale: 3, BlurRadius: 1}
}

// HeightFieldFromImage converts img to grayscale and samples one height per pixel. Image X maps
// to world X and image Y maps to world Z.
func HeightFieldFromImage(img image.Image, opts ImageOptions) (*HeightField, error) {
	b := img.Bounds()
	if b.Dx() < 2 || b.Dy() < 2 {
		return nil, ErrEmptyField
	}
	if !isFinite(opts.HeightScale) || opts.HeightScale < 0 {
		opts.HeightScale = DefaultImageOptions().HeightScale
	}

	src := img
	if opts.BlurRadius > 0 {
		src = blur.Gaussian(src, opts.BlurRadius)
	}
	gray := effect.Grayscale(src)

	gb := gray.Bounds()
	w, d := gb.Dx(), gb.Dy()
	samples := make([]float32, 0, w*d)
	for y := gb.Min.Y; y < gb.Max.Y; y++ {
		for x := gb.Min.X; x < gb.Max.X; x++ {
			v := gray.RGBAAt(x, y).R
			samples = append(samples, float32(v)/255*opts.HeightScale)
		}
	}
	return NewHeightFieldFromSamples(w, d, opts.TileSize, samples)
}

// LoadHeightFieldImage opens a PNG, JPEG or BMP file and converts it with HeightFieldFromImage.
func LoadHeightFieldImage(path string, opts ImageOptions) (*HeightField, error) {
	img, err := imgio.Open(path)
	if err != nil {
		return nil, fmt.Errorf("mapgen: open %s: %w", path, err)
	}
	f, err := HeightFieldFromImage(img, opts)
	if err != nil {
		return nil, fmt.Errorf("mapgen: %s: %w", path, err)
	}
	return f, nil
}
