package mapgen

import (
	"errors"
	"image"
	"image/color"
	"math"
	"path/filepath"
	"testing"

	"github.com/anthonynsimon/bild/imgio"
)

func gradientImage(w, h int) *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			v := uint8(x * 255 / (w - 1))
			img.SetRGBA(x, y, color.RGBA{v, v, v, 255})
		}
	}
	return img
}

func TestHeightFieldFromImage(t *testing.T) {
	f, err := HeightFieldFromImage(gradientImage(3, 2), ImageOptions{TileSize: 1, HeightScale: 4})
	if err != nil {
		t.Fatalf("HeightFieldFromImage: %v", err)
	}
	if w, d := f.Size(); w != 3 || d != 2 {
		t.Fatalf("Size = %d x %d", w, d)
	}
	// Pixels 0, 127, 255 along X.
	want := []float64{0, 127.0 / 255 * 4, 4}
	for x, h := range want {
		for z := 0; z < 2; z++ {
			if got := f.Sample(x, z); math.Abs(got-h) > 1e-5 {
				t.Errorf("Sample(%d,%d) = %v, want %v", x, z, got, h)
			}
		}
	}
}

func TestHeightFieldFromImageBlurSmooths(t *testing.T) {
	img := image.NewRGBA(image.Rect(0, 0, 9, 9))
	for i := range img.Pix {
		img.Pix[i] = 0
		if i%4 == 3 {
			img.Pix[i] = 255
		}
	}
	img.SetRGBA(4, 4, color.RGBA{255, 255, 255, 255})

	sharp, err := HeightFieldFromImage(img, ImageOptions{TileSize: 1, HeightScale: 1})
	if err != nil {
		t.Fatal(err)
	}
	smooth, err := HeightFieldFromImage(img, ImageOptions{TileSize: 1, HeightScale: 1, BlurRadius: 2})
	if err != nil {
		t.Fatal(err)
	}
	if sharp.Sample(4, 4) != 1 {
		t.Fatalf("sharp peak = %v, want 1", sharp.Sample(4, 4))
	}
	if smooth.Sample(4, 4) >= sharp.Sample(4, 4) || smooth.Sample(3, 4) <= 0 {
		t.Fatalf("blur did not spread the peak: center %v, neighbour %v", smooth.Sample(4, 4), smooth.Sample(3, 4))
	}
}

func TestHeightFieldFromImageTooSmall(t *testing.T) {
	if _, err := HeightFieldFromImage(gradientImage(2, 1), DefaultImageOptions()); !errors.Is(err, ErrEmptyField) {
		t.Fatalf("err = %v, want ErrEmptyField", err)
	}
}

func TestLoadHeightFieldImage(t *testing.T) {
	path := filepath.Join(t.TempDir(), "terrain.png")
	if err := imgio.Save(path, gradientImage(5, 4), imgio.PNGEncoder()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	f, err := LoadHeightFieldImage(path, ImageOptions{TileSize: 0.5, HeightScale: 2})
	if err != nil {
		t.Fatalf("LoadHeightFieldImage: %v", err)
	}
	if ex, ez := f.Extent(); ex != 2 || ez != 1.5 {
		t.Fatalf("Extent = %v, %v", ex, ez)
	}
	if got := f.HeightAt(1, 0); math.Abs(got-2) > 1e-5 {
		t.Fatalf("HeightAt(right edge) = %v, want 2", got)
	}

	if _, err := LoadHeightFieldImage(filepath.Join(t.TempDir(), "missing.png"), DefaultImageOptions()); err == nil {
		t.Fatalf("missing file should fail")
	}
}
