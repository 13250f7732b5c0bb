package scene

import (
	rl "github.com/gen2brain/raylib-go/raylib"

	"ragdoll-engine/internal/mapgen"
)

// terrainModel is a height field uploaded to the GPU for drawing.
type terrainModel struct {
	model    rl.Model
	position rl.Vector3
}

// newTerrainModel builds a raylib heightmap mesh that lines up with f.HeightAt. Heights are
// quantised to 8 bits for the mesh only; collision keeps the full-precision samples. Requires an
// open window. Returns false when raylib produced no vertices.
func newTerrainModel(f *mapgen.HeightField) (terrainModel, bool) {
	w, d := f.Size()
	top := float32(f.MaxHeight())
	img := rl.GenImageColor(w, d, rl.Black)
	for z := 0; z < d; z++ {
		for x := 0; x < w; x++ {
			var v uint8
			if top > 0 {
				v = uint8(min(max(float32(f.Sample(x, z))/top, 0), 1)*255 + 0.5)
			}
			rl.ImageDrawPixel(img, int32(x), int32(z), rl.NewColor(v, v, v, 255))
		}
	}
	ex, ez := f.Extent()
	mesh := rl.GenMeshHeightmap(*img, rl.NewVector3(float32(ex), top, float32(ez)))
	rl.UnloadImage(img)
	if mesh.VertexCount == 0 {
		return terrainModel{}, false
	}
	o := f.Origin()
	return terrainModel{
		model:    rl.LoadModelFromMesh(mesh),
		position: rl.NewVector3(float32(o[0]), float32(o[1]), float32(o[2])),
	}, true
}

func (t terrainModel) draw() {
	rl.DrawModel(t.model, t.position, 1, rl.NewColor(96, 120, 88, 255))
	rl.DrawModelWires(t.model, t.position, 1, rl.NewColor(60, 80, 55, 255))
}

func (t terrainModel) unload() {
	rl.UnloadModel(t.model)
}
