package scene

import (
	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl64"

	"ragdoll-engine/internal/mapgen"
	"ragdoll-engine/internal/physics"
)

const (
	gridExtent     = 50
	gridMinorStep  = 1
	gridMajorStep  = 10
	gridMinorAlpha = 50
	gridMajorAlpha = 120
	axisLineAlpha  = 220

	// terrainLineExtent and terrainLineStep shape the wire grid drawn over analytic terrains.
	terrainLineExtent = 20
	terrainLineStep   = 1

	// followRate is the fraction of the remaining distance the camera target covers per second.
	followRate = 4.0
)

// Scene holds a 3D camera and draws the 3D world. Update runs camera logic; Draw renders between
// BeginMode3D and EndMode3D. Based on raylib examples/core/core_3d_camera_free.
type Scene struct {
	Camera      rl.Camera3D
	GridVisible bool
	FreeCamera  bool

	terrain      physics.Terrain
	field        *mapgen.HeightField
	model        terrainModel
	modelLoaded  bool
	modelPending bool
	followTarget mgl64.Vec3
	following    bool
	cursorLocked bool
}

// New returns a scene with a perspective camera looking at the origin from (4,3,6). Grid is
// visible by default and the camera orbits the followed target.
func New() *Scene {
	s := &Scene{}
	s.Camera.Position = rl.NewVector3(4, 3, 6)
	s.Camera.Target = rl.NewVector3(0, 1, 0)
	s.Camera.Up = rl.NewVector3(0, 1, 0)
	s.Camera.Fovy = 45
	s.Camera.Projection = rl.CameraPerspective
	s.GridVisible = true
	return s
}

// SetGridVisible sets whether the editor grid is drawn.
func (s *Scene) SetGridVisible(visible bool) {
	s.GridVisible = visible
}

// SetTerrain sets the ground drawn under the ragdoll. Height fields get a GPU mesh, built on the
// first Draw so it happens after the window and GL context exist. Other terrains are drawn as a
// wire grid following HeightAt.
func (s *Scene) SetTerrain(t physics.Terrain) {
	s.unloadModel()
	s.terrain = t
	s.field = nil
	if f, ok := t.(*mapgen.HeightField); ok {
		s.field = f
		s.modelPending = true
	}
}

// Follow moves the camera target toward p over the next frames.
func (s *Scene) Follow(p mgl64.Vec3) {
	s.followTarget = p
	s.following = true
}

// Update runs once per frame with the frame time in seconds. In free camera mode raylib's
// CameraFree controls are used with a captured cursor; otherwise the camera orbits the followed
// target and keeps its offset.
func (s *Scene) Update(dt float32) {
	if s.FreeCamera {
		if !s.cursorLocked {
			rl.DisableCursor()
			s.cursorLocked = true
		}
		rl.UpdateCamera(&s.Camera, rl.CameraFree)
		return
	}
	if s.cursorLocked {
		rl.EnableCursor()
		s.cursorLocked = false
	}
	if !s.following {
		return
	}
	k := min(float32(followRate)*dt, 1)
	target := rl.NewVector3(float32(s.followTarget[0]), float32(s.followTarget[1]), float32(s.followTarget[2]))
	step := rl.Vector3Scale(rl.Vector3Subtract(target, s.Camera.Target), k)
	s.Camera.Target = rl.Vector3Add(s.Camera.Target, step)
	s.Camera.Position = rl.Vector3Add(s.Camera.Position, step)
}

// Draw renders the 3D scene: terrain, then the editor grid when GridVisible is true, then world
// (e.g. debug drawing of the ragdoll) inside the same 3D pass. Call after ClearBackground and
// before 2D overlays.
func (s *Scene) Draw(world func()) {
	s.ensureModelLoaded()
	rl.BeginMode3D(s.Camera)
	switch {
	case s.modelLoaded:
		s.model.draw()
	case s.terrain != nil:
		drawTerrainLines(s.terrain)
	}
	if s.GridVisible {
		drawEditorGrid()
	}
	if world != nil {
		world()
	}
	rl.EndMode3D()
}

// Unload frees GPU resources held by the scene.
func (s *Scene) Unload() {
	s.unloadModel()
}

func (s *Scene) ensureModelLoaded() {
	if !s.modelPending || s.field == nil {
		return
	}
	s.modelPending = false
	s.model, s.modelLoaded = newTerrainModel(s.field)
}

func (s *Scene) unloadModel() {
	if s.modelLoaded {
		s.model.unload()
	}
	s.modelLoaded = false
	s.modelPending = false
}

// drawTerrainLines draws a wire grid that follows t around the origin.
func drawTerrainLines(t physics.Terrain) {
	c := rl.NewColor(120, 160, 110, 255)
	point := func(x, z float64) rl.Vector3 {
		return rl.NewVector3(float32(x), float32(t.HeightAt(x, z)), float32(z))
	}
	for i := -terrainLineExtent; i <= terrainLineExtent; i += terrainLineStep {
		a := float64(i)
		for j := -terrainLineExtent; j < terrainLineExtent; j += terrainLineStep {
			b := float64(j)
			rl.DrawLine3D(point(a, b), point(a, b+terrainLineStep), c)
			rl.DrawLine3D(point(b, a), point(b+terrainLineStep, a), c)
		}
	}
}

// drawEditorGrid draws a grid on the XZ plane with major/minor lines and axis lines.
// Reuses start/end vectors to avoid per-frame allocations in the hot loop.
func drawEditorGrid() {
	minor := rl.NewColor(128, 128, 128, gridMinorAlpha)
	major := rl.NewColor(160, 160, 160, gridMajorAlpha)

	var start, end rl.Vector3
	for i := -gridExtent; i <= gridExtent; i += gridMinorStep {
		c := major
		if i%gridMajorStep != 0 {
			c = minor
		}
		start.X, start.Y, start.Z = float32(i), 0, -gridExtent
		end.X, end.Y, end.Z = float32(i), 0, gridExtent
		rl.DrawLine3D(start, end, c)
		start.X, start.Y, start.Z = -gridExtent, 0, float32(i)
		end.X, end.Y, end.Z = gridExtent, 0, float32(i)
		rl.DrawLine3D(start, end, c)
	}

	axes := [3]struct {
		dir rl.Vector3
		col rl.Color
	}{
		{rl.NewVector3(1, 0, 0), rl.NewColor(220, 80, 80, axisLineAlpha)},
		{rl.NewVector3(0, 1, 0), rl.NewColor(80, 220, 80, axisLineAlpha)},
		{rl.NewVector3(0, 0, 1), rl.NewColor(80, 80, 220, axisLineAlpha)},
	}
	for _, a := range axes {
		rl.DrawLine3D(rl.Vector3Scale(a.dir, -gridExtent), rl.Vector3Scale(a.dir, gridExtent), a.col)
	}
}
