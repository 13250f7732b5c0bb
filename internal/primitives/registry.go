package primitives

import (
	"math"

	rl "github.com/gen2brain/raylib-go/raylib"
	"github.com/go-gl/mathgl/mgl64"
)

// Primitive kinds held by a Registry.
const (
	Sphere   = "sphere"
	Cylinder = "cylinder"
)

const (
	sphereRings     = 12
	sphereSlices    = 16
	cylinderSlices  = 12
	lightIntensity  = float32(0.8)
	parallelEpsilon = 1e-9
)

var (
	ambient    = [4]float32{0.22, 0.24, 0.28, 1.0}
	lightColor = [3]float32{1.0, 0.97, 0.92}
)

// cached holds mesh and material for a primitive kind. Created lazily on first draw.
type cached struct {
	mesh rl.Mesh
	mtl  rl.Material
}

// Registry draws lit spheres and limb cylinders for the ragdoll body. Meshes are created on
// first use so that GPU resources are allocated after the window/OpenGL context exists.
type Registry struct {
	cache    map[string]cached
	shader   rl.Shader
	loaded   bool
	viewPos  [3]float32
	lightDir [3]float32
}

// NewRegistry returns a registry with no meshes and light coming from above-right.
func NewRegistry() *Registry {
	return &Registry{
		cache:    make(map[string]cached),
		lightDir: [3]float32{0.5, 1, 0.5},
	}
}

// SetView sets camera position and direction-to-light for this frame. Call once per frame
// before drawing.
func (r *Registry) SetView(viewPos, lightDir [3]float32) {
	r.viewPos = viewPos
	r.lightDir = lightDir
}

func (r *Registry) ensure(kind string) (cached, bool) {
	if c, ok := r.cache[kind]; ok {
		return c, true
	}
	if !r.loaded {
		r.shader = rl.LoadShaderFromMemory(litVS, litFS)
		r.loaded = true
	}
	var mesh rl.Mesh
	switch kind {
	case Sphere:
		// Unit radius so the draw scale is the particle radius.
		mesh = rl.GenMeshSphere(1, sphereRings, sphereSlices)
	case Cylinder:
		// Unit radius, unit height, base at the origin, growing along +Y.
		mesh = rl.GenMeshCylinder(1, 1, cylinderSlices)
	default:
		return cached{}, false
	}
	mtl := rl.LoadMaterialDefault()
	if rl.IsShaderValid(r.shader) {
		mtl.Shader = r.shader
	}
	c := cached{mesh: mesh, mtl: mtl}
	r.cache[kind] = c
	return c, true
}

// DrawSphere draws a lit sphere. Must be called between BeginMode3D and EndMode3D.
func (r *Registry) DrawSphere(center mgl64.Vec3, radius float64, col rl.Color) {
	c, ok := r.ensure(Sphere)
	if !ok || radius <= 0 {
		return
	}
	s := float32(radius)
	transform := rl.MatrixMultiply(rl.MatrixScale(s, s, s), translate(center))
	r.draw(c, transform, col)
}

// DrawLimb draws a lit cylinder of the given radius from a to b. Must be called between
// BeginMode3D and EndMode3D.
func (r *Registry) DrawLimb(a, b mgl64.Vec3, radius float64, col rl.Color) {
	c, ok := r.ensure(Cylinder)
	if !ok || radius <= 0 {
		return
	}
	axis := b.Sub(a)
	length := axis.Len()
	if length < parallelEpsilon {
		return
	}
	s := float32(radius)
	transform := rl.MatrixMultiply(rl.MatrixScale(s, float32(length), s), alignY(axis.Mul(1/length)))
	transform = rl.MatrixMultiply(transform, translate(a))
	r.draw(c, transform, col)
}

// Unload frees GPU resources.
func (r *Registry) Unload() {
	for kind, c := range r.cache {
		rl.UnloadMesh(&c.mesh)
		delete(r.cache, kind)
	}
	if r.loaded && rl.IsShaderValid(r.shader) {
		rl.UnloadShader(r.shader)
	}
	r.loaded = false
}

func (r *Registry) draw(c cached, transform rl.Matrix, col rl.Color) {
	if albedo := c.mtl.GetMap(rl.MapAlbedo); albedo != nil {
		albedo.Color = col
	}
	r.setLitShaderUniforms(c.mtl.Shader)
	rl.DrawMesh(c.mesh, c.mtl, transform)
}

func translate(p mgl64.Vec3) rl.Matrix {
	return rl.MatrixTranslate(float32(p[0]), float32(p[1]), float32(p[2]))
}

// alignY returns the rotation taking +Y onto the unit vector dir.
func alignY(dir mgl64.Vec3) rl.Matrix {
	up := mgl64.Vec3{0, 1, 0}
	cosA := mgl64.Clamp(up.Dot(dir), -1, 1)
	axis := up.Cross(dir)
	if axis.Len() < parallelEpsilon {
		if cosA > 0 {
			return rl.MatrixIdentity()
		}
		axis = mgl64.Vec3{1, 0, 0}
	}
	axis = axis.Normalize()
	return rl.MatrixRotate(rl.NewVector3(float32(axis[0]), float32(axis[1]), float32(axis[2])), float32(math.Acos(cosA)))
}

// setLitShaderUniforms sets viewPos, lightDir, ambient and light color/intensity on the given
// shader (cgo-safe: local arrays).
func (r *Registry) setLitShaderUniforms(shader rl.Shader) {
	if !rl.IsShaderValid(shader) {
		return
	}
	viewPos := r.viewPos
	lightDir := r.lightDir
	amb := ambient
	light := lightColor
	if loc := rl.GetShaderLocation(shader, "viewPos"); loc >= 0 {
		rl.SetShaderValueV(shader, loc, viewPos[:], rl.ShaderUniformVec3, 1)
	}
	if loc := rl.GetShaderLocation(shader, "lightDir"); loc >= 0 {
		rl.SetShaderValueV(shader, loc, lightDir[:], rl.ShaderUniformVec3, 1)
	}
	if loc := rl.GetShaderLocation(shader, "ambient"); loc >= 0 {
		rl.SetShaderValueV(shader, loc, amb[:], rl.ShaderUniformVec4, 1)
	}
	if loc := rl.GetShaderLocation(shader, "lightColor"); loc >= 0 {
		rl.SetShaderValueV(shader, loc, light[:], rl.ShaderUniformVec3, 1)
	}
	if loc := rl.GetShaderLocation(shader, "lightIntensity"); loc >= 0 {
		rl.SetShaderValue(shader, loc, []float32{lightIntensity}, rl.ShaderUniformFloat)
	}
}

// Directional light with ambient and a soft rim so limbs read against the terrain.
const (
	litVS = `#version 330
in vec3 vertexPosition;
in vec3 vertexNormal;
uniform mat4 mvp;
uniform mat4 matModel;
uniform mat4 matNormal;
out vec3 fragPosition;
out vec3 fragNormal;
void main() {
  fragPosition = vec3(matModel * vec4(vertexPosition, 1.0));
  fragNormal = normalize(vec3(matNormal * vec4(vertexNormal, 0.0)));
  gl_Position = mvp * vec4(vertexPosition, 1.0);
}
`
	litFS = `#version 330
in vec3 fragPosition;
in vec3 fragNormal;
uniform vec4 colDiffuse;
uniform vec3 viewPos;
uniform vec3 lightDir;
uniform vec4 ambient;
uniform vec3 lightColor;
uniform float lightIntensity;
out vec4 finalColor;
void main() {
  vec3 N = normalize(fragNormal);
  vec3 L = normalize(lightDir);
  vec3 V = normalize(viewPos - fragPosition);
  float diff = max(dot(N, L), 0.0) * lightIntensity;
  float rim = pow(1.0 - max(dot(N, V), 0.0), 3.0) * 0.25;
  vec3 rgb = colDiffuse.rgb * (ambient.rgb + lightColor * diff) + vec3(rim);
  finalColor = vec4(rgb, colDiffuse.a);
}
`
)
