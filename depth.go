package glayer

import (
	"fmt"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glayer/glbuild"
)

// DepthKind is the type tag of serialized [Depth] layers.
const DepthKind = "Depth"

// Uniform cell indices of a Depth layer, in declaration order.
const (
	depthAlpha = iota
	depthNear
	depthFar
	depthIsVector
	depthOrigin
	depthColorA
	depthColorB
	numDepthUniforms
)

var depthKeys = [numDepthUniforms]string{
	depthAlpha:    "alpha",
	depthNear:     "near",
	depthFar:      "far",
	depthIsVector: "isVector",
	depthOrigin:   "origin",
	depthColorA:   "colorA",
	depthColorB:   "colorB",
}

var _ Layer = (*Depth)(nil) // Interface implementation compile-time check.

// Depth colors fragments with a gradient from ColorA to ColorB according to their
// distance to a reference point, which is either Origin or the camera position.
// Fragments closer than Near get ColorA and fragments farther than Far get ColorB.
//
// A Depth must not be copied after creation: the host program reads its
// uniform cells by address.
type Depth struct {
	id    ID
	name  string
	mode  BlendMode
	names [numDepthUniforms][]byte

	// Uniform cells.
	alpha    float32
	near     float32
	far      float32
	isVector float32
	origin   ms3.Vec
	colorA   ms3.Vec
	colorB   ms3.Vec
}

// NewDepth creates a Depth layer with a zero value [Builder]. See [Builder.NewDepth].
func NewDepth(settings DepthSettings) *Depth {
	var bld Builder
	return bld.NewDepth(settings)
}

// NewDepth creates a Depth layer. Every unset field of settings takes its value
// from [DefaultDepthSettings] independently of the others.
func (bld *Builder) NewDepth(settings DepthSettings) *Depth {
	def := DefaultDepthSettings()
	d := &Depth{
		id:       NewID(),
		name:     DepthKind,
		mode:     *orDefault(settings.Mode, def.Mode),
		alpha:    *orDefault(settings.Alpha, def.Alpha),
		near:     *orDefault(settings.Near, def.Near),
		far:      *orDefault(settings.Far, def.Far),
		isVector: b2f(*orDefault(settings.IsVector, def.IsVector)),
		origin:   arrToVec(*orDefault(settings.Origin, def.Origin)),
		colorA:   orDefault(settings.ColorA, def.ColorA).Vec(),
		colorB:   orDefault(settings.ColorB, def.ColorB).Vec(),
	}
	if !d.mode.Valid() {
		bld.modeErrorf("depth layer: %v: %d", ErrUnknownBlendMode, uint8(d.mode))
		d.mode = BlendNormal
	}
	for i, key := range depthKeys {
		d.names[i] = AppendUniformName(nil, d.id, key)
	}
	return d
}

func (d *Depth) ID() string { return string(d.id) }
func (d *Depth) Kind() string { return DepthKind }
func (d *Depth) Name() string { return d.name }
func (d *Depth) SetName(n string) { d.name = n }

func (d *Depth) Mode() BlendMode { return d.mode }

// SetMode sets the blend mode. Changing the mode changes the generated source so
// the program must be rebuilt for it to take effect.
func (d *Depth) SetMode(mode BlendMode) error {
	if !mode.Valid() {
		return fmt.Errorf("%w: %d", ErrUnknownBlendMode, uint8(mode))
	}
	d.mode = mode
	return nil
}

func (d *Depth) Alpha() float32 { return d.alpha }
func (d *Depth) SetAlpha(a float32) { d.alpha = a }
func (d *Depth) Near() float32 { return d.near }
func (d *Depth) SetNear(n float32) { d.near = n }
func (d *Depth) Far() float32 { return d.far }
func (d *Depth) SetFar(f float32) { d.far = f }

// Origin is the reference point used when IsVector is true.
func (d *Depth) Origin() ms3.Vec { return d.origin }
func (d *Depth) SetOrigin(o ms3.Vec) { d.origin = o }
func (d *Depth) ColorA() Color { return ColorFromVec(d.colorA) }
func (d *Depth) SetColorA(c Color) { d.colorA = c.Vec() }
func (d *Depth) ColorB() Color { return ColorFromVec(d.colorB) }
func (d *Depth) SetColorB(c Color) { d.colorB = c.Vec() }
func (d *Depth) IsVector() bool { return d.isVector > 0.5 }
func (d *Depth) SetIsVector(v bool) { d.isVector = b2f(v) }

func (d *Depth) AppendVertexVariables(b []byte) []byte {
	return glbuild.AppendVaryingDecl(b, "vec3", AppendVaryingName(nil, d.id, "worldPosition"))
}

// AppendVertexBody appends the world position computation. outputSlot is not used
// since the object position is read directly.
func (d *Depth) AppendVertexBody(b []byte, outputSlot string) []byte {
	b = append(b, '\t')
	b = AppendVaryingName(b, d.id, "worldPosition")
	b = append(b, " = (modelMatrix * vec4(position, 1.0)).xyz;\n"...)
	return b
}

func (d *Depth) AppendFragmentVariables(b []byte) []byte {
	var err error
	for _, obj := range d.AppendShaderObjects(nil) {
		b, err = glbuild.AppendUniformDecl(b, obj)
		if err != nil {
			panic(err)
		}
	}
	return d.AppendVertexVariables(b)
}

func (d *Depth) AppendFragmentBody(b []byte, outputSlot string) []byte {
	id := d.id
	var (
		worldPos = AppendVaryingName(nil, id, "worldPosition")
		base     = AppendLocalName(nil, id, "base")
		dist     = AppendLocalName(nil, id, "dist")
		dep      = AppendLocalName(nil, id, "dep")
		depth    = AppendLocalName(nil, id, "depth")
		u        = &d.names
	)
	b = fmt.Appendf(b, "\tvec3 %s = (%s > 0.5) ? %s : cameraPosition;\n", base, u[depthIsVector], u[depthOrigin])
	b = fmt.Appendf(b, "\tfloat %s = length(%s - %s);\n", dist, worldPos, base)
	// far == near divides by zero, left to the GPU's IEEE-754 arithmetic.
	b = fmt.Appendf(b, "\tfloat %s = (%s - %s) / (%s - %s);\n", dep, dist, u[depthNear], u[depthFar], u[depthNear])
	b = fmt.Appendf(b, "\tvec3 %s = mix(%s, %s, 1.0 - clamp(%s, 0.0, 1.0));\n", depth, u[depthColorB], u[depthColorA], dep)
	b = append(b, '\t')
	b = append(b, outputSlot...)
	b = append(b, " = "...)
	b, err := AppendBlend(b, d.mode, outputSlot, fmt.Sprintf("vec4(%s, %s)", depth, u[depthAlpha]))
	if err != nil {
		panic(err) // Mode is validated on construction and in SetMode.
	}
	b = append(b, ";\n"...)
	return b
}

// AppendShaderObjects appends the layer's uniform cells. The returned handles
// alias the layer so writes through its setters are seen by the host.
func (d *Depth) AppendShaderObjects(objs []glbuild.ShaderObject) []glbuild.ShaderObject {
	objs = appendUniform(objs, d.names[depthAlpha], &d.alpha)
	objs = appendUniform(objs, d.names[depthNear], &d.near)
	objs = appendUniform(objs, d.names[depthFar], &d.far)
	objs = appendUniform(objs, d.names[depthIsVector], &d.isVector)
	objs = appendUniform(objs, d.names[depthOrigin], &d.origin)
	objs = appendUniform(objs, d.names[depthColorA], &d.colorA)
	objs = appendUniform(objs, d.names[depthColorB], &d.colorB)
	return objs
}

func appendUniform[T any](objs []glbuild.ShaderObject, name []byte, cell *T) []glbuild.ShaderObject {
	obj, err := glbuild.MakeUniform(name, cell)
	if err != nil {
		panic(err)
	}
	return append(objs, obj)
}

func orDefault[T any](v, def *T) *T {
	if v != nil {
		return v
	}
	return def
}

func b2f(b bool) float32 {
	if b {
		return 1
	}
	return 0
}

func arrToVec(a [3]float32) ms3.Vec { return ms3.Vec{X: a[0], Y: a[1], Z: a[2]} }
