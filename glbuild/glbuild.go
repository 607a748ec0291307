package glbuild

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strconv"
	"unsafe"

	"github.com/soypat/geometry/ms3"
)

const VersionStr = "#version 330 core\n"

// Shader is a composable effect layer. It contributes variables and statements
// to a vertex and a fragment program assembled from many layers. All generated
// symbols must be namespaced by the layer's ID so layers never collide.
type Shader interface {
	// ID returns the layer's process-unique identifier used to namespace its symbols.
	ID() string
	// AppendVertexVariables appends varying declarations needed at the vertex stage.
	AppendVertexVariables(b []byte) []byte
	// AppendVertexBody appends statements computing the layer's varyings.
	// outputSlot names the vertex position variable shared by all layers.
	AppendVertexBody(b []byte, outputSlot string) []byte
	// AppendFragmentVariables appends uniform and varying declarations consumed at the fragment stage.
	AppendFragmentVariables(b []byte) []byte
	// AppendFragmentBody appends statements computing the layer's color and
	// reassigning outputSlot with the blend of its prior value and the new color.
	AppendFragmentBody(b []byte, outputSlot string) []byte
	// AppendShaderObjects appends the uniform cells of the layer. See [ShaderObject].
	AppendShaderObjects(objs []ShaderObject) []ShaderObject
}

// ShaderObject is a handle to a uniform cell owned by a [Shader].
// Data points at the cell itself, so the host reads the live value on every
// upload and value changes never require recompiling the program.
type ShaderObject struct {
	// NamePtr is the GLSL symbol name of the uniform.
	NamePtr []byte
	// Element is the Go type of the cell.
	Element reflect.Type
	// Data points to the cell.
	Data unsafe.Pointer
}

// MakeUniform creates a uniform handle named namePtr over the cell pointed to by data.
func MakeUniform[T any](namePtr []byte, data *T) (obj ShaderObject, err error) {
	if data == nil {
		return ShaderObject{}, errors.New("nil uniform cell")
	}
	var z T
	obj = ShaderObject{
		NamePtr: namePtr,
		Element: reflect.TypeOf(z),
		Data:    unsafe.Pointer(data),
	}
	err = obj.Validate()
	if err != nil {
		return ShaderObject{}, err
	}
	return obj, nil
}

func (obj ShaderObject) Validate() error {
	if len(obj.NamePtr) == 0 {
		return errors.New("shader object zero-length name")
	} else if obj.Data == nil {
		return errors.New("shader object nil data pointer")
	}
	_, err := glTypename(obj.Element)
	return err
}

// Name returns the uniform's GLSL symbol.
func (obj ShaderObject) Name() string { return string(obj.NamePtr) }

// GLType returns the GLSL type of the uniform, i.e: "float", "vec3".
func (obj ShaderObject) GLType() (string, error) { return glTypename(obj.Element) }

// Value returns a copy of the cell's current value.
func (obj ShaderObject) Value() any {
	if obj.Data == nil || obj.Element == nil {
		return nil
	}
	return reflect.NewAt(obj.Element, obj.Data).Elem().Interface()
}

// Float32 returns the current value of a float uniform. Panics if the uniform is not a float32 cell.
func (obj ShaderObject) Float32() float32 {
	obj.mustBe(reflect.TypeOf(float32(0)))
	return *(*float32)(obj.Data)
}

// Vec3 returns the current value of a vec3 uniform. Panics if the uniform is not a [ms3.Vec] cell.
func (obj ShaderObject) Vec3() ms3.Vec {
	obj.mustBe(reflect.TypeOf(ms3.Vec{}))
	return *(*ms3.Vec)(obj.Data)
}

// Vec4 returns the current value of a vec4 uniform. Panics if the uniform is not a [4]float32 cell.
func (obj ShaderObject) Vec4() [4]float32 {
	obj.mustBe(reflect.TypeOf([4]float32{}))
	return *(*[4]float32)(obj.Data)
}

// Int32 returns the current value of an int uniform. Panics if the uniform is not an int32 cell.
func (obj ShaderObject) Int32() int32 {
	obj.mustBe(reflect.TypeOf(int32(0)))
	return *(*int32)(obj.Data)
}

// Uint32 returns the current value of a uint uniform. Panics if the uniform is not a uint32 cell.
func (obj ShaderObject) Uint32() uint32 {
	obj.mustBe(reflect.TypeOf(uint32(0)))
	return *(*uint32)(obj.Data)
}

// Mat4 returns the current value of a mat4 uniform in column major order, as
// OpenGL expects it. Panics if the uniform is not a [ms3.Mat4] cell.
func (obj ShaderObject) Mat4() [16]float32 {
	obj.mustBe(reflect.TypeOf(ms3.Mat4{}))
	return (*(*ms3.Mat4)(obj.Data)).Transpose().Array()
}

func (obj ShaderObject) mustBe(tp reflect.Type) {
	if obj.Element != tp {
		panic(fmt.Sprintf("uniform %q is %v, not %v", obj.NamePtr, obj.Element, tp))
	}
}

func glTypename(tp reflect.Type) (typename string, err error) {
	switch tp {
	case reflect.TypeOf(float32(0)):
		typename = "float"
	case reflect.TypeOf(ms3.Vec{}):
		typename = "vec3"
	case reflect.TypeOf([4]float32{}):
		typename = "vec4"
	case reflect.TypeOf(ms3.Mat4{}):
		typename = "mat4"
	case reflect.TypeOf(uint32(0)):
		typename = "uint"
	case reflect.TypeOf(int32(0)):
		typename = "int"
	case nil:
		err = errors.New("nil element type")
	default:
		err = fmt.Errorf("equivalent type not implemented for %s", tp.String())
	}
	return typename, err
}

// Stage is the fixed source text surrounding layer code in one shader stage.
//
//	<Header>
//	<layer variables...>
//	void main() {
//	<Main>
//	<layer bodies...>
//	<Footer>
type Stage struct {
	Header string
	// Main opens the main function body and declares OutputSlot.
	Main string
	// Footer consumes OutputSlot and closes main.
	Footer string
	// OutputSlot is the accumulating variable handed to every layer body.
	OutputSlot string
}

// DefaultVertexStage declares the inputs a layer may read in the vertex stage:
// position, modelMatrix, viewMatrix and projectionMatrix.
func DefaultVertexStage() Stage {
	return Stage{
		Header: VersionStr + `#define varying out
in vec3 position;
uniform mat4 modelMatrix;
uniform mat4 viewMatrix;
uniform mat4 projectionMatrix;
`,
		Main:       "\tvec3 glayer_position = position;\n",
		Footer:     "\tgl_Position = projectionMatrix * viewMatrix * modelMatrix * vec4(glayer_position, 1.0);\n}\n",
		OutputSlot: "glayer_position",
	}
}

// DefaultFragmentStage declares cameraPosition for layers to read and starts
// accumulating color from base.
func DefaultFragmentStage(base [4]float32) Stage {
	mainSrc := []byte("\tvec4 glayer_color = vec4(")
	mainSrc = AppendFloats(mainSrc, ',', '-', '.', base[:]...)
	mainSrc = append(mainSrc, ");\n"...)
	return Stage{
		Header: VersionStr + `#define varying in
uniform vec3 cameraPosition;
out vec4 fragColor;
`,
		Main:       string(mainSrc),
		Footer:     "\tfragColor = glayer_color;\n}\n",
		OutputSlot: "glayer_color",
	}
}

// Programmer assembles layers into a vertex and a fragment program.
type Programmer struct {
	scratch     []byte
	objsScratch []ShaderObject
	vertex      Stage
	fragment    Stage
	invocX      int
	// names maps uniform name hashes to the address of their cell for checking duplicates.
	names map[uint64]uintptr
	// ids holds hashes of layer identifiers already seen.
	ids map[uint64]struct{}
}

// NewDefaultProgrammer returns a Programmer using [DefaultVertexStage] and
// [DefaultFragmentStage] with a transparent black base color.
func NewDefaultProgrammer() *Programmer {
	return &Programmer{
		scratch:  make([]byte, 0, 4096),
		vertex:   DefaultVertexStage(),
		fragment: DefaultFragmentStage([4]float32{}),
		invocX:   32,
		names:    make(map[uint64]uintptr),
		ids:      make(map[uint64]struct{}),
	}
}

// SetStages replaces the source surrounding layer code in both stages.
func (p *Programmer) SetStages(vertex, fragment Stage) error {
	if vertex.OutputSlot == "" || fragment.OutputSlot == "" {
		return errors.New("empty stage output slot")
	}
	p.vertex = vertex
	p.fragment = fragment
	return nil
}

// Stages returns the vertex and fragment stages in use.
func (p *Programmer) Stages() (vertex, fragment Stage) {
	return p.vertex, p.fragment
}

// WriteVertex writes the vertex program composed of layers, in order, to w.
func (p *Programmer) WriteVertex(w io.Writer, layers []Shader) (int, error) {
	_, err := p.appendObjects(p.objsScratch[:0], layers)
	if err != nil {
		return 0, err
	}
	st := p.vertex
	b := append(p.scratch[:0], st.Header...)
	for _, layer := range layers {
		b = layer.AppendVertexVariables(b)
	}
	b = append(b, "\nvoid main() {\n"...)
	b = append(b, st.Main...)
	for _, layer := range layers {
		b = layer.AppendVertexBody(b, st.OutputSlot)
	}
	b = append(b, st.Footer...)
	p.scratch = b
	return w.Write(b)
}

// WriteFragment writes the fragment program composed of layers, in order, to w.
// It returns the uniforms the host must bind for the program to evaluate correctly.
func (p *Programmer) WriteFragment(w io.Writer, layers []Shader) (n int, objs []ShaderObject, err error) {
	p.objsScratch, err = p.appendObjects(p.objsScratch[:0], layers)
	if err != nil {
		return 0, nil, err
	}
	st := p.fragment
	b := append(p.scratch[:0], st.Header...)
	for _, layer := range layers {
		b = layer.AppendFragmentVariables(b)
	}
	b = append(b, "\nvoid main() {\n"...)
	b = append(b, st.Main...)
	for _, layer := range layers {
		b = layer.AppendFragmentBody(b, st.OutputSlot)
	}
	b = append(b, st.Footer...)
	p.scratch = b
	n, err = w.Write(b)
	objs = append(objs, p.objsScratch...) // Clone slice and return it.
	return n, objs, err
}

// SetComputeInvocations sets the work group size of programs written by [Programmer.WriteCompute].
func (p *Programmer) SetComputeInvocations(x, y, z int) error {
	if y != 1 || z != 1 {
		return errors.New("only X invocation size is supported")
	} else if x < 1 {
		return errors.New("zero or negative X invocation size")
	}
	p.invocX = x
	return nil
}

// ComputeInvocations returns the work group size of compute programs.
func (p *Programmer) ComputeInvocations() (int, int, int) {
	return p.invocX, 1, 1
}

// WriteCompute writes a compute program that evaluates layers at world positions.
// Each invocation reads a position from binding 0 (packed float triplets),
// runs every vertex body followed by every fragment body and blends the
// result into the color at binding 1, which holds the prior color on input.
// The stages set with SetStages are not used.
func (p *Programmer) WriteCompute(w io.Writer, layers []Shader) (n int, objs []ShaderObject, err error) {
	p.objsScratch, err = p.appendObjects(p.objsScratch[:0], layers)
	if err != nil {
		return 0, nil, err
	}
	b := append(p.scratch[:0], "#version 430\n#define varying\n"...)
	b = fmt.Appendf(b, `layout(local_size_x = %d, local_size_y = 1, local_size_z = 1) in;

// Input: packed 3D world positions at which to evaluate layers.
layout(std430, binding = 0) buffer PositionsBuffer {
	float vbo_positions[];
};

// Input/Output: accumulated colors. Maps to position buffer.
layout(std430, binding = 1) buffer ColorsBuffer {
	vec4 vbo_colors[];
};

uniform mat4 modelMatrix;
uniform vec3 cameraPosition;
`, p.invocX)
	for _, layer := range layers {
		b = layer.AppendFragmentVariables(b)
	}
	b = append(b, `
void main() {
	int idx = int( gl_GlobalInvocationID.x );
	if (idx >= vbo_colors.length()) {
		return;
	}
	vec3 position = vec3(vbo_positions[3*idx], vbo_positions[3*idx+1], vbo_positions[3*idx+2]);
	vec4 glayer_color = vbo_colors[idx];
`...)
	for _, layer := range layers {
		b = layer.AppendVertexBody(b, "position")
	}
	for _, layer := range layers {
		b = layer.AppendFragmentBody(b, "glayer_color")
	}
	b = append(b, "\tvbo_colors[idx] = glayer_color;\n}\n"...)
	p.scratch = b
	n, err = w.Write(b)
	objs = append(objs, p.objsScratch...)
	return n, objs, err
}

// UniformTable returns the uniforms of all layers keyed by their GLSL symbol.
func (p *Programmer) UniformTable(layers []Shader) (map[string]ShaderObject, error) {
	objs, err := p.appendObjects(p.objsScratch[:0], layers)
	p.objsScratch = objs
	if err != nil {
		return nil, err
	}
	table := make(map[string]ShaderObject, len(objs))
	for _, obj := range objs {
		table[string(obj.NamePtr)] = obj
	}
	return table, nil
}

// appendObjects appends the uniforms of all layers to dst, checking that layer
// identifiers are unique and that no two distinct cells share a name.
// The same cell reached more than once is appended a single time.
func (p *Programmer) appendObjects(dst []ShaderObject, layers []Shader) ([]ShaderObject, error) {
	clear(p.names)
	clear(p.ids)
	for _, layer := range layers {
		if layer == nil {
			return dst, errors.New("nil layer")
		}
		id := layer.ID()
		if id == "" {
			return dst, fmt.Errorf("%T has empty identifier", layer)
		}
		idHash := hash([]byte(id), 0)
		if _, dup := p.ids[idHash]; dup {
			return dst, fmt.Errorf("duplicate layer identifier %q for %T", id, layer)
		}
		p.ids[idHash] = struct{}{}

		start := len(dst)
		dst = layer.AppendShaderObjects(dst)
		n := start
	OBJWRITE:
		for _, obj := range dst[start:] {
			err := obj.Validate()
			if err != nil {
				return dst[:n], fmt.Errorf("%T uniform %q: %w", layer, obj.NamePtr, err)
			}
			nameHash := hash(obj.NamePtr, 0)
			addr, nameConflict := p.names[nameHash]
			if nameConflict {
				if addr == uintptr(obj.Data) {
					continue OBJWRITE // Same cell, already added.
				}
				return dst[:n], fmt.Errorf("uniform name conflict: %T has uniform %q of type %s already declared by another layer", layer, obj.NamePtr, obj.Element.String())
			}
			p.names[nameHash] = uintptr(obj.Data)
			dst[n] = obj
			n++
		}
		dst = dst[:n]
	}
	return dst, nil
}

// AppendUniformDecl appends the GLSL declaration of the uniform.
//
//	uniform <type> <name>;
func AppendUniformDecl(dst []byte, obj ShaderObject) ([]byte, error) {
	err := obj.Validate()
	if err != nil {
		return dst, err
	}
	typename, err := glTypename(obj.Element)
	if err != nil {
		return dst, fmt.Errorf("typename failed for %q: %w", obj.NamePtr, err)
	}
	dst = append(dst, "uniform "...)
	dst = append(dst, typename...)
	dst = append(dst, ' ')
	dst = append(dst, obj.NamePtr...)
	dst = append(dst, ";\n"...)
	return dst, nil
}

// AppendVaryingDecl appends a varying declaration.
func AppendVaryingDecl(dst []byte, typename string, name []byte) []byte {
	dst = append(dst, "varying "...)
	dst = append(dst, typename...)
	dst = append(dst, ' ')
	dst = append(dst, name...)
	dst = append(dst, ";\n"...)
	return dst
}

const decimalDigits = 9

func AppendFloat(b []byte, neg, decimal byte, v float32) []byte {
	start := len(b)
	b = strconv.AppendFloat(b, float64(v), 'f', decimalDigits, 32)
	idx := bytes.IndexByte(b[start:], '.')
	if decimal != '.' && idx >= 0 {
		b[start+idx] = decimal
	}
	if b[start] == '-' {
		b[start] = neg
	}
	// Finally trim zeroes.
	end := len(b)
	for i := len(b) - 1; idx >= 0 && i > idx+start && b[i] == '0'; i-- {
		end--
	}
	return b[:end]
}

func AppendFloats(b []byte, sep, neg, decimal byte, s ...float32) []byte {
	for i, v := range s {
		b = AppendFloat(b, neg, decimal, v)
		if sep != 0 && i != len(s)-1 {
			b = append(b, sep)
		}
	}
	return b
}

func hash(b []byte, in uint64) uint64 {
	x := in
	for len(b) >= 8 {
		x ^= binary.LittleEndian.Uint64(b)
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
		b = b[8:]
	}
	if len(b) > 0 {
		var buf [8]byte
		copy(buf[:], b)
		x ^= binary.LittleEndian.Uint64(buf[:])
		x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
		x = (x ^ (x >> 27)) * 0x94d049bb133111eb
		x ^= x >> 31
	}
	return x
}
