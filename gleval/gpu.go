//go:build !tinygo && cgo

package gleval

import (
	"errors"
	"fmt"
	"runtime"
	"unsafe"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glayer/glbuild"
	"github.com/soypat/glgl/v4.6-core/glgl"
)

// Init1x1GLFW starts a 1x1 sized GLFW so that user can start working with GPU.
// It returns a termination function that should be called when user is done running loads on GPU.
func Init1x1GLFW() (terminate func(), err error) {
	_, terminate, err = glgl.InitWithCurrentWindow33(glgl.WindowConfig{
		Title:   "compute",
		Version: [2]int{4, 6},
		Width:   1,
		Height:  1,
	})
	return terminate, err
}

// NewComputeGPUColorer compiles a program written by [glbuild.Programmer.WriteCompute].
// objs are the uniforms returned alongside the program; their current values
// are uploaded on every evaluation. invocX must match the program's work group size.
func NewComputeGPUColorer(computeSource []byte, invocX int, objs []glbuild.ShaderObject) (*ColorerCompute, error) {
	if invocX < 1 {
		return nil, errors.New("zero or negative invocation size")
	}
	src := string(computeSource)
	if len(src) == 0 || src[len(src)-1] != 0 {
		src += "\x00"
	}
	prog, err := glgl.CompileProgram(glgl.ShaderSource{Compute: src})
	if err != nil {
		return nil, errors.New(src + "\n" + err.Error())
	}
	c := &ColorerCompute{
		prog:   prog,
		invocX: invocX,
	}
	prog.Bind()
	defer prog.Unbind()
	c.model = ms3.IdentityMat4()
	c.modelObj, err = glbuild.MakeUniform([]byte("modelMatrix"), &c.model)
	if err != nil {
		prog.Delete()
		return nil, err
	}
	c.modelLoc = c.location("modelMatrix")
	c.camLoc = c.location("cameraPosition")
	for _, obj := range objs {
		c.uniforms = append(c.uniforms, boundUniform{loc: c.location(obj.Name()), obj: obj})
	}
	return c, nil
}

// ColorerCompute is a [Colorer] that evaluates a layer stack on the GPU.
type ColorerCompute struct {
	prog     glgl.Program
	invocX   int
	model    ms3.Mat4 // Positions are world positions.
	modelObj glbuild.ShaderObject
	modelLoc int32
	camLoc   int32
	uniforms []boundUniform
}

type boundUniform struct {
	loc int32
	obj glbuild.ShaderObject
}

// location returns -1 for uniforms discarded by the compiler, which uploads ignore.
func (c *ColorerCompute) location(name string) int32 {
	loc, err := c.prog.UniformLocation(name + "\x00")
	if err != nil {
		return -1
	}
	return loc
}

// EvaluateColor implements [Colorer]. The camera position is taken from
// userData if it contains a [View], otherwise it is the origin.
func (c *ColorerCompute) EvaluateColor(pos []ms3.Vec, dst [][4]float32, userData any) error {
	err := CheckBuffers(pos, dst)
	if err != nil {
		return err
	} else if c.prog.ID() == 0 {
		return errors.New("program id is 0, did you use NewComputeGPUColorer?")
	}
	view, _ := GetView(userData)
	c.prog.Bind()
	defer c.prog.Unbind()
	err = UploadUniform(c.modelLoc, c.modelObj)
	if err != nil {
		return err
	}
	gl.Uniform3f(c.camLoc, view.CameraPosition.X, view.CameraPosition.Y, view.CameraPosition.Z)
	for _, u := range c.uniforms {
		err = UploadUniform(u.loc, u.obj)
		if err != nil {
			return err
		}
	}

	var p runtime.Pinner
	var posSSBO, colSSBO uint32
	p.Pin(&posSSBO)
	p.Pin(&colSSBO)
	defer p.Unpin()
	posSSBO = loadSSBO(pos, 0, gl.STATIC_DRAW)
	if posSSBO == 0 {
		return glErrOrMessage("zero SSBO id set by GL during compute loading")
	}
	defer gl.DeleteBuffers(1, &posSSBO)
	colSSBO = loadSSBO(dst, 1, gl.DYNAMIC_READ)
	if colSSBO == 0 {
		return glErrOrMessage("zero id SSBO loading color buffer")
	}
	defer gl.DeleteBuffers(1, &colSSBO)
	nWorkX := (len(dst) + c.invocX - 1) / c.invocX
	gl.DispatchCompute(uint32(nWorkX), 1, 1)
	gl.MemoryBarrier(gl.SHADER_STORAGE_BARRIER_BIT)
	err = copySSBO(dst, colSSBO)
	if err != nil {
		return err
	}
	return glgl.Err()
}

// Delete releases the GPU program.
func (c *ColorerCompute) Delete() { c.prog.Delete() }

// UploadUniform sends the current value of the uniform cell to the bound program at location loc.
func UploadUniform(loc int32, obj glbuild.ShaderObject) error {
	typename, err := obj.GLType()
	if err != nil {
		return err
	}
	switch typename {
	case "float":
		gl.Uniform1f(loc, obj.Float32())
	case "vec3":
		v := obj.Vec3()
		gl.Uniform3f(loc, v.X, v.Y, v.Z)
	case "vec4":
		v := obj.Vec4()
		gl.Uniform4f(loc, v[0], v[1], v[2], v[3])
	case "int":
		gl.Uniform1i(loc, obj.Int32())
	case "uint":
		gl.Uniform1ui(loc, obj.Uint32())
	case "mat4":
		arr := obj.Mat4()
		gl.UniformMatrix4fv(loc, 1, false, &arr[0])
	default:
		return fmt.Errorf("upload of %s uniform %q not implemented", typename, obj.NamePtr)
	}
	return nil
}

func loadSSBO[T any](slice []T, base, usage uint32) (ssbo uint32) {
	var p runtime.Pinner
	p.Pin(&ssbo)
	gl.GenBuffers(1, &ssbo)
	p.Unpin()
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, ssbo)
	size := len(slice) * elemSize[T]()
	gl.BufferData(gl.SHADER_STORAGE_BUFFER, size, unsafe.Pointer(&slice[0]), usage)
	gl.BindBufferBase(gl.SHADER_STORAGE_BUFFER, base, ssbo)
	return ssbo
}

func copySSBO[T any](dst []T, ssbo uint32) error {
	singleSize := elemSize[T]()
	bufSize := singleSize * len(dst)
	gl.BindBuffer(gl.SHADER_STORAGE_BUFFER, ssbo)
	ptr := gl.MapBufferRange(gl.SHADER_STORAGE_BUFFER, 0, bufSize, gl.MAP_READ_BIT)
	if ptr == nil {
		return glErrOrMessage("failed to map SSBO buffer during copy")
	}
	defer gl.UnmapBuffer(gl.SHADER_STORAGE_BUFFER)
	gpuBytes := unsafe.Slice((*byte)(ptr), bufSize)
	bufBytes := unsafe.Slice((*byte)(unsafe.Pointer(&dst[0])), bufSize)
	copy(bufBytes, gpuBytes)
	return nil
}

func elemSize[T any]() int {
	var z T
	return int(unsafe.Sizeof(z))
}

func glErrOrMessage(defaultMsg string) (err error) {
	err = glgl.Err()
	if err == nil {
		err = errors.New(defaultMsg)
	} else {
		err = fmt.Errorf("%s: %w", defaultMsg, err)
	}
	return err
}
