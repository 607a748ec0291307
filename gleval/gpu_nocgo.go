//go:build tinygo || !cgo

package gleval

import (
	"errors"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glayer/glbuild"
)

var errNoCGO = errors.New("GPU evaluation requires CGo and is not supported on TinyGo")

// Init1x1GLFW starts a 1x1 sized GLFW so that user can start working with GPU.
func Init1x1GLFW() (terminate func(), err error) {
	return nil, errNoCGO
}

// NewComputeGPUColorer compiles a program written by [glbuild.Programmer.WriteCompute].
func NewComputeGPUColorer(computeSource []byte, invocX int, objs []glbuild.ShaderObject) (*ColorerCompute, error) {
	return nil, errNoCGO
}

// ColorerCompute is a [Colorer] that evaluates a layer stack on the GPU.
type ColorerCompute struct{}

func (c *ColorerCompute) EvaluateColor(pos []ms3.Vec, dst [][4]float32, userData any) error {
	return errNoCGO
}

func (c *ColorerCompute) Delete() {}
