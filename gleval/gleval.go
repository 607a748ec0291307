package gleval

import (
	"errors"
	"fmt"

	"github.com/soypat/geometry/ms3"
)

// Colorer evaluates a layer's fragment stage on the CPU. It mirrors the GLSL the
// layer generates so results can be checked without a GPU.
type Colorer interface {
	// EvaluateColor blends the layer's color at world positions pos into dst.
	// dst holds the accumulated color and must be of same length as pos.
	//
	// userData carries per-frame state such as [View].
	EvaluateColor(pos []ms3.Vec, dst [][4]float32, userData any) error
}

// View holds the per-frame values a host binds to builtin uniforms.
type View struct {
	CameraPosition ms3.Vec
}

var (
	errEmptyBuffers         = errors.New("empty buffers")
	errMismatchBufferLength = errors.New("position and color buffer length mismatch")
)

// GetView extracts a [View] from userData. userData may be a View, a *View or
// implement interface{ View() View }.
func GetView(userData any) (View, error) {
	switch v := userData.(type) {
	case View:
		return v, nil
	case *View:
		if v == nil {
			return View{}, errors.New("nil *View")
		}
		return *v, nil
	case interface{ View() View }:
		return v.View(), nil
	}
	return View{}, fmt.Errorf("userData (%T) does not contain a View", userData)
}

// CheckBuffers returns an error if pos and dst can not be evaluated together.
func CheckBuffers(pos []ms3.Vec, dst [][4]float32) error {
	if len(pos) != len(dst) {
		return errMismatchBufferLength
	} else if len(pos) == 0 {
		return errEmptyBuffers
	}
	return nil
}

// EvaluateStack fills dst with base and then evaluates every layer in order,
// the same way the assembled fragment program accumulates its output color.
func EvaluateStack(layers []Colorer, pos []ms3.Vec, dst [][4]float32, base [4]float32, userData any) error {
	err := CheckBuffers(pos, dst)
	if err != nil {
		return err
	}
	for i := range dst {
		dst[i] = base
	}
	for i, layer := range layers {
		if layer == nil {
			return fmt.Errorf("nil layer at position %d", i)
		}
		err = layer.EvaluateColor(pos, dst, userData)
		if err != nil {
			return fmt.Errorf("layer %d (%T): %w", i, layer, err)
		}
	}
	return nil
}
