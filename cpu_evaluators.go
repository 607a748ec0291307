package glayer

import (
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glayer/gleval"
)

// EvaluateColor implements [gleval.Colorer]. userData must contain a [gleval.View]
// when the layer measures distance to the camera (IsVector false).
func (d *Depth) EvaluateColor(pos []ms3.Vec, dst [][4]float32, userData any) error {
	err := gleval.CheckBuffers(pos, dst)
	if err != nil {
		return err
	}
	base := d.origin
	if !d.IsVector() {
		view, err := gleval.GetView(userData)
		if err != nil {
			return err
		}
		base = view.CameraPosition
	}
	near := d.near
	den := d.far - near
	for i, p := range pos {
		t := (ms3.Norm(ms3.Sub(p, base)) - near) / den
		a := 1 - clampf(t, 0, 1)
		c := [4]float32{
			mixf(d.colorB.X, d.colorA.X, a),
			mixf(d.colorB.Y, d.colorA.Y, a),
			mixf(d.colorB.Z, d.colorA.Z, a),
			d.alpha,
		}
		dst[i], err = BlendColor(d.mode, dst[i], c)
		if err != nil {
			return err
		}
	}
	return nil
}

// BlendColor evaluates on the CPU the expression [AppendBlend] generates for mode.
func BlendColor(mode BlendMode, current, next [4]float32) (result [4]float32, err error) {
	var fn func(a, b float32) float32
	switch mode {
	case BlendNormal:
		return next, nil
	case BlendAdd:
		fn = func(a, b float32) float32 { return a + b }
	case BlendSubtract:
		fn = func(a, b float32) float32 { return a - b }
	case BlendMultiply:
		fn = func(a, b float32) float32 { return a * b }
	case BlendLighten:
		fn = maxf
	case BlendDarken:
		fn = minf
	case BlendDivide:
		fn = func(a, b float32) float32 { return a / b }
	case BlendOverlay:
		fn = func(a, b float32) float32 {
			return mixf(2*a*b, 1-2*(1-a)*(1-b), stepf(0.5, a))
		}
	case BlendScreen:
		fn = func(a, b float32) float32 { return 1 - (1-a)*(1-b) }
	case BlendSoftLight:
		fn = func(a, b float32) float32 {
			return mixf(2*a*b+a*a*(1-2*b), math32.Sqrt(a)*(2*b-1)+2*a*(1-b), stepf(0.5, b))
		}
	case BlendReflect:
		// Same arithmetic as the GLSL: a=0, b=1 gives NaN on both.
		fn = func(a, b float32) float32 {
			return mixf(minf(a*a/(1-b), 1), b, stepf(1, b))
		}
	case BlendNegation:
		fn = func(a, b float32) float32 { return 1 - absf(1-a-b) }
	default:
		return result, fmt.Errorf("%w: %d", ErrUnknownBlendMode, uint8(mode))
	}
	for i := range result {
		result[i] = fn(current[i], next[i])
	}
	return result, nil
}
