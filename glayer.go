// Package glayer implements composable shader effect layers. Each layer
// contributes uniforms, varyings and color blending statements to a vertex and
// fragment program assembled by [glbuild.Programmer]. Layer parameters live in
// uniform cells owned by the layer so they can be tuned every frame without
// recompiling the program.
package glayer

import (
	"errors"
	"fmt"

	"github.com/chewxy/math32"
	"github.com/soypat/glayer/glbuild"
	"github.com/soypat/glayer/gleval"
)

// Layer is implemented by all effect layers of this package.
type Layer interface {
	glbuild.Shader
	gleval.Colorer
	// Kind returns the type tag written to serialized records, i.e: "Depth".
	Kind() string
	// Name returns the display name of the layer.
	Name() string
	// Schema returns editable field descriptors built from current values.
	Schema() []Field
	// Apply writes value to the parameter identified by a [Field] Key.
	Apply(key string, value any) error
}

// Builder wraps layer construction.
// Provides error handling strategies with panics or error accumulation during layer creation.
type Builder struct {
	// NoModePanic accumulates invalid blend mode errors instead of panicking.
	// The offending layer falls back to [BlendNormal].
	NoModePanic bool
	accumErrs   []error
}

func (bld *Builder) Err() error {
	if len(bld.accumErrs) == 0 {
		return nil
	}
	return errors.Join(bld.accumErrs...)
}

func (bld *Builder) modeErrorf(msg string, args ...any) {
	if !bld.NoModePanic {
		panic(fmt.Sprintf(msg, args...))
	}
	bld.accumErrs = append(bld.accumErrs, fmt.Errorf(msg, args...))
}

func clampf(v, Min, Max float32) float32 {
	// NaN falls through both comparisons and is returned as is.
	if v < Min {
		return Min
	} else if v > Max {
		return Max
	}
	return v
}

func mixf(x, y, a float32) float32 {
	return x*(1-a) + y*a
}

func stepf(edge, x float32) float32 {
	if x < edge {
		return 0
	}
	return 1
}

func minf(a, b float32) float32 {
	return math32.Min(a, b)
}

func maxf(a, b float32) float32 {
	return math32.Max(a, b)
}

func absf(a float32) float32 {
	return math32.Abs(a)
}
