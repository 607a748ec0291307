package glayer

import (
	"errors"
	"fmt"
)

// BlendMode selects the rule combining the accumulated color with a layer's color.
type BlendMode uint8

const (
	BlendNormal BlendMode = iota
	BlendAdd
	BlendSubtract
	BlendMultiply
	BlendLighten
	BlendDarken
	BlendDivide
	BlendOverlay
	BlendScreen
	BlendSoftLight
	BlendReflect
	BlendNegation
	numBlendModes
)

// ErrUnknownBlendMode is returned when a blend mode outside the declared catalog is used.
var ErrUnknownBlendMode = errors.New("unknown blend mode")

var blendNames = [numBlendModes]string{
	BlendNormal:    "normal",
	BlendAdd:       "add",
	BlendSubtract:  "subtract",
	BlendMultiply:  "multiply",
	BlendLighten:   "lighten",
	BlendDarken:    "darken",
	BlendDivide:    "divide",
	BlendOverlay:   "overlay",
	BlendScreen:    "screen",
	BlendSoftLight: "softlight",
	BlendReflect:   "reflect",
	BlendNegation:  "negation",
}

// BlendModeNames returns the names of all declared blend modes in declaration order.
func BlendModeNames() []string {
	return append([]string(nil), blendNames[:]...)
}

// ParseBlendMode returns the blend mode named s.
func ParseBlendMode(s string) (BlendMode, error) {
	for i, name := range blendNames {
		if name == s {
			return BlendMode(i), nil
		}
	}
	return 0, fmt.Errorf("%w %q", ErrUnknownBlendMode, s)
}

// Valid reports whether mode is part of the declared catalog.
func (mode BlendMode) Valid() bool { return mode < numBlendModes }

func (mode BlendMode) String() string {
	if !mode.Valid() {
		return fmt.Sprintf("BlendMode(%d)", uint8(mode))
	}
	return blendNames[mode]
}

// MarshalText implements [encoding.TextMarshaler].
func (mode BlendMode) MarshalText() ([]byte, error) {
	if !mode.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrUnknownBlendMode, uint8(mode))
	}
	return []byte(blendNames[mode]), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (mode *BlendMode) UnmarshalText(text []byte) error {
	m, err := ParseBlendMode(string(text))
	if err != nil {
		return err
	}
	*mode = m
	return nil
}

// AppendBlend appends the GLSL expression combining the current and next color
// expressions with mode. Expressions are substituted as is and are not checked.
func AppendBlend(b []byte, mode BlendMode, current, next string) ([]byte, error) {
	var tmpl string
	switch mode {
	case BlendNormal:
		return append(b, next...), nil
	case BlendAdd:
		tmpl = "(%[1]s + %[2]s)"
	case BlendSubtract:
		tmpl = "(%[1]s - %[2]s)"
	case BlendMultiply:
		tmpl = "(%[1]s * %[2]s)"
	case BlendLighten:
		tmpl = "max(%[1]s, %[2]s)"
	case BlendDarken:
		tmpl = "min(%[1]s, %[2]s)"
	case BlendDivide:
		tmpl = "(%[1]s / %[2]s)"
	case BlendOverlay:
		tmpl = "mix(2.0 * %[1]s * %[2]s, 1.0 - 2.0 * (1.0 - %[1]s) * (1.0 - %[2]s), step(0.5, %[1]s))"
	case BlendScreen:
		tmpl = "(1.0 - (1.0 - %[1]s) * (1.0 - %[2]s))"
	case BlendSoftLight:
		tmpl = "mix(2.0 * %[1]s * %[2]s + %[1]s * %[1]s * (1.0 - 2.0 * %[2]s), sqrt(%[1]s) * (2.0 * %[2]s - 1.0) + 2.0 * %[1]s * (1.0 - %[2]s), step(0.5, %[2]s))"
	case BlendReflect:
		tmpl = "mix(min(%[1]s * %[1]s / (1.0 - %[2]s), 1.0), %[2]s, step(1.0, %[2]s))"
	case BlendNegation:
		tmpl = "(1.0 - abs(1.0 - %[1]s - %[2]s))"
	default:
		return b, fmt.Errorf("%w: %d", ErrUnknownBlendMode, uint8(mode))
	}
	return fmt.Appendf(b, tmpl, current, next), nil
}

// Compose returns the GLSL expression combining current and next with mode. See [AppendBlend].
func Compose(mode BlendMode, current, next string) (string, error) {
	b, err := AppendBlend(nil, mode, current, next)
	if err != nil {
		return "", err
	}
	return string(b), nil
}
