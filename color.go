package glayer

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"golang.org/x/image/colornames"
)

// Color is an RGB color with channels in [0, 1].
type Color struct {
	R, G, B float32
}

// ParseColor parses a "#rrggbb" or "#rgb" hex color or a CSS color name such as "red".
func ParseColor(s string) (Color, error) {
	if !strings.HasPrefix(s, "#") {
		named, ok := colornames.Map[strings.ToLower(s)]
		if !ok {
			return Color{}, fmt.Errorf("unknown color %q", s)
		}
		return cToColor(uint32(named.R)<<16 | uint32(named.G)<<8 | uint32(named.B)), nil
	}
	hex := s[1:]
	if len(hex) == 3 {
		hex = string([]byte{hex[0], hex[0], hex[1], hex[1], hex[2], hex[2]})
	} else if len(hex) != 6 {
		return Color{}, errors.New("hex color must have 3 or 6 digits: " + s)
	}
	c, err := strconv.ParseUint(hex, 16, 32)
	if err != nil {
		return Color{}, fmt.Errorf("parsing hex color %q: %w", s, err)
	}
	return cToColor(uint32(c)), nil
}

// MustParseColor is like [ParseColor] but panics on error.
func MustParseColor(s string) Color {
	c, err := ParseColor(s)
	if err != nil {
		panic(err)
	}
	return c
}

// Hex returns the color as "#rrggbb", rounding and clamping each channel.
func (c Color) Hex() string {
	return fmt.Sprintf("#%06x", rgbToC(c.R, c.G, c.B))
}

func (c Color) String() string { return c.Hex() }

// Vec returns the color as a vec3 uniform value.
func (c Color) Vec() ms3.Vec { return ms3.Vec{X: c.R, Y: c.G, Z: c.B} }

// ColorFromVec is the inverse of [Color.Vec].
func ColorFromVec(v ms3.Vec) Color { return Color{R: v.X, G: v.Y, B: v.Z} }

// RGBA implements [image/color.Color] with an opaque alpha.
func (c Color) RGBA() (r, g, b, a uint32) {
	rgb := rgbToC(c.R, c.G, c.B)
	r = (rgb >> 16) & 0xff
	g = (rgb >> 8) & 0xff
	b = rgb & 0xff
	return r | r<<8, g | g<<8, b | b<<8, 0xffff
}

// MarshalText implements [encoding.TextMarshaler].
func (c Color) MarshalText() ([]byte, error) {
	return []byte(c.Hex()), nil
}

// UnmarshalText implements [encoding.TextUnmarshaler].
func (c *Color) UnmarshalText(text []byte) error {
	got, err := ParseColor(string(text))
	if err != nil {
		return err
	}
	*c = got
	return nil
}

// cToColor converts a 24 bit RGB value stored in the least significant bits.
func cToColor(c uint32) Color {
	return Color{
		R: float32(uint8(c>>16)) / math32.MaxUint8,
		G: float32(uint8(c>>8)) / math32.MaxUint8,
		B: float32(uint8(c)) / math32.MaxUint8,
	}
}

// rgbToC converts r, g, and b values on the range of 0.0 to 1.0 to a
// 24 bit RGB value stored in the least significant bits of a uint32. The inputs
// are clamped to the range of 0.0 to 1.0
func rgbToC(r, g, b float32) (c uint32) {
	return uint32(math32.Floor(clampf(r, 0, 1)*math32.MaxUint8+0.5))<<16 |
		uint32(math32.Floor(clampf(g, 0, 1)*math32.MaxUint8+0.5))<<8 |
		uint32(math32.Floor(clampf(b, 0, 1)*math32.MaxUint8+0.5))
}
