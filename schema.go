package glayer

import (
	"fmt"

	"github.com/soypat/geometry/ms3"
)

// Field describes an editable layer parameter for an editor UI.
type Field struct {
	Label string
	// Key identifies the settings field the value maps back to. Pass it to Apply.
	Key   string
	Value any
	// Min and Max are set for bounded numeric fields.
	Min, Max *float32
	// Options lists the accepted values of enumerated fields.
	Options []string
}

// Schema returns the editable fields of the layer built from its current values.
//
// Value types: colors are "#rrggbb" strings, the blend mode is its name,
// the origin is a [3]float32 and the remaining fields are float32 or bool.
func (d *Depth) Schema() []Field {
	return []Field{
		{Label: "Color A", Key: "colorA", Value: d.ColorA().Hex()},
		{Label: "Color B", Key: "colorB", Value: d.ColorB().Hex()},
		{Label: "Alpha", Key: "alpha", Value: d.alpha, Min: ptr[float32](0), Max: ptr[float32](1)},
		{Label: "Blend Mode", Key: "mode", Value: d.mode.String(), Options: BlendModeNames()},
		{Label: "Origin", Key: "origin", Value: d.origin.Array()},
		{Label: "Near", Key: "near", Value: d.near},
		{Label: "Far", Key: "far", Value: d.far},
		{Label: "Is Vector", Key: "isVector", Value: d.IsVector()},
	}
}

// Apply writes value to the parameter identified by key, as listed in [Depth.Schema].
// Numbers may be any Go float or int type. Colors and modes may be given as their
// typed value or as text.
func (d *Depth) Apply(key string, value any) (err error) {
	switch key {
	case "colorA", "colorB":
		var c Color
		c, err = asColor(value)
		if err == nil && key == "colorA" {
			d.SetColorA(c)
		} else if err == nil {
			d.SetColorB(c)
		}
	case "alpha":
		err = applyFloat(&d.alpha, value)
	case "near":
		err = applyFloat(&d.near, value)
	case "far":
		err = applyFloat(&d.far, value)
	case "mode":
		var mode BlendMode
		mode, err = asBlendMode(value)
		if err == nil {
			err = d.SetMode(mode)
		}
	case "origin":
		var v ms3.Vec
		v, err = asVec(value)
		if err == nil {
			d.SetOrigin(v)
		}
	case "isVector":
		v, ok := value.(bool)
		if !ok {
			return fmt.Errorf("isVector: want bool, got %T", value)
		}
		d.SetIsVector(v)
	default:
		return fmt.Errorf("depth layer has no field %q", key)
	}
	if err != nil {
		return fmt.Errorf("%s: %w", key, err)
	}
	return nil
}

func applyFloat(dst *float32, value any) error {
	f, err := asFloat(value)
	if err != nil {
		return err
	}
	*dst = f
	return nil
}

func asFloat(value any) (float32, error) {
	switch v := value.(type) {
	case float32:
		return v, nil
	case float64:
		return float32(v), nil
	case int:
		return float32(v), nil
	case int64:
		return float32(v), nil
	}
	return 0, fmt.Errorf("want number, got %T", value)
}

func asColor(value any) (Color, error) {
	switch v := value.(type) {
	case Color:
		return v, nil
	case string:
		return ParseColor(v)
	}
	return Color{}, fmt.Errorf("want color, got %T", value)
}

func asBlendMode(value any) (BlendMode, error) {
	switch v := value.(type) {
	case BlendMode:
		return v, nil
	case string:
		return ParseBlendMode(v)
	}
	return 0, fmt.Errorf("want blend mode, got %T", value)
}

func asVec(value any) (ms3.Vec, error) {
	switch v := value.(type) {
	case ms3.Vec:
		return v, nil
	case [3]float32:
		return arrToVec(v), nil
	case []float64:
		if len(v) != 3 {
			return ms3.Vec{}, fmt.Errorf("want 3 components, got %d", len(v))
		}
		return ms3.Vec{X: float32(v[0]), Y: float32(v[1]), Z: float32(v[2])}, nil
	case []any:
		if len(v) != 3 {
			return ms3.Vec{}, fmt.Errorf("want 3 components, got %d", len(v))
		}
		var arr [3]float32
		for i := range v {
			f, err := asFloat(v[i])
			if err != nil {
				return ms3.Vec{}, err
			}
			arr[i] = f
		}
		return arrToVec(arr), nil
	}
	return ms3.Vec{}, fmt.Errorf("want vector, got %T", value)
}
