package glayer

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/soypat/glayer/glbuild"
)

// Record is the persisted snapshot of a layer. Settings holds the values the
// layer had when serialized and Defaults the values of a layer created with no settings.
type Record[S any] struct {
	Type     string `json:"type" yaml:"type"`
	Name     string `json:"name" yaml:"name"`
	UUID     string `json:"uuid" yaml:"uuid"`
	Settings S      `json:"settings" yaml:"settings"`
	Defaults S      `json:"defaults" yaml:"defaults"`
}

// DepthSettings configures a [Depth] layer. Nil fields are defaulted.
type DepthSettings struct {
	ColorA   *Color      `json:"colorA,omitempty" yaml:"colorA,omitempty"`
	ColorB   *Color      `json:"colorB,omitempty" yaml:"colorB,omitempty"`
	Alpha    *float32    `json:"alpha,omitempty" yaml:"alpha,omitempty"`
	Mode     *BlendMode  `json:"mode,omitempty" yaml:"mode,omitempty"`
	Origin   *[3]float32 `json:"origin,omitempty" yaml:"origin,omitempty"`
	Near     *float32    `json:"near,omitempty" yaml:"near,omitempty"`
	Far      *float32    `json:"far,omitempty" yaml:"far,omitempty"`
	IsVector *bool       `json:"isVector,omitempty" yaml:"isVector,omitempty"`
}

// DefaultDepthSettings returns the settings of a Depth layer created with no settings.
func DefaultDepthSettings() DepthSettings {
	return DepthSettings{
		ColorA:   ptr(MustParseColor("#ff0000")),
		ColorB:   ptr(MustParseColor("#0000ff")),
		Alpha:    ptr[float32](1),
		Mode:     ptr(BlendNormal),
		Origin:   &[3]float32{},
		Near:     ptr[float32](0),
		Far:      ptr[float32](1e7),
		IsVector: ptr(true),
	}
}

// Serialize returns a snapshot of the layer's current values.
func (d *Depth) Serialize() Record[DepthSettings] {
	origin := d.origin.Array()
	return Record[DepthSettings]{
		Type: DepthKind,
		Name: d.name,
		UUID: d.ID(),
		Settings: DepthSettings{
			ColorA:   ptr(d.ColorA()),
			ColorB:   ptr(d.ColorB()),
			Alpha:    ptr(d.alpha),
			Mode:     ptr(d.mode),
			Origin:   &origin,
			Near:     ptr(d.near),
			Far:      ptr(d.far),
			IsVector: ptr(d.IsVector()),
		},
		Defaults: DefaultDepthSettings(),
	}
}

// NewDepthFromRecord creates a Depth layer from a serialized record.
// The layer receives a fresh identifier; the record's UUID is not reused.
func (bld *Builder) NewDepthFromRecord(rec Record[DepthSettings]) (*Depth, error) {
	if rec.Type != DepthKind {
		return nil, fmt.Errorf("record type %q is not %q", rec.Type, DepthKind)
	}
	d := bld.NewDepth(rec.Settings)
	if rec.Name != "" {
		d.name = rec.Name
	}
	return d, nil
}

// LayerRecord encodes and decodes layers of any kind declared in this package
// through their [Record], dispatching on the record's type tag.
type LayerRecord struct {
	Layer Layer
}

type recordHead struct {
	Type string `json:"type" yaml:"type"`
}

// Scene is an ordered composition of layers as stored on disk.
type Scene struct {
	Layers []LayerRecord `json:"layers" yaml:"layers"`
}

// Shaders returns the layers of the scene in composition order.
func (s Scene) Shaders() []glbuild.Shader {
	shaders := make([]glbuild.Shader, len(s.Layers))
	for i := range s.Layers {
		shaders[i] = s.Layers[i].Layer
	}
	return shaders
}

func (lr LayerRecord) record() (any, error) {
	switch l := lr.Layer.(type) {
	case *Depth:
		return l.Serialize(), nil
	case nil:
		return nil, errors.New("nil layer in record")
	default:
		return nil, fmt.Errorf("serialization of %T not implemented", l)
	}
}

// MarshalJSON implements [json.Marshaler].
func (lr LayerRecord) MarshalJSON() ([]byte, error) {
	rec, err := lr.record()
	if err != nil {
		return nil, err
	}
	return json.Marshal(rec)
}

// UnmarshalJSON implements [json.Unmarshaler].
func (lr *LayerRecord) UnmarshalJSON(data []byte) error {
	return lr.decode(func(v any) error { return json.Unmarshal(data, v) })
}

// MarshalYAML implements the yaml.Marshaler interface.
func (lr LayerRecord) MarshalYAML() (any, error) {
	return lr.record()
}

// UnmarshalYAML implements the yaml.Unmarshaler interface.
func (lr *LayerRecord) UnmarshalYAML(unmarshal func(any) error) error {
	return lr.decode(unmarshal)
}

func (lr *LayerRecord) decode(unmarshal func(any) error) error {
	var head recordHead
	err := unmarshal(&head)
	if err != nil {
		return err
	}
	var bld Builder
	switch head.Type {
	case DepthKind:
		var rec Record[DepthSettings]
		err = unmarshal(&rec)
		if err != nil {
			return fmt.Errorf("decoding %s record: %w", head.Type, err)
		}
		var d *Depth
		d, err = bld.NewDepthFromRecord(rec)
		if err == nil {
			lr.Layer = d
		}
	case "":
		err = errors.New("layer record missing type")
	default:
		err = fmt.Errorf("unknown layer type %q", head.Type)
	}
	return err
}

func ptr[T any](v T) *T { return &v }
