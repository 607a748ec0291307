package gleval_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glayer/gleval"
)

type viewer struct{ cam ms3.Vec }

func (v viewer) View() gleval.View { return gleval.View{CameraPosition: v.cam} }

func TestGetView(t *testing.T) {
	cam := ms3.Vec{X: 1, Y: 2, Z: 3}
	var nilView *gleval.View
	for _, test := range []struct {
		name     string
		userData any
		wantErr  bool
	}{
		{name: "value", userData: gleval.View{CameraPosition: cam}},
		{name: "pointer", userData: &gleval.View{CameraPosition: cam}},
		{name: "interface", userData: viewer{cam: cam}},
		{name: "nil pointer", userData: nilView, wantErr: true},
		{name: "nil", userData: nil, wantErr: true},
		{name: "other", userData: cam, wantErr: true},
	} {
		view, err := gleval.GetView(test.userData)
		if test.wantErr {
			if err == nil {
				t.Errorf("%s: expected error", test.name)
			}
			continue
		}
		if err != nil {
			t.Errorf("%s: %v", test.name, err)
		} else if view.CameraPosition != cam {
			t.Errorf("%s: got camera %v, want %v", test.name, view.CameraPosition, cam)
		}
	}
}

func TestCheckBuffers(t *testing.T) {
	pos := make([]ms3.Vec, 3)
	for _, test := range []struct {
		name    string
		pos     []ms3.Vec
		dst     [][4]float32
		wantErr bool
	}{
		{name: "ok", pos: pos, dst: make([][4]float32, 3)},
		{name: "mismatch", pos: pos, dst: make([][4]float32, 2), wantErr: true},
		{name: "empty", pos: nil, dst: nil, wantErr: true},
	} {
		err := gleval.CheckBuffers(test.pos, test.dst)
		if (err != nil) != test.wantErr {
			t.Errorf("%s: got error %v, wantErr=%v", test.name, err, test.wantErr)
		}
	}
}

// addColorer adds a constant to every channel.
type addColorer [4]float32

func (a addColorer) EvaluateColor(pos []ms3.Vec, dst [][4]float32, userData any) error {
	for i := range dst {
		for ch := range dst[i] {
			dst[i][ch] += a[ch]
		}
	}
	return nil
}

type failColorer struct{}

var errFail = errors.New("fail")

func (failColorer) EvaluateColor(pos []ms3.Vec, dst [][4]float32, userData any) error {
	return errFail
}

func TestEvaluateStack(t *testing.T) {
	pos := make([]ms3.Vec, 4)
	dst := make([][4]float32, 4)
	base := [4]float32{0.5, 0, 0, 1}
	layers := []gleval.Colorer{addColorer{0.25, 0, 0, 0}, addColorer{0, 1, 0, 0}}
	err := gleval.EvaluateStack(layers, pos, dst, base, nil)
	if err != nil {
		t.Fatal(err)
	}
	want := [4]float32{0.75, 1, 0, 1}
	for i := range dst {
		if dst[i] != want {
			t.Errorf("dst[%d]=%v, want %v", i, dst[i], want)
		}
	}

	// Base only when there are no layers.
	err = gleval.EvaluateStack(nil, pos, dst, base, nil)
	if err != nil {
		t.Fatal(err)
	} else if dst[0] != base {
		t.Errorf("want base %v, got %v", base, dst[0])
	}

	err = gleval.EvaluateStack([]gleval.Colorer{layers[0], nil}, pos, dst, base, nil)
	if err == nil || !strings.Contains(err.Error(), "position 1") {
		t.Errorf("expected nil layer error naming its position, got %v", err)
	}
	err = gleval.EvaluateStack([]gleval.Colorer{failColorer{}}, pos, dst, base, nil)
	if !errors.Is(err, errFail) {
		t.Errorf("expected wrapped layer error, got %v", err)
	}
	err = gleval.EvaluateStack(layers, pos, dst[:2], base, nil)
	if err == nil {
		t.Error("expected buffer length error")
	}
}
