package glayeraux

import (
	"bytes"
	"image/png"
	"strings"
	"testing"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glayer"
	"github.com/soypat/glayer/gleval"
	"github.com/soypat/glayer/glrender"
)

func TestRender(t *testing.T) {
	far := float32(10)
	depth := glayer.NewDepth(glayer.DepthSettings{Far: &far})
	var img, vert, frag bytes.Buffer
	err := Render([]glayer.Layer{depth}, RenderConfig{
		ImageOutput:    &img,
		VertexOutput:   &vert,
		FragmentOutput: &frag,
		Width:          32,
		Height:         16,
		Plane:          glrender.PlaneXZ(ms3.Vec{}, 20, 10),
		Silent:         true,
	})
	if err != nil {
		t.Fatal(err)
	}
	decoded, err := png.Decode(&img)
	if err != nil {
		t.Fatal(err)
	}
	if sz := decoded.Bounds().Size(); sz.X != 32 || sz.Y != 16 {
		t.Errorf("bad image size %v", sz)
	}
	// Plane center is at the layer origin: red. Corners are beyond far: blue.
	r, _, b, _ := decoded.At(16, 8).RGBA()
	if r < 0xf000 || b > 0x1000 {
		t.Errorf("want red at center, got r=%x b=%x", r, b)
	}
	r, _, b, _ = decoded.At(0, 0).RGBA()
	if b < 0xf000 || r > 0x1000 {
		t.Errorf("want blue at corner, got r=%x b=%x", r, b)
	}
	if !strings.Contains(vert.String(), "v_"+depth.ID()+"_worldPosition") {
		t.Error("vertex program missing layer varying")
	}
	if !strings.Contains(frag.String(), glayer.UniformName(glayer.ID(depth.ID()), "colorA")) {
		t.Error("fragment program missing layer uniform")
	}
}

func TestRenderErrors(t *testing.T) {
	depth := glayer.NewDepth(glayer.DepthSettings{})
	err := Render([]glayer.Layer{depth}, RenderConfig{})
	if err == nil {
		t.Error("expected missing output error")
	}
	var buf bytes.Buffer
	err = Render([]glayer.Layer{depth}, RenderConfig{ImageOutput: &buf, Width: 8, Height: 8, Silent: true})
	if err == nil {
		t.Error("expected degenerate plane error")
	}
	err = Render([]glayer.Layer{depth, depth}, RenderConfig{FragmentOutput: &buf, Silent: true})
	if err == nil {
		t.Error("expected duplicate layer error")
	}
	err = UI(nil, UIConfig{})
	if err == nil {
		t.Error("expected no layers error")
	}
}

func TestCamera(t *testing.T) {
	target := ms3.Vec{X: 1, Y: 2, Z: 3}
	cam := NewOrbitCamera(target, 10)
	cam.Pitch = 0
	pos := cam.Position()
	if d := ms3.Norm(ms3.Sub(pos, target)); math32.Abs(d-10) > 1e-4 {
		t.Errorf("camera at distance %v, want 10", d)
	}
	if math32.Abs(pos.Z-13) > 1e-4 {
		t.Errorf("zero yaw camera should sit on +Z, got %v", pos)
	}
	view, err := gleval.GetView(cam)
	if err != nil {
		t.Fatal(err)
	} else if view.CameraPosition != pos {
		t.Error("view does not match camera position")
	}

	cam.Rotate(0, 10)
	if cam.Pitch != maxPitch {
		t.Errorf("pitch not clamped: %v", cam.Pitch)
	}
	cam.Zoom(1000)
	if cam.Distance != cam.MinDist {
		t.Errorf("zoom not clamped to min: %v", cam.Distance)
	}
	cam.Zoom(-1e6)
	if cam.Distance != cam.MaxDist {
		t.Errorf("zoom not clamped to max: %v", cam.Distance)
	}

	// The target projects to the center of the screen.
	cam = NewOrbitCamera(target, 10)
	m := cam.ProjectionMatrix(1).Mul4(cam.ViewMatrix())
	clip := m.Mul4x1(toMgl(target).Vec4(1))
	if math32.Abs(clip.X()/clip.W()) > 1e-4 || math32.Abs(clip.Y()/clip.W()) > 1e-4 {
		t.Errorf("target off center: %v", clip)
	}
}
