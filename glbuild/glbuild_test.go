package glbuild

import (
	"bytes"
	"strings"
	"testing"

	"github.com/soypat/geometry/ms3"
)

// tint is a minimal layer multiplying the accumulated color by a uniform.
type tint struct {
	id    string
	name  []byte
	color [4]float32
}

func newTint(id string) *tint {
	return &tint{id: id, name: []byte("u_" + id + "_color"), color: [4]float32{1, 1, 1, 1}}
}

func (t *tint) ID() string { return t.id }

func (t *tint) AppendVertexVariables(b []byte) []byte {
	return AppendVaryingDecl(b, "float", []byte("v_"+t.id+"_h"))
}

func (t *tint) AppendVertexBody(b []byte, outputSlot string) []byte {
	return append(b, "\tv_"+t.id+"_h = "+outputSlot+".y;\n"...)
}

func (t *tint) AppendFragmentVariables(b []byte) []byte {
	for _, obj := range t.AppendShaderObjects(nil) {
		var err error
		b, err = AppendUniformDecl(b, obj)
		if err != nil {
			panic(err)
		}
	}
	return t.AppendVertexVariables(b)
}

func (t *tint) AppendFragmentBody(b []byte, outputSlot string) []byte {
	return append(b, "\t"+outputSlot+" = "+outputSlot+" * u_"+t.id+"_color;\n"...)
}

func (t *tint) AppendShaderObjects(objs []ShaderObject) []ShaderObject {
	obj, err := MakeUniform(t.name, &t.color)
	if err != nil {
		panic(err)
	}
	return append(objs, obj)
}

// shared exposes the cell of another layer under the same name.
type shared struct {
	*tint
	other *tint
}

func (s shared) AppendShaderObjects(objs []ShaderObject) []ShaderObject {
	return s.other.AppendShaderObjects(objs)
}

func TestProgrammerOrder(t *testing.T) {
	l1, l2 := newTint("la"), newTint("lb")
	p := NewDefaultProgrammer()
	var vert, frag bytes.Buffer
	n, err := p.WriteVertex(&vert, []Shader{l1, l2})
	if err != nil {
		t.Fatal(err)
	} else if n != vert.Len() {
		t.Fatal("written length mismatch")
	}
	n, objs, err := p.WriteFragment(&frag, []Shader{l1, l2})
	if err != nil {
		t.Fatal(err)
	} else if n != frag.Len() {
		t.Fatal("written length mismatch")
	}
	if len(objs) != 2 {
		t.Fatalf("want 2 uniforms, got %d", len(objs))
	}
	vsrc, fsrc := vert.String(), frag.String()
	if !strings.HasPrefix(vsrc, VersionStr) || !strings.HasPrefix(fsrc, VersionStr) {
		t.Error("missing version header")
	}
	assertOrder(t, vsrc, "in vec3 position;", "varying float v_la_h;", "varying float v_lb_h;", "void main() {",
		"v_la_h = glayer_position.y;", "v_lb_h = glayer_position.y;", "gl_Position")
	assertOrder(t, fsrc, "uniform vec3 cameraPosition;", "uniform vec4 u_la_color;", "uniform vec4 u_lb_color;",
		"void main() {", "vec4 glayer_color = vec4(0.,0.,0.,0.);",
		"glayer_color = glayer_color * u_la_color;", "glayer_color = glayer_color * u_lb_color;",
		"fragColor = glayer_color;")

	// Reversing layers reverses composition.
	frag.Reset()
	_, _, err = p.WriteFragment(&frag, []Shader{l2, l1})
	if err != nil {
		t.Fatal(err)
	}
	assertOrder(t, frag.String(), "u_lb_color;", "u_la_color;", "glayer_color * u_lb_color", "glayer_color * u_la_color")
}

func TestProgrammerDuplicateID(t *testing.T) {
	p := NewDefaultProgrammer()
	var buf bytes.Buffer
	_, _, err := p.WriteFragment(&buf, []Shader{newTint("la"), newTint("la")})
	if err == nil {
		t.Fatal("expected duplicate identifier error")
	}
	_, err = p.WriteVertex(&buf, []Shader{newTint("la"), nil})
	if err == nil {
		t.Fatal("expected nil layer error")
	}
	_, err = p.WriteVertex(&buf, []Shader{newTint("")})
	if err == nil {
		t.Fatal("expected empty identifier error")
	}
	if buf.Len() != 0 {
		t.Error("failed programs must not be written")
	}
}

func TestProgrammerUniformConflict(t *testing.T) {
	l1, l2 := newTint("la"), newTint("lb")
	l2.name = l1.name // Distinct cells, same symbol.
	p := NewDefaultProgrammer()
	_, err := p.UniformTable([]Shader{l1, l2})
	if err == nil || !strings.Contains(err.Error(), "conflict") {
		t.Fatalf("expected name conflict error, got %v", err)
	}

	// Same cell reached by two layers is bound once.
	table, err := p.UniformTable([]Shader{l1, shared{tint: newTint("lc"), other: l1}})
	if err != nil {
		t.Fatal(err)
	}
	if len(table) != 1 {
		t.Fatalf("want 1 uniform, got %d", len(table))
	}
	l1.color[1] = 0.25
	if got := table["u_la_color"].Vec4(); got != l1.color {
		t.Errorf("uniform does not alias cell: got %v want %v", got, l1.color)
	}
}

func TestShaderObject(t *testing.T) {
	var gain float32 = 2
	obj, err := MakeUniform([]byte("u_gain"), &gain)
	if err != nil {
		t.Fatal(err)
	}
	gain = 3
	if obj.Float32() != 3 || obj.Value() != float32(3) {
		t.Error("uniform not live")
	}
	decl, err := AppendUniformDecl(nil, obj)
	if err != nil {
		t.Fatal(err)
	} else if string(decl) != "uniform float u_gain;\n" {
		t.Errorf("bad declaration %q", decl)
	}

	var v ms3.Vec
	obj, _ = MakeUniform([]byte("u_v"), &v)
	if tp, _ := obj.GLType(); tp != "vec3" {
		t.Errorf("want vec3, got %q", tp)
	}
	func() {
		defer func() {
			if recover() == nil {
				t.Error("expected panic reading vec3 as float")
			}
		}()
		obj.Float32()
	}()

	var bad float64
	_, err = MakeUniform([]byte("u_bad"), &bad)
	if err == nil {
		t.Error("expected error for unsupported type")
	}
	_, err = MakeUniform[float32](nil, &gain)
	if err == nil {
		t.Error("expected error for empty name")
	}
	_, err = MakeUniform[float32]([]byte("u_nil"), nil)
	if err == nil {
		t.Error("expected error for nil cell")
	}
}

func TestShaderObjectMat4(t *testing.T) {
	model := ms3.TranslatingMat4(ms3.Vec{X: 7, Y: 8, Z: 9})
	obj, err := MakeUniform([]byte("u_model"), &model)
	if err != nil {
		t.Fatal(err)
	}
	typename, err := obj.GLType()
	if err != nil || typename != "mat4" {
		t.Fatalf("want mat4, got %q (%v)", typename, err)
	}
	// Column major: translation is the fourth column, stored last.
	arr := obj.Mat4()
	if arr[12] != 7 || arr[13] != 8 || arr[14] != 9 || arr[15] != 1 {
		t.Errorf("translation not in last column: %v", arr)
	}
	if arr[3] != 0 || arr[7] != 0 || arr[11] != 0 {
		t.Errorf("bottom row should be zero: %v", arr)
	}
	model = ms3.IdentityMat4()
	if obj.Mat4()[12] != 0 {
		t.Error("mat4 uniform not live")
	}

	var count uint32 = 5
	obj, err = MakeUniform([]byte("u_count"), &count)
	if err != nil {
		t.Fatal(err)
	}
	count++
	if obj.Uint32() != 6 {
		t.Errorf("want live uint 6, got %d", obj.Uint32())
	}
}

func TestSetStages(t *testing.T) {
	p := NewDefaultProgrammer()
	vert, _ := p.Stages()
	err := p.SetStages(vert, Stage{})
	if err == nil {
		t.Fatal("expected error for empty output slot")
	}
	frag := DefaultFragmentStage([4]float32{0.5, -1, 0, 1})
	err = p.SetStages(vert, frag)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	_, _, err = p.WriteFragment(&buf, nil)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(buf.String(), "vec4 glayer_color = vec4(0.5,-1.,0.,1.);") {
		t.Errorf("base color not written:\n%s", buf.String())
	}
}

func TestAppendFloat(t *testing.T) {
	for _, test := range []struct {
		v    float32
		want string
	}{
		{0, "0p"},
		{1, "1p"},
		{-2.5, "n2p5"},
		{0.125, "0p125"},
	} {
		got := string(AppendFloat(nil, 'n', 'p', test.v))
		if got != test.want {
			t.Errorf("AppendFloat(%v): got %q, want %q", test.v, got, test.want)
		}
	}
}

func assertOrder(t *testing.T, src string, parts ...string) {
	t.Helper()
	last := -1
	for _, part := range parts {
		idx := strings.Index(src, part)
		if idx < 0 {
			t.Errorf("missing %q in\n%s", part, src)
			return
		} else if idx <= last {
			t.Errorf("%q out of order in\n%s", part, src)
			return
		}
		last = idx
	}
}

func TestWriteCompute(t *testing.T) {
	p := NewDefaultProgrammer()
	err := p.SetComputeInvocations(0, 1, 1)
	if err == nil {
		t.Error("expected invalid invocation error")
	}
	err = p.SetComputeInvocations(64, 1, 1)
	if err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	n, objs, err := p.WriteCompute(&buf, []Shader{newTint("la"), newTint("lb")})
	if err != nil {
		t.Fatal(err)
	} else if n != buf.Len() {
		t.Fatal("written length mismatch")
	} else if len(objs) != 2 {
		t.Fatalf("want 2 uniforms, got %d", len(objs))
	}
	src := buf.String()
	assertOrder(t, src, "#version 430", "#define varying\n", "local_size_x = 64", "uniform vec4 u_la_color;",
		"varying float v_la_h;", "void main() {", "vec4 glayer_color = vbo_colors[idx];",
		"v_la_h = position.y;", "v_lb_h = position.y;",
		"glayer_color = glayer_color * u_la_color;", "glayer_color = glayer_color * u_lb_color;",
		"vbo_colors[idx] = glayer_color;")
	if strings.Contains(src, "gl_Position") || strings.Contains(src, "fragColor") {
		t.Error("compute program must not contain stage builtins")
	}
}
