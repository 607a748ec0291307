//go:build !tinygo && cgo

package glayeraux

import (
	"bytes"
	"fmt"
	"time"

	"github.com/go-gl/gl/v4.6-core/gl"
	"github.com/go-gl/glfw/v3.3/glfw"
	"github.com/go-gl/mathgl/mgl32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glayer"
	"github.com/soypat/glayer/glbuild"
	"github.com/soypat/glayer/gleval"
	"github.com/soypat/glayer/glrender"
	"github.com/soypat/glgl/v4.6-core/glgl"
)

// boundUniform is a layer uniform cell and its location in the linked program.
type boundUniform struct {
	loc int32
	obj glbuild.ShaderObject
}

func ui(layers []glayer.Layer, cfg UIConfig) error {
	window, term, err := startGLFW(cfg.Width, cfg.Height)
	if err != nil {
		return err
	}
	defer term()

	shaders := make([]glbuild.Shader, len(layers))
	for i := range layers {
		shaders[i] = layers[i]
	}
	programmer := glbuild.NewDefaultProgrammer()
	err = programmer.SetStages(glbuild.DefaultVertexStage(), glbuild.DefaultFragmentStage(cfg.Base))
	if err != nil {
		return err
	}
	var vertSrc, fragSrc bytes.Buffer
	_, err = programmer.WriteVertex(&vertSrc, shaders)
	if err != nil {
		return err
	}
	_, objs, err := programmer.WriteFragment(&fragSrc, shaders)
	if err != nil {
		return err
	}
	vertSrc.WriteByte(0)
	fragSrc.WriteByte(0)
	prog, err := glgl.CompileProgram(glgl.ShaderSource{
		Vertex:   vertSrc.String(),
		Fragment: fragSrc.String(),
	})
	if err != nil {
		return fmt.Errorf("%s\n\n%s\n\n%w", vertSrc.String(), fragSrc.String(), err)
	}
	prog.Bind()

	// Compilers discard unused uniforms. Their location is -1 which OpenGL ignores on upload.
	location := func(name string) int32 {
		loc, err := prog.UniformLocation(name + "\x00")
		if err != nil {
			return -1
		}
		return loc
	}
	bound := make([]boundUniform, len(objs))
	for i, obj := range objs {
		bound[i] = boundUniform{loc: location(obj.Name()), obj: obj}
	}
	modelUniform := location("modelMatrix")
	viewUniform := location("viewMatrix")
	projUniform := location("projectionMatrix")
	camUniform := location("cameraPosition")

	// Upload the plane the layers are drawn onto.
	mesher, err := glrender.NewPlaneMesher(cfg.Plane, 64, 64)
	if err != nil {
		return err
	}
	triangles, err := glrender.RenderAll(mesher, nil)
	if err != nil {
		return err
	}
	vertices := glrender.AppendPositions(nil, triangles)
	var vao uint32
	gl.GenVertexArrays(1, &vao)
	gl.BindVertexArray(vao)
	var vbo uint32
	gl.GenBuffers(1, &vbo)
	gl.BindBuffer(gl.ARRAY_BUFFER, vbo)
	gl.BufferData(gl.ARRAY_BUFFER, 4*len(vertices), gl.Ptr(vertices), gl.STATIC_DRAW)
	posAttrib, err := prog.AttribLocation("position\x00")
	if err != nil {
		return err
	}
	gl.EnableVertexAttribArray(posAttrib)
	gl.VertexAttribPointer(posAttrib, 3, gl.FLOAT, false, 0, gl.PtrOffset(0))

	gl.Enable(gl.DEPTH_TEST)
	gl.Enable(gl.BLEND)
	gl.BlendFunc(gl.SRC_ALPHA, gl.ONE_MINUS_SRC_ALPHA)

	center := cfg.Plane.At(0.5, 0.5)
	cam := NewOrbitCamera(center, 1.5*ms3.Norm(ms3.Add(cfg.Plane.U, cfg.Plane.V)))
	var (
		lastMouseX       float64
		lastMouseY       float64
		firstMouseMove   = true
		isMousePressed   = false
		yawSensitivity   = 0.005
		pitchSensitivity = 0.005
	)
	window.SetCursorPosCallback(func(w *glfw.Window, xpos float64, ypos float64) {
		if !isMousePressed {
			return
		}
		if firstMouseMove {
			lastMouseX = xpos
			lastMouseY = ypos
			firstMouseMove = false
		}
		deltaX := xpos - lastMouseX
		deltaY := ypos - lastMouseY
		cam.Rotate(float32(deltaX*yawSensitivity), float32(deltaY*pitchSensitivity))
		lastMouseX = xpos
		lastMouseY = ypos
	})
	window.SetScrollCallback(func(w *glfw.Window, xoff, yoff float64) {
		cam.Zoom(float32(yoff))
	})
	window.SetMouseButtonCallback(func(w *glfw.Window, button glfw.MouseButton, action glfw.Action, mods glfw.ModifierKey) {
		if button != glfw.MouseButtonLeft {
			return
		}
		if action == glfw.Press {
			isMousePressed = true
			firstMouseMove = true
			window.SetInputMode(glfw.CursorMode, glfw.CursorDisabled)
		} else if action == glfw.Release {
			isMousePressed = false
			window.SetInputMode(glfw.CursorMode, glfw.CursorNormal)
		}
	})

	model := mgl32.Ident4()
	start := time.Now()
	ctx := cfg.Context
	for !window.ShouldClose() {
		if ctx != nil {
			select {
			case <-ctx.Done():
				return ctx.Err()
			default:
			}
		}
		if cfg.Update != nil {
			cfg.Update(time.Since(start))
		}
		width, height := window.GetFramebufferSize()
		gl.Viewport(0, 0, int32(width), int32(height))
		gl.ClearColor(0.1, 0.1, 0.1, 1.0)
		gl.Clear(gl.COLOR_BUFFER_BIT | gl.DEPTH_BUFFER_BIT)

		prog.Bind()
		view := cam.ViewMatrix()
		proj := cam.ProjectionMatrix(float32(width) / float32(max(height, 1)))
		camPos := cam.Position()
		gl.UniformMatrix4fv(modelUniform, 1, false, &model[0])
		gl.UniformMatrix4fv(viewUniform, 1, false, &view[0])
		gl.UniformMatrix4fv(projUniform, 1, false, &proj[0])
		gl.Uniform3f(camUniform, camPos.X, camPos.Y, camPos.Z)
		for _, u := range bound {
			err = gleval.UploadUniform(u.loc, u.obj)
			if err != nil {
				return err
			}
		}

		gl.BindVertexArray(vao)
		gl.DrawArrays(gl.TRIANGLES, 0, int32(len(vertices)/3))
		window.SwapBuffers()
		glfw.PollEvents()
		time.Sleep(time.Second / 60)
	}
	return nil
}

func startGLFW(width, height int) (window *glfw.Window, term func(), err error) {
	if err := glfw.Init(); err != nil {
		return nil, nil, fmt.Errorf("failed to initialize GLFW: %w", err)
	}
	// Programs are GLSL 330 core which any 4.6 context accepts.
	glfw.WindowHint(glfw.ContextVersionMajor, 4)
	glfw.WindowHint(glfw.ContextVersionMinor, 6)
	glfw.WindowHint(glfw.OpenGLProfile, glfw.OpenGLCoreProfile)
	glfw.WindowHint(glfw.Resizable, glfw.True)

	window, err = glfw.CreateWindow(width, height, "glayer preview", nil, nil)
	if err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("failed to create GLFW window: %w", err)
	}
	window.MakeContextCurrent()
	if err := gl.Init(); err != nil {
		glfw.Terminate()
		return nil, nil, fmt.Errorf("failed to initialize OpenGL: %w", err)
	}
	return window, glfw.Terminate, nil
}
