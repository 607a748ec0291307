package glayeraux

import (
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"time"

	"github.com/soypat/glayer"
	"github.com/soypat/glayer/glbuild"
	"github.com/soypat/glayer/gleval"
	"github.com/soypat/glayer/glrender"
)

type RenderConfig struct {
	// ImageOutput receives a PNG of the layers evaluated over Plane on the CPU.
	ImageOutput io.Writer
	// VertexOutput and FragmentOutput receive the assembled GLSL programs.
	VertexOutput   io.Writer
	FragmentOutput io.Writer
	// Width and Height are the image dimensions in pixels.
	Width, Height int
	// Plane is the world surface the image is sampled from.
	Plane glrender.Plane
	// View is passed to layers that read the camera position.
	View gleval.View
	// Base is the color layers are blended over.
	Base   [4]float32
	Silent bool
}

// Render is an auxiliary function to aid users in getting setup in using glayer quickly.
// It writes the GLSL programs and a CPU preview of the layers to the outputs set in cfg.
func Render(layers []glayer.Layer, cfg RenderConfig) (err error) {
	if cfg.ImageOutput == nil && cfg.VertexOutput == nil && cfg.FragmentOutput == nil {
		return errors.New("Render requires output parameter in config")
	}
	log := func(args ...any) {
		if !cfg.Silent {
			fmt.Println(args...)
		}
	}
	shaders := make([]glbuild.Shader, len(layers))
	colorers := make([]gleval.Colorer, len(layers))
	for i := range layers {
		shaders[i] = layers[i]
		colorers[i] = layers[i]
	}
	programmer := glbuild.NewDefaultProgrammer()
	err = programmer.SetStages(glbuild.DefaultVertexStage(), glbuild.DefaultFragmentStage(cfg.Base))
	if err != nil {
		return err
	}
	if cfg.VertexOutput != nil {
		watch := stopwatch()
		_, err = programmer.WriteVertex(cfg.VertexOutput, shaders)
		if err != nil {
			return fmt.Errorf("writing vertex GLSL: %w", err)
		}
		log("wrote", outputName(cfg.VertexOutput, "vertex GLSL"), "in", watch())
	}
	if cfg.FragmentOutput != nil {
		watch := stopwatch()
		_, objs, err := programmer.WriteFragment(cfg.FragmentOutput, shaders)
		if err != nil {
			return fmt.Errorf("writing fragment GLSL: %w", err)
		}
		log("wrote", outputName(cfg.FragmentOutput, "fragment GLSL"), "with", len(objs), "uniforms in", watch())
	}
	if cfg.ImageOutput != nil {
		watch := stopwatch()
		img, err := RenderImage(colorers, cfg)
		if err != nil {
			return err
		}
		err = png.Encode(cfg.ImageOutput, img)
		if err != nil {
			return err
		}
		log("rendered", outputName(cfg.ImageOutput, "image"), "of", len(layers), "layers in", watch())
	}
	return nil
}

// RenderImage evaluates the layers over cfg.Plane on the CPU.
func RenderImage(layers []gleval.Colorer, cfg RenderConfig) (*image.NRGBA, error) {
	if cfg.Width <= 0 || cfg.Height <= 0 {
		return nil, fmt.Errorf("invalid image size %dx%d", cfg.Width, cfg.Height)
	} else if cfg.Plane.Area() == 0 {
		return nil, errors.New("degenerate render plane")
	}
	img := image.NewNRGBA(image.Rect(0, 0, cfg.Width, cfg.Height))
	renderer, err := glrender.NewImageRenderer(max(4096, cfg.Height), cfg.Base, nil)
	if err != nil {
		return nil, err
	}
	err = renderer.Render(layers, cfg.Plane, img, cfg.View)
	if err != nil {
		return nil, err
	}
	return img, nil
}

// RenderPNGFile renders the layers over cfg.Plane and saves result to a PNG file with said filename.
// Output fields of cfg are ignored.
func RenderPNGFile(filename string, layers []glayer.Layer, cfg RenderConfig) error {
	fp, err := os.Create(filename)
	if err != nil {
		return err
	}
	defer fp.Close()
	cfg.ImageOutput = fp
	cfg.VertexOutput = nil
	cfg.FragmentOutput = nil
	err = Render(layers, cfg)
	if err != nil {
		return err
	}
	return fp.Sync()
}

type UIConfig struct {
	Width, Height int
	// Context cancels the preview window when done.
	Context context.Context
	// Plane is the surface drawn with the layers applied to it.
	Plane glrender.Plane
	// Base is the color layers are blended over.
	Base [4]float32
	// Update is called every frame before uniforms are uploaded. Layer values
	// set by Update are seen by the program without recompiling it.
	Update func(elapsed time.Duration)
}

// UI opens a window drawing cfg.Plane with the layers applied. Drag to orbit
// the camera and scroll to zoom. Requires cgo.
func UI(layers []glayer.Layer, cfg UIConfig) error {
	if len(layers) == 0 {
		return errors.New("no layers to preview")
	}
	if cfg.Plane.Area() == 0 {
		return errors.New("degenerate preview plane")
	}
	if cfg.Width <= 0 || cfg.Height <= 0 {
		cfg.Width, cfg.Height = 800, 600
	}
	return ui(layers, cfg)
}

func outputName(w io.Writer, fallback string) string {
	if fp, ok := w.(*os.File); ok {
		return fp.Name()
	}
	return fallback
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration {
		return time.Since(start)
	}
}
