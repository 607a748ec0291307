package glrender

import (
	"errors"
	"fmt"
	"image"
	"image/color"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/glayer/gleval"
)

type setImage = interface {
	image.Image
	Set(x, y int, c color.Color)
}

// ImageRenderer renders stacks of layers over a [Plane] to images on the CPU.
type ImageRenderer struct {
	conv func([4]float32) color.Color
	base [4]float32
	pos  []ms3.Vec
	col  [][4]float32
}

// NewImageRenderer instances a new [ImageRenderer]. Every pixel starts as base
// before layers are blended over it. A nil conversion function clamps channels
// to [0,1] and renders NaN or infinite colors as opaque magenta.
func NewImageRenderer(evalBufferSize int, base [4]float32, conversion func([4]float32) color.Color) (*ImageRenderer, error) {
	if evalBufferSize <= 64 {
		return nil, errors.New("too small evaluation buffer size")
	}
	if conversion == nil {
		conversion = ClampedColor
	}
	ir := &ImageRenderer{
		conv: conversion,
		base: base,
		pos:  make([]ms3.Vec, evalBufferSize),
		col:  make([][4]float32, evalBufferSize),
	}
	return ir, nil
}

// ClampedColor converts a linear color to [color.NRGBA] clamping each channel.
func ClampedColor(c [4]float32) color.Color {
	for _, v := range c {
		if math32.IsNaN(v) || math32.IsInf(v, 0) {
			return color.NRGBA{R: 255, B: 255, A: 255}
		}
	}
	return color.NRGBA{R: to8(c[0]), G: to8(c[1]), B: to8(c[2]), A: to8(c[3])}
}

func to8(v float32) uint8 {
	v = math32.Max(0, math32.Min(1, v))
	return uint8(v*255 + 0.5)
}

// Render maps the plane to the image so that the image's top left pixel lies at
// the plane's Origin, columns advance along U and rows along V. It uses userData
// as an argument to all [gleval.Colorer.EvaluateColor] calls.
func (ir *ImageRenderer) Render(layers []gleval.Colorer, plane Plane, img setImage, userData any) error {
	imgBB := img.Bounds()
	dxi := imgBB.Dx()
	dyi := imgBB.Dy()
	if len(ir.col) < dyi {
		return fmt.Errorf("require evaluation buffer (%d) to be at least of length of image columns (%d)", len(ir.col), dyi)
	}
	for i := 0; i < dxi; i++ {
		s := (float32(i) + 0.5) / float32(dxi) // Offset to pixel center.
		err := ir.renderColumn(layers, plane, i, s, imgBB, img, userData)
		if err != nil {
			return err
		}
	}
	return nil
}

func (ir *ImageRenderer) renderColumn(layers []gleval.Colorer, plane Plane, col int, s float32, imgBB image.Rectangle, img setImage, userData any) error {
	dyi := imgBB.Dy()
	for j := 0; j < dyi; j++ {
		t := (float32(j) + 0.5) / float32(dyi)
		ir.pos[j] = plane.At(s, t)
	}
	err := gleval.EvaluateStack(layers, ir.pos[:dyi], ir.col[:dyi], ir.base, userData)
	if err != nil {
		return err
	}
	conv := ir.conv
	for j := 0; j < dyi; j++ {
		img.Set(col+imgBB.Min.X, j+imgBB.Min.Y, conv(ir.col[j]))
	}
	return nil
}
