package glrender

import (
	"errors"
	"io"

	"github.com/soypat/geometry/ms3"
)

type Renderer interface {
	ReadTriangles(dst []ms3.Triangle, userData any) (n int, err error)
}

// RenderAll reads the full contents of a Renderer and returns the slice read.
// It does not return error on io.EOF, like the io.RenderAll implementation.
func RenderAll(r Renderer, userData any) ([]ms3.Triangle, error) {
	const startSize = 4096
	var err error
	var nt int
	result := make([]ms3.Triangle, 0, startSize)
	buf := make([]ms3.Triangle, startSize)
	for {
		nt, err = r.ReadTriangles(buf, userData)
		if err == nil || err == io.EOF {
			result = append(result, buf[:nt]...)
		}
		if err != nil {
			break
		}
	}
	if err == io.EOF {
		return result, nil
	}
	return result, err
}

// Plane is a parallelogram spanned by edges U and V from Origin, used as the
// surface layers are drawn onto by the image renderer and the preview window.
type Plane struct {
	Origin ms3.Vec
	U, V   ms3.Vec
}

// PlaneXZ returns the plane of y=0 centered at center with the given side lengths.
func PlaneXZ(center ms3.Vec, sizeX, sizeZ float32) Plane {
	return Plane{
		Origin: ms3.Sub(center, ms3.Vec{X: sizeX / 2, Z: sizeZ / 2}),
		U:      ms3.Vec{X: sizeX},
		V:      ms3.Vec{Z: sizeZ},
	}
}

// At returns the point at parametric coordinates (s,t) where (0,0) is Origin
// and (1,1) is the corner opposite to it.
func (p Plane) At(s, t float32) ms3.Vec {
	return ms3.Add(p.Origin, ms3.Add(ms3.Scale(s, p.U), ms3.Scale(t, p.V)))
}

// Area returns the area of the plane. Zero for degenerate planes.
func (p Plane) Area() float32 {
	return ms3.Norm(ms3.Cross(p.U, p.V))
}

// PlaneMesher triangulates a [Plane] into a grid of quads, two triangles each.
type PlaneMesher struct {
	plane  Plane
	nu, nv int
	next   int // next quad to emit.
}

// NewPlaneMesher creates a mesher dividing plane into nu by nv quads.
func NewPlaneMesher(plane Plane, nu, nv int) (*PlaneMesher, error) {
	if nu <= 0 || nv <= 0 {
		return nil, errors.New("plane subdivisions must be positive")
	}
	return &PlaneMesher{plane: plane, nu: nu, nv: nv}, nil
}

// ReadTriangles implements [Renderer]. Returns io.EOF once all quads are read.
func (pm *PlaneMesher) ReadTriangles(dst []ms3.Triangle, userData any) (n int, err error) {
	if len(dst) < 2 {
		return 0, io.ErrShortBuffer
	}
	total := pm.nu * pm.nv
	du := 1 / float32(pm.nu)
	dv := 1 / float32(pm.nv)
	for pm.next < total && n+2 <= len(dst) {
		i, j := pm.next%pm.nu, pm.next/pm.nu
		s0, t0 := float32(i)*du, float32(j)*dv
		s1, t1 := float32(i+1)*du, float32(j+1)*dv
		q := [4]ms3.Vec{
			pm.plane.At(s0, t0),
			pm.plane.At(s1, t0),
			pm.plane.At(s1, t1),
			pm.plane.At(s0, t1),
		}
		dst[n] = ms3.Triangle{q[0], q[1], q[2]}
		dst[n+1] = ms3.Triangle{q[2], q[3], q[0]}
		n += 2
		pm.next++
	}
	if pm.next == total {
		err = io.EOF
	}
	return n, err
}

// Reset rewinds the mesher so that triangles are read again from the start.
func (pm *PlaneMesher) Reset() { pm.next = 0 }

// AppendPositions appends the vertices of triangles as contiguous float32 triplets,
// the layout of a position vertex buffer.
func AppendPositions(dst []float32, triangles []ms3.Triangle) []float32 {
	for _, tri := range triangles {
		for _, v := range tri {
			dst = append(dst, v.X, v.Y, v.Z)
		}
	}
	return dst
}
