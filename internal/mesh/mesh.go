// Package mesh turns 2D outlines into extruded triangle meshes and
// serializes them as Wavefront OBJ text. Scaling happens here and only
// here; electrode coordinates are never scaled.
package mesh

import (
	"errors"
	"fmt"

	"gonum.org/v1/gonum/spatial/r2"

	"pinpoint-converter/internal/contour"
)

// ScaleDenominator is the fixed output scale: every emitted vertex
// coordinate is divided by it, once. The downstream viewer works in
// hundreds of micrometers.
const ScaleDenominator = 100.0

// ErrNoGeometry marks the valid "no 3D data" state: nothing to extrude
// and no external model. Callers skip mesh output; it is not a failure.
var ErrNoGeometry = errors.New("mesh: no geometry data")

// Mesh is an immutable triangle mesh. Faces index Vertices 0-based;
// the 1-based convention exists only in the serialized OBJ text.
type Mesh struct {
	Vertices [][3]float64
	Faces    [][3]int
}

// OffsetContour is one shank cross-section in its native [x, z] plane
// plus the lateral y displacement separating it from its siblings.
// Points with a third coordinate already carry their own y.
type OffsetContour struct {
	Points  [][]float64
	Lateral float64
}

// Extrude builds one solid from per-shank outlines in the x/y plane,
// extruded along z from 0 to thickness. A zero thickness yields a valid
// flat, zero-volume mesh. Vertex indices continue monotonically across
// outlines so faces stay valid in the merged result.
func Extrude(outlines [][]r2.Vec, thickness, scale float64) (Mesh, error) {
	if len(outlines) == 0 {
		return Mesh{}, ErrNoGeometry
	}
	var m Mesh
	for i, outline := range outlines {
		if len(outline) < 3 {
			return Mesh{}, fmt.Errorf("mesh: outline %d: %w", i, contour.MalformedContourError{Points: len(outline)})
		}
		base := len(m.Vertices)
		for _, p := range outline {
			m.Vertices = append(m.Vertices, [3]float64{p.X / scale, p.Y / scale, 0})
		}
		for _, p := range outline {
			m.Vertices = append(m.Vertices, [3]float64{p.X / scale, p.Y / scale, thickness / scale})
		}
		m.Faces = append(m.Faces, prismFaces(base, len(outline))...)
	}
	return m, nil
}

// ExtrudeMerged builds one solid from several contours that each already
// correspond to a single shank. Contours live in the x/z plane; the
// extrusion axis is y, from the contour's lateral offset to offset plus
// thickness. 3D contour points keep their own y and gain thickness on
// the top face.
func ExtrudeMerged(contours []OffsetContour, thickness, scale float64) (Mesh, error) {
	if len(contours) == 0 {
		return Mesh{}, ErrNoGeometry
	}
	var m Mesh
	for i, c := range contours {
		n := len(c.Points)
		if n < 3 {
			return Mesh{}, fmt.Errorf("mesh: contour %d: %w", i, contour.MalformedContourError{Points: n})
		}
		base := len(m.Vertices)
		for _, p := range c.Points {
			v, err := planeVertex(p, c.Lateral, 0, scale)
			if err != nil {
				return Mesh{}, fmt.Errorf("mesh: contour %d: %w", i, err)
			}
			m.Vertices = append(m.Vertices, v)
		}
		for _, p := range c.Points {
			v, err := planeVertex(p, c.Lateral, thickness, scale)
			if err != nil {
				return Mesh{}, fmt.Errorf("mesh: contour %d: %w", i, err)
			}
			m.Vertices = append(m.Vertices, v)
		}
		m.Faces = append(m.Faces, prismFaces(base, n)...)
	}
	return m, nil
}

// Passthrough scales an externally supplied mesh, leaving topology as-is.
func Passthrough(src Mesh, scale float64) (Mesh, error) {
	if len(src.Vertices) == 0 || len(src.Faces) == 0 {
		return Mesh{}, ErrNoGeometry
	}
	out := Mesh{
		Vertices: make([][3]float64, len(src.Vertices)),
		Faces:    make([][3]int, len(src.Faces)),
	}
	for i, v := range src.Vertices {
		out.Vertices[i] = [3]float64{v[0] / scale, v[1] / scale, v[2] / scale}
	}
	copy(out.Faces, src.Faces)
	return out, nil
}

func planeVertex(p []float64, lateral, lift, scale float64) ([3]float64, error) {
	switch len(p) {
	case 2: // [x, z] with external y
		return [3]float64{p[0] / scale, (lateral + lift) / scale, p[1] / scale}, nil
	case 3: // [x, y, z] carrying its own y
		return [3]float64{p[0] / scale, (p[1] + lateral + lift) / scale, p[2] / scale}, nil
	default:
		return [3]float64{}, fmt.Errorf("point has %d coords", len(p))
	}
}

// prismFaces triangulates one extruded outline: fan caps from the first
// vertex plus two side triangles per edge, wound outward. Fans are only
// exact for convex outlines; a concave outline flips some cap normals,
// which is a known limit of the fixed fan, not corrected here.
func prismFaces(base, n int) [][3]int {
	faces := make([][3]int, 0, 4*n-4)
	for i := 1; i < n-1; i++ {
		faces = append(faces, [3]int{base, base + i, base + i + 1})
	}
	top := base + n
	for i := 1; i < n-1; i++ {
		faces = append(faces, [3]int{top, top + i + 1, top + i})
	}
	for i := 0; i < n; i++ {
		next := (i + 1) % n
		b1, b2 := base+i, base+next
		t1, t2 := b1+n, b2+n
		faces = append(faces, [3]int{b1, b2, t1}, [3]int{b2, t2, t1})
	}
	return faces
}
