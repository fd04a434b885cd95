// Package stl reads STL model files, binary or ASCII, into triangle
// meshes for passthrough output. No alignment or repair is attempted;
// the file's geometry is taken as-is.
package stl

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"strconv"
	"strings"

	"pinpoint-converter/internal/mesh"
)

// ParseFile reads an STL file, auto-detecting binary vs ASCII.
func ParseFile(path string) (mesh.Mesh, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return mesh.Mesh{}, fmt.Errorf("stl: read %s: %w", path, err)
	}
	m, err := Parse(raw)
	if err != nil {
		return mesh.Mesh{}, fmt.Errorf("stl: parse %s: %w", path, err)
	}
	return m, nil
}

// Parse decodes STL bytes. Files starting with "solid" that don't decode
// as ASCII are retried as binary; some exporters write binary files with
// a "solid" header.
func Parse(raw []byte) (mesh.Mesh, error) {
	if bytes.HasPrefix(bytes.TrimLeft(raw, " \t\r\n"), []byte("solid")) {
		if m, err := parseASCII(raw); err == nil {
			return m, nil
		}
	}
	return parseBinary(raw)
}

// parseBinary reads the fixed binary layout: 80-byte header, uint32
// triangle count, then 50 bytes per triangle (normal, three vertices,
// attribute count), all little-endian.
func parseBinary(raw []byte) (mesh.Mesh, error) {
	if len(raw) < 84 {
		return mesh.Mesh{}, fmt.Errorf("binary STL truncated at %d bytes", len(raw))
	}
	count := binary.LittleEndian.Uint32(raw[80:84])
	need := 84 + int(count)*50
	if need > len(raw) {
		return mesh.Mesh{}, fmt.Errorf("binary STL claims %d triangles, need %d bytes, have %d", count, need, len(raw))
	}

	r := &reader{data: raw, off: 84}
	b := newBuilder()
	for i := uint32(0); i < count; i++ {
		r.skip(12) // normal, recomputable
		var tri [3]int
		for v := 0; v < 3; v++ {
			x := r.readF32()
			y := r.readF32()
			z := r.readF32()
			tri[v] = b.vertex(float64(x), float64(y), float64(z))
		}
		r.skip(2) // attribute byte count
		b.face(tri)
	}
	return b.mesh, nil
}

func parseASCII(raw []byte) (mesh.Mesh, error) {
	sc := bufio.NewScanner(bytes.NewReader(raw))
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)

	b := newBuilder()
	var tri []int
	for sc.Scan() {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "vertex":
			if len(fields) < 4 {
				return mesh.Mesh{}, fmt.Errorf("ascii STL: short vertex line %q", sc.Text())
			}
			var c [3]float64
			for i := 0; i < 3; i++ {
				v, err := strconv.ParseFloat(fields[i+1], 64)
				if err != nil {
					return mesh.Mesh{}, fmt.Errorf("ascii STL: vertex coord %q: %w", fields[i+1], err)
				}
				c[i] = v
			}
			tri = append(tri, b.vertex(c[0], c[1], c[2]))
		case "endfacet":
			if len(tri) != 3 {
				return mesh.Mesh{}, fmt.Errorf("ascii STL: facet with %d vertices", len(tri))
			}
			b.face([3]int{tri[0], tri[1], tri[2]})
			tri = tri[:0]
		}
	}
	if err := sc.Err(); err != nil {
		return mesh.Mesh{}, err
	}
	if len(b.mesh.Faces) == 0 {
		return mesh.Mesh{}, fmt.Errorf("ascii STL: no facets")
	}
	return b.mesh, nil
}

// reader walks binary STL data with bounds checks; reads past the end
// return zero rather than panicking.
type reader struct {
	data []byte
	off  int
}

func (r *reader) readF32() float32 {
	if r.off+4 > len(r.data) {
		r.off = len(r.data)
		return 0
	}
	v := math.Float32frombits(binary.LittleEndian.Uint32(r.data[r.off:]))
	r.off += 4
	return v
}

func (r *reader) skip(n int) {
	r.off += n
	if r.off > len(r.data) {
		r.off = len(r.data)
	}
}

// builder accumulates a mesh, deduplicating identical vertices so the
// triangle soup STL stores becomes an indexed mesh.
type builder struct {
	mesh  mesh.Mesh
	index map[[3]float64]int
}

func newBuilder() *builder {
	return &builder{index: map[[3]float64]int{}}
}

func (b *builder) vertex(x, y, z float64) int {
	key := [3]float64{x, y, z}
	if i, ok := b.index[key]; ok {
		return i
	}
	i := len(b.mesh.Vertices)
	b.mesh.Vertices = append(b.mesh.Vertices, key)
	b.index[key] = i
	return i
}

func (b *builder) face(tri [3]int) {
	b.mesh.Faces = append(b.mesh.Faces, tri)
}
