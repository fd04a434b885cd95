package stl

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// binarySTL builds a well-formed binary STL from triangle soup.
func binarySTL(tris [][3][3]float32) []byte {
	buf := make([]byte, 84, 84+len(tris)*50)
	binary.LittleEndian.PutUint32(buf[80:], uint32(len(tris)))
	for _, tri := range tris {
		var rec [50]byte
		off := 12 // normal left zero
		for _, v := range tri {
			for _, c := range v {
				binary.LittleEndian.PutUint32(rec[off:], math.Float32bits(c))
				off += 4
			}
		}
		buf = append(buf, rec[:]...)
	}
	return buf
}

const asciiPyramid = `solid pyramid
facet normal 0 0 1
  outer loop
    vertex 0 0 0
    vertex 10 0 0
    vertex 0 10 0
  endloop
endfacet
facet normal 0 0 1
  outer loop
    vertex 10 0 0
    vertex 10 10 0
    vertex 0 10 0
  endloop
endfacet
endsolid pyramid
`

func TestParseASCII(t *testing.T) {
	m, err := Parse([]byte(asciiPyramid))
	require.NoError(t, err)

	// Six soup vertices collapse to four shared corners.
	assert.Len(t, m.Vertices, 4)
	require.Len(t, m.Faces, 2)
	assert.Equal(t, [3]float64{0, 0, 0}, m.Vertices[0])
	assert.Equal(t, [3]int{0, 1, 2}, m.Faces[0])
	assert.Equal(t, [3]int{1, 3, 2}, m.Faces[1])
}

func TestParseBinary(t *testing.T) {
	raw := binarySTL([][3][3]float32{
		{{0, 0, 0}, {10, 0, 0}, {0, 10, 0}},
		{{10, 0, 0}, {10, 10, 0}, {0, 10, 0}},
	})
	m, err := Parse(raw)
	require.NoError(t, err)
	assert.Len(t, m.Vertices, 4)
	assert.Len(t, m.Faces, 2)
	assert.Equal(t, [3]float64{10, 0, 0}, m.Vertices[1])
}

func TestParseBinaryWithSolidHeader(t *testing.T) {
	// Some exporters write binary files whose 80-byte header starts with
	// "solid"; ASCII decoding fails and binary must be retried.
	raw := binarySTL([][3][3]float32{
		{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
	})
	copy(raw[:5], "solid")
	m, err := Parse(raw)
	require.NoError(t, err)
	assert.Len(t, m.Faces, 1)
}

func TestParseTruncatedBinary(t *testing.T) {
	_, err := Parse(make([]byte, 40))
	require.Error(t, err)

	raw := binarySTL([][3][3]float32{
		{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}},
	})
	binary.LittleEndian.PutUint32(raw[80:], 100) // claims more than present
	_, err = Parse(raw)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "claims 100 triangles")
}

func TestParseBadASCII(t *testing.T) {
	_, err := Parse([]byte("solid x\nfacet\nvertex 1 2\nendfacet\nendsolid x\n"))
	require.Error(t, err, "short vertex line fails ASCII and is too small for binary")

	_, err = Parse([]byte("solid empty\nendsolid empty\n"))
	require.Error(t, err, "no facets and too small for binary")
}

func TestParseFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "probe.stl")
	require.NoError(t, os.WriteFile(path, []byte(asciiPyramid), 0o644))

	m, err := ParseFile(path)
	require.NoError(t, err)
	assert.Len(t, m.Faces, 2)

	_, err = ParseFile(filepath.Join(t.TempDir(), "missing.stl"))
	require.Error(t, err)
}
