package mesh

import (
	"fmt"
	"strconv"
	"strings"
)

// EncodeOBJ serializes a mesh as Wavefront OBJ text: one `v x y z` line
// per vertex in order, one `f i j k` line per triangle with 1-based
// indices. The byte layout is the downstream viewer's contract; keep the
// line syntax and ordering stable.
func EncodeOBJ(m Mesh, comment string) (string, error) {
	if len(m.Vertices) == 0 {
		return "", ErrNoGeometry
	}
	var b strings.Builder
	b.WriteString("# Probe 3D model\n")
	if comment != "" {
		b.WriteString("# " + comment + "\n")
	}
	b.WriteString("\n")

	for _, v := range m.Vertices {
		b.WriteString("v ")
		b.WriteString(ftoa(v[0]))
		b.WriteByte(' ')
		b.WriteString(ftoa(v[1]))
		b.WriteByte(' ')
		b.WriteString(ftoa(v[2]))
		b.WriteByte('\n')
	}
	b.WriteString("\n")

	nv := len(m.Vertices)
	for i, f := range m.Faces {
		for _, idx := range f {
			if idx < 0 || idx >= nv {
				return "", fmt.Errorf("mesh: face %d references vertex %d of %d", i, idx, nv)
			}
		}
		fmt.Fprintf(&b, "f %d %d %d\n", f[0]+1, f[1]+1, f[2]+1)
	}
	return b.String(), nil
}

// ftoa formats a coordinate with the shortest exact decimal form.
func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
