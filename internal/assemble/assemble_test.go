package assemble

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"pinpoint-converter/internal/contour"
	"pinpoint-converter/internal/mesh"
	"pinpoint-converter/internal/probe"
	"pinpoint-converter/internal/refdata"
)

func testAssembler(t *testing.T) *Assembler {
	t.Helper()
	table, err := refdata.Load()
	require.NoError(t, err)
	return New(table, DefaultOptions(), nil)
}

func shankElectrodes(shank int, baseX float64, n int) []probe.Electrode {
	out := make([]probe.Electrode, n)
	for i := range out {
		out[i] = probe.Electrode{
			ID:       shank*n + i,
			X:        baseX,
			Y:        float64(i) * 25,
			Shape:    probe.ShapeCircle,
			ShankID:  shank,
			HasShank: true,
		}
	}
	return out
}

func TestThicknessAssignment(t *testing.T) {
	a := testAssembler(t)

	electrodes := shankElectrodes(0, 0, 4)
	electrodes[2].Z = 7.5 // pre-existing depth must survive

	b, err := a.Convert(probe.Source{Single: &probe.Definition{
		Name:       "ASSY-77-H7",
		Electrodes: electrodes,
	}})
	require.NoError(t, err)

	for i, row := range b.SiteRows {
		if i == 2 {
			assert.Equal(t, 7.5, row.Z, "nonzero input z is preserved verbatim")
		} else {
			assert.Equal(t, 15.0, row.Z, "zero z takes the looked-up thickness")
		}
	}
}

func TestThicknessLookupMissLeavesZ(t *testing.T) {
	a := testAssembler(t)

	b, err := a.Convert(probe.Source{Single: &probe.Definition{
		Name:       "SomeUnknownProbe",
		Electrodes: shankElectrodes(0, 0, 3),
	}})
	require.NoError(t, err)
	for _, row := range b.SiteRows {
		assert.Equal(t, 0.0, row.Z)
	}
}

func TestSiteRowDimensions(t *testing.T) {
	a := testAssembler(t)

	b, err := a.Convert(probe.Source{Single: &probe.Definition{
		Name: "x",
		Electrodes: []probe.Electrode{
			{ID: 0, Shape: probe.ShapeCircle, ShapeParams: map[string]float64{"radius": 10}},
			{ID: 1, Shape: probe.ShapeSquare, ShapeParams: map[string]float64{"width": 12}},
			{ID: 2, Shape: probe.ShapeOther},
		},
	}})
	require.NoError(t, err)

	assert.Equal(t, 20.0, b.SiteRows[0].W) // circle: 2 x radius
	assert.Equal(t, 12.0, b.SiteRows[1].W)
	assert.Equal(t, 20.0, b.SiteRows[2].W) // configured default
	for _, r := range b.SiteRows {
		assert.Equal(t, r.W, r.H)
		assert.Equal(t, 0.0, r.D)
		assert.Equal(t, 1, r.Default)
		assert.Equal(t, 1, r.Layer1)
		assert.Equal(t, 0, r.Layer2)
	}
}

func TestNoGeometryYieldsNoMesh(t *testing.T) {
	a := testAssembler(t)

	b, err := a.Convert(probe.Source{Single: &probe.Definition{
		Name:       "flat",
		Electrodes: shankElectrodes(0, 0, 4),
	}})
	require.NoError(t, err)
	assert.Nil(t, b.Mesh, "single shank, no contour, no model: no mesh")
	assert.Len(t, b.SiteRows, 4, "electrode table is still produced")
}

func TestExternalModelWinsOverContour(t *testing.T) {
	a := testAssembler(t)

	model := mesh.Mesh{
		Vertices: [][3]float64{{100, 0, 0}, {0, 100, 0}, {0, 0, 100}},
		Faces:    [][3]int{{0, 1, 2}},
	}
	b, err := a.Convert(probe.Source{Single: &probe.Definition{
		Name:       "modeled",
		Electrodes: shankElectrodes(0, 0, 2),
		Contour:    [][]float64{{0, 0}, {10, 0}, {10, 10}},
		Model:      &model,
	}})
	require.NoError(t, err)
	require.NotNil(t, b.Mesh)
	assert.Len(t, b.Mesh.Vertices, 3, "passthrough keeps topology")
	assert.Equal(t, [3]float64{1, 0, 0}, b.Mesh.Vertices[0], "passthrough scales")
}

func TestSingleShankContourExtrusion(t *testing.T) {
	a := testAssembler(t)

	b, err := a.Convert(probe.Source{Single: &probe.Definition{
		Name:       "ASSY-77-H1",
		Electrodes: shankElectrodes(0, 5, 4),
		Contour:    [][]float64{{0, 0}, {10, 0}, {10, 100}, {0, 100}},
	}})
	require.NoError(t, err)
	require.NotNil(t, b.Mesh)
	assert.Len(t, b.Mesh.Vertices, 8)
	assert.Len(t, b.Mesh.Faces, 12)

	// Scale 1/100 applied to vertices, never to site rows.
	assert.Equal(t, [3]float64{0.1, 0, 0}, b.Mesh.Vertices[1])
	assert.Equal(t, 5.0, b.SiteRows[0].X)
}

func TestMalformedContourIsHard(t *testing.T) {
	a := testAssembler(t)

	_, err := a.Convert(probe.Source{Single: &probe.Definition{
		Name:       "broken",
		Electrodes: shankElectrodes(0, 0, 2),
		Contour:    [][]float64{{0, 0}, {10, 0}},
	}})
	var malformed contour.MalformedContourError
	require.ErrorAs(t, err, &malformed)
	assert.Contains(t, err.Error(), "broken", "hard errors carry the probe name")
}

func TestMultiShankFromElectrodes(t *testing.T) {
	a := testAssembler(t)

	electrodes := append(shankElectrodes(0, 0, 4), shankElectrodes(1, 250, 4)...)
	b, err := a.Convert(probe.Source{Single: &probe.Definition{
		Name:       "ASSY-77-H7",
		Electrodes: electrodes,
	}})
	require.NoError(t, err)

	require.Len(t, b.SiteRows, 8)
	for _, row := range b.SiteRows {
		assert.Equal(t, 15.0, row.Z)
	}
	assert.Equal(t, 2, b.Meta.Shanks)

	// Each collinear 4-electrode shank derives a 5-point outline
	// (padded box + tip), extruded to 10 vertices; two shanks merged.
	require.NotNil(t, b.Mesh)
	assert.Len(t, b.Mesh.Vertices, 2*(5*2))

	for _, f := range b.Mesh.Faces {
		for _, idx := range f {
			assert.GreaterOrEqual(t, idx, 0)
			assert.Less(t, idx, len(b.Mesh.Vertices))
		}
	}
}

func TestMultiShankContourSplit(t *testing.T) {
	a := testAssembler(t)

	electrodes := append(shankElectrodes(0, 0, 4), shankElectrodes(1, 250, 4)...)
	// One outer contour tracing both shanks.
	cnt := [][]float64{
		{-20, 120}, {-20, 0}, {0, -80}, {20, 0}, {20, 120},
		{230, 120}, {230, 0}, {250, -80}, {270, 0}, {270, 120},
	}
	b, err := a.Convert(probe.Source{Single: &probe.Definition{
		Name:       "ASSY-276-H2",
		Electrodes: electrodes,
		Contour:    cnt,
	}})
	require.NoError(t, err)
	require.NotNil(t, b.Mesh)

	// 5 contour points per shank, bottom+top each, both shanks.
	assert.Len(t, b.Mesh.Vertices, 2*(5*2))
}

func TestGroupContoursMerged(t *testing.T) {
	a := testAssembler(t)

	grp := &probe.GroupDefinition{
		Name:    "ASSY-325D-H7",
		Members: 2,
		Electrodes: append(
			shankElectrodes(0, 0, 4),
			shankElectrodes(1, 0, 4)...,
		),
		Contours: []probe.OffsetContour{
			{Contour: [][]float64{{0, 0}, {70, 0}, {35, -100}}, ProbeIndex: 0, Lateral: 0},
			{Contour: [][]float64{{0, 0}, {70, 0}, {35, -100}}, ProbeIndex: 1, Lateral: 30},
		},
	}
	b, err := a.Convert(probe.Source{Group: grp})
	require.NoError(t, err)

	require.NotNil(t, b.Mesh)
	assert.Len(t, b.Mesh.Vertices, 12)
	assert.Equal(t, 2, b.Meta.Shanks)
	for _, row := range b.SiteRows {
		assert.Equal(t, 15.0, row.Z)
	}
}

func TestConvertIdempotent(t *testing.T) {
	a := testAssembler(t)

	electrodes := append(shankElectrodes(0, 0, 4), shankElectrodes(1, 250, 4)...)
	src := probe.Source{Single: &probe.Definition{
		Name:       "ASSY-77-H7",
		Electrodes: electrodes,
	}}

	first, err := a.Convert(src)
	require.NoError(t, err)
	second, err := a.Convert(src)
	require.NoError(t, err)

	if diff := cmp.Diff(first, second); diff != "" {
		t.Fatalf("conversion is not deterministic (-first +second):\n%s", diff)
	}
}
