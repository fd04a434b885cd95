package probe

import (
	"sort"

	"gonum.org/v1/gonum/spatial/r2"

	"pinpoint-converter/internal/mesh"
)

// Shape identifies an electrode contact shape.
type Shape string

const (
	ShapeCircle Shape = "circle"
	ShapeSquare Shape = "square"
	ShapeRect   Shape = "rect"
	ShapeOther  Shape = "other"
)

// Electrode is one sensing contact. Coordinates are micrometers.
// Z stays 0 for planar probes until the assembler substitutes the
// looked-up shank thickness.
type Electrode struct {
	ID          int
	X, Y, Z     float64
	Channel     int
	HasChannel  bool
	Shape       Shape
	ShapeParams map[string]float64
	ShankID     int
	HasShank    bool
}

// Position returns the electrode's planar position.
func (e Electrode) Position() r2.Vec {
	return r2.Vec{X: e.X, Y: e.Y}
}

// Definition is one parsed probe: electrodes plus the optional outer
// contour and externally supplied 3D model.
type Definition struct {
	Name         string
	Manufacturer string
	References   string
	SpecURL      string
	Electrodes   []Electrode
	Contour      [][]float64 // closed outer boundary, points of 2 or 3 coords
	ChannelMap   []int
	Model        *mesh.Mesh // externally supplied 3D model, usually from STL
}

// OffsetContour is one probe-object's contour inside a probe group,
// tagged with the index of the probe it came from. 3D contour points
// already carry their lateral offset in the middle coordinate.
type OffsetContour struct {
	Contour    [][]float64
	ProbeIndex int
	Lateral    float64 // lateral y displacement, when not carried by the points
}

// Source is the discriminated input the assembler consumes. Exactly one
// of the two shapes is populated; the parser decides which, never the
// assembler.
type Source struct {
	Single *Definition

	// Group holds several probe objects representing one logical probe:
	// combined electrodes plus one contour per member object.
	Group *GroupDefinition
}

// GroupDefinition is a multi-object probe group flattened for conversion.
type GroupDefinition struct {
	Name       string
	Electrodes []Electrode
	Contours   []OffsetContour
	Members    int
}

// ShankIDs returns the distinct shank ids present, sorted ascending.
// Electrodes without a shank id are ignored.
func ShankIDs(electrodes []Electrode) []int {
	seen := map[int]bool{}
	var ids []int
	for _, e := range electrodes {
		if e.HasShank && !seen[e.ShankID] {
			seen[e.ShankID] = true
			ids = append(ids, e.ShankID)
		}
	}
	sort.Ints(ids)
	return ids
}

// GroupByShank buckets electrodes by shank id, preserving input order
// within each bucket. Electrodes without a shank id land under id 0.
func GroupByShank(electrodes []Electrode) map[int][]Electrode {
	groups := map[int][]Electrode{}
	for _, e := range electrodes {
		id := 0
		if e.HasShank {
			id = e.ShankID
		}
		groups[id] = append(groups[id], e)
	}
	return groups
}
