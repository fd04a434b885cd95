// Package assemble orchestrates geometry derivation for one probe: it
// picks the mesh-generation strategy, assigns the shank-thickness z
// coordinate, and produces the plain-data bundle the writer persists.
package assemble

import (
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/spatial/r2"

	"pinpoint-converter/internal/contour"
	"pinpoint-converter/internal/mesh"
	"pinpoint-converter/internal/probe"
	"pinpoint-converter/internal/refdata"
)

// MetaType is the fixed placeholder probe type id in metadata.json.
const MetaType = 1001

// Options are geometry and site-map defaults, micrometers.
type Options struct {
	Padding          float64 // outward margin for electrode-derived outlines
	TipDrop          float64 // tip vertex drop below the lowest electrode
	Scale            float64 // vertex coordinate divisor for mesh output
	DefaultSiteWidth float64 // site w/h when the shape gives none
}

// DefaultOptions returns the converter's stock geometry settings.
func DefaultOptions() Options {
	return Options{
		Padding:          contour.DefaultPadding,
		TipDrop:          contour.DefaultTipDrop,
		Scale:            mesh.ScaleDenominator,
		DefaultSiteWidth: 20,
	}
}

// Meta is the metadata.json record.
type Meta struct {
	Name       string `json:"name"`
	Type       int    `json:"type"`
	Producer   string `json:"producer"`
	Sites      int    `json:"sites"`
	Shanks     int    `json:"shanks"`
	References string `json:"references"`
	Spec       string `json:"spec"`
}

// SiteRow is one site_map.csv record. Coordinates stay in micrometers;
// the mesh scale factor never touches them.
type SiteRow struct {
	Index   int
	X, Y, Z float64
	W, H, D float64
	Default int
	Layer1  int
	Layer2  int
}

// Bundle is everything produced for one probe, plain data with no I/O.
// Mesh is nil in the valid "no 3D data" state.
type Bundle struct {
	Name     string
	Meta     Meta
	SiteRows []SiteRow
	Mesh     *mesh.Mesh
	Shanks   int
}

// Assembler converts parsed probe sources into output bundles. The
// reference table is injected once; Assembler itself carries no state
// across conversions.
type Assembler struct {
	Ref  *refdata.Table
	Opts Options
	Log  *zap.SugaredLogger
}

// New returns an assembler with the given reference table and defaults.
func New(ref *refdata.Table, opts Options, log *zap.SugaredLogger) *Assembler {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Assembler{Ref: ref, Opts: opts, Log: log}
}

// Convert runs the full per-probe pipeline. Hard geometry errors abort
// the probe with context; missing geometry is absorbed as a nil mesh.
func (a *Assembler) Convert(src probe.Source) (*Bundle, error) {
	switch {
	case src.Group != nil:
		return a.convertGroup(src.Group)
	case src.Single != nil:
		return a.convertSingle(src.Single)
	default:
		return nil, fmt.Errorf("assemble: empty probe source")
	}
}

func (a *Assembler) convertSingle(def *probe.Definition) (*Bundle, error) {
	thickness, found := a.lookupThickness(def.Name)

	m, err := a.buildMesh(def, thickness)
	if err != nil {
		return nil, fmt.Errorf("assemble: probe %q: %w", def.Name, err)
	}

	electrodes := applyThickness(def.Electrodes, thickness, found)
	shanks := shankCount(def.Electrodes)

	return &Bundle{
		Name: def.Name,
		Meta: Meta{
			Name:       def.Name,
			Type:       MetaType,
			Producer:   def.Manufacturer,
			Sites:      len(electrodes),
			Shanks:     shanks,
			References: def.References,
			Spec:       def.SpecURL,
		},
		SiteRows: a.siteRows(electrodes),
		Mesh:     m,
		Shanks:   shanks,
	}, nil
}

func (a *Assembler) convertGroup(grp *probe.GroupDefinition) (*Bundle, error) {
	thickness, found := a.lookupThickness(grp.Name)

	var m *mesh.Mesh
	if len(grp.Contours) > 0 {
		contours := make([]mesh.OffsetContour, len(grp.Contours))
		for i, c := range grp.Contours {
			contours[i] = mesh.OffsetContour{Points: c.Contour, Lateral: c.Lateral}
		}
		merged, err := mesh.ExtrudeMerged(contours, thickness, a.Opts.Scale)
		if err != nil {
			return nil, fmt.Errorf("assemble: group %q: merge contours: %w", grp.Name, err)
		}
		m = &merged
	}

	electrodes := applyThickness(grp.Electrodes, thickness, found)
	shanks := grp.Members
	if n := shankCount(grp.Electrodes); n > shanks {
		shanks = n
	}

	return &Bundle{
		Name: grp.Name,
		Meta: Meta{
			Name:   grp.Name,
			Type:   MetaType,
			Sites:  len(electrodes),
			Shanks: shanks,
		},
		SiteRows: a.siteRows(electrodes),
		Mesh:     m,
		Shanks:   shanks,
	}, nil
}

// buildMesh applies the fixed strategy order: external model, then
// contour split across shanks, then electrode-derived outlines, then the
// contour alone, then no mesh at all. First match wins.
func (a *Assembler) buildMesh(def *probe.Definition, thickness float64) (*mesh.Mesh, error) {
	shankIDs := probe.ShankIDs(def.Electrodes)
	multi := len(shankIDs) > 1

	switch {
	case def.Model != nil && len(def.Model.Vertices) > 0 && len(def.Model.Faces) > 0:
		out, err := mesh.Passthrough(*def.Model, a.Opts.Scale)
		if err != nil {
			return nil, fmt.Errorf("model passthrough: %w", err)
		}
		return &out, nil

	case multi && len(def.Contour) > 0:
		outlines, err := a.splitContour(def, shankIDs)
		if err != nil {
			return nil, err
		}
		out, err := mesh.Extrude(outlines, thickness, a.Opts.Scale)
		if err != nil {
			return nil, fmt.Errorf("extrude split shanks: %w", err)
		}
		return &out, nil

	case multi:
		outlines, err := a.electrodeOutlines(def, shankIDs)
		if err != nil {
			return nil, err
		}
		out, err := mesh.Extrude(outlines, thickness, a.Opts.Scale)
		if err != nil {
			return nil, fmt.Errorf("extrude shank outlines: %w", err)
		}
		return &out, nil

	case len(def.Contour) > 0:
		if len(def.Contour) < 3 {
			return nil, contour.MalformedContourError{Points: len(def.Contour)}
		}
		outline := make([]r2.Vec, len(def.Contour))
		for i, p := range def.Contour {
			if len(p) < 2 {
				return nil, fmt.Errorf("contour point %d has %d coords", i, len(p))
			}
			outline[i] = r2.Vec{X: p[0], Y: p[1]}
		}
		out, err := mesh.Extrude([][]r2.Vec{outline}, thickness, a.Opts.Scale)
		if err != nil {
			return nil, fmt.Errorf("extrude contour: %w", err)
		}
		return &out, nil

	default:
		// No contour, no model, one shank: valid no-mesh state.
		a.Log.Infow("no geometry data, skipping mesh", "probe", def.Name)
		return nil, nil
	}
}

// splitContour partitions the probe's single outer contour into one
// outline per shank by x proximity to each shank's electrode centroid.
func (a *Assembler) splitContour(def *probe.Definition, shankIDs []int) ([][]r2.Vec, error) {
	groups := positionsByShank(def.Electrodes)
	for _, id := range shankIDs {
		if len(groups[id]) == 0 {
			return nil, contour.DegenerateShankError{ShankID: id}
		}
	}
	split, err := contour.SplitByProximity(def.Contour, contour.Centroids(groups))
	if err != nil {
		return nil, fmt.Errorf("split contour: %w", err)
	}
	outlines := make([][]r2.Vec, 0, len(shankIDs))
	for _, id := range shankIDs {
		outlines = append(outlines, split[id])
	}
	return outlines, nil
}

// electrodeOutlines derives one hull-and-taper outline per shank from
// electrode positions alone.
func (a *Assembler) electrodeOutlines(def *probe.Definition, shankIDs []int) ([][]r2.Vec, error) {
	groups := positionsByShank(def.Electrodes)
	outlines := make([][]r2.Vec, 0, len(shankIDs))
	for _, id := range shankIDs {
		pts := groups[id]
		if len(pts) == 0 {
			return nil, contour.DegenerateShankError{ShankID: id}
		}
		outlines = append(outlines, contour.ShankOutline(pts, a.Opts.Padding, a.Opts.TipDrop))
	}
	return outlines, nil
}

func (a *Assembler) lookupThickness(name string) (float64, bool) {
	if a.Ref == nil || name == "" {
		return 0, false
	}
	t, ok := a.Ref.ShankThickness(name)
	if ok {
		a.Log.Infow("shank thickness from reference table", "probe", name, "um", t)
	} else {
		a.Log.Infow("no shank thickness reference, extruding flat", "probe", name)
	}
	return t, ok
}

// applyThickness substitutes the looked-up thickness for z, exactly once
// and only where the parsed z was exactly zero. Electrodes arriving with
// real depth keep it verbatim. Input records are never mutated.
func applyThickness(electrodes []probe.Electrode, thickness float64, found bool) []probe.Electrode {
	out := make([]probe.Electrode, len(electrodes))
	copy(out, electrodes)
	if !found {
		return out
	}
	for i := range out {
		if out[i].Z == 0 {
			out[i].Z = thickness
		}
	}
	return out
}

func (a *Assembler) siteRows(electrodes []probe.Electrode) []SiteRow {
	rows := make([]SiteRow, len(electrodes))
	for i, e := range electrodes {
		w := a.Opts.DefaultSiteWidth
		switch e.Shape {
		case probe.ShapeCircle:
			if r, ok := e.ShapeParams["radius"]; ok {
				w = r * 2
			}
		case probe.ShapeSquare:
			if s, ok := e.ShapeParams["width"]; ok {
				w = s
			}
		}
		rows[i] = SiteRow{
			Index:   e.ID,
			X:       e.X,
			Y:       e.Y,
			Z:       e.Z,
			W:       w,
			H:       w,
			D:       0,
			Default: 1,
			Layer1:  1,
			Layer2:  0,
		}
	}
	return rows
}

func positionsByShank(electrodes []probe.Electrode) map[int][]r2.Vec {
	groups := map[int][]r2.Vec{}
	for _, e := range electrodes {
		if e.HasShank {
			groups[e.ShankID] = append(groups[e.ShankID], e.Position())
		}
	}
	return groups
}

func shankCount(electrodes []probe.Electrode) int {
	if n := len(probe.ShankIDs(electrodes)); n > 0 {
		return n
	}
	return 1
}
