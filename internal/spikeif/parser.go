// Package spikeif parses probeinterface / SpikeInterface probe JSON.
// It owns the single-probe vs probe-group decision: downstream code gets
// a discriminated probe.Source and never re-inspects raw input shape.
package spikeif

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"pinpoint-converter/internal/probe"
)

// rawProbe matches one probe object in probeinterface JSON. Several
// fields vary in shape between producers, hence the RawMessage fields.
type rawProbe struct {
	Name              string           `json:"name"`
	Manufacturer      string           `json:"manufacturer"`
	NDim              int              `json:"ndim"`
	SIUnits           string           `json:"si_units"`
	Annotations       map[string]any   `json:"annotations"`
	ContactPositions  [][]float64      `json:"contact_positions"`
	ContactShapes     json.RawMessage  `json:"contact_shapes"`
	ContactShapeParam json.RawMessage  `json:"contact_shape_params"`
	ShankIDs          []json.RawMessage `json:"shank_ids"`
	DeviceChannels    []int            `json:"device_channel_indices"`
	PlanarContour     [][]float64      `json:"probe_planar_contour"`
}

type rawGroup struct {
	Name   string     `json:"name"`
	Probes []rawProbe `json:"probes"`
}

// ParseFile reads a probeinterface JSON file and returns the probe
// source it describes. A file holding one probe (directly, as a
// one-element list, or as a one-member group) parses as Single; a group
// of several probe objects parses as Group.
func ParseFile(path string) (probe.Source, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return probe.Source{}, fmt.Errorf("spikeif: read %s: %w", path, err)
	}
	src, err := Parse(raw, stem(path))
	if err != nil {
		return probe.Source{}, fmt.Errorf("spikeif: parse %s: %w", path, err)
	}
	return src, nil
}

// Parse decodes probeinterface JSON. fallbackName substitutes for probes
// that carry no usable name of their own (typically the source filename).
func Parse(raw []byte, fallbackName string) (probe.Source, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var list []rawProbe
		if err := json.Unmarshal(raw, &list); err != nil {
			return probe.Source{}, err
		}
		return fromProbes("", list, fallbackName)
	}

	var grp rawGroup
	if err := json.Unmarshal(raw, &grp); err != nil {
		return probe.Source{}, err
	}
	if grp.Probes != nil {
		return fromProbes(grp.Name, grp.Probes, fallbackName)
	}

	var single rawProbe
	if err := json.Unmarshal(raw, &single); err != nil {
		return probe.Source{}, err
	}
	def, err := convertProbe(single, fallbackName)
	if err != nil {
		return probe.Source{}, err
	}
	return probe.Source{Single: def}, nil
}

func fromProbes(groupName string, probes []rawProbe, fallbackName string) (probe.Source, error) {
	switch len(probes) {
	case 0:
		return probe.Source{}, fmt.Errorf("no probes in file")
	case 1:
		def, err := convertProbe(probes[0], fallbackName)
		if err != nil {
			return probe.Source{}, err
		}
		return probe.Source{Single: def}, nil
	}

	name := groupName
	if name == "" || name == "Probe Group" {
		name = fallbackName
	}
	grp := &probe.GroupDefinition{Name: name, Members: len(probes)}

	offset := 0
	for i, rp := range probes {
		def, err := convertProbe(rp, fallbackName)
		if err != nil {
			return probe.Source{}, fmt.Errorf("probe %d: %w", i, err)
		}
		for _, e := range def.Electrodes {
			e.ID += offset
			grp.Electrodes = append(grp.Electrodes, e)
		}
		offset += len(def.Electrodes)
		if len(def.Contour) > 0 {
			grp.Contours = append(grp.Contours, probe.OffsetContour{
				Contour:    def.Contour,
				ProbeIndex: i,
				Lateral:    annotationFloat(rp.Annotations, "lateral_offset"),
			})
		}
	}
	return probe.Source{Group: grp}, nil
}

func convertProbe(rp rawProbe, fallbackName string) (*probe.Definition, error) {
	def := &probe.Definition{
		Name:         probeName(rp, fallbackName),
		Manufacturer: rp.Manufacturer,
		Contour:      rp.PlanarContour,
		ChannelMap:   rp.DeviceChannels,
	}
	if def.Manufacturer == "" {
		def.Manufacturer = annotationString(rp.Annotations, "manufacturer")
	}
	def.References = annotationString(rp.Annotations, "references")
	def.SpecURL = annotationString(rp.Annotations, "spec")

	if len(rp.ContactPositions) == 0 {
		return nil, fmt.Errorf("probe has no contact_positions")
	}

	shapes := decodeShapes(rp.ContactShapes, len(rp.ContactPositions))
	params := decodeShapeParams(rp.ContactShapeParam, len(rp.ContactPositions))
	shankIDs := decodeShankIDs(rp.ShankIDs)

	for i, pos := range rp.ContactPositions {
		if len(pos) < 2 {
			return nil, fmt.Errorf("contact %d has %d coords", i, len(pos))
		}
		e := probe.Electrode{
			ID:    i,
			X:     pos[0],
			Y:     pos[1],
			Shape: shapes[i],
		}
		if len(pos) > 2 {
			e.Z = pos[2]
		}
		if i < len(params) {
			e.ShapeParams = params[i]
		}
		if i < len(rp.DeviceChannels) {
			e.Channel = rp.DeviceChannels[i]
			e.HasChannel = true
		}
		if i < len(shankIDs) && shankIDs[i] != nil {
			e.ShankID = *shankIDs[i]
			e.HasShank = true
		}
		def.Electrodes = append(def.Electrodes, e)
	}
	return def, nil
}

// probeName resolves the probe's display name: explicit field, then the
// annotation names, then the source filename for generic placeholders.
func probeName(rp rawProbe, fallbackName string) string {
	name := rp.Name
	if name == "" {
		name = annotationString(rp.Annotations, "name")
	}
	if name == "" {
		name = annotationString(rp.Annotations, "model_name")
	}
	if name == "" || name == "Unknown Probe" || name == "Probe Group" {
		if fallbackName != "" {
			name = fallbackName
		}
	}
	if name == "" {
		name = "Unknown Probe"
	}
	return name
}

// decodeShapes accepts either a single shared shape string or one shape
// per contact; anything unrecognized becomes ShapeOther.
func decodeShapes(raw json.RawMessage, n int) []probe.Shape {
	out := make([]probe.Shape, n)
	for i := range out {
		out[i] = probe.ShapeCircle
	}
	if len(raw) == 0 {
		return out
	}
	var one string
	if err := json.Unmarshal(raw, &one); err == nil {
		s := normalizeShape(one)
		for i := range out {
			out[i] = s
		}
		return out
	}
	var many []string
	if err := json.Unmarshal(raw, &many); err == nil {
		for i := 0; i < n && i < len(many); i++ {
			out[i] = normalizeShape(many[i])
		}
	}
	return out
}

func normalizeShape(s string) probe.Shape {
	switch probe.Shape(strings.ToLower(strings.TrimSpace(s))) {
	case probe.ShapeCircle:
		return probe.ShapeCircle
	case probe.ShapeSquare:
		return probe.ShapeSquare
	case probe.ShapeRect:
		return probe.ShapeRect
	default:
		return probe.ShapeOther
	}
}

// decodeShapeParams accepts a single shared mapping or a per-contact list.
func decodeShapeParams(raw json.RawMessage, n int) []map[string]float64 {
	if len(raw) == 0 {
		return nil
	}
	var one map[string]float64
	if err := json.Unmarshal(raw, &one); err == nil {
		out := make([]map[string]float64, n)
		for i := range out {
			out[i] = one
		}
		return out
	}
	var many []map[string]float64
	if err := json.Unmarshal(raw, &many); err == nil {
		return many
	}
	return nil
}

// decodeShankIDs accepts numeric or string shank ids. Empty or
// non-numeric strings leave the contact without a shank id, matching
// probeinterface files that pad shank_ids with "".
func decodeShankIDs(raw []json.RawMessage) []*int {
	out := make([]*int, len(raw))
	for i, r := range raw {
		var num int
		if err := json.Unmarshal(r, &num); err == nil {
			v := num
			out[i] = &v
			continue
		}
		var s string
		if err := json.Unmarshal(r, &s); err == nil {
			if v, err := strconv.Atoi(strings.TrimSpace(s)); err == nil {
				out[i] = &v
			}
		}
	}
	return out
}

func annotationString(ann map[string]any, key string) string {
	if v, ok := ann[key].(string); ok {
		return v
	}
	return ""
}

func annotationFloat(ann map[string]any, key string) float64 {
	if v, ok := ann[key].(float64); ok {
		return v
	}
	return 0
}

func stem(path string) string {
	base := filepath.Base(path)
	return strings.TrimSuffix(base, filepath.Ext(base))
}
