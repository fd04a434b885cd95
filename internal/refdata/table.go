// Package refdata holds the static probe reference table used to look up
// physical shank dimensions that planar probe descriptions omit.
package refdata

import (
	"bytes"
	_ "embed"
	"encoding/csv"
	"fmt"
	"os"
	"strconv"
	"strings"
)

//go:embed probes.csv
var embedded []byte

// Table maps a probe part code (e.g. "H7") to its reference row.
// Construct once and inject; lookups never mutate it.
type Table struct {
	rows map[string]map[string]string
}

// Load parses the embedded reference CSV.
func Load() (*Table, error) {
	return parse(embedded, "embedded probes.csv")
}

// LoadFile parses a reference CSV from disk, for site-specific tables.
func LoadFile(path string) (*Table, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("refdata: read %s: %w", path, err)
	}
	return parse(raw, path)
}

func parse(raw []byte, origin string) (*Table, error) {
	r := csv.NewReader(bytes.NewReader(raw))
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("refdata: parse %s: %w", origin, err)
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("refdata: %s has no header row", origin)
	}

	header := records[0]
	partCol := -1
	for i, h := range header {
		if strings.TrimSpace(h) == "part" {
			partCol = i
			break
		}
	}
	if partCol < 0 {
		return nil, fmt.Errorf("refdata: %s has no part column", origin)
	}

	t := &Table{rows: make(map[string]map[string]string, len(records)-1)}
	for _, rec := range records[1:] {
		if partCol >= len(rec) {
			continue
		}
		part := strings.TrimSpace(rec[partCol])
		if part == "" {
			continue
		}
		row := make(map[string]string, len(header))
		for i, h := range header {
			if i < len(rec) {
				row[strings.TrimSpace(h)] = strings.TrimSpace(rec[i])
			}
		}
		t.rows[part] = row
	}
	return t, nil
}

// Len returns the number of reference rows.
func (t *Table) Len() int { return len(t.rows) }

// ShankThickness returns the shank thickness in micrometers for a full
// probe name. The second return is false when the name yields no part
// code, the code is unknown, or the stored value is not numeric; callers
// treat that as "leave z alone", never as an error.
func (t *Table) ShankThickness(probeName string) (float64, bool) {
	code, ok := ExtractPartCode(probeName)
	if !ok {
		return 0, false
	}
	row, ok := t.rows[code]
	if !ok {
		return 0, false
	}
	v, err := strconv.ParseFloat(row["shank_thickness_um"], 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// Info returns the full reference row for a probe name with numeric
// fields parsed. Non-numeric and missing fields are omitted from Numeric.
func (t *Table) Info(probeName string) (Info, bool) {
	code, ok := ExtractPartCode(probeName)
	if !ok {
		return Info{}, false
	}
	row, ok := t.rows[code]
	if !ok {
		return Info{}, false
	}
	info := Info{Part: code, Fields: row, Numeric: map[string]float64{}}
	for _, f := range numericFields {
		if s, ok := row[f]; ok && s != "" {
			if v, err := strconv.ParseFloat(s, 64); err == nil {
				info.Numeric[f] = v
			}
		}
	}
	return info, true
}

// Info is one reference row with its numeric fields decoded.
type Info struct {
	Part    string
	Fields  map[string]string
	Numeric map[string]float64
}

var numericFields = []string{
	"shanks_n", "shank_thickness_um", "shank_length_mm",
	"electrodes_total", "electrodes_per_shank_n",
	"electrode_width_um", "electrode_height_um",
	"shank_base_width_um", "shank_tip_width_um",
	"electrode_cols_n", "electrode_rows_n", "shank_spacing_um",
}

// ExtractPartCode pulls the model-variant token out of a full probe
// assembly name. "ASSY-77-H7" yields "H7"; a bare code such as "H7" is
// returned unchanged. The second return is false when no code can be
// extracted.
func ExtractPartCode(probeName string) (string, bool) {
	name := strings.TrimSpace(probeName)
	if name == "" {
		return "", false
	}
	if !strings.HasPrefix(name, "ASSY-") {
		return name, true
	}
	parts := strings.Split(name, "-")
	if len(parts) < 3 {
		return "", false
	}
	code := parts[len(parts)-1]
	if code == "" {
		return "", false
	}
	return code, true
}
