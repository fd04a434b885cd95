// Package sitecsv reads supplementary electrode tables from CSV and
// merges them into parsed probes. Producers disagree on header names, so
// columns are matched through an alias table.
package sitecsv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"pinpoint-converter/internal/probe"
)

// Row is one standardized electrode record from a CSV file. Pointer
// fields distinguish "absent column" from a zero value.
type Row struct {
	ElectrodeID int
	X, Y, Z     *float64
	Channel     *int
	ShankID     *int
}

// aliases maps each standard column to the header spellings seen in the
// wild. Matching is case-insensitive on trimmed headers.
var aliases = map[string][]string{
	"electrode_id": {"electrode_id", "electrode", "id", "contact_id", "contact"},
	"x":            {"x", "x_pos", "x_position", "x_coord", "x_um"},
	"y":            {"y", "y_pos", "y_position", "y_coord", "y_um"},
	"z":            {"z", "z_pos", "z_position", "z_coord", "z_um", "depth"},
	"channel":      {"channel", "channel_id", "channel_number", "ch"},
	"shank_id":     {"shank_id", "shank", "shank_number", "probe"},
}

// ParseFile reads an electrode CSV from disk.
func ParseFile(path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("sitecsv: open %s: %w", path, err)
	}
	defer f.Close()
	rows, err := Parse(f)
	if err != nil {
		return nil, fmt.Errorf("sitecsv: parse %s: %w", path, err)
	}
	return rows, nil
}

// Parse reads electrode records from CSV. At least one position column
// must be present; rows without an id column get their row index as id.
func Parse(r io.Reader) ([]Row, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	records, err := cr.ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 1 {
		return nil, fmt.Errorf("empty file")
	}

	cols := map[string]int{}
	for i, h := range records[0] {
		key := strings.ToLower(strings.TrimSpace(h))
		for std, names := range aliases {
			if _, taken := cols[std]; taken {
				continue
			}
			for _, n := range names {
				if key == n {
					cols[std] = i
					break
				}
			}
		}
	}
	if _, hasX := cols["x"]; !hasX {
		if _, hasY := cols["y"]; !hasY {
			if _, hasZ := cols["z"]; !hasZ {
				return nil, fmt.Errorf("no position column (x, y or z) in header %v", records[0])
			}
		}
	}

	rows := make([]Row, 0, len(records)-1)
	for i, rec := range records[1:] {
		row := Row{ElectrodeID: i}
		if c, ok := cols["electrode_id"]; ok {
			if v, err := atoi(rec, c); err == nil {
				row.ElectrodeID = v
			}
		}
		row.X = atofp(rec, cols, "x")
		row.Y = atofp(rec, cols, "y")
		row.Z = atofp(rec, cols, "z")
		if c, ok := cols["channel"]; ok {
			if v, err := atoi(rec, c); err == nil {
				row.Channel = &v
			}
		}
		if c, ok := cols["shank_id"]; ok {
			if v, err := atoi(rec, c); err == nil {
				row.ShankID = &v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// Merge overlays CSV rows onto electrodes, matched by electrode id.
// Only fields present in the CSV replace parsed values. Returns a new
// slice; the input is untouched.
func Merge(electrodes []probe.Electrode, rows []Row) []probe.Electrode {
	byID := make(map[int]Row, len(rows))
	for _, r := range rows {
		byID[r.ElectrodeID] = r
	}
	out := make([]probe.Electrode, len(electrodes))
	copy(out, electrodes)
	for i := range out {
		r, ok := byID[out[i].ID]
		if !ok {
			continue
		}
		if r.X != nil {
			out[i].X = *r.X
		}
		if r.Y != nil {
			out[i].Y = *r.Y
		}
		if r.Z != nil {
			out[i].Z = *r.Z
		}
		if r.Channel != nil {
			out[i].Channel = *r.Channel
			out[i].HasChannel = true
		}
		if r.ShankID != nil {
			out[i].ShankID = *r.ShankID
			out[i].HasShank = true
		}
	}
	return out
}

func atoi(rec []string, col int) (int, error) {
	if col >= len(rec) {
		return 0, fmt.Errorf("short record")
	}
	return strconv.Atoi(strings.TrimSpace(rec[col]))
}

func atofp(rec []string, cols map[string]int, key string) *float64 {
	c, ok := cols[key]
	if !ok || c >= len(rec) {
		return nil
	}
	v, err := strconv.ParseFloat(strings.TrimSpace(rec[c]), 64)
	if err != nil {
		return nil
	}
	return &v
}
