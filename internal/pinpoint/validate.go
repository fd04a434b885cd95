package pinpoint

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"pinpoint-converter/internal/assemble"
)

// Report lists what a folder validation found. A folder is valid when
// Errors is empty; Warnings alone don't fail it.
type Report struct {
	Errors   []string
	Warnings []string
}

// Valid reports whether validation passed.
func (r Report) Valid() bool { return len(r.Errors) == 0 }

func (r *Report) errf(format string, args ...any) {
	r.Errors = append(r.Errors, fmt.Sprintf(format, args...))
}

func (r *Report) warnf(format string, args ...any) {
	r.Warnings = append(r.Warnings, fmt.Sprintf(format, args...))
}

// Validate checks a written probe folder: required files, metadata
// fields, site count agreement, and model face indices within range.
func Validate(dir string) (Report, error) {
	var rep Report

	info, err := os.Stat(dir)
	if err != nil {
		return rep, fmt.Errorf("pinpoint: stat %s: %w", dir, err)
	}
	if !info.IsDir() {
		return rep, fmt.Errorf("pinpoint: %s is not a folder", dir)
	}

	sites := validateMetadata(dir, &rep)
	rows := validateSiteMap(dir, &rep)
	if sites >= 0 && rows >= 0 && sites != rows {
		rep.errf("metadata reports %d sites but site_map.csv has %d rows", sites, rows)
	}
	validateModel(dir, &rep)
	return rep, nil
}

// validateMetadata returns the declared site count, or -1 when
// metadata.json is unusable.
func validateMetadata(dir string, rep *Report) int {
	raw, err := os.ReadFile(filepath.Join(dir, MetadataFile))
	if err != nil {
		rep.errf("missing %s: %v", MetadataFile, err)
		return -1
	}
	var meta assemble.Meta
	if err := json.Unmarshal(raw, &meta); err != nil {
		rep.errf("%s: %v", MetadataFile, err)
		return -1
	}
	if meta.Name == "" {
		rep.errf("%s: empty name", MetadataFile)
	}
	if meta.Shanks < 1 {
		rep.errf("%s: shanks %d < 1", MetadataFile, meta.Shanks)
	}
	if meta.Producer == "" {
		rep.warnf("%s: no producer", MetadataFile)
	}
	return meta.Sites
}

// validateSiteMap returns the row count, or -1 when the file is unusable.
func validateSiteMap(dir string, rep *Report) int {
	f, err := os.Open(filepath.Join(dir, SiteMapFile))
	if err != nil {
		rep.errf("missing %s: %v", SiteMapFile, err)
		return -1
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		rep.errf("%s: %v", SiteMapFile, err)
		return -1
	}
	if len(records) == 0 {
		rep.errf("%s: empty", SiteMapFile)
		return -1
	}
	if got := strings.Join(records[0], ","); got != strings.Join(siteHeader, ",") {
		rep.errf("%s: header %q, want %q", SiteMapFile, got, strings.Join(siteHeader, ","))
	}
	for i, rec := range records[1:] {
		if len(rec) != len(siteHeader) {
			rep.errf("%s: row %d has %d columns", SiteMapFile, i+1, len(rec))
			continue
		}
		for c := 1; c <= 6; c++ { // x..d numeric
			if _, err := strconv.ParseFloat(rec[c], 64); err != nil {
				rep.errf("%s: row %d column %s: %v", SiteMapFile, i+1, siteHeader[c], err)
			}
		}
	}
	return len(records) - 1
}

// validateModel checks model.obj when present; its absence is valid.
func validateModel(dir string, rep *Report) {
	raw, err := os.ReadFile(filepath.Join(dir, ModelFile))
	if err != nil {
		if os.IsNotExist(err) {
			return
		}
		rep.errf("%s: %v", ModelFile, err)
		return
	}

	vertices := 0
	faces := 0
	for ln, line := range strings.Split(string(raw), "\n") {
		fields := strings.Fields(line)
		if len(fields) == 0 {
			continue
		}
		switch fields[0] {
		case "v":
			vertices++
		case "f":
			faces++
			for _, s := range fields[1:] {
				idx, err := strconv.Atoi(s)
				if err != nil || idx < 1 || idx > vertices {
					rep.errf("%s: line %d: face index %q out of [1, %d]", ModelFile, ln+1, s, vertices)
				}
			}
		}
	}
	if vertices == 0 || faces == 0 {
		rep.errf("%s: %d vertices, %d faces", ModelFile, vertices, faces)
	}
}
