// Package pinpoint persists probe bundles in the three-file folder
// format the Pinpoint planner consumes, and validates existing folders.
package pinpoint

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"pinpoint-converter/internal/assemble"
	"pinpoint-converter/internal/mesh"
)

const (
	MetadataFile = "metadata.json"
	SiteMapFile  = "site_map.csv"
	ModelFile    = "model.obj"
)

// siteHeader is the fixed site_map.csv column order; downstream parses
// by position, so it never changes.
var siteHeader = []string{"index", "x", "y", "z", "w", "h", "d", "default", "layer1", "layer2"}

var invalidNameChars = regexp.MustCompile(`[<>:"/\\|?*]`)

// SanitizeName strips filesystem-hostile characters from a probe name so
// it can serve as the output folder name.
func SanitizeName(name string) string {
	return strings.TrimSpace(invalidNameChars.ReplaceAllString(name, "_"))
}

// Write persists one bundle under outDir/<sanitized name>/. All file
// contents are rendered in memory before anything touches disk, and a
// partially written folder is removed on failure: per probe the output
// is all-or-nothing.
func Write(outDir string, b *assemble.Bundle) (string, error) {
	name := SanitizeName(b.Name)
	if name == "" {
		return "", fmt.Errorf("pinpoint: probe name %q sanitizes to nothing", b.Name)
	}

	metaJSON, err := json.MarshalIndent(b.Meta, "", "  ")
	if err != nil {
		return "", fmt.Errorf("pinpoint: marshal metadata for %s: %w", name, err)
	}
	siteCSV, err := renderSiteMap(b.SiteRows)
	if err != nil {
		return "", fmt.Errorf("pinpoint: render site map for %s: %w", name, err)
	}
	var objText string
	if b.Mesh != nil {
		objText, err = mesh.EncodeOBJ(*b.Mesh, fmt.Sprintf("Shanks: %d", b.Shanks))
		if err != nil {
			return "", fmt.Errorf("pinpoint: encode model for %s: %w", name, err)
		}
	}

	folder := filepath.Join(outDir, name)
	if err := os.MkdirAll(folder, 0755); err != nil {
		return "", fmt.Errorf("pinpoint: create %s: %w", folder, err)
	}

	files := map[string][]byte{
		MetadataFile: append(metaJSON, '\n'),
		SiteMapFile:  siteCSV,
	}
	if objText != "" {
		files[ModelFile] = []byte(objText)
	}
	for _, fname := range []string{MetadataFile, SiteMapFile, ModelFile} {
		data, ok := files[fname]
		if !ok {
			continue
		}
		if err := os.WriteFile(filepath.Join(folder, fname), data, 0644); err != nil {
			os.RemoveAll(folder)
			return "", fmt.Errorf("pinpoint: write %s: %w", fname, err)
		}
	}
	return folder, nil
}

func renderSiteMap(rows []assemble.SiteRow) ([]byte, error) {
	var sb strings.Builder
	w := csv.NewWriter(&sb)
	if err := w.Write(siteHeader); err != nil {
		return nil, err
	}
	for _, r := range rows {
		rec := []string{
			strconv.Itoa(r.Index),
			ftoa(r.X), ftoa(r.Y), ftoa(r.Z),
			ftoa(r.W), ftoa(r.H), ftoa(r.D),
			strconv.Itoa(r.Default),
			strconv.Itoa(r.Layer1),
			strconv.Itoa(r.Layer2),
		}
		if err := w.Write(rec); err != nil {
			return nil, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return []byte(sb.String()), nil
}

func ftoa(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}
