package batch

import (
	"encoding/json"
	"fmt"
	"os"
)

// WriteManifest writes manifest.json to the output directory so callers
// can enumerate the converted probe folders without re-walking them.
func WriteManifest(path string, results []Result) error {
	data, err := json.MarshalIndent(results, "", "  ")
	if err != nil {
		return fmt.Errorf("batch: marshal manifest: %w", err)
	}
	return os.WriteFile(path, data, 0644)
}
