package model

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/Ngum12/africa-risk-intelligence-platform/internal/encoder"
)

const artifactTypeForest = "random_forest"

// artifactFile is the on-disk envelope for a model artifact. The type tag
// rejects artifacts written by an incompatible schema instead of misreading them.
type artifactFile struct {
	Type   string  `json:"type"`
	Forest *Forest `json:"forest,omitempty"`
}

// SaveForest writes a forest artifact atomically.
func SaveForest(path string, f *Forest) error {
	return writeJSONAtomic(path, artifactFile{Type: artifactTypeForest, Forest: f})
}

// LoadClassifier reads a model artifact. Unknown artifact types and decode
// failures are reported as errors; the store converts them to fallback use.
func LoadClassifier(path string) (Classifier, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var file artifactFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("decode model artifact %s: %w", path, err)
	}
	if file.Type != artifactTypeForest || file.Forest == nil {
		return nil, fmt.Errorf("incompatible model artifact %s: type %q", path, file.Type)
	}
	return file.Forest, nil
}

// SaveEncoders writes an encoder set artifact atomically.
func SaveEncoders(path string, set encoder.Set) error {
	classes := make(map[string][]string, len(set))
	for name, enc := range set {
		classes[name] = enc.Classes
	}
	return writeJSONAtomic(path, classes)
}

// LoadEncoders reads an encoder set artifact.
func LoadEncoders(path string) (encoder.Set, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var classes map[string][]string
	if err := json.Unmarshal(data, &classes); err != nil {
		return nil, fmt.Errorf("decode encoder artifact %s: %w", path, err)
	}
	set := make(encoder.Set, len(classes))
	for name, values := range classes {
		set[name] = encoder.RestoreLabelEncoder(values)
	}
	return set, nil
}

// writeJSONAtomic writes to a temp file in the destination directory, then
// renames it into place. Readers see either the old file or the complete new one.
func writeJSONAtomic(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
