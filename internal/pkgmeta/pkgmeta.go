package pkgmeta

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// ManifestName is the metadata file every castd install and every installed
// extension carries at its root.
const ManifestName = "package.json"

// Manifest is the subset of the package metadata castctl acts on.
type Manifest struct {
	Name         string            `json:"name"`
	Version      string            `json:"version"`
	Dependencies map[string]string `json:"dependencies"`
}

// Read parses the manifest at path.
func Read(path string) (*Manifest, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var m Manifest
	if err := json.Unmarshal(b, &m); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return &m, nil
}

// ReadDir parses the manifest found in dir.
func ReadDir(dir string) (*Manifest, error) {
	return Read(filepath.Join(dir, ManifestName))
}

// Version returns the application version declared by the install at dir.
func Version(dir string) (string, error) {
	m, err := ReadDir(dir)
	if err != nil {
		return "", err
	}
	if m.Version == "" {
		return "", fmt.Errorf("%s in %s has no version", ManifestName, dir)
	}
	return m.Version, nil
}
