package plugin

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ManifestFile is the manifest file name inside a plugin directory.
const ManifestFile = "package.json"

// Manifest describes a plugin package: identity, entry point, and the
// version requirements the host gates on.
type Manifest struct {
	Name    string  `json:"name"`
	Version string  `json:"version"` // defaults to "0.0.0"
	Main    string  `json:"main"`    // relative entry module path
	Type    string  `json:"type"`    // "module" marks ambiguous extensions as ESM
	Exports *Export `json:"exports"` // overrides main when present

	Engines          map[string]string `json:"engines"`
	Dependencies     map[string]string `json:"dependencies"`
	PeerDependencies map[string]string `json:"peerDependencies"`
}

// Export is one node of the manifest's exports field: either a plain path
// or a table of conditions.
type Export struct {
	Path       string
	Conditions map[string]*Export
}

// UnmarshalJSON accepts both export shapes.
func (e *Export) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, `"`) {
		return json.Unmarshal(data, &e.Path)
	}
	return json.Unmarshal(data, &e.Conditions)
}

// Module extensions. The ".js" extension is ambiguous and classified by the
// manifest's type field.
const (
	extModule    = ".mjs"
	extAmbiguous = ".js"
)

// exportConditions is the resolution preference order for conditional
// exports. The "." subpath applies only at the top level.
var exportConditions = []string{"import", "require", "node", "default"}

// LoadManifest reads and parses a plugin manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read manifest: %w", err)
	}

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("failed to parse manifest: %w", err)
	}

	m.applyDefaults()
	return &m, nil
}

// LoadManifestFromDir loads the manifest from a plugin directory.
func LoadManifestFromDir(dir string) (*Manifest, error) {
	return LoadManifest(filepath.Join(dir, ManifestFile))
}

// applyDefaults sets default values for optional fields.
func (m *Manifest) applyDefaults() {
	if m.Version == "" {
		m.Version = "0.0.0"
	}
}

// ResolveEntryPoint determines the relative entry module path and its
// module format. Resolution is a pure function of the manifest; no file is
// touched. The exports field wins over main; without either, the entry
// point is "./index.js".
func (m *Manifest) ResolveEntryPoint() (main string, esm bool) {
	main, ok := resolveExports(m.Exports, true)
	if !ok {
		main = m.Main
		if main == "" {
			main = "./index.js"
		}
	}

	ext := filepath.Ext(main)
	esm = ext == extModule || (ext == extAmbiguous && m.Type == "module")
	return main, esm
}

// resolveExports walks an exports node: a plain path resolves to itself, a
// condition table resolves through the first present condition. The "."
// subpath is consulted after the named conditions at the top level only.
func resolveExports(e *Export, top bool) (string, bool) {
	if e == nil {
		return "", false
	}
	if e.Path != "" {
		return e.Path, true
	}

	conditions := exportConditions
	if top {
		conditions = append(append([]string{}, exportConditions...), ".")
	}
	for _, condition := range conditions {
		if next, ok := e.Conditions[condition]; ok {
			if path, ok := resolveExports(next, false); ok {
				return path, true
			}
		}
	}
	return "", false
}
