package plugin

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// Loader discovers installed plugin packages on the filesystem.
type Loader struct {
	// Search paths for plugins (checked in order)
	paths []string

	// Discovered plugins cache, keyed by identifier
	discovered map[string]*PluginInfo
}

// PluginInfo contains discovery information about one plugin package.
type PluginInfo struct {
	Identifier Identifier
	Path       string
	Manifest   *Manifest
	Err        error
}

// LoaderOption configures a Loader.
type LoaderOption func(*Loader)

// WithPaths sets the plugin search paths.
func WithPaths(paths ...string) LoaderOption {
	return func(l *Loader) {
		l.paths = paths
	}
}

// NewLoader creates a new plugin loader.
func NewLoader(opts ...LoaderOption) *Loader {
	l := &Loader{
		paths:      DefaultPluginPaths(),
		discovered: make(map[string]*PluginInfo),
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// DefaultPluginPaths returns the default plugin search paths.
func DefaultPluginPaths() []string {
	paths := make([]string, 0, 2)

	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, ".bridgehost", "plugins"))
	}
	if cwd, err := os.Getwd(); err == nil {
		paths = append(paths, filepath.Join(cwd, "plugins"))
	}

	return paths
}

// Paths returns the configured search paths.
func (l *Loader) Paths() []string {
	return l.paths
}

// AddPath adds a search path.
func (l *Loader) AddPath(path string) {
	l.paths = append(l.paths, path)
}

// Discover finds all plugins in the search paths. Scoped plugins live one
// directory deeper, under their "@scope" directory. Plugins found in
// earlier paths win over later ones. A bad manifest does not abort
// discovery; the plugin is reported with its error set.
func (l *Loader) Discover() ([]*PluginInfo, error) {
	l.discovered = make(map[string]*PluginInfo)

	for _, basePath := range l.paths {
		l.discoverInPath(basePath)
	}

	plugins := make([]*PluginInfo, 0, len(l.discovered))
	for _, info := range l.discovered {
		plugins = append(plugins, info)
	}

	sort.Slice(plugins, func(i, j int) bool {
		return plugins[i].Identifier.String() < plugins[j].Identifier.String()
	})

	return plugins, nil
}

// discoverInPath finds plugins in a single directory. Missing paths are
// not errors.
func (l *Loader) discoverInPath(basePath string) {
	entries, err := os.ReadDir(basePath)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}

		if strings.HasPrefix(entry.Name(), "@") {
			l.discoverScope(filepath.Join(basePath, entry.Name()))
			continue
		}

		l.add(l.inspectPlugin(filepath.Join(basePath, entry.Name())))
	}
}

// discoverScope finds plugins under a "@scope" directory.
func (l *Loader) discoverScope(scopePath string) {
	entries, err := os.ReadDir(scopePath)
	if err != nil {
		return
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		l.add(l.inspectPlugin(filepath.Join(scopePath, entry.Name())))
	}
}

// add records a discovered plugin. Earlier discoveries win.
func (l *Loader) add(info *PluginInfo) {
	if info == nil {
		return
	}
	key := info.Identifier.String()
	if _, exists := l.discovered[key]; !exists {
		l.discovered[key] = info
	}
}

// inspectPlugin examines a plugin directory. Directories without a
// manifest are not plugins and return nil.
func (l *Loader) inspectPlugin(path string) *PluginInfo {
	manifestPath := filepath.Join(path, ManifestFile)
	if _, err := os.Stat(manifestPath); err != nil {
		return nil
	}

	// The directory layout names the plugin; the manifest name wins when
	// it parses.
	id := Identifier{Name: filepath.Base(path)}
	if scope := filepath.Base(filepath.Dir(path)); strings.HasPrefix(scope, "@") {
		id.Scope = scope
	}

	manifest, err := LoadManifest(manifestPath)
	if err != nil {
		return &PluginInfo{
			Identifier: id,
			Path:       path,
			Err:        fmt.Errorf("invalid manifest: %w", err),
		}
	}
	if manifest.Name != "" {
		id = ParseIdentifier(manifest.Name)
	}

	return &PluginInfo{
		Identifier: id,
		Path:       path,
		Manifest:   manifest,
	}
}

// Get returns info for a specific plugin by identifier.
func (l *Loader) Get(identifier string) (*PluginInfo, bool) {
	info, ok := l.discovered[identifier]
	return info, ok
}

// FindPlugin searches for a plugin by identifier across all paths.
func (l *Loader) FindPlugin(identifier string) (*PluginInfo, error) {
	if info, ok := l.discovered[identifier]; ok {
		return info, nil
	}

	id := ParseIdentifier(identifier)
	for _, basePath := range l.paths {
		pluginPath := filepath.Join(basePath, id.Scope, id.Name)
		if stat, err := os.Stat(pluginPath); err == nil && stat.IsDir() {
			if info := l.inspectPlugin(pluginPath); info != nil {
				l.discovered[info.Identifier.String()] = info
				return info, nil
			}
		}
	}

	return nil, fmt.Errorf("%w: %s", ErrPluginNotFound, identifier)
}

// ListIdentifiers returns the identifiers of all discovered plugins.
func (l *Loader) ListIdentifiers() []string {
	ids := make([]string, 0, len(l.discovered))
	for id := range l.discovered {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Count returns the number of discovered plugins.
func (l *Loader) Count() int {
	return len(l.discovered)
}

// Errors returns all discovered plugins that have errors.
func (l *Loader) Errors() []*PluginInfo {
	var errored []*PluginInfo
	for _, info := range l.discovered {
		if info.Err != nil {
			errored = append(errored, info)
		}
	}
	return errored
}
