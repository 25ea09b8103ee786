package plugin

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
)

// Initializer is a plugin's entry function. It receives the API capability
// object and registers the plugin's accessory and platform factories,
// synchronously or before returning.
type Initializer func(ctx context.Context, api *API) error

// ModuleResolver imports a plugin entry module and extracts its
// initializer. esm reports the module format resolved from the manifest;
// resolvers for environments without distinct formats may ignore it.
//
// Resolve may block for the duration of the import. The descriptor does
// not bound that time; callers needing bounded startup wrap Load with a
// context deadline and treat expiry as a plugin load failure.
type ModuleResolver interface {
	Resolve(ctx context.Context, entry string, esm bool) (Initializer, error)
}

// NativeResolver resolves entry points to initializers registered at
// compile time, for plugins built into the host binary. Initializers are
// keyed by the plugin directory path.
type NativeResolver struct {
	mu           sync.RWMutex
	initializers map[string]Initializer
}

// NewNativeResolver creates an empty native resolver.
func NewNativeResolver() *NativeResolver {
	return &NativeResolver{
		initializers: make(map[string]Initializer),
	}
}

// Register binds an initializer to a plugin directory path. Typically
// called from init() functions of compiled-in plugin packages.
func (r *NativeResolver) Register(dir string, init Initializer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.initializers[filepath.Clean(dir)] = init
}

// Resolve returns the initializer registered for the entry module's plugin
// directory.
func (r *NativeResolver) Resolve(_ context.Context, entry string, _ bool) (Initializer, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	dir := filepath.Clean(filepath.Dir(entry))
	init, ok := r.initializers[dir]
	if !ok {
		return nil, fmt.Errorf("%s: %w", dir, ErrNoInitializer)
	}
	return init, nil
}
