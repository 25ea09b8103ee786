package plugin

import "errors"

// Plugin system errors.
var (
	// ErrPluginNotFound is returned when a plugin cannot be located.
	ErrPluginNotFound = errors.New("plugin not found")

	// ErrNilManifest is returned when a nil manifest is provided.
	ErrNilManifest = errors.New("manifest is nil")

	// ErrEngineNotDeclared is returned by Load when the manifest declares
	// no bridgehost engine requirement. The plugin module is not imported.
	ErrEngineNotDeclared = errors.New("plugin does not declare a bridgehost engine version")

	// ErrNoInitializer is returned by Load when the imported entry module
	// exposes no invocable initializer.
	ErrNoInitializer = errors.New("plugin exports no initializer")

	// ErrNoResolver is returned by Load when no module resolver is
	// configured.
	ErrNoResolver = errors.New("no module resolver configured")

	// ErrAlreadyLoaded is returned when Load is called more than once.
	ErrAlreadyLoaded = errors.New("plugin is already loaded")

	// ErrNotLoaded is returned when Initialize is called before Load has
	// produced an initializer.
	ErrNotLoaded = errors.New("plugin is not loaded")

	// ErrDuplicateRegistration is returned when an accessory or platform
	// name is registered twice on the same plugin.
	ErrDuplicateRegistration = errors.New("name is already registered")

	// ErrNotRegistered is returned when looking up an accessory or
	// platform name the plugin never registered.
	ErrNotRegistered = errors.New("name is not registered")
)
