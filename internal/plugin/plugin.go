package plugin

import (
	"context"
	"fmt"
	"path/filepath"

	"go.uber.org/zap"
)

// Plugin is the descriptor for one installed plugin package. It resolves
// the entry point at construction, gates and imports the module in Load,
// runs the initializer in Initialize, and hosts the factory registries the
// initializer populates.
//
// A descriptor is driven by one logical thread of control: the host runs
// Load and Initialize to completion before making further calls, and the
// registration methods are called from within the initializer. Overlapping
// Load or Initialize calls are a caller error.
type Plugin struct {
	// Identity, immutable after construction.
	name    string
	scope   string
	path    string
	version string

	// Entry point, derived once at construction.
	main string
	esm  bool

	disabled bool

	logger   *zap.Logger
	resolver ModuleResolver

	hostVersion string
	goVersion   string

	// load holds the manifest fields Load consumes; cleared afterwards to
	// bound per-plugin memory after startup.
	load *loadContext

	initializer Initializer
	state       State

	accessoryFactories     map[string]AccessoryFactory
	platformFactories      map[string]PlatformFactory
	activeDynamicPlatforms map[string][]PlatformInstance
}

// loadContext is the transient bag of manifest fields the load operation
// consumes exactly once.
type loadContext struct {
	engines          map[string]string
	dependencies     map[string]string
	peerDependencies map[string]string
}

// Option configures a Plugin.
type Option func(*Plugin)

// WithLogger sets the plugin's logger.
func WithLogger(logger *zap.Logger) Option {
	return func(p *Plugin) {
		p.logger = logger
	}
}

// WithResolver sets the module resolver Load imports through.
func WithResolver(resolver ModuleResolver) Option {
	return func(p *Plugin) {
		p.resolver = resolver
	}
}

// WithHostVersion overrides the host version the gate checks against.
func WithHostVersion(version string) Option {
	return func(p *Plugin) {
		p.hostVersion = version
	}
}

// WithRuntimeVersion overrides the runtime version the gate checks
// against.
func WithRuntimeVersion(version string) Option {
	return func(p *Plugin) {
		p.goVersion = version
	}
}

// New creates a descriptor from a manifest and the plugin's directory.
// Entry-point resolution runs here, synchronously and without I/O.
func New(manifest *Manifest, path string, opts ...Option) (*Plugin, error) {
	if manifest == nil {
		return nil, ErrNilManifest
	}

	id := ParseIdentifier(manifest.Name)
	main, esm := manifest.ResolveEntryPoint()

	p := &Plugin{
		name:        id.Name,
		scope:       id.Scope,
		path:        path,
		version:     manifest.Version,
		main:        main,
		esm:         esm,
		logger:      zap.NewNop(),
		hostVersion: ServerVersion,
		goVersion:   runtimeVersion(),
		load: &loadContext{
			engines:          manifest.Engines,
			dependencies:     manifest.Dependencies,
			peerDependencies: manifest.PeerDependencies,
		},
		accessoryFactories:     make(map[string]AccessoryFactory),
		platformFactories:      make(map[string]PlatformFactory),
		activeDynamicPlatforms: make(map[string][]PlatformInstance),
	}

	for _, opt := range opts {
		opt(p)
	}

	return p, nil
}

// Identifier returns the plugin's stable identity.
func (p *Plugin) Identifier() Identifier {
	return Identifier{Scope: p.scope, Name: p.name}
}

// Name returns the bare package name, without the scope.
func (p *Plugin) Name() string { return p.name }

// Path returns the plugin's filesystem location.
func (p *Plugin) Path() string { return p.path }

// Version returns the plugin's declared version.
func (p *Plugin) Version() string { return p.version }

// Main returns the resolved relative entry module path.
func (p *Plugin) Main() string { return p.main }

// IsESM reports whether the entry module was classified as an ECMAScript
// module.
func (p *Plugin) IsESM() bool { return p.esm }

// State returns the descriptor's lifecycle state.
func (p *Plugin) State() State { return p.state }

// Disabled reports whether the plugin is disabled.
func (p *Plugin) Disabled() bool { return p.disabled }

// SetDisabled marks the plugin disabled. Registrations still happen, they
// are just not logged; the registries stay authoritative.
func (p *Plugin) SetDisabled(disabled bool) { p.disabled = disabled }

// Load gates the plugin against host and runtime version requirements and
// imports its entry module. Only a missing host engine declaration or a
// module without an initializer aborts the load; version mismatches are
// logged and loading continues.
//
// Load may suspend on the module import for as long as the resolver takes;
// cancel through ctx to bound startup time.
func (p *Plugin) Load(ctx context.Context) error {
	if p.load == nil {
		return fmt.Errorf("plugin %s: %w", p.Identifier(), ErrAlreadyLoaded)
	}
	lc := p.load

	engines := lc.engines
	if engines == nil {
		engines = make(map[string]string)
	}
	// Older plugins declare support through a peer dependency on the host
	// instead of an engines entry.
	if _, ok := engines[hostPackage]; !ok {
		if r, ok := lc.peerDependencies[hostPackage]; ok {
			engines[hostPackage] = r
		}
	}

	hostRange, ok := engines[hostPackage]
	if !ok {
		p.state = StateError
		return fmt.Errorf("plugin %s: %w", p.Identifier(), ErrEngineNotDeclared)
	}

	if ok, err := satisfies(hostRange, p.hostVersion); err != nil {
		p.logger.Warn("Could not check host version requirement",
			zap.String("plugin", p.Identifier().String()),
			zap.Error(err))
	} else if !ok {
		p.logger.Error("Plugin requires a different bridgehost version and may not work correctly",
			zap.String("plugin", p.Identifier().String()),
			zap.String("required", hostRange),
			zap.String("running", p.hostVersion))
	}

	if goRange, ok := engines[runtimeEngine]; ok && p.goVersion != "" {
		if ok, err := satisfies(goRange, p.goVersion); err != nil {
			p.logger.Warn("Could not check runtime version requirement",
				zap.String("plugin", p.Identifier().String()),
				zap.Error(err))
		} else if !ok {
			p.logger.Warn("Plugin requires a different Go runtime version",
				zap.String("plugin", p.Identifier().String()),
				zap.String("required", goRange),
				zap.String("running", p.goVersion))
		}
	}

	for _, name := range []string{hostPackage, protocolPackage} {
		if _, ok := lc.dependencies[name]; ok {
			p.logger.Error("Plugin bundles its own copy of a host package as a runtime dependency; it must consume the host's copy",
				zap.String("plugin", p.Identifier().String()),
				zap.String("dependency", name))
		}
	}

	if p.resolver == nil {
		p.state = StateError
		return fmt.Errorf("plugin %s: %w", p.Identifier(), ErrNoResolver)
	}

	entry := filepath.Join(p.path, p.main)
	initializer, err := p.resolver.Resolve(ctx, entry, p.esm)
	if err != nil {
		p.state = StateError
		return fmt.Errorf("load plugin %s: %w", p.Identifier(), err)
	}
	if initializer == nil {
		p.state = StateError
		return fmt.Errorf("load plugin %s: %w", p.Identifier(), ErrNoInitializer)
	}

	p.initializer = initializer
	p.load = nil
	p.state = StateLoaded
	return nil
}

// Initialize runs the stored initializer with the API capability object,
// returning its result unchanged. Calling Initialize before Load has
// produced an initializer is a usage error.
func (p *Plugin) Initialize(ctx context.Context, api *API) error {
	if p.initializer == nil {
		return fmt.Errorf("plugin %s: %w", p.Identifier(), ErrNotLoaded)
	}

	if err := p.initializer(ctx, api); err != nil {
		p.state = StateError
		return err
	}
	p.state = StateInitialized
	return nil
}

// RegisterAccessory stores an accessory factory under name. A name can be
// registered once per plugin.
func (p *Plugin) RegisterAccessory(name string, factory AccessoryFactory) error {
	if _, exists := p.accessoryFactories[name]; exists {
		return fmt.Errorf("accessory %q: %w", p.qualify(name), ErrDuplicateRegistration)
	}
	p.accessoryFactories[name] = factory

	if !p.disabled {
		p.logger.Info("Registered accessory", zap.String("accessory", p.qualify(name)))
	}
	return nil
}

// RegisterPlatform stores a platform factory under name. A name can be
// registered once per plugin.
func (p *Plugin) RegisterPlatform(name string, factory PlatformFactory) error {
	if _, exists := p.platformFactories[name]; exists {
		return fmt.Errorf("platform %q: %w", p.qualify(name), ErrDuplicateRegistration)
	}
	p.platformFactories[name] = factory

	if !p.disabled {
		p.logger.Info("Registered platform", zap.String("platform", p.qualify(name)))
	}
	return nil
}

// AccessoryConstructor returns the factory registered for the accessory
// identifier, which may be qualified as "plugin-identifier.Name".
func (p *Plugin) AccessoryConstructor(identifier string) (AccessoryFactory, error) {
	name := bareName(identifier)
	factory, ok := p.accessoryFactories[name]
	if !ok {
		return nil, fmt.Errorf("accessory %q: %w", p.qualify(name), ErrNotRegistered)
	}
	return factory, nil
}

// PlatformConstructor returns the factory registered for the platform
// identifier. Requesting a platform that already has active dynamic
// instances marks a legacy configuration pattern and is warned about.
func (p *Plugin) PlatformConstructor(identifier string) (PlatformFactory, error) {
	name := bareName(identifier)
	factory, ok := p.platformFactories[name]
	if !ok {
		return nil, fmt.Errorf("platform %q: %w", p.qualify(name), ErrNotRegistered)
	}

	if len(p.activeDynamicPlatforms[name]) > 0 {
		p.logger.Warn("Platform is already instantiated as a dynamic platform; configuring multiple instances is deprecated",
			zap.String("platform", p.qualify(name)))
	}
	return factory, nil
}

// AssignDynamicPlatform records a running dynamic platform instance. The
// newest instance is prepended: when a platform is published repeatedly
// under the same name, the last published instance wins single-instance
// lookups.
func (p *Plugin) AssignDynamicPlatform(identifier string, instance PlatformInstance) {
	name := bareName(identifier)
	p.activeDynamicPlatforms[name] = append([]PlatformInstance{instance}, p.activeDynamicPlatforms[name]...)
}

// ActiveDynamicPlatform returns the most recently assigned instance for
// the platform name, or false if none was ever assigned.
func (p *Plugin) ActiveDynamicPlatform(name string) (PlatformInstance, bool) {
	instances := p.activeDynamicPlatforms[bareName(name)]
	if len(instances) == 0 {
		return nil, false
	}
	return instances[0], true
}

// DynamicPlatforms returns all assigned instances for the platform name,
// newest first.
func (p *Plugin) DynamicPlatforms(name string) []PlatformInstance {
	return p.activeDynamicPlatforms[bareName(name)]
}

// AccessoryNames returns the registered accessory names.
func (p *Plugin) AccessoryNames() []string {
	names := make([]string, 0, len(p.accessoryFactories))
	for name := range p.accessoryFactories {
		names = append(names, name)
	}
	return names
}

// PlatformNames returns the registered platform names.
func (p *Plugin) PlatformNames() []string {
	names := make([]string, 0, len(p.platformFactories))
	for name := range p.platformFactories {
		names = append(names, name)
	}
	return names
}

// qualify renders a registered name in its fully qualified
// "plugin-identifier.Name" form.
func (p *Plugin) qualify(name string) string {
	return p.Identifier().String() + "." + name
}
