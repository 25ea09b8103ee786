// Package bridge wires discovered plugins, the configuration, and the
// accessory cache into one running host.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"go.uber.org/zap"

	"bridgehost/internal/accessory"
	"bridgehost/internal/config"
	"bridgehost/internal/plugin"
	"bridgehost/internal/storage"
)

// Bridge owns the plugin set and the accessory lifecycle.
type Bridge struct {
	mu sync.Mutex

	cfg    *config.Config
	logger *zap.Logger

	resolver plugin.ModuleResolver
	store    *storage.AccessoryStore

	plugins []*plugin.Plugin

	// cached holds every restorable accessory keyed by UUID: records
	// restored from disk plus accessories platforms publish at runtime.
	cached map[string]*accessory.Accessory

	// restored tracks which cached accessories still wait for their
	// platform to come back and adopt them.
	restored []*accessory.Accessory

	// static accumulates accessories from configured accessory plugins
	// and static platforms. They are rebuilt every start and never
	// persisted.
	static []*accessory.Accessory

	started bool
}

// Option configures a Bridge.
type Option func(*Bridge)

// WithResolver sets the module resolver handed to every plugin.
func WithResolver(resolver plugin.ModuleResolver) Option {
	return func(b *Bridge) {
		b.resolver = resolver
	}
}

// WithStore sets the accessory cache store.
func WithStore(store *storage.AccessoryStore) Option {
	return func(b *Bridge) {
		b.store = store
	}
}

// New creates a bridge from a configuration.
func New(cfg *config.Config, logger *zap.Logger, opts ...Option) *Bridge {
	if logger == nil {
		logger = zap.NewNop()
	}
	b := &Bridge{
		cfg:    cfg,
		logger: logger,
		cached: make(map[string]*accessory.Accessory),
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.store == nil {
		b.store = storage.NewAccessoryStore(cfg.StoragePath, logger)
	}
	return b
}

// AddPlugin creates a descriptor for a discovered plugin and tracks it.
// Discovery errors surface here so a broken package is reported once.
func (b *Bridge) AddPlugin(info *plugin.PluginInfo) error {
	if info.Err != nil {
		return fmt.Errorf("plugin %s: %w", info.Identifier, info.Err)
	}

	p, err := plugin.New(info.Manifest, info.Path,
		plugin.WithLogger(b.logger),
		plugin.WithResolver(b.resolver),
	)
	if err != nil {
		return fmt.Errorf("plugin %s: %w", info.Identifier, err)
	}

	for _, disabled := range b.cfg.DisabledPlugins {
		if disabled == p.Identifier().String() {
			p.SetDisabled(true)
			b.logger.Warn("plugin is disabled", zap.String("plugin", disabled))
		}
	}

	b.mu.Lock()
	b.plugins = append(b.plugins, p)
	b.mu.Unlock()
	return nil
}

// Plugins returns the tracked descriptors.
func (b *Bridge) Plugins() []*plugin.Plugin {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]*plugin.Plugin(nil), b.plugins...)
}

// Start loads and initializes every plugin, restores the accessory
// cache, and instantiates the configured accessories and platforms. Per
// plugin failures are aggregated; one broken plugin does not stop the
// rest of the bridge from coming up.
func (b *Bridge) Start(ctx context.Context) error {
	b.mu.Lock()
	if b.started {
		b.mu.Unlock()
		return errors.New("bridge already started")
	}
	b.started = true
	plugins := append([]*plugin.Plugin(nil), b.plugins...)
	b.mu.Unlock()

	restored, err := b.store.Load()
	if err != nil {
		b.logger.Error("could not restore accessory cache", zap.Error(err))
	}
	b.mu.Lock()
	b.restored = restored
	for _, acc := range restored {
		b.cached[acc.UUID()] = acc
	}
	b.mu.Unlock()

	var errs []error
	for _, p := range plugins {
		if err := b.startPlugin(ctx, p); err != nil {
			b.logger.Error("plugin failed to start",
				zap.String("plugin", p.Identifier().String()),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("%s: %w", p.Identifier(), err))
		}
	}

	for _, entry := range b.cfg.Accessories {
		if err := b.startAccessory(ctx, entry); err != nil {
			b.logger.Error("accessory failed to start",
				zap.String("accessory", entry.Accessory),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("accessory %s: %w", entry.Accessory, err))
		}
	}

	for _, entry := range b.cfg.Platforms {
		if err := b.startPlatform(ctx, entry); err != nil {
			b.logger.Error("platform failed to start",
				zap.String("platform", entry.Platform),
				zap.Error(err))
			errs = append(errs, fmt.Errorf("platform %s: %w", entry.Platform, err))
		}
	}

	b.reportOrphans()
	return errors.Join(errs...)
}

// startPlugin runs one descriptor through load and initialize.
func (b *Bridge) startPlugin(ctx context.Context, p *plugin.Plugin) error {
	if err := p.Load(ctx); err != nil {
		return err
	}
	if p.Disabled() {
		b.logger.Info("skipping initialization of disabled plugin",
			zap.String("plugin", p.Identifier().String()))
		return nil
	}
	return p.Initialize(ctx, b.apiFor(p))
}

// startAccessory instantiates one configured accessory entry and collects
// the handles it exposes.
func (b *Bridge) startAccessory(ctx context.Context, entry config.AccessoryConfig) error {
	p, factory, err := b.findAccessoryFactory(entry.Plugin, entry.Accessory)
	if err != nil {
		return err
	}

	api := b.apiFor(p)
	instance, err := factory(ctx, entry.Options, api)
	if err != nil {
		return err
	}
	accs, err := instance.Accessories(ctx)
	if err != nil {
		return err
	}
	for _, acc := range accs {
		acc.Associate(p.Identifier().String(), "")
		if entry.Name != "" {
			acc.UpdateDisplayName(entry.Name)
		}
	}

	b.mu.Lock()
	b.static = append(b.static, accs...)
	b.mu.Unlock()

	b.logger.Info("accessory up",
		zap.String("accessory", entry.Accessory),
		zap.Int("handles", len(accs)))
	return nil
}

// startPlatform instantiates one configured platform entry. Dynamic
// platforms are recorded as active and get their cached accessories
// handed back. Static platforms contribute their accessory list
// directly.
func (b *Bridge) startPlatform(ctx context.Context, entry config.PlatformConfig) error {
	p, factory, err := b.findPlatformFactory(entry.Plugin, entry.Platform)
	if err != nil {
		return err
	}

	api := b.apiFor(p)
	instance, err := factory(ctx, entry.Options, api)
	if err != nil {
		return err
	}

	if dynamic, ok := instance.(plugin.PlatformInstance); ok {
		p.AssignDynamicPlatform(entry.Platform, dynamic)
		b.configureRestored(p, entry.Platform, dynamic)
		b.logger.Info("dynamic platform up", zap.String("platform", entry.Platform))
		return nil
	}

	accs, err := instance.Accessories(ctx)
	if err != nil {
		return err
	}
	name := unqualify(entry.Platform)
	for _, acc := range accs {
		acc.Associate(p.Identifier().String(), name)
	}

	b.mu.Lock()
	b.static = append(b.static, accs...)
	b.mu.Unlock()

	b.logger.Info("platform up",
		zap.String("platform", entry.Platform),
		zap.Int("handles", len(accs)))
	return nil
}

// configureRestored hands cached accessories back to the dynamic
// platform that originally published them.
func (b *Bridge) configureRestored(p *plugin.Plugin, platformName string, instance plugin.PlatformInstance) {
	id := p.Identifier().String()
	name := unqualify(platformName)

	b.mu.Lock()
	var remaining []*accessory.Accessory
	var mine []*accessory.Accessory
	for _, acc := range b.restored {
		if acc.PluginID() == id && acc.PlatformName() == name {
			mine = append(mine, acc)
		} else {
			remaining = append(remaining, acc)
		}
	}
	b.restored = remaining
	b.mu.Unlock()

	for _, acc := range mine {
		instance.ConfigureAccessory(acc)
	}
	if len(mine) > 0 {
		b.logger.Info("restored cached accessories",
			zap.String("platform", platformName),
			zap.Int("count", len(mine)))
	}
}

// reportOrphans logs cached accessories whose platform never came back.
// They stay in the cache in case the plugin returns after a config fix.
func (b *Bridge) reportOrphans() {
	b.mu.Lock()
	defer b.mu.Unlock()
	for _, acc := range b.restored {
		b.logger.Warn("cached accessory has no active platform",
			zap.String("accessory", acc.DisplayName()),
			zap.String("plugin", acc.PluginID()),
			zap.String("platform", acc.PlatformName()))
	}
}

// handlePlatformAccessories receives accessories a dynamic platform
// publishes at runtime and adds them to the restorable set.
func (b *Bridge) handlePlatformAccessories(p *plugin.Plugin, platformName string, accs []*accessory.Accessory) {
	b.mu.Lock()
	for _, acc := range accs {
		b.cached[acc.UUID()] = acc
	}
	b.mu.Unlock()

	b.logger.Info("platform published accessories",
		zap.String("plugin", p.Identifier().String()),
		zap.String("platform", platformName),
		zap.Int("count", len(accs)))

	if err := b.persist(); err != nil {
		b.logger.Error("could not save accessory cache", zap.Error(err))
	}
}

// handleExternalAccessories receives accessories published outside the
// bridge. They are not persisted.
func (b *Bridge) handleExternalAccessories(p *plugin.Plugin, accs []*accessory.Accessory) {
	for _, acc := range accs {
		b.logger.Info("external accessory published",
			zap.String("plugin", p.Identifier().String()),
			zap.String("accessory", acc.DisplayName()))
	}
}

// Accessories returns every accessory the bridge currently exposes.
func (b *Bridge) Accessories() []*accessory.Accessory {
	b.mu.Lock()
	defer b.mu.Unlock()

	accs := append([]*accessory.Accessory(nil), b.static...)
	for _, acc := range b.cached {
		accs = append(accs, acc)
	}
	return accs
}

// CachedAccessories returns the restorable set, for inspection.
func (b *Bridge) CachedAccessories() []*accessory.Accessory {
	b.mu.Lock()
	defer b.mu.Unlock()
	accs := make([]*accessory.Accessory, 0, len(b.cached))
	for _, acc := range b.cached {
		accs = append(accs, acc)
	}
	return accs
}

// Shutdown persists the restorable accessory set and releases the
// resolver when it holds resources.
func (b *Bridge) Shutdown() error {
	var errs []error
	if err := b.persist(); err != nil {
		errs = append(errs, err)
	}
	if closer, ok := b.resolver.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// persist writes the restorable accessory set to the store.
func (b *Bridge) persist() error {
	b.mu.Lock()
	accs := make([]*accessory.Accessory, 0, len(b.cached))
	for _, acc := range b.cached {
		accs = append(accs, acc)
	}
	b.mu.Unlock()
	return b.store.Save(accs)
}

func (b *Bridge) apiFor(p *plugin.Plugin) *plugin.API {
	return plugin.NewAPI(p,
		plugin.WithAPILogger(b.logger),
		plugin.WithPlatformAccessoriesFunc(b.handlePlatformAccessories),
		plugin.WithExternalAccessoriesFunc(b.handleExternalAccessories),
	)
}

// findAccessoryFactory locates a registered accessory constructor. When
// pluginID is set only that plugin is consulted, otherwise the first
// plugin exposing the name wins.
func (b *Bridge) findAccessoryFactory(pluginID, name string) (*plugin.Plugin, plugin.AccessoryFactory, error) {
	b.mu.Lock()
	plugins := append([]*plugin.Plugin(nil), b.plugins...)
	b.mu.Unlock()

	for _, p := range plugins {
		if pluginID != "" && p.Identifier().String() != pluginID {
			continue
		}
		factory, err := p.AccessoryConstructor(name)
		if err == nil {
			return p, factory, nil
		}
		if !errors.Is(err, plugin.ErrNotRegistered) {
			return nil, nil, err
		}
	}
	return nil, nil, fmt.Errorf("accessory %q: %w", name, plugin.ErrNotRegistered)
}

// findPlatformFactory locates a registered platform constructor.
func (b *Bridge) findPlatformFactory(pluginID, name string) (*plugin.Plugin, plugin.PlatformFactory, error) {
	b.mu.Lock()
	plugins := append([]*plugin.Plugin(nil), b.plugins...)
	b.mu.Unlock()

	for _, p := range plugins {
		if pluginID != "" && p.Identifier().String() != pluginID {
			continue
		}
		factory, err := p.PlatformConstructor(name)
		if err == nil {
			return p, factory, nil
		}
		if !errors.Is(err, plugin.ErrNotRegistered) {
			return nil, nil, err
		}
	}
	return nil, nil, fmt.Errorf("platform %q: %w", name, plugin.ErrNotRegistered)
}

// unqualify strips a "plugin-ident." prefix from a registered name.
func unqualify(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return name[i+1:]
	}
	return name
}
