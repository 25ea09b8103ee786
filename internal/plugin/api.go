package plugin

import (
	"github.com/google/uuid"
	"go.uber.org/zap"

	"bridgehost/internal/accessory"
)

// accessoryNamespace seeds deterministic accessory UUIDs.
var accessoryNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("bridgehost:accessory"))

// PlatformAccessoriesFunc receives accessories a platform publishes at
// runtime, after the API has tagged them with their provenance.
type PlatformAccessoriesFunc func(p *Plugin, platformName string, accs []*accessory.Accessory)

// ExternalAccessoriesFunc receives accessories a plugin publishes outside
// the bridge. External accessories carry no platform provenance.
type ExternalAccessoriesFunc func(p *Plugin, accs []*accessory.Accessory)

// API is the capability object handed to a plugin's initializer. It binds
// the registration operations to the owning descriptor and exposes the
// host's version surface.
type API struct {
	plugin *Plugin
	logger *zap.Logger

	onPlatformAccessories PlatformAccessoriesFunc
	onExternalAccessories ExternalAccessoriesFunc
}

// APIOption configures an API.
type APIOption func(*API)

// WithAPILogger sets the API's logger.
func WithAPILogger(logger *zap.Logger) APIOption {
	return func(a *API) {
		a.logger = logger
	}
}

// WithPlatformAccessoriesFunc sets the sink for runtime-published platform
// accessories.
func WithPlatformAccessoriesFunc(fn PlatformAccessoriesFunc) APIOption {
	return func(a *API) {
		a.onPlatformAccessories = fn
	}
}

// WithExternalAccessoriesFunc sets the sink for externally published
// accessories.
func WithExternalAccessoriesFunc(fn ExternalAccessoriesFunc) APIOption {
	return func(a *API) {
		a.onExternalAccessories = fn
	}
}

// NewAPI creates the capability object for one plugin.
func NewAPI(p *Plugin, opts ...APIOption) *API {
	a := &API{
		plugin: p,
		logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ServerVersion returns the running host version.
func (a *API) ServerVersion() string { return a.plugin.hostVersion }

// Version returns the plugin API contract version.
func (a *API) Version() string { return APIVersion }

// Plugin returns the owning descriptor.
func (a *API) Plugin() *Plugin { return a.plugin }

// RegisterAccessory registers an accessory factory on the owning plugin.
func (a *API) RegisterAccessory(name string, factory AccessoryFactory) error {
	return a.plugin.RegisterAccessory(name, factory)
}

// RegisterPlatform registers a platform factory on the owning plugin.
func (a *API) RegisterPlatform(name string, factory PlatformFactory) error {
	return a.plugin.RegisterPlatform(name, factory)
}

// RegisterPlatformAccessories publishes accessories for a platform. Each
// handle is tagged with the owning plugin identifier and platform name
// before it reaches the host.
func (a *API) RegisterPlatformAccessories(platformName string, accs ...*accessory.Accessory) {
	id := a.plugin.Identifier().String()
	name := bareName(platformName)
	for _, acc := range accs {
		acc.Associate(id, name)
	}
	if a.onPlatformAccessories != nil {
		a.onPlatformAccessories(a.plugin, name, accs)
	}
}

// PublishExternalAccessories publishes accessories outside the bridge.
// External accessories are tagged with the plugin identifier only and are
// not persisted by the host.
func (a *API) PublishExternalAccessories(accs ...*accessory.Accessory) {
	id := a.plugin.Identifier().String()
	for _, acc := range accs {
		acc.Associate(id, "")
	}
	if a.onExternalAccessories != nil {
		a.onExternalAccessories(a.plugin, accs)
	}
}

// GenerateUUID derives a stable accessory UUID from a seed. The same seed
// always yields the same UUID.
func (a *API) GenerateUUID(seed string) string {
	return uuid.NewSHA1(accessoryNamespace, []byte(seed)).String()
}
