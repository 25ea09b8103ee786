package plugin

import (
	"context"

	"bridgehost/internal/accessory"
)

// AccessoryFactory constructs an accessory plugin instance. The host
// invokes it once per configured accessory entry.
type AccessoryFactory func(ctx context.Context, config map[string]any, api *API) (AccessoryPlugin, error)

// PlatformFactory constructs a platform plugin instance. The host invokes
// it once per configured platform entry.
type PlatformFactory func(ctx context.Context, config map[string]any, api *API) (PlatformPlugin, error)

// AccessoryPlugin is a plugin-provided virtual device.
type AccessoryPlugin interface {
	// Accessories returns the handles this device exposes.
	Accessories(ctx context.Context) ([]*accessory.Accessory, error)
}

// PlatformPlugin manages a set of accessories.
type PlatformPlugin interface {
	// Accessories returns the platform's statically known accessories.
	// Dynamic platforms may return nil and instead publish accessories at
	// runtime and adopt restored ones through ConfigureAccessory.
	Accessories(ctx context.Context) ([]*accessory.Accessory, error)
}

// PlatformInstance is a running dynamic platform: one that manages a
// changing accessory set at runtime. Restored accessories are handed back
// to it after a restart.
type PlatformInstance interface {
	// ConfigureAccessory hands a restored accessory handle back to the
	// platform that published it.
	ConfigureAccessory(acc *accessory.Accessory)
}
