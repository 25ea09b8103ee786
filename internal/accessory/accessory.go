package accessory

import (
	"sync"

	"bridgehost/internal/protocol"
)

// Accessory is a durable handle around one protocol delegate. It survives
// restarts through Serialize and Deserialize, keeping plugin and platform
// ownership and user-defined context intact.
type Accessory struct {
	mu sync.Mutex

	// Cached mirror of the delegate's identity, kept in sync at
	// construction and on rename.
	displayName string
	uuid        string
	category    protocol.Category

	// Context is free-form plugin state, persisted verbatim.
	context map[string]any

	// Provenance, empty until the host associates the handle. Platform
	// stays empty for externally published accessories.
	pluginID     string
	platformName string

	delegate Delegate

	identifyListeners []func()

	// Kept for compatibility with older plugins; has no effect.
	reachable bool
}

// Option configures a new accessory handle.
type Option func(*Accessory)

// WithCategory sets the accessory category.
func WithCategory(c protocol.Category) Option {
	return func(a *Accessory) {
		a.category = c
	}
}

// New creates a fresh handle and its underlying delegate.
func New(displayName, uuid string, opts ...Option) *Accessory {
	a := &Accessory{
		displayName: displayName,
		uuid:        uuid,
		category:    protocol.CategoryOther,
		context:     make(map[string]any),
	}
	for _, opt := range opts {
		opt(a)
	}
	a.delegate = codec.New(displayName, uuid, a.category)
	a.delegate.OnIdentify(a.handleIdentify)
	return a
}

// newWithDelegate constructs a handle around a pre-built delegate. Only the
// deserialization path uses it; the public constructor always builds a
// fresh delegate.
func newWithDelegate(d Delegate) *Accessory {
	a := &Accessory{
		displayName: d.DisplayName(),
		uuid:        d.UUID(),
		category:    d.Category(),
		context:     make(map[string]any),
		delegate:    d,
	}
	d.OnIdentify(a.handleIdentify)
	return a
}

// DisplayName returns the accessory's display name.
func (a *Accessory) DisplayName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.displayName
}

// UUID returns the accessory's unique identifier.
func (a *Accessory) UUID() string {
	return a.uuid
}

// Category returns the accessory category.
func (a *Accessory) Category() protocol.Category {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.category
}

// Context returns the plugin-owned context map. Mutations are persisted on
// the next serialization.
func (a *Accessory) Context() map[string]any {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.context
}

// PluginID returns the owning plugin identifier, or "" before the host
// registers the handle.
func (a *Accessory) PluginID() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.pluginID
}

// PlatformName returns the owning platform name, or "" for external or
// unregistered accessories.
func (a *Accessory) PlatformName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.platformName
}

// Associate tags the handle with its owning plugin and platform. The host
// calls this when a plugin registers the accessory; platform is empty for
// externally published accessories.
func (a *Accessory) Associate(pluginID, platformName string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.pluginID = pluginID
	a.platformName = platformName
}

// Delegate returns the wrapped protocol object.
func (a *Accessory) Delegate() Delegate {
	return a.delegate
}

// UpdateDisplayName renames the accessory on both the handle and the
// delegate. Empty names are ignored.
func (a *Accessory) UpdateDisplayName(name string) {
	if name == "" {
		return
	}
	a.mu.Lock()
	a.displayName = name
	a.mu.Unlock()
	a.delegate.SetDisplayName(name)
}

// Services returns the delegate's service list.
func (a *Accessory) Services() []*protocol.Service {
	return a.delegate.Services()
}

// AddService forwards to the delegate.
func (a *Accessory) AddService(s *protocol.Service) error {
	return a.delegate.AddService(s)
}

// RemoveService forwards to the delegate.
func (a *Accessory) RemoveService(s *protocol.Service) error {
	return a.delegate.RemoveService(s)
}

// GetService forwards to the delegate.
func (a *Accessory) GetService(name string) *protocol.Service {
	return a.delegate.Service(name)
}

// GetServiceByID forwards to the delegate.
func (a *Accessory) GetServiceByID(typ protocol.ServiceType, subtype string) *protocol.Service {
	return a.delegate.ServiceByID(typ, subtype)
}

// OnIdentify registers a listener for identify events. Listeners receive
// no payload; the underlying notification's completion callback is invoked
// by the handle after dispatch.
func (a *Accessory) OnIdentify(fn func()) {
	if fn == nil {
		return
	}
	a.mu.Lock()
	defer a.mu.Unlock()
	a.identifyListeners = append(a.identifyListeners, fn)
}

// handleIdentify re-emits a delegate identify notification to the handle's
// listeners and then invokes the completion callback. The callback runs
// even when no listener is attached.
func (a *Accessory) handleIdentify(_ bool, done func()) {
	a.mu.Lock()
	listeners := make([]func(), len(a.identifyListeners))
	copy(listeners, a.identifyListeners)
	a.mu.Unlock()

	for _, fn := range listeners {
		fn()
	}
	if done != nil {
		done()
	}
}

// Reachable reports the stored reachability flag. Reachability is retained
// for older plugins and has no functional effect.
func (a *Accessory) Reachable() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reachable
}

// SetReachable stores the reachability flag. It has no functional effect.
func (a *Accessory) SetReachable(reachable bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.reachable = reachable
}
