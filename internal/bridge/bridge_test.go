package bridge

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zaptest"

	"bridgehost/internal/accessory"
	"bridgehost/internal/config"
	"bridgehost/internal/plugin"
	"bridgehost/internal/storage"
)

// staticAccessories is a native accessory plugin with a fixed handle set.
type staticAccessories struct {
	accs []*accessory.Accessory
}

func (s staticAccessories) Accessories(context.Context) ([]*accessory.Accessory, error) {
	return s.accs, nil
}

// recordingPlatform is a native dynamic platform that remembers the
// accessories handed back to it.
type recordingPlatform struct {
	configured []*accessory.Accessory
}

func (r *recordingPlatform) Accessories(context.Context) ([]*accessory.Accessory, error) {
	return nil, nil
}

func (r *recordingPlatform) ConfigureAccessory(acc *accessory.Accessory) {
	r.configured = append(r.configured, acc)
}

func installNativePlugin(t *testing.T, base, name string, resolver *plugin.NativeResolver, init plugin.Initializer) {
	t.Helper()
	dir := filepath.Join(base, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	manifest := `{"name": "` + name + `", "version": "1.0.0", "engines": {"bridgehost": "^1.0.0"}}`
	if err := os.WriteFile(filepath.Join(dir, plugin.ManifestFile), []byte(manifest), 0o644); err != nil {
		t.Fatal(err)
	}
	resolver.Register(dir, init)
}

func discoverInto(t *testing.T, b *Bridge, base string) {
	t.Helper()
	loader := plugin.NewLoader(plugin.WithPaths(base))
	infos, err := loader.Discover()
	if err != nil {
		t.Fatalf("Discover() error = %v", err)
	}
	for _, info := range infos {
		if err := b.AddPlugin(info); err != nil {
			t.Fatalf("AddPlugin(%s) error = %v", info.Identifier, err)
		}
	}
}

func TestBridgeLifecycle(t *testing.T) {
	base := t.TempDir()
	resolver := plugin.NewNativeResolver()

	platform := &recordingPlatform{}
	var capturedAPI *plugin.API
	installNativePlugin(t, base, "bridgehost-lights", resolver, func(_ context.Context, api *plugin.API) error {
		capturedAPI = api
		err := api.RegisterAccessory("Lightbulb", func(_ context.Context, cfg map[string]any, api *plugin.API) (plugin.AccessoryPlugin, error) {
			acc := accessory.New("Bulb", api.GenerateUUID("bulb"))
			return staticAccessories{accs: []*accessory.Accessory{acc}}, nil
		})
		if err != nil {
			return err
		}
		return api.RegisterPlatform("Lights", func(context.Context, map[string]any, *plugin.API) (plugin.PlatformPlugin, error) {
			return platform, nil
		})
	})

	// Pre-seed the cache with an accessory the platform published in an
	// earlier run.
	storeDir := t.TempDir()
	store := storage.NewAccessoryStore(storeDir, nil)
	cached := accessory.New("Old Lamp", "uuid-cached")
	cached.Associate("bridgehost-lights", "Lights")
	if err := store.Save([]*accessory.Accessory{cached}); err != nil {
		t.Fatal(err)
	}

	cfg := &config.Config{
		Name:        "Test Bridge",
		StoragePath: storeDir,
		LogLevel:    "info",
		Accessories: []config.AccessoryConfig{
			{Accessory: "Lightbulb", Name: "Desk Lamp"},
		},
		Platforms: []config.PlatformConfig{
			{Platform: "Lights"},
		},
	}

	b := New(cfg, zaptest.NewLogger(t), WithResolver(resolver), WithStore(store))
	discoverInto(t, b, base)

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}

	// The cached accessory went back to its platform.
	if len(platform.configured) != 1 || platform.configured[0].UUID() != "uuid-cached" {
		t.Errorf("platform configured = %v, want the cached accessory", platform.configured)
	}

	// The configured accessory instance is exposed under its config name.
	var deskLamp *accessory.Accessory
	for _, acc := range b.Accessories() {
		if acc.DisplayName() == "Desk Lamp" {
			deskLamp = acc
		}
	}
	if deskLamp == nil {
		t.Fatal("configured accessory not exposed")
	}
	if deskLamp.PluginID() != "bridgehost-lights" {
		t.Errorf("PluginID() = %q", deskLamp.PluginID())
	}

	// Runtime publications join the restorable set and are persisted.
	published := accessory.New("New Lamp", "uuid-new")
	capturedAPI.RegisterPlatformAccessories("Lights", published)

	found := false
	for _, acc := range b.CachedAccessories() {
		if acc.UUID() == "uuid-new" {
			found = true
		}
	}
	if !found {
		t.Error("published accessory not in the restorable set")
	}

	if err := b.Shutdown(); err != nil {
		t.Fatalf("Shutdown() error = %v", err)
	}

	restored, err := storage.NewAccessoryStore(storeDir, nil).Load()
	if err != nil {
		t.Fatal(err)
	}
	if len(restored) != 2 {
		t.Errorf("persisted %d accessories, want 2", len(restored))
	}
}

func TestBridgeDisabledPlugin(t *testing.T) {
	base := t.TempDir()
	resolver := plugin.NewNativeResolver()

	initialized := false
	installNativePlugin(t, base, "bridgehost-lights", resolver, func(context.Context, *plugin.API) error {
		initialized = true
		return nil
	})

	cfg := &config.Config{
		Name:            "Test Bridge",
		StoragePath:     t.TempDir(),
		LogLevel:        "info",
		DisabledPlugins: []string{"bridgehost-lights"},
	}

	b := New(cfg, zaptest.NewLogger(t), WithResolver(resolver))
	discoverInto(t, b, base)

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if initialized {
		t.Error("disabled plugin was initialized")
	}

	plugins := b.Plugins()
	if len(plugins) != 1 || !plugins[0].Disabled() {
		t.Error("plugin not marked disabled")
	}
}

func TestBridgeStartAggregatesErrors(t *testing.T) {
	base := t.TempDir()
	resolver := plugin.NewNativeResolver()

	installNativePlugin(t, base, "bridgehost-lights", resolver, func(_ context.Context, api *plugin.API) error {
		return api.RegisterPlatform("Lights", func(context.Context, map[string]any, *plugin.API) (plugin.PlatformPlugin, error) {
			return &recordingPlatform{}, nil
		})
	})

	cfg := &config.Config{
		Name:        "Test Bridge",
		StoragePath: t.TempDir(),
		LogLevel:    "info",
		Platforms: []config.PlatformConfig{
			{Platform: "NoSuchPlatform"},
			{Platform: "Lights"},
		},
	}

	b := New(cfg, zaptest.NewLogger(t), WithResolver(resolver))
	discoverInto(t, b, base)

	err := b.Start(context.Background())
	if err == nil {
		t.Fatal("expected an aggregated error for the unknown platform")
	}

	// The healthy platform still came up.
	p := b.Plugins()[0]
	if _, ok := p.ActiveDynamicPlatform("Lights"); !ok {
		t.Error("healthy platform did not start")
	}
}

func TestBridgeStartTwice(t *testing.T) {
	cfg := &config.Config{Name: "Test", StoragePath: t.TempDir(), LogLevel: "info"}
	b := New(cfg, zaptest.NewLogger(t), WithResolver(plugin.NewNativeResolver()))

	if err := b.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := b.Start(context.Background()); err == nil {
		t.Error("second Start() must fail")
	}
}
