package plugin

import (
	"testing"

	"bridgehost/internal/accessory"
)

func TestAPIVersionSurface(t *testing.T) {
	p := newTestPlugin(t, testManifest(), WithHostVersion("1.3.0"))
	api := NewAPI(p)

	if api.ServerVersion() != "1.3.0" {
		t.Errorf("ServerVersion() = %q, want %q", api.ServerVersion(), "1.3.0")
	}
	if api.Version() != APIVersion {
		t.Errorf("Version() = %q, want %q", api.Version(), APIVersion)
	}
	if api.Plugin() != p {
		t.Error("Plugin() did not return the owning descriptor")
	}
}

func TestRegisterPlatformAccessoriesTagsProvenance(t *testing.T) {
	p := newTestPlugin(t, testManifest())

	var gotPlatform string
	var gotAccs []*accessory.Accessory
	api := NewAPI(p, WithPlatformAccessoriesFunc(func(_ *Plugin, platformName string, accs []*accessory.Accessory) {
		gotPlatform = platformName
		gotAccs = accs
	}))

	acc := accessory.New("Garden Lights", api.GenerateUUID("garden"))
	api.RegisterPlatformAccessories("@acme/bridgehost-lights.Lights", acc)

	if gotPlatform != "Lights" {
		t.Errorf("sink platform = %q, want bare name %q", gotPlatform, "Lights")
	}
	if len(gotAccs) != 1 {
		t.Fatalf("sink received %d accessories, want 1", len(gotAccs))
	}
	if acc.PluginID() != "@acme/bridgehost-lights" {
		t.Errorf("PluginID() = %q, want %q", acc.PluginID(), "@acme/bridgehost-lights")
	}
	if acc.PlatformName() != "Lights" {
		t.Errorf("PlatformName() = %q, want %q", acc.PlatformName(), "Lights")
	}
}

func TestPublishExternalAccessoriesTagsPluginOnly(t *testing.T) {
	p := newTestPlugin(t, testManifest())

	var got []*accessory.Accessory
	api := NewAPI(p, WithExternalAccessoriesFunc(func(_ *Plugin, accs []*accessory.Accessory) {
		got = accs
	}))

	acc := accessory.New("Camera", api.GenerateUUID("camera"))
	api.PublishExternalAccessories(acc)

	if len(got) != 1 {
		t.Fatalf("sink received %d accessories, want 1", len(got))
	}
	if acc.PluginID() != "@acme/bridgehost-lights" {
		t.Errorf("PluginID() = %q, want %q", acc.PluginID(), "@acme/bridgehost-lights")
	}
	if acc.PlatformName() != "" {
		t.Errorf("PlatformName() = %q, want empty for external accessories", acc.PlatformName())
	}
}

func TestGenerateUUID(t *testing.T) {
	p := newTestPlugin(t, testManifest())
	api := NewAPI(p)

	a := api.GenerateUUID("device-1")
	b := api.GenerateUUID("device-1")
	c := api.GenerateUUID("device-2")

	if a != b {
		t.Errorf("same seed produced %q and %q", a, b)
	}
	if a == c {
		t.Error("different seeds produced the same UUID")
	}
}
