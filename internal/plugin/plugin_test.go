package plugin

import (
	"context"
	"errors"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"bridgehost/internal/accessory"
)

// stubResolver returns a canned initializer for every entry module.
type stubResolver struct {
	init Initializer
	err  error

	entry string
	esm   bool
}

func (r *stubResolver) Resolve(_ context.Context, entry string, esm bool) (Initializer, error) {
	r.entry = entry
	r.esm = esm
	if r.err != nil {
		return nil, r.err
	}
	return r.init, nil
}

func noopInitializer(context.Context, *API) error { return nil }

func testManifest() *Manifest {
	return &Manifest{
		Name:    "@acme/bridgehost-lights",
		Version: "1.0.0",
		Main:    "index.lua",
		Engines: map[string]string{"bridgehost": "^1.0.0"},
	}
}

func newTestPlugin(t *testing.T, m *Manifest, opts ...Option) *Plugin {
	t.Helper()
	p, err := New(m, t.TempDir(), opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return p
}

func observedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestNewNilManifest(t *testing.T) {
	if _, err := New(nil, "/tmp/p"); !errors.Is(err, ErrNilManifest) {
		t.Errorf("New(nil) error = %v, want ErrNilManifest", err)
	}
}

func TestPluginIdentity(t *testing.T) {
	p := newTestPlugin(t, testManifest())

	if got := p.Identifier().String(); got != "@acme/bridgehost-lights" {
		t.Errorf("Identifier() = %q, want %q", got, "@acme/bridgehost-lights")
	}
	if p.Name() != "bridgehost-lights" {
		t.Errorf("Name() = %q, want %q", p.Name(), "bridgehost-lights")
	}
	if p.Main() != "index.lua" {
		t.Errorf("Main() = %q, want %q", p.Main(), "index.lua")
	}
	if p.State() != StateUnloaded {
		t.Errorf("State() = %v, want StateUnloaded", p.State())
	}
}

func TestLoad(t *testing.T) {
	resolver := &stubResolver{init: noopInitializer}
	p := newTestPlugin(t, testManifest(), WithResolver(resolver))

	if err := p.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if p.State() != StateLoaded {
		t.Errorf("State() = %v, want StateLoaded", p.State())
	}
	if resolver.entry == "" {
		t.Error("resolver was not consulted")
	}
}

func TestLoadTwice(t *testing.T) {
	p := newTestPlugin(t, testManifest(), WithResolver(&stubResolver{init: noopInitializer}))

	if err := p.Load(context.Background()); err != nil {
		t.Fatalf("first Load() error = %v", err)
	}
	if err := p.Load(context.Background()); !errors.Is(err, ErrAlreadyLoaded) {
		t.Errorf("second Load() error = %v, want ErrAlreadyLoaded", err)
	}
}

func TestLoadMissingEngineDeclaration(t *testing.T) {
	m := testManifest()
	m.Engines = nil
	resolver := &stubResolver{init: noopInitializer}
	p := newTestPlugin(t, m, WithResolver(resolver))

	err := p.Load(context.Background())
	if !errors.Is(err, ErrEngineNotDeclared) {
		t.Errorf("Load() error = %v, want ErrEngineNotDeclared", err)
	}
	if p.State() != StateError {
		t.Errorf("State() = %v, want StateError", p.State())
	}
	if resolver.entry != "" {
		t.Error("module was imported despite the fatal gate")
	}
}

func TestLoadPeerDependencyShim(t *testing.T) {
	m := testManifest()
	m.Engines = nil
	m.PeerDependencies = map[string]string{"bridgehost": "^1.0.0"}
	p := newTestPlugin(t, m, WithResolver(&stubResolver{init: noopInitializer}))

	if err := p.Load(context.Background()); err != nil {
		t.Errorf("Load() error = %v, want nil via peer dependency shim", err)
	}
}

func TestLoadHostVersionMismatchContinues(t *testing.T) {
	logger, logs := observedLogger()
	m := testManifest()
	m.Engines = map[string]string{"bridgehost": "^2.0.0"}
	p := newTestPlugin(t, m,
		WithResolver(&stubResolver{init: noopInitializer}),
		WithLogger(logger),
		WithHostVersion("1.3.0"))

	if err := p.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v, want nil despite version mismatch", err)
	}
	if logs.FilterLevelExact(zapcore.ErrorLevel).Len() == 0 {
		t.Error("expected an error-level log for the host version mismatch")
	}
}

func TestLoadRuntimeVersionMismatchWarns(t *testing.T) {
	logger, logs := observedLogger()
	m := testManifest()
	m.Engines["go"] = ">=99.0.0"
	p := newTestPlugin(t, m,
		WithResolver(&stubResolver{init: noopInitializer}),
		WithLogger(logger),
		WithRuntimeVersion("1.22.0"))

	if err := p.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v, want nil despite runtime mismatch", err)
	}
	if logs.FilterLevelExact(zapcore.WarnLevel).Len() == 0 {
		t.Error("expected a warn-level log for the runtime version mismatch")
	}
}

func TestLoadBundledHostDependency(t *testing.T) {
	logger, logs := observedLogger()
	m := testManifest()
	m.Dependencies = map[string]string{"hap": "1.0.0"}
	p := newTestPlugin(t, m,
		WithResolver(&stubResolver{init: noopInitializer}),
		WithLogger(logger))

	if err := p.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v, want nil despite bundled dependency", err)
	}
	if logs.FilterLevelExact(zapcore.ErrorLevel).Len() == 0 {
		t.Error("expected an error-level log for the bundled host package")
	}
}

func TestLoadNoResolver(t *testing.T) {
	p := newTestPlugin(t, testManifest())

	if err := p.Load(context.Background()); !errors.Is(err, ErrNoResolver) {
		t.Errorf("Load() error = %v, want ErrNoResolver", err)
	}
}

func TestLoadResolverError(t *testing.T) {
	resolveErr := errors.New("syntax error")
	p := newTestPlugin(t, testManifest(), WithResolver(&stubResolver{err: resolveErr}))

	if err := p.Load(context.Background()); !errors.Is(err, resolveErr) {
		t.Errorf("Load() error = %v, want wrapped resolver error", err)
	}
	if p.State() != StateError {
		t.Errorf("State() = %v, want StateError", p.State())
	}
}

func TestLoadNilInitializer(t *testing.T) {
	p := newTestPlugin(t, testManifest(), WithResolver(&stubResolver{}))

	if err := p.Load(context.Background()); !errors.Is(err, ErrNoInitializer) {
		t.Errorf("Load() error = %v, want ErrNoInitializer", err)
	}
}

func TestInitializeBeforeLoad(t *testing.T) {
	p := newTestPlugin(t, testManifest())

	err := p.Initialize(context.Background(), NewAPI(p))
	if !errors.Is(err, ErrNotLoaded) {
		t.Errorf("Initialize() error = %v, want ErrNotLoaded", err)
	}
}

func TestInitialize(t *testing.T) {
	var gotAPI *API
	resolver := &stubResolver{init: func(_ context.Context, api *API) error {
		gotAPI = api
		return nil
	}}
	p := newTestPlugin(t, testManifest(), WithResolver(resolver))

	if err := p.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	api := NewAPI(p)
	if err := p.Initialize(context.Background(), api); err != nil {
		t.Fatalf("Initialize() error = %v", err)
	}
	if gotAPI != api {
		t.Error("initializer did not receive the API capability object")
	}
	if p.State() != StateInitialized {
		t.Errorf("State() = %v, want StateInitialized", p.State())
	}
}

func TestInitializeError(t *testing.T) {
	initErr := errors.New("boom")
	resolver := &stubResolver{init: func(context.Context, *API) error { return initErr }}
	p := newTestPlugin(t, testManifest(), WithResolver(resolver))

	if err := p.Load(context.Background()); err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if err := p.Initialize(context.Background(), NewAPI(p)); !errors.Is(err, initErr) {
		t.Errorf("Initialize() error = %v, want initializer error", err)
	}
	if p.State() != StateError {
		t.Errorf("State() = %v, want StateError", p.State())
	}
}

func TestRegisterAccessoryDuplicate(t *testing.T) {
	p := newTestPlugin(t, testManifest())
	factory := func(context.Context, map[string]any, *API) (AccessoryPlugin, error) { return nil, nil }

	if err := p.RegisterAccessory("Lightbulb", factory); err != nil {
		t.Fatalf("RegisterAccessory() error = %v", err)
	}
	if err := p.RegisterAccessory("Lightbulb", factory); !errors.Is(err, ErrDuplicateRegistration) {
		t.Errorf("duplicate RegisterAccessory() error = %v, want ErrDuplicateRegistration", err)
	}
	if _, err := p.AccessoryConstructor("Lightbulb"); err != nil {
		t.Errorf("first registration lost after rejected duplicate: %v", err)
	}
}

func TestRegisterPlatformDuplicate(t *testing.T) {
	p := newTestPlugin(t, testManifest())
	factory := func(context.Context, map[string]any, *API) (PlatformPlugin, error) { return nil, nil }

	if err := p.RegisterPlatform("Lights", factory); err != nil {
		t.Fatalf("RegisterPlatform() error = %v", err)
	}
	if err := p.RegisterPlatform("Lights", factory); !errors.Is(err, ErrDuplicateRegistration) {
		t.Errorf("duplicate RegisterPlatform() error = %v, want ErrDuplicateRegistration", err)
	}
}

func TestConstructorLookupNormalization(t *testing.T) {
	p := newTestPlugin(t, testManifest())
	accFactory := func(context.Context, map[string]any, *API) (AccessoryPlugin, error) { return nil, nil }
	if err := p.RegisterAccessory("Lightbulb", accFactory); err != nil {
		t.Fatalf("RegisterAccessory() error = %v", err)
	}

	tests := []struct {
		name       string
		identifier string
		wantErr    error
	}{
		{"bare name", "Lightbulb", nil},
		{"qualified name", "@acme/bridgehost-lights.Lightbulb", nil},
		{"unknown name", "Thermostat", ErrNotRegistered},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := p.AccessoryConstructor(tt.identifier)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("AccessoryConstructor(%q) error = %v, want %v", tt.identifier, err, tt.wantErr)
			}
		})
	}
}

// fakeInstance is a comparable dynamic platform stand-in.
type fakeInstance string

func (fakeInstance) ConfigureAccessory(*accessory.Accessory) {}

func TestDynamicPlatformLastPublishedWins(t *testing.T) {
	p := newTestPlugin(t, testManifest())

	first := fakeInstance("first")
	second := fakeInstance("second")
	third := fakeInstance("third")
	p.AssignDynamicPlatform("Lights", first)
	p.AssignDynamicPlatform("@acme/bridgehost-lights.Lights", second)

	got, ok := p.ActiveDynamicPlatform("Lights")
	if !ok {
		t.Fatal("ActiveDynamicPlatform() reported no instance")
	}
	if got != second {
		t.Error("ActiveDynamicPlatform() did not return the most recent instance")
	}

	p.AssignDynamicPlatform("Lights", third)
	if got, _ := p.ActiveDynamicPlatform("Lights"); got != third {
		t.Error("ActiveDynamicPlatform() did not follow the newest assignment")
	}

	all := p.DynamicPlatforms("Lights")
	if len(all) != 3 {
		t.Fatalf("DynamicPlatforms() len = %d, want 3", len(all))
	}
	if all[0] != third || all[1] != second || all[2] != first {
		t.Error("DynamicPlatforms() is not ordered newest first")
	}
}

func TestPlatformConstructorDeprecationWarning(t *testing.T) {
	logger, logs := observedLogger()
	p := newTestPlugin(t, testManifest(), WithLogger(logger))

	factory := func(context.Context, map[string]any, *API) (PlatformPlugin, error) { return nil, nil }
	if err := p.RegisterPlatform("Lights", factory); err != nil {
		t.Fatalf("RegisterPlatform() error = %v", err)
	}

	if _, err := p.PlatformConstructor("Lights"); err != nil {
		t.Fatalf("PlatformConstructor() error = %v", err)
	}
	if logs.FilterLevelExact(zapcore.WarnLevel).Len() != 0 {
		t.Error("unexpected deprecation warning without active dynamic instances")
	}

	p.AssignDynamicPlatform("Lights", fakeInstance("running"))
	if _, err := p.PlatformConstructor("Lights"); err != nil {
		t.Fatalf("PlatformConstructor() error = %v", err)
	}
	if logs.FilterLevelExact(zapcore.WarnLevel).Len() == 0 {
		t.Error("expected a deprecation warning with an active dynamic instance")
	}
}
