package lua

import (
	"context"
	"fmt"
	"sync"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"bridgehost/internal/plugin"
)

// Resolver imports plugin entry modules through an embedded Lua
// interpreter, one sandboxed state per plugin.
type Resolver struct {
	mu     sync.Mutex
	logger *zap.Logger
	states []*State
	closed bool
}

// NewResolver creates a Lua module resolver.
func NewResolver(logger *zap.Logger) *Resolver {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{logger: logger}
}

// Resolve executes the entry module and extracts the initializer: the
// chunk's return value when it is a function, or the invocable default
// field of a returned table. The module format flag carries no meaning for
// a single-interpreter environment and is ignored.
func (r *Resolver) Resolve(_ context.Context, entry string, _ bool) (plugin.Initializer, error) {
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		return nil, ErrStateClosed
	}
	r.mu.Unlock()

	state := NewState()
	values, err := state.ExecFile(entry)
	if err != nil {
		state.Close()
		return nil, fmt.Errorf("import %s: %w", entry, err)
	}

	fn := extractInitializer(values)
	if fn == nil {
		state.Close()
		return nil, fmt.Errorf("%s: %w", entry, plugin.ErrNoInitializer)
	}

	r.mu.Lock()
	r.states = append(r.states, state)
	r.mu.Unlock()

	return func(_ context.Context, api *plugin.API) error {
		module := buildAPIModule(state, api, r.logger)
		_, err := state.CallValue(fn, module)
		return err
	}, nil
}

// extractInitializer picks the initializer out of a module's return
// values.
func extractInitializer(values []lua.LValue) *lua.LFunction {
	if len(values) == 0 {
		return nil
	}
	switch v := values[0].(type) {
	case *lua.LFunction:
		return v
	case *lua.LTable:
		if fn, ok := v.RawGetString("default").(*lua.LFunction); ok {
			return fn
		}
	}
	return nil
}

// Close releases every interpreter state the resolver created. Plugins
// loaded through this resolver stop working afterwards.
func (r *Resolver) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	for _, state := range r.states {
		_ = state.Close()
	}
	r.states = nil
	return nil
}
