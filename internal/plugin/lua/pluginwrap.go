package lua

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"bridgehost/internal/accessory"
	"bridgehost/internal/plugin"
)

// newAccessoryFactory wraps a Lua constructor function into a native
// accessory factory. The constructor receives the config table and must
// return the instance table.
func newAccessoryFactory(state *State, fn *lua.LFunction) plugin.AccessoryFactory {
	return func(_ context.Context, config map[string]any, _ *plugin.API) (plugin.AccessoryPlugin, error) {
		self, err := construct(state, fn, config)
		if err != nil {
			return nil, err
		}
		return &luaAccessoryPlugin{state: state, self: self}, nil
	}
}

// newPlatformFactory wraps a Lua constructor function into a native
// platform factory. Instances whose table carries a configure_accessory
// function come back as dynamic platforms.
func newPlatformFactory(state *State, fn *lua.LFunction, logger *zap.Logger) plugin.PlatformFactory {
	return func(_ context.Context, config map[string]any, _ *plugin.API) (plugin.PlatformPlugin, error) {
		self, err := construct(state, fn, config)
		if err != nil {
			return nil, err
		}
		base := luaAccessoryPlugin{state: state, self: self}
		if _, ok := self.RawGetString("configure_accessory").(*lua.LFunction); ok {
			return &luaDynamicPlatform{luaPlatform: luaPlatform{base}, logger: logger}, nil
		}
		return &luaPlatform{base}, nil
	}
}

// construct calls a Lua constructor with the converted config table and
// validates that it returned an instance table.
func construct(state *State, fn *lua.LFunction, config map[string]any) (*lua.LTable, error) {
	bridge := NewBridge(state.L)
	values, err := state.CallValue(fn, bridge.ToLuaValue(config))
	if err != nil {
		return nil, err
	}
	if len(values) == 0 {
		return nil, fmt.Errorf("plugin constructor returned no instance")
	}
	self, ok := values[0].(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("plugin constructor returned %s, want table", values[0].Type())
	}
	return self, nil
}

// luaAccessoryPlugin adapts an instance table to the accessory plugin
// interface.
type luaAccessoryPlugin struct {
	state *State
	self  *lua.LTable
}

func (p *luaAccessoryPlugin) Accessories(_ context.Context) ([]*accessory.Accessory, error) {
	fn, ok := p.self.RawGetString("accessories").(*lua.LFunction)
	if !ok {
		return nil, nil
	}
	values, err := p.state.CallValue(fn, p.self)
	if err != nil {
		return nil, err
	}
	if len(values) == 0 || values[0] == lua.LNil {
		return nil, nil
	}
	specs, ok := values[0].(*lua.LTable)
	if !ok {
		return nil, fmt.Errorf("accessories returned %s, want table", values[0].Type())
	}
	return accessoriesFromTable(p.state, specs)
}

// luaPlatform is a static platform instance.
type luaPlatform struct {
	luaAccessoryPlugin
}

// luaDynamicPlatform additionally adopts restored accessories through the
// table's configure_accessory function.
type luaDynamicPlatform struct {
	luaPlatform
	logger *zap.Logger
}

func (p *luaDynamicPlatform) ConfigureAccessory(acc *accessory.Accessory) {
	fn, ok := p.self.RawGetString("configure_accessory").(*lua.LFunction)
	if !ok {
		return
	}

	bridge := NewBridge(p.state.L)
	ctx := bridge.ToLuaValue(acc.Context())

	tbl := p.state.L.NewTable()
	tbl.RawSetString("name", lua.LString(acc.DisplayName()))
	tbl.RawSetString("uuid", lua.LString(acc.UUID()))
	tbl.RawSetString("category", lua.LNumber(acc.Category()))
	tbl.RawSetString("plugin", lua.LString(acc.PluginID()))
	tbl.RawSetString("platform", lua.LString(acc.PlatformName()))
	tbl.RawSetString("context", ctx)

	if _, err := p.state.CallValue(fn, p.self, tbl); err != nil && p.logger != nil {
		p.logger.Warn("configure_accessory failed",
			zap.String("accessory", acc.DisplayName()),
			zap.Error(err))
	}
}
