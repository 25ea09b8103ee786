package lua

import (
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"bridgehost/internal/accessory"
	"bridgehost/internal/plugin"
	"bridgehost/internal/protocol"
)

// buildAPIModule constructs the table handed to a plugin initializer. The
// surface mirrors what native initializers get from *plugin.API.
func buildAPIModule(state *State, api *plugin.API, logger *zap.Logger) *lua.LTable {
	L := state.L

	module := L.NewTable()
	module.RawSetString("version", lua.LString(api.Version()))
	module.RawSetString("server_version", lua.LString(api.ServerVersion()))

	module.RawSetString("generate_uuid", L.NewFunction(func(L *lua.LState) int {
		seed := L.CheckString(1)
		L.Push(lua.LString(api.GenerateUUID(seed)))
		return 1
	}))

	module.RawSetString("register_accessory", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		fn := L.CheckFunction(2)
		if err := api.RegisterAccessory(name, newAccessoryFactory(state, fn)); err != nil {
			L.RaiseError("register accessory %s: %v", name, err)
		}
		return 0
	}))

	module.RawSetString("register_platform", L.NewFunction(func(L *lua.LState) int {
		name := L.CheckString(1)
		fn := L.CheckFunction(2)
		if err := api.RegisterPlatform(name, newPlatformFactory(state, fn, logger)); err != nil {
			L.RaiseError("register platform %s: %v", name, err)
		}
		return 0
	}))

	module.RawSetString("register_platform_accessories", L.NewFunction(func(L *lua.LState) int {
		platform := L.CheckString(1)
		specs := L.CheckTable(2)
		accs, err := accessoriesFromTable(state, specs)
		if err != nil {
			L.RaiseError("register platform accessories: %v", err)
		}
		api.RegisterPlatformAccessories(platform, accs...)
		return 0
	}))

	module.RawSetString("publish_external_accessories", L.NewFunction(func(L *lua.LState) int {
		specs := L.CheckTable(1)
		accs, err := accessoriesFromTable(state, specs)
		if err != nil {
			L.RaiseError("publish external accessories: %v", err)
		}
		api.PublishExternalAccessories(accs...)
		return 0
	}))

	return module
}

// accessoriesFromTable converts an array of accessory description tables
// into handles.
func accessoriesFromTable(state *State, specs *lua.LTable) ([]*accessory.Accessory, error) {
	var accs []*accessory.Accessory
	var convErr error
	specs.ForEach(func(_, v lua.LValue) {
		if convErr != nil {
			return
		}
		tbl, ok := v.(*lua.LTable)
		if !ok {
			convErr = protocol.ErrInvalidPayload
			return
		}
		acc, err := accessoryFromTable(state, tbl)
		if err != nil {
			convErr = err
			return
		}
		accs = append(accs, acc)
	})
	if convErr != nil {
		return nil, convErr
	}
	return accs, nil
}

// accessoryFromTable builds a handle from a description table with name
// and uuid fields plus optional category, context, services and identify
// entries.
func accessoryFromTable(state *State, tbl *lua.LTable) (*accessory.Accessory, error) {
	name, ok := tbl.RawGetString("name").(lua.LString)
	if !ok || name == "" {
		return nil, protocol.ErrInvalidPayload
	}
	id, ok := tbl.RawGetString("uuid").(lua.LString)
	if !ok || id == "" {
		return nil, protocol.ErrInvalidPayload
	}

	var opts []accessory.Option
	if cat, ok := tbl.RawGetString("category").(lua.LNumber); ok {
		opts = append(opts, accessory.WithCategory(protocol.Category(int(cat))))
	}
	acc := accessory.New(string(name), string(id), opts...)

	if ctx, ok := tbl.RawGetString("context").(*lua.LTable); ok {
		bridge := NewBridge(state.L)
		if m, ok := bridge.ToGoValue(ctx).(map[string]any); ok {
			for k, v := range m {
				acc.Context()[k] = v
			}
		}
	}

	if services, ok := tbl.RawGetString("services").(*lua.LTable); ok {
		services.ForEach(func(_, v lua.LValue) {
			svcTbl, ok := v.(*lua.LTable)
			if !ok {
				return
			}
			svcType, ok := svcTbl.RawGetString("type").(lua.LString)
			if !ok {
				return
			}
			svcName, _ := svcTbl.RawGetString("name").(lua.LString)
			svc := protocol.NewService(protocol.ServiceType(svcType), string(svcName))
			if subtype, ok := svcTbl.RawGetString("subtype").(lua.LString); ok {
				svc = svc.WithSubtype(string(subtype))
			}
			_ = acc.AddService(svc)
		})
	}

	if identify, ok := tbl.RawGetString("identify").(*lua.LFunction); ok {
		acc.OnIdentify(func() {
			_, _ = state.CallValue(identify)
		})
	}

	return acc, nil
}
