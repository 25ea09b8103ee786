// Package plugin models one installed bridge plugin: its manifest, entry
// point, version compatibility, and the accessory and platform factories
// its initializer contributes.
//
// A plugin moves through a fixed sequence driven by the host:
//
//	descriptor, _ := plugin.New(manifest, path, opts...) // resolves the entry point
//	descriptor.Load(ctx)                                 // gates versions, imports the module
//	descriptor.Initialize(ctx, api)                      // runs the initializer
//
// The initializer calls back into the descriptor through the API capability
// object to register accessory and platform factories. Module import itself
// is delegated to a ModuleResolver, so the descriptor's contract
// (resolve, gate, import, extract initializer) is independent of the
// concrete loading mechanism; the lua subpackage provides the embedded
// interpreter resolver used for distributed plugins, and NativeResolver
// serves plugins compiled into the host binary.
//
// # Plugin packaging
//
// A plugin is a directory with a package.json manifest:
//
//	{
//	  "name": "@acme/bridgehost-garden",
//	  "version": "1.2.0",
//	  "main": "init.lua",
//	  "engines": { "bridgehost": ">=1.0.0" }
//	}
//
// The engines.bridgehost range is mandatory: a plugin that does not declare
// the host versions it supports is never imported. The entry point may also
// be given through the exports field, as a plain path or as a conditional
// table whose import/require/node/default conditions are resolved in that
// order.
package plugin
