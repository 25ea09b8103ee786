// Package lua provides the embedded-interpreter module resolver for
// distributed plugins. Each plugin gets its own sandboxed Lua state; the
// entry module is executed and must return the initializer function,
// either directly or as the default field of a returned table.
//
// The API capability object is exposed to the initializer as a table:
//
//	return function(api)
//	    api.register_platform("GardenPlatform", function(config)
//	        return {
//	            accessories = function(self)
//	                return {
//	                    { name = "Sprinkler", uuid = api.generate_uuid("sprinkler") },
//	                }
//	            end,
//	            configure_accessory = function(self, acc) end,
//	        }
//	    end)
//	end
package lua
