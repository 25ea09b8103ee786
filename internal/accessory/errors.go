package accessory

import "errors"

// Accessory handle errors.
var (
	// ErrNotAssociated is returned when serializing a handle that was
	// never registered with a plugin and platform.
	ErrNotAssociated = errors.New("accessory was never registered with a plugin platform")

	// ErrReservedKey is returned when the delegate payload uses one of the
	// record keys owned by the handle.
	ErrReservedKey = errors.New("delegate payload uses a reserved record key")

	// ErrInvalidRecord is returned when deserializing a record without the
	// required provenance fields.
	ErrInvalidRecord = errors.New("invalid accessory record")
)
