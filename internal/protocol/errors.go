package protocol

import "errors"

// Protocol accessory errors.
var (
	// ErrServiceExists is returned when adding a service whose type and
	// subtype are already present.
	ErrServiceExists = errors.New("service with this type and subtype already exists")

	// ErrServiceUnknown is returned when removing a service that is not
	// part of the accessory.
	ErrServiceUnknown = errors.New("service is not part of this accessory")

	// ErrInvalidPayload is returned when decoding a malformed accessory
	// payload.
	ErrInvalidPayload = errors.New("invalid accessory payload")
)
