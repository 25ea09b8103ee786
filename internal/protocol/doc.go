// Package protocol provides the protocol-level accessory model the bridge
// exposes to plugins: categories, services, and a serializable accessory
// object. Pairing, encoding, and transport live outside this module; the
// types here carry only identity and service structure.
package protocol
