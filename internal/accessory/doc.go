// Package accessory provides the durable identity wrapper around a
// protocol-level accessory. A handle mirrors the delegate's identity,
// carries plugin and platform provenance plus arbitrary user context, and
// defines the flat record shape used to persist accessories across
// restarts.
package accessory
