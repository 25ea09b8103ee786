// Package storage persists restorable accessory records across restarts.
package storage
