package plugin

import "strings"

// Identifier is a plugin's stable identity: an optional scope plus the
// package name, rendered "scope/name" when scoped. Identifiers are
// case-sensitive and unique across the host's plugin set.
type Identifier struct {
	Scope string
	Name  string
}

// ParseIdentifier splits a raw identifier such as "@acme/bridgehost-garden"
// into scope and name. Unscoped identifiers have an empty scope.
func ParseIdentifier(raw string) Identifier {
	if strings.HasPrefix(raw, "@") {
		if i := strings.Index(raw, "/"); i >= 0 {
			return Identifier{Scope: raw[:i], Name: raw[i+1:]}
		}
	}
	return Identifier{Name: raw}
}

// String renders the identifier, including the scope when present.
func (id Identifier) String() string {
	if id.Scope != "" {
		return id.Scope + "/" + id.Name
	}
	return id.Name
}

// bareName strips a "plugin-identifier." qualification from an accessory or
// platform identifier, returning the registered name. Identifiers without a
// qualification come back unchanged.
func bareName(identifier string) string {
	if i := strings.LastIndex(identifier, "."); i >= 0 {
		return identifier[i+1:]
	}
	return identifier
}
