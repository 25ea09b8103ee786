package accessory

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"

	"bridgehost/internal/protocol"
)

// Record keys owned by the handle. The delegate payload must not use them.
const (
	recordKeyPlugin   = "plugin"
	recordKeyPlatform = "platform"
	recordKeyContext  = "context"
)

var reservedKeys = []string{recordKeyPlugin, recordKeyPlatform, recordKeyContext}

// Serialize encodes the handle as a flat record: the delegate's own payload
// merged with the handle's plugin, platform, and context keys. The current
// display name is copied back into the delegate first so renames survive
// the round trip. Handles that were never associated with a plugin and
// platform cannot be serialized.
func Serialize(a *Accessory) ([]byte, error) {
	a.mu.Lock()
	pluginID := a.pluginID
	platformName := a.platformName
	displayName := a.displayName
	context := a.context
	a.mu.Unlock()

	if pluginID == "" || platformName == "" {
		return nil, fmt.Errorf("accessory %s: %w", a.uuid, ErrNotAssociated)
	}

	a.delegate.SetDisplayName(displayName)

	payload, err := a.delegate.MarshalPayload()
	if err != nil {
		return nil, fmt.Errorf("marshal delegate payload: %w", err)
	}
	for _, key := range reservedKeys {
		if gjson.GetBytes(payload, key).Exists() {
			return nil, fmt.Errorf("%q: %w", key, ErrReservedKey)
		}
	}

	record := payload
	if record, err = sjson.SetBytes(record, recordKeyPlugin, pluginID); err != nil {
		return nil, err
	}
	if record, err = sjson.SetBytes(record, recordKeyPlatform, platformName); err != nil {
		return nil, err
	}
	if record, err = sjson.SetBytes(record, recordKeyContext, context); err != nil {
		return nil, err
	}
	return record, nil
}

// Deserialize reconstructs a handle from a record produced by Serialize.
// The delegate is rebuilt first from the delegate-level fields, the handle
// is constructed around it, and the plugin, platform, context, and category
// fields are overlaid afterwards.
func Deserialize(record []byte) (*Accessory, error) {
	pluginID := gjson.GetBytes(record, recordKeyPlugin)
	if !pluginID.Exists() || pluginID.String() == "" {
		return nil, fmt.Errorf("missing %q: %w", recordKeyPlugin, ErrInvalidRecord)
	}
	platformName := gjson.GetBytes(record, recordKeyPlatform)
	if !platformName.Exists() || platformName.String() == "" {
		return nil, fmt.Errorf("missing %q: %w", recordKeyPlatform, ErrInvalidRecord)
	}
	contextRes := gjson.GetBytes(record, recordKeyContext)
	categoryRes := gjson.GetBytes(record, "category")

	payload := record
	var err error
	for _, key := range reservedKeys {
		if payload, err = sjson.DeleteBytes(payload, key); err != nil {
			return nil, err
		}
	}

	delegate, err := codec.Decode(payload)
	if err != nil {
		return nil, fmt.Errorf("decode delegate: %w", err)
	}

	a := newWithDelegate(delegate)
	a.pluginID = pluginID.String()
	a.platformName = platformName.String()
	if contextRes.Exists() && contextRes.IsObject() {
		context := make(map[string]any)
		if err := json.Unmarshal([]byte(contextRes.Raw), &context); err != nil {
			return nil, fmt.Errorf("decode context: %w", err)
		}
		a.context = context
	}
	if categoryRes.Exists() {
		a.category = protocol.Category(categoryRes.Int())
		a.delegate.SetCategory(a.category)
	}
	return a, nil
}
