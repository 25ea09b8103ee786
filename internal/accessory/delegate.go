package accessory

import "bridgehost/internal/protocol"

// Delegate is the protocol-level device object a handle wraps. All identity
// and service mutation goes through the delegate; the handle only mirrors
// identity fields for cheap access and persistence.
type Delegate interface {
	DisplayName() string
	SetDisplayName(name string)
	UUID() string
	Category() protocol.Category
	SetCategory(c protocol.Category)

	Services() []*protocol.Service
	AddService(s *protocol.Service) error
	RemoveService(s *protocol.Service) error
	Service(name string) *protocol.Service
	ServiceByID(typ protocol.ServiceType, subtype string) *protocol.Service

	OnIdentify(fn protocol.IdentifyFunc)
	MarshalPayload() ([]byte, error)
}

// DelegateCodec builds fresh delegates and reconstructs them from persisted
// payloads. The deserialization path uses it to rebuild the delegate before
// the handle is constructed around it.
type DelegateCodec interface {
	New(displayName, uuid string, category protocol.Category) Delegate
	Decode(payload []byte) (Delegate, error)
}

// protocolCodec is the default codec backed by the protocol package.
type protocolCodec struct{}

func (protocolCodec) New(displayName, uuid string, category protocol.Category) Delegate {
	return protocol.NewAccessory(displayName, uuid, category)
}

func (protocolCodec) Decode(payload []byte) (Delegate, error) {
	a, err := protocol.Decode(payload)
	if err != nil {
		return nil, err
	}
	return a, nil
}

// codec builds and decodes delegates for this process.
var codec DelegateCodec = protocolCodec{}
