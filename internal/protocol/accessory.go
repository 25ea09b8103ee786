package protocol

import (
	"encoding/json"
	"fmt"
	"sync"
)

// IdentifyFunc receives an identify notification. The paired flag reports
// whether the controller issuing the request is paired; done must be called
// once the notification has been handled.
type IdentifyFunc func(paired bool, done func())

// Accessory is the protocol-level device object. It owns the service list
// and the identity fields a controller sees. Higher layers wrap it and must
// mutate identity and services exclusively through it.
type Accessory struct {
	mu sync.Mutex

	displayName string
	uuid        string
	category    Category
	services    []*Service

	identify IdentifyFunc
}

// NewAccessory creates an accessory with an information service carrying
// the display name.
func NewAccessory(displayName, uuid string, category Category) *Accessory {
	if category == 0 {
		category = CategoryOther
	}
	info := NewService(ServiceAccessoryInformation, displayName)
	info.SetCharacteristic("name", displayName)
	return &Accessory{
		displayName: displayName,
		uuid:        uuid,
		category:    category,
		services:    []*Service{info},
	}
}

// DisplayName returns the accessory's display name.
func (a *Accessory) DisplayName() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.displayName
}

// SetDisplayName updates the display name and the name characteristic of
// the information service.
func (a *Accessory) SetDisplayName(name string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.displayName = name
	for _, s := range a.services {
		if s.Type == ServiceAccessoryInformation {
			s.Name = name
			s.SetCharacteristic("name", name)
		}
	}
}

// UUID returns the accessory's unique identifier.
func (a *Accessory) UUID() string {
	return a.uuid
}

// Category returns the accessory category.
func (a *Accessory) Category() Category {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.category
}

// SetCategory updates the accessory category.
func (a *Accessory) SetCategory(c Category) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.category = c
}

// Services returns the accessory's service list. The slice is shared with
// the accessory; callers must not reorder it.
func (a *Accessory) Services() []*Service {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.services
}

// AddService appends a service. Adding a second service with the same type
// and subtype fails.
func (a *Accessory) AddService(s *Service) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, existing := range a.services {
		if existing.Type == s.Type && existing.Subtype == s.Subtype {
			return fmt.Errorf("%s/%s: %w", s.Type, s.Subtype, ErrServiceExists)
		}
	}
	a.services = append(a.services, s)
	return nil
}

// RemoveService removes a previously added service.
func (a *Accessory) RemoveService(s *Service) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i, existing := range a.services {
		if existing == s || (existing.Type == s.Type && existing.Subtype == s.Subtype) {
			a.services = append(a.services[:i], a.services[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%s/%s: %w", s.Type, s.Subtype, ErrServiceUnknown)
}

// Service returns the first service with the given name, or nil.
func (a *Accessory) Service(name string) *Service {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.services {
		if s.Name == name {
			return s
		}
	}
	return nil
}

// ServiceByID returns the service with the given type and subtype, or nil.
func (a *Accessory) ServiceByID(typ ServiceType, subtype string) *Service {
	a.mu.Lock()
	defer a.mu.Unlock()
	for _, s := range a.services {
		if s.Type == typ && s.Subtype == subtype {
			return s
		}
	}
	return nil
}

// OnIdentify registers the identify notification sink. The sink is
// responsible for invoking done; an accessory without a sink invokes done
// itself.
func (a *Accessory) OnIdentify(fn IdentifyFunc) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.identify = fn
}

// Identify delivers an identify notification. Called by the transport when
// a controller asks the accessory to identify itself.
func (a *Accessory) Identify(paired bool, done func()) {
	a.mu.Lock()
	fn := a.identify
	a.mu.Unlock()

	if fn == nil {
		if done != nil {
			done()
		}
		return
	}
	fn(paired, done)
}

// payload is the on-disk shape of an accessory.
type payload struct {
	DisplayName string     `json:"displayName"`
	UUID        string     `json:"uuid"`
	Category    Category   `json:"category"`
	Services    []*Service `json:"services"`
}

// MarshalPayload encodes the accessory's identity and services as a flat
// JSON object.
func (a *Accessory) MarshalPayload() ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return json.Marshal(payload{
		DisplayName: a.displayName,
		UUID:        a.uuid,
		Category:    a.category,
		Services:    a.services,
	})
}

// Decode reconstructs an accessory from a payload produced by
// MarshalPayload.
func Decode(data []byte) (*Accessory, error) {
	var p payload
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidPayload, err)
	}
	if p.UUID == "" {
		return nil, fmt.Errorf("%w: missing uuid", ErrInvalidPayload)
	}
	a := &Accessory{
		displayName: p.DisplayName,
		uuid:        p.UUID,
		category:    p.Category,
		services:    p.Services,
	}
	if a.category == 0 {
		a.category = CategoryOther
	}
	if len(a.services) == 0 {
		info := NewService(ServiceAccessoryInformation, p.DisplayName)
		info.SetCharacteristic("name", p.DisplayName)
		a.services = []*Service{info}
	}
	return a, nil
}
