package protocol

// ServiceType identifies a kind of service an accessory exposes.
type ServiceType string

// Well-known service types.
const (
	ServiceAccessoryInformation ServiceType = "accessory-information"
	ServiceLightbulb            ServiceType = "lightbulb"
	ServiceSwitch               ServiceType = "switch"
	ServiceOutlet               ServiceType = "outlet"
	ServiceFan                  ServiceType = "fan"
	ServiceThermostat           ServiceType = "thermostat"
	ServiceTemperatureSensor    ServiceType = "temperature-sensor"
	ServiceHumiditySensor       ServiceType = "humidity-sensor"
	ServiceMotionSensor         ServiceType = "motion-sensor"
	ServiceContactSensor        ServiceType = "contact-sensor"
	ServiceDoorLock             ServiceType = "door-lock"
	ServiceWindowCovering       ServiceType = "window-covering"
	ServiceTelevision           ServiceType = "television"
)

// Service is one functional unit of an accessory. Services with the same
// type are distinguished by subtype.
type Service struct {
	Type            ServiceType    `json:"type"`
	Subtype         string         `json:"subtype,omitempty"`
	Name            string         `json:"name"`
	Characteristics map[string]any `json:"characteristics,omitempty"`
}

// NewService creates a service of the given type.
func NewService(typ ServiceType, name string) *Service {
	return &Service{
		Type:            typ,
		Name:            name,
		Characteristics: make(map[string]any),
	}
}

// WithSubtype sets the service subtype and returns the service.
func (s *Service) WithSubtype(subtype string) *Service {
	s.Subtype = subtype
	return s
}

// SetCharacteristic stores a characteristic value on the service.
func (s *Service) SetCharacteristic(name string, value any) {
	if s.Characteristics == nil {
		s.Characteristics = make(map[string]any)
	}
	s.Characteristics[name] = value
}

// Characteristic returns a characteristic value and whether it is set.
func (s *Service) Characteristic(name string) (any, bool) {
	v, ok := s.Characteristics[name]
	return v, ok
}
