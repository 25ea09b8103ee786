package protocol

// Category classifies an accessory for pairing and UI purposes.
type Category int

// Accessory categories.
const (
	CategoryOther Category = iota + 1
	CategoryBridge
	CategoryFan
	CategoryGarageDoorOpener
	CategoryLightbulb
	CategoryDoorLock
	CategoryOutlet
	CategorySwitch
	CategoryThermostat
	CategorySensor
	CategorySecuritySystem
	CategoryDoor
	CategoryWindow
	CategoryWindowCovering
	CategoryProgrammableSwitch
	CategoryCamera
	CategoryAirPurifier
	CategoryTelevision
	CategorySpeaker
	CategorySprinkler
)

// String returns a string representation of the category.
func (c Category) String() string {
	switch c {
	case CategoryOther:
		return "other"
	case CategoryBridge:
		return "bridge"
	case CategoryFan:
		return "fan"
	case CategoryGarageDoorOpener:
		return "garage-door-opener"
	case CategoryLightbulb:
		return "lightbulb"
	case CategoryDoorLock:
		return "door-lock"
	case CategoryOutlet:
		return "outlet"
	case CategorySwitch:
		return "switch"
	case CategoryThermostat:
		return "thermostat"
	case CategorySensor:
		return "sensor"
	case CategorySecuritySystem:
		return "security-system"
	case CategoryDoor:
		return "door"
	case CategoryWindow:
		return "window"
	case CategoryWindowCovering:
		return "window-covering"
	case CategoryProgrammableSwitch:
		return "programmable-switch"
	case CategoryCamera:
		return "camera"
	case CategoryAirPurifier:
		return "air-purifier"
	case CategoryTelevision:
		return "television"
	case CategorySpeaker:
		return "speaker"
	case CategorySprinkler:
		return "sprinkler"
	default:
		return "unknown"
	}
}
