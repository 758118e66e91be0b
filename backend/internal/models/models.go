package models

import "time"

// SensorType identifies one of the fixed sensor channels on the controller.
type SensorType string

const (
	SensorTemperature  SensorType = "temperature"
	SensorHumidity     SensorType = "humidity"
	SensorSoilMoisture SensorType = "soil_moisture"
	SensorWaterLevel   SensorType = "water_level"
	SensorLight        SensorType = "light"
)

func (s SensorType) Valid() bool {
	switch s {
	case SensorTemperature, SensorHumidity, SensorSoilMoisture, SensorWaterLevel, SensorLight:
		return true
	default:
		return false
	}
}

type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarning  Severity = "warning"
	SeverityCritical Severity = "critical"
)

func (s Severity) Valid() bool {
	switch s {
	case SeverityInfo, SeverityWarning, SeverityCritical:
		return true
	default:
		return false
	}
}

type AlertStatus string

const (
	AlertActive   AlertStatus = "active"
	AlertResolved AlertStatus = "resolved"
)

// AlertTypeConnectionLost is raised when the controller's last-will fires.
const AlertTypeConnectionLost = "connection_lost"

// DeviceAction is the logical action requested for a device. For servo-class
// devices ON is a transient run pulse, not a stored state.
type DeviceAction string

const (
	ActionOn   DeviceAction = "ON"
	ActionOff  DeviceAction = "OFF"
	ActionRun  DeviceAction = "RUN"
	ActionAuto DeviceAction = "AUTO"
)

func (a DeviceAction) Valid() bool {
	switch a {
	case ActionOn, ActionOff, ActionRun, ActionAuto:
		return true
	default:
		return false
	}
}

// Controller identifies who originated a device command.
type Controller string

const (
	ControlledByUser     Controller = "user"
	ControlledByAuto     Controller = "auto"
	ControlledBySchedule Controller = "schedule"
	ControlledByManual   Controller = "manual"
)

// Known device names on the controller.
const (
	DevicePump       = "pump"
	DeviceFan        = "fan"
	DeviceServoDoor  = "servo_door"
	DeviceServoFeed  = "servo_feed"
	DeviceLEDFarm    = "led_farm"
	DeviceLEDAnimal  = "led_animal"
	DeviceLEDHallway = "led_hallway"
)

// DeviceNames lists every device the controller knows.
func DeviceNames() []string {
	return []string{
		DevicePump, DeviceFan, DeviceServoDoor, DeviceServoFeed,
		DeviceLEDFarm, DeviceLEDAnimal, DeviceLEDHallway,
	}
}

// ValidDeviceName reports whether the controller knows this device.
func ValidDeviceName(name string) bool {
	switch name {
	case DevicePump, DeviceFan, DeviceServoDoor, DeviceServoFeed,
		DeviceLEDFarm, DeviceLEDAnimal, DeviceLEDHallway:
		return true
	default:
		return false
	}
}

// IsServoDevice reports whether a device uses the servo command vocabulary,
// where ON fires a transient RUN pulse instead of storing a new mode.
func IsServoDevice(name string) bool {
	return name == DeviceServoDoor || name == DeviceServoFeed
}

// IsFeederDevice marks the feeder servo, which repeat-fires inside its
// schedule window instead of acting on the window edges.
func IsFeederDevice(name string) bool {
	return name == DeviceServoFeed
}

type SensorReading struct {
	ID         string     `json:"id"`
	SensorType SensorType `json:"sensorType"`
	Value      float64    `json:"value"`
	Unit       string     `json:"unit"`
	CreatedAt  time.Time  `json:"createdAt"`
}

type Threshold struct {
	ID             string     `json:"id"`
	SensorType     SensorType `json:"sensorType"`
	ThresholdValue float64    `json:"thresholdValue"`
	Severity       Severity   `json:"severity"`
	IsActive       bool       `json:"isActive"`
	UpdatedBy      string     `json:"updatedBy,omitempty"`
	CreatedAt      time.Time  `json:"createdAt"`
	UpdatedAt      time.Time  `json:"updatedAt"`
}

type Alert struct {
	ID           string      `json:"id"`
	Type         string      `json:"type"`
	Severity     Severity    `json:"severity"`
	Title        string      `json:"title,omitempty"`
	Message      string      `json:"message"`
	Status       AlertStatus `json:"status"`
	AutoResolved bool        `json:"autoResolved"`
	ResolvedAt   *time.Time  `json:"resolvedAt,omitempty"`
	CreatedAt    time.Time   `json:"createdAt"`
}

// DeviceControl is one append-only entry in the device command history. The
// latest entry per device is its current logical state.
type DeviceControl struct {
	ID           string       `json:"id"`
	DeviceName   string       `json:"deviceName"`
	Status       DeviceAction `json:"status"`
	ControlledBy Controller   `json:"controlledBy"`
	Value        float64      `json:"value"`
	CreatedAt    time.Time    `json:"createdAt"`
}

type ESP32Status struct {
	DeviceID  string    `json:"deviceId"`
	Status    string    `json:"status"`
	LastSeen  time.Time `json:"lastSeen"`
	IPAddress string    `json:"ipAddress,omitempty"`
	UpdatedAt time.Time `json:"updatedAt"`
}

type Schedule struct {
	ID         string       `json:"id"`
	Name       string       `json:"name"`
	DeviceName string       `json:"deviceName"`
	Action     DeviceAction `json:"action"`
	StartTime  string       `json:"startTime"` // HH:mm
	EndTime    string       `json:"endTime"`   // HH:mm
	DaysOfWeek []int        `json:"daysOfWeek"`
	Enabled    bool         `json:"enabled"`
	CreatedAt  time.Time    `json:"createdAt"`
	UpdatedAt  time.Time    `json:"updatedAt"`
}

type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Phone        string    `json:"phone,omitempty"`
	Address      string    `json:"address,omitempty"`
	Role         string    `json:"role"`
	IsActive     bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
}

const (
	RoleAdmin = "admin"
	RoleUser  = "user"
)

type RefreshToken struct {
	Token     string    `json:"token"`
	UserID    string    `json:"userId"`
	ExpiresAt time.Time `json:"expiresAt"`
	CreatedAt time.Time `json:"createdAt"`
}

type ActivityLog struct {
	ID           string    `json:"id"`
	UserID       string    `json:"userId"`
	Action       string    `json:"action"`
	ResourceType string    `json:"resourceType,omitempty"`
	ResourceID   string    `json:"resourceId,omitempty"`
	Details      string    `json:"details,omitempty"`
	IPAddress    string    `json:"ipAddress,omitempty"`
	UserAgent    string    `json:"userAgent,omitempty"`
	Status       string    `json:"status"`
	ErrorMessage string    `json:"errorMessage,omitempty"`
	CreatedAt    time.Time `json:"createdAt"`
}
