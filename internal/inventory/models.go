package inventory

import "time"

// DeviceStatus represents the operational state of a racked device.
type DeviceStatus string

const (
	StatusActive      DeviceStatus = "active"
	StatusMaintenance DeviceStatus = "maintenance"
	StatusRetired     DeviceStatus = "retired"
)

var allStatuses = []DeviceStatus{
	StatusActive,
	StatusMaintenance,
	StatusRetired,
}

// ValidStatus reports whether value names a known device status.
func ValidStatus(value string) bool {
	for _, status := range allStatuses {
		if string(status) == value {
			return true
		}
	}
	return false
}

// Statuses returns the known device statuses in display order.
func Statuses() []DeviceStatus {
	out := make([]DeviceStatus, len(allStatuses))
	copy(out, allStatuses)
	return out
}

// Rack is a physical rack holding devices.
type Rack struct {
	ID        int64
	Name      string
	Location  string
	Units     int
	CreatedAt time.Time
}

// Device is a single piece of equipment mounted in a rack.
type Device struct {
	ID        int64
	UUID      string
	RackName  string
	Position  int
	Kind      string
	Name      string
	Status    DeviceStatus
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Summary aggregates inventory counts for status reporting.
type Summary struct {
	Racks    int
	Devices  int
	ByStatus map[DeviceStatus]int
}
