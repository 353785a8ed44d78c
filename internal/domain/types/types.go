package types

type ServiceMode string

// Ride Service - creates and cancels rides, pushes ride events to passengers
// Driver Service - accept/start/complete transitions and long-poll ride notifications for drivers
// Standalone - both of the above in a single process
const (
	RideService   ServiceMode = "ride-service"
	DriverService ServiceMode = "driver-service"
	Standalone    ServiceMode = "standalone"
)

func (m ServiceMode) String() string {
	return string(m)
}

// UserRole is the role carried in access token claims
type UserRole string

func (r UserRole) String() string {
	return string(r)
}

const (
	RolePassenger UserRole = "PASSENGER"
	RoleDriver    UserRole = "DRIVER"
	RoleAdmin     UserRole = "ADMIN"
)

// SwaggerInstance is the name the mode's API docs are registered under.
func (m ServiceMode) SwaggerInstance() string {
	switch m {
	case RideService:
		return "ride"
	case DriverService:
		return "driver"
	default:
		return "standalone"
	}
}
