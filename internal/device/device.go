// Package device holds the model for discovered Bluetooth hardware and the
// name-based role classifier.
package device

// Transport identifies which Bluetooth backend a device was discovered on.
// It is fixed at discovery time and never re-evaluated.
type Transport int

const (
	TransportClassic Transport = iota
	TransportBLE
)

func (t Transport) String() string {
	switch t {
	case TransportClassic:
		return "classic"
	case TransportBLE:
		return "ble"
	default:
		return "unknown"
	}
}

// ParseTransport maps the persisted form back to a Transport.
func ParseTransport(s string) (Transport, bool) {
	switch s {
	case "classic":
		return TransportClassic, true
	case "ble":
		return TransportBLE, true
	default:
		return 0, false
	}
}

// Role is the classified purpose of a device, derived once from its
// advertised name.
type Role int

const (
	RoleUnknown Role = iota
	RolePrinter
	RoleScanner
)

func (r Role) String() string {
	switch r {
	case RolePrinter:
		return "printer"
	case RoleScanner:
		return "scanner"
	default:
		return "unknown"
	}
}

// ParseRole maps the persisted form back to a Role.
func ParseRole(s string) (Role, bool) {
	switch s {
	case "printer":
		return RolePrinter, true
	case "scanner":
		return RoleScanner, true
	case "unknown":
		return RoleUnknown, true
	default:
		return 0, false
	}
}

// Device is one discovered hardware unit. ID is unique within a discovery
// session: the paired-device address for classic, the advertisement
// identifier for BLE. Connected is mutated only by the connection manager.
type Device struct {
	ID        string
	Name      string
	Address   string
	Transport Transport
	Role      Role
	Connected bool

	// BLE-only, advisory.
	RSSI               int16
	AdvertisedServices []string
}
