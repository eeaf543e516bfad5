package safety

// Authority identifies a component that may propose device state changes.
type Authority uint8

const (
	AuthorityAdvisory Authority = 1 << iota
	AuthorityBilgeController
	AuthorityNavigationEnforcer
)

// String returns the authority name used in logs and drop details.
func (a Authority) String() string {
	switch a {
	case AuthorityAdvisory:
		return "advisory"
	case AuthorityBilgeController:
		return "bilge_controller"
	case AuthorityNavigationEnforcer:
		return "navigation_enforcer"
	default:
		return "unknown"
	}
}

// Capabilities is the static ownership table: device ID to the set of
// authorities allowed to propose its state. Devices absent from the table
// are open to the advisory source only.
type Capabilities map[string]Authority

// NewCapabilities builds the table for the rule devices.
//
//   - bilge override: bilge controller only
//   - bilge float sensor: nobody (sensors are read-only)
//   - navigation and anchor lights: advisory (filtered) and the enforcer
func NewCapabilities(d Devices) Capabilities {
	return Capabilities{
		d.BilgeOverride:  AuthorityBilgeController,
		d.BilgeFloatHigh: 0,
		d.NavLights:      AuthorityAdvisory | AuthorityNavigationEnforcer,
		d.AnchorLight:    AuthorityAdvisory | AuthorityNavigationEnforcer,
	}
}

// MayPropose reports whether authority a may propose a state for deviceID.
func (c Capabilities) MayPropose(a Authority, deviceID string) bool {
	set, ok := c[deviceID]
	if !ok {
		return a == AuthorityAdvisory
	}
	return set&a != 0
}
