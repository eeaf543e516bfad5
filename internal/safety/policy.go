package safety

import (
	"fmt"
	"strings"
	"time"
)

// Default duty-cycle and debounce parameters.
//
// The duty cycle follows the backend's published AI control policy
// (max_on_duration 600s, min_off_cooldown 30s).
const (
	DefaultBilgeMaxRun = 600 * time.Second
	DefaultBilgeRest   = 30 * time.Second
	DefaultLatchHold   = 60 * time.Second
)

// Devices names the devices the safety rules act on.
type Devices struct {
	BilgeFloatHigh string
	BilgeOverride  string
	NavLights      string
	AnchorLight    string
}

// DefaultDevices returns the logical device IDs of the standard vessel profile.
func DefaultDevices() Devices {
	return Devices{
		BilgeFloatHigh: "bilge_float_high",
		BilgeOverride:  "bilge_pump_auto_override",
		NavLights:      "nav_lights",
		AnchorLight:    "anchor_light",
	}
}

// Policy is the authoritative, configurable rule set for one vessel.
type Policy struct {
	Devices Devices

	// BilgeMaxRun is the longest continuous override ON time.
	BilgeMaxRun time.Duration

	// BilgeRest is the mandatory OFF time after a runtime-limit shutoff.
	BilgeRest time.Duration

	// LatchHold is the default sensor hold window.
	LatchHold time.Duration

	// LatchHoldOverrides sets per-sensor hold windows.
	LatchHoldOverrides map[string]time.Duration
}

// DefaultPolicy returns the default policy.
func DefaultPolicy() Policy {
	return Policy{
		Devices:     DefaultDevices(),
		BilgeMaxRun: DefaultBilgeMaxRun,
		BilgeRest:   DefaultBilgeRest,
		LatchHold:   DefaultLatchHold,
	}
}

// HoldFor returns the hold window for a sensor.
func (p Policy) HoldFor(deviceID string) time.Duration {
	if d, ok := p.LatchHoldOverrides[deviceID]; ok {
		return d
	}
	return p.LatchHold
}

// Validate checks the policy for unusable values.
func (p Policy) Validate() error {
	var errs []string

	ids := map[string]string{
		"bilge_float_high": p.Devices.BilgeFloatHigh,
		"bilge_override":   p.Devices.BilgeOverride,
		"nav_lights":       p.Devices.NavLights,
		"anchor_light":     p.Devices.AnchorLight,
	}
	seen := make(map[string]string, len(ids))
	for _, role := range []string{"bilge_float_high", "bilge_override", "nav_lights", "anchor_light"} {
		id := ids[role]
		if id == "" {
			errs = append(errs, "devices."+role+" is required")
			continue
		}
		if other, dup := seen[id]; dup {
			errs = append(errs, fmt.Sprintf("devices.%s and devices.%s both name %q", other, role, id))
			continue
		}
		seen[id] = role
	}

	if p.BilgeMaxRun <= 0 {
		errs = append(errs, "bilge max run must be positive")
	}
	if p.BilgeRest <= 0 {
		errs = append(errs, "bilge rest must be positive")
	}
	if p.LatchHold < 0 {
		errs = append(errs, "latch hold must not be negative")
	}
	for id, d := range p.LatchHoldOverrides {
		if d < 0 {
			errs = append(errs, fmt.Sprintf("latch hold for %q must not be negative", id))
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidPolicy, strings.Join(errs, "; "))
	}
	return nil
}
