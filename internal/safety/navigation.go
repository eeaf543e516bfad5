package safety

import "fmt"

// Mode is the vessel operating mode inferred from the light devices.
type Mode string

const (
	ModeAnchor   Mode = "anchor"
	ModeUnderway Mode = "underway"
	ModeInPort   Mode = "in_port"
)

// InferMode derives the mode from the current snapshot only: underway when
// the navigation lights are on, else anchor when the anchor light is on,
// else in port. Proposed actions never influence it.
func InferMode(snap Snapshot, d Devices) Mode {
	if r, ok := snap.Lookup(d.NavLights); ok && r.State.IsOn() {
		return ModeUnderway
	}
	if r, ok := snap.Lookup(d.AnchorLight); ok && r.State.IsOn() {
		return ModeAnchor
	}
	return ModeInPort
}

// lightRule is one mandatory light state for a mode.
type lightRule struct {
	deviceID string
	on       bool
}

// mandatoryLights returns the required light states for a mode, in the
// order corrections are appended.
func mandatoryLights(mode Mode, d Devices) []lightRule {
	switch mode {
	case ModeAnchor:
		return []lightRule{{d.AnchorLight, true}, {d.NavLights, false}}
	case ModeUnderway:
		return []lightRule{{d.NavLights, true}, {d.AnchorLight, false}}
	default:
		return nil
	}
}

// forbidden reports whether mode prohibits driving deviceID to target.
func forbidden(mode Mode, d Devices, deviceID string, target Value) bool {
	switch mode {
	case ModeAnchor:
		return (deviceID == d.NavLights && target.IsOn()) ||
			(deviceID == d.AnchorLight && target.IsOff())
	case ModeUnderway:
		return deviceID == d.AnchorLight && target.IsOn()
	default:
		return false
	}
}

// enforceNavigation drops proposals the mode prohibits, then appends
// corrections for mandatory light states that do not currently hold.
//
// Devices outside AI control are never filtered or corrected, and no
// correction is proposed for a light caps does not grant the enforcer. A
// correction is skipped when a surviving action already drives the device
// to the required state.
func enforceNavigation(p Policy, caps Capabilities, snap Snapshot, mode Mode, actions []Action) ([]Action, []Drop) {
	d := p.Devices
	kept := make([]Action, 0, len(actions)+2)
	var dropped []Drop

	for _, a := range actions {
		set, ok := a.(SetDeviceState)
		if ok && (set.DeviceID == d.NavLights || set.DeviceID == d.AnchorLight) {
			r, known := snap.Lookup(set.DeviceID)
			if known && r.AIControl != AIControlNone && forbidden(mode, d, set.DeviceID, set.Target) {
				dropped = append(dropped, Drop{
					ActionID: set.ID,
					Action:   set,
					Reason:   DropColregs,
					Detail:   fmt.Sprintf("%s -> %s not permitted in mode %s", set.DeviceID, set.Target, mode),
				})
				continue
			}
		}
		kept = append(kept, a)
	}

	for _, rule := range mandatoryLights(mode, d) {
		r, known := snap.Lookup(rule.deviceID)
		if !known || r.AIControl == AIControlNone {
			continue
		}
		if !caps.MayPropose(AuthorityNavigationEnforcer, rule.deviceID) {
			continue
		}
		if r.State.IsOn() == rule.on {
			continue
		}
		target := Bool(rule.on)
		if proposes(kept, rule.deviceID, target) {
			continue
		}
		kept = append(kept, SetDeviceState{
			Meta: Meta{
				ID:       newActionID("rule-colregs"),
				Priority: PriorityHigh,
				Reason:   fmt.Sprintf("%s requires %s %s", mode, rule.deviceID, onOff(rule.on)),
			},
			DeviceID: rule.deviceID,
			Target:   target,
		})
	}

	return kept, dropped
}

func proposes(actions []Action, deviceID string, target Value) bool {
	for _, a := range actions {
		if set, ok := a.(SetDeviceState); ok && set.DeviceID == deviceID && set.Target.Equal(target) {
			return true
		}
	}
	return false
}

func onOff(on bool) string {
	if on {
		return "on"
	}
	return "off"
}
