package mqtt

import (
	"fmt"
	"strings"
)

// TopicPrefix is the root of every watchkeeper topic.
const TopicPrefix = "watchkeeper"

// Topics builds watchkeeper topic strings.
//
// The tree is organised per vessel:
//
//	watchkeeper/state/{vessel}/{device}     device state reported by the vessel (retained)
//	watchkeeper/advice/{vessel}             proposed actions from the advisory layer
//	watchkeeper/command/{vessel}/{device}   device commands issued after reconciliation
//	watchkeeper/scene/{vessel}/{scene}      scene activation requests
//	watchkeeper/cycle/{vessel}              last cycle summary (retained)
//	watchkeeper/system/status               service online/offline (retained, LWT)
type Topics struct{}

// State returns the state topic for one device.
//
// Example: watchkeeper/state/aurora/bilge_float_high
func (Topics) State(vesselID, deviceID string) string {
	return fmt.Sprintf("%s/state/%s/%s", TopicPrefix, vesselID, deviceID)
}

// VesselStates returns a pattern matching every device state on one vessel.
//
// Pattern: watchkeeper/state/aurora/+
func (Topics) VesselStates(vesselID string) string {
	return fmt.Sprintf("%s/state/%s/+", TopicPrefix, vesselID)
}

// Advice returns the advisory topic for a vessel.
//
// Example: watchkeeper/advice/aurora
func (Topics) Advice(vesselID string) string {
	return fmt.Sprintf("%s/advice/%s", TopicPrefix, vesselID)
}

// Command returns the command topic for one device.
//
// Example: watchkeeper/command/aurora/nav_lights
func (Topics) Command(vesselID, deviceID string) string {
	return fmt.Sprintf("%s/command/%s/%s", TopicPrefix, vesselID, deviceID)
}

// Scene returns the scene activation topic.
//
// Example: watchkeeper/scene/aurora/at_anchor
func (Topics) Scene(vesselID, sceneID string) string {
	return fmt.Sprintf("%s/scene/%s/%s", TopicPrefix, vesselID, sceneID)
}

// Cycle returns the retained cycle summary topic for a vessel.
//
// Example: watchkeeper/cycle/aurora
func (Topics) Cycle(vesselID string) string {
	return fmt.Sprintf("%s/cycle/%s", TopicPrefix, vesselID)
}

// SystemStatus returns the service status topic.
//
// Example: watchkeeper/system/status
func (Topics) SystemStatus() string {
	return TopicPrefix + "/system/status"
}

// ParseState splits a state topic into vessel and device IDs.
// It reports false for anything that is not a concrete state topic.
func (Topics) ParseState(topic string) (vesselID, deviceID string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 4 || parts[0] != TopicPrefix || parts[1] != "state" {
		return "", "", false
	}
	if parts[2] == "" || parts[3] == "" || isWildcard(parts[2]) || isWildcard(parts[3]) {
		return "", "", false
	}
	return parts[2], parts[3], true
}

// ParseAdvice extracts the vessel ID from an advice topic.
func (Topics) ParseAdvice(topic string) (vesselID string, ok bool) {
	parts := strings.Split(topic, "/")
	if len(parts) != 3 || parts[0] != TopicPrefix || parts[1] != "advice" {
		return "", false
	}
	if parts[2] == "" || isWildcard(parts[2]) {
		return "", false
	}
	return parts[2], true
}

func isWildcard(level string) bool {
	return level == "+" || level == "#"
}
