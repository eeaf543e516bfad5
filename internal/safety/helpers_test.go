package safety

import (
	"fmt"
	"testing"
	"time"
)

// epoch is an arbitrary fixed cycle time.
var epoch = time.Date(2026, 7, 4, 3, 0, 0, 0, time.UTC)

// stubActionIDs replaces rule ID generation with a counter for the test.
func stubActionIDs(t *testing.T) {
	t.Helper()
	orig := newActionID
	n := 0
	newActionID = func(prefix string) string {
		n++
		return fmt.Sprintf("%s-%08d", prefix, n)
	}
	t.Cleanup(func() { newActionID = orig })
}

// reading builds an AI-allowed reading.
func reading(id string, state Value) Reading {
	return Reading{ID: id, State: state, AIControl: AIControlAllowed}
}

// vesselSnapshot builds a snapshot of the rule devices plus a cabin light.
func vesselSnapshot(floatHigh, pumpOn, navOn, anchorOn bool) Snapshot {
	return NewSnapshot([]Reading{
		reading("bilge_float_high", Bool(floatHigh)),
		reading("bilge_pump_auto_override", Bool(pumpOn)),
		reading("nav_lights", Bool(navOn)),
		reading("anchor_light", Bool(anchorOn)),
		reading("cabin_lights", Bool(false)),
	})
}

// withControl returns a copy of snap with one device's AI control changed.
func withControl(snap Snapshot, id string, c AIControl) Snapshot {
	rs := snap.Readings()
	for i := range rs {
		if rs[i].ID == id {
			rs[i].AIControl = c
		}
	}
	return NewSnapshot(rs)
}

func set(id, device string, target Value) SetDeviceState {
	return SetDeviceState{Meta: Meta{ID: id, Priority: PriorityInfo}, DeviceID: device, Target: target}
}

// findSet returns the first SetDeviceState for device in actions.
func findSet(actions []Action, device string) (SetDeviceState, bool) {
	for _, a := range actions {
		if s, ok := a.(SetDeviceState); ok && s.DeviceID == device {
			return s, true
		}
	}
	return SetDeviceState{}, false
}

func countSets(actions []Action, device string) int {
	n := 0
	for _, a := range actions {
		if s, ok := a.(SetDeviceState); ok && s.DeviceID == device {
			n++
		}
	}
	return n
}
