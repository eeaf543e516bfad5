package safety

import (
	"time"

	"github.com/google/uuid"
)

// Bilge action reasons.
const (
	ReasonFloatCleared       = "float cleared"
	ReasonFloatClearedForced = "float cleared, releasing safety engagement"
	ReasonRuntimeLimit       = "runtime limit"
	ReasonFloatActive        = "float active, pump off"
)

// ReasonRestWindow switches the pump off while the rest window runs. It
// also overrides a manual engagement made during rest.
const ReasonRestWindow = "rest window active"

// newActionID generates rule action IDs of the form <prefix>-<8 hex>.
// Tests replace it for stable output.
var newActionID = func(prefix string) string {
	return prefix + "-" + uuid.NewString()[:8]
}

// evaluateBilge runs one cycle of the bilge duty-cycle state machine.
//
// It always refreshes the float latch and re-derives BilgePumpOnSince from
// the snapshot, then applies the first matching transition:
//
//	float clear,  pump on                  -> OFF, reset timers and authorship
//	float clear,  pump off                 -> reset timers and authorship
//	float active, pump on,  resting        -> OFF (rest not honoured)
//	float active, pump on,  run >= max     -> OFF, start rest window
//	float active, pump on,  run < max      -> nothing (running)
//	float active, pump off, resting        -> nothing (wait)
//	float active, pump off, not resting    -> ON guarded by the float
//
// When either device is missing, the override is outside AI control, or
// caps does not grant the bilge controller the override, no action is
// produced.
func evaluateBilge(p Policy, caps Capabilities, st *State, snap Snapshot, now time.Time) (Action, bool) {
	floatID := p.Devices.BilgeFloatHigh
	overrideID := p.Devices.BilgeOverride

	float, floatOK := snap.Lookup(floatID)
	override, overrideOK := snap.Lookup(overrideID)

	latched := st.Latch(floatID, floatOK && float.State.IsOn(), p.HoldFor(floatID), now)
	pumpOn := overrideOK && override.State.IsOn()

	if pumpOn {
		if st.BilgePumpOnSince.IsZero() {
			st.BilgePumpOnSince = now
		}
	} else {
		st.BilgePumpOnSince = time.Time{}
	}

	if !floatOK || !overrideOK || override.AIControl == AIControlNone {
		return nil, false
	}
	if !caps.MayPropose(AuthorityBilgeController, overrideID) {
		return nil, false
	}

	if !latched {
		forced := st.BilgeForcedBySafety
		st.BilgePumpOnSince = time.Time{}
		st.BilgeRestUntil = time.Time{}
		st.BilgeForcedBySafety = false
		if !pumpOn {
			return nil, false
		}
		reason := ReasonFloatCleared
		if forced {
			reason = ReasonFloatClearedForced
		}
		return bilgeCommand(overrideID, false, reason, nil), true
	}

	resting := now.Before(st.BilgeRestUntil)

	if pumpOn {
		if resting {
			st.BilgePumpOnSince = time.Time{}
			st.BilgeForcedBySafety = true
			return bilgeCommand(overrideID, false, ReasonRestWindow, nil), true
		}
		if now.Sub(st.BilgePumpOnSince) >= p.BilgeMaxRun {
			st.BilgePumpOnSince = time.Time{}
			st.BilgeRestUntil = now.Add(p.BilgeRest)
			st.BilgeForcedBySafety = true
			return bilgeCommand(overrideID, false, ReasonRuntimeLimit, nil), true
		}
		return nil, false
	}

	if resting {
		return nil, false
	}

	st.BilgePumpOnSince = now
	st.BilgeRestUntil = time.Time{}
	st.BilgeForcedBySafety = true
	return bilgeCommand(overrideID, true, ReasonFloatActive, map[string]Value{floatID: Bool(true)}), true
}

func bilgeCommand(deviceID string, on bool, reason string, onlyIf map[string]Value) SetDeviceState {
	return SetDeviceState{
		Meta: Meta{
			ID:       newActionID("rule-bilge"),
			Priority: PriorityCritical,
			Reason:   reason,
		},
		DeviceID: deviceID,
		Target:   Bool(on),
		OnlyIf:   onlyIf,
	}
}
