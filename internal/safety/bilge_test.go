package safety

import (
	"testing"
	"time"
)

func bilgeAction(t *testing.T, p Policy, st *State, snap Snapshot, now time.Time) (SetDeviceState, bool) {
	t.Helper()
	a, ok := evaluateBilge(p, NewCapabilities(p.Devices), st, snap, now)
	if !ok {
		return SetDeviceState{}, false
	}
	set, isSet := a.(SetDeviceState)
	if !isSet {
		t.Fatalf("bilge produced %T, want SetDeviceState", a)
	}
	if set.DeviceID != p.Devices.BilgeOverride {
		t.Fatalf("bilge targeted %q, want %q", set.DeviceID, p.Devices.BilgeOverride)
	}
	return set, true
}

func TestBilge_FloatClearNeverTurnsOn(t *testing.T) {
	stubActionIDs(t)
	p := DefaultPolicy()

	for _, pumpOn := range []bool{false, true} {
		for _, forced := range []bool{false, true} {
			st := NewState()
			st.BilgeForcedBySafety = forced
			st.BilgeRestUntil = epoch.Add(time.Minute)

			got, ok := bilgeAction(t, p, st, vesselSnapshot(false, pumpOn, false, false), epoch)

			if ok != pumpOn {
				t.Fatalf("pumpOn=%v forced=%v: action emitted = %v, want %v", pumpOn, forced, ok, pumpOn)
			}
			if ok && got.Target.IsOn() {
				t.Errorf("pumpOn=%v forced=%v: float clear turned pump ON", pumpOn, forced)
			}
			if !st.BilgePumpOnSince.IsZero() || !st.BilgeRestUntil.IsZero() || st.BilgeForcedBySafety {
				t.Errorf("pumpOn=%v forced=%v: state not reset: %+v", pumpOn, forced, st.View())
			}
		}
	}
}

func TestBilge_FloatClearedReasonRecordsAuthorship(t *testing.T) {
	stubActionIDs(t)
	p := DefaultPolicy()

	tests := []struct {
		name   string
		forced bool
		want   string
	}{
		{"manual engagement", false, ReasonFloatCleared},
		{"safety engagement", true, ReasonFloatClearedForced},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := NewState()
			st.BilgeForcedBySafety = tc.forced

			got, ok := bilgeAction(t, p, st, vesselSnapshot(false, true, false, false), epoch)
			if !ok {
				t.Fatal("no OFF action")
			}
			if got.Reason != tc.want {
				t.Errorf("Reason = %q, want %q", got.Reason, tc.want)
			}
			if got.Priority != PriorityCritical {
				t.Errorf("Priority = %q, want critical", got.Priority)
			}
			if len(got.OnlyIf) != 0 {
				t.Errorf("OFF carries guard %v", got.OnlyIf)
			}
		})
	}
}

func TestBilge_FloatActivePumpOffTurnsOnWithGuard(t *testing.T) {
	stubActionIDs(t)
	p := DefaultPolicy()
	st := NewState()

	got, ok := bilgeAction(t, p, st, vesselSnapshot(true, false, false, false), epoch)
	if !ok {
		t.Fatal("no ON action")
	}
	if !got.Target.IsOn() {
		t.Errorf("Target = %v, want true", got.Target)
	}
	if got.Reason != ReasonFloatActive {
		t.Errorf("Reason = %q", got.Reason)
	}
	if got.ID != "rule-bilge-00000001" {
		t.Errorf("ID = %q", got.ID)
	}
	guard, ok := got.OnlyIf["bilge_float_high"]
	if !ok || !guard.IsOn() {
		t.Errorf("OnlyIf = %v, want bilge_float_high=true", got.OnlyIf)
	}
	if !st.BilgePumpOnSince.Equal(epoch) || !st.BilgeForcedBySafety {
		t.Errorf("state after ON = %+v", st.View())
	}
}

func TestBilge_RuntimeLimitAndRest(t *testing.T) {
	stubActionIDs(t)
	p := DefaultPolicy()
	st := NewState()

	// Pump observed running from epoch.
	if _, ok := bilgeAction(t, p, st, vesselSnapshot(true, true, false, false), epoch); ok {
		t.Fatal("steady running produced an action")
	}
	if !st.BilgePumpOnSince.Equal(epoch) {
		t.Fatalf("BilgePumpOnSince = %v, want %v", st.BilgePumpOnSince, epoch)
	}

	if _, ok := bilgeAction(t, p, st, vesselSnapshot(true, true, false, false), epoch.Add(p.BilgeMaxRun-time.Second)); ok {
		t.Fatal("action before max run")
	}

	limit := epoch.Add(p.BilgeMaxRun)
	got, ok := bilgeAction(t, p, st, vesselSnapshot(true, true, false, false), limit)
	if !ok || got.Target.IsOn() || got.Reason != ReasonRuntimeLimit {
		t.Fatalf("at max run got (%+v, %v), want runtime limit OFF", got, ok)
	}
	if !st.BilgeRestUntil.Equal(limit.Add(p.BilgeRest)) {
		t.Errorf("BilgeRestUntil = %v, want %v", st.BilgeRestUntil, limit.Add(p.BilgeRest))
	}

	// Every cycle inside the rest window stays quiet.
	for off := time.Second; off < p.BilgeRest; off += 5 * time.Second {
		if a, ok := bilgeAction(t, p, st, vesselSnapshot(true, false, false, false), limit.Add(off)); ok {
			t.Fatalf("action %+v during rest at +%v", a, off)
		}
	}
	if _, ok := bilgeAction(t, p, st, vesselSnapshot(true, false, false, false), limit.Add(p.BilgeRest-time.Second)); ok {
		t.Fatal("action at T+rest-1s")
	}

	got, ok = bilgeAction(t, p, st, vesselSnapshot(true, false, false, false), limit.Add(p.BilgeRest+time.Second))
	if !ok || !got.Target.IsOn() {
		t.Fatalf("at T+rest+1s got (%+v, %v), want ON", got, ok)
	}
}

func TestBilge_PumpOnDuringRestIsTurnedOff(t *testing.T) {
	stubActionIDs(t)
	p := DefaultPolicy()
	st := NewState()
	st.BilgeRestUntil = epoch.Add(10 * time.Second)

	got, ok := bilgeAction(t, p, st, vesselSnapshot(true, true, false, false), epoch)
	if !ok || got.Target.IsOn() || got.Reason != ReasonRestWindow {
		t.Fatalf("got (%+v, %v), want rest window OFF", got, ok)
	}
	if !st.BilgePumpOnSince.IsZero() {
		t.Error("BilgePumpOnSince kept during rest")
	}
}

func TestBilge_OnSinceRederivedFromSnapshot(t *testing.T) {
	p := DefaultPolicy()
	st := NewState()
	st.BilgePumpOnSince = epoch.Add(-time.Hour)

	// A stale timestamp is dropped when the pump is observed off, even while
	// the override is outside AI control.
	snap := withControl(vesselSnapshot(false, false, false, false), "bilge_pump_auto_override", AIControlNone)
	evaluateBilge(p, NewCapabilities(p.Devices), st, snap, epoch)

	if !st.BilgePumpOnSince.IsZero() {
		t.Errorf("BilgePumpOnSince = %v, want zero", st.BilgePumpOnSince)
	}
}

func TestBilge_LatchedFloatKeepsPumpRunning(t *testing.T) {
	stubActionIDs(t)
	p := DefaultPolicy()
	st := NewState()

	bilgeAction(t, p, st, vesselSnapshot(true, true, false, false), epoch)

	// Float bounces low within the hold window: no OFF.
	if a, ok := bilgeAction(t, p, st, vesselSnapshot(false, true, false, false), epoch.Add(10*time.Second)); ok {
		t.Fatalf("bounce produced %+v", a)
	}

	got, ok := bilgeAction(t, p, st, vesselSnapshot(false, true, false, false), epoch.Add(p.LatchHold))
	if !ok || got.Target.IsOn() {
		t.Fatalf("after hold got (%+v, %v), want OFF", got, ok)
	}
}

func TestBilge_NoActionWithoutControl(t *testing.T) {
	stubActionIDs(t)
	p := DefaultPolicy()

	full := vesselSnapshot(true, false, false, false)
	tests := []struct {
		name string
		snap Snapshot
	}{
		{"override outside AI control", withControl(full, "bilge_pump_auto_override", AIControlNone)},
		{"override missing", NewSnapshot([]Reading{reading("bilge_float_high", Bool(true))})},
		{"float missing", NewSnapshot([]Reading{reading("bilge_pump_auto_override", Bool(false))})},
		{"empty snapshot", NewSnapshot(nil)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			st := NewState()
			if a, ok := evaluateBilge(p, NewCapabilities(p.Devices), st, tc.snap, epoch); ok {
				t.Errorf("got %+v, want no action", a)
			}
		})
	}
}

func TestBilge_NonBooleanFloatIsNotActive(t *testing.T) {
	stubActionIDs(t)
	p := DefaultPolicy()
	st := NewState()

	snap := NewSnapshot([]Reading{
		reading("bilge_float_high", String("true")),
		reading("bilge_pump_auto_override", Bool(false)),
	})
	if a, ok := evaluateBilge(p, NewCapabilities(p.Devices), st, snap, epoch); ok {
		t.Errorf("string float state produced %+v", a)
	}
}
