package safety

import (
	"testing"
	"time"
)

func TestLatch_HoldWindow(t *testing.T) {
	st := NewState()
	hold := 60 * time.Second

	if !st.Latch("float", true, hold, epoch) {
		t.Fatal("Latch(true) = false, want true")
	}

	for _, offset := range []time.Duration{0, time.Second, 30 * time.Second, hold - time.Nanosecond} {
		if !st.Latch("float", false, hold, epoch.Add(offset)) {
			t.Errorf("Latch(false) at T+%v = false, want true", offset)
		}
	}

	if st.Latch("float", false, hold, epoch.Add(hold)) {
		t.Error("Latch(false) at T+hold = true, want false")
	}
	if _, ok := st.LatchExpiry("float"); ok {
		t.Error("expired latch entry was not removed")
	}
	if st.Latch("float", false, hold, epoch.Add(2*hold)) {
		t.Error("Latch(false) after expiry = true, want false")
	}
}

func TestLatch_RefreshNeverShortens(t *testing.T) {
	st := NewState()

	st.Latch("float", true, 60*time.Second, epoch)
	st.Latch("float", true, 5*time.Second, epoch.Add(10*time.Second))

	got, ok := st.LatchExpiry("float")
	if !ok {
		t.Fatal("latch entry missing")
	}
	if want := epoch.Add(60 * time.Second); !got.Equal(want) {
		t.Errorf("expiry = %v, want %v", got, want)
	}

	st.Latch("float", true, 60*time.Second, epoch.Add(30*time.Second))
	got, _ = st.LatchExpiry("float")
	if want := epoch.Add(90 * time.Second); !got.Equal(want) {
		t.Errorf("refreshed expiry = %v, want %v", got, want)
	}
}

func TestLatch_NonPositiveHold(t *testing.T) {
	st := NewState()

	if !st.Latch("float", true, 0, epoch) {
		t.Error("Latch(true, hold=0) = false, want true")
	}
	if _, ok := st.LatchExpiry("float"); ok {
		t.Error("hold=0 created a latch entry")
	}
	if st.Latch("float", false, 0, epoch) {
		t.Error("Latch(false) with no entry = true, want false")
	}
}

func TestLatch_IndependentSensors(t *testing.T) {
	st := NewState()
	st.Latch("a", true, time.Minute, epoch)

	if st.Latch("b", false, time.Minute, epoch.Add(time.Second)) {
		t.Error("sensor b latched by sensor a's reading")
	}
	if !st.Latch("a", false, time.Minute, epoch.Add(time.Second)) {
		t.Error("sensor a lost its latch")
	}
}

func TestState_ZeroValueUsable(t *testing.T) {
	var st State
	if !st.Latch("float", true, time.Minute, epoch) {
		t.Fatal("zero State Latch(true) = false")
	}
	if !st.Latch("float", false, time.Minute, epoch.Add(time.Second)) {
		t.Error("zero State did not keep latch")
	}
}

func TestState_ViewIsCopy(t *testing.T) {
	st := NewState()
	st.Latch("float", true, time.Minute, epoch)
	st.BilgeForcedBySafety = true

	v := st.View()
	v.Latches["float"] = time.Time{}
	delete(v.Latches, "float")

	if _, ok := st.LatchExpiry("float"); !ok {
		t.Error("mutating the view changed the state")
	}
	if !v.BilgeForcedBySafety {
		t.Error("view missing BilgeForcedBySafety")
	}
}

func TestState_Debounce(t *testing.T) {
	st := NewState()
	hold := 60 * time.Second
	st.Latch("bilge_float_high", true, hold, epoch)

	raw := vesselSnapshot(false, false, false, false)

	got := st.Debounce(raw, epoch.Add(30*time.Second))
	if r, _ := got.Lookup("bilge_float_high"); !r.State.IsOn() {
		t.Errorf("latched float = %v, want on", r.State)
	}
	if r, _ := got.Lookup("nav_lights"); !r.State.IsOff() {
		t.Errorf("unlatched device changed: %v", r.State)
	}
	if r, _ := raw.Lookup("bilge_float_high"); !r.State.IsOff() {
		t.Error("Debounce mutated the input snapshot")
	}

	got = st.Debounce(raw, epoch.Add(hold))
	if r, _ := got.Lookup("bilge_float_high"); !r.State.IsOff() {
		t.Errorf("expired window still applied: %v", r.State)
	}
	if _, ok := st.LatchExpiry("bilge_float_high"); !ok {
		t.Error("Debounce expired a window")
	}
}
