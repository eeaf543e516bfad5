package safety

import "time"

// State is the control state of one monitored vessel.
//
// It lives for the lifetime of the process, is mutated in place by
// Reconcile, and is never shared between vessels. The zero State is ready
// to use. Zero times mean "unset".
type State struct {
	// BilgePumpOnSince is when the override was first observed (or commanded) ON.
	BilgePumpOnSince time.Time

	// BilgeRestUntil blocks re-arming the override after a runtime-limit shutoff.
	BilgeRestUntil time.Time

	// BilgeForcedBySafety is true when the engine, not a human, last engaged
	// or rested the override.
	BilgeForcedBySafety bool

	// latches maps sensor device ID to hold-window expiry.
	latches map[string]time.Time
}

// NewState returns an empty State.
func NewState() *State {
	return &State{latches: make(map[string]time.Time)}
}

// Latch turns a noisy boolean reading into a sticky one.
//
// A true reading (re)arms the hold window and returns true. A false reading
// returns true while an armed window has not expired, and false once it has;
// expired entries are removed. A refresh never shortens an expiry, and a
// non-positive hold never creates an entry.
func (s *State) Latch(deviceID string, raw bool, hold time.Duration, now time.Time) bool {
	if s.latches == nil {
		s.latches = make(map[string]time.Time)
	}

	if raw {
		if hold > 0 {
			expiry := now.Add(hold)
			if cur, ok := s.latches[deviceID]; !ok || expiry.After(cur) {
				s.latches[deviceID] = expiry
			}
		}
		return true
	}

	expiry, ok := s.latches[deviceID]
	if !ok {
		return false
	}
	if now.Before(expiry) {
		return true
	}
	delete(s.latches, deviceID)
	return false
}

// LatchExpiry returns the hold-window expiry for a sensor, if one is armed.
func (s *State) LatchExpiry(deviceID string) (time.Time, bool) {
	expiry, ok := s.latches[deviceID]
	return expiry, ok
}

// Debounce returns snap with every sensor whose hold window is still open
// reading true. It does not arm, refresh or expire any window.
func (s *State) Debounce(snap Snapshot, now time.Time) Snapshot {
	if len(s.latches) == 0 {
		return snap
	}
	readings := snap.Readings()
	for i, r := range readings {
		if expiry, ok := s.latches[r.ID]; ok && now.Before(expiry) {
			readings[i].State = Bool(true)
		}
	}
	return NewSnapshot(readings)
}

// View is a read-only copy of State for telemetry and tests.
type View struct {
	BilgePumpOnSince    time.Time
	BilgeRestUntil      time.Time
	BilgeForcedBySafety bool
	Latches             map[string]time.Time
}

// View copies the current state.
func (s *State) View() View {
	v := View{
		BilgePumpOnSince:    s.BilgePumpOnSince,
		BilgeRestUntil:      s.BilgeRestUntil,
		BilgeForcedBySafety: s.BilgeForcedBySafety,
		Latches:             make(map[string]time.Time, len(s.latches)),
	}
	for id, exp := range s.latches {
		v.Latches[id] = exp
	}
	return v
}
