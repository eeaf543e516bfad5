package vessel

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/nerrad567/watchkeeper/internal/infrastructure/mqtt"
	"github.com/nerrad567/watchkeeper/internal/safety"
)

// Logger defines the logging interface used by the Tracker.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// Subscriber is the part of the MQTT client the tracker needs.
type Subscriber interface {
	Subscribe(topic string, qos byte, handler mqtt.MessageHandler) error
}

// Tracker caches the last reported state of every device on every
// registered vessel and serves snapshots from it. Devices that have never
// reported, or whose last report is older than the stale window, appear in
// snapshots with a null state.
//
// All methods are safe for concurrent use.
type Tracker struct {
	mu         sync.RWMutex
	vessels    map[string]*tracked
	staleAfter time.Duration
	logger     Logger
	now        func() time.Time
}

type tracked struct {
	profile *Profile
	states  map[string]observation
}

type observation struct {
	value safety.Value
	at    time.Time
}

// NewTracker creates an empty tracker.
func NewTracker() *Tracker {
	return &Tracker{
		vessels: make(map[string]*tracked),
		logger:  noopLogger{},
		now:     time.Now,
	}
}

// SetLogger sets the logger for the tracker.
func (t *Tracker) SetLogger(logger Logger) {
	t.logger = logger
}

// SetStaleAfter sets how long a report stays valid. A non-positive window
// keeps reports until they are replaced.
func (t *Tracker) SetStaleAfter(d time.Duration) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.staleAfter = d
}

// AddVessel registers a vessel with its profile.
func (t *Tracker) AddVessel(vesselID string, profile *Profile) error {
	if vesselID == "" || profile == nil {
		return fmt.Errorf("%w: vessel id and profile are required", ErrUnknownVessel)
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.vessels[vesselID]; ok {
		return fmt.Errorf("%w: %s", ErrVesselExists, vesselID)
	}
	t.vessels[vesselID] = &tracked{
		profile: profile,
		states:  make(map[string]observation, len(profile.Devices)),
	}
	return nil
}

// Vessels returns the registered vessel IDs in sorted order.
func (t *Tracker) Vessels() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	ids := make([]string, 0, len(t.vessels))
	for id := range t.vessels {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Profile returns the profile a vessel was registered with.
func (t *Tracker) Profile(vesselID string) (*Profile, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.vessels[vesselID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownVessel, vesselID)
	}
	return v.profile, nil
}

// Subscribe listens for state reports of every registered vessel.
func (t *Tracker) Subscribe(sub Subscriber, qos byte) error {
	for _, id := range t.Vessels() {
		if err := sub.Subscribe(mqtt.Topics{}.VesselStates(id), qos, t.HandleState); err != nil {
			return fmt.Errorf("subscribing to %s state: %w", id, err)
		}
	}
	return nil
}

// HandleState is the MQTT handler for watchkeeper/state/{vessel}/{device}.
//
// The payload is {"state": <scalar>} or a bare JSON scalar. An empty
// payload (a cleared retained message) resets the device to unknown.
func (t *Tracker) HandleState(topic string, payload []byte) error {
	vesselID, deviceID, ok := mqtt.Topics{}.ParseState(topic)
	if !ok {
		return fmt.Errorf("%w: unexpected topic %q", ErrInvalidState, topic)
	}
	v, err := decodeState(payload)
	if err != nil {
		return fmt.Errorf("%s/%s: %w", vesselID, deviceID, err)
	}
	return t.Update(vesselID, deviceID, v)
}

// decodeState parses a state payload.
func decodeState(payload []byte) (safety.Value, error) {
	payload = bytes.TrimSpace(payload)
	if len(payload) == 0 {
		return safety.Null(), nil
	}

	raw := json.RawMessage(payload)
	if payload[0] == '{' {
		var envelope struct {
			State json.RawMessage `json:"state"`
		}
		if err := json.Unmarshal(payload, &envelope); err != nil {
			return safety.Null(), fmt.Errorf("%w: %w", ErrInvalidState, err)
		}
		if envelope.State == nil {
			return safety.Null(), fmt.Errorf("%w: missing \"state\"", ErrInvalidState)
		}
		raw = envelope.State
	}

	var v safety.Value
	if err := v.UnmarshalJSON(raw); err != nil {
		return safety.Null(), fmt.Errorf("%w: %w", ErrInvalidState, err)
	}
	return v, nil
}

// Update records a device state.
func (t *Tracker) Update(vesselID, deviceID string, v safety.Value) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	vs, ok := t.vessels[vesselID]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownVessel, vesselID)
	}
	if !vs.profile.hasDevice(deviceID) {
		return fmt.Errorf("%w: %s/%s", ErrUnknownDevice, vesselID, deviceID)
	}

	prev, seen := vs.states[deviceID]
	vs.states[deviceID] = observation{value: v, at: t.now()}
	if !seen || !prev.value.Equal(v) {
		t.logger.Debug("device state changed", "vessel", vesselID, "device", deviceID, "state", v.String())
	}
	return nil
}

// Snapshot returns the current readings for a vessel in profile order.
func (t *Tracker) Snapshot(ctx context.Context, vesselID string) (safety.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return safety.Snapshot{}, err
	}

	t.mu.RLock()
	defer t.mu.RUnlock()

	vs, ok := t.vessels[vesselID]
	if !ok {
		return safety.Snapshot{}, fmt.Errorf("%w: %s", ErrUnknownVessel, vesselID)
	}

	now := t.now()
	readings := make([]safety.Reading, 0, len(vs.profile.Devices))
	for _, d := range vs.profile.Devices {
		obs, seen := vs.states[d.ID]
		state := obs.value
		if seen && t.stale(obs, now) {
			t.logger.Debug("device state stale", "vessel", vesselID, "device", d.ID, "reported_at", obs.at)
			state = safety.Null()
		}
		readings = append(readings, safety.Reading{
			ID:        d.ID,
			State:     state,
			AIControl: d.AIControl,
		})
	}
	return safety.NewSnapshot(readings), nil
}

// stale reports whether obs is past the stale window. Callers hold t.mu.
func (t *Tracker) stale(obs observation, now time.Time) bool {
	return t.staleAfter > 0 && now.Sub(obs.at) > t.staleAfter
}

// DeviceLevel returns the automation level of a device.
func (t *Tracker) DeviceLevel(vesselID, deviceID string) (safety.AIControl, bool) {
	p, err := t.Profile(vesselID)
	if err != nil {
		return safety.AIControlNone, false
	}
	d, ok := p.Device(deviceID)
	return d.AIControl, ok
}

// SceneLevel returns the automation level of a scene.
func (t *Tracker) SceneLevel(vesselID, sceneID string) (safety.AIControl, bool) {
	p, err := t.Profile(vesselID)
	if err != nil {
		return safety.AIControlNone, false
	}
	s, ok := p.Scene(sceneID)
	return s.AIControl, ok
}
