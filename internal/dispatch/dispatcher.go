package dispatch

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/nerrad567/watchkeeper/internal/infrastructure/mqtt"
	"github.com/nerrad567/watchkeeper/internal/safety"
)

// Status is the result of applying one action.
type Status string

const (
	StatusExecuted Status = "executed"
	StatusRejected Status = "rejected"
	StatusDeferred Status = "deferred"
	StatusSkipped  Status = "skipped" // dry run
)

// Command sources.
const (
	SourceSafety   = "safety_rules"
	SourceAdvisory = "advisory"
)

// SceneAtAnchor is the scene refused while the vessel is underway.
const SceneAtAnchor = "at_anchor"

// Logger defines the logging interface used by the Dispatcher.
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

// MQTTClient is the interface for publishing commands to the vessel.
type MQTTClient interface {
	Publish(topic string, payload []byte, qos byte, retained bool) error
}

// Authority reports how far automation may act on a vessel's devices and
// scenes. ok is false for IDs the vessel does not define.
type Authority interface {
	DeviceLevel(vesselID, deviceID string) (level safety.AIControl, ok bool)
	SceneLevel(vesselID, sceneID string) (level safety.AIControl, ok bool)
}

// Outcome records what happened to one action.
type Outcome struct {
	ActionID string `json:"action_id"`
	Status   Status `json:"status"`
	Detail   string `json:"detail,omitempty"`
}

// Command is the payload published on the command and scene topics.
type Command struct {
	ID          string        `json:"id"`
	VesselID    string        `json:"vessel_id"`
	DeviceID    string        `json:"device_id,omitempty"`
	SceneID     string        `json:"scene_id,omitempty"`
	TargetState *safety.Value `json:"target_state,omitempty"`
	Priority    string        `json:"priority"`
	Reason      string        `json:"reason,omitempty"`
	Source      string        `json:"source"`
	CycleID     string        `json:"cycle_id"`
	IssuedAt    time.Time     `json:"issued_at"`
}

// Dispatcher applies reconciled actions to a vessel.
//
// Each action passes the authorization table (not controllable, suggestion
// only, allowed), its only_if guards and, for scenes, the mode guard before
// a command is published. Actions are applied in order and one failure
// never stops the rest.
type Dispatcher struct {
	client MQTTClient
	auth   Authority
	qos    byte
	dryRun bool
	logger Logger
	now    func() time.Time
}

// NewDispatcher creates a dispatcher publishing with the given QoS.
func NewDispatcher(client MQTTClient, auth Authority, qos byte) *Dispatcher {
	return &Dispatcher{
		client: client,
		auth:   auth,
		qos:    qos,
		logger: noopLogger{},
		now:    time.Now,
	}
}

// SetLogger sets the logger for the dispatcher.
func (d *Dispatcher) SetLogger(logger Logger) {
	d.logger = logger
}

// SetDryRun makes the dispatcher evaluate actions without publishing.
func (d *Dispatcher) SetDryRun(dryRun bool) {
	d.dryRun = dryRun
}

// Apply authorizes and publishes actions for one cycle. guards is the
// snapshot only_if conditions are checked against; mode is the cycle's
// inferred mode. It returns one Outcome per action, in order.
func (d *Dispatcher) Apply(ctx context.Context, vesselID, cycleID string, guards safety.Snapshot, mode safety.Mode, actions []safety.Action) []Outcome {
	outcomes := make([]Outcome, 0, len(actions))
	for _, a := range actions {
		o := d.apply(ctx, vesselID, cycleID, guards, mode, a)
		if o.Status == StatusRejected {
			d.logger.Warn("action rejected", "vessel", vesselID, "action_id", o.ActionID, "detail", o.Detail)
		}
		outcomes = append(outcomes, o)
	}
	return outcomes
}

func (d *Dispatcher) apply(ctx context.Context, vesselID, cycleID string, guards safety.Snapshot, mode safety.Mode, a safety.Action) Outcome {
	meta := a.Info()
	out := Outcome{ActionID: meta.ID}

	switch act := a.(type) {
	case safety.NoOp:
		out.Status, out.Detail = StatusExecuted, "No-op acknowledged"
		return out

	case safety.SetDeviceState:
		level, ok := d.auth.DeviceLevel(vesselID, act.DeviceID)
		if status, detail, stop := authorize("device", act.DeviceID, level, ok, meta); stop {
			out.Status, out.Detail = status, detail
			return out
		}
		if _, ok := guards.Lookup(act.DeviceID); !ok {
			out.Status, out.Detail = StatusRejected, fmt.Sprintf("device %q not in snapshot", act.DeviceID)
			return out
		}
		if detail, ok := checkGuards(guards, act.OnlyIf); !ok {
			out.Status, out.Detail = StatusRejected, detail
			return out
		}
		target := act.Target
		cmd := d.command(vesselID, cycleID, meta)
		cmd.DeviceID, cmd.TargetState = act.DeviceID, &target
		return d.publish(ctx, out, mqtt.Topics{}.Command(vesselID, act.DeviceID), cmd)

	case safety.ActivateScene:
		level, ok := d.auth.SceneLevel(vesselID, act.SceneID)
		if status, detail, stop := authorize("scene", act.SceneID, level, ok, meta); stop {
			out.Status, out.Detail = status, detail
			return out
		}
		if mode == safety.ModeUnderway && act.SceneID == SceneAtAnchor {
			out.Status, out.Detail = StatusRejected, "refusing to switch to at_anchor while underway"
			return out
		}
		cmd := d.command(vesselID, cycleID, meta)
		cmd.SceneID = act.SceneID
		return d.publish(ctx, out, mqtt.Topics{}.Scene(vesselID, act.SceneID), cmd)
	}

	out.Status, out.Detail = StatusRejected, fmt.Sprintf("unsupported action type %q", a.Type())
	return out
}

// authorize applies the automation level. Safety rule actions are not
// deferred on suggestion-only devices; nothing acts on a level-none target.
func authorize(kind, id string, level safety.AIControl, known bool, meta safety.Meta) (Status, string, bool) {
	switch {
	case !known:
		return StatusRejected, fmt.Sprintf("%s %q not found", kind, id), true
	case level == safety.AIControlNone:
		return StatusRejected, fmt.Sprintf("%s %q is not automation-controllable", kind, id), true
	case level == safety.AIControlSuggest && !fromSafetyRules(meta):
		return StatusDeferred, fmt.Sprintf("%s %q is suggestion-only", kind, id), true
	}
	return "", "", false
}

// checkGuards evaluates only_if conditions in device ID order.
func checkGuards(snap safety.Snapshot, onlyIf map[string]safety.Value) (string, bool) {
	ids := make([]string, 0, len(onlyIf))
	for id := range onlyIf {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	for _, id := range ids {
		want := onlyIf[id]
		r, ok := snap.Lookup(id)
		if !ok || !r.State.Equal(want) {
			return fmt.Sprintf("condition failed: %s != %s", id, want), false
		}
	}
	return "", true
}

func fromSafetyRules(meta safety.Meta) bool {
	return strings.HasPrefix(meta.ID, safety.RuleIDPrefix)
}

func (d *Dispatcher) command(vesselID, cycleID string, meta safety.Meta) Command {
	source := SourceAdvisory
	if fromSafetyRules(meta) {
		source = SourceSafety
	}
	return Command{
		ID:       meta.ID,
		VesselID: vesselID,
		Priority: string(meta.Priority),
		Reason:   meta.Reason,
		Source:   source,
		CycleID:  cycleID,
		IssuedAt: d.now().UTC(),
	}
}

func (d *Dispatcher) publish(ctx context.Context, out Outcome, topic string, cmd Command) Outcome {
	if err := ctx.Err(); err != nil {
		out.Status, out.Detail = StatusRejected, fmt.Sprintf("cycle cancelled: %v", err)
		return out
	}
	if d.dryRun {
		out.Status, out.Detail = StatusSkipped, "dry run: "+topic
		return out
	}

	payload, err := json.Marshal(cmd)
	if err != nil {
		out.Status, out.Detail = StatusRejected, fmt.Sprintf("marshalling command: %v", err)
		return out
	}
	if err := d.client.Publish(topic, payload, d.qos, false); err != nil {
		out.Status, out.Detail = StatusRejected, fmt.Sprintf("publishing to %q: %v", topic, err)
		return out
	}

	d.logger.Debug("command published", "topic", topic, "action_id", cmd.ID, "source", cmd.Source)
	out.Status = StatusExecuted
	return out
}
