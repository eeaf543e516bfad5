package safety

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// ActionType is the wire discriminator of an Action.
type ActionType string

const (
	TypeSetDeviceState ActionType = "set_device_state"
	TypeActivateScene  ActionType = "activate_scene"
	TypeNoOp           ActionType = "no_op"
)

// Priority ranks an action for the command applier and the audit trail.
type Priority string

const (
	PriorityInfo     Priority = "info"
	PriorityHigh     Priority = "high"
	PriorityCritical Priority = "critical"
)

// ParsePriority maps a wire priority onto the closed set.
// Empty, "normal" and "low" map to info.
func ParsePriority(s string) (Priority, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "info", "normal", "low":
		return PriorityInfo, nil
	case "high", "warning":
		return PriorityHigh, nil
	case "critical":
		return PriorityCritical, nil
	default:
		return "", fmt.Errorf("%w: priority %q", ErrMalformedAction, s)
	}
}

// Meta holds the fields every action variant carries.
type Meta struct {
	ID       string
	Priority Priority
	Reason   string
}

// Action is a sealed union over SetDeviceState, ActivateScene and NoOp.
// Only this package can add variants.
type Action interface {
	Type() ActionType
	Info() Meta
	sealed()
}

// SetDeviceState asks for one device to be driven to Target.
// OnlyIf lists device states that must still hold when the action executes.
type SetDeviceState struct {
	Meta
	DeviceID string
	Target   Value
	OnlyIf   map[string]Value
}

// ActivateScene asks for a named scene to be activated.
type ActivateScene struct {
	Meta
	SceneID string
}

// NoOp records that no action is required.
type NoOp struct {
	Meta
}

func (SetDeviceState) Type() ActionType { return TypeSetDeviceState }
func (ActivateScene) Type() ActionType  { return TypeActivateScene }
func (NoOp) Type() ActionType           { return TypeNoOp }

func (a SetDeviceState) Info() Meta { return a.Meta }
func (a ActivateScene) Info() Meta  { return a.Meta }
func (a NoOp) Info() Meta           { return a.Meta }

func (SetDeviceState) sealed() {}
func (ActivateScene) sealed()  {}
func (NoOp) sealed()           {}

// Constraints is the wire form of action guards.
type Constraints struct {
	OnlyIf map[string]Value `json:"only_if,omitempty"`
}

// UnmarshalJSON accepts both {"only_if": {id: v}} and the nested
// {"only_if": {"device_state_equals": {id: v}}} shape.
func (c *Constraints) UnmarshalJSON(data []byte) error {
	var raw struct {
		OnlyIf json.RawMessage `json:"only_if"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("%w: constraints: %v", ErrMalformedAction, err)
	}
	c.OnlyIf = nil

	body := bytes.TrimSpace(raw.OnlyIf)
	if len(body) == 0 || bytes.Equal(body, []byte("null")) {
		return nil
	}

	var nested struct {
		Equals map[string]Value `json:"device_state_equals"`
	}
	var keys map[string]json.RawMessage
	if err := json.Unmarshal(body, &keys); err != nil {
		return fmt.Errorf("%w: only_if: %v", ErrMalformedAction, err)
	}
	if _, ok := keys["device_state_equals"]; ok && len(keys) == 1 {
		if err := json.Unmarshal(body, &nested); err != nil {
			return fmt.Errorf("%w: only_if: %v", ErrMalformedAction, err)
		}
		c.OnlyIf = nested.Equals
		return nil
	}

	var flat map[string]Value
	if err := json.Unmarshal(body, &flat); err != nil {
		return fmt.Errorf("%w: only_if: %v", ErrMalformedAction, err)
	}
	c.OnlyIf = flat
	return nil
}

// Wire is the JSON representation of an action shared with the advisory
// source, the command applier and the audit trail.
type Wire struct {
	ActionID    string       `json:"action_id"`
	Type        ActionType   `json:"type"`
	DeviceID    string       `json:"device_id,omitempty"`
	SceneID     string       `json:"scene_id,omitempty"`
	TargetState *Value       `json:"target_state,omitempty"`
	Priority    string       `json:"priority,omitempty"`
	Constraints *Constraints `json:"constraints,omitempty"`
	Reason      string       `json:"reason,omitempty"`
}

// ToWire converts an action to its wire form. A nil action yields a zero Wire.
func ToWire(a Action) Wire {
	switch t := a.(type) {
	case SetDeviceState:
		target := t.Target
		w := Wire{
			ActionID:    t.ID,
			Type:        TypeSetDeviceState,
			DeviceID:    t.DeviceID,
			TargetState: &target,
			Priority:    string(t.Priority),
			Reason:      t.Reason,
		}
		if len(t.OnlyIf) > 0 {
			w.Constraints = &Constraints{OnlyIf: cloneGuards(t.OnlyIf)}
		}
		return w
	case ActivateScene:
		return Wire{
			ActionID: t.ID,
			Type:     TypeActivateScene,
			SceneID:  t.SceneID,
			Priority: string(t.Priority),
			Reason:   t.Reason,
		}
	case NoOp:
		return Wire{
			ActionID: t.ID,
			Type:     TypeNoOp,
			Priority: string(t.Priority),
			Reason:   t.Reason,
		}
	default:
		return Wire{}
	}
}

// ToWireList converts a list of actions to wire form.
func ToWireList(actions []Action) []Wire {
	out := make([]Wire, 0, len(actions))
	for _, a := range actions {
		out = append(out, ToWire(a))
	}
	return out
}

// Action converts a decoded wire action into the closed union.
// Shape checks that need no snapshot happen here; the rest happens at
// pipeline intake.
func (w Wire) Action() (Action, error) {
	prio, err := ParsePriority(w.Priority)
	if err != nil {
		return nil, err
	}
	meta := Meta{ID: w.ActionID, Priority: prio, Reason: w.Reason}

	switch ActionType(strings.ToLower(string(w.Type))) {
	case TypeSetDeviceState:
		if w.DeviceID == "" {
			return nil, fmt.Errorf("%w: set_device_state without device_id", ErrMalformedAction)
		}
		if w.TargetState == nil || w.TargetState.IsNull() {
			return nil, fmt.Errorf("%w: set_device_state without target_state", ErrMalformedAction)
		}
		a := SetDeviceState{Meta: meta, DeviceID: w.DeviceID, Target: *w.TargetState}
		if w.Constraints != nil && len(w.Constraints.OnlyIf) > 0 {
			a.OnlyIf = cloneGuards(w.Constraints.OnlyIf)
		}
		return a, nil
	case TypeActivateScene:
		if w.SceneID == "" {
			return nil, fmt.Errorf("%w: activate_scene without scene_id", ErrMalformedAction)
		}
		return ActivateScene{Meta: meta, SceneID: w.SceneID}, nil
	case TypeNoOp:
		return NoOp{Meta: meta}, nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownActionType, w.Type)
	}
}

func cloneGuards(m map[string]Value) map[string]Value {
	if m == nil {
		return nil
	}
	cpy := make(map[string]Value, len(m))
	for k, v := range m {
		cpy[k] = v
	}
	return cpy
}
