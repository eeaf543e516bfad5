package safety

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// DropReason classifies why an action did not reach the final list.
type DropReason string

const (
	DropMalformed      DropReason = "malformed"
	DropNoOp           DropReason = "no_op"
	DropProtected      DropReason = "protected_device"
	DropColregs        DropReason = "colregs_violation"
	DropAlreadyInState DropReason = "already_in_state"
)

// Drop records an action removed by the pipeline. Action is nil when the
// entry could not be decoded at all.
type Drop struct {
	ActionID string
	Action   Action
	Reason   DropReason
	Detail   string
}

// Result is the outcome of one reconciliation cycle.
type Result struct {
	// Actions is the final authoritative list. It is never empty.
	Actions []Action

	// Mode is the vessel mode inferred from the snapshot.
	Mode Mode

	// Dropped lists removed actions in pipeline order.
	Dropped []Drop
}

// Corrections returns the actions the engine generated itself.
func (r Result) Corrections() []Action {
	var out []Action
	for _, a := range r.Actions {
		id := a.Info().ID
		if strings.HasPrefix(id, RuleIDPrefix) {
			out = append(out, a)
		}
	}
	return out
}

// RuleIDPrefix starts the ID of every action the engine generates.
const RuleIDPrefix = "rule-"

// NoOp identifiers used when nothing survives the pipeline.
const (
	FallbackNoOpID     = "noop-1"
	FallbackNoOpReason = "No action required."
)

// Reconcile runs one cycle of the pipeline over an advisory proposal and a
// snapshot. It mutates st and performs no I/O.
//
// Order: intake validation, protected-device strip, bilge controller,
// navigation enforcer, idempotence filter, NoOp fallback.
func Reconcile(p Policy, st *State, snap Snapshot, proposed []Action, now time.Time) Result {
	caps := NewCapabilities(p.Devices)
	res := Result{Mode: InferMode(snap, p.Devices)}

	actions := make([]Action, 0, len(proposed)+3)
	for _, a := range proposed {
		if d, bad := validate(snap, a); bad {
			res.Dropped = append(res.Dropped, d)
			continue
		}
		if set, ok := a.(SetDeviceState); ok && !caps.MayPropose(AuthorityAdvisory, set.DeviceID) {
			res.Dropped = append(res.Dropped, Drop{
				ActionID: set.ID,
				Action:   set,
				Reason:   DropProtected,
				Detail:   set.DeviceID + " is not proposable by " + AuthorityAdvisory.String(),
			})
			continue
		}
		actions = append(actions, a)
	}

	if a, ok := evaluateBilge(p, caps, st, snap, now); ok {
		actions = append(actions, a)
	}

	var dropped []Drop
	actions, dropped = enforceNavigation(p, caps, snap, res.Mode, actions)
	res.Dropped = append(res.Dropped, dropped...)

	actions, dropped = FilterIdempotent(snap, actions)
	res.Dropped = append(res.Dropped, dropped...)

	if len(actions) == 0 {
		actions = append(actions, NoOp{Meta: Meta{
			ID:       FallbackNoOpID,
			Priority: PriorityInfo,
			Reason:   FallbackNoOpReason,
		}})
	}
	res.Actions = actions
	return res
}

// validate applies the snapshot-aware intake checks to an externally
// supplied action.
func validate(snap Snapshot, a Action) (Drop, bool) {
	switch t := a.(type) {
	case nil:
		return Drop{Reason: DropMalformed, Detail: "nil action"}, true
	case NoOp:
		return Drop{ActionID: t.ID, Action: t, Reason: DropNoOp, Detail: "advisory no-op"}, true
	case ActivateScene:
		if t.SceneID == "" {
			return Drop{ActionID: t.ID, Action: t, Reason: DropMalformed, Detail: "missing scene_id"}, true
		}
	case SetDeviceState:
		if t.DeviceID == "" {
			return Drop{ActionID: t.ID, Action: t, Reason: DropMalformed, Detail: "missing device_id"}, true
		}
		if t.Target.IsNull() {
			return Drop{ActionID: t.ID, Action: t, Reason: DropMalformed, Detail: "missing target_state"}, true
		}
		if r, ok := snap.Lookup(t.DeviceID); ok && !r.State.IsNull() && r.State.Kind() != t.Target.Kind() {
			return Drop{
				ActionID: t.ID,
				Action:   t,
				Reason:   DropMalformed,
				Detail:   fmt.Sprintf("%s expects %s, got %s", t.DeviceID, r.State.Kind(), t.Target.Kind()),
			}, true
		}
	}
	return Drop{}, false
}

// Engine binds a Policy to one vessel's State.
//
// Calls are serialized, so overlapping invocations for the same vessel run
// one after another and never interleave state mutation. Engines share
// nothing with each other.
type Engine struct {
	mu     sync.Mutex
	policy Policy
	state  *State
}

// NewEngine validates the policy and returns an engine with empty state.
func NewEngine(p Policy) (*Engine, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &Engine{policy: p, state: NewState()}, nil
}

// Reconcile runs one cycle against the engine's state.
func (e *Engine) Reconcile(snap Snapshot, proposed []Action, now time.Time) Result {
	e.mu.Lock()
	defer e.mu.Unlock()
	return Reconcile(e.policy, e.state, snap, proposed, now)
}

// Debounce applies the engine's open sensor hold windows to snap. Use it to
// evaluate only_if guards the way the engine saw the sensors.
func (e *Engine) Debounce(snap Snapshot, now time.Time) Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.Debounce(snap, now)
}

// Policy returns the engine's policy.
func (e *Engine) Policy() Policy {
	return e.policy
}

// Inspect returns a copy of the current state.
func (e *Engine) Inspect() View {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state.View()
}
