package safety

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// ParseProposals decodes a raw advisory payload.
//
// The payload may be {"actions": [...]} or a bare array. An empty payload is
// silence and yields no actions. Each entry is decoded on its own, so one
// malformed entry is dropped without losing its neighbours; an undecodable
// payload drops as a whole. Entries without an action_id are numbered
// advisory-1, advisory-2, ... in payload order.
func ParseProposals(raw []byte) ([]Action, []Drop) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}

	var entries []json.RawMessage
	switch raw[0] {
	case '[':
		if err := json.Unmarshal(raw, &entries); err != nil {
			return nil, []Drop{payloadDrop(err)}
		}
	case '{':
		var envelope struct {
			Actions []json.RawMessage `json:"actions"`
		}
		if err := json.Unmarshal(raw, &envelope); err != nil {
			return nil, []Drop{payloadDrop(err)}
		}
		entries = envelope.Actions
	default:
		return nil, []Drop{payloadDrop(fmt.Errorf("unexpected payload start %q", raw[0]))}
	}

	actions := make([]Action, 0, len(entries))
	var dropped []Drop
	for i, entry := range entries {
		var w Wire
		if err := json.Unmarshal(entry, &w); err != nil {
			dropped = append(dropped, Drop{
				ActionID: fmt.Sprintf("advisory-%d", i+1),
				Reason:   DropMalformed,
				Detail:   err.Error(),
			})
			continue
		}
		if w.ActionID == "" {
			w.ActionID = fmt.Sprintf("advisory-%d", i+1)
		}
		a, err := w.Action()
		if err != nil {
			dropped = append(dropped, Drop{
				ActionID: w.ActionID,
				Reason:   DropMalformed,
				Detail:   err.Error(),
			})
			continue
		}
		actions = append(actions, a)
	}
	return actions, dropped
}

func payloadDrop(err error) Drop {
	return Drop{
		Reason: DropMalformed,
		Detail: fmt.Errorf("%w: payload: %v", ErrMalformedAction, err).Error(),
	}
}
