package safety

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// AIControl is the permission a device or scene grants to automated control.
type AIControl uint8

const (
	// AIControlNone means the device must never be touched automatically.
	AIControlNone AIControl = iota
	// AIControlSuggest means automated actions are recorded as suggestions only.
	AIControlSuggest
	// AIControlAllowed means automated actions may be executed.
	AIControlAllowed
)

// String returns the canonical level name.
func (c AIControl) String() string {
	switch c {
	case AIControlSuggest:
		return "suggest"
	case AIControlAllowed:
		return "allowed"
	default:
		return "none"
	}
}

// ParseAIControl parses a level name. It accepts the canonical names, the
// legacy never/limited names, integer levels 0-2 and booleans.
func ParseAIControl(s string) (AIControl, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "none", "never", "0", "false", "off":
		return AIControlNone, nil
	case "suggest", "suggestion", "limited", "1":
		return AIControlSuggest, nil
	case "allowed", "allow", "2", "true", "on":
		return AIControlAllowed, nil
	default:
		return AIControlNone, fmt.Errorf("%w: %q", ErrInvalidAIControl, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (c AIControl) MarshalText() ([]byte, error) {
	return []byte(c.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler (also used by YAML).
func (c *AIControl) UnmarshalText(text []byte) error {
	parsed, err := ParseAIControl(string(text))
	if err != nil {
		return err
	}
	*c = parsed
	return nil
}

// UnmarshalJSON accepts strings, integers and booleans.
func (c *AIControl) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*c = AIControlNone
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		return c.UnmarshalText([]byte(s))
	}
	return c.UnmarshalText(data)
}

// Reading is one device's observed state in a snapshot.
type Reading struct {
	ID        string    `json:"id"`
	State     Value     `json:"state"`
	AIControl AIControl `json:"ai_control"`
}

// Snapshot is the ordered, read-only set of device readings for one cycle.
// The zero Snapshot is empty.
type Snapshot struct {
	readings []Reading
	index    map[string]int
}

// NewSnapshot builds a snapshot. Readings without an ID are ignored and the
// first reading wins when an ID repeats.
func NewSnapshot(readings []Reading) Snapshot {
	s := Snapshot{
		readings: make([]Reading, 0, len(readings)),
		index:    make(map[string]int, len(readings)),
	}
	for _, r := range readings {
		if r.ID == "" {
			continue
		}
		if _, dup := s.index[r.ID]; dup {
			continue
		}
		s.index[r.ID] = len(s.readings)
		s.readings = append(s.readings, r)
	}
	return s
}

// Lookup returns the reading for a device ID.
func (s Snapshot) Lookup(id string) (Reading, bool) {
	i, ok := s.index[id]
	if !ok {
		return Reading{}, false
	}
	return s.readings[i], true
}

// Readings returns a copy of the readings in snapshot order.
func (s Snapshot) Readings() []Reading {
	out := make([]Reading, len(s.readings))
	copy(out, s.readings)
	return out
}

// Len returns the number of readings.
func (s Snapshot) Len() int { return len(s.readings) }

// MarshalJSON encodes the snapshot as its ordered reading list.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	if s.readings == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(s.readings)
}

// UnmarshalJSON decodes an ordered reading list.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var readings []Reading
	if err := json.Unmarshal(data, &readings); err != nil {
		return err
	}
	*s = NewSnapshot(readings)
	return nil
}
