package safety

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestValue_UnmarshalJSON(t *testing.T) {
	tests := []struct {
		in      string
		want    Value
		wantErr bool
	}{
		{"true", Bool(true), false},
		{"false", Bool(false), false},
		{"12.5", Number(12.5), false},
		{`"eco"`, String("eco"), false},
		{"null", Null(), false},
		{`{"a":1}`, Value{}, true},
		{`[1,2]`, Value{}, true},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			var v Value
			err := json.Unmarshal([]byte(tc.in), &v)
			if tc.wantErr {
				if !errors.Is(err, ErrImpossibleValue) {
					t.Fatalf("error = %v, want ErrImpossibleValue", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("error = %v", err)
			}
			if !v.Equal(tc.want) {
				t.Errorf("got %v, want %v", v, tc.want)
			}
		})
	}
}

func TestValue_EqualIsKindSensitive(t *testing.T) {
	if Bool(true).Equal(Number(1)) {
		t.Error("true == 1")
	}
	if String("true").Equal(Bool(true)) {
		t.Error(`"true" == true`)
	}
	if !Null().Equal(Value{}) {
		t.Error("null != zero Value")
	}
	if Number(1).IsOn() || String("on").IsOn() {
		t.Error("non-bool values report ON")
	}
}

func TestValueOf(t *testing.T) {
	if _, err := ValueOf(map[string]any{}); !errors.Is(err, ErrImpossibleValue) {
		t.Errorf("ValueOf(map) error = %v", err)
	}
	v, err := ValueOf(7)
	if err != nil || !v.Equal(Number(7)) {
		t.Errorf("ValueOf(7) = %v, %v", v, err)
	}
	v, err = ValueOf(json.Number("3.25"))
	if err != nil || !v.Equal(Number(3.25)) {
		t.Errorf("ValueOf(json.Number) = %v, %v", v, err)
	}
}

func TestAIControl_Decoding(t *testing.T) {
	tests := []struct {
		in   string
		want AIControl
	}{
		{`"none"`, AIControlNone},
		{`"never"`, AIControlNone},
		{`"suggest"`, AIControlSuggest},
		{`"limited"`, AIControlSuggest},
		{`"allowed"`, AIControlAllowed},
		{`0`, AIControlNone},
		{`1`, AIControlSuggest},
		{`2`, AIControlAllowed},
		{`true`, AIControlAllowed},
		{`false`, AIControlNone},
		{`null`, AIControlNone},
	}
	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			c := AIControlSuggest
			if tc.in == `null` {
				c = AIControlAllowed
			}
			if err := json.Unmarshal([]byte(tc.in), &c); err != nil {
				t.Fatalf("error = %v", err)
			}
			if c != tc.want {
				t.Errorf("got %v, want %v", c, tc.want)
			}
		})
	}

	var c AIControl
	if err := json.Unmarshal([]byte(`"sometimes"`), &c); !errors.Is(err, ErrInvalidAIControl) {
		t.Errorf("invalid level error = %v", err)
	}
}

func TestSnapshot_FirstReadingWins(t *testing.T) {
	snap := NewSnapshot([]Reading{
		reading("horn", Bool(false)),
		reading("", Bool(true)),
		reading("horn", Bool(true)),
		reading("wiper", Bool(true)),
	})

	if snap.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", snap.Len())
	}
	r, ok := snap.Lookup("horn")
	if !ok || r.State.IsOn() {
		t.Errorf("horn = %+v, want first reading (off)", r)
	}
	if rs := snap.Readings(); rs[0].ID != "horn" || rs[1].ID != "wiper" {
		t.Errorf("order = %+v", rs)
	}
}

func TestSnapshot_JSON(t *testing.T) {
	raw := `[{"id":"nav_lights","state":true,"ai_control":"allowed"},{"id":"fuel_level","state":63,"ai_control":0}]`

	var snap Snapshot
	if err := json.Unmarshal([]byte(raw), &snap); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	nav, _ := snap.Lookup("nav_lights")
	fuel, _ := snap.Lookup("fuel_level")
	if !nav.State.IsOn() || nav.AIControl != AIControlAllowed {
		t.Errorf("nav_lights = %+v", nav)
	}
	if !fuel.State.Equal(Number(63)) || fuel.AIControl != AIControlNone {
		t.Errorf("fuel_level = %+v", fuel)
	}

	out, err := json.Marshal(NewSnapshot(nil))
	if err != nil || string(out) != "[]" {
		t.Errorf("empty snapshot JSON = %s, %v", out, err)
	}
}
