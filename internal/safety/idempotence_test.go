package safety

import "testing"

func TestFilterIdempotent(t *testing.T) {
	snap := NewSnapshot([]Reading{
		reading("cabin_lights", Bool(true)),
		reading("fridge_12v", Bool(false)),
		reading("fuel_level", Number(42)),
		reading("mode_select", String("eco")),
	})

	tests := []struct {
		name     string
		action   Action
		wantKeep bool
	}{
		{"same bool", set("a", "cabin_lights", Bool(true)), false},
		{"different bool", set("a", "fridge_12v", Bool(true)), true},
		{"same number", set("a", "fuel_level", Number(42)), false},
		{"different number", set("a", "fuel_level", Number(41.5)), true},
		{"same string", set("a", "mode_select", String("eco")), false},
		{"kind differs", set("a", "cabin_lights", Number(1)), true},
		{"unknown device", set("a", "ghost", Bool(true)), true},
		{"scene", ActivateScene{Meta: Meta{ID: "s"}, SceneID: "night_mode"}, true},
		{"noop", NoOp{Meta: Meta{ID: "n"}}, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			kept, dropped := FilterIdempotent(snap, []Action{tc.action})
			if got := len(kept) == 1; got != tc.wantKeep {
				t.Errorf("kept = %v, want %v", got, tc.wantKeep)
			}
			if !tc.wantKeep && (len(dropped) != 1 || dropped[0].Reason != DropAlreadyInState) {
				t.Errorf("dropped = %+v, want one already_in_state", dropped)
			}
		})
	}
}

func TestFilterIdempotent_PreservesOrder(t *testing.T) {
	snap := NewSnapshot([]Reading{reading("cabin_lights", Bool(true))})
	in := []Action{
		set("1", "fridge_12v", Bool(true)),
		set("2", "cabin_lights", Bool(true)),
		set("3", "horn", Bool(false)),
	}

	kept, _ := FilterIdempotent(snap, in)
	if len(kept) != 2 || kept[0].Info().ID != "1" || kept[1].Info().ID != "3" {
		t.Errorf("kept = %+v, want [1 3]", kept)
	}
}
