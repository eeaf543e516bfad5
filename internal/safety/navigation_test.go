package safety

import "testing"

func TestInferMode(t *testing.T) {
	d := DefaultDevices()
	tests := []struct {
		name     string
		nav      Value
		anchor   Value
		wantMode Mode
	}{
		{"nav on", Bool(true), Bool(false), ModeUnderway},
		{"both on", Bool(true), Bool(true), ModeUnderway},
		{"anchor on", Bool(false), Bool(true), ModeAnchor},
		{"both off", Bool(false), Bool(false), ModeInPort},
		{"unknown states", Null(), String("on"), ModeInPort},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			snap := NewSnapshot([]Reading{reading("nav_lights", tc.nav), reading("anchor_light", tc.anchor)})
			if got := InferMode(snap, d); got != tc.wantMode {
				t.Errorf("InferMode() = %q, want %q", got, tc.wantMode)
			}
		})
	}

	if got := InferMode(NewSnapshot(nil), d); got != ModeInPort {
		t.Errorf("empty snapshot mode = %q, want in_port", got)
	}
}

func TestNavigation_AnchorMode(t *testing.T) {
	stubActionIDs(t)
	p := DefaultPolicy()
	// Mode passed explicitly so the corrections for both lights are exercised.
	snap := vesselSnapshot(false, false, true, false)

	proposed := []Action{
		set("a1", "nav_lights", Bool(true)),
		set("a2", "anchor_light", Bool(false)),
		set("a3", "cabin_lights", Bool(true)),
	}
	got, dropped := enforceNavigation(p, NewCapabilities(p.Devices), snap, ModeAnchor, proposed)

	if len(dropped) != 2 {
		t.Fatalf("dropped %d actions, want 2: %+v", len(dropped), dropped)
	}
	for _, d := range dropped {
		if d.Reason != DropColregs {
			t.Errorf("drop reason = %q, want %q", d.Reason, DropColregs)
		}
	}

	anchor, ok := findSet(got, "anchor_light")
	if !ok || !anchor.Target.IsOn() || anchor.Priority != PriorityHigh {
		t.Errorf("anchor correction = (%+v, %v), want ON high", anchor, ok)
	}
	nav, ok := findSet(got, "nav_lights")
	if !ok || nav.Target.IsOn() || nav.Priority != PriorityHigh {
		t.Errorf("nav correction = (%+v, %v), want OFF high", nav, ok)
	}
	if nav.ID != "rule-colregs-00000002" {
		t.Errorf("nav correction ID = %q", nav.ID)
	}
	if _, ok := findSet(got, "cabin_lights"); !ok {
		t.Error("unrelated proposal removed")
	}
}

func TestNavigation_UnderwayMode(t *testing.T) {
	stubActionIDs(t)
	p := DefaultPolicy()
	snap := vesselSnapshot(false, false, true, true)
	mode := InferMode(snap, p.Devices)
	if mode != ModeUnderway {
		t.Fatalf("mode = %q", mode)
	}

	got, dropped := enforceNavigation(p, NewCapabilities(p.Devices), snap, mode, []Action{
		set("a1", "anchor_light", Bool(true)),
		set("a2", "nav_lights", Bool(true)),
	})

	if len(dropped) != 1 || dropped[0].ActionID != "a1" {
		t.Fatalf("dropped = %+v, want only a1", dropped)
	}
	anchor, ok := findSet(got, "anchor_light")
	if !ok || anchor.Target.IsOn() {
		t.Errorf("anchor correction = (%+v, %v), want OFF", anchor, ok)
	}
	if countSets(got, "nav_lights") != 1 {
		t.Errorf("nav actions = %d, want the surviving proposal only", countSets(got, "nav_lights"))
	}
}

func TestNavigation_InPortForbidsNothing(t *testing.T) {
	p := DefaultPolicy()
	snap := vesselSnapshot(false, false, false, false)
	proposed := []Action{
		set("a1", "nav_lights", Bool(true)),
		set("a2", "anchor_light", Bool(true)),
	}

	got, dropped := enforceNavigation(p, NewCapabilities(p.Devices), snap, ModeInPort, proposed)
	if len(dropped) != 0 || len(got) != 2 {
		t.Errorf("in_port changed proposals: kept %d dropped %d", len(got), len(dropped))
	}
}

func TestNavigation_NeverTouchesManualDevices(t *testing.T) {
	stubActionIDs(t)
	p := DefaultPolicy()
	snap := vesselSnapshot(false, false, true, false)
	snap = withControl(snap, "nav_lights", AIControlNone)
	snap = withControl(snap, "anchor_light", AIControlNone)

	proposed := []Action{set("a1", "nav_lights", Bool(true))}
	got, dropped := enforceNavigation(p, NewCapabilities(p.Devices), snap, ModeAnchor, proposed)

	if len(dropped) != 0 {
		t.Errorf("manual device proposal filtered: %+v", dropped)
	}
	for _, a := range got {
		if a.Info().ID != "a1" {
			t.Errorf("correction %+v generated for manual device", a)
		}
	}
}

func TestNavigation_EquivalentProposalSuppressesCorrection(t *testing.T) {
	stubActionIDs(t)
	p := DefaultPolicy()
	snap := vesselSnapshot(false, false, true, true)

	got, _ := enforceNavigation(p, NewCapabilities(p.Devices), snap, ModeUnderway, []Action{set("a1", "anchor_light", Bool(false))})

	if n := countSets(got, "anchor_light"); n != 1 {
		t.Fatalf("anchor actions = %d, want 1", n)
	}
	if got[0].Info().ID != "a1" {
		t.Errorf("kept %q, want advisory a1", got[0].Info().ID)
	}
}
