package safety

import "testing"

func TestCapabilities_MayPropose(t *testing.T) {
	caps := NewCapabilities(DefaultDevices())

	tests := []struct {
		device string
		auth   Authority
		want   bool
	}{
		{"bilge_pump_auto_override", AuthorityBilgeController, true},
		{"bilge_pump_auto_override", AuthorityAdvisory, false},
		{"bilge_pump_auto_override", AuthorityNavigationEnforcer, false},

		{"bilge_float_high", AuthorityBilgeController, false},
		{"bilge_float_high", AuthorityAdvisory, false},
		{"bilge_float_high", AuthorityNavigationEnforcer, false},

		{"nav_lights", AuthorityAdvisory, true},
		{"nav_lights", AuthorityNavigationEnforcer, true},
		{"nav_lights", AuthorityBilgeController, false},
		{"anchor_light", AuthorityAdvisory, true},
		{"anchor_light", AuthorityNavigationEnforcer, true},
		{"anchor_light", AuthorityBilgeController, false},

		{"cabin_lights", AuthorityAdvisory, true},
		{"cabin_lights", AuthorityBilgeController, false},
		{"cabin_lights", AuthorityNavigationEnforcer, false},
	}
	for _, tc := range tests {
		t.Run(tc.device+"/"+tc.auth.String(), func(t *testing.T) {
			if got := caps.MayPropose(tc.auth, tc.device); got != tc.want {
				t.Errorf("MayPropose(%s, %q) = %v, want %v", tc.auth, tc.device, got, tc.want)
			}
		})
	}
}

func TestCapabilities_FollowConfiguredDevices(t *testing.T) {
	d := Devices{
		BilgeFloatHigh: "aft_float",
		BilgeOverride:  "aft_pump",
		NavLights:      "running_lights",
		AnchorLight:    "masthead_anchor",
	}
	caps := NewCapabilities(d)

	if !caps.MayPropose(AuthorityBilgeController, "aft_pump") {
		t.Error("bilge controller denied the configured override")
	}
	if caps.MayPropose(AuthorityAdvisory, "aft_float") {
		t.Error("advisory allowed to drive the configured float")
	}
	// The default IDs are ordinary devices under a different profile.
	if caps.MayPropose(AuthorityBilgeController, "bilge_pump_auto_override") {
		t.Error("bilge controller allowed on an unlisted device")
	}
}

func TestAuthority_String(t *testing.T) {
	tests := map[Authority]string{
		AuthorityAdvisory:           "advisory",
		AuthorityBilgeController:    "bilge_controller",
		AuthorityNavigationEnforcer: "navigation_enforcer",
		0:                           "unknown",
	}
	for a, want := range tests {
		if got := a.String(); got != want {
			t.Errorf("Authority(%d).String() = %q, want %q", a, got, want)
		}
	}
}

func TestBilge_DeniedByCapabilities(t *testing.T) {
	stubActionIDs(t)
	p := DefaultPolicy()

	caps := NewCapabilities(p.Devices)
	caps[p.Devices.BilgeOverride] = 0

	st := NewState()
	if a, ok := evaluateBilge(p, caps, st, vesselSnapshot(true, false, false, false), epoch); ok {
		t.Fatalf("got %+v, want no action without bilge authority", a)
	}
	if _, armed := st.LatchExpiry("bilge_float_high"); !armed {
		t.Error("float latch not refreshed when the command is withheld")
	}

	// An empty table leaves the override open to advisory only.
	if a, ok := evaluateBilge(p, Capabilities{}, NewState(), vesselSnapshot(true, false, false, false), epoch); ok {
		t.Errorf("empty table: got %+v, want no action", a)
	}
}

func TestNavigation_DeniedByCapabilities(t *testing.T) {
	stubActionIDs(t)
	p := DefaultPolicy()

	caps := NewCapabilities(p.Devices)
	caps[p.Devices.AnchorLight] = AuthorityAdvisory

	got, _ := enforceNavigation(p, caps, vesselSnapshot(false, false, true, false), ModeAnchor, nil)

	if _, ok := findSet(got, "anchor_light"); ok {
		t.Error("anchor light corrected without enforcer authority")
	}
	if nav, ok := findSet(got, "nav_lights"); !ok || nav.Target.IsOn() {
		t.Errorf("nav correction = (%+v, %v), want OFF", nav, ok)
	}
}
