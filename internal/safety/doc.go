// Package safety provides the deterministic safety-rule engine for Watchkeeper.
//
// The engine sits between an untrusted advisory source (a language model or
// any other proposer) and the actuators of the bilge pump override and the
// navigation/anchor lights. Every poll cycle it receives a device snapshot and
// a list of proposed actions and returns the authoritative action list.
//
// Architecture:
//
//	┌──────────────────────────────────────────────────────────┐
//	│                 Reconcile (pipeline.go)                   │
//	│  0. Intake: drop malformed advisory actions              │
//	│  1. Strip proposals for protected devices (capability)   │
//	│  2. Bilge duty-cycle controller       (bilge.go)         │
//	│  3. Navigation light enforcer         (navigation.go)    │
//	│  4. Idempotence filter                (idempotence.go)   │
//	│  5. NoOp fallback                                        │
//	│                                                          │
//	│  State (state.go): timers, latches, authorship flag      │
//	└──────────────────────────────────────────────────────────┘
//
// # Key Types
//
//   - Value: closed scalar type for device and target states
//   - Snapshot / Reading: read-only device states for one cycle
//   - Action: sealed union of SetDeviceState, ActivateScene and NoOp
//   - State: per-vessel control state that survives across cycles
//   - Policy: configurable device IDs, duty-cycle and latch parameters
//   - Engine: one Policy plus one State, safe to call from any goroutine
//
// # Determinism
//
// Reconcile performs no I/O and reads no clock; the caller passes now.
// The only side effect is the documented mutation of State.
//
// # Usage
//
//	engine, err := safety.NewEngine(policy)
//	if err != nil {
//	    return err
//	}
//	proposed, drops := safety.ParseProposals(rawAdvice)
//	result := engine.Reconcile(snapshot, proposed, time.Now())
//	for _, a := range result.Actions {
//	    // hand to the command applier
//	}
package safety
