package safety

// FilterIdempotent drops SetDeviceState actions whose target already equals
// the device's current state. Unknown devices and other action types pass
// through unchanged. Input order is preserved.
func FilterIdempotent(snap Snapshot, actions []Action) ([]Action, []Drop) {
	kept := make([]Action, 0, len(actions))
	var dropped []Drop

	for _, a := range actions {
		set, ok := a.(SetDeviceState)
		if !ok {
			kept = append(kept, a)
			continue
		}
		r, known := snap.Lookup(set.DeviceID)
		if known && r.State.Equal(set.Target) {
			dropped = append(dropped, Drop{
				ActionID: set.ID,
				Action:   set,
				Reason:   DropAlreadyInState,
				Detail:   set.DeviceID + " already " + set.Target.String(),
			})
			continue
		}
		kept = append(kept, a)
	}
	return kept, dropped
}
