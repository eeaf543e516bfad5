// Package dispatch turns reconciled actions into vessel commands.
//
// It is the authorization layer between the safety engine and the
// hardware. Every device and scene carries an automation level from the
// vessel profile:
//
//	none     rejected, never actuated
//	suggest  deferred (recorded, not actuated); safety rule actions still run
//	allowed  actuated once only_if guards hold
//
// Scene activation is additionally refused for at_anchor while the vessel
// is underway. Commands go to watchkeeper/command/{vessel}/{device} and
// watchkeeper/scene/{vessel}/{scene}, never retained.
package dispatch
