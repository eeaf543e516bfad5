// Package mqtt connects watchkeeper to the vessel message bus.
//
// Vessels report device state on retained topics, the advisory layer posts
// proposed actions, and watchkeeper publishes the commands that survive
// reconciliation. See Topics for the full tree.
//
//	vessel devices → watchkeeper/state/…  → watchkeeper
//	advisory layer → watchkeeper/advice/… → watchkeeper
//	watchkeeper    → watchkeeper/command/… , watchkeeper/scene/… → vessel
//
// The client reconnects with backoff, restores subscriptions after a
// reconnect and keeps a retained online/offline status on
// watchkeeper/system/status, backed by a Last Will so a crash is visible.
//
// # Usage
//
//	client, err := mqtt.Connect(cfg.MQTT)
//	if err != nil {
//	    return err
//	}
//	defer client.Close()
//
//	err = client.Subscribe(mqtt.Topics{}.VesselStates("aurora"), 1,
//	    func(topic string, payload []byte) error {
//	        vessel, device, _ := mqtt.Topics{}.ParseState(topic)
//	        return tracker.HandleState(vessel, device, payload)
//	    })
package mqtt
