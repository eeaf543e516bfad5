// Package vessel holds what watchkeeper knows about each boat: its profile
// (device and scene catalogue with automation levels) and the live device
// state reported over MQTT.
//
// Profiles are YAML. An empty profile path in config selects the embedded
// 20-25 ft cabin cruiser profile:
//
//	id: cabin_cruiser_20_25ft
//	devices:
//	  - {id: nav_lights, type: light, zone: exterior, ai_control: allowed}
//	  - {id: bilge_float_high, type: sensor, zone: bilge}
//	scenes:
//	  - {id: harbour_mode, ai_control: allowed}
//
// ai_control is none (the default), suggest or allowed; the legacy names
// never and limited are accepted.
//
// The Tracker is the snapshot provider for the poll loop and the authority
// table for the command dispatcher.
package vessel
