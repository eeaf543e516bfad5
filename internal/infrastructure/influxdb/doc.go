// Package influxdb records watchkeeper telemetry in InfluxDB v2.
//
// Two measurements are written, one point each per vessel per cycle:
//
//	watchkeeper_cycle  tags vessel_id, mode, advice
//	                   fields proposed, actions, corrections, dropped, dispatched, duration_ms
//	bilge_duty         tags vessel_id
//	                   fields pump_on, forced, resting, run_seconds
//
// Telemetry is optional. Connect returns ErrDisabled when it is off, and
// the write methods are no-ops on a nil client, so callers need no guard.
//
// # Usage
//
//	client, err := influxdb.Connect(cfg.InfluxDB)
//	if err != nil && !errors.Is(err, influxdb.ErrDisabled) {
//	    return err
//	}
//	defer client.Close()
//
//	client.WriteCycle(influxdb.CycleSample{VesselID: "aurora", Mode: "anchor"})
package influxdb
