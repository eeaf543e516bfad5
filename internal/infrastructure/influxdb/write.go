package influxdb

import (
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"
)

// Measurement names.
const (
	MeasurementCycle = "watchkeeper_cycle"
	MeasurementBilge = "bilge_duty"
)

// CycleSample summarises one reconciliation cycle.
type CycleSample struct {
	VesselID    string
	Mode        string
	Advice      string // received, silent or invalid
	Proposed    int
	Actions     int
	Corrections int
	Dropped     int
	Dispatched  int
	Duration    time.Duration
	At          time.Time
}

// BilgeSample is the bilge controller state after a cycle.
type BilgeSample struct {
	VesselID string
	PumpOn   bool
	Forced   bool
	Resting  bool
	Run      time.Duration // zero while the pump is off
	At       time.Time
}

// WriteCycle queues a cycle point. It is a no-op on a closed or nil client.
func (c *Client) WriteCycle(s CycleSample) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(cyclePoint(s))
}

// WriteBilge queues a bilge duty point. It is a no-op on a closed or nil client.
func (c *Client) WriteBilge(s BilgeSample) {
	if !c.IsConnected() {
		return
	}
	c.writeAPI.WritePoint(bilgePoint(s))
}

func cyclePoint(s CycleSample) *write.Point {
	return write.NewPoint(
		MeasurementCycle,
		map[string]string{
			"vessel_id": s.VesselID,
			"mode":      s.Mode,
			"advice":    s.Advice,
		},
		map[string]interface{}{
			"proposed":    int64(s.Proposed),
			"actions":     int64(s.Actions),
			"corrections": int64(s.Corrections),
			"dropped":     int64(s.Dropped),
			"dispatched":  int64(s.Dispatched),
			"duration_ms": float64(s.Duration) / float64(time.Millisecond),
		},
		timestampOrNow(s.At),
	)
}

func bilgePoint(s BilgeSample) *write.Point {
	return write.NewPoint(
		MeasurementBilge,
		map[string]string{"vessel_id": s.VesselID},
		map[string]interface{}{
			"pump_on":     s.PumpOn,
			"forced":      s.Forced,
			"resting":     s.Resting,
			"run_seconds": s.Run.Seconds(),
		},
		timestampOrNow(s.At),
	)
}

func timestampOrNow(t time.Time) time.Time {
	if t.IsZero() {
		return time.Now()
	}
	return t
}
