package influxdb

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/influxdata/influxdb-client-go/v2/api/write"

	"github.com/nerrad567/watchkeeper/internal/infrastructure/config"
)

// testConfig matches a local development InfluxDB.
func testConfig() config.InfluxDBConfig {
	return config.InfluxDBConfig{
		Enabled:       true,
		URL:           "http://127.0.0.1:8086",
		Token:         "watchkeeper-dev-token",
		Org:           "watchkeeper",
		Bucket:        "telemetry",
		BatchSize:     100,
		FlushInterval: 1,
	}
}

// connectOrSkip connects to the local server or skips the test.
func connectOrSkip(t *testing.T) *Client {
	t.Helper()
	client, err := Connect(testConfig())
	if err != nil {
		t.Skipf("InfluxDB not available: %v", err)
	}
	t.Cleanup(func() { client.Close() }) //nolint:errcheck // Test cleanup
	return client
}

func fields(p *write.Point) map[string]any {
	out := make(map[string]any)
	for _, f := range p.FieldList() {
		out[f.Key] = f.Value
	}
	return out
}

func tags(p *write.Point) map[string]string {
	out := make(map[string]string)
	for _, tg := range p.TagList() {
		out[tg.Key] = tg.Value
	}
	return out
}

func TestConnect_Disabled(t *testing.T) {
	cfg := testConfig()
	cfg.Enabled = false

	client, err := Connect(cfg)
	if !errors.Is(err, ErrDisabled) {
		t.Errorf("Connect() error = %v, want ErrDisabled", err)
	}
	if client != nil {
		t.Error("Connect() returned a client while disabled")
	}
}

func TestConnect_Unreachable(t *testing.T) {
	cfg := testConfig()
	cfg.URL = "http://127.0.0.1:1"

	if _, err := Connect(cfg); !errors.Is(err, ErrConnectionFailed) {
		t.Errorf("Connect() error = %v, want ErrConnectionFailed", err)
	}
}

func TestCyclePoint(t *testing.T) {
	at := time.Date(2026, 10, 18, 12, 0, 0, 0, time.UTC)
	p := cyclePoint(CycleSample{
		VesselID:    "aurora",
		Mode:        "anchor",
		Advice:      "received",
		Proposed:    3,
		Actions:     2,
		Corrections: 1,
		Dropped:     2,
		Dispatched:  2,
		Duration:    1500 * time.Microsecond,
		At:          at,
	})

	if p.Name() != MeasurementCycle || !p.Time().Equal(at) {
		t.Errorf("point = %s at %v", p.Name(), p.Time())
	}
	wantTags := map[string]string{"vessel_id": "aurora", "mode": "anchor", "advice": "received"}
	for k, v := range wantTags {
		if tags(p)[k] != v {
			t.Errorf("tag %s = %q, want %q", k, tags(p)[k], v)
		}
	}
	f := fields(p)
	if f["proposed"] != int64(3) || f["corrections"] != int64(1) || f["dispatched"] != int64(2) {
		t.Errorf("fields = %v", f)
	}
	if f["duration_ms"] != 1.5 {
		t.Errorf("duration_ms = %v, want 1.5", f["duration_ms"])
	}
}

func TestBilgePoint(t *testing.T) {
	p := bilgePoint(BilgeSample{VesselID: "aurora", PumpOn: true, Forced: true, Run: 90 * time.Second})

	if p.Name() != MeasurementBilge || tags(p)["vessel_id"] != "aurora" {
		t.Errorf("point = %s %v", p.Name(), tags(p))
	}
	f := fields(p)
	if f["pump_on"] != true || f["forced"] != true || f["resting"] != false || f["run_seconds"] != 90.0 {
		t.Errorf("fields = %v", f)
	}
	if p.Time().IsZero() {
		t.Error("zero At should default to now")
	}
}

func TestNilClientIsNoOp(t *testing.T) {
	var c *Client
	c.WriteCycle(CycleSample{VesselID: "aurora"})
	c.WriteBilge(BilgeSample{VesselID: "aurora"})
	c.Flush()
	if c.IsConnected() {
		t.Error("nil client reports connected")
	}
	if err := c.Close(); err != nil {
		t.Errorf("Close() on nil client error = %v", err)
	}
}

func TestWriteAndHealth(t *testing.T) {
	client := connectOrSkip(t)

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck() error = %v", err)
	}

	failed := make(chan error, 1)
	client.SetOnError(func(err error) {
		select {
		case failed <- err:
		default:
		}
	})

	client.WriteCycle(CycleSample{VesselID: "test-vessel", Mode: "underway", Advice: "silent"})
	client.WriteBilge(BilgeSample{VesselID: "test-vessel"})
	client.Flush()

	select {
	case err := <-failed:
		t.Errorf("write error = %v", err)
	case <-time.After(200 * time.Millisecond):
	}

	if err := client.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := client.HealthCheck(context.Background()); !errors.Is(err, ErrNotConnected) {
		t.Errorf("HealthCheck() after Close error = %v, want ErrNotConnected", err)
	}
	client.WriteCycle(CycleSample{VesselID: "test-vessel"})
}

func TestWriteOptions(t *testing.T) {
	tests := []struct {
		name      string
		batch     int
		flush     int
		wantBatch uint
		wantFlush uint
	}{
		{"configured", 500, 2, 500, 2000},
		{"defaults", 0, 0, defaultBatchSize, defaultFlushSeconds * 1000},
		{"negative", -1, -5, defaultBatchSize, defaultFlushSeconds * 1000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opts := writeOptions(config.InfluxDBConfig{BatchSize: tt.batch, FlushInterval: tt.flush})
			if opts.BatchSize() != tt.wantBatch || opts.FlushInterval() != tt.wantFlush {
				t.Errorf("batch = %d flush = %d, want %d %d", opts.BatchSize(), opts.FlushInterval(), tt.wantBatch, tt.wantFlush)
			}
		})
	}
}
