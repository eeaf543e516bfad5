// Package watchkeeper runs the reconciliation poll loop.
//
// A Watch owns one vessel's safety engine. Each cycle it fetches the vessel
// snapshot, takes any pending advice, reconciles the two through the engine
// and hands the final actions to the dispatcher. The outcome is then
// audited, written to telemetry and published as a retained summary.
//
// Fleet runs one Watch per vessel. Vessels share nothing, so a slow or
// failing vessel never delays another.
package watchkeeper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/nerrad567/watchkeeper/internal/advisory"
	"github.com/nerrad567/watchkeeper/internal/audit"
	"github.com/nerrad567/watchkeeper/internal/dispatch"
	"github.com/nerrad567/watchkeeper/internal/infrastructure/influxdb"
	"github.com/nerrad567/watchkeeper/internal/infrastructure/mqtt"
	"github.com/nerrad567/watchkeeper/internal/safety"
)

// Logger defines the logging interface used by the poll loop.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}

// SnapshotSource provides the current device states of a vessel.
type SnapshotSource interface {
	Snapshot(ctx context.Context, vesselID string) (safety.Snapshot, error)
}

// AdviceSource hands out pending advisory payloads.
type AdviceSource interface {
	Take(ctx context.Context, vesselID string) (advisory.Advice, bool)
}

// Applier executes final actions against the vessel.
type Applier interface {
	Apply(ctx context.Context, vesselID, cycleID string, guards safety.Snapshot, mode safety.Mode, actions []safety.Action) []dispatch.Outcome
}

// AuditStore records cycles.
type AuditStore interface {
	Create(ctx context.Context, rec *audit.CycleRecord) error
}

// Telemetry receives per-cycle samples.
type Telemetry interface {
	WriteCycle(s influxdb.CycleSample)
	WriteBilge(s influxdb.BilgeSample)
}

// Publisher publishes the retained cycle summary.
type Publisher interface {
	PublishJSON(topic string, v any, retained bool) error
}

// Deps are a Watch's collaborators. Snapshots, Advice and Applier are
// required; the rest may be nil.
type Deps struct {
	Snapshots SnapshotSource
	Advice    AdviceSource
	Applier   Applier
	Audit     AuditStore
	Telemetry Telemetry
	Publisher Publisher
	Metrics   *Metrics
}

// Report describes one completed cycle.
type Report struct {
	CycleID  string
	VesselID string
	Mode     safety.Mode
	Advice   string // audit.AdviceReceived, AdviceSilent or AdviceInvalid
	Proposed int
	Result   safety.Result
	Dropped  []safety.Drop // intake and pipeline drops, in order
	Outcomes []dispatch.Outcome
	Summary  string
	Duration time.Duration
	At       time.Time
}

// CycleSummary is the retained payload on watchkeeper/cycle/{vessel}.
type CycleSummary struct {
	CycleID  string             `json:"cycle_id"`
	VesselID string             `json:"vessel_id"`
	Mode     string             `json:"mode"`
	Advice   string             `json:"advice"`
	Summary  string             `json:"summary"`
	Actions  []safety.Wire      `json:"actions"`
	Results  []dispatch.Outcome `json:"results"`
	At       time.Time          `json:"at"`
}

// Watch reconciles one vessel.
type Watch struct {
	vesselID string
	engine   *safety.Engine
	deps     Deps
	logger   Logger
	now      func() time.Time
	newID    func() string
}

// NewWatch creates a watch over vesselID using engine.
func NewWatch(vesselID string, engine *safety.Engine, deps Deps) (*Watch, error) {
	switch {
	case vesselID == "":
		return nil, fmt.Errorf("%w: vessel id", ErrMissingDependency)
	case engine == nil:
		return nil, fmt.Errorf("%w: engine", ErrMissingDependency)
	case deps.Snapshots == nil:
		return nil, fmt.Errorf("%w: snapshot source", ErrMissingDependency)
	case deps.Advice == nil:
		return nil, fmt.Errorf("%w: advice source", ErrMissingDependency)
	case deps.Applier == nil:
		return nil, fmt.Errorf("%w: applier", ErrMissingDependency)
	}
	return &Watch{
		vesselID: vesselID,
		engine:   engine,
		deps:     deps,
		logger:   noopLogger{},
		now:      time.Now,
		newID:    audit.NewCycleID,
	}, nil
}

// SetLogger sets the logger for the watch.
func (w *Watch) SetLogger(logger Logger) {
	w.logger = logger
}

// VesselID returns the watched vessel.
func (w *Watch) VesselID() string {
	return w.vesselID
}

// Run executes a cycle immediately and then every interval until ctx is
// cancelled. Each cycle gets its own timeout. Skipped cycles are logged and
// never stop the loop.
func (w *Watch) Run(ctx context.Context, interval, timeout time.Duration) error {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	if timeout <= 0 {
		timeout = DefaultCycleTimeout
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		w.cycle(ctx, timeout)

		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
		}
	}
}

func (w *Watch) cycle(ctx context.Context, timeout time.Duration) {
	cctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	if _, err := w.RunOnce(cctx); err != nil {
		if ctx.Err() != nil {
			return
		}
		w.logger.Warn("cycle skipped", "vessel", w.vesselID, "error", err)
	}
}

// RunOnce performs a single cycle. It fails only when the snapshot cannot be
// fetched, in which case engine state is untouched. Advice problems,
// dispatch failures and audit or telemetry errors never fail a cycle.
func (w *Watch) RunOnce(ctx context.Context) (*Report, error) {
	start := w.now()

	snap, err := w.deps.Snapshots.Snapshot(ctx, w.vesselID)
	if err != nil {
		w.deps.Metrics.skipped(w.vesselID)
		return nil, fmt.Errorf("%w: %w", ErrSnapshotUnavailable, err)
	}

	rep := &Report{
		CycleID:  w.newID(),
		VesselID: w.vesselID,
		Advice:   audit.AdviceSilent,
		At:       start,
	}

	var proposed []safety.Action
	if adv, ok := w.deps.Advice.Take(ctx, w.vesselID); ok {
		var intake []safety.Drop
		proposed, intake = safety.ParseProposals(adv.Payload)
		rep.Dropped = append(rep.Dropped, intake...)
		rep.Advice = audit.AdviceReceived
		if len(proposed) == 0 && len(intake) > 0 {
			rep.Advice = audit.AdviceInvalid
		}
	}
	rep.Proposed = len(proposed)

	rep.Result = w.engine.Reconcile(snap, proposed, start)
	rep.Mode = rep.Result.Mode
	rep.Dropped = append(rep.Dropped, rep.Result.Dropped...)

	// Guards are checked against the freshest view the engine would accept.
	guards := snap
	if fresh, ferr := w.deps.Snapshots.Snapshot(ctx, w.vesselID); ferr == nil {
		guards = fresh
	} else {
		w.logger.Debug("fresh snapshot unavailable, guarding with cycle snapshot", "vessel", w.vesselID, "error", ferr)
	}
	guards = w.engine.Debounce(guards, w.now())

	rep.Outcomes = w.deps.Applier.Apply(ctx, w.vesselID, rep.CycleID, guards, rep.Mode, rep.Result.Actions)
	rep.Duration = w.now().Sub(start)
	rep.Summary = Summarize(rep)

	w.record(ctx, rep)

	w.logger.Info(rep.Summary,
		"vessel", w.vesselID,
		"cycle_id", rep.CycleID,
		"duration_ms", rep.Duration.Milliseconds(),
	)
	return rep, nil
}

// record writes the cycle to the audit trail, telemetry, metrics and the
// retained summary topic. Failures are logged only.
func (w *Watch) record(ctx context.Context, rep *Report) {
	// Commands have been issued; the record must survive a cycle timeout.
	ctx = context.WithoutCancel(ctx)

	if w.deps.Audit != nil {
		rec := auditRecord(rep)
		if err := w.deps.Audit.Create(ctx, rec); err != nil {
			w.logger.Error("audit write failed", "vessel", w.vesselID, "cycle_id", rep.CycleID, "error", err)
		}
	}

	if w.deps.Telemetry != nil {
		w.deps.Telemetry.WriteCycle(cycleSample(rep))
		w.deps.Telemetry.WriteBilge(bilgeSample(w.vesselID, w.engine.Inspect(), rep.At))
	}

	w.deps.Metrics.observe(rep)

	if w.deps.Publisher != nil {
		summary := CycleSummary{
			CycleID:  rep.CycleID,
			VesselID: rep.VesselID,
			Mode:     string(rep.Mode),
			Advice:   rep.Advice,
			Summary:  rep.Summary,
			Actions:  safety.ToWireList(rep.Result.Actions),
			Results:  rep.Outcomes,
			At:       rep.At.UTC(),
		}
		if err := w.deps.Publisher.PublishJSON(mqtt.Topics{}.Cycle(w.vesselID), summary, true); err != nil {
			w.logger.Warn("cycle summary publish failed", "vessel", w.vesselID, "error", err)
		}
	}
}

// Summarize renders the one-line human summary of a cycle, for example:
//
//	anchor: 2 actions (1 safety correction), 1 dropped; executed 2
func Summarize(rep *Report) string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s: ", rep.Mode)

	corrections := len(rep.Result.Corrections())
	actions := 0
	for _, a := range rep.Result.Actions {
		if _, noop := a.(safety.NoOp); !noop {
			actions++
		}
	}
	if actions == 0 {
		b.WriteString("no action required")
	} else {
		fmt.Fprintf(&b, "%d %s", actions, plural(actions, "action"))
		if corrections > 0 {
			fmt.Fprintf(&b, " (%d safety %s)", corrections, plural(corrections, "correction"))
		}
	}
	if n := len(rep.Dropped); n > 0 {
		fmt.Fprintf(&b, ", %d dropped", n)
	}
	if rep.Advice != audit.AdviceReceived {
		fmt.Fprintf(&b, ", advice %s", rep.Advice)
	}

	counts := make(map[dispatch.Status]int)
	for _, o := range rep.Outcomes {
		counts[o.Status]++
	}
	var parts []string
	for _, s := range []dispatch.Status{dispatch.StatusExecuted, dispatch.StatusDeferred, dispatch.StatusRejected, dispatch.StatusSkipped} {
		if counts[s] > 0 {
			parts = append(parts, fmt.Sprintf("%s %d", s, counts[s]))
		}
	}
	if len(parts) > 0 {
		b.WriteString("; ")
		b.WriteString(strings.Join(parts, ", "))
	}
	return b.String()
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}

func auditRecord(rep *Report) *audit.CycleRecord {
	rec := &audit.CycleRecord{
		ID:        rep.CycleID,
		VesselID:  rep.VesselID,
		Mode:      string(rep.Mode),
		Advice:    rep.Advice,
		Summary:   rep.Summary,
		Actions:   safety.ToWireList(rep.Result.Actions),
		Duration:  rep.Duration,
		CreatedAt: rep.At.UTC(),
	}
	for _, d := range rep.Dropped {
		rec.Dropped = append(rec.Dropped, audit.DroppedAction{
			ActionID: d.ActionID,
			Reason:   string(d.Reason),
			Detail:   d.Detail,
		})
	}
	for _, o := range rep.Outcomes {
		rec.Results = append(rec.Results, audit.ActionResult{
			ActionID: o.ActionID,
			Status:   string(o.Status),
			Detail:   o.Detail,
		})
	}
	return rec
}

func cycleSample(rep *Report) influxdb.CycleSample {
	dispatched := 0
	for _, o := range rep.Outcomes {
		if o.Status == dispatch.StatusExecuted {
			dispatched++
		}
	}
	return influxdb.CycleSample{
		VesselID:    rep.VesselID,
		Mode:        string(rep.Mode),
		Advice:      rep.Advice,
		Proposed:    rep.Proposed,
		Actions:     len(rep.Result.Actions),
		Corrections: len(rep.Result.Corrections()),
		Dropped:     len(rep.Dropped),
		Dispatched:  dispatched,
		Duration:    rep.Duration,
		At:          rep.At,
	}
}

func bilgeSample(vesselID string, v safety.View, at time.Time) influxdb.BilgeSample {
	s := influxdb.BilgeSample{
		VesselID: vesselID,
		PumpOn:   !v.BilgePumpOnSince.IsZero(),
		Forced:   v.BilgeForcedBySafety,
		Resting:  at.Before(v.BilgeRestUntil),
		At:       at,
	}
	if s.PumpOn {
		s.Run = at.Sub(v.BilgePumpOnSince)
	}
	return s
}
