package lifecycle

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/costguardian/costguardian/internal/classifier"
	"github.com/costguardian/costguardian/internal/config"
	"github.com/costguardian/costguardian/internal/inventory"
	"github.com/costguardian/costguardian/internal/ledger"
	"github.com/costguardian/costguardian/internal/resource"
)

// Actions is the executor surface the engine drives.
type Actions interface {
	Backup(ctx context.Context, c resource.Candidate) (string, error)
	Quarantine(ctx context.Context, c resource.Candidate) error
	Delete(ctx context.Context, c resource.Candidate) error
}

// Alerts is the notification surface. Implementations must never block a
// transition on delivery failure.
type Alerts interface {
	Transition(ctx context.Context, rec resource.Record, from resource.Stage)
	ActionFailed(ctx context.Context, rec resource.Record, action string, cause error)
}

// MetricsSink receives per-run operational counters.
type MetricsSink interface {
	Record(ctx context.Context, name string, value float64)
}

// Engine evaluates scan results against the ledger and applies the
// resulting transitions. One run is one detection pass.
type Engine struct {
	cfg     config.Config
	store   ledger.Ledger
	actions Actions
	alerts  Alerts
	metrics MetricsSink
	dryRun  bool
}

// NewEngine wires an engine. metrics may be nil. With dryRun set the
// engine logs every planned transition and touches neither the ledger
// nor the provider.
func NewEngine(cfg config.Config, store ledger.Ledger, actions Actions, alerts Alerts, metrics MetricsSink, dryRun bool) *Engine {
	return &Engine{cfg: cfg, store: store, actions: actions, alerts: alerts, metrics: metrics, dryRun: dryRun}
}

// Summary is the per-run outcome tally.
type Summary struct {
	Scanned        int
	Idle           int
	Warned         int
	Quarantined    int
	Deleted        int
	Reactivated    int
	Vanished       int
	Failed         int
	MonthlySavings float64 // savings claimed by this run's deletions
}

// Run evaluates every scanned candidate, applies transitions with bounded
// concurrency, finalizes resources that vanished out of band, and
// publishes the run counters. Failed types are skipped wholesale so a
// broken enumeration never looks like a mass disappearance.
func (e *Engine) Run(ctx context.Context, results map[resource.Type]inventory.TypeResult, now time.Time) Summary {
	var mu sync.Mutex
	var sum Summary

	limit := e.cfg.Concurrency
	if limit <= 0 {
		limit = config.DefaultConcurrency
	}

	for t, tr := range results {
		if tr.Err != nil {
			slog.Error("Skipping resource type after scan failure", "type", t, "error", tr.Err)
			continue
		}

		seen := make(map[string]bool, len(tr.Result.Candidates))
		for _, c := range tr.Result.Candidates {
			seen[c.ID] = true
		}
		skipped := make(map[string]bool, len(tr.Result.Skipped))
		for _, id := range tr.Result.Skipped {
			skipped[id] = true
		}

		// Candidate IDs are unique within a type, so each resource has
		// exactly one writer this run.
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(limit)
		for _, c := range tr.Result.Candidates {
			c := c
			g.Go(func() error {
				out := e.evaluate(gctx, c, now)
				mu.Lock()
				sum.apply(out)
				mu.Unlock()
				return nil
			})
		}
		_ = g.Wait()
		if ctx.Err() != nil {
			return sum
		}

		e.finalizeVanished(ctx, t, seen, skipped, now, &sum)
	}

	e.publishCounters(ctx, sum)
	return sum
}

type outcome struct {
	action  Action
	idle    bool
	failed  bool
	savings float64
}

func (s *Summary) apply(out outcome) {
	s.Scanned++
	if out.idle {
		s.Idle++
	}
	if out.failed {
		s.Failed++
		return
	}
	switch out.action {
	case ActionWarn:
		s.Warned++
	case ActionQuarantine:
		s.Quarantined++
	case ActionDelete:
		s.Deleted++
		s.MonthlySavings += out.savings
	case ActionReactivate:
		s.Reactivated++
	}
}

// evaluate runs one resource through classify, decide, execute, persist.
// Any failure leaves the resource in its previous stage; nothing partial
// is ever committed.
func (e *Engine) evaluate(ctx context.Context, c resource.Candidate, now time.Time) outcome {
	prev, err := e.store.Latest(ctx, c.ID)
	if err != nil {
		slog.Error("Ledger read failed", "resource", c.ID, "error", err)
		return outcome{failed: true}
	}

	// The provider exposes no VPC creation time; age is measured from the
	// ledger's first observation.
	if c.Type == resource.TypeNetworkContainer && prev != nil {
		c.Signals.AgeDays = int(now.Sub(prev.FirstSeenAt).Hours() / 24)
	}

	idle := classifier.Idle(c.Type, c.Signals, e.cfg.Thresholds)
	d := Decide(prev, idle, now, e.cfg.Lifecycle)
	if d.Action == ActionNone {
		return outcome{idle: idle}
	}

	if e.dryRun {
		if d.Action != ActionObserve {
			slog.Info("Dry run: transition planned",
				"resource", c.ID, "type", c.Type, "action", d.Action.String(), "stage", d.Stage, "reason", d.Reason)
		}
		return outcome{action: d.Action, idle: idle, savings: c.MonthlyCost}
	}

	from := resource.StageActive
	if prev != nil {
		from = prev.Stage
	}
	rec := buildRecord(prev, c, d, now)

	switch d.Action {
	case ActionWarn:
		ref, err := e.actions.Backup(ctx, c)
		if err != nil {
			return e.actionFailed(ctx, rec, from, "backup", err, idle)
		}
		rec.BackupRef = ref

	case ActionQuarantine:
		ref, err := e.actions.Backup(ctx, c)
		if err != nil {
			return e.actionFailed(ctx, rec, from, "backup", err, idle)
		}
		rec.BackupRef = ref
		if err := e.actions.Quarantine(ctx, c); err != nil {
			return e.actionFailed(ctx, rec, from, "quarantine", err, idle)
		}

	case ActionDelete:
		if rec.BackupRef == "" {
			ref, err := e.actions.Backup(ctx, c)
			if err != nil {
				return e.actionFailed(ctx, rec, from, "backup", err, idle)
			}
			rec.BackupRef = ref
		}
		if err := e.actions.Delete(ctx, c); err != nil {
			return e.actionFailed(ctx, rec, from, "delete", err, idle)
		}
	}

	if err := e.store.Put(ctx, rec); err != nil {
		slog.Error("Ledger write failed", "resource", c.ID, "action", d.Action.String(), "error", err)
		return outcome{failed: true, idle: idle}
	}

	if d.Action != ActionObserve {
		slog.Info("Applied transition",
			"resource", c.ID, "type", c.Type, "from", from, "to", rec.Stage, "reason", rec.Reason)
		e.alerts.Transition(ctx, rec, from)
	}
	return outcome{action: d.Action, idle: idle, savings: rec.MonthlyCost}
}

func (e *Engine) actionFailed(ctx context.Context, rec resource.Record, from resource.Stage, action string, cause error, idle bool) outcome {
	slog.Error("Executor action failed, stage preserved",
		"resource", rec.ResourceID, "action", action, "stage", from, "error", cause)
	failRec := rec
	failRec.Stage = from
	e.alerts.ActionFailed(ctx, failRec, action, cause)
	return outcome{failed: true, idle: idle}
}

// buildRecord assembles the ledger row a decision produces. TransitionAt
// moves only when the stage changes; FirstSeenAt and BackupRef carry
// forward; reactivation clears the quarantine mark.
func buildRecord(prev *resource.Record, c resource.Candidate, d Decision, now time.Time) resource.Record {
	rec := resource.Record{
		ResourceID:   c.ID,
		ObservedAt:   now,
		Type:         c.Type,
		Stage:        d.Stage,
		IdleCount:    d.IdleCount,
		Signals:      c.Signals,
		Name:         c.Name,
		SizeLabel:    c.SizeLabel,
		MonthlyCost:  c.MonthlyCost,
		FirstSeenAt:  now,
		TransitionAt: now,
		Reason:       d.Reason,
	}
	if prev != nil {
		if !prev.FirstSeenAt.IsZero() {
			rec.FirstSeenAt = prev.FirstSeenAt
		}
		rec.BackupRef = prev.BackupRef
		if d.Stage == prev.Stage {
			rec.TransitionAt = prev.TransitionAt
		}
		if d.Action != ActionReactivate {
			rec.QuarantinedAt = prev.QuarantinedAt
		}
	}
	switch d.Action {
	case ActionQuarantine:
		rec.QuarantinedAt = now
	case ActionDelete:
		rec.DeletedAt = now
	}
	return rec
}

// finalizeVanished closes out warned or quarantined resources that the
// scan no longer sees. They are marked deleted without a savings claim:
// the engine did not remove them. IDs the scanner skipped are exempt;
// unreadable is not gone.
func (e *Engine) finalizeVanished(ctx context.Context, t resource.Type, seen, skipped map[string]bool, now time.Time, sum *Summary) {
	for _, stage := range []resource.Stage{resource.StageIdleWarning, resource.StageQuarantine} {
		tracked, err := e.store.InStage(ctx, t, stage)
		if err != nil {
			slog.Warn("Vanish check skipped", "type", t, "stage", stage, "error", err)
			continue
		}

		for _, old := range tracked {
			if seen[old.ResourceID] || skipped[old.ResourceID] {
				continue
			}
			latest, err := e.store.Latest(ctx, old.ResourceID)
			if err != nil {
				slog.Warn("Vanish check failed", "resource", old.ResourceID, "error", err)
				continue
			}
			if latest == nil || latest.Stage != stage {
				continue
			}

			if e.dryRun {
				slog.Info("Dry run: would finalize vanished resource", "resource", old.ResourceID, "stage", stage)
				sum.Vanished++
				continue
			}

			rec := *latest
			rec.ObservedAt = now
			rec.Stage = resource.StageDeleted
			rec.TransitionAt = now
			rec.DeletedAt = now
			rec.Vanished = true
			rec.Reason = "removed out of band"
			if err := e.store.Put(ctx, rec); err != nil {
				slog.Error("Failed to finalize vanished resource", "resource", rec.ResourceID, "error", err)
				sum.Failed++
				continue
			}
			slog.Info("Finalized vanished resource", "resource", rec.ResourceID, "type", t, "stage", stage)
			e.alerts.Transition(ctx, rec, stage)
			sum.Vanished++
		}
	}
}

func (e *Engine) publishCounters(ctx context.Context, sum Summary) {
	if e.metrics == nil || e.dryRun {
		return
	}
	e.metrics.Record(ctx, "ResourcesScanned", float64(sum.Scanned))
	e.metrics.Record(ctx, "ResourcesIdle", float64(sum.Idle))
	e.metrics.Record(ctx, "ResourcesWarned", float64(sum.Warned))
	e.metrics.Record(ctx, "ResourcesQuarantined", float64(sum.Quarantined))
	e.metrics.Record(ctx, "ResourcesDeleted", float64(sum.Deleted))
	e.metrics.Record(ctx, "ResourcesReactivated", float64(sum.Reactivated))
	e.metrics.Record(ctx, "MonthlySavings", sum.MonthlySavings)
}
