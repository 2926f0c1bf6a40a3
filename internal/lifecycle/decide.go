// Package lifecycle drives resources through the staged deactivation
// state machine: Active, IdleWarning, Quarantine, Deleted, with
// reactivation back to Active. Decide is the pure transition function;
// Engine applies decisions against the ledger and the provider.
package lifecycle

import (
	"time"

	"github.com/costguardian/costguardian/internal/config"
	"github.com/costguardian/costguardian/internal/resource"
)

// Action is what the engine must do for one resource this run.
type Action int

const (
	// ActionNone skips the resource entirely (terminal stage).
	ActionNone Action = iota
	// ActionObserve appends an observation row without changing stage.
	ActionObserve
	// ActionWarn backs the configuration up and advances
	// Active -> IdleWarning.
	ActionWarn
	// ActionQuarantine backs the resource up, deactivates it, and
	// advances IdleWarning -> Quarantine.
	ActionQuarantine
	// ActionDelete removes the resource and records the terminal row.
	ActionDelete
	// ActionReactivate resets a warned or quarantined resource to Active.
	ActionReactivate
)

func (a Action) String() string {
	switch a {
	case ActionNone:
		return "none"
	case ActionObserve:
		return "observe"
	case ActionWarn:
		return "warn"
	case ActionQuarantine:
		return "quarantine"
	case ActionDelete:
		return "delete"
	case ActionReactivate:
		return "reactivate"
	}
	return "unknown"
}

// Decision is the outcome of evaluating one resource.
type Decision struct {
	Action    Action
	Stage     resource.Stage // stage after the action succeeds
	IdleCount int
	Reason    string
}

// Decide computes the transition for one resource from its previous
// ledger state and this run's idle verdict. Pure: no I/O, no clock reads.
//
// Two windows govern idempotence. The idle counter increments at most
// once per evaluation interval since the last observation, and a stage
// advances at most once per interval since the last transition, so
// replayed runs inside a window observe without re-triggering side
// effects. Reactivation is immediate and exempt from both windows.
func Decide(prev *resource.Record, idle bool, now time.Time, cfg config.Lifecycle) Decision {
	if prev != nil && prev.Stage.Terminal() {
		return Decision{Action: ActionNone, Stage: prev.Stage}
	}

	stage, count := resource.StageActive, 0
	if prev != nil {
		stage, count = prev.Stage, prev.IdleCount
	}

	if !idle {
		if stage == resource.StageIdleWarning || stage == resource.StageQuarantine {
			return Decision{Action: ActionReactivate, Stage: resource.StageActive, Reason: "utilization resumed"}
		}
		return Decision{Action: ActionObserve, Stage: resource.StageActive}
	}

	interval := cfg.EvaluationIntervalDuration()
	if prev == nil || now.Sub(prev.ObservedAt) >= interval {
		count++
	}
	mayAdvance := prev == nil || now.Sub(prev.TransitionAt) >= interval

	switch stage {
	case resource.StageActive:
		if mayAdvance && count >= cfg.ChecksBeforeAction {
			return Decision{Action: ActionWarn, Stage: resource.StageIdleWarning, IdleCount: count, Reason: "consecutive idle checks reached"}
		}
	case resource.StageIdleWarning:
		if mayAdvance {
			if cfg.SkipQuarantine {
				return Decision{Action: ActionDelete, Stage: resource.StageDeleted, IdleCount: count, Reason: "idle past warning, quarantine disabled"}
			}
			return Decision{Action: ActionQuarantine, Stage: resource.StageQuarantine, IdleCount: count, Reason: "idle past warning"}
		}
	case resource.StageQuarantine:
		if mayAdvance && now.Sub(prev.QuarantinedAt) >= cfg.GracePeriodDuration() {
			return Decision{Action: ActionDelete, Stage: resource.StageDeleted, IdleCount: count, Reason: "quarantine grace period elapsed"}
		}
	}

	reason := ""
	if prev != nil {
		reason = prev.Reason
	}
	return Decision{Action: ActionObserve, Stage: stage, IdleCount: count, Reason: reason}
}
