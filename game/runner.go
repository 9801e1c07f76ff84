package game

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/velvetrope/doorman/api"
)

// ErrSessionDone is returned when Run is called on a runner whose
// session already reached a terminal state.
var ErrSessionDone = errors.New("session already finished")

// RunnerConfig holds the session-level constants. Capacity and the
// rejection budget are fixed externally; zero values take the service
// defaults.
type RunnerConfig struct {
	Scenario        int
	Capacity        int
	RejectionBudget int
}

func (cfg *RunnerConfig) setDefaults() {
	if cfg.Scenario == 0 {
		cfg.Scenario = 1
	}
	if cfg.Capacity == 0 {
		cfg.Capacity = 1000
	}
	if cfg.RejectionBudget == 0 {
		cfg.RejectionBudget = 20000
	}
}

// Runner drives one session: it pulls candidates from the source,
// invokes the strategy, applies each decision to the tracker, and
// submits it back. A session is strictly sequential; candidate N+1 is
// never fetched before candidate N's decision has been applied.
type Runner struct {
	source  Source
	factory StrategyFactory
	cfg     RunnerConfig
	log     *slog.Logger

	status   Status
	info     *SessionInfo
	strategy Strategy
	tracker  *Tracker
	history  []DecisionRecord
}

// NewRunner creates a runner for a single session. The strategy is
// built by the factory once the session-open response (quotas and
// statistics) is available.
func NewRunner(source Source, factory StrategyFactory, cfg RunnerConfig, log *slog.Logger) (*Runner, error) {
	if source == nil {
		return nil, fmt.Errorf("source is required")
	}
	if factory == nil {
		return nil, fmt.Errorf("strategy factory is required")
	}
	cfg.setDefaults()
	if cfg.Capacity < 0 || cfg.RejectionBudget < 0 {
		return nil, fmt.Errorf("capacity and rejection budget must be positive")
	}
	if log == nil {
		log = slog.Default()
	}

	return &Runner{
		source:  source,
		factory: factory,
		cfg:     cfg,
		log:     log,
		status:  StatusRunning,
	}, nil
}

// Run opens the session and processes candidates until a terminal
// condition. Transport errors propagate to the caller with the session
// left running and no further progress; the runner never retries a
// decision. Cancellation is honored between decision cycles.
func (r *Runner) Run(ctx context.Context) (*Summary, error) {
	if r.status != StatusRunning {
		return nil, ErrSessionDone
	}
	if r.tracker != nil {
		return nil, fmt.Errorf("session already started")
	}

	ng, err := r.source.NewGame(ctx, r.cfg.Scenario)
	if err != nil {
		return nil, fmt.Errorf("opening session: %w", err)
	}

	info := SessionInfo{
		GameID:      ng.GameID,
		Constraints: ng.Constraints,
		Statistics:  ng.AttributeStatistics,
	}

	tracker, err := NewTracker(r.cfg.Capacity, r.cfg.RejectionBudget, info.Constraints)
	if err != nil {
		return nil, fmt.Errorf("invalid session: %w", err)
	}

	strategy, err := r.factory(info)
	if err != nil {
		return nil, fmt.Errorf("building strategy: %w", err)
	}

	r.info = &info
	r.tracker = tracker
	r.strategy = strategy

	r.log.InfoContext(ctx, "session opened",
		"gameID", info.GameID,
		"strategy", strategy.Name(),
		"scenario", r.cfg.Scenario,
		"quotas", len(info.Constraints),
		"capacity", tracker.Capacity(),
		"rejectionBudget", tracker.RejectionBudget())

	// The initial fetch carries no decision.
	resp, err := r.source.DecideAndNext(ctx, info.GameID, 0, nil)
	if err != nil {
		return nil, fmt.Errorf("fetching first candidate: %w", err)
	}

	milestone := tracker.Capacity() / 10
	if milestone == 0 {
		milestone = 1
	}

	for {
		// A session may be aborted between decision cycles, never
		// mid-decision. Partial state is simply discarded.
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		if resp.Status == api.GameFailed {
			r.status = StatusFailed
			break
		}
		if resp.Status == api.GameCompleted {
			// Completed strictly means capacity reached. The service
			// finishing early points at a capacity mismatch between the
			// configured session and the service's, and the result would
			// be reported against the wrong denominator.
			if tracker.RemainingCapacity() != 0 {
				r.status = StatusFailed
				return r.summaryAndHistory(), fmt.Errorf(
					"service reported completed at %d/%d admitted",
					tracker.Admitted(), tracker.Capacity())
			}
			r.status = StatusCompleted
			break
		}
		if resp.NextPerson == nil {
			// Stream ended while the service still reports running.
			if tracker.RemainingCapacity() == 0 {
				r.status = StatusCompleted
			} else {
				r.status = StatusFailed
			}
			break
		}

		person := *resp.NextPerson
		admit := r.strategy.Decide(person, tracker)

		if err := tracker.Record(person, admit); err != nil {
			r.status = StatusFailed
			return r.summaryAndHistory(), fmt.Errorf("recording decision: %w", err)
		}

		r.history = append(r.history, DecisionRecord{
			PersonIndex:   person.PersonIndex,
			Attributes:    person.Attributes,
			Admit:         admit,
			AdmittedAfter: tracker.Admitted(),
			RejectedAfter: tracker.Rejected(),
		})

		next, err := r.source.DecideAndNext(ctx, info.GameID, person.PersonIndex, &admit)
		if err != nil {
			return nil, fmt.Errorf("submitting decision for candidate %d: %w", person.PersonIndex, err)
		}

		// The service is authoritative for submitted decisions; if its
		// counters diverge from ours the session state is corrupt and
		// must not continue.
		if next.AdmittedCount != tracker.Admitted() || next.RejectedCount != tracker.Rejected() {
			r.status = StatusFailed
			return r.summaryAndHistory(), fmt.Errorf(
				"counter divergence after candidate %d: service %d/%d, tracker %d/%d",
				person.PersonIndex,
				next.AdmittedCount, next.RejectedCount,
				tracker.Admitted(), tracker.Rejected())
		}

		if admit && tracker.Admitted()%milestone == 0 {
			r.log.InfoContext(ctx, "session progress",
				"gameID", info.GameID,
				"admitted", tracker.Admitted(),
				"rejected", tracker.Rejected(),
				"progress", tracker.Progress(),
				"allSatisfied", tracker.AllSatisfied())
		}

		if tracker.RemainingCapacity() == 0 {
			r.status = StatusCompleted
			break
		}
		if tracker.RemainingRejections() == 0 {
			r.status = StatusFailed
			break
		}

		resp = next
	}

	summary := r.summaryAndHistory()

	r.log.InfoContext(ctx, "session finished",
		"gameID", info.GameID,
		"status", r.status.String(),
		"admitted", summary.Admitted,
		"rejected", summary.Rejected,
		"allSatisfied", summary.AllSatisfied)

	return summary, nil
}

// Status returns the session status.
func (r *Runner) Status() Status { return r.status }

// History returns the ordered decision records as a copy.
func (r *Runner) History() []DecisionRecord {
	out := make([]DecisionRecord, len(r.history))
	copy(out, r.history)
	return out
}

func (r *Runner) summaryAndHistory() *Summary {
	total := r.tracker.Admitted() + r.tracker.Rejected()
	rate := 0.0
	if total > 0 {
		rate = float64(r.tracker.Admitted()) / float64(total)
	}

	return &Summary{
		GameID:         r.info.GameID,
		Strategy:       r.strategy.Name(),
		Scenario:       r.cfg.Scenario,
		Status:         r.status.String(),
		Admitted:       r.tracker.Admitted(),
		Rejected:       r.tracker.Rejected(),
		TotalSeen:      total,
		AcceptanceRate: rate,
		Quotas:         r.tracker.QuotaResults(),
		AllSatisfied:   r.tracker.AllSatisfied(),
	}
}
