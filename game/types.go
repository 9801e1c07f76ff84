package game

import (
	"context"

	"github.com/velvetrope/doorman/api"
)

// Status is the session state. A session starts running and ends
// completed (capacity reached) or failed (rejection budget exhausted,
// stream ended early, or an invariant violation was detected).
type Status uint8

const (
	StatusRunning Status = iota
	StatusCompleted
	StatusFailed
)

func (s Status) String() string {
	switch s {
	case StatusRunning:
		return "running"
	case StatusCompleted:
		return "completed"
	case StatusFailed:
		return "failed"
	}
	return "unknown"
}

// SessionInfo is what the service hands back when a session opens:
// the session ID, the quota set, and the population statistics. The
// quota set and statistics are immutable for the session's duration.
type SessionInfo struct {
	GameID      string
	Constraints []api.Constraint
	Statistics  api.AttributeStatistics
}

// Strategy decides whether to admit a candidate given the tracker's
// current snapshot. Decide is called exactly once per observed
// candidate, in arrival order. Implementations are constructed with
// the session's quotas and statistics already known.
type Strategy interface {
	Name() string
	Decide(c api.Candidate, t *Tracker) bool
}

// StrategyFactory builds a strategy once the session-open response is
// available.
type StrategyFactory func(info SessionInfo) (Strategy, error)

// Source is the external candidate source. Both calls are synchronous
// request/response; transport retries belong to the orchestration
// layer, not here.
type Source interface {
	NewGame(ctx context.Context, scenario int) (*api.NewGameResponse, error)
	DecideAndNext(ctx context.Context, gameID string, personIndex int, accept *bool) (*api.DecideResponse, error)
}

// DecisionRecord captures one decision for reporting. The slice of
// records is a read-only snapshot; it never feeds back into decisions.
type DecisionRecord struct {
	PersonIndex   int
	Attributes    map[string]bool
	Admit         bool
	AdmittedAfter int
	RejectedAfter int
}

// QuotaResult is the post-hoc state of one quota.
type QuotaResult struct {
	Attribute string `json:"attribute"`
	Required  int    `json:"required"`
	Actual    int    `json:"actual"`
	Satisfied bool   `json:"satisfied"`
}

// Summary is the read-only result of a session.
type Summary struct {
	GameID         string        `json:"game_id"`
	Strategy       string        `json:"strategy"`
	Scenario       int           `json:"scenario"`
	Status         string        `json:"status"`
	Admitted       int           `json:"admitted"`
	Rejected       int           `json:"rejected"`
	TotalSeen      int           `json:"total_seen"`
	AcceptanceRate float64       `json:"acceptance_rate"`
	Quotas         []QuotaResult `json:"quotas"`
	AllSatisfied   bool          `json:"all_satisfied"`
}
