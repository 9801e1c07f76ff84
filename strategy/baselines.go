package strategy

import (
	"fmt"
	"math/rand/v2"

	"github.com/velvetrope/doorman/api"
	"github.com/velvetrope/doorman/game"
)

// AcceptAll admits every candidate while capacity remains. It exists as
// a baseline for experiments, not as a serious policy.
type AcceptAll struct {
	metrics *Metrics
}

func (s *AcceptAll) Name() string { return "acceptall" }

func (s *AcceptAll) Decide(c api.Candidate, t *game.Tracker) bool {
	admit := t.RemainingCapacity() > 0
	if s.metrics != nil {
		s.metrics.TrackDecision(s.Name(), admit, "acceptall")
	}
	return admit
}

// ConstraintAware admits greedily against the quota minimums plus a
// safety margin. It ignores the population statistics entirely, which
// makes it a useful middle baseline between random and adaptive.
type ConstraintAware struct {
	quotas  []api.Constraint
	margin  float64
	metrics *Metrics
}

// NewConstraintAware builds the strategy. margin is the extra headroom
// above each quota minimum, as a fraction (0.1 targets 110% of the
// minimum).
func NewConstraintAware(info game.SessionInfo, margin float64, metrics *Metrics) (*ConstraintAware, error) {
	if margin < 0 || margin > 1 {
		return nil, fmt.Errorf("safety margin %v outside [0,1]", margin)
	}
	return &ConstraintAware{
		quotas:  info.Constraints,
		margin:  margin,
		metrics: metrics,
	}, nil
}

func (s *ConstraintAware) Name() string { return "constraintaware" }

func (s *ConstraintAware) Decide(c api.Candidate, t *game.Tracker) bool {
	if t.RemainingCapacity() == 0 {
		return s.track(false, "capacity")
	}
	if len(s.quotas) == 0 {
		return s.track(true, "no_quotas")
	}

	remaining := float64(t.RemainingCapacity())

	for _, q := range s.quotas {
		target := int(float64(q.MinCount) * (1 + s.margin))
		stillNeeded := target - t.Count(q.Attribute)
		if stillNeeded <= 0 {
			continue
		}

		if c.Has(q.Attribute) {
			return s.track(true, "needed_attribute")
		}

		// The deficit nearly consumes the remaining capacity; spending a
		// spot on a non-carrier would make the quota unreachable.
		if float64(stillNeeded) > remaining*0.8 {
			return s.track(false, "urgent_deficit")
		}
	}

	return s.track(true, "default")
}

func (s *ConstraintAware) track(admit bool, reason string) bool {
	if s.metrics != nil {
		s.metrics.TrackDecision(s.Name(), admit, reason)
	}
	return admit
}

// Random admits candidates with a fixed probability, as an experiment
// baseline.
type Random struct {
	rate    float64
	rng     *rand.Rand
	metrics *Metrics
}

func (s *Random) Name() string { return "random" }

func (s *Random) Decide(c api.Candidate, t *game.Tracker) bool {
	admit := t.RemainingCapacity() > 0 && s.rng.Float64() < s.rate
	if s.metrics != nil {
		s.metrics.TrackDecision(s.Name(), admit, "random_draw")
	}
	return admit
}
