package strategy

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"github.com/velvetrope/doorman/api"
	"github.com/velvetrope/doorman/game"
)

// Adaptive is the statistics-driven admission strategy. It holds the
// session's quotas and population statistics from construction and
// keeps no other state besides its random source, so decisions are a
// pure function of (candidate, tracker snapshot, random draw).
type Adaptive struct {
	quotas     []api.Constraint
	quotaAttrs []string
	stats      api.AttributeStatistics
	tol        ToleranceConfig
	rng        *rand.Rand
	log        *slog.Logger
	metrics    *Metrics
}

// NewAdaptive builds the strategy for one session. The random source
// is owned by the caller so sessions replay deterministically from a
// seed; it must not be shared between concurrent sessions.
func NewAdaptive(info game.SessionInfo, tol ToleranceConfig, rng *rand.Rand, log *slog.Logger, metrics *Metrics) (*Adaptive, error) {
	if err := tol.Validate(); err != nil {
		return nil, fmt.Errorf("tolerance config: %w", err)
	}
	if rng == nil {
		return nil, fmt.Errorf("random source is required")
	}
	if log == nil {
		log = slog.Default()
	}

	attrs := make([]string, 0, len(info.Constraints))
	seen := map[string]bool{}
	for _, q := range info.Constraints {
		if len(q.Attribute) == 0 {
			return nil, fmt.Errorf("quota with empty attribute name")
		}
		if seen[q.Attribute] {
			return nil, fmt.Errorf("duplicate quota attribute %q", q.Attribute)
		}
		seen[q.Attribute] = true
		attrs = append(attrs, q.Attribute)
	}

	return &Adaptive{
		quotas:     info.Constraints,
		quotaAttrs: attrs,
		stats:      info.Statistics,
		tol:        tol,
		rng:        rng,
		log:        log,
		metrics:    metrics,
	}, nil
}

func (a *Adaptive) Name() string { return "adaptive" }

// Decide evaluates the candidate against the decision procedure:
// capacity gate, the no-attribute sub-policy for candidates carrying
// no quota attribute, the bootstrap rule, then the per-quota over- and
// under-representation checks in quota declaration order.
func (a *Adaptive) Decide(c api.Candidate, t *game.Tracker) bool {
	if t.RemainingCapacity() == 0 {
		return a.track(false, "capacity")
	}

	if !c.HasAnyOf(a.quotaAttrs) {
		return a.decideEmpty(t)
	}

	// Nothing admitted yet means no baseline to compare fractions
	// against; admit to get started.
	if t.Admitted() == 0 {
		return a.track(true, "bootstrap")
	}

	tolerance := a.tol.At(t.Progress())
	admitted := float64(t.Admitted())

	for _, q := range a.quotas {
		target := float64(q.MinCount) / float64(t.Capacity())
		current := float64(t.Count(q.Attribute)) / admitted
		has := c.Has(q.Attribute)

		if has && current > target+tolerance {
			a.log.Debug("rejecting, attribute over-represented",
				"attribute", q.Attribute,
				"current", current,
				"target", target,
				"tolerance", tolerance)
			return a.track(false, "over_represented")
		}

		if !has && current < target-0.08 {
			stillNeeded := q.MinCount - t.Count(q.Attribute)
			expectedYield := a.stats.Frequency(q.Attribute) * float64(t.RemainingCapacity())

			// The 20% buffer guards against sampling variance in the
			// remaining supply.
			if expectedYield < float64(stillNeeded)*1.2 {
				a.log.Debug("rejecting, quota at risk",
					"attribute", q.Attribute,
					"count", t.Count(q.Attribute),
					"required", q.MinCount,
					"expectedYield", expectedYield)
				return a.track(false, "quota_at_risk")
			}
		}

		// Advisory only: candidates holding multiple positively
		// correlated quota attributes are worth noting, but the signal
		// never overrides the representation checks.
		if has {
			if bonus := a.correlationBonus(c, q.Attribute); bonus > 0.2 {
				a.log.Debug("candidate holds correlated attributes",
					"attribute", q.Attribute,
					"bonus", bonus)
				if a.metrics != nil {
					a.metrics.CorrelationSignals.WithLabelValues(a.Name()).Inc()
				}
			}
		}
	}

	if a.metrics != nil {
		for _, q := range a.quotas {
			a.metrics.QuotaFill.WithLabelValues(a.Name(), q.Attribute).Set(float64(t.Count(q.Attribute)))
		}
	}

	return a.track(true, "admit")
}

func (a *Adaptive) correlationBonus(c api.Candidate, attr string) float64 {
	bonus := 0.0
	for other, present := range c.Attributes {
		if !present || other == attr {
			continue
		}
		if corr := a.stats.Correlation(attr, other); corr > 0.1 {
			bonus += corr
		}
	}
	return bonus
}

// decideEmpty handles candidates carrying none of the quota
// attributes. They are the dominant share of traffic and the primary
// capacity drain, so their acceptance rate is capped probabilistically
// against a statistical population target.
func (a *Adaptive) decideEmpty(t *game.Tracker) bool {
	// Bootstrap: the very first candidate has no baseline to be
	// evaluated against and is always admitted.
	if t.Admitted() == 0 {
		return a.track(true, "bootstrap")
	}

	target := a.emptyTarget()
	share := t.EmptyShare()

	// Overshoot here is essentially irreversible, so the ceiling is
	// much tighter than the quota tolerance.
	if share > target+0.02 {
		return a.track(false, "empty_over_ceiling")
	}

	rate := emptyBaseRate(t.Progress())

	switch {
	case share < target-0.10:
		rate = min(0.3, rate*1.5)
	case share < target-0.03:
		rate = min(0.2, rate*1.2)
	case share < target:
		// close to target, keep the base rate
	default:
		rate *= 0.1
	}

	// Empty candidates are opportunity cost while any quota is behind.
	if a.anyQuotaStruggling(t) {
		rate *= 0.5
	}

	if a.metrics != nil {
		a.metrics.EmptyShare.WithLabelValues(a.Name()).Set(share)
	}

	if a.rng.Float64() < rate {
		return a.track(true, "empty_draw")
	}
	return a.track(false, "empty_draw")
}

// emptyBaseRate is a step function of progress; selectivity tightens
// as capacity fills because mistakes become costlier to unwind.
func emptyBaseRate(progress float64) float64 {
	switch {
	case progress <= 0.05:
		return 0.20
	case progress <= 0.15:
		return 0.15
	case progress <= 0.30:
		return 0.10
	case progress <= 0.50:
		return 0.05
	case progress <= 0.70:
		return 0.02
	case progress <= 0.90:
		return 0.01
	default:
		return 0.005
	}
}

func (a *Adaptive) anyQuotaStruggling(t *game.Tracker) bool {
	if t.Admitted() == 0 {
		return false
	}
	admitted := float64(t.Admitted())
	for _, q := range a.quotas {
		target := float64(q.MinCount) / float64(t.Capacity())
		current := float64(t.Count(q.Attribute)) / admitted
		if current < target-0.05 {
			return true
		}
	}
	return false
}

// emptyTarget estimates the population-level probability that a
// candidate carries none of the quota attributes.
func (a *Adaptive) emptyTarget() float64 {
	switch len(a.quotas) {
	case 0:
		return 0.4
	case 1:
		return 1.0 - a.stats.Frequency(a.quotas[0].Attribute)
	case 2:
		f1 := a.stats.Frequency(a.quotas[0].Attribute)
		f2 := a.stats.Frequency(a.quotas[1].Attribute)
		corr := a.stats.Correlation(a.quotas[0].Attribute, a.quotas[1].Attribute)

		// Correlation biases the joint probability estimate; the joint
		// can never exceed either marginal.
		joint := f1 * f2 * (1 + max(0.0, corr))
		joint = min(joint, min(f1, f2))

		neither := 1.0 - (f1 + f2 - joint)
		return clamp(neither, 0.05, 0.8)
	default:
		// Independence approximation; no ground-truth joint
		// distribution is available for a better estimator.
		none := 1.0
		for _, q := range a.quotas {
			none *= 1.0 - a.stats.Frequency(q.Attribute)
		}
		return clamp(none, 0.05, 0.8)
	}
}

func (a *Adaptive) track(admit bool, reason string) bool {
	if a.metrics != nil {
		a.metrics.TrackDecision(a.Name(), admit, reason)
	}
	return admit
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
