package game

import (
	"fmt"

	"github.com/velvetrope/doorman/api"
)

// Tracker maintains the running admission state for one session: total
// admitted, total rejected, and per-quota-attribute admitted counts.
// Every observed candidate must be recorded exactly once.
type Tracker struct {
	capacity        int
	rejectionBudget int
	quotas          []api.Constraint
	quotaAttrs      []string

	admitted      int
	rejected      int
	emptyAdmitted int
	counts        map[string]int
}

// NewTracker creates a tracker for a session with the given capacity,
// rejection budget and quota set. The quota set is fixed for the
// session and validated here.
func NewTracker(capacity, rejectionBudget int, quotas []api.Constraint) (*Tracker, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("capacity must be positive, got %d", capacity)
	}
	if rejectionBudget <= 0 {
		return nil, fmt.Errorf("rejection budget must be positive, got %d", rejectionBudget)
	}

	counts := make(map[string]int, len(quotas))
	attrs := make([]string, 0, len(quotas))
	for _, q := range quotas {
		if len(q.Attribute) == 0 {
			return nil, fmt.Errorf("quota with empty attribute name")
		}
		if q.MinCount <= 0 || q.MinCount > capacity {
			return nil, fmt.Errorf("quota %q: minimum %d outside (0, %d]",
				q.Attribute, q.MinCount, capacity)
		}
		if _, ok := counts[q.Attribute]; ok {
			return nil, fmt.Errorf("duplicate quota attribute %q", q.Attribute)
		}
		counts[q.Attribute] = 0
		attrs = append(attrs, q.Attribute)
	}

	return &Tracker{
		capacity:        capacity,
		rejectionBudget: rejectionBudget,
		quotas:          quotas,
		quotaAttrs:      attrs,
		counts:          counts,
	}, nil
}

// Record applies a decision for a candidate. Admissions increment the
// total and every quota attribute the candidate carries; rejections
// increment the rejection total. Recording past either bound is an
// invariant violation and errors.
func (t *Tracker) Record(c api.Candidate, admit bool) error {
	if admit {
		if t.admitted >= t.capacity {
			return fmt.Errorf("admission past capacity %d", t.capacity)
		}
		t.admitted++
		carriesQuota := false
		for _, attr := range t.quotaAttrs {
			if c.Attributes[attr] {
				t.counts[attr]++
				carriesQuota = true
			}
		}
		if !carriesQuota {
			t.emptyAdmitted++
		}
		return nil
	}

	if t.rejected >= t.rejectionBudget {
		return fmt.Errorf("rejection past budget %d", t.rejectionBudget)
	}
	t.rejected++
	return nil
}

// Capacity returns the session's admission capacity.
func (t *Tracker) Capacity() int { return t.capacity }

// RejectionBudget returns the session's rejection budget.
func (t *Tracker) RejectionBudget() int { return t.rejectionBudget }

// Admitted returns the total number of admitted candidates.
func (t *Tracker) Admitted() int { return t.admitted }

// Rejected returns the total number of rejected candidates.
func (t *Tracker) Rejected() int { return t.rejected }

// Count returns the number of admitted candidates carrying the quota
// attribute.
func (t *Tracker) Count(attr string) int { return t.counts[attr] }

// RemainingCapacity returns how many more candidates can be admitted.
func (t *Tracker) RemainingCapacity() int { return t.capacity - t.admitted }

// RemainingRejections returns how many more candidates can be rejected.
func (t *Tracker) RemainingRejections() int { return t.rejectionBudget - t.rejected }

// Progress returns the fraction of capacity filled, in [0, 1].
func (t *Tracker) Progress() float64 {
	return float64(t.admitted) / float64(t.capacity)
}

// EmptyShare returns the fraction of admitted candidates carrying none
// of the quota attributes. Zero before any admission.
func (t *Tracker) EmptyShare() float64 {
	if t.admitted == 0 {
		return 0
	}
	return float64(t.emptyAdmitted) / float64(t.admitted)
}

// Quotas returns the session's quota set in declaration order.
func (t *Tracker) Quotas() []api.Constraint { return t.quotas }

// AllSatisfied reports whether every quota has reached its minimum.
func (t *Tracker) AllSatisfied() bool {
	for _, q := range t.quotas {
		if t.counts[q.Attribute] < q.MinCount {
			return false
		}
	}
	return true
}

// QuotaResults returns the per-quota state in declaration order.
func (t *Tracker) QuotaResults() []QuotaResult {
	results := make([]QuotaResult, 0, len(t.quotas))
	for _, q := range t.quotas {
		n := t.counts[q.Attribute]
		results = append(results, QuotaResult{
			Attribute: q.Attribute,
			Required:  q.MinCount,
			Actual:    n,
			Satisfied: n >= q.MinCount,
		})
	}
	return results
}
