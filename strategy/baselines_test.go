package strategy

import (
	"testing"

	"github.com/velvetrope/doorman/api"
)

func TestAcceptAllStopsAtCapacity(t *testing.T) {
	s := &AcceptAll{}
	tr := newTracker(t, 2, 10, nil)

	c := api.Candidate{}
	if !s.Decide(c, tr) {
		t.Error("expected admission with capacity remaining")
	}
	for i := 0; i < 2; i++ {
		if err := tr.Record(c, true); err != nil {
			t.Fatal(err)
		}
	}
	if s.Decide(c, tr) {
		t.Error("expected rejection at full capacity")
	}
}

func TestRandomRespectsRate(t *testing.T) {
	tr := newTracker(t, 10, 10, nil)
	c := api.Candidate{}

	never := &Random{rate: 0, rng: lowRand()}
	if never.Decide(c, tr) {
		t.Error("rate 0 must reject")
	}

	always := &Random{rate: 1, rng: lowRand()}
	if !always.Decide(c, tr) {
		t.Error("rate 1 with a zero draw must admit")
	}
}

func TestNewConstraintAwareValidation(t *testing.T) {
	info := sessionInfo(
		[]api.Constraint{{Attribute: "x", MinCount: 5}},
		map[string]float64{"x": 0.5}, nil)

	if _, err := NewConstraintAware(info, -0.1, nil); err == nil {
		t.Error("expected error for negative margin")
	}
	if _, err := NewConstraintAware(info, 1.5, nil); err == nil {
		t.Error("expected error for margin above 1")
	}
	if _, err := NewConstraintAware(info, 0.1, nil); err != nil {
		t.Errorf("valid margin rejected: %v", err)
	}
}

func TestConstraintAwareDecisions(t *testing.T) {
	constraints := []api.Constraint{{Attribute: "x", MinCount: 8}}
	info := sessionInfo(constraints, map[string]float64{"x": 0.5}, nil)

	s, err := NewConstraintAware(info, 0.1, nil)
	if err != nil {
		t.Fatal(err)
	}

	withX := api.Candidate{Attributes: map[string]bool{"x": true}}
	withoutX := api.Candidate{Attributes: map[string]bool{"y": true}}

	// Fresh session: the carrier is needed, the non-carrier would eat
	// capacity the 8-count deficit cannot spare (8 > 9 * 0.8).
	tr := newTracker(t, 9, 100, constraints)
	if !s.Decide(withX, tr) {
		t.Error("carrier of a needed attribute rejected")
	}
	if s.Decide(withoutX, tr) {
		t.Error("non-carrier admitted despite urgent deficit")
	}
}

func TestConstraintAwareDefaultAdmit(t *testing.T) {
	constraints := []api.Constraint{{Attribute: "x", MinCount: 2}}
	info := sessionInfo(constraints, map[string]float64{"x": 0.5}, nil)

	// Margin 0.1 over a minimum of 2 still targets 2; once two carriers
	// are in, the quota stops influencing decisions.
	s, err := NewConstraintAware(info, 0.1, nil)
	if err != nil {
		t.Fatal(err)
	}

	tr := newTracker(t, 10, 100, constraints)
	withX := api.Candidate{Attributes: map[string]bool{"x": true}}
	for i := 0; i < 2; i++ {
		if err := tr.Record(withX, true); err != nil {
			t.Fatal(err)
		}
	}

	withoutX := api.Candidate{Attributes: map[string]bool{"y": true}}
	if !s.Decide(withoutX, tr) {
		t.Error("expected default admission with quota satisfied")
	}
	if !s.Decide(withX, tr) {
		t.Error("expected default admission for carrier past target")
	}
}

func TestConstraintAwareNoQuotas(t *testing.T) {
	s, err := NewConstraintAware(sessionInfo(nil, nil, nil), 0.1, nil)
	if err != nil {
		t.Fatal(err)
	}

	tr := newTracker(t, 2, 10, nil)
	if !s.Decide(api.Candidate{}, tr) {
		t.Error("expected admission with no quotas and capacity remaining")
	}
	for i := 0; i < 2; i++ {
		if err := tr.Record(api.Candidate{}, true); err != nil {
			t.Fatal(err)
		}
	}
	if s.Decide(api.Candidate{}, tr) {
		t.Error("expected rejection at full capacity")
	}
}
