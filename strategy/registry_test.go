package strategy

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"

	"github.com/velvetrope/doorman/api"
)

func TestRegistryNames(t *testing.T) {
	names := Names()
	expected := []string{"acceptall", "adaptive", "constraintaware", "random"}
	if len(names) != len(expected) {
		t.Fatalf("Names() = %v", names)
	}
	for i := range expected {
		if names[i] != expected[i] {
			t.Fatalf("Names() = %v, expected %v", names, expected)
		}
	}
}

func TestNewByName(t *testing.T) {
	info := sessionInfo(
		[]api.Constraint{{Attribute: "x", MinCount: 5}},
		map[string]float64{"x": 0.5}, nil)

	for _, name := range Names() {
		s, err := New(name, info, Options{Seed: 1})
		if err != nil {
			t.Fatalf("New(%q): %v", name, err)
		}
		if s.Name() != name {
			t.Errorf("strategy %q reports name %q", name, s.Name())
		}
	}

	if _, err := New("bouncer", info, Options{}); err == nil {
		t.Error("expected error for unknown strategy")
	}
	if _, err := Factory("bouncer", Options{}); err == nil {
		t.Error("expected error for unknown strategy factory")
	}
	if _, err := New("random", info, Options{Seed: 1, RandomRate: 1.5}); err == nil {
		t.Error("expected error for random rate outside [0,1]")
	}
}

func TestFactoryBuildsPerSession(t *testing.T) {
	info := sessionInfo(
		[]api.Constraint{{Attribute: "x", MinCount: 5}},
		map[string]float64{"x": 0.5}, nil)

	factory, err := Factory("adaptive", Options{Seed: 7})
	if err != nil {
		t.Fatal(err)
	}

	first, err := factory(info)
	if err != nil {
		t.Fatal(err)
	}
	second, err := factory(info)
	if err != nil {
		t.Fatal(err)
	}
	if first == second {
		t.Error("factory returned the same instance twice")
	}
}

func TestMetricsTrackDecisions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewMetrics(reg)

	info := sessionInfo(
		[]api.Constraint{{Attribute: "x", MinCount: 5}},
		map[string]float64{"x": 0.5}, nil)

	s, err := NewAdaptive(info, DefaultToleranceConfig(), lowRand(), nil, m)
	if err != nil {
		t.Fatal(err)
	}
	tr := newTracker(t, 10, 100, []api.Constraint{{Attribute: "x", MinCount: 5}})

	c := api.Candidate{Attributes: map[string]bool{"x": true}}
	if !s.Decide(c, tr) {
		t.Fatal("bootstrap admission expected")
	}

	got := testutil.ToFloat64(m.Decisions.WithLabelValues("adaptive", "admit", "bootstrap"))
	if got != 1 {
		t.Errorf("bootstrap admit counter = %v, expected 1", got)
	}

	m.TrackDecision("adaptive", false, "capacity")
	got = testutil.ToFloat64(m.Decisions.WithLabelValues("adaptive", "reject", "capacity"))
	if got != 1 {
		t.Errorf("reject counter = %v, expected 1", got)
	}
}
