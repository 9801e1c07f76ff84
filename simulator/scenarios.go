package simulator

import "github.com/velvetrope/doorman/api"

// Scenario describes one game configuration: capacity, rejection
// budget, quotas and the population the simulator draws candidates
// from.
type Scenario struct {
	ID              int
	Capacity        int
	RejectionBudget int
	Constraints     []api.Constraint
	Statistics      api.AttributeStatistics
}

// BuiltinScenarios returns the three standard game configurations.
func BuiltinScenarios() map[int]Scenario {
	return map[int]Scenario{
		1: {
			ID:              1,
			Capacity:        1000,
			RejectionBudget: 20000,
			Constraints: []api.Constraint{
				{Attribute: "young", MinCount: 600},
				{Attribute: "well_dressed", MinCount: 600},
			},
			Statistics: api.AttributeStatistics{
				RelativeFrequencies: map[string]float64{
					"young":        0.3225,
					"well_dressed": 0.3225,
				},
				Correlations: map[string]map[string]float64{
					"young":        {"well_dressed": 0.18},
					"well_dressed": {"young": 0.18},
				},
			},
		},
		2: {
			ID:              2,
			Capacity:        1000,
			RejectionBudget: 20000,
			Constraints: []api.Constraint{
				{Attribute: "techno_lover", MinCount: 650},
				{Attribute: "well_connected", MinCount: 450},
				{Attribute: "creative", MinCount: 300},
				{Attribute: "berlin_local", MinCount: 750},
			},
			Statistics: api.AttributeStatistics{
				RelativeFrequencies: map[string]float64{
					"techno_lover":   0.627,
					"well_connected": 0.470,
					"creative":       0.062,
					"berlin_local":   0.398,
				},
				Correlations: map[string]map[string]float64{
					"techno_lover": {
						"well_connected": -0.47, "creative": 0.09, "berlin_local": -0.65,
					},
					"well_connected": {
						"techno_lover": -0.47, "creative": 0.14, "berlin_local": 0.57,
					},
					"creative": {
						"techno_lover": 0.09, "well_connected": 0.14, "berlin_local": 0.27,
					},
					"berlin_local": {
						"techno_lover": -0.65, "well_connected": 0.57, "creative": 0.27,
					},
				},
			},
		},
		3: {
			ID:              3,
			Capacity:        1000,
			RejectionBudget: 20000,
			Constraints: []api.Constraint{
				{Attribute: "underground_veteran", MinCount: 500},
				{Attribute: "international", MinCount: 650},
				{Attribute: "fashion_forward", MinCount: 550},
				{Attribute: "queer_friendly", MinCount: 250},
				{Attribute: "vinyl_collector", MinCount: 200},
				{Attribute: "german_speaker", MinCount: 800},
			},
			Statistics: api.AttributeStatistics{
				RelativeFrequencies: map[string]float64{
					"underground_veteran": 0.6794,
					"international":       0.5735,
					"fashion_forward":     0.6910,
					"queer_friendly":      0.0404,
					"vinyl_collector":     0.0445,
					"german_speaker":      0.4565,
				},
				Correlations: map[string]map[string]float64{
					"underground_veteran": {
						"international": -0.08, "fashion_forward": -0.02,
						"queer_friendly": 0.03, "vinyl_collector": 0.10, "german_speaker": 0.22,
					},
					"international": {
						"underground_veteran": -0.08, "fashion_forward": 0.38,
						"queer_friendly": 0.01, "vinyl_collector": -0.17, "german_speaker": -0.72,
					},
					"fashion_forward": {
						"underground_veteran": -0.02, "international": 0.38,
						"queer_friendly": 0.01, "vinyl_collector": -0.18, "german_speaker": -0.36,
					},
					"queer_friendly": {
						"underground_veteran": 0.03, "international": 0.01,
						"fashion_forward": 0.01, "vinyl_collector": 0.05, "german_speaker": 0.04,
					},
					"vinyl_collector": {
						"underground_veteran": 0.10, "international": -0.17,
						"fashion_forward": -0.18, "queer_friendly": 0.05, "german_speaker": 0.10,
					},
					"german_speaker": {
						"underground_veteran": 0.22, "international": -0.72,
						"fashion_forward": -0.36, "queer_friendly": 0.04, "vinyl_collector": 0.10,
					},
				},
			},
		},
	}
}
