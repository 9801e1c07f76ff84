package api

// Candidate is one person in the arrival stream, tagged with boolean
// attributes. Candidates are immutable once observed.
type Candidate struct {
	PersonIndex int             `json:"personIndex"`
	Attributes  map[string]bool `json:"attributes"`
}

// Has reports whether the candidate carries the attribute.
func (c Candidate) Has(attr string) bool {
	return c.Attributes[attr]
}

// HasAnyOf reports whether the candidate carries any of the given attributes.
func (c Candidate) HasAnyOf(attrs []string) bool {
	for _, attr := range attrs {
		if c.Attributes[attr] {
			return true
		}
	}
	return false
}

// Constraint is a required minimum count of admitted candidates
// carrying a specific attribute.
type Constraint struct {
	Attribute string `json:"attribute"`
	MinCount  int    `json:"minCount"`
}

// AttributeStatistics holds the population statistics the service
// provides at session start. Read-only for the session's duration.
type AttributeStatistics struct {
	RelativeFrequencies map[string]float64            `json:"relativeFrequencies"`
	Correlations        map[string]map[string]float64 `json:"correlations"`
}

// Frequency returns the relative frequency of the attribute. An unknown
// attribute defaults to 0.5 (maximum uncertainty).
func (s AttributeStatistics) Frequency(attr string) float64 {
	if f, ok := s.RelativeFrequencies[attr]; ok {
		return f
	}
	return 0.5
}

// Correlation returns the pairwise correlation coefficient for two
// attributes, or 0 when the pair is not in the statistics.
func (s AttributeStatistics) Correlation(a, b string) float64 {
	if m, ok := s.Correlations[a]; ok {
		return m[b]
	}
	return 0
}

// GameStatus is the session status as reported by the service.
type GameStatus string

const (
	GameRunning   GameStatus = "running"
	GameCompleted GameStatus = "completed"
	GameFailed    GameStatus = "failed"
)

// NewGameResponse is the response to opening a session.
type NewGameResponse struct {
	GameID              string              `json:"gameId"`
	Constraints         []Constraint        `json:"constraints"`
	AttributeStatistics AttributeStatistics `json:"attributeStatistics"`
}

// DecideResponse is the response to submitting a decision (or to the
// initial fetch). NextPerson is nil when the stream has ended.
type DecideResponse struct {
	Status        GameStatus `json:"status"`
	AdmittedCount int        `json:"admittedCount"`
	RejectedCount int        `json:"rejectedCount"`
	NextPerson    *Candidate `json:"nextPerson,omitempty"`
}
