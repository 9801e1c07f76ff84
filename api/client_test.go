package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"valid_https", Config{BaseURL: "https://example.com", PlayerID: "p1"}, false},
		{"valid_http", Config{BaseURL: "http://127.0.0.1:8080", PlayerID: "p1"}, false},
		{"missing_player", Config{BaseURL: "https://example.com"}, true},
		{"bad_scheme", Config{BaseURL: "ftp://example.com", PlayerID: "p1"}, true},
		{"no_scheme", Config{BaseURL: "example.com", PlayerID: "p1"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestClientNewGame(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/new-game" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("scenario") != "2" {
			t.Errorf("scenario = %q, expected 2", q.Get("scenario"))
		}
		if q.Get("playerId") != "p1" {
			t.Errorf("playerId = %q, expected p1", q.Get("playerId"))
		}
		if ua := r.Header.Get("User-Agent"); !strings.HasPrefix(ua, "doorman/") {
			t.Errorf("User-Agent = %q", ua)
		}

		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{
			"gameId": "g-123",
			"constraints": [{"attribute": "young", "minCount": 600}],
			"attributeStatistics": {
				"relativeFrequencies": {"young": 0.32},
				"correlations": {"young": {"well_dressed": 0.18}}
			}
		}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, PlayerID: "p1"})
	if err != nil {
		t.Fatal(err)
	}

	resp, err := c.NewGame(context.Background(), 2)
	if err != nil {
		t.Fatalf("NewGame: %v", err)
	}
	if resp.GameID != "g-123" {
		t.Errorf("GameID = %q", resp.GameID)
	}
	if len(resp.Constraints) != 1 || resp.Constraints[0].Attribute != "young" || resp.Constraints[0].MinCount != 600 {
		t.Errorf("constraints = %+v", resp.Constraints)
	}
	if f := resp.AttributeStatistics.Frequency("young"); f != 0.32 {
		t.Errorf("Frequency(young) = %v", f)
	}
	if corr := resp.AttributeStatistics.Correlation("young", "well_dressed"); corr != 0.18 {
		t.Errorf("Correlation = %v", corr)
	}
}

func TestClientNewGameMissingGameID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"constraints": []}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, PlayerID: "p1"})
	if err != nil {
		t.Fatal(err)
	}

	if _, err := c.NewGame(context.Background(), 1); err == nil {
		t.Error("expected error for response without gameId")
	}
}

func TestClientDecideAndNext(t *testing.T) {
	var gotAccept, gotIndex string
	var hadAccept bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/decide-and-next" {
			t.Errorf("path = %q", r.URL.Path)
		}
		q := r.URL.Query()
		if q.Get("gameId") != "g-123" {
			t.Errorf("gameId = %q", q.Get("gameId"))
		}
		gotIndex = q.Get("personIndex")
		_, hadAccept = q["accept"]
		gotAccept = q.Get("accept")

		w.Write([]byte(`{
			"status": "running",
			"admittedCount": 3,
			"rejectedCount": 7,
			"nextPerson": {"personIndex": 11, "attributes": {"young": true}}
		}`))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, PlayerID: "p1"})
	if err != nil {
		t.Fatal(err)
	}

	// Initial fetch: no accept parameter at all.
	resp, err := c.DecideAndNext(context.Background(), "g-123", 0, nil)
	if err != nil {
		t.Fatalf("DecideAndNext: %v", err)
	}
	if hadAccept {
		t.Error("initial fetch must not carry an accept parameter")
	}
	if gotIndex != "0" {
		t.Errorf("personIndex = %q, expected 0", gotIndex)
	}
	if resp.Status != GameRunning || resp.AdmittedCount != 3 || resp.RejectedCount != 7 {
		t.Errorf("response = %+v", resp)
	}
	if resp.NextPerson == nil || resp.NextPerson.PersonIndex != 11 || !resp.NextPerson.Has("young") {
		t.Errorf("nextPerson = %+v", resp.NextPerson)
	}

	accept := false
	if _, err := c.DecideAndNext(context.Background(), "g-123", 11, &accept); err != nil {
		t.Fatalf("DecideAndNext: %v", err)
	}
	if !hadAccept || gotAccept != "false" {
		t.Errorf("accept = %q (present %v), expected false", gotAccept, hadAccept)
	}
	if gotIndex != "11" {
		t.Errorf("personIndex = %q, expected 11", gotIndex)
	}
}

func TestClientNon200Error(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "unknown game", http.StatusNotFound)
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, PlayerID: "p1"})
	if err != nil {
		t.Fatal(err)
	}

	_, err = c.DecideAndNext(context.Background(), "nope", 0, nil)
	if err == nil {
		t.Fatal("expected error on 404")
	}
	if !strings.Contains(err.Error(), "404") || !strings.Contains(err.Error(), "unknown game") {
		t.Errorf("error = %v, expected status and body", err)
	}
}

func TestCandidateHasAnyOf(t *testing.T) {
	c := Candidate{Attributes: map[string]bool{"a": true, "b": false}}
	if !c.HasAnyOf([]string{"b", "a"}) {
		t.Error("expected true for attribute set containing a")
	}
	if c.HasAnyOf([]string{"b", "c"}) {
		t.Error("expected false when no attribute is carried")
	}
	if (Candidate{}).HasAnyOf([]string{"a"}) {
		t.Error("expected false for nil attribute map")
	}
}

func TestAttributeStatisticsDefaults(t *testing.T) {
	var s AttributeStatistics
	if f := s.Frequency("unknown"); f != 0.5 {
		t.Errorf("Frequency(unknown) = %v, expected 0.5", f)
	}
	if corr := s.Correlation("a", "b"); corr != 0 {
		t.Errorf("Correlation on empty stats = %v, expected 0", corr)
	}
}
