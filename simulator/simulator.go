// Package simulator implements the game service protocol locally, with
// candidates drawn from a scenario's population statistics. It exists
// so strategies can be exercised end-to-end without the remote service.
package simulator

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"net"
	"net/http"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"
	slogecho "github.com/samber/slog-echo"
	"go.opentelemetry.io/contrib/instrumentation/github.com/labstack/echo/otelecho"

	"github.com/velvetrope/doorman/api"
)

type session struct {
	id        string
	sc        Scenario
	rng       *rand.Rand
	attrs     []string
	status    api.GameStatus
	admitted  int
	rejected  int
	current   *api.Candidate
	nextIndex int
}

// Server holds the simulated sessions. Each session owns its own
// random stream derived from the server seed, so a given seed always
// produces the same candidate sequences.
type Server struct {
	log       *slog.Logger
	scenarios map[int]Scenario
	seed      uint64

	mu       sync.Mutex
	sessions map[string]*session
	opened   uint64
}

// New creates a simulator with the built-in scenarios.
func New(log *slog.Logger, seed uint64) *Server {
	return &Server{
		log:       log,
		scenarios: BuiltinScenarios(),
		seed:      seed,
		sessions:  map[string]*session{},
	}
}

// AddScenario registers (or replaces) a scenario. Mostly useful for
// tests and custom experiments.
func (s *Server) AddScenario(sc Scenario) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.scenarios[sc.ID] = sc
}

// Handler returns the HTTP handler implementing the game protocol.
func (s *Server) Handler() http.Handler {
	e := echo.New()
	e.HideBanner = true
	e.Use(otelecho.Middleware("simulator"))
	e.Use(slogecho.New(s.log))

	e.GET("/new-game", s.newGame)
	e.GET("/decide-and-next", s.decideAndNext)

	return e
}

// ListenAndServe runs the simulator until the context is canceled.
func (s *Server) ListenAndServe(ctx context.Context, port int) error {
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      s.Handler(),
		ReadTimeout:  20 * time.Second,
		WriteTimeout: 20 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		srv.Shutdown(shutdownCtx)
	}()

	s.log.Info("simulator listening", "port", port)

	err := srv.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Start serves on an ephemeral localhost port and returns the base URL
// and a stop function. Used by offline experiments and tests.
func (s *Server) Start() (string, func(), error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return "", nil, err
	}

	srv := &http.Server{Handler: s.Handler()}
	go srv.Serve(ln)

	return "http://" + ln.Addr().String(), func() { srv.Close() }, nil
}

func (s *Server) newGame(c echo.Context) error {
	scenarioID, err := strconv.Atoi(c.QueryParam("scenario"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid scenario")
	}
	if len(c.QueryParam("playerId")) == 0 {
		return echo.NewHTTPError(http.StatusBadRequest, "playerId is required")
	}

	sc, ok := s.scenarios[scenarioID]
	if !ok {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("unknown scenario %d", scenarioID))
	}

	attrs := make([]string, 0, len(sc.Statistics.RelativeFrequencies))
	for attr := range sc.Statistics.RelativeFrequencies {
		attrs = append(attrs, attr)
	}
	sort.Strings(attrs)

	s.mu.Lock()
	s.opened++
	sess := &session{
		id:     ulid.Make().String(),
		sc:     sc,
		rng:    rand.New(rand.NewPCG(s.seed, s.seed+s.opened)),
		attrs:  attrs,
		status: api.GameRunning,
	}
	s.sessions[sess.id] = sess
	s.mu.Unlock()

	s.log.Info("session opened", "gameID", sess.id, "scenario", scenarioID)

	return c.JSON(http.StatusOK, api.NewGameResponse{
		GameID:              sess.id,
		Constraints:         sc.Constraints,
		AttributeStatistics: sc.Statistics,
	})
}

func (s *Server) decideAndNext(c echo.Context) error {
	gameID := c.QueryParam("gameId")
	personIndex, err := strconv.Atoi(c.QueryParam("personIndex"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid personIndex")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	sess, ok := s.sessions[gameID]
	if !ok {
		return echo.NewHTTPError(http.StatusNotFound, "unknown game")
	}

	if sess.status != api.GameRunning {
		return c.JSON(http.StatusOK, sess.response())
	}

	acceptParam := c.QueryParam("accept")

	if sess.current == nil {
		// Initial fetch: no decision yet, hand out the first candidate.
		if personIndex != 0 || len(acceptParam) > 0 {
			return echo.NewHTTPError(http.StatusBadRequest, "no decision pending")
		}
		sess.advance()
		return c.JSON(http.StatusOK, sess.response())
	}

	if personIndex != sess.current.PersonIndex {
		return echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("expected personIndex %d", sess.current.PersonIndex))
	}
	accept, err := strconv.ParseBool(acceptParam)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "accept is required")
	}

	// Decisions are irreversible once submitted.
	if accept {
		sess.admitted++
	} else {
		sess.rejected++
	}

	switch {
	case sess.admitted >= sess.sc.Capacity:
		sess.status = api.GameCompleted
		sess.current = nil
	case sess.rejected >= sess.sc.RejectionBudget:
		sess.status = api.GameFailed
		sess.current = nil
	default:
		sess.advance()
	}

	return c.JSON(http.StatusOK, sess.response())
}

func (sess *session) response() *api.DecideResponse {
	return &api.DecideResponse{
		Status:        sess.status,
		AdmittedCount: sess.admitted,
		RejectedCount: sess.rejected,
		NextPerson:    sess.current,
	}
}

func (sess *session) advance() {
	sess.current = &api.Candidate{
		PersonIndex: sess.nextIndex,
		Attributes:  sess.sample(),
	}
	sess.nextIndex++
}

// sample draws one candidate's attributes. Attributes are drawn in
// sorted order; each later attribute's probability is conditioned on
// the earlier draws through the pairwise correlations, so the sampled
// population approximates the advertised statistics.
func (sess *session) sample() map[string]bool {
	stats := sess.sc.Statistics
	out := make(map[string]bool, len(sess.attrs))

	for i, attr := range sess.attrs {
		p := stats.Frequency(attr)

		for _, prior := range sess.attrs[:i] {
			if !out[prior] {
				continue
			}
			corr := stats.Correlation(attr, prior)
			if corr == 0 {
				continue
			}
			fp := stats.Frequency(prior)
			fa := stats.Frequency(attr)
			if fp <= 0 || fp >= 1 || fa <= 0 || fa >= 1 {
				continue
			}
			// P(B|A) for correlated Bernoulli variables.
			p += corr * math.Sqrt(fa*(1-fa)*fp*(1-fp)) / fp
		}

		if p < 0 {
			p = 0
		}
		if p > 1 {
			p = 1
		}
		out[attr] = sess.rng.Float64() < p
	}

	return out
}
