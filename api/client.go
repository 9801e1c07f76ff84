package api

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/velvetrope/doorman/version"
)

// Client is the HTTP client for the game service. Opening a session and
// submitting decisions are synchronous request/response calls; retries
// and backoff are the caller's responsibility.
type Client struct {
	baseURL    string
	playerID   string
	httpClient *http.Client
}

func httpClient() *http.Client {
	transport := &http.Transport{
		MaxIdleConns:          10,
		IdleConnTimeout:       120 * time.Second,
		TLSHandshakeTimeout:   5 * time.Second,
		ResponseHeaderTimeout: 40 * time.Second,
	}
	return &http.Client{
		Transport: otelhttp.NewTransport(transport),
	}
}

// NewClient creates a game service client. The configuration is
// validated and an invalid one fails fast.
func NewClient(cfg Config) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		playerID:   cfg.PlayerID,
		httpClient: httpClient(),
	}, nil
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out any) error {
	u := c.baseURL + path + "?" + params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	req.Header.Set("User-Agent", "doorman/"+version.Version())

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("game api: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("game api: reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(body))
		if len(msg) > 200 {
			msg = msg[:200]
		}
		return fmt.Errorf("game api: %s: %s", resp.Status, msg)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("game api: decoding response: %w", err)
	}

	return nil
}

// NewGame opens a new session for the given scenario and returns the
// session ID, quotas, and population statistics.
func (c *Client) NewGame(ctx context.Context, scenario int) (*NewGameResponse, error) {
	params := url.Values{
		"scenario": []string{strconv.Itoa(scenario)},
		"playerId": []string{c.playerID},
	}

	var resp NewGameResponse
	if err := c.get(ctx, "/new-game", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.GameID) == 0 {
		return nil, fmt.Errorf("game api: new-game response missing gameId")
	}

	return &resp, nil
}

// DecideAndNext submits the decision for the candidate at personIndex
// and fetches the next candidate. The initial fetch (personIndex 0) is
// made with a nil decision.
func (c *Client) DecideAndNext(ctx context.Context, gameID string, personIndex int, accept *bool) (*DecideResponse, error) {
	params := url.Values{
		"gameId":      []string{gameID},
		"personIndex": []string{strconv.Itoa(personIndex)},
	}
	if accept != nil {
		params.Set("accept", strconv.FormatBool(*accept))
	}

	var resp DecideResponse
	if err := c.get(ctx, "/decide-and-next", params, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}
