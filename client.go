package bytrofront

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	retry "github.com/avast/retry-go/v4"
	"github.com/pkg/errors"
)

const (
	gameStateActionClass = "ultshared.action.UltUpdateGameStateAction"
	gameLoginActionClass = "ultshared.action.UltLoginAction"
	gameClientName       = "s1914-client-ultimate"
	gameClientResolution = "1920x1080"
)

// Client talks to the signed web API and, via per-game capability tokens,
// to the individual game servers. Endpoint groups are exposed as facades.
type Client struct {
	provider   ConfigProvider
	httpClient *http.Client
	retry      bool
	retryDelay time.Duration
	cacheSize  int

	Users     *UserApi
	Games     *GameApi
	Alliances *AllianceApi
	Util      *UtilApi
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithRetry enables a single retry of signed requests after a fixed delay.
func WithRetry() Option {
	return func(c *Client) { c.retry = true }
}

// WithRetryDelay overrides the fixed delay before the retry attempt.
func WithRetryDelay(d time.Duration) Option {
	return func(c *Client) { c.retryDelay = d }
}

// WithTokenCache enables LRU caching of game tokens on the games facade.
// Tokens are capabilities with no lifecycle of their own; caching is purely
// a facade convenience.
func WithTokenCache(size int) Option {
	return func(c *Client) { c.cacheSize = size }
}

// New creates a client reading its session configuration from provider.
func New(provider ConfigProvider, options ...Option) *Client {
	c := &Client{
		provider:   provider,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		retryDelay: 5 * time.Second,
	}
	for _, option := range options {
		option(c)
	}

	c.Users = newUserApi(c)
	c.Games = newGameApi(c, c.cacheSize)
	c.Alliances = newAllianceApi(c)
	c.Util = newUtilApi(c)
	return c
}

// NewWithConfig creates a client around a fixed configuration.
func NewWithConfig(cfg *Config, options ...Option) *Client {
	return New(NewStaticProvider(cfg), options...)
}

// SendRequest signs and sends one action against the web API. Transport
// failures and non-2xx statuses surface as errors; business failures come
// back inside the ApiResult.
func (c *Client) SendRequest(ctx context.Context, action string, data *Payload) (*ApiResult, error) {
	cfg, err := c.provider.Config(ctx)
	if err != nil {
		return nil, err
	}

	prepared, err := PrepareRequest(action, data, cfg)
	if err != nil {
		return nil, err
	}

	attempts := uint(1)
	if c.retry {
		attempts = 2
	}

	var result *ApiResult
	err = retry.Do(
		func() error {
			res, doErr := c.doSigned(ctx, action, prepared)
			if doErr != nil {
				return doErr
			}
			result = res
			return nil
		},
		retry.Context(ctx),
		retry.Attempts(attempts),
		retry.Delay(c.retryDelay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (c *Client) doSigned(ctx context.Context, action string, prepared *PreparedRequest) (*ApiResult, error) {
	req, err := http.NewRequestWithContext(ctx, prepared.Method, prepared.URL, strings.NewReader(prepared.Body))
	if err != nil {
		return nil, errors.Wrapf(err, "building request for action %q", action)
	}
	req.Header.Set("Accept", "*/*")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")
	req.Header.Set("X-Requested-With", "XMLHttpRequest")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "calling action %q", action)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("action %q: unexpected status %s", action, resp.Status)
	}

	return decodeResult(resp.Body, action)
}

// gameEnvelope is the fixed action wrapper every game-server call carries.
type gameEnvelope struct {
	RequestID        int          `json:"requestID"`
	Class            string       `json:"@c"`
	Actions          []gameAction `json:"actions"`
	LastCallDuration int          `json:"lastCallDuration"`
	Client           string       `json:"client"`
	SiteUserID       int          `json:"siteUserID"`
	AdminLevel       int          `json:"adminLevel"`
	GameID           int64        `json:"gameID"`
	PlayerID         int          `json:"playerID"`
	StateType        int          `json:"stateType"`
	Option           *int         `json:"option"`
	Rights           string       `json:"rights"`
	UserAuth         string       `json:"userAuth"`
	Tstamp           json.Number  `json:"tstamp"`
}

type gameAction struct {
	RequestID  string `json:"requestID"`
	Class      string `json:"@c"`
	Resolution string `json:"resolution"`
}

// SendGameRequest posts one state request to a game server. These calls are
// not signed; they authenticate with the capability token fields carried in
// params.
func (c *Client) SendGameRequest(ctx context.Context, gameID int64, params GameRequest) (*ApiResult, error) {
	envelope := gameEnvelope{
		RequestID: 0,
		Class:     gameStateActionClass,
		Actions: []gameAction{{
			RequestID:  "actionReq-1",
			Class:      gameLoginActionClass,
			Resolution: gameClientResolution,
		}},
		Client:    gameClientName,
		GameID:    gameID,
		StateType: params.StateID,
		Option:    params.Option,
		Rights:    params.Rights,
		UserAuth:  params.UserAuth,
		Tstamp:    params.Tstamp,
	}

	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, errors.Wrap(err, "encoding game request")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost,
		"https://"+params.GameServer+"/", bytes.NewReader(body))
	if err != nil {
		return nil, errors.Wrapf(err, "building request for game server %q", params.GameServer)
	}
	// The game servers expect a form content type even though the body is
	// the JSON envelope.
	req.Header.Set("Accept", "text/plain, */*; q=0.01")
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded; charset=UTF-8")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, errors.Wrapf(err, "calling game server %q", params.GameServer)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, errors.Errorf("game server %q: unexpected status %s", params.GameServer, resp.Status)
	}

	return decodeResult(resp.Body, "game state "+params.GameServer)
}

func decodeResult(r io.Reader, what string) (*ApiResult, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, errors.Wrapf(err, "reading response for %s", what)
	}
	var result ApiResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, errors.Wrapf(err, "decoding response for %s", what)
	}
	return &result, nil
}
