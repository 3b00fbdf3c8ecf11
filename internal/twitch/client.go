package twitch

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// maxLoginsPerRequest is the Helix limit on user_login filters per call.
const maxLoginsPerRequest = 100

// Stream represents a live stream as reported by the Helix streams endpoint.
type Stream struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	UserLogin    string    `json:"user_login"`
	UserName     string    `json:"user_name"`
	GameID       string    `json:"game_id"`
	GameName     string    `json:"game_name"`
	Type         string    `json:"type"`
	Title        string    `json:"title"`
	ViewerCount  int       `json:"viewer_count"`
	StartedAt    time.Time `json:"started_at"`
	Language     string    `json:"language"`
	ThumbnailURL string    `json:"thumbnail_url"`
}

// DisplayName returns the streamer's display name, falling back to the login.
func (s Stream) DisplayName() string {
	if strings.TrimSpace(s.UserName) != "" {
		return s.UserName
	}
	return s.UserLogin
}

// Category returns the stream's game name, or "uncategorized" when Helix
// reports none.
func (s Stream) Category() string {
	if strings.TrimSpace(s.GameName) == "" {
		return "uncategorized"
	}
	return s.GameName
}

// ResolveThumbnailURL expands the {width}x{height} placeholders in the
// stream's thumbnail template.
func (s Stream) ResolveThumbnailURL(width, height int) string {
	replaced := strings.ReplaceAll(s.ThumbnailURL, "{width}", strconv.Itoa(width))
	return strings.ReplaceAll(replaced, "{height}", strconv.Itoa(height))
}

type streamsResponse struct {
	Data       []Stream `json:"data"`
	Pagination struct {
		Cursor string `json:"cursor"`
	} `json:"pagination"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int    `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// Client provides access to the Twitch Helix API using an app access token.
type Client struct {
	clientID     string
	clientSecret string
	baseURL      string
	authURL      string
	httpClient   *http.Client

	token tokenCache
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a Helix client.
func New(clientID, clientSecret, baseURL, authURL string, opts ...Option) (*Client, error) {
	clientID = strings.TrimSpace(clientID)
	if clientID == "" {
		return nil, errors.New("twitch client id required")
	}
	clientSecret = strings.TrimSpace(clientSecret)
	if clientSecret == "" {
		return nil, errors.New("twitch client secret required")
	}
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("twitch base url required")
	}
	authURL = strings.TrimSpace(authURL)
	if authURL == "" {
		return nil, errors.New("twitch auth url required")
	}
	client := &Client{
		clientID:     clientID,
		clientSecret: clientSecret,
		baseURL:      strings.TrimRight(baseURL, "/"),
		authURL:      authURL,
		httpClient:   &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// LiveStreams returns the currently live streams among the supplied logins.
// Logins that are offline simply do not appear in the result. Lookups are
// batched to respect the Helix per-request login limit.
func (c *Client) LiveStreams(ctx context.Context, logins []string) ([]Stream, error) {
	cleaned := make([]string, 0, len(logins))
	for _, login := range logins {
		login = strings.ToLower(strings.TrimSpace(login))
		if login != "" {
			cleaned = append(cleaned, login)
		}
	}
	if len(cleaned) == 0 {
		return nil, errors.New("at least one login required")
	}

	var streams []Stream
	for start := 0; start < len(cleaned); start += maxLoginsPerRequest {
		end := start + maxLoginsPerRequest
		if end > len(cleaned) {
			end = len(cleaned)
		}
		batch, err := c.fetchStreams(ctx, cleaned[start:end])
		if err != nil {
			return nil, err
		}
		streams = append(streams, batch...)
	}
	return streams, nil
}

func (c *Client) fetchStreams(ctx context.Context, logins []string) ([]Stream, error) {
	endpoint, err := url.Parse(c.baseURL + "/streams")
	if err != nil {
		return nil, fmt.Errorf("parse helix url: %w", err)
	}
	params := url.Values{}
	for _, login := range logins {
		params.Add("user_login", login)
	}
	params.Set("first", strconv.Itoa(maxLoginsPerRequest))
	endpoint.RawQuery = params.Encode()

	body, err := c.doAuthorized(ctx, endpoint.String())
	if err != nil {
		return nil, err
	}

	var payload streamsResponse
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode helix response: %w", err)
	}
	return payload.Data, nil
}

// doAuthorized executes an authenticated GET. A 401 invalidates the cached
// token and the request is retried once with a fresh one.
func (c *Client) doAuthorized(ctx context.Context, endpoint string) ([]byte, error) {
	body, status, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}
	if status == http.StatusUnauthorized {
		c.token.invalidate()
		body, status, err = c.get(ctx, endpoint)
		if err != nil {
			return nil, err
		}
	}
	if status != http.StatusOK {
		return nil, fmt.Errorf("helix request returned %d", status)
	}
	return body, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, int, error) {
	token, err := c.accessToken(ctx)
	if err != nil {
		return nil, 0, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, 0, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Client-Id", c.clientID)
	req.Header.Set("Authorization", "Bearer "+token)

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return nil, 0, fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	body, err := readBody(resp)
	if err != nil {
		return nil, 0, err
	}
	return body, resp.StatusCode, nil
}
