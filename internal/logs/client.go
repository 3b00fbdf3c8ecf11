package logs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"streamwatch/internal/api"
)

// ErrAPIUnavailable reports that no daemon is listening on the configured
// bind address.
var ErrAPIUnavailable = errors.New("log API unavailable")

// Client fetches log lines from a running daemon over HTTP.
type Client struct {
	base *url.URL
	http *http.Client
}

// Query selects which log lines to fetch. Tail asks for the last Limit
// lines; otherwise reading resumes from Since.
type Query struct {
	Since  int64
	Limit  int
	Tail   bool
	Follow bool
}

// NewClient builds a client for the daemon bound at bind. An empty bind
// returns a nil client, which Fetch reports as unavailable.
func NewClient(bind string) (*Client, error) {
	bind = strings.TrimSpace(bind)
	if bind == "" {
		return nil, nil
	}
	if !strings.Contains(bind, "://") {
		bind = "http://" + bind
	}
	base, err := url.Parse(bind)
	if err != nil {
		return nil, err
	}
	base.Path = ""
	base.RawQuery = ""
	base.Fragment = ""

	return &Client{
		base: base,
		// No timeout, follow mode blocks server side until lines arrive.
		http: &http.Client{},
	}, nil
}

// Fetch retrieves log lines matching the query from the daemon.
func (c *Client) Fetch(ctx context.Context, q Query) (api.LogTailResponse, error) {
	if c == nil {
		return api.LogTailResponse{}, ErrAPIUnavailable
	}

	values := url.Values{}
	if q.Since > 0 {
		values.Set("since", strconv.FormatInt(q.Since, 10))
	}
	if q.Limit > 0 {
		values.Set("limit", strconv.Itoa(q.Limit))
	}
	if q.Tail {
		values.Set("tail", "1")
	}
	if q.Follow {
		values.Set("follow", "1")
	}

	endpoint := c.base.ResolveReference(&url.URL{Path: "/api/logs", RawQuery: values.Encode()})
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return api.LogTailResponse{}, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return api.LogTailResponse{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return api.LogTailResponse{}, fmt.Errorf("api logs returned status %d", resp.StatusCode)
	}

	var payload api.LogTailResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return api.LogTailResponse{}, err
	}
	return payload, nil
}

// IsAPIUnavailable reports whether err means the daemon could not be
// reached, as opposed to a request that reached it and failed.
func IsAPIUnavailable(err error) bool {
	if err == nil {
		return false
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Err != nil {
		err = urlErr.Err
	}
	var opErr *net.OpError
	return errors.Is(err, ErrAPIUnavailable) || errors.As(err, &opErr)
}
