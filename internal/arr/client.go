// Package arr is a small client for the Sonarr/Radarr-style v3 REST API:
// reachability, catalog listing, and commands. All clients share one
// retrying *http.Client (see [NewHTTPClient]).
package arr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

const (
	pathStatus  = "/api/v3/system/status"
	pathSeries  = "/api/v3/series"
	pathMovies  = "/api/v3/movie"
	pathCommand = "/api/v3/command"

	// HeaderAPIKey carries the service API key.
	HeaderAPIKey = "X-Api-Key"

	maxErrorBody = 512
)

// StatusError is a non-2xx response from a service.
type StatusError struct {
	Service    string
	Method     string
	Path       string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	msg := fmt.Sprintf("%s: %s %s: HTTP %d %s", e.Service, e.Method, e.Path, e.StatusCode, http.StatusText(e.StatusCode))
	if e.Body != "" {
		msg += ": " + e.Body
	}
	return msg
}

// Temporary reports whether the status was a transient one (retries were
// exhausted).
func (e *StatusError) Temporary() bool { return IsRetryableStatus(e.StatusCode) }

// SystemStatus is the subset of /system/status used for reachability.
type SystemStatus struct {
	AppName string `json:"appName"`
	Version string `json:"version"`
}

// CatalogItem is one series or movie in a service catalog.
type CatalogItem struct {
	ID    int    `json:"id"`
	Title string `json:"title"`
}

// Command is the body of POST /api/v3/command.
type Command struct {
	Name     string `json:"name"`
	SeriesID int    `json:"seriesId,omitempty"`
	MovieID  int    `json:"movieId,omitempty"`
}

// CommandResult is the queued command echoed back by the service.
type CommandResult struct {
	ID     int    `json:"id"`
	Name   string `json:"name"`
	Status string `json:"status"`
}

// Client talks to one service.
type Client struct {
	Name    string
	BaseURL string
	APIKey  string
	HTTP    *http.Client
}

// NewClient returns a client for the service at baseURL.
func NewClient(name, baseURL, apiKey string, hc *http.Client) *Client {
	if hc == nil {
		hc = NewHTTPClient(ClientConfig{Retry: DefaultRetryPolicy()})
	}
	return &Client{
		Name:    name,
		BaseURL: strings.TrimRight(baseURL, "/"),
		APIKey:  apiKey,
		HTTP:    hc,
	}
}

// Status fetches /system/status. Any error means the service is unreachable.
func (c *Client) Status(ctx context.Context) (*SystemStatus, error) {
	var s SystemStatus
	if err := c.do(ctx, http.MethodGet, pathStatus, nil, &s); err != nil {
		return nil, err
	}
	return &s, nil
}

// Series lists the Sonarr series catalog.
func (c *Client) Series(ctx context.Context) ([]CatalogItem, error) {
	var items []CatalogItem
	err := c.do(ctx, http.MethodGet, pathSeries, nil, &items)
	return items, err
}

// Movies lists the Radarr movie catalog.
func (c *Client) Movies(ctx context.Context) ([]CatalogItem, error) {
	var items []CatalogItem
	err := c.do(ctx, http.MethodGet, pathMovies, nil, &items)
	return items, err
}

// Command queues cmd on the service.
func (c *Client) Command(ctx context.Context, cmd Command) (*CommandResult, error) {
	var res CommandResult
	if err := c.do(ctx, http.MethodPost, pathCommand, cmd, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("%s: encode request: %w", c.Name, err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.BaseURL+path, body)
	if err != nil {
		return fmt.Errorf("%s: build request: %w", c.Name, err)
	}
	req.Header.Set(HeaderAPIKey, c.APIKey)
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("%s: %s %s: %w", c.Name, method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return &StatusError{
			Service:    c.Name,
			Method:     method,
			Path:       path,
			StatusCode: resp.StatusCode,
			Body:       strings.TrimSpace(string(snippet)),
		}
	}

	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("%s: decode %s: %w", c.Name, path, err)
	}
	return nil
}
