// Package summ uploads a scan report to the summarization service and
// opens the summary it returns.
package summ

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/pkg/browser"
)

// ErrNoDownloadURL is returned when the service response has no
// download_url.
var ErrNoDownloadURL = errors.New("summ: download_url not found in the response")

// ErrNotJSON is returned for report paths without a .json extension.
var ErrNotJSON = errors.New("summ: the file must have a .json extension")

// Client posts reports to the summarization endpoint.
type Client struct {
	endpoint string
	apiKey   string
	http     *http.Client
	open     func(url string) error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

// WithOpener replaces the function used to open the returned URL.
func WithOpener(open func(url string) error) Option {
	return func(c *Client) {
		c.open = open
	}
}

// NewClient creates a Client for endpoint. apiKey is sent as x-api-key when
// non-empty.
func NewClient(endpoint, apiKey string, opts ...Option) *Client {
	c := &Client{
		endpoint: endpoint,
		apiKey:   apiKey,
		http:     &http.Client{Timeout: 60 * time.Second},
		open:     browser.OpenURL,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type response struct {
	DownloadURL string `json:"download_url"`
}

// ReadReport validates and parses a report file. The file must exist, have a
// .json extension and hold valid JSON.
func ReadReport(path string) (json.RawMessage, error) {
	full, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("summ: resolving %s: %w", path, err)
	}
	if _, err := os.Stat(full); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("summ: file not found: %s", full)
		}
		return nil, fmt.Errorf("summ: %w", err)
	}
	if strings.ToLower(filepath.Ext(path)) != ".json" {
		return nil, ErrNotJSON
	}

	data, err := os.ReadFile(full)
	if err != nil {
		return nil, fmt.Errorf("summ: failed to read the JSON file: %w", err)
	}
	if !json.Valid(data) {
		return nil, fmt.Errorf("summ: failed to parse the JSON file: %s", full)
	}
	return json.RawMessage(data), nil
}

// Summarize posts body and returns the download URL from the response.
func (c *Client) Summarize(ctx context.Context, body json.RawMessage) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("summ: building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-api-key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("summ: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		io.Copy(io.Discard, resp.Body)
		return "", fmt.Errorf("summ: request failed: HTTP error! Status: %d", resp.StatusCode)
	}

	var out response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("summ: decoding response: %w", err)
	}
	if out.DownloadURL == "" {
		return "", ErrNoDownloadURL
	}
	return out.DownloadURL, nil
}

// Run reads the report at path, summarizes it and opens the result. It
// returns the opened URL.
func (c *Client) Run(ctx context.Context, path string) (string, error) {
	body, err := ReadReport(path)
	if err != nil {
		return "", err
	}
	url, err := c.Summarize(ctx, body)
	if err != nil {
		return "", err
	}
	if err := c.open(url); err != nil {
		return url, fmt.Errorf("summ: opening %s: %w", url, err)
	}
	return url, nil
}
