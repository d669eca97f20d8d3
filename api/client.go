package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

const deviceIDHeader = "X-Device-ID"

// deviceIDInjector is an http.RoundTripper that stamps the registered
// device id onto every backend request.
type deviceIDInjector struct {
	deviceID string
	next     http.RoundTripper
}

func (t *deviceIDInjector) RoundTrip(req *http.Request) (*http.Response, error) {
	req.Header.Set(deviceIDHeader, t.deviceID)
	return t.next.RoundTrip(req)
}

// Client is the shared HTTP client for the call backend. Every request
// carries the device id and a bounded timeout so a dead backend reads as a
// failure instead of a hang.
type Client struct {
	HTTPClient *http.Client
	baseURL    string
}

func NewClient(baseURL, deviceID string) *Client {
	transport := &deviceIDInjector{
		deviceID: deviceID,
		next:     http.DefaultTransport,
	}
	return &Client{
		HTTPClient: &http.Client{
			Timeout:   10 * time.Second,
			Transport: transport,
		},
		baseURL: baseURL,
	}
}

// BaseURL returns the configured backend root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// postJSON sends in as a JSON body and, when out is non-nil, decodes the
// response into it. Non-2xx statuses are errors.
func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	body, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("marshal %s payload: %w", path, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create %s request: %w", path, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%s responded with status %s", path, resp.Status)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}
