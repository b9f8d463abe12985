// Package report posts occupancy to a downstream collector as CSV.
package report

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/ironsheep/parkspot-mcp/internal/occupancy"
)

// Client posts occupancy records to a fixed URL.
type Client struct {
	url        string
	httpClient *http.Client
}

// NewClient creates a client for url.
func NewClient(url string, timeout time.Duration) *Client {
	return &Client{
		url:        url,
		httpClient: &http.Client{Timeout: timeout},
	}
}

// URL returns the collector endpoint.
func (c *Client) URL() string {
	return c.url
}

// Post sends records as a text/csv body with the header lot_id,spot_id,taken.
// Any non-2xx response is an error.
func (c *Client) Post(ctx context.Context, records []occupancy.Record) error {
	var body bytes.Buffer
	if err := occupancy.WriteCSV(&body, records); err != nil {
		return fmt.Errorf("encode csv: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, &body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/csv")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("post occupancy: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("post occupancy: status %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
	return nil
}
