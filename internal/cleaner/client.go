// Package cleaner talks to the external data-cleaning service that turns an
// uploaded CSV into an ingestion payload.
package cleaner

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"time"

	"github.com/jwulff/sensorviz/internal/dataset"
	"github.com/jwulff/sensorviz/internal/logging"
)

// ErrNotConfigured is returned when no service URL is set.
var ErrNotConfigured = errors.New("cleaning service URL not configured")

// maxResponseBytes bounds the payload read back from the service.
const maxResponseBytes = 256 << 20

// Client is an HTTP client for the cleaning service.
type Client struct {
	URL        string
	HTTPClient *http.Client
	Location   *time.Location
}

// NewClient creates a client posting to url. Naive timestamps in returned
// payloads are read in loc.
func NewClient(url string, loc *time.Location) *Client {
	return &Client{
		URL: url,
		HTTPClient: &http.Client{
			Timeout: 2 * time.Minute,
		},
		Location: loc,
	}
}

// Clean uploads a CSV file and decodes the cleaned dataset. The returned
// dataset carries datasetID.
func (c *Client) Clean(ctx context.Context, datasetID, filename string, csv io.Reader) (*dataset.Dataset, error) {
	if c.URL == "" {
		return nil, ErrNotConfigured
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", filepath.Base(filename))
	if err != nil {
		return nil, fmt.Errorf("failed to create form file: %w", err)
	}
	if _, err := io.Copy(part, csv); err != nil {
		return nil, fmt.Errorf("failed to copy upload: %w", err)
	}
	if err := w.WriteField("datasetId", datasetID); err != nil {
		return nil, fmt.Errorf("failed to write dataset id: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("failed to finish form: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.URL, &body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("clean request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read clean response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("clean failed with status %d: %s", resp.StatusCode, truncate(string(data), 200))
	}

	ds, err := dataset.Decode(data, c.Location)
	if err != nil {
		return nil, fmt.Errorf("failed to decode clean response: %w", err)
	}
	ds.ID = datasetID
	logging.For("cleaner").Info("dataset cleaned",
		"id", datasetID, "rows", ds.Len(), "columns", len(ds.Schema), "elapsed", time.Since(start))
	return ds, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
