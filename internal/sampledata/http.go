package sampledata

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/okian/gradelens/internal/domain/types"
)

// DefaultTimeout bounds each request when Config.Timeout is zero.
const DefaultTimeout = 30 * time.Second

// Client talks to a gradelens server.
type Client struct {
	client  *http.Client
	baseURL string
}

// NewClient creates a client for baseURL with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
	}
}

// Upload posts a CSV body to /upload and decodes the summary.
func (c *Client) Upload(ctx context.Context, csv []byte) (types.UploadSummary, error) {
	var summary types.UploadSummary

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/upload", bytes.NewReader(csv))
	if err != nil {
		return summary, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "text/csv")

	resp, err := c.client.Do(req)
	if err != nil {
		return summary, fmt.Errorf("upload request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return summary, fmt.Errorf("failed to read upload response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return summary, fmt.Errorf("%w: %d %s", ErrUnexpectedStatus, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.Unmarshal(body, &summary); err != nil {
		return summary, fmt.Errorf("failed to decode upload summary: %w", err)
	}
	return summary, nil
}

// Verify checks that the server accepted every generated record.
func Verify(summary types.UploadSummary, generated int) error {
	if summary.DatasetID == "" {
		return fmt.Errorf("%w: empty dataset id", ErrVerification)
	}
	if summary.Rejected != 0 {
		return fmt.Errorf("%w: %d rows rejected", ErrVerification, summary.Rejected)
	}
	if summary.Accepted != generated {
		return fmt.Errorf("%w: accepted %d of %d rows", ErrVerification, summary.Accepted, generated)
	}
	return nil
}
