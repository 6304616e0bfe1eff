// internal/verify/client.go
// Client for the external news verification oracle.
package verify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"time"
)

var (
	// ErrUnavailable covers network failures and non-2xx responses: the
	// oracle could not be consulted at all, as opposed to the oracle
	// scoring the content poorly.
	ErrUnavailable = errors.New("verification service unavailable")
	// ErrMalformedResponse means the oracle answered but the payload did
	// not match the expected shape.
	ErrMalformedResponse = errors.New("malformed verification response")
)

// Result is the oracle's verdict on a draft. ConfidenceScore is the raw
// value in [0,1]; the submission gate works on the derived percentage.
type Result struct {
	ConfidenceScore float64  `json:"confidence_score"`
	IsVerified      bool     `json:"isVerified"`
	MatchingDetails []string `json:"matching_details"`
	Discrepancies   []string `json:"discrepancies"`
}

// request is the wire shape the oracle expects.
type request struct {
	Headline    string `json:"headline"`
	Description string `json:"description"`
	SourceURL   string `json:"source_url"`
}

// Client issues verification requests. Exactly one attempt per call; no
// retry or backoff.
type Client struct {
	endpoint string
	logger   *log.Logger
	client   *http.Client
}

// NewClient creates a reusable verification client. The endpoint must be
// configured; an empty endpoint is a configuration error.
func NewClient(endpoint string, logger *log.Logger) (*Client, error) {
	if endpoint == "" {
		return nil, errors.New("verification endpoint URL is required")
	}
	return &Client{
		endpoint: endpoint,
		logger:   logger,
		client:   &http.Client{Timeout: 15 * time.Second},
	}, nil
}

// Verify submits the draft to the oracle and returns its structured
// verdict. Input emptiness is the caller's responsibility; this component
// only shapes the request and interprets the response.
func (c *Client) Verify(ctx context.Context, title, description, sourceURL string) (*Result, error) {
	body, err := json.Marshal(request{
		Headline:    title,
		Description: description,
		SourceURL:   sourceURL,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal verification request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("new verification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Printf("Verification request failed: %v", err)
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		// Drain so the connection can be reused.
		io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		c.logger.Printf("Verification service returned status %d", resp.StatusCode)
		return nil, fmt.Errorf("%w: unexpected status %s", ErrUnavailable, resp.Status)
	}

	var result Result
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedResponse, err)
	}
	if result.ConfidenceScore < 0 || result.ConfidenceScore > 1 {
		return nil, fmt.Errorf("%w: confidence_score %v out of range", ErrMalformedResponse, result.ConfidenceScore)
	}

	return &result, nil
}
