package mlclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/ledgermap/ledgermap_backend/internal/apperrors"
	"github.com/ledgermap/ledgermap_backend/internal/core/domain"
	portssvc "github.com/ledgermap/ledgermap_backend/internal/core/ports/services"
)

// Client calls the external account classification service over HTTP.
// One request per line, no retries; callers already degrade to rules and
// history when the classifier is unavailable.
type Client struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

// New creates a classifier client. The timeout bounds each classification
// call independently of the surrounding batch deadline.
func New(baseURL, apiKey string, timeout time.Duration) *Client {
	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		apiKey:     apiKey,
		httpClient: &http.Client{Timeout: timeout},
	}
}

var _ portssvc.ClassifierClient = (*Client)(nil)

// Classify asks the model for candidate accounts for one line.
func (c *Client) Classify(ctx context.Context, req domain.ClassifierRequest) (*domain.ClassifierPrediction, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("failed to encode classifier request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/classify", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to build classifier request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: classifier request failed: %v", apperrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return nil, fmt.Errorf("%w: classifier returned status %d", apperrors.ErrUpstream, resp.StatusCode)
	}

	var prediction domain.ClassifierPrediction
	if err := json.NewDecoder(resp.Body).Decode(&prediction); err != nil {
		return nil, fmt.Errorf("%w: failed to decode classifier response: %v", apperrors.ErrUpstream, err)
	}
	return &prediction, nil
}
