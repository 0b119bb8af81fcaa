package embedding

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"time"
)

// AllMinilmL6V2 talks to a text-embeddings-inference service hosting the
// all-MiniLM-L6-v2 model. Transient failures are retried with exponential
// backoff before giving up.
type AllMinilmL6V2 struct {
	BaseURL    string
	HTTPClient *http.Client
	maxRetries int
	baseDelay  time.Duration
}

func NewAllMinilmL6V2(baseURL string) *AllMinilmL6V2 {
	return &AllMinilmL6V2{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		maxRetries: 5,
		baseDelay:  100 * time.Millisecond,
	}
}

func (c *AllMinilmL6V2) ModelType() string { return ModelTypeSentenceTransformer }
func (c *AllMinilmL6V2) ModelName() string { return "all-MiniLM-L6-v2" }

func (c *AllMinilmL6V2) GetEmbeddings(ctx context.Context, texts []string) ([][]float32, error) {
	var lastErr error

	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		vec, err := c.embedOnce(ctx, texts)
		if err == nil {
			return vec, nil
		}

		lastErr = err

		// Don't wait after the last attempt
		if attempt < c.maxRetries {
			delay := c.backoffDelay(attempt)

			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
	}

	return nil, lastErr
}

func (c *AllMinilmL6V2) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	reqBody := EmbeddingRequest{
		Inputs: texts,
	}
	jsonData, err := json.Marshal(reqBody)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/embed", bytes.NewBuffer(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("embedding service returned status %d: %s", resp.StatusCode, string(body))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	var embeddings EmbeddingResponse
	if err := json.Unmarshal(body, &embeddings); err != nil {
		return nil, fmt.Errorf("failed to unmarshal response: %w", err)
	}

	return embeddings, nil
}

func (c *AllMinilmL6V2) backoffDelay(attempt int) time.Duration {
	// Exponential backoff: baseDelay * 2^attempt with some jitter
	delay := float64(c.baseDelay) * math.Pow(2, float64(attempt))

	// Add up to 25% jitter to avoid thundering herd
	jitter := delay * 0.25 * (0.5 - (float64(time.Now().UnixNano()%1000) / 1000))

	return time.Duration(delay + jitter)
}
