package source

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/rs/zerolog"
)

// ClientConfig holds settings for the upstream data source clients.
type ClientConfig struct {
	HTTPTimeout time.Duration
	RetryMax    int
}

// Client pulls source data from the FHIR and document-intelligence
// collaborators. Both are treated as opaque JSON producers.
type Client struct {
	httpClient *http.Client
	log        zerolog.Logger
}

// NewClient creates a source data client with retrying HTTP transport.
func NewClient(config ClientConfig, log zerolog.Logger) *Client {
	if config.HTTPTimeout == 0 {
		config.HTTPTimeout = 30 * time.Second
	}
	if config.RetryMax == 0 {
		config.RetryMax = 3
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = config.RetryMax
	retryClient.HTTPClient = &http.Client{Timeout: config.HTTPTimeout}
	retryClient.Logger = nil

	return &Client{
		httpClient: retryClient.StandardClient(),
		log:        log.With().Str("component", "source_client").Logger(),
	}
}

// FetchFHIR retrieves a FHIR resource and flattens it into source fields.
func (c *Client) FetchFHIR(ctx context.Context, url string) ([]SourceField, error) {
	raw, err := c.getJSON(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch FHIR resource: %w", err)
	}

	fields, err := FlattenFHIR(raw)
	if err != nil {
		return nil, err
	}

	c.log.Debug().
		Str("url", url).
		Int("fields", len(fields)).
		Msg("Flattened FHIR resource into source fields")

	return fields, nil
}

// FetchOCR retrieves a document analysis result and flattens it into source
// fields carrying the extractor's confidence.
func (c *Client) FetchOCR(ctx context.Context, url string) ([]SourceField, error) {
	raw, err := c.getJSON(ctx, url)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch OCR result: %w", err)
	}

	var result OCRResult
	if err := json.Unmarshal(raw, &result); err != nil {
		return nil, fmt.Errorf("failed to parse OCR result: %w", err)
	}

	fields := FlattenOCR(result)
	c.log.Debug().
		Str("url", url).
		Int("fields", len(fields)).
		Msg("Flattened OCR result into source fields")

	return fields, nil
}

func (c *Client) getJSON(ctx context.Context, url string) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Add("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("HTTP request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("server returned status %d: %s", resp.StatusCode, string(body))
	}

	return body, nil
}
