package carbon

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/02loveslollipop/carbon-intensity-tracker/services/tracker/models"
)

const (
	// DefaultBaseURL is the public National Grid ESO carbon intensity API.
	DefaultBaseURL = "https://api.carbonintensity.org.uk"

	intensityTodayPath = "/intensity/date"
	generationPath     = "/generation"
)

// Client issues unauthenticated GET requests against the carbon intensity API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient returns a client for baseURL. A nil httpClient falls back to http.DefaultClient.
func NewClient(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// BaseURL reports the upstream base URL the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// TodayIntensity retrieves today's half-hourly intensity readings.
func (c *Client) TodayIntensity(ctx context.Context) (models.IntensityResponse, error) {
	var payload models.IntensityResponse
	if err := c.getJSON(ctx, intensityTodayPath, &payload); err != nil {
		return models.IntensityResponse{}, err
	}
	return payload, nil
}

// GenerationMix retrieves the current generation mix.
func (c *Client) GenerationMix(ctx context.Context) (models.GenerationResponse, error) {
	var payload models.GenerationResponse
	if err := c.getJSON(ctx, generationPath, &payload); err != nil {
		return models.GenerationResponse{}, err
	}
	return payload, nil
}

func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("request %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("request %s: unexpected status %s", path, resp.Status)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
