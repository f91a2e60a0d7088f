package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"exposure-server/shared/interfaces"
	"exposure-server/shared/models"

	"go.uber.org/zap"
)

var _ interfaces.MediaResolver = (*HTTPMediaResolver)(nil)

const mediaSuggestionsPath = "/api/media-suggestions"

// HTTPMediaResolver asks a remote service for contextual media.
type HTTPMediaResolver struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPMediaResolver creates a resolver for the service at baseURL.
func NewHTTPMediaResolver(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPMediaResolver {
	return &HTTPMediaResolver{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("HTTPMediaResolver"),
	}
}

type mediaResponseBody struct {
	Status      string `json:"status"`
	Message     string `json:"message"`
	Suggestions *struct {
		Image string `json:"image"`
		Video string `json:"video"`
		Sound string `json:"sound"`
	} `json:"suggestions"`
}

// Resolve posts the chapter narrative and maps the suggestions onto the chapter's stage.
func (r *HTTPMediaResolver) Resolve(ctx context.Context, req models.MediaRequest) (*models.MediaSuggestion, error) {
	jsonData, err := json.Marshal(map[string]string{"narrative_text": req.NarrativeText})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal media request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL+mediaSuggestionsPath, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create media request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: media service: %v", models.ErrNetwork, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		r.logger.Warn("Media service returned non-OK status", zap.Int("status_code", resp.StatusCode), zap.Int("stage", req.Stage))
		return nil, fmt.Errorf("%w: media service returned status %d", models.ErrNetwork, resp.StatusCode)
	}

	var payload mediaResponseBody
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedResponse, err)
	}
	if payload.Status != statusSuccess {
		return nil, &models.ScenarioError{Message: payload.Message}
	}

	suggestion := &models.MediaSuggestion{Stage: req.Stage}
	if payload.Suggestions != nil {
		suggestion.Image = optional(payload.Suggestions.Image)
		suggestion.Video = optional(payload.Suggestions.Video)
		suggestion.Sound = optional(payload.Suggestions.Sound)
	}
	return suggestion, nil
}

func optional(value string) *string {
	if strings.TrimSpace(value) == "" {
		return nil
	}
	return &value
}
