package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"exposure-server/shared/interfaces"
	"exposure-server/shared/models"
	"exposure-server/shared/utils"

	"go.uber.org/zap"
)

// Compile-time check to ensure implementation satisfies the interface.
var _ interfaces.ScenarioClient = (*HTTPScenarioClient)(nil)

const (
	startScenarioPath    = "/api/start-scenario"
	nextScenarioPath     = "/api/next-scenario"
	previousScenarioPath = "/api/previous-scenario"
	audioPathPrefix      = "/static/audio/"

	statusSuccess = "success"
	statusDone    = "done"
	statusError   = "error"

	maxErrorBodyBytes = 512
)

// HTTPScenarioClient calls the narrative generation backend over JSON/HTTP.
type HTTPScenarioClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// NewHTTPScenarioClient creates a client for the backend at baseURL (e.g. "http://story-backend:5000").
func NewHTTPScenarioClient(baseURL string, timeout time.Duration, logger *zap.Logger) *HTTPScenarioClient {
	return &HTTPScenarioClient{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		logger:     logger.Named("HTTPScenarioClient"),
	}
}

type scenarioRequestBody struct {
	PatientID     string               `json:"patient_id"`
	InitialSUD    *int                 `json:"initial_sud,omitempty"`
	CurrentSUD    *int                 `json:"current_sud,omitempty"`
	TargetStage   *int                 `json:"target_stage,omitempty"`
	ScenarioState models.ScenarioState `json:"scenario_state,omitempty"`
}

type scenarioResponseBody struct {
	Status  string `json:"status"`
	Stage   int    `json:"stage"`
	Message string `json:"message"`
	Result  *struct {
		Story     string `json:"story"`
		AudioFile string `json:"audio_file"`
	} `json:"result"`
	ScenarioState models.ScenarioState `json:"scenario_state"`
}

// Start requests the first chapter of a new session.
func (c *HTTPScenarioClient) Start(ctx context.Context, req models.StartScenarioRequest) (*models.ScenarioResult, error) {
	sud := int(req.InitialDistress)
	return c.call(ctx, startScenarioPath, scenarioRequestBody{
		PatientID:  req.PatientID,
		InitialSUD: &sud,
	})
}

// Advance requests the chapter following the given scenario state.
func (c *HTTPScenarioClient) Advance(ctx context.Context, req models.AdvanceScenarioRequest) (*models.ScenarioResult, error) {
	sud := int(req.CurrentDistress)
	return c.call(ctx, nextScenarioPath, scenarioRequestBody{
		PatientID:     req.PatientID,
		CurrentSUD:    &sud,
		ScenarioState: req.ScenarioState,
	})
}

// Regress requests an earlier chapter.
func (c *HTTPScenarioClient) Regress(ctx context.Context, req models.RegressScenarioRequest) (*models.ScenarioResult, error) {
	target := req.TargetStage
	return c.call(ctx, previousScenarioPath, scenarioRequestBody{
		PatientID:     req.PatientID,
		TargetStage:   &target,
		ScenarioState: req.ScenarioState,
	})
}

func (c *HTTPScenarioClient) call(ctx context.Context, path string, body scenarioRequestBody) (*models.ScenarioResult, error) {
	log := c.logger.With(zap.String("path", path), zap.String("patientID", body.PatientID))

	jsonData, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scenario request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(jsonData))
	if err != nil {
		return nil, fmt.Errorf("failed to create scenario request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Warn("Scenario backend unreachable", zap.Error(err))
		return nil, fmt.Errorf("%w: scenario backend %s: %v", models.ErrNetwork, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read scenario response: %v", models.ErrNetwork, err)
	}
	log.Debug("Scenario backend answered", zap.Int("status_code", resp.StatusCode), zap.Duration("latency", time.Since(start)))

	var payload scenarioResponseBody
	decodeErr := json.Unmarshal(raw, &payload)

	if resp.StatusCode >= http.StatusInternalServerError {
		return nil, fmt.Errorf("%w: scenario backend returned status %d: %s", models.ErrNetwork, resp.StatusCode, truncate(raw))
	}
	if resp.StatusCode != http.StatusOK {
		if decodeErr == nil && payload.Message != "" {
			return nil, &models.ScenarioError{Message: payload.Message}
		}
		return nil, &models.ScenarioError{Message: fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(raw))}
	}
	if decodeErr != nil {
		log.Warn("Failed to decode scenario response", zap.Error(decodeErr))
		return nil, fmt.Errorf("%w: %v", models.ErrMalformedResponse, decodeErr)
	}

	return c.toResult(payload)
}

func (c *HTTPScenarioClient) toResult(payload scenarioResponseBody) (*models.ScenarioResult, error) {
	switch payload.Status {
	case statusDone:
		return &models.ScenarioResult{Outcome: models.ScenarioOutcomeDone}, nil
	case statusError:
		return nil, &models.ScenarioError{Message: payload.Message}
	case statusSuccess:
	default:
		return nil, fmt.Errorf("%w: unknown status %q", models.ErrMalformedResponse, payload.Status)
	}

	if payload.Stage < 1 {
		return nil, fmt.Errorf("%w: stage %d", models.ErrMalformedResponse, payload.Stage)
	}
	if payload.Result == nil || strings.TrimSpace(payload.Result.Story) == "" {
		return nil, fmt.Errorf("%w: chapter %d has no narrative", models.ErrMalformedResponse, payload.Stage)
	}

	chapter := &models.Chapter{
		Stage:         payload.Stage,
		NarrativeText: payload.Result.Story,
		ScenarioState: payload.ScenarioState,
	}
	if payload.Result.AudioFile != "" {
		audio := c.audioURL(payload.Result.AudioFile)
		chapter.AudioReference = &audio
	}
	return &models.ScenarioResult{Outcome: models.ScenarioOutcomeChapter, Chapter: chapter}, nil
}

// audioURL resolves a bare file name against the backend's static audio directory.
func (c *HTTPScenarioClient) audioURL(file string) string {
	if strings.HasPrefix(file, "http://") || strings.HasPrefix(file, "https://") {
		return file
	}
	return c.baseURL + audioPathPrefix + strings.TrimPrefix(file, "/")
}

func truncate(raw []byte) string {
	return utils.StringShort(strings.TrimSpace(string(raw)), maxErrorBodyBytes)
}
