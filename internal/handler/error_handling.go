package handler

import (
	"errors"
	"net/http"

	"exposure-server/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

const (
	ErrCodeBadRequest        = "bad_request"
	ErrCodeRatingRequired    = "rating_required"
	ErrCodeInvalidDistress   = "invalid_distress"
	ErrCodeInvalidStage      = "invalid_stage"
	ErrCodeInvalidTransition = "invalid_transition"
	ErrCodeInFlight          = "operation_in_flight"
	ErrCodeNothingToRetry    = "nothing_to_retry"
	ErrCodeNoSession         = "no_session"
	ErrCodeStale             = "stale_response"
	ErrCodeScenario          = "scenario_error"
	ErrCodeUpstream          = "upstream_unavailable"
	ErrCodePlayback          = "playback_unavailable"
	ErrCodeInternal          = "internal_error"
)

// ErrorResponse is the JSON body of every failed request.
type ErrorResponse struct {
	Code      string `json:"code"`
	Message   string `json:"message"`
	Retryable bool   `json:"retryable,omitempty"`
}

func handleServiceError(c *gin.Context, logger *zap.Logger, err error) {
	var statusCode int
	errResp := ErrorResponse{Message: err.Error(), Retryable: models.IsRetryable(err)}
	var scenarioErr *models.ScenarioError

	switch {
	case errors.Is(err, models.ErrRatingRequired):
		statusCode, errResp.Code = http.StatusBadRequest, ErrCodeRatingRequired
		errResp.Message = models.ErrRatingRequired.Error()
	case errors.Is(err, models.ErrInvalidDistress):
		statusCode, errResp.Code = http.StatusBadRequest, ErrCodeInvalidDistress
	case errors.Is(err, models.ErrInvalidStage):
		statusCode, errResp.Code = http.StatusBadRequest, ErrCodeInvalidStage
	case errors.Is(err, models.ErrInvalidInput), errors.Is(err, models.ErrBadRequest):
		statusCode, errResp.Code = http.StatusBadRequest, ErrCodeBadRequest
	case errors.Is(err, models.ErrOperationInFlight):
		statusCode, errResp.Code = http.StatusConflict, ErrCodeInFlight
	case errors.Is(err, models.ErrInvalidTransition):
		statusCode, errResp.Code = http.StatusConflict, ErrCodeInvalidTransition
	case errors.Is(err, models.ErrNothingToRetry):
		statusCode, errResp.Code = http.StatusConflict, ErrCodeNothingToRetry
	case errors.Is(err, models.ErrStaleResponse):
		statusCode, errResp.Code = http.StatusConflict, ErrCodeStale
	case errors.Is(err, models.ErrNoAudio), errors.Is(err, models.ErrPlaybackUnavailable):
		statusCode, errResp.Code = http.StatusConflict, ErrCodePlayback
	case errors.Is(err, models.ErrNoSession), errors.Is(err, models.ErrNotFound):
		statusCode, errResp.Code = http.StatusNotFound, ErrCodeNoSession
	case errors.As(err, &scenarioErr):
		statusCode, errResp.Code = http.StatusBadGateway, ErrCodeScenario
	case errors.Is(err, models.ErrNetwork), errors.Is(err, models.ErrMalformedResponse):
		statusCode, errResp.Code = http.StatusBadGateway, ErrCodeUpstream
	default:
		logger.Error("Unhandled internal error", zap.String("path", c.FullPath()), zap.Error(err))
		statusCode, errResp.Code = http.StatusInternalServerError, ErrCodeInternal
		errResp.Message = "An unexpected internal error occurred"
	}

	c.AbortWithStatusJSON(statusCode, errResp)
}

func badRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorResponse{Code: ErrCodeBadRequest, Message: message})
}
