package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"exposure-server/shared/models"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestHandleServiceError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name      string
		err       error
		status    int
		code      string
		retryable bool
	}{
		{"rating required", models.ErrRatingRequired, http.StatusBadRequest, ErrCodeRatingRequired, false},
		{"invalid distress", fmt.Errorf("%w: got 5", models.ErrInvalidDistress), http.StatusBadRequest, ErrCodeInvalidDistress, false},
		{"invalid stage", models.ErrInvalidStage, http.StatusBadRequest, ErrCodeInvalidStage, false},
		{"invalid input", models.ErrInvalidInput, http.StatusBadRequest, ErrCodeBadRequest, false},
		{"in flight", models.ErrOperationInFlight, http.StatusConflict, ErrCodeInFlight, false},
		{"transition", models.ErrInvalidTransition, http.StatusConflict, ErrCodeInvalidTransition, false},
		{"nothing to retry", models.ErrNothingToRetry, http.StatusConflict, ErrCodeNothingToRetry, false},
		{"stale", models.ErrStaleResponse, http.StatusConflict, ErrCodeStale, true},
		{"no audio", models.ErrNoAudio, http.StatusConflict, ErrCodePlayback, false},
		{"no session", fmt.Errorf("%w: p-9", models.ErrNoSession), http.StatusNotFound, ErrCodeNoSession, false},
		{"scenario", &models.ScenarioError{Message: "model overloaded"}, http.StatusBadGateway, ErrCodeScenario, true},
		{"network", fmt.Errorf("%w: timeout", models.ErrNetwork), http.StatusBadGateway, ErrCodeUpstream, true},
		{"malformed", models.ErrMalformedResponse, http.StatusBadGateway, ErrCodeUpstream, true},
		{"unknown", errors.New("boom"), http.StatusInternalServerError, ErrCodeInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodPost, "/", nil)

			handleServiceError(c, zap.NewNop(), tt.err)

			assert.Equal(t, tt.status, w.Code)
			var resp ErrorResponse
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
			assert.Equal(t, tt.code, resp.Code)
			assert.Equal(t, tt.retryable, resp.Retryable)
			if tt.status == http.StatusInternalServerError {
				assert.NotContains(t, resp.Message, "boom")
			}
		})
	}
}
