package handler

import (
	"net/http"

	"exposure-server/internal/service"
	"exposure-server/shared/models"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type startRequest struct {
	InitialDistress int `json:"initial_distress" binding:"required"`
}

type ratingRequest struct {
	Distress int `json:"distress" binding:"required"`
}

// advanceRequest may omit distress, in which case the submitted rating is used.
type advanceRequest struct {
	Distress *int `json:"distress"`
}

type regressRequest struct {
	TargetStage int `json:"target_stage" binding:"required"`
}

type playbackRateRequest struct {
	Delta float64 `json:"delta" binding:"required"`
}

type playbackRateResponse struct {
	Rate float64 `json:"rate"`
}

type feedbackRequest struct {
	Helpfulness    int    `json:"helpfulness"`
	Comfort        int    `json:"comfort"`
	Difficulty     int    `json:"difficulty"`
	Improvement    string `json:"improvement"`
	WouldRecommend bool   `json:"would_recommend"`
	Comments       string `json:"comments"`
}

// SessionHandler exposes the session engines over HTTP.
type SessionHandler struct {
	registry *service.SessionRegistry
	logger   *zap.Logger
}

func NewSessionHandler(registry *service.SessionRegistry, logger *zap.Logger) *SessionHandler {
	return &SessionHandler{
		registry: registry,
		logger:   logger.Named("SessionHandler"),
	}
}

// RegisterRoutes mounts the session API. limit guards the mutating routes.
func (h *SessionHandler) RegisterRoutes(router *gin.Engine, limit ...gin.HandlerFunc) {
	api := router.Group("/api/v1")

	sessions := api.Group("/sessions/:patientId")
	{
		sessions.GET("/snapshot", h.getSnapshot)

		mutating := sessions.Group("", limit...)
		mutating.POST("/start", h.start)
		mutating.POST("/rating", h.submitRating)
		mutating.POST("/advance", h.advance)
		mutating.POST("/regress", h.regress)
		mutating.POST("/exit", h.exit)
		mutating.POST("/retry", h.retry)
		mutating.POST("/feedback", h.submitFeedback)
		mutating.POST("/playback/toggle", h.togglePlayback)
		mutating.POST("/playback/rate", h.changePlaybackRate)
		mutating.POST("/playback/finished", h.playbackFinished)
	}

	api.GET("/rewards/:patientId", h.getRewards)
}

// @Summary Start a session
// @Description Starts a new run with the initial distress rating and returns the first chapter.
// @Tags sessions
// @Accept json
// @Produce json
// @Param patientId path string true "Patient ID"
// @Param request body startRequest true "Initial distress (10..100, step 10)"
// @Success 200 {object} models.SessionSnapshot
// @Failure 400 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /sessions/{patientId}/start [post]
func (h *SessionHandler) start(c *gin.Context) {
	var req startRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}
	engine, err := h.registry.GetOrCreate(c.Request.Context(), c.Param("patientId"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	if err := engine.Start(c.Request.Context(), models.DistressRating(req.InitialDistress)); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, engine.Snapshot())
}

// @Summary Submit a distress rating
// @Description Records the distress rating of the active chapter, which unlocks advancing.
// @Tags sessions
// @Accept json
// @Produce json
// @Param patientId path string true "Patient ID"
// @Param request body ratingRequest true "Distress rating"
// @Success 200 {object} models.SessionSnapshot
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{patientId}/rating [post]
func (h *SessionHandler) submitRating(c *gin.Context) {
	var req ratingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}
	h.withEngine(c, func(engine *service.SessionEngine) error {
		return engine.SubmitRating(models.DistressRating(req.Distress))
	})
}

// @Summary Advance to the next chapter
// @Description Completes the active chapter. Requires a submitted rating for the chapter.
// @Tags sessions
// @Accept json
// @Produce json
// @Param patientId path string true "Patient ID"
// @Param request body advanceRequest false "Distress rating, defaults to the submitted one"
// @Success 200 {object} models.SessionSnapshot
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /sessions/{patientId}/advance [post]
func (h *SessionHandler) advance(c *gin.Context) {
	var req advanceRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			badRequest(c, "Invalid request data: "+err.Error())
			return
		}
	}
	h.withEngine(c, func(engine *service.SessionEngine) error {
		var distress models.DistressRating
		if req.Distress != nil {
			distress = models.DistressRating(*req.Distress)
		} else if current := engine.Snapshot().Run.CurrentDistress; current != nil {
			distress = *current
		} else {
			return models.ErrRatingRequired
		}
		return engine.Advance(c.Request.Context(), distress)
	})
}

// @Summary Go back to an earlier chapter
// @Tags sessions
// @Accept json
// @Produce json
// @Param patientId path string true "Patient ID"
// @Param request body regressRequest true "Target stage"
// @Success 200 {object} models.SessionSnapshot
// @Failure 400 {object} ErrorResponse
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /sessions/{patientId}/regress [post]
func (h *SessionHandler) regress(c *gin.Context) {
	var req regressRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}
	h.withEngine(c, func(engine *service.SessionEngine) error {
		return engine.Regress(c.Request.Context(), req.TargetStage)
	})
}

// @Summary Exit the session
// @Description Abandons the run. An outstanding chapter request is discarded when it returns.
// @Tags sessions
// @Produce json
// @Param patientId path string true "Patient ID"
// @Success 200 {object} models.SessionSnapshot
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{patientId}/exit [post]
func (h *SessionHandler) exit(c *gin.Context) {
	h.withEngine(c, func(engine *service.SessionEngine) error {
		return engine.Exit(c.Request.Context())
	})
}

// @Summary Retry the last failed operation
// @Tags sessions
// @Produce json
// @Param patientId path string true "Patient ID"
// @Success 200 {object} models.SessionSnapshot
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /sessions/{patientId}/retry [post]
func (h *SessionHandler) retry(c *gin.Context) {
	h.withEngine(c, func(engine *service.SessionEngine) error {
		return engine.Retry(c.Request.Context())
	})
}

// @Summary Get the session snapshot
// @Tags sessions
// @Produce json
// @Param patientId path string true "Patient ID"
// @Success 200 {object} models.SessionSnapshot
// @Router /sessions/{patientId}/snapshot [get]
func (h *SessionHandler) getSnapshot(c *gin.Context) {
	engine, err := h.registry.GetOrCreate(c.Request.Context(), c.Param("patientId"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, engine.Snapshot())
}

// @Summary Submit post-session feedback
// @Tags sessions
// @Accept json
// @Produce json
// @Param patientId path string true "Patient ID"
// @Param request body feedbackRequest true "Questionnaire, scores 1..5"
// @Success 201 {object} models.SessionFeedback
// @Failure 400 {object} ErrorResponse
// @Failure 502 {object} ErrorResponse
// @Router /sessions/{patientId}/feedback [post]
func (h *SessionHandler) submitFeedback(c *gin.Context) {
	var req feedbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}
	engine, err := h.registry.GetOrCreate(c.Request.Context(), c.Param("patientId"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	sent, err := engine.SubmitFeedback(c.Request.Context(), models.SessionFeedback{
		Helpfulness:    req.Helpfulness,
		Comfort:        req.Comfort,
		Difficulty:     req.Difficulty,
		Improvement:    req.Improvement,
		WouldRecommend: req.WouldRecommend,
		Comments:       req.Comments,
	})
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusCreated, sent)
}

// @Summary Toggle narration playback
// @Tags playback
// @Produce json
// @Param patientId path string true "Patient ID"
// @Success 200 {object} models.SessionSnapshot
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{patientId}/playback/toggle [post]
func (h *SessionHandler) togglePlayback(c *gin.Context) {
	h.withEngine(c, func(engine *service.SessionEngine) error {
		return engine.TogglePlayback()
	})
}

// @Summary Change the narration rate
// @Tags playback
// @Accept json
// @Produce json
// @Param patientId path string true "Patient ID"
// @Param request body playbackRateRequest true "Rate delta, e.g. 0.25 or -0.25"
// @Success 200 {object} playbackRateResponse
// @Failure 404 {object} ErrorResponse
// @Router /sessions/{patientId}/playback/rate [post]
func (h *SessionHandler) changePlaybackRate(c *gin.Context) {
	var req playbackRateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "Invalid request data: "+err.Error())
		return
	}
	engine, err := h.registry.Get(c.Param("patientId"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, playbackRateResponse{Rate: engine.ChangePlaybackRate(req.Delta)})
}

// @Summary Report that narration reached its end
// @Tags playback
// @Produce json
// @Param patientId path string true "Patient ID"
// @Success 200 {object} models.SessionSnapshot
// @Failure 404 {object} ErrorResponse
// @Failure 409 {object} ErrorResponse
// @Router /sessions/{patientId}/playback/finished [post]
func (h *SessionHandler) playbackFinished(c *gin.Context) {
	h.withEngine(c, func(engine *service.SessionEngine) error {
		return engine.PlaybackFinished()
	})
}

// @Summary Get the reward ledger of a patient
// @Tags rewards
// @Produce json
// @Param patientId path string true "Patient ID"
// @Success 200 {object} models.RewardState
// @Failure 500 {object} ErrorResponse
// @Router /rewards/{patientId} [get]
func (h *SessionHandler) getRewards(c *gin.Context) {
	rewards, err := h.registry.Rewards(c.Request.Context(), c.Param("patientId"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, rewards)
}

// withEngine runs op on an existing engine and answers with the resulting snapshot.
func (h *SessionHandler) withEngine(c *gin.Context, op func(*service.SessionEngine) error) {
	engine, err := h.registry.Get(c.Param("patientId"))
	if err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	if err := op(engine); err != nil {
		handleServiceError(c, h.logger, err)
		return
	}
	c.JSON(http.StatusOK, engine.Snapshot())
}
