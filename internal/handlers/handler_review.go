package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/ledgermap/ledgermap_backend/internal/apperrors"
	portssvc "github.com/ledgermap/ledgermap_backend/internal/core/ports/services"
	"github.com/ledgermap/ledgermap_backend/internal/dto"
	"github.com/ledgermap/ledgermap_backend/internal/middleware"
)

// reviewHandler handles HTTP requests for line inspection and reviewer
// decisions on mapping suggestions.
type reviewHandler struct {
	tbService         portssvc.TrialBalanceSvcFacade
	reviewService     portssvc.ReviewSvc
	suggestionService portssvc.SuggestionSvcFacade
}

// newReviewHandler creates a new reviewHandler.
func newReviewHandler(tbs portssvc.TrialBalanceSvcFacade, rs portssvc.ReviewSvc, ss portssvc.SuggestionSvcFacade) *reviewHandler {
	return &reviewHandler{
		tbService:         tbs,
		reviewService:     rs,
		suggestionService: ss,
	}
}

// registerReviewRoutes registers firm-scoped line and review-decision routes.
func registerReviewRoutes(rg *gin.RouterGroup, tbService portssvc.TrialBalanceSvcFacade, reviewService portssvc.ReviewSvc, suggestionService portssvc.SuggestionSvcFacade) {
	h := newReviewHandler(tbService, reviewService, suggestionService)

	lines := rg.Group("/lines")
	{
		lines.GET("/:line_id", h.getLine)
		lines.GET("/:line_id/suggestions", h.listLineSuggestions)
		lines.GET("/:line_id/preview", h.previewSuggestion)
		lines.POST("/:line_id/confirm", h.confirmSuggestion)
		lines.POST("/:line_id/select-alternative", h.selectAlternative)
		lines.POST("/:line_id/reject", h.rejectSuggestion)
		lines.POST("/:line_id/manual-map", h.manualMap)
		lines.POST("/:line_id/reopen", h.reopenLine)
	}
}

// getLine godoc
// @Summary Get a trial balance line
// @Description Retrieves one line together with its active suggestion and the superseded suggestion chain
// @Tags review
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Param   line_id path string true "Line ID"
// @Success 200 {object} dto.LineDetailResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a member of the firm"
// @Failure 404 {object} map[string]string "Line not found"
// @Failure 500 {object} map[string]string "Failed to retrieve line"
// @Security BearerAuth
// @Router /firms/{firm_id}/lines/{line_id} [get]
func (h *reviewHandler) getLine(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	lineID := c.Param("line_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("firm_id", firmID), slog.String("line_id", lineID))
	logger.Info("Received request to get line")

	detail, err := h.tbService.GetLineByID(c.Request.Context(), firmID, lineID, userID)
	if err != nil {
		h.respondError(c, logger, err, "retrieve line")
		return
	}

	logger.Info("Line retrieved successfully")
	c.JSON(http.StatusOK, detail)
}

// listLineSuggestions godoc
// @Summary List a line's suggestion chain
// @Description Retrieves every suggestion ever produced for a line, newest first, including superseded ones. Superseded suggestions are retained, never overwritten.
// @Tags review
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Param   line_id path string true "Line ID"
// @Success 200 {array} dto.SuggestionResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a member of the firm"
// @Failure 404 {object} map[string]string "Line not found"
// @Failure 500 {object} map[string]string "Failed to list suggestions"
// @Security BearerAuth
// @Router /firms/{firm_id}/lines/{line_id}/suggestions [get]
func (h *reviewHandler) listLineSuggestions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	lineID := c.Param("line_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("firm_id", firmID), slog.String("line_id", lineID))
	logger.Info("Received request to list line suggestions")

	suggestions, err := h.suggestionService.ListSuggestionsByLine(c.Request.Context(), firmID, lineID, userID)
	if err != nil {
		h.respondError(c, logger, err, "list suggestions")
		return
	}

	logger.Info("Line suggestions listed successfully", slog.Int("count", len(suggestions)))
	c.JSON(http.StatusOK, dto.ToListSuggestionsResponse(suggestions))
}

// previewSuggestion godoc
// @Summary Preview what the engine would suggest
// @Description Runs the mapping engine for a single line without persisting anything
// @Tags review
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Param   line_id path string true "Line ID"
// @Success 200 {object} dto.RankedSuggestionResponse
// @Success 204 "No candidate found for this line"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a member of the firm"
// @Failure 404 {object} map[string]string "Line not found"
// @Failure 500 {object} map[string]string "Failed to preview suggestion"
// @Security BearerAuth
// @Router /firms/{firm_id}/lines/{line_id}/preview [get]
func (h *reviewHandler) previewSuggestion(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	lineID := c.Param("line_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("firm_id", firmID), slog.String("line_id", lineID))
	logger.Info("Received request to preview suggestion")

	ranked, err := h.suggestionService.PreviewSuggestion(c.Request.Context(), firmID, lineID, userID)
	if err != nil {
		h.respondError(c, logger, err, "preview suggestion")
		return
	}
	if ranked == nil {
		// No candidate is an expected outcome, not an error.
		logger.Info("No candidate found for line")
		c.Status(http.StatusNoContent)
		return
	}

	logger.Info("Suggestion previewed successfully", slog.String("account_code", ranked.Top.AccountCode))
	c.JSON(http.StatusOK, dto.ToRankedSuggestionResponse(ranked))
}

// confirmSuggestion godoc
// @Summary Confirm the active suggestion
// @Description Accepts the active suggestion's top candidate as the line's mapping and records the decision as a precedent
// @Tags review
// @Accept  json
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Param   line_id path string true "Line ID"
// @Param   request body dto.ConfirmSuggestionRequest true "Expected line version"
// @Success 200 {object} dto.LineResponse
// @Failure 400 {object} map[string]string "Invalid input or illegal transition"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a member of the firm"
// @Failure 404 {object} map[string]string "Line not found"
// @Failure 409 {object} map[string]string "Stale version; reload the line and retry"
// @Failure 500 {object} map[string]string "Failed to confirm suggestion"
// @Security BearerAuth
// @Router /firms/{firm_id}/lines/{line_id}/confirm [post]
func (h *reviewHandler) confirmSuggestion(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	lineID := c.Param("line_id")

	var req dto.ConfirmSuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ConfirmSuggestion", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	reviewerUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Reviewer user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("firm_id", firmID), slog.String("line_id", lineID), slog.String("reviewer_user_id", reviewerUserID))
	logger.Info("Received request to confirm suggestion", slog.Int64("expected_version", req.ExpectedVersion))

	line, err := h.reviewService.ConfirmSuggestion(c.Request.Context(), firmID, lineID, req.ExpectedVersion, reviewerUserID)
	if err != nil {
		h.respondError(c, logger, err, "confirm suggestion")
		return
	}

	logger.Info("Suggestion confirmed successfully", slog.String("mapped_account_code", line.MappedAccountCode))
	c.JSON(http.StatusOK, dto.ToLineResponse(line))
}

// selectAlternative godoc
// @Summary Confirm a listed alternative
// @Description Accepts one of the active suggestion's alternatives instead of the top candidate. The divergence is recorded for quality monitoring.
// @Tags review
// @Accept  json
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Param   line_id path string true "Line ID"
// @Param   request body dto.SelectAlternativeRequest true "Chosen alternative and expected line version"
// @Success 200 {object} dto.LineResponse
// @Failure 400 {object} map[string]string "Invalid input, or account is not a listed alternative"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a member of the firm"
// @Failure 404 {object} map[string]string "Line not found"
// @Failure 409 {object} map[string]string "Stale version; reload the line and retry"
// @Failure 500 {object} map[string]string "Failed to select alternative"
// @Security BearerAuth
// @Router /firms/{firm_id}/lines/{line_id}/select-alternative [post]
func (h *reviewHandler) selectAlternative(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	lineID := c.Param("line_id")

	var req dto.SelectAlternativeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SelectAlternative", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	reviewerUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Reviewer user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("firm_id", firmID), slog.String("line_id", lineID), slog.String("reviewer_user_id", reviewerUserID))
	logger.Info("Received request to select alternative", slog.String("account_code", req.AccountCode))

	line, err := h.reviewService.SelectAlternative(c.Request.Context(), firmID, lineID, req.AccountCode, req.ExpectedVersion, reviewerUserID)
	if err != nil {
		h.respondError(c, logger, err, "select alternative")
		return
	}

	logger.Info("Alternative selected successfully", slog.String("mapped_account_code", line.MappedAccountCode))
	c.JSON(http.StatusOK, dto.ToLineResponse(line))
}

// rejectSuggestion godoc
// @Summary Reject the active suggestion
// @Description Records that no proposed candidate is acceptable and flags the line for manual mapping
// @Tags review
// @Accept  json
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Param   line_id path string true "Line ID"
// @Param   request body dto.RejectSuggestionRequest true "Expected line version and optional feedback"
// @Success 200 {object} dto.LineResponse
// @Failure 400 {object} map[string]string "Invalid input or illegal transition"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a member of the firm"
// @Failure 404 {object} map[string]string "Line not found"
// @Failure 409 {object} map[string]string "Stale version; reload the line and retry"
// @Failure 500 {object} map[string]string "Failed to reject suggestion"
// @Security BearerAuth
// @Router /firms/{firm_id}/lines/{line_id}/reject [post]
func (h *reviewHandler) rejectSuggestion(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	lineID := c.Param("line_id")

	var req dto.RejectSuggestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for RejectSuggestion", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	reviewerUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Reviewer user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("firm_id", firmID), slog.String("line_id", lineID), slog.String("reviewer_user_id", reviewerUserID))
	logger.Info("Received request to reject suggestion")

	line, err := h.reviewService.RejectSuggestion(c.Request.Context(), firmID, lineID, req.ExpectedVersion, req.Feedback, reviewerUserID)
	if err != nil {
		h.respondError(c, logger, err, "reject suggestion")
		return
	}

	logger.Info("Suggestion rejected successfully")
	c.JSON(http.StatusOK, dto.ToLineResponse(line))
}

// manualMap godoc
// @Summary Manually map a line
// @Description Assigns a canonical account chosen by the reviewer, bypassing the engine's candidates
// @Tags review
// @Accept  json
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Param   line_id path string true "Line ID"
// @Param   request body dto.ManualMapRequest true "Target account and expected line version"
// @Success 200 {object} dto.LineResponse
// @Failure 400 {object} map[string]string "Invalid input, unknown or non-leaf target account"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a member of the firm"
// @Failure 404 {object} map[string]string "Line not found"
// @Failure 409 {object} map[string]string "Stale version; reload the line and retry"
// @Failure 500 {object} map[string]string "Failed to map line"
// @Security BearerAuth
// @Router /firms/{firm_id}/lines/{line_id}/manual-map [post]
func (h *reviewHandler) manualMap(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	lineID := c.Param("line_id")

	var req dto.ManualMapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ManualMap", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	reviewerUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Reviewer user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("firm_id", firmID), slog.String("line_id", lineID), slog.String("reviewer_user_id", reviewerUserID))
	logger.Info("Received request to manually map line", slog.String("account_code", req.AccountCode))

	line, err := h.reviewService.ManualMap(c.Request.Context(), firmID, lineID, req.AccountCode, req.ExpectedVersion, reviewerUserID)
	if err != nil {
		h.respondError(c, logger, err, "manually map line")
		return
	}

	logger.Info("Line manually mapped successfully", slog.String("mapped_account_code", line.MappedAccountCode))
	c.JSON(http.StatusOK, dto.ToLineResponse(line))
}

// reopenLine godoc
// @Summary Reopen a decided line
// @Description Moves a confirmed or manually mapped line back to suggested for re-review. Requires firm admin. The original decision stays in mapping history.
// @Tags review
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Param   line_id path string true "Line ID"
// @Success 200 {object} dto.LineResponse
// @Failure 400 {object} map[string]string "Line is not in a terminal state"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a firm admin"
// @Failure 404 {object} map[string]string "Line not found"
// @Failure 500 {object} map[string]string "Failed to reopen line"
// @Security BearerAuth
// @Router /firms/{firm_id}/lines/{line_id}/reopen [post]
func (h *reviewHandler) reopenLine(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	lineID := c.Param("line_id")

	reviewerUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Reviewer user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("firm_id", firmID), slog.String("line_id", lineID), slog.String("reviewer_user_id", reviewerUserID))
	logger.Info("Received request to reopen line")

	line, err := h.reviewService.ReopenLine(c.Request.Context(), firmID, lineID, reviewerUserID)
	if err != nil {
		h.respondError(c, logger, err, "reopen line")
		return
	}

	logger.Info("Line reopened successfully")
	c.JSON(http.StatusOK, dto.ToLineResponse(line))
}

// respondError maps review-path failures to HTTP statuses. A version conflict
// maps to 409 so the UI can reload the line and retry.
func (h *reviewHandler) respondError(c *gin.Context, logger *slog.Logger, err error, action string) {
	if errors.Is(err, apperrors.ErrNotFound) {
		logger.Warn("Line not found", slog.String("action", action))
		c.JSON(http.StatusNotFound, gin.H{"error": "Line not found"})
	} else if errors.Is(err, apperrors.ErrVersionConflict) {
		logger.Warn("Stale review transition", slog.String("action", action))
		c.JSON(http.StatusConflict, gin.H{"error": "Line was changed by another reviewer; reload and retry"})
	} else if errors.Is(err, apperrors.ErrValidation) {
		logger.Warn("Validation error", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		logger.Warn("User not authorized", slog.String("action", action))
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized for this firm action"})
	} else {
		logger.Error("Service call failed", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}
