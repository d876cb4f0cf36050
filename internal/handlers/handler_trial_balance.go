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

// trialBalanceHandler handles HTTP requests for trial balance imports,
// line listings, validation and suggestion runs.
type trialBalanceHandler struct {
	tbService         portssvc.TrialBalanceSvcFacade
	suggestionService portssvc.SuggestionSvcFacade
}

// newTrialBalanceHandler creates a new trialBalanceHandler.
func newTrialBalanceHandler(tbs portssvc.TrialBalanceSvcFacade, ss portssvc.SuggestionSvcFacade) *trialBalanceHandler {
	return &trialBalanceHandler{
		tbService:         tbs,
		suggestionService: ss,
	}
}

// registerTrialBalanceRoutes registers firm-scoped trial balance routes.
func registerTrialBalanceRoutes(rg *gin.RouterGroup, tbService portssvc.TrialBalanceSvcFacade, suggestionService portssvc.SuggestionSvcFacade) {
	h := newTrialBalanceHandler(tbService, suggestionService)

	tbs := rg.Group("/trial-balances")
	{
		tbs.POST("", h.importTrialBalance)
		tbs.GET("", h.listTrialBalances)
		tbs.GET("/:tb_id", h.getTrialBalance)
		tbs.GET("/:tb_id/lines", h.listLines)
		tbs.GET("/:tb_id/progress", h.getMappingProgress)
		tbs.GET("/:tb_id/validation", h.validateTrialBalance)
		tbs.POST("/:tb_id/suggestions", h.generateSuggestions)
		tbs.POST("/:tb_id/supersede", h.supersedeTrialBalance)
	}
}

// importTrialBalance godoc
// @Summary Import a trial balance
// @Description Ingests a raw trial balance export. Structurally invalid batches (duplicate line numbers, negative amounts, both sides populated) are rejected whole; an imbalanced batch is created and flagged, never rejected.
// @Tags trial-balances
// @Accept  json
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Param   trialBalance body dto.ImportTrialBalanceRequest true "Trial balance lines and declared totals"
// @Success 201 {object} dto.TrialBalanceResponse
// @Failure 400 {object} map[string]string "Invalid input format or structural validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a member of the firm"
// @Failure 500 {object} map[string]string "Failed to import trial balance"
// @Security BearerAuth
// @Router /firms/{firm_id}/trial-balances [post]
func (h *trialBalanceHandler) importTrialBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")

	var req dto.ImportTrialBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for ImportTrialBalance", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Creator user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("firm_id", firmID), slog.String("creator_user_id", creatorUserID))
	logger.Info("Received request to import trial balance", slog.Int("line_count", len(req.Lines)))

	tb, err := h.tbService.ImportTrialBalance(c.Request.Context(), firmID, req, creatorUserID)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Structural validation error importing trial balance", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else if errors.Is(err, apperrors.ErrForbidden) {
			logger.Warn("User not authorized to import for firm")
			c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this firm"})
		} else if errors.Is(err, apperrors.ErrNotFound) {
			logger.Warn("Firm not found for import")
			c.JSON(http.StatusNotFound, gin.H{"error": "Firm not found"})
		} else {
			logger.Error("Failed to import trial balance in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to import trial balance"})
		}
		return
	}

	if !tb.IsBalanced {
		logger.Warn("Imported trial balance is not balanced",
			slog.String("trial_balance_id", tb.TrialBalanceID),
			slog.String("difference", tb.Difference.String()))
	}

	logger.Info("Trial balance imported successfully", slog.String("trial_balance_id", tb.TrialBalanceID))
	c.JSON(http.StatusCreated, dto.ToTrialBalanceResponse(tb))
}

// listTrialBalances godoc
// @Summary List a firm's trial balances
// @Description Retrieves a paginated list of the firm's trial balance imports, newest first
// @Tags trial-balances
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Param   limit query int false "Page size" default(20)
// @Param   nextToken query string false "Pagination token"
// @Success 200 {object} dto.ListTrialBalancesResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a member of the firm"
// @Failure 500 {object} map[string]string "Failed to list trial balances"
// @Security BearerAuth
// @Router /firms/{firm_id}/trial-balances [get]
func (h *trialBalanceHandler) listTrialBalances(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")

	var params dto.ListTrialBalancesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListTrialBalances", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("firm_id", firmID))
	logger.Info("Received request to list trial balances")

	resp, err := h.tbService.ListTrialBalances(c.Request.Context(), firmID, userID, params)
	if err != nil {
		if errors.Is(err, apperrors.ErrForbidden) {
			logger.Warn("User not authorized to list trial balances")
			c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this firm"})
		} else {
			logger.Error("Failed to list trial balances from service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list trial balances"})
		}
		return
	}

	logger.Info("Trial balances listed successfully", slog.Int("count", len(resp.TrialBalances)))
	c.JSON(http.StatusOK, resp)
}

// getTrialBalance godoc
// @Summary Get a trial balance header
// @Description Retrieves one trial balance import with computed totals and balance status
// @Tags trial-balances
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Param   tb_id path string true "Trial balance ID"
// @Success 200 {object} dto.TrialBalanceResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a member of the firm"
// @Failure 404 {object} map[string]string "Trial balance not found"
// @Failure 500 {object} map[string]string "Failed to retrieve trial balance"
// @Security BearerAuth
// @Router /firms/{firm_id}/trial-balances/{tb_id} [get]
func (h *trialBalanceHandler) getTrialBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	tbID := c.Param("tb_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("firm_id", firmID), slog.String("trial_balance_id", tbID))
	logger.Info("Received request to get trial balance")

	tb, err := h.tbService.GetTrialBalanceByID(c.Request.Context(), firmID, tbID, userID)
	if err != nil {
		h.respondReadError(c, logger, err, "trial balance")
		return
	}

	logger.Info("Trial balance retrieved successfully")
	c.JSON(http.StatusOK, dto.ToTrialBalanceResponse(tb))
}

// listLines godoc
// @Summary List trial balance lines
// @Description Retrieves a paginated list of lines in source order, optionally filtered by mapping status
// @Tags trial-balances
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Param   tb_id path string true "Trial balance ID"
// @Param   limit query int false "Page size" default(50)
// @Param   nextToken query string false "Pagination token"
// @Param   status query string false "Filter by line status" Enums(UNMAPPED, SUGGESTED, CONFIRMED, REJECTED, MANUAL)
// @Success 200 {object} dto.ListLinesResponse
// @Failure 400 {object} map[string]string "Invalid query parameters"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a member of the firm"
// @Failure 404 {object} map[string]string "Trial balance not found"
// @Failure 500 {object} map[string]string "Failed to list lines"
// @Security BearerAuth
// @Router /firms/{firm_id}/trial-balances/{tb_id}/lines [get]
func (h *trialBalanceHandler) listLines(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	tbID := c.Param("tb_id")

	var params dto.ListLinesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListLines", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid query parameters: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("firm_id", firmID), slog.String("trial_balance_id", tbID))
	logger.Info("Received request to list lines")

	resp, err := h.tbService.ListLines(c.Request.Context(), firmID, tbID, userID, params)
	if err != nil {
		h.respondReadError(c, logger, err, "trial balance")
		return
	}

	logger.Info("Lines listed successfully", slog.Int("count", len(resp.Lines)))
	c.JSON(http.StatusOK, resp)
}

// getMappingProgress godoc
// @Summary Summarize mapping progress
// @Description Retrieves line counts per mapping status for a trial balance
// @Tags trial-balances
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Param   tb_id path string true "Trial balance ID"
// @Success 200 {object} dto.MappingProgressResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a member of the firm"
// @Failure 404 {object} map[string]string "Trial balance not found"
// @Failure 500 {object} map[string]string "Failed to summarize progress"
// @Security BearerAuth
// @Router /firms/{firm_id}/trial-balances/{tb_id}/progress [get]
func (h *trialBalanceHandler) getMappingProgress(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	tbID := c.Param("tb_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("firm_id", firmID), slog.String("trial_balance_id", tbID))
	logger.Info("Received request to get mapping progress")

	resp, err := h.tbService.GetMappingProgress(c.Request.Context(), firmID, tbID, userID)
	if err != nil {
		h.respondReadError(c, logger, err, "trial balance")
		return
	}

	logger.Info("Mapping progress retrieved successfully")
	c.JSON(http.StatusOK, resp)
}

// validateTrialBalance godoc
// @Summary Validate a trial balance
// @Description Recomputes the balance check and rolls mapped line nets up the canonical tree, comparing against declared subtotals. Variances are flagged for review, never failed.
// @Tags trial-balances
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Param   tb_id path string true "Trial balance ID"
// @Success 200 {object} dto.ValidationReportResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a member of the firm"
// @Failure 404 {object} map[string]string "Trial balance not found"
// @Failure 500 {object} map[string]string "Failed to validate trial balance"
// @Security BearerAuth
// @Router /firms/{firm_id}/trial-balances/{tb_id}/validation [get]
func (h *trialBalanceHandler) validateTrialBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	tbID := c.Param("tb_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("firm_id", firmID), slog.String("trial_balance_id", tbID))
	logger.Info("Received request to validate trial balance")

	report, err := h.tbService.ValidateTrialBalance(c.Request.Context(), firmID, tbID, userID)
	if err != nil {
		h.respondReadError(c, logger, err, "trial balance")
		return
	}

	logger.Info("Trial balance validated successfully", slog.Int("rollup_count", len(report.Rollups)))
	c.JSON(http.StatusOK, dto.ToValidationReportResponse(report))
}

// generateSuggestions godoc
// @Summary Run the mapping engine over a trial balance
// @Description Generates one active suggestion per requested line by merging rule, precedent and classifier candidates. Confirmed and manually mapped lines keep their status; explicitly requested terminal lines get a comparison suggestion only.
// @Tags suggestions
// @Accept  json
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Param   tb_id path string true "Trial balance ID"
// @Param   request body dto.GenerateSuggestionsRequest true "Run scope and classifier options"
// @Success 200 {object} dto.GenerateSuggestionsResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a member of the firm"
// @Failure 404 {object} map[string]string "Trial balance not found"
// @Failure 500 {object} map[string]string "Failed to generate suggestions"
// @Security BearerAuth
// @Router /firms/{firm_id}/trial-balances/{tb_id}/suggestions [post]
func (h *trialBalanceHandler) generateSuggestions(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	tbID := c.Param("tb_id")

	var req dto.GenerateSuggestionsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for GenerateSuggestions", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("firm_id", firmID), slog.String("trial_balance_id", tbID))
	logger.Info("Received request to generate suggestions", slog.Int("requested_lines", len(req.LineIDs)))

	resp, err := h.suggestionService.GenerateSuggestions(c.Request.Context(), firmID, tbID, req, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Validation error generating suggestions", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		h.respondReadError(c, logger, err, "trial balance")
		return
	}

	logger.Info("Suggestion run completed",
		slog.Int("suggested", resp.Suggested),
		slog.Int("no_candidates", resp.NoCandidates),
		slog.Int("skipped", resp.Skipped),
		slog.Int("failed", resp.Failed))
	c.JSON(http.StatusOK, resp)
}

// supersedeTrialBalance godoc
// @Summary Re-import a corrected trial balance
// @Description Imports a corrected trial balance and marks the prior version superseded by it. The superseded version stays readable for audit.
// @Tags trial-balances
// @Accept  json
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Param   tb_id path string true "Trial balance ID being superseded"
// @Param   trialBalance body dto.ImportTrialBalanceRequest true "Corrected trial balance"
// @Success 201 {object} dto.TrialBalanceResponse
// @Failure 400 {object} map[string]string "Invalid input or structural validation error"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a member of the firm"
// @Failure 404 {object} map[string]string "Trial balance not found"
// @Failure 409 {object} map[string]string "Trial balance already superseded"
// @Failure 500 {object} map[string]string "Failed to supersede trial balance"
// @Security BearerAuth
// @Router /firms/{firm_id}/trial-balances/{tb_id}/supersede [post]
func (h *trialBalanceHandler) supersedeTrialBalance(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	tbID := c.Param("tb_id")

	var req dto.ImportTrialBalanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for SupersedeTrialBalance", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("firm_id", firmID), slog.String("superseded_trial_balance_id", tbID))
	logger.Info("Received request to supersede trial balance")

	tb, err := h.tbService.SupersedeTrialBalance(c.Request.Context(), firmID, tbID, req, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Validation error superseding trial balance", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else if errors.Is(err, apperrors.ErrImmutable) {
			logger.Warn("Trial balance already superseded", slog.String("error", err.Error()))
			c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		} else {
			h.respondReadError(c, logger, err, "trial balance")
		}
		return
	}

	logger.Info("Trial balance superseded successfully", slog.String("new_trial_balance_id", tb.TrialBalanceID))
	c.JSON(http.StatusCreated, dto.ToTrialBalanceResponse(tb))
}

// respondReadError maps the common read-path failures to HTTP statuses.
func (h *trialBalanceHandler) respondReadError(c *gin.Context, logger *slog.Logger, err error, resource string) {
	if errors.Is(err, apperrors.ErrNotFound) {
		logger.Warn("Resource not found", slog.String("resource", resource))
		c.JSON(http.StatusNotFound, gin.H{"error": resource + " not found"})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		logger.Warn("User not authorized for firm resource", slog.String("resource", resource))
		c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this firm"})
	} else {
		logger.Error("Service call failed", slog.String("resource", resource), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to process " + resource})
	}
}
