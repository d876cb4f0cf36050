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

// historyHandler exposes the read side of the append-only mapping history.
type historyHandler struct {
	historyService portssvc.HistorySvc
}

// newHistoryHandler creates a new historyHandler.
func newHistoryHandler(hs portssvc.HistorySvc) *historyHandler {
	return &historyHandler{
		historyService: hs,
	}
}

// registerHistoryRoutes registers firm-scoped mapping history routes.
func registerHistoryRoutes(rg *gin.RouterGroup, historyService portssvc.HistorySvc) {
	h := newHistoryHandler(historyService)

	rg.GET("/mapping-history", h.listHistory)
}

// listHistory godoc
// @Summary Query mapping history
// @Description Retrieves confirmed and manual mapping records for auditors, newest first, scoped by canonical target account or by source text
// @Tags mapping-history
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Param   accountCode query string false "Canonical target account code"
// @Param   sourceText query string false "Raw source text, normalized before lookup"
// @Param   limit query int false "Page size" default(50)
// @Param   nextToken query string false "Pagination token"
// @Success 200 {object} dto.ListHistoryResponse
// @Failure 400 {object} map[string]string "Neither or both scope parameters supplied"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a member of the firm"
// @Failure 500 {object} map[string]string "Failed to query mapping history"
// @Security BearerAuth
// @Router /firms/{firm_id}/mapping-history [get]
func (h *historyHandler) listHistory(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")

	var params dto.ListHistoryParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListHistory", slog.String("error", err.Error()))
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
	logger.Info("Received request to query mapping history")

	resp, err := h.historyService.ListHistory(c.Request.Context(), firmID, params, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			logger.Warn("Validation error querying history", slog.String("error", err.Error()))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else if errors.Is(err, apperrors.ErrForbidden) {
			logger.Warn("User not authorized to query history")
			c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this firm"})
		} else {
			logger.Error("Failed to query mapping history from service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to query mapping history"})
		}
		return
	}

	logger.Info("Mapping history queried successfully", slog.Int("count", len(resp.Entries)))
	c.JSON(http.StatusOK, resp)
}
