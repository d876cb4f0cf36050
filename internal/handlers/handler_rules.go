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

// ruleHandler handles HTTP requests for firm mapping rule administration.
type ruleHandler struct {
	ruleService portssvc.RuleSvcFacade
}

// newRuleHandler creates a new ruleHandler.
func newRuleHandler(rs portssvc.RuleSvcFacade) *ruleHandler {
	return &ruleHandler{
		ruleService: rs,
	}
}

// registerRuleRoutes registers firm-scoped mapping rule routes.
func registerRuleRoutes(rg *gin.RouterGroup, ruleService portssvc.RuleSvcFacade) {
	h := newRuleHandler(ruleService)

	rules := rg.Group("/mapping-rules")
	{
		rules.POST("", h.createRule)
		rules.GET("", h.listRules)
		rules.GET("/:rule_id", h.getRule)
		rules.PUT("/:rule_id", h.updateRule)
		rules.POST("/:rule_id/deactivate", h.deactivateRule)
		rules.DELETE("/:rule_id", h.deleteRule)
	}
}

// createRule godoc
// @Summary Create a mapping rule
// @Description Creates a new pattern rule for the firm. The target must be an active leaf account; regex patterns are validated at creation.
// @Tags mapping-rules
// @Accept  json
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Param   rule body dto.CreateRuleRequest true "Rule details"
// @Success 201 {object} dto.RuleResponse
// @Failure 400 {object} map[string]string "Invalid input, malformed regex, or non-leaf target"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a firm admin"
// @Failure 500 {object} map[string]string "Failed to create rule"
// @Security BearerAuth
// @Router /firms/{firm_id}/mapping-rules [post]
func (h *ruleHandler) createRule(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")

	var req dto.CreateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateRule", slog.String("error", err.Error()))
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
	logger.Info("Received request to create rule", slog.String("rule_name", req.Name))

	rule, err := h.ruleService.CreateRule(c.Request.Context(), firmID, req, creatorUserID)
	if err != nil {
		h.respondError(c, logger, err, "create rule")
		return
	}

	logger.Info("Rule created successfully", slog.String("rule_id", rule.RuleID))
	c.JSON(http.StatusCreated, dto.ToRuleResponse(rule))
}

// listRules godoc
// @Summary List the firm's mapping rules
// @Description Retrieves the firm's rules in evaluation order (priority descending, then creation time, then rule ID)
// @Tags mapping-rules
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Param   includeInactive query bool false "Include deactivated rules" default(false)
// @Success 200 {object} dto.ListRulesResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a member of the firm"
// @Failure 500 {object} map[string]string "Failed to list rules"
// @Security BearerAuth
// @Router /firms/{firm_id}/mapping-rules [get]
func (h *ruleHandler) listRules(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")

	var params dto.ListRulesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		logger.Warn("Failed to bind query for ListRules", slog.String("error", err.Error()))
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
	logger.Info("Received request to list rules")

	rules, err := h.ruleService.ListRules(c.Request.Context(), firmID, params.IncludeInactive, userID)
	if err != nil {
		h.respondError(c, logger, err, "list rules")
		return
	}

	logger.Info("Rules listed successfully", slog.Int("count", len(rules)))
	c.JSON(http.StatusOK, dto.ToListRulesResponse(rules))
}

// getRule godoc
// @Summary Get a mapping rule
// @Description Retrieves one mapping rule by ID
// @Tags mapping-rules
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Param   rule_id path string true "Rule ID"
// @Success 200 {object} dto.RuleResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a member of the firm"
// @Failure 404 {object} map[string]string "Rule not found"
// @Failure 500 {object} map[string]string "Failed to retrieve rule"
// @Security BearerAuth
// @Router /firms/{firm_id}/mapping-rules/{rule_id} [get]
func (h *ruleHandler) getRule(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	ruleID := c.Param("rule_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("firm_id", firmID), slog.String("rule_id", ruleID))
	logger.Info("Received request to get rule")

	rule, err := h.ruleService.GetRuleByID(c.Request.Context(), firmID, ruleID, userID)
	if err != nil {
		h.respondError(c, logger, err, "retrieve rule")
		return
	}

	logger.Info("Rule retrieved successfully")
	c.JSON(http.StatusOK, dto.ToRuleResponse(rule))
}

// updateRule godoc
// @Summary Update a mapping rule
// @Description Updates an existing rule. Pattern changes are re-validated; suggestions already produced keep their recorded rule attribution.
// @Tags mapping-rules
// @Accept  json
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Param   rule_id path string true "Rule ID"
// @Param   rule body dto.UpdateRuleRequest true "Fields to update"
// @Success 200 {object} dto.RuleResponse
// @Failure 400 {object} map[string]string "Invalid input, malformed regex, or non-leaf target"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a firm admin"
// @Failure 404 {object} map[string]string "Rule not found"
// @Failure 500 {object} map[string]string "Failed to update rule"
// @Security BearerAuth
// @Router /firms/{firm_id}/mapping-rules/{rule_id} [put]
func (h *ruleHandler) updateRule(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	ruleID := c.Param("rule_id")

	var req dto.UpdateRuleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateRule", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	updaterUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Updater user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("firm_id", firmID), slog.String("rule_id", ruleID), slog.String("updater_user_id", updaterUserID))
	logger.Info("Received request to update rule")

	rule, err := h.ruleService.UpdateRule(c.Request.Context(), firmID, ruleID, req, updaterUserID)
	if err != nil {
		h.respondError(c, logger, err, "update rule")
		return
	}

	logger.Info("Rule updated successfully")
	c.JSON(http.StatusOK, dto.ToRuleResponse(rule))
}

// deactivateRule godoc
// @Summary Deactivate a mapping rule
// @Description Marks a rule inactive so it is skipped during evaluation but kept for provenance on past suggestions. This is the only removal path once a rule has contributed to confirmed mappings.
// @Tags mapping-rules
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Param   rule_id path string true "Rule ID"
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a firm admin"
// @Failure 404 {object} map[string]string "Rule not found"
// @Failure 500 {object} map[string]string "Failed to deactivate rule"
// @Security BearerAuth
// @Router /firms/{firm_id}/mapping-rules/{rule_id}/deactivate [post]
func (h *ruleHandler) deactivateRule(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	ruleID := c.Param("rule_id")

	deleterUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Deleter user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("firm_id", firmID), slog.String("rule_id", ruleID), slog.String("deleter_user_id", deleterUserID))
	logger.Info("Received request to deactivate rule")

	if err := h.ruleService.DeactivateRule(c.Request.Context(), firmID, ruleID, deleterUserID); err != nil {
		h.respondError(c, logger, err, "deactivate rule")
		return
	}

	logger.Info("Rule deactivated successfully")
	c.Status(http.StatusNoContent)
}

// deleteRule godoc
// @Summary Delete a mapping rule
// @Description Removes a rule permanently. Rules that have contributed to confirmed mappings cannot be deleted, only deactivated, so audit replay stays possible.
// @Tags mapping-rules
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Param   rule_id path string true "Rule ID"
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a firm admin"
// @Failure 404 {object} map[string]string "Rule not found"
// @Failure 409 {object} map[string]string "Rule has contributed to confirmed mappings"
// @Failure 500 {object} map[string]string "Failed to delete rule"
// @Security BearerAuth
// @Router /firms/{firm_id}/mapping-rules/{rule_id} [delete]
func (h *ruleHandler) deleteRule(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	ruleID := c.Param("rule_id")

	deleterUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Deleter user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("firm_id", firmID), slog.String("rule_id", ruleID), slog.String("deleter_user_id", deleterUserID))
	logger.Info("Received request to delete rule")

	if err := h.ruleService.DeleteRule(c.Request.Context(), firmID, ruleID, deleterUserID); err != nil {
		h.respondError(c, logger, err, "delete rule")
		return
	}

	logger.Info("Rule deleted successfully")
	c.Status(http.StatusNoContent)
}

// respondError maps rule administration failures to HTTP statuses.
func (h *ruleHandler) respondError(c *gin.Context, logger *slog.Logger, err error, action string) {
	if errors.Is(err, apperrors.ErrNotFound) {
		logger.Warn("Rule or target account not found", slog.String("action", action))
		c.JSON(http.StatusNotFound, gin.H{"error": "Rule not found"})
	} else if errors.Is(err, apperrors.ErrValidation) {
		logger.Warn("Validation error", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	} else if errors.Is(err, apperrors.ErrRuleInUse) {
		logger.Warn("Rule has contributed to confirmed mappings", slog.String("action", action))
		c.JSON(http.StatusConflict, gin.H{"error": "Rule has contributed to confirmed mappings; deactivate it instead"})
	} else if errors.Is(err, apperrors.ErrForbidden) {
		logger.Warn("User not authorized", slog.String("action", action))
		c.JSON(http.StatusForbidden, gin.H{"error": "Not authorized for this firm action"})
	} else {
		logger.Error("Service call failed", slog.String("action", action), slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to " + action})
	}
}
