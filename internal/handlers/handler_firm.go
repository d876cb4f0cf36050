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

// firmHandler handles HTTP requests related to firms and their memberships.
type firmHandler struct {
	firmService portssvc.FirmSvcFacade
}

// newFirmHandler creates a new firmHandler.
func newFirmHandler(fs portssvc.FirmSvcFacade) *firmHandler {
	return &firmHandler{
		firmService: fs,
	}
}

// registerFirmRoutes registers routes for managing firms and their members.
// Engagement-scoped routes (trial balances, rules, history) are registered
// separately under /firms/:firm_id.
func registerFirmRoutes(rg *gin.RouterGroup, firmService portssvc.FirmSvcFacade) {
	h := newFirmHandler(firmService)

	firms := rg.Group("/firms")
	{
		firms.POST("", h.createFirm)
		firms.GET("", h.listUserFirms)
	}

	firmSpecific := rg.Group("/firms/:firm_id")
	{
		firmSpecific.GET("", h.getFirm)
		firmSpecific.DELETE("", h.deactivateFirm)

		members := firmSpecific.Group("/users")
		{
			members.GET("", h.listFirmUsers)
			members.POST("", h.addUserToFirm)
			members.PUT("/:user_id", h.updateUserFirmRole)
			members.DELETE("/:user_id", h.removeUserFromFirm)
		}
	}
}

// createFirm godoc
// @Summary Create a new firm
// @Description Creates a new firm and assigns the creator as admin.
// @Tags firms
// @Accept  json
// @Produce  json
// @Param   firm body dto.CreateFirmRequest true "Firm details"
// @Success 201 {object} dto.FirmResponse
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to create firm"
// @Security BearerAuth
// @Router /firms [post]
func (h *firmHandler) createFirm(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	var req dto.CreateFirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for CreateFirm", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	creatorUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Creator user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("creator_user_id", creatorUserID))
	logger.Info("Received request to create firm", slog.String("firm_name", req.Name))

	firm, err := h.firmService.CreateFirm(c.Request.Context(), req.Name, req.Description, creatorUserID)
	if err != nil {
		logger.Error("Failed to create firm in service", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create firm"})
		return
	}

	logger.Info("Firm created successfully", slog.String("firm_id", firm.FirmID))
	c.JSON(http.StatusCreated, dto.ToFirmResponse(firm))
}

// listUserFirms godoc
// @Summary List firms for current user
// @Description Retrieves the firms the authenticated user belongs to. Inactive firms are excluded unless includeDisabled is set.
// @Tags firms
// @Produce  json
// @Param   includeDisabled query bool false "Include deactivated firms"
// @Success 200 {object} dto.ListFirmsResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 500 {object} map[string]string "Failed to list firms"
// @Security BearerAuth
// @Router /firms [get]
func (h *firmHandler) listUserFirms(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	includeDisabled := c.Query("includeDisabled") == "true"

	logger = logger.With(slog.String("user_id", userID))
	logger.Info("Received request to list user's firms")

	firms, err := h.firmService.ListUserFirms(c.Request.Context(), userID, includeDisabled)
	if err != nil {
		logger.Error("Failed to list firms from service", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list firms"})
		return
	}

	logger.Info("Firms listed successfully", slog.Int("count", len(firms)))
	c.JSON(http.StatusOK, dto.ToListFirmsResponse(firms))
}

// getFirm godoc
// @Summary Get a firm by ID
// @Description Retrieves a single firm's details.
// @Tags firms
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Success 200 {object} dto.FirmResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 404 {object} map[string]string "Firm not found"
// @Failure 500 {object} map[string]string "Failed to get firm"
// @Security BearerAuth
// @Router /firms/{firm_id} [get]
func (h *firmHandler) getFirm(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")

	firm, err := h.firmService.FindFirmByID(c.Request.Context(), firmID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Firm not found"})
		} else {
			logger.Error("Failed to get firm from service", slog.String("error", err.Error()), slog.String("firm_id", firmID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get firm"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToFirmResponse(firm))
}

// deactivateFirm godoc
// @Summary Deactivate a firm
// @Description Marks a firm as inactive. Admin only. Data stays readable.
// @Tags firms
// @Param   firm_id path string true "Firm ID"
// @Success 204 "No Content"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden (caller is not admin)"
// @Failure 404 {object} map[string]string "Firm not found"
// @Failure 500 {object} map[string]string "Failed to deactivate firm"
// @Security BearerAuth
// @Router /firms/{firm_id} [delete]
func (h *firmHandler) deactivateFirm(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("firm_id", firmID), slog.String("user_id", userID))
	logger.Info("Received request to deactivate firm")

	if err := h.firmService.DeactivateFirm(c.Request.Context(), firmID, userID); err != nil {
		if errors.Is(err, apperrors.ErrForbidden) {
			logger.Warn("User not authorized to deactivate firm")
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		} else if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Firm not found"})
		} else {
			logger.Error("Failed to deactivate firm in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to deactivate firm"})
		}
		return
	}

	logger.Info("Firm deactivated successfully")
	c.Status(http.StatusNoContent)
}

// listFirmUsers godoc
// @Summary List members of a firm
// @Description Retrieves all memberships of a firm. Requires firm membership.
// @Tags firms
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Success 200 {array} dto.FirmMemberResponse
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Caller is not a member of the firm"
// @Failure 500 {object} map[string]string "Failed to list members"
// @Security BearerAuth
// @Router /firms/{firm_id}/users [get]
func (h *firmHandler) listFirmUsers(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("User ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	members, err := h.firmService.ListFirmUsers(c.Request.Context(), firmID, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrForbidden) {
			logger.Warn("User not authorized to list firm members", slog.String("firm_id", firmID))
			c.JSON(http.StatusForbidden, gin.H{"error": "Not a member of this firm"})
		} else {
			logger.Error("Failed to list firm members from service", slog.String("error", err.Error()), slog.String("firm_id", firmID))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list members"})
		}
		return
	}

	c.JSON(http.StatusOK, dto.ToListFirmMembersResponse(members))
}

// addUserToFirm godoc
// @Summary Add a user to a firm
// @Description Adds a specified user to a firm with a given role (requires admin permission).
// @Tags firms
// @Accept  json
// @Produce  json
// @Param   firm_id path string true "Firm ID"
// @Param   user_details body dto.AddUserToFirmRequest true "User ID and Role"
// @Success 204 "No Content"
// @Failure 400 {object} map[string]string "Invalid input"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden (caller is not admin)"
// @Failure 404 {object} map[string]string "Firm or user not found"
// @Failure 500 {object} map[string]string "Failed to add user"
// @Security BearerAuth
// @Router /firms/{firm_id}/users [post]
func (h *firmHandler) addUserToFirm(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")

	var req dto.AddUserToFirmRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for AddUserToFirm", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	addingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Adding user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	logger = logger.With(slog.String("adding_user_id", addingUserID), slog.String("firm_id", firmID), slog.String("target_user_id", req.UserID))
	logger.Info("Received request to add user to firm", slog.String("role", string(req.Role)))

	err := h.firmService.AddUserToFirm(c.Request.Context(), addingUserID, req.UserID, firmID, req.Role)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Firm or user not found"})
		} else if errors.Is(err, apperrors.ErrForbidden) {
			logger.Warn("Add user failed: Forbidden")
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		} else {
			logger.Error("Failed to add user to firm in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to add user to firm"})
		}
		return
	}

	logger.Info("User added to firm successfully")
	c.Status(http.StatusNoContent)
}

// updateUserFirmRole godoc
// @Summary Change a member's role
// @Description Updates the role of an existing firm member (requires admin permission). Admins cannot demote themselves.
// @Tags firms
// @Accept  json
// @Param   firm_id path string true "Firm ID"
// @Param   user_id path string true "Target user ID"
// @Param   role body dto.UpdateFirmMemberRoleRequest true "New role"
// @Success 204 "No Content"
// @Failure 400 {object} map[string]string "Invalid input or self-demotion"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden (caller is not admin)"
// @Failure 404 {object} map[string]string "Membership not found"
// @Failure 500 {object} map[string]string "Failed to update role"
// @Security BearerAuth
// @Router /firms/{firm_id}/users/{user_id} [put]
func (h *firmHandler) updateUserFirmRole(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	targetUserID := c.Param("user_id")

	var req dto.UpdateFirmMemberRoleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.Warn("Failed to bind JSON for UpdateUserFirmRole", slog.String("error", err.Error()))
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format: " + err.Error()})
		return
	}

	requestingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Requesting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	err := h.firmService.UpdateUserFirmRole(c.Request.Context(), requestingUserID, targetUserID, firmID, req.Role)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else if errors.Is(err, apperrors.ErrForbidden) {
			logger.Warn("User not authorized to update member role", slog.String("firm_id", firmID))
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		} else if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Membership not found"})
		} else {
			logger.Error("Failed to update member role in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update role"})
		}
		return
	}

	logger.Info("Firm member role updated",
		slog.String("firm_id", firmID),
		slog.String("target_user_id", targetUserID),
		slog.String("new_role", string(req.Role)))
	c.Status(http.StatusNoContent)
}

// removeUserFromFirm godoc
// @Summary Remove a user from a firm
// @Description Marks a membership as removed (requires admin permission). Admins cannot remove themselves.
// @Tags firms
// @Param   firm_id path string true "Firm ID"
// @Param   user_id path string true "Target user ID"
// @Success 204 "No Content"
// @Failure 400 {object} map[string]string "Self-removal attempted"
// @Failure 401 {object} map[string]string "Unauthorized"
// @Failure 403 {object} map[string]string "Forbidden (caller is not admin)"
// @Failure 404 {object} map[string]string "Membership not found"
// @Failure 500 {object} map[string]string "Failed to remove user"
// @Security BearerAuth
// @Router /firms/{firm_id}/users/{user_id} [delete]
func (h *firmHandler) removeUserFromFirm(c *gin.Context) {
	logger := middleware.GetLoggerFromCtx(c.Request.Context())
	firmID := c.Param("firm_id")
	targetUserID := c.Param("user_id")

	requestingUserID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		logger.Error("Requesting user ID not found in context")
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return
	}

	err := h.firmService.RemoveUserFromFirm(c.Request.Context(), requestingUserID, targetUserID, firmID)
	if err != nil {
		if errors.Is(err, apperrors.ErrValidation) {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		} else if errors.Is(err, apperrors.ErrForbidden) {
			logger.Warn("User not authorized to remove member", slog.String("firm_id", firmID))
			c.JSON(http.StatusForbidden, gin.H{"error": "Forbidden"})
		} else if errors.Is(err, apperrors.ErrNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Membership not found"})
		} else {
			logger.Error("Failed to remove user from firm in service", slog.String("error", err.Error()))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove user"})
		}
		return
	}

	logger.Info("User removed from firm",
		slog.String("firm_id", firmID),
		slog.String("target_user_id", targetUserID))
	c.Status(http.StatusNoContent)
}
