package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/lumeo/auth-core/internal/audit"
	"github.com/lumeo/auth-core/internal/dto"
)

const defaultTrailLimit = 100

// AuditHandler exposes the audit trail to operators.
type AuditHandler struct {
	store audit.Store
}

func NewAuditHandler(store audit.Store) *AuditHandler {
	return &AuditHandler{store: store}
}

// GetUserTrail returns a user's audit entries, newest first
// @Summary Get a user's audit trail
// @Description List security events recorded for the given user
// @Tags audit
// @Security BearerAuth
// @Produce json
// @Param user_id path string true "User ID"
// @Param limit query int false "Maximum entries to return"
// @Success 200 {array} domain.AuditEntry
// @Failure 401 {object} dto.ErrorResponse
// @Failure 403 {object} dto.ErrorResponse
// @Failure 500 {object} dto.ErrorResponse
// @Router /audit/{user_id} [get]
func (h *AuditHandler) GetUserTrail(c *gin.Context) {
	limit := defaultTrailLimit
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 1 {
			c.JSON(http.StatusBadRequest, dto.ErrorResponse{
				Error:   "Bad Request",
				Message: "limit must be a positive integer",
			})
			return
		}
		limit = parsed
	}

	entries, err := h.store.ListByUser(c.Request.Context(), c.Param("user_id"), limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, entries)
}
