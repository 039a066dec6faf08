package handler

import (
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/tiibntick/service-expedition/internal/platform/middleware"
	"github.com/tiibntick/service-expedition/internal/platform/response"
)

// parsePagination extracts page and limit query parameters with defaults.
func parsePagination(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))

	if page < 1 {
		page = 1
	}
	if limit < 1 {
		limit = 20
	}
	if limit > 100 {
		limit = 100
	}

	return page, limit
}

// currentUserID writes a 401 and returns false when the request carries no session.
func currentUserID(c *gin.Context) (uuid.UUID, bool) {
	userID, ok := middleware.GetUserID(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return uuid.Nil, false
	}
	return userID, true
}

// currentCourierID resolves the courier profile bound to the caller's token.
func currentCourierID(c *gin.Context) (uuid.UUID, bool) {
	session, ok := middleware.GetSession(c)
	if !ok {
		response.Unauthorized(c, "unauthorized")
		return uuid.Nil, false
	}
	courierID, err := uuid.Parse(session.CourierID)
	if err != nil {
		response.Forbidden(c, "token carries no courier profile")
		return uuid.Nil, false
	}
	return courierID, true
}
