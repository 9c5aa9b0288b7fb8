package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/smarttransit/bus-booking-backend/internal/middleware"
	"github.com/smarttransit/bus-booking-backend/internal/services"
	"github.com/smarttransit/bus-booking-backend/internal/utils"
)

// actorFrom describes who is calling. Anonymous callers get a zero UserID.
func actorFrom(c *gin.Context) services.Actor {
	actor := services.Actor{
		IPAddress: utils.GetRealIP(c),
		UserAgent: utils.GetUserAgent(c),
	}
	if userCtx, ok := middleware.GetUserContext(c); ok {
		actor.UserID = userCtx.UserID
		actor.Email = userCtx.Email
		actor.Role = userCtx.Role
	}
	return actor
}
