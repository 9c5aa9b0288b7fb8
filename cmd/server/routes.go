package main

import (
	"github.com/gin-gonic/gin"

	"github.com/smarttransit/bus-booking-backend/internal/handlers"
	"github.com/smarttransit/bus-booking-backend/internal/middleware"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

type routeHandlers struct {
	auth      *handlers.AuthHandler
	buses     *handlers.BusHandler
	routes    *handlers.RouteHandler
	schedules *handlers.ScheduleHandler
	bookings  *handlers.BookingHandler
	dashboard *handlers.DashboardHandler
}

// registerRoutes mounts the API under /api. bookingLimit may be nil.
func registerRoutes(router *gin.Engine, h routeHandlers, requireAuth, bookingLimit gin.HandlerFunc) {
	staffOnly := middleware.RequireRole(models.RoleStaff)

	api := router.Group("/api")
	{
		// Authentication routes (public)
		auth := api.Group("/auth")
		{
			auth.POST("/register", h.auth.Register)
			auth.POST("/login", h.auth.Login)

			// Protected routes (require JWT authentication)
			protected := auth.Group("")
			protected.Use(requireAuth)
			{
				protected.GET("/profile", h.auth.GetProfile)
				protected.PATCH("/profile", h.auth.UpdateProfile)
			}
		}

		buses := api.Group("/buses")
		buses.Use(requireAuth)
		{
			buses.GET("", h.buses.GetAllBuses)
			buses.GET("/:id", h.buses.GetBusByID)
			buses.POST("", staffOnly, h.buses.CreateBus)
			buses.PUT("/:id", staffOnly, h.buses.UpdateBus)
			buses.DELETE("/:id", staffOnly, h.buses.DeleteBus)
		}

		routes := api.Group("/routes")
		routes.Use(requireAuth)
		{
			routes.GET("", h.routes.GetAllRoutes)
			routes.GET("/:id", h.routes.GetRouteByID)
			routes.POST("", staffOnly, h.routes.CreateRoute)
			routes.PUT("/:id", staffOnly, h.routes.UpdateRoute)
			routes.DELETE("/:id", staffOnly, h.routes.DeleteRoute)
		}

		schedules := api.Group("/schedules")
		schedules.Use(requireAuth)
		{
			schedules.GET("", h.schedules.ListSchedules)
			schedules.GET("/:id", h.schedules.GetSchedule)
			schedules.GET("/:id/events", h.schedules.StreamEvents)
			schedules.POST("", staffOnly, h.schedules.CreateSchedules)
			schedules.DELETE("/:id", staffOnly, h.schedules.DeleteSchedule)
			schedules.PATCH("/:id/reserve", staffOnly, h.schedules.ReserveSeats)
		}

		bookings := api.Group("/bookings")
		bookings.Use(requireAuth)
		{
			bookings.GET("", h.bookings.ListBookings)
			bookings.GET("/:id", h.bookings.GetBooking)
			bookings.GET("/:id/ticket", h.bookings.DownloadTicket)
			if bookingLimit != nil {
				bookings.POST("", bookingLimit, h.bookings.CreateBooking)
			} else {
				bookings.POST("", h.bookings.CreateBooking)
			}
			bookings.PATCH("/:id/cancel", staffOnly, h.bookings.CancelBooking)
		}

		dashboard := api.Group("/dashboard")
		dashboard.Use(requireAuth, staffOnly)
		{
			dashboard.GET("/stats", h.dashboard.GetStats)
		}
	}
}
