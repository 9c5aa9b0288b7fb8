package handlers

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/smarttransit/bus-booking-backend/internal/services"
)

// BookingService is what the booking endpoints need
type BookingService interface {
	CreateBooking(ctx context.Context, actor services.Actor, req *models.CreateBookingRequest) (*models.Booking, error)
	CancelBooking(ctx context.Context, actor services.Actor, bookingID int64, seatsToCancel models.SeatSet) (*models.CancelResult, error)
	ListBookings(ctx context.Context, actor services.Actor, filter models.BookingFilter) ([]models.BookingDetail, error)
	GetBooking(ctx context.Context, actor services.Actor, bookingID int64) (*models.BookingDetail, error)
	Ticket(ctx context.Context, actor services.Actor, bookingID int64) ([]byte, string, error)
}

// BookingHandler serves bookings and e-tickets
type BookingHandler struct {
	bookings BookingService
}

// NewBookingHandler creates a new BookingHandler
func NewBookingHandler(bookings BookingService) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

// ListBookings returns the caller's bookings, or all bookings for staff
// @Summary  List bookings
// @Tags     bookings
// @Security BearerAuth
// @Param    status    query  string  false  "confirmed or cancelled"
// @Param    date      query  string  false  "YYYY-MM-DD, repeatable"
// @Param    route_id  query  int     false  "Route"
// @Param    search    query  string  false  "Name, email or reference (staff)"
// @Param    limit     query  int     false  "Page size (default 100, max 500)"
// @Param    offset    query  int     false  "Rows to skip"
// @Success  200  {array}  models.BookingDetail
// @Router   /bookings [get]
func (h *BookingHandler) ListBookings(c *gin.Context) {
	dates, ok := queryDates(c)
	if !ok {
		return
	}
	routeID, ok := queryInt64(c, "route_id")
	if !ok {
		return
	}

	limit, ok := queryInt64(c, "limit")
	if !ok {
		return
	}
	offset, ok := queryInt64(c, "offset")
	if !ok {
		return
	}
	if limit == 0 {
		limit = 100
	}

	status := models.BookingStatus(c.Query("status"))
	switch status {
	case "", models.BookingStatusConfirmed, models.BookingStatusCancelled:
	default:
		badRequest(c, "status must be confirmed or cancelled")
		return
	}

	bookings, err := h.bookings.ListBookings(c.Request.Context(), actorFrom(c), models.BookingFilter{
		Status:  status,
		Dates:   dates,
		RouteID: routeID,
		Search:  c.Query("search"),
		Limit:   int(limit),
		Offset:  int(offset),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bookings)
}

// GetBooking returns one booking
// @Summary  Get booking
// @Tags     bookings
// @Security BearerAuth
// @Param    id  path  int  true  "Booking ID"
// @Success  200  {object}  models.BookingDetail
// @Router   /bookings/{id} [get]
func (h *BookingHandler) GetBooking(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	booking, err := h.bookings.GetBooking(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, booking)
}

// CreateBooking claims seats on a schedule
// @Summary  Book seats
// @Tags     bookings
// @Security BearerAuth
// @Param    body  body  models.CreateBookingRequest  true  "Seats"
// @Success  201  {object}  map[string]interface{}
// @Failure  409  {object}  ErrorResponse
// @Failure  503  {object}  ErrorResponse
// @Router   /bookings [post]
func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req models.CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	booking, err := h.bookings.CreateBooking(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message":   "Booking created successfully",
		"bookingId": booking.ID,
		"booking":   booking,
	})
}

// CancelBooking cancels a booking or some of its seats. The body is optional.
// @Summary  Cancel booking
// @Tags     bookings
// @Security BearerAuth
// @Param    id    path  int                          true   "Booking ID"
// @Param    body  body  models.CancelBookingRequest  false  "Seats to cancel"
// @Success  200  {object}  models.CancelResult
// @Failure  409  {object}  ErrorResponse
// @Router   /bookings/{id}/cancel [patch]
func (h *BookingHandler) CancelBooking(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	var req models.CancelBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		respondBindError(c, err)
		return
	}

	result, err := h.bookings.CancelBooking(c.Request.Context(), actorFrom(c), id, req.SeatsToCancel.Set())
	if err != nil {
		respondError(c, err)
		return
	}

	message := "Booking cancelled successfully"
	if result.Partial {
		message = "Seats cancelled successfully"
	}
	c.JSON(http.StatusOK, gin.H{
		"message":        message,
		"booking":        result.Booking,
		"released_seats": result.ReleasedSeats,
		"partial":        result.Partial,
	})
}

// DownloadTicket returns the PDF e-ticket of a confirmed booking
// @Summary  E-ticket
// @Tags     bookings
// @Security BearerAuth
// @Param    id  path  int  true  "Booking ID"
// @Produce  application/pdf
// @Router   /bookings/{id}/ticket [get]
func (h *BookingHandler) DownloadTicket(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	pdf, filename, err := h.bookings.Ticket(c.Request.Context(), actorFrom(c), id)
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)
	c.Data(http.StatusOK, "application/pdf", pdf)
}
