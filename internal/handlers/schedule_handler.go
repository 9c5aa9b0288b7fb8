package handlers

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/smarttransit/bus-booking-backend/internal/cache"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/smarttransit/bus-booking-backend/internal/services"
)

// ScheduleService is what the schedule endpoints need
type ScheduleService interface {
	CreateSchedules(ctx context.Context, actor services.Actor, req *models.CreateScheduleRequest) (*models.CreateSchedulesResult, error)
	ListUpcoming(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, error)
	GetWithSeatMap(ctx context.Context, scheduleID int64) (*models.ScheduleWithSeats, error)
	DeleteSchedule(ctx context.Context, actor services.Actor, scheduleID int64) error
}

// ReservationService sets staff holds on seats
type ReservationService interface {
	SetReservation(ctx context.Context, actor services.Actor, scheduleID int64, seats models.SeatSet) (*models.ReservationResult, error)
}

// ScheduleEvents delivers schedule change notifications
type ScheduleEvents interface {
	Subscribe(ctx context.Context, handler func(ctx context.Context, ev cache.ScheduleEvent)) error
}

// ScheduleHandler serves schedules, seat maps and reservations
type ScheduleHandler struct {
	schedules    ScheduleService
	reservations ReservationService
	events       ScheduleEvents
	logger       logrus.FieldLogger
	keepAlive    time.Duration
}

// NewScheduleHandler creates a new ScheduleHandler. events may be nil, in
// which case the event stream answers 503.
func NewScheduleHandler(schedules ScheduleService, reservations ReservationService, events ScheduleEvents, logger logrus.FieldLogger) *ScheduleHandler {
	return &ScheduleHandler{
		schedules:    schedules,
		reservations: reservations,
		events:       events,
		logger:       logger,
		keepAlive:    25 * time.Second,
	}
}

// ListSchedules returns upcoming active schedules
// @Summary  Upcoming schedules
// @Tags     schedules
// @Security BearerAuth
// @Param    date         query  string  false  "YYYY-MM-DD, repeatable"
// @Param    route_id     query  int     false  "Route"
// @Param    source       query  string  false  "Source city"
// @Param    destination  query  string  false  "Destination city"
// @Success  200  {array}  models.ScheduleDetail
// @Router   /schedules [get]
func (h *ScheduleHandler) ListSchedules(c *gin.Context) {
	dates, ok := queryDates(c)
	if !ok {
		return
	}
	routeID, ok := queryInt64(c, "route_id")
	if !ok {
		return
	}

	schedules, err := h.schedules.ListUpcoming(c.Request.Context(), models.ScheduleFilter{
		Dates:       dates,
		RouteID:     routeID,
		Source:      c.Query("source"),
		Destination: c.Query("destination"),
	})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedules)
}

// GetSchedule returns a schedule with its seat map
// @Summary  Schedule seat map
// @Tags     schedules
// @Security BearerAuth
// @Param    id  path  int  true  "Schedule ID"
// @Success  200  {object}  models.ScheduleWithSeats
// @Failure  404  {object}  ErrorResponse
// @Router   /schedules/{id} [get]
func (h *ScheduleHandler) GetSchedule(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	schedule, err := h.schedules.GetWithSeatMap(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, schedule)
}

// CreateSchedules expands a date range into daily schedules
// @Summary  Create schedules
// @Tags     schedules
// @Security BearerAuth
// @Param    body  body  models.CreateScheduleRequest  true  "Range"
// @Success  201  {object}  models.CreateSchedulesResult
// @Failure  400  {object}  ErrorResponse
// @Router   /schedules [post]
func (h *ScheduleHandler) CreateSchedules(c *gin.Context) {
	var req models.CreateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.schedules.CreateSchedules(c.Request.Context(), actorFrom(c), &req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": fmt.Sprintf("%d schedules created, %d skipped", len(result.Created), len(result.Skipped)),
		"created": result.Created,
		"skipped": result.Skipped,
		"dates":   result.Dates,
	})
}

// DeleteSchedule removes a schedule without confirmed bookings
// @Summary  Delete schedule
// @Tags     schedules
// @Security BearerAuth
// @Param    id  path  int  true  "Schedule ID"
// @Success  200  {object}  map[string]interface{}
// @Failure  409  {object}  ErrorResponse
// @Router   /schedules/{id} [delete]
func (h *ScheduleHandler) DeleteSchedule(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	if err := h.schedules.DeleteSchedule(c.Request.Context(), actorFrom(c), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Schedule deleted successfully"})
}

// ReserveSeats replaces the staff-reserved seats of a schedule
// @Summary  Reserve seats
// @Tags     schedules
// @Security BearerAuth
// @Param    id    path  int                         true  "Schedule ID"
// @Param    body  body  models.ReservationRequest  true  "Seats"
// @Success  200  {object}  models.ReservationResult
// @Router   /schedules/{id}/reserve [patch]
func (h *ScheduleHandler) ReserveSeats(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	var req models.ReservationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return
	}

	result, err := h.reservations.SetReservation(c.Request.Context(), actorFrom(c), id, req.ReservedSeats.Set())
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":  "Reserved seats updated successfully",
		"schedule": result.Schedule,
		"applied":  result.Applied,
		"rejected": result.Rejected,
		"warning":  result.Warning,
	})
}

// StreamEvents pushes schedule_changed events for one schedule as
// server-sent events until the client goes away.
// @Summary  Schedule change stream
// @Tags     schedules
// @Security BearerAuth
// @Param    id  path  int  true  "Schedule ID"
// @Produce  text/event-stream
// @Router   /schedules/{id}/events [get]
func (h *ScheduleHandler) StreamEvents(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	if h.events == nil {
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "unavailable", Message: "Live updates are not enabled", Code: "EVENTS_UNAVAILABLE",
		})
		return
	}

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	events := make(chan cache.ScheduleEvent, 16)
	go func() {
		err := h.events.Subscribe(ctx, func(ctx context.Context, ev cache.ScheduleEvent) {
			if ev.ScheduleID != id {
				return
			}
			select {
			case events <- ev:
			default:
				// slow client, it refetches on the next event anyway
			}
		})
		if err != nil && ctx.Err() == nil {
			h.logger.WithError(err).WithField("schedule_id", id).Warn("Schedule event subscription ended")
		}
		cancel()
	}()

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.SSEvent("ready", gin.H{"schedule_id": id})
	c.Writer.Flush()

	ticker := time.NewTicker(h.keepAlive)
	defer ticker.Stop()

	c.Stream(func(w io.Writer) bool {
		select {
		case <-ctx.Done():
			return false
		case ev := <-events:
			c.SSEvent(ev.Type, ev)
			return true
		case <-ticker.C:
			c.SSEvent("ping", gin.H{"ts_unix": time.Now().Unix()})
			return true
		}
	})
}
