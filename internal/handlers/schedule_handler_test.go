package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/smarttransit/bus-booking-backend/internal/cache"
	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/smarttransit/bus-booking-backend/internal/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSchedules struct {
	filter    models.ScheduleFilter
	createReq *models.CreateScheduleRequest
	deleteErr error
	reserved  models.SeatSet
}

func (f *fakeSchedules) CreateSchedules(ctx context.Context, actor services.Actor, req *models.CreateScheduleRequest) (*models.CreateSchedulesResult, error) {
	f.createReq = req
	dates, err := req.Dates()
	if err != nil {
		return nil, services.NewValidationError("end_date", "%s", err.Error())
	}
	return &models.CreateSchedulesResult{
		Created: []models.Schedule{{ID: 1}, {ID: 2}},
		Skipped: dates[2:],
		Dates:   dates,
	}, nil
}

func (f *fakeSchedules) ListUpcoming(ctx context.Context, filter models.ScheduleFilter) ([]models.ScheduleDetail, error) {
	f.filter = filter
	return []models.ScheduleDetail{}, nil
}

func (f *fakeSchedules) GetWithSeatMap(ctx context.Context, id int64) (*models.ScheduleWithSeats, error) {
	if id != 7 {
		return nil, database.ErrNotFound
	}
	s := &models.ScheduleWithSeats{}
	s.ID = 7
	s.SeatMap = models.SeatMap{TotalSeats: 2, Seats: []models.SeatView{{Number: 1, Status: models.SeatBooked}, {Number: 2, Status: models.SeatAvailable}}}
	return s, nil
}

func (f *fakeSchedules) DeleteSchedule(ctx context.Context, actor services.Actor, id int64) error {
	return f.deleteErr
}

func (f *fakeSchedules) SetReservation(ctx context.Context, actor services.Actor, id int64, seats models.SeatSet) (*models.ReservationResult, error) {
	f.reserved = seats
	return &models.ReservationResult{
		Schedule: &models.Schedule{ID: id, ReservedSeats: models.SeatSet{11}},
		Applied:  models.SeatSet{11},
		Rejected: models.SeatSet{10},
		Warning:  "seats [10] are already booked and were not reserved",
	}, nil
}

func scheduleRouter(f *fakeSchedules, events ScheduleEvents) *gin.Engine {
	h := NewScheduleHandler(f, f, events, quietLogger())
	r := newTestRouter()
	r.GET("/schedules", h.ListSchedules)
	r.GET("/schedules/:id", h.GetSchedule)
	r.POST("/schedules", h.CreateSchedules)
	r.DELETE("/schedules/:id", h.DeleteSchedule)
	r.PATCH("/schedules/:id/reserve", h.ReserveSeats)
	r.GET("/schedules/:id/events", h.StreamEvents)
	return r
}

func TestListSchedules_Filters(t *testing.T) {
	f := &fakeSchedules{}
	r := scheduleRouter(f, nil)

	w := perform(r, request{method: http.MethodGet, path: "/schedules?date=2026-10-20&date=2026-10-22&route_id=4&source=Colombo"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "2026-10-20", f.filter.Dates[0].String())
	assert.Equal(t, "2026-10-22", f.filter.Dates[1].String())
	assert.Equal(t, int64(4), f.filter.RouteID)
	assert.Equal(t, "Colombo", f.filter.Source)

	assert.Equal(t, http.StatusBadRequest, perform(r, request{method: http.MethodGet, path: "/schedules?route_id=x"}).Code)
}

func TestGetSchedule_SeatMap(t *testing.T) {
	r := scheduleRouter(&fakeSchedules{}, nil)

	w := perform(r, request{method: http.MethodGet, path: "/schedules/7"})
	require.Equal(t, http.StatusOK, w.Code)
	seatMap := decodeMap(t, w)["seat_map"].(map[string]interface{})
	seats := seatMap["seats"].([]interface{})
	assert.Equal(t, "booked", seats[0].(map[string]interface{})["status"])

	assert.Equal(t, http.StatusNotFound, perform(r, request{method: http.MethodGet, path: "/schedules/8"}).Code)
}

func TestCreateSchedules(t *testing.T) {
	f := &fakeSchedules{}
	r := scheduleRouter(f, nil)

	body := gin.H{"bus_id": 1, "route_id": 2, "departure_time": "08:30", "start_date": "2026-10-20", "end_date": "2026-10-22", "price": 1500}
	w := perform(r, request{method: http.MethodPost, path: "/schedules", body: body, userID: 1, role: "staff"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	resp := decodeMap(t, w)
	assert.Equal(t, "2 schedules created, 1 skipped", resp["message"])
	assert.Len(t, resp["dates"], 3)

	tests := []struct {
		name  string
		field string
		body  gin.H
	}{
		{"bad time", "departure_time", gin.H{"bus_id": 1, "route_id": 2, "departure_time": "8.30", "start_date": "2026-10-20", "end_date": "2026-10-22", "price": 1500}},
		{"bad date", "start_date", gin.H{"bus_id": 1, "route_id": 2, "departure_time": "08:30", "start_date": "2026/10/20", "end_date": "2026-10-22", "price": 1500}},
		{"no price", "price", gin.H{"bus_id": 1, "route_id": 2, "departure_time": "08:30", "start_date": "2026-10-20", "end_date": "2026-10-22"}},
		{"reversed range", "end_date", gin.H{"bus_id": 1, "route_id": 2, "departure_time": "08:30", "start_date": "2026-10-22", "end_date": "2026-10-20", "price": 1500}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := perform(r, request{method: http.MethodPost, path: "/schedules", body: tt.body, userID: 1, role: "staff"})
			require.Equal(t, http.StatusBadRequest, w.Code)
			assert.Contains(t, decodeError(t, w).Fields, tt.field)
		})
	}
}

func TestDeleteSchedule(t *testing.T) {
	f := &fakeSchedules{}
	r := scheduleRouter(f, nil)

	assert.Equal(t, http.StatusOK, perform(r, request{method: http.MethodDelete, path: "/schedules/7", userID: 1, role: "staff"}).Code)

	f.deleteErr = services.ErrScheduleHasBookings
	w := perform(r, request{method: http.MethodDelete, path: "/schedules/7", userID: 1, role: "staff"})
	require.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SCHEDULE_HAS_BOOKINGS", decodeError(t, w).Code)
}

func TestReserveSeats(t *testing.T) {
	f := &fakeSchedules{}
	r := scheduleRouter(f, nil)

	w := perform(r, request{method: http.MethodPatch, path: "/schedules/7/reserve", body: gin.H{"reserved_seats": []int{11, 10}}, userID: 1, role: "staff"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, models.SeatSet{10, 11}, f.reserved)
	resp := decodeMap(t, w)
	assert.Equal(t, []interface{}{float64(10)}, resp["rejected"])
	assert.Contains(t, resp["warning"], "already booked")

	t.Run("empty list clears", func(t *testing.T) {
		w := perform(r, request{method: http.MethodPatch, path: "/schedules/7/reserve", body: gin.H{"reserved_seats": []int{}}, userID: 1, role: "staff"})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, f.reserved)
	})

	t.Run("missing field", func(t *testing.T) {
		w := perform(r, request{method: http.MethodPatch, path: "/schedules/7/reserve", raw: `{}`, userID: 1, role: "staff"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

type fakeEvents struct {
	events []cache.ScheduleEvent
}

func (f *fakeEvents) Subscribe(ctx context.Context, handler func(ctx context.Context, ev cache.ScheduleEvent)) error {
	for _, ev := range f.events {
		handler(ctx, ev)
	}
	<-ctx.Done()
	return ctx.Err()
}

// streamRecorder adds the CloseNotifier gin's Stream relies on
type streamRecorder struct {
	*httptest.ResponseRecorder
	closed chan bool
}

func (r *streamRecorder) CloseNotify() <-chan bool { return r.closed }

func TestStreamEvents(t *testing.T) {
	t.Run("unavailable without redis", func(t *testing.T) {
		w := perform(scheduleRouter(&fakeSchedules{}, nil), request{method: http.MethodGet, path: "/schedules/7/events"})
		require.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, "EVENTS_UNAVAILABLE", decodeError(t, w).Code)
	})

	t.Run("forwards matching events", func(t *testing.T) {
		events := &fakeEvents{events: []cache.ScheduleEvent{
			{Type: "schedule_changed", ScheduleID: 8},
			{Type: "schedule_changed", ScheduleID: 7, TsUnix: 1792400000},
		}}
		r := scheduleRouter(&fakeSchedules{}, events)

		ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
		defer cancel()
		req := httptest.NewRequest(http.MethodGet, "/schedules/7/events", nil).WithContext(ctx)
		w := &streamRecorder{ResponseRecorder: httptest.NewRecorder(), closed: make(chan bool, 1)}

		r.ServeHTTP(w, req)

		body := w.Body.String()
		assert.True(t, strings.HasPrefix(body, "event:ready\n"), body)
		assert.Contains(t, body, "event:schedule_changed\n")
		assert.Contains(t, body, `"schedule_id":7`)
		assert.NotContains(t, body, `"schedule_id":8`)
	})
}
