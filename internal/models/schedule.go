package models

import (
	"errors"
	"fmt"
	"time"
)

// ScheduleStatus is the lifecycle state of a schedule
type ScheduleStatus string

const (
	ScheduleStatusActive    ScheduleStatus = "active"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
	ScheduleStatusCompleted ScheduleStatus = "completed"
)

// MaxScheduleSpanDays caps how many rows a single create request may expand into
const MaxScheduleSpanDays = 366

// Schedule is one departure of a bus on a route on a given day. It carries
// the seat ledger: booked and reserved seats plus the derived availability.
type Schedule struct {
	ID             int64          `json:"id" db:"id"`
	BusID          int64          `json:"bus_id" db:"bus_id"`
	RouteID        int64          `json:"route_id" db:"route_id"`
	DepartureTime  string         `json:"departure_time" db:"departure_time"`
	ScheduleDate   Date           `json:"schedule_date" db:"schedule_date"`
	Price          float64        `json:"price" db:"price"`
	TotalSeats     int            `json:"total_seats" db:"total_seats"`
	AvailableSeats int            `json:"available_seats" db:"available_seats"`
	BookedSeats    SeatSet        `json:"booked_seats" db:"booked_seats"`
	ReservedSeats  SeatSet        `json:"reserved_seats" db:"reserved_seats"`
	Status         ScheduleStatus `json:"status" db:"status"`
	CreatedAt      time.Time      `json:"created_at" db:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at" db:"updated_at"`
}

// ScheduleDetail is a schedule joined with its bus and route
type ScheduleDetail struct {
	Schedule
	BusNumber   string        `json:"bus_number" db:"bus_number"`
	BusName     string        `json:"bus_name" db:"bus_name"`
	BusType     string        `json:"bus_type" db:"bus_type"`
	SeatLayout  LayoutIndexes `json:"seat_layout" db:"seat_layout"`
	Source      string        `json:"source" db:"source"`
	Destination string        `json:"destination" db:"destination"`
	Distance    float64       `json:"distance" db:"distance"`
	Duration    string        `json:"duration" db:"duration"`
}

// SeatStatus is the state of a single seat in a seat map
type SeatStatus string

const (
	SeatAvailable SeatStatus = "available"
	SeatBooked    SeatStatus = "booked"
	SeatReserved  SeatStatus = "reserved"
)

// SeatView is one cell of a seat map
type SeatView struct {
	Number int        `json:"number"`
	Index  int        `json:"index"`
	Status SeatStatus `json:"status"`
}

// SeatMap is the unlocked snapshot a client renders before choosing seats
type SeatMap struct {
	Columns        int        `json:"columns"`
	TotalSeats     int        `json:"total_seats"`
	AvailableSeats int        `json:"available_seats"`
	Seats          []SeatView `json:"seats"`
}

// ScheduleWithSeats is the GET /schedules/:id response
type ScheduleWithSeats struct {
	ScheduleDetail
	SeatMap SeatMap `json:"seat_map"`
}

// BuildSeatMap lays out every seat of the schedule's bus with its status
func (d *ScheduleDetail) BuildSeatMap() SeatMap {
	valid := SeatNumbersFor(d.SeatLayout, d.TotalSeats)
	seats := make([]SeatView, 0, len(valid))
	for _, n := range valid {
		status := SeatAvailable
		switch {
		case d.BookedSeats.Contains(n):
			status = SeatBooked
		case d.ReservedSeats.Contains(n):
			status = SeatReserved
		}
		seats = append(seats, SeatView{Number: n, Index: n - 1, Status: status})
	}
	return SeatMap{
		Columns:        SeatGridColumns,
		TotalSeats:     d.TotalSeats,
		AvailableSeats: d.AvailableSeats,
		Seats:          seats,
	}
}

// CreateScheduleRequest expands into one schedule per day between StartDate and EndDate inclusive
type CreateScheduleRequest struct {
	BusID         int64   `json:"bus_id" binding:"required,gt=0"`
	RouteID       int64   `json:"route_id" binding:"required,gt=0"`
	DepartureTime string  `json:"departure_time" binding:"required,hhmm"`
	StartDate     string  `json:"start_date" binding:"required,ymd"`
	EndDate       string  `json:"end_date" binding:"required,ymd"`
	Price         float64 `json:"price" binding:"required,gt=0"`
}

// Dates validates the range and returns every day in it
func (r *CreateScheduleRequest) Dates() ([]Date, error) {
	start, err := ParseDate(r.StartDate)
	if err != nil {
		return nil, err
	}
	end, err := ParseDate(r.EndDate)
	if err != nil {
		return nil, err
	}
	if end.Before(start.Time) {
		return nil, errors.New("end_date must not be before start_date")
	}
	days := int(end.Sub(start.Time).Hours()/24) + 1
	if days > MaxScheduleSpanDays {
		return nil, fmt.Errorf("date range spans %d days, the maximum is %d", days, MaxScheduleSpanDays)
	}

	dates := make([]Date, 0, days)
	for d := start.Time; !d.After(end.Time); d = d.AddDate(0, 0, 1) {
		dates = append(dates, Date{d})
	}
	return dates, nil
}

// CreateSchedulesResult reports what a range expansion produced
type CreateSchedulesResult struct {
	Created []Schedule `json:"created"`
	Skipped []Date     `json:"skipped"`
	Dates   []Date     `json:"dates"`
}

// ReservationRequest is the body of PATCH /schedules/:id/reserve. An empty
// list clears all reservations.
type ReservationRequest struct {
	ReservedSeats SeatList `json:"reserved_seats" binding:"required"`
}

// ReservationResult is returned after a reservation update
type ReservationResult struct {
	Schedule *Schedule `json:"schedule"`
	Applied  SeatSet   `json:"applied"`
	Rejected SeatSet   `json:"rejected"`
	Warning  string    `json:"warning,omitempty"`
}

// ScheduleFilter narrows GET /schedules
type ScheduleFilter struct {
	Dates       []Date
	RouteID     int64
	Source      string
	Destination string
	From        Date
}
