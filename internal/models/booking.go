package models

import (
	"time"
)

// BookingStatus is the lifecycle state of a booking
type BookingStatus string

const (
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
)

// Booking is a traveler's confirmed claim on a set of seats of one schedule
type Booking struct {
	ID               int64         `json:"id" db:"id"`
	BookingReference string        `json:"booking_reference" db:"booking_reference"`
	UserID           int64         `json:"user_id" db:"user_id"`
	ScheduleID       int64         `json:"schedule_id" db:"schedule_id"`
	SeatNumbers      SeatSet       `json:"seat_numbers" db:"seat_numbers"`
	TotalAmount      float64       `json:"total_amount" db:"total_amount"`
	BookingStatus    BookingStatus `json:"booking_status" db:"booking_status"`
	CancelledAt      *time.Time    `json:"cancelled_at,omitempty" db:"cancelled_at"`
	CreatedAt        time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt        time.Time     `json:"updated_at" db:"updated_at"`
}

// IsCancelled reports whether the booking has been cancelled
func (b *Booking) IsCancelled() bool {
	return b.BookingStatus == BookingStatusCancelled
}

// BookingDetail is a booking joined with its schedule, route, bus and owner
type BookingDetail struct {
	Booking
	DepartureTime string     `json:"departure_time" db:"departure_time"`
	ScheduleDate  Date       `json:"schedule_date" db:"schedule_date"`
	Price         float64    `json:"price" db:"price"`
	RouteID       int64      `json:"route_id" db:"route_id"`
	Source        string     `json:"source" db:"source"`
	Destination   string     `json:"destination" db:"destination"`
	BusNumber     string     `json:"bus_number" db:"bus_number"`
	BusName       string     `json:"bus_name" db:"bus_name"`
	UserName      string     `json:"user_name" db:"user_name"`
	Email         string     `json:"email" db:"email"`
	Phone         NullString `json:"phone" db:"phone"`
}

// CreateBookingRequest is the body of POST /bookings. TotalAmount is
// optional; when sent it must match the server-computed price.
type CreateBookingRequest struct {
	ScheduleID  int64    `json:"schedule_id" binding:"required,gt=0"`
	SeatNumbers SeatList `json:"seat_numbers" binding:"required,min=1,max=70"`
	TotalAmount *float64 `json:"total_amount" binding:"omitempty,gte=0"`
}

// CancelBookingRequest is the optional body of PATCH /bookings/:id/cancel.
// An empty SeatsToCancel cancels the whole booking.
type CancelBookingRequest struct {
	SeatsToCancel SeatList `json:"seats_to_cancel"`
}

// CancelResult describes the outcome of a cancellation
type CancelResult struct {
	Booking       *Booking `json:"booking"`
	ReleasedSeats SeatSet  `json:"released_seats"`
	Partial       bool     `json:"partial"`
}

// BookingFilter narrows booking listings. UserID restricts to one owner.
type BookingFilter struct {
	UserID  *int64
	Status  BookingStatus
	Dates   []Date
	RouteID int64
	Search  string
	Limit   int
	Offset  int
}
