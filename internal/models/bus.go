package models

import (
	"errors"
	"fmt"
	"time"
)

// Seat grid geometry used by layouts: 7 columns, 70 cells
const (
	SeatGridColumns = 7
	SeatGridCells   = 70
)

// Bus represents a coach and its seat layout
type Bus struct {
	ID         int64         `json:"id" db:"id"`
	BusNumber  string        `json:"bus_number" db:"bus_number"`
	BusName    string        `json:"bus_name" db:"bus_name"`
	BusIndex   int           `json:"bus_index" db:"bus_index"`
	BusType    string        `json:"bus_type" db:"bus_type"`
	TotalSeats int           `json:"total_seats" db:"total_seats"`
	SeatLayout LayoutIndexes `json:"seat_layout" db:"seat_layout"`
	CreatedAt  time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at" db:"updated_at"`
}

// SeatNumberForIndex converts a 0-based grid index to the seat number shown to travelers
func SeatNumberForIndex(index int) int {
	return index + 1
}

// SeatNumbers returns the valid seat numbers of the bus. With no layout the
// seats are numbered 1..TotalSeats.
func (b *Bus) SeatNumbers() SeatSet {
	return SeatNumbersFor(b.SeatLayout, b.TotalSeats)
}

// SeatNumbersFor derives valid seat numbers from a layout and capacity
func SeatNumbersFor(layout LayoutIndexes, totalSeats int) SeatSet {
	if len(layout) == 0 {
		seats := make([]int, totalSeats)
		for i := range seats {
			seats[i] = i + 1
		}
		return NewSeatSet(seats...)
	}
	seats := make([]int, len(layout))
	for i, idx := range layout {
		seats[i] = SeatNumberForIndex(idx)
	}
	return NewSeatSet(seats...)
}

// BusRequest is the body for creating or replacing a bus
type BusRequest struct {
	BusNumber  string `json:"bus_number" binding:"required,max=50"`
	BusName    string `json:"bus_name" binding:"required,max=100"`
	BusIndex   int    `json:"bus_index" binding:"gte=0"`
	BusType    string `json:"bus_type" binding:"required,max=50"`
	TotalSeats int    `json:"total_seats" binding:"required,gt=0,lte=70"`
	SeatLayout []int  `json:"seat_layout"`
}

// Validate checks the layout against the declared capacity
func (r *BusRequest) Validate() error {
	if len(r.SeatLayout) == 0 {
		return nil
	}
	if len(r.SeatLayout) != r.TotalSeats {
		return fmt.Errorf("seat_layout has %d seats but total_seats is %d", len(r.SeatLayout), r.TotalSeats)
	}
	seen := make(map[int]bool, len(r.SeatLayout))
	for _, idx := range r.SeatLayout {
		if idx < 0 || idx >= SeatGridCells {
			return fmt.Errorf("seat_layout index %d is outside the %d cell grid", idx, SeatGridCells)
		}
		if seen[idx] {
			return errors.New("seat_layout contains duplicate indexes")
		}
		seen[idx] = true
	}
	return nil
}

// ToBus builds a Bus from the request
func (r *BusRequest) ToBus() *Bus {
	return &Bus{
		BusNumber:  r.BusNumber,
		BusName:    r.BusName,
		BusIndex:   r.BusIndex,
		BusType:    r.BusType,
		TotalSeats: r.TotalSeats,
		SeatLayout: LayoutIndexes(NewSeatSet(r.SeatLayout...)),
	}
}
