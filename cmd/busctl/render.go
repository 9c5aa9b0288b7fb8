package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// parseSeats reads "3,4, 7" into seat numbers. Range and duplicate checks
// are left to the server.
func parseSeats(s string) ([]int, error) {
	var seats []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, fmt.Errorf("invalid seat %q", part)
		}
		seats = append(seats, n)
	}
	if len(seats) == 0 {
		return nil, fmt.Errorf("no seats given")
	}
	return seats, nil
}

func joinSeats(seats []int) string {
	if len(seats) == 0 {
		return "-"
	}
	parts := make([]string, len(seats))
	for i, n := range seats {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

// renderSeatMap draws the grid row by row. Free seats show their number,
// booked seats XX and reserved seats RR. Layout gaps stay blank.
func renderSeatMap(w io.Writer, m models.SeatMap) {
	cols := m.Columns
	if cols <= 0 {
		cols = 4
	}

	byIndex := make(map[int]models.SeatView, len(m.Seats))
	maxIndex := -1
	for _, s := range m.Seats {
		byIndex[s.Index] = s
		if s.Index > maxIndex {
			maxIndex = s.Index
		}
	}

	var b strings.Builder
	for i := 0; i <= maxIndex; i++ {
		cell := "  "
		if s, ok := byIndex[i]; ok {
			switch s.Status {
			case models.SeatBooked:
				cell = "XX"
			case models.SeatReserved:
				cell = "RR"
			default:
				cell = fmt.Sprintf("%2d", s.Number)
			}
		}
		b.WriteString("[" + cell + "]")
		if (i+1)%cols == 0 || i == maxIndex {
			b.WriteString("\n")
		}
	}
	fmt.Fprint(w, b.String())
	fmt.Fprintf(w, "%d of %d seats available\n", m.AvailableSeats, m.TotalSeats)
}

func printSchedules(w io.Writer, list []models.ScheduleDetail) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tDATE\tTIME\tROUTE\tBUS\tPRICE\tFREE")
	for _, s := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s -> %s\t%s\t%.2f\t%d/%d\n",
			s.ID, s.ScheduleDate, s.DepartureTime, s.Source, s.Destination, s.BusNumber, s.Price, s.AvailableSeats, s.TotalSeats)
	}
	tw.Flush()
}

func printBookings(w io.Writer, list []models.BookingDetail) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tREFERENCE\tDATE\tTIME\tROUTE\tSEATS\tAMOUNT\tSTATUS")
	for _, b := range list {
		fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s -> %s\t%s\t%.2f\t%s\n",
			b.ID, b.BookingReference, b.ScheduleDate, b.DepartureTime, b.Source, b.Destination,
			joinSeats(b.SeatNumbers), b.TotalAmount, b.BookingStatus)
	}
	tw.Flush()
}
