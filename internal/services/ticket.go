package services

import (
	"bytes"
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/phpdave11/gofpdf"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// Ticket renders the e-ticket of a confirmed booking as a PDF
func (s *BookingService) Ticket(ctx context.Context, actor Actor, bookingID int64) ([]byte, string, error) {
	detail, err := s.GetBooking(ctx, actor, bookingID)
	if err != nil {
		return nil, "", err
	}
	if detail.IsCancelled() {
		return nil, "", ErrBookingAlreadyCancelled
	}

	pdf, err := buildTicketPDF(detail)
	if err != nil {
		return nil, "", fmt.Errorf("failed to render ticket: %w", err)
	}
	return pdf, "ETICKET_" + detail.BookingReference + ".pdf", nil
}

func buildTicketPDF(d *models.BookingDetail) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle("E-Ticket "+d.BookingReference, false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.Cell(0, 10, "E-TICKET")
	pdf.Ln(12)

	seats := make([]string, len(d.SeatNumbers))
	for i, n := range d.SeatNumbers {
		seats[i] = strconv.Itoa(n)
	}

	pdf.SetFont("Helvetica", "", 12)
	lines := []string{
		fmt.Sprintf("Reference      : %s", d.BookingReference),
		fmt.Sprintf("Passenger      : %s", orDash(d.UserName)),
		fmt.Sprintf("Phone          : %s", orDash(d.Phone.String)),
		fmt.Sprintf("Route          : %s -> %s", orDash(d.Source), orDash(d.Destination)),
		fmt.Sprintf("Date / Time    : %s %s", d.ScheduleDate, orDash(d.DepartureTime)),
		fmt.Sprintf("Bus            : %s %s", orDash(d.BusNumber), d.BusName),
		fmt.Sprintf("Seats          : %s", strings.Join(seats, ", ")),
		fmt.Sprintf("Amount         : %.2f", d.TotalAmount),
	}
	for _, line := range lines {
		pdf.Cell(0, 7, line)
		pdf.Ln(7)
	}

	pdf.Ln(6)
	pdf.SetFont("Helvetica", "I", 10)
	pdf.MultiCell(0, 6, "Please present this ticket when boarding. Seats are valid only for the date and departure shown.", "", "", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
