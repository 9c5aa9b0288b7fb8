// Command busctl is a terminal client for the booking API. It keeps the
// login token in ~/.busctl/token and prints the seat map again after every
// change, since any map it showed earlier may already be stale.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/smarttransit/bus-booking-backend/internal/models"
	"github.com/smarttransit/bus-booking-backend/pkg/client"
)

const usage = `usage: busctl [-api URL] <command> [args]

commands:
  register  -name N -email E -password P [-phone P]
  login     -email E -password P
  logout
  schedules [-date YYYY-MM-DD] [-route ID] [-from CITY] [-to CITY]
  seats     SCHEDULE_ID
  book      SCHEDULE_ID SEAT[,SEAT...]
  bookings  [-status confirmed|cancelled]
  cancel    BOOKING_ID [SEAT,SEAT...]
  reserve   SCHEDULE_ID [SEAT,SEAT...]   (staff; no seats clears reservations)
`

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "busctl:", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	global := flag.NewFlagSet("busctl", flag.ContinueOnError)
	api := global.String("api", envOr("BUSCTL_API", "http://localhost:8080/api"), "API base URL")
	global.Usage = func() { fmt.Fprint(global.Output(), usage) }
	if err := global.Parse(args); err != nil {
		return err
	}
	if global.NArg() == 0 {
		global.Usage()
		return errors.New("missing command")
	}

	path, err := client.DefaultSessionPath()
	if err != nil {
		return err
	}
	session := client.NewSession(path)
	if err := session.Load(); err != nil {
		return err
	}
	c := client.New(*api, session)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	cmd, rest := global.Arg(0), global.Args()[1:]
	switch cmd {
	case "register":
		return register(ctx, c, rest, out)
	case "login":
		return login(ctx, c, rest, out)
	case "logout":
		if err := c.Logout(); err != nil {
			return err
		}
		fmt.Fprintln(out, "Logged out.")
		return nil
	case "schedules":
		return schedules(ctx, c, rest, out)
	case "seats":
		id, err := idArg(rest, "SCHEDULE_ID")
		if err != nil {
			return err
		}
		return showSeats(ctx, c, id, out)
	case "book":
		return book(ctx, c, rest, out)
	case "bookings":
		return bookings(ctx, c, rest, out)
	case "cancel":
		return cancelBooking(ctx, c, rest, out)
	case "reserve":
		return reserve(ctx, c, rest, out)
	default:
		global.Usage()
		return fmt.Errorf("unknown command %q", cmd)
	}
}

func register(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("register", flag.ContinueOnError)
	name := fs.String("name", "", "full name")
	email := fs.String("email", "", "email")
	password := fs.String("password", os.Getenv("BUSCTL_PASSWORD"), "password (or BUSCTL_PASSWORD)")
	phone := fs.String("phone", "", "phone number")
	if err := fs.Parse(args); err != nil {
		return err
	}

	req := models.RegisterRequest{Name: *name, Email: *email, Password: *password, Phone: *phone}
	id, err := c.Register(ctx, req)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Registered user %d. Log in with: busctl login -email %s\n", id, *email)
	return nil
}

func login(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("login", flag.ContinueOnError)
	email := fs.String("email", "", "email")
	password := fs.String("password", os.Getenv("BUSCTL_PASSWORD"), "password (or BUSCTL_PASSWORD)")
	if err := fs.Parse(args); err != nil {
		return err
	}

	resp, err := c.Login(ctx, *email, *password)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Logged in as %s (%s).\n", resp.User.Email, resp.User.Role)
	return nil
}

func schedules(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("schedules", flag.ContinueOnError)
	date := fs.String("date", "", "travel date, comma separated for several")
	route := fs.Int64("route", 0, "route id")
	from := fs.String("from", "", "source city")
	to := fs.String("to", "", "destination city")
	if err := fs.Parse(args); err != nil {
		return err
	}

	q := client.ScheduleQuery{RouteID: *route, Source: *from, Destination: *to}
	if *date != "" {
		q.Dates = strings.Split(*date, ",")
	}
	list, err := c.Schedules(ctx, q)
	if err != nil {
		return err
	}
	printSchedules(out, list)
	return nil
}

func book(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) != 2 {
		return errors.New("usage: busctl book SCHEDULE_ID SEAT[,SEAT...]")
	}
	id, err := idArg(args[:1], "SCHEDULE_ID")
	if err != nil {
		return err
	}
	seats, err := parseSeats(args[1])
	if err != nil {
		return err
	}

	b, err := c.Book(ctx, id, seats)
	if client.IsCode(err, "SEAT_CONFLICT") {
		fmt.Fprintln(out, "Those seats were just taken. Current map:")
		if showErr := showSeats(ctx, c, id, out); showErr != nil {
			return showErr
		}
		return err
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Booked %s: seats %s, total %.2f\n", b.BookingReference, joinSeats(b.SeatNumbers), b.TotalAmount)
	return showSeats(ctx, c, id, out)
}

func bookings(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	fs := flag.NewFlagSet("bookings", flag.ContinueOnError)
	status := fs.String("status", "", "confirmed or cancelled")
	if err := fs.Parse(args); err != nil {
		return err
	}

	list, err := c.Bookings(ctx, *status)
	if err != nil {
		return err
	}
	printBookings(out, list)
	return nil
}

func cancelBooking(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: busctl cancel BOOKING_ID [SEAT,SEAT...]")
	}
	id, err := idArg(args[:1], "BOOKING_ID")
	if err != nil {
		return err
	}
	var seats []int
	if len(args) == 2 {
		if seats, err = parseSeats(args[1]); err != nil {
			return err
		}
	}

	res, err := c.Cancel(ctx, id, seats)
	if err != nil {
		return err
	}
	if res.Partial {
		fmt.Fprintf(out, "Released seats %s. Booking keeps %s.\n", joinSeats(res.ReleasedSeats), joinSeats(res.Booking.SeatNumbers))
	} else {
		fmt.Fprintf(out, "Booking %s cancelled, released seats %s.\n", res.Booking.BookingReference, joinSeats(res.ReleasedSeats))
	}
	return showSeats(ctx, c, res.Booking.ScheduleID, out)
}

func reserve(ctx context.Context, c *client.Client, args []string, out io.Writer) error {
	if len(args) < 1 || len(args) > 2 {
		return errors.New("usage: busctl reserve SCHEDULE_ID [SEAT,SEAT...]")
	}
	id, err := idArg(args[:1], "SCHEDULE_ID")
	if err != nil {
		return err
	}
	seats := []int{}
	if len(args) == 2 {
		if seats, err = parseSeats(args[1]); err != nil {
			return err
		}
	}

	res, err := c.Reserve(ctx, id, seats)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "Reserved seats now: %s\n", joinSeats(res.Applied))
	if res.Warning != "" {
		fmt.Fprintf(out, "Warning: %s\n", res.Warning)
	}
	return showSeats(ctx, c, id, out)
}

func showSeats(ctx context.Context, c *client.Client, scheduleID int64, out io.Writer) error {
	s, err := c.Schedule(ctx, scheduleID)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "%s -> %s  %s %s  %s (%s)\n", s.Source, s.Destination, s.ScheduleDate, s.DepartureTime, s.BusName, s.BusNumber)
	renderSeatMap(out, s.SeatMap)
	return nil
}

func idArg(args []string, name string) (int64, error) {
	if len(args) == 0 {
		return 0, fmt.Errorf("%s is required", name)
	}
	id, err := strconv.ParseInt(args[0], 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid %s %q", name, args[0])
	}
	return id, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
