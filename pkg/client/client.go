// Package client is a Go client for the booking API. Seat maps it returns
// are snapshots; a seat shown as available can still be taken by the time
// Book runs, in which case Book returns an *APIError with code SEAT_CONFLICT.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// APIError is a non-2xx response
type APIError struct {
	Status    int               `json:"-"`
	Slug      string            `json:"error"`
	Message   string            `json:"message"`
	Code      string            `json:"code"`
	Seats     []int             `json:"seats,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// IsCode reports whether err is an APIError with the given code
func IsCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// Client talks to the API under baseURL (for example http://localhost:8080/api)
type Client struct {
	baseURL    string
	httpClient *http.Client
	session    *Session
	retries    int
	retryWait  time.Duration
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the default http.Client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetries sets how often a RETRYABLE response is retried
func WithRetries(n int, wait time.Duration) Option {
	return func(c *Client) { c.retries, c.retryWait = n, wait }
}

// New creates a client. session may be nil for anonymous use.
func New(baseURL string, session *Session, opts ...Option) *Client {
	if session == nil {
		session = NewSession("")
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 15 * time.Second},
		session:    session,
		retries:    2,
		retryWait:  500 * time.Millisecond,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Session returns the token holder
func (c *Client) Session() *Session {
	return c.session
}

// Register creates an account and returns its id
func (c *Client) Register(ctx context.Context, req models.RegisterRequest) (int64, error) {
	var resp struct {
		UserID int64 `json:"userId"`
	}
	if err := c.do(ctx, http.MethodPost, "/auth/register", nil, req, &resp, false); err != nil {
		return 0, err
	}
	return resp.UserID, nil
}

// Login authenticates and stores the token in the session
func (c *Client) Login(ctx context.Context, email, password string) (*models.LoginResponse, error) {
	var resp models.LoginResponse
	req := models.LoginRequest{Email: email, Password: password}
	if err := c.do(ctx, http.MethodPost, "/auth/login", nil, req, &resp, false); err != nil {
		return nil, err
	}
	if err := c.session.Save(resp.Token); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Logout forgets the token. Tokens are stateless so the server is not called.
func (c *Client) Logout() error {
	return c.session.Clear()
}

// UpdateProfile changes the caller's profile
func (c *Client) UpdateProfile(ctx context.Context, req models.UpdateProfileRequest) (*models.User, error) {
	var resp struct {
		User *models.User `json:"user"`
	}
	if err := c.do(ctx, http.MethodPatch, "/auth/profile", nil, req, &resp, true); err != nil {
		return nil, err
	}
	return resp.User, nil
}

// Buses lists the bus catalog
func (c *Client) Buses(ctx context.Context) ([]models.Bus, error) {
	var buses []models.Bus
	err := c.do(ctx, http.MethodGet, "/buses", nil, nil, &buses, true)
	return buses, err
}

// Routes lists the route catalog
func (c *Client) Routes(ctx context.Context) ([]models.Route, error) {
	var routes []models.Route
	err := c.do(ctx, http.MethodGet, "/routes", nil, nil, &routes, true)
	return routes, err
}

// ScheduleQuery narrows Schedules
type ScheduleQuery struct {
	Dates       []string
	RouteID     int64
	Source      string
	Destination string
}

func (q ScheduleQuery) values() url.Values {
	v := url.Values{}
	for _, d := range q.Dates {
		v.Add("date", d)
	}
	if q.RouteID > 0 {
		v.Set("route_id", strconv.FormatInt(q.RouteID, 10))
	}
	if q.Source != "" {
		v.Set("source", q.Source)
	}
	if q.Destination != "" {
		v.Set("destination", q.Destination)
	}
	return v
}

// Schedules lists upcoming schedules
func (c *Client) Schedules(ctx context.Context, q ScheduleQuery) ([]models.ScheduleDetail, error) {
	var schedules []models.ScheduleDetail
	err := c.do(ctx, http.MethodGet, "/schedules", q.values(), nil, &schedules, true)
	return schedules, err
}

// Schedule returns a schedule with its seat map
func (c *Client) Schedule(ctx context.Context, id int64) (*models.ScheduleWithSeats, error) {
	var schedule models.ScheduleWithSeats
	if err := c.do(ctx, http.MethodGet, "/schedules/"+strconv.FormatInt(id, 10), nil, nil, &schedule, true); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// Book claims seats on a schedule
func (c *Client) Book(ctx context.Context, scheduleID int64, seats []int) (*models.Booking, error) {
	var resp struct {
		Booking *models.Booking `json:"booking"`
	}
	req := models.CreateBookingRequest{ScheduleID: scheduleID, SeatNumbers: models.SeatList(seats)}
	if err := c.do(ctx, http.MethodPost, "/bookings", nil, req, &resp, true); err != nil {
		return nil, err
	}
	return resp.Booking, nil
}

// Cancel cancels a booking, or only the given seats of it
func (c *Client) Cancel(ctx context.Context, bookingID int64, seats []int) (*models.CancelResult, error) {
	var resp models.CancelResult
	req := models.CancelBookingRequest{SeatsToCancel: models.SeatList(seats)}
	path := "/bookings/" + strconv.FormatInt(bookingID, 10) + "/cancel"
	if err := c.do(ctx, http.MethodPatch, path, nil, req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Reserve replaces the reserved seats of a schedule
func (c *Client) Reserve(ctx context.Context, scheduleID int64, seats []int) (*models.ReservationResult, error) {
	var resp models.ReservationResult
	if seats == nil {
		seats = []int{}
	}
	req := models.ReservationRequest{ReservedSeats: models.SeatList(seats)}
	path := "/schedules/" + strconv.FormatInt(scheduleID, 10) + "/reserve"
	if err := c.do(ctx, http.MethodPatch, path, nil, req, &resp, true); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Bookings lists bookings visible to the caller
func (c *Client) Bookings(ctx context.Context, status string) ([]models.BookingDetail, error) {
	q := url.Values{}
	if status != "" {
		q.Set("status", status)
	}
	var bookings []models.BookingDetail
	err := c.do(ctx, http.MethodGet, "/bookings", q, nil, &bookings, true)
	return bookings, err
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out interface{}, auth bool) error {
	var payload []byte
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		payload = b
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	var err error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(c.retryWait * time.Duration(attempt)):
			}
		}

		err = c.once(ctx, method, u, payload, out, auth)
		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.Retryable {
			return err
		}
	}
	return err
}

func (c *Client) once(ctx context.Context, method, u string, payload []byte, out interface{}, auth bool) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token := c.session.Token(); auth && token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, u, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if jsonErr := json.Unmarshal(data, apiErr); jsonErr != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(data))
		}
		if resp.StatusCode == http.StatusServiceUnavailable && resp.Header.Get("Retry-After") != "" {
			apiErr.Retryable = true
		}
		return apiErr
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
