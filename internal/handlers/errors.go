package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/smarttransit/bus-booking-backend/internal/database"
	"github.com/smarttransit/bus-booking-backend/internal/ledger"
	"github.com/smarttransit/bus-booking-backend/internal/services"
	"github.com/smarttransit/bus-booking-backend/pkg/validator"
)

// ErrorResponse is the body of every failed request
type ErrorResponse struct {
	Error     string            `json:"error"`
	Message   string            `json:"message"`
	Code      string            `json:"code"`
	Seats     []int             `json:"seats,omitempty"`
	Fields    map[string]string `json:"fields,omitempty"`
	Retryable bool              `json:"retryable,omitempty"`
}

// respondError maps service, ledger and database errors to HTTP responses
func respondError(c *gin.Context, err error) {
	var (
		validationErr *services.ValidationError
		conflictErr   *ledger.SeatConflictError
		unknownErr    *ledger.UnknownSeatError
	)

	switch {
	case errors.As(err, &validationErr):
		resp := ErrorResponse{Error: "validation_error", Message: validationErr.Error(), Code: "VALIDATION_ERROR"}
		if validationErr.Field != "" {
			resp.Fields = map[string]string{validationErr.Field: validationErr.Message}
		}
		c.JSON(http.StatusBadRequest, resp)
	case errors.As(err, &unknownErr):
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error: "unknown_seat", Message: unknownErr.Error(), Code: "UNKNOWN_SEAT", Seats: unknownErr.Seats,
		})
	case errors.Is(err, ledger.ErrNoSeats):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: err.Error(), Code: "VALIDATION_ERROR"})
	case errors.Is(err, services.ErrInvalidCredentials):
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized", Message: err.Error(), Code: "INVALID_CREDENTIALS"})
	case errors.Is(err, services.ErrForbidden):
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "forbidden", Message: err.Error(), Code: "FORBIDDEN"})
	case errors.Is(err, database.ErrNotFound):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "not_found", Message: err.Error(), Code: "NOT_FOUND"})
	case errors.As(err, &conflictErr):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: "seat_conflict", Message: conflictErr.Error(), Code: "SEAT_CONFLICT", Seats: conflictErr.Seats,
		})
	case errors.Is(err, ledger.ErrCapacityExceeded):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "capacity_exceeded", Message: err.Error(), Code: "CAPACITY_EXCEEDED"})
	case errors.Is(err, services.ErrBookingAlreadyCancelled):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "already_cancelled", Message: err.Error(), Code: "ALREADY_CANCELLED"})
	case errors.Is(err, services.ErrScheduleClosed):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "schedule_closed", Message: err.Error(), Code: "SCHEDULE_CLOSED"})
	case errors.Is(err, services.ErrScheduleHasBookings):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "schedule_has_bookings", Message: err.Error(), Code: "SCHEDULE_HAS_BOOKINGS"})
	case errors.Is(err, services.ErrEmailTaken):
		c.JSON(http.StatusConflict, ErrorResponse{Error: "conflict", Message: err.Error(), Code: "EMAIL_TAKEN"})
	case errors.Is(err, database.ErrConflict):
		c.JSON(http.StatusConflict, ErrorResponse{
			Error: "conflict", Message: "The request conflicts with existing data", Code: "CONFLICT",
		})
	case database.IsRetryable(err):
		c.Header("Retry-After", "1")
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{
			Error: "busy", Message: database.ErrRetryable.Error(), Code: "RETRYABLE", Retryable: true,
		})
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, ErrorResponse{
			Error: "internal_error", Message: "An unexpected error occurred", Code: "INTERNAL_ERROR",
		})
	}
}

// respondBindError reports a malformed or invalid request body
func respondBindError(c *gin.Context, err error) {
	resp := ErrorResponse{Error: "validation_error", Code: "VALIDATION_ERROR"}

	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, io.EOF):
		resp.Message = "Request body is required"
	case errors.As(err, &syntaxErr):
		resp.Message = "Request body is not valid JSON"
	case errors.As(err, &typeErr):
		resp.Message = "Field " + typeErr.Field + " has the wrong type"
		resp.Fields = map[string]string{typeErr.Field: "wrong type"}
	default:
		if fields := validator.FieldErrors(err); fields != nil {
			resp.Message = "Request validation failed"
			resp.Fields = fields
		} else {
			resp.Message = err.Error()
		}
	}

	c.JSON(http.StatusBadRequest, resp)
}

func badRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation_error", Message: message, Code: "VALIDATION_ERROR"})
}

func parseInt64Param(c *gin.Context, name string) (int64, bool) {
	v, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || v <= 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}
