package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// BusStore is the bus catalog
type BusStore interface {
	List(ctx context.Context) ([]models.Bus, error)
	GetByID(ctx context.Context, id int64) (*models.Bus, error)
	Create(ctx context.Context, bus *models.Bus) error
	Update(ctx context.Context, bus *models.Bus) error
	Delete(ctx context.Context, id int64) error
}

// BusHandler serves the bus catalog. Writes are staff-only at the router.
type BusHandler struct {
	buses BusStore
}

// NewBusHandler creates a new BusHandler
func NewBusHandler(buses BusStore) *BusHandler {
	return &BusHandler{buses: buses}
}

// GetAllBuses lists every bus
// GET /api/buses
func (h *BusHandler) GetAllBuses(c *gin.Context) {
	buses, err := h.buses.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, buses)
}

// GetBusByID returns one bus
// GET /api/buses/:id
func (h *BusHandler) GetBusByID(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	bus, err := h.buses.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bus)
}

// CreateBus adds a bus
// POST /api/buses
func (h *BusHandler) CreateBus(c *gin.Context) {
	bus, ok := h.bindBus(c)
	if !ok {
		return
	}

	if err := h.buses.Create(c.Request.Context(), bus); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, bus)
}

// UpdateBus replaces a bus. Existing schedules keep the seat count they were created with.
// PUT /api/buses/:id
func (h *BusHandler) UpdateBus(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	bus, ok := h.bindBus(c)
	if !ok {
		return
	}
	bus.ID = id

	if err := h.buses.Update(c.Request.Context(), bus); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, bus)
}

// DeleteBus removes a bus that no schedule references
// DELETE /api/buses/:id
func (h *BusHandler) DeleteBus(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}

	if err := h.buses.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bus deleted successfully"})
}

func (h *BusHandler) bindBus(c *gin.Context) (*models.Bus, bool) {
	var req models.BusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return nil, false
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "validation_error",
			Message: err.Error(),
			Code:    "VALIDATION_ERROR",
			Fields:  map[string]string{"seat_layout": err.Error()},
		})
		return nil, false
	}
	return req.ToBus(), true
}
