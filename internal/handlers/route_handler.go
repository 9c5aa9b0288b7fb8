package handlers

import (
	"context"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// RouteStore is the route catalog
type RouteStore interface {
	List(ctx context.Context) ([]models.Route, error)
	GetByID(ctx context.Context, id int64) (*models.Route, error)
	Create(ctx context.Context, route *models.Route) error
	Update(ctx context.Context, route *models.Route) error
	Delete(ctx context.Context, id int64) error
}

// RouteHandler serves the route catalog
type RouteHandler struct {
	routes RouteStore
}

// NewRouteHandler creates a new RouteHandler
func NewRouteHandler(routes RouteStore) *RouteHandler {
	return &RouteHandler{routes: routes}
}

// GET /api/routes
func (h *RouteHandler) GetAllRoutes(c *gin.Context) {
	routes, err := h.routes.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, routes)
}

// GET /api/routes/:id
func (h *RouteHandler) GetRouteByID(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	route, err := h.routes.GetByID(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

// POST /api/routes
func (h *RouteHandler) CreateRoute(c *gin.Context) {
	route, ok := bindRoute(c)
	if !ok {
		return
	}
	if err := h.routes.Create(c.Request.Context(), route); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, route)
}

// PUT /api/routes/:id
func (h *RouteHandler) UpdateRoute(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	route, ok := bindRoute(c)
	if !ok {
		return
	}
	route.ID = id

	if err := h.routes.Update(c.Request.Context(), route); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, route)
}

// DELETE /api/routes/:id
func (h *RouteHandler) DeleteRoute(c *gin.Context) {
	id, ok := parseInt64Param(c, "id")
	if !ok {
		return
	}
	if err := h.routes.Delete(c.Request.Context(), id); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Route deleted successfully"})
}

func bindRoute(c *gin.Context) (*models.Route, bool) {
	var req models.RouteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBindError(c, err)
		return nil, false
	}
	req.Source = strings.TrimSpace(req.Source)
	req.Destination = strings.TrimSpace(req.Destination)
	if req.Source == "" || req.Destination == "" {
		badRequest(c, "source and destination must not be blank")
		return nil, false
	}
	if strings.EqualFold(req.Source, req.Destination) {
		badRequest(c, "source and destination must differ")
		return nil, false
	}
	return req.ToRoute(), true
}
