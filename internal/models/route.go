package models

import "time"

// Route is a source/destination pair served by schedules
type Route struct {
	ID          int64     `json:"id" db:"id"`
	Source      string    `json:"source" db:"source"`
	Destination string    `json:"destination" db:"destination"`
	Distance    float64   `json:"distance" db:"distance"`
	Duration    string    `json:"duration" db:"duration"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time `json:"updated_at" db:"updated_at"`
}

// Label renders the route the way dashboards display it
func (r *Route) Label() string {
	return r.Source + " → " + r.Destination
}

// RouteRequest is the body for creating or replacing a route
type RouteRequest struct {
	Source      string  `json:"source" binding:"required,max=100"`
	Destination string  `json:"destination" binding:"required,max=100,nefield=Source"`
	Distance    float64 `json:"distance" binding:"gte=0"`
	Duration    string  `json:"duration" binding:"max=50"`
}

// ToRoute builds a Route from the request
func (r *RouteRequest) ToRoute() *Route {
	return &Route{
		Source:      r.Source,
		Destination: r.Destination,
		Distance:    r.Distance,
		Duration:    r.Duration,
	}
}
