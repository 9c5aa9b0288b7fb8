package models

// DashboardStats is the staff dashboard summary
type DashboardStats struct {
	Buses             int     `json:"buses"`
	Routes            int     `json:"routes"`
	UpcomingSchedules int     `json:"upcoming_schedules"`
	ConfirmedBookings int     `json:"confirmed_bookings"`
	CancelledBookings int     `json:"cancelled_bookings"`
	SeatsSold         int     `json:"seats_sold"`
	Revenue           float64 `json:"revenue"`
}
