package handlers

import (
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/smarttransit/bus-booking-backend/internal/models"
)

// queryDates reads every ?date= value. Comma separated lists are accepted too.
func queryDates(c *gin.Context) ([]models.Date, bool) {
	var dates []models.Date
	for _, raw := range c.QueryArray("date") {
		for _, s := range strings.Split(raw, ",") {
			s = strings.TrimSpace(s)
			if s == "" {
				continue
			}
			d, err := models.ParseDate(s)
			if err != nil {
				badRequest(c, "invalid date "+strconv.Quote(s)+", expected YYYY-MM-DD")
				return nil, false
			}
			dates = append(dates, d)
		}
	}
	return dates, true
}

func queryInt64(c *gin.Context, name string) (int64, bool) {
	raw := c.Query(name)
	if raw == "" {
		return 0, true
	}
	v, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || v < 0 {
		badRequest(c, "invalid "+name)
		return 0, false
	}
	return v, true
}
