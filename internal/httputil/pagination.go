package httputil

import (
	"fmt"
	"strconv"

	"github.com/gin-gonic/gin"
)

// ParseLimit safely parses the limit query parameter used by the audit query
// routes. Defaults to 50, capped at 500.
func ParseLimit(c *gin.Context) (int, error) {
	limitStr := c.DefaultQuery("limit", "50")
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit < 1 || limit > 500 {
		return 0, fmt.Errorf("invalid limit parameter: must be between 1 and 500")
	}
	return limit, nil
}
