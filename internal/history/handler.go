package history

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
)

// Handler serves recent executions as JSON. The limit query parameter caps
// the number of rows returned.
func Handler(store *Store) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 0
		if raw := c.Query("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n < 0 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a non-negative integer"})
				return
			}
			limit = n
		}

		executions, err := store.Recent(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"executions": executions})
	}
}
