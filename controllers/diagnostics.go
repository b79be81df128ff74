package controllers

import (
	"net/http"

	"aeternum/auth"
	"aeternum/role"
	"aeternum/util"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

func (h *Handlers) Diagnostic(api *gin.RouterGroup) {
	api.GET("/test-db", auth.RequireRoles(role.Admin), h.TestDB)
}

// TestDB is the only route that returns error detail to the caller.
func (h *Handlers) TestDB(c *gin.Context) {
	names, err := h.Diagnostics.CollectionNames(c)
	if err != nil {
		log.Error().Err(err).Msg("MongoDB connection error")
		c.JSON(http.StatusInternalServerError, gin.H{
			"error":   util.DB_CONNECTION_FAILED,
			"details": gin.H{"message": err.Error()},
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"status":      "Connected successfully to MongoDB!",
		"collections": names,
	})
}
