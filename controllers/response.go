package controllers

import (
	"net/http"

	"aeternum/services"
	"aeternum/util"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var statusByKind = map[services.Kind]int{
	services.Validation:   http.StatusBadRequest,
	services.Unauthorized: http.StatusUnauthorized,
	services.NotFound:     http.StatusNotFound,
	services.Conflict:     http.StatusConflict,
}

/*
* Known service errors keep their message
* Everything else is logged and answered with a generic 500
 */
func failed(c *gin.Context, err error) {
	if status, ok := statusByKind[services.KindOf(err)]; ok {
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}
	log.Error().Err(err).
		Str("method", c.Request.Method).
		Str("path", c.Request.URL.Path).
		Msg("Unhandled error")
	c.JSON(http.StatusInternalServerError, gin.H{"error": util.INTERNAL_SERVER_ERROR})
}

func badRequest(c *gin.Context, err error) {
	log.Debug().Err(err).Str("path", c.Request.URL.Path).Msg("Error while binding request body")
	c.JSON(http.StatusBadRequest, gin.H{"error": util.INVALID_REQUEST_BODY})
}

func succeeded(c *gin.Context, message string, data interface{}) {
	body := gin.H{"success": true, "message": message}
	if data != nil {
		body["data"] = data
	}
	c.JSON(http.StatusOK, body)
}
