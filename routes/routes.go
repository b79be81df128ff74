package routes

import (
	"aeternum/controllers"

	"github.com/gin-gonic/gin"
)

// Routes mounts every resource under /api. The session resolver runs first
// so each handler sees the caller, or nobody.
func Routes(r *gin.Engine, h *controllers.Handlers, sessionResolver gin.HandlerFunc) {
	api := r.Group("/api", sessionResolver)

	h.Auth(api)
	h.User(api)
	h.Ambulance(api)
	h.Appointment(api)
	h.Emergency(api)
	h.Diagnostic(api)
}
