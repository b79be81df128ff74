package controllers

import (
	"net/http"

	"aeternum/auth"
	"aeternum/services"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) User(api *gin.RouterGroup) {
	users := api.Group("/users")
	{
		users.GET("", auth.RequireActor(), h.FetchUsers)
		users.POST("", h.RegisterUser)
	}
}

func (h *Handlers) FetchUsers(c *gin.Context) {
	users, err := h.Users.List(c, auth.ActorFrom(c), c.Query("role"))
	if err != nil {
		failed(c, err)
		return
	}
	c.JSON(http.StatusOK, users)
}

/*
* Open registration
* The service decides which roles the caller may hand out
 */
func (h *Handlers) RegisterUser(c *gin.Context) {
	var in services.RegisterInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.Users.Register(c, auth.ActorFrom(c), in)
	if err != nil {
		failed(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id":    user.ID.Hex(),
		"email": user.Email,
		"name":  user.Name,
		"role":  user.Role,
	})
}
