package controllers

import (
	"net/http"

	"aeternum/auth"
	"aeternum/models"
	"aeternum/util"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) Auth(api *gin.RouterGroup) {
	session := api.Group("/auth")
	{
		session.POST("/login", h.Login)
		session.POST("/logout", h.Logout)
		session.GET("/session", auth.RequireActor(), h.Session)
	}
}

/*
* Bind the credentials
* Authenticate, issue a token and set it as the session cookie
 */
func (h *Handlers) Login(c *gin.Context) {
	var login models.Login
	if err := c.ShouldBindJSON(&login); err != nil {
		badRequest(c, err)
		return
	}
	user, err := h.Users.Authenticate(c, login.Email, login.Password)
	if err != nil {
		failed(c, err)
		return
	}
	token, expiresAt, err := h.Tokens.Issue(user)
	if err != nil {
		failed(c, err)
		return
	}
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.Cookie.Name, token, int(h.Tokens.TTL().Seconds()), "/", "", h.Cookie.Secure, true)
	c.JSON(http.StatusOK, models.Session{Token: token, ExpiresAt: expiresAt, User: user.Public()})
}

func (h *Handlers) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.Cookie.Name, "", -1, "/", "", h.Cookie.Secure, true)
	succeeded(c, util.LOGGED_OUT, nil)
}

func (h *Handlers) Session(c *gin.Context) {
	user, err := h.Users.Current(c, auth.ActorFrom(c))
	if err != nil {
		failed(c, err)
		return
	}
	c.JSON(http.StatusOK, user.Public())
}
