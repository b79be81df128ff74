package controllers

import (
	"aeternum/auth"
	"aeternum/services"
	"aeternum/util"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) Ambulance(api *gin.RouterGroup) {
	ambulances := api.Group("/ambulances", auth.RequireActor())
	{
		ambulances.GET("", h.FetchAmbulances)
		ambulances.POST("", h.CreateAmbulance)
		ambulances.PUT("", h.UpdateAmbulance)
		ambulances.DELETE("", h.DeleteAmbulance)
	}
}

/*
* With ?id= return the single ambulance
* Otherwise list, optionally by ?status=
 */
func (h *Handlers) FetchAmbulances(c *gin.Context) {
	actor := auth.ActorFrom(c)
	if id := c.Query("id"); id != "" {
		ambulance, err := h.Ambulances.Get(c, actor, id)
		if err != nil {
			failed(c, err)
			return
		}
		c.JSON(200, ambulance)
		return
	}
	ambulances, err := h.Ambulances.List(c, actor, c.Query("status"))
	if err != nil {
		failed(c, err)
		return
	}
	c.JSON(200, ambulances)
}

func (h *Handlers) CreateAmbulance(c *gin.Context) {
	var in services.CreateAmbulanceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	ambulance, err := h.Ambulances.Create(c, auth.ActorFrom(c), in)
	if err != nil {
		failed(c, err)
		return
	}
	succeeded(c, util.AMBULANCE_CREATED, ambulance)
}

func (h *Handlers) UpdateAmbulance(c *gin.Context) {
	var in services.UpdateAmbulanceInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Ambulances.Update(c, auth.ActorFrom(c), in); err != nil {
		failed(c, err)
		return
	}
	succeeded(c, util.AMBULANCE_UPDATED, nil)
}

func (h *Handlers) DeleteAmbulance(c *gin.Context) {
	if err := h.Ambulances.Delete(c, auth.ActorFrom(c), c.Query("id")); err != nil {
		failed(c, err)
		return
	}
	succeeded(c, util.AMBULANCE_REMOVED, nil)
}
