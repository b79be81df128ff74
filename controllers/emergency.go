package controllers

import (
	"net/http"

	"aeternum/auth"
	"aeternum/services"
	"aeternum/util"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) Emergency(api *gin.RouterGroup) {
	emergency := api.Group("/emergency")
	{
		// reporting an emergency does not need an account
		emergency.POST("", h.CreateEmergency)
		emergency.GET("", auth.RequireActor(), h.FetchEmergencies)
		emergency.PUT("", auth.RequireActor(), h.UpdateEmergency)
	}
}

type dispatchedAmbulance struct {
	ID            string `json:"id"`
	DriverName    string `json:"driverName"`
	VehicleNumber string `json:"vehicleNumber"`
	PhoneNumber   string `json:"phoneNumber"`
}

/*
* 201 with the ambulance when one was claimed
* 202 when the call was queued as pending
 */
func (h *Handlers) CreateEmergency(c *gin.Context) {
	var req services.EmergencyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	result, err := h.Dispatch.Dispatch(c, auth.ActorFrom(c), req)
	if err != nil {
		failed(c, err)
		return
	}
	if !result.Dispatched() {
		c.JSON(http.StatusAccepted, gin.H{
			"id":      result.Call.ID.Hex(),
			"message": util.AMBULANCES_BUSY,
			"status":  result.Call.Status,
		})
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"id": result.Call.ID.Hex(),
		"ambulance": dispatchedAmbulance{
			ID:            result.Ambulance.ID,
			DriverName:    result.Ambulance.DriverName,
			VehicleNumber: result.Ambulance.VehicleNumber,
			PhoneNumber:   result.Ambulance.PhoneNumber,
		},
		"status": result.Call.Status,
	})
}

func (h *Handlers) FetchEmergencies(c *gin.Context) {
	calls, err := h.Dispatch.ListCalls(c, auth.ActorFrom(c), c.Query("status"))
	if err != nil {
		failed(c, err)
		return
	}
	c.JSON(http.StatusOK, calls)
}

func (h *Handlers) UpdateEmergency(c *gin.Context) {
	var in services.UpdateCallInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	call, err := h.Dispatch.UpdateCallStatus(c, auth.ActorFrom(c), in)
	if err != nil {
		failed(c, err)
		return
	}
	succeeded(c, util.EMERGENCY_CALL_UPDATED, call)
}
