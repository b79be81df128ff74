package controllers

import (
	"net/http"

	"aeternum/auth"
	"aeternum/services"
	"aeternum/util"

	"github.com/gin-gonic/gin"
)

func (h *Handlers) Appointment(api *gin.RouterGroup) {
	appointments := api.Group("/appointments", auth.RequireActor())
	{
		appointments.GET("", h.FetchAppointments)
		appointments.POST("", h.CreateAppointment)
		appointments.PUT("", h.UpdateAppointment)
	}
}

func (h *Handlers) FetchAppointments(c *gin.Context) {
	appointments, err := h.Appointments.List(c, auth.ActorFrom(c), services.AppointmentQuery{
		UserID:   c.Query("userId"),
		DoctorID: c.Query("doctorId"),
		Status:   c.Query("status"),
	})
	if err != nil {
		failed(c, err)
		return
	}
	c.JSON(http.StatusOK, appointments)
}

/*
* Bind JSON
* Pass to the service, which rejects taken slots with 409
 */
func (h *Handlers) CreateAppointment(c *gin.Context) {
	var in services.BookAppointmentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	appointment, err := h.Appointments.Book(c, auth.ActorFrom(c), in)
	if err != nil {
		failed(c, err)
		return
	}
	c.JSON(http.StatusCreated, appointment)
}

func (h *Handlers) UpdateAppointment(c *gin.Context) {
	var in services.UpdateAppointmentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		badRequest(c, err)
		return
	}
	if err := h.Appointments.Update(c, auth.ActorFrom(c), in); err != nil {
		failed(c, err)
		return
	}
	succeeded(c, util.APPOINTMENT_UPDATED, nil)
}
