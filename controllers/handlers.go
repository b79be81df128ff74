package controllers

import (
	"context"

	"aeternum/auth"
	"aeternum/services"
)

// Diagnostics is the connectivity probe behind /api/test-db.
type Diagnostics interface {
	CollectionNames(ctx context.Context) ([]string, error)
}

type SessionCookie struct {
	Name   string
	Secure bool
}

type Handlers struct {
	Ambulances   *services.AmbulanceService
	Appointments *services.AppointmentService
	Dispatch     *services.DispatchService
	Users        *services.UserService
	Tokens       *auth.TokenManager
	Diagnostics  Diagnostics
	Cookie       SessionCookie
}
