package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	AmbulanceAvailable   = "available"
	AmbulanceOnCall      = "on_call"
	AmbulanceMaintenance = "maintenance"
)

func ValidAmbulanceStatus(status string) bool {
	switch status {
	case AmbulanceAvailable, AmbulanceOnCall, AmbulanceMaintenance:
		return true
	}
	return false
}

type Ambulance struct {
	ObjectID      primitive.ObjectID `json:"_id" bson:"_id,omitempty"`
	ID            string             `json:"id" bson:"id"`
	DriverName    string             `json:"driverName" bson:"driverName"`
	VehicleNumber string             `json:"vehicleNumber" bson:"vehicleNumber"`
	PhoneNumber   string             `json:"phoneNumber,omitempty" bson:"phoneNumber,omitempty"`
	Status        string             `json:"status" bson:"status"`
	Location      string             `json:"location" bson:"location"`
	LastService   *time.Time         `json:"lastService,omitempty" bson:"lastService,omitempty"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`
}

// AmbulanceUpdate carries a partial update; nil fields are left untouched.
type AmbulanceUpdate struct {
	Status        *string
	Location      *string
	DriverName    *string
	VehicleNumber *string
	PhoneNumber   *string
	LastService   *time.Time
}

type AmbulanceFilter struct {
	Status string
}
