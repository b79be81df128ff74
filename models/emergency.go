package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	CallPending    = "pending"
	CallDispatched = "dispatched"
	CallInProgress = "in_progress"
	CallCompleted  = "completed"
)

func ValidCallStatus(status string) bool {
	switch status {
	case CallPending, CallDispatched, CallInProgress, CallCompleted:
		return true
	}
	return false
}

// Calls in these states keep their ambulance on_call.
var ActiveCallStatuses = []string{CallDispatched, CallInProgress}

type EmergencyCall struct {
	ID            primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	PatientName   string             `json:"patientName" bson:"patientName"`
	ContactNumber string             `json:"contactNumber" bson:"contactNumber"`
	Location      string             `json:"location" bson:"location"`
	EmergencyType string             `json:"emergencyType" bson:"emergencyType"`
	Description   string             `json:"description,omitempty" bson:"description,omitempty"`
	Status        string             `json:"status" bson:"status"`
	AmbulanceID   *string            `json:"ambulanceId" bson:"ambulanceId"`
	UserID        *string            `json:"userId" bson:"userId"`
	CreatedAt     time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt     time.Time          `json:"updatedAt" bson:"updatedAt"`
	DispatchedAt  *time.Time         `json:"dispatchedAt,omitempty" bson:"dispatchedAt,omitempty"`
	CompletedAt   *time.Time         `json:"completedAt,omitempty" bson:"completedAt,omitempty"`
}

type EmergencyFilter struct {
	Status string
	UserID string
}
