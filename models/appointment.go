package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

const (
	AppointmentPending   = "pending"
	AppointmentConfirmed = "confirmed"
	AppointmentCompleted = "completed"
	AppointmentCancelled = "cancelled"

	PaymentPending = "pending"
)

func ValidAppointmentStatus(status string) bool {
	switch status {
	case AppointmentPending, AppointmentConfirmed, AppointmentCompleted, AppointmentCancelled:
		return true
	}
	return false
}

type Appointment struct {
	ID              primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	PatientID       string             `json:"patientId" bson:"patientId"`
	DoctorID        string             `json:"doctorId" bson:"doctorId"`
	Date            string             `json:"date" bson:"date"`
	Time            string             `json:"time" bson:"time"`
	Status          string             `json:"status" bson:"status"`
	PaymentStatus   string             `json:"paymentStatus" bson:"paymentStatus"`
	PaymentMethod   string             `json:"paymentMethod,omitempty" bson:"paymentMethod,omitempty"`
	TransactionHash string             `json:"transactionHash,omitempty" bson:"transactionHash,omitempty"`
	Notes           string             `json:"notes,omitempty" bson:"notes,omitempty"`
	CreatedAt       time.Time          `json:"createdAt" bson:"createdAt"`
	UpdatedAt       *time.Time         `json:"updatedAt,omitempty" bson:"updatedAt,omitempty"`
}

// Holds reports whether the appointment still occupies its slot.
func (a *Appointment) Holds() bool {
	return a.Status != AppointmentCancelled
}

// Slot is a unique (doctor, date, time) booking position.
type Slot struct {
	DoctorID string
	Date     string
	Time     string
}

func (a *Appointment) Slot() Slot {
	return Slot{DoctorID: a.DoctorID, Date: a.Date, Time: a.Time}
}

type AppointmentUpdate struct {
	Status          *string
	PaymentStatus   *string
	PaymentMethod   *string
	TransactionHash *string
	Notes           *string
	Date            *string
	Time            *string
}

func (u AppointmentUpdate) Empty() bool {
	return u.Status == nil && u.PaymentStatus == nil && u.PaymentMethod == nil &&
		u.TransactionHash == nil && u.Notes == nil && u.Date == nil && u.Time == nil
}

type AppointmentFilter struct {
	PatientID string
	DoctorID  string
	Status    string
}
