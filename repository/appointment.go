package repository

import (
	"context"
	"fmt"
	"time"

	"aeternum/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type AppointmentRepo struct {
	coll *mongo.Collection
}

func NewAppointmentRepo(coll *mongo.Collection) *AppointmentRepo {
	return &AppointmentRepo{coll: coll}
}

func (r *AppointmentRepo) Insert(ctx context.Context, a *models.Appointment) error {
	res, err := r.coll.InsertOne(ctx, a)
	if err != nil {
		return translate(err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		a.ID = oid
	}
	return nil
}

func (r *AppointmentRepo) FindByID(ctx context.Context, id string) (*models.Appointment, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var a models.Appointment
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&a); err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *AppointmentRepo) List(ctx context.Context, f models.AppointmentFilter) ([]models.Appointment, error) {
	filter := bson.M{}
	if f.PatientID != "" {
		filter["patientId"] = f.PatientID
	}
	if f.DoctorID != "" {
		filter["doctorId"] = f.DoctorID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	opts := options.Find().SetSort(bson.D{{Key: "date", Value: -1}})
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find appointments: %w", err)
	}
	appointments := []models.Appointment{}
	if err := cur.All(ctx, &appointments); err != nil {
		return nil, fmt.Errorf("decode appointments: %w", err)
	}
	return appointments, nil
}

/*
* Look for a non-cancelled appointment occupying the slot
* excludeID skips the appointment being rescheduled
 */
func (r *AppointmentRepo) FindSlotHolder(ctx context.Context, slot models.Slot, excludeID string) (*models.Appointment, error) {
	filter := bson.M{
		"doctorId": slot.DoctorID,
		"date":     slot.Date,
		"time":     slot.Time,
		"status":   bson.M{"$ne": models.AppointmentCancelled},
	}
	if excludeID != "" {
		if oid, err := primitive.ObjectIDFromHex(excludeID); err == nil {
			filter["_id"] = bson.M{"$ne": oid}
		}
	}
	var a models.Appointment
	err := r.coll.FindOne(ctx, filter).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find slot holder: %w", err)
	}
	return &a, nil
}

func (r *AppointmentRepo) Update(ctx context.Context, id string, upd models.AppointmentUpdate, now time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	set := bson.M{"updatedAt": now}
	fields := map[string]*string{
		"status":          upd.Status,
		"paymentStatus":   upd.PaymentStatus,
		"paymentMethod":   upd.PaymentMethod,
		"transactionHash": upd.TransactionHash,
		"notes":           upd.Notes,
		"date":            upd.Date,
		"time":            upd.Time,
	}
	for k, v := range fields {
		if v != nil {
			set[k] = *v
		}
	}
	res, err := r.coll.UpdateOne(ctx, bson.M{"_id": oid}, bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update appointment %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
