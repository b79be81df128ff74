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

type EmergencyCallRepo struct {
	coll *mongo.Collection
}

func NewEmergencyCallRepo(coll *mongo.Collection) *EmergencyCallRepo {
	return &EmergencyCallRepo{coll: coll}
}

func (r *EmergencyCallRepo) Insert(ctx context.Context, call *models.EmergencyCall) error {
	res, err := r.coll.InsertOne(ctx, call)
	if err != nil {
		return translate(err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		call.ID = oid
	}
	return nil
}

func (r *EmergencyCallRepo) FindByID(ctx context.Context, id string) (*models.EmergencyCall, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, ErrNotFound
	}
	var call models.EmergencyCall
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&call); err != nil {
		return nil, translate(err)
	}
	return &call, nil
}

func (r *EmergencyCallRepo) find(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]models.EmergencyCall, error) {
	cur, err := r.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find emergency calls: %w", err)
	}
	calls := []models.EmergencyCall{}
	if err := cur.All(ctx, &calls); err != nil {
		return nil, fmt.Errorf("decode emergency calls: %w", err)
	}
	return calls, nil
}

// List returns matching calls, newest first.
func (r *EmergencyCallRepo) List(ctx context.Context, f models.EmergencyFilter) ([]models.EmergencyCall, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	return r.find(ctx, filter, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
}

// Pending returns up to limit queued calls, oldest first.
func (r *EmergencyCallRepo) Pending(ctx context.Context, limit int) ([]models.EmergencyCall, error) {
	opts := options.Find().
		SetSort(bson.D{{Key: "createdAt", Value: 1}}).
		SetLimit(int64(limit))
	return r.find(ctx, bson.M{"status": models.CallPending}, opts)
}

/*
* Attach the ambulance only while the call is still pending
* ErrNotFound means another worker got there first
 */
func (r *EmergencyCallRepo) AssignAmbulance(ctx context.Context, id, ambulanceID string, now time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "status": models.CallPending},
		bson.M{"$set": bson.M{
			"status":       models.CallDispatched,
			"ambulanceId":  ambulanceID,
			"dispatchedAt": now,
			"updatedAt":    now,
		}},
	)
	if err != nil {
		return fmt.Errorf("assign ambulance to call %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Transition moves the call to status `to` when its current status is one of from.
func (r *EmergencyCallRepo) Transition(ctx context.Context, id string, from []string, to string, now time.Time) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return ErrNotFound
	}
	set := bson.M{"status": to, "updatedAt": now}
	if to == models.CallCompleted {
		set["completedAt"] = now
	}
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"_id": oid, "status": bson.M{"$in": from}},
		bson.M{"$set": set},
	)
	if err != nil {
		return fmt.Errorf("transition call %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *EmergencyCallRepo) CountActiveForAmbulance(ctx context.Context, ambulanceID string) (int64, error) {
	n, err := r.coll.CountDocuments(ctx, bson.M{
		"ambulanceId": ambulanceID,
		"status":      bson.M{"$in": models.ActiveCallStatuses},
	})
	if err != nil {
		return 0, fmt.Errorf("count calls for ambulance %s: %w", ambulanceID, err)
	}
	return n, nil
}
