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

type AmbulanceRepo struct {
	coll *mongo.Collection
}

func NewAmbulanceRepo(coll *mongo.Collection) *AmbulanceRepo {
	return &AmbulanceRepo{coll: coll}
}

/*
* Ambulances are addressed by their external id
* Fall back to the ObjectID when the value parses as one
 */
func ambulanceFilter(id string) bson.M {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return bson.M{"$or": []bson.M{{"id": id}, {"_id": oid}}}
	}
	return bson.M{"id": id}
}

func (r *AmbulanceRepo) Insert(ctx context.Context, a *models.Ambulance) error {
	res, err := r.coll.InsertOne(ctx, a)
	if err != nil {
		return translate(err)
	}
	if oid, ok := res.InsertedID.(primitive.ObjectID); ok {
		a.ObjectID = oid
	}
	return nil
}

func (r *AmbulanceRepo) FindByID(ctx context.Context, id string) (*models.Ambulance, error) {
	var a models.Ambulance
	if err := r.coll.FindOne(ctx, ambulanceFilter(id)).Decode(&a); err != nil {
		return nil, translate(err)
	}
	return &a, nil
}

func (r *AmbulanceRepo) List(ctx context.Context, f models.AmbulanceFilter) ([]models.Ambulance, error) {
	filter := bson.M{}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	cur, err := r.coll.Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("find ambulances: %w", err)
	}
	ambulances := []models.Ambulance{}
	if err := cur.All(ctx, &ambulances); err != nil {
		return nil, fmt.Errorf("decode ambulances: %w", err)
	}
	return ambulances, nil
}

func (r *AmbulanceRepo) Update(ctx context.Context, id string, upd models.AmbulanceUpdate, now time.Time) error {
	set := bson.M{"updatedAt": now}
	if upd.Status != nil {
		set["status"] = *upd.Status
	}
	if upd.Location != nil {
		set["location"] = *upd.Location
	}
	if upd.DriverName != nil {
		set["driverName"] = *upd.DriverName
	}
	if upd.VehicleNumber != nil {
		set["vehicleNumber"] = *upd.VehicleNumber
	}
	if upd.PhoneNumber != nil {
		set["phoneNumber"] = *upd.PhoneNumber
	}
	if upd.LastService != nil {
		set["lastService"] = *upd.LastService
	}
	res, err := r.coll.UpdateOne(ctx, ambulanceFilter(id), bson.M{"$set": set})
	if err != nil {
		return fmt.Errorf("update ambulance %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *AmbulanceRepo) Delete(ctx context.Context, id string) error {
	res, err := r.coll.DeleteOne(ctx, ambulanceFilter(id))
	if err != nil {
		return fmt.Errorf("delete ambulance %s: %w", id, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Ambulances still waiting for an id backfill cannot be released later, so
// they are never claimed.
var claimableFilter = bson.M{
	"status": models.AmbulanceAvailable,
	"id":     bson.M{"$type": "string", "$ne": ""},
}

/*
* Find one available ambulance and mark it on_call in the same operation
* Return nil when the whole fleet is busy
 */
func (r *AmbulanceRepo) ClaimAvailable(ctx context.Context, now time.Time) (*models.Ambulance, error) {
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var a models.Ambulance
	err := r.coll.FindOneAndUpdate(ctx,
		claimableFilter,
		bson.M{"$set": bson.M{"status": models.AmbulanceOnCall, "updatedAt": now}},
		opts,
	).Decode(&a)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("claim ambulance: %w", err)
	}
	return &a, nil
}

// Release moves an on_call ambulance back to available. ErrNotFound means
// it was not on_call any more.
func (r *AmbulanceRepo) Release(ctx context.Context, id string, now time.Time) error {
	res, err := r.coll.UpdateOne(ctx,
		bson.M{"id": id, "status": models.AmbulanceOnCall},
		bson.M{"$set": bson.M{"status": models.AmbulanceAvailable, "updatedAt": now}},
	)
	if err != nil {
		return fmt.Errorf("release ambulance %s: %w", id, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}
