package migrations

import (
	"context"
	"fmt"

	"aeternum/services"
	"aeternum/util"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

/*
* Find ambulances without an external id
* Give each a generated AMB-#### id, retrying on collisions
 */
func BackfillAmbulanceIDs(ctx context.Context, db *mongo.Database) (int64, error) {
	coll := db.Collection(util.AmbulanceCollection)
	missing := bson.M{"$or": []bson.M{
		{"id": bson.M{"$exists": false}},
		{"id": nil},
		{"id": ""},
	}}
	cur, err := coll.Find(ctx, missing)
	if err != nil {
		return 0, err
	}
	var docs []struct {
		ObjectID primitive.ObjectID `bson:"_id"`
	}
	if err := cur.All(ctx, &docs); err != nil {
		return 0, err
	}

	var updated int64
	for _, doc := range docs {
		var lastErr error
		for attempt := 0; attempt < 5; attempt++ {
			_, lastErr = coll.UpdateOne(ctx,
				bson.M{"_id": doc.ObjectID},
				bson.M{"$set": bson.M{"id": services.GenerateAmbulanceID()}},
			)
			if !mongo.IsDuplicateKeyError(lastErr) {
				break
			}
		}
		if lastErr != nil {
			return updated, fmt.Errorf("backfill ambulance %s: %w", doc.ObjectID.Hex(), lastErr)
		}
		updated++
	}
	return updated, nil
}
