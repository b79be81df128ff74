package migrations

import (
	"context"

	"aeternum/models"
	"aeternum/util"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

func DefaultPaymentStatus(ctx context.Context, db *mongo.Database) (int64, error) {
	result, err := db.Collection(util.AppointmentCollection).UpdateMany(ctx,
		bson.M{"paymentStatus": bson.M{"$exists": false}},
		bson.M{"$set": bson.M{"paymentStatus": models.PaymentPending}},
	)
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}
