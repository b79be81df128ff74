package db

import (
	"context"
	"fmt"
	"time"

	"aeternum/util"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Database owns the single client shared by every request handler.
type Database struct {
	Client *mongo.Client
	DB     *mongo.Database
}

/*
* Connect the client with the given timeout
* Ping the primary so a bad URI fails at start-up
 */
func Connect(ctx context.Context, uri, name string, timeout time.Duration) (*Database, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("ping mongo: %w", err)
	}
	log.Info().Str("database", name).Msg("connected to mongo")
	return &Database{Client: client, DB: client.Database(name)}, nil
}

func (d *Database) Collection(name string) *mongo.Collection {
	return d.DB.Collection(name)
}

func (d *Database) Disconnect(ctx context.Context) error {
	return d.Client.Disconnect(ctx)
}

// CollectionNames backs the connectivity diagnostic.
func (d *Database) CollectionNames(ctx context.Context) ([]string, error) {
	return d.DB.ListCollectionNames(ctx, bson.D{})
}

func (d *Database) EnsureIndexes(ctx context.Context) error {
	indexes := map[string][]mongo.IndexModel{
		util.UserCollection: {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		util.AmbulanceCollection: {
			{
				Keys: bson.D{{Key: "id", Value: 1}},
				// documents written before ids were backfilled have no id yet
				Options: options.Index().SetUnique(true).
					SetPartialFilterExpression(bson.M{"id": bson.M{"$type": "string"}}),
			},
			{Keys: bson.D{{Key: "status", Value: 1}}},
		},
		util.AppointmentCollection: {
			{Keys: bson.D{{Key: "doctorId", Value: 1}, {Key: "date", Value: 1}, {Key: "time", Value: 1}}},
			{Keys: bson.D{{Key: "patientId", Value: 1}}},
		},
		util.EmergencyCallCollection: {
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "createdAt", Value: 1}}},
			{Keys: bson.D{{Key: "ambulanceId", Value: 1}}},
		},
	}
	for coll, models := range indexes {
		if _, err := d.Collection(coll).Indexes().CreateMany(ctx, models); err != nil {
			log.Error().Err(err).Str("collection", coll).Msg("Error while creating indexes")
			return fmt.Errorf("create indexes on %s: %w", coll, err)
		}
	}
	return nil
}
