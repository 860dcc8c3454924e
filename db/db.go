package db

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

var (
	RestaurantsCollection  *mongo.Collection
	ReservationsCollection *mongo.Collection
	LocationsCollection    *mongo.Collection
	UserCollection         *mongo.Collection
	Client                 *mongo.Client
)

// Connect dials MongoDB, pings the primary and sets the collection handles.
func Connect(ctx context.Context, uri, database string) error {
	clientOptions := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("connect mongo: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("ping mongo: %w", err)
	}

	Client = client
	d := client.Database(database)
	RestaurantsCollection = d.Collection("restaurants")
	ReservationsCollection = d.Collection("reservations")
	LocationsCollection = d.Collection("locations")
	UserCollection = d.Collection("users")

	log.Printf("Connected to MongoDB database %q", database)
	return nil
}

// EnsureIndexes creates the indexes the service relies on. It is idempotent.
func EnsureIndexes(ctx context.Context) error {
	specs := map[*mongo.Collection][]mongo.IndexModel{
		ReservationsCollection: {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}}},
			{Keys: bson.D{{Key: "status", Value: 1}, {Key: "date", Value: 1}}},
			{
				// at most one confirmed reservation per table slot and day
				Keys: bson.D{
					{Key: "restaurantId", Value: 1},
					{Key: "tableId", Value: 1},
					{Key: "date", Value: 1},
					{Key: "time", Value: 1},
				},
				Options: options.Index().
					SetName("uniq_confirmed_slot").
					SetUnique(true).
					SetPartialFilterExpression(bson.M{"status": "confirmed"}),
			},
		},
		RestaurantsCollection: {
			{Keys: bson.D{{Key: "location", Value: 1}}},
			{Keys: bson.D{{Key: "name", Value: 1}}},
		},
		UserCollection: {
			{Keys: bson.D{{Key: "username", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
		LocationsCollection: {
			{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		},
	}

	for coll, models := range specs {
		if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", coll.Name(), err)
		}
	}
	return nil
}

func Disconnect(ctx context.Context) {
	if Client == nil {
		return
	}
	if err := Client.Disconnect(ctx); err != nil {
		log.Printf("mongo disconnect: %v", err)
	}
}
