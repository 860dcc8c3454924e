package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"regexp"
	"time"

	"tablebook/db"
	"tablebook/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// Mongo is the production store over the db package collections.
// RunTx needs a replica set or sharded cluster.
type Mongo struct {
	maxAttempts int
}

func NewMongo(maxAttempts int) *Mongo {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Mongo{maxAttempts: maxAttempts}
}

func (m *Mongo) RunTx(ctx context.Context, fn TxFunc) error {
	txnOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())

	for attempt := 1; attempt <= m.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		err := m.runOnce(ctx, fn, txnOpts)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrStaleWrite) {
			return err
		}
		log.Printf("[RunTx] stale write on attempt %d, retrying", attempt)
	}
	return ErrContention
}

func (m *Mongo) runOnce(ctx context.Context, fn TxFunc, txnOpts *options.TransactionOptions) error {
	session, err := db.Client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sc mongo.SessionContext) (interface{}, error) {
		return nil, fn(sc, &mongoTx{})
	}, txnOpts)
	return err
}

type mongoTx struct {
	guard
}

func (tx *mongoTx) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	if err := tx.read(); err != nil {
		return nil, err
	}
	var r models.Restaurant
	err := db.RestaurantsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&r)
	if err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (tx *mongoTx) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	if err := tx.read(); err != nil {
		return nil, err
	}
	var res models.Reservation
	err := db.ReservationsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&res)
	if err != nil {
		return nil, notFound(err)
	}
	return &res, nil
}

func (tx *mongoTx) UpdateTables(ctx context.Context, r *models.Restaurant) error {
	tx.write()
	filter := bson.M{"_id": r.ID, "version": r.Version}
	if r.Version == 0 {
		// seeded documents may predate the version field
		filter = bson.M{"_id": r.ID, "$or": bson.A{
			bson.M{"version": 0},
			bson.M{"version": bson.M{"$exists": false}},
		}}
	}
	update := bson.M{
		"$set": bson.M{"tables": r.Tables},
		"$inc": bson.M{"version": 1},
	}
	result, err := db.RestaurantsCollection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("update tables of %s: %w", r.ID, err)
	}
	if result.MatchedCount == 0 {
		return ErrStaleWrite
	}
	return nil
}

func (tx *mongoTx) InsertReservation(ctx context.Context, res *models.Reservation) error {
	tx.write()
	if _, err := db.ReservationsCollection.InsertOne(ctx, res); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("insert reservation: %w", ErrDuplicate)
		}
		return fmt.Errorf("insert reservation: %w", err)
	}
	return nil
}

func (tx *mongoTx) DeleteReservation(ctx context.Context, id string) error {
	tx.write()
	result, err := db.ReservationsCollection.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("delete reservation %s: %w", id, err)
	}
	if result.DeletedCount == 0 {
		return ErrNoDocument
	}
	return nil
}

func (tx *mongoTx) UpdateReservationStatus(ctx context.Context, id string, status models.ReservationStatus) error {
	tx.write()
	update := bson.M{"$set": bson.M{"status": status, "updatedAt": time.Now().UTC()}}
	result, err := db.ReservationsCollection.UpdateOne(ctx, bson.M{"_id": id}, update)
	if err != nil {
		return fmt.Errorf("update reservation %s: %w", id, err)
	}
	if result.MatchedCount == 0 {
		return ErrNoDocument
	}
	return nil
}

func notFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return ErrNoDocument
	}
	return err
}

// ---------- Reservations ----------

func (m *Mongo) GetReservation(ctx context.Context, id string) (*models.Reservation, error) {
	var res models.Reservation
	if err := db.ReservationsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&res); err != nil {
		return nil, notFound(err)
	}
	return &res, nil
}

func (m *Mongo) ListReservations(ctx context.Context, f ReservationFilter) ([]models.Reservation, error) {
	filter := bson.M{}
	if f.UserID != "" {
		filter["userId"] = f.UserID
	}
	if f.RestaurantID != "" {
		filter["restaurantId"] = f.RestaurantID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	if f.DateBefore != "" {
		filter["date"] = bson.M{"$lt": f.DateBefore}
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: 1}})
	if f.Limit > 0 {
		opts.SetLimit(int64(f.Limit))
	}
	cursor, err := db.ReservationsCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("find reservations: %w", err)
	}
	defer cursor.Close(ctx)

	var out []models.Reservation
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode reservations: %w", err)
	}
	return out, nil
}

// ---------- Restaurants ----------

func (m *Mongo) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	var r models.Restaurant
	if err := db.RestaurantsCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		return nil, notFound(err)
	}
	return &r, nil
}

func (m *Mongo) ListRestaurants(ctx context.Context, q RestaurantQuery) ([]models.Restaurant, int64, error) {
	filter := bson.M{}
	if q.Location != "" {
		filter["location"] = q.Location
	}
	if q.Name != "" {
		filter["name"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(q.Name), Options: "i"}
	}
	if q.Feature != "" {
		filter["features"] = primitive.Regex{Pattern: "^" + regexp.QuoteMeta(q.Feature) + "$", Options: "i"}
	}

	total, err := db.RestaurantsCollection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("count restaurants: %w", err)
	}

	opts := options.Find().
		SetProjection(bson.M{"tables": 0}).
		SetSort(bson.D{{Key: "name", Value: 1}, {Key: "_id", Value: 1}}).
		SetSkip(int64(q.Skip))
	if q.Limit > 0 {
		opts.SetLimit(int64(q.Limit))
	}
	cursor, err := db.RestaurantsCollection.Find(ctx, filter, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("find restaurants: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.Restaurant{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, 0, fmt.Errorf("decode restaurants: %w", err)
	}
	return out, total, nil
}

func (m *Mongo) PutRestaurant(ctx context.Context, r *models.Restaurant) error {
	opts := options.Replace().SetUpsert(true)
	if _, err := db.RestaurantsCollection.ReplaceOne(ctx, bson.M{"_id": r.ID}, r, opts); err != nil {
		return fmt.Errorf("put restaurant %s: %w", r.ID, err)
	}
	return nil
}

func (m *Mongo) ResetRestaurants(ctx context.Context) error {
	if _, err := db.RestaurantsCollection.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("reset restaurants: %w", err)
	}
	return nil
}

// ResetReservations drops every reservation.
func (m *Mongo) ResetReservations(ctx context.Context) error {
	if _, err := db.ReservationsCollection.DeleteMany(ctx, bson.M{}); err != nil {
		return fmt.Errorf("reset reservations: %w", err)
	}
	return nil
}

func (m *Mongo) PutLocation(ctx context.Context, l models.Location) error {
	opts := options.Update().SetUpsert(true)
	_, err := db.LocationsCollection.UpdateOne(ctx, bson.M{"name": l.Name}, bson.M{"$set": bson.M{"name": l.Name}}, opts)
	if err != nil {
		return fmt.Errorf("put location %s: %w", l.Name, err)
	}
	return nil
}

func (m *Mongo) ListLocations(ctx context.Context) ([]models.Location, error) {
	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := db.LocationsCollection.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, fmt.Errorf("find locations: %w", err)
	}
	defer cursor.Close(ctx)

	out := []models.Location{}
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("decode locations: %w", err)
	}
	return out, nil
}

// ---------- Users ----------

func (m *Mongo) CreateUser(ctx context.Context, u *models.User) error {
	if _, err := db.UserCollection.InsertOne(ctx, u); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("username %s: %w", u.Username, ErrDuplicate)
		}
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (m *Mongo) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	if err := db.UserCollection.FindOne(ctx, bson.M{"username": username}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}

func (m *Mongo) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	if err := db.UserCollection.FindOne(ctx, bson.M{"_id": id}).Decode(&u); err != nil {
		return nil, notFound(err)
	}
	return &u, nil
}
