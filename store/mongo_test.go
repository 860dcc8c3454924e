package store

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"tablebook/db"
	"tablebook/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs only against a replica set, e.g.
// MONGO_TEST_URI=mongodb://localhost:27017/?replicaSet=rs0
func setupMongo(t *testing.T) *Mongo {
	t.Helper()
	uri := os.Getenv("MONGO_TEST_URI")
	if uri == "" {
		t.Skip("MONGO_TEST_URI not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	dbName := fmt.Sprintf("tablebook_test_%d", time.Now().UnixNano())
	require.NoError(t, db.Connect(ctx, uri, dbName))
	require.NoError(t, db.EnsureIndexes(ctx))
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = db.Client.Database(dbName).Drop(ctx)
		db.Disconnect(ctx)
	})
	return NewMongo(3)
}

func TestMongoReserveRoundTrip(t *testing.T) {
	m := setupMongo(t)
	ctx := context.Background()
	require.NoError(t, m.PutRestaurant(ctx, testRestaurant("R1", "Pasta Palace", "Downtown")))

	require.NoError(t, m.RunTx(ctx, func(ctx context.Context, tx Tx) error {
		return reserveIn(ctx, tx, "R1", "res-1")
	}))

	r, err := m.GetRestaurant(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, models.SlotReserved, r.Tables[0].TimeSlots[0].Status)
	assert.Equal(t, int64(1), r.Version)

	// the unique partial index refuses a second confirmed booking
	err = m.RunTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.InsertReservation(ctx, &models.Reservation{
			ID: "res-2", RestaurantID: "R1", TableID: "T1",
			Date: "2025-01-01", Time: "18:00", Status: models.ReservationConfirmed,
		})
	})
	assert.ErrorIs(t, err, ErrDuplicate)

	require.NoError(t, m.RunTx(ctx, func(ctx context.Context, tx Tx) error {
		return tx.DeleteReservation(ctx, "res-1")
	}))
	_, err = m.GetReservation(ctx, "res-1")
	assert.ErrorIs(t, err, ErrNoDocument)
}

func TestMongoStaleVersionIsRetried(t *testing.T) {
	m := setupMongo(t)
	ctx := context.Background()
	require.NoError(t, m.PutRestaurant(ctx, testRestaurant("R1", "Pasta Palace", "Downtown")))

	attempts := 0
	err := m.RunTx(ctx, func(ctx context.Context, tx Tx) error {
		attempts++
		r, err := tx.GetRestaurant(ctx, "R1")
		if err != nil {
			return err
		}
		if attempts == 1 {
			r.Version = 42
		}
		return tx.UpdateTables(ctx, r)
	})
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
}

func TestMongoConcurrentReserveHasSingleWinner(t *testing.T) {
	m := setupMongo(t)
	ctx := context.Background()
	require.NoError(t, m.PutRestaurant(ctx, testRestaurant("R1", "Pasta Palace", "Downtown")))

	errTaken := errors.New("slot taken")
	const callers = 10

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
		errs []error
	)
	start := make(chan struct{})
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			err := m.RunTx(ctx, func(ctx context.Context, tx Tx) error {
				r, err := tx.GetRestaurant(ctx, "R1")
				if err != nil {
					return err
				}
				if !r.Tables[0].TimeSlots[0].Available() {
					return errTaken
				}
				return reserveIn(ctx, tx, "R1", fmt.Sprintf("res-%d", i))
			})
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				wins++
				return
			}
			errs = append(errs, err)
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, wins)
	for _, err := range errs {
		assert.True(t, errors.Is(err, errTaken) || errors.Is(err, ErrDuplicate) || errors.Is(err, ErrContention), err)
	}

	all, err := m.ListReservations(ctx, ReservationFilter{RestaurantID: "R1"})
	require.NoError(t, err)
	assert.Len(t, all, 1)

	r, err := m.GetRestaurant(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, models.SlotReserved, r.Tables[0].TimeSlots[0].Status)
	assert.Equal(t, int64(1), r.Version)
}
