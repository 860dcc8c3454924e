// Package store persists restaurants, reservations, locations and users.
//
// Mutations of restaurant tables and reservation records go through RunTx,
// which gives read-modify-write isolation: reads are tracked and a commit
// fails (and is retried) when any document read has changed since.
package store

import (
	"context"
	"errors"

	"tablebook/models"
)

var (
	ErrNoDocument     = errors.New("document not found")
	ErrDuplicate      = errors.New("duplicate key")
	ErrStaleWrite     = errors.New("document changed since it was read")
	ErrContention     = errors.New("transaction retries exhausted")
	ErrReadAfterWrite = errors.New("transaction reads must precede writes")
)

// Tx is the unit of work handed to RunTx callbacks.
type Tx interface {
	GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error)
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	// UpdateTables rewrites r.Tables if the stored version still equals r.Version.
	UpdateTables(ctx context.Context, r *models.Restaurant) error
	InsertReservation(ctx context.Context, res *models.Reservation) error
	DeleteReservation(ctx context.Context, id string) error
	UpdateReservationStatus(ctx context.Context, id string, status models.ReservationStatus) error
}

type TxFunc func(ctx context.Context, tx Tx) error

type ReservationFilter struct {
	UserID       string
	RestaurantID string
	Status       models.ReservationStatus
	// DateBefore keeps reservations whose date sorts strictly before it (YYYY-MM-DD).
	DateBefore string
	Limit      int
}

func (f ReservationFilter) match(r *models.Reservation) bool {
	if f.UserID != "" && r.UserID != f.UserID {
		return false
	}
	if f.RestaurantID != "" && r.RestaurantID != f.RestaurantID {
		return false
	}
	if f.Status != "" && r.Status != f.Status {
		return false
	}
	if f.DateBefore != "" && r.Date >= f.DateBefore {
		return false
	}
	return true
}

type RestaurantQuery struct {
	Location string
	Name     string
	Feature  string
	Skip     int
	Limit    int
}

// guard enforces that every read in a transaction happens before the first write.
type guard struct {
	wrote bool
}

func (g *guard) read() error {
	if g.wrote {
		return ErrReadAfterWrite
	}
	return nil
}

func (g *guard) write() {
	g.wrote = true
}
