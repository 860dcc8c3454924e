// Package reservations owns the reserve/cancel/complete transitions of a
// table time slot. Every transition runs as one store transaction over the
// restaurant document and the reservation record.
package reservations

import (
	"context"
	"errors"
	"log"
	"time"

	"tablebook/models"
	"tablebook/store"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Store interface {
	RunTx(ctx context.Context, fn store.TxFunc) error
	GetReservation(ctx context.Context, id string) (*models.Reservation, error)
	ListReservations(ctx context.Context, f store.ReservationFilter) ([]models.Reservation, error)
}

// Invalidator drops cached copies of a restaurant after its tables change.
type Invalidator interface {
	Invalidate(ctx context.Context, restaurantID string)
}

type Publisher interface {
	Publish(ctx context.Context, ev models.ReservationEvent)
}

type ReserveInput struct {
	RestaurantID string `json:"restaurantId" validate:"required"`
	TableID      string `json:"tableId" validate:"required"`
	UserID       string `json:"userId" validate:"required"`
	Date         string `json:"date" validate:"required,datetime=2006-01-02"`
	Time         string `json:"time" validate:"required"`
}

type Service struct {
	store    Store
	cache    Invalidator
	events   Publisher
	validate *validator.Validate
	now      func() time.Time
}

func NewService(st Store, cache Invalidator, events Publisher) *Service {
	if cache == nil {
		cache = noopInvalidator{}
	}
	if events == nil {
		events = noopPublisher{}
	}
	return &Service{
		store:    st,
		cache:    cache,
		events:   events,
		validate: validator.New(),
		now:      time.Now,
	}
}

func (s *Service) checkInput(in ReserveInput) error {
	err := s.validate.Struct(in)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		for _, fe := range verrs {
			if fe.Tag() == "required" {
				return Validation("Missing required fields", err)
			}
		}
		return Validation("Invalid date, expected YYYY-MM-DD", err)
	}
	return Validation("Invalid request", err)
}

// Reserve books the slot for in.Date. Concurrent calls for the same slot
// produce exactly one success; the others fail with a Conflict error.
func (s *Service) Reserve(ctx context.Context, in ReserveInput) (*models.Reservation, error) {
	if err := s.checkInput(in); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	res := &models.Reservation{
		ID:           uuid.New().String(),
		RestaurantID: in.RestaurantID,
		TableID:      in.TableID,
		UserID:       in.UserID,
		Date:         in.Date,
		Time:         in.Time,
		Status:       models.ReservationConfirmed,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	err := s.store.RunTx(ctx, func(ctx context.Context, tx store.Tx) error {
		r, err := tx.GetRestaurant(ctx, in.RestaurantID)
		if err != nil {
			if errors.Is(err, store.ErrNoDocument) {
				return NotFound(ResourceRestaurant)
			}
			return err
		}
		if err := reserveSlot(r, in.TableID, in.Date, in.Time); err != nil {
			return err
		}
		if err := tx.UpdateTables(ctx, r); err != nil {
			return err
		}
		return tx.InsertReservation(ctx, res)
	})
	if err != nil {
		err = classify(err)
		log.Printf("[Reserve] restaurant=%s table=%s time=%s user=%s: %v",
			in.RestaurantID, in.TableID, in.Time, in.UserID, err)
		return nil, err
	}

	log.Printf("[Reserve] reservation=%s restaurant=%s table=%s date=%s time=%s user=%s",
		res.ID, res.RestaurantID, res.TableID, res.Date, res.Time, res.UserID)
	s.afterCommit(ctx, models.EventReservationCreated, res, models.SlotReserved)
	return res, nil
}

// Cancel releases the slot held by the reservation and deletes the record.
// Only the owner may cancel.
func (s *Service) Cancel(ctx context.Context, id, userID string) (*models.Reservation, error) {
	res, err := s.release(ctx, id, func(res *models.Reservation) error {
		if res.UserID != userID {
			return Forbidden("You can only cancel your own reservations")
		}
		return nil
	}, func(ctx context.Context, tx store.Tx, res *models.Reservation) error {
		return tx.DeleteReservation(ctx, res.ID)
	})
	if err != nil {
		log.Printf("[Cancel] reservation=%s user=%s: %v", id, userID, err)
		return nil, err
	}

	res.Status = models.ReservationCancelled
	log.Printf("[Cancel] reservation=%s restaurant=%s table=%s time=%s", res.ID, res.RestaurantID, res.TableID, res.Time)
	s.afterCommit(ctx, models.EventReservationCancelled, res, models.SlotAvailable)
	return res, nil
}

// Complete closes a past reservation: the slot is released and the
// record is kept with status completed.
func (s *Service) Complete(ctx context.Context, id string) (*models.Reservation, error) {
	res, err := s.release(ctx, id, nil, func(ctx context.Context, tx store.Tx, res *models.Reservation) error {
		return tx.UpdateReservationStatus(ctx, res.ID, models.ReservationCompleted)
	})
	if err != nil {
		return nil, err
	}

	res.Status = models.ReservationCompleted
	s.afterCommit(ctx, models.EventReservationCompleted, res, models.SlotAvailable)
	return res, nil
}

type finalizeFunc func(ctx context.Context, tx store.Tx, res *models.Reservation) error

func (s *Service) release(ctx context.Context, id string, authorize func(*models.Reservation) error, finalize finalizeFunc) (*models.Reservation, error) {
	var held *models.Reservation
	err := s.store.RunTx(ctx, func(ctx context.Context, tx store.Tx) error {
		res, err := tx.GetReservation(ctx, id)
		if err != nil {
			if errors.Is(err, store.ErrNoDocument) {
				return NotFound(ResourceReservation)
			}
			return err
		}
		if authorize != nil {
			if err := authorize(res); err != nil {
				return err
			}
		}
		if !res.Active() {
			return Conflict("Reservation is already "+string(res.Status), nil)
		}

		r, err := tx.GetRestaurant(ctx, res.RestaurantID)
		if err != nil {
			if errors.Is(err, store.ErrNoDocument) {
				return NotFound(ResourceRestaurant)
			}
			return err
		}
		if releaseSlot(r, res.TableID, res.Date, res.Time) {
			if err := tx.UpdateTables(ctx, r); err != nil {
				return err
			}
		}
		if err := finalize(ctx, tx, res); err != nil {
			return err
		}
		held = res
		return nil
	})
	if err != nil {
		return nil, classify(err)
	}
	held.UpdatedAt = s.now().UTC()
	return held, nil
}

// Find returns a reservation regardless of owner.
func (s *Service) Find(ctx context.Context, id string) (*models.Reservation, error) {
	res, err := s.store.GetReservation(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNoDocument) {
			return nil, NotFound(ResourceReservation)
		}
		return nil, Unexpected(err)
	}
	return res, nil
}

// Get returns a reservation owned by userID.
func (s *Service) Get(ctx context.Context, id, userID string) (*models.Reservation, error) {
	res, err := s.Find(ctx, id)
	if err != nil {
		return nil, err
	}
	if res.UserID != userID {
		return nil, Forbidden("You can only view your own reservations")
	}
	return res, nil
}

// ListByUser returns the user's reservations, newest first.
func (s *Service) ListByUser(ctx context.Context, userID string) ([]models.Reservation, error) {
	list, err := s.store.ListReservations(ctx, store.ReservationFilter{UserID: userID})
	if err != nil {
		return nil, Unexpected(err)
	}
	if list == nil {
		list = []models.Reservation{}
	}
	return list, nil
}

// CompletePast completes every confirmed reservation dated before today (UTC).
// Individual failures are logged and skipped.
func (s *Service) CompletePast(ctx context.Context) ([]models.Reservation, error) {
	today := s.now().UTC().Format(time.DateOnly)
	due, err := s.store.ListReservations(ctx, store.ReservationFilter{
		Status:     models.ReservationConfirmed,
		DateBefore: today,
	})
	if err != nil {
		return nil, Unexpected(err)
	}

	var done []models.Reservation
	for _, res := range due {
		completed, err := s.Complete(ctx, res.ID)
		if err != nil {
			if ctx.Err() != nil {
				return done, ctx.Err()
			}
			log.Printf("[CompletePast] reservation=%s: %v", res.ID, err)
			continue
		}
		done = append(done, *completed)
	}
	return done, nil
}

func (s *Service) afterCommit(ctx context.Context, eventType string, res *models.Reservation, slot models.SlotStatus) {
	s.cache.Invalidate(ctx, res.RestaurantID)
	s.events.Publish(ctx, models.ReservationEvent{
		Type:          eventType,
		ReservationID: res.ID,
		RestaurantID:  res.RestaurantID,
		TableID:       res.TableID,
		Date:          res.Date,
		Time:          res.Time,
		SlotStatus:    string(slot),
		At:            s.now().UTC(),
	})
}

// classify turns store and transaction failures into typed errors.
func classify(err error) error {
	var typed *Error
	switch {
	case errors.As(err, &typed):
		return typed
	case errors.Is(err, store.ErrDuplicate):
		return Conflict("Time slot is not available", err)
	case errors.Is(err, store.ErrContention):
		return Conflict("Too many concurrent bookings, please retry", err)
	default:
		return Unexpected(err)
	}
}

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(context.Context, string) {}

type noopPublisher struct{}

func (noopPublisher) Publish(context.Context, models.ReservationEvent) {}
