package models

import "time"

type ReservationStatus string

const (
	ReservationConfirmed ReservationStatus = "confirmed"
	ReservationCancelled ReservationStatus = "cancelled"
	ReservationCompleted ReservationStatus = "completed"
)

type Reservation struct {
	ID           string            `json:"id" bson:"_id"`
	RestaurantID string            `json:"restaurantId" bson:"restaurantId"`
	TableID      string            `json:"tableId" bson:"tableId"`
	UserID       string            `json:"userId" bson:"userId"`
	Date         string            `json:"date" bson:"date"`
	Time         string            `json:"time" bson:"time"`
	Status       ReservationStatus `json:"status" bson:"status"`
	CreatedAt    time.Time         `json:"createdAt" bson:"createdAt"`
	UpdatedAt    time.Time         `json:"updatedAt" bson:"updatedAt"`
}

func (r *Reservation) Active() bool {
	return r.Status == ReservationConfirmed
}

// SameSlot reports whether both reservations hold the same table slot on the same day.
func (r *Reservation) SameSlot(o *Reservation) bool {
	return r.RestaurantID == o.RestaurantID && r.TableID == o.TableID &&
		r.Date == o.Date && r.Time == o.Time
}

// Event types published after a committed transition.
const (
	EventReservationCreated   = "reservation.created"
	EventReservationCancelled = "reservation.cancelled"
	EventReservationCompleted = "reservation.completed"
)

type ReservationEvent struct {
	Type          string    `json:"type"`
	ReservationID string    `json:"reservationId"`
	RestaurantID  string    `json:"restaurantId"`
	TableID       string    `json:"tableId"`
	Date          string    `json:"date"`
	Time          string    `json:"time"`
	SlotStatus    string    `json:"slotStatus"`
	At            time.Time `json:"at"`
}
