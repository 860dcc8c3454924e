package models

type RestaurantStatus string

const (
	RestaurantBusy RestaurantStatus = "busy"
	RestaurantFree RestaurantStatus = "free"
)

type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotReserved  SlotStatus = "reserved"
	// SlotOccupied is written by older data sets; it is never available.
	SlotOccupied SlotStatus = "occupied"
)

var Weekdays = []string{"monday", "tuesday", "wednesday", "thursday", "friday", "saturday", "sunday"}

type Restaurant struct {
	ID           string                  `json:"id" bson:"_id"`
	Name         string                  `json:"name" bson:"name"`
	Rating       float64                 `json:"rating" bson:"rating"`
	Features     []string                `json:"features" bson:"features"`
	Price        string                  `json:"price" bson:"price"`
	Status       RestaurantStatus        `json:"status" bson:"status"`
	Description  string                  `json:"description,omitempty" bson:"description,omitempty"`
	Location     string                  `json:"location" bson:"location"`
	Image        string                  `json:"image" bson:"image"`
	OpeningHours map[string]OpeningHours `json:"openingHours,omitempty" bson:"openingHours,omitempty"`
	Tables       []Table                 `json:"tables,omitempty" bson:"tables,omitempty"`
	Version      int64                   `json:"-" bson:"version"`
}

type OpeningHours struct {
	Open  string `json:"open" bson:"open"`
	Close string `json:"close" bson:"close"`
}

type Table struct {
	ID           string            `json:"id" bson:"id"`
	Seats        int               `json:"seats" bson:"seats"`
	TimeSlots    []TimeSlot        `json:"timeSlots" bson:"timeSlots"`
	Reservations []ReservationStub `json:"reservations" bson:"reservations"`
}

type TimeSlot struct {
	Time   string     `json:"time" bson:"time"`
	Status SlotStatus `json:"status" bson:"status"`
}

// ReservationStub mirrors an active reservation on its table.
type ReservationStub struct {
	Date string `json:"date" bson:"date"`
	Time string `json:"time" bson:"time"`
}

type Location struct {
	Name string `json:"name" bson:"name"`
}

// TableIndex returns the position of the table with the given id, or -1.
func (r *Restaurant) TableIndex(id string) int {
	for i := range r.Tables {
		if r.Tables[i].ID == id {
			return i
		}
	}
	return -1
}

// SlotIndex returns the position of the slot labelled at, or -1.
func (t *Table) SlotIndex(at string) int {
	for i := range t.TimeSlots {
		if t.TimeSlots[i].Time == at {
			return i
		}
	}
	return -1
}

func (s TimeSlot) Available() bool {
	return s.Status == SlotAvailable
}

// Clone returns a deep copy so callers can mutate tables freely.
func (r *Restaurant) Clone() *Restaurant {
	if r == nil {
		return nil
	}
	c := *r
	c.Features = append([]string(nil), r.Features...)
	if r.OpeningHours != nil {
		c.OpeningHours = make(map[string]OpeningHours, len(r.OpeningHours))
		for k, v := range r.OpeningHours {
			c.OpeningHours[k] = v
		}
	}
	if r.Tables != nil {
		c.Tables = make([]Table, len(r.Tables))
		for i, t := range r.Tables {
			t.TimeSlots = append([]TimeSlot(nil), t.TimeSlots...)
			t.Reservations = append([]ReservationStub(nil), t.Reservations...)
			c.Tables[i] = t
		}
	}
	return &c
}

// Summary drops the embedded tables, as listings do.
func (r *Restaurant) Summary() Restaurant {
	s := *r.Clone()
	s.Tables = nil
	return s
}
