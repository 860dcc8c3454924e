package models

import "testing"

func sample() *Restaurant {
	return &Restaurant{
		ID:           "R1",
		Name:         "Pasta Palace",
		Features:     []string{"Italian", "Pasta"},
		OpeningHours: map[string]OpeningHours{"monday": {Open: "09:00", Close: "22:00"}},
		Tables: []Table{{
			ID:        "T1",
			Seats:     4,
			TimeSlots: []TimeSlot{{Time: "18:00", Status: SlotAvailable}},
		}},
	}
}

func TestCloneIsDeep(t *testing.T) {
	r := sample()
	c := r.Clone()

	c.Tables[0].TimeSlots[0].Status = SlotReserved
	c.Tables[0].Reservations = append(c.Tables[0].Reservations, ReservationStub{Date: "2025-01-01", Time: "18:00"})
	c.Features[0] = "Changed"
	c.OpeningHours["monday"] = OpeningHours{Open: "00:00", Close: "01:00"}

	if r.Tables[0].TimeSlots[0].Status != SlotAvailable {
		t.Fatalf("slot status leaked into original")
	}
	if len(r.Tables[0].Reservations) != 0 {
		t.Fatalf("stub leaked into original")
	}
	if r.Features[0] != "Italian" {
		t.Fatalf("features leaked into original")
	}
	if r.OpeningHours["monday"].Open != "09:00" {
		t.Fatalf("opening hours leaked into original")
	}
}

func TestIndexes(t *testing.T) {
	r := sample()
	if got := r.TableIndex("T1"); got != 0 {
		t.Fatalf("expected table index 0, got %d", got)
	}
	if got := r.TableIndex("T9"); got != -1 {
		t.Fatalf("expected -1 for missing table, got %d", got)
	}
	if got := r.Tables[0].SlotIndex("19:00"); got != -1 {
		t.Fatalf("expected -1 for missing slot, got %d", got)
	}
}

func TestSummaryDropsTables(t *testing.T) {
	s := sample().Summary()
	if s.Tables != nil {
		t.Fatalf("summary should not carry tables")
	}
	if s.Name != "Pasta Palace" {
		t.Fatalf("summary lost name: %q", s.Name)
	}
}
