package reservations

import "tablebook/models"

// reserveSlot marks the slot reserved on r and records the stub.
// r is modified in place; nothing is written on error.
func reserveSlot(r *models.Restaurant, tableID, date, at string) error {
	ti := r.TableIndex(tableID)
	if ti == -1 {
		return NotFound(ResourceTable)
	}
	table := &r.Tables[ti]

	si := table.SlotIndex(at)
	if si == -1 {
		return NotFound(ResourceTimeSlot)
	}
	if !table.TimeSlots[si].Available() {
		return Conflict("Time slot is not available", nil)
	}

	table.TimeSlots[si].Status = models.SlotReserved
	table.Reservations = append(table.Reservations, models.ReservationStub{Date: date, Time: at})
	return nil
}

// releaseSlot frees the slot and drops every matching stub. A table or
// slot that no longer exists is tolerated. It reports whether r changed.
func releaseSlot(r *models.Restaurant, tableID, date, at string) bool {
	ti := r.TableIndex(tableID)
	if ti == -1 {
		return false
	}
	table := &r.Tables[ti]
	changed := false

	if si := table.SlotIndex(at); si != -1 && table.TimeSlots[si].Status != models.SlotAvailable {
		table.TimeSlots[si].Status = models.SlotAvailable
		changed = true
	}

	kept := table.Reservations[:0]
	for _, stub := range table.Reservations {
		if stub.Date == date && stub.Time == at {
			changed = true
			continue
		}
		kept = append(kept, stub)
	}
	table.Reservations = kept
	return changed
}
