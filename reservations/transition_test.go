package reservations

import (
	"testing"

	"tablebook/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func restaurantWithStubs() *models.Restaurant {
	return &models.Restaurant{
		ID: "R1",
		Tables: []models.Table{{
			ID: "T1",
			TimeSlots: []models.TimeSlot{
				{Time: "18:00", Status: models.SlotReserved},
				{Time: "19:00", Status: models.SlotAvailable},
			},
			Reservations: []models.ReservationStub{
				{Date: "2025-01-01", Time: "18:00"},
				{Date: "2025-01-02", Time: "19:00"},
				{Date: "2025-01-01", Time: "18:00"},
			},
		}},
	}
}

func TestReserveSlotLeavesRestaurantUntouchedOnError(t *testing.T) {
	r := restaurantWithStubs()

	err := reserveSlot(r, "T1", "2025-01-03", "18:00")
	require.ErrorIs(t, err, ErrConflict)
	assert.Len(t, r.Tables[0].Reservations, 3)

	require.NoError(t, reserveSlot(r, "T1", "2025-01-03", "19:00"))
	assert.Equal(t, models.SlotReserved, r.Tables[0].TimeSlots[1].Status)
	assert.Equal(t, models.ReservationStub{Date: "2025-01-03", Time: "19:00"}, r.Tables[0].Reservations[3])
}

func TestReleaseSlotDropsEveryMatchingStub(t *testing.T) {
	r := restaurantWithStubs()

	assert.True(t, releaseSlot(r, "T1", "2025-01-01", "18:00"))
	assert.Equal(t, models.SlotAvailable, r.Tables[0].TimeSlots[0].Status)
	assert.Equal(t, []models.ReservationStub{{Date: "2025-01-02", Time: "19:00"}}, r.Tables[0].Reservations)

	assert.False(t, releaseSlot(r, "T1", "2025-01-01", "18:00"))
	assert.False(t, releaseSlot(r, "T9", "2025-01-01", "18:00"))
}
