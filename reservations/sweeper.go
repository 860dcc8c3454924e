package reservations

import (
	"context"
	"log"
	"time"

	"tablebook/models"
)

type pastCompleter interface {
	CompletePast(ctx context.Context) ([]models.Reservation, error)
}

// Sweeper periodically completes reservations whose day has passed so
// their slots can be booked again.
type Sweeper struct {
	service  pastCompleter
	interval time.Duration
}

func NewSweeper(service pastCompleter, interval time.Duration) *Sweeper {
	return &Sweeper{service: service, interval: interval}
}

// Start blocks until ctx is cancelled.
func (s *Sweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	log.Printf("[Sweeper] started, interval=%s", s.interval)
	s.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			log.Println("[Sweeper] stopped")
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	done, err := s.service.CompletePast(ctx)
	if err != nil {
		log.Printf("[Sweeper] complete past reservations: %v", err)
		return
	}
	for _, res := range done {
		log.Printf("[Sweeper] completed reservation=%s restaurant=%s date=%s time=%s",
			res.ID, res.RestaurantID, res.Date, res.Time)
	}
}
