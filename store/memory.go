package store

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"tablebook/models"
)

type resEntry struct {
	res     models.Reservation
	version int64
}

// Memory is an in-process store with the same optimistic transaction
// semantics as Mongo. It backs STORE=memory and the test suites.
type Memory struct {
	mu           sync.RWMutex
	restaurants  map[string]*models.Restaurant
	reservations map[string]resEntry
	locations    map[string]models.Location
	users        map[string]models.User
	seq          int64
	maxAttempts  int
}

func NewMemory(maxAttempts int) *Memory {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return &Memory{
		restaurants:  make(map[string]*models.Restaurant),
		reservations: make(map[string]resEntry),
		locations:    make(map[string]models.Location),
		users:        make(map[string]models.User),
		maxAttempts:  maxAttempts,
	}
}

// ---------- Transactions ----------

type memOp func(restaurants map[string]*models.Restaurant, reservations map[string]resEntry) error

type memTx struct {
	guard
	s                *Memory
	restaurantReads  map[string]int64
	reservationReads map[string]int64
	ops              []memOp
}

func (s *Memory) RunTx(ctx context.Context, fn TxFunc) error {
	for attempt := 1; attempt <= s.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		tx := &memTx{
			s:                s,
			restaurantReads:  make(map[string]int64),
			reservationReads: make(map[string]int64),
		}
		if err := fn(ctx, tx); err != nil {
			return err
		}
		err := s.commit(tx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrStaleWrite) {
			return err
		}
	}
	return ErrContention
}

func (s *Memory) commit(tx *memTx) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for id, v := range tx.restaurantReads {
		if s.restaurantVersion(id) != v {
			return ErrStaleWrite
		}
	}
	for id, v := range tx.reservationReads {
		if s.reservations[id].version != v {
			return ErrStaleWrite
		}
	}
	if len(tx.ops) == 0 {
		return nil
	}

	restaurants := make(map[string]*models.Restaurant, len(s.restaurants))
	for k, v := range s.restaurants {
		restaurants[k] = v
	}
	reservations := make(map[string]resEntry, len(s.reservations))
	for k, v := range s.reservations {
		reservations[k] = v
	}
	for _, op := range tx.ops {
		if err := op(restaurants, reservations); err != nil {
			return err
		}
	}
	for id, e := range reservations {
		if e.version == 0 {
			s.seq++
			e.version = s.seq
			reservations[id] = e
		}
	}
	s.restaurants = restaurants
	s.reservations = reservations
	return nil
}

// restaurantVersion returns -1 for a missing document; caller holds mu.
func (s *Memory) restaurantVersion(id string) int64 {
	r, ok := s.restaurants[id]
	if !ok {
		return -1
	}
	return r.Version
}

func (tx *memTx) GetRestaurant(_ context.Context, id string) (*models.Restaurant, error) {
	if err := tx.read(); err != nil {
		return nil, err
	}
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()

	tx.restaurantReads[id] = tx.s.restaurantVersion(id)
	r, ok := tx.s.restaurants[id]
	if !ok {
		return nil, ErrNoDocument
	}
	return r.Clone(), nil
}

func (tx *memTx) GetReservation(_ context.Context, id string) (*models.Reservation, error) {
	if err := tx.read(); err != nil {
		return nil, err
	}
	tx.s.mu.RLock()
	defer tx.s.mu.RUnlock()

	e, ok := tx.s.reservations[id]
	tx.reservationReads[id] = e.version
	if !ok {
		return nil, ErrNoDocument
	}
	res := e.res
	return &res, nil
}

func (tx *memTx) UpdateTables(_ context.Context, r *models.Restaurant) error {
	tx.write()
	next := r.Clone()
	tx.ops = append(tx.ops, func(restaurants map[string]*models.Restaurant, _ map[string]resEntry) error {
		cur, ok := restaurants[next.ID]
		if !ok {
			return ErrNoDocument
		}
		if cur.Version != next.Version {
			return ErrStaleWrite
		}
		updated := cur.Clone()
		updated.Tables = next.Tables
		updated.Version++
		restaurants[next.ID] = updated
		return nil
	})
	return nil
}

func (tx *memTx) InsertReservation(_ context.Context, res *models.Reservation) error {
	tx.write()
	doc := *res
	tx.ops = append(tx.ops, func(_ map[string]*models.Restaurant, reservations map[string]resEntry) error {
		if _, ok := reservations[doc.ID]; ok {
			return fmt.Errorf("reservation %s: %w", doc.ID, ErrDuplicate)
		}
		if doc.Active() {
			for _, e := range reservations {
				if e.res.Active() && e.res.SameSlot(&doc) {
					return fmt.Errorf("active reservation for slot: %w", ErrDuplicate)
				}
			}
		}
		reservations[doc.ID] = resEntry{res: doc}
		return nil
	})
	return nil
}

func (tx *memTx) DeleteReservation(_ context.Context, id string) error {
	tx.write()
	tx.ops = append(tx.ops, func(_ map[string]*models.Restaurant, reservations map[string]resEntry) error {
		if _, ok := reservations[id]; !ok {
			return ErrNoDocument
		}
		delete(reservations, id)
		return nil
	})
	return nil
}

func (tx *memTx) UpdateReservationStatus(_ context.Context, id string, status models.ReservationStatus) error {
	tx.write()
	tx.ops = append(tx.ops, func(_ map[string]*models.Restaurant, reservations map[string]resEntry) error {
		e, ok := reservations[id]
		if !ok {
			return ErrNoDocument
		}
		e.res.Status = status
		e.res.UpdatedAt = time.Now().UTC()
		e.version = 0
		reservations[id] = e
		return nil
	})
	return nil
}

// ---------- Reservations ----------

func (s *Memory) GetReservation(_ context.Context, id string) (*models.Reservation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.reservations[id]
	if !ok {
		return nil, ErrNoDocument
	}
	res := e.res
	return &res, nil
}

func (s *Memory) ListReservations(_ context.Context, f ReservationFilter) ([]models.Reservation, error) {
	s.mu.RLock()
	var out []models.Reservation
	for _, e := range s.reservations {
		if f.match(&e.res) {
			out = append(out, e.res)
		}
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// ---------- Restaurants ----------

func (s *Memory) GetRestaurant(_ context.Context, id string) (*models.Restaurant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.restaurants[id]
	if !ok {
		return nil, ErrNoDocument
	}
	return r.Clone(), nil
}

func (s *Memory) ListRestaurants(_ context.Context, q RestaurantQuery) ([]models.Restaurant, int64, error) {
	s.mu.RLock()
	var out []models.Restaurant
	for _, r := range s.restaurants {
		if q.Location != "" && r.Location != q.Location {
			continue
		}
		if q.Name != "" && !strings.HasPrefix(strings.ToLower(r.Name), strings.ToLower(q.Name)) {
			continue
		}
		if q.Feature != "" && !hasFeature(r.Features, q.Feature) {
			continue
		}
		out = append(out, r.Summary())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name == out[j].Name {
			return out[i].ID < out[j].ID
		}
		return out[i].Name < out[j].Name
	})
	total := int64(len(out))
	if q.Skip > 0 {
		if q.Skip >= len(out) {
			return []models.Restaurant{}, total, nil
		}
		out = out[q.Skip:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, total, nil
}

func hasFeature(features []string, want string) bool {
	for _, f := range features {
		if strings.EqualFold(f, want) {
			return true
		}
	}
	return false
}

// PutRestaurant inserts or replaces a restaurant document.
func (s *Memory) PutRestaurant(_ context.Context, r *models.Restaurant) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc := r.Clone()
	if cur, ok := s.restaurants[r.ID]; ok {
		doc.Version = cur.Version + 1
	}
	s.restaurants[r.ID] = doc
	return nil
}

func (s *Memory) ResetRestaurants(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.restaurants = make(map[string]*models.Restaurant)
	return nil
}

// ResetReservations drops every reservation.
func (s *Memory) ResetReservations(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reservations = make(map[string]resEntry)
	return nil
}

func (s *Memory) PutLocation(_ context.Context, l models.Location) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.locations[l.Name] = l
	return nil
}

func (s *Memory) ListLocations(_ context.Context) ([]models.Location, error) {
	s.mu.RLock()
	out := make([]models.Location, 0, len(s.locations))
	for _, l := range s.locations {
		out = append(out, l)
	}
	s.mu.RUnlock()
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// ---------- Users ----------

func (s *Memory) CreateUser(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.users {
		if existing.Username == u.Username {
			return fmt.Errorf("username %s: %w", u.Username, ErrDuplicate)
		}
	}
	if _, ok := s.users[u.UserID]; ok {
		return fmt.Errorf("user %s: %w", u.UserID, ErrDuplicate)
	}
	s.users[u.UserID] = *u
	return nil
}

func (s *Memory) FindUserByUsername(_ context.Context, username string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, u := range s.users {
		if u.Username == username {
			found := u
			return &found, nil
		}
	}
	return nil, ErrNoDocument
}

func (s *Memory) FindUserByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrNoDocument
	}
	return &u, nil
}
