// Package restaurants serves the read side of the catalogue: listings,
// a single restaurant with its tables, free slots and locations.
package restaurants

import (
	"context"
	"errors"
	"fmt"
	"log"

	"tablebook/models"
	"tablebook/rdx"
	"tablebook/store"
)

var ErrNotFound = errors.New("restaurant not found")

type Repository interface {
	GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error)
	ListRestaurants(ctx context.Context, q store.RestaurantQuery) ([]models.Restaurant, int64, error)
	ListLocations(ctx context.Context) ([]models.Location, error)
}

// Cache is a read-through cache whose writes are fenced by a generation
// counter that Del bumps.
type Cache interface {
	GetJSON(ctx context.Context, key string, dst any) (bool, error)
	Generation(ctx context.Context, key string) (int64, error)
	SetJSONAt(ctx context.Context, key string, v any, gen int64) error
	Del(ctx context.Context, keys ...string) error
}

type Query struct {
	Location string
	Name     string
	Feature  string
	Page     int
	Limit    int
}

type Page struct {
	Restaurants []models.Restaurant `json:"restaurants"`
	Total       int64               `json:"total"`
	Page        int                 `json:"page"`
	Limit       int                 `json:"limit"`
}

// TableView is a table with the slot times that can still be booked.
type TableView struct {
	ID        string   `json:"id"`
	Seats     int      `json:"seats"`
	Available []string `json:"available"`
}

type Directory struct {
	repo  Repository
	cache Cache
}

func NewDirectory(repo Repository, cache Cache) *Directory {
	if cache == nil {
		cache = (*rdx.Cache)(nil)
	}
	return &Directory{repo: repo, cache: cache}
}

func (d *Directory) List(ctx context.Context, q Query) (*Page, error) {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Limit < 1 {
		q.Limit = 10
	}
	list, total, err := d.repo.ListRestaurants(ctx, store.RestaurantQuery{
		Location: q.Location,
		Name:     q.Name,
		Feature:  q.Feature,
		Skip:     (q.Page - 1) * q.Limit,
		Limit:    q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("list restaurants: %w", err)
	}
	if list == nil {
		list = []models.Restaurant{}
	}
	return &Page{Restaurants: list, Total: total, Page: q.Page, Limit: q.Limit}, nil
}

// Get returns the full restaurant document, read through the cache.
func (d *Directory) Get(ctx context.Context, id string) (*models.Restaurant, error) {
	key := rdx.RestaurantKey(id)

	var cached models.Restaurant
	found, err := d.cache.GetJSON(ctx, key, &cached)
	if err != nil {
		log.Printf("[Directory] cache read %s: %v", key, err)
	}
	if found {
		return &cached, nil
	}

	// an Invalidate landing after this read keeps the loaded copy out of the cache
	gen, genErr := d.cache.Generation(ctx, key)
	if genErr != nil {
		log.Printf("[Directory] cache generation %s: %v", key, genErr)
	}

	r, err := d.repo.GetRestaurant(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNoDocument) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get restaurant %s: %w", id, err)
	}
	if genErr == nil {
		if err := d.cache.SetJSONAt(ctx, key, r, gen); err != nil {
			log.Printf("[Directory] cache write %s: %v", key, err)
		}
	}
	return r, nil
}

// Tables lists tables with at least minSeats seats. It always reads the
// store so availability is never stale.
func (d *Directory) Tables(ctx context.Context, id string, minSeats int) ([]TableView, error) {
	r, err := d.repo.GetRestaurant(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNoDocument) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get restaurant %s: %w", id, err)
	}

	views := []TableView{}
	for _, t := range r.Tables {
		if t.Seats < minSeats {
			continue
		}
		view := TableView{ID: t.ID, Seats: t.Seats, Available: []string{}}
		for _, slot := range t.TimeSlots {
			if slot.Available() {
				view.Available = append(view.Available, slot.Time)
			}
		}
		views = append(views, view)
	}
	return views, nil
}

func (d *Directory) Locations(ctx context.Context) ([]string, error) {
	locs, err := d.repo.ListLocations(ctx)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	names := make([]string, 0, len(locs))
	for _, l := range locs {
		names = append(names, l.Name)
	}
	return names, nil
}

// Invalidate drops the cached document after its tables changed.
func (d *Directory) Invalidate(ctx context.Context, restaurantID string) {
	if err := d.cache.Del(ctx, rdx.RestaurantKey(restaurantID)); err != nil {
		log.Printf("[Directory] invalidate %s: %v", restaurantID, err)
	}
}
