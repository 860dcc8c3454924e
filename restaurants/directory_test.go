package restaurants

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"tablebook/models"
	"tablebook/store"

	"github.com/julienschmidt/httprouter"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mapCache is an in-process stand-in for the redis cache.
type mapCache struct {
	mu   sync.Mutex
	data map[string][]byte
	gens map[string]int64
	hits int
}

func newMapCache() *mapCache {
	return &mapCache{data: make(map[string][]byte), gens: make(map[string]int64)}
}

func (c *mapCache) GetJSON(_ context.Context, key string, dst any) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	raw, ok := c.data[key]
	if !ok {
		return false, nil
	}
	c.hits++
	return true, json.Unmarshal(raw, dst)
}

func (c *mapCache) Generation(_ context.Context, key string) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[key], nil
}

func (c *mapCache) SetJSONAt(_ context.Context, key string, v any, gen int64) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.gens[key] == gen {
		c.data[key] = raw
	}
	return nil
}

func (c *mapCache) Del(_ context.Context, keys ...string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, k := range keys {
		c.gens[k]++
		delete(c.data, k)
	}
	return nil
}

// countingRepo counts point reads reaching the store.
type countingRepo struct {
	*store.Memory
	gets  int
	onGet func()
}

func (r *countingRepo) GetRestaurant(ctx context.Context, id string) (*models.Restaurant, error) {
	r.gets++
	res, err := r.Memory.GetRestaurant(ctx, id)
	if r.onGet != nil {
		r.onGet()
	}
	return res, err
}

func newFixture(t *testing.T) (*Directory, *countingRepo, *mapCache) {
	t.Helper()
	ctx := context.Background()
	st := store.NewMemory(1)
	require.NoError(t, st.PutRestaurant(ctx, &models.Restaurant{
		ID: "R1", Name: "Pasta Palace", Location: "Downtown", Features: []string{"Italian"},
		Tables: []models.Table{
			{ID: "T1", Seats: 2, TimeSlots: []models.TimeSlot{
				{Time: "18:00", Status: models.SlotAvailable},
				{Time: "19:00", Status: models.SlotReserved},
			}},
			{ID: "T2", Seats: 6, TimeSlots: []models.TimeSlot{
				{Time: "18:00", Status: models.SlotOccupied},
				{Time: "19:00", Status: models.SlotAvailable},
			}},
		},
	}))
	require.NoError(t, st.PutRestaurant(ctx, &models.Restaurant{ID: "R2", Name: "Sushi Central", Location: "Uptown"}))
	require.NoError(t, st.PutLocation(ctx, models.Location{Name: "Downtown"}))
	require.NoError(t, st.PutLocation(ctx, models.Location{Name: "Uptown"}))

	repo := &countingRepo{Memory: st}
	cache := newMapCache()
	return NewDirectory(repo, cache), repo, cache
}

func TestGetReadsThroughCache(t *testing.T) {
	dir, repo, cache := newFixture(t)
	ctx := context.Background()

	first, err := dir.Get(ctx, "R1")
	require.NoError(t, err)
	second, err := dir.Get(ctx, "R1")
	require.NoError(t, err)

	assert.Equal(t, 1, repo.gets)
	assert.Equal(t, 1, cache.hits)
	assert.Equal(t, first.Name, second.Name)
	assert.Len(t, second.Tables, 2)

	dir.Invalidate(ctx, "R1")
	_, err = dir.Get(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.gets)

	_, err = dir.Get(ctx, "R9")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetDoesNotCacheCopyInvalidatedMidRead(t *testing.T) {
	dir, repo, cache := newFixture(t)
	ctx := context.Background()

	// a reservation commits and invalidates while the read is in flight
	repo.onGet = func() {
		repo.onGet = nil
		dir.Invalidate(ctx, "R1")
	}
	_, err := dir.Get(ctx, "R1")
	require.NoError(t, err)

	found, err := cache.GetJSON(ctx, "restaurant:R1", &models.Restaurant{})
	require.NoError(t, err)
	assert.False(t, found)

	_, err = dir.Get(ctx, "R1")
	require.NoError(t, err)
	_, err = dir.Get(ctx, "R1")
	require.NoError(t, err)
	assert.Equal(t, 2, repo.gets)
}

func TestGetWithoutCache(t *testing.T) {
	st := store.NewMemory(1)
	require.NoError(t, st.PutRestaurant(context.Background(), &models.Restaurant{ID: "R1", Name: "Pasta Palace"}))
	dir := NewDirectory(st, nil)

	r, err := dir.Get(context.Background(), "R1")
	require.NoError(t, err)
	assert.Equal(t, "Pasta Palace", r.Name)
}

func TestTablesFiltersBySeatsAndAvailability(t *testing.T) {
	dir, _, _ := newFixture(t)

	all, err := dir.Tables(context.Background(), "R1", 0)
	require.NoError(t, err)
	assert.Equal(t, []TableView{
		{ID: "T1", Seats: 2, Available: []string{"18:00"}},
		{ID: "T2", Seats: 6, Available: []string{"19:00"}},
	}, all)

	large, err := dir.Tables(context.Background(), "R1", 4)
	require.NoError(t, err)
	require.Len(t, large, 1)
	assert.Equal(t, "T2", large[0].ID)

	_, err = dir.Tables(context.Background(), "R9", 0)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListAndLocations(t *testing.T) {
	dir, _, _ := newFixture(t)
	ctx := context.Background()

	page, err := dir.List(ctx, Query{Location: "Downtown"})
	require.NoError(t, err)
	assert.Equal(t, int64(1), page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 10, page.Limit)
	require.Len(t, page.Restaurants, 1)
	assert.Nil(t, page.Restaurants[0].Tables)

	page, err = dir.List(ctx, Query{Location: "Nowhere"})
	require.NoError(t, err)
	assert.NotNil(t, page.Restaurants)
	assert.Empty(t, page.Restaurants)

	names, err := dir.Locations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"Downtown", "Uptown"}, names)
}

func TestHandlers(t *testing.T) {
	dir, _, _ := newFixture(t)
	h := NewHandler(dir, time.Second)
	router := httprouter.New()
	router.GET("/api/restaurants", h.List)
	router.GET("/api/restaurants/:id", h.Get)
	router.GET("/api/restaurants/:id/tables", h.Tables)
	router.GET("/api/locations", h.Locations)

	get := func(path string) *httptest.ResponseRecorder {
		rr := httptest.NewRecorder()
		router.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, path, nil))
		return rr
	}

	rr := get("/api/restaurants?name=sus")
	require.Equal(t, http.StatusOK, rr.Code)
	var page Page
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &page))
	require.Len(t, page.Restaurants, 1)
	assert.Equal(t, "R2", page.Restaurants[0].ID)

	rr = get("/api/restaurants/R1")
	require.Equal(t, http.StatusOK, rr.Code)
	var r models.Restaurant
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &r))
	assert.Equal(t, "Pasta Palace", r.Name)

	rr = get("/api/restaurants/R9")
	assert.Equal(t, http.StatusNotFound, rr.Code)
	assert.JSONEq(t, `{"message":"Restaurant not found"}`, rr.Body.String())

	rr = get("/api/restaurants/R1/tables?minSeats=4")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `[{"id":"T2","seats":6,"available":["19:00"]}]`, rr.Body.String())

	rr = get("/api/locations")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `["Downtown","Uptown"]`, rr.Body.String())
}
