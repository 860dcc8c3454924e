package restaurants

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"tablebook/utils"

	"github.com/julienschmidt/httprouter"
)

type Handler struct {
	dir     *Directory
	timeout time.Duration
}

func NewHandler(dir *Directory, timeout time.Duration) *Handler {
	return &Handler{dir: dir, timeout: timeout}
}

// GET /api/restaurants?location=&name=&feature=&page=&limit=
func (h *Handler) List(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	opts := utils.ParseQueryOptions(r)
	q := r.URL.Query()
	name := q.Get("name")
	if name == "" {
		name = opts.Search
	}

	page, err := h.dir.List(ctx, Query{
		Location: q.Get("location"),
		Name:     name,
		Feature:  q.Get("feature"),
		Page:     opts.Page,
		Limit:    opts.Limit,
	})
	if err != nil {
		log.Printf("[Restaurants] list: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch restaurants")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, page)
}

// GET /api/restaurants/:id
func (h *Handler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	rest, err := h.dir.Get(ctx, ps.ByName("id"))
	if err != nil {
		h.fail(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, rest)
}

// GET /api/restaurants/:id/tables?minSeats=
func (h *Handler) Tables(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	tables, err := h.dir.Tables(ctx, ps.ByName("id"), utils.QueryInt(r, "minSeats", 0))
	if err != nil {
		h.fail(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, tables)
}

// GET /api/locations
func (h *Handler) Locations(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names, err := h.dir.Locations(ctx)
	if err != nil {
		log.Printf("[Restaurants] locations: %v", err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch locations")
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, names)
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	if errors.Is(err, ErrNotFound) {
		utils.RespondWithError(w, http.StatusNotFound, "Restaurant not found")
		return
	}
	log.Printf("[Restaurants] %v", err)
	utils.RespondWithError(w, http.StatusInternalServerError, "Failed to fetch restaurant")
}
