package reservations

import (
	"bytes"
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"tablebook/models"
	"tablebook/receipts"
	"tablebook/utils"

	"github.com/julienschmidt/httprouter"
)

// RestaurantLookup resolves the restaurant a reservation refers to.
type RestaurantLookup interface {
	Get(ctx context.Context, id string) (*models.Restaurant, error)
}

type Handler struct {
	svc         *Service
	restaurants RestaurantLookup
	signer      *receipts.Signer
	timeout     time.Duration
}

func NewHandler(svc *Service, restaurants RestaurantLookup, signer *receipts.Signer, timeout time.Duration) *Handler {
	return &Handler{svc: svc, restaurants: restaurants, signer: signer, timeout: timeout}
}

func respondError(w http.ResponseWriter, err error) {
	utils.RespondWithError(w, StatusCode(err), PublicMessage(err))
}

// POST /api/reservations
func (h *Handler) Create(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	var in ReserveInput
	if err := utils.DecodeJSON(w, r, &in); err != nil {
		if errors.Is(err, utils.ErrEmptyBody) {
			utils.RespondWithError(w, http.StatusBadRequest, "Missing required fields")
			return
		}
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if in.UserID != "" && in.UserID != userID {
		utils.RespondWithError(w, http.StatusForbidden, "userId does not match the signed-in user")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.svc.Reserve(ctx, in)
	if err != nil {
		respondError(w, err)
		return
	}

	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message":     "Reservation made successfully",
		"reservation": res,
	})
}

type restaurantRef struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Location string `json:"location"`
	Image    string `json:"image,omitempty"`
}

type reservationView struct {
	models.Reservation
	Restaurant *restaurantRef `json:"restaurant,omitempty"`
}

// GET /api/reservations
func (h *Handler) ListMine(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	userID := utils.GetUserIDFromRequest(r)
	if userID == "" {
		utils.RespondWithError(w, http.StatusUnauthorized, "Unauthorized")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	list, err := h.svc.ListByUser(ctx, userID)
	if err != nil {
		log.Printf("[ListMine] user=%s: %v", userID, err)
		respondError(w, err)
		return
	}

	refs := make(map[string]*restaurantRef)
	views := make([]reservationView, 0, len(list))
	for _, res := range list {
		ref, seen := refs[res.RestaurantID]
		if !seen {
			if rest, err := h.restaurants.Get(ctx, res.RestaurantID); err == nil {
				ref = &restaurantRef{ID: rest.ID, Name: rest.Name, Location: rest.Location, Image: rest.Image}
			}
			refs[res.RestaurantID] = ref
		}
		views = append(views, reservationView{Reservation: res, Restaurant: ref})
	}
	utils.RespondWithJSON(w, http.StatusOK, views)
}

// GET /api/reservations/:id
func (h *Handler) Get(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.svc.Get(ctx, ps.ByName("id"), utils.GetUserIDFromRequest(r))
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, res)
}

// DELETE /api/reservations/:id
func (h *Handler) Cancel(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.svc.Cancel(ctx, ps.ByName("id"), utils.GetUserIDFromRequest(r))
	if err != nil {
		respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"message":     "Reservation cancelled successfully",
		"reservation": res,
	})
}

// GET /api/reservations/:id/receipt
func (h *Handler) Receipt(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.svc.Get(ctx, ps.ByName("id"), utils.GetUserIDFromRequest(r))
	if err != nil {
		respondError(w, err)
		return
	}
	rest, err := h.restaurants.Get(ctx, res.RestaurantID)
	if err != nil {
		respondError(w, NotFound(ResourceRestaurant))
		return
	}

	var buf bytes.Buffer
	if err := receipts.Render(&buf, res, rest, h.signer.Code(res)); err != nil {
		log.Printf("[Receipt] reservation=%s: %v", res.ID, err)
		utils.RespondWithError(w, http.StatusInternalServerError, "Failed to generate receipt")
		return
	}

	w.Header().Set("Content-Type", "application/pdf")
	w.Header().Set("Content-Disposition", "attachment; filename=reservation-"+res.ID+".pdf")
	w.WriteHeader(http.StatusOK)
	w.Write(buf.Bytes())
}

// GET /api/receipts/verify?code=...
func (h *Handler) VerifyReceipt(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	code := r.URL.Query().Get("code")
	if code == "" {
		utils.RespondWithError(w, http.StatusBadRequest, "Receipt code is required")
		return
	}
	payload, err := h.signer.Verify(code)
	if err != nil {
		utils.RespondWithError(w, http.StatusBadRequest, "Invalid receipt code")
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	res, err := h.svc.Find(ctx, payload.ReservationID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			utils.RespondWithJSON(w, http.StatusOK, utils.M{"valid": false, "receipt": payload, "message": "Reservation no longer exists"})
			return
		}
		respondError(w, err)
		return
	}
	utils.RespondWithJSON(w, http.StatusOK, utils.M{
		"valid":   res.Active(),
		"receipt": payload,
		"status":  res.Status,
	})
}
