package routes

import (
	"tablebook/auth"
	"tablebook/live"
	"tablebook/ratelim"
	"tablebook/reservations"
	"tablebook/restaurants"

	"github.com/julienschmidt/httprouter"
)

type Handlers struct {
	Auth         *auth.Handler
	Restaurants  *restaurants.Handler
	Reservations *reservations.Handler
	Live         *live.Hub
}

func RoutesWrapper(router *httprouter.Router, h Handlers, rateLimiter *ratelim.RateLimiter) {
	AddAuthRoutes(router, h.Auth, rateLimiter)
	AddRestaurantRoutes(router, h.Restaurants)
	AddReservationRoutes(router, h.Reservations, rateLimiter)
	AddLiveRoutes(router, h.Live)
}
