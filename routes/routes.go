package routes

import (
	"tablebook/auth"
	"tablebook/live"
	"tablebook/middleware"
	"tablebook/ratelim"
	"tablebook/reservations"
	"tablebook/restaurants"

	"github.com/julienschmidt/httprouter"
)

func AddAuthRoutes(router *httprouter.Router, h *auth.Handler, rateLimiter *ratelim.RateLimiter) {
	router.POST("/api/auth/register", rateLimiter.Limit(h.Register))
	router.POST("/api/auth/login", rateLimiter.Limit(h.Login))
	router.GET("/api/auth/me", middleware.Authenticate(h.Me))
}

func AddRestaurantRoutes(router *httprouter.Router, h *restaurants.Handler) {
	router.GET("/api/restaurants", h.List)
	router.GET("/api/restaurants/:id", h.Get)
	router.GET("/api/restaurants/:id/tables", h.Tables)
	router.GET("/api/locations", h.Locations)
}

func AddReservationRoutes(router *httprouter.Router, h *reservations.Handler, rateLimiter *ratelim.RateLimiter) {
	router.POST("/api/reservations", rateLimiter.Limit(middleware.Authenticate(h.Create)))
	router.GET("/api/reservations", middleware.Authenticate(h.ListMine))
	router.GET("/api/reservations/:id", middleware.Authenticate(h.Get))
	router.DELETE("/api/reservations/:id", middleware.Authenticate(h.Cancel))
	router.GET("/api/reservations/:id/receipt", middleware.Authenticate(h.Receipt))
	router.GET("/api/receipts/verify", rateLimiter.Limit(h.VerifyReceipt))
}

func AddLiveRoutes(router *httprouter.Router, hub *live.Hub) {
	router.GET("/ws/restaurants/:id", middleware.OptionalAuth(hub.HandleWS))
}
