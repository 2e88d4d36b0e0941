package api

import (
	"net/http"

	"github.com/example/ec-inventory/internal/api/middleware"
	"github.com/example/ec-inventory/internal/auth"
	"go.uber.org/zap"
)

func NewRouter(handlers *Handlers, jwtService *auth.JWTService, logger *zap.Logger) http.Handler {
	mux := http.NewServeMux()

	authenticated := middleware.AuthMiddleware(jwtService)
	reader := func(h http.HandlerFunc) http.Handler {
		return authenticated(h)
	}
	writer := func(h http.HandlerFunc) http.Handler {
		return authenticated(middleware.RequireRole(auth.RoleAdmin)(h))
	}
	orderWriter := func(h http.HandlerFunc) http.Handler {
		return authenticated(middleware.RequireRole(auth.RoleAdmin, auth.RoleService)(h))
	}

	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, r *http.Request) {
		respondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Variants
	mux.Handle("GET /variants", reader(handlers.ListVariants))
	mux.Handle("GET /variants/{code}", reader(handlers.GetVariant))
	mux.Handle("POST /variants", writer(handlers.RegisterVariant))
	mux.Handle("POST /variants/{code}/restock", writer(handlers.RestockVariant))
	mux.Handle("POST /variants/{code}/tracking", writer(handlers.SetTracking))

	// Orders
	mux.Handle("POST /orders/{id}/hold", orderWriter(handlers.HoldOrder))
	mux.Handle("POST /orders/{id}/sell", orderWriter(handlers.SellOrder))
	mux.Handle("POST /orders/{id}/cancel", orderWriter(handlers.CancelOrder))

	return middleware.Logging(logger)(mux)
}
