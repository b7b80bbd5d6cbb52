package handlers

import (
	"github.com/gorilla/mux"
)

func RegisterRoutes(r *mux.Router, rl *RateLimiter, lh *LinkHandler, rh *RedirectHandler) {
	r.HandleFunc("/healthz", HandleHealth).Methods("GET")

	api := r.PathPrefix("/api").Subrouter()
	api.Use(rl.Middleware)
	api.Use(RequireOwner)
	api.HandleFunc("/links", lh.HandleCreate).Methods("POST")
	api.HandleFunc("/links", lh.HandleList).Methods("GET")
	api.HandleFunc("/links/{id}", lh.HandleGet).Methods("GET")
	api.HandleFunc("/links/{id}", lh.HandleUpdate).Methods("PATCH")
	api.HandleFunc("/links/{id}", lh.HandleDelete).Methods("DELETE")

	// Registered last so it only catches single-segment paths.
	r.HandleFunc("/{code}", rh.HandleRedirect).Methods("GET")
}
