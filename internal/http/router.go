package http

import (
	"net/http"

	"noteslite/internal/config"
	"noteslite/internal/http/handler"
	mw "noteslite/internal/http/middleware"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewRouter(cfg config.Config, svc handler.Service) http.Handler {
	r := chi.NewRouter()

	r.Use(chimw.RequestID)
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	r.Use(mw.Metrics)

	if len(cfg.CORSAllowedOrigins) > 0 {
		r.Use(mw.CORS(cfg.CORSAllowedOrigins, cfg.CORSAllowCredentials))
	}

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	r.Handle("/metrics", promhttp.Handler())

	nh := &handler.NoteHandler{Svc: svc}

	r.Route("/api/users/{userID}", func(r chi.Router) {
		r.Get("/store", nh.GetStore)
		r.Post("/notes", nh.CreateNote)
		r.Patch("/notes/{noteID}", nh.UpdateNote)
		r.Delete("/notes/{noteID}", nh.DeleteNote)
		r.Put("/orders/{bucket}", nh.ReorderBucket)
	})

	r.NotFound(handler.NotFound)

	return r
}
