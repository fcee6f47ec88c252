package controller

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (c controller) GetMux() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recoverer)
	r.Use(c.requestIdMw)
	r.Use(c.requestLoggingMw)

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("OK"))
		})
		r.Route("/jams", func(r chi.Router) {
			r.Post("/", c.createJam)
			r.Delete("/", c.deleteJam)
			r.Put("/device", c.transferPlayback)
			r.Post("/{jam-id}/users", c.joinJam)
		})
		r.Get("/ws", c.serveWS)
	})

	return r
}
