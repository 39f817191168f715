package http

import (
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

func (h *Handler) Init() *chi.Mux {
	router := chi.NewRouter()
	router.Use(middleware.Recoverer)
	router.Use(h.withTraceID)
	router.Use(h.withLogging)

	// routes without authorization
	router.Group(func(r chi.Router) {
		r.Post("/api/devices", h.registerDevice)
	})

	// routes requiring a device credential
	router.Group(func(r chi.Router) {
		r.Use(h.auth)

		r.Post("/api/sync/batch", h.ingestBatch)
		r.Get("/api/conflicts", h.getConflicts)

		r.Post("/api/rotation", h.startRotation)
		r.Get("/api/rotation", h.getRotationStatus)
		r.Get("/api/epochs", h.getEpochs)

		r.Delete("/api/devices/{id}", h.revokeDevice)
	})

	router.MethodNotAllowed(CheckHTTPMethod(router))

	return router
}
