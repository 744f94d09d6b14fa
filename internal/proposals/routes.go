package proposals

import (
	"github.com/go-chi/chi/v5"
)

func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/proposals", h.List)
	r.Post("/proposals", h.Create)
	r.Get("/proposals/preparers", h.Preparers)
	r.Get("/proposals/{id}", h.Get)
	r.Put("/proposals/{id}", h.Update)
	r.Patch("/proposals/{id}/status", h.UpdateStatus)
	r.Delete("/proposals/{id}", h.Delete)
	r.Get("/proposals/{id}/mailto", h.Mailto)
	r.Post("/proposals/{id}/email", h.Email)
}
