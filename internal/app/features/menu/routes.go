package menu

import "github.com/go-chi/chi/v5"

// Routes is mounted under /menu.
func Routes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/", h.ServeMenu)
	r.Get("/items", h.ServeItems)
	return r
}
