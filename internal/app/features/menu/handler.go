package menu

import (
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/fuelbox/fuelbox/internal/app/backend"
	"github.com/fuelbox/fuelbox/internal/app/system/auth"
	"github.com/fuelbox/fuelbox/internal/app/system/catalog"
	"github.com/fuelbox/fuelbox/internal/app/system/view"
	"github.com/fuelbox/fuelbox/internal/app/system/viewdata"
	"go.uber.org/zap"
)

// Handler serves the menu page and its food list.
type Handler struct {
	Backend  backend.Backend
	Sessions *auth.SessionManager
	Renderer *view.Renderer
	Catalog  *catalog.Service
	Log      *zap.Logger

	Render        func(w http.ResponseWriter, r *http.Request, name string, data any)
	RenderSnippet func(w http.ResponseWriter, name string, data any)
}

func NewHandler(be backend.Backend, sessions *auth.SessionManager, renderer *view.Renderer, cat *catalog.Service, logger *zap.Logger) *Handler {
	return &Handler{
		Backend:       be,
		Sessions:      sessions,
		Renderer:      renderer,
		Catalog:       cat,
		Log:           logger,
		Render:        templates.Render,
		RenderSnippet: templates.RenderSnippet,
	}
}

type menuData struct {
	viewdata.BaseVM
	Listing  catalog.Listing
	ItemsURL string
}

type itemsData struct {
	Listing catalog.Listing
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /menu – page shell with the food list in its loading state              |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeMenu(w http.ResponseWriter, r *http.Request) {
	page := view.NewPage(view.AuthDropdown, view.FoodList)
	h.Renderer.Render(auth.CurrentState(r), page)

	h.Render(w, r, "menu", menuData{
		BaseVM:   viewdata.NewBaseVM(r, "Meal Plans", page, h.Sessions.NotificationTTL()),
		Listing:  catalog.LoadingListing(),
		ItemsURL: "/menu/items",
	})
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /menu/items – food list fragment                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeItems(w http.ResponseWriter, r *http.Request) {
	// Anonymous visitors read with the public key; food items are public.
	listing := h.Catalog.Load(r.Context(), h.Backend.Records(h.Sessions.Token(r)))
	if listing.State == catalog.Failed {
		h.Log.Info("menu: food list unavailable", zap.String("reason", listing.Message))
	}
	h.RenderSnippet(w, "menu_items", itemsData{Listing: listing})
}
