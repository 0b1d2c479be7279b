package home

import (
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/fuelbox/fuelbox/internal/app/system/auth"
	"github.com/fuelbox/fuelbox/internal/app/system/view"
	"github.com/fuelbox/fuelbox/internal/app/system/viewdata"
	"go.uber.org/zap"
)

// Handler holds dependencies needed to serve the home page.
type Handler struct {
	Sessions *auth.SessionManager
	Renderer *view.Renderer
	Log      *zap.Logger

	Render func(w http.ResponseWriter, r *http.Request, name string, data any)
}

func NewHandler(sessions *auth.SessionManager, renderer *view.Renderer, logger *zap.Logger) *Handler {
	return &Handler{
		Sessions: sessions,
		Renderer: renderer,
		Log:      logger,
		Render:   templates.Render,
	}
}

type homeData struct {
	viewdata.BaseVM
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET / – landing                                                             |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeRoot(w http.ResponseWriter, r *http.Request) {
	page := view.NewPage(view.AuthSection, view.Dashboard, view.WelcomeMessage, view.AuthDropdown)
	h.Renderer.Render(auth.CurrentState(r), page)

	h.Render(w, r, "home", homeData{
		BaseVM: viewdata.NewBaseVM(r, "Welcome", page, h.Sessions.NotificationTTL()),
	})
}
