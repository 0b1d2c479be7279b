// internal/app/features/logout/handler.go
package logout

import (
	"net/http"
	"time"

	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/fuelbox/fuelbox/internal/app/backend"
	"github.com/fuelbox/fuelbox/internal/app/system/auth"
	"github.com/fuelbox/fuelbox/internal/app/system/notify"
	"github.com/fuelbox/fuelbox/internal/app/system/timeouts"
	"github.com/fuelbox/fuelbox/internal/app/system/view"
	"github.com/fuelbox/fuelbox/internal/app/system/viewdata"
	"go.uber.org/zap"
)

// DefaultRedirectDelay is how long the confirmation shows before the
// browser goes home.
const DefaultRedirectDelay = time.Second

const (
	SuccessMessage = "Logged out successfully"
	FailurePrefix  = "Logout failed: "
)

type Handler struct {
	Identity      backend.Identity
	Sessions      *auth.SessionManager
	Renderer      *view.Renderer
	RedirectDelay time.Duration
	Log           *zap.Logger

	Render func(w http.ResponseWriter, r *http.Request, name string, data any)
}

type logoutData struct {
	viewdata.BaseVM
}

func NewHandler(id backend.Identity, sessions *auth.SessionManager, renderer *view.Renderer, redirectDelay time.Duration, logger *zap.Logger) *Handler {
	if redirectDelay <= 0 {
		redirectDelay = DefaultRedirectDelay
	}
	return &Handler{
		Identity:      id,
		Sessions:      sessions,
		Renderer:      renderer,
		RedirectDelay: redirectDelay,
		Log:           logger,
		Render:        templates.Render,
	}
}

func (h *Handler) page(r *http.Request) logoutData {
	page := view.NewPage(view.AuthSection, view.Dashboard, view.WelcomeMessage, view.AuthDropdown)
	h.Renderer.Render(auth.CurrentState(r), page)
	return logoutData{BaseVM: viewdata.NewBaseVM(r, "Logout", page, h.Sessions.NotificationTTL())}
}

// HandleLogout handles POST /logout.
//
// On failure the session is left as it was and the page keeps showing the
// signed-in state.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	slot := notify.FromContext(r.Context())
	tok := h.Sessions.Token(r)

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "sign out")
	defer cancel()

	if err := h.Identity.SignOut(ctx, tok); err != nil {
		h.Log.Error("logout failed", zap.Error(err))
		slot.Set(notify.New(notify.Error, FailurePrefix+backend.Message(err)))
		h.Render(w, r, "logout", h.page(r))
		return
	}

	if err := h.Sessions.ClearToken(w, r); err != nil {
		h.Log.Error("logout: clear session", zap.Error(err))
	}

	res := h.Sessions.Reconcile(r.Context(), nil)
	r = auth.WithState(r, res.State)

	n := notify.New(notify.Success, SuccessMessage)
	slot.Set(n)
	_ = h.Sessions.Carry(w, r, n)

	data := h.page(r)
	data.NavigateAfter(w, "/", h.RedirectDelay)
	h.Render(w, r, "logout", data)
}
