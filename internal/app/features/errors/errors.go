// internal/app/features/errors/errors.go
package errors

import (
	"net/http"

	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/fuelbox/fuelbox/internal/app/system/auth"
	"github.com/fuelbox/fuelbox/internal/app/system/view"
	"github.com/fuelbox/fuelbox/internal/app/system/viewdata"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// pageData is the view model for error pages.
type pageData struct {
	viewdata.BaseVM
	Message string
	BackURL string
}

// Handler renders error pages.
type Handler struct {
	Sessions *auth.SessionManager
	Renderer *view.Renderer
	Log      *zap.Logger

	Render func(w http.ResponseWriter, r *http.Request, name string, data any)
}

// NewHandler constructs an errors Handler.
func NewHandler(sessions *auth.SessionManager, renderer *view.Renderer, logger *zap.Logger) *Handler {
	return &Handler{
		Sessions: sessions,
		Renderer: renderer,
		Log:      logger,
		Render:   templates.Render,
	}
}

func (h *Handler) render(w http.ResponseWriter, r *http.Request, status int, title, msg, backURL string) {
	page := view.NewPage(view.AuthDropdown)
	h.Renderer.Render(auth.CurrentState(r), page)

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	h.Render(w, r, "error_page", pageData{
		BaseVM:  viewdata.NewBaseVM(r, title, page, h.Sessions.NotificationTTL()),
		Message: msg,
		BackURL: backURL,
	})
}

// NotFound renders the 404 page.
func (h *Handler) NotFound(w http.ResponseWriter, r *http.Request) {
	h.render(w, r, http.StatusNotFound, "Page not found",
		"We couldn't find that page.", "/")
}

// CSRFFailure is installed as the CSRF error handler. The usual cause is a
// form left open past its session, so the user is sent back to reload it.
func (h *Handler) CSRFFailure(w http.ResponseWriter, r *http.Request) {
	h.Log.Warn("csrf check failed",
		zap.String("path", r.URL.Path),
		zap.Error(csrf.FailureReason(r)))

	back := r.URL.Path
	if r.Method != http.MethodGet {
		back = "/"
	}
	h.render(w, r, http.StatusForbidden, "Form expired",
		"Your form expired. Please reload the page and try again.", back)
}
