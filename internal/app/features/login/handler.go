// internal/app/features/login/handler.go
package login

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/templates"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/fuelbox/fuelbox/internal/app/backend"
	"github.com/fuelbox/fuelbox/internal/app/system/auth"
	"github.com/fuelbox/fuelbox/internal/app/system/formguard"
	"github.com/fuelbox/fuelbox/internal/app/system/limits"
	"github.com/fuelbox/fuelbox/internal/app/system/notify"
	"github.com/fuelbox/fuelbox/internal/app/system/ratelimit"
	"github.com/fuelbox/fuelbox/internal/app/system/timeouts"
	"github.com/fuelbox/fuelbox/internal/app/system/view"
	"github.com/fuelbox/fuelbox/internal/app/system/viewdata"
	"github.com/fuelbox/fuelbox/internal/domain/models"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// FormID identifies the login form to the form guard and templates.
const FormID = "login-form"

// DefaultRedirectDelay is how long the success message shows before the
// browser goes home.
const DefaultRedirectDelay = time.Second

const (
	SuccessMessage    = "Login successful!"
	FailurePrefix     = "Login failed: "
	InProgressMessage = "Request already in progress"
)

type Handler struct {
	Backend       backend.Backend
	Sessions      *auth.SessionManager
	Guard         *formguard.Guard
	Renderer      *view.Renderer
	RedirectDelay time.Duration
	Log           *zap.Logger

	// Attempts throttles submissions when set.
	Attempts *ratelimit.AuthLimiter

	// Render writes a page. Tests replace it to capture view models.
	Render func(w http.ResponseWriter, r *http.Request, name string, data any)
}

/*─────────────────────────────────────────────────────────────────────────────*
| Template-data                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

type loginFormData struct {
	viewdata.BaseVM
	FormID    string
	Email     string // what the user typed; never the password
	ReturnURL string
}

func NewHandler(
	be backend.Backend,
	sessions *auth.SessionManager,
	guard *formguard.Guard,
	renderer *view.Renderer,
	redirectDelay time.Duration,
	logger *zap.Logger,
) *Handler {
	if redirectDelay <= 0 {
		redirectDelay = DefaultRedirectDelay
	}
	return &Handler{
		Backend:       be,
		Sessions:      sessions,
		Guard:         guard,
		Renderer:      renderer,
		RedirectDelay: redirectDelay,
		Log:           logger,
		Render:        templates.Render,
	}
}

func (h *Handler) formData(r *http.Request, email, ret string) loginFormData {
	page := view.NewPage(view.AuthDropdown)
	h.Renderer.Render(auth.CurrentState(r), page)
	return loginFormData{
		BaseVM:    viewdata.NewBaseVM(r, "Login", page, h.Sessions.NotificationTTL()),
		FormID:    FormID,
		Email:     email,
		ReturnURL: ret,
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /login                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	h.Render(w, r, "login", h.formData(r, "", query.Get(r, "return")))
}

/*─────────────────────────────────────────────────────────────────────────────*
| POST /login                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) HandleLoginPost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxAuthFormSize)
	if err := r.ParseForm(); err != nil {
		h.Log.Warn("login: parse form failed", zap.Error(err))
		http.Error(w, "Invalid form data.", http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	ret := r.FormValue("return")
	slot := notify.FromContext(r.Context())

	release, ok := h.Guard.Acquire(h.Sessions.EnsureSessionID(w, r), FormID)
	if !ok {
		slot.Set(notify.New(notify.Info, InProgressMessage))
		w.WriteHeader(http.StatusConflict)
		h.Render(w, r, "login", h.formData(r, email, ret))
		return
	}
	defer release()

	if h.Attempts != nil {
		if msg := h.Attempts.CheckSignIn(r, email); msg != "" {
			h.Log.Warn("login: throttled", zap.String("ip", ratelimit.ClientIP(r)))
			slot.Set(notify.New(notify.Error, FailurePrefix+msg))
			w.WriteHeader(http.StatusTooManyRequests)
			h.Render(w, r, "login", h.formData(r, email, ret))
			return
		}
	}

	ctx, cancel := timeouts.WithTimeout(r.Context(), timeouts.Short(), h.Log, "sign in")
	defer cancel()

	p, tok, err := h.Backend.SignInWithPassword(ctx, email, password)
	if err != nil {
		h.Log.Warn("login failed",
			zap.String("kind", string(backend.KindOf(err))),
			zap.Error(err))
		slot.Set(notify.New(notify.Error, FailurePrefix+backend.Message(err)))
		h.Render(w, r, "login", h.formData(r, email, ret))
		return
	}

	if err := h.Sessions.SaveToken(w, r, tok); err != nil {
		slot.Set(notify.New(notify.Error, FailurePrefix+"unable to save session"))
		h.Render(w, r, "login", h.formData(r, email, ret))
		return
	}

	res := h.Sessions.Reconcile(r.Context(), tok)
	st := res.State
	if !st.IsAuthenticated() {
		// The sign-in itself succeeded; trust its principal.
		h.Log.Warn("reconcile after login returned no principal")
		st = auth.Authenticated(p)
	}
	r = auth.WithState(r, st)

	h.touchProfile(r.Context(), tok, p)
	if h.Attempts != nil {
		h.Attempts.SignedIn(email)
	}

	n := notify.New(notify.Success, SuccessMessage)
	slot.Set(n)
	_ = h.Sessions.Carry(w, r, n)

	h.Log.Info("user signed in", zap.String("user_id", p.ID))

	data := h.formData(r, "", "")
	data.NavigateAfter(w, urlutil.SafeReturn(ret, "", "/"), h.RedirectDelay)
	h.Render(w, r, "login", data)
}

// touchProfile records the sign-in time on the profile row, creating the
// row when registration never stored it. Failures are only logged.
func (h *Handler) touchProfile(parent context.Context, tok *oauth2.Token, p *backend.Principal) {
	ctx, cancel := timeouts.WithTimeout(parent, timeouts.Medium(), h.Log, "update last_login")
	defer cancel()

	recs := h.Backend.Records(tok)
	now := time.Now().UTC()
	n, err := recs.Update(ctx, models.ProfilesTable,
		map[string]any{"last_login": now},
		backend.Filter{"id": p.ID})
	if err != nil {
		h.Log.Warn("update last_login failed", zap.String("user_id", p.ID), zap.Error(err))
		return
	}
	if n > 0 {
		return
	}

	prof := models.Profile{ID: p.ID, Email: p.Email, Name: p.DisplayName, CreatedAt: now, LastLogin: &now}
	if err := recs.Insert(ctx, models.ProfilesTable, prof); err != nil {
		h.Log.Warn("lazy profile create failed", zap.String("user_id", p.ID), zap.Error(err))
		return
	}
	h.Log.Info("created missing profile on login", zap.String("user_id", p.ID))
}
