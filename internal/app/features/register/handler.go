// internal/app/features/register/handler.go
package register

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/dalemusser/waffle/pantry/templates"
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
)

// FormID identifies the registration form.
const FormID = "register-form"

// DefaultRedirectDelay is how long the success message shows before the
// browser moves on to the login page.
const DefaultRedirectDelay = 1500 * time.Millisecond

const (
	SuccessMessage    = "Registration successful! Please check your email."
	FailurePrefix     = "Registration failed: "
	InProgressMessage = "Request already in progress"
)

// Handler serves the registration page.
type Handler struct {
	Backend       backend.Backend
	Sessions      *auth.SessionManager
	Guard         *formguard.Guard
	Renderer      *view.Renderer
	RedirectDelay time.Duration
	Log           *zap.Logger

	// Attempts throttles submissions when set.
	Attempts *ratelimit.AuthLimiter

	Render func(w http.ResponseWriter, r *http.Request, name string, data any)
}

type registerFormData struct {
	viewdata.BaseVM
	FormID string
	Email  string
	Name   string
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

func (h *Handler) formData(r *http.Request, email, name string) registerFormData {
	page := view.NewPage(view.AuthDropdown)
	h.Renderer.Render(auth.CurrentState(r), page)
	return registerFormData{
		BaseVM: viewdata.NewBaseVM(r, "Register", page, h.Sessions.NotificationTTL()),
		FormID: FormID,
		Email:  email,
		Name:   name,
	}
}

// ServeRegister handles GET /register.
func (h *Handler) ServeRegister(w http.ResponseWriter, r *http.Request) {
	h.Render(w, r, "register", h.formData(r, "", ""))
}

// HandleRegisterPost handles POST /register.
//
// The account is created first and the profile row second. A failed
// profile insert is reported but the account is kept; the login handler
// creates the row later.
func (h *Handler) HandleRegisterPost(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, limits.MaxAuthFormSize)
	if err := r.ParseForm(); err != nil {
		h.Log.Warn("register: parse form failed", zap.Error(err))
		http.Error(w, "Invalid form data.", http.StatusBadRequest)
		return
	}

	email := strings.TrimSpace(r.FormValue("email"))
	password := r.FormValue("password")
	name := strings.TrimSpace(r.FormValue("name"))
	slot := notify.FromContext(r.Context())

	release, ok := h.Guard.Acquire(h.Sessions.EnsureSessionID(w, r), FormID)
	if !ok {
		slot.Set(notify.New(notify.Info, InProgressMessage))
		w.WriteHeader(http.StatusConflict)
		h.Render(w, r, "register", h.formData(r, email, name))
		return
	}
	defer release()

	if h.Attempts != nil {
		if msg := h.Attempts.CheckSignUp(r); msg != "" {
			h.Log.Warn("register: throttled", zap.String("ip", ratelimit.ClientIP(r)))
			slot.Set(notify.New(notify.Error, FailurePrefix+msg))
			w.WriteHeader(http.StatusTooManyRequests)
			h.Render(w, r, "register", h.formData(r, email, name))
			return
		}
	}

	if err := h.register(r.Context(), email, password, name); err != nil {
		h.Log.Warn("registration failed",
			zap.String("kind", string(backend.KindOf(err))),
			zap.Error(err))
		slot.Set(notify.New(notify.Error, FailurePrefix+backend.Message(err)))
		h.Render(w, r, "register", h.formData(r, email, name))
		return
	}

	// Registration does not sign the user in; re-check the session anyway so
	// the page reflects whatever the browser already holds.
	res := h.Sessions.Reconcile(r.Context(), h.Sessions.Token(r))
	r = auth.WithState(r, res.State)

	n := notify.New(notify.Success, SuccessMessage)
	slot.Set(n)
	_ = h.Sessions.Carry(w, r, n)

	data := h.formData(r, "", "")
	data.NavigateAfter(w, "/login", h.RedirectDelay)
	h.Render(w, r, "register", data)
}

func (h *Handler) register(parent context.Context, email, password, name string) error {
	ctx, cancel := timeouts.WithTimeout(parent, timeouts.Short(), h.Log, "sign up")
	defer cancel()

	now := time.Now().UTC()
	p, err := h.Backend.SignUp(ctx, backend.SignUpInput{
		Email:    email,
		Password: password,
		Metadata: map[string]any{
			"name":       name,
			"last_login": now.Format(time.RFC3339),
		},
	})
	if err != nil {
		return err
	}

	ctx, cancel = timeouts.WithTimeout(parent, timeouts.Medium(), h.Log, "insert profile")
	defer cancel()

	prof := models.Profile{ID: p.ID, Email: email, Name: name, CreatedAt: now}
	if err := h.Backend.Records(nil).Insert(ctx, models.ProfilesTable, prof); err != nil {
		h.Log.Error("profile insert failed after sign-up",
			zap.String("user_id", p.ID), zap.Error(err))
		return backend.Relabel(err, backend.ProfileStorageError)
	}

	h.Log.Info("user registered", zap.String("user_id", p.ID))
	return nil
}
