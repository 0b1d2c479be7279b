// internal/app/bootstrap/routes.go
package bootstrap

import (
	"net/http"

	"github.com/dalemusser/waffle/config"
	"github.com/dalemusser/waffle/pantry/fileserver"
	"github.com/dalemusser/waffle/pantry/templates"
	errorsfeature "github.com/fuelbox/fuelbox/internal/app/features/errors"
	healthfeature "github.com/fuelbox/fuelbox/internal/app/features/health"
	homefeature "github.com/fuelbox/fuelbox/internal/app/features/home"
	loginfeature "github.com/fuelbox/fuelbox/internal/app/features/login"
	logoutfeature "github.com/fuelbox/fuelbox/internal/app/features/logout"
	menufeature "github.com/fuelbox/fuelbox/internal/app/features/menu"
	registerfeature "github.com/fuelbox/fuelbox/internal/app/features/register"
	"github.com/fuelbox/fuelbox/internal/app/system/auth"
	"github.com/fuelbox/fuelbox/internal/app/system/catalog"
	"github.com/fuelbox/fuelbox/internal/app/system/formguard"
	"github.com/fuelbox/fuelbox/internal/app/system/ratelimit"
	"github.com/fuelbox/fuelbox/internal/app/system/redisstore"
	"github.com/fuelbox/fuelbox/internal/app/system/view"
	"github.com/go-chi/chi/v5"
	"github.com/gorilla/csrf"
	"go.uber.org/zap"
)

// DefaultStaticDir holds the files served under /static when static_dir
// is unset.
const DefaultStaticDir = "public"

// BuildHandler constructs the root HTTP handler.
//
// Page requests pass through CSRF protection and then the session
// middleware, which reconciles the browser session with the backend so
// handlers can read the UIState via auth.CurrentState(r). Static assets
// and /health skip both.
func BuildHandler(coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) (http.Handler, error) {
	// Secure cookies are enabled in production mode.
	secure := coreCfg.Env == "prod"

	sessionMgr, err := newSessionManager(appCfg, deps, secure, logger)
	if err != nil {
		logger.Error("session manager init failed", zap.Error(err))
		return nil, err
	}
	sessionMgr.SetNotificationTTL(appCfg.NotificationTTL)

	// Dev mode enables template reloading for faster iteration.
	eng := templates.New(coreCfg.Env == "dev")
	if err := eng.Boot(logger); err != nil {
		logger.Error("template engine boot failed", zap.Error(err))
		return nil, err
	}
	templates.UseEngine(eng, logger)

	// Shared across features: one guard so a form cannot be submitted twice
	// from the same session, one renderer for the auth regions, one
	// attempt limiter for the credential forms.
	guard := formguard.New()
	renderer := view.NewRenderer()
	attempts := ratelimit.NewAuthLimiter()

	errorsHandler := errorsfeature.NewHandler(sessionMgr, renderer, logger)

	r := chi.NewRouter()

	// Static assets and the health check sit outside the session middleware:
	// they never reconcile and never create a session.
	staticDir := appCfg.StaticDir
	if staticDir == "" {
		staticDir = DefaultStaticDir
	}
	r.Handle("/static/*", fileserver.Handler("/static", staticDir))

	// Health check endpoint for load balancers and orchestrators
	healthHandler := healthfeature.NewHandler(deps.Backend, appCfg.Backend, logger)
	r.Mount("/health", healthfeature.Routes(healthHandler))

	r.Group(func(r chi.Router) {
		if !secure {
			r.Use(markPlaintext)
		}
		r.Use(csrf.Protect(
			[]byte(appCfg.CSRFKey),
			csrf.Secure(secure),
			csrf.Path("/"),
			csrf.SameSite(csrf.SameSiteLaxMode),
			csrf.ErrorHandler(sessionMgr.LoadSession(http.HandlerFunc(errorsHandler.CSRFFailure))),
		))
		r.Use(sessionMgr.LoadSession)

		homeHandler := homefeature.NewHandler(sessionMgr, renderer, logger)
		r.Mount("/", homefeature.Routes(homeHandler))

		loginHandler := loginfeature.NewHandler(deps.Backend, sessionMgr, guard, renderer, appCfg.LoginRedirectDelay, logger)
		loginHandler.Attempts = attempts
		r.Mount("/login", loginfeature.Routes(loginHandler))

		registerHandler := registerfeature.NewHandler(deps.Backend, sessionMgr, guard, renderer, appCfg.RegisterRedirectDelay, logger)
		registerHandler.Attempts = attempts
		r.Mount("/register", registerfeature.Routes(registerHandler))

		logoutHandler := logoutfeature.NewHandler(deps.Backend, sessionMgr, renderer, appCfg.LogoutRedirectDelay, logger)
		r.Mount("/logout", logoutfeature.Routes(logoutHandler))

		menuHandler := menufeature.NewHandler(deps.Backend, sessionMgr, renderer, catalog.New(appCfg.CatalogTimeout, logger), logger)
		r.Mount("/menu", menufeature.Routes(menuHandler))
	})

	// Unmatched paths land in the "/" mount, so they reach this handler
	// through the group's middleware.
	r.NotFound(errorsHandler.NotFound)

	return r, nil
}

// newSessionManager picks the session store from config.
func newSessionManager(appCfg AppConfig, deps DBDeps, secure bool, logger *zap.Logger) (*auth.SessionManager, error) {
	if appCfg.SessionStore != SessionStoreRedis {
		return auth.NewSessionManager(deps.Backend, appCfg.SessionKey, appCfg.SessionName,
			appCfg.SessionDomain, appCfg.SessionMaxAge, secure, logger)
	}

	store := redisstore.New(deps.Redis,
		auth.CookieOptions(appCfg.SessionDomain, appCfg.SessionMaxAge, secure),
		[]byte(appCfg.SessionKey))
	logger.Info("session store initialized",
		zap.String("store", SessionStoreRedis),
		zap.Bool("secure", secure))
	return auth.NewSessionManagerWithStore(deps.Backend, store, appCfg.SessionName, logger), nil
}

// markPlaintext tells the CSRF middleware a request arrived over plain
// HTTP so its origin checks accept http:// referers in development.
func markPlaintext(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.TLS == nil {
			r = csrf.PlaintextHTTPRequest(r)
		}
		next.ServeHTTP(w, r)
	})
}
