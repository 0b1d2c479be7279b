// internal/app/bootstrap/config.go
package bootstrap

import (
	"fmt"
	"strings"
	"time"

	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/fuelbox/fuelbox/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// minSecretLength applies to the session, CSRF and JWT secrets.
const minSecretLength = 32

// appConfigKeys defines the configuration keys for FuelBox.
// These are loaded via WAFFLE's config system with support for:
//   - Config files: backend, supabase_url, etc.
//   - Environment variables: FUELBOX_BACKEND, FUELBOX_SUPABASE_URL, etc.
//   - Command-line flags: --backend, --supabase_url, etc.
var appConfigKeys = []config.AppKey{
	{Name: "backend", Default: BackendSupabase, Desc: "Identity/data backend: 'supabase' or 'local'"},

	// Hosted provider
	{Name: "supabase_url", Default: "", Desc: "Supabase project URL"},
	{Name: "supabase_anon_key", Default: "", Desc: "Supabase public anon key"},

	// Local backend
	{Name: "mongo_uri", Default: "mongodb://localhost:27017", Desc: "MongoDB connection URI (local backend)"},
	{Name: "mongo_database", Default: "fuelbox", Desc: "MongoDB database name (local backend)"},
	{Name: "mongo_max_pool_size", Default: 100, Desc: "MongoDB max connection pool size"},
	{Name: "mongo_min_pool_size", Default: 5, Desc: "MongoDB min connection pool size"},
	{Name: "jwt_secret", Default: "", Desc: "Access-token signing secret for the local backend (32+ chars)"},
	{Name: "token_ttl", Default: "1h", Desc: "Access-token lifetime for the local backend"},

	// Browser session
	{Name: "session_key", Default: "dev-only-change-me-please-0123456789ABCDEF", Desc: "Session signing key (must be strong in production)"},
	{Name: "session_name", Default: "fuelbox-session", Desc: "Session cookie name"},
	{Name: "session_domain", Default: "", Desc: "Session cookie domain (blank means current host)"},
	{Name: "session_max_age", Default: "168h", Desc: "Session lifetime"},
	{Name: "session_store", Default: SessionStoreCookie, Desc: "Session storage: 'cookie' or 'redis'"},
	{Name: "redis_addr", Default: "localhost:6379", Desc: "Redis address (session_store=redis)"},
	{Name: "redis_password", Default: "", Desc: "Redis password"},

	{Name: "csrf_key", Default: "", Desc: "CSRF key (32+ chars, defaults to session_key)"},

	{Name: "static_dir", Default: DefaultStaticDir, Desc: "Directory served under /static"},

	// UI timings
	{Name: "catalog_timeout", Default: "5s", Desc: "Food list fetch timeout"},
	{Name: "notification_ttl", Default: "5s", Desc: "How long a notification stays on screen"},
	{Name: "register_redirect_delay", Default: "1500ms", Desc: "Delay before leaving the register page after success"},
	{Name: "login_redirect_delay", Default: "1s", Desc: "Delay before leaving the login page after success"},
	{Name: "logout_redirect_delay", Default: "1s", Desc: "Delay before returning home after logout"},

	// Backend call deadlines
	{Name: "ping_timeout", Default: "2s", Desc: "Deadline for health checks"},
	{Name: "short_timeout", Default: "10s", Desc: "Deadline for identity calls"},
	{Name: "medium_timeout", Default: "15s", Desc: "Deadline for record reads and writes"},
}

// LoadConfig loads WAFFLE core config and app-specific config.
//
// WAFFLE's config.LoadWithAppConfig merges, in order of precedence,
// flags > env (FUELBOX_*) > config files > defaults.
func LoadConfig(logger *zap.Logger) (*config.CoreConfig, AppConfig, error) {
	coreCfg, appValues, err := config.LoadWithAppConfig(logger, "FUELBOX", appConfigKeys)
	if err != nil {
		return nil, AppConfig{}, err
	}

	appCfg := AppConfig{
		Backend: strings.ToLower(strings.TrimSpace(appValues.String("backend"))),

		SupabaseURL:     appValues.String("supabase_url"),
		SupabaseAnonKey: appValues.String("supabase_anon_key"),

		MongoURI:         appValues.String("mongo_uri"),
		MongoDatabase:    appValues.String("mongo_database"),
		MongoMaxPoolSize: uint64(appValues.Int("mongo_max_pool_size")),
		MongoMinPoolSize: uint64(appValues.Int("mongo_min_pool_size")),
		JWTSecret:        appValues.String("jwt_secret"),
		TokenTTL:         appValues.Duration("token_ttl", time.Hour),

		SessionKey:    appValues.String("session_key"),
		SessionName:   appValues.String("session_name"),
		SessionDomain: appValues.String("session_domain"),
		SessionMaxAge: appValues.Duration("session_max_age", 7*24*time.Hour),
		SessionStore:  strings.ToLower(strings.TrimSpace(appValues.String("session_store"))),
		RedisAddr:     appValues.String("redis_addr"),
		RedisPassword: appValues.String("redis_password"),

		CSRFKey: appValues.String("csrf_key"),

		StaticDir: appValues.String("static_dir"),

		CatalogTimeout:        appValues.Duration("catalog_timeout", 5*time.Second),
		NotificationTTL:       appValues.Duration("notification_ttl", 5*time.Second),
		RegisterRedirectDelay: appValues.Duration("register_redirect_delay", 1500*time.Millisecond),
		LoginRedirectDelay:    appValues.Duration("login_redirect_delay", time.Second),
		LogoutRedirectDelay:   appValues.Duration("logout_redirect_delay", time.Second),

		PingTimeout:   appValues.Duration("ping_timeout", timeouts.DefaultPing),
		ShortTimeout:  appValues.Duration("short_timeout", timeouts.DefaultShort),
		MediumTimeout: appValues.Duration("medium_timeout", timeouts.DefaultMedium),
	}

	if appCfg.CSRFKey == "" {
		appCfg.CSRFKey = appCfg.SessionKey
	}

	return coreCfg, appCfg, nil
}

// ValidateConfig performs app-specific config validation.
//
// It rejects unknown backend or session-store values, a hosted backend
// without URL or anon key, a local backend with a bad Mongo URI or a short
// JWT secret, and secrets too short to sign cookies.
func ValidateConfig(coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) error {
	switch appCfg.Backend {
	case BackendSupabase:
		if strings.TrimSpace(appCfg.SupabaseURL) == "" || strings.TrimSpace(appCfg.SupabaseAnonKey) == "" {
			return fmt.Errorf("backend %q requires supabase_url and supabase_anon_key", BackendSupabase)
		}
	case BackendLocal:
		if err := wafflemongo.ValidateURI(appCfg.MongoURI); err != nil {
			logger.Error("invalid MongoDB URI", zap.Error(err))
			return fmt.Errorf("invalid MongoDB URI: %w", err)
		}
		if strings.TrimSpace(appCfg.MongoDatabase) == "" {
			return fmt.Errorf("backend %q requires mongo_database", BackendLocal)
		}
		if len(appCfg.JWTSecret) < minSecretLength {
			return fmt.Errorf("jwt_secret must be at least %d characters", minSecretLength)
		}
	default:
		return fmt.Errorf("unknown backend %q (want %q or %q)", appCfg.Backend, BackendSupabase, BackendLocal)
	}

	switch appCfg.SessionStore {
	case SessionStoreCookie:
	case SessionStoreRedis:
		if strings.TrimSpace(appCfg.RedisAddr) == "" {
			return fmt.Errorf("session_store %q requires redis_addr", SessionStoreRedis)
		}
	default:
		return fmt.Errorf("unknown session_store %q (want %q or %q)", appCfg.SessionStore, SessionStoreCookie, SessionStoreRedis)
	}

	if len(appCfg.SessionKey) < minSecretLength {
		return fmt.Errorf("session_key must be at least %d characters", minSecretLength)
	}
	if len(appCfg.CSRFKey) < minSecretLength {
		return fmt.Errorf("csrf_key must be at least %d characters", minSecretLength)
	}
	if coreCfg != nil && coreCfg.Env == "prod" && strings.HasPrefix(appCfg.SessionKey, "dev-only") {
		return fmt.Errorf("session_key must be changed from the development default in prod")
	}
	return nil
}
