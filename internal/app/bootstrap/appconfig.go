// internal/app/bootstrap/appconfig.go
package bootstrap

import "time"

// Backend kinds.
const (
	BackendSupabase = "supabase"
	BackendLocal    = "local"
)

// Session store kinds.
const (
	SessionStoreCookie = "cookie"
	SessionStoreRedis  = "redis"
)

// AppConfig holds FuelBox configuration.
//
// Values come from flags, FUELBOX_* environment variables and config files
// (loaded in LoadConfig). WAFFLE's CoreConfig covers the framework side:
// ports, TLS, logging, CORS and body limits.
type AppConfig struct {
	// Backend selection: "supabase" (hosted) or "local" (MongoDB).
	Backend string

	// Hosted provider
	SupabaseURL     string
	SupabaseAnonKey string

	// Local backend
	MongoURI         string
	MongoDatabase    string
	MongoMaxPoolSize uint64
	MongoMinPoolSize uint64
	JWTSecret        string        // signs local access tokens (32+ chars)
	TokenTTL         time.Duration // local access-token lifetime

	// Browser session
	SessionKey    string
	SessionName   string
	SessionDomain string
	SessionMaxAge time.Duration
	SessionStore  string // "cookie" or "redis"
	RedisAddr     string
	RedisPassword string

	// CSRF key (32+ chars); falls back to SessionKey when blank.
	CSRFKey string

	// Directory served under /static.
	StaticDir string

	// UI timings
	CatalogTimeout        time.Duration
	NotificationTTL       time.Duration
	RegisterRedirectDelay time.Duration
	LoginRedirectDelay    time.Duration
	LogoutRedirectDelay   time.Duration

	// Backend call deadlines
	PingTimeout   time.Duration
	ShortTimeout  time.Duration
	MediumTimeout time.Duration
}
