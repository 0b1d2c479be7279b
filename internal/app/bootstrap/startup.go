// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/waffle/config"
	"github.com/fuelbox/fuelbox/internal/app/resources"
	"github.com/fuelbox/fuelbox/internal/app/system/timeouts"
	"go.uber.org/zap"
)

// Startup runs after the backend is connected and before the handler is
// built: it registers the shared templates and applies backend deadlines.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	resources.LoadSharedTemplates()
	timeouts.Configure(timeouts.Config{
		Ping:   appCfg.PingTimeout,
		Short:  appCfg.ShortTimeout,
		Medium: appCfg.MediumTimeout,
	})
	logger.Info("startup complete",
		zap.String("backend", appCfg.Backend),
		zap.String("session_store", appCfg.SessionStore))
	return nil
}
