// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/waffle/config"
	"github.com/fuelbox/fuelbox/internal/app/backend/local"
	"github.com/fuelbox/fuelbox/internal/app/backend/supabase"
	"github.com/fuelbox/fuelbox/internal/app/system/redisstore"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// ConnectDB builds the configured backend and, when sessions live in
// redis, the redis client.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	var (
		deps DBDeps
		err  error
	)

	switch appCfg.Backend {
	case BackendLocal:
		opts := options.Client().
			ApplyURI(appCfg.MongoURI).
			SetMaxPoolSize(appCfg.MongoMaxPoolSize).
			SetMinPoolSize(appCfg.MongoMinPoolSize)
		client, err := mongo.Connect(ctx, opts)
		if err != nil {
			return DBDeps{}, fmt.Errorf("connect mongo: %w", err)
		}
		if err := client.Ping(ctx, readpref.Primary()); err != nil {
			_ = client.Disconnect(context.Background())
			return DBDeps{}, fmt.Errorf("ping mongo: %w", err)
		}
		deps, err = connectLocal(client.Database(appCfg.MongoDatabase), appCfg, logger)
		if err != nil {
			_ = client.Disconnect(context.Background())
			return DBDeps{}, err
		}
		logger.Info("connected to MongoDB", zap.String("database", appCfg.MongoDatabase))

	default:
		var sc *supabase.Client
		sc, err = supabase.New(supabase.Options{
			URL:     appCfg.SupabaseURL,
			AnonKey: appCfg.SupabaseAnonKey,
			Logger:  logger.Named("backend"),
		})
		if err != nil {
			return DBDeps{}, err
		}
		deps.Backend = sc
		logger.Info("using hosted backend", zap.String("url", appCfg.SupabaseURL))
	}

	if appCfg.SessionStore == SessionStoreRedis {
		rc, err := redisstore.Connect(ctx, appCfg.RedisAddr, appCfg.RedisPassword)
		if err != nil {
			if deps.MongoClient != nil {
				_ = deps.MongoClient.Disconnect(context.Background())
			}
			return DBDeps{}, fmt.Errorf("connect redis: %w", err)
		}
		deps.Redis = rc
		logger.Info("connected to redis", zap.String("addr", appCfg.RedisAddr))
	}

	return deps, nil
}

// connectLocal builds the local backend over db.
func connectLocal(db *mongo.Database, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	lb, err := local.New(db, local.Options{
		JWTSecret: appCfg.JWTSecret,
		TokenTTL:  appCfg.TokenTTL,
		Logger:    logger.Named("backend"),
	})
	if err != nil {
		return DBDeps{}, err
	}
	return DBDeps{
		Backend:       lb,
		MongoClient:   db.Client(),
		MongoDatabase: db,
		Local:         lb,
	}, nil
}

// EnsureSchema creates the local backend's indexes. The hosted provider
// owns its own schema.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	if deps.Local == nil {
		return nil
	}
	if err := deps.Local.EnsureIndexes(ctx); err != nil {
		logger.Error("ensure indexes failed", zap.Error(err))
		return err
	}
	return nil
}
