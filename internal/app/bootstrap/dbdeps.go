// internal/app/bootstrap/dbdeps.go
package bootstrap

import (
	"github.com/fuelbox/fuelbox/internal/app/backend"
	"github.com/fuelbox/fuelbox/internal/app/backend/local"
	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
)

// DBDeps holds the backend and the clients behind it.
type DBDeps struct {
	Backend backend.Backend

	// Set only for the local backend.
	MongoClient   *mongo.Client
	MongoDatabase *mongo.Database
	Local         *local.Backend

	// Set only when sessions live in redis.
	Redis *redis.Client
}
