package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/fuelbox/fuelbox/internal/domain/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures inserts test data straight into a MongoDB test database.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

// CreateFoodItem inserts a catalog item with the given name and price.
func (f *Fixtures) CreateFoodItem(ctx context.Context, name string, price float64, createdAt time.Time) models.FoodItem {
	f.t.Helper()

	item := models.FoodItem{
		ID:        uuid.NewString(),
		Name:      name,
		Price:     &price,
		CreatedAt: createdAt.UTC(),
	}
	if _, err := f.db.Collection(models.FoodItemsTable).InsertOne(ctx, item); err != nil {
		f.t.Fatalf("failed to create food item: %v", err)
	}
	return item
}

// CreateProfile inserts a profile row.
func (f *Fixtures) CreateProfile(ctx context.Context, id, email, name string) models.Profile {
	f.t.Helper()

	p := models.Profile{ID: id, Email: email, Name: name, CreatedAt: time.Now().UTC()}
	if _, err := f.db.Collection(models.ProfilesTable).InsertOne(ctx, p); err != nil {
		f.t.Fatalf("failed to create profile: %v", err)
	}
	return p
}
