// internal/domain/models/fooditem.go
package models

import "time"

// FoodItemsTable is the catalog table (or collection).
const FoodItemsTable = "food_item"

// FoodItemColumns lists the columns the menu page selects.
var FoodItemColumns = []string{
	"id", "name", "description", "price", "category",
	"calories", "protein", "carbs", "fats", "image_url", "is_featured",
}

// FoodItem is one meal in the catalog. Optional nutrition fields are
// pointers so "unknown" and zero stay distinguishable.
type FoodItem struct {
	ID          string    `bson:"_id" json:"id"`
	Name        string    `bson:"name" json:"name"`
	Description string    `bson:"description,omitempty" json:"description,omitempty"`
	Price       *float64  `bson:"price,omitempty" json:"price,omitempty"`
	Category    string    `bson:"category,omitempty" json:"category,omitempty"`
	Calories    *int      `bson:"calories,omitempty" json:"calories,omitempty"`
	Protein     *int      `bson:"protein,omitempty" json:"protein,omitempty"`
	Carbs       *int      `bson:"carbs,omitempty" json:"carbs,omitempty"`
	Fats        *int      `bson:"fats,omitempty" json:"fats,omitempty"`
	ImageURL    string    `bson:"image_url,omitempty" json:"image_url,omitempty"`
	IsFeatured  bool      `bson:"is_featured" json:"is_featured"`
	CreatedAt   time.Time `bson:"created_at,omitempty" json:"created_at,omitempty"`
}
