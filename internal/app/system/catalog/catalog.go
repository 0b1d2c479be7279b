// Package catalog loads the food list shown on the menu page.
//
// The fetch is raced against a fixed timeout. Whichever settles first
// decides the outcome; a result that arrives after the timeout is dropped.
package catalog

import (
	"context"
	"fmt"
	"html/template"
	"time"

	"github.com/fuelbox/fuelbox/internal/app/backend"
	"github.com/fuelbox/fuelbox/internal/app/system/htmlsanitize"
	"github.com/fuelbox/fuelbox/internal/app/system/timeouts"
	"github.com/fuelbox/fuelbox/internal/domain/models"
	"go.uber.org/zap"
)

// DefaultTimeout bounds the catalog fetch.
const DefaultTimeout = 5 * time.Second

// User-facing messages.
const (
	TimeoutMessage = "Request timeout"
	StorageMessage = "Database connection error"
	EmptyMessage   = "No meal plans available at the moment"
)

// Display defaults for incomplete items.
const (
	PlaceholderImage   = "https://via.placeholder.com/300x200?text=FuelBox"
	FallbackImage      = "https://via.placeholder.com/300x200?text=Meal"
	DefaultCategory    = "Nutrition"
	DefaultDescription = "Premium gym nutrition meal"
)

// State is the food-list display state.
type State string

const (
	Loading State = "loading"
	Ready   State = "items"
	Empty   State = "empty"
	Failed  State = "error"
)

// Item is a food item prepared for display.
type Item struct {
	ID          string
	Name        string
	Category    string
	Description template.HTML
	Price       string
	Calories    string
	Protein     string
	ImageURL    string
	Featured    bool
}

// Listing is the outcome of one Load.
type Listing struct {
	State   State
	Items   []Item
	Message string
}

// LoadingListing is what the page shows before the fetch completes.
func LoadingListing() Listing { return Listing{State: Loading} }

// Service fetches the catalog.
type Service struct {
	Timeout time.Duration
	Log     *zap.Logger
}

// New returns a Service with the given timeout (DefaultTimeout when zero).
func New(timeout time.Duration, logger *zap.Logger) *Service {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Service{Timeout: timeout, Log: logger}
}

type fetchResult struct {
	items []models.FoodItem
	err   error
}

// Load fetches every food item, newest first.
func (s *Service) Load(ctx context.Context, recs backend.Records) Listing {
	fetchCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Buffered so the fetch goroutine never blocks after a timeout.
	done := make(chan fetchResult, 1)
	go func() {
		var items []models.FoodItem
		err := recs.Select(fetchCtx, models.FoodItemsTable, backend.Query{
			Columns: models.FoodItemColumns,
			Order:   &backend.SortOrder{Column: "created_at", Descending: true},
		}, &items)
		done <- fetchResult{items: items, err: err}
	}()

	timer := time.NewTimer(s.Timeout)
	defer timer.Stop()

	var res fetchResult
	select {
	case res = <-done:
	case <-timer.C:
		s.Log.Warn("catalog fetch timed out", zap.Duration("timeout", s.Timeout))
		return Listing{State: Failed, Message: TimeoutMessage}
	case <-ctx.Done():
		return Listing{State: Failed, Message: TimeoutMessage}
	}

	if res.err != nil {
		if backend.KindOf(res.err) == backend.NetworkTimeoutError {
			return Listing{State: Failed, Message: TimeoutMessage}
		}
		s.Log.Error("error loading food items", zap.Error(res.err))
		s.probe(ctx, recs)
		return Listing{State: Failed, Message: StorageMessage}
	}

	if len(res.items) == 0 {
		return Listing{State: Empty, Message: EmptyMessage}
	}

	out := make([]Item, 0, len(res.items))
	for _, fi := range res.items {
		out = append(out, present(fi))
	}
	return Listing{State: Ready, Items: out}
}

// probe logs a few cheap checks that help tell a missing table from a
// connection problem.
func (s *Service) probe(ctx context.Context, recs backend.Records) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Ping())
	defer cancel()

	var rows []map[string]any
	err := recs.Select(ctx, models.FoodItemsTable, backend.Query{Columns: []string{"id"}, Limit: 1}, &rows)
	s.Log.Debug("catalog probe: test query",
		zap.Int("rows", len(rows)),
		zap.Error(err))

	var tables []string
	err = recs.RPC(ctx, "get_table_names", &tables)
	s.Log.Debug("catalog probe: available tables",
		zap.Strings("tables", tables),
		zap.Error(err))
}

func present(fi models.FoodItem) Item {
	it := Item{
		ID:       fi.ID,
		Name:     htmlsanitize.StripTags(fi.Name),
		Category: htmlsanitize.StripTags(fi.Category),
		ImageURL: fi.ImageURL,
		Featured: fi.IsFeatured,
		Price:    "$0.00",
		Calories: "--",
		Protein:  "--",
	}
	if it.Category == "" {
		it.Category = DefaultCategory
	}
	if fi.Description == "" {
		it.Description = template.HTML(template.HTMLEscapeString(DefaultDescription))
	} else {
		it.Description = htmlsanitize.PrepareForDisplay(fi.Description)
	}
	if it.ImageURL == "" {
		it.ImageURL = PlaceholderImage
	}
	if fi.Price != nil {
		it.Price = fmt.Sprintf("$%.2f", *fi.Price)
	}
	if fi.Calories != nil && *fi.Calories != 0 {
		it.Calories = fmt.Sprint(*fi.Calories)
	}
	if fi.Protein != nil && *fi.Protein != 0 {
		it.Protein = fmt.Sprint(*fi.Protein)
	}
	return it
}
