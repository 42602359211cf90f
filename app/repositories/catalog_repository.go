package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/sumitghosal/zaika/app/models"
	"github.com/sumitghosal/zaika/pkg/metrics"
)

// CatalogRepository reads foods and add-ons. The catalog is owned by
// another service; this side never writes it (seeders excepted, for local
// development) and never caches prices — freshness-at-read-time is what
// keeps totals honest after a price change.
type CatalogRepository struct {
	foods  *mongo.Collection
	addons *mongo.Collection
}

func NewCatalogRepository(foods, addons *mongo.Collection) *CatalogRepository {
	return &CatalogRepository{foods: foods, addons: addons}
}

// GetFood resolves one catalog item by id.
func (r *CatalogRepository) GetFood(ctx context.Context, foodID string) (models.Food, error) {
	defer metrics.ObserveCatalogLookup("food", time.Now())

	var food models.Food
	err := r.foods.FindOne(ctx, bson.M{"_id": foodID}).Decode(&food)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Food{}, fmt.Errorf("food %s: %w", foodID, models.ErrFoodNotFound)
	}
	if err != nil {
		return models.Food{}, fmt.Errorf("catalog: find food %s: %w", foodID, err)
	}
	return food, nil
}

// GetAddons resolves add-on prices in one query. Ids that don't resolve
// are absent from the result — per policy that's leniency, not an error.
func (r *CatalogRepository) GetAddons(ctx context.Context, ids []string) (map[string]models.Addon, error) {
	defer metrics.ObserveCatalogLookup("addons", time.Now())

	out := make(map[string]models.Addon, len(ids))
	if len(ids) == 0 {
		return out, nil
	}

	cur, err := r.addons.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("catalog: find addons: %w", err)
	}
	defer cur.Close(ctx)

	for cur.Next(ctx) {
		var addon models.Addon
		if err := cur.Decode(&addon); err != nil {
			return nil, fmt.Errorf("catalog: decode addon: %w", err)
		}
		out[addon.ID] = addon
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("catalog: addons cursor: %w", err)
	}
	return out, nil
}
