// Package seeders loads a small demo catalog so the service can be exercised
// end to end on a fresh database.
package seeders

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sumitghosal/zaika/app/models"
	"github.com/sumitghosal/zaika/pkg/logger"
	"github.com/sumitghosal/zaika/pkg/mongodb"
)

var foods = []models.Food{
	{ID: "food-margherita", Name: "Margherita Pizza", Price: 299, Image: "/img/margherita.jpg", RestaurantID: "rest-napoli"},
	{ID: "food-paneer-tikka", Name: "Paneer Tikka", Price: 249, Image: "/img/paneer-tikka.jpg", RestaurantID: "rest-tandoor"},
	{ID: "food-chicken-biryani", Name: "Chicken Biryani", Price: 349, Image: "/img/biryani.jpg", RestaurantID: "rest-tandoor"},
	{ID: "food-veg-burger", Name: "Veg Burger", Price: 149, Image: "/img/veg-burger.jpg", RestaurantID: "rest-grill"},
	{ID: "food-masala-dosa", Name: "Masala Dosa", Price: 129, Image: "/img/dosa.jpg", RestaurantID: "rest-udupi"},
}

var addons = []models.Addon{
	{ID: "addon-extra-cheese", Name: "Extra Cheese", Price: 49},
	{ID: "addon-olives", Name: "Olives", Price: 39},
	{ID: "addon-extra-raita", Name: "Extra Raita", Price: 29},
	{ID: "addon-fries", Name: "French Fries", Price: 79},
	{ID: "addon-coke", Name: "Coke 300ml", Price: 45},
}

// Run upserts the demo documents by _id, so reseeding is safe.
func Run(ctx context.Context) error {
	if err := upsertAll(ctx, mongodb.Collection("foods"), foodDocs()); err != nil {
		return fmt.Errorf("seed foods: %w", err)
	}
	if err := upsertAll(ctx, mongodb.Collection("addons"), addonDocs()); err != nil {
		return fmt.Errorf("seed addons: %w", err)
	}
	logger.Info("catalog seeded", "foods", len(foods), "addons", len(addons))
	return nil
}

func foodDocs() []seedDoc {
	docs := make([]seedDoc, 0, len(foods))
	for _, f := range foods {
		docs = append(docs, seedDoc{id: f.ID, doc: f})
	}
	return docs
}

func addonDocs() []seedDoc {
	docs := make([]seedDoc, 0, len(addons))
	for _, a := range addons {
		docs = append(docs, seedDoc{id: a.ID, doc: a})
	}
	return docs
}

type seedDoc struct {
	id  string
	doc interface{}
}

func upsertAll(ctx context.Context, col *mongo.Collection, docs []seedDoc) error {
	for _, d := range docs {
		_, err := col.ReplaceOne(ctx,
			bson.M{"_id": d.id},
			d.doc,
			options.Replace().SetUpsert(true),
		)
		if err != nil {
			return err
		}
	}
	return nil
}
