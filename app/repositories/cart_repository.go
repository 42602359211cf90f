// Package repositories implements the service-layer storage interfaces on
// MongoDB collections.
package repositories

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/sumitghosal/zaika/app/models"
	"github.com/sumitghosal/zaika/pkg/metrics"
)

// CartRepository stores one cart document per user in the carts collection.
type CartRepository struct {
	col *mongo.Collection
}

func NewCartRepository(col *mongo.Collection) *CartRepository {
	return &CartRepository{col: col}
}

// EnsureIndexes creates the unique user_id index that enforces the
// one-cart-per-user rule at the storage layer.
func (r *CartRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.col.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "user_id", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("carts: create user_id index: %w", err)
	}
	return nil
}

// Find returns the user's cart, or (nil, nil) when none exists yet.
func (r *CartRepository) Find(ctx context.Context, userID string) (*models.Cart, error) {
	defer metrics.ObserveStoreOp("find", time.Now())

	var cart models.Cart
	err := r.col.FindOne(ctx, bson.M{"user_id": userID}).Decode(&cart)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("carts: find %s: %w", userID, err)
	}
	if cart.Lines == nil {
		cart.Lines = []models.CartLine{}
	}
	return &cart, nil
}

// Upsert replaces the full cart document with optimistic concurrency: the
// write matches the version the cart was read at and bumps it by one. A
// concurrent writer makes the match fail, surfaced as ErrVersionConflict so
// the service can re-run its read-modify-write cycle.
func (r *CartRepository) Upsert(ctx context.Context, cart *models.Cart) error {
	defer metrics.ObserveStoreOp("upsert", time.Now())

	now := time.Now().UTC()
	cart.UpdatedAt = now

	if cart.Version == 0 {
		// First write for this user. The unique index turns a racing
		// insert from another process into a conflict, not a duplicate.
		cart.CreatedAt = now
		cart.Version = 1
		_, err := r.col.InsertOne(ctx, cart)
		if mongo.IsDuplicateKeyError(err) {
			cart.Version = 0
			return fmt.Errorf("carts: insert %s: %w", cart.UserID, models.ErrVersionConflict)
		}
		if err != nil {
			cart.Version = 0
			return fmt.Errorf("carts: insert %s: %w", cart.UserID, err)
		}
		return nil
	}

	readVersion := cart.Version
	cart.Version = readVersion + 1

	res, err := r.col.ReplaceOne(ctx,
		bson.M{"user_id": cart.UserID, "version": readVersion},
		cart,
	)
	if err != nil {
		cart.Version = readVersion
		return fmt.Errorf("carts: replace %s: %w", cart.UserID, err)
	}
	if res.MatchedCount == 0 {
		cart.Version = readVersion
		return fmt.Errorf("carts: replace %s: %w", cart.UserID, models.ErrVersionConflict)
	}
	return nil
}
