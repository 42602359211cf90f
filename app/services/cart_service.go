// Package services holds the cart aggregate: merge-or-append insertion,
// quantity and add-on mutations, and price recomputation against the
// live catalog.
package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/sumitghosal/zaika/app/models"
	"github.com/sumitghosal/zaika/config"
	"github.com/sumitghosal/zaika/pkg/cache"
	"github.com/sumitghosal/zaika/pkg/lock"
	"github.com/sumitghosal/zaika/pkg/logger"
	"github.com/sumitghosal/zaika/pkg/metrics"
)

// CatalogReader is the read-only view of the food catalog this service
// needs for pricing. Implemented by repositories.CatalogRepository.
type CatalogReader interface {
	// GetFood resolves one catalog item; models.ErrFoodNotFound when absent.
	GetFood(ctx context.Context, foodID string) (models.Food, error)
	// GetAddons resolves add-on prices. Ids that don't resolve are simply
	// absent from the result, never an error.
	GetAddons(ctx context.Context, ids []string) (map[string]models.Addon, error)
}

// CartStore persists one cart document per user.
// Implemented by repositories.CartRepository.
type CartStore interface {
	// Find returns (nil, nil) when the user has no cart yet.
	Find(ctx context.Context, userID string) (*models.Cart, error)
	// Upsert replaces the full stored document, guarded by the version the
	// cart was read at; models.ErrVersionConflict on a concurrent write.
	Upsert(ctx context.Context, cart *models.Cart) error
}

// maxUpsertRetries bounds the optimistic-concurrency loop. The per-user
// lock already serialises mutations in-process; the retries only matter
// when another process writes the same cart.
const maxUpsertRetries = 3

// CartService is the cart aggregate. Every mutation is a full
// read-modify-write: load the document, apply the change, recompute all
// totals from current catalog prices, write the whole document back.
type CartService struct {
	catalog  CatalogReader
	store    CartStore
	locks    *lock.Keyed
	cacheTTL time.Duration
}

func NewCartService(catalog CatalogReader, store CartStore) *CartService {
	return &CartService{
		catalog:  catalog,
		store:    store,
		locks:    lock.NewKeyed(),
		cacheTTL: time.Duration(config.CartCacheTTLSeconds()) * time.Second,
	}
}

// AddItemInput carries one "add to cart" request. Addons accepts raw ids,
// partial objects or populated docs; see normalize.go.
type AddItemInput struct {
	UserID         string
	FoodID         string
	Quantity       int
	Addons         []any
	Notes          string
	IdempotencyKey string
}

// GetOrCreate returns the user's cart, creating and persisting an empty one
// on first access.
func (s *CartService) GetOrCreate(ctx context.Context, userID string) (*models.Cart, error) {
	var cached models.Cart
	if cache.Get(ctx, cartCacheKey(userID), &cached) {
		metrics.CacheHits.WithLabelValues("cart").Inc()
		return &cached, nil
	}
	metrics.CacheMisses.WithLabelValues("cart").Inc()

	cart, err := s.store.Find(ctx, userID)
	if err != nil {
		return nil, err
	}
	if cart != nil {
		s.cacheCart(ctx, cart)
		return cart, nil
	}

	// First access: persist the empty cart so NotCreated → Active happens
	// exactly once, even under concurrent first reads.
	return s.mutate(ctx, userID, "create", false, func(cart *models.Cart) error {
		return nil
	})
}

// AddItem inserts a food selection under the merge-or-append rule: if a
// line with the same identity (food, canonical add-on set, notes) exists,
// its quantity grows by the requested amount; otherwise a new line is
// appended. Returns the fully recomputed cart.
func (s *CartService) AddItem(ctx context.Context, in AddItemInput) (*models.Cart, error) {
	if in.IdempotencyKey != "" {
		fresh, err := cache.SetNX(ctx, idemCacheKey(in.UserID, in.IdempotencyKey), 1, 24*time.Hour)
		if err == nil && !fresh {
			// Replay of a request we already applied: return current state.
			metrics.CacheHits.WithLabelValues("idempotency").Inc()
			logger.WithCtx(ctx).Info("add item replayed", "user_id", in.UserID)
			return s.GetOrCreate(ctx, in.UserID)
		}
	}

	sels := Selections(in.Addons)
	key := CanonicalAddonKey(in.Addons)
	identity := lineIdentity(in.FoodID, key, in.Notes)

	cart, err := s.mutate(ctx, in.UserID, "add", false, func(cart *models.Cart) error {
		qty := in.Quantity
		if qty < 1 {
			qty = 1
		}

		for i := range cart.Lines {
			if identityOf(cart.Lines[i]) == identity {
				if cart.Lines[i].Quantity < 1 {
					cart.Lines[i].Quantity = 1
				}
				cart.Lines[i].Quantity += qty
				return nil
			}
		}

		cart.Lines = append(cart.Lines, models.CartLine{
			ID:       uuid.NewString(),
			FoodID:   in.FoodID,
			Quantity: qty,
			Addons:   sels,
			Notes:    in.Notes,
		})
		return nil
	})

	if err != nil && in.IdempotencyKey != "" {
		// The add never committed. Free the key so the client's retry is
		// applied instead of replayed against the unchanged cart.
		if derr := cache.Del(ctx, idemCacheKey(in.UserID, in.IdempotencyKey)); derr != nil {
			logger.WithCtx(ctx).Warn("idempotency key release failed",
				"user_id", in.UserID, "error", derr)
		}
	}
	return cart, err
}

// SetQuantity sets a line's quantity to an absolute value. Zero or negative
// removes the line entirely.
func (s *CartService) SetQuantity(ctx context.Context, userID, lineID string, quantity int) (*models.Cart, error) {
	return s.mutate(ctx, userID, "set_quantity", true, func(cart *models.Cart) error {
		i := cart.LineIndex(lineID)
		if i < 0 {
			return fmt.Errorf("line %s: %w", lineID, models.ErrLineNotFound)
		}
		if quantity <= 0 {
			cart.RemoveLineAt(i)
			return nil
		}
		cart.Lines[i].Quantity = quantity
		return nil
	})
}

// ReplaceAddons swaps a line's add-on selection (and optionally its notes).
// If the new identity collides with another line, the two merge — quantities
// add up on the surviving line and this line is deleted, symmetric with
// AddItem's merge rule.
func (s *CartService) ReplaceAddons(ctx context.Context, userID, lineID string, addons []any, notes *string) (*models.Cart, error) {
	sels := Selections(addons)
	key := CanonicalAddonKey(addons)

	return s.mutate(ctx, userID, "replace_addons", true, func(cart *models.Cart) error {
		i := cart.LineIndex(lineID)
		if i < 0 {
			return fmt.Errorf("line %s: %w", lineID, models.ErrLineNotFound)
		}

		newNotes := cart.Lines[i].Notes
		if notes != nil {
			newNotes = *notes
		}
		identity := lineIdentity(cart.Lines[i].FoodID, key, newNotes)

		for j := range cart.Lines {
			if j == i || identityOf(cart.Lines[j]) != identity {
				continue
			}
			// Merge-on-conflict: fold this line into the one that already
			// has the target identity, then drop this line.
			if cart.Lines[j].Quantity < 1 {
				cart.Lines[j].Quantity = 1
			}
			qty := cart.Lines[i].Quantity
			if qty < 1 {
				qty = 1
			}
			cart.Lines[j].Quantity += qty
			cart.RemoveLineAt(i)
			return nil
		}

		cart.Lines[i].Addons = sels
		cart.Lines[i].Notes = newNotes
		return nil
	})
}

// RemoveItem deletes a line. Removal is idempotent: a missing line is not
// an error since the end state is identical.
func (s *CartService) RemoveItem(ctx context.Context, userID, lineID string) (*models.Cart, error) {
	return s.mutate(ctx, userID, "remove", true, func(cart *models.Cart) error {
		if i := cart.LineIndex(lineID); i >= 0 {
			cart.RemoveLineAt(i)
		}
		return nil
	})
}

// Clear empties the cart. The document survives with zero lines.
func (s *CartService) Clear(ctx context.Context, userID string) (*models.Cart, error) {
	return s.mutate(ctx, userID, "clear", true, func(cart *models.Cart) error {
		cart.Lines = []models.CartLine{}
		return nil
	})
}

// mutate runs one serialized read-modify-write cycle for userID: load (or
// lazily create) the cart, apply fn, recompute every total, persist. On a
// version conflict from another process the whole cycle re-runs against the
// fresh document. Any error aborts before the write, so a failed mutation
// never leaves a partial cart behind.
func (s *CartService) mutate(ctx context.Context, userID, op string, requireExisting bool, fn func(*models.Cart) error) (*models.Cart, error) {
	s.locks.Lock(userID)
	defer s.locks.Unlock(userID)

	var cart *models.Cart
	var err error

	for attempt := 0; attempt < maxUpsertRetries; attempt++ {
		cart, err = s.store.Find(ctx, userID)
		if err != nil {
			break
		}
		if cart == nil {
			if requireExisting {
				err = fmt.Errorf("user %s: %w", userID, models.ErrCartNotFound)
				break
			}
			cart = models.NewCart(userID)
		}

		if err = fn(cart); err != nil {
			break
		}
		if err = s.recompute(ctx, cart); err != nil {
			break
		}

		err = s.store.Upsert(ctx, cart)
		if err == nil || !errors.Is(err, models.ErrVersionConflict) {
			break
		}
		logger.WithCtx(ctx).Warn("cart upsert conflict, retrying",
			"user_id", userID, "operation", op, "attempt", attempt+1)
	}

	if err != nil {
		metrics.RecordMutation(op, "error")
		return nil, err
	}

	metrics.RecordMutation(op, "ok")
	metrics.CartLines.Observe(float64(len(cart.Lines)))
	s.cacheCart(ctx, cart)
	return cart, nil
}

// cacheCart write-through caches the resolved cart. Best effort: a cache
// failure never fails the mutation.
func (s *CartService) cacheCart(ctx context.Context, cart *models.Cart) {
	if err := cache.Set(ctx, cartCacheKey(cart.UserID), cart, s.cacheTTL); err != nil {
		logger.WithCtx(ctx).Warn("cart cache write failed", "user_id", cart.UserID, "error", err)
	}
}

func cartCacheKey(userID string) string {
	return "cart:user:" + userID
}

func idemCacheKey(userID, key string) string {
	return "cart:idem:" + userID + ":" + key
}
