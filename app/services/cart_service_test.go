package services

import (
	"context"
	"sync"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sumitghosal/zaika/app/models"
	"github.com/sumitghosal/zaika/pkg/cache"
)

type fakeCatalog struct {
	foods  map[string]models.Food
	addons map[string]models.Addon
}

func (f *fakeCatalog) GetFood(_ context.Context, foodID string) (models.Food, error) {
	food, ok := f.foods[foodID]
	if !ok {
		return models.Food{}, models.ErrFoodNotFound
	}
	return food, nil
}

func (f *fakeCatalog) GetAddons(_ context.Context, ids []string) (map[string]models.Addon, error) {
	out := map[string]models.Addon{}
	for _, id := range ids {
		if a, ok := f.addons[id]; ok {
			out[id] = a
		}
	}
	return out, nil
}

type fakeStore struct {
	mu        sync.Mutex
	carts     map[string]models.Cart
	conflicts int // next N upserts fail with ErrVersionConflict
	upserts   int
}

func newFakeStore() *fakeStore {
	return &fakeStore{carts: map[string]models.Cart{}}
}

func (s *fakeStore) Find(_ context.Context, userID string) (*models.Cart, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cart, ok := s.carts[userID]
	if !ok {
		return nil, nil
	}
	c := cloneCart(cart)
	return &c, nil
}

func (s *fakeStore) Upsert(_ context.Context, cart *models.Cart) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conflicts > 0 {
		s.conflicts--
		return models.ErrVersionConflict
	}
	if existing, ok := s.carts[cart.UserID]; ok && existing.Version != cart.Version {
		return models.ErrVersionConflict
	}
	s.upserts++
	cart.Version++
	s.carts[cart.UserID] = cloneCart(*cart)
	return nil
}

func cloneCart(c models.Cart) models.Cart {
	lines := make([]models.CartLine, len(c.Lines))
	copy(lines, c.Lines)
	for i := range lines {
		addons := make([]models.AddonSelection, len(lines[i].Addons))
		copy(addons, lines[i].Addons)
		lines[i].Addons = addons
	}
	c.Lines = lines
	return c
}

func newTestService() (*CartService, *fakeStore) {
	catalog := &fakeCatalog{
		foods: map[string]models.Food{
			"f1": {ID: "f1", Name: "Margherita", Price: 1000, RestaurantID: "r1"},
			"f2": {ID: "f2", Name: "Burger", Price: 149, RestaurantID: "r2"},
		},
		addons: map[string]models.Addon{
			"a1": {ID: "a1", Name: "Extra Cheese", Price: 200},
			"a2": {ID: "a2", Name: "Olives", Price: 39},
		},
	}
	store := newFakeStore()
	return NewCartService(catalog, store), store
}

func TestAddItemMergesSameIdentity(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, AddItemInput{
		UserID: "u1", FoodID: "f1", Quantity: 2, Addons: []any{"a1"},
	})
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
	assert.Equal(t, 2400.0, cart.Lines[0].LineTotal)
	assert.Equal(t, 2400.0, cart.Subtotal)

	// Same food, same add-on set, same (absent) notes: merge, don't append.
	cart, err = svc.AddItem(ctx, AddItemInput{
		UserID: "u1", FoodID: "f1", Quantity: 1, Addons: []any{"a1"},
	})
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 3, cart.Lines[0].Quantity)
	assert.Equal(t, 3600.0, cart.Lines[0].LineTotal)
	assert.Equal(t, 3600.0, cart.Subtotal)
}

func TestAddItemMergeIgnoresAddonShapeAndOrder(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, AddItemInput{
		UserID: "u1", FoodID: "f1", Quantity: 1, Addons: []any{"a1", "a2"},
	})
	require.NoError(t, err)

	// Reversed order, object shapes, and a duplicate: still the same identity.
	cart, err := svc.AddItem(ctx, AddItemInput{
		UserID: "u1", FoodID: "f1", Quantity: 1,
		Addons: []any{
			map[string]any{"id": "a2"},
			map[string]any{"_id": "a1", "name": "Extra Cheese", "price": 200.0},
			"a2",
		},
	})
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
}

func TestAddItemAppendsOnDifferentIdentity(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, AddItemInput{UserID: "u1", FoodID: "f1", Quantity: 1, Addons: []any{"a1"}})
	require.NoError(t, err)

	// Different add-on set.
	cart, err := svc.AddItem(ctx, AddItemInput{UserID: "u1", FoodID: "f1", Quantity: 1, Addons: []any{"a2"}})
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 2)

	// Same food and add-ons, different notes.
	cart, err = svc.AddItem(ctx, AddItemInput{UserID: "u1", FoodID: "f1", Quantity: 1, Addons: []any{"a1"}, Notes: "extra spicy"})
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 3)
}

func TestAddItemUnknownFoodLeavesCartUntouched(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, AddItemInput{UserID: "u1", FoodID: "f1", Quantity: 1})
	require.NoError(t, err)
	before := store.upserts

	_, err = svc.AddItem(ctx, AddItemInput{UserID: "u1", FoodID: "nope", Quantity: 1})
	require.ErrorIs(t, err, models.ErrFoodNotFound)
	assert.Equal(t, before, store.upserts)

	cart, err := svc.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	assert.Len(t, cart.Lines, 1)
}

func TestAddItemUnresolvedAddonExcludedFromTotal(t *testing.T) {
	svc, _ := newTestService()

	cart, err := svc.AddItem(context.Background(), AddItemInput{
		UserID: "u1", FoodID: "f1", Quantity: 1,
		Addons: []any{
			"a1",
			map[string]any{"id": "gone", "name": "Discontinued", "price": 500.0},
		},
	})
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	require.Len(t, cart.Lines[0].Addons, 2)

	resolved, stale := cart.Lines[0].Addons[0], cart.Lines[0].Addons[1]
	assert.True(t, resolved.Priced)
	assert.Equal(t, "Extra Cheese", resolved.Name)
	assert.False(t, stale.Priced)
	assert.Equal(t, "Discontinued", stale.Name)
	assert.Equal(t, 500.0, stale.Price)

	// 1000 + 200; the unresolved 500 does not count.
	assert.Equal(t, 1200.0, cart.Lines[0].LineTotal)
}

func TestSetQuantity(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, AddItemInput{UserID: "u1", FoodID: "f1", Quantity: 2, Addons: []any{"a1"}})
	require.NoError(t, err)
	lineID := cart.Lines[0].ID

	cart, err = svc.SetQuantity(ctx, "u1", lineID, 5)
	require.NoError(t, err)
	assert.Equal(t, 5, cart.Lines[0].Quantity)
	assert.Equal(t, 6000.0, cart.Subtotal)

	t.Run("zero removes the line", func(t *testing.T) {
		cart, err = svc.SetQuantity(ctx, "u1", lineID, 0)
		require.NoError(t, err)
		assert.Empty(t, cart.Lines)
		assert.Equal(t, 0.0, cart.Subtotal)
	})

	t.Run("unknown line", func(t *testing.T) {
		_, err = svc.SetQuantity(ctx, "u1", "missing", 1)
		assert.ErrorIs(t, err, models.ErrLineNotFound)
	})

	t.Run("unknown user", func(t *testing.T) {
		_, err = svc.SetQuantity(ctx, "ghost", lineID, 1)
		assert.ErrorIs(t, err, models.ErrCartNotFound)
	})
}

func TestReplaceAddonsMergesOnConflict(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, AddItemInput{UserID: "u1", FoodID: "f1", Quantity: 2, Addons: []any{"a1"}})
	require.NoError(t, err)
	keepID := cart.Lines[0].ID

	cart, err = svc.AddItem(ctx, AddItemInput{UserID: "u1", FoodID: "f1", Quantity: 3, Addons: []any{"a2"}})
	require.NoError(t, err)
	require.Len(t, cart.Lines, 2)
	editID := cart.Lines[1].ID

	// Editing the second line to a1 collides with the first: quantities fold.
	cart, err = svc.ReplaceAddons(ctx, "u1", editID, []any{"a1"}, nil)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, keepID, cart.Lines[0].ID)
	assert.Equal(t, 5, cart.Lines[0].Quantity)
	assert.Equal(t, 6000.0, cart.Subtotal)
}

func TestReplaceAddonsNoConflict(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, AddItemInput{UserID: "u1", FoodID: "f1", Quantity: 1, Addons: []any{"a1"}})
	require.NoError(t, err)
	lineID := cart.Lines[0].ID

	notes := "less salt"
	cart, err = svc.ReplaceAddons(ctx, "u1", lineID, []any{"a2"}, &notes)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, lineID, cart.Lines[0].ID)
	assert.Equal(t, "less salt", cart.Lines[0].Notes)
	require.Len(t, cart.Lines[0].Addons, 1)
	assert.Equal(t, "a2", cart.Lines[0].Addons[0].ID)
	assert.Equal(t, 1039.0, cart.Subtotal)
}

func TestRemoveItemIsIdempotent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, AddItemInput{UserID: "u1", FoodID: "f1", Quantity: 1})
	require.NoError(t, err)
	lineID := cart.Lines[0].ID

	cart, err = svc.RemoveItem(ctx, "u1", lineID)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	// Second removal of the same line is a no-op, not an error.
	cart, err = svc.RemoveItem(ctx, "u1", lineID)
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
}

func TestClearEmptiesButKeepsCart(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, AddItemInput{UserID: "u1", FoodID: "f1", Quantity: 1})
	require.NoError(t, err)
	_, err = svc.AddItem(ctx, AddItemInput{UserID: "u1", FoodID: "f2", Quantity: 2})
	require.NoError(t, err)

	cart, err := svc.Clear(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
	assert.Equal(t, 0.0, cart.Subtotal)

	stored, ok := store.carts["u1"]
	require.True(t, ok, "document must survive a clear")
	assert.Empty(t, stored.Lines)
}

func TestGetOrCreatePersistsEmptyCart(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	cart, err := svc.GetOrCreate(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, "fresh", cart.UserID)
	assert.NotNil(t, cart.Lines)
	assert.Empty(t, cart.Lines)
	assert.Equal(t, 1, store.upserts)

	// Second read does not rewrite.
	_, err = svc.GetOrCreate(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, 1, store.upserts)
}

// withRedis backs the package cache with an in-process redis for the
// duration of one test, so the idempotency guard is live.
func withRedis(t *testing.T) {
	t.Helper()
	mr := miniredis.RunT(t)
	cache.RDB = redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { cache.RDB = nil })
}

func TestAddItemIdempotentReplay(t *testing.T) {
	withRedis(t)
	svc, _ := newTestService()
	ctx := context.Background()

	in := AddItemInput{
		UserID: "u1", FoodID: "f1", Quantity: 2, Addons: []any{"a1"},
		IdempotencyKey: "k1",
	}

	cart, err := svc.AddItem(ctx, in)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)

	// A retried request with the same key returns the current cart
	// without merging again.
	cart, err = svc.AddItem(ctx, in)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 2, cart.Lines[0].Quantity)
	assert.Equal(t, 2400.0, cart.Subtotal)

	// A different key is a new request and merges as usual.
	in.IdempotencyKey = "k2"
	cart, err = svc.AddItem(ctx, in)
	require.NoError(t, err)
	assert.Equal(t, 4, cart.Lines[0].Quantity)
}

func TestAddItemIdempotencyKeyFreedOnFailure(t *testing.T) {
	withRedis(t)
	svc, store := newTestService()
	ctx := context.Background()

	in := AddItemInput{
		UserID: "u1", FoodID: "f1", Quantity: 1,
		IdempotencyKey: "k1",
	}

	// Exhaust the version-retry loop so the add never commits.
	store.conflicts = maxUpsertRetries
	_, err := svc.AddItem(ctx, in)
	require.ErrorIs(t, err, models.ErrVersionConflict)

	// The retry with the same key must be applied, not replayed: the
	// failed attempt may not leave the key armed.
	cart, err := svc.AddItem(ctx, in)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "f1", cart.Lines[0].FoodID)
	assert.Equal(t, 1, cart.Lines[0].Quantity)
}

func TestAddItemIdempotencyKeyFreedOnUnknownFood(t *testing.T) {
	withRedis(t)
	svc, _ := newTestService()
	ctx := context.Background()

	in := AddItemInput{UserID: "u1", FoodID: "nope", Quantity: 1, IdempotencyKey: "k1"}
	_, err := svc.AddItem(ctx, in)
	require.ErrorIs(t, err, models.ErrFoodNotFound)

	// Client fixes the food id but reuses the key (same logical request).
	in.FoodID = "f1"
	cart, err := svc.AddItem(ctx, in)
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, "f1", cart.Lines[0].FoodID)
}

func TestMutationRetriesOnVersionConflict(t *testing.T) {
	svc, store := newTestService()
	ctx := context.Background()

	_, err := svc.AddItem(ctx, AddItemInput{UserID: "u1", FoodID: "f1", Quantity: 1})
	require.NoError(t, err)

	store.conflicts = 2
	cart, err := svc.AddItem(ctx, AddItemInput{UserID: "u1", FoodID: "f1", Quantity: 1})
	require.NoError(t, err)
	assert.Equal(t, 2, cart.Lines[0].Quantity)

	store.conflicts = 3
	_, err = svc.AddItem(ctx, AddItemInput{UserID: "u1", FoodID: "f1", Quantity: 1})
	assert.ErrorIs(t, err, models.ErrVersionConflict)
}

func TestConcurrentAddsSameUser(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	const workers = 20
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.AddItem(ctx, AddItemInput{UserID: "u1", FoodID: "f1", Quantity: 1, Addons: []any{"a1"}})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	cart, err := svc.GetOrCreate(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, workers, cart.Lines[0].Quantity)
	assert.Equal(t, float64(workers)*1200, cart.Subtotal)
}

func TestRecomputeIsIdempotent(t *testing.T) {
	svc, _ := newTestService()
	ctx := context.Background()

	cart, err := svc.AddItem(ctx, AddItemInput{UserID: "u1", FoodID: "f1", Quantity: 2, Addons: []any{"a1"}})
	require.NoError(t, err)

	first := cloneCart(*cart)
	require.NoError(t, svc.recompute(ctx, cart))
	assert.Equal(t, first.Subtotal, cart.Subtotal)
	assert.Equal(t, first.Lines, cart.Lines)
}
