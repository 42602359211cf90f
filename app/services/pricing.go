package services

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/sumitghosal/zaika/app/models"
	"github.com/sumitghosal/zaika/pkg/collection"
)

// LineTotal computes (foodPrice + sum of addon prices) * quantity, rounded
// to 2 decimals and floored at 0. Quantity is clamped to a minimum of 1:
// a transient 0 mid-mutation never zeroes a total — true removal is the
// aggregate's job, not the pricing engine's.
func LineTotal(foodPrice float64, addonPrices []float64, quantity int) float64 {
	if quantity < 1 {
		quantity = 1
	}

	unit := decimal.NewFromFloat(foodPrice)
	for _, p := range addonPrices {
		unit = unit.Add(decimal.NewFromFloat(p))
	}

	total := unit.Mul(decimal.NewFromInt(int64(quantity))).Round(2)
	if total.IsNegative() {
		return 0
	}
	return total.InexactFloat64()
}

// recompute re-derives every line's display fields and total from current
// catalog prices, then the cart subtotal. Idempotent: with no catalog change
// two consecutive calls produce identical output.
//
// A food that no longer resolves fails the whole operation with
// ErrFoodNotFound. Add-on ids that no longer resolve are silently excluded
// from the priced total; their stored fallback name/price stay visible.
func (s *CartService) recompute(ctx context.Context, cart *models.Cart) error {
	addonIDs := make([]string, 0)
	for _, line := range cart.Lines {
		for _, sel := range line.Addons {
			addonIDs = append(addonIDs, sel.ID)
		}
	}
	addonIDs = collection.UniqueBy(addonIDs, func(id string) string { return id })

	addons := map[string]models.Addon{}
	if len(addonIDs) > 0 {
		resolved, err := s.catalog.GetAddons(ctx, addonIDs)
		if err != nil {
			return err
		}
		addons = resolved
	}

	subtotal := decimal.Zero
	for i := range cart.Lines {
		line := &cart.Lines[i]

		food, err := s.catalog.GetFood(ctx, line.FoodID)
		if err != nil {
			return err
		}
		line.FoodName = food.Name
		line.FoodImage = food.Image
		line.FoodPrice = food.Price
		line.RestaurantID = food.RestaurantID

		var addonPrices []float64
		for j := range line.Addons {
			sel := &line.Addons[j]
			if a, ok := addons[sel.ID]; ok {
				sel.Name = a.Name
				sel.Price = a.Price
				sel.Priced = true
				addonPrices = append(addonPrices, a.Price)
			} else {
				sel.Priced = false
			}
		}

		line.LineTotal = LineTotal(food.Price, addonPrices, line.Quantity)
		subtotal = subtotal.Add(decimal.NewFromFloat(line.LineTotal))
	}

	cart.Subtotal = subtotal.Round(2).InexactFloat64()
	return nil
}
