package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sumitghosal/zaika/pkg/collection"
)

// AddonSelection is one chosen add-on on a cart line.
//
// ID participates in line identity. Name and Price are display snapshots
// refreshed from the catalog on every recompute; when the id no longer
// resolves, the last known (possibly client-supplied) name/price are kept
// for display and Priced is false, meaning the add-on is excluded from the
// line total.
type AddonSelection struct {
	ID     string  `bson:"id" json:"id"`
	Name   string  `bson:"name,omitempty" json:"name,omitempty"`
	Price  float64 `bson:"price,omitempty" json:"price,omitempty"`
	Priced bool    `bson:"priced" json:"priced"`
}

// CartLine is one entry in a cart: a food selection with its add-ons,
// quantity and free-text notes.
//
// FoodID is immutable for the lifetime of the line; changing food means
// delete+add. LineTotal and the food display fields are derived — they are
// rewritten on every mutation and never trusted from the client.
type CartLine struct {
	ID       string           `bson:"id" json:"id"`
	FoodID   string           `bson:"food_id" json:"foodId"`
	Quantity int              `bson:"quantity" json:"quantity"`
	Addons   []AddonSelection `bson:"addons" json:"addons"`
	Notes    string           `bson:"notes,omitempty" json:"notes,omitempty"`

	FoodName     string  `bson:"food_name,omitempty" json:"foodName,omitempty"`
	FoodImage    string  `bson:"food_image,omitempty" json:"foodImage,omitempty"`
	FoodPrice    float64 `bson:"food_price" json:"foodPrice"`
	RestaurantID string  `bson:"restaurant_id,omitempty" json:"restaurantId,omitempty"`
	LineTotal    float64 `bson:"line_total" json:"lineTotal"`
}

// Cart is the per-user aggregate. Exactly one document exists per user
// (unique index on user_id), created lazily and never deleted, only emptied.
//
// Version backs the optimistic-concurrency check in the store: every upsert
// matches on the version it read and increments it.
type Cart struct {
	ID        primitive.ObjectID `bson:"_id,omitempty" json:"-"`
	UserID    string             `bson:"user_id" json:"userId"`
	Lines     []CartLine         `bson:"lines" json:"lines"`
	Subtotal  float64            `bson:"subtotal" json:"subtotal"`
	Version   int64              `bson:"version" json:"-"`
	CreatedAt time.Time          `bson:"created_at" json:"createdAt"`
	UpdatedAt time.Time          `bson:"updated_at" json:"updatedAt"`
}

// NewCart returns an empty Active cart for userID.
// Lines is non-nil so the JSON representation is [] rather than null.
func NewCart(userID string) *Cart {
	return &Cart{
		UserID: userID,
		Lines:  []CartLine{},
	}
}

// LineIndex returns the position of the line with the given id, or -1.
func (c *Cart) LineIndex(lineID string) int {
	return collection.FirstIndex(c.Lines, func(l CartLine) bool { return l.ID == lineID })
}

// RemoveLineAt drops the line at index i, preserving order of the rest.
func (c *Cart) RemoveLineAt(i int) {
	c.Lines = append(c.Lines[:i], c.Lines[i+1:]...)
}
