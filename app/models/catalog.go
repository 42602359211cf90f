package models

// Food is a catalog item as read by the pricing path. The catalog is
// read-only from this service's perspective; price is authoritative at the
// moment of each mutation.
type Food struct {
	ID           string  `bson:"_id" json:"id"`
	Name         string  `bson:"name" json:"name"`
	Price        float64 `bson:"price" json:"price"`
	Image        string  `bson:"image,omitempty" json:"image,omitempty"`
	RestaurantID string  `bson:"restaurant_id,omitempty" json:"restaurantId,omitempty"`
}

// Addon is a food add-on (extra cheese, toppings, sides) priced per unit
// of the line it is attached to.
type Addon struct {
	ID    string  `bson:"_id" json:"id"`
	Name  string  `bson:"name" json:"name"`
	Price float64 `bson:"price" json:"price"`
}
