package services

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/sumitghosal/zaika/app/models"
	"github.com/sumitghosal/zaika/pkg/collection"
)

// Add-on references reach the API in three shapes depending on the caller:
// a raw id ("a1"), a partial object ({"id": "a1"}) or a populated catalog
// document ({"_id": "a1", "name": "Cheese", "price": 200}). Everything below
// is purely structural — no catalog lookups — so merge detection never
// depends on the shape or order the client happened to send.

// AddonID extracts the identifier from a single reference-like value.
// Returns "" for entries with no usable id (nil, empty string, zero).
func AddonID(ref any) string {
	switch v := ref.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(v)
	case float64:
		if v == 0 {
			return ""
		}
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		if v == 0 {
			return ""
		}
		return strconv.Itoa(v)
	case models.AddonSelection:
		return strings.TrimSpace(v.ID)
	case map[string]any:
		if id := AddonID(v["_id"]); id != "" {
			return id
		}
		return AddonID(v["id"])
	default:
		return strings.TrimSpace(fmt.Sprintf("%v", ref))
	}
}

// CanonicalAddonKey reduces a list of reference-like values to the sorted,
// deduplicated id list that defines line identity. Falsy entries are
// discarded.
func CanonicalAddonKey(refs []any) []string {
	ids := collection.Map(refs, AddonID)
	ids = collection.Filter(ids, func(id string) bool { return id != "" })
	ids = collection.UniqueBy(ids, func(id string) string { return id })
	sort.Strings(ids)
	return ids
}

// SameAddonSet reports whether two canonical keys are identical.
func SameAddonSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// Selections converts raw references into ordered, deduplicated
// AddonSelection values, carrying any client-supplied name/price through as
// display fallbacks. Input order is preserved (identity ignores it, display
// does not).
func Selections(refs []any) []models.AddonSelection {
	sels := make([]models.AddonSelection, 0, len(refs))
	for _, ref := range refs {
		id := AddonID(ref)
		if id == "" {
			continue
		}
		sel := models.AddonSelection{ID: id}
		if m, ok := ref.(map[string]any); ok {
			if name, ok := m["name"].(string); ok {
				sel.Name = name
			}
			if price, ok := m["price"].(float64); ok {
				sel.Price = price
			}
		}
		sels = append(sels, sel)
	}
	return collection.UniqueBy(sels, func(s models.AddonSelection) string { return s.ID })
}

// lineIdentity is the merge key from the line-identity rule: same food,
// same canonical add-on set, same notes (absent == "").
func lineIdentity(foodID string, canonicalAddons []string, notes string) string {
	return foodID + "\x1f" + strings.Join(canonicalAddons, ",") + "\x1f" + notes
}

// identityOf computes the identity key of an existing line.
func identityOf(line models.CartLine) string {
	refs := collection.Map(line.Addons, func(s models.AddonSelection) any { return s })
	return lineIdentity(line.FoodID, CanonicalAddonKey(refs), line.Notes)
}
