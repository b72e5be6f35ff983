// Package cart implements the cookie-backed shopping cart.
package cart

import (
	"net/http"

	"finitefield.org/storefront/internal/catalog"
	"finitefield.org/storefront/internal/cookiestore"
	"finitefield.org/storefront/internal/format"
)

const (
	// CookieName is the cookie holding the JSON array of items.
	CookieName = "cart"
	// CookieDays is the cart lifetime.
	CookieDays = 7
	// MaxQuantity bounds a single line. Larger cookie quantities are dropped and merges saturate.
	MaxQuantity = 9999
)

// Item is a product snapshot plus the selected quantity. Identity is the product id.
type Item struct {
	catalog.Product
	Quantity int `json:"quantity"`
}

// LineTotal returns price × quantity in minor units.
func LineTotal(it Item) int64 {
	return format.Cents(it.Price) * int64(it.Quantity)
}

// Total sums the line totals of items in minor units.
func Total(items []Item) int64 {
	var total int64
	for _, it := range items {
		total += LineTotal(it)
	}
	return total
}

// Count sums quantities across items.
func Count(items []Item) int {
	n := 0
	for _, it := range items {
		n += it.Quantity
	}
	return n
}

// AddProduct returns a new slice with one more unit of p: the matching item is incremented,
// otherwise p is appended with quantity 1. The input slice is not modified.
func AddProduct(items []Item, p catalog.Product) []Item {
	out := make([]Item, len(items), len(items)+1)
	copy(out, items)
	for i := range out {
		if out[i].ID == p.ID {
			if out[i].Quantity < MaxQuantity {
				out[i].Quantity++
			}
			return out
		}
	}
	return append(out, Item{Product: p, Quantity: 1})
}

// Store binds the cart to its cookie and the catalog it prices against.
type Store struct {
	cookies *cookiestore.Store
	catalog *catalog.Catalog
}

// NewStore constructs a Store.
func NewStore(cookies *cookiestore.Store, c *catalog.Catalog) *Store {
	return &Store{cookies: cookies, catalog: c}
}

// Load returns the persisted cart, or an empty cart when the cookie is missing or malformed.
// Items are normalized against the catalog: unknown products and quantities outside
// [1, MaxQuantity] are dropped, duplicate ids are merged at the first position, and product
// fields are refreshed.
func (s *Store) Load(r *http.Request) []Item {
	var raw []Item
	if !s.cookies.Get(r, CookieName, &raw) {
		return []Item{}
	}
	return s.normalize(raw)
}

// Add appends or increments productID and persists the result. It reports false and leaves the
// cookie untouched when the product is not in the catalog.
func (s *Store) Add(w http.ResponseWriter, r *http.Request, productID int) ([]Item, bool, error) {
	items := s.Load(r)
	p, ok := s.catalog.Find(productID)
	if !ok {
		return items, false, nil
	}
	items = AddProduct(items, p)
	if err := s.cookies.Set(w, CookieName, items, CookieDays); err != nil {
		return nil, false, err
	}
	return items, true, nil
}

// Clear deletes the persisted cart.
func (s *Store) Clear(w http.ResponseWriter) {
	s.cookies.Delete(w, CookieName)
}

func (s *Store) normalize(raw []Item) []Item {
	out := make([]Item, 0, len(raw))
	index := make(map[int]int, len(raw))
	for _, it := range raw {
		if it.Quantity < 1 || it.Quantity > MaxQuantity {
			continue
		}
		p, ok := s.catalog.Find(it.ID)
		if !ok {
			continue
		}
		if i, seen := index[p.ID]; seen {
			out[i].Quantity = min(out[i].Quantity+it.Quantity, MaxQuantity)
			continue
		}
		index[p.ID] = len(out)
		out = append(out, Item{Product: p, Quantity: it.Quantity})
	}
	return out
}
