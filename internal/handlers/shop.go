package handlers

import (
	"html/template"
	"strconv"

	"finitefield.org/storefront/internal/cart"
	"finitefield.org/storefront/internal/catalog"
	"finitefield.org/storefront/internal/format"
)

// ShopView carries shop branding for the layout.
type ShopView struct {
	Name           string
	Currency       string
	Description    template.HTML
	Colors         catalog.Colors
	PaymentMethods []string
}

// ProductView is one catalog entry.
type ProductView struct {
	ID      int
	Name    string
	Unit    string
	Label   string // "name - unid"
	Price   string // "R$ 8.90"
	Image   string
	AddPath string
}

// CartLineView is one rendered cart line.
type CartLineView struct {
	ID        int
	Label     string // "name - unid - quantity - R$ lineTotal"
	Quantity  int
	LineTotal string
}

// CartView is the rendered cart.
type CartView struct {
	Lines    []CartLineView
	Count    int
	Total    string // "R$ 20.00"
	TotalRaw string // "20.00"
	Empty    bool
}

// BuildShopView maps catalog shop settings to the layout view model.
func BuildShopView(c *catalog.Catalog) ShopView {
	return ShopView{
		Name:           c.Shop.Name,
		Currency:       c.Shop.Currency,
		Description:    c.DescriptionHTML(),
		Colors:         c.Shop.Colors,
		PaymentMethods: c.Shop.PaymentMethods,
	}
}

// BuildCatalogView renders one entry per product in catalog order.
func BuildCatalogView(products []catalog.Product, currency string) []ProductView {
	out := make([]ProductView, 0, len(products))
	for _, p := range products {
		out = append(out, ProductView{
			ID:      p.ID,
			Name:    p.Name,
			Unit:    p.Unit,
			Label:   p.Name + " - " + p.Unit,
			Price:   format.FmtCurrency(format.Cents(p.Price), currency),
			Image:   p.Image,
			AddPath: "/cart/items/" + strconv.Itoa(p.ID),
		})
	}
	return out
}

// BuildCartView re-renders the whole cart from the model.
func BuildCartView(items []cart.Item, currency string) CartView {
	view := CartView{
		Lines:    make([]CartLineView, 0, len(items)),
		Count:    cart.Count(items),
		Total:    format.FmtCurrency(cart.Total(items), currency),
		TotalRaw: format.Decimal(cart.Total(items)),
		Empty:    len(items) == 0,
	}
	for _, it := range items {
		line := format.FmtCurrency(cart.LineTotal(it), currency)
		view.Lines = append(view.Lines, CartLineView{
			ID:        it.ID,
			Label:     it.Name + " - " + it.Unit + " - " + strconv.Itoa(it.Quantity) + " - " + line,
			Quantity:  it.Quantity,
			LineTotal: line,
		})
	}
	return view
}
