package seo

import (
	"encoding/json"
	"html/template"
)

// JSON marshals v to a compact JSON string. It returns an empty string on error.
func JSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return ""
	}
	return string(b)
}

// Script marshals v for a <script type="application/ld+json"> block.
// encoding/json escapes <, > and & so the payload cannot close the tag.
func Script(v any) template.JS {
	return template.JS(JSON(v))
}

// Store returns a minimal schema.org Store payload.
func Store(name, url, telephone, description string) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Store",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if telephone != "" {
		m["telephone"] = "+" + telephone
	}
	if description != "" {
		m["description"] = description
	}
	return m
}

// Offer describes the price of a product.
type Offer struct {
	Price    string // decimal, e.g. "8.90"
	Currency string // ISO 4217
}

// Product returns a product schema payload with an optional offer.
func Product(name, url, imageURL, sku string, offer *Offer) map[string]any {
	m := map[string]any{
		"@context": "https://schema.org",
		"@type":    "Product",
		"name":     name,
	}
	if url != "" {
		m["url"] = url
	}
	if imageURL != "" {
		m["image"] = imageURL
	}
	if sku != "" {
		m["sku"] = sku
	}
	if offer != nil {
		m["offers"] = map[string]any{
			"@type":         "Offer",
			"price":         offer.Price,
			"priceCurrency": offer.Currency,
			"availability":  "https://schema.org/InStock",
		}
	}
	return m
}

// ItemList wraps elements as a schema.org ItemList in the given order.
func ItemList(name string, elements []map[string]any) map[string]any {
	el := make([]map[string]any, 0, len(elements))
	for i, it := range elements {
		entry := map[string]any{
			"@type":    "ListItem",
			"position": i + 1,
		}
		item := make(map[string]any, len(it))
		for k, v := range it {
			if k == "@context" {
				continue
			}
			item[k] = v
		}
		entry["item"] = item
		el = append(el, entry)
	}
	return map[string]any{
		"@context":        "https://schema.org",
		"@type":           "ItemList",
		"name":            name,
		"itemListElement": el,
	}
}
