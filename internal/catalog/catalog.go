// Package catalog loads the static shop description and product list.
package catalog

import (
	"bytes"
	"errors"
	"fmt"
	"html/template"
	"math"
	"os"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"gopkg.in/yaml.v3"
)

const defaultCurrency = "R$"

var defaultPaymentMethods = []string{"Pix", "Dinheiro", "Cartão"}

// Product is an immutable catalog entry.
type Product struct {
	ID    int     `json:"id" yaml:"id"`
	Name  string  `json:"name" yaml:"name"`
	Unit  string  `json:"unid" yaml:"unid"`
	Price float64 `json:"price" yaml:"price"`
	Image string  `json:"img" yaml:"img"`
}

// Colors lists the shop palette exposed to templates as CSS custom properties.
type Colors struct {
	Primary    string `yaml:"primary"`
	Secondary  string `yaml:"secondary"`
	Background string `yaml:"background"`
	Text       string `yaml:"text"`
}

// Shop holds storefront metadata.
type Shop struct {
	Name           string   `yaml:"name"`
	Phone          string   `yaml:"phone"`
	Currency       string   `yaml:"currency"`
	Description    string   `yaml:"description"`
	Colors         Colors   `yaml:"colors"`
	PaymentMethods []string `yaml:"payment_methods"`
}

// Catalog is the read-only shop metadata plus its ordered product list.
type Catalog struct {
	Shop     Shop      `yaml:"shop"`
	Products []Product `yaml:"products"`

	byID        map[int]int
	description template.HTML
}

// ValidationError lists every problem found in a catalog document.
type ValidationError struct {
	Problems []string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("catalog: invalid document: %s", strings.Join(e.Problems, "; "))
}

// ErrEmpty is returned when the document has no products.
var ErrEmpty = errors.New("catalog: no products")

// Load reads and parses a YAML catalog file.
func Load(path string) (*Catalog, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("catalog: read %s: %w", path, err)
	}
	return Parse(raw)
}

// Parse decodes a YAML catalog document, applies defaults and validates it.
func Parse(raw []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(raw, &c); err != nil {
		return nil, fmt.Errorf("catalog: decode: %w", err)
	}
	if len(c.Products) == 0 {
		return nil, ErrEmpty
	}

	c.Shop.Name = strings.TrimSpace(c.Shop.Name)
	c.Shop.Currency = strings.TrimSpace(c.Shop.Currency)
	if c.Shop.Currency == "" {
		c.Shop.Currency = defaultCurrency
	}
	if len(c.Shop.PaymentMethods) == 0 {
		c.Shop.PaymentMethods = append([]string(nil), defaultPaymentMethods...)
	}

	var problems []string
	c.byID = make(map[int]int, len(c.Products))
	for i := range c.Products {
		p := &c.Products[i]
		p.Name = strings.TrimSpace(p.Name)
		p.Unit = strings.TrimSpace(p.Unit)
		if p.ID <= 0 {
			problems = append(problems, fmt.Sprintf("products[%d]: id must be positive", i))
		}
		if p.Name == "" {
			problems = append(problems, fmt.Sprintf("products[%d]: name is required", i))
		}
		if p.Price < 0 {
			problems = append(problems, fmt.Sprintf("products[%d]: price must not be negative", i))
		}
		if !wholeCents(p.Price) {
			problems = append(problems, fmt.Sprintf("products[%d]: price has more than 2 decimals", i))
		}
		if prev, ok := c.byID[p.ID]; ok {
			problems = append(problems, fmt.Sprintf("products[%d]: duplicate id %d (first at products[%d])", i, p.ID, prev))
			continue
		}
		c.byID[p.ID] = i
	}
	if len(problems) > 0 {
		return nil, &ValidationError{Problems: problems}
	}

	html, err := renderDescription(c.Shop.Description)
	if err != nil {
		return nil, err
	}
	c.description = html
	return &c, nil
}

// wholeCents reports whether price is representable in minor units without rounding.
func wholeCents(price float64) bool {
	scaled := price * 100
	return math.Abs(scaled-math.Round(scaled)) < 1e-6
}

// Find looks up a product by id.
func (c *Catalog) Find(id int) (Product, bool) {
	if c == nil {
		return Product{}, false
	}
	i, ok := c.byID[id]
	if !ok {
		return Product{}, false
	}
	return c.Products[i], true
}

// DescriptionHTML returns the shop description rendered from markdown and sanitized.
func (c *Catalog) DescriptionHTML() template.HTML {
	if c == nil {
		return ""
	}
	return c.description
}

func renderDescription(md string) (template.HTML, error) {
	md = strings.TrimSpace(md)
	if md == "" {
		return "", nil
	}
	var buf bytes.Buffer
	if err := goldmark.Convert([]byte(md), &buf); err != nil {
		return "", fmt.Errorf("catalog: render description: %w", err)
	}
	return template.HTML(descriptionPolicy().SanitizeBytes(buf.Bytes())), nil
}

func descriptionPolicy() *bluemonday.Policy {
	policy := bluemonday.UGCPolicy()
	policy.AllowAttrs("loading").OnElements("img")
	policy.RequireNoFollowOnLinks(true)
	return policy
}
