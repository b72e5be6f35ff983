package handlers

import (
	"html/template"
)

// PageData is the view model for the storefront page and its fragments.
type PageData struct {
	Title     string
	Lang      string
	SEO       SEOData
	Analytics Analytics
	Path      string
	CSRFToken string

	Shop    ShopView
	Catalog []ProductView
	Cart    CartView
	Consent ConsentView
	Order   OrderView

	// Alert is a one-off notice shown above the page (validation, empty cart).
	Alert string
}

// SEOData is a lightweight copy to avoid importing the seo package here.
type SEOData struct {
	Title       string
	Description string
	Canonical   string
	Robots      string
	OG          struct {
		Title       string
		Description string
		Image       string
		Type        string
		URL         string
		SiteName    string
		Locale      string
	}
	Twitter struct {
		Card  string
		Image string
	}
	JSONLD []template.JS
}

// ConsentView drives the cookie banner.
type ConsentView struct {
	Visible  bool
	Accepted bool
}
