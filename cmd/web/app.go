package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf16"
	"unicode/utf8"

	"go.uber.org/zap"

	"finitefield.org/storefront/internal/cart"
	"finitefield.org/storefront/internal/catalog"
	"finitefield.org/storefront/internal/config"
	"finitefield.org/storefront/internal/consent"
	"finitefield.org/storefront/internal/cookiestore"
	"finitefield.org/storefront/internal/format"
	handlersPkg "finitefield.org/storefront/internal/handlers"
	mw "finitefield.org/storefront/internal/middleware"
	"finitefield.org/storefront/internal/order"
	"finitefield.org/storefront/internal/seo"
)

const (
	alertEmptyCart     = "Seu carrinho está vazio!"
	alertMissingFields = "Por favor, preencha todos os campos!"
	alertTriggerEvent  = "storefront:alert"
	cartUpdatedEvent   = "cart:updated"
	consentEvent       = "consent:accepted"
	orderOpenEvent     = "order:open"
)

// app holds the storefront dependencies shared by all handlers.
type app struct {
	cfg       config.Config
	logger    *zap.Logger
	catalog   *catalog.Catalog
	cart      *cart.Store
	consent   *consent.Manager
	orders    *order.Service // nil when the order flow is disabled
	analytics handlersPkg.Analytics
}

// newApp wires the storefront. A missing phone disables the order flow and is logged once.
func newApp(cfg config.Config, cat *catalog.Catalog, logger *zap.Logger, notifier order.Notifier) *app {
	cookies := cookiestore.New(cookiestore.WithSecure(cfg.SecureCookies()))
	a := &app{
		cfg:       cfg,
		logger:    logger,
		catalog:   cat,
		cart:      cart.NewStore(cookies, cat),
		consent:   consent.NewManager(cookies),
		analytics: handlersPkg.AnalyticsFromConfig(cfg),
	}

	phone := cfg.Order.Phone
	if phone == "" {
		phone = digitsOnly(cat.Shop.Phone)
	}
	svc, err := order.NewService(phone, cat.Shop.Currency, order.WithNotifier(notifier))
	if errors.Is(err, order.ErrDisabled) {
		logger.Warn("order flow disabled: no destination phone configured",
			zap.String("catalog", cfg.Paths.Catalog),
			zap.Error(err),
		)
		return a
	}
	a.orders = svc
	return a
}

// pageData builds the view model shared by the page and every fragment.
func (a *app) pageData(r *http.Request, items []cart.Item, ov handlersPkg.OrderView) handlersPkg.PageData {
	shop := handlersPkg.BuildShopView(a.catalog)
	state := a.consent.State(r)

	vm := handlersPkg.PageData{
		Title:     shop.Name,
		Lang:      "pt-BR",
		Analytics: a.analytics,
		Path:      r.URL.Path,
		CSRFToken: mw.CSRFToken(r.Context()),
		Shop:      shop,
		Catalog:   handlersPkg.BuildCatalogView(a.catalog.Products, shop.Currency),
		Cart:      handlersPkg.BuildCartView(items, shop.Currency),
		Consent: handlersPkg.ConsentView{
			Visible:  state.BannerVisible(),
			Accepted: state == consent.Accepted,
		},
		Order: ov,
	}

	vm.SEO.Title = shop.Name
	vm.SEO.Description = plainDescription(a.catalog.Shop.Description)
	vm.SEO.Canonical = absoluteURL(r)
	vm.SEO.OG.URL = vm.SEO.Canonical
	vm.SEO.OG.SiteName = shop.Name
	vm.SEO.OG.Title = shop.Name
	vm.SEO.OG.Description = vm.SEO.Description
	vm.SEO.OG.Type = "website"
	vm.SEO.OG.Locale = seo.Locale
	vm.SEO.Twitter.Card = "summary"
	if len(a.catalog.Products) > 0 {
		vm.SEO.OG.Image = a.catalog.Products[0].Image
		vm.SEO.Twitter.Image = vm.SEO.OG.Image
	}
	vm.SEO.JSONLD = a.jsonLD(vm.SEO.Canonical)
	return vm
}

func (a *app) jsonLD(canonical string) []template.JS {
	code := seo.CurrencyCode(a.catalog.Shop.Currency)
	products := make([]map[string]any, 0, len(a.catalog.Products))
	for _, p := range a.catalog.Products {
		products = append(products, seo.Product(p.Name, "", p.Image, strconv.Itoa(p.ID), &seo.Offer{
			Price:    format.Decimal(format.Cents(p.Price)),
			Currency: code,
		}))
	}
	phone := ""
	if a.orders != nil {
		phone = a.orders.Phone()
	}
	return []template.JS{
		seo.Script(seo.Store(a.catalog.Shop.Name, canonical, phone, plainDescription(a.catalog.Shop.Description))),
		seo.Script(seo.ItemList(a.catalog.Shop.Name, products)),
	}
}

// orderView builds the modal view for state, or a disabled view.
func (a *app) orderView(state order.State, items []cart.Item) handlersPkg.OrderView {
	return handlersPkg.BuildOrderView(a.orders, state, items, a.catalog.Shop.PaymentMethods)
}

// paymentMethod keeps a posted choice only when the shop offers it.
func (a *app) paymentMethod(raw string) string {
	methods := a.catalog.Shop.PaymentMethods
	for _, m := range methods {
		if m == raw {
			return m
		}
	}
	if len(methods) > 0 {
		return methods[0]
	}
	return raw
}

// triggerEvents sets HX-Trigger with a JSON payload per event name.
func triggerEvents(w http.ResponseWriter, events map[string]any) {
	raw, err := json.Marshal(events)
	if err != nil {
		return
	}
	w.Header().Set("HX-Trigger", asciiJSON(raw))
}

// asciiJSON escapes non-ASCII runes as \uXXXX; browsers read header bytes as Latin-1.
func asciiJSON(raw []byte) string {
	var b strings.Builder
	b.Grow(len(raw))
	for _, r := range string(raw) {
		switch {
		case r < utf8.RuneSelf:
			b.WriteRune(r)
		case r > 0xFFFF:
			r1, r2 := utf16.EncodeRune(r)
			fmt.Fprintf(&b, `\u%04x\u%04x`, r1, r2)
		default:
			fmt.Fprintf(&b, `\u%04x`, r)
		}
	}
	return b.String()
}

func alertPayload(msg string) map[string]any {
	return map[string]any{alertTriggerEvent: map[string]string{"message": msg}}
}

// redirectHome finishes a non-htmx form post with post/redirect/get.
func redirectHome(w http.ResponseWriter, r *http.Request) {
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func absoluteURL(r *http.Request) string {
	scheme := "http"
	if r.TLS != nil || strings.EqualFold(r.Header.Get("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + r.Host + r.URL.Path
}

// plainDescription drops markdown markers for meta tags.
func plainDescription(md string) string {
	md = strings.NewReplacer("*", "", "_", "", "#", "", "`", "").Replace(md)
	return strings.Join(strings.Fields(md), " ")
}

func digitsOnly(s string) string {
	return strings.Map(func(r rune) rune {
		if r >= '0' && r <= '9' {
			return r
		}
		return -1
	}, s)
}
