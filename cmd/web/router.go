package main

import (
	"io"
	"net/http"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	mw "finitefield.org/storefront/internal/middleware"
)

// newRouter mounts the storefront routes. Order routes exist only when the flow is enabled.
func newRouter(a *app) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	// If deployed behind a trusted reverse proxy/load balancer, RealIP will use
	// X-Forwarded-For to determine the client IP. Ensure only trusted proxies
	// can set these headers in production environments.
	r.Use(middleware.RealIP)
	r.Use(mw.HTMX)
	r.Use(mw.Logger(a.logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(middleware.Timeout(30 * time.Second))

	// Health check
	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = io.WriteString(w, "ok")
	})

	// Static assets under /assets/
	assets := http.StripPrefix("/assets", mw.AssetsWithCache(filepath.Join(publicDir, "assets"), devMode))
	r.Handle("/assets/*", assets)

	r.Group(func(r chi.Router) {
		r.Use(mw.CSRF(a.cfg.SecureCookies()))

		r.Get("/", a.ShopHandler)
		r.Get("/cart", a.CartFrag)
		r.Post("/cart/items/{id}", a.CartAddHandler)
		r.Post("/cart/clear", a.CartClearHandler)
		r.Post("/consent/accept", a.ConsentAcceptHandler)
		r.Post("/consent/decline", a.ConsentDeclineHandler)

		if a.orders != nil {
			r.Route("/order", func(r chi.Router) {
				r.Post("/open", a.OrderOpenHandler)
				r.Post("/confirm", a.OrderConfirmHandler)
				r.Post("/dismiss", a.OrderDismissHandler)
				r.Post("/submit", a.OrderSubmitHandler)
			})
		}
	})
	return r
}
