package main

import (
	"context"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/a-h/templ"
	"go.uber.org/zap"

	"finitefield.org/storefront/internal/observability"
)

func parseTemplates() (*template.Template, error) {
	funcMap := template.FuncMap{
		"lines": func(s string) []string { return strings.Split(s, "\n") },
	}
	// Recursively discover and parse all .tmpl files. Note: ParseGlob doesn't support **.
	var files []string
	if err := filepath.WalkDir(templatesDir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if strings.HasSuffix(d.Name(), ".tmpl") {
			files = append(files, path)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, fmt.Errorf("no templates found under %s", templatesDir)
	}
	return template.New("_root").Funcs(funcMap).ParseFiles(files...)
}

// templates returns the parsed set. In dev mode, templates are reparsed on each call.
func templates() (*template.Template, error) {
	if devMode {
		return parseTemplates()
	}
	if tmplCache == nil {
		return nil, fmt.Errorf("template not initialized")
	}
	return tmplCache, nil
}

// component wraps a named template so pages and fragments share templ's handler.
func component(name string, data any) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		t, err := templates()
		if err != nil {
			return err
		}
		return t.ExecuteTemplate(w, name, data)
	})
}

// renderTemplate renders a named template with a 200 status.
func renderTemplate(w http.ResponseWriter, r *http.Request, name string, data any) {
	renderStatus(w, r, http.StatusOK, name, data)
}

// renderPage renders the base layout.
func renderPage(w http.ResponseWriter, r *http.Request, status int, data any) {
	renderStatus(w, r, status, "base", data)
}

func renderStatus(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	templ.Handler(
		component(name, data),
		templ.WithStatus(status),
		templ.WithErrorHandler(func(r *http.Request, err error) http.Handler {
			return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				observability.FromContext(r.Context()).Error("template render failed",
					zap.String("template", name),
					zap.Error(err),
				)
				http.Error(w, "template exec error", http.StatusInternalServerError)
			})
		}),
	).ServeHTTP(w, r)
}
