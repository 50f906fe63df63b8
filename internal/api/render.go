package api

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"time"

	"github.com/Kerhoff/MenuRater/internal/models"
)

//go:embed templates/*.html
var templateFS embed.FS

var templateFuncs = template.FuncMap{
	"rating": func(v float64) string {
		return fmt.Sprintf("%.1f", v)
	},
	"datetime": func(t time.Time) string {
		return t.Format("2006-01-02 15:04")
	},
}

// page is the data every template receives. Body holds the page-specific part.
type page struct {
	Title     string
	Principal models.Principal
	Flashes   []string
	Body      any
}

type indexBody struct {
	Restaurants []models.RestaurantSummary
	Search      string
	View        string
}

type menuItemsBody struct {
	Restaurant *models.RestaurantSummary
	Items      []models.MenuItemView
}

// parseTemplates builds one template set per page, each sharing the layout.
func parseTemplates() (map[string]*template.Template, error) {
	pages := []string{"login.html", "register.html", "index.html", "menu_items.html"}
	out := make(map[string]*template.Template, len(pages))
	for _, name := range pages {
		tmpl, err := template.New(name).Funcs(templateFuncs).ParseFS(templateFS, "templates/layout.html", "templates/"+name)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		out[name] = tmpl
	}
	return out, nil
}

// render executes a page into a buffer first so that a template error can
// still produce a clean 500.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name, title string, body any) {
	tmpl, ok := s.templates[name]
	if !ok {
		s.serverError(w, r, fmt.Errorf("unknown template %s", name))
		return
	}

	var flashes []string
	if id := sessionFrom(r.Context()).ID; id != "" {
		var err error
		if flashes, err = s.sessions.PopFlashes(r.Context(), id); err != nil {
			s.serverError(w, r, err)
			return
		}
	}

	data := page{
		Title:     title,
		Principal: principalFrom(r.Context()),
		Flashes:   flashes,
		Body:      body,
	}

	var buf bytes.Buffer
	if err := tmpl.ExecuteTemplate(&buf, "layout", data); err != nil {
		s.serverError(w, r, fmt.Errorf("failed to execute template %s: %w", name, err))
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = buf.WriteTo(w)
}
