package site

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/igacmun/site/go/internal/reveal"
	"github.com/rs/zerolog/log"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

//go:embed templates/*.html
var templateFS embed.FS

const (
	pageHome         = "home"
	pageAbout        = "about"
	pageEvents       = "events"
	pageGallery      = "gallery"
	pageContact      = "contact"
	pageSession3     = "session3"
	pageCommittees   = "committees"
	pageSchedule     = "schedule"
	pageVenue        = "venue"
	pageCountdown    = "countdown_page"
	pageSecretariats = "secretariats"
	pageRegister     = "register"
	pageNotFound     = "notfound"
)

var allPages = []string{
	pageHome, pageAbout, pageEvents, pageGallery, pageContact, pageSession3,
	pageCommittees, pageSchedule, pageVenue, pageCountdown, pageSecretariats,
	pageRegister, pageNotFound,
}

var titleCaser = cases.Title(language.English)

var templateFuncs = template.FuncMap{
	"pad2":  func(n int) string { return fmt.Sprintf("%02d", n) },
	"lower": strings.ToLower,
	"title": func(s string) string { return titleCaser.String(s) },
	"formatDate": func(s string) string {
		t, err := reveal.ParseTarget(s)
		if err != nil {
			return s
		}
		return t.Format("January 2, 2006")
	},
}

type renderer struct {
	pages map[string]*template.Template
}

func newRenderer() (*renderer, error) {
	r := &renderer{pages: make(map[string]*template.Template, len(allPages))}
	for _, name := range allPages {
		t, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS,
			"templates/layout.html",
			"templates/partials.html",
			"templates/"+name+".html",
		)
		if err != nil {
			return nil, fmt.Errorf("failed to parse template %s: %w", name, err)
		}
		r.pages[name] = t
	}
	return r, nil
}

// render executes into a buffer first so a template error still yields a clean 500.
func (r *renderer) render(w http.ResponseWriter, status int, name string, data any) {
	t, ok := r.pages[name]
	if !ok {
		log.Error().Str("page", name).Msg("unknown page template")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		log.Error().Err(err).Str("page", name).Msg("failed to render page")
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if _, err := buf.WriteTo(w); err != nil {
		log.Debug().Err(err).Str("page", name).Msg("failed to write page")
	}
}
