// Package htmltemplate serves the localized client index.html with meta tags filled in per request.
package htmltemplate

import (
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/microcosm-cc/bluemonday"
)

const (
	DefaultLanguageCode = "en"
	StorybookPath       = "/development/storybook"

	defaultFeatureGraphicPath = "assets/cover.png"
	dateFormat                = "2006-01-02"
)

var SupportedLanguageCodes = []string{"ca", "de", "en", "es", "fr", "it", "nl", "pl", "pt", "tr", "uk", "zh"}

var placeholder = regexp.MustCompile(`\$\{([^}]+)\}`)

type Options struct {
	ClientDir  string
	RootURL    string
	Title      string
	Production bool
}

type Middleware struct {
	opts    Options
	catalog *Catalog
	index   map[string]string
	policy  *bluemonday.Policy
	now     func() time.Time
}

// New preloads <ClientDir>/<lang>/index.html for every supported language.
// Missing files are logged; requests in those languages pass through.
func New(opts Options, catalog *Catalog) *Middleware {
	if opts.Title == "" {
		opts.Title = "Folio"
	}
	m := &Middleware{
		opts:    opts,
		catalog: catalog,
		index:   map[string]string{},
		policy:  bluemonday.StrictPolicy(),
		now:     time.Now,
	}
	if !opts.Production {
		return m
	}
	for _, lang := range SupportedLanguageCodes {
		b, err := os.ReadFile(filepath.Join(opts.ClientDir, lang, "index.html"))
		if err != nil {
			slog.Error("failed to load index html", "component", "htmltemplate", "language", lang, "error", err)
			continue
		}
		m.index[lang] = string(b)
	}
	return m
}

// LanguageCode returns the language of path's first segment or the default language.
func LanguageCode(path string) string {
	if len(path) >= 3 {
		if code := path[1:3]; slices.Contains(SupportedLanguageCodes, code) {
			return code
		}
	}
	return DefaultLanguageCode
}

// IsFileRequest reports whether path names a static file rather than a client route.
func IsFileRequest(path string) bool {
	switch {
	case path == "/assets/LICENSE":
		return true
	case strings.HasSuffix(path, "-de.fi"),
		strings.HasSuffix(path, "-markets.sh"),
		strings.Contains(path, "auth/ey"):
		return false
	}
	return strings.Contains(path, ".")
}

func (m *Middleware) skip(path string) bool {
	return strings.HasPrefix(path, "/api/") ||
		strings.HasPrefix(path, StorybookPath) ||
		IsFileRequest(path) ||
		!m.opts.Production
}

// Handler renders the index html for client routes and calls the next handler otherwise.
func (m *Middleware) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		path := strings.TrimSuffix(c.Request.URL.Path, "/")
		if m.skip(path) {
			c.Next()
			return
		}
		lang := LanguageCode(path)
		tmpl, ok := m.index[lang]
		if !ok {
			c.Next()
			return
		}
		c.Data(http.StatusOK, "text/html; charset=utf-8", []byte(m.Render(tmpl, path, lang)))
		c.Abort()
	}
}

// Render replaces ${name} placeholders in tmpl. Unknown placeholders are kept.
func (m *Middleware) Render(tmpl, path, lang string) string {
	values := map[string]string{
		"currentDate":        m.now().Format(dateFormat),
		"languageCode":       lang,
		"path":               path,
		"rootUrl":            m.opts.RootURL,
		"description":        m.catalog.Translation(lang, "metaDescription"),
		"featureGraphicPath": defaultFeatureGraphicPath,
		"keywords":           m.catalog.Translation(lang, "metaKeywords"),
		"title":              m.opts.Title + " – " + m.catalog.Translation(lang, "slogan"),
	}
	if page, ok := m.catalog.Page(path); ok {
		if page.FeatureGraphicPath != "" {
			values["featureGraphicPath"] = page.FeatureGraphicPath
		}
		if page.Title != "" {
			values["title"] = page.Title + " - " + m.opts.Title
		}
	}

	return placeholder.ReplaceAllStringFunc(tmpl, func(s string) string {
		name := strings.TrimSpace(s[2 : len(s)-1])
		v, ok := values[name]
		if !ok {
			return s
		}
		return m.policy.Sanitize(v)
	})
}
