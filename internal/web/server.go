// Package web serves the thumbnail studio form, its JSON API and generated
// images over HTTP.
package web

import (
	"context"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"github.com/fpang/thumbnail-studio/internal/s3util"
	"github.com/fpang/thumbnail-studio/internal/studio"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// SessionCookie names the cookie carrying the studio session id.
const SessionCookie = "studio_session"

// Exporter uploads a session's thumbnails somewhere durable.
type Exporter interface {
	Export(ctx context.Context, sessionID string, thumbs []studio.Thumbnail) ([]s3util.ExportedObject, error)
}

// Options configures a Server.
type Options struct {
	Registry *studio.Registry
	// Exporter is optional; without it the export route reports 501.
	Exporter Exporter
	// SecureCookies marks the session cookie Secure (HTTPS deployments).
	SecureCookies bool
	// MaxWait caps the long-poll duration of GET /api/state.
	MaxWait time.Duration
}

// Server holds the HTTP handlers bound to a session registry.
type Server struct {
	registry      *studio.Registry
	exporter      Exporter
	secureCookies bool
	maxWait       time.Duration
	page          *template.Template
	static        http.Handler
	previews      *previewCache
}

// DefaultMaxWait is the long-poll cap when Options leaves it unset.
const DefaultMaxWait = 30 * time.Second

// New parses the embedded templates and returns a server.
func New(opts Options) (*Server, error) {
	if opts.Registry == nil {
		return nil, fmt.Errorf("web: registry is required")
	}
	page, err := template.New("index.html").Funcs(templateFuncs).ParseFS(templateFS, "templates/index.html")
	if err != nil {
		return nil, fmt.Errorf("parse page template: %w", err)
	}
	static, err := fs.Sub(staticFS, "static")
	if err != nil {
		return nil, fmt.Errorf("open static assets: %w", err)
	}
	maxWait := opts.MaxWait
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	return &Server{
		registry:      opts.Registry,
		exporter:      opts.Exporter,
		secureCookies: opts.SecureCookies,
		maxWait:       maxWait,
		page:          page,
		static:        http.StripPrefix("/static/", http.FileServer(http.FS(static))),
		previews:      newPreviewCache(previewCacheSize),
	}, nil
}

// Handler returns the routed, middleware-wrapped handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID, middleware.RealIP, middleware.Recoverer, withLogging, withSecurityHeaders)

	r.Get("/healthz", s.handleHealth)

	r.Get("/static/*", s.static.ServeHTTP)
	r.Get("/", s.handlePage)
	r.Post("/", s.handlePageAction)

	r.Route("/api", func(r chi.Router) {
		r.Get("/state", s.handleState)
		r.Put("/form", s.handleForm)
		r.Post("/styles/{id}/toggle", s.handleToggleStyle)
		r.Post("/link/analyze", s.handleAnalyze)
		r.Post("/prompts/suggest", s.handleSuggest)
		r.Post("/prompts/suggestions/{index}/select", s.handleSelectSuggestion)
		r.Post("/thumbnails/generate", s.handleGenerate)
		r.Post("/thumbnails/export", s.handleExport)
	})

	r.Get("/thumbnails.zip", s.handleZip)
	r.Get("/thumbnails/{id}", s.handleThumbnail)
	r.Get("/thumbnails/{id}/preview", s.handlePreview)

	return gzhttp.GzipHandler(r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"status":   "ok",
		"sessions": s.registry.Len(),
	})
}

// session resolves the caller's session from its cookie, creating one and
// setting the cookie when needed.
func (s *Server) session(w http.ResponseWriter, r *http.Request) *studio.Session {
	var id string
	if c, err := r.Cookie(SessionCookie); err == nil {
		id = c.Value
	}
	sess, created := s.registry.GetOrCreate(id)
	if created {
		http.SetCookie(w, &http.Cookie{
			Name:     SessionCookie,
			Value:    sess.ID(),
			Path:     "/",
			HttpOnly: true,
			Secure:   s.secureCookies,
			SameSite: http.SameSiteLaxMode,
		})
	}
	return sess
}

// existingSession is session without creation, for read-only asset routes.
func (s *Server) existingSession(r *http.Request) (*studio.Session, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, false
	}
	return s.registry.Get(c.Value)
}

// opContext detaches an operation from the request that started it; the
// session cancels it when superseded or closed.
func opContext(r *http.Request) context.Context {
	return context.WithoutCancel(r.Context())
}

// previewCacheSize bounds how many encoded previews are kept.
const previewCacheSize = 128

// previewCache keeps encoded previews by thumbnail id. Ids are unique per
// generation, so entries never go stale; the oldest are evicted first.
type previewCache struct {
	mu    sync.Mutex
	max   int
	order []string
	data  map[string][]byte
}

func newPreviewCache(max int) *previewCache {
	return &previewCache{max: max, data: make(map[string][]byte)}
}

func (c *previewCache) get(id string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	b, ok := c.data[id]
	return b, ok
}

func (c *previewCache) put(id string, b []byte) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.data[id]; ok {
		return
	}
	c.data[id] = b
	c.order = append(c.order, id)
	for len(c.order) > c.max {
		delete(c.data, c.order[0])
		c.order = c.order[1:]
	}
}
