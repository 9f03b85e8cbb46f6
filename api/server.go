/*
server.go - HTTP router and middleware configuration

PURPOSE:
  Configures the HTTP router (chi), middleware stack, and route definitions.
  This is the wiring layer that connects URLs to handlers.

MIDDLEWARE STACK:
  1. RequestID:  Unique ID per request for tracing
  2. RealIP:     Client address behind a proxy (rate limit key)
  3. Logger:     Request logging
  4. Recoverer:  Panic recovery (500 instead of crash)
  5. Secure:     Security headers (unrolled/secure)
  6. CORS:       Cross-origin requests for frontend

  The history endpoint builds one report per past cycle and is additionally
  rate limited per client IP (httprate).

ROUTE GROUPS:
  /api/cycles, /api/settlements/*   Reports
  /api/professionals, sales, vales, expenses, stock/*   Records
  /api/config/*                     Cycle policy and fee schedule
  /api/scenarios/*, /api/reset      Demo data (dev only)
  /*                                Static files (frontend)

SEE ALSO:
  - handlers.go: Handler implementations
  - cmd/server/main.go: Server startup
*/
package api

import (
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/go-chi/httprate"
	"github.com/unrolled/secure"
)

// RouterOptions configures NewRouter. Zero values are usable.
type RouterOptions struct {
	AllowedOrigins []string

	// HistoryRateLimit is requests per minute per client IP; <= 0 means 30.
	HistoryRateLimit int

	// StaticDir holds the built frontend; empty or missing serves a stub page.
	StaticDir string

	Production bool
}

// NewRouter creates a new router with all routes configured.
func NewRouter(h *Handler, opts RouterOptions) *chi.Mux {
	r := chi.NewRouter()

	origins := opts.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"http://localhost:5173", "http://localhost:8080"}
	}
	historyLimit := opts.HistoryRateLimit
	if historyLimit <= 0 {
		historyLimit = 30
	}

	secureMiddleware := secure.New(secure.Options{
		FrameDeny:          true,
		ContentTypeNosniff: true,
		BrowserXssFilter:   true,
		ReferrerPolicy:     "strict-origin-when-cross-origin",
		SSLRedirect:        opts.Production,
		SSLProxyHeaders:    map[string]string{"X-Forwarded-Proto": "https"},
		IsDevelopment:      !opts.Production,
	})

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(secureMiddleware.Handler)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
	}))

	historyLimiter := httprate.Limit(historyLimit, time.Minute,
		httprate.WithKeyFuncs(httprate.KeyByIP),
		httprate.WithLimitHandler(func(w http.ResponseWriter, r *http.Request) {
			writeJSON(w, http.StatusTooManyRequests, ErrorResponse{Error: "Too many requests"})
		}),
	)

	// API routes
	r.Route("/api", func(r chi.Router) {
		r.Get("/cycles", h.GetCycle)

		r.Route("/settlements", func(r chi.Router) {
			r.Get("/", h.GetSettlement)
			r.With(historyLimiter).Get("/history", h.GetHistory)
		})

		r.Route("/professionals", func(r chi.Router) {
			r.Get("/", h.ListProfessionals)
			r.Post("/", h.SaveProfessional)
		})

		r.Route("/sales", func(r chi.Router) {
			r.Get("/", h.ListSales)
			r.Post("/", h.CreateSale)
		})

		r.Route("/vales", func(r chi.Router) {
			r.Get("/", h.ListVales)
			r.Post("/", h.CreateVale)
			r.Post("/{id}/settle", h.SettleVale)
		})

		r.Route("/expenses", func(r chi.Router) {
			r.Get("/", h.ListExpenses)
			r.Post("/", h.CreateExpense)
		})

		r.Route("/stock", func(r chi.Router) {
			r.Get("/items", h.ListStockItems)
			r.Post("/items", h.SaveStockItem)
			r.Post("/purchases", h.CreateStockPurchase)
		})

		r.Route("/config", func(r chi.Router) {
			r.Get("/cycle", h.GetCycleConfig)
			r.Put("/cycle", h.PutCycleConfig)
			r.Get("/fees", h.GetFeeConfig)
			r.Put("/fees", h.PutFeeConfig)
		})

		// Scenario routes
		r.Route("/scenarios", func(r chi.Router) {
			r.Get("/", h.ListScenarios)
			r.Get("/current", h.GetCurrentScenario)
			r.Post("/load", h.LoadScenario)
		})
		r.Post("/reset", h.ResetDatabase)
	})

	mountStatic(r, opts.StaticDir)
	return r
}

// mountStatic serves the built frontend with index.html fallback for
// client-side routing.
func mountStatic(r chi.Router, staticDir string) {
	if staticDir != "" {
		if _, err := os.Stat(staticDir); err != nil {
			staticDir = ""
		}
	}

	if staticDir == "" {
		r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(`<!DOCTYPE html>
<html>
<head><title>Salon Settlement Engine</title></head>
<body style="font-family: system-ui; max-width: 800px; margin: 50px auto; padding: 20px;">
<h1>Salon Settlement Engine API</h1>
<h2>API Endpoints</h2>
<ul>
<li><a href="/api/cycles">/api/cycles</a> - Current cycle window</li>
<li><a href="/api/settlements">/api/settlements</a> - Current settlement report</li>
<li><a href="/api/settlements/history">/api/settlements/history</a> - Past cycles</li>
<li><a href="/api/scenarios">/api/scenarios</a> - Demo scenarios</li>
</ul>
</body>
</html>`))
		})
		return
	}

	fileServer := http.FileServer(http.Dir(staticDir))
	r.Get("/*", func(w http.ResponseWriter, r *http.Request) {
		fullPath := filepath.Join(staticDir, filepath.Clean("/"+r.URL.Path))
		if _, err := os.Stat(fullPath); os.IsNotExist(err) {
			// SPA routing: serve index.html
			http.ServeFile(w, r, filepath.Join(staticDir, "index.html"))
			return
		}
		fileServer.ServeHTTP(w, r)
	})
}
