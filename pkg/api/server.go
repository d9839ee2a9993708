// Package api HowFar archive REST API
//
// @title           HowFar Archive API
// @version         1.0.0
// @description     Upload HowFar flash dumps and query archived measurements.
// @host            localhost:8080
// @BasePath        /api/v1
//
// @securityDefinitions.apikey ApiKeyAuth
// @in              header
// @name            X-API-Key
package api

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/swaggo/swag"
	"golang.org/x/sync/errgroup"
)

const swaggerUI = `<!DOCTYPE html>
<html>
<head>
	 <title>HowFar API Documentation</title>
	 <link rel="stylesheet" type="text/css" href="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui.css" />
</head>
<body>
	 <div id="swagger-ui"></div>
	 <script src="https://unpkg.com/swagger-ui-dist@3.25.0/swagger-ui-bundle.js"></script>
	 <script>
	   window.onload = function() {
	     SwaggerUIBundle({
	       url: '/swagger/swagger.json',
	       dom_id: '#swagger-ui',
	       presets: [
	         SwaggerUIBundle.presets.apis,
	         SwaggerUIBundle.presets.standalone
	       ]
	     });
	   };
	 </script>
</body>
</html>`

// Router builds the HTTP routes
func (s *Server) Router() chi.Router {
	r := chi.NewRouter()

	origins := s.config.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{Logger: s.logger, NoColor: true}))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	// Prometheus metrics endpoint
	r.Handle("/metrics", s.metrics.Handler())

	m := s.metrics
	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/health", m.InstrumentHandler("GET", "/api/v1/health", s.handleHealth))
		r.Get("/stats", m.InstrumentHandler("GET", "/api/v1/stats", s.handleStats))

		r.Get("/captures", m.InstrumentHandler("GET", "/api/v1/captures", s.handleListCaptures))
		r.Get("/captures/{id}", m.InstrumentHandler("GET", "/api/v1/captures/{id}", s.handleGetCapture))
		r.Get("/captures/{id}/raw", m.InstrumentHandler("GET", "/api/v1/captures/{id}/raw", s.handleGetRaw))
		r.Get("/records", m.InstrumentHandler("GET", "/api/v1/records", s.handleRecords))

		// Writes need the API key when one is configured
		r.Group(func(r chi.Router) {
			if s.config.APIKey != "" {
				r.Use(m.InstrumentAuthMiddleware(apiKeyMiddleware(s.config.APIKey)))
			}
			r.Post("/captures", m.InstrumentHandler("POST", "/api/v1/captures", s.handleImport))
			r.Delete("/captures/{id}", m.InstrumentHandler("DELETE", "/api/v1/captures/{id}", s.handleDeleteCapture))
		})
	})

	// Swagger documentation
	r.Get("/swagger/*", func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/swagger/", "/swagger/index.html":
			w.Header().Set("Content-Type", "text/html")
			_, _ = w.Write([]byte(swaggerUI))
		case "/swagger/swagger.json":
			doc, err := swag.ReadDoc(SwaggerInfo.InstanceName())
			if err != nil {
				s.logger.WithError(err).Error("generate swagger doc")
				http.Error(w, "Failed to generate Swagger documentation", http.StatusInternalServerError)
				return
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(doc))
		default:
			http.NotFound(w, r)
		}
	})

	return r
}

// StartServer serves the archive until ctx is cancelled, then shuts down
// gracefully
func StartServer(ctx context.Context, store ArchiveStore, config ServerConfig, metrics *Metrics) error {
	server := NewServer(store, config, metrics)

	addr := net.JoinHostPort(config.Bind, strconv.Itoa(config.Port))
	SwaggerInfo.Host = addr

	httpServer := &http.Server{
		Addr:              addr,
		Handler:           server.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	// A listener failure cancels gctx, which stops the other two
	g, gctx := errgroup.WithContext(ctx)

	// Start background metrics updater
	g.Go(func() error {
		server.startMetricsUpdater(gctx, 30*time.Second)
		return nil
	})

	g.Go(func() error {
		server.logger.WithField("addr", addr).Info("starting HowFar archive API")
		if err := httpServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("serve %s: %w", addr, err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, stop := context.WithTimeout(context.Background(), 5*time.Second)
		defer stop()
		if err := httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		server.logger.Info("server stopped")
		return nil
	})

	return g.Wait()
}
