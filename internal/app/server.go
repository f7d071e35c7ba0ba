package app

import (
	"context"
	"log"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/markdave123-py/smartassist-rag/internal/api/handlers"
	"github.com/markdave123-py/smartassist-rag/internal/config"
)

// Server wraps the HTTP server instance and its handlers.
type Server struct {
	httpServer *http.Server
}

// NewServer builds and wires all routes.
func NewServer(cfg *config.Config, a *App) *Server {
	return &Server{httpServer: &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           NewRouter(a.Documents, a.Sync, a.Query, a.Booking),
		ReadHeaderTimeout: 10 * time.Second,
	}}
}

// NewRouter mounts the RAG routes under /rag and a liveness probe at /health.
func NewRouter(docs handlers.DocumentService, sync handlers.Syncer, query handlers.Answerer, rooms handlers.RoomLister) http.Handler {
	docHandler := handlers.NewDocumentHandler(docs, sync)
	chatHandler := handlers.NewChatHandler(query, rooms)

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)

	r.Get("/health", handlers.Health)

	r.Route("/rag", func(rag chi.Router) {
		rag.Post("/ingest/file", docHandler.IngestFile)
		rag.Get("/ingest/status", docHandler.Status)
		rag.Get("/rooms", chatHandler.Rooms)

		// Sync walks the whole folder and is left without a timeout.
		rag.Post("/ingest/sync", docHandler.Sync)
		rag.With(middleware.Timeout(60*time.Second)).Post("/query", chatHandler.Query)
	})

	return r
}

// Start runs the HTTP server.
func (s *Server) Start() {
	log.Printf("HTTP server listening on %s", s.httpServer.Addr)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Fatalf("server error: %v", err)
	}
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	log.Println("Shutting down HTTP server...")
	return s.httpServer.Shutdown(ctx)
}
