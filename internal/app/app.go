// internal/app/app.go
package app

import (
	"context"
	"fmt"
	"io"
	"log"
	"time"

	"github.com/markdave123-py/smartassist-rag/internal/config"
	"github.com/markdave123-py/smartassist-rag/internal/core"
	db "github.com/markdave123-py/smartassist-rag/internal/core/database"
	driveclient "github.com/markdave123-py/smartassist-rag/internal/core/drive-client"
	"github.com/markdave123-py/smartassist-rag/internal/core/events"
	"github.com/markdave123-py/smartassist-rag/internal/core/ingestion_engine"
	"github.com/markdave123-py/smartassist-rag/internal/core/llm"
	objectclient "github.com/markdave123-py/smartassist-rag/internal/core/object-client"
	"github.com/markdave123-py/smartassist-rag/internal/services"
)

// App holds every long-lived component. The HTTP server and ragctl share it.
type App struct {
	DBClient  *db.DatabaseClient
	Events    core.EventPublisher
	LLM       core.LLMProvider
	Ingestor  *ingestion_engine.DocumentIngestor
	Folder    core.FolderSource
	Sync      *services.SyncService
	Booking   *services.BookingService
	Query     *services.QueryService
	Documents *services.DocumentService
	Server    *Server

	closers []io.Closer
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {
	appCtx, cancel := context.WithTimeout(ctx, 5*time.Minute)
	defer cancel()

	dbClient, err := db.NewDatabaseClient(appCtx, cfg)
	if err != nil {
		return nil, err
	}
	log.Println("Database initialized and ready.")

	// Clients built in wire hold on to their context.
	a := &App{DBClient: dbClient}
	if err := a.wire(ctx, cfg); err != nil {
		a.Close()
		return nil, err
	}
	a.Server = NewServer(cfg, a)
	return a, nil
}

func (a *App) wire(ctx context.Context, cfg *config.Config) error {
	backend, err := llm.NewEmbeddingBackend(ctx, cfg)
	if err != nil {
		return fmt.Errorf("couldn't initialize the embedder, %w", err)
	}
	if c, ok := backend.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}
	embedder, err := llm.NewEmbeddingService(backend, cfg.EmbedDim, cfg.EmbedBatchSize, llm.NewEmbeddingCache(ctx, cfg))
	if err != nil {
		return err
	}
	log.Printf("Embedding with %s (%d dimensions).", backend.Model(), cfg.EmbedDim)

	a.LLM, err = llm.NewLLM(ctx, cfg)
	if err != nil {
		return fmt.Errorf("couldn't initialize the llm, %w", err)
	}
	if c, ok := a.LLM.(io.Closer); ok {
		a.closers = append(a.closers, c)
	}

	a.Events = events.NewPublisher(ctx, cfg)

	a.Ingestor, err = ingestion_engine.NewDocumentIngestor(a.DBClient, embedder, ingestion_engine.NewExtractorRegistry(), a.Events, ingestion_engine.IngestConfigFromEnv(cfg))
	if err != nil {
		return err
	}

	a.Folder, err = newFolderSource(ctx, cfg)
	if err != nil {
		return err
	}

	var syncIngestor core.Ingestor = a.Ingestor
	if a.Folder != nil {
		syncIngestor = a.Ingestor.WithSource(a.Folder.Name())
		log.Printf("External folder sync enabled (%s).", a.Folder.Name())
	}

	a.Sync = services.NewSyncService(a.Folder, a.DBClient, syncIngestor)
	a.Booking = services.NewBookingService(a.DBClient, a.LLM)
	a.Query, err = services.NewQueryService(embedder, a.DBClient, a.LLM, a.Booking, cfg.TopK, cfg.ConfidenceThreshold)
	if err != nil {
		return err
	}
	a.Documents = services.NewDocumentService(a.DBClient, a.Folder, a.Ingestor)
	return nil
}

// newFolderSource returns nil when SYNC_SOURCE is none.
func newFolderSource(ctx context.Context, cfg *config.Config) (core.FolderSource, error) {
	switch cfg.SyncSource {
	case config.SyncSourceDrive:
		c, err := driveclient.NewDriveClient(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	case config.SyncSourceS3:
		c, err := objectclient.NewS3Client(ctx, cfg)
		if err != nil {
			return nil, err
		}
		return c, nil
	default:
		return nil, nil
	}
}

func (a *App) Close() {
	if a.Events != nil {
		if err := a.Events.Close(); err != nil {
			log.Printf("WARN: closing event publisher: %v", err)
		}
	}
	for _, c := range a.closers {
		_ = c.Close()
	}
	if a.DBClient != nil {
		_ = a.DBClient.Close()
	}
}
