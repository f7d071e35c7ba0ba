package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/smartassist-rag/internal/app"
	"github.com/markdave123-py/smartassist-rag/internal/config"
	"github.com/markdave123-py/smartassist-rag/internal/models"
	"github.com/markdave123-py/smartassist-rag/internal/services"
)

var (
	outputFormat string
	verbose      bool
)

// Services is what the commands drive. openServices builds it from the
// environment; tests swap it out.
type Services struct {
	Sync interface {
		Sync(ctx context.Context) (*models.SyncResult, error)
	}
	Documents interface {
		Upload(ctx context.Context, req services.UploadRequest) (*models.IngestResult, error)
		List(ctx context.Context) ([]models.DocumentSummary, error)
	}
	Query interface {
		Answer(ctx context.Context, message string) (*models.AnswerResult, error)
	}
	Rooms interface {
		SearchRooms(ctx context.Context) ([]models.Room, error)
	}
	Close func()
}

var openServices = func(ctx context.Context) (*Services, error) {
	cfg, err := config.LoadConfig()
	if err != nil {
		return nil, err
	}
	if !verbose {
		log.SetOutput(io.Discard)
	}
	a, err := app.NewApp(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("initializing: %w", err)
	}
	return &Services{
		Sync:      a.Sync,
		Documents: a.Documents,
		Query:     a.Query,
		Rooms:     a.Booking,
		Close:     a.Close,
	}, nil
}

// NewRootCmd creates the ragctl command tree.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ragctl",
		Short: "Operate the SmartAssist RAG core without the HTTP server",
		Long: `ragctl runs the RAG core operations directly against the configured
database, embedding backend and external folder.

It reads the same environment (and .env file) as the API server, which
makes "ragctl sync" a good fit for cron-driven folder syncs.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "Output format: text or json")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Show startup logs")

	cmd.AddCommand(
		NewSyncCmd(),
		NewIngestCmd(),
		NewAskCmd(),
		NewRoomsCmd(),
		NewDocumentsCmd(),
	)
	return cmd
}

// Execute runs the root command.
func Execute() error {
	return NewRootCmd().Execute()
}

// withServices opens the services for the duration of fn.
func withServices(cmd *cobra.Command, fn func(ctx context.Context, svc *Services) error) error {
	if outputFormat != "text" && outputFormat != "json" {
		return fmt.Errorf("unknown format %q (want text or json)", outputFormat)
	}
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	svc, err := openServices(ctx)
	if err != nil {
		return err
	}
	if svc.Close != nil {
		defer svc.Close()
	}
	return fn(ctx, svc)
}

func printJSON(w io.Writer, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", data)
	return err
}

// truncate shortens s to maxLen runes, adding "..." if truncated.
func truncate(s string, maxLen int) string {
	runes := []rune(s)
	if len(runes) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(runes[:maxLen])
	}
	return string(runes[:maxLen-3]) + "..."
}
