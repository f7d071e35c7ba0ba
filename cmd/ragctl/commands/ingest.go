package commands

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/smartassist-rag/internal/services"
)

var (
	ingestID            string
	ingestType          string
	ingestStoreInFolder bool
)

// NewIngestCmd creates the ingest command.
func NewIngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Index a local file",
		Long: `Extract, chunk and embed a local PDF, DOCX or plain-text file, replacing
any chunks already stored under the same document id.

Examples:
  ragctl ingest handbook.pdf --id student-handbook
  ragctl ingest notes --type text/plain
  ragctl ingest timetable.docx --store-in-folder`,
		Args: cobra.ExactArgs(1),
		RunE: runIngest,
	}

	cmd.Flags().StringVar(&ingestID, "id", "", "Document id (default: a new UUID; not allowed with --store-in-folder)")
	cmd.Flags().StringVar(&ingestType, "type", "", "Content type (default: from the file extension)")
	cmd.Flags().BoolVar(&ingestStoreInFolder, "store-in-folder", false, "Also upload the file to the external folder")

	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := args[0]
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading %s: %w", path, err)
	}

	return withServices(cmd, func(ctx context.Context, svc *Services) error {
		res, err := svc.Documents.Upload(ctx, services.UploadRequest{
			Filename:      path,
			ContentType:   ingestType,
			DocumentID:    ingestID,
			Data:          data,
			StoreInFolder: ingestStoreInFolder,
		})
		if err != nil {
			return fmt.Errorf("ingesting %s: %w", path, err)
		}

		if outputFormat == "json" {
			return printJSON(cmd.OutOrStdout(), res)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Ingested %s as %s (%d chunks)\n", path, res.DocumentID, res.ChunkCount)
		return nil
	})
}
