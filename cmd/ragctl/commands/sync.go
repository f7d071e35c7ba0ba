package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewSyncCmd creates the sync command.
func NewSyncCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sync",
		Short: "Run one external folder sync pass",
		Long: `Diff the configured external folder (Google Drive or S3) against the
sync log and re-ingest new or changed files.

Examples:
  ragctl sync
  ragctl sync --format json`,
		Args: cobra.NoArgs,
		RunE: runSync,
	}
}

func runSync(cmd *cobra.Command, _ []string) error {
	return withServices(cmd, func(ctx context.Context, svc *Services) error {
		res, err := svc.Sync.Sync(ctx)
		if err != nil {
			return fmt.Errorf("syncing: %w", err)
		}

		out := cmd.OutOrStdout()
		if outputFormat == "json" {
			return printJSON(out, res)
		}
		if res.Reason != "" {
			fmt.Fprintf(out, "Sync %s: %s\n", res.Status, res.Reason)
			return nil
		}

		fmt.Fprintf(out, "Sync %s: %d ingested, %d skipped, %d failed\n",
			res.Status, len(res.Ingested), len(res.Skipped), len(res.Failed))
		if len(res.Ingested)+len(res.Failed) == 0 {
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "RESULT\tFILE\tDETAIL\n")
		for _, f := range res.Ingested {
			fmt.Fprintf(w, "ingested\t%s\t%d chunks\n", f.Name, f.ChunkCount)
		}
		for _, f := range res.Failed {
			fmt.Fprintf(w, "failed\t%s\t%s\n", f.Name, truncate(f.Error, 80))
		}
		return w.Flush()
	})
}
