package commands

import (
	"context"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"
)

// NewRoomsCmd creates the rooms command.
func NewRoomsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "rooms",
		Short: "List bookable rooms",
		Args:  cobra.NoArgs,
		RunE:  runRooms,
	}
}

func runRooms(cmd *cobra.Command, _ []string) error {
	return withServices(cmd, func(ctx context.Context, svc *Services) error {
		rooms, err := svc.Rooms.SearchRooms(ctx)
		if err != nil {
			return fmt.Errorf("listing rooms: %w", err)
		}

		out := cmd.OutOrStdout()
		if outputFormat == "json" {
			return printJSON(out, rooms)
		}
		if len(rooms) == 0 {
			fmt.Fprintln(out, "No rooms listed.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "NAME\tLOCATION\tCAPACITY\n")
		for _, r := range rooms {
			fmt.Fprintf(w, "%s\t%s\t%d\n", r.Name, r.Location, r.Capacity)
		}
		return w.Flush()
	})
}

// NewDocumentsCmd creates the documents command.
func NewDocumentsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "documents",
		Short: "List indexed documents with their chunk counts",
		Args:  cobra.NoArgs,
		RunE:  runDocuments,
	}
}

func runDocuments(cmd *cobra.Command, _ []string) error {
	return withServices(cmd, func(ctx context.Context, svc *Services) error {
		docs, err := svc.Documents.List(ctx)
		if err != nil {
			return fmt.Errorf("listing documents: %w", err)
		}

		out := cmd.OutOrStdout()
		if outputFormat == "json" {
			return printJSON(out, map[string]any{"documents": docs})
		}
		if len(docs) == 0 {
			fmt.Fprintln(out, "No documents indexed.")
			return nil
		}

		w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "DOCUMENT\tCHUNKS\n")
		for _, d := range docs {
			fmt.Fprintf(w, "%s\t%d\n", d.DocumentID, d.ChunkCount)
		}
		return w.Flush()
	})
}
