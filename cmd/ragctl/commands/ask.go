package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/markdave123-py/smartassist-rag/internal/models"
)

// NewAskCmd creates the ask command.
func NewAskCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <message>",
		Short: "Ask a question or make a booking request",
		Long: `Answer a question from the indexed documents, or turn a booking
message into a booking request.

Examples:
  ragctl ask "When does the computer lab close?"
  ragctl ask "Book LT1 this Friday from 2pm to 4pm for my ML project"`,
		Args: cobra.MinimumNArgs(1),
		RunE: runAsk,
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	message := strings.Join(args, " ")

	return withServices(cmd, func(ctx context.Context, svc *Services) error {
		res, err := svc.Query.Answer(ctx, message)
		if err != nil {
			return fmt.Errorf("answering: %w", err)
		}

		out := cmd.OutOrStdout()
		if outputFormat == "json" {
			return printJSON(out, res)
		}

		fmt.Fprintln(out, res.Answer)
		switch res.Type {
		case models.AnswerTypeBookingRequest:
			p := res.Params
			fmt.Fprintf(out, "\nroom: %s\ndate: %s\ntime: %s - %s\nreason: %s\n", p.RoomName, p.Date, p.StartTime, p.EndTime, p.Reason)
		case models.AnswerTypeBookingIncomplete:
			fmt.Fprintf(out, "\nmissing: %s\n", strings.Join(res.Missing, ", "))
		}
		if len(res.Citations) > 0 {
			fmt.Fprintln(out, "\nSources:")
			for i, c := range res.Citations {
				fmt.Fprintf(out, "  [%d] %s (%.3f) %s\n", i+1, c.DocumentID, c.Score, truncate(c.Excerpt, 60))
			}
		}
		return nil
	})
}
