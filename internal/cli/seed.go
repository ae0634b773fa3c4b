package cli

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Mmartinrusso/Orvit-sub062/internal/app"
)

// SeedCmd returns the seed command
func SeedCmd() *cobra.Command {
	var createdBy string
	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load demo documents, stock and rules into the tenant",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				report, err := s.app.Seeder.Seed(s.ctx, s.tenant, createdBy)
				if errors.Is(err, app.ErrAlreadySeeded) {
					fmt.Fprintf(s.out, "Tenant %s already has demo data\n", s.tenant)
					return nil
				}
				if err != nil {
					return fmt.Errorf("failed to seed: %w", err)
				}

				ids := make([]string, len(report.Documents))
				for i, doc := range report.Documents {
					ids[i] = doc.ID
				}
				fmt.Fprintf(s.out, "✓ Seeded tenant %s: %s\n", s.tenant, strings.Join(ids, ", "))
				if len(report.Routed) > 0 {
					fmt.Fprintf(s.out, "  Awaiting approval: %s\n", strings.Join(report.Routed, ", "))
				}
				fmt.Fprintln(s.out)
				fmt.Fprintln(s.out, "Next steps:")
				fmt.Fprintln(s.out, "  doclife apply LO LO-0001 confirm")
				fmt.Fprintln(s.out, "  doclife apply LO LO-0001 dispatch")
				fmt.Fprintln(s.out, "  doclife doc show DEL-0001")
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&createdBy, "created-by", "seed", "Actor recorded as creator of the demo documents")
	return cmd
}
