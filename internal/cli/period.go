package cli

import (
	"github.com/spf13/cobra"
)

// PeriodCmd returns the period command
func PeriodCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "period",
		Short: "Close and reopen accounting periods",
		Long: `Periods are keyed YYYY-MM (UTC). While a period is closed, no transition
whose effective date falls inside it is accepted.`,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "close PERIOD",
		Short: "Close a period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				return s.admin().ClosePeriod(s.ctx, s.tenant, s.actor, args[0])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "reopen PERIOD",
		Short: "Reopen a closed period",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				return s.admin().ReopenPeriod(s.ctx, s.tenant, s.actor, args[0])
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "status PERIOD",
		Short: "Show whether a period is closed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				_, err := s.admin().PeriodStatus(s.ctx, s.tenant, args[0])
				return err
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List periods that were ever closed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				_, err := s.admin().ListPeriods(s.ctx, s.tenant)
				return err
			})
		},
	})
	return cmd
}
