package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// InventoryCmd returns the inventory command
func InventoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inventory",
		Short: "Inspect and adjust stock levels",
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show stock levels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				_, err := s.admin().ShowStock(s.ctx, s.tenant)
				return err
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "set ITEM QUANTITY",
		Short: "Overwrite the stock level of an item",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			qty, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid quantity %q: %w", args[1], err)
			}
			return withSession(cmd, func(s *session) error {
				return s.admin().SetStock(s.ctx, s.tenant, s.actor, args[0], qty)
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "movements DOCUMENT",
		Short: "Show the stock movements a document caused",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				_, err := s.admin().Movements(s.ctx, s.tenant, args[0])
				return err
			})
		},
	})
	return cmd
}
