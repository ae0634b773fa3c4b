package cli

import (
	"github.com/spf13/cobra"

	clia "github.com/Mmartinrusso/Orvit-sub062/internal/adapters/cli"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
)

// RegistryCmd returns the registry command
func RegistryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "registry [TYPE]",
		Short: "Show the document state machines",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				var docType lifecycle.DocumentType
				if len(args) == 1 {
					t, err := parseDocType(s.app, args[0])
					if err != nil {
						return err
					}
					docType = t
				}
				return clia.NewRegistryAdapter(s.app.Registry, s.out).Show(docType)
			})
		},
	}
}
