package cli

import (
	"github.com/spf13/cobra"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ports/primary"
)

// DocCmd returns the doc command
func DocCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "doc",
		Short: "Create and inspect documents",
		Long:  "Create documents through their creation edge and inspect their state, history and side effect records.",
	}
	cmd.AddCommand(docCreateCmd())
	cmd.AddCommand(docShowCmd())
	cmd.AddCommand(docListCmd())
	cmd.AddCommand(docHistoryCmd())
	cmd.AddCommand(docRecordsCmd())
	return cmd
}

func docCreateCmd() *cobra.Command {
	var (
		p      payloadFlags
		reason string
	)
	cmd := &cobra.Command{
		Use:   "create TYPE [ID]",
		Short: "Create a document",
		Long: `Create a document through its type's creation edge. The ID is generated
when omitted. Purchase requests and credit note requests above the tenant's
approval threshold start in their approval state.`,
		Example: `  doclife doc create LO LO-0002 --line ITEM-A:10 --link delivery=DEL-0001
  doclife doc create WO --title "Fuga de aceite" --entity machine=M-01`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				docType, err := parseDocType(s.app, args[0])
				if err != nil {
					return err
				}
				payload, err := p.payload()
				if err != nil {
					return err
				}
				req := primary.CreateRequest{
					TenantID:     s.tenant,
					Actor:        s.actor,
					DocumentType: docType,
					Payload:      payload,
					Reason:       reason,
				}
				if len(args) == 2 {
					req.DocumentID = args[1]
				}
				_, err = s.documents().Create(s.ctx, req)
				return err
			})
		},
	}
	p.register(cmd)
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded in the audit trail")
	return cmd
}

// ApplyCmd returns the apply command
func ApplyCmd() *cobra.Command {
	var (
		p               payloadFlags
		reason          string
		expectedVersion int64
	)
	cmd := &cobra.Command{
		Use:   "apply TYPE ID EDGE",
		Short: "Apply a transition to a document",
		Long: `Traverse the named edge from the document's current state. Concurrent
modifications are retried unless --expected-version pins the version.`,
		Example: `  doclife apply LO LO-0001 confirm
  doclife apply PR PR-0002 approve --reason "presupuesto aprobado"`,
		Args: cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				docType, err := parseDocType(s.app, args[0])
				if err != nil {
					return err
				}
				payload, err := p.payload()
				if err != nil {
					return err
				}
				_, err = s.documents().Apply(s.ctx, primary.ApplyRequest{
					TenantID:        s.tenant,
					Actor:           s.actor,
					DocumentType:    docType,
					DocumentID:      args[1],
					Edge:            args[2],
					Payload:         payload,
					Reason:          reason,
					ExpectedVersion: expectedVersion,
				})
				return err
			})
		},
	}
	p.register(cmd)
	cmd.Flags().StringVar(&reason, "reason", "", "Reason recorded in the audit trail")
	cmd.Flags().Int64Var(&expectedVersion, "expected-version", 0, "Fail unless the document is at this version")
	return cmd
}

func docShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show ID",
		Short: "Show a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				_, err := s.documents().Show(s.ctx, s.tenant, s.actor, args[0])
				return err
			})
		},
	}
}

func docListCmd() *cobra.Command {
	var (
		typeFilter string
		state      string
		limit      int
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List documents",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				filters := primary.DocumentFilters{
					TenantID: s.tenant,
					State:    lifecycle.State(state),
					Limit:    limit,
				}
				if typeFilter != "" {
					docType, err := parseDocType(s.app, typeFilter)
					if err != nil {
						return err
					}
					filters.Type = docType
				}
				_, err := s.documents().List(s.ctx, s.actor, filters)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&typeFilter, "type", "", "Filter by document type")
	cmd.Flags().StringVar(&state, "state", "", "Filter by state")
	cmd.Flags().IntVar(&limit, "limit", 0, "Maximum number of documents")
	return cmd
}

func docHistoryCmd() *cobra.Command {
	var (
		after int64
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history ID",
		Short: "Show a document's transition history",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				_, err := s.documents().History(s.ctx, primary.HistoryRequest{
					TenantID:   s.tenant,
					Actor:      s.actor,
					DocumentID: args[0],
					AfterSeq:   after,
					Limit:      limit,
				})
				return err
			})
		},
	}
	cmd.Flags().Int64Var(&after, "after", 0, "Show events after this sequence number")
	cmd.Flags().IntVar(&limit, "limit", 50, "Maximum number of events")
	return cmd
}

func docRecordsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "records ID",
		Short: "Show the records side effects appended for a document",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				_, err := s.documents().Records(s.ctx, s.tenant, s.actor, args[0])
				return err
			})
		},
	}
}
