package cli

import (
	"time"

	"github.com/spf13/cobra"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
)

// RuleCmd returns the rule command
func RuleCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "rule",
		Short: "Manage approval routing rules",
	}

	var (
		threshold      int64
		urgency        []string
		requireCatalog bool
	)
	set := &cobra.Command{
		Use:   "set TYPE",
		Short: "Set the approval rule of a document type",
		Long: `Set the approval rule consulted when a document of TYPE is created.
Documents above --threshold, or with an urgency in --urgency, start in the
approval state. A zero threshold disables amount routing.`,
		Example: "  doclife rule set PR --threshold 100000 --urgency URGENTE",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				docType, err := parseDocType(s.app, args[0])
				if err != nil {
					return err
				}
				return s.admin().SetRule(s.ctx, s.actor, lifecycle.ApprovalRule{
					TenantID:                s.tenant,
					DocumentType:            docType,
					ThresholdAmount:         threshold,
					UrgencyTriggers:         urgency,
					RequireCatalogReference: requireCatalog,
				})
			})
		},
	}
	set.Flags().Int64Var(&threshold, "threshold", 0, "Amount above which documents need approval")
	set.Flags().StringSliceVar(&urgency, "urgency", nil, "Urgency labels that always need approval")
	set.Flags().BoolVar(&requireCatalog, "require-catalog", false, "Require a catalog reference on every line")
	cmd.AddCommand(set)

	cmd.AddCommand(&cobra.Command{
		Use:   "show TYPE",
		Short: "Show the approval rule of a document type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				docType, err := parseDocType(s.app, args[0])
				if err != nil {
					return err
				}
				_, err = s.admin().ShowRule(s.ctx, s.tenant, docType)
				return err
			})
		},
	})
	return cmd
}

// DuplicatePolicyCmd returns the duplicate-policy command
func DuplicatePolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "duplicate-policy",
		Short: "Manage duplicate detection",
	}

	var (
		window time.Duration
		cutoff float64
	)
	set := &cobra.Command{
		Use:     "set TYPE",
		Short:   "Set the duplicate policy of a document type",
		Example: "  doclife duplicate-policy set WO --window 24h --cutoff 0.9",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				docType, err := parseDocType(s.app, args[0])
				if err != nil {
					return err
				}
				return s.admin().SetPolicy(s.ctx, s.actor, lifecycle.DuplicatePolicy{
					TenantID:     s.tenant,
					DocumentType: docType,
					Window:       window,
					Cutoff:       cutoff,
				})
			})
		},
	}
	set.Flags().DurationVar(&window, "window", 48*time.Hour, "How far back to look for similar open documents")
	set.Flags().Float64Var(&cutoff, "cutoff", 0.85, "Similarity score at or above which a document is a duplicate")
	cmd.AddCommand(set)

	cmd.AddCommand(&cobra.Command{
		Use:   "show TYPE",
		Short: "Show the effective duplicate policy of a document type",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withSession(cmd, func(s *session) error {
				docType, err := parseDocType(s.app, args[0])
				if err != nil {
					return err
				}
				_, err = s.admin().ShowPolicy(s.ctx, s.tenant, docType)
				return err
			})
		},
	})
	return cmd
}
