// Package cli implements the doclife commands. Each command loads the
// configuration of the working directory, wires the services, runs one
// operation through the CLI adapters and closes everything again.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	clia "github.com/Mmartinrusso/Orvit-sub062/internal/adapters/cli"
	"github.com/Mmartinrusso/Orvit-sub062/internal/app"
	"github.com/Mmartinrusso/Orvit-sub062/internal/config"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
	"github.com/Mmartinrusso/Orvit-sub062/internal/ctxutil"
	"github.com/Mmartinrusso/Orvit-sub062/internal/logging"
	"github.com/Mmartinrusso/Orvit-sub062/internal/wire"
)

// AddCallerFlags registers the flags every command reads to identify the
// caller. The CLI trusts them; a deployment behind an authentication layer
// builds the Actor from verified credentials instead.
func AddCallerFlags(root *cobra.Command) {
	flags := root.PersistentFlags()
	flags.String("dir", ".", "Directory holding .doclife/config.json")
	flags.String("tenant", "", "Tenant ID (defaults to the configured tenant)")
	flags.String("actor", "", "Acting user ID (defaults to the configured actor or $USER)")
	flags.StringSlice("perm", nil, "Permission held by the actor (repeatable; default: all permissions)")
	flags.String("scope", "", "Visibility scope of the actor: STANDARD or EXTENDED")
}

// session is everything one command invocation needs.
type session struct {
	ctx    context.Context
	app    *wire.App
	tenant string
	actor  lifecycle.Actor
	out    io.Writer
}

func (s *session) documents() *clia.DocumentAdapter {
	transitions := app.RetryingTransitions{TransitionService: s.app.Transitions, Policy: app.DefaultRetryPolicy}
	return clia.NewDocumentAdapter(transitions, s.app.Documents, s.app.Audit, s.out)
}

func (s *session) admin() *clia.AdminAdapter {
	return clia.NewAdminAdapter(s.app.Periods, s.app.Configs, s.app.Inventory, s.out)
}

// loadConfig reads the configuration of the --dir directory.
func loadConfig(cmd *cobra.Command) (string, *config.Config, error) {
	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		dir = "."
	}
	cfg, err := config.LoadConfig(dir)
	if err != nil {
		return "", nil, fmt.Errorf("failed to load config: %w", err)
	}
	return dir, cfg, nil
}

// withSession wires the application for one command and closes it afterwards.
func withSession(cmd *cobra.Command, fn func(s *session) error) (err error) {
	_, cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	logger := logging.New(logging.Config{
		Level:   cfg.LogLevel,
		Format:  cfg.LogFormat,
		Service: "doclife",
		Output:  cmd.ErrOrStderr(),
	})

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := wire.New(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		err = errors.Join(err, a.Close())
	}()

	s := &session{app: a, out: cmd.OutOrStdout()}
	s.tenant, _ = cmd.Flags().GetString("tenant")
	if s.tenant == "" {
		s.tenant = cfg.Tenant
	}
	if s.actor, err = callerActor(cmd, a); err != nil {
		return err
	}
	s.ctx = ctxutil.WithRequestID(ctxutil.WithActorID(ctx, s.actor.ID), uuid.NewString())
	return fn(s)
}

// callerActor builds the Actor from the caller flags. Without --perm the
// actor holds every permission and sees both scopes.
func callerActor(cmd *cobra.Command, a *wire.App) (lifecycle.Actor, error) {
	flags := cmd.Flags()
	id, _ := flags.GetString("actor")
	if id == "" {
		id = a.Config.Actor
	}
	if id == "" {
		id = os.Getenv("USER")
	}
	if id == "" {
		id = "cli"
	}

	perms, _ := flags.GetStringSlice("perm")
	scopeFlag, _ := flags.GetString("scope")
	if len(perms) == 0 {
		perms = app.AllPermissions(a.Registry)
		if scopeFlag == "" {
			scopeFlag = string(lifecycle.ScopeExtended)
		}
	}
	scope, err := lifecycle.ParseScope(scopeFlag)
	if err != nil {
		return lifecycle.Actor{}, err
	}
	return lifecycle.Actor{ID: id, Permissions: perms, Scope: scope}, nil
}

var typeAliases = map[string]lifecycle.DocumentType{
	"PR":  lifecycle.TypePurchaseRequest,
	"LO":  lifecycle.TypeLoadOrder,
	"DEL": lifecycle.TypeDelivery,
	"CN":  lifecycle.TypeCreditNoteRequest,
	"WO":  lifecycle.TypeWorkOrder,
}

// parseDocType accepts a registered type name in any case, with dashes or
// underscores, or one of its short aliases (PR, LO, DEL, CN, WO).
func parseDocType(a *wire.App, s string) (lifecycle.DocumentType, error) {
	name := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	if t, ok := typeAliases[name]; ok {
		return t, nil
	}
	t := lifecycle.DocumentType(name)
	if _, ok := a.Registry.Spec(t); !ok {
		return "", fmt.Errorf("unknown document type %q", s)
	}
	return t, nil
}
