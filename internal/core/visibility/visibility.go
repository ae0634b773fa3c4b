// Package visibility restricts which documents a caller may read.
// Every read path, including the ones guards use internally, goes through
// Filter so that no query can observe documents outside the caller's scope.
package visibility

import (
	"slices"

	sq "github.com/Masterminds/squirrel"

	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
)

// PermCrossScope grants a Standard-scope caller access to Extended documents.
const PermCrossScope = "visibility.cross_scope"

// Allowed returns the scopes the actor may read.
// Standard callers see Standard documents only; Extended callers, and
// Standard callers holding PermCrossScope, see both.
func Allowed(actor lifecycle.Actor) []lifecycle.Scope {
	if actor.Scope == lifecycle.ScopeExtended || actor.Has(PermCrossScope) {
		return []lifecycle.Scope{lifecycle.ScopeStandard, lifecycle.ScopeExtended}
	}
	return []lifecycle.Scope{lifecycle.ScopeStandard}
}

// CanSee reports whether the actor may read a document tagged scope.
func CanSee(actor lifecycle.Actor, scope lifecycle.Scope) bool {
	return slices.Contains(Allowed(actor), scope)
}

// Filter restricts a document query to the given scopes.
// An empty scope list matches nothing.
func Filter(query sq.SelectBuilder, column string, scopes []lifecycle.Scope) sq.SelectBuilder {
	if len(scopes) == 0 {
		return query.Where(sq.Expr("1 = 0"))
	}
	values := make([]string, len(scopes))
	for i, s := range scopes {
		values[i] = string(s)
	}
	return query.Where(sq.Eq{column: values})
}
