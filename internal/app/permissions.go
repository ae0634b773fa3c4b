package app

import (
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/guard"
	"github.com/Mmartinrusso/Orvit-sub062/internal/core/lifecycle"
)

// Administrative permissions. Transition permissions live in the registry.
const (
	PermPeriodClose     = "period.close"
	PermConfigManage    = "config.manage"
	PermInventoryAdjust = "inventory.adjust"
)

// requirePermission runs the permission guard for an administrative operation.
func requirePermission(actor lifecycle.Actor, operation, permission string) error {
	res := guard.CheckPermission(guard.PermissionContext{
		Edge:       operation,
		Permission: permission,
		Actor:      actor,
	})
	if !res.Allowed {
		return res.Error()
	}
	return nil
}
