package admin

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/custodia/internal/core"
)

// PurgeConnectorAssets deletes every asset a connector created.
// This is a destructive operation - use with caution. Manual and imported
// assets are refused.
func PurgeConnectorAssets(ctx context.Context, store core.Store, connectorName string) (int64, error) {
	switch connectorName {
	case "":
		return 0, core.NewValidationError("a connector name is required", "connector")
	case core.ProvenanceManual, core.ProvenanceImport:
		return 0, fmt.Errorf("refusing to purge %s assets: %w", connectorName, core.ErrForbidden)
	}

	n, err := store.DeleteAssetsByProvenance(ctx, connectorName)
	if err != nil {
		return 0, fmt.Errorf("purge %s assets: %w", connectorName, err)
	}
	core.LogAudit(ctx, store, core.AuditLogParams{
		Action:       core.ActionAssetDelete,
		Subject:      connectorName,
		Detail:       "connector assets purged",
		RowsAffected: int(n),
	})
	return n, nil
}
