package extraction

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/JonMunkholm/custodia/internal/connector"
	"github.com/JonMunkholm/custodia/internal/core"
)

// ReconcileOptions scopes one reconciliation pass.
type ReconcileOptions struct {
	Connector   string
	Mode        core.RunMode
	JobID       int64
	CustodianID int64
}

// ReconcileResult summarizes a reconciliation pass.
type ReconcileResult struct {
	Imported int
	Errors   []string
	Deleted  int64
}

// Reconciler applies a metadata snapshot to the asset store.
type Reconciler struct {
	store core.Store
}

// NewReconciler creates a Reconciler.
func NewReconciler(store core.Store) *Reconciler {
	return &Reconciler{store: store}
}

// Reconcile upserts one asset per row. Assets owned by another provenance are
// never overwritten; each such row is reported as an error instead. Store
// failures abort the pass.
func (r *Reconciler) Reconcile(ctx context.Context, rows []connector.MetadataRow, opts ReconcileOptions) (*ReconcileResult, error) {
	res := &ReconcileResult{Errors: []string{}}

	if opts.Mode == core.ModeFull {
		n, err := r.store.DeleteAssetsByProvenance(ctx, opts.Connector)
		if err != nil {
			return nil, fmt.Errorf("purge %s assets: %w", opts.Connector, err)
		}
		res.Deleted = n
	}

	jobID := opts.JobID
	custodianID := opts.CustodianID
	for _, row := range rows {
		name := strings.TrimSpace(row.DatabaseName)
		desc := core.StrPtr(strings.TrimSpace(row.CommentString))
		if name == "" {
			res.Errors = append(res.Errors, "row skipped: missing database name")
			continue
		}

		existing, err := r.store.FindAssetByName(ctx, name)
		switch {
		case errors.Is(err, core.ErrNotFound):
			_, err = r.store.CreateAsset(ctx, core.Asset{
				Name:        name,
				Description: desc,
				PrimaryID:   &custodianID,
				Provenance:  opts.Connector,
				SourceJobID: &jobID,
			})
			if err != nil {
				return nil, fmt.Errorf("insert asset %q: %w", name, err)
			}

		case err != nil:
			return nil, fmt.Errorf("find asset %q: %w", name, err)

		case existing.Provenance != "" && existing.Provenance != opts.Connector:
			owned := &core.OwnershipError{Asset: name, Provenance: existing.Provenance}
			res.Errors = append(res.Errors, owned.Error())
			continue

		default:
			existing.Description = desc
			existing.PrimaryID = &custodianID
			existing.Provenance = opts.Connector
			existing.SourceJobID = &jobID
			if _, err := r.store.UpdateAsset(ctx, existing); err != nil {
				return nil, fmt.Errorf("update asset %q: %w", name, err)
			}
		}
		res.Imported++
	}
	return res, nil
}
