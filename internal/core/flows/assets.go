package flows

import (
	"context"
	"errors"
	"fmt"

	"github.com/JonMunkholm/custodia/internal/core"
)

// AssetsKey identifies the asset import flow.
const AssetsKey = "assets"

func init() {
	registerAssets()
}

func registerAssets() {
	core.RegisterFlow(core.FlowDefinition{
		Info: core.FlowInfo{
			Key:         AssetsKey,
			Label:       "Assets",
			Description: "Import assets and link them to existing custodians by name.",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "name", Label: "Asset", Required: true, Aliases: []string{"base", "nome", "database"}},
			{Name: "environment", Label: "Environment", Aliases: []string{"ambiente"}},
			{Name: "description", Label: "Description", Aliases: []string{"descricao"}},
			{Name: "primary", Label: "Primary custodian", Required: true, Aliases: []string{"gestor", "titular", "custodian"}},
			{Name: "backup1", Label: "First backup", Aliases: []string{"substituto1", "sub1"}},
			{Name: "backup2", Label: "Second backup", Aliases: []string{"substituto2", "sub2"}},
		},
		Prepare: prepareAsset,
		Commit:  commitAssets,
	})
}

// resolveCustodian returns the id of the custodian named name, or nil when
// no custodian matches.
func resolveCustodian(ctx context.Context, s core.Store, name string) (*int64, error) {
	c, err := s.FindCustodianByName(ctx, name)
	if errors.Is(err, core.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find custodian %q: %w", name, err)
	}
	return &c.ID, nil
}

func prepareAsset(ctx context.Context, s core.Store, v map[string]string) (any, string, error) {
	name, primaryName := v["name"], v["primary"]
	if name == "" || primaryName == "" {
		return nil, "row skipped: missing asset name or primary custodian", nil
	}

	primary, err := resolveCustodian(ctx, s, primaryName)
	if err != nil {
		return nil, "", err
	}
	if primary == nil {
		return nil, fmt.Sprintf("custodian '%s' not found", primaryName), nil
	}

	var backup1, backup2 *int64
	if b := v["backup1"]; b != "" {
		if backup1, err = resolveCustodian(ctx, s, b); err != nil {
			return nil, "", err
		}
		if backup1 == nil {
			return nil, fmt.Sprintf("first backup '%s' not found", b), nil
		}
	}
	if b := v["backup2"]; b != "" {
		if backup2, err = resolveCustodian(ctx, s, b); err != nil {
			return nil, "", err
		}
		if backup2 == nil {
			return nil, fmt.Sprintf("second backup '%s' not found", b), nil
		}
	}

	if backup1 != nil && backup2 != nil && *backup1 == *backup2 {
		return nil, "backups must be different people", nil
	}
	if (backup1 != nil && *backup1 == *primary) || (backup2 != nil && *backup2 == *primary) {
		return nil, "primary custodian cannot repeat a backup", nil
	}

	return core.Asset{
		Name:        name,
		Environment: core.StrPtr(v["environment"]),
		Description: core.StrPtr(v["description"]),
		PrimaryID:   primary,
		Backup1ID:   backup1,
		Backup2ID:   backup2,
		Provenance:  core.ProvenanceImport,
	}, "", nil
}

func commitAssets(ctx context.Context, s core.Store, records []any) (int, error) {
	batch := make([]core.Asset, 0, len(records))
	for _, r := range records {
		a, ok := r.(core.Asset)
		if !ok {
			return 0, fmt.Errorf("unexpected record type %T", r)
		}
		batch = append(batch, a)
	}
	return s.CreateAssets(ctx, batch)
}
