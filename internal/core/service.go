package core

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Service provides record administration on top of a Store.
type Service struct {
	store         Store
	adminUsername string
}

// ServiceOptions configures a Service.
type ServiceOptions struct {
	// AdminUsername names the seeded account that can never be deleted.
	AdminUsername string
}

// NewService creates a new Service instance.
func NewService(store Store, opts ServiceOptions) *Service {
	return &Service{store: store, adminUsername: opts.AdminUsername}
}

// CustodianInput holds the editable custodian fields.
type CustodianInput struct {
	Name    string `json:"name"`
	OrgUnit string `json:"org_unit"`
	SubUnit string `json:"sub_unit"`
	Email   string `json:"email"`
}

func (in CustodianInput) normalize() (Custodian, error) {
	c := Custodian{
		Name:    strings.TrimSpace(in.Name),
		OrgUnit: strings.TrimSpace(in.OrgUnit),
		SubUnit: strings.TrimSpace(in.SubUnit),
		Email:   strings.TrimSpace(in.Email),
	}
	var missing []string
	for _, f := range []struct{ name, v string }{
		{"name", c.Name}, {"org_unit", c.OrgUnit}, {"sub_unit", c.SubUnit}, {"email", c.Email},
	} {
		if f.v == "" {
			missing = append(missing, f.name)
		}
	}
	if len(missing) > 0 {
		return Custodian{}, NewValidationError("fill in every custodian field", missing...)
	}
	return c, nil
}

// ListCustodians returns custodians ordered by name, filtered by term when set.
// The term matches name, org unit, sub-unit or email as a substring.
func (s *Service) ListCustodians(ctx context.Context, term string) ([]Custodian, error) {
	all, err := s.store.ListCustodians(ctx)
	if err != nil {
		return nil, fmt.Errorf("list custodians: %w", err)
	}
	term = strings.TrimSpace(term)
	if term == "" {
		return all, nil
	}
	var out []Custodian
	for _, c := range all {
		if containsFold(c.Name, term) || containsFold(c.OrgUnit, term) ||
			containsFold(c.SubUnit, term) || containsFold(c.Email, term) {
			out = append(out, c)
		}
	}
	return out, nil
}

// GetCustodian returns one custodian.
func (s *Service) GetCustodian(ctx context.Context, id int64) (Custodian, error) {
	return s.store.GetCustodian(ctx, id)
}

// CreateCustodian validates and inserts a custodian.
func (s *Service) CreateCustodian(ctx context.Context, in CustodianInput) (Custodian, error) {
	c, err := in.normalize()
	if err != nil {
		return Custodian{}, err
	}
	return s.store.CreateCustodian(ctx, c)
}

// UpdateCustodian validates and replaces a custodian's fields.
func (s *Service) UpdateCustodian(ctx context.Context, id int64, in CustodianInput) (Custodian, error) {
	c, err := in.normalize()
	if err != nil {
		return Custodian{}, err
	}
	c.ID = id
	return s.store.UpdateCustodian(ctx, c)
}

// DeleteCustodian removes a custodian unless an asset still references it.
func (s *Service) DeleteCustodian(ctx context.Context, id int64) error {
	c, err := s.store.GetCustodian(ctx, id)
	if err != nil {
		return err
	}
	refs, err := s.store.CountCustodianReferences(ctx, id)
	if err != nil {
		return fmt.Errorf("count references: %w", err)
	}
	if refs > 0 {
		return fmt.Errorf("custodian %d linked to %d assets: %w", id, refs, ErrCustodianInUse)
	}
	if err := s.store.DeleteCustodian(ctx, id); err != nil {
		return err
	}
	LogAudit(ctx, s.store, AuditLogParams{
		Action:       ActionCustodianDelete,
		Subject:      c.Name,
		RowsAffected: 1,
	})
	return nil
}

// AssetInput holds the editable asset fields.
type AssetInput struct {
	Name        string `json:"name"`
	Environment string `json:"environment"`
	Description string `json:"description"`
	PrimaryID   *int64 `json:"primary_id"`
	Backup1ID   *int64 `json:"backup1_id"`
	Backup2ID   *int64 `json:"backup2_id"`
}

func (s *Service) validateAsset(ctx context.Context, in AssetInput) (Asset, error) {
	a := Asset{
		Name:        strings.TrimSpace(in.Name),
		Environment: StrPtr(strings.TrimSpace(in.Environment)),
		Description: StrPtr(strings.TrimSpace(in.Description)),
		PrimaryID:   in.PrimaryID,
		Backup1ID:   in.Backup1ID,
		Backup2ID:   in.Backup2ID,
	}
	if a.Name == "" {
		return Asset{}, NewValidationError("asset name is required", "name")
	}
	if a.PrimaryID == nil {
		return Asset{}, NewValidationError("select a primary custodian", "primary_id")
	}

	for _, ref := range []struct {
		field string
		id    *int64
	}{{"primary_id", a.PrimaryID}, {"backup1_id", a.Backup1ID}, {"backup2_id", a.Backup2ID}} {
		if ref.id == nil {
			continue
		}
		if _, err := s.store.GetCustodian(ctx, *ref.id); err != nil {
			if errors.Is(err, ErrNotFound) {
				return Asset{}, NewValidationError("custodian not found", ref.field)
			}
			return Asset{}, err
		}
	}

	if a.Backup1ID != nil && a.Backup2ID != nil && *a.Backup1ID == *a.Backup2ID {
		return Asset{}, NewValidationError("backups must be different people", "backup1_id", "backup2_id")
	}
	if (a.Backup1ID != nil && *a.Backup1ID == *a.PrimaryID) || (a.Backup2ID != nil && *a.Backup2ID == *a.PrimaryID) {
		return Asset{}, NewValidationError("primary custodian cannot repeat a backup", "primary_id")
	}
	return a, nil
}

// ListAssets returns all assets, newest first.
func (s *Service) ListAssets(ctx context.Context) ([]Asset, error) {
	return s.store.ListAssets(ctx)
}

// GetAsset returns one asset.
func (s *Service) GetAsset(ctx context.Context, id int64) (Asset, error) {
	return s.store.GetAsset(ctx, id)
}

// CreateAsset validates and inserts a manually entered asset.
func (s *Service) CreateAsset(ctx context.Context, in AssetInput) (Asset, error) {
	a, err := s.validateAsset(ctx, in)
	if err != nil {
		return Asset{}, err
	}
	a.Provenance = ProvenanceManual
	return s.store.CreateAsset(ctx, a)
}

// UpdateAsset validates and replaces an asset's editable fields. Provenance
// and source job are preserved.
func (s *Service) UpdateAsset(ctx context.Context, id int64, in AssetInput) (Asset, error) {
	existing, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return Asset{}, err
	}
	a, err := s.validateAsset(ctx, in)
	if err != nil {
		return Asset{}, err
	}
	a.ID = id
	a.Provenance = existing.Provenance
	a.SourceJobID = existing.SourceJobID
	a.CreatedAt = existing.CreatedAt
	return s.store.UpdateAsset(ctx, a)
}

// DeleteAsset removes an asset.
func (s *Service) DeleteAsset(ctx context.Context, id int64) error {
	a, err := s.store.GetAsset(ctx, id)
	if err != nil {
		return err
	}
	if err := s.store.DeleteAsset(ctx, id); err != nil {
		return err
	}
	LogAudit(ctx, s.store, AuditLogParams{Action: ActionAssetDelete, Subject: a.Name, RowsAffected: 1})
	return nil
}

// ListAudit returns the most recent audit entries.
func (s *Service) ListAudit(ctx context.Context, limit int) ([]AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.ListAudit(ctx, limit)
}

func containsFold(s, substr string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
