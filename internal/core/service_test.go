package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/custodia/internal/core"
	"github.com/JonMunkholm/custodia/internal/memstore"
)

func newService(t *testing.T) (*core.Service, *memstore.Store) {
	t.Helper()
	store := memstore.New()
	return core.NewService(store, core.ServiceOptions{AdminUsername: "admin"}), store
}

func mustCustodian(t *testing.T, svc *core.Service, name, sub string) core.Custodian {
	t.Helper()
	c, err := svc.CreateCustodian(context.Background(), core.CustodianInput{
		Name: name, OrgUnit: "SEF", SubUnit: sub, Email: name + "@example.gov",
	})
	require.NoError(t, err)
	return c
}

func TestService_CreateCustodianValidation(t *testing.T) {
	svc, _ := newService(t)

	_, err := svc.CreateCustodian(context.Background(), core.CustodianInput{Name: "  Ana ", OrgUnit: "SEF"})
	require.Error(t, err)
	assert.True(t, core.IsValidation(err))

	var ve *core.ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, []string{"sub_unit", "email"}, ve.Fields)

	c := mustCustodian(t, svc, "Ana", "DTI")
	assert.NotZero(t, c.ID)
}

func TestService_ListCustodiansFilter(t *testing.T) {
	svc, _ := newService(t)
	mustCustodian(t, svc, "Bruno", "DTI")
	mustCustodian(t, svc, "Ana", "GOV")

	all, err := svc.ListCustodians(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "Ana", all[0].Name)

	filtered, err := svc.ListCustodians(context.Background(), "dti")
	require.NoError(t, err)
	require.Len(t, filtered, 1)
	assert.Equal(t, "Bruno", filtered[0].Name)
}

func TestService_DeleteCustodianInUse(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	ana := mustCustodian(t, svc, "Ana", "DTI")

	a, err := svc.CreateAsset(ctx, core.AssetInput{Name: "db1", PrimaryID: &ana.ID})
	require.NoError(t, err)

	err = svc.DeleteCustodian(ctx, ana.ID)
	assert.ErrorIs(t, err, core.ErrCustodianInUse)

	require.NoError(t, svc.DeleteAsset(ctx, a.ID))
	require.NoError(t, svc.DeleteCustodian(ctx, ana.ID))

	_, err = svc.GetCustodian(ctx, ana.ID)
	assert.ErrorIs(t, err, core.ErrNotFound)

	audit, err := svc.ListAudit(ctx, 10)
	require.NoError(t, err)
	require.Len(t, audit, 2)
	assert.Equal(t, core.ActionCustodianDelete, audit[0].Action)
	assert.Equal(t, core.ActionAssetDelete, audit[1].Action)
}

func TestService_AssetValidation(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	ana := mustCustodian(t, svc, "Ana", "DTI")
	bruno := mustCustodian(t, svc, "Bruno", "DTI")
	missing := int64(9999)

	tests := []struct {
		name  string
		input core.AssetInput
		field string
	}{
		{"missing name", core.AssetInput{PrimaryID: &ana.ID}, "name"},
		{"missing primary", core.AssetInput{Name: "db"}, "primary_id"},
		{"unknown custodian", core.AssetInput{Name: "db", PrimaryID: &missing}, "primary_id"},
		{"same backups", core.AssetInput{Name: "db", PrimaryID: &ana.ID, Backup1ID: &bruno.ID, Backup2ID: &bruno.ID}, "backup1_id"},
		{"primary repeats backup", core.AssetInput{Name: "db", PrimaryID: &ana.ID, Backup2ID: &ana.ID}, "primary_id"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateAsset(ctx, tt.input)
			var ve *core.ValidationError
			require.ErrorAs(t, err, &ve)
			assert.Contains(t, ve.Fields, tt.field)
		})
	}
}

func TestService_UpdateAssetPreservesProvenance(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	ana := mustCustodian(t, svc, "Ana", "DTI")

	jobID := int64(7)
	created, err := store.CreateAsset(ctx, core.Asset{
		Name: "db1", PrimaryID: &ana.ID, Provenance: "teradata", SourceJobID: &jobID,
	})
	require.NoError(t, err)

	updated, err := svc.UpdateAsset(ctx, created.ID, core.AssetInput{
		Name: "db1", Environment: "prod", PrimaryID: &ana.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, "teradata", updated.Provenance)
	require.NotNil(t, updated.SourceJobID)
	assert.Equal(t, jobID, *updated.SourceJobID)
	assert.Equal(t, "prod", core.Deref(updated.Environment))
}

func TestService_Users(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)

	admin, err := svc.CreateUser(ctx, "admin", "admin")
	require.NoError(t, err)
	maria, err := svc.CreateUser(ctx, "maria", "secret")
	require.NoError(t, err)

	_, err = svc.CreateUser(ctx, "maria", "other")
	assert.ErrorIs(t, err, core.ErrIntegrityConflict)

	_, err = svc.CreateUser(ctx, " ", "x")
	assert.True(t, core.IsValidation(err))

	u, err := svc.Authenticate(ctx, "maria", "secret")
	require.NoError(t, err)
	assert.Equal(t, maria.ID, u.ID)

	_, err = svc.Authenticate(ctx, "maria", "wrong")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)
	_, err = svc.Authenticate(ctx, "nobody", "secret")
	assert.ErrorIs(t, err, core.ErrInvalidCredentials)

	require.NoError(t, svc.ResetPassword(ctx, maria.ID, "new"))
	_, err = svc.Authenticate(ctx, "maria", "new")
	assert.NoError(t, err)

	assert.ErrorIs(t, svc.DeleteUser(ctx, "maria", maria.ID), core.ErrForbidden)
	assert.ErrorIs(t, svc.DeleteUser(ctx, "maria", admin.ID), core.ErrForbidden)
	assert.NoError(t, svc.DeleteUser(ctx, "admin", maria.ID))
}

func TestService_QuickImportCustodians(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	csv := "Gestor;Secretaria;Coordenação;Email\n" +
		"Ana;SEF;DTI;ana@example.gov\n" +
		"Bruno;SEF;;bruno@example.gov\n" +
		"Carla;SEF;GOV;carla@example.gov\n"

	res, err := svc.QuickImportCustodians(ctx, []byte(csv), "people.csv", ";")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Total)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 100, res.Progress)
	assert.Empty(t, res.Errors)

	all, err := store.ListCustodians(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 2)
}

func TestService_QuickImportFallsBackToNome(t *testing.T) {
	svc, _ := newService(t)
	csv := "Nome,Secretaria,Coordenacao,E-mail\nAna,SEF,DTI,ana@example.gov\n"

	res, err := svc.QuickImportCustodians(context.Background(), []byte(csv), "people.csv", ",")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)
}

func seedSearchData(t *testing.T, svc *core.Service) {
	t.Helper()
	ctx := context.Background()
	ana := mustCustodian(t, svc, "Ana", "DTI")
	bruno := mustCustodian(t, svc, "Bruno", "GOV")

	for _, in := range []core.AssetInput{
		{Name: "sales_db", Environment: "prod", Description: "Sales history", PrimaryID: &ana.ID},
		{Name: "sales_stage", Environment: "dev", PrimaryID: &ana.ID},
		{Name: "hr_db", Environment: "prod", PrimaryID: &bruno.ID},
	} {
		_, err := svc.CreateAsset(ctx, in)
		require.NoError(t, err)
	}
}

func TestService_Search(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	seedSearchData(t, svc)

	empty, err := svc.Search(ctx, core.SearchQuery{})
	require.NoError(t, err)
	assert.Empty(t, empty.Results)
	assert.Equal(t, []string{"dev", "prod"}, empty.Options.Environments)
	assert.Equal(t, []string{"Ana", "Bruno"}, empty.Options.Custodians)
	assert.Equal(t, []string{core.ProvenanceManual}, empty.Options.Provenances)

	res, err := svc.Search(ctx, core.SearchQuery{Term: "SALES", Environment: "prod"})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "sales_db", res.Results[0].Name)
	assert.Equal(t, "Ana", res.Results[0].PrimaryName)

	res, err = svc.Search(ctx, core.SearchQuery{Custodian: "bru"})
	require.NoError(t, err)
	require.Len(t, res.Results, 1)
	assert.Equal(t, "hr_db", res.Results[0].Name)
}

func TestService_Suggest(t *testing.T) {
	ctx := context.Background()
	svc, _ := newService(t)
	seedSearchData(t, svc)

	got, err := svc.Suggest(ctx, "a")
	require.NoError(t, err)
	assert.Contains(t, got, core.Suggestion{Label: "sales_db", Kind: "asset"})
	assert.Contains(t, got, core.Suggestion{Label: "Ana", Kind: "custodian"})

	none, err := svc.Suggest(ctx, "  ")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestService_Report(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)
	seedSearchData(t, svc)

	_, err := store.CreateAsset(ctx, core.Asset{Name: "orphan", Provenance: "teradata"})
	require.NoError(t, err)

	r, err := svc.Report(ctx)
	require.NoError(t, err)
	assert.Equal(t, 4, r.TotalAssets)
	assert.Equal(t, 2, r.TotalCustodians)
	assert.Equal(t, 3, r.WithPrimary)
	assert.Equal(t, 1, r.WithoutPrimary)
	assert.Equal(t, 75.0, r.CoveragePercent)

	assert.Equal(t, []core.Coverage{
		{Label: "Ana", Total: 2},
		{Label: "Bruno", Total: 1},
		{Label: "No custodian", Total: 1},
	}, r.ByCustodian)
	assert.Equal(t, core.Coverage{Label: "DTI", Total: 2}, r.BySubUnit[0])
	assert.Equal(t, core.Coverage{Label: "prod", Total: 2}, r.ByEnvironment[0])
}

func TestService_ReportEmpty(t *testing.T) {
	svc, _ := newService(t)
	r, err := svc.Report(context.Background())
	require.NoError(t, err)
	assert.Zero(t, r.CoveragePercent)
	assert.Empty(t, r.ByCustodian)
}

func TestService_QuickImportSingleRow(t *testing.T) {
	ctx := context.Background()
	svc, store := newService(t)

	res, err := svc.QuickImportCustodians(ctx, []byte("nome;secretaria;coordenacao;email\nAlice;Finance;Ops;a@x.com\n"), "people.csv", ";")
	require.NoError(t, err)
	assert.Equal(t, 1, res.Imported)

	c, err := store.FindCustodianByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, core.Custodian{ID: c.ID, Name: "Alice", OrgUnit: "Finance", SubUnit: "Ops", Email: "a@x.com", CreatedAt: c.CreatedAt}, c)
}
