package core_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/JonMunkholm/custodia/internal/core"
	"github.com/JonMunkholm/custodia/internal/core/flows"
	"github.com/JonMunkholm/custodia/internal/memstore"
	"github.com/JonMunkholm/custodia/internal/session"
)

const assetCSV = "Base;Gestor;Ambiente\ndb1;Ana;prod\ndb2;Zé;dev\n"

type wizardFixture struct {
	store    *memstore.Store
	sessions *session.Memory
	wizard   *core.Wizard
	observed []core.ImportResult
}

func newWizardFixture(t *testing.T) *wizardFixture {
	t.Helper()
	f := &wizardFixture{
		store:    memstore.New(),
		sessions: session.NewMemory(session.MemoryOptions{}),
	}
	f.wizard = core.NewWizard(f.sessions, f.store, core.WizardOptions{
		Observer: func(_ string, res core.ImportResult) { f.observed = append(f.observed, res) },
	})
	_, err := f.store.CreateCustodian(context.Background(), core.Custodian{
		Name: "Ana", OrgUnit: "SEF", SubUnit: "DTI", Email: "ana@example.gov",
	})
	require.NoError(t, err)
	return f
}

func (f *wizardFixture) step(t *testing.T, step core.Step, in core.StepInput) *core.StepOutcome {
	t.Helper()
	out, err := f.wizard.Handle(context.Background(), "tok", flows.AssetsKey, step, in)
	require.NoError(t, err)
	return out
}

func (f *wizardFixture) upload(t *testing.T, content string) *core.StepOutcome {
	return f.step(t, core.StepUpload, core.StepInput{Submit: true, File: []byte(content), Filename: "assets.csv"})
}

func TestWizard_FullAssetFlow(t *testing.T) {
	f := newWizardFixture(t)

	out := f.upload(t, assetCSV)
	require.Nil(t, out.Notice)
	assert.Equal(t, core.StepMap, out.Next)
	assert.Equal(t, []string{"Base", "Gestor", "Ambiente"}, out.View.Headers)
	assert.Equal(t, 2, out.View.Total)
	assert.Equal(t, "Base", out.View.Suggested["name"])
	assert.Equal(t, "Gestor", out.View.Suggested["primary"])
	assert.Equal(t, "Ambiente", out.View.Suggested["environment"])

	out = f.step(t, core.StepMap, core.StepInput{Submit: true, Form: map[string]string{
		"map_name": "Base", "map_primary": "Gestor", "map_environment": "Ambiente",
	}})
	assert.Equal(t, core.StepConfirm, out.Next)
	require.Len(t, out.View.Preview, 2)
	assert.Equal(t, "db1", out.View.Preview[0]["name"])
	assert.Equal(t, "", out.View.Preview[0]["backup1"])

	out = f.step(t, core.StepConfirm, core.StepInput{Submit: true})
	assert.Equal(t, core.StepExecute, out.Next)

	out = f.step(t, core.StepExecute, core.StepInput{Submit: true})
	assert.Equal(t, core.StepResult, out.Next)
	require.NotNil(t, out.Notice)
	assert.Equal(t, core.LevelWarning, out.Notice.Level)
	assert.Equal(t, "Import finished: 1 of 2 rows imported.", out.Notice.Message)

	res := out.View.Result
	require.NotNil(t, res)
	assert.Equal(t, 2, res.Total)
	assert.Equal(t, 1, res.Imported)
	assert.Equal(t, 100, res.Progress)
	assert.Equal(t, []string{"custodian 'Zé' not found"}, res.Errors)
	assert.Len(t, f.observed, 1)

	assets, err := f.store.ListAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "db1", assets[0].Name)
	assert.Equal(t, core.ProvenanceImport, assets[0].Provenance)
	assert.Equal(t, "prod", core.Deref(assets[0].Environment))

	out = f.step(t, core.StepResult, core.StepInput{})
	assert.Equal(t, core.StepResult, out.Next)
	assert.Equal(t, 1, out.View.Total, "only accepted rows remain staged")

	audit, err := f.store.ListAudit(context.Background(), 10)
	require.NoError(t, err)
	require.NotEmpty(t, audit)
	assert.Equal(t, core.ActionImport, audit[0].Action)
}

func TestWizard_UploadErrors(t *testing.T) {
	f := newWizardFixture(t)

	out := f.step(t, core.StepUpload, core.StepInput{Submit: true})
	assert.Equal(t, core.StepUpload, out.Next)
	require.NotNil(t, out.Notice)
	assert.Equal(t, "Select a CSV or XLSX file to continue.", out.Notice.Message)

	out = f.step(t, core.StepUpload, core.StepInput{Submit: true, File: []byte("x"), Filename: "notes.pdf"})
	require.NotNil(t, out.Notice)
	assert.Contains(t, out.Notice.Message, "Could not read the file.")

	out = f.upload(t, "Base;Gestor\n")
	require.NotNil(t, out.Notice)
	assert.Equal(t, "No rows found to import.", out.Notice.Message)
}

func TestWizard_MissingRequiredMapping(t *testing.T) {
	f := newWizardFixture(t)
	f.upload(t, assetCSV)

	out := f.step(t, core.StepMap, core.StepInput{Submit: true, Form: map[string]string{"map_name": "Base"}})
	assert.Equal(t, core.StepMap, out.Next)
	require.NotNil(t, out.Notice)
	assert.Equal(t, core.LevelError, out.Notice.Level)
	assert.Equal(t, "Map every required column to continue: Primary custodian.", out.Notice.Message)
}

func TestWizard_StepsWithoutDataReset(t *testing.T) {
	for _, step := range []core.Step{core.StepMap, core.StepConfirm, core.StepExecute, core.StepResult} {
		t.Run(string(step), func(t *testing.T) {
			f := newWizardFixture(t)
			out := f.step(t, step, core.StepInput{Submit: true})
			assert.Equal(t, core.StepUpload, out.Next)
			require.NotNil(t, out.Notice)
			assert.Equal(t, "Upload a file to start the import flow.", out.Notice.Message)
		})
	}
}

func TestWizard_UnknownStepClearsState(t *testing.T) {
	f := newWizardFixture(t)
	f.upload(t, assetCSV)

	out := f.step(t, core.Step("bogus"), core.StepInput{})
	assert.Equal(t, core.StepUpload, out.Next)
	assert.Nil(t, out.Notice)

	st, err := f.sessions.Load(context.Background(), "tok", flows.AssetsKey)
	require.NoError(t, err)
	assert.False(t, st.HasData())
}

func TestWizard_StructuralDrift(t *testing.T) {
	f := newWizardFixture(t)
	f.upload(t, assetCSV)
	f.step(t, core.StepMap, core.StepInput{Submit: true, Form: map[string]string{
		"map_name": "Nome", "map_primary": "Gestor",
	}})

	out := f.step(t, core.StepExecute, core.StepInput{Submit: true})
	require.NotNil(t, out.View.Result)
	assert.Equal(t, 0, out.View.Result.Imported)
	assert.Equal(t, []string{core.ErrStructuralDrift.Error()}, out.View.Result.Errors)
}

func TestWizard_FlowsDoNotShareState(t *testing.T) {
	f := newWizardFixture(t)
	f.upload(t, assetCSV)

	out, err := f.wizard.Handle(context.Background(), "tok", flows.CustodiansKey, core.StepMap, core.StepInput{})
	require.NoError(t, err)
	assert.Equal(t, core.StepUpload, out.Next)

	st, err := f.sessions.Load(context.Background(), "tok", flows.AssetsKey)
	require.NoError(t, err)
	assert.True(t, st.HasData())
}

func TestWizard_UnknownFlow(t *testing.T) {
	f := newWizardFixture(t)
	_, err := f.wizard.Handle(context.Background(), "tok", "invoices", core.StepUpload, core.StepInput{})
	assert.ErrorIs(t, err, core.ErrUnknownFlow)
}

func TestWizard_CustodianFlow(t *testing.T) {
	f := newWizardFixture(t)
	ctx := context.Background()

	csv := "Nome;Secretaria;Coordenação;E-mail\nBruno;SEF;DTI;bruno@example.gov\nCarla;;DTI;carla@example.gov\n"
	out, err := f.wizard.Handle(ctx, "tok", flows.CustodiansKey, core.StepUpload,
		core.StepInput{Submit: true, File: []byte(csv), Filename: "people.csv"})
	require.NoError(t, err)
	assert.Equal(t, core.StepMap, out.Next)

	form := map[string]string{}
	for field, header := range out.View.Suggested {
		form["map_"+field] = header
	}
	require.Len(t, form, 4)

	_, err = f.wizard.Handle(ctx, "tok", flows.CustodiansKey, core.StepMap, core.StepInput{Submit: true, Form: form})
	require.NoError(t, err)
	out, err = f.wizard.Handle(ctx, "tok", flows.CustodiansKey, core.StepExecute, core.StepInput{Submit: true})
	require.NoError(t, err)

	assert.Equal(t, 1, out.View.Result.Imported)
	assert.Equal(t, []string{"row skipped: missing required fields"}, out.View.Result.Errors)

	c, err := f.store.FindCustodianByName(ctx, "bruno")
	require.NoError(t, err)
	assert.Equal(t, "bruno@example.gov", c.Email)
}

func TestSuggestMapping(t *testing.T) {
	fields := []core.FieldSpec{
		{Name: "name", Label: "Name", Aliases: []string{"gestor", "nome"}},
		{Name: "email", Label: "Email", Aliases: []string{"e-mail"}},
	}
	got := core.SuggestMapping(fields, []string{"E-MAIL", "Gestor", "Nome"})
	assert.Equal(t, core.Mapping{"name": "Gestor", "email": "E-MAIL"}, got)
}

func TestWizard_UnknownCustodianRejectsRow(t *testing.T) {
	f := newWizardFixture(t)
	f.upload(t, "Col1;Col2\nwarehouse;Nobody\n")
	f.step(t, core.StepMap, core.StepInput{Submit: true, Form: map[string]string{
		"map_name": "Col1", "map_primary": "Col2",
	}})

	out := f.step(t, core.StepExecute, core.StepInput{Submit: true})
	require.NotNil(t, out.View.Result)
	assert.Equal(t, 0, out.View.Result.Imported)
	require.Len(t, out.View.Result.Errors, 1)
	assert.Contains(t, out.View.Result.Errors[0], "Nobody")

	assets, err := f.store.ListAssets(context.Background())
	require.NoError(t, err)
	assert.Empty(t, assets)
}
