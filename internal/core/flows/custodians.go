package flows

import (
	"context"
	"fmt"

	"github.com/JonMunkholm/custodia/internal/core"
)

// CustodiansKey identifies the custodian import flow.
const CustodiansKey = "custodians"

func init() {
	registerCustodians()
}

func registerCustodians() {
	core.RegisterFlow(core.FlowDefinition{
		Info: core.FlowInfo{
			Key:         CustodiansKey,
			Label:       "Custodians",
			Description: "Import custodians with org unit, sub-unit and email.",
		},
		FieldSpecs: []core.FieldSpec{
			{Name: "name", Label: "Name", Required: true, Aliases: []string{"gestor", "nome"}},
			{Name: "org_unit", Label: "Org unit", Required: true, Aliases: []string{"secretaria"}},
			{Name: "sub_unit", Label: "Sub-unit", Required: true, Aliases: []string{"coordenacao"}},
			{Name: "email", Label: "Email", Required: true, Aliases: []string{"e-mail"}},
		},
		Prepare: prepareCustodian,
		Commit:  commitCustodians,
	})
}

func prepareCustodian(_ context.Context, _ core.Store, v map[string]string) (any, string, error) {
	c := core.Custodian{
		Name:    v["name"],
		OrgUnit: v["org_unit"],
		SubUnit: v["sub_unit"],
		Email:   v["email"],
	}
	if c.Name == "" || c.OrgUnit == "" || c.SubUnit == "" || c.Email == "" {
		return nil, "row skipped: missing required fields", nil
	}
	return c, "", nil
}

func commitCustodians(ctx context.Context, s core.Store, records []any) (int, error) {
	batch := make([]core.Custodian, 0, len(records))
	for _, r := range records {
		c, ok := r.(core.Custodian)
		if !ok {
			return 0, fmt.Errorf("unexpected record type %T", r)
		}
		batch = append(batch, c)
	}
	return s.CreateCustodians(ctx, batch)
}
