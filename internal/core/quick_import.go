package core

import (
	"context"
	"fmt"
)

// QuickImportCustodians imports custodians without the mapping wizard.
// Headers are matched through NormalizeField against gestor or nome (name),
// secretaria, coordenacao and email; only rows with all four fields filled
// are kept. Rows lacking a field are counted in Total but produce no error.
func (s *Service) QuickImportCustodians(ctx context.Context, data []byte, filename, delimiter string) (*ImportResult, error) {
	table, err := Decode(data, filename, delimiter)
	if err != nil {
		return nil, err
	}

	byNorm := map[string]string{}
	for _, h := range table.Headers {
		norm := NormalizeField(h)
		if _, taken := byNorm[norm]; !taken {
			byNorm[norm] = h
		}
	}
	cell := func(row Row, norm string) string {
		h, ok := byNorm[norm]
		if !ok {
			return ""
		}
		return row[h]
	}

	var records []Custodian
	for _, row := range table.Rows {
		name := cell(row, "gestor")
		if name == "" {
			name = cell(row, "nome")
		}
		c := Custodian{
			Name:    name,
			OrgUnit: cell(row, "secretaria"),
			SubUnit: cell(row, "coordenacao"),
			Email:   cell(row, "email"),
		}
		if c.Name == "" || c.OrgUnit == "" || c.SubUnit == "" || c.Email == "" {
			continue
		}
		records = append(records, c)
	}

	res := &ImportResult{Total: len(table.Rows), Errors: []string{}}
	if len(records) > 0 {
		n, err := s.store.CreateCustodians(ctx, records)
		if err != nil {
			return nil, fmt.Errorf("insert custodians: %w", err)
		}
		res.Imported = n
	}
	if res.Total > 0 {
		res.Progress = 100
	}

	LogAudit(ctx, s.store, AuditLogParams{
		Action:       ActionQuickImport,
		Subject:      filename,
		RowsAffected: res.Imported,
	})
	return res, nil
}
