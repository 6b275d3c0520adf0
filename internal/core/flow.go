package core

import "context"

// FieldSpec describes one target field of an import flow.
type FieldSpec struct {
	Name     string   // Target field key, e.g. "org_unit"
	Label    string   // Display label
	Required bool     // Must be mapped before confirm
	Aliases  []string // Normalized header labels suggested for this field
}

// FlowInfo contains display information about an import flow.
type FlowInfo struct {
	Key         string // Unique identifier: "custodians"
	Label       string // Display name: "Custodians"
	Description string
}

// PrepareFunc validates one mapped row. A non-empty rowErr rejects the row;
// a non-nil err aborts the batch.
type PrepareFunc func(ctx context.Context, s Store, values map[string]string) (record any, rowErr string, err error)

// CommitFunc writes all prepared records in one bulk operation.
type CommitFunc func(ctx context.Context, s Store, records []any) (int, error)

// FlowDefinition contains everything needed to run an import flow.
type FlowDefinition struct {
	Info       FlowInfo
	FieldSpecs []FieldSpec
	Prepare    PrepareFunc
	Commit     CommitFunc
}

// RequiredFields returns the names of required fields in declaration order.
func (d FlowDefinition) RequiredFields() []string {
	var out []string
	for _, f := range d.FieldSpecs {
		if f.Required {
			out = append(out, f.Name)
		}
	}
	return out
}
