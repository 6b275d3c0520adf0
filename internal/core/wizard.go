package core

import (
	"context"
	"fmt"
	"strings"

	"github.com/JonMunkholm/custodia/internal/logging"
)

// Step names a wizard stage.
type Step string

const (
	StepUpload  Step = "upload"
	StepMap     Step = "map"
	StepConfirm Step = "confirm"
	StepExecute Step = "execute"
	StepResult  Step = "result"
)

// previewRows is how many rows the map and confirm steps show.
const previewRows = 5

// StepInput is the request data for one wizard step.
type StepInput struct {
	Submit    bool              // POST rather than GET
	File      []byte            // uploaded content (upload step)
	Filename  string            // empty when no file was sent
	Delimiter string            // delimiter hint for delimited text
	Form      map[string]string // other form values, e.g. map_<field>
}

// WizardView is the render model for a wizard step.
type WizardView struct {
	Flow      FlowInfo      `json:"flow"`
	Step      Step          `json:"step"`
	Fields    []FieldSpec   `json:"fields"`
	Headers   []string      `json:"headers,omitempty"`
	Sample    []Row         `json:"sample,omitempty"`
	Suggested Mapping       `json:"suggested,omitempty"`
	Mapping   Mapping       `json:"mapping,omitempty"`
	Preview   []Row         `json:"preview,omitempty"`
	Total     int           `json:"total"`
	Result    *ImportResult `json:"result,omitempty"`
}

// StepOutcome tells the transport which step to show next and what to flash.
type StepOutcome struct {
	Next   Step        `json:"next"`
	View   *WizardView `json:"view"`
	Notice *Notice     `json:"notice,omitempty"`
}

// ImportObserver is notified after every executed batch.
type ImportObserver func(flow string, res ImportResult)

// WizardOptions configures a Wizard.
type WizardOptions struct {
	DefaultDelimiter string
	Observer         ImportObserver
}

// Wizard drives the upload → map → confirm → execute → result import flow.
type Wizard struct {
	sessions SessionStore
	store    Store
	opts     WizardOptions
}

// NewWizard creates a wizard over the given session and record stores.
func NewWizard(sessions SessionStore, store Store, opts WizardOptions) *Wizard {
	if opts.DefaultDelimiter == "" {
		opts.DefaultDelimiter = DefaultDelimiter
	}
	return &Wizard{sessions: sessions, store: store, opts: opts}
}

// Handle runs one step of flow for token. Steps on the same token are
// serialized by the session store.
func (w *Wizard) Handle(ctx context.Context, token, flow string, step Step, in StepInput) (*StepOutcome, error) {
	def, ok := GetFlow(flow)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownFlow, flow)
	}

	var out *StepOutcome
	err := w.sessions.Update(ctx, token, flow, func(st *FlowState) error {
		var err error
		out, err = w.dispatch(ctx, def, st, step, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (w *Wizard) dispatch(ctx context.Context, def FlowDefinition, st *FlowState, step Step, in StepInput) (*StepOutcome, error) {
	switch step {
	case StepMap:
		if !st.HasData() {
			return w.reset(def, st), nil
		}
		if in.Submit {
			return w.submitMapping(def, st, in), nil
		}
		return w.outcome(def, st, StepMap, nil), nil

	case StepConfirm, StepExecute:
		if !st.HasData() || len(st.Mapping) == 0 {
			return w.reset(def, st), nil
		}
		if step == StepExecute && in.Submit {
			return w.execute(ctx, def, st)
		}
		if step == StepConfirm && in.Submit {
			return w.outcome(def, st, StepExecute, nil), nil
		}
		return w.outcome(def, st, step, nil), nil

	case StepResult:
		if st.Result == nil {
			return w.reset(def, st), nil
		}
		return w.outcome(def, st, StepResult, nil), nil

	case StepUpload:
		if in.Submit {
			return w.upload(def, st, in), nil
		}
	}

	*st = FlowState{}
	return w.outcome(def, st, StepUpload, nil), nil
}

func (w *Wizard) reset(def FlowDefinition, st *FlowState) *StepOutcome {
	*st = FlowState{}
	return w.outcome(def, st, StepUpload, &Notice{
		Level:   LevelError,
		Message: "Upload a file to start the import flow.",
	})
}

func (w *Wizard) upload(def FlowDefinition, st *FlowState, in StepInput) *StepOutcome {
	if in.Filename == "" {
		return w.outcome(def, st, StepUpload, &Notice{
			Level:   LevelError,
			Message: "Select a CSV or XLSX file to continue.",
		})
	}

	delim := strings.TrimSpace(in.Delimiter)
	if delim == "" {
		delim = w.opts.DefaultDelimiter
	}

	table, err := Decode(in.File, in.Filename, delim)
	if err != nil {
		return w.outcome(def, st, StepUpload, &Notice{
			Level:   LevelError,
			Message: "Could not read the file. Check the format and the delimiter. " + FormatUserError(err),
		})
	}
	if len(table.Rows) == 0 {
		return w.outcome(def, st, StepUpload, &Notice{
			Level:   LevelError,
			Message: "No rows found to import.",
		})
	}

	st.Headers = table.Headers
	st.Rows = table.Rows
	st.Mapping = nil
	st.Result = nil
	return w.outcome(def, st, StepMap, nil)
}

func (w *Wizard) submitMapping(def FlowDefinition, st *FlowState, in StepInput) *StepOutcome {
	mapping := Mapping{}
	var missing []string
	for _, f := range def.FieldSpecs {
		header := strings.TrimSpace(in.Form["map_"+f.Name])
		if header == "" {
			if f.Required {
				missing = append(missing, f.Label)
			}
			continue
		}
		mapping[f.Name] = header
	}

	if len(missing) > 0 {
		return w.outcome(def, st, StepMap, &Notice{
			Level:   LevelError,
			Message: "Map every required column to continue: " + strings.Join(missing, ", ") + ".",
		})
	}

	st.Mapping = mapping
	return w.outcome(def, st, StepConfirm, nil)
}

func (w *Wizard) execute(ctx context.Context, def FlowDefinition, st *FlowState) (*StepOutcome, error) {
	logger := logging.WithFields(ctx, "flow", def.Info.Key, "rows", len(st.Rows))

	headerSet := make(map[string]bool, len(st.Headers))
	for _, h := range st.Headers {
		headerSet[h] = true
	}

	res := ImportResult{Total: len(st.Rows), Errors: []string{}}
	var records []any
	var accepted []Row

	for _, row := range st.Rows {
		drifted := false
		for _, header := range st.Mapping {
			if header != "" && !headerSet[header] {
				drifted = true
				break
			}
		}
		if drifted {
			res.Errors = append(res.Errors, ErrStructuralDrift.Error())
			break
		}

		values := make(map[string]string, len(def.FieldSpecs))
		for _, f := range def.FieldSpecs {
			if header, ok := st.Mapping[f.Name]; ok {
				values[f.Name] = strings.TrimSpace(row[header])
			} else {
				values[f.Name] = ""
			}
		}

		rec, rowErr, err := def.Prepare(ctx, w.store, values)
		if err != nil {
			return nil, fmt.Errorf("prepare %s row: %w", def.Info.Key, err)
		}
		if rowErr != "" {
			res.Errors = append(res.Errors, rowErr)
			continue
		}
		records = append(records, rec)
		accepted = append(accepted, row)
	}

	if len(records) > 0 {
		n, err := def.Commit(ctx, w.store, records)
		if err != nil {
			return nil, fmt.Errorf("commit %s batch: %w", def.Info.Key, err)
		}
		res.Imported = n
	}
	if res.Total > 0 {
		res.Progress = 100
	}

	st.Result = &res
	st.Rows = accepted

	logger.Info("import executed", "imported", res.Imported, "errors", len(res.Errors))
	LogAudit(ctx, w.store, AuditLogParams{
		Action:       ActionImport,
		Subject:      def.Info.Key,
		Detail:       strings.Join(res.Errors, "\n"),
		RowsAffected: res.Imported,
	})
	if w.opts.Observer != nil {
		w.opts.Observer(def.Info.Key, res)
	}

	level := LevelSuccess
	if len(res.Errors) > 0 {
		level = LevelWarning
	}
	return w.outcome(def, st, StepResult, &Notice{
		Level:   level,
		Message: fmt.Sprintf("Import finished: %d of %d rows imported.", res.Imported, res.Total),
	}), nil
}

// outcome builds the view for next from the current state.
func (w *Wizard) outcome(def FlowDefinition, st *FlowState, next Step, notice *Notice) *StepOutcome {
	view := &WizardView{
		Flow:   def.Info,
		Step:   next,
		Fields: def.FieldSpecs,
		Total:  len(st.Rows),
	}

	switch next {
	case StepMap:
		view.Headers = st.Headers
		view.Sample = head(st.Rows, previewRows)
		view.Suggested = SuggestMapping(def.FieldSpecs, st.Headers)
		view.Mapping = st.Mapping
	case StepConfirm, StepExecute:
		view.Mapping = st.Mapping
		view.Preview = project(head(st.Rows, previewRows), def.FieldSpecs, st.Mapping)
	case StepResult:
		view.Result = st.Result
	}

	return &StepOutcome{Next: next, View: view, Notice: notice}
}

// SuggestMapping proposes a source header for each field by comparing
// normalized header labels with the field name, label and aliases.
func SuggestMapping(fields []FieldSpec, headers []string) Mapping {
	normHeaders := make([]string, len(headers))
	for i, h := range headers {
		normHeaders[i] = NormalizeField(h)
	}

	out := Mapping{}
	used := map[string]bool{}
	for _, f := range fields {
		candidates := append([]string{f.Name, f.Label}, f.Aliases...)
		for _, c := range candidates {
			nc := NormalizeField(c)
			if nc == "" {
				continue
			}
			for i, nh := range normHeaders {
				if nh == nc && !used[headers[i]] {
					out[f.Name] = headers[i]
					used[headers[i]] = true
					break
				}
			}
			if _, ok := out[f.Name]; ok {
				break
			}
		}
	}
	return out
}

func head(rows []Row, n int) []Row {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}

func project(rows []Row, fields []FieldSpec, mapping Mapping) []Row {
	out := make([]Row, len(rows))
	for i, r := range rows {
		p := make(Row, len(fields))
		for _, f := range fields {
			if h, ok := mapping[f.Name]; ok {
				p[f.Name] = r[h]
			} else {
				p[f.Name] = ""
			}
		}
		out[i] = p
	}
	return out
}
