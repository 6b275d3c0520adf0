package extraction

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/JonMunkholm/custodia/internal/connector"
	"github.com/JonMunkholm/custodia/internal/core"
)

// Extraction wizard steps.
const (
	StepConfig  core.Step = "config"
	StepTypes   core.Step = "types"
	StepExecute core.Step = "execute"
)

const (
	defaultConnType       = "TD2"
	defaultExtractionType = "metadata"
)

// ConnectionTester checks a connection config without running a job.
type ConnectionTester interface {
	Test(ctx context.Context, cfg core.JobConfig) connector.TestResult
}

// WizardInput is the request data for one extraction wizard step.
type WizardInput struct {
	Submit bool
	JobID  int64             // prefill source; 0 when absent
	Form   map[string]string // posted form values
}

// WizardView is the render model for an extraction wizard step.
type WizardView struct {
	Connector string                `json:"connector"`
	Step      core.Step             `json:"step"`
	Draft     *core.ExtractionDraft `json:"draft,omitempty"`
	Test      *connector.TestResult `json:"test,omitempty"`
	JobID     int64                 `json:"job_id,omitempty"`
}

// WizardOutcome tells the transport which step to show and what to flash.
type WizardOutcome struct {
	Next   core.Step    `json:"next"`
	View   *WizardView  `json:"view"`
	Notice *core.Notice `json:"notice,omitempty"`
}

// Wizard drives the config → types → execute extraction flow.
type Wizard struct {
	sessions core.SessionStore
	engine   *Engine
	testers  map[string]ConnectionTester
}

// NewWizard creates an extraction wizard. testers is keyed by connector.
func NewWizard(sessions core.SessionStore, engine *Engine, testers map[string]ConnectionTester) *Wizard {
	return &Wizard{sessions: sessions, engine: engine, testers: testers}
}

// FlowKey is the session flow holding a connector's wizard state.
func FlowKey(connectorName string) string {
	return "extract_" + connectorName
}

// Handle runs one step for token.
func (w *Wizard) Handle(ctx context.Context, token, connectorName string, step core.Step, in WizardInput) (*WizardOutcome, error) {
	if _, ok := w.engine.fetchers[connectorName]; !ok {
		return nil, fmt.Errorf("%w: %s", core.ErrUnknownFlow, connectorName)
	}

	var out *WizardOutcome
	err := w.sessions.Update(ctx, token, FlowKey(connectorName), func(st *core.FlowState) error {
		if st.Extraction == nil && in.JobID > 0 {
			if err := w.prefill(ctx, st, in.JobID); err != nil {
				return err
			}
		}
		var err error
		out, err = w.dispatch(ctx, connectorName, st, step, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// prefill copies a stored job's config, type and mode into the draft.
func (w *Wizard) prefill(ctx context.Context, st *core.FlowState, jobID int64) error {
	job, err := w.engine.store.GetJob(ctx, jobID)
	if errors.Is(err, core.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	cfg := job.Config
	if cfg.ConnType == "" {
		cfg.ConnType = defaultConnType
	}
	extractionType := job.ExtractionType
	if extractionType == "" {
		extractionType = defaultExtractionType
	}
	st.Extraction = &core.ExtractionDraft{
		Config:         cfg,
		ExtractionType: extractionType,
		Mode:           core.ParseRunMode(string(job.Mode)),
	}
	return nil
}

func (w *Wizard) dispatch(ctx context.Context, connectorName string, st *core.FlowState, step core.Step, in WizardInput) (*WizardOutcome, error) {
	switch step {
	case StepConfig, "":
		if in.Submit {
			return w.submitConfig(ctx, connectorName, st, in), nil
		}
		return outcome(connectorName, st, StepConfig, in.JobID, nil), nil

	case StepTypes:
		if st.Extraction == nil {
			return outcome(connectorName, st, StepConfig, 0, &core.Notice{
				Level:   core.LevelError,
				Message: "Configure the connection before choosing the extraction type.",
			}), nil
		}
		if in.Submit {
			st.Extraction.ExtractionType = formValue(in.Form, "extraction_type", defaultExtractionType)
			st.Extraction.Mode = core.ParseRunMode(formValue(in.Form, "mode", string(core.ModeIncremental)))
			return outcome(connectorName, st, StepExecute, 0, nil), nil
		}
		return outcome(connectorName, st, StepTypes, 0, nil), nil

	case StepExecute:
		if st.Extraction == nil {
			return outcome(connectorName, st, StepConfig, 0, &core.Notice{
				Level:   core.LevelError,
				Message: "Configure the connection before running the extraction.",
			}), nil
		}
		if in.Submit {
			return w.execute(ctx, connectorName, st)
		}
		return outcome(connectorName, st, StepExecute, 0, nil), nil
	}

	*st = core.FlowState{}
	return outcome(connectorName, st, StepConfig, 0, nil), nil
}

func (w *Wizard) submitConfig(ctx context.Context, connectorName string, st *core.FlowState, in WizardInput) *WizardOutcome {
	cfg := core.JobConfig{
		Host:     strings.TrimSpace(in.Form["host"]),
		Database: strings.TrimSpace(in.Form["database_name"]),
		ConnType: formValue(in.Form, "connection_type", defaultConnType),
		Username: strings.TrimSpace(in.Form["username"]),
		Password: in.Form["password"],
		Extra:    strings.TrimSpace(in.Form["extra_params"]),
	}
	cfg.URL = strings.TrimSpace(in.Form["jdbc_url"])
	if cfg.URL == "" {
		cfg.URL = connector.BuildJDBCURL(cfg.Host, cfg.Database, cfg.ConnType, cfg.Extra)
	}

	if st.Extraction == nil {
		st.Extraction = &core.ExtractionDraft{}
	}
	st.Extraction.Config = cfg

	if in.Form["action"] == "test" {
		view := outcome(connectorName, st, StepConfig, in.JobID, nil)
		tester, ok := w.testers[connectorName]
		if !ok {
			view.Notice = &core.Notice{Level: core.LevelError, Message: "Connection test is not available for this connector."}
			return view
		}
		res := tester.Test(ctx, cfg)
		view.View.Test = &res
		level := core.LevelSuccess
		if !res.OK {
			level = core.LevelError
		}
		view.Notice = &core.Notice{Level: level, Message: res.Message}
		return view
	}

	if cfg.URL == "" || cfg.Username == "" || cfg.Password == "" {
		return outcome(connectorName, st, StepConfig, in.JobID, &core.Notice{
			Level:   core.LevelError,
			Message: "Fill in the JDBC URL, username and password to continue.",
		})
	}
	return outcome(connectorName, st, StepTypes, 0, nil)
}

func (w *Wizard) execute(ctx context.Context, connectorName string, st *core.FlowState) (*WizardOutcome, error) {
	d := st.Extraction
	extractionType := d.ExtractionType
	if extractionType == "" {
		extractionType = defaultExtractionType
	}

	job, err := w.engine.Launch(ctx, LaunchRequest{
		Connector:      connectorName,
		ExtractionType: extractionType,
		Mode:           core.ParseRunMode(string(d.Mode)),
		Config:         d.Config,
	})
	if err != nil {
		return nil, err
	}

	res, err := w.engine.Run(ctx, job.ID)
	if err != nil {
		d.Result = &core.RunResult{JobID: job.ID, Errors: []string{err.Error()}}
		return outcome(connectorName, st, StepExecute, 0, &core.Notice{
			Level:   core.LevelError,
			Message: "Extraction failed. " + core.FormatUserError(err),
		}), nil
	}
	d.Result = res

	level := core.LevelSuccess
	if len(res.Errors) > 0 {
		level = core.LevelWarning
	}
	return outcome(connectorName, st, StepExecute, 0, &core.Notice{
		Level:   level,
		Message: fmt.Sprintf("Extraction finished: %d of %d bases applied.", res.Imported, res.Total),
	}), nil
}

// outcome builds the view. The draft in the view carries a masked password.
func outcome(connectorName string, st *core.FlowState, next core.Step, jobID int64, notice *core.Notice) *WizardOutcome {
	view := &WizardView{Connector: connectorName, Step: next, JobID: jobID}
	if st.Extraction != nil {
		d := *st.Extraction
		d.Config = d.Config.Masked()
		view.Draft = &d
	}
	return &WizardOutcome{Next: next, View: view, Notice: notice}
}

func formValue(form map[string]string, key, fallback string) string {
	if v := strings.TrimSpace(form[key]); v != "" {
		return v
	}
	return fallback
}

// ParseJobID reads an optional job id query value; invalid input yields 0.
func ParseJobID(raw string) int64 {
	id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
	if err != nil || id < 0 {
		return 0
	}
	return id
}
