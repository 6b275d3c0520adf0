package core

import "time"

// Provenance values for assets written outside the connector path.
const (
	ProvenanceManual = "manual"
	ProvenanceImport = "import"
)

// Asset is a tracked data repository and its custodians.
type Asset struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Environment *string   `json:"environment,omitempty"`
	Description *string   `json:"description,omitempty"`
	PrimaryID   *int64    `json:"primary_id,omitempty"`
	Backup1ID   *int64    `json:"backup1_id,omitempty"`
	Backup2ID   *int64    `json:"backup2_id,omitempty"`
	Provenance  string    `json:"provenance"`
	SourceJobID *int64    `json:"source_job_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Custodian is a person responsible for assets.
type Custodian struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	OrgUnit   string    `json:"org_unit"`
	SubUnit   string    `json:"sub_unit"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
}

// JobStatus is the lifecycle state of an extraction job.
type JobStatus string

const (
	JobPending   JobStatus = "pending"
	JobRunning   JobStatus = "running"
	JobSuccess   JobStatus = "success"
	JobCompleted JobStatus = "completed"
	JobError     JobStatus = "error"
)

// RunMode controls whether reconciliation purges previous connector output.
type RunMode string

const (
	ModeFull        RunMode = "full"
	ModeIncremental RunMode = "incremental"
)

// ParseRunMode maps free-form input to a RunMode, defaulting to incremental.
func ParseRunMode(s string) RunMode {
	if RunMode(s) == ModeFull {
		return ModeFull
	}
	return ModeIncremental
}

// JobConfig is the connection snapshot stored with a job.
// Password is kept verbatim so restarts can reconnect.
type JobConfig struct {
	Host     string `json:"host"`
	URL      string `json:"jdbc_url"`
	Database string `json:"database_name"`
	ConnType string `json:"connection_type"`
	Username string `json:"username"`
	Password string `json:"password"`
	Extra    string `json:"extra_params"`
}

// Masked returns a copy safe for API output.
func (c JobConfig) Masked() JobConfig {
	if c.Password != "" {
		c.Password = "********"
	}
	return c
}

// ExtractionJob is the persisted record of one extraction.
type ExtractionJob struct {
	ID             int64     `json:"id"`
	Connector      string    `json:"connector"`
	ExtractionType string    `json:"extraction_type"`
	Mode           RunMode   `json:"mode"`
	Config         JobConfig `json:"config"`
	Status         JobStatus `json:"status"`
	Progress       int       `json:"progress"`
	Log            string    `json:"log"`
	Error          string    `json:"error,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// JobUpdate carries the optional fields of a job state transition.
// Nil fields are left unchanged.
type JobUpdate struct {
	Status   *JobStatus
	Progress *int
	Error    *string
}

// User is an application login.
type User struct {
	ID           int64     `json:"id"`
	Username     string    `json:"username"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"created_at"`
}

// Row is one decoded record keyed by source header.
type Row map[string]string

// Mapping maps a target field to a source header.
type Mapping map[string]string

// Table is the decoded content of a tabular file.
type Table struct {
	Headers []string
	Rows    []Row
}

// ImportResult summarizes one import batch.
type ImportResult struct {
	Total    int      `json:"total"`
	Imported int      `json:"imported"`
	Errors   []string `json:"errors"`
	Progress int      `json:"progress"`
}

// RunResult summarizes one extraction job run.
type RunResult struct {
	JobID     int64    `json:"job_id"`
	Total     int      `json:"total"`
	Imported  int      `json:"imported"`
	Errors    []string `json:"errors"`
	Note      string   `json:"note,omitempty"`
	Driver    string   `json:"driver,omitempty"`
	Simulated bool     `json:"simulated"`
}

// ExtractionDraft is the extraction wizard state.
type ExtractionDraft struct {
	Config         JobConfig  `json:"config"`
	ExtractionType string     `json:"extraction_type,omitempty"`
	Mode           RunMode    `json:"mode,omitempty"`
	Result         *RunResult `json:"result,omitempty"`
}

// FlowState is the wizard state of a single flow for one token.
type FlowState struct {
	Headers    []string         `json:"headers,omitempty"`
	Rows       []Row            `json:"rows,omitempty"`
	Mapping    Mapping          `json:"mapping,omitempty"`
	Result     *ImportResult    `json:"result,omitempty"`
	Extraction *ExtractionDraft `json:"extraction,omitempty"`
}

// HasData reports whether an upload has been staged.
func (s FlowState) HasData() bool {
	return len(s.Headers) > 0 && len(s.Rows) > 0
}

// Clone returns a deep copy so stored state is never aliased by callers.
func (s FlowState) Clone() FlowState {
	out := FlowState{}
	if s.Headers != nil {
		out.Headers = append([]string(nil), s.Headers...)
	}
	if s.Rows != nil {
		out.Rows = make([]Row, len(s.Rows))
		for i, r := range s.Rows {
			cp := make(Row, len(r))
			for k, v := range r {
				cp[k] = v
			}
			out.Rows[i] = cp
		}
	}
	if s.Mapping != nil {
		out.Mapping = make(Mapping, len(s.Mapping))
		for k, v := range s.Mapping {
			out.Mapping[k] = v
		}
	}
	if s.Result != nil {
		r := *s.Result
		r.Errors = append([]string(nil), s.Result.Errors...)
		out.Result = &r
	}
	if s.Extraction != nil {
		d := *s.Extraction
		if s.Extraction.Result != nil {
			rr := *s.Extraction.Result
			rr.Errors = append([]string(nil), s.Extraction.Result.Errors...)
			d.Result = &rr
		}
		out.Extraction = &d
	}
	return out
}

// Notice is a flash message shown after a wizard step.
type Notice struct {
	Level   string `json:"level"`
	Message string `json:"message"`
}

// Notice levels.
const (
	LevelSuccess = "success"
	LevelInfo    = "info"
	LevelWarning = "warning"
	LevelError   = "error"
)

// Coverage is one label/count pair in a report.
type Coverage struct {
	Label string `json:"label"`
	Total int    `json:"total"`
}

// Report aggregates asset coverage figures.
type Report struct {
	TotalAssets     int        `json:"total_assets"`
	TotalCustodians int        `json:"total_custodians"`
	WithPrimary     int        `json:"with_primary"`
	WithoutPrimary  int        `json:"without_primary"`
	CoveragePercent float64    `json:"coverage_percent"`
	ByCustodian     []Coverage `json:"by_custodian"`
	BySubUnit       []Coverage `json:"by_sub_unit"`
	ByEnvironment   []Coverage `json:"by_environment"`
}

// StrPtr returns nil for an empty string.
func StrPtr(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

// Deref returns the pointed-to string or "".
func Deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// Int64Ptr returns a pointer to v.
func Int64Ptr(v int64) *int64 { return &v }
