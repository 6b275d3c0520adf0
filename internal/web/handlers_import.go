package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/JonMunkholm/custodia/internal/core"
	"github.com/JonMunkholm/custodia/internal/logging"
)

// multipartMemory is how much of an upload is buffered before spilling to disk.
const multipartMemory = 32 << 20

type flowResponse struct {
	Key         string           `json:"key"`
	Label       string           `json:"label"`
	Description string           `json:"description,omitempty"`
	Fields      []core.FieldSpec `json:"fields"`
}

func (s *Server) handleListFlows(w http.ResponseWriter, _ *http.Request) {
	flows := core.Flows()
	out := make([]flowResponse, 0, len(flows))
	for _, f := range flows {
		out = append(out, flowResponse{
			Key:         f.Info.Key,
			Label:       f.Info.Label,
			Description: f.Info.Description,
			Fields:      f.FieldSpecs,
		})
	}
	writeJSON(w, out)
}

// handleImportStep drives one step of the upload → map → confirm → execute
// wizard. The step comes from ?step= or the "step" form field.
func (s *Server) handleImportStep(w http.ResponseWriter, r *http.Request) {
	flow := chi.URLParam(r, "flow")
	if _, ok := core.GetFlow(flow); !ok {
		s.fail(w, r, fmt.Errorf("%w: %s", core.ErrUnknownFlow, flow))
		return
	}

	step := core.Step(r.URL.Query().Get("step"))
	in := core.StepInput{Submit: r.Method == http.MethodPost}
	if in.Submit {
		data, filename, err := s.readUpload(w, r)
		if err != nil && !errors.Is(err, core.ErrNoFile) && !errors.Is(err, core.ErrEmptyFile) {
			s.fail(w, r, err)
			return
		}
		in.File = data
		in.Filename = filename
		in.Delimiter = r.FormValue("delimiter")
		in.Form = formValues(r)
		if step == "" {
			step = core.Step(in.Form["step"])
		}
	}

	token, err := s.wizardToken(r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	out, err := s.deps.Wizard.Handle(r.Context(), token, flow, step, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	respondNotice(w, r, out.Next, out.Notice, out)
}

// handleQuickImport loads custodians from a file with fixed column names.
func (s *Server) handleQuickImport(w http.ResponseWriter, r *http.Request) {
	data, filename, err := s.readUpload(w, r)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	delim := strings.TrimSpace(r.FormValue("delimiter"))
	if delim == "" {
		delim = s.cfg.Upload.DefaultDelimiter
	}

	res, err := s.deps.Service.QuickImportCustodians(r.Context(), data, filename, delim)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	logging.FromContext(r.Context()).Info("quick import finished",
		"file", filename, "total", res.Total, "imported", res.Imported)

	level := core.LevelSuccess
	if res.Imported < res.Total {
		level = core.LevelWarning
	}
	notice := &core.Notice{
		Level:   level,
		Message: fmt.Sprintf("Quick import finished: %d of %d custodians imported.", res.Imported, res.Total),
	}
	respondNotice(w, r, "", notice, res)
}

// readUpload parses a multipart body bounded by the upload limit and returns
// the "file" part. core.ErrNoFile is returned when no file was sent and
// core.ErrEmptyFile, with the filename, when the file has no bytes.
func (s *Server) readUpload(w http.ResponseWriter, r *http.Request) ([]byte, string, error) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.Upload.MaxFileSize)

	var perr error
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		perr = r.ParseMultipartForm(multipartMemory)
	} else {
		perr = r.ParseForm()
	}
	if perr != nil {
		var mbe *http.MaxBytesError
		if errors.As(perr, &mbe) {
			return nil, "", fmt.Errorf("%w: limit is %d bytes", core.ErrFileTooLarge, mbe.Limit)
		}
		return nil, "", core.NewValidationError("malformed form: "+perr.Error(), "body")
	}

	file, hdr, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
		return nil, "", core.ErrNoFile
	}
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, "", fmt.Errorf("read upload: %w", err)
	}
	if len(data) == 0 {
		return nil, hdr.Filename, core.ErrEmptyFile
	}
	return data, hdr.Filename, nil
}
