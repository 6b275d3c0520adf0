package web

import (
	"net/http"

	"github.com/JonMunkholm/custodia/internal/core"
)

// ---- Custodians ----

func (s *Server) handleListCustodians(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Service.ListCustodians(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, list)
}

func (s *Server) handleGetCustodian(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.deps.Service.GetCustodian(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, c)
}

func (s *Server) handleCreateCustodian(w http.ResponseWriter, r *http.Request) {
	var in core.CustodianInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.deps.Service.CreateCustodian(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, c)
}

func (s *Server) handleUpdateCustodian(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in core.CustodianInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.deps.Service.UpdateCustodian(r.Context(), id, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, c)
}

func (s *Server) handleDeleteCustodian(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.deps.Service.DeleteCustodian(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- Assets ----

func (s *Server) handleListAssets(w http.ResponseWriter, r *http.Request) {
	views, err := s.deps.Service.ListAssetViews(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, views)
}

func (s *Server) handleGetAsset(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.deps.Service.GetAsset(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, a)
}

func (s *Server) handleCreateAsset(w http.ResponseWriter, r *http.Request) {
	var in core.AssetInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.deps.Service.CreateAsset(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSONStatus(w, http.StatusCreated, a)
}

func (s *Server) handleUpdateAsset(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in core.AssetInput
	if err := decodeJSON(w, r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.deps.Service.UpdateAsset(r.Context(), id, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, a)
}

func (s *Server) handleDeleteAsset(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.deps.Service.DeleteAsset(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ---- Search and reports ----

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	res, err := s.deps.Service.Search(r.Context(), core.SearchQuery{
		Term:        q.Get("q"),
		Custodian:   q.Get("custodian"),
		Name:        q.Get("name"),
		Environment: q.Get("environment"),
		Provenance:  q.Get("provenance"),
		Description: q.Get("description"),
	})
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, res)
}

func (s *Server) handleSuggest(w http.ResponseWriter, r *http.Request) {
	list, err := s.deps.Service.Suggest(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if list == nil {
		list = []core.Suggestion{}
	}
	writeJSON(w, list)
}

func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	rep, err := s.deps.Service.Report(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, rep)
}
