package core

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
)

// SearchQuery filters assets. Empty fields are ignored; Environment and
// Provenance match exactly, the rest as case-insensitive substrings.
type SearchQuery struct {
	Term        string `json:"q"`
	Custodian   string `json:"custodian"`
	Name        string `json:"name"`
	Environment string `json:"environment"`
	Provenance  string `json:"provenance"`
	Description string `json:"description"`
}

func (q SearchQuery) empty() bool {
	return q.Term == "" && q.Custodian == "" && q.Name == "" &&
		q.Environment == "" && q.Provenance == "" && q.Description == ""
}

// AssetView is an asset with custodian names resolved.
type AssetView struct {
	Asset
	PrimaryName string `json:"primary_name,omitempty"`
	Backup1Name string `json:"backup1_name,omitempty"`
	Backup2Name string `json:"backup2_name,omitempty"`
}

// SearchOptions lists the distinct values offered as filters.
type SearchOptions struct {
	Environments []string `json:"environments"`
	Provenances  []string `json:"provenances"`
	Custodians   []string `json:"custodians"`
}

// SearchResult is the outcome of Search.
type SearchResult struct {
	Query   SearchQuery   `json:"query"`
	Results []AssetView   `json:"results"`
	Options SearchOptions `json:"options"`
}

// Suggestion is one type-ahead entry.
type Suggestion struct {
	Label string `json:"label"`
	Kind  string `json:"kind"`
}

const suggestionLimit = 5

func (s *Service) loadViews(ctx context.Context) ([]AssetView, []Custodian, error) {
	assets, err := s.store.ListAssets(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list assets: %w", err)
	}
	custodians, err := s.store.ListCustodians(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("list custodians: %w", err)
	}
	names := make(map[int64]string, len(custodians))
	for _, c := range custodians {
		names[c.ID] = c.Name
	}
	lookup := func(id *int64) string {
		if id == nil {
			return ""
		}
		return names[*id]
	}
	views := make([]AssetView, len(assets))
	for i, a := range assets {
		views[i] = AssetView{
			Asset:       a,
			PrimaryName: lookup(a.PrimaryID),
			Backup1Name: lookup(a.Backup1ID),
			Backup2Name: lookup(a.Backup2ID),
		}
	}
	return views, custodians, nil
}

// ListAssetViews returns all assets with custodian names, newest first.
func (s *Service) ListAssetViews(ctx context.Context) ([]AssetView, error) {
	views, _, err := s.loadViews(ctx)
	return views, err
}

// Search filters assets. With no criteria it returns only the filter options.
func (s *Service) Search(ctx context.Context, q SearchQuery) (*SearchResult, error) {
	q = SearchQuery{
		Term:        strings.TrimSpace(q.Term),
		Custodian:   strings.TrimSpace(q.Custodian),
		Name:        strings.TrimSpace(q.Name),
		Environment: strings.TrimSpace(q.Environment),
		Provenance:  strings.TrimSpace(q.Provenance),
		Description: strings.TrimSpace(q.Description),
	}

	views, custodians, err := s.loadViews(ctx)
	if err != nil {
		return nil, err
	}

	res := &SearchResult{Query: q, Results: []AssetView{}}
	if !q.empty() {
		for _, v := range views {
			if matches(v, q) {
				res.Results = append(res.Results, v)
			}
		}
	}

	envs := map[string]bool{}
	provs := map[string]bool{}
	for _, v := range views {
		if e := Deref(v.Environment); e != "" {
			envs[e] = true
		}
		if v.Provenance != "" {
			provs[v.Provenance] = true
		}
	}
	people := map[string]bool{}
	for _, c := range custodians {
		if c.Name != "" {
			people[c.Name] = true
		}
	}
	res.Options = SearchOptions{
		Environments: sortedKeys(envs),
		Provenances:  sortedKeys(provs),
		Custodians:   sortedKeys(people),
	}
	return res, nil
}

func matches(v AssetView, q SearchQuery) bool {
	desc := Deref(v.Description)
	env := Deref(v.Environment)
	if q.Term != "" && !(containsFold(v.Name, q.Term) || containsFold(desc, q.Term) ||
		containsFold(env, q.Term) || containsFold(v.PrimaryName, q.Term)) {
		return false
	}
	if q.Custodian != "" && !containsFold(v.PrimaryName, q.Custodian) {
		return false
	}
	if q.Name != "" && !containsFold(v.Name, q.Name) {
		return false
	}
	if q.Description != "" && !containsFold(desc, q.Description) {
		return false
	}
	if q.Environment != "" && env != q.Environment {
		return false
	}
	if q.Provenance != "" && v.Provenance != q.Provenance {
		return false
	}
	return true
}

// Suggest returns up to five asset names, custodian names and environments
// containing term.
func (s *Service) Suggest(ctx context.Context, term string) ([]Suggestion, error) {
	term = strings.TrimSpace(term)
	out := []Suggestion{}
	if term == "" {
		return out, nil
	}
	views, custodians, err := s.loadViews(ctx)
	if err != nil {
		return nil, err
	}

	assetNames := map[string]bool{}
	envs := map[string]bool{}
	for _, v := range views {
		if containsFold(v.Name, term) {
			assetNames[v.Name] = true
		}
		if e := Deref(v.Environment); e != "" && containsFold(e, term) {
			envs[e] = true
		}
	}
	people := map[string]bool{}
	for _, c := range custodians {
		if containsFold(c.Name, term) {
			people[c.Name] = true
		}
	}

	add := func(set map[string]bool, kind string) {
		keys := sortedKeys(set)
		if len(keys) > suggestionLimit {
			keys = keys[:suggestionLimit]
		}
		for _, k := range keys {
			out = append(out, Suggestion{Label: k, Kind: kind})
		}
	}
	add(assetNames, "asset")
	add(people, "custodian")
	add(envs, "environment")
	return out, nil
}

// Report aggregates asset coverage by custodian, sub-unit and environment.
func (s *Service) Report(ctx context.Context) (*Report, error) {
	views, custodians, err := s.loadViews(ctx)
	if err != nil {
		return nil, err
	}
	subUnits := make(map[int64]string, len(custodians))
	for _, c := range custodians {
		subUnits[c.ID] = c.SubUnit
	}

	byCustodian := map[string]int{}
	bySubUnit := map[string]int{}
	byEnv := map[string]int{}
	withPrimary := 0
	for _, v := range views {
		label := strings.TrimSpace(v.PrimaryName)
		if label == "" {
			label = "No custodian"
		}
		byCustodian[label]++

		sub := "No sub-unit"
		if v.PrimaryID != nil {
			withPrimary++
			if su, ok := subUnits[*v.PrimaryID]; ok && su != "" {
				sub = su
			}
		}
		bySubUnit[sub]++

		env := strings.TrimSpace(Deref(v.Environment))
		if env == "" {
			env = "No environment"
		}
		byEnv[env]++
	}

	total := len(views)
	r := &Report{
		TotalAssets:     total,
		TotalCustodians: len(custodians),
		WithPrimary:     withPrimary,
		WithoutPrimary:  total - withPrimary,
		ByCustodian:     rankCoverage(byCustodian),
		BySubUnit:       rankCoverage(bySubUnit),
		ByEnvironment:   rankCoverage(byEnv),
	}
	if total > 0 {
		r.CoveragePercent = math.Round(float64(withPrimary)/float64(total)*1000) / 10
	}
	return r, nil
}

// rankCoverage orders counts descending, then label ascending.
func rankCoverage(counts map[string]int) []Coverage {
	out := make([]Coverage, 0, len(counts))
	for label, n := range counts {
		out = append(out, Coverage{Label: label, Total: n})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Total != out[j].Total {
			return out[i].Total > out[j].Total
		}
		return out[i].Label < out[j].Label
	})
	return out
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}
