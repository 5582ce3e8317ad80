package directory

import (
	"errors"
	"sync"

	"healthmate/internal/catalog"
)

var (
	ErrNotFound  = errors.New("directory: provider not found")
	ErrNoCatalog = errors.New("directory: no catalog loaded")
)

type CatalogSource interface {
	Current() *catalog.Catalog
}

type ListResult struct {
	Providers     []catalog.Provider `json:"providers"`
	Total         int                `json:"total"`
	ActiveFilters int                `json:"active_filters"`
	// Specialties are the ones the query resolved to when read as a symptom.
	Specialties []string `json:"specialties,omitempty"`
}

type Details struct {
	catalog.Provider
	RelevantSymptoms []string `json:"relevant_symptoms"`
}

// Service reads providers from the current catalog snapshot. The symptom map
// is rebuilt only when the snapshot changes.
type Service struct {
	catalog CatalogSource

	mu      sync.Mutex
	cached  *catalog.Catalog
	symptom SymptomMap
}

func NewService(src CatalogSource) *Service {
	return &Service{catalog: src}
}

func (s *Service) List(f Filter) ListResult {
	cat, symptoms := s.snapshot()
	res := ListResult{
		Providers:     Apply(cat.Providers, symptoms, f),
		ActiveFilters: f.ActiveCount(),
	}
	res.Total = len(res.Providers)
	if f.Query != "" {
		res.Specialties = symptoms.SpecialtiesFor(f.Query)
	}
	return res
}

func (s *Service) Get(id int) (Details, error) {
	cat, symptoms := s.snapshot()
	if cat == nil {
		return Details{}, ErrNoCatalog
	}
	p, ok := cat.Provider(id)
	if !ok {
		return Details{}, ErrNotFound
	}
	return Details{Provider: p, RelevantSymptoms: symptoms.RelevantSymptoms(p.Specialties)}, nil
}

func (s *Service) FilterOptions() catalog.FilterOptions {
	return s.catalog.Current().FilterOptions
}

func (s *Service) snapshot() (*catalog.Catalog, SymptomMap) {
	cat := s.catalog.Current()
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cached == cat {
		return cat, s.symptom
	}
	symptoms := NewSymptomMap(cat.Symptoms)
	s.cached, s.symptom = cat, symptoms
	return cat, symptoms
}
