package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sync"

	"github.com/couchcryptid/fire-risk-etl/internal/domain"
)

// memStore is an in-memory RasterStore keyed by path.
type memStore struct {
	mu       sync.Mutex
	grids    map[string]*domain.Grid
	risk     map[string]*domain.RiskGrid
	refs     map[string]domain.Georef
	writeErr error
}

func newMemStore() *memStore {
	return &memStore{
		grids: map[string]*domain.Grid{},
		risk:  map[string]*domain.RiskGrid{},
		refs:  map[string]domain.Georef{},
	}
}

func (m *memStore) put(path string, g *domain.Grid, ref domain.Georef) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.grids[path] = g
	m.refs[path] = ref
}

func (m *memStore) Path(name string) string { return "out/" + name + ".asc" }

func (m *memStore) ReadGrid(path string) (*domain.Grid, domain.Georef, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if g, ok := m.grids[path]; ok {
		return g.Clone(), m.refs[path], nil
	}
	if rg, ok := m.risk[path]; ok {
		return rg.Float(), m.refs[path], nil
	}
	return nil, domain.Georef{}, fmt.Errorf("open raster: %w", fs.ErrNotExist)
}

func (m *memStore) ReadRiskGrid(path string) (*domain.RiskGrid, domain.Georef, error) {
	g, ref, err := m.ReadGrid(path)
	if err != nil {
		return nil, domain.Georef{}, err
	}
	rg, err := domain.RiskGridFromGrid(g)
	return rg, ref, err
}

func (m *memStore) WriteGrid(name string, g *domain.Grid, ref domain.Georef) (string, error) {
	if m.writeErr != nil {
		return "", m.writeErr
	}
	path := m.Path(name)
	m.put(path, g.Clone(), ref)
	return path, nil
}

func (m *memStore) WriteRiskGrid(name string, g *domain.RiskGrid, ref domain.Georef) (string, error) {
	if m.writeErr != nil {
		return "", m.writeErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	path := m.Path(name)
	m.risk[path] = g
	m.refs[path] = ref
	return path, nil
}

func (m *memStore) riskOutput(name string) *domain.RiskGrid {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.risk[m.Path(name)]
}

func (m *memStore) has(name string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	path := m.Path(name)
	_, g := m.grids[path]
	_, r := m.risk[path]
	return g || r
}

// reportSink collects reports handed to a Recorder or Publisher.
type reportSink struct {
	mu      sync.Mutex
	reports []domain.RunReport
	err     error
}

func (s *reportSink) Record(_ context.Context, r domain.RunReport) error  { return s.add(r) }
func (s *reportSink) Publish(_ context.Context, r domain.RunReport) error { return s.add(r) }

func (s *reportSink) add(r domain.RunReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports = append(s.reports, r)
	return s.err
}

func (s *reportSink) all() []domain.RunReport {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.RunReport(nil), s.reports...)
}

var errSinkDown = errors.New("sink unavailable")
