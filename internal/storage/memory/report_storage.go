package memory

import (
	"context"
	"sync"

	"github.com/ternarybob/aegis/internal/interfaces"
	"github.com/ternarybob/aegis/internal/models"
)

// ReportStorage is an in-memory RunRepository. Used as the default store
// for one-shot runs and in tests; contents are lost on process exit.
type ReportStorage struct {
	mu      sync.RWMutex
	reports map[string]models.CrisisReport
}

func NewReportStorage() *ReportStorage {
	return &ReportStorage{reports: make(map[string]models.CrisisReport)}
}

func (s *ReportStorage) Put(ctx context.Context, report *models.CrisisReport) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reports[report.CrisisID] = *report
	return nil
}

func (s *ReportStorage) Get(ctx context.Context, crisisID string) (*models.CrisisReport, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	report, ok := s.reports[crisisID]
	if !ok {
		return nil, interfaces.ErrRunNotFound
	}
	return &report, nil
}

func (s *ReportStorage) Delete(ctx context.Context, crisisID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.reports[crisisID]; !ok {
		return interfaces.ErrRunNotFound
	}
	delete(s.reports, crisisID)
	return nil
}
