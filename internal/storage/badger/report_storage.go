package badger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ternarybob/aegis/internal/interfaces"
	"github.com/ternarybob/aegis/internal/models"
	"github.com/ternarybob/arbor"
	"github.com/timshannon/badgerhold/v4"
)

// ReportStorage implements the RunRepository interface for Badger
type ReportStorage struct {
	db     *BadgerDB
	logger arbor.ILogger
}

// NewReportStorage creates a new ReportStorage instance
func NewReportStorage(db *BadgerDB, logger arbor.ILogger) interfaces.RunRepository {
	return &ReportStorage{
		db:     db,
		logger: logger,
	}
}

func (s *ReportStorage) Put(ctx context.Context, report *models.CrisisReport) error {
	if report.CrisisID == "" {
		return fmt.Errorf("crisis ID is required")
	}
	if report.CreatedAt.IsZero() {
		report.CreatedAt = time.Now()
	}
	if err := s.db.Store().Upsert(report.CrisisID, report); err != nil {
		return fmt.Errorf("failed to save crisis report: %w", err)
	}
	return nil
}

func (s *ReportStorage) Get(ctx context.Context, crisisID string) (*models.CrisisReport, error) {
	var report models.CrisisReport
	if err := s.db.Store().Get(crisisID, &report); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return nil, interfaces.ErrRunNotFound
		}
		return nil, fmt.Errorf("failed to get crisis report: %w", err)
	}
	return &report, nil
}

func (s *ReportStorage) Delete(ctx context.Context, crisisID string) error {
	if err := s.db.Store().Delete(crisisID, &models.CrisisReport{}); err != nil {
		if errors.Is(err, badgerhold.ErrNotFound) {
			return interfaces.ErrRunNotFound
		}
		return fmt.Errorf("failed to delete crisis report: %w", err)
	}
	return nil
}

// ListByCustomer returns a customer's reports, newest first.
func (s *ReportStorage) ListByCustomer(ctx context.Context, customerID string, limit int) ([]models.CrisisReport, error) {
	var reports []models.CrisisReport
	query := badgerhold.Where("CustomerID").Eq(customerID).SortBy("CreatedAt").Reverse()
	if limit > 0 {
		query = query.Limit(limit)
	}
	if err := s.db.Store().Find(&reports, query); err != nil {
		return nil, fmt.Errorf("failed to list crisis reports: %w", err)
	}
	return reports, nil
}
