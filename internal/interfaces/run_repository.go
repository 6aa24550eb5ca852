package interfaces

import (
	"context"
	"errors"

	"github.com/ternarybob/aegis/internal/models"
)

// ErrRunNotFound is returned when no report exists for a crisis ID.
var ErrRunNotFound = errors.New("run not found")

// RunRepository stores crisis reports keyed by crisis ID. The orchestrator
// writes through this interface only; any store (in-memory map, Badger, a
// remote DB) can sit behind it.
type RunRepository interface {
	Put(ctx context.Context, report *models.CrisisReport) error
	Get(ctx context.Context, crisisID string) (*models.CrisisReport, error)
	Delete(ctx context.Context, crisisID string) error
}
