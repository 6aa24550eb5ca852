package interfaces

import (
	"time"

	"github.com/ternarybob/aegis/internal/models"
)

// StepID identifies one progress milestone of a run. Steps are emitted in
// this fixed order, followed by exactly one terminal result or error event.
type StepID string

const (
	StepIngestionStart StepID = "ingestion_start"
	StepScan           StepID = "scan"
	StepAnalyze        StepID = "analyze"
	StepCrossReference StepID = "cross_reference"
	StepEvaluate       StepID = "evaluate"
	StepCompile        StepID = "compile"
)

// ProgressEvent is one event on a run's progress channel. Exactly one of
// Result or Err is set on the terminal event; step events set neither.
type ProgressEvent struct {
	Step      StepID
	Timestamp time.Time
	Terminal  bool
	Result    *models.CrisisReport
	Err       error
}
