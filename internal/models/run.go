package models

import "time"

// Stage identifies one node of the fixed pipeline graph.
type Stage string

const (
	StageIngestion Stage = "ingestion"
	StagePrecedent Stage = "precedent"
	StageRisk      Stage = "risk"
	StageStrategy  Stage = "strategy"
	StageInvoice   Stage = "invoice"
)

// StageStatus tracks one stage's progress within a run.
type StageStatus string

const (
	StagePending  StageStatus = "pending"
	StageRunning  StageStatus = "running"
	StageComplete StageStatus = "complete"
	StageDegraded StageStatus = "degraded" // completed on fallback values
	StageFailed   StageStatus = "failed"
)

// PipelineRun holds the mutable bookkeeping for one pipeline execution.
// Only the orchestrator writes to it; stages receive immutable snapshots
// of upstream output and never see the run itself.
type PipelineRun struct {
	CrisisID    string                `json:"crisis_id"`
	CustomerID  string                `json:"customer_id"`
	CompanyName string                `json:"company_name"`
	StartedAt   time.Time             `json:"started_at"`
	StageStatus map[Stage]StageStatus `json:"stage_status"`
	StageCost   map[Stage]float64     `json:"stage_cost_eur"`
}

// NewPipelineRun initializes run bookkeeping with every stage pending.
func NewPipelineRun(crisisID, customerID, companyName string) *PipelineRun {
	statuses := make(map[Stage]StageStatus)
	for _, s := range []Stage{StageIngestion, StagePrecedent, StageRisk, StageStrategy, StageInvoice} {
		statuses[s] = StagePending
	}
	return &PipelineRun{
		CrisisID:    crisisID,
		CustomerID:  customerID,
		CompanyName: companyName,
		StartedAt:   time.Now(),
		StageStatus: statuses,
		StageCost:   make(map[Stage]float64),
	}
}

// AddCost accumulates provider spend against a stage.
func (r *PipelineRun) AddCost(stage Stage, cost float64) {
	r.StageCost[stage] += cost
}

// TotalCost is the literal sum of per-stage provider spend.
func (r *PipelineRun) TotalCost() float64 {
	total := 0.0
	for _, c := range r.StageCost {
		total += c
	}
	return total
}

// CrisisReport is the persisted output of one run, keyed by crisis ID.
// Report/PDF export collaborators consume it; the core only produces it.
type CrisisReport struct {
	CrisisID    string `json:"crisis_id" badgerhold:"key"`
	CustomerID  string `json:"customer_id"`
	CompanyName string `json:"company_name"`

	Signals     []Signal           `json:"signals"`
	TopicGroups []TopicGroup       `json:"topic_groups"`
	Risk        PortfolioRisk      `json:"portfolio_risk"`
	Precedents  *PrecedentResearch `json:"precedents,omitempty"`
	Strategy    *StrategyReport    `json:"strategy,omitempty"`
	Invoice     *Invoice           `json:"invoice,omitempty"`

	StageStatus map[Stage]StageStatus `json:"stage_status"`
	StageCost   map[Stage]float64     `json:"stage_cost_eur"`
	TotalCost   float64               `json:"total_cost_eur"`

	// Incomplete marks a run that terminated early on a fatal error.
	Incomplete bool   `json:"incomplete,omitempty"`
	Error      string `json:"error,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	CompletedAt time.Time `json:"completed_at"`
}
