package models

// ConfidenceLevel grades how much weight precedent research deserves.
type ConfidenceLevel string

const (
	ConfidenceLow    ConfidenceLevel = "low"
	ConfidenceMedium ConfidenceLevel = "medium"
	ConfidenceHigh   ConfidenceLevel = "high"
)

// PrecedentCase is one historical analogue of the current crisis.
// Never mutated after creation.
type PrecedentCase struct {
	Company         string `json:"company"`
	Year            int    `json:"year"`
	CrisisSummary   string `json:"crisis_summary"`
	StrategyAdopted string `json:"strategy_adopted"`
	Outcome         string `json:"outcome"`
	SuccessScore    int    `json:"success_score"` // 1-10
	SourceURL       string `json:"source_url"`
}

// PrecedentResearch is the Precedent Research stage output.
type PrecedentResearch struct {
	Cases      []PrecedentCase `json:"cases"`
	Lesson     string          `json:"lesson"`
	Confidence ConfidenceLevel `json:"confidence"`
}

// NoPrecedentLesson is returned when research fails entirely or finds
// nothing relevant.
const NoPrecedentLesson = "No relevant historical precedent was found for this situation."
