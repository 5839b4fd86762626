package analyses

import (
	"encoding/json"
	"time"

	"github.com/bryanwahyu/datalens/internal/domain/datasets"
)

// AnalysisID identifies a stored analysis.
type AnalysisID int64

// Analysis is the audit record of one executed task and its result.
// Parameters and Result are kept as raw JSON; they round-trip through
// JSON columns unchanged.
type Analysis struct {
	ID             AnalysisID         `json:"id"`
	TaskName       string             `json:"task_name"`
	TaskParameters json.RawMessage    `json:"task_parameters"`
	Result         json.RawMessage    `json:"result"`
	AnalysisDate   time.Time          `json:"analysis_date"`
	DatasetID      datasets.DatasetID `json:"dataset_id"`
}
