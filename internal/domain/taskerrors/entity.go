package taskerrors

import (
	"time"

	"github.com/bryanwahyu/datalens/internal/domain/datasets"
)

// TaskError is a persisted failed task run.
type TaskError struct {
	ID          int64              `json:"id"`
	DatasetID   datasets.DatasetID `json:"dataset_id"`
	TaskName    string             `json:"task_name"`
	Message     string             `json:"message"`
	DetailsJSON string             `json:"details_json,omitempty"` // request body
	CreatedAt   time.Time          `json:"created_at"`
}
