package models

import "time"

// ProcessStatus is the server-reported state of a submitted notebook.
// Values outside the known set are kept verbatim.
type ProcessStatus string

const (
	StatusProcessing ProcessStatus = "processing"
	StatusSuccess    ProcessStatus = "success"
	StatusFailure    ProcessStatus = "failure"
	StatusCancelled  ProcessStatus = "cancelled"
)

// IsTerminal reports whether the job has stopped changing.
func (s ProcessStatus) IsTerminal() bool {
	return s != StatusProcessing
}

// ResultEntry is one row of list_results. The snake_case keys are chosen by the
// server and must not be renamed.
type ResultEntry struct {
	NotebookID       string        `json:"notebook_id"`
	ProcessStatus    ProcessStatus `json:"process_status"`
	NotebookFilename string        `json:"notebook_filename"`
	ExecutionTime    int64         `json:"execution_time"`
	DebugInfo        string        `json:"debug_info,omitempty"`
}

// ExecutedAt converts the unix execution timestamp.
func (r ResultEntry) ExecutedAt() time.Time {
	return time.Unix(r.ExecutionTime, 0)
}

// Statuses extracts the ordered status sequence of a result list.
func Statuses(results []ResultEntry) []ProcessStatus {
	out := make([]ProcessStatus, len(results))
	for i, r := range results {
		out[i] = r.ProcessStatus
	}
	return out
}

// AnyProcessing reports whether any result is still processing.
func AnyProcessing(results []ResultEntry) bool {
	for _, r := range results {
		if r.ProcessStatus == StatusProcessing {
			return true
		}
	}
	return false
}
