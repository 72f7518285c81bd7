package batch_export

type ContextKey string

func (c ContextKey) String() string {
	return string(c)
}

// ExportJobContextKey carries the *ExportJob in the worker's background activity context.
const ExportJobContextKey = ContextKey("export-job")

// ExportRequest launches one export job execution.
type ExportRequest struct {
	JobName    string            `json:"job_name"`
	Parameters map[string]string `json:"parameters"`
}
