package batch_export

import "github.com/google/uuid"

// ApplicationName is the task queue for export workflows
const ApplicationName = "batchExportGroup"

// HostID - a new uuid so that several workers can run on the same machine.
var HostID = ApplicationName + "_" + uuid.New().String()

// ExportCustomersWorkflowName is the registered name of the customer export workflow
const ExportCustomersWorkflowName = "github.com/hankgalt/batch-export.ExportCustomersWorkflow"

// RunExportJobActivityName is the registered name of the export job activity
const RunExportJobActivityName = "github.com/hankgalt/batch-export.RunExportJobActivity"
