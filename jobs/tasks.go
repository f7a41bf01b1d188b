package jobs

import (
	"encoding/json"
	"fmt"

	"github.com/hibiken/asynq"

	"github.com/usagereg/usagereg/internal/catalog"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// QueueImports holds uploaded import files waiting to be processed.
	QueueImports = "imports"

	// TaskImportUsers imports a users spreadsheet.
	TaskImportUsers = "import:users"
	// TaskImportProducts imports a products CSV.
	TaskImportProducts = "import:products"
	// TaskExportRegistrations writes the usage history workbook to disk.
	TaskExportRegistrations = "export:registrations"
)

// ImportPayload carries an uploaded file to the worker.
type ImportPayload struct {
	Filename string `json:"filename"`
	Data     []byte `json:"data"`
}

// ImportTaskType maps an entity to its import task type.
func ImportTaskType(entity catalog.Entity) (string, error) {
	switch entity {
	case catalog.EntityUsers:
		return TaskImportUsers, nil
	case catalog.EntityProducts:
		return TaskImportProducts, nil
	}
	return "", fmt.Errorf("jobs: no import for %s", entity)
}

// NewImportTask constructs an import task for entity.
func NewImportTask(entity catalog.Entity, filename string, data []byte) (*asynq.Task, error) {
	taskType, err := ImportTaskType(entity)
	if err != nil {
		return nil, err
	}
	payload, err := json.Marshal(ImportPayload{Filename: filename, Data: data})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(taskType, payload), nil
}

// ExportPayload configures a registrations export run.
type ExportPayload struct {
	Label string `json:"label"`
}

// NewExportTask constructs the registrations export task.
func NewExportTask(label string) (*asynq.Task, error) {
	payload, err := json.Marshal(ExportPayload{Label: label})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskExportRegistrations, payload), nil
}
