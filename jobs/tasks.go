package jobs

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskRBACSync is the task type for reconciling role grants against
	// the permission catalog.
	TaskRBACSync = "rbac:sync"
)

// RBACSyncPayload describes an rbac reconciliation request. Roles limits the
// sync to the named roles; empty means every role.
type RBACSyncPayload struct {
	Roles []string `json:"roles,omitempty"`
}

// NewRBACSyncTask constructs an Asynq task.
func NewRBACSyncTask(payload RBACSyncPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskRBACSync, data), nil
}
