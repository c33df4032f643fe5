package jobs

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeAccessDenied is the task type for persisting denied access attempts.
	TaskTypeAccessDenied = "authz:denied"
)

// AccessDeniedPayload describes a single denied authorization decision.
type AccessDeniedPayload struct {
	PrincipalID         *int64    `json:"principalId,omitempty"`
	RequiredPermissions []string  `json:"requiredPermissions"`
	Method              string    `json:"method"`
	Path                string    `json:"path"`
	Reason              string    `json:"reason"`
	OccurredAt          time.Time `json:"occurredAt"`
}

// NewAccessDeniedTask constructs an Asynq task.
func NewAccessDeniedTask(payload AccessDeniedPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeAccessDenied, data), nil
}
