package jobs

import (
	"encoding/json"
	"errors"

	"github.com/hibiken/asynq"

	jobmetrics "github.com/propertyhub/propertyhub/internal/jobs"
	"github.com/propertyhub/propertyhub/internal/notifications"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for notification emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeMaintenanceSweep expires featured markers and old idempotency keys.
	TaskTypeMaintenanceSweep = "maintenance:sweep"
)

var defaultJobMetrics = jobmetrics.NewMetrics(nil)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload = notifications.Mail

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	if payload.To == "" {
		return nil, errors.New("jobs: mail without recipient")
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data, asynq.MaxRetry(5)), nil
}

// MaintenanceSweepPayload toggles the sweep steps.
type MaintenanceSweepPayload struct {
	Featured    bool `json:"featured"`
	Idempotency bool `json:"idempotency"`
}

// NewMaintenanceSweepTask builds the periodic sweep task.
func NewMaintenanceSweepTask(payload MaintenanceSweepPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeMaintenanceSweep, data, asynq.Queue(QueueDefault)), nil
}
