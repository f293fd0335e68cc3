package jobqueue

import (
	"encoding/json"
	"fmt"
	"time"
)

type JobType string

const (
	JobTypeCreateCustomer JobType = "create_customer"
	JobTypePushLocalState JobType = "push_local_state"
	JobTypeSendMail       JobType = "send_mail"
)

type JobStatus string

const (
	JobStatusPending    JobStatus = "pending"
	JobStatusProcessing JobStatus = "processing"
	JobStatusCompleted  JobStatus = "completed"
	JobStatusFailed     JobStatus = "failed"
	JobStatusRetrying   JobStatus = "retrying"
)

// Job is the record stored in Redis for one unit of background work.
// Payload holds the JSON of the type-specific payload struct.
type Job struct {
	ID          string          `json:"id"`
	Type        JobType         `json:"type"`
	Status      JobStatus       `json:"status"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
	StartedAt   *time.Time      `json:"started_at,omitempty"`
	CompletedAt *time.Time      `json:"completed_at,omitempty"`
	LastError   string          `json:"last_error,omitempty"`
	Attempts    int             `json:"attempts"`
	MaxAttempts int             `json:"max_attempts"`
}

// CreateCustomerPayload provisions the billing provider customer for a new user.
type CreateCustomerPayload struct {
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
}

// PushLocalStatePayload mirrors a user's stored tier and status to the
// provider. The state itself is read when the job runs.
type PushLocalStatePayload struct {
	UserID uint `json:"user_id"`
}

type SendMailPayload struct {
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
}

func newJob(id string, jobType JobType, payload interface{}, maxAttempts int, now time.Time) (*Job, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode %s payload: %w", jobType, err)
	}
	return &Job{
		ID:          id,
		Type:        jobType,
		Status:      JobStatusPending,
		Payload:     raw,
		CreatedAt:   now,
		UpdatedAt:   now,
		MaxAttempts: maxAttempts,
	}, nil
}

func decodePayload[T any](job *Job) (*T, error) {
	var payload T
	if len(job.Payload) == 0 {
		return nil, fmt.Errorf("job %s has no payload", job.ID)
	}
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		return nil, fmt.Errorf("invalid %s payload: %w", job.Type, err)
	}
	return &payload, nil
}

// CanRetry reports whether a failed job has attempts left.
func (j *Job) CanRetry() bool {
	return j.Status == JobStatusFailed && j.Attempts < j.MaxAttempts
}

func (j *Job) start(now time.Time) {
	j.Status = JobStatusProcessing
	j.UpdatedAt = now
	j.StartedAt = &now
}

func (j *Job) complete(now time.Time) {
	j.Status = JobStatusCompleted
	j.UpdatedAt = now
	j.CompletedAt = &now
	j.LastError = ""
}

func (j *Job) fail(now time.Time, err error) {
	j.Status = JobStatusFailed
	j.UpdatedAt = now
	j.LastError = err.Error()
	j.Attempts++
}

func (j *Job) scheduleRetry(now time.Time) {
	j.Status = JobStatusRetrying
	j.UpdatedAt = now
}

// runningSince is the best known start of the current attempt.
func (j *Job) runningSince() time.Time {
	switch {
	case j.StartedAt != nil && !j.StartedAt.IsZero():
		return *j.StartedAt
	case !j.UpdatedAt.IsZero():
		return j.UpdatedAt
	default:
		return j.CreatedAt
	}
}
