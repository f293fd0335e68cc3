package jobqueue

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestJobLifecycle(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	job, err := newJob("j1", JobTypeCreateCustomer, CreateCustomerPayload{UserID: 1}, 2, now)
	require.NoError(t, err)
	assert.Equal(t, JobStatusPending, job.Status)
	assert.Equal(t, now, job.runningSince())

	job.start(now.Add(time.Second))
	assert.Equal(t, JobStatusProcessing, job.Status)
	assert.Equal(t, now.Add(time.Second), job.runningSince())

	job.fail(now.Add(2*time.Second), errors.New("provider down"))
	assert.Equal(t, "provider down", job.LastError)
	assert.Equal(t, 1, job.Attempts)
	assert.True(t, job.CanRetry())

	job.scheduleRetry(now.Add(2 * time.Second))
	assert.Equal(t, JobStatusRetrying, job.Status)
	assert.False(t, job.CanRetry(), "only failed jobs are retried")

	job.start(now.Add(time.Minute))
	job.fail(now.Add(time.Minute), errors.New("still down"))
	assert.False(t, job.CanRetry(), "attempts exhausted")

	job.complete(now.Add(2 * time.Minute))
	assert.Equal(t, JobStatusCompleted, job.Status)
	assert.Empty(t, job.LastError)
	require.NotNil(t, job.CompletedAt)
}

func TestPayloadSurvivesStorage(t *testing.T) {
	job, err := newJob("j2", JobTypeSendMail, SendMailPayload{To: []string{"ops@example.com"}, Subject: "s", Body: "b"}, 3, time.Now())
	require.NoError(t, err)

	data, err := json.Marshal(job)
	require.NoError(t, err)
	var stored Job
	require.NoError(t, json.Unmarshal(data, &stored))

	p, err := decodePayload[SendMailPayload](&stored)
	require.NoError(t, err)
	assert.Equal(t, []string{"ops@example.com"}, p.To)
	assert.Equal(t, "s", p.Subject)
}

func TestDecodePayloadRejectsBadInput(t *testing.T) {
	_, err := decodePayload[PushLocalStatePayload](&Job{ID: "x", Type: JobTypePushLocalState})
	assert.Error(t, err)

	_, err = decodePayload[PushLocalStatePayload](&Job{ID: "y", Type: JobTypePushLocalState, Payload: json.RawMessage(`{"user_id":"seven"}`)})
	assert.Error(t, err)
}

func TestRetryDelayIsLinear(t *testing.T) {
	assert.Equal(t, retryBackoff, retryDelay(0))
	assert.Equal(t, retryBackoff, retryDelay(1))
	assert.Equal(t, 3*retryBackoff, retryDelay(3))
}
