package queue

import (
	"encoding/json"
	"testing"

	"photobooth-backend/internal/domains/event/job"
	"photobooth-backend/internal/shared"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSweepExpiredTask(t *testing.T) {
	task, err := NewSweepExpiredTask("manual")
	require.NoError(t, err)
	assert.Equal(t, shared.TypeSweepExpiredEvents, task.Type())

	var payload job.SweepExpiredPayload
	require.NoError(t, json.Unmarshal(task.Payload(), &payload))
	assert.Equal(t, "manual", payload.Trigger)
	assert.False(t, payload.QueuedAt.IsZero())
}
