package queue

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTaskTypeFor(t *testing.T) {
	got, err := TaskTypeFor("refresh")
	require.NoError(t, err)
	assert.Equal(t, TypeRefreshCache, got)

	got, err = TaskTypeFor("evict")
	require.NoError(t, err)
	assert.Equal(t, TypeEvictCache, got)

	_, err = TaskTypeFor("compact")
	assert.Error(t, err)
}

func TestNewSweepTask(t *testing.T) {
	task, err := NewSweepTask(TypeEvictCache, TriggerManual)
	require.NoError(t, err)

	assert.Equal(t, TypeEvictCache, task.Type())

	payload, err := UnmarshalSweepPayload(task.Payload())
	require.NoError(t, err)
	assert.Equal(t, TriggerManual, payload.Trigger)
}

func TestUnmarshalSweepPayload(t *testing.T) {
	p, err := UnmarshalSweepPayload(nil)
	require.NoError(t, err)
	assert.Equal(t, TriggerSchedule, p.Trigger)

	_, err = UnmarshalSweepPayload([]byte("{not json"))
	assert.Error(t, err)
}
