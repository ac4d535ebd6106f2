package systems

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/spaghettifunk/anima-prefab/engine/renderer/metadata"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJobSystemValidation(t *testing.T) {
	_, err := NewJobSystem(0, 1)
	assert.ErrorIs(t, err, ErrNoWorkers)

	_, err = NewJobSystem(1, -1)
	assert.ErrorIs(t, err, ErrNegativeChannelSize)
}

func TestJobSystemRunsCallbacks(t *testing.T) {
	js, err := NewJobSystem(2, 0)
	require.NoError(t, err)

	var completed, failed, finished atomic.Int32
	boom := errors.New("boom")
	for i := 0; i < 10; i++ {
		fail := i%2 == 0
		require.NoError(t, js.AddWorkNonBlocking(metadata.JobTask{
			Name: "test",
			OnStart: func() (interface{}, error) {
				if fail {
					return nil, boom
				}
				return i, nil
			},
			OnComplete:           func(interface{}) { completed.Add(1) },
			OnFailure:            func(err error) { assert.ErrorIs(t, err, boom); failed.Add(1) },
			OnCompletionCallback: func() { finished.Add(1) },
		}))
	}

	require.NoError(t, js.Shutdown())
	assert.Equal(t, int32(5), completed.Load())
	assert.Equal(t, int32(5), failed.Load())
	assert.Equal(t, int32(10), finished.Load())
}

func TestJobSystemRejectsAfterShutdown(t *testing.T) {
	js, err := NewJobSystem(1, 1)
	require.NoError(t, err)
	require.NoError(t, js.Shutdown())
	require.NoError(t, js.Shutdown())

	task := metadata.JobTask{OnStart: func() (interface{}, error) { return nil, nil }}
	assert.ErrorIs(t, js.Submit(task), ErrJobSystemClosed)
	assert.ErrorIs(t, js.AddWorkNonBlocking(task), ErrJobSystemClosed)
	assert.ErrorIs(t, js.Submit(metadata.JobTask{}), ErrMissingEntryPoint)
}
