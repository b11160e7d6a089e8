package scheduler

import (
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewJob(t *testing.T) {
	called := false
	job := NewJob("test-job", func() error {
		called = true
		return nil
	})

	assert.Equal(t, "test-job", job.Name())
	require.NoError(t, job.Run())
	assert.True(t, called)
}

func TestRunNow(t *testing.T) {
	s := New(zerolog.Nop())

	ran := 0
	require.NoError(t, s.RunNow(NewJob("count", func() error {
		ran++
		return nil
	})))
	assert.Equal(t, 1, ran)

	err := s.RunNow(NewJob("failing", func() error {
		return errors.New("boom")
	}))
	assert.Error(t, err)
}

func TestAddJobRejectsBadSchedule(t *testing.T) {
	s := New(zerolog.Nop())

	assert.Error(t, s.AddJob("not a cron expression", NewJob("noop", func() error { return nil })))
	assert.NoError(t, s.AddJob("0 0 18 * * MON-FRI", NewJob("noop", func() error { return nil })))
	assert.NoError(t, s.AddJob("@daily", NewJob("noop", func() error { return nil })))
}
