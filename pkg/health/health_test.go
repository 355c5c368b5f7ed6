// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Sigil Contributors

package health_test

import (
	"errors"
	"testing"
	"time"

	"github.com/sigil-dev/lyph/pkg/health"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTracker(t *testing.T) {
	now := time.Date(2026, 3, 14, 15, 9, 26, 0, time.UTC)
	tr := health.NewTracker()
	tr.SetNowFunc(func() time.Time { return now })

	m := tr.Metrics()
	assert.True(t, m.Available)
	assert.Nil(t, m.LastFailureAt)
	assert.Nil(t, m.LastSuccessAt)

	tr.RecordFailure(errors.New("disk full"))
	m = tr.Metrics()
	assert.False(t, m.Available)
	assert.False(t, tr.Healthy())
	assert.Equal(t, int64(1), m.FailureCount)
	assert.Equal(t, "disk full", m.LastError)
	require.NotNil(t, m.LastFailureAt)
	assert.Equal(t, now, *m.LastFailureAt)

	now = now.Add(time.Minute)
	tr.RecordSuccess()
	m = tr.Metrics()
	assert.True(t, m.Available)
	assert.Equal(t, int64(1), m.FailureCount)
	require.NotNil(t, m.LastSuccessAt)
	assert.Equal(t, now, *m.LastSuccessAt)
}
