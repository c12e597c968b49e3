// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func fixedClock(times ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := times[min(i, len(times)-1)]
		i++
		return t
	}
}

func TestSessionRecord_SuccessRate(t *testing.T) {
	s := NewSessionRecord([]string{"cs.AI"}, 10, []Format{FormatSource})
	assert.Equal(t, 0.0, s.SuccessRate())

	s.Found = 8
	s.Downloaded = 6
	assert.Equal(t, 75.0, s.SuccessRate())
}

func TestSessionRecord_FinishIsIdempotent(t *testing.T) {
	start := time.Date(2026, 1, 1, 10, 0, 0, 0, time.UTC)
	first := start.Add(90 * time.Second)
	later := start.Add(time.Hour)
	s := newSessionRecord(nil, 1, nil, fixedClock(start, first, later))

	_, ok := s.Duration()
	assert.False(t, ok)
	assert.False(t, s.IsComplete())

	s.Finish()
	require.NotNil(t, s.EndTime)
	assert.Equal(t, first, *s.EndTime)

	s.Finish()
	assert.Equal(t, first, *s.EndTime)

	d, ok := s.Duration()
	assert.True(t, ok)
	assert.Equal(t, 90*time.Second, d)
}

func TestSessionRecord_AddError(t *testing.T) {
	at := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	s := newSessionRecord(nil, 1, nil, fixedClock(at))

	s.AddError("cs.AI: fetch failed")
	s.AddError("second")

	require.Len(t, s.Errors, 2)
	assert.Equal(t, "2026-03-04T05:06:07Z: cs.AI: fetch failed", s.Errors[0])
	assert.True(t, strings.HasSuffix(s.Errors[1], ": second"))
}

func TestSessionRecord_ID(t *testing.T) {
	s := NewSessionRecord(nil, 1, nil)
	assert.Len(t, s.ID, 8)
	assert.NotEqual(t, s.ID, NewSessionRecord(nil, 1, nil).ID)
}

func TestSessionRecord_Summary(t *testing.T) {
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := newSessionRecord([]string{"cs.AI"}, 3, []Format{FormatPDF}, fixedClock(start, start.Add(2*time.Second)))
	s.Found, s.Downloaded, s.Skipped, s.Failed = 4, 2, 1, 1
	s.AddError("x")
	s.Finish()

	sum := s.Summary()
	assert.Equal(t, s.ID, sum.ID)
	assert.Equal(t, 50.0, sum.SuccessRate)
	assert.Equal(t, 1, sum.ErrorCount)
	assert.Equal(t, 1, sum.Failed)
	assert.InDelta(t, 2.0, sum.Seconds, 0.001)
}
