// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SessionRecord is the bookkeeping for one harvest run. A record is owned
// by a single goroutine; it carries no locking of its own.
type SessionRecord struct {
	ID         string     `json:"session_id" yaml:"session_id"`
	StartTime  time.Time  `json:"start_time" yaml:"start_time"`
	EndTime    *time.Time `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	Categories []string   `json:"categories" yaml:"categories"`
	Query      string     `json:"query,omitempty" yaml:"query,omitempty"`
	Target     int        `json:"total_requested" yaml:"total_requested"`
	Formats    []Format   `json:"formats" yaml:"formats"`

	Found      int `json:"articles_found" yaml:"articles_found"`
	Downloaded int `json:"articles_downloaded" yaml:"articles_downloaded"`
	Skipped    int `json:"articles_skipped" yaml:"articles_skipped"`
	Failed     int `json:"articles_failed" yaml:"articles_failed"`

	// Errors holds "<RFC3339 timestamp>: <message>" strings in the order
	// they were added.
	Errors []string `json:"errors" yaml:"errors"`

	now func() time.Time
}

// NewSessionRecord starts a session with a fresh 8-character identifier.
func NewSessionRecord(categories []string, target int, formats []Format) *SessionRecord {
	return newSessionRecord(categories, target, formats, time.Now)
}

func newSessionRecord(categories []string, target int, formats []Format, now func() time.Time) *SessionRecord {
	return &SessionRecord{
		ID:         strings.ReplaceAll(uuid.NewString(), "-", "")[:8],
		StartTime:  now(),
		Categories: append([]string(nil), categories...),
		Target:     target,
		Formats:    append([]Format(nil), formats...),
		Errors:     []string{},
		now:        now,
	}
}

func (s *SessionRecord) clock() time.Time {
	if s.now != nil {
		return s.now()
	}
	return time.Now()
}

// AddError appends a timestamped error message.
func (s *SessionRecord) AddError(msg string) {
	s.Errors = append(s.Errors, fmt.Sprintf("%s: %s", s.clock().Format(time.RFC3339), msg))
}

// Finish sets the end time. Calling it again leaves the first end time in
// place.
func (s *SessionRecord) Finish() {
	if s.EndTime != nil {
		return
	}
	end := s.clock()
	s.EndTime = &end
}

// IsComplete reports whether Finish has been called.
func (s *SessionRecord) IsComplete() bool {
	return s.EndTime != nil
}

// Duration returns the run length. ok is false until the session is
// finished.
func (s *SessionRecord) Duration() (d time.Duration, ok bool) {
	if s.EndTime == nil {
		return 0, false
	}
	return s.EndTime.Sub(s.StartTime), true
}

// SuccessRate returns downloaded/found as a percentage, or 0 when nothing
// was found.
func (s *SessionRecord) SuccessRate() float64 {
	if s.Found == 0 {
		return 0
	}
	return float64(s.Downloaded) / float64(s.Found) * 100
}

// SessionSummary is the compact view used by session listings.
type SessionSummary struct {
	ID          string     `json:"session_id" yaml:"session_id"`
	StartTime   time.Time  `json:"start_time" yaml:"start_time"`
	EndTime     *time.Time `json:"end_time,omitempty" yaml:"end_time,omitempty"`
	Categories  []string   `json:"categories" yaml:"categories"`
	Query       string     `json:"query,omitempty" yaml:"query,omitempty"`
	Found       int        `json:"articles_found" yaml:"articles_found"`
	Downloaded  int        `json:"articles_downloaded" yaml:"articles_downloaded"`
	Skipped     int        `json:"articles_skipped" yaml:"articles_skipped"`
	Failed      int        `json:"articles_failed" yaml:"articles_failed"`
	ErrorCount  int        `json:"error_count" yaml:"error_count"`
	SuccessRate float64    `json:"success_rate" yaml:"success_rate"`
	Seconds     float64    `json:"duration_seconds,omitempty" yaml:"duration_seconds,omitempty"`
}

// Summary returns the compact view of the session.
func (s *SessionRecord) Summary() SessionSummary {
	sum := SessionSummary{
		ID:          s.ID,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		Categories:  s.Categories,
		Query:       s.Query,
		Found:       s.Found,
		Downloaded:  s.Downloaded,
		Skipped:     s.Skipped,
		Failed:      s.Failed,
		ErrorCount:  len(s.Errors),
		SuccessRate: s.SuccessRate(),
	}
	if d, ok := s.Duration(); ok {
		sum.Seconds = d.Seconds()
	}
	return sum
}
