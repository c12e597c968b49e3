// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package notify publishes download outcome events to external sinks
// (HTTP webhooks and SQS queues). Delivery is best effort: the harvest
// never fails because a sink did.
package notify

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pdiddy/paper-harvester/pkg/types"
)

const (
	TypeHTTP = "http"
	TypeSQS  = "sqs"
)

// WebhookTokenSecret is the secrets file whose contents are sent as a
// bearer token by HTTP sinks.
const WebhookTokenSecret = "notify-webhook-token"

// Event is the payload delivered for one terminal outcome.
type Event struct {
	SessionID string                `json:"session_id"`
	Title     string                `json:"title,omitempty"`
	Category  string                `json:"category,omitempty"`
	Outcome   types.DownloadOutcome `json:"outcome"`
	SentAt    time.Time             `json:"sent_at"`
}

// NewEvent builds the event for an outcome of rec.
func NewEvent(sessionID string, rec types.ArticleRecord, o types.DownloadOutcome) Event {
	return Event{
		SessionID: sessionID,
		Title:     rec.Title,
		Category:  rec.PrimaryCategory,
		Outcome:   o,
		SentAt:    time.Now().UTC(),
	}
}

// Sink delivers events to one destination.
type Sink interface {
	Type() string
	Target() string
	Send(ctx context.Context, evt Event) error
}

// Fanout dispatches events to every sink.
type Fanout struct {
	sinks []Sink
}

// NewFanout drops nil sinks.
func NewFanout(sinks ...Sink) *Fanout {
	cp := make([]Sink, 0, len(sinks))
	for _, s := range sinks {
		if s != nil {
			cp = append(cp, s)
		}
	}
	return &Fanout{sinks: cp}
}

// Publish sends evt to each sink and returns how many accepted it. Errors
// from all failing sinks are joined.
func (f *Fanout) Publish(ctx context.Context, evt Event) (int, error) {
	if f == nil || len(f.sinks) == 0 {
		return 0, nil
	}
	var errs []error
	ok := 0
	for _, s := range f.sinks {
		if err := s.Send(ctx, evt); err != nil {
			errs = append(errs, fmt.Errorf("%s sink[%s]: %w", s.Type(), s.Target(), err))
			continue
		}
		ok++
	}
	return ok, errors.Join(errs...)
}

// Size returns the number of sinks.
func (f *Fanout) Size() int {
	if f == nil {
		return 0
	}
	return len(f.sinks)
}

// Build creates sinks from configuration. secrets supplies the webhook
// token; it may be nil.
func Build(ctx context.Context, cfg types.NotifyConfig, secrets map[string]string, log *zap.Logger) (*Fanout, error) {
	if log == nil {
		log = zap.NewNop()
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	var sinks []Sink
	for i, sc := range cfg.Sinks {
		switch sc.Type {
		case TypeHTTP:
			if sc.URL == "" {
				return nil, fmt.Errorf("notify sink %d: http sink needs a url", i)
			}
			sinks = append(sinks, NewHTTPSink(sc.URL, secrets[WebhookTokenSecret], timeout))
		case TypeSQS:
			if sc.QueueURL == "" {
				return nil, fmt.Errorf("notify sink %d: sqs sink needs a queue_url", i)
			}
			s, err := NewSQSSink(ctx, sc.QueueURL, sc.Region)
			if err != nil {
				return nil, fmt.Errorf("notify sink %d: %w", i, err)
			}
			sinks = append(sinks, s)
		default:
			return nil, fmt.Errorf("notify sink %d: unknown type %q", i, sc.Type)
		}
		log.Debug("notify sink configured", zap.String("type", sc.Type), zap.Int("index", i))
	}
	return NewFanout(sinks...), nil
}
