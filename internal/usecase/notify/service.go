// Package notify fans win announcements out to chat sinks.
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/magnus-flipper/magnus/internal/domain"
	"github.com/magnus-flipper/magnus/internal/domain/win"
	"github.com/magnus-flipper/magnus/internal/metrics"
)

// Delivery summarizes one fan-out.
type Delivery struct {
	EventID   string
	Sent      bool
	Delivered []string
	Failed    map[string]string
}

// Service relays wins to every configured sink.
type Service struct {
	sinks  []Sink
	logger *zap.Logger
}

// New creates a Service. Nil sinks are dropped.
func New(logger *zap.Logger, sinks ...Sink) *Service {
	s := &Service{logger: logger}
	for _, sink := range sinks {
		if sink != nil {
			s.sinks = append(s.sinks, sink)
		}
	}
	return s
}

// Sinks lists configured sink names.
func (s *Service) Sinks() []string {
	names := make([]string, len(s.sinks))
	for i, sink := range s.sinks {
		names[i] = sink.Name()
	}
	return names
}

// NotifyWin sends the win message to all sinks in parallel. A failing sink
// does not stop the others. The error is non-nil only when every configured
// sink failed.
func (s *Service) NotifyWin(ctx context.Context, w win.Win) (Delivery, error) {
	if err := w.Validate(); err != nil {
		return Delivery{}, err
	}

	d := Delivery{EventID: uuid.NewString(), Failed: map[string]string{}}
	if len(s.sinks) == 0 {
		s.logger.Info("No notification sinks configured, win not relayed",
			zap.String("event_id", d.EventID),
			zap.String("title", w.Title),
		)
		return d, nil
	}

	text := w.Message()
	errs := make([]error, len(s.sinks))

	var wg sync.WaitGroup
	for i, sink := range s.sinks {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs[i] = sink.Send(ctx, text)
		}()
	}
	wg.Wait()

	var failures []error
	for i, sink := range s.sinks {
		name := sink.Name()
		if err := errs[i]; err != nil {
			metrics.WebhookDeliveriesTotal.WithLabelValues(name, "failed").Inc()
			s.logger.Warn("Win notification failed",
				zap.String("event_id", d.EventID),
				zap.String("sink", name),
				zap.Error(err),
			)
			d.Failed[name] = err.Error()
			failures = append(failures, fmt.Errorf("%s: %w", name, err))
			continue
		}
		metrics.WebhookDeliveriesTotal.WithLabelValues(name, "delivered").Inc()
		d.Delivered = append(d.Delivered, name)
	}

	d.Sent = len(d.Delivered) > 0
	if !d.Sent {
		return d, fmt.Errorf("%w: %w", domain.ErrNotificationFailed, errors.Join(failures...))
	}
	return d, nil
}
