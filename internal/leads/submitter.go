package leads

import (
	"context"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/sirahlabs/smartchat/internal/observability/metrics"
	"github.com/sirahlabs/smartchat/pkg/logging"
)

var tracer = otel.Tracer("smartchat.leads")

// Submitter fans a lead out to every sink in the background. Delivery is
// at most once: failures are logged and counted, never retried.
type Submitter struct {
	sinks   []Sink
	timeout time.Duration
	logger  *logging.Logger
	metrics *metrics.ChatMetrics
	wg      sync.WaitGroup
}

// NewSubmitter drops nil sinks. A zero timeout defaults to 10s.
func NewSubmitter(logger *logging.Logger, m *metrics.ChatMetrics, timeout time.Duration, sinks ...Sink) *Submitter {
	if logger == nil {
		logger = logging.Default()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	s := &Submitter{timeout: timeout, logger: logger, metrics: m}
	for _, sink := range sinks {
		if sink != nil && !isNilSink(sink) {
			s.sinks = append(s.sinks, sink)
		}
	}
	return s
}

// isNilSink catches typed nil pointers from constructors that return nil
// when unconfigured.
func isNilSink(s Sink) bool {
	switch v := s.(type) {
	case *FormSink:
		return v == nil
	case *QueueSink:
		return v == nil
	case *RepositorySink:
		return v == nil
	}
	return false
}

// Sinks returns the names of configured sinks.
func (s *Submitter) Sinks() []string {
	names := make([]string, 0, len(s.sinks))
	for _, sink := range s.sinks {
		names = append(names, sink.Name())
	}
	return names
}

// Submit returns immediately. The caller's context only contributes values;
// its cancellation does not abort delivery.
func (s *Submitter) Submit(ctx context.Context, lead LeadData) {
	if len(s.sinks) == 0 {
		s.logger.Warn("lead captured with no sinks configured", "business", lead.BusinessName)
		return
	}
	base := context.WithoutCancel(ctx)
	for _, sink := range s.sinks {
		s.wg.Add(1)
		go func(sink Sink) {
			defer s.wg.Done()
			s.deliver(base, sink, lead)
		}(sink)
	}
}

func (s *Submitter) deliver(base context.Context, sink Sink, lead LeadData) {
	ctx, cancel := context.WithTimeout(base, s.timeout)
	defer cancel()
	ctx, span := tracer.Start(ctx, "leads.deliver")
	defer span.End()
	span.SetAttributes(attribute.String("lead.sink", sink.Name()))

	start := time.Now()
	err := sink.Deliver(ctx, lead)
	s.metrics.ObserveLeadDelivery(sink.Name(), err, time.Since(start).Seconds())
	if err != nil {
		span.RecordError(err)
		s.logger.Error("lead delivery failed", "sink", sink.Name(), "session_id", lead.SessionID, "error", err)
		return
	}
	s.logger.Info("lead delivered", "sink", sink.Name(), "session_id", lead.SessionID)
}

// Wait blocks until in-flight deliveries finish or ctx is done.
func (s *Submitter) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
