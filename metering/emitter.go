// Package metering delivers usage events to the billing collector. Emission
// is decoupled from the request path by a bounded queue and a background
// worker; collector failures are retried a few times and then dropped, never
// surfacing to the invocation that produced the event.
package metering

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/pangents/orchestrator/config"
	"github.com/pangents/orchestrator/types"
)

// Emitter accepts usage events for asynchronous delivery.
type Emitter interface {
	// Emit enqueues an event. It never blocks: when the queue is full the
	// event is dropped and counted.
	Emit(event types.UsageEvent)
}

type emitterMetrics interface {
	RecordUsageEventEmitted(outcome string)
	RecordUsageEventDropped()
}

// HTTPEmitter posts usage events to the metering collector endpoint.
type HTTPEmitter struct {
	collectorURL string
	http         *http.Client
	queue        chan types.UsageEvent
	maxRetries   int
	retryBackoff time.Duration
	logger       *zap.Logger
	metrics      emitterMetrics

	mu        sync.RWMutex
	closed    bool
	closeOnce sync.Once
	stop      chan struct{}
	done      chan struct{}
}

// NewHTTPEmitter starts the delivery worker.
func NewHTTPEmitter(cfg config.MeteringConfig, metrics emitterMetrics, logger *zap.Logger) *HTTPEmitter {
	if logger == nil {
		logger = zap.NewNop()
	}
	queueSize := cfg.QueueSize
	if queueSize <= 0 {
		queueSize = 1024
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}

	e := &HTTPEmitter{
		collectorURL: cfg.CollectorURL,
		http:         &http.Client{Timeout: cfg.Timeout},
		queue:        make(chan types.UsageEvent, queueSize),
		maxRetries:   cfg.MaxRetries,
		retryBackoff: cfg.RetryBackoff,
		logger:       logger.With(zap.String("component", "metering")),
		metrics:      metrics,
	}
	e.stop = make(chan struct{})
	e.done = make(chan struct{})
	go e.worker()
	return e
}

// Emit implements Emitter. Events arriving after Close are dropped; late
// emissions from requests abandoned at the shutdown deadline must not fail.
func (e *HTTPEmitter) Emit(event types.UsageEvent) {
	if event.At.IsZero() {
		event.At = time.Now().UTC()
	}

	e.mu.RLock()
	defer e.mu.RUnlock()
	if e.closed {
		e.dropEvent(event, "emitter closed, dropping event")
		return
	}

	select {
	case e.queue <- event:
	default:
		e.dropEvent(event, "metering queue full, dropping event")
	}
}

func (e *HTTPEmitter) dropEvent(event types.UsageEvent, reason string) {
	if e.metrics != nil {
		e.metrics.RecordUsageEventDropped()
	}
	e.logger.Warn(reason,
		zap.String("capability_id", event.CapabilityID),
		zap.String("tenant_id", event.TenantID),
	)
}

// Close stops accepting events and drains the queue before returning. The
// queue channel itself is never closed, so a straggling Emit cannot panic.
func (e *HTTPEmitter) Close() {
	e.closeOnce.Do(func() {
		e.mu.Lock()
		e.closed = true
		e.mu.Unlock()
		close(e.stop)
		<-e.done
	})
}

func (e *HTTPEmitter) worker() {
	defer close(e.done)
	for {
		select {
		case event := <-e.queue:
			e.deliver(event)
		case <-e.stop:
			// Deliver whatever was queued before close, then exit.
			for {
				select {
				case event := <-e.queue:
					e.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (e *HTTPEmitter) deliver(event types.UsageEvent) {
	var lastErr error
	for attempt := 0; attempt <= e.maxRetries; attempt++ {
		if attempt > 0 {
			time.Sleep(e.retryBackoff * time.Duration(attempt))
		}
		if lastErr = e.post(event); lastErr == nil {
			if e.metrics != nil {
				e.metrics.RecordUsageEventEmitted("delivered")
			}
			return
		}
	}

	if e.metrics != nil {
		e.metrics.RecordUsageEventEmitted("failed")
	}
	e.logger.Warn("usage event delivery failed",
		zap.String("capability_id", event.CapabilityID),
		zap.String("tenant_id", event.TenantID),
		zap.Error(lastErr),
	)
}

func (e *HTTPEmitter) post(event types.UsageEvent) error {
	body, err := json.Marshal(event)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), e.http.Timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, e.collectorURL, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := e.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("collector returned %d", resp.StatusCode)
	}
	return nil
}

// Discard is an Emitter that drops everything. Used when metering is not
// configured and in tests that don't observe usage.
type Discard struct{}

func (Discard) Emit(types.UsageEvent) {}
