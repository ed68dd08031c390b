package calllog

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// IdentityRecorder posts call events to the identity service's call endpoint.
type IdentityRecorder struct {
	url    string
	http   *http.Client
	logger *zap.Logger
}

// NewIdentityRecorder builds a recorder against the given endpoint.
func NewIdentityRecorder(url string, timeout time.Duration, logger *zap.Logger) *IdentityRecorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &IdentityRecorder{
		url:    url,
		http:   &http.Client{Timeout: timeout},
		logger: logger.With(zap.String("component", "call_log")),
	}
}

// Record implements Recorder.
func (r *IdentityRecorder) Record(ctx context.Context, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		r.logger.Warn("call log marshal failed", zap.Error(err))
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		r.logger.Warn("call log delivery failed", zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		err := fmt.Errorf("call log store returned %d", resp.StatusCode)
		r.logger.Warn("call log rejected", zap.Error(err))
		return err
	}
	return nil
}
