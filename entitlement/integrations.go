package entitlement

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// IntegrationResolver fetches a caller's per-user provider configuration,
// such as calling-provider credentials, from the identity service.
type IntegrationResolver interface {
	// Resolve returns the provider config for the caller identified by the
	// Authorization header value, or nil when none is available. Resolution
	// is best-effort; failures never block the invocation that needs it.
	Resolve(ctx context.Context, provider, authorization string) map[string]any
}

// IdentityIntegrationResolver resolves integrations against the identity
// service's /me/integrations/{provider}/resolve endpoint.
type IdentityIntegrationResolver struct {
	baseURL string
	http    *http.Client
	logger  *zap.Logger
}

// NewIdentityIntegrationResolver builds a resolver for the given identity
// service base URL.
func NewIdentityIntegrationResolver(baseURL string, timeout time.Duration, logger *zap.Logger) *IdentityIntegrationResolver {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &IdentityIntegrationResolver{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		logger:  logger.With(zap.String("component", "integration_resolver")),
	}
}

// Resolve fetches the caller's provider config. A missing Authorization
// header, transport failure, or non-2xx status all resolve to nil.
func (r *IdentityIntegrationResolver) Resolve(ctx context.Context, provider, authorization string) map[string]any {
	if authorization == "" || r.baseURL == "" {
		return nil
	}

	url := r.baseURL + "/me/integrations/" + provider + "/resolve"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("Authorization", authorization)

	resp, err := r.http.Do(req)
	if err != nil {
		r.logger.Debug("integration resolution failed",
			zap.String("provider", provider),
			zap.Error(err),
		)
		return nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil
	}

	var cfg map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&cfg); err != nil {
		r.logger.Debug("integration config decode failed",
			zap.String("provider", provider),
			zap.Error(err),
		)
		return nil
	}
	return cfg
}

// NoIntegrations is a resolver that always resolves to nil.
type NoIntegrations struct{}

// Resolve implements IntegrationResolver.
func (NoIntegrations) Resolve(context.Context, string, string) map[string]any { return nil }
