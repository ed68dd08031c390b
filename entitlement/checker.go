// Package entitlement answers whether a tenant's subscription permits a
// capability. Decisions come from the identity service and are cached in
// Redis for a short TTL; any failure to obtain a decision is treated as
// denial.
package entitlement

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/pangents/orchestrator/config"
)

// Checker is the entitlement decision interface consumed by the gateway.
type Checker interface {
	// Allowed reports whether the tenant may invoke the capability.
	// It fails closed: an unreachable identity service means false.
	Allowed(ctx context.Context, tenantID, capabilityID string) bool
}

// subscriptionResponse is the identity service's subscription payload.
// A "*" entry entitles the tenant to every capability.
type subscriptionResponse struct {
	Agents []string `json:"agents"`
}

// IdentityChecker queries the identity service's per-tenant subscription
// endpoint, deduplicating concurrent lookups for the same tenant and caching
// the allow-list in Redis when a client is configured.
type IdentityChecker struct {
	baseURL string
	http    *http.Client
	cache   *redis.Client
	ttl     time.Duration
	group   singleflight.Group
	logger  *zap.Logger
	metrics cacheMetrics
}

// cacheMetrics is the subset of the metrics collector the checker reports to.
type cacheMetrics interface {
	RecordCacheHit()
	RecordCacheMiss()
	RecordEntitlementDenied(capabilityID string)
}

// NewIdentityChecker builds a checker against the configured identity
// service. cache may be nil, which disables decision caching.
func NewIdentityChecker(cfg config.IdentityConfig, cacheCfg config.RedisConfig, metrics cacheMetrics, logger *zap.Logger) *IdentityChecker {
	if logger == nil {
		logger = zap.NewNop()
	}

	var cache *redis.Client
	if cacheCfg.Addr != "" {
		cache = redis.NewClient(&redis.Options{
			Addr:     cacheCfg.Addr,
			Password: cacheCfg.Password,
			DB:       cacheCfg.DB,
		})
	}

	return &IdentityChecker{
		baseURL: cfg.BaseURL,
		http:    &http.Client{Timeout: cfg.Timeout},
		cache:   cache,
		ttl:     cacheCfg.TTL,
		logger:  logger.With(zap.String("component", "entitlement")),
		metrics: metrics,
	}
}

// NewIdentityCheckerWithClients builds a checker from pre-built clients.
// Used by tests to point at httptest servers and miniredis.
func NewIdentityCheckerWithClients(baseURL string, httpClient *http.Client, cache *redis.Client, ttl time.Duration, metrics cacheMetrics, logger *zap.Logger) *IdentityChecker {
	if logger == nil {
		logger = zap.NewNop()
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 20 * time.Second}
	}
	return &IdentityChecker{
		baseURL: baseURL,
		http:    httpClient,
		cache:   cache,
		ttl:     ttl,
		logger:  logger.With(zap.String("component", "entitlement")),
		metrics: metrics,
	}
}

// Allowed implements Checker.
func (c *IdentityChecker) Allowed(ctx context.Context, tenantID, capabilityID string) bool {
	if tenantID == "" || capabilityID == "" {
		return false
	}

	allowed, err := c.decide(ctx, tenantID, capabilityID)
	if err != nil {
		c.logger.Warn("entitlement check failed, denying",
			zap.String("tenant_id", tenantID),
			zap.String("capability_id", capabilityID),
			zap.Error(err),
		)
		allowed = false
	}
	if !allowed && c.metrics != nil {
		c.metrics.RecordEntitlementDenied(capabilityID)
	}
	return allowed
}

func (c *IdentityChecker) decide(ctx context.Context, tenantID, capabilityID string) (bool, error) {
	if cached, ok := c.cachedDecision(ctx, tenantID, capabilityID); ok {
		return cached, nil
	}

	// Concurrent checks for one tenant share a single identity lookup.
	v, err, _ := c.group.Do(tenantID, func() (any, error) {
		return c.fetchAgents(ctx, tenantID)
	})
	if err != nil {
		return false, err
	}

	agents := v.([]string)
	allowed := decideFromAgents(agents, capabilityID)
	c.storeDecision(ctx, tenantID, capabilityID, allowed)
	return allowed, nil
}

func decideFromAgents(agents []string, capabilityID string) bool {
	for _, a := range agents {
		if a == "*" || a == capabilityID {
			return true
		}
	}
	return false
}

func (c *IdentityChecker) fetchAgents(ctx context.Context, tenantID string) ([]string, error) {
	url := fmt.Sprintf("%s/tenants/%s/subscriptions", c.baseURL, tenantID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, fmt.Errorf("identity service returned %d", resp.StatusCode)
	}

	var sub subscriptionResponse
	if err := json.NewDecoder(resp.Body).Decode(&sub); err != nil {
		return nil, fmt.Errorf("malformed subscription response: %w", err)
	}
	return sub.Agents, nil
}

func (c *IdentityChecker) cacheKey(tenantID, capabilityID string) string {
	return "orchestrator:entitlement:" + tenantID + ":" + capabilityID
}

func (c *IdentityChecker) cachedDecision(ctx context.Context, tenantID, capabilityID string) (bool, bool) {
	if c.cache == nil {
		return false, false
	}
	val, err := c.cache.Get(ctx, c.cacheKey(tenantID, capabilityID)).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Debug("entitlement cache read failed", zap.Error(err))
		}
		if c.metrics != nil {
			c.metrics.RecordCacheMiss()
		}
		return false, false
	}
	if c.metrics != nil {
		c.metrics.RecordCacheHit()
	}
	allowed, err := strconv.ParseBool(val)
	if err != nil {
		return false, false
	}
	return allowed, true
}

func (c *IdentityChecker) storeDecision(ctx context.Context, tenantID, capabilityID string, allowed bool) {
	if c.cache == nil {
		return
	}
	if err := c.cache.Set(ctx, c.cacheKey(tenantID, capabilityID), strconv.FormatBool(allowed), c.ttl).Err(); err != nil {
		c.logger.Debug("entitlement cache write failed", zap.Error(err))
	}
}

// Close releases the cache connection.
func (c *IdentityChecker) Close() error {
	if c.cache == nil {
		return nil
	}
	return c.cache.Close()
}
