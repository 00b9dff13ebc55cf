package services

import (
	"time"

	"github.com/nimasrn/vending-gateway/pkg/logger"
	"github.com/nimasrn/vending-gateway/pkg/redis"
)

const webhookGuardPrefix = "webhook:"

// WebhookGuard short-circuits exact duplicate webhook deliveries. It is an
// optimization only: the database write path is idempotent without it, so
// the guard fails open when redis is unreachable.
type WebhookGuard struct {
	redis redis.RedisAdapter
	ttl   time.Duration
}

func NewWebhookGuard(adapter redis.RedisAdapter, ttl time.Duration) *WebhookGuard {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &WebhookGuard{
		redis: adapter,
		ttl:   ttl,
	}
}

// Seen reports whether the (charge, status) pair was already processed. It
// never writes: the pair is recorded by Mark once the database write commits,
// so a delivery that failed mid-flight does not suppress the gateway's retry.
func (g *WebhookGuard) Seen(chargeID, status string) bool {
	n, err := g.redis.Exist(guardKey(chargeID, status))
	if err != nil {
		logger.Warn("webhook guard unavailable, processing anyway", "charge_id", chargeID, "error", err)
		return false
	}
	return n > 0
}

// Mark records the (charge, status) pair as processed. Call only after the
// corresponding state change committed.
func (g *WebhookGuard) Mark(chargeID, status string) {
	if _, err := g.redis.SetNX(guardKey(chargeID, status), []byte("1"), g.ttl); err != nil {
		logger.Warn("webhook guard mark failed", "charge_id", chargeID, "error", err)
	}
}

func guardKey(chargeID, status string) string {
	return webhookGuardPrefix + chargeID + ":" + status
}
