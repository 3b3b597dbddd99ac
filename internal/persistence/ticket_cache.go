package persistence

import (
	"context"
	"encoding/json"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk-service/internal/domain"
)

const ticketCachePrefix = "ticket:"

// TicketCache is a redis-backed read-through cache for ticket views.
// Entries expire on a short TTL and are invalidated on every transition, so
// reads may be slightly stale but never survive a mutation.
type TicketCache struct {
	client *redis.Client
	ttl    time.Duration
	logger *zap.Logger
}

// NewTicketCache builds the cache. A zero TTL disables caching.
func NewTicketCache(r *Redis, ttl time.Duration, logger *zap.Logger) *TicketCache {
	if r == nil || r.Client == nil || ttl <= 0 {
		return nil
	}
	return &TicketCache{client: r.Client, ttl: ttl, logger: logger}
}

// Get returns a cached ticket view, if present.
func (c *TicketCache) Get(ctx context.Context, id string) (*domain.Ticket, bool) {
	if c == nil {
		return nil, false
	}
	raw, err := c.client.Get(ctx, ticketCachePrefix+id).Bytes()
	if err != nil {
		return nil, false
	}
	var ticket domain.Ticket
	if err := json.Unmarshal(raw, &ticket); err != nil {
		c.logger.Warn("ticket cache decode failed", zap.String("ticket_id", id), zap.Error(err))
		return nil, false
	}
	return &ticket, true
}

// Set stores a ticket view. Failures are logged and ignored; the cache is
// best-effort.
func (c *TicketCache) Set(ctx context.Context, ticket *domain.Ticket) {
	if c == nil || ticket == nil {
		return
	}
	raw, err := json.Marshal(ticket)
	if err != nil {
		return
	}
	if err := c.client.Set(ctx, ticketCachePrefix+ticket.ID, raw, c.ttl).Err(); err != nil {
		c.logger.Warn("ticket cache set failed", zap.String("ticket_id", ticket.ID), zap.Error(err))
	}
}

// Invalidate drops a ticket view after a transition.
func (c *TicketCache) Invalidate(ctx context.Context, id string) {
	if c == nil {
		return
	}
	if err := c.client.Del(ctx, ticketCachePrefix+id).Err(); err != nil {
		c.logger.Warn("ticket cache invalidate failed", zap.String("ticket_id", id), zap.Error(err))
	}
}
