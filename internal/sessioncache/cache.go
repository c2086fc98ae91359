// Package sessioncache persists per-session routing state as an opaque
// JSON blob so consent flows survive process restarts. The blob carries
// derived flags only, never turn text.
package sessioncache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/logger"
	"github.com/taurinrobinson-wq/saoriverse-console-sub005/internal/types"
)

// Cache loads and stores SessionState by session id. Get returns nil
// with no error when the session is unknown.
type Cache interface {
	Get(ctx context.Context, sessionID string) (*types.SessionState, error)
	Put(ctx context.Context, state *types.SessionState) error
}

const (
	keyPrefix  = "session:"
	defaultTTL = 24 * time.Hour
)

type redisCache struct {
	client *redis.Client
	ttl    time.Duration
	log    *logger.Logger
}

func NewRedisCache(client *redis.Client, baseLog *logger.Logger) Cache {
	return &redisCache{
		client: client,
		ttl:    defaultTTL,
		log:    baseLog.With("component", "SessionCache"),
	}
}

func (c *redisCache) Get(ctx context.Context, sessionID string) (*types.SessionState, error) {
	raw, err := c.client.Get(ctx, keyPrefix+sessionID).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("sessioncache: get: %w", err)
	}
	var state types.SessionState
	if err := json.Unmarshal(raw, &state); err != nil {
		// A blob we cannot read is treated as absent; the session
		// restarts clean rather than erroring every turn.
		c.log.Warn("discarding unreadable session blob", "session_id", sessionID, "error", err)
		return nil, nil
	}
	return &state, nil
}

func (c *redisCache) Put(ctx context.Context, state *types.SessionState) error {
	raw, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("sessioncache: marshal: %w", err)
	}
	if err := c.client.Set(ctx, keyPrefix+state.SessionID, raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("sessioncache: put: %w", err)
	}
	return nil
}

type memoryCache struct {
	mu     sync.Mutex
	states map[string]types.SessionState
}

// NewMemoryCache is the in-process fallback used when redis is not
// configured, and the default for tests.
func NewMemoryCache() Cache {
	return &memoryCache{states: map[string]types.SessionState{}}
}

func (c *memoryCache) Get(_ context.Context, sessionID string) (*types.SessionState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	state, ok := c.states[sessionID]
	if !ok {
		return nil, nil
	}
	copied := state
	return &copied, nil
}

func (c *memoryCache) Put(_ context.Context, state *types.SessionState) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.states[state.SessionID] = *state
	return nil
}
