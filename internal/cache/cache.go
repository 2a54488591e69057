// Package cache implements the namespaced, TTL-bounded memoization store
// shared by the workflow nodes. Keys are derived from a content hash of the
// lookup value, so identical (namespace, value) pairs always resolve to the
// same key. The cache is advisory: any backend failure degrades to a miss on
// read and a silent drop on write.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	logx "github.com/propchat-core/server/pkg/logger"
)

// Namespaces used by the workflow graph.
const (
	NamespaceSimilarity = "similarity"
	NamespaceSQL        = "sql"
	NamespaceSchema     = "schema"
	NamespaceQuery      = "query_cache"
)

// Manager is a Redis-backed cache with sha256-derived keys.
type Manager struct {
	rdb        redis.Cmdable
	defaultTTL time.Duration
}

func NewManager(rdb redis.Cmdable, defaultTTL time.Duration) *Manager {
	return &Manager{rdb: rdb, defaultTTL: defaultTTL}
}

// Key returns the storage key for a (namespace, value) pair:
// cache:<namespace>:<hex sha256(value)>.
func Key(namespace, value string) string {
	h := sha256.Sum256([]byte(value))
	return fmt.Sprintf("cache:%s:%s", namespace, hex.EncodeToString(h[:]))
}

func (m *Manager) Get(ctx context.Context, namespace, value string) (string, bool) {
	if m.rdb == nil {
		return "", false
	}
	payload, err := m.rdb.Get(ctx, Key(namespace, value)).Result()
	if err != nil {
		if err != redis.Nil {
			logx.Debug().Err(err).Str("namespace", namespace).Msg("cache read failed, treating as miss")
		}
		return "", false
	}
	return payload, true
}

func (m *Manager) Set(ctx context.Context, namespace, value, payload string, ttl time.Duration) {
	if m.rdb == nil {
		return
	}
	if ttl <= 0 {
		ttl = m.defaultTTL
	}
	if err := m.rdb.Set(ctx, Key(namespace, value), payload, ttl).Err(); err != nil {
		logx.Debug().Err(err).Str("namespace", namespace).Msg("cache write failed, dropping entry")
	}
}

// GetJSON reads and deserializes a JSON payload into out. A malformed payload
// is treated as a miss so the caller recomputes from source.
func (m *Manager) GetJSON(ctx context.Context, namespace, value string, out any) bool {
	payload, ok := m.Get(ctx, namespace, value)
	if !ok {
		return false
	}
	if err := json.Unmarshal([]byte(payload), out); err != nil {
		logx.Debug().Err(err).Str("namespace", namespace).Msg("malformed cached payload, treating as miss")
		return false
	}
	return true
}

func (m *Manager) SetJSON(ctx context.Context, namespace, value string, payload any, ttl time.Duration) {
	b, err := json.Marshal(payload)
	if err != nil {
		logx.Debug().Err(err).Str("namespace", namespace).Msg("cache payload not serializable, dropping entry")
		return
	}
	m.Set(ctx, namespace, value, string(b), ttl)
}

// Delete removes one entry. Failures are dropped like writes.
func (m *Manager) Delete(ctx context.Context, namespace, value string) {
	if m.rdb == nil {
		return
	}
	if err := m.rdb.Del(ctx, Key(namespace, value)).Err(); err != nil {
		logx.Debug().Err(err).Str("namespace", namespace).Msg("cache delete failed")
	}
}
