package session

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/lavjo97/eolia-voice-relay/config"
	"github.com/lavjo97/eolia-voice-relay/logging"
	"github.com/lavjo97/eolia-voice-relay/metrics"
)

// ErrNotConfigured is returned when no upstream API key is configured.
// Sessions are refused up front rather than failing on the first start.
var ErrNotConfigured = errors.New("voice relay not configured: missing API key")

// ErrMaxSessions is returned when the session cap is reached.
var ErrMaxSessions = errors.New("maximum sessions reached")

// Manager tracks all live client sessions.
type Manager struct {
	sessions map[string]*ClientSession
	mu       sync.RWMutex
	redis    *redis.Client
	config   *config.Config
	logger   zerolog.Logger
}

// NewManager creates a session manager. Redis is optional: when it is
// unreachable the manager runs with in-memory state only.
func NewManager(cfg *config.Config) (*Manager, error) {
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisURL,
			Password: cfg.RedisPassword,
			DB:       0,
		})

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := redisClient.Ping(ctx).Err(); err != nil {
			redisClient = nil
		}
	}

	return &Manager{
		sessions: make(map[string]*ClientSession),
		redis:    redisClient,
		config:   cfg,
		logger:   logging.WithComponent("manager"),
	}, nil
}

// CreateSession registers a new session for an upgraded client connection.
func (sm *Manager) CreateSession(ctx context.Context, clientConn *websocket.Conn) (*ClientSession, error) {
	if !sm.config.OpenAIConfigured() {
		metrics.SessionsRejected.WithLabelValues("not_configured").Inc()
		return nil, ErrNotConfigured
	}

	sm.mu.Lock()
	defer sm.mu.Unlock()

	if len(sm.sessions) >= sm.config.MaxSessions {
		metrics.SessionsRejected.WithLabelValues("max_sessions").Inc()
		return nil, ErrMaxSessions
	}

	sessionID := uuid.New().String()
	session := NewClientSession(sessionID, clientConn, sm.config)
	sm.storeSession(ctx, sessionID, session)

	metrics.SessionsTotal.Inc()
	metrics.ActiveSessions.Set(float64(len(sm.sessions)))
	sm.logger.Info().Str("session_id", sessionID).Int("active", len(sm.sessions)).Msg("session created")

	return session, nil
}

// storeSession saves a session to memory and mirrors it in Redis.
func (sm *Manager) storeSession(ctx context.Context, sessionID string, session *ClientSession) {
	sm.sessions[sessionID] = session

	if sm.redis != nil {
		sm.redis.HSet(ctx, "session:"+sessionID, map[string]interface{}{
			"created_at":    session.CreatedAt.Format(time.RFC3339),
			"last_activity": session.LastActivity.Format(time.RFC3339),
			"status":        "active",
		})
		sm.redis.SAdd(ctx, "active_sessions", sessionID)
		sm.redis.Expire(ctx, "session:"+sessionID, sm.config.SessionTimeout)
	}
}

// GetSession retrieves a session by ID.
func (sm *Manager) GetSession(sessionID string) (*ClientSession, bool) {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	session, exists := sm.sessions[sessionID]
	return session, exists
}

// RemoveSession closes and forgets a session.
func (sm *Manager) RemoveSession(ctx context.Context, sessionID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[sessionID]
	if !exists {
		return nil
	}

	session.Close()
	delete(sm.sessions, sessionID)
	metrics.ActiveSessions.Set(float64(len(sm.sessions)))

	if sm.redis != nil {
		sm.redis.Del(ctx, "session:"+sessionID)
		sm.redis.SRem(ctx, "active_sessions", sessionID)
	}
	return nil
}

// GetActiveSessionCount returns the current session count.
func (sm *Manager) GetActiveSessionCount() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// CleanupInactiveSessions removes sessions idle past the timeout.
func (sm *Manager) CleanupInactiveSessions(ctx context.Context) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	now := time.Now()
	for id, session := range sm.sessions {
		session.mu.RLock()
		lastActivity := session.LastActivity
		session.mu.RUnlock()

		if now.Sub(lastActivity) > sm.config.SessionTimeout {
			sm.logger.Info().Str("session_id", id).Msg("closing inactive session")
			session.Close()
			delete(sm.sessions, id)

			if sm.redis != nil {
				sm.redis.Del(ctx, "session:"+id)
				sm.redis.SRem(ctx, "active_sessions", id)
			}
		}
	}
	metrics.ActiveSessions.Set(float64(len(sm.sessions)))
}

// StartCleanupRoutine runs periodic cleanup until the context is canceled.
func (sm *Manager) StartCleanupRoutine(ctx context.Context) {
	ticker := time.NewTicker(1 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			sm.CleanupInactiveSessions(ctx)
		}
	}
}

// Shutdown closes every session and the Redis connection.
func (sm *Manager) Shutdown() {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	for id, session := range sm.sessions {
		session.Close()
		delete(sm.sessions, id)
	}
	metrics.ActiveSessions.Set(0)

	if sm.redis != nil {
		sm.redis.Close()
	}
}
