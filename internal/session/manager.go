package session

import (
	"context"
	"math/rand"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/internal/telemetry"
	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/pkg/logger"
)

// backend is the persistent side of the session store. mongoBackend is the
// only production implementation; the indirection exists so tests can fail
// individual operations.
type backend interface {
	insert(ctx context.Context, rec *Record) error
	resolve(ctx context.Context, id string, now time.Time) (*Record, error)
	delete(ctx context.Context, id string) (bool, error)
	sweep(ctx context.Context, now time.Time) (int, error)
	list(ctx context.Context, now time.Time) ([]Summary, error)
}

// newBackendFunc is injectable for tests.
var newBackendFunc = func(ctx context.Context, client *mongo.Client, db, coll string, timeout time.Duration) (backend, error) {
	return newMongoBackend(ctx, client, db, coll, timeout)
}

// Config holds tuning knobs for the session store. Zero values select defaults.
type Config struct {
	Timeout          time.Duration
	MaxSessions      int
	SweepProbability float64
	Database         string
	Collection       string
}

// Manager is the session store. Its storage mode is decided exactly once,
// at construction: if the persistent backend initializes, the manager runs
// in persistent mode for the life of the process; otherwise it runs in
// fallback mode and never retries promotion (a restart is required).
//
// In persistent mode, an operation that fails against the backend is
// serviced from the in-memory map for that call only. The mode itself is
// never downgraded by a per-call error.
type Manager struct {
	mode       Mode
	persistent backend
	mem        *memoryStore

	timeout          time.Duration
	sweepProbability float64

	log logger.Logger

	nowFunc  func() time.Time
	randFunc func() float64
}

// NewManager creates the session store. client may be nil, in which case
// the manager starts directly in fallback mode.
func NewManager(ctx context.Context, client *mongo.Client, cfg Config, log logger.Logger) *Manager {
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.MaxSessions <= 0 {
		cfg.MaxSessions = DefaultMaxSessions
	}
	if cfg.SweepProbability <= 0 || cfg.SweepProbability >= 1 {
		cfg.SweepProbability = DefaultSweepProbability
	}
	if cfg.Database == "" {
		cfg.Database = DefaultDatabase
	}
	if cfg.Collection == "" {
		cfg.Collection = DefaultCollection
	}

	m := &Manager{
		mode:             ModeFallback,
		timeout:          cfg.Timeout,
		sweepProbability: cfg.SweepProbability,
		log:              log,
		nowFunc:          time.Now,
		randFunc:         rand.Float64,
	}
	m.mem = newMemoryStore(cfg.MaxSessions, cfg.Timeout, func() time.Time { return m.nowFunc() })

	if client == nil {
		log.Warn("no session database configured, sessions are held in memory only")
		return m
	}

	b, err := newBackendFunc(ctx, client, cfg.Database, cfg.Collection, cfg.Timeout)
	if err != nil {
		log.Warn("session database unavailable, falling back to in-memory sessions",
			logger.Field{Key: "error", Value: err.Error()},
		)
		return m
	}

	m.mode = ModePersistent
	m.persistent = b
	log.Info("session store backed by database collection",
		logger.Field{Key: "collection", Value: cfg.Collection},
	)
	return m
}

// Mode returns the storage mode the manager committed to at startup.
func (m *Manager) Mode() Mode { return m.mode }

// Create stores a new session for the given connection string and returns
// its token. It fails only if token generation fails; a storage error in
// persistent mode is absorbed by writing the record to the in-memory map.
func (m *Manager) Create(ctx context.Context, uri string) (string, error) {
	token, err := newToken()
	if err != nil {
		return "", err
	}

	now := m.nowFunc()
	rec := &Record{
		SessionID:      token,
		URI:            uri,
		CreatedAt:      now,
		LastAccessedAt: now,
	}

	if m.mode == ModePersistent {
		if err := m.persistent.insert(ctx, rec); err != nil {
			telemetry.FallbackActivations.Inc()
			m.log.Warn("session write failed, keeping session in memory",
				logger.Field{Key: "error", Value: err.Error()},
			)
			m.putInMemory(rec)
		}
	} else {
		m.putInMemory(rec)
	}

	telemetry.SessionsCreated.Inc()
	m.maybeSweep(ctx)
	return token, nil
}

// Resolve exchanges a session token for its connection string, sliding the
// expiry window forward. Unknown and expired tokens return
// ErrSessionNotFound; expired records are deleted on sight.
func (m *Manager) Resolve(ctx context.Context, sessionID string) (string, error) {
	defer m.maybeSweep(ctx)

	if m.mode == ModePersistent {
		rec, err := m.persistent.resolve(ctx, sessionID, m.nowFunc())
		if err != nil {
			telemetry.FallbackActivations.Inc()
			m.log.Warn("session lookup failed, trying in-memory map",
				logger.Field{Key: "error", Value: err.Error()},
			)
			return m.resolveInMemory(sessionID)
		}
		if rec != nil {
			telemetry.SessionResolves.WithLabelValues("hit").Inc()
			return rec.URI, nil
		}
		// Not in the collection; the record may have been written to the
		// in-memory map by an earlier per-call fallback.
		return m.resolveInMemory(sessionID)
	}

	return m.resolveInMemory(sessionID)
}

// Delete removes a session, reporting whether it existed. Used for explicit
// client disconnects.
func (m *Manager) Delete(ctx context.Context, sessionID string) bool {
	inMem := m.mem.delete(sessionID)
	if inMem {
		telemetry.ActiveSessions.Set(float64(m.mem.len()))
	}

	if m.mode != ModePersistent {
		return inMem
	}

	deleted, err := m.persistent.delete(ctx, sessionID)
	if err != nil {
		telemetry.FallbackActivations.Inc()
		m.log.Warn("session delete failed against database",
			logger.Field{Key: "error", Value: err.Error()},
		)
		return inMem
	}
	return deleted || inMem
}

// List returns summaries of all live sessions. Connection strings are never
// included.
func (m *Manager) List(ctx context.Context) []Summary {
	summaries := m.mem.list()

	if m.mode == ModePersistent {
		persisted, err := m.persistent.list(ctx, m.nowFunc())
		if err != nil {
			telemetry.FallbackActivations.Inc()
			m.log.Warn("session listing failed against database",
				logger.Field{Key: "error", Value: err.Error()},
			)
		} else {
			summaries = append(summaries, persisted...)
		}
	}

	sort.Slice(summaries, func(i, j int) bool {
		return summaries[i].LastAccessedAt.After(summaries[j].LastAccessedAt)
	})
	return summaries
}

// SweepExpired removes all expired sessions from both backends and returns
// how many were removed. The janitor calls this periodically; store
// operations also trigger it probabilistically.
func (m *Manager) SweepExpired(ctx context.Context) int {
	removed := m.mem.sweep()
	telemetry.ActiveSessions.Set(float64(m.mem.len()))

	if m.mode == ModePersistent {
		n, err := m.persistent.sweep(ctx, m.nowFunc())
		if err != nil {
			m.log.Warn("session expiry sweep failed against database",
				logger.Field{Key: "error", Value: err.Error()},
			)
		} else {
			removed += n
		}
	}

	if removed > 0 {
		telemetry.SessionEvictions.WithLabelValues("expired").Add(float64(removed))
		m.log.Info("swept expired sessions", logger.Field{Key: "count", Value: removed})
	}
	return removed
}

func (m *Manager) putInMemory(rec *Record) {
	if evicted := m.mem.put(rec); evicted != "" {
		telemetry.SessionEvictions.WithLabelValues("capacity").Inc()
		m.log.Info("evicted least recently accessed session, store is full",
			logger.Field{Key: "session_id", Value: evicted},
		)
	}
	telemetry.ActiveSessions.Set(float64(m.mem.len()))
}

func (m *Manager) resolveInMemory(sessionID string) (string, error) {
	rec, ok := m.mem.get(sessionID)
	if !ok {
		telemetry.SessionResolves.WithLabelValues("miss").Inc()
		return "", ErrSessionNotFound
	}
	telemetry.SessionResolves.WithLabelValues("hit").Inc()
	return rec.URI, nil
}

// maybeSweep runs a full expiry sweep with a small probability, amortizing
// cleanup over store traffic without a high-frequency timer.
func (m *Manager) maybeSweep(ctx context.Context) {
	if m.randFunc() < m.sweepProbability {
		m.SweepExpired(ctx)
	}
}
