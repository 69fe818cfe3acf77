// Package pool manages live connections to target MongoDB deployments.
// It keeps at most one client per connection string, reuses healthy
// connections across requests and discards dead or idle ones.
package pool

import (
	"context"
	"math/rand"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"golang.org/x/sync/singleflight"

	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/internal/telemetry"
	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/pkg/logger"
)

const (
	// DefaultConnectTimeout bounds dialing and server selection for new connections.
	DefaultConnectTimeout = 15 * time.Second

	// DefaultProbeTimeout bounds the liveness ping issued before reusing a pooled connection.
	DefaultProbeTimeout = 3 * time.Second

	// DefaultIdleTimeout is how long a pooled connection may stay unused before a sweep closes it.
	DefaultIdleTimeout = 30 * time.Minute

	// DefaultMaxSize is the default cap on distinct pooled connections.
	DefaultMaxSize = 64

	// idleSweepProbability is the chance that an Acquire also runs a full
	// idle sweep, so abandoned entries are closed even when the periodic
	// scheduler is disabled.
	idleSweepProbability = 0.05
)

// Entry is one pooled connection, keyed by the fingerprint of its connection string.
type Entry struct {
	Fingerprint string
	Client      *mongo.Client
	CreatedAt   time.Time
	LastUsedAt  time.Time
}

// Summary describes a pooled connection for introspection.
// It never includes the connection string.
type Summary struct {
	FingerprintPrefix string
	CreatedAt         time.Time
	LastUsedAt        time.Time
	Idle              time.Duration
}

// Config holds tuning knobs for the pool. Zero values select defaults.
type Config struct {
	ConnectTimeout time.Duration
	ProbeTimeout   time.Duration
	IdleTimeout    time.Duration
	MaxSize        int
}

// Pool hands out live MongoDB clients keyed by connection string fingerprint.
// It is the sole owner of the clients it creates: callers never close a
// returned client themselves.
type Pool struct {
	mu      sync.RWMutex
	entries map[string]*Entry // key: fingerprint

	// group serializes connection creation per fingerprint so that
	// concurrent Acquire calls for an unpooled connection string share a
	// single dial instead of racing.
	group singleflight.Group

	connectTimeout time.Duration
	probeTimeout   time.Duration
	idleTimeout    time.Duration
	maxSize        int

	log logger.Logger

	// Injectable for tests.
	connectFunc func(ctx context.Context, uri string) (*mongo.Client, error)
	pingFunc    func(ctx context.Context, c *mongo.Client) error
	closeFunc   func(ctx context.Context, c *mongo.Client) error
	nowFunc     func() time.Time
	randFunc    func() float64
}

// New creates a connection pool with the given configuration.
func New(cfg Config, log logger.Logger) *Pool {
	if cfg.ConnectTimeout <= 0 {
		cfg.ConnectTimeout = DefaultConnectTimeout
	}
	if cfg.ProbeTimeout <= 0 {
		cfg.ProbeTimeout = DefaultProbeTimeout
	}
	if cfg.IdleTimeout <= 0 {
		cfg.IdleTimeout = DefaultIdleTimeout
	}
	if cfg.MaxSize <= 0 {
		cfg.MaxSize = DefaultMaxSize
	}

	p := &Pool{
		entries:        make(map[string]*Entry),
		connectTimeout: cfg.ConnectTimeout,
		probeTimeout:   cfg.ProbeTimeout,
		idleTimeout:    cfg.IdleTimeout,
		maxSize:        cfg.MaxSize,
		log:            log,
		nowFunc:        time.Now,
		randFunc:       rand.Float64,
	}
	p.connectFunc = p.mongoConnect
	p.pingFunc = func(ctx context.Context, c *mongo.Client) error {
		return c.Ping(ctx, readpref.Primary())
	}
	p.closeFunc = func(ctx context.Context, c *mongo.Client) error {
		return c.Disconnect(ctx)
	}
	return p
}

// Acquire returns a live client for the given connection string, reusing a
// pooled one when its liveness probe passes and dialing a new one otherwise.
// Dial failures are returned as *ConnectionError and are never retried here.
func (p *Pool) Acquire(ctx context.Context, uri string) (*mongo.Client, error) {
	defer p.maybeSweepIdle(ctx)

	fp := Fingerprint(uri)

	if c, ok := p.reuse(ctx, fp); ok {
		return c, nil
	}

	v, err, _ := p.group.Do(fp, func() (any, error) {
		// A concurrent caller may have pooled a connection while this one
		// waited on the flight; probe it before dialing again.
		if c, ok := p.reuse(ctx, fp); ok {
			return c, nil
		}
		return p.dial(ctx, uri, fp)
	})
	if err != nil {
		return nil, err
	}
	return v.(*mongo.Client), nil
}

// Release closes and removes the pooled connection for the given connection
// string. It reports whether an entry existed.
func (p *Pool) Release(ctx context.Context, uri string) bool {
	fp := Fingerprint(uri)

	p.mu.Lock()
	e, ok := p.entries[fp]
	if ok {
		delete(p.entries, fp)
	}
	p.mu.Unlock()

	if !ok {
		return false
	}

	telemetry.PooledConnections.Dec()
	if err := p.closeFunc(ctx, e.Client); err != nil {
		p.log.Warn("error closing released connection",
			logger.Field{Key: "fingerprint", Value: shortFingerprint(fp)},
			logger.Field{Key: "error", Value: err.Error()},
		)
	}
	return true
}

// SweepIdle closes and removes connections whose idle time exceeds the idle
// timeout. Close failures on individual entries are logged and do not abort
// the sweep. It returns the number of evicted entries.
func (p *Pool) SweepIdle(ctx context.Context) int {
	now := p.nowFunc()

	p.mu.Lock()
	var idle []*Entry
	for fp, e := range p.entries {
		if now.Sub(e.LastUsedAt) > p.idleTimeout {
			idle = append(idle, e)
			delete(p.entries, fp)
		}
	}
	p.mu.Unlock()

	for _, e := range idle {
		telemetry.PooledConnections.Dec()
		telemetry.IdleEvictions.Inc()
		p.log.Info("closing idle connection",
			logger.Field{Key: "fingerprint", Value: shortFingerprint(e.Fingerprint)},
			logger.Field{Key: "idle", Value: now.Sub(e.LastUsedAt).String()},
		)
		if err := p.closeFunc(ctx, e.Client); err != nil {
			p.log.Warn("error closing idle connection",
				logger.Field{Key: "fingerprint", Value: shortFingerprint(e.Fingerprint)},
				logger.Field{Key: "error", Value: err.Error()},
			)
		}
	}
	return len(idle)
}

// ListActive returns a summary of all pooled connections, most recently
// used first.
func (p *Pool) ListActive() []Summary {
	now := p.nowFunc()

	p.mu.RLock()
	out := make([]Summary, 0, len(p.entries))
	for _, e := range p.entries {
		out = append(out, Summary{
			FingerprintPrefix: shortFingerprint(e.Fingerprint),
			CreatedAt:         e.CreatedAt,
			LastUsedAt:        e.LastUsedAt,
			Idle:              now.Sub(e.LastUsedAt),
		})
	}
	p.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool { return out[i].LastUsedAt.After(out[j].LastUsedAt) })
	return out
}

// Size returns the number of pooled connections.
func (p *Pool) Size() int {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return len(p.entries)
}

// Shutdown closes all pooled connections. Called on server shutdown.
func (p *Pool) Shutdown(ctx context.Context) {
	p.mu.Lock()
	entries := make([]*Entry, 0, len(p.entries))
	for fp, e := range p.entries {
		entries = append(entries, e)
		delete(p.entries, fp)
	}
	p.mu.Unlock()

	for _, e := range entries {
		telemetry.PooledConnections.Dec()
		if err := p.closeFunc(ctx, e.Client); err != nil {
			p.log.Warn("error closing connection during shutdown",
				logger.Field{Key: "fingerprint", Value: shortFingerprint(e.Fingerprint)},
				logger.Field{Key: "error", Value: err.Error()},
			)
		}
	}
	p.log.Info("closed all pooled connections", logger.Field{Key: "count", Value: len(entries)})
}

// reuse returns the pooled client for fp if it exists, is not idle-expired
// and passes a liveness probe. Idle-expired and dead entries are closed and
// removed so the caller dials a fresh connection.
func (p *Pool) reuse(ctx context.Context, fp string) (*mongo.Client, bool) {
	p.mu.RLock()
	e, ok := p.entries[fp]
	p.mu.RUnlock()
	if !ok {
		return nil, false
	}

	if p.nowFunc().Sub(e.LastUsedAt) > p.idleTimeout {
		telemetry.IdleEvictions.Inc()
		p.log.Info("discarding idle-expired connection",
			logger.Field{Key: "fingerprint", Value: shortFingerprint(fp)},
		)
		p.remove(ctx, fp, e)
		return nil, false
	}

	probeCtx, cancel := context.WithTimeout(ctx, p.probeTimeout)
	err := p.pingFunc(probeCtx, e.Client)
	cancel()
	if err != nil {
		telemetry.ProbeFailures.Inc()
		p.log.Warn("liveness probe failed, discarding pooled connection",
			logger.Field{Key: "fingerprint", Value: shortFingerprint(fp)},
			logger.Field{Key: "error", Value: err.Error()},
		)
		p.remove(ctx, fp, e)
		return nil, false
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	cur, ok := p.entries[fp]
	if !ok || cur != e {
		// The entry was removed or replaced while the probe was in flight.
		return nil, false
	}
	cur.LastUsedAt = p.nowFunc()
	return cur.Client, true
}

// dial opens a new connection, pools it and returns the client.
// The caller must hold the single-flight slot for fp.
func (p *Pool) dial(ctx context.Context, uri, fp string) (*mongo.Client, error) {
	telemetry.ConnectAttempts.Inc()

	dialCtx, cancel := context.WithTimeout(ctx, p.connectTimeout)
	defer cancel()

	c, err := p.connectFunc(dialCtx, uri)
	if err != nil {
		telemetry.ConnectFailures.Inc()
		return nil, &ConnectionError{Cause: err}
	}

	now := p.nowFunc()
	e := &Entry{
		Fingerprint: fp,
		Client:      c,
		CreatedAt:   now,
		LastUsedAt:  now,
	}

	p.mu.Lock()
	evicted := p.evictForCapacityLocked()
	p.entries[fp] = e
	p.mu.Unlock()

	for _, old := range evicted {
		telemetry.PooledConnections.Dec()
		p.log.Info("evicting least recently used connection, pool is full",
			logger.Field{Key: "fingerprint", Value: shortFingerprint(old.Fingerprint)},
		)
		if err := p.closeFunc(ctx, old.Client); err != nil {
			p.log.Warn("error closing evicted connection",
				logger.Field{Key: "fingerprint", Value: shortFingerprint(old.Fingerprint)},
				logger.Field{Key: "error", Value: err.Error()},
			)
		}
	}

	telemetry.PooledConnections.Inc()
	p.log.Info("opened new connection",
		logger.Field{Key: "fingerprint", Value: shortFingerprint(fp)},
	)
	return c, nil
}

// evictForCapacityLocked removes least recently used entries until there is
// room for one more. Callers must hold p.mu.
func (p *Pool) evictForCapacityLocked() []*Entry {
	var evicted []*Entry
	for len(p.entries) >= p.maxSize {
		var lru *Entry
		for _, e := range p.entries {
			if lru == nil || e.LastUsedAt.Before(lru.LastUsedAt) {
				lru = e
			}
		}
		if lru == nil {
			break
		}
		delete(p.entries, lru.Fingerprint)
		evicted = append(evicted, lru)
	}
	return evicted
}

// maybeSweepIdle runs a full idle sweep with a small probability, amortizing
// cleanup over pool traffic so eviction does not depend on the periodic
// scheduler running.
func (p *Pool) maybeSweepIdle(ctx context.Context) {
	if p.randFunc() < idleSweepProbability {
		p.SweepIdle(ctx)
	}
}

// remove closes and deletes the entry for fp if it is still the pooled one.
func (p *Pool) remove(ctx context.Context, fp string, e *Entry) {
	p.mu.Lock()
	cur, ok := p.entries[fp]
	if ok && cur == e {
		delete(p.entries, fp)
	} else {
		ok = false
	}
	p.mu.Unlock()

	if !ok {
		return
	}
	telemetry.PooledConnections.Dec()
	if err := p.closeFunc(ctx, e.Client); err != nil {
		p.log.Warn("error closing dead connection",
			logger.Field{Key: "fingerprint", Value: shortFingerprint(fp)},
			logger.Field{Key: "error", Value: err.Error()},
		)
	}
}

// mongoConnect dials a MongoDB deployment with bounded connect, server
// selection and socket timeouts, and verifies the connection with a ping.
func (p *Pool) mongoConnect(ctx context.Context, uri string) (*mongo.Client, error) {
	opts := options.Client().
		ApplyURI(uri).
		SetConnectTimeout(p.connectTimeout).
		SetServerSelectionTimeout(p.connectTimeout).
		SetSocketTimeout(p.connectTimeout).
		SetMaxConnIdleTime(p.idleTimeout)

	c, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := c.Ping(ctx, readpref.Primary()); err != nil {
		// Connect itself does not dial; a failed ping means the deployment
		// is unreachable, so release the client before reporting.
		_ = c.Disconnect(context.Background())
		return nil, err
	}
	return c, nil
}
