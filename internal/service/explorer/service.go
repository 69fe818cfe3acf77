// Package explorer implements the document database operations exposed by
// the REST API: listing databases and collections, querying and mutating
// documents, running aggregations, sampling schemas and exporting data.
//
// Every operation resolves the caller's session token to a connection
// string, then borrows a pooled connection for the target deployment.
package explorer

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/internal/pool"
	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/internal/session"
	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/pkg/logger"
	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/pkg/types"
)

const (
	// DefaultQueryLimit applies when a query request omits a limit.
	DefaultQueryLimit = 50

	// MaxQueryLimit caps the number of documents a single query returns.
	MaxQueryLimit = 1000

	// MaxExportLimit caps the number of documents a single export streams.
	MaxExportLimit = 100_000
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("document not found")

// Service performs operations against client-selected deployments.
type Service struct {
	pool     *pool.Pool
	sessions *session.Manager
	log      logger.Logger
}

// NewService creates the explorer service.
func NewService(p *pool.Pool, sessions *session.Manager, log logger.Logger) *Service {
	return &Service{pool: p, sessions: sessions, log: log}
}

// clientFor resolves the session token and borrows a pooled connection for
// its deployment. session.ErrSessionNotFound and *pool.ConnectionError pass
// through untouched so the API layer can map them to status codes.
func (s *Service) clientFor(ctx context.Context, sessionID string) (*mongo.Client, string, error) {
	uri, err := s.sessions.Resolve(ctx, sessionID)
	if err != nil {
		return nil, "", err
	}
	c, err := s.pool.Acquire(ctx, uri)
	if err != nil {
		return nil, "", err
	}
	return c, uri, nil
}

// invalidateOnError drops the pooled connection if the failed operation
// looks like a connection problem, so the next acquire dials a fresh one.
func (s *Service) invalidateOnError(ctx context.Context, uri string, err error) {
	if err == nil || uri == "" {
		return
	}
	if pool.IsConnectionError(err) {
		s.log.Warn("invalidating pooled connection after error",
			logger.Field{Key: "error", Value: err.Error()},
		)
		s.pool.Release(ctx, uri)
	}
}

// ListDatabases returns the databases visible on the session's deployment.
func (s *Service) ListDatabases(ctx context.Context, sessionID string) ([]types.DatabaseInfo, error) {
	c, uri, err := s.clientFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	res, err := c.ListDatabases(ctx, bson.M{})
	if err != nil {
		s.invalidateOnError(ctx, uri, err)
		return nil, fmt.Errorf("failed to list databases: %w", err)
	}

	out := make([]types.DatabaseInfo, 0, len(res.Databases))
	for _, d := range res.Databases {
		out = append(out, types.DatabaseInfo{
			Name:       d.Name,
			SizeOnDisk: d.SizeOnDisk,
			Empty:      d.Empty,
		})
	}
	return out, nil
}

// ListCollections returns the collection names of a database.
func (s *Service) ListCollections(ctx context.Context, sessionID, database string) ([]string, error) {
	c, uri, err := s.clientFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	names, err := c.Database(database).ListCollectionNames(ctx, bson.M{})
	if err != nil {
		s.invalidateOnError(ctx, uri, err)
		return nil, fmt.Errorf("failed to list collections in %s: %w", database, err)
	}
	return names, nil
}

// CollectionStats returns the document count and index names of a collection.
func (s *Service) CollectionStats(ctx context.Context, sessionID, database, collection string) (*types.CollectionStats, error) {
	c, uri, err := s.clientFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}
	coll := c.Database(database).Collection(collection)

	count, err := coll.EstimatedDocumentCount(ctx)
	if err != nil {
		s.invalidateOnError(ctx, uri, err)
		return nil, fmt.Errorf("failed to count documents in %s.%s: %w", database, collection, err)
	}

	cur, err := coll.Indexes().List(ctx)
	if err != nil {
		s.invalidateOnError(ctx, uri, err)
		return nil, fmt.Errorf("failed to list indexes of %s.%s: %w", database, collection, err)
	}
	defer cur.Close(ctx)

	var indexes []string
	for cur.Next(ctx) {
		var idx struct {
			Name string `bson:"name"`
		}
		if err := cur.Decode(&idx); err != nil {
			return nil, fmt.Errorf("failed to decode index spec: %w", err)
		}
		indexes = append(indexes, idx.Name)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate index specs: %w", err)
	}

	return &types.CollectionStats{
		Name:          collection,
		DocumentCount: count,
		Indexes:       indexes,
	}, nil
}
