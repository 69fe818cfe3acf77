// Package db provides the connection to the backend's own session database.
package db

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/pkg/logger"
)

// connectTimeout bounds dialing the session database at startup.
// Failure here is non-fatal: the session store falls back to memory.
const connectTimeout = 10 * time.Second

// NewSessionDBConnection connects to the MongoDB deployment that stores
// session records. If url is empty, it returns (nil, nil) and the caller
// runs with in-memory sessions.
//
// This connection is intentionally separate from the pool of client-supplied
// deployments: the session database is operator infrastructure, not a
// client target.
func NewSessionDBConnection(ctx context.Context, log logger.Logger, url string) (*mongo.Client, error) {
	if url == "" {
		log.Info("session database URL not set, sessions will be held in memory")
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()

	opts := options.Client().
		ApplyURI(url).
		SetConnectTimeout(connectTimeout).
		SetServerSelectionTimeout(connectTimeout)

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to session database: %w", err)
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, fmt.Errorf("failed to reach session database: %w", err)
	}
	return client, nil
}
