package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	// DefaultDatabase is the database holding the session collection.
	DefaultDatabase = "data_explorer"

	// DefaultCollection is the session collection name.
	DefaultCollection = "sessions"

	// ttlIndexName is the TTL index on last_accessed_at.
	ttlIndexName = "session_ttl"
)

// mongoBackend persists session records in a MongoDB collection.
// A TTL index on last_accessed_at is the primary eviction mechanism;
// the manager's sweep and lazy checks act as backstops since the TTL
// monitor only runs periodically on the server.
type mongoBackend struct {
	coll    *mongo.Collection
	timeout time.Duration
}

// newMongoBackend builds the backend and ensures the TTL index exists.
// An error here puts the manager into fallback mode for the process lifetime.
func newMongoBackend(ctx context.Context, client *mongo.Client, db, coll string, timeout time.Duration) (*mongoBackend, error) {
	b := &mongoBackend{
		coll:    client.Database(db).Collection(coll),
		timeout: timeout,
	}

	model := mongo.IndexModel{
		Keys: bson.D{{Key: "last_accessed_at", Value: 1}},
		Options: options.Index().
			SetName(ttlIndexName).
			SetExpireAfterSeconds(int32(timeout.Seconds())),
	}

	_, err := b.coll.Indexes().CreateOne(ctx, model)
	if isIndexOptionsConflict(err) {
		// The configured timeout changed since the index was built; rebuild
		// it with the current expiry.
		if _, err = b.coll.Indexes().DropOne(ctx, ttlIndexName); err != nil {
			return nil, fmt.Errorf("failed to drop outdated session TTL index: %w", err)
		}
		_, err = b.coll.Indexes().CreateOne(ctx, model)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to ensure session TTL index: %w", err)
	}
	return b, nil
}

// isIndexOptionsConflict reports whether err is the server rejecting an index
// build because an index with the same name but different options already
// exists (IndexOptionsConflict, code 85).
func isIndexOptionsConflict(err error) bool {
	var cmdErr mongo.CommandError
	return errors.As(err, &cmdErr) && cmdErr.Code == 85
}

func (b *mongoBackend) insert(ctx context.Context, rec *Record) error {
	// _id carries the session ID, so the primary key constraint guards
	// against token collisions.
	if _, err := b.coll.InsertOne(ctx, rec); err != nil {
		return fmt.Errorf("failed to insert session record: %w", err)
	}
	return nil
}

// resolve looks up an unexpired record and slides its expiry window forward
// in a single round trip. It returns (nil, nil) when the token is unknown
// or expired, and a non-nil error only on storage failure.
func (b *mongoBackend) resolve(ctx context.Context, id string, now time.Time) (*Record, error) {
	cutoff := now.Add(-b.timeout)

	res := b.coll.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "last_accessed_at": bson.M{"$gt": cutoff}},
		bson.M{"$set": bson.M{"last_accessed_at": now}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	)
	if err := res.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			// Either absent or expired but not yet reaped by the TTL
			// monitor. Remove a stale record eagerly so it cannot be
			// observed again.
			_, _ = b.coll.DeleteOne(ctx, bson.M{"_id": id, "last_accessed_at": bson.M{"$lte": cutoff}})
			return nil, nil
		}
		return nil, fmt.Errorf("failed to look up session record: %w", err)
	}

	var rec Record
	if err := res.Decode(&rec); err != nil {
		return nil, fmt.Errorf("failed to decode session record: %w", err)
	}
	return &rec, nil
}

func (b *mongoBackend) delete(ctx context.Context, id string) (bool, error) {
	res, err := b.coll.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return false, fmt.Errorf("failed to delete session record: %w", err)
	}
	return res.DeletedCount > 0, nil
}

// sweep removes expired records as a backstop to the TTL index.
func (b *mongoBackend) sweep(ctx context.Context, now time.Time) (int, error) {
	res, err := b.coll.DeleteMany(ctx, bson.M{"last_accessed_at": bson.M{"$lte": now.Add(-b.timeout)}})
	if err != nil {
		return 0, fmt.Errorf("failed to sweep expired session records: %w", err)
	}
	return int(res.DeletedCount), nil
}

func (b *mongoBackend) list(ctx context.Context, now time.Time) ([]Summary, error) {
	cur, err := b.coll.Find(ctx, bson.M{"last_accessed_at": bson.M{"$gt": now.Add(-b.timeout)}})
	if err != nil {
		return nil, fmt.Errorf("failed to list session records: %w", err)
	}
	defer cur.Close(ctx)

	var out []Summary
	for cur.Next(ctx) {
		var rec Record
		if err := cur.Decode(&rec); err != nil {
			return nil, fmt.Errorf("failed to decode session record: %w", err)
		}
		out = append(out, Summary{
			SessionID:      rec.SessionID,
			CreatedAt:      rec.CreatedAt,
			LastAccessedAt: rec.LastAccessedAt,
			ExpiresIn:      b.timeout - now.Sub(rec.LastAccessedAt),
		})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate session records: %w", err)
	}
	return out, nil
}
