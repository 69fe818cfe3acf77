package explorer

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/pkg/types"
)

// Query runs a find against a collection. The limit is clamped to
// MaxQueryLimit and defaults to DefaultQueryLimit.
func (s *Service) Query(ctx context.Context, sessionID, database, collection string, req *types.QueryRequest) (*types.QueryResponse, error) {
	c, uri, err := s.clientFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	limit := clampLimit(req.Limit, DefaultQueryLimit, MaxQueryLimit)
	opts := options.Find().SetLimit(limit)
	if req.Skip > 0 {
		opts.SetSkip(req.Skip)
	}
	if len(req.Projection) > 0 {
		opts.SetProjection(bson.M(req.Projection))
	}
	if len(req.Sort) > 0 {
		opts.SetSort(bson.M(req.Sort))
	}

	filter := bson.M{}
	if req.Filter != nil {
		filter = bson.M(req.Filter)
	}

	cur, err := c.Database(database).Collection(collection).Find(ctx, filter, opts)
	if err != nil {
		s.invalidateOnError(ctx, uri, err)
		return nil, fmt.Errorf("query on %s.%s failed: %w", database, collection, err)
	}
	defer cur.Close(ctx)

	docs, err := decodeAll(ctx, cur)
	if err != nil {
		return nil, err
	}

	return &types.QueryResponse{
		Documents: docs,
		Count:     len(docs),
		Skip:      req.Skip,
		Limit:     limit,
	}, nil
}

// Get fetches a single document by its _id.
func (s *Service) Get(ctx context.Context, sessionID, database, collection, id string) (map[string]any, error) {
	c, uri, err := s.clientFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	var doc bson.M
	err = c.Database(database).Collection(collection).FindOne(ctx, bson.M{"_id": parseID(id)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		s.invalidateOnError(ctx, uri, err)
		return nil, fmt.Errorf("failed to fetch document %s from %s.%s: %w", id, database, collection, err)
	}
	return sanitizeDoc(doc), nil
}

// Insert adds a document and returns its _id as a string.
func (s *Service) Insert(ctx context.Context, sessionID, database, collection string, doc map[string]any) (string, error) {
	c, uri, err := s.clientFor(ctx, sessionID)
	if err != nil {
		return "", err
	}

	res, err := c.Database(database).Collection(collection).InsertOne(ctx, bson.M(doc))
	if err != nil {
		s.invalidateOnError(ctx, uri, err)
		return "", fmt.Errorf("failed to insert document into %s.%s: %w", database, collection, err)
	}
	return idString(res.InsertedID), nil
}

// Replace replaces a document by _id. It returns ErrNotFound when no
// document matched.
func (s *Service) Replace(ctx context.Context, sessionID, database, collection, id string, doc map[string]any) error {
	c, uri, err := s.clientFor(ctx, sessionID)
	if err != nil {
		return err
	}

	// The payload may echo the _id; drop it so the replacement cannot
	// conflict with the immutable field.
	delete(doc, "_id")

	res, err := c.Database(database).Collection(collection).ReplaceOne(ctx, bson.M{"_id": parseID(id)}, bson.M(doc))
	if err != nil {
		s.invalidateOnError(ctx, uri, err)
		return fmt.Errorf("failed to replace document %s in %s.%s: %w", id, database, collection, err)
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Delete removes a document by _id. It returns ErrNotFound when no document
// matched.
func (s *Service) Delete(ctx context.Context, sessionID, database, collection, id string) error {
	c, uri, err := s.clientFor(ctx, sessionID)
	if err != nil {
		return err
	}

	res, err := c.Database(database).Collection(collection).DeleteOne(ctx, bson.M{"_id": parseID(id)})
	if err != nil {
		s.invalidateOnError(ctx, uri, err)
		return fmt.Errorf("failed to delete document %s from %s.%s: %w", id, database, collection, err)
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// Aggregate runs an aggregation pipeline. The number of returned documents
// is clamped the same way as Query.
func (s *Service) Aggregate(ctx context.Context, sessionID, database, collection string, req *types.AggregateRequest) ([]map[string]any, error) {
	c, uri, err := s.clientFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	pipeline := make([]bson.M, 0, len(req.Pipeline)+1)
	for _, stage := range req.Pipeline {
		pipeline = append(pipeline, bson.M(stage))
	}
	pipeline = append(pipeline, bson.M{"$limit": clampLimit(req.Limit, DefaultQueryLimit, MaxQueryLimit)})

	cur, err := c.Database(database).Collection(collection).Aggregate(ctx, pipeline)
	if err != nil {
		s.invalidateOnError(ctx, uri, err)
		return nil, fmt.Errorf("aggregation on %s.%s failed: %w", database, collection, err)
	}
	defer cur.Close(ctx)

	return decodeAll(ctx, cur)
}

func clampLimit(limit, def, max int64) int64 {
	if limit <= 0 {
		return def
	}
	if limit > max {
		return max
	}
	return limit
}

// parseID interprets a path parameter as an ObjectID when possible and as a
// raw string _id otherwise.
func parseID(id string) any {
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		return oid
	}
	return id
}

func idString(id any) string {
	if oid, ok := id.(primitive.ObjectID); ok {
		return oid.Hex()
	}
	return fmt.Sprintf("%v", id)
}

func decodeAll(ctx context.Context, cur *mongo.Cursor) ([]map[string]any, error) {
	docs := make([]map[string]any, 0)
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode document: %w", err)
		}
		docs = append(docs, sanitizeDoc(doc))
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate documents: %w", err)
	}
	return docs, nil
}

// sanitizeDoc converts BSON-specific values into JSON-friendly ones:
// ObjectIDs become hex strings, DateTimes become RFC 3339 strings and
// nested documents/arrays are handled recursively.
func sanitizeDoc(doc bson.M) map[string]any {
	out := make(map[string]any, len(doc))
	for k, v := range doc {
		out[k] = sanitizeValue(v)
	}
	return out
}

func sanitizeValue(v any) any {
	switch t := v.(type) {
	case primitive.ObjectID:
		return t.Hex()
	case primitive.DateTime:
		return t.Time().UTC().Format("2006-01-02T15:04:05.000Z")
	case primitive.Decimal128:
		return t.String()
	case primitive.Binary:
		return fmt.Sprintf("binary(%d bytes)", len(t.Data))
	case bson.M:
		return sanitizeDoc(t)
	case map[string]any:
		return sanitizeDoc(bson.M(t))
	case bson.D:
		m := make(bson.M, len(t))
		for _, e := range t {
			m[e.Key] = e.Value
		}
		return sanitizeDoc(m)
	case bson.A:
		arr := make([]any, len(t))
		for i, e := range t {
			arr[i] = sanitizeValue(e)
		}
		return arr
	case []any:
		arr := make([]any, len(t))
		for i, e := range t {
			arr[i] = sanitizeValue(e)
		}
		return arr
	default:
		return v
	}
}
