package explorer

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/pkg/types"
)

const (
	// DefaultSchemaSampleSize is how many documents SampleSchema inspects
	// when the caller does not specify a size.
	DefaultSchemaSampleSize = 100

	// MaxSchemaSampleSize caps the sample to keep inference cheap.
	MaxSchemaSampleSize = 1000

	// maxSchemaDepth bounds recursion into nested documents.
	maxSchemaDepth = 8
)

// fieldAgg accumulates observed types for one dotted field path.
type fieldAgg struct {
	typeNames map[string]struct{}
	count     int
}

// SampleSchema infers a collection's shape from a random sample of
// documents. For every dotted field path it reports the set of BSON type
// names observed and the fraction of sampled documents containing the path.
func (s *Service) SampleSchema(ctx context.Context, sessionID, database, collection string, sampleSize int) (*types.SchemaResponse, error) {
	c, uri, err := s.clientFor(ctx, sessionID)
	if err != nil {
		return nil, err
	}

	if sampleSize <= 0 {
		sampleSize = DefaultSchemaSampleSize
	}
	if sampleSize > MaxSchemaSampleSize {
		sampleSize = MaxSchemaSampleSize
	}

	pipeline := []bson.M{{"$sample": bson.M{"size": sampleSize}}}
	cur, err := c.Database(database).Collection(collection).Aggregate(ctx, pipeline)
	if err != nil {
		s.invalidateOnError(ctx, uri, err)
		return nil, fmt.Errorf("schema sampling on %s.%s failed: %w", database, collection, err)
	}
	defer cur.Close(ctx)

	fields := make(map[string]*fieldAgg)
	sampled := 0
	for cur.Next(ctx) {
		var doc bson.M
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode sampled document: %w", err)
		}
		sampled++
		walkFields("", doc, fields, 0)
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate sampled documents: %w", err)
	}

	resp := &types.SchemaResponse{
		Collection: collection,
		SampleSize: sampled,
		Fields:     make([]types.SchemaField, 0, len(fields)),
	}
	for path, agg := range fields {
		names := make([]string, 0, len(agg.typeNames))
		for n := range agg.typeNames {
			names = append(names, n)
		}
		sort.Strings(names)

		coverage := 0.0
		if sampled > 0 {
			coverage = float64(agg.count) / float64(sampled)
		}
		resp.Fields = append(resp.Fields, types.SchemaField{
			Path:     path,
			Types:    names,
			Coverage: coverage,
		})
	}
	sort.Slice(resp.Fields, func(i, j int) bool { return resp.Fields[i].Path < resp.Fields[j].Path })

	return resp, nil
}

func walkFields(prefix string, doc bson.M, fields map[string]*fieldAgg, depth int) {
	if depth > maxSchemaDepth {
		return
	}
	for k, v := range doc {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}

		agg, ok := fields[path]
		if !ok {
			agg = &fieldAgg{typeNames: make(map[string]struct{})}
			fields[path] = agg
		}
		agg.count++
		agg.typeNames[bsonTypeName(v)] = struct{}{}

		switch t := v.(type) {
		case bson.M:
			walkFields(path, t, fields, depth+1)
		case bson.D:
			m := make(bson.M, len(t))
			for _, e := range t {
				m[e.Key] = e.Value
			}
			walkFields(path, m, fields, depth+1)
		}
	}
}

func bsonTypeName(v any) string {
	switch v.(type) {
	case nil:
		return "null"
	case string:
		return "string"
	case bool:
		return "bool"
	case int32:
		return "int"
	case int64:
		return "long"
	case float64:
		return "double"
	case primitive.ObjectID:
		return "objectId"
	case primitive.DateTime, time.Time:
		return "date"
	case primitive.Decimal128:
		return "decimal"
	case primitive.Binary:
		return "binData"
	case primitive.Regex:
		return "regex"
	case primitive.Timestamp:
		return "timestamp"
	case bson.M, bson.D, map[string]any:
		return "object"
	case bson.A, []any:
		return "array"
	default:
		return fmt.Sprintf("%T", v)
	}
}
