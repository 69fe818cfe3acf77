package explorer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/pkg/testhelpers"
)

func TestClampLimit(t *testing.T) {
	tests := []struct {
		name  string
		limit int64
		want  int64
	}{
		{"zero uses default", 0, DefaultQueryLimit},
		{"negative uses default", -5, DefaultQueryLimit},
		{"within range is kept", 200, 200},
		{"above max is capped", MaxQueryLimit + 1, MaxQueryLimit},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testhelpers.AssertEqual(t, tt.want, clampLimit(tt.limit, DefaultQueryLimit, MaxQueryLimit))
		})
	}
}

func TestParseID(t *testing.T) {
	oid := primitive.NewObjectID()
	parsed := parseID(oid.Hex())
	assert.Equal(t, oid, parsed, "a 24-char hex string should parse as an ObjectID")

	assert.Equal(t, "custom-key", parseID("custom-key"), "non-hex IDs stay strings")
}

func TestIDString(t *testing.T) {
	oid := primitive.NewObjectID()
	assert.Equal(t, oid.Hex(), idString(oid))
	assert.Equal(t, "plain", idString("plain"))
	assert.Equal(t, "42", idString(42))
}

func TestSanitizeDoc(t *testing.T) {
	oid := primitive.NewObjectID()
	doc := bson.M{
		"_id":  oid,
		"name": "ada",
		"when": primitive.DateTime(0),
		"tags": bson.A{"a", bson.M{"nested": oid}},
		"meta": bson.M{"inner": oid},
		"raw":  int64(7),
	}

	out := sanitizeDoc(doc)

	assert.Equal(t, oid.Hex(), out["_id"])
	assert.Equal(t, "ada", out["name"])
	assert.Equal(t, "1970-01-01T00:00:00.000Z", out["when"])
	assert.Equal(t, int64(7), out["raw"])

	tags, ok := out["tags"].([]any)
	assert.True(t, ok)
	assert.Equal(t, "a", tags[0])
	nested, ok := tags[1].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, oid.Hex(), nested["nested"])

	meta, ok := out["meta"].(map[string]any)
	assert.True(t, ok)
	assert.Equal(t, oid.Hex(), meta["inner"])
}

func TestBSONTypeName(t *testing.T) {
	tests := []struct {
		name string
		v    any
		want string
	}{
		{"null", nil, "null"},
		{"string", "x", "string"},
		{"bool", true, "bool"},
		{"int32", int32(1), "int"},
		{"int64", int64(1), "long"},
		{"double", 1.5, "double"},
		{"objectId", primitive.NewObjectID(), "objectId"},
		{"date", primitive.DateTime(0), "date"},
		{"object", bson.M{}, "object"},
		{"array", bson.A{}, "array"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			testhelpers.AssertEqual(t, tt.want, bsonTypeName(tt.v))
		})
	}
}

func TestWalkFields(t *testing.T) {
	fields := make(map[string]*fieldAgg)

	walkFields("", bson.M{
		"name": "ada",
		"address": bson.M{
			"city": "london",
			"zip":  int32(123),
		},
	}, fields, 0)
	walkFields("", bson.M{
		"name": int32(7), // same path, second type
	}, fields, 0)

	assert.Len(t, fields, 4)

	name := fields["name"]
	assert.Equal(t, 2, name.count)
	assert.Contains(t, name.typeNames, "string")
	assert.Contains(t, name.typeNames, "int")

	assert.Equal(t, 1, fields["address"].count)
	assert.Equal(t, 1, fields["address.city"].count)
	assert.Equal(t, 1, fields["address.zip"].count)
}

func TestWalkFields_DepthBound(t *testing.T) {
	// Build a document deeper than the recursion bound.
	doc := bson.M{"v": "leaf"}
	for i := 0; i < maxSchemaDepth+5; i++ {
		doc = bson.M{"n": doc}
	}

	fields := make(map[string]*fieldAgg)
	walkFields("", doc, fields, 0)

	for path := range fields {
		assert.LessOrEqual(t, len(splitPath(path)), maxSchemaDepth+2)
	}
}

func splitPath(p string) []string {
	var parts []string
	start := 0
	for i := 0; i < len(p); i++ {
		if p[i] == '.' {
			parts = append(parts, p[start:i])
			start = i + 1
		}
	}
	return append(parts, p[start:])
}
