package types

// QueryRequest describes a find operation against a collection.
type QueryRequest struct {
	Filter     map[string]any `json:"filter"`
	Projection map[string]any `json:"projection"`
	Sort       map[string]any `json:"sort"`
	Skip       int64          `json:"skip"`
	Limit      int64          `json:"limit"`
}

// QueryResponse carries the matched documents along with paging info.
type QueryResponse struct {
	Documents []map[string]any `json:"documents"`
	Count     int              `json:"count"`
	Skip      int64            `json:"skip"`
	Limit     int64            `json:"limit"`
}

// AggregateRequest describes an aggregation pipeline run.
type AggregateRequest struct {
	Pipeline []map[string]any `json:"pipeline" binding:"required"`
	Limit    int64            `json:"limit"`
}

// ExportRequest describes a query whose results are streamed back as a file.
type ExportRequest struct {
	Filter map[string]any `json:"filter"`
	Format string         `json:"format"` // "csv" or "json"
	Limit  int64          `json:"limit"`
}

// DatabaseInfo is one entry of the database listing.
type DatabaseInfo struct {
	Name       string `json:"name"`
	SizeOnDisk int64  `json:"size_on_disk"`
	Empty      bool   `json:"empty"`
}

// CollectionStats summarizes a collection for the stats endpoint.
type CollectionStats struct {
	Name          string   `json:"name"`
	DocumentCount int64    `json:"document_count"`
	Indexes       []string `json:"indexes"`
}

// SchemaField describes one dotted field path inferred from sampling.
type SchemaField struct {
	Path string `json:"path"`
	// Types lists the BSON type names observed for this path.
	Types []string `json:"types"`
	// Coverage is the fraction of sampled documents containing the path,
	// in the range (0, 1].
	Coverage float64 `json:"coverage"`
}

// SchemaResponse is the result of sampling a collection's schema.
type SchemaResponse struct {
	Collection string        `json:"collection"`
	SampleSize int           `json:"sample_size"`
	Fields     []SchemaField `json:"fields"`
}
