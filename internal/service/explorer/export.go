package explorer

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"sort"
	"strings"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/Eren2yeager/Data-Exprorer-and-analyzer-Backend/pkg/types"
)

// ExportFormat values accepted by Export.
const (
	FormatCSV  = "csv"
	FormatJSON = "json"
)

// Export runs a filtered find and writes the matching documents to w in the
// requested format. CSV columns are the union of flattened dotted field
// paths across the result set, sorted with _id first.
func (s *Service) Export(ctx context.Context, sessionID, database, collection string, req *types.ExportRequest, w io.Writer) error {
	format := strings.ToLower(req.Format)
	if format == "" {
		format = FormatJSON
	}
	if format != FormatCSV && format != FormatJSON {
		return fmt.Errorf("unsupported export format: %s", req.Format)
	}

	c, uri, err := s.clientFor(ctx, sessionID)
	if err != nil {
		return err
	}

	filter := bson.M{}
	if req.Filter != nil {
		filter = bson.M(req.Filter)
	}
	limit := clampLimit(req.Limit, MaxExportLimit, MaxExportLimit)

	cur, err := c.Database(database).Collection(collection).Find(ctx, filter, options.Find().SetLimit(limit))
	if err != nil {
		s.invalidateOnError(ctx, uri, err)
		return fmt.Errorf("export query on %s.%s failed: %w", database, collection, err)
	}
	defer cur.Close(ctx)

	docs, err := decodeAll(ctx, cur)
	if err != nil {
		return err
	}

	if format == FormatJSON {
		enc := json.NewEncoder(w)
		return enc.Encode(docs)
	}
	return writeCSV(w, docs)
}

func writeCSV(w io.Writer, docs []map[string]any) error {
	header := csvHeader(docs)

	cw := csv.NewWriter(w)
	if err := cw.Write(header); err != nil {
		return fmt.Errorf("failed to write CSV header: %w", err)
	}

	row := make([]string, len(header))
	for _, doc := range docs {
		flat := make(map[string]any)
		flatten("", doc, flat)
		for i, col := range header {
			row[i] = csvCell(flat[col])
		}
		if err := cw.Write(row); err != nil {
			return fmt.Errorf("failed to write CSV row: %w", err)
		}
	}

	cw.Flush()
	return cw.Error()
}

// csvHeader computes the union of flattened field paths, with _id pinned to
// the first column when present.
func csvHeader(docs []map[string]any) []string {
	cols := make(map[string]struct{})
	for _, doc := range docs {
		flat := make(map[string]any)
		flatten("", doc, flat)
		for k := range flat {
			cols[k] = struct{}{}
		}
	}

	header := make([]string, 0, len(cols))
	for k := range cols {
		if k != "_id" {
			header = append(header, k)
		}
	}
	sort.Strings(header)
	if _, ok := cols["_id"]; ok {
		header = append([]string{"_id"}, header...)
	}
	return header
}

// flatten writes nested document values into flat under dotted keys.
// Arrays are kept whole and rendered as JSON in their cell.
func flatten(prefix string, doc map[string]any, flat map[string]any) {
	for k, v := range doc {
		path := k
		if prefix != "" {
			path = prefix + "." + k
		}
		if nested, ok := v.(map[string]any); ok {
			flatten(path, nested, flat)
			continue
		}
		flat[path] = v
	}
}

func csvCell(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case []any:
		b, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprintf("%v", t)
		}
		return string(b)
	default:
		return fmt.Sprintf("%v", t)
	}
}
