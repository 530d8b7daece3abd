package corpus

import (
	"context"
	"encoding/json"

	"github.com/apache/arrow/go/v13/arrow"
	"github.com/apache/arrow/go/v13/arrow/array"
	"github.com/apache/arrow/go/v13/arrow/memory"
	"github.com/apache/arrow/go/v13/parquet/file"
	"github.com/apache/arrow/go/v13/parquet/pqarrow"

	"github.com/centolabs/cento-go/pkg/core"
	"github.com/centolabs/cento-go/pkg/errors"
	"github.com/centolabs/cento-go/pkg/logging"
)

// LoadFragmentsParquet reads a columnar fragment catalog. Expected columns:
// fragment_id, line_id, start, end, text, line_word_count, and tags holding a
// JSON-encoded FeatureTags object.
func LoadFragmentsParquet(ctx context.Context, path string) (*Store, error) {
	reader, err := file.OpenParquetFile(path, false)
	if err != nil {
		return nil, errors.WithFields(
			errors.Wrap(err, errors.ResourceNotFound, "failed to open parquet corpus"),
			errors.Fields{"path": path},
		)
	}
	defer reader.Close()

	arrowReader, err := pqarrow.NewFileReader(reader, pqarrow.ArrowReadProperties{}, memory.DefaultAllocator)
	if err != nil {
		return nil, errors.Wrap(err, errors.InvalidInput, "failed to create arrow reader")
	}

	table, err := arrowReader.ReadTable(ctx)
	if err != nil {
		return nil, errors.Wrap(err, errors.InvalidInput, "failed to read parquet table")
	}
	defer table.Release()

	ids, err := stringColumn(table, "fragment_id")
	if err != nil {
		return nil, err
	}
	lineIDs, err := stringColumn(table, "line_id")
	if err != nil {
		return nil, err
	}
	starts, err := intColumn(table, "start")
	if err != nil {
		return nil, err
	}
	ends, err := intColumn(table, "end")
	if err != nil {
		return nil, err
	}
	texts, err := stringColumn(table, "text")
	if err != nil {
		return nil, err
	}
	lineWords, err := intColumn(table, "line_word_count")
	if err != nil {
		return nil, err
	}
	tags, err := stringColumn(table, "tags")
	if err != nil {
		return nil, err
	}

	fragments := make([]core.Fragment, len(ids))
	for i := range ids {
		f := core.Fragment{
			ID:            ids[i],
			LineID:        lineIDs[i],
			Range:         core.WordRange{Start: int(starts[i]), End: int(ends[i])},
			Text:          texts[i],
			LineWordCount: int(lineWords[i]),
		}
		if tags[i] != "" {
			if err := json.Unmarshal([]byte(tags[i]), &f.Tags); err != nil {
				return nil, errors.WithFields(
					errors.Wrap(err, errors.InvalidInput, "malformed tags column"),
					errors.Fields{"fragment_id": f.ID},
				)
			}
		}
		fragments[i] = f
	}

	logging.GetLogger().Info(ctx, "loaded %d fragments from %s", len(fragments), path)
	return NewStore(fragments)
}

func columnIndex(table arrow.Table, name string) (int, error) {
	indices := table.Schema().FieldIndices(name)
	if len(indices) == 0 {
		return 0, errors.WithFields(
			errors.New(errors.InvalidInput, "parquet corpus missing required column"),
			errors.Fields{"column": name},
		)
	}
	return indices[0], nil
}

func stringColumn(table arrow.Table, name string) ([]string, error) {
	idx, err := columnIndex(table, name)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, table.NumRows())
	for _, chunk := range table.Column(idx).Data().Chunks() {
		col, ok := chunk.(*array.String)
		if !ok {
			return nil, errors.WithFields(
				errors.New(errors.InvalidInput, "parquet column is not a string column"),
				errors.Fields{"column": name},
			)
		}
		for i := 0; i < col.Len(); i++ {
			out = append(out, col.Value(i))
		}
	}
	return out, nil
}

func intColumn(table arrow.Table, name string) ([]int64, error) {
	idx, err := columnIndex(table, name)
	if err != nil {
		return nil, err
	}
	out := make([]int64, 0, table.NumRows())
	for _, chunk := range table.Column(idx).Data().Chunks() {
		col, ok := chunk.(*array.Int64)
		if !ok {
			return nil, errors.WithFields(
				errors.New(errors.InvalidInput, "parquet column is not an integer column"),
				errors.Fields{"column": name},
			)
		}
		for i := 0; i < col.Len(); i++ {
			out = append(out, col.Value(i))
		}
	}
	return out, nil
}
