package http_server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Siyun/carbondata/keygen"
	"github.com/Siyun/carbondata/parquet_export"
	"github.com/Siyun/carbondata/resolver"
	"github.com/Siyun/carbondata/scan"
	"github.com/Siyun/carbondata/schema"
	"github.com/Siyun/carbondata/utils"
	"github.com/rs/zerolog"
)

type (
	ExportReqBody struct {
		Table string `validate:"required"`
		// How many seconds before the export times out.
		//
		// Default `120`.
		MaxRuntimeSec *int64
	}

	ExportStats struct {
		SegmentsExported int64
		RowsExported     int64
		BytesWritten     int64
		TimeMS           int64
	}
)

// ExportHandler decodes every alive segment back to logical values and
// writes one parquet file per segment under the segment's partition path.
func (s *HTTPServer) ExportHandler(c *CustomContext) error {
	var reqBody ExportReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), time.Second*time.Duration(utils.Deref(reqBody.MaxRuntimeSec, 120)))
	defer cancel()

	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("table", reqBody.Table).Msg("running export handler")

	start := time.Now()

	ts, err := s.MetaStore.GetTableSchema(ctx, reqBody.Table)
	if err != nil {
		return c.InternalError(err, "error getting table schema")
	}

	segments, err := s.MetaStore.ListSegments(ctx, reqBody.Table)
	if err != nil {
		return c.InternalError(err, "error listing segments")
	}
	if len(segments) == 0 {
		return c.NoContent(http.StatusNoContent)
	}

	codec := scan.NewRowCodec(ts)
	columns := append(append([]schema.ColumnSchema{}, ts.Dimensions...), ts.Measures...)

	var stats ExportStats
	for _, seg := range segments {
		kg, err := keygen.NewKeyGenerator(seg.Cardinalities)
		if err != nil {
			return c.InternalError(err, "error building key generator")
		}
		res, err := resolver.New(ts, kg, s.Dictionary)
		if err != nil {
			return c.InternalError(err, "error building resolver")
		}
		decoder := resolver.NewRowDecoder(ts, res)

		reader, err := s.DataStore.ReadSegmentBlock(ctx, ts.Name, seg.ID)
		if err != nil {
			return c.InternalError(err, fmt.Sprintf("error reading segment '%s'", seg.ID))
		}

		decoded, err := drainDecoded(ctx, decoder, scan.NewBlockExecutor(seg.ID, codec, reader))
		if err != nil {
			return c.InternalError(err, fmt.Sprintf("error decoding segment '%s'", seg.ID))
		}

		var b bytes.Buffer
		if err := parquet_export.WriteRows(&b, columns, decoded); err != nil {
			return c.InternalError(err, "error writing parquet")
		}

		partition := seg.Partition
		if partition == "" {
			partition = "all"
		}
		fileName := fmt.Sprintf("%s.parquet", utils.GenKSortedID(""))
		n, err := s.DataStore.WriteExportFile(ctx, reqBody.Table, partition, fileName, &b)
		if err != nil {
			return c.InternalError(err, "error uploading export file")
		}

		stats.SegmentsExported++
		stats.RowsExported += int64(len(decoded))
		stats.BytesWritten += n
	}

	stats.TimeMS = time.Since(start).Milliseconds()
	return c.JSON(http.StatusOK, stats)
}

// drainDecoded fully decodes one executor's rows, releasing the executor on
// every exit path.
func drainDecoded(ctx context.Context, decoder *resolver.RowDecoder, exec scan.Executor) (rows []map[string]any, err error) {
	defer func() {
		if ferr := exec.Finish(); ferr != nil && err == nil {
			err = fmt.Errorf("error in exec.Finish: %w", ferr)
		}
	}()

	for {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		row, ok, err := exec.Next()
		if err != nil {
			return nil, fmt.Errorf("error in exec.Next: %w", err)
		}
		if !ok {
			return rows, nil
		}
		decoded, err := decoder.DecodeRow(ctx, row)
		if err != nil {
			return nil, fmt.Errorf("error in decoder.DecodeRow: %w", err)
		}
		rows = append(rows, decoded)
	}
}
