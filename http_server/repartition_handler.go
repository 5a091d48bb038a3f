package http_server

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/Siyun/carbondata/keygen"
	"github.com/Siyun/carbondata/metastore"
	"github.com/Siyun/carbondata/repartitioner"
	"github.com/Siyun/carbondata/resolver"
	"github.com/Siyun/carbondata/scan"
	"github.com/Siyun/carbondata/schema"
	"github.com/Siyun/carbondata/utils"
	"github.com/rs/zerolog"
)

type (
	RepartitionReqBody struct {
		Table string `validate:"required"`
		// PartitionInfo is the new partitioning scheme. Omitted means
		// re-bucket under the table's current scheme.
		PartitionInfo *schema.PartitionInfo
		// DryRun resolves and assigns rows without writing anything.
		DryRun bool
		// How many seconds before the re-partition times out.
		//
		// Default `120`.
		MaxRuntimeSec *int64
	}

	RepartitionStats struct {
		SegmentsRead    int64
		SegmentsWritten int64
		RowsMoved       int64
		BytesWritten    int64
		TimeMS          int64
		// Bucket partition name -> row count
		BucketRows map[string]int64
	}

	// bucketOutput accumulates one source segment's rows for one target
	// bucket. Output segments never mix source segments, since each source
	// carries its own key width table.
	bucketOutput struct {
		buf      bytes.Buffer
		rowCount int64
	}
)

func (s *HTTPServer) RepartitionHandler(c *CustomContext) error {
	var reqBody RepartitionReqBody
	if err := ValidateRequest(c, &reqBody); err != nil {
		return c.String(http.StatusBadRequest, err.Error())
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), time.Second*time.Duration(utils.Deref(reqBody.MaxRuntimeSec, 120)))
	defer cancel()

	logger := zerolog.Ctx(ctx)
	logger.Debug().Str("table", reqBody.Table).Msg("running repartition handler")

	start := time.Now()

	ts, err := s.MetaStore.GetTableSchema(ctx, reqBody.Table)
	if err != nil {
		return c.InternalError(err, "error getting table schema")
	}
	if reqBody.PartitionInfo != nil {
		ts.PartitionInfo = *reqBody.PartitionInfo
	}
	if repartitioner.BucketCount(ts.PartitionInfo) == 0 {
		return c.String(http.StatusBadRequest, "partition info defines no buckets")
	}

	segments, err := s.MetaStore.ListSegments(ctx, reqBody.Table)
	if err != nil {
		return c.InternalError(err, "error listing segments")
	}
	if len(segments) == 0 {
		return c.NoContent(http.StatusNoContent)
	}

	codec := scan.NewRowCodec(ts)
	stats := RepartitionStats{
		BucketRows: make(map[string]int64),
	}
	var oldIDs, newIDs []string

	for _, seg := range segments {
		outputs, err := s.repartitionSegment(ctx, ts, codec, seg)
		if err != nil {
			return c.InternalError(err, fmt.Sprintf("error repartitioning segment '%s'", seg.ID))
		}
		stats.SegmentsRead++

		for bucket, out := range outputs {
			bucketName := repartitioner.BucketName(ts.PartitionInfo, bucket)
			stats.BucketRows[bucketName] += out.rowCount
			stats.RowsMoved += out.rowCount

			if reqBody.DryRun {
				continue
			}

			newSeg := metastore.Segment{
				ID:            utils.GenKSortedID("seg_"),
				Partition:     bucketName,
				Alive:         false,
				RowCount:      out.rowCount,
				Cardinalities: seg.Cardinalities,
			}
			n, err := s.DataStore.WriteSegmentBlock(ctx, reqBody.Table, newSeg.ID, &out.buf)
			if err != nil {
				return c.InternalError(err, "error writing segment block")
			}
			stats.BytesWritten += n
			if err := s.MetaStore.CreateSegment(ctx, reqBody.Table, newSeg); err != nil {
				return c.InternalError(err, "error creating segment")
			}
			newIDs = append(newIDs, newSeg.ID)
			stats.SegmentsWritten++
		}
		oldIDs = append(oldIDs, seg.ID)
	}

	if !reqBody.DryRun {
		if err := s.MetaStore.SwapSegments(ctx, reqBody.Table, oldIDs, newIDs); err != nil {
			return c.InternalError(err, "error swapping segments")
		}
		if reqBody.PartitionInfo != nil {
			if err := s.MetaStore.UpdatePartitionInfo(ctx, reqBody.Table, ts.PartitionInfo); err != nil {
				return c.InternalError(err, "error updating partition info")
			}
		}
	}

	stats.TimeMS = time.Since(start).Milliseconds()
	return c.JSON(http.StatusOK, stats)
}

// repartitionSegment resolves every row of one segment and splits the rows
// into per-bucket block buffers. A decode failure aborts the whole segment.
func (s *HTTPServer) repartitionSegment(ctx context.Context, ts schema.TableSchema, codec *scan.RowCodec, seg metastore.Segment) (map[int]*bucketOutput, error) {
	kg, err := keygen.NewKeyGenerator(seg.Cardinalities)
	if err != nil {
		return nil, fmt.Errorf("error in keygen.NewKeyGenerator: %w", err)
	}
	res, err := resolver.New(ts, kg, s.Dictionary)
	if err != nil {
		return nil, fmt.Errorf("error in resolver.New: %w", err)
	}

	reader, err := s.DataStore.ReadSegmentBlock(ctx, ts.Name, seg.ID)
	if err != nil {
		return nil, fmt.Errorf("error in ReadSegmentBlock: %w", err)
	}

	rows, err := res.DrainSegment(ctx, scan.NewBlockExecutor(seg.ID, codec, reader))
	if err != nil {
		return nil, fmt.Errorf("error in DrainSegment: %w", err)
	}

	class := res.Classification()
	outputs := make(map[int]*bucketOutput)
	for _, pr := range rows {
		bucket, err := repartitioner.Assign(pr.Value, class.Column.DataType, ts.PartitionInfo)
		if err != nil {
			return nil, fmt.Errorf("error in repartitioner.Assign: %w", err)
		}
		out, exists := outputs[bucket]
		if !exists {
			out = &bucketOutput{}
			outputs[bucket] = out
		}
		if err := codec.WriteRow(&out.buf, pr.Row); err != nil {
			return nil, fmt.Errorf("error in codec.WriteRow: %w", err)
		}
		out.rowCount++
	}
	return outputs, nil
}
