package metastore

import (
	"context"
	"errors"
	"time"

	"github.com/Siyun/carbondata/gologger"
	"github.com/Siyun/carbondata/schema"
)

var (
	logger = gologger.NewLogger()

	ErrTableNotFound   = errors.New("table not found")
	ErrTableExists     = errors.New("table already exists")
	ErrSegmentNotFound = errors.New("segment not found")
)

type (
	MetaStore interface {
		// GetTableSchema fetches the schema for a given table
		GetTableSchema(ctx context.Context, table string) (schema.TableSchema, error)
		CreateTableSchema(ctx context.Context, ts schema.TableSchema) error
		// UpdatePartitionInfo persists a changed partitioning scheme after
		// a successful re-partition
		UpdatePartitionInfo(ctx context.Context, table string, info schema.PartitionInfo) error

		// ListSegments lists the alive segments of a table
		ListSegments(ctx context.Context, table string) ([]Segment, error)
		// GetSegmentCardinalities fetches the dictionary-dimension
		// cardinalities a segment was encoded with, the source of the key
		// generator's width table
		GetSegmentCardinalities(ctx context.Context, table, segmentID string) ([]int64, error)
		CreateSegment(ctx context.Context, table string, seg Segment) error
		// SwapSegments marks old segments dead and new ones alive in one
		// transaction, so readers never see a half re-partitioned table
		SwapSegments(ctx context.Context, table string, oldIDs, newIDs []string) error

		Shutdown(ctx context.Context) error
	}

	// Segment is one unit of previously loaded data, carrying the
	// per-segment metadata the encoder used.
	Segment struct {
		ID        string
		Partition string
		Alive     bool
		RowCount  int64
		// Cardinalities of the dictionary-style dimensions in declared
		// order, fixed at load time
		Cardinalities []int64
		CreatedAt     time.Time
	}
)
