package datastore

import (
	"context"
	"io"

	"github.com/Siyun/carbondata/gologger"
)

var (
	logger = gologger.NewLogger()
)

type (
	DataStore interface {
		// ReadSegmentBlock creates a reader for a segment's block file
		ReadSegmentBlock(ctx context.Context, table, segmentID string) (io.ReadCloser, error)
		// WriteSegmentBlock stores a complete block file for a segment
		WriteSegmentBlock(ctx context.Context, table, segmentID string, r io.Reader) (int64, error)
		// WriteExportFile stores an export file under a partition path
		WriteExportFile(ctx context.Context, table, partition, fileName string, r io.Reader) (int64, error)

		Shutdown(ctx context.Context) error
	}
)
