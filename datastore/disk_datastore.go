package datastore

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

type (
	DiskDataStore struct {
		rootPath string
	}
)

func NewDiskDataStore(rootPath string) (*DiskDataStore, error) {
	dds := &DiskDataStore{
		rootPath: rootPath,
	}

	return dds, nil
}

func (dds *DiskDataStore) segmentPath(table, segmentID string) string {
	return filepath.Join(dds.rootPath, table, "segments", segmentID+".bin")
}

func (dds *DiskDataStore) ReadSegmentBlock(_ context.Context, table, segmentID string) (io.ReadCloser, error) {
	f, err := os.Open(dds.segmentPath(table, segmentID))
	if err != nil {
		return nil, fmt.Errorf("error in os.Open: %w", err)
	}
	return f, nil
}

func (dds *DiskDataStore) WriteSegmentBlock(_ context.Context, table, segmentID string, r io.Reader) (int64, error) {
	return dds.writeFile(dds.segmentPath(table, segmentID), r)
}

func (dds *DiskDataStore) WriteExportFile(_ context.Context, table, partition, fileName string, r io.Reader) (int64, error) {
	return dds.writeFile(filepath.Join(dds.rootPath, table, "exports", partition, fileName), r)
}

func (dds *DiskDataStore) writeFile(path string, r io.Reader) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return 0, fmt.Errorf("error in os.MkdirAll: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("error in os.Create: %w", err)
	}
	defer f.Close()
	n, err := io.Copy(f, r)
	if err != nil {
		return 0, fmt.Errorf("error in io.Copy: %w", err)
	}
	return n, nil
}

func (dds *DiskDataStore) Shutdown(_ context.Context) error {
	return nil
}
