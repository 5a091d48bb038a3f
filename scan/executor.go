package scan

import (
	"bufio"
	"errors"
	"fmt"
	"io"
)

type (
	// Executor yields the encoded rows of one logical segment. Finish must
	// be invoked exactly once after all rows are consumed or on abort; the
	// underlying reader holds open file handles.
	Executor interface {
		// Next returns the next row, or ok=false once the segment is
		// exhausted.
		Next() (row EncodedRow, ok bool, err error)

		Finish() error
	}

	// BlockExecutor streams rows out of a segment block file.
	BlockExecutor struct {
		segmentID string
		codec     *RowCodec
		closer    io.Closer
		buf       *bufio.Reader
		finished  bool
	}
)

var ErrFinished = errors.New("executor already finished")

func NewBlockExecutor(segmentID string, codec *RowCodec, r io.ReadCloser) *BlockExecutor {
	return &BlockExecutor{
		segmentID: segmentID,
		codec:     codec,
		closer:    r,
		buf:       bufio.NewReader(r),
	}
}

func (be *BlockExecutor) SegmentID() string {
	return be.segmentID
}

func (be *BlockExecutor) Next() (EncodedRow, bool, error) {
	if be.finished {
		return EncodedRow{}, false, ErrFinished
	}

	// Peek so a clean end of segment is not reported as a decode error
	if _, err := be.buf.Peek(1); err == io.EOF {
		return EncodedRow{}, false, nil
	}

	row, err := be.codec.ReadRow(be.buf)
	if err != nil {
		return EncodedRow{}, false, fmt.Errorf("error reading row from segment '%s': %w", be.segmentID, err)
	}
	return row, true, nil
}

func (be *BlockExecutor) Finish() error {
	if be.finished {
		return nil
	}
	be.finished = true
	if err := be.closer.Close(); err != nil {
		return fmt.Errorf("error closing segment '%s' reader: %w", be.segmentID, err)
	}
	return nil
}
