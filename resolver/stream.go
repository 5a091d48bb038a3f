package resolver

import (
	"context"
	"errors"
	"fmt"

	"github.com/Siyun/carbondata/gologger"
	"github.com/Siyun/carbondata/scan"
)

var logger = gologger.NewLogger()

type (
	// PartitionedRow pairs a row with its resolved partition value for the
	// downstream re-partitioning stage.
	PartitionedRow struct {
		Value any
		Row   scan.EncodedRow
	}
)

// DrainSegment resolves every row of one executor. The executor is released
// on every exit path, including decode failure and cancellation. A decode
// failure aborts the whole batch; partial results are never returned.
func (r *Resolver) DrainSegment(ctx context.Context, exec scan.Executor) (rows []PartitionedRow, err error) {
	defer func() {
		if ferr := exec.Finish(); ferr != nil && err == nil {
			err = fmt.Errorf("error in exec.Finish: %w", ferr)
		}
	}()

	var rowNum int64
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

		val, err := r.ResolveValue(ctx, row)
		if err != nil {
			var de *DecodeError
			if errors.As(err, &de) {
				de.Row = rowNum
			}
			return nil, err
		}
		rows = append(rows, PartitionedRow{Value: val, Row: row})
		rowNum++
	}
}

// Drain resolves the rows of several executors in order. Remaining executors
// are still released when an earlier one aborts the batch.
func (r *Resolver) Drain(ctx context.Context, execs []scan.Executor) ([]PartitionedRow, error) {
	var all []PartitionedRow
	var firstErr error
	for _, exec := range execs {
		if firstErr != nil {
			if err := exec.Finish(); err != nil {
				logger.Error().Err(err).Msg("error releasing executor after aborted batch")
			}
			continue
		}
		rows, err := r.DrainSegment(ctx, exec)
		if err != nil {
			firstErr = err
			continue
		}
		all = append(all, rows...)
	}
	if firstErr != nil {
		return nil, firstErr
	}
	return all, nil
}
