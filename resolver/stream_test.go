package resolver

import (
	"context"
	"errors"
	"testing"

	"github.com/Siyun/carbondata/dictionary"
	"github.com/Siyun/carbondata/keygen"
	"github.com/Siyun/carbondata/scan"
	"github.com/Siyun/carbondata/schema"
)

type fakeExecutor struct {
	rows     []scan.EncodedRow
	pos      int
	finishes int
	nextErr  error
}

func (f *fakeExecutor) Next() (scan.EncodedRow, bool, error) {
	if f.nextErr != nil {
		return scan.EncodedRow{}, false, f.nextErr
	}
	if f.pos >= len(f.rows) {
		return scan.EncodedRow{}, false, nil
	}
	row := f.rows[f.pos]
	f.pos++
	return row, true, nil
}

func (f *fakeExecutor) Finish() error {
	f.finishes++
	return nil
}

func streamFixture(t *testing.T) (*Resolver, *keygen.KeyGenerator) {
	t.Helper()
	ts := salesSchema(schema.PartitionTypeRange)
	kg, err := keygen.NewKeyGenerator([]int64{16})
	if err != nil {
		t.Fatal(err)
	}
	dict := &mapStore{values: map[string]map[int64]string{
		"region": {3: "east", 7: "west"},
	}}
	r, err := New(ts, kg, dict)
	if err != nil {
		t.Fatal(err)
	}
	return r, kg
}

func encodedRow(t *testing.T, kg *keygen.KeyGenerator, surrogate, amount int64) scan.EncodedRow {
	t.Helper()
	key, err := kg.Generate([]int64{surrogate})
	if err != nil {
		t.Fatal(err)
	}
	return scan.EncodedRow{
		Values:       []any{key, amount},
		NoDictionary: [][]byte{[]byte("lisbon")},
	}
}

func TestDrainSegment(t *testing.T) {
	r, kg := streamFixture(t)

	exec := &fakeExecutor{rows: []scan.EncodedRow{
		encodedRow(t, kg, 3, 1),
		encodedRow(t, kg, 7, 2),
	}}

	rows, err := r.DrainSegment(context.Background(), exec)
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if string(rows[0].Value.([]byte)) != "east" || string(rows[1].Value.([]byte)) != "west" {
		t.Fatalf("wrong resolved values: %v", rows)
	}
	if exec.finishes != 1 {
		t.Fatalf("expected exactly 1 finish, got %d", exec.finishes)
	}
}

func TestDrainSegmentAbortsOnDecodeError(t *testing.T) {
	r, kg := streamFixture(t)

	// surrogate 9 has no dictionary entry, second row never decodes
	exec := &fakeExecutor{rows: []scan.EncodedRow{
		encodedRow(t, kg, 3, 1),
		encodedRow(t, kg, 9, 2),
		encodedRow(t, kg, 7, 3),
	}}

	rows, err := r.DrainSegment(context.Background(), exec)
	if !errors.Is(err, dictionary.ErrSurrogateNotFound) {
		t.Fatalf("expected ErrSurrogateNotFound, got %v", err)
	}
	if rows != nil {
		t.Fatal("expected no partial results on abort")
	}
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if de.Row != 1 {
		t.Fatalf("expected failure at row 1, got %d", de.Row)
	}
	if exec.finishes != 1 {
		t.Fatalf("executor must be released on abort, finishes=%d", exec.finishes)
	}
}

func TestDrainSegmentExecutorError(t *testing.T) {
	r, _ := streamFixture(t)

	exec := &fakeExecutor{nextErr: errors.New("read failed")}

	_, err := r.DrainSegment(context.Background(), exec)
	if err == nil {
		t.Fatal("expected executor error to propagate")
	}
	if exec.finishes != 1 {
		t.Fatalf("executor must be released on read error, finishes=%d", exec.finishes)
	}
}

func TestDrainSegmentCancellation(t *testing.T) {
	r, kg := streamFixture(t)

	exec := &fakeExecutor{rows: []scan.EncodedRow{encodedRow(t, kg, 3, 1)}}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := r.DrainSegment(ctx, exec)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if exec.finishes != 1 {
		t.Fatalf("executor must be released on cancellation, finishes=%d", exec.finishes)
	}
}

func TestDrainReleasesRemainingExecutors(t *testing.T) {
	r, kg := streamFixture(t)

	bad := &fakeExecutor{rows: []scan.EncodedRow{encodedRow(t, kg, 9, 1)}}
	after := &fakeExecutor{rows: []scan.EncodedRow{encodedRow(t, kg, 3, 1)}}

	_, err := r.Drain(context.Background(), []scan.Executor{bad, after})
	if !errors.Is(err, dictionary.ErrSurrogateNotFound) {
		t.Fatalf("expected ErrSurrogateNotFound, got %v", err)
	}
	if bad.finishes != 1 || after.finishes != 1 {
		t.Fatalf("all executors must be released, got %d and %d", bad.finishes, after.finishes)
	}
	if after.pos != 0 {
		t.Fatal("executors after an abort must not be drained")
	}
}
