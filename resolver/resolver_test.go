package resolver

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/Siyun/carbondata/dictionary"
	"github.com/Siyun/carbondata/keygen"
	"github.com/Siyun/carbondata/scan"
	"github.com/Siyun/carbondata/schema"
)

type mapStore struct {
	values  map[string]map[int64]string
	lookups int
}

func (m *mapStore) Lookup(_ context.Context, _, column string, surrogate int64) (string, error) {
	m.lookups++
	val, found := m.values[column][surrogate]
	if !found {
		return "", fmt.Errorf("surrogate %d for column '%s': %w", surrogate, column, dictionary.ErrSurrogateNotFound)
	}
	return val, nil
}

func (m *mapStore) Shutdown(_ context.Context) error {
	return nil
}

func salesSchema(partitionType schema.PartitionType) schema.TableSchema {
	return schema.TableSchema{
		Name: "sales",
		Dimensions: []schema.ColumnSchema{
			{Name: "region", DataType: schema.DataTypeString, Encodings: []schema.Encoding{schema.EncodingDictionary}, Ordinal: 0},
			{Name: "city", DataType: schema.DataTypeString, Ordinal: 1},
		},
		Measures: []schema.ColumnSchema{
			{Name: "amount", DataType: schema.DataTypeLong, Ordinal: 0},
		},
		PartitionInfo: schema.PartitionInfo{
			ColumnName:  "region",
			Type:        partitionType,
			RangeBounds: []string{"m"},
		},
	}
}

func TestClassifyGroups(t *testing.T) {
	ts := salesSchema(schema.PartitionTypeRange)

	class, err := Classify(ts.Dimensions, ts.Measures, "region")
	if err != nil {
		t.Fatal(err)
	}

	if !class.IsDimension {
		t.Fatal("expected region to classify as a dimension")
	}
	if class.ColumnIndex != 0 {
		t.Fatalf("expected column index 0, got %d", class.ColumnIndex)
	}
	if len(class.Groups.Dictionary) != 1 || class.Groups.Dictionary[0] != 0 {
		t.Fatalf("wrong dictionary group: %v", class.Groups.Dictionary)
	}
	if len(class.Groups.NoDictionary) != 1 || class.Groups.NoDictionary[0] != 1 {
		t.Fatalf("wrong no-dictionary group: %v", class.Groups.NoDictionary)
	}
	if len(class.Groups.Measure) != 1 || class.Groups.Measure[0] != 1 {
		t.Fatalf("wrong measure group: %v", class.Groups.Measure)
	}

	// every dimension lands in exactly one group
	total := len(class.Groups.Dictionary) + len(class.Groups.NoDictionary)
	if total != len(ts.Dimensions) {
		t.Fatalf("groups cover %d of %d dimensions", total, len(ts.Dimensions))
	}
}

func TestClassifyDeterministic(t *testing.T) {
	ts := salesSchema(schema.PartitionTypeRange)

	a, err := Classify(ts.Dimensions, ts.Measures, "amount")
	if err != nil {
		t.Fatal(err)
	}
	b, err := Classify(ts.Dimensions, ts.Measures, "amount")
	if err != nil {
		t.Fatal(err)
	}

	if a.IsDimension != b.IsDimension || a.ColumnIndex != b.ColumnIndex {
		t.Fatal("classify is not deterministic")
	}
	if fmt.Sprint(a.Groups) != fmt.Sprint(b.Groups) {
		t.Fatalf("groups differ: %v vs %v", a.Groups, b.Groups)
	}
	if a.IsDimension {
		t.Fatal("amount should classify as a measure")
	}
}

func TestClassifyMissingColumn(t *testing.T) {
	ts := salesSchema(schema.PartitionTypeRange)

	_, err := Classify(ts.Dimensions, ts.Measures, "nope")
	if !errors.Is(err, ErrPartitionColumnNotFound) {
		t.Fatalf("expected ErrPartitionColumnNotFound, got %v", err)
	}
}

func TestMeasureIndexGroupOrder(t *testing.T) {
	measures := []schema.ColumnSchema{
		{Name: "m1", DataType: schema.DataTypeLong, Ordinal: 0},
		{Name: "m2", DataType: schema.DataTypeDouble, Ordinal: 1},
		{Name: "m3", DataType: schema.DataTypeLong, Ordinal: 2},
	}
	dims := []schema.ColumnSchema{
		{Name: "d", DataType: schema.DataTypeString, Encodings: []schema.Encoding{schema.EncodingDictionary}},
	}

	class, err := Classify(dims, measures, "m2")
	if err != nil {
		t.Fatal(err)
	}
	for i, slot := range class.Groups.Measure {
		if slot != i+1 {
			t.Fatalf("measure %d has slot %d, expected %d", i, slot, i+1)
		}
	}
}

func TestResolveDictionaryStringRange(t *testing.T) {
	ts := salesSchema(schema.PartitionTypeRange)
	kg, err := keygen.NewKeyGenerator([]int64{16})
	if err != nil {
		t.Fatal(err)
	}
	dict := &mapStore{values: map[string]map[int64]string{
		"region": {7: "west"},
	}}

	r, err := New(ts, kg, dict)
	if err != nil {
		t.Fatal(err)
	}

	key, err := kg.Generate([]int64{7})
	if err != nil {
		t.Fatal(err)
	}
	row := scan.EncodedRow{
		Values:       []any{key, int64(100)},
		NoDictionary: [][]byte{[]byte("lisbon")},
	}

	val, err := r.ResolveValue(context.Background(), row)
	if err != nil {
		t.Fatal(err)
	}
	b, ok := val.([]byte)
	if !ok {
		t.Fatalf("expected raw bytes for STRING range column, got %T", val)
	}
	if !bytes.Equal(b, []byte("west")) {
		t.Fatalf("expected bytes \"west\", got %q", b)
	}
}

func TestResolveDictionaryStringNonRange(t *testing.T) {
	ts := salesSchema(schema.PartitionTypeHash)
	ts.PartitionInfo.HashBuckets = 4
	kg, err := keygen.NewKeyGenerator([]int64{16})
	if err != nil {
		t.Fatal(err)
	}
	dict := &mapStore{values: map[string]map[int64]string{
		"region": {7: "west"},
	}}

	r, err := New(ts, kg, dict)
	if err != nil {
		t.Fatal(err)
	}

	key, err := kg.Generate([]int64{7})
	if err != nil {
		t.Fatal(err)
	}
	row := scan.EncodedRow{
		Values:       []any{key, int64(100)},
		NoDictionary: [][]byte{[]byte("lisbon")},
	}

	val, err := r.ResolveValue(context.Background(), row)
	if err != nil {
		t.Fatal(err)
	}
	if val != "west" {
		t.Fatalf("expected text \"west\", got %v (%T)", val, val)
	}
}

func TestResolveNoDictionaryString(t *testing.T) {
	ts := salesSchema(schema.PartitionTypeRange)
	ts.PartitionInfo.ColumnName = "city"
	kg, err := keygen.NewKeyGenerator([]int64{16})
	if err != nil {
		t.Fatal(err)
	}

	r, err := New(ts, kg, &mapStore{})
	if err != nil {
		t.Fatal(err)
	}

	key, err := kg.Generate([]int64{3})
	if err != nil {
		t.Fatal(err)
	}
	row := scan.EncodedRow{
		Values:       []any{key, int64(100)},
		NoDictionary: [][]byte{[]byte("east")},
	}

	val, err := r.ResolveValue(context.Background(), row)
	if err != nil {
		t.Fatal(err)
	}
	s, ok := val.(string)
	if !ok {
		t.Fatalf("expected plain string, got %T", val)
	}
	if s != "east" {
		t.Fatalf("expected \"east\", got %q", s)
	}
}

func TestResolveDirectDictionaryDate(t *testing.T) {
	ts := schema.TableSchema{
		Name: "events",
		Dimensions: []schema.ColumnSchema{
			{Name: "eventDate", DataType: schema.DataTypeDate, Encodings: []schema.Encoding{schema.EncodingDictionary, schema.EncodingDirectDictionary}, Ordinal: 0},
		},
		Measures: []schema.ColumnSchema{
			{Name: "count", DataType: schema.DataTypeLong, Ordinal: 0},
		},
		PartitionInfo: schema.PartitionInfo{
			ColumnName:  "eventDate",
			Type:        schema.PartitionTypeRange,
			RangeBounds: []string{"2000-01-01"},
		},
	}
	kg, err := keygen.NewKeyGenerator([]int64{1 << 30})
	if err != nil {
		t.Fatal(err)
	}

	r, err := New(ts, kg, &mapStore{})
	if err != nil {
		t.Fatal(err)
	}

	// 86400000ms scales down to offset 86400s, one day after epoch
	key, err := kg.Generate([]int64{86400000})
	if err != nil {
		t.Fatal(err)
	}
	row := scan.EncodedRow{
		Values: []any{key, int64(1)},
	}

	val, err := r.ResolveValue(context.Background(), row)
	if err != nil {
		t.Fatal(err)
	}
	d, ok := val.(time.Time)
	if !ok {
		t.Fatalf("expected time.Time, got %T", val)
	}
	expected := time.Date(1970, 1, 2, 0, 0, 0, 0, time.UTC)
	if !d.Equal(expected) {
		t.Fatalf("expected %s, got %s", expected, d)
	}
}

func TestResolveMeasure(t *testing.T) {
	ts := salesSchema(schema.PartitionTypeRange)
	ts.PartitionInfo.ColumnName = "amount"
	kg, err := keygen.NewKeyGenerator([]int64{16})
	if err != nil {
		t.Fatal(err)
	}

	r, err := New(ts, kg, &mapStore{})
	if err != nil {
		t.Fatal(err)
	}

	key, err := kg.Generate([]int64{0})
	if err != nil {
		t.Fatal(err)
	}
	row := scan.EncodedRow{
		Values:       []any{key, int64(42)},
		NoDictionary: [][]byte{[]byte("east")},
	}

	val, err := r.ResolveValue(context.Background(), row)
	if err != nil {
		t.Fatal(err)
	}
	if val != int64(42) {
		t.Fatalf("expected 42 unchanged, got %v (%T)", val, val)
	}
}

func TestResolveMissingSurrogate(t *testing.T) {
	ts := salesSchema(schema.PartitionTypeRange)
	kg, err := keygen.NewKeyGenerator([]int64{16})
	if err != nil {
		t.Fatal(err)
	}

	r, err := New(ts, kg, &mapStore{values: map[string]map[int64]string{}})
	if err != nil {
		t.Fatal(err)
	}

	key, err := kg.Generate([]int64{9})
	if err != nil {
		t.Fatal(err)
	}
	row := scan.EncodedRow{
		Values:       []any{key, int64(1)},
		NoDictionary: [][]byte{[]byte("east")},
	}

	_, err = r.ResolveValue(context.Background(), row)
	if !errors.Is(err, dictionary.ErrSurrogateNotFound) {
		t.Fatalf("expected ErrSurrogateNotFound, got %v", err)
	}
	var de *DecodeError
	if !errors.As(err, &de) {
		t.Fatalf("expected DecodeError, got %v", err)
	}
	if de.Column != "region" {
		t.Fatalf("expected column region in error, got '%s'", de.Column)
	}
}

func TestResolveMemoizesLookups(t *testing.T) {
	ts := salesSchema(schema.PartitionTypeHash)
	ts.PartitionInfo.HashBuckets = 4
	kg, err := keygen.NewKeyGenerator([]int64{16})
	if err != nil {
		t.Fatal(err)
	}
	dict := &mapStore{values: map[string]map[int64]string{
		"region": {7: "west"},
	}}

	r, err := New(ts, kg, dict)
	if err != nil {
		t.Fatal(err)
	}

	key, err := kg.Generate([]int64{7})
	if err != nil {
		t.Fatal(err)
	}
	row := scan.EncodedRow{
		Values:       []any{key, int64(1)},
		NoDictionary: [][]byte{[]byte("east")},
	}

	for i := 0; i < 5; i++ {
		if _, err := r.ResolveValue(context.Background(), row); err != nil {
			t.Fatal(err)
		}
	}
	if dict.lookups != 1 {
		t.Fatalf("expected 1 inner lookup, got %d", dict.lookups)
	}
}
