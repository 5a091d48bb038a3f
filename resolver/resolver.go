package resolver

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/Siyun/carbondata/dictionary"
	"github.com/Siyun/carbondata/keygen"
	"github.com/Siyun/carbondata/scan"
	"github.com/Siyun/carbondata/schema"
)

type (
	// IndexGroups splits the table's columns into the three decode groups.
	// Built once at resolver construction and read-only thereafter.
	IndexGroups struct {
		// NoDictionary and Dictionary hold dimension ordinals in declared
		// order, one group per dimension.
		NoDictionary []int
		Dictionary   []int
		// Measure holds each measure's 1-based slot in the row value array;
		// slot 0 is the packed dimension key.
		Measure []int
	}

	// Classification is the once-per-resolver output of Classify.
	Classification struct {
		Groups      IndexGroups
		IsDimension bool
		// ColumnIndex is the partition column's ordinal among dimensions
		// when IsDimension, otherwise among measures.
		ColumnIndex int
		Column      schema.ColumnSchema
	}

	// Resolver extracts the partition column's logical value from encoded
	// rows. Instances are built once per segment scan and are not shared;
	// everything here is read-only after construction.
	Resolver struct {
		table         string
		partitionInfo schema.PartitionInfo
		class         Classification
		keyGen        *keygen.KeyGenerator
		dict          dictionary.Store
	}

	// DecodeError carries the column and row context of a failed decode.
	DecodeError struct {
		Column string
		Row    int64
		Err    error
	}
)

var (
	ErrPartitionColumnNotFound = errors.New("partition column not found among declared dimensions and measures")
	ErrIndexGroupRange         = errors.New("position out of range of index group")
	ErrRowLayout               = errors.New("row layout does not match classification")
	ErrSegmentWidth            = errors.New("raw segment width does not match data type")
)

func (e *DecodeError) Error() string {
	return fmt.Sprintf("error decoding partition column '%s' at row %d: %v", e.Column, e.Row, e.Err)
}

func (e *DecodeError) Unwrap() error {
	return e.Err
}

// Classify builds the index groups and locates the partition column.
// Deterministic and idempotent: identical schemas yield identical groups.
//
// A partition column name matching no declared column fails with
// ErrPartitionColumnNotFound rather than silently resolving to column 0.
func Classify(dimensions, measures []schema.ColumnSchema, partitionColumn string) (Classification, error) {
	class := Classification{}
	for i, dim := range dimensions {
		if dim.Family() == schema.FamilyNoDictionary {
			class.Groups.NoDictionary = append(class.Groups.NoDictionary, i)
		} else {
			class.Groups.Dictionary = append(class.Groups.Dictionary, i)
		}
	}
	for i := range measures {
		// +1 reserves slot 0 of the row for the packed dimension key
		class.Groups.Measure = append(class.Groups.Measure, i+1)
	}

	matched := -1
	for i, dim := range dimensions {
		if dim.Name == partitionColumn {
			matched = i
			break
		}
	}
	if matched == -1 {
		for i, m := range measures {
			if m.Name == partitionColumn {
				matched = len(dimensions) + i
				break
			}
		}
	}
	if matched == -1 {
		return class, fmt.Errorf("column '%s': %w", partitionColumn, ErrPartitionColumnNotFound)
	}

	if matched < len(dimensions) {
		class.IsDimension = true
		class.ColumnIndex = matched
		class.Column = dimensions[matched]
	} else {
		class.ColumnIndex = matched - len(dimensions)
		class.Column = measures[class.ColumnIndex]
	}
	return class, nil
}

// New builds a resolver for one segment of a table. The key generator must
// be built from the same segment properties the encoder used. Dictionary
// lookups are memoized for the resolver's lifetime.
func New(ts schema.TableSchema, keyGen *keygen.KeyGenerator, dict dictionary.Store) (*Resolver, error) {
	class, err := Classify(ts.Dimensions, ts.Measures, ts.PartitionInfo.ColumnName)
	if err != nil {
		return nil, fmt.Errorf("error in Classify: %w", err)
	}
	return &Resolver{
		table:         ts.Name,
		partitionInfo: ts.PartitionInfo,
		class:         class,
		keyGen:        keyGen,
		dict:          dictionary.NewCachedStore(dict),
	}, nil
}

func (r *Resolver) Classification() Classification {
	return r.class
}

// ResolveValue returns the partition column's logical value for one row.
// For STRING columns under RANGE partitioning the value is the raw bytes of
// the dictionary value, so downstream range bucketing compares byte order.
func (r *Resolver) ResolveValue(ctx context.Context, row scan.EncodedRow) (any, error) {
	val, err := r.resolve(ctx, row)
	if err != nil {
		var de *DecodeError
		if errors.As(err, &de) {
			return nil, err
		}
		return nil, &DecodeError{Column: r.class.Column.Name, Err: err}
	}
	return val, nil
}

func (r *Resolver) resolve(ctx context.Context, row scan.EncodedRow) (any, error) {
	c := r.class
	if !c.IsDimension {
		if c.ColumnIndex >= len(c.Groups.Measure) {
			return nil, fmt.Errorf("measure index %d in group of %d: %w", c.ColumnIndex, len(c.Groups.Measure), ErrIndexGroupRange)
		}
		slot := c.Groups.Measure[c.ColumnIndex]
		if slot >= len(row.Values) {
			return nil, fmt.Errorf("measure slot %d in row of %d values: %w", slot, len(row.Values), ErrRowLayout)
		}
		// measures are stored unencoded
		return row.Values[slot], nil
	}

	switch c.Column.Family() {
	case schema.FamilyDirectDictionary:
		pos := indexOf(c.Groups.Dictionary, c.ColumnIndex)
		if pos == -1 {
			return nil, fmt.Errorf("dimension %d not in dictionary group: %w", c.ColumnIndex, ErrIndexGroupRange)
		}
		surrogates, err := r.keyGen.Decompose(row.PackedKey())
		if err != nil {
			return nil, fmt.Errorf("error in keyGen.Decompose: %w", err)
		}
		if pos >= len(surrogates) {
			return nil, fmt.Errorf("dictionary position %d of %d surrogates: %w", pos, len(surrogates), ErrRowLayout)
		}
		offset := surrogates[pos] / dictionary.DirectSurrogateScale
		val, err := dictionary.FromOffset(c.Column.DataType, offset)
		if err != nil {
			return nil, fmt.Errorf("error in dictionary.FromOffset: %w", err)
		}
		return val, nil

	case schema.FamilyNoDictionary:
		pos := indexOf(c.Groups.NoDictionary, c.ColumnIndex)
		if pos == -1 {
			return nil, fmt.Errorf("dimension %d not in no-dictionary group: %w", c.ColumnIndex, ErrIndexGroupRange)
		}
		if pos >= len(row.NoDictionary) {
			return nil, fmt.Errorf("no-dictionary position %d of %d segments: %w", pos, len(row.NoDictionary), ErrRowLayout)
		}
		return decodeRawSegment(c.Column.DataType, row.NoDictionary[pos])

	default:
		// The composite-key surrogate is read at the dimension's direct row
		// position here, not through the dictionary index group like the
		// branches above. Inherited behavior, kept as-is.
		surrogates, err := r.keyGen.Decompose(row.PackedKey())
		if err != nil {
			return nil, fmt.Errorf("error in keyGen.Decompose: %w", err)
		}
		if c.ColumnIndex >= len(surrogates) {
			return nil, fmt.Errorf("dimension %d of %d surrogates: %w", c.ColumnIndex, len(surrogates), ErrRowLayout)
		}
		val, err := r.dict.Lookup(ctx, r.table, c.Column.Name, surrogates[c.ColumnIndex])
		if err != nil {
			return nil, fmt.Errorf("error in dict.Lookup: %w", err)
		}
		if c.Column.DataType == schema.DataTypeString && r.partitionInfo.Type == schema.PartitionTypeRange {
			return []byte(val), nil
		}
		return val, nil
	}
}

// decodeRawSegment decodes a no-dictionary byte segment into its logical
// value: fixed-width big-endian for numeric and date/time types, plain UTF-8
// for strings.
func decodeRawSegment(dt schema.DataType, seg []byte) (any, error) {
	switch dt {
	case schema.DataTypeString:
		return string(seg), nil
	case schema.DataTypeBoolean:
		if len(seg) != 1 {
			return nil, fmt.Errorf("%d bytes for %s: %w", len(seg), dt, ErrSegmentWidth)
		}
		return seg[0] == 1, nil
	case schema.DataTypeInt:
		if len(seg) != 4 {
			return nil, fmt.Errorf("%d bytes for %s: %w", len(seg), dt, ErrSegmentWidth)
		}
		return int64(int32(binary.BigEndian.Uint32(seg))), nil
	case schema.DataTypeLong:
		if len(seg) != 8 {
			return nil, fmt.Errorf("%d bytes for %s: %w", len(seg), dt, ErrSegmentWidth)
		}
		return int64(binary.BigEndian.Uint64(seg)), nil
	case schema.DataTypeDouble:
		if len(seg) != 8 {
			return nil, fmt.Errorf("%d bytes for %s: %w", len(seg), dt, ErrSegmentWidth)
		}
		return math.Float64frombits(binary.BigEndian.Uint64(seg)), nil
	case schema.DataTypeDate, schema.DataTypeTimestamp:
		if len(seg) != 8 {
			return nil, fmt.Errorf("%d bytes for %s: %w", len(seg), dt, ErrSegmentWidth)
		}
		t := time.UnixMilli(int64(binary.BigEndian.Uint64(seg))).UTC()
		if dt == schema.DataTypeDate {
			t = t.Truncate(time.Hour * 24)
		}
		return t, nil
	default:
		return nil, fmt.Errorf("type %s: %w", dt, schema.ErrUnknownDataType)
	}
}

func indexOf(group []int, val int) int {
	for i, v := range group {
		if v == val {
			return i
		}
	}
	return -1
}
