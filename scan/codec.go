package scan

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/Siyun/carbondata/schema"
)

// Block files hold the encoded rows of one segment: per row, a
// length-prefixed packed key, the raw no-dictionary segments, then the
// measure values encoded fixed-width per their declared type (strings
// length-prefixed). All integers are big-endian.

var (
	ErrRowTruncated    = errors.New("block row truncated")
	ErrSegmentMismatch = errors.New("row does not match schema layout")
)

type (
	RowCodec struct {
		noDictTypes  []schema.DataType
		measureTypes []schema.DataType
	}
)

func NewRowCodec(ts schema.TableSchema) *RowCodec {
	rc := &RowCodec{}
	for _, dim := range ts.Dimensions {
		if dim.Family() == schema.FamilyNoDictionary {
			rc.noDictTypes = append(rc.noDictTypes, dim.DataType)
		}
	}
	for _, m := range ts.Measures {
		rc.measureTypes = append(rc.measureTypes, m.DataType)
	}
	return rc
}

func (rc *RowCodec) WriteRow(w io.Writer, row EncodedRow) error {
	if len(row.NoDictionary) != len(rc.noDictTypes) {
		return fmt.Errorf("got %d no-dictionary segments, schema has %d: %w", len(row.NoDictionary), len(rc.noDictTypes), ErrSegmentMismatch)
	}
	if len(row.Values) != len(rc.measureTypes)+1 {
		return fmt.Errorf("got %d row values, schema needs %d: %w", len(row.Values), len(rc.measureTypes)+1, ErrSegmentMismatch)
	}

	if err := writeBytes(w, row.PackedKey()); err != nil {
		return fmt.Errorf("error writing packed key: %w", err)
	}
	for i, seg := range row.NoDictionary {
		if err := writeBytes(w, seg); err != nil {
			return fmt.Errorf("error writing no-dictionary segment %d: %w", i, err)
		}
	}
	for i, dt := range rc.measureTypes {
		if err := writeMeasure(w, dt, row.Values[i+1]); err != nil {
			return fmt.Errorf("error writing measure %d: %w", i, err)
		}
	}
	return nil
}

func (rc *RowCodec) ReadRow(r io.Reader) (EncodedRow, error) {
	row := EncodedRow{
		Values: make([]any, 1+len(rc.measureTypes)),
	}

	key, err := readBytes(r)
	if err != nil {
		return row, fmt.Errorf("error reading packed key: %w", err)
	}
	row.Values[0] = key

	for i := range rc.noDictTypes {
		seg, err := readBytes(r)
		if err != nil {
			return row, fmt.Errorf("error reading no-dictionary segment %d: %w", i, err)
		}
		row.NoDictionary = append(row.NoDictionary, seg)
	}

	for i, dt := range rc.measureTypes {
		val, err := readMeasure(r, dt)
		if err != nil {
			return row, fmt.Errorf("error reading measure %d: %w", i, err)
		}
		row.Values[i+1] = val
	}
	return row, nil
}

func writeBytes(w io.Writer, b []byte) error {
	if err := binary.Write(w, binary.BigEndian, uint32(len(b))); err != nil {
		return err
	}
	_, err := w.Write(b)
	return err
}

func readBytes(r io.Reader) ([]byte, error) {
	var n uint32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return nil, err
	}
	b := make([]byte, n)
	if _, err := io.ReadFull(r, b); err != nil {
		return nil, fmt.Errorf("%s: %w", err.Error(), ErrRowTruncated)
	}
	return b, nil
}

func writeMeasure(w io.Writer, dt schema.DataType, val any) error {
	switch dt {
	case schema.DataTypeInt:
		return binary.Write(w, binary.BigEndian, int32(val.(int64)))
	case schema.DataTypeLong, schema.DataTypeTimestamp:
		return binary.Write(w, binary.BigEndian, val.(int64))
	case schema.DataTypeDouble:
		return binary.Write(w, binary.BigEndian, math.Float64bits(val.(float64)))
	case schema.DataTypeBoolean:
		b := byte(0)
		if val.(bool) {
			b = 1
		}
		return binary.Write(w, binary.BigEndian, b)
	case schema.DataTypeString:
		return writeBytes(w, []byte(val.(string)))
	default:
		return fmt.Errorf("measure type %s: %w", dt, schema.ErrUnknownDataType)
	}
}

func readMeasure(r io.Reader, dt schema.DataType) (any, error) {
	switch dt {
	case schema.DataTypeInt:
		var v int32
		err := binary.Read(r, binary.BigEndian, &v)
		return int64(v), err
	case schema.DataTypeLong, schema.DataTypeTimestamp:
		var v int64
		err := binary.Read(r, binary.BigEndian, &v)
		return v, err
	case schema.DataTypeDouble:
		var u uint64
		err := binary.Read(r, binary.BigEndian, &u)
		return math.Float64frombits(u), err
	case schema.DataTypeBoolean:
		var b byte
		err := binary.Read(r, binary.BigEndian, &b)
		return b == 1, err
	case schema.DataTypeString:
		b, err := readBytes(r)
		return string(b), err
	default:
		return nil, fmt.Errorf("measure type %s: %w", dt, schema.ErrUnknownDataType)
	}
}
