package repartitioner

import (
	"bytes"
	"errors"
	"fmt"
	"hash/fnv"
	"strconv"
	"strings"
	"time"

	"github.com/Siyun/carbondata/schema"
	"github.com/Siyun/carbondata/utils"
)

var (
	ErrUnknownPartitionType = errors.New("unknown partition type")
	ErrNoBuckets            = errors.New("partition info defines no buckets")
	ErrBadBound             = errors.New("range bound not parseable as column type")
	ErrNotComparable        = errors.New("value not comparable for range partitioning")
)

// Assign returns the target bucket for a resolved partition value. RANGE
// buckets are upper-exclusive with a final overflow bucket; LIST values with
// no match land in a default bucket after the declared lists; HASH buckets
// the value's canonical bytes.
func Assign(value any, dt schema.DataType, info schema.PartitionInfo) (int, error) {
	switch info.Type {
	case schema.PartitionTypeRange:
		if len(info.RangeBounds) == 0 {
			return 0, ErrNoBuckets
		}
		for i, bound := range info.RangeBounds {
			cmp, err := compareToBound(value, dt, bound)
			if err != nil {
				return 0, fmt.Errorf("error comparing to bound '%s': %w", bound, err)
			}
			if cmp < 0 {
				return i, nil
			}
		}
		return len(info.RangeBounds), nil

	case schema.PartitionTypeList:
		if len(info.ListValues) == 0 {
			return 0, ErrNoBuckets
		}
		s := canonicalString(value)
		for i, list := range info.ListValues {
			if utils.ContainsString(list, s) {
				return i, nil
			}
		}
		// default bucket
		return len(info.ListValues), nil

	case schema.PartitionTypeHash:
		if info.HashBuckets <= 0 {
			return 0, ErrNoBuckets
		}
		h := fnv.New32a()
		h.Write(canonicalBytes(value))
		return int(h.Sum32() % uint32(info.HashBuckets)), nil

	default:
		return 0, fmt.Errorf("type '%s': %w", info.Type, ErrUnknownPartitionType)
	}
}

// BucketName is the partition path segment for a bucket, ex `region=b2`.
func BucketName(info schema.PartitionInfo, bucket int) string {
	return fmt.Sprintf("%s=b%d", info.ColumnName, bucket)
}

// BucketCount is the total number of target buckets, including the range
// overflow / list default bucket.
func BucketCount(info schema.PartitionInfo) int {
	switch info.Type {
	case schema.PartitionTypeRange:
		return len(info.RangeBounds) + 1
	case schema.PartitionTypeList:
		return len(info.ListValues) + 1
	case schema.PartitionTypeHash:
		return info.HashBuckets
	default:
		return 0
	}
}

// compareToBound compares a resolved value against a range bound. STRING
// range values arrive as raw bytes and compare in byte order against the
// bound's bytes; everything else compares in the column's native order.
func compareToBound(value any, dt schema.DataType, bound string) (int, error) {
	switch v := value.(type) {
	case []byte:
		return bytes.Compare(v, []byte(bound)), nil
	case string:
		return strings.Compare(v, bound), nil
	case int64:
		b, err := strconv.ParseInt(bound, 10, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", err.Error(), ErrBadBound)
		}
		return compareOrdered(v, b), nil
	case float64:
		b, err := strconv.ParseFloat(bound, 64)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", err.Error(), ErrBadBound)
		}
		return compareOrdered(v, b), nil
	case time.Time:
		b, err := parseTimeBound(dt, bound)
		if err != nil {
			return 0, fmt.Errorf("%s: %w", err.Error(), ErrBadBound)
		}
		if v.Before(b) {
			return -1, nil
		} else if v.After(b) {
			return 1, nil
		}
		return 0, nil
	default:
		return 0, fmt.Errorf("value %+v: %w", value, ErrNotComparable)
	}
}

func parseTimeBound(dt schema.DataType, bound string) (time.Time, error) {
	if dt == schema.DataTypeDate {
		return time.ParseInLocation("2006-01-02", bound, time.UTC)
	}
	return time.Parse(time.RFC3339, bound)
}

func compareOrdered[T int64 | float64](a, b T) int {
	if a < b {
		return -1
	} else if a > b {
		return 1
	}
	return 0
}

func canonicalString(value any) string {
	switch v := value.(type) {
	case []byte:
		return string(v)
	case string:
		return v
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case bool:
		return strconv.FormatBool(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339)
	default:
		return fmt.Sprint(v)
	}
}

func canonicalBytes(value any) []byte {
	if b, ok := value.([]byte); ok {
		return b
	}
	return []byte(canonicalString(value))
}
