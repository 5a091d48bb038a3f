package dictionary

import (
	"fmt"
	"time"

	"github.com/Siyun/carbondata/schema"
)

// DirectSurrogateScale divides a direct-dictionary surrogate down to the
// second-granularity offset the value generator expects. Direct dictionaries
// encode a dense millisecond offset rather than an assigned ordinal.
const DirectSurrogateScale = 1000

// FromOffset converts a scaled direct-dictionary offset into the logical
// date/time value for the column's declared type.
func FromOffset(dataType schema.DataType, offset int64) (time.Time, error) {
	switch dataType {
	case schema.DataTypeTimestamp:
		return time.Unix(offset, 0).UTC(), nil
	case schema.DataTypeDate:
		return time.Unix(offset, 0).UTC().Truncate(time.Hour * 24), nil
	default:
		return time.Time{}, fmt.Errorf("direct dictionary does not support type %s: %w", dataType, schema.ErrUnknownDataType)
	}
}
