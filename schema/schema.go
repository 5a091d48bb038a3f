package schema

import (
	"errors"
	"time"
)

type (
	DataType string

	// Encoding is the storage encoding applied to a dimension column.
	Encoding string

	// EncodingFamily is the closed set of mutually exclusive decode paths
	// for a dimension. It is derived from the column's encoding set once,
	// at schema load.
	EncodingFamily int

	ColumnSchema struct {
		Name     string
		DataType DataType
		// Encodings applied to this column. Empty for measures and
		// no-dictionary dimensions.
		Encodings []Encoding
		// Ordinal is the column's position among dimensions, or among
		// measures, in declared order.
		Ordinal int
	}

	PartitionType string

	// PartitionInfo describes how rows of a table are bucketed.
	PartitionInfo struct {
		ColumnName string
		Type       PartitionType
		// RangeBounds are the upper-exclusive bucket boundaries for RANGE,
		// compared in byte order for string columns.
		RangeBounds []string
		// ListValues maps bucket index to accepted values for LIST.
		ListValues [][]string
		// HashBuckets is the bucket count for HASH.
		HashBuckets int
	}

	TableSchema struct {
		ID   string
		Name string

		// Dimensions and Measures are in declared order.
		Dimensions []ColumnSchema
		Measures   []ColumnSchema

		PartitionInfo PartitionInfo

		CreatedAt time.Time
		UpdatedAt time.Time
	}
)

const (
	DataTypeString    DataType = "STRING"
	DataTypeBoolean   DataType = "BOOLEAN"
	DataTypeInt       DataType = "INT"
	DataTypeLong      DataType = "LONG"
	DataTypeDouble    DataType = "DOUBLE"
	DataTypeDate      DataType = "DATE"
	DataTypeTimestamp DataType = "TIMESTAMP"

	EncodingDictionary       Encoding = "DICTIONARY"
	EncodingDirectDictionary Encoding = "DIRECT_DICTIONARY"

	PartitionTypeRange PartitionType = "RANGE"
	PartitionTypeList  PartitionType = "LIST"
	PartitionTypeHash  PartitionType = "HASH"
)

const (
	// FamilyNoDictionary covers dimensions stored as raw typed bytes.
	FamilyNoDictionary EncodingFamily = iota
	// FamilyDictionary covers dimensions whose surrogates resolve through
	// the global dictionary store.
	FamilyDictionary
	// FamilyDirectDictionary covers date/time dimensions whose surrogates
	// are a function of a time offset.
	FamilyDirectDictionary
)

var ErrUnknownDataType = errors.New("unknown data type")

func (c ColumnSchema) HasEncoding(e Encoding) bool {
	for _, enc := range c.Encodings {
		if enc == e {
			return true
		}
	}
	return false
}

// Family classifies the dimension into its decode path. Direct dictionary
// wins over plain dictionary, matching the encoder's branch priority.
func (c ColumnSchema) Family() EncodingFamily {
	if c.HasEncoding(EncodingDirectDictionary) {
		return FamilyDirectDictionary
	}
	if c.HasEncoding(EncodingDictionary) {
		return FamilyDictionary
	}
	return FamilyNoDictionary
}

// DictionaryDimensions returns the dimensions carried in the packed
// composite key (dictionary and direct-dictionary), in declared order.
func (ts TableSchema) DictionaryDimensions() []ColumnSchema {
	var dims []ColumnSchema
	for _, dim := range ts.Dimensions {
		if dim.Family() != FamilyNoDictionary {
			dims = append(dims, dim)
		}
	}
	return dims
}
