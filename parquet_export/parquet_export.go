package parquet_export

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/Siyun/carbondata/schema"
	"github.com/xitongsys/parquet-go/writer"
)

type (
	// SchemaBuilder renders a table's declared columns as a parquet-go JSON
	// schema, for exporting decoded rows.
	SchemaBuilder struct {
		schema ParquetSchema
	}

	ParquetSchema struct {
		TagStructs SchemaTag        `json:"-,omitempty"`
		Fields     []*ParquetSchema `json:",omitempty"`
	}

	ParquetJSONSchema struct {
		Tag    string               `json:",omitempty"`
		Fields []*ParquetJSONSchema `json:",omitempty"`
	}

	SchemaTag struct {
		Name           string         `json:"name,omitempty"`
		Type           string         `json:"type,omitempty"`
		ConvertedType  string         `json:"convertedtype,omitempty"`
		RepetitionType RepetitionType `json:"repetitiontype,omitempty"`
		Encoding       string         `json:"encoding,omitempty"`
	}

	RepetitionType string
)

var (
	Optional RepetitionType = "OPTIONAL"
	Required RepetitionType = "REQUIRED"
)

func NewSchemaBuilder(columns []schema.ColumnSchema) *SchemaBuilder {
	sb := &SchemaBuilder{
		schema: ParquetSchema{
			TagStructs: SchemaTag{
				Name:           "parquet_go_root",
				RepetitionType: Required,
			},
		},
	}
	for _, col := range columns {
		sb.schema.Fields = append(sb.schema.Fields, columnSchema(col))
	}
	return sb
}

func columnSchema(col schema.ColumnSchema) *ParquetSchema {
	ps := &ParquetSchema{
		TagStructs: SchemaTag{
			Name:           FieldName(col.Name),
			RepetitionType: Optional,
		},
	}
	switch col.DataType {
	case schema.DataTypeString:
		ps.TagStructs.Type = "BYTE_ARRAY"
		ps.TagStructs.ConvertedType = "UTF8"
		ps.TagStructs.Encoding = "PLAIN"
	case schema.DataTypeBoolean:
		ps.TagStructs.Type = "BOOLEAN"
	case schema.DataTypeInt:
		ps.TagStructs.Type = "INT32"
	case schema.DataTypeLong:
		ps.TagStructs.Type = "INT64"
	case schema.DataTypeDate, schema.DataTypeTimestamp:
		ps.TagStructs.Type = "INT64"
		ps.TagStructs.ConvertedType = "TIMESTAMP_MILLIS"
	default:
		ps.TagStructs.Type = "DOUBLE"
	}
	return ps
}

// FieldName is the parquet field name for a column, capitalized the way the
// parquet-go JSON writer expects.
func FieldName(col string) string {
	return strings.ToUpper(col[:1]) + col[1:]
}

func (sb *SchemaBuilder) GetColumnNames() []string {
	var cols []string
	for _, field := range sb.schema.Fields {
		cols = append(cols, field.TagStructs.Name)
	}
	return cols
}

// ToParquetJSONSchema recursively converts
func (ps *ParquetSchema) ToParquetJSONSchema() *ParquetJSONSchema {
	var tagArr []string
	if ps.TagStructs.Type != "" {
		tagArr = append(tagArr, "type="+ps.TagStructs.Type)
	}
	if ps.TagStructs.ConvertedType != "" {
		tagArr = append(tagArr, "convertedtype="+ps.TagStructs.ConvertedType)
	}
	if ps.TagStructs.Encoding != "" {
		tagArr = append(tagArr, "encoding="+ps.TagStructs.Encoding)
	}
	if ps.TagStructs.Name != "" {
		tagArr = append(tagArr, "name="+ps.TagStructs.Name)
	}
	if string(ps.TagStructs.RepetitionType) != "" {
		tagArr = append(tagArr, "repetitiontype="+string(ps.TagStructs.RepetitionType))
	}
	var fields []*ParquetJSONSchema
	for _, field := range ps.Fields {
		fields = append(fields, field.ToParquetJSONSchema())
	}
	return &ParquetJSONSchema{
		Tag:    strings.Join(tagArr, ", "),
		Fields: fields,
	}
}

// GetSchemaString returns the JSON formatted schema string
func (sb *SchemaBuilder) GetSchemaString() (string, error) {
	var fields []*ParquetJSONSchema
	for _, field := range sb.schema.Fields {
		fields = append(fields, field.ToParquetJSONSchema())
	}
	pjs := ParquetJSONSchema{
		Tag:    "name=parquet_go_root, repetitiontype=REQUIRED",
		Fields: fields,
	}

	b, err := json.Marshal(pjs)
	if err != nil {
		return "", fmt.Errorf("error in json.Marshal: %w", err)
	}
	return string(b), nil
}

// RowToJSON renders one decoded row for the parquet JSON writer: field names
// capitalized, times as unix millis, raw bytes as UTF-8.
func RowToJSON(row map[string]any) ([]byte, error) {
	out := make(map[string]any, len(row))
	for col, val := range row {
		switch v := val.(type) {
		case time.Time:
			out[FieldName(col)] = v.UnixMilli()
		case []byte:
			out[FieldName(col)] = string(v)
		default:
			out[FieldName(col)] = v
		}
	}
	b, err := json.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("error in json.Marshal: %w", err)
	}
	return b, nil
}

// WriteRows writes decoded rows to w as one parquet file.
func WriteRows(w io.Writer, columns []schema.ColumnSchema, rows []map[string]any) error {
	sb := NewSchemaBuilder(columns)
	schemaString, err := sb.GetSchemaString()
	if err != nil {
		return fmt.Errorf("error in GetSchemaString: %w", err)
	}

	pw, err := writer.NewJSONWriterFromWriter(schemaString, w, 4)
	if err != nil {
		return fmt.Errorf("error in NewJSONWriterFromWriter: %w", err)
	}

	for _, row := range rows {
		rowBytes, err := RowToJSON(row)
		if err != nil {
			return fmt.Errorf("error in RowToJSON: %w", err)
		}
		if err := pw.Write(rowBytes); err != nil {
			return fmt.Errorf("error in pw.Write for row %+v: %w", string(rowBytes), err)
		}
	}
	if err := pw.WriteStop(); err != nil {
		return fmt.Errorf("error in pw.WriteStop: %w", err)
	}
	return nil
}
