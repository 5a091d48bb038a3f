package resolver

import (
	"context"
	"fmt"

	"github.com/Siyun/carbondata/dictionary"
	"github.com/Siyun/carbondata/scan"
	"github.com/Siyun/carbondata/schema"
)

// RowDecoder decodes whole rows back to logical values, for exports. It
// shares the resolver's classification, key generator, and memoized
// dictionary, but unlike ResolveValue it reads every column through its
// index group.
type RowDecoder struct {
	r          *Resolver
	dimensions []schema.ColumnSchema
	measures   []schema.ColumnSchema
}

func NewRowDecoder(ts schema.TableSchema, r *Resolver) *RowDecoder {
	return &RowDecoder{
		r:          r,
		dimensions: ts.Dimensions,
		measures:   ts.Measures,
	}
}

// DecodeRow converts one encoded row into column name -> logical value.
func (rd *RowDecoder) DecodeRow(ctx context.Context, row scan.EncodedRow) (map[string]any, error) {
	groups := rd.r.class.Groups
	out := make(map[string]any, len(rd.dimensions)+len(rd.measures))

	var surrogates []int64
	if len(groups.Dictionary) > 0 {
		var err error
		surrogates, err = rd.r.keyGen.Decompose(row.PackedKey())
		if err != nil {
			return nil, fmt.Errorf("error in keyGen.Decompose: %w", err)
		}
	}

	for i, dim := range rd.dimensions {
		switch dim.Family() {
		case schema.FamilyNoDictionary:
			pos := indexOf(groups.NoDictionary, i)
			if pos == -1 || pos >= len(row.NoDictionary) {
				return nil, fmt.Errorf("no-dictionary dimension '%s': %w", dim.Name, ErrRowLayout)
			}
			val, err := decodeRawSegment(dim.DataType, row.NoDictionary[pos])
			if err != nil {
				return nil, fmt.Errorf("error decoding dimension '%s': %w", dim.Name, err)
			}
			out[dim.Name] = val

		case schema.FamilyDirectDictionary:
			pos := indexOf(groups.Dictionary, i)
			if pos == -1 || pos >= len(surrogates) {
				return nil, fmt.Errorf("direct-dictionary dimension '%s': %w", dim.Name, ErrRowLayout)
			}
			val, err := dictionary.FromOffset(dim.DataType, surrogates[pos]/dictionary.DirectSurrogateScale)
			if err != nil {
				return nil, fmt.Errorf("error in dictionary.FromOffset for '%s': %w", dim.Name, err)
			}
			out[dim.Name] = val

		default:
			pos := indexOf(groups.Dictionary, i)
			if pos == -1 || pos >= len(surrogates) {
				return nil, fmt.Errorf("dictionary dimension '%s': %w", dim.Name, ErrRowLayout)
			}
			val, err := rd.r.dict.Lookup(ctx, rd.r.table, dim.Name, surrogates[pos])
			if err != nil {
				return nil, fmt.Errorf("error in dict.Lookup for '%s': %w", dim.Name, err)
			}
			out[dim.Name] = val
		}
	}

	for i, m := range rd.measures {
		slot := groups.Measure[i]
		if slot >= len(row.Values) {
			return nil, fmt.Errorf("measure '%s': %w", m.Name, ErrRowLayout)
		}
		out[m.Name] = row.Values[slot]
	}
	return out, nil
}
