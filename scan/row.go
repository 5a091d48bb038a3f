package scan

type (
	// EncodedRow is one row as the storage engine laid it out. Values[0] is
	// the packed dictionary key ([]byte); measure values follow at slots
	// 1..N in declared measure order. NoDictionary holds the raw byte
	// segment of each no-dictionary dimension in declared order, pre-sliced
	// with no length prefix.
	//
	// Rows are read-only to the decode path.
	EncodedRow struct {
		Values       []any
		NoDictionary [][]byte
	}
)

// PackedKey returns the composite dictionary key at slot 0, or nil if the
// row carries none.
func (r EncodedRow) PackedKey() []byte {
	if len(r.Values) == 0 {
		return nil
	}
	key, _ := r.Values[0].([]byte)
	return key
}
