package partition

import (
	"fmt"
	"iter"

	"github.com/arkilian/colgroup/pkg/types"
)

// Decode maps every row of seq to a caller-defined value, for example
//
//	words, err := partition.Decode(it.All(), func(v types.RowView) (Word, error) {
//		kana, _ := v.Field(0)
//		meaning, _ := v.Field(1)
//		return Word{Kana: kana, Meaning: meaning}, nil
//	})
//
// It stops at the first stream error or decode error. Header rows are
// skipped so the same function works for Rows and AllRows.
func Decode[T any](seq iter.Seq2[types.RowView, error], fn func(types.RowView) (T, error)) ([]T, error) {
	var out []T
	for view, err := range seq {
		if err != nil {
			return out, err
		}
		if view.IsHeader() {
			continue
		}
		v, err := fn(view)
		if err != nil {
			return out, fmt.Errorf("partition: failed to decode row %d of group %d: %w", view.RowIndex(), view.GroupIndex(), err)
		}
		out = append(out, v)
	}
	return out, nil
}
