package partition

import (
	"strings"

	"github.com/arkilian/colgroup/pkg/types"
)

// DetectRanges derives named groups from a header row laid out like
//
//	verbs, , , adjectives, , , noodle recipes, ,
//
// A non-blank cell starts a group named after the trimmed cell; the blank
// cells that follow extend it until the next non-blank cell or the end of
// the header. Blank cells before the first name belong to no group.
func DetectRanges(header types.Record) []types.NamedRange {
	var ranges []types.NamedRange

	i := 0
	for i < header.Len() {
		name := strings.TrimSpace(header[i])
		if name == "" {
			i++
			continue
		}

		end := i + 1
		for end < header.Len() && strings.TrimSpace(header[end]) == "" {
			end++
		}

		ranges = append(ranges, types.NamedRange{
			Name:  name,
			Range: types.MustNewRange(i, end),
		})
		i = end
	}

	return ranges
}
