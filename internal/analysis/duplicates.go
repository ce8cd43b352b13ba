package analysis

import (
	"strconv"
	"strings"
)

// CountDuplicates returns how many rows repeat an earlier row exactly over
// the dataset's columns. Missing cells compare equal to each other.
func CountDuplicates(ds *Dataset) int {
	seen := make(map[string]struct{}, len(ds.Rows))
	dup := 0
	var b strings.Builder
	for _, r := range ds.Rows {
		b.Reset()
		for _, c := range ds.Columns {
			writeKeyField(&b, r[c])
		}
		k := b.String()
		if _, ok := seen[k]; ok {
			dup++
			continue
		}
		seen[k] = struct{}{}
	}
	return dup
}

// writeKeyField encodes kind and a length-prefixed identity form so that no
// two distinct rows can produce the same key.
func writeKeyField(b *strings.Builder, v Value) {
	s := v.String()
	b.WriteByte(byte('0' + v.Kind()))
	b.WriteString(strconv.Itoa(len(s)))
	b.WriteByte(':')
	b.WriteString(s)
}
