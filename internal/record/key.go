package record

import (
	"encoding/binary"
	"math"
)

const (
	keyNull byte = iota
	keyInt
	keyReal
	keyText
	keyBlob
)

// AppendKey appends an encoding of v to dst such that two values encode to
// the same bytes exactly when Compare reports them equal under coll. An
// integral real encodes like the equal integer.
func AppendKey(dst []byte, v Value, coll Collation) []byte {
	switch v.kind {
	case KindNull:
		return append(dst, keyNull)
	case KindInteger:
		dst = append(dst, keyInt)
		return binary.BigEndian.AppendUint64(dst, uint64(v.i))
	case KindReal:
		if i, ok := exactInt(v.f); ok {
			dst = append(dst, keyInt)
			return binary.BigEndian.AppendUint64(dst, uint64(i))
		}
		dst = append(dst, keyReal)
		return binary.BigEndian.AppendUint64(dst, math.Float64bits(v.f))
	case KindText:
		s := v.s
		if coll != nil {
			s = coll.Key(s)
		}
		dst = append(dst, keyText)
		dst = binary.AppendUvarint(dst, uint64(len(s)))
		return append(dst, s...)
	default:
		dst = append(dst, keyBlob)
		dst = binary.AppendUvarint(dst, uint64(len(v.s)))
		return append(dst, v.s...)
	}
}

// RowKey encodes a whole row with AppendKey. colls may be shorter than row.
func RowKey(row Row, colls []Collation) string {
	var buf []byte
	for i, v := range row {
		var c Collation
		if i < len(colls) {
			c = colls[i]
		}
		buf = AppendKey(buf, v, c)
	}
	return string(buf)
}
