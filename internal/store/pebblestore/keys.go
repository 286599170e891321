package pebblestore

import "encoding/binary"

// Keyspace helpers.
//
// Layout (byte-wise, lexicographically sortable):
// - p/{partition}/r/{sort_be8}
//
// Sort keys are non-negative, so the unsigned big-endian encoding preserves
// numeric order. Partition names must not contain '/'.

var (
	partPrefix = []byte("p/")
	rowSeg     = []byte("/r/")
)

func appendBE8(dst []byte, v uint64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// keyRow builds the row key with a big-endian sort key for proper ordering.
func keyRow(partition string, sort int64) []byte {
	k := make([]byte, 0, len(partition)+16)
	k = append(k, partPrefix...)
	k = append(k, partition...)
	k = append(k, rowSeg...)
	k = appendBE8(k, uint64(sort))
	return k
}

// keyRowPrefix returns the range prefix covering all rows of a partition.
func keyRowPrefix(partition string) []byte {
	k := make([]byte, 0, len(partition)+8)
	k = append(k, partPrefix...)
	k = append(k, partition...)
	k = append(k, rowSeg...)
	return k
}

// sortFromKey extracts the sort key from a full row key.
func sortFromKey(k []byte) int64 {
	return int64(binary.BigEndian.Uint64(k[len(k)-8:]))
}
