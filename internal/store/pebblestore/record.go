package pebblestore

import (
	"encoding/binary"
	"hash/crc32"
	"sort"

	"github.com/ordnungswidrig/dynalog/internal/store"
)

// Row value encoding:
// uvarint attrCount | per attr: uvarint nameLen, name, kind byte, value | crc32c(body)
//
// Integer values are 8 bytes big-endian; string and byte values carry a
// uvarint length prefix. Attributes are written in sorted name order so the
// encoding is deterministic.

var castagnoli = crc32.MakeTable(crc32.Castagnoli)

const (
	tagString byte = 's'
	tagInt    byte = 'i'
	tagBytes  byte = 'b'
)

func encodeAttrs(attrs store.Item) []byte {
	names := make([]string, 0, len(attrs))
	for name := range attrs {
		names = append(names, name)
	}
	sort.Strings(names)

	var tmp [10]byte
	out := make([]byte, 0, 16)
	n := binary.PutUvarint(tmp[:], uint64(len(names)))
	out = append(out, tmp[:n]...)
	for _, name := range names {
		n = binary.PutUvarint(tmp[:], uint64(len(name)))
		out = append(out, tmp[:n]...)
		out = append(out, name...)
		v := attrs[name]
		switch v.Kind() {
		case store.KindInt:
			out = append(out, tagInt)
			var b [8]byte
			binary.BigEndian.PutUint64(b[:], uint64(v.Int()))
			out = append(out, b[:]...)
		case store.KindBytes:
			out = append(out, tagBytes)
			n = binary.PutUvarint(tmp[:], uint64(len(v.Bytes())))
			out = append(out, tmp[:n]...)
			out = append(out, v.Bytes()...)
		default:
			out = append(out, tagString)
			n = binary.PutUvarint(tmp[:], uint64(len(v.Str())))
			out = append(out, tmp[:n]...)
			out = append(out, v.Str()...)
		}
	}
	crc := crc32.Checksum(out, castagnoli)
	var crcb [4]byte
	binary.BigEndian.PutUint32(crcb[:], crc)
	return append(out, crcb[:]...)
}

func decodeAttrs(b []byte) (store.Item, bool) {
	if len(b) < 1+4 {
		return nil, false
	}
	body, tail := b[:len(b)-4], b[len(b)-4:]
	if crc32.Checksum(body, castagnoli) != binary.BigEndian.Uint32(tail) {
		return nil, false
	}
	count, n := binary.Uvarint(body)
	if n <= 0 {
		return nil, false
	}
	body = body[n:]
	attrs := make(store.Item, count)
	for i := uint64(0); i < count; i++ {
		nameLen, n := binary.Uvarint(body)
		if n <= 0 || uint64(len(body)) < uint64(n)+nameLen+1 {
			return nil, false
		}
		name := string(body[n : uint64(n)+nameLen])
		body = body[uint64(n)+nameLen:]
		tag := body[0]
		body = body[1:]
		switch tag {
		case tagInt:
			if len(body) < 8 {
				return nil, false
			}
			attrs[name] = store.Int(int64(binary.BigEndian.Uint64(body[:8])))
			body = body[8:]
		case tagBytes, tagString:
			vlen, n := binary.Uvarint(body)
			if n <= 0 || uint64(len(body)) < uint64(n)+vlen {
				return nil, false
			}
			val := body[n : uint64(n)+vlen]
			if tag == tagBytes {
				attrs[name] = store.Bytes(append([]byte(nil), val...))
			} else {
				attrs[name] = store.String(string(val))
			}
			body = body[uint64(n)+vlen:]
		default:
			return nil, false
		}
	}
	return attrs, len(body) == 0
}
