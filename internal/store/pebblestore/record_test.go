package pebblestore

import (
	"testing"

	"github.com/ordnungswidrig/dynalog/internal/store"
)

func TestAttrsRoundTrip(t *testing.T) {
	in := store.Item{
		"tx-time": store.Int(1699999999999),
		"events":  store.Bytes([]byte{0x00, 0x01, 0xfe}),
		"label":   store.String("hello"),
	}
	out, ok := decodeAttrs(encodeAttrs(in))
	if !ok {
		t.Fatalf("decode failed")
	}
	if len(out) != len(in) {
		t.Fatalf("attr count changed: %d -> %d", len(in), len(out))
	}
	for name, v := range in {
		if !out[name].Equal(v) {
			t.Fatalf("attr %s changed: %v -> %v", name, v, out[name])
		}
	}
}

func TestAttrsEmpty(t *testing.T) {
	out, ok := decodeAttrs(encodeAttrs(store.Item{}))
	if !ok || len(out) != 0 {
		t.Fatalf("empty item round trip failed: %v %v", out, ok)
	}
}

func TestDecodeAttrsRejectsCorruption(t *testing.T) {
	b := encodeAttrs(store.Item{"events": store.Bytes([]byte("payload"))})
	b[len(b)/2] ^= 0xff
	if _, ok := decodeAttrs(b); ok {
		t.Fatalf("corrupt record should fail the checksum")
	}
	if _, ok := decodeAttrs(nil); ok {
		t.Fatalf("empty buffer should not decode")
	}
}

func TestRowKeyOrdering(t *testing.T) {
	prev := keyRow("p", 0)
	for _, sort := range []int64{1, 2, 9, 10, 255, 256, 1 << 40} {
		k := keyRow("p", sort)
		if string(k) <= string(prev) {
			t.Fatalf("keys not ordered at sort %d", sort)
		}
		if got := sortFromKey(k); got != sort {
			t.Fatalf("sortFromKey(%d) = %d", sort, got)
		}
		prev = k
	}
}
