package dynamo

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"

	"github.com/ordnungswidrig/dynalog/internal/store"
)

func TestValueRoundTrip(t *testing.T) {
	for _, v := range []store.Value{
		store.String("hello"),
		store.Int(-42),
		store.Int(1<<62 + 1),
		store.Bytes([]byte{0x00, 0xff}),
	} {
		got, err := decodeValue(encodeValue(v))
		if err != nil {
			t.Fatalf("decode(%v): %v", v, err)
		}
		if !got.Equal(v) {
			t.Fatalf("round trip changed value: %v -> %v", v, got)
		}
	}
}

func TestDecodeValueRejectsBadNumber(t *testing.T) {
	if _, err := decodeValue(&types.AttributeValueMemberN{Value: "nope"}); err == nil {
		t.Fatalf("want parse error")
	}
}

func TestDecodeValueRejectsUnsupportedType(t *testing.T) {
	if _, err := decodeValue(&types.AttributeValueMemberBOOL{Value: true}); err == nil {
		t.Fatalf("want unsupported type error")
	}
}

func TestKeyRoundTrip(t *testing.T) {
	key := store.Key{Partition: "orders", Sort: 17}
	got, err := decodeKey(encodeKey(key))
	if err != nil {
		t.Fatalf("decode key: %v", err)
	}
	if got != key {
		t.Fatalf("round trip changed key: %+v -> %+v", key, got)
	}
}

func TestDecodeRowSplitsKeyAndAttrs(t *testing.T) {
	item := encodeItem(store.Key{Partition: "p", Sort: 3}, store.Item{
		"tx-time": store.Int(1234),
		"events":  store.Bytes([]byte("blob")),
	})
	row, err := decodeRow(item)
	if err != nil {
		t.Fatalf("decode row: %v", err)
	}
	if row.Key.Partition != "p" || row.Key.Sort != 3 {
		t.Fatalf("bad key: %+v", row.Key)
	}
	if _, has := row.Attrs[store.AttrPartition]; has {
		t.Fatalf("key attributes must not leak into Attrs")
	}
	if !row.Attrs["tx-time"].Equal(store.Int(1234)) || !row.Attrs["events"].Equal(store.Bytes([]byte("blob"))) {
		t.Fatalf("bad attrs: %+v", row.Attrs)
	}
}

func TestDecodeRowMissingKey(t *testing.T) {
	if _, err := decodeRow(map[string]types.AttributeValue{
		"events": &types.AttributeValueMemberB{Value: []byte("x")},
	}); err == nil {
		t.Fatalf("want missing key error")
	}
}

func TestCondExpr(t *testing.T) {
	expr, names, values := condExpr(store.NotExists("last"))
	if expr != "attribute_not_exists(#c)" || names["#c"] != "last" || values != nil {
		t.Fatalf("not-exists rendering wrong: %q %v %v", expr, names, values)
	}

	expr, names, values = condExpr(store.Equals("last", store.Int(9)))
	if expr != "#c = :c" || names["#c"] != "last" {
		t.Fatalf("equals rendering wrong: %q %v", expr, names)
	}
	n, ok := values[":c"].(*types.AttributeValueMemberN)
	if !ok || n.Value != "9" {
		t.Fatalf("equals value wrong: %v", values)
	}
}
