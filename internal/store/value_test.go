package store

import "testing"

func TestValueEqual(t *testing.T) {
	cases := []struct {
		name string
		a, b Value
		want bool
	}{
		{"strings equal", String("x"), String("x"), true},
		{"strings differ", String("x"), String("y"), false},
		{"ints equal", Int(7), Int(7), true},
		{"ints differ", Int(7), Int(8), false},
		{"bytes equal", Bytes([]byte{1, 2}), Bytes([]byte{1, 2}), true},
		{"bytes differ", Bytes([]byte{1, 2}), Bytes([]byte{1, 3}), false},
		{"kind mismatch", String("7"), Int(7), false},
		{"zero values", Value{}, String(""), true},
	}
	for _, c := range cases {
		if got := c.a.Equal(c.b); got != c.want {
			t.Fatalf("%s: Equal = %v, want %v", c.name, got, c.want)
		}
	}
}

func TestValueAccessors(t *testing.T) {
	if v := Int(42); v.Kind() != KindInt || v.Int() != 42 {
		t.Fatalf("int accessor broken: %+v", v)
	}
	if v := String("s"); v.Kind() != KindString || v.Str() != "s" {
		t.Fatalf("string accessor broken: %+v", v)
	}
	if v := Bytes([]byte("b")); v.Kind() != KindBytes || string(v.Bytes()) != "b" {
		t.Fatalf("bytes accessor broken: %+v", v)
	}
}
