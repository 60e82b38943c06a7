package model

import (
	"encoding/json"
	"testing"
)

func TestValuePreservesOrderAndPrecision(t *testing.T) {
	input := `{"z":1,"a":[true,null,"x"],"big":123456789012345678901234567890,"m":{"k":-1.5e3}}`

	var v Value
	if err := json.Unmarshal([]byte(input), &v); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	if v.Kind() != KindMap {
		t.Fatalf("expected map, got %s", v.Kind())
	}
	if v.Len() != 4 {
		t.Fatalf("expected 4 fields, got %d", v.Len())
	}

	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(out) != input {
		t.Fatalf("encoding mismatch:\n got %s\nwant %s", out, input)
	}

	big, ok := v.Get("big")
	if !ok {
		t.Fatalf("missing field big")
	}
	num, ok := big.AsNumber()
	if !ok || num.String() != "123456789012345678901234567890" {
		t.Fatalf("unexpected number %q", num)
	}
}

func TestValueZeroIsNull(t *testing.T) {
	var v Value
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(out) != "null" {
		t.Fatalf("expected null, got %s", out)
	}
}

func TestEmptyMapEncodesAsObject(t *testing.T) {
	out, err := json.Marshal(EmptyMap())
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(out) != "{}" {
		t.Fatalf("expected {}, got %s", out)
	}
}

func TestValueRejectsTrailingData(t *testing.T) {
	var v Value
	if err := v.UnmarshalJSON([]byte(`{"a":1} {"b":2}`)); err == nil {
		t.Fatalf("expected error for trailing data")
	}
}

func TestValueAccessors(t *testing.T) {
	v := Map(
		Field{Key: "name", Value: String("mojo")},
		Field{Key: "ok", Value: Bool(true)},
		Field{Key: "items", Value: List(Int(1), Int(2))},
	)

	if s, ok := mustGet(t, v, "name").AsString(); !ok || s != "mojo" {
		t.Fatalf("unexpected name %q", s)
	}
	if b, ok := mustGet(t, v, "ok").AsBool(); !ok || !b {
		t.Fatalf("unexpected ok %v", b)
	}
	if items := mustGet(t, v, "items").Items(); len(items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(items))
	}
	if _, ok := v.Get("missing"); ok {
		t.Fatalf("expected missing field")
	}
}

func mustGet(t *testing.T, v Value, key string) Value {
	t.Helper()
	got, ok := v.Get(key)
	if !ok {
		t.Fatalf("missing field %s", key)
	}
	return got
}

func TestValueEncodesOutOfRangeNumbers(t *testing.T) {
	input := `{"huge":1e400,"tiny":-1e-400}`

	var v Value
	if err := json.Unmarshal([]byte(input), &v); err != nil {
		t.Fatalf("unmarshal failed: %v", err)
	}
	out, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(out) != input {
		t.Fatalf("encoding mismatch:\n got %s\nwant %s", out, input)
	}
}

func TestValueEncodesMalformedNumberAsString(t *testing.T) {
	out, err := json.Marshal(List(Number("12abc"), Number("")))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	if string(out) != `["12abc",""]` {
		t.Fatalf("unexpected encoding %s", out)
	}
}
