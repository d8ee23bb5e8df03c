package types

import (
	"encoding/json"
	"testing"
)

func TestProductIDAcceptsNumbersAndStrings(t *testing.T) {
	var payload struct {
		A ProductID `json:"a"`
		B ProductID `json:"b"`
		C ProductID `json:"c"`
	}
	if err := json.Unmarshal([]byte(`{"a": 42, "b": "sku-7", "c": null}`), &payload); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if payload.A != NumericProductID(42) || payload.B != ParseProductID("sku-7") || !payload.C.IsZero() {
		t.Fatalf("unexpected ids %+v", payload)
	}
}

func TestProductIDPreservesWireKind(t *testing.T) {
	var ids []ProductID
	if err := json.Unmarshal([]byte(`[42, "sku-7", "007", "42"]`), &ids); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	out, err := json.Marshal(ids)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `[42,"sku-7","007","42"]` {
		t.Fatalf("unexpected encoding %s", out)
	}
	if !json.Valid(out) {
		t.Fatalf("invalid json %s", out)
	}
}

func TestProductIDKeyIgnoresWireKind(t *testing.T) {
	var number, text ProductID
	if err := json.Unmarshal([]byte(`42`), &number); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if err := json.Unmarshal([]byte(`"42"`), &text); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if number.Key() != text.Key() {
		t.Fatalf("expected equal keys, got %q and %q", number.Key(), text.Key())
	}
	if !number.IsNumeric() || text.IsNumeric() {
		t.Fatalf("unexpected kinds number=%v text=%v", number.IsNumeric(), text.IsNumeric())
	}
}

func TestProductIDRejectsObjects(t *testing.T) {
	var id ProductID
	if err := json.Unmarshal([]byte(`{"x":1}`), &id); err == nil {
		t.Fatal("expected error for object id")
	}
}
