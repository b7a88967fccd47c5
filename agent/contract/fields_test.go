package contract

import (
	"reflect"
	"testing"
)

func TestFieldInt64NormalizesJSONNumbers(t *testing.T) {
	t.Parallel()

	fields := map[string]any{
		"a": int64(5),
		"b": 7,
		"c": float64(130000), // post-JSON shape
		"d": "not a number",
	}

	if got, ok := FieldInt64(fields, "a"); !ok || got != 5 {
		t.Fatalf("FieldInt64(a) = %d,%v", got, ok)
	}
	if got, ok := FieldInt64(fields, "b"); !ok || got != 7 {
		t.Fatalf("FieldInt64(b) = %d,%v", got, ok)
	}
	if got, ok := FieldInt64(fields, "c"); !ok || got != 130000 {
		t.Fatalf("FieldInt64(c) = %d,%v", got, ok)
	}
	if _, ok := FieldInt64(fields, "d"); ok {
		t.Fatalf("FieldInt64(d) ok, want miss")
	}
	if _, ok := FieldInt64(fields, "missing"); ok {
		t.Fatalf("FieldInt64(missing) ok, want miss")
	}
}

func TestFieldStringSliceNormalizesJSONArrays(t *testing.T) {
	t.Parallel()

	fields := map[string]any{
		"native":  []string{"stock"},
		"decoded": []any{"stock", "equipment"},
		"mixed":   []any{"stock", 3},
		"empty":   []any{},
	}

	if got, ok := FieldStringSlice(fields, "native"); !ok || !reflect.DeepEqual(got, []string{"stock"}) {
		t.Fatalf("FieldStringSlice(native) = %v,%v", got, ok)
	}
	if got, ok := FieldStringSlice(fields, "decoded"); !ok || !reflect.DeepEqual(got, []string{"stock", "equipment"}) {
		t.Fatalf("FieldStringSlice(decoded) = %v,%v", got, ok)
	}
	if got, ok := FieldStringSlice(fields, "mixed"); !ok || !reflect.DeepEqual(got, []string{"stock"}) {
		t.Fatalf("FieldStringSlice(mixed) = %v,%v", got, ok)
	}
	if _, ok := FieldStringSlice(fields, "empty"); ok {
		t.Fatalf("FieldStringSlice(empty) ok, want miss")
	}
}

func TestStageOrderMatchesKnownStage(t *testing.T) {
	t.Parallel()

	for _, s := range StageOrder {
		if !KnownStage(s) {
			t.Fatalf("KnownStage(%s) = false", s)
		}
	}
	if KnownStage("B9") {
		t.Fatalf("KnownStage(B9) = true")
	}
}
