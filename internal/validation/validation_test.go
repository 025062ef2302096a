package validation

import (
	"strings"
	"testing"
)

type bounds struct {
	Min int `json:"min" validate:"min=1"`
	Max int `json:"max" validate:"gtefield=Min"`
}

type pair struct {
	Left  bounds `json:"left"`
	Right bounds `json:"right"`
}

func TestStructAcceptsValid(t *testing.T) {
	if err := Struct(pair{Left: bounds{1, 9}, Right: bounds{10, 99}}); err != nil {
		t.Fatalf("expected valid struct, got %v", err)
	}
}

func TestStructReportsNestedPath(t *testing.T) {
	err := Struct(pair{Left: bounds{1, 9}, Right: bounds{0, 5}})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if !strings.Contains(err.Error(), "right.min") {
		t.Fatalf("expected nested field path in %q", err.Error())
	}
}

func TestStructJoinsMessages(t *testing.T) {
	err := Struct(pair{Left: bounds{5, 1}, Right: bounds{0, 5}})
	if err == nil {
		t.Fatalf("expected validation error")
	}
	if strings.Count(err.Error(), ";") != 1 {
		t.Fatalf("expected two messages, got %q", err.Error())
	}
}
