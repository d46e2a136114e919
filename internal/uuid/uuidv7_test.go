package uuid

import (
	"strings"
	"testing"
)

func TestNew(t *testing.T) {
	id := New()
	if !IsValid(id) {
		t.Fatalf("expected valid uuid, got %q", id)
	}
	if id[14] != '7' {
		t.Errorf("expected version 7, got %q", id)
	}
}

func TestNew_is_time_ordered(t *testing.T) {
	prev := New()
	for i := 0; i < 50; i++ {
		next := New()
		if strings.Compare(next[:13], prev[:13]) < 0 {
			t.Fatalf("timestamp prefix went backwards: %s then %s", prev, next)
		}
		prev = next
	}
}

func TestParse(t *testing.T) {
	if _, err := Parse("not-a-uuid"); err == nil {
		t.Error("expected error for invalid uuid")
	}
	got, err := Parse("0190F5A2-8C3B-7DEF-8123-456789ABCDEF")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got != "0190f5a2-8c3b-7def-8123-456789abcdef" {
		t.Errorf("expected lowercase normalization, got %s", got)
	}
}
