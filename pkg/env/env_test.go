package env

import "testing"

func TestGetFallsBack(t *testing.T) {
	t.Setenv("STOREFRONT_TEST_GET", "")
	if got := Get("STOREFRONT_TEST_GET", "fallback"); got != "fallback" {
		t.Fatalf("expected fallback, got %q", got)
	}
	t.Setenv("STOREFRONT_TEST_GET", "value")
	if got := Get("STOREFRONT_TEST_GET", "fallback"); got != "value" {
		t.Fatalf("expected value, got %q", got)
	}
}

func TestFirst(t *testing.T) {
	t.Setenv("STOREFRONT_TEST_A", "")
	t.Setenv("STOREFRONT_TEST_B", "b")
	if got := First("STOREFRONT_TEST_A", "STOREFRONT_TEST_B"); got != "b" {
		t.Fatalf("expected b, got %q", got)
	}
	if got := First("STOREFRONT_TEST_A"); got != "" {
		t.Fatalf("expected empty, got %q", got)
	}
}
