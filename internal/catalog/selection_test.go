package catalog

import (
	"errors"
	"testing"
)

func TestSelection(t *testing.T) {
	var s Selection
	milk := product("milk", 20, "2.00", Coles, "Dairy", true)
	bread := product("bread", 10, "3.50", Aldi, "Bakery", true)

	if err := s.Add(milk); err != nil {
		t.Fatalf("add milk: %v", err)
	}
	if err := s.Add(bread); err != nil {
		t.Fatalf("add bread: %v", err)
	}
	if err := s.Add(milk); !errors.Is(err, ErrAlreadySelected) {
		t.Fatalf("expected ErrAlreadySelected, got %v", err)
	}
	if s.Len() != 2 {
		t.Fatalf("Len = %d, want 2", s.Len())
	}

	names := s.Names()
	if len(names) != 2 || names[0] != "Product milk" || names[1] != "Product bread" {
		t.Fatalf("unexpected names %v", names)
	}

	// originals are double the discounted price in the fixture
	if got := s.TotalSavings().StringFixed(2); got != "5.50" {
		t.Fatalf("TotalSavings = %s, want 5.50", got)
	}

	s.Remove("milk")
	if s.Contains("milk") || s.Len() != 1 {
		t.Fatalf("milk should be removed, have %v", s.Names())
	}
	s.Remove("missing")
	if s.Len() != 1 {
		t.Fatalf("removing an unknown id changed the selection")
	}
}

func TestSelectionProductsIsACopy(t *testing.T) {
	var s Selection
	_ = s.Add(product("a", 10, "1.00", Coles, "", true))

	products := s.Products()
	products[0].ID = "changed"
	if !s.Contains("a") {
		t.Fatal("mutating Products() leaked into the selection")
	}
}
