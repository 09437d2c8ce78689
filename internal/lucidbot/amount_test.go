package lucidbot

import (
	"testing"

	"github.com/shopspring/decimal"
)

func TestParseAmount(t *testing.T) {
	cases := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"1.234.567", "1234567", true},
		{"$ 1.234.567", "1234567", true},
		{"1.234,50", "1234.5", true},
		{"1234567", "1234567", true},
		{"1.234", "1234", true},
		{"1.5", "1.5", true},
		{"150,75", "150.75", true},
		{"0", "0", true},
		{"", "0", false},
		{"   ", "0", false},
		{"sin dato", "0", false},
		{"$", "0", false},
	}

	for _, c := range cases {
		got, ok := ParseAmount(c.raw)
		if ok != c.ok {
			t.Errorf("ParseAmount(%q) ok = %v, want %v", c.raw, ok, c.ok)
			continue
		}
		if c.ok && got.String() != c.want {
			t.Errorf("ParseAmount(%q) = %s, want %s", c.raw, got, c.want)
		}
	}
}

func TestClassify(t *testing.T) {
	// The amount-due field with a Latin thousands format is a sale
	cls := Classify("1.234.567")
	if cls.Kind != KindSale {
		t.Fatalf("kind = %v, want sale", cls.Kind)
	}
	if !cls.Amount.Equal(decimal.NewFromInt(1234567)) {
		t.Errorf("amount = %s, want 1234567", cls.Amount)
	}

	// Absent, unparsable, zero and negative amounts are all leads
	for _, raw := range []string{"", "pendiente", "0", "-500"} {
		if got := Classify(raw); got.Kind != KindLead {
			t.Errorf("Classify(%q).Kind = %v, want lead", raw, got.Kind)
		}
	}
}
