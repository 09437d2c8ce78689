package lucidbot

import (
	"strings"

	"github.com/shopspring/decimal"
)

// Kind tags a contact as a lead or a sale. A contact is a sale when its
// amount-due field parses to a positive number; everything else is a lead.
type Kind int

const (
	KindLead Kind = iota
	KindSale
)

func (k Kind) String() string {
	if k == KindSale {
		return "sale"
	}
	return "lead"
}

// Classification is the parse-time verdict for one contact. Amount is
// only meaningful when Kind is KindSale.
type Classification struct {
	Kind   Kind
	Amount decimal.Decimal
}

// ParseAmount interprets an amount-due custom field. Values arrive in
// Latin American formats: "$ 1.234.567", "1.234.567", "1234567",
// "1.234,50". Dots between digit groups of three are thousands
// separators; a trailing comma group is the decimal part.
func ParseAmount(raw string) (decimal.Decimal, bool) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return decimal.Zero, false
	}

	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == '.', r == ',', r == '-':
			b.WriteRune(r)
		}
	}
	s = b.String()
	if s == "" || s == "-" {
		return decimal.Zero, false
	}

	// "1.234.567" and "1.234,50" both use '.' for thousands. A lone
	// dot is only a decimal point when no comma follows it.
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	} else if strings.Count(s, ".") > 1 || looksLikeThousands(s) {
		s = strings.ReplaceAll(s, ".", "")
	}

	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}

// looksLikeThousands reports whether a single dot splits the string
// into a thousands group, e.g. "1.234" (but not "1.5").
func looksLikeThousands(s string) bool {
	i := strings.Index(s, ".")
	if i < 0 {
		return false
	}
	return len(s)-i-1 == 3
}

// Classify turns a raw amount-due value into a Lead/Sale verdict.
func Classify(raw string) Classification {
	amount, ok := ParseAmount(raw)
	if !ok || !amount.IsPositive() {
		return Classification{Kind: KindLead}
	}
	return Classification{Kind: KindSale, Amount: amount}
}
