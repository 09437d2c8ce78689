package dropi

import (
	"testing"

	"github.com/lucidlabs/lucid-analytics/internal/types"
)

func TestCategorizeMovement(t *testing.T) {
	cases := []struct {
		description  string
		movementType string
		want         string
	}{
		{"ENTRADA POR GANANCIA EN LA ORDEN COMO DROPSHIPPER 12345", "ENTRADA", types.CategoryDropshippingProfit},
		{"entrada por ganancia en la orden como dropshipper 999", "ENTRADA", types.CategoryDropshippingProfit},
		{"SALIDA POR COBRO DE FLETE INICIAL ORDEN 555", "SALIDA", types.CategoryFreightCharge},
		{"RETIRO A CUENTA BANCARIA", "SALIDA", types.CategoryWithdrawal},
		{"RECARGA DE SALDO", "ENTRADA", types.CategoryRecharge},
		{"DEPOSITO EN EFECTIVO", "ENTRADA", types.CategoryRecharge},
		{"AJUSTE MANUAL", "ENTRADA", types.CategoryCreditOther},
		{"AJUSTE MANUAL", "SALIDA", types.CategoryDebitOther},
		{"AJUSTE MANUAL", "", types.CategoryOther},
	}

	for _, c := range cases {
		if got := CategorizeMovement(c.description, c.movementType); got != c.want {
			t.Errorf("CategorizeMovement(%q, %q) = %q, want %q", c.description, c.movementType, got, c.want)
		}
	}
}

// A withdrawal description that also mentions an order must still be a
// withdrawal: the profit and freight phrase checks run first, so only
// the exact phrases claim those categories.
func TestCategorizeMovement_PhrasePrecedence(t *testing.T) {
	got := CategorizeMovement("RETIRO POR GANANCIA ACUMULADA", "SALIDA")
	if got != types.CategoryWithdrawal {
		t.Errorf("got %q, want %q", got, types.CategoryWithdrawal)
	}
}
