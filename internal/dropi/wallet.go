package dropi

import (
	"strings"

	"github.com/lucidlabs/lucid-analytics/internal/types"
)

// Exact upstream phrases that identify the two movement kinds the
// reconciler cares about.
const (
	profitPhrase  = "ENTRADA POR GANANCIA EN LA ORDEN COMO DROPSHIPPER"
	freightPhrase = "SALIDA POR COBRO DE FLETE INICIAL"
)

// CategorizeMovement derives a wallet movement category from its
// free-text description and direction. Ordered substring matches, first
// match wins. Never fails.
func CategorizeMovement(description, movementType string) string {
	desc := strings.ToUpper(description)

	switch {
	case strings.Contains(desc, profitPhrase):
		return types.CategoryDropshippingProfit
	case strings.Contains(desc, freightPhrase):
		return types.CategoryFreightCharge
	case strings.Contains(desc, "RETIRO"):
		return types.CategoryWithdrawal
	case strings.Contains(desc, "RECARGA"), strings.Contains(desc, "DEPOSITO"):
		return types.CategoryRecharge
	case movementType == types.MovementCredit:
		return types.CategoryCreditOther
	case movementType == types.MovementDebit:
		return types.CategoryDebitOther
	}
	return types.CategoryOther
}
