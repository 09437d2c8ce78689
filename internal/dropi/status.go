package dropi

import (
	"strings"

	"github.com/lucidlabs/lucid-analytics/internal/types"
)

// statusTable maps the upstream's status vocabulary, including accented
// variants, onto the normalized set. Anything not listed is assumed to
// still be moving through the courier network.
var statusTable = map[string]string{
	"ENTREGADO":               types.StatusDelivered,
	"DEVOLUCION":              types.StatusReturned,
	"DEVOLUCIÓN":              types.StatusReturned,
	"CANCELADO":               types.StatusCancelled,
	"PENDIENTE":               types.StatusPending,
	"PENDIENTE CONFIRMACION":  types.StatusPendingConfirmation,
	"PENDIENTE CONFIRMACIÓN":  types.StatusPendingConfirmation,
	"NOVEDAD":                 types.StatusInTransit,
	"EN CAMINO":               types.StatusInTransit,
	"ENVIADO":                 types.StatusInTransit,
	"EN REPARTO":              types.StatusInTransit,
	"EN BODEGA":               types.StatusInTransit,
	"GUÍA GENERADA":           types.StatusInTransit,
	"GUIA GENERADA":           types.StatusInTransit,
	"EN DESPACHO":             types.StatusInTransit,
	"RECIBIDO":                types.StatusInTransit,
	"EN TERMINAL":             types.StatusInTransit,
	"EN TRÁNSITO":             types.StatusInTransit,
	"EN TRANSITO":             types.StatusInTransit,
}

// NormalizeStatus maps a raw upstream status onto the fixed vocabulary.
// Empty input means the upstream told us nothing; unknown non-empty
// input is treated as in transit. Never fails.
func NormalizeStatus(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return types.StatusUnknown
	}

	if normalized, ok := statusTable[strings.ToUpper(raw)]; ok {
		return normalized
	}
	return types.StatusInTransit
}
