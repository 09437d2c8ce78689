package dropi

import (
	"testing"

	"github.com/lucidlabs/lucid-analytics/internal/types"
)

func TestNormalizeStatus_KnownVocabulary(t *testing.T) {
	cases := map[string]string{
		"ENTREGADO":               types.StatusDelivered,
		"entregado":               types.StatusDelivered,
		"  Entregado  ":           types.StatusDelivered,
		"DEVOLUCION":              types.StatusReturned,
		"DEVOLUCIÓN":              types.StatusReturned,
		"CANCELADO":               types.StatusCancelled,
		"PENDIENTE":               types.StatusPending,
		"PENDIENTE CONFIRMACION":  types.StatusPendingConfirmation,
		"PENDIENTE CONFIRMACIÓN": types.StatusPendingConfirmation,
		"GUIA_GENERADA":           types.StatusInTransit,
		"EN REPARTO":              types.StatusInTransit,
		"INTENTO DE ENTREGA":      types.StatusInTransit,
	}

	for raw, want := range cases {
		if got := NormalizeStatus(raw); got != want {
			t.Errorf("NormalizeStatus(%q) = %q, want %q", raw, got, want)
		}
	}
}

func TestNormalizeStatus_EmptyIsUnknown(t *testing.T) {
	if got := NormalizeStatus(""); got != types.StatusUnknown {
		t.Errorf("NormalizeStatus(\"\") = %q, want %q", got, types.StatusUnknown)
	}
	if got := NormalizeStatus("   "); got != types.StatusUnknown {
		t.Errorf("NormalizeStatus(blank) = %q, want %q", got, types.StatusUnknown)
	}
}

func TestNormalizeStatus_UnknownDefaultsToInTransit(t *testing.T) {
	for _, raw := range []string{"ESTADO_NUEVO_RARO", "REEXPEDICION URGENTE", "xyz"} {
		if got := NormalizeStatus(raw); got != types.StatusInTransit {
			t.Errorf("NormalizeStatus(%q) = %q, want %q", raw, got, types.StatusInTransit)
		}
	}
}
