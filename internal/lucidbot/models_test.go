package lucidbot

import (
	"encoding/json"
	"testing"
)

func TestContactPayload_DecodesObjectFields(t *testing.T) {
	raw := `{
		"id": 101,
		"full_name": "Comprador Uno",
		"created_at": "2025-06-10T09:00:00",
		"custom_fields": {
			"Total a pagar": "1.234.567",
			"Producto_Ordenados": "Smartwatch X2",
			"Calificacion_LucidSales": "caliente",
			"Edad": 34
		}
	}`

	var p ContactPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := p.FieldValue("Total a pagar"); got != "1.234.567" {
		t.Errorf("Total a pagar = %q, want 1.234.567", got)
	}
	if got := p.FieldValue("Producto_Ordenados"); got != "Smartwatch X2" {
		t.Errorf("Producto_Ordenados = %q", got)
	}
	if got := p.FieldValue("total a pagar"); got != "1.234.567" {
		t.Errorf("field lookup must be case-insensitive, got %q", got)
	}
	if got := p.FieldValue("Edad"); got != "34" {
		t.Errorf("numeric field = %q, want 34", got)
	}
	if got := p.FieldValue("no-such-field"); got != "" {
		t.Errorf("missing field = %q, want empty", got)
	}
}

func TestContactPayload_DecodesListFields(t *testing.T) {
	raw := `{
		"id": 102,
		"custom_fields": [
			{"id": 728463, "name": "Total a pagar", "value": "150,75"},
			{"id": 728464, "name": "Producto_Ordenados", "value": "Freidora"}
		]
	}`

	var p ContactPayload
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if got := p.FieldValue("Total a pagar"); got != "150,75" {
		t.Errorf("Total a pagar = %q, want 150,75", got)
	}
	if got := p.FieldValue("Producto_Ordenados"); got != "Freidora" {
		t.Errorf("Producto_Ordenados = %q", got)
	}
}

func TestParseContactTime(t *testing.T) {
	if got := parseContactTime("2025-06-10T09:00:00.123456"); got == nil || got.Hour() != 9 {
		t.Errorf("fractional tail must be ignored, got %v", got)
	}
	if got := parseContactTime(""); got != nil {
		t.Errorf("empty timestamp = %v, want nil", got)
	}
	if got := parseContactTime("2025-06-10"); got != nil {
		t.Errorf("short timestamp = %v, want nil", got)
	}
}
