package dropi

import (
	"encoding/json"
	"testing"
	"time"
)

func TestStatusField_Decode(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`"ENTREGADO"`, "ENTREGADO"},
		{`" ENTREGADO "`, "ENTREGADO"},
		{`{"name":"DEVOLUCION","id":3}`, "DEVOLUCION"},
		{`{"id":7}`, "7"},
		{`null`, ""},
		{`5`, "5"},
	}

	for _, c := range cases {
		var s StatusField
		if err := json.Unmarshal([]byte(c.raw), &s); err != nil {
			t.Fatalf("unmarshal %s: %v", c.raw, err)
		}
		if string(s) != c.want {
			t.Errorf("StatusField(%s) = %q, want %q", c.raw, s, c.want)
		}
	}
}

func TestFlexDecimal_Decode(t *testing.T) {
	cases := []struct {
		raw  string
		want string
	}{
		{`12345.67`, "12345.67"},
		{`"12345.67"`, "12345.67"},
		{`null`, "0"},
		{`""`, "0"},
		{`"not-a-number"`, "0"},
	}

	for _, c := range cases {
		var f FlexDecimal
		if err := json.Unmarshal([]byte(c.raw), &f); err != nil {
			t.Fatalf("unmarshal %s: %v", c.raw, err)
		}
		if f.Decimal.String() != c.want {
			t.Errorf("FlexDecimal(%s) = %s, want %s", c.raw, f.Decimal, c.want)
		}
	}
}

func TestFlexInt_Decode(t *testing.T) {
	cases := []struct {
		raw  string
		want int64
	}{
		{`42`, 42},
		{`"42"`, 42},
		{`null`, 0},
		{`""`, 0},
	}

	for _, c := range cases {
		var f FlexInt
		if err := json.Unmarshal([]byte(c.raw), &f); err != nil {
			t.Fatalf("unmarshal %s: %v", c.raw, err)
		}
		if int64(f) != c.want {
			t.Errorf("FlexInt(%s) = %d, want %d", c.raw, f, c.want)
		}
	}
}

func TestParseUpstreamTime(t *testing.T) {
	got := ParseUpstreamTime("2025-03-15T10:30:45.000000Z")
	if got == nil {
		t.Fatal("expected a parsed time, got nil")
	}
	want := time.Date(2025, 3, 15, 10, 30, 45, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("got %v, want %v", got, want)
	}

	if ParseUpstreamTime("") != nil {
		t.Error("empty input should return nil")
	}
	if ParseUpstreamTime("2025-03-15") != nil {
		t.Error("short input should return nil")
	}
	if ParseUpstreamTime("not-a-time-but-long-enough") != nil {
		t.Error("garbage input should return nil")
	}
}
