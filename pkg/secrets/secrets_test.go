package secrets

import "testing"

func TestEncryptDecryptRoundTrip(t *testing.T) {
	box, err := NewBox("unit-test-key")
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}

	ciphertext, err := box.Encrypt("dropi-password-123")
	if err != nil {
		t.Fatalf("Encrypt: %v", err)
	}
	if ciphertext == "dropi-password-123" {
		t.Fatal("ciphertext equals plaintext")
	}

	plaintext, err := box.Decrypt(ciphertext)
	if err != nil {
		t.Fatalf("Decrypt: %v", err)
	}
	if plaintext != "dropi-password-123" {
		t.Fatalf("expected round trip, got %q", plaintext)
	}
}

func TestDecryptRejectsTamperedInput(t *testing.T) {
	box, err := NewBox("unit-test-key")
	if err != nil {
		t.Fatalf("NewBox: %v", err)
	}

	if _, err := box.Decrypt("bm90LWEtcmVhbC1jaXBoZXJ0ZXh0"); err == nil {
		t.Fatal("expected error for tampered ciphertext")
	}
	if _, err := box.Decrypt("!!!"); err == nil {
		t.Fatal("expected error for invalid base64")
	}
}

func TestNewBoxRequiresKey(t *testing.T) {
	if _, err := NewBox(""); err == nil {
		t.Fatal("expected error for empty key")
	}
}
