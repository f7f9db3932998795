package qr

import (
	"bytes"
	"testing"
)

var pngMagic = []byte{0x89, 'P', 'N', 'G'}

func TestEncode(t *testing.T) {
	png, err := Encode("lnbc18450n1pexampleinvoice")
	if err != nil {
		t.Fatalf("Encode failed: %v", err)
	}
	if !bytes.HasPrefix(png, pngMagic) {
		t.Errorf("Expected PNG output, got leading bytes %v", png[:4])
	}
}

func TestEncodeEmpty(t *testing.T) {
	if _, err := Encode(""); err == nil {
		t.Error("Expected error for empty payment request")
	}
}
