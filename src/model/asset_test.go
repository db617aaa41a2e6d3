package model

import "testing"

func TestAssetString(t *testing.T) {
	if got := NewWax(1050000000).String(); got != "10.50000000 WAX" {
		t.Fatalf("unexpected rendering %s", got)
	}
	if got := NewLswax(1).String(); got != "0.00000001 LSWAX" {
		t.Fatalf("unexpected rendering %s", got)
	}
}

func TestParseAssetRoundtrip(t *testing.T) {
	in := NewSwax(123456789)
	parsed, err := ParseAsset(in.String())
	if err != nil {
		t.Fatal(err)
	}
	if parsed != in {
		t.Fatalf("expected %v, got %v", in, parsed)
	}
}

func TestParseAssetRejectsMalformed(t *testing.T) {
	for _, raw := range []string{
		"10.5 WAX",          // wrong precision
		"10.50000000",       // missing symbol
		"abc.00000000 WAX",  // not a number
		"10.50000000 WAX X", // trailing garbage
	} {
		if _, err := ParseAsset(raw); err == nil {
			t.Fatalf("expected error parsing `%s`", raw)
		}
	}
}
