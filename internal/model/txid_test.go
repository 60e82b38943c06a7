package model

import "testing"

func TestNormalizeTxID(t *testing.T) {
	const canonical = "0x3f8bd8b1b4c2a7e4e1c3d6f6a5b4c3d2e1f0a9b8c7d6e5f4a3b2c1d0e9f8a7b6"

	cases := map[string]string{
		canonical: canonical,
		"0X3F8BD8B1B4C2A7E4E1C3D6F6A5B4C3D2E1F0A9B8C7D6E5F4A3B2C1D0E9F8A7B6": canonical,
		"3f8bd8b1b4c2a7e4e1c3d6f6a5b4c3d2e1f0a9b8c7d6e5f4a3b2c1d0e9f8a7b6":   canonical,
		"  " + canonical + " ": canonical,
		"tx1":                  "tx1",
		"0xabc":                "0xabc",
		"":                     "",
	}

	for input, want := range cases {
		if got := NormalizeTxID(input); got != want {
			t.Fatalf("NormalizeTxID(%q) = %q, want %q", input, got, want)
		}
	}
}
