package deviceuid

import (
	"strings"
	"testing"
)

func TestNormalizeAndValidate(t *testing.T) {
	clean := Normalize("1A2B-3C4D-5E6F-7890-ABCD-EF12")
	if clean != "1A2B3C4D5E6F7890ABCDEF12" {
		t.Fatalf("unexpected normalized uid %q", clean)
	}
	if !IsValid(clean) {
		t.Fatalf("expected %s to be valid", clean)
	}

	if got := Normalize(" 1a2b 3c4d\t5e6f-7890 abcd-ef12 "); got != "1a2b3c4d5e6f7890abcdef12" {
		t.Fatalf("unexpected normalized uid %q", got)
	}
}

func TestIsValidRejects(t *testing.T) {
	cases := map[string]string{
		"23 chars":      "1A2B3C4D5E6F7890ABCDEF1",
		"25 chars":      "1A2B3C4D5E6F7890ABCDEF123",
		"non hex g":     "1A2B3C4D5E6F7890ABCDEF1g",
		"empty":         "",
		"hyphenated":    "1A2B-3C4D-5E6F-7890-ABCD",
		"unicode digit": "1A2B3C4D5E6F7890ABCDEF1٣",
	}
	for name, value := range cases {
		if IsValid(value) {
			t.Fatalf("%s: expected %q to be rejected", name, value)
		}
	}
}

func TestIsValidMatchesStrippedLength(t *testing.T) {
	inputs := []string{
		"1A2B-3C4D-5E6F-7890-ABCD-EF12",
		"1a2b 3c4d 5e6f 7890 abcd ef12",
		"--1A2B3C4D5E6F7890ABCDEF12--",
		"1A2B-3C4D-5E6F-7890-ABCD-EF",
		"1A2B-3C4D-5E6F-7890-ABCD-EF12-3",
		"   ",
		"----",
	}
	for _, input := range inputs {
		stripped := strings.NewReplacer("-", "", " ", "").Replace(input)
		want := len(stripped) == Length
		if got := IsValid(Normalize(input)); got != want {
			t.Fatalf("IsValid(Normalize(%q)) = %v, want %v", input, got, want)
		}
	}
}

func TestFormatRoundTrip(t *testing.T) {
	inputs := []string{
		"1A2B3C4D5E6F7890ABCDEF12",
		"abcdefabcdefabcdefabcdef",
		"1A2B-3C4D-5E6F-7890-ABCD-EF12",
	}
	for _, input := range inputs {
		clean := Normalize(input)
		formatted := Format(clean)
		if Normalize(formatted) != clean {
			t.Fatalf("round trip failed for %q: formatted %q", input, formatted)
		}
	}
	if got := Format("1A2B3C4D5E6F7890ABCDEF12"); got != "1A2B-3C4D-5E6F-7890-ABCD-EF12" {
		t.Fatalf("unexpected format %q", got)
	}
	if got := Format(Format("1A2B3C4D5E6F7890ABCDEF12")); got != "1A2B-3C4D-5E6F-7890-ABCD-EF12" {
		t.Fatalf("format should be idempotent, got %q", got)
	}
}

func TestCanonical(t *testing.T) {
	got, err := Canonical("1a2b-3c4d-5e6f-7890-abcd-ef12")
	if err != nil {
		t.Fatalf("canonical error: %v", err)
	}
	if got != "1A2B3C4D5E6F7890ABCDEF12" {
		t.Fatalf("unexpected canonical %q", got)
	}
	if _, err := Canonical("1A2B3C4D5E6F7890ABCDEF1G"); err != ErrInvalid {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestBytes(t *testing.T) {
	raw, err := Bytes("000102030405060708090A0B")
	if err != nil {
		t.Fatalf("bytes error: %v", err)
	}
	for i, b := range raw {
		if int(b) != i {
			t.Fatalf("byte %d: expected %d got %d", i, i, b)
		}
	}
}
