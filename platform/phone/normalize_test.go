package phone

import "testing"

func TestNormalizeE164FormatsValidNumbers(t *testing.T) {
	n := NewNormalizer("BR")

	cases := map[string]string{
		"+55 11 98765-4321":  "+5511987654321",
		"(11) 98765-4321":    "+5511987654321",
		"  +5511987654321  ": "+5511987654321",
	}

	for input, want := range cases {
		if got := n.NormalizeE164(input); got != want {
			t.Errorf("NormalizeE164(%q) = %q, want %q", input, got, want)
		}
	}
}

func TestNormalizeE164FallsBackToDigits(t *testing.T) {
	n := NewNormalizer("BR")

	if got := n.NormalizeE164("12-34"); got != "+1234" {
		t.Fatalf("expected digit fallback, got %q", got)
	}
	if got := n.NormalizeE164("   "); got != "" {
		t.Fatalf("expected empty result for blank input, got %q", got)
	}
	if got := n.NormalizeE164("abc"); got != "" {
		t.Fatalf("expected empty result for input without digits, got %q", got)
	}
}

func TestNewNormalizerDefaultsRegion(t *testing.T) {
	if got := NewNormalizer(" ").region; got != DefaultRegion {
		t.Fatalf("expected default region %q, got %q", DefaultRegion, got)
	}
}
