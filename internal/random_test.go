package internal

import "testing"

func TestNumericCode_WidthAndCharset(t *testing.T) {
	for _, digits := range []int{4, 5, 10} {
		code, err := NumericCode(digits)
		if err != nil {
			t.Fatalf("NumericCode(%d) failed: %v", digits, err)
		}
		if len(code) != digits {
			t.Fatalf("NumericCode(%d) = %q", digits, code)
		}
		for _, r := range code {
			if r < '0' || r > '9' {
				t.Fatalf("non-digit in code %q", code)
			}
		}
	}
}

func TestNumericCode_RejectsBadWidths(t *testing.T) {
	for _, digits := range []int{0, 3, 11, -1} {
		if _, err := NumericCode(digits); err == nil {
			t.Fatalf("NumericCode(%d) should fail", digits)
		}
	}
}
