package db

import "testing"

func TestContainsPattern(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"asha", "%asha%"},
		{"100%", `%100\%%`},
		{"a_b", `%a\_b%`},
		{`c:\lab`, `%c:\\lab%`},
		{"", "%%"},
	}
	for _, tt := range tests {
		if got := ContainsPattern(tt.in); got != tt.want {
			t.Errorf("ContainsPattern(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
