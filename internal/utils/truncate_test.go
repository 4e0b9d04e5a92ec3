package utils

import "testing"

func TestTruncateForLog(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		input  string
		limit  int
		expect string
	}{
		{name: "non-positive limit", input: "Senior Go Developer", limit: 0, expect: ""},
		{name: "fits", input: "Go Developer", limit: 12, expect: "Go Developer"},
		{name: "cut", input: "Senior Go Developer", limit: 6, expect: "Senior..."},
		{name: "counts runes", input: "Entwickler für Börsen", limit: 13, expect: "Entwickler fü..."},
		{name: "trims before cutting", input: "\n  Backend  \n", limit: 4, expect: "Back..."},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := TruncateForLog(tt.input, tt.limit); got != tt.expect {
				t.Fatalf("expected %q, got %q", tt.expect, got)
			}
		})
	}
}
