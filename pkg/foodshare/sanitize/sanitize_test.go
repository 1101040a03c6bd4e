package sanitize

import "testing"

func TestText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"  Milk  ", "Milk"},
		{"<b>Cheese</b>", "Cheese"},
		{"<script>alert(1)</script>Bread", "Bread"},
		{"Fish & Chips", "Fish & Chips"},
		{"Pâine\x00", "Pâine"},
	}
	for _, tt := range tests {
		if got := Text(tt.in); got != tt.want {
			t.Errorf("Text(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestTruncate(t *testing.T) {
	if got := Truncate("Pește proaspăt", 5); got != "Pește" {
		t.Errorf("Truncate = %q, want %q", got, "Pește")
	}
	if got := Truncate("short", 10); got != "short" {
		t.Errorf("Truncate = %q, want unchanged", got)
	}
}
